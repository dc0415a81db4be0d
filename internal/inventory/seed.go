package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sushi-system/internal/domain"
)

// Seed is the YAML shape used to stock a fresh business:
//
//	suppliers:
//	  - {name: Fishmonger, distance: 40}
//	ingredients:
//	  - {name: Rice, unit: kg, supplier: Fishmonger, restock_level: 10, stock: 10}
//	dishes:
//	  - {name: Maki, price: "4.50", recipe: {Rice: 3}, restock_level: 2}
type Seed struct {
	Suppliers   []domain.SupplierRequest   `yaml:"suppliers"`
	Ingredients []domain.IngredientRequest `yaml:"ingredients"`
	Dishes      []domain.DishRequest       `yaml:"dishes"`
}

func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return seed, nil
}

// Apply adds everything in seed, suppliers first. It stops at the first
// rejected entry.
func (c *Catalog) Apply(seed Seed) error {
	for _, s := range seed.Suppliers {
		if err := c.AddSupplier(s); err != nil {
			return fmt.Errorf("seed supplier %s: %w", s.Name, err)
		}
	}
	for _, i := range seed.Ingredients {
		if err := c.AddIngredient(i); err != nil {
			return fmt.Errorf("seed ingredient %s: %w", i.Name, err)
		}
	}
	for _, d := range seed.Dishes {
		if err := c.AddDish(d); err != nil {
			return fmt.Errorf("seed dish %s: %w", d.Name, err)
		}
	}
	return nil
}
