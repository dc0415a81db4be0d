package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(NewIngredientLedger(nil, nil), NewDishLedger(nil, nil))
	require.NoError(t, c.Apply(Seed{
		Suppliers: []domain.SupplierRequest{{Name: "Fishmonger", Distance: 40}, {Name: "Farm", Distance: 80}},
		Ingredients: []domain.IngredientRequest{
			{Name: "Rice", Unit: "kg", Supplier: "Farm", RestockLevel: 5, Stock: 5},
			{Name: "Salmon", Unit: "fillet", Supplier: "Fishmonger", RestockLevel: 2},
		},
		Dishes: []domain.DishRequest{
			{Name: "Maki", Price: "4.50", Recipe: map[string]int{"Rice": 3}, RestockLevel: 2},
		},
	}))
	return c
}

func TestCatalogReferenceChecks(t *testing.T) {
	c := newTestCatalog(t)

	err := c.RemoveIngredient("Rice")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConstraint))

	err = c.RemoveSupplier("Farm")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConstraint))

	err = c.AddIngredient(domain.IngredientRequest{Name: "Nori", Unit: "sheet", Supplier: "Nowhere"})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = c.AddDish(domain.DishRequest{Name: "Roll", Price: "3", Recipe: map[string]int{"Avocado": 1}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = c.AddSupplier(domain.SupplierRequest{Name: "Farm", Distance: 1})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDuplicate))

	require.NoError(t, c.RemoveIngredient("Salmon"))
	require.NoError(t, c.RemoveSupplier("Fishmonger"))
	_, ok := c.Supplier("Fishmonger")
	assert.False(t, ok)
}

func TestCatalogRejectsInvalidRequests(t *testing.T) {
	c := newTestCatalog(t)

	err := c.AddDish(domain.DishRequest{Name: "Roll", Price: "-1", Recipe: map[string]int{"Rice": 1}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = c.AddDish(domain.DishRequest{Name: "Roll", Price: "2", Recipe: map[string]int{"Rice": 0}})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	err = c.AddSupplier(domain.SupplierRequest{Name: "Far", Distance: -5})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRenameIngredientCascades(t *testing.T) {
	c := newTestCatalog(t)

	require.NoError(t, c.UpdateIngredient("Rice", domain.IngredientRequest{Name: "Sushi rice", Unit: "kg", Supplier: "Farm", RestockLevel: 6}))

	recipe, _ := c.Dishes.Recipe("Maki")
	assert.Equal(t, map[string]int{"Sushi rice": 3}, recipe)
	stock, _ := c.Ingredients.Stock("Sushi rice")
	assert.Equal(t, 5, stock)
	level, _ := c.Ingredients.RestockLevel("Sushi rice")
	assert.Equal(t, 6, level)
}

func TestRenameSupplierCascades(t *testing.T) {
	c := newTestCatalog(t)

	require.NoError(t, c.UpdateSupplier("Farm", domain.SupplierRequest{Name: "Paddy", Distance: 90}))

	distance, ok := c.SupplierDistance("Rice")
	require.True(t, ok)
	assert.Equal(t, 90, distance)
}

func TestDishGuardBlocksRemoval(t *testing.T) {
	c := newTestCatalog(t)
	c.SetDishGuard(func(name string) bool { return name == "Maki" })

	assert.True(t, pkgerrors.HasCode(c.RemoveDish("Maki"), pkgerrors.CodeConstraint))

	c.SetDishGuard(nil)
	require.NoError(t, c.RemoveDish("Maki"))
	require.NoError(t, c.RemoveIngredient("Rice"))
}

func TestSnapshotRoundTripThroughFiles(t *testing.T) {
	c := newTestCatalog(t)
	_, _ = c.Dishes.ReservePreparation("Maki")

	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	repo := NewSnapshotRepository(store)

	_, err = repo.Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, repo.Save(c.Snapshot()))

	loaded, err := repo.Load()
	require.NoError(t, err)

	restored := NewCatalog(NewIngredientLedger(nil, nil), NewDishLedger(nil, nil))
	require.NoError(t, restored.Restore(loaded))

	assert.Equal(t, c.Suppliers(), restored.Suppliers())
	assert.Equal(t, c.Ingredients.Snapshot(), restored.Ingredients.Snapshot())
	price, _ := restored.Dishes.Price("Maki")
	assert.Equal(t, "4.5", price.String())
	assert.Zero(t, restored.Dishes.InPreparation("Maki"), "in-flight portions are not persisted")
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
suppliers:
  - {name: Fishmonger, distance: 40}
ingredients:
  - {name: Rice, unit: kg, supplier: Fishmonger, restock_level: 10, stock: 10}
dishes:
  - {name: Maki, price: "4.50", recipe: {Rice: 3}, restock_level: 2}
`), 0o644))

	seed, err := LoadSeed(path)
	require.NoError(t, err)

	c := NewCatalog(NewIngredientLedger(nil, nil), NewDishLedger(nil, nil))
	require.NoError(t, c.Apply(seed))
	stock, _ := c.Ingredients.Stock("Rice")
	assert.Equal(t, 10, stock)
	assert.Equal(t, []string{"Maki"}, c.Dishes.Deficits())
}

func TestRenameRefusedWhileWorkInFlight(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.Ingredients.Decrease("Rice", 5))
	require.True(t, c.Ingredients.TryCollect("Rice"))

	err := c.UpdateIngredient("Rice", domain.IngredientRequest{Name: "SushiRice", Unit: "kg", Supplier: "Farm", RestockLevel: 5})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConstraint))
	recipe, _ := c.Dishes.Recipe("Maki")
	assert.Equal(t, map[string]int{"Rice": 3}, recipe)

	added, ok := c.Ingredients.Replenish("Rice")
	require.True(t, ok)
	assert.Equal(t, 5, added)
	assert.False(t, c.Ingredients.IsCollecting("Rice"))
	require.NoError(t, c.UpdateIngredient("Rice", domain.IngredientRequest{Name: "SushiRice", Unit: "kg", Supplier: "Farm", RestockLevel: 5}))

	_, claimed := c.Dishes.ReservePreparation("Maki")
	require.True(t, claimed)
	err = c.UpdateDish("Maki", domain.DishRequest{Name: "Hosomaki", Price: "4.50", Recipe: map[string]int{"SushiRice": 3}, RestockLevel: 2})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConstraint))

	require.True(t, c.Dishes.CompletePreparation("Maki"))
	assert.Equal(t, 0, c.Dishes.InPreparation("Maki"))
	require.NoError(t, c.UpdateDish("Maki", domain.DishRequest{Name: "Hosomaki", Price: "4.50", Recipe: map[string]int{"SushiRice": 3}, RestockLevel: 2}))
}
