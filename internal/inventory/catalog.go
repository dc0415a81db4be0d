package inventory

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/validation"
	"sushi-system/internal/domain"
)

// Catalog owns suppliers and the item definitions in both ledgers. Every
// structural change (add, edit, remove) runs under one catalog lock, taken
// before any ledger call, so reference checks and the mutation they guard
// cannot interleave with another edit.
type Catalog struct {
	Ingredients *IngredientLedger
	Dishes      *DishLedger

	mu sync.Mutex

	supMu     sync.RWMutex
	suppliers map[string]domain.Supplier

	dishInUse func(name string) bool
}

func NewCatalog(ingredients *IngredientLedger, dishes *DishLedger) *Catalog {
	return &Catalog{
		Ingredients: ingredients,
		Dishes:      dishes,
		suppliers:   make(map[string]domain.Supplier),
	}
}

// SetDishGuard installs a check that blocks removing a dish some open order
// still asks for.
func (c *Catalog) SetDishGuard(inUse func(name string) bool) {
	c.mu.Lock()
	c.dishInUse = inUse
	c.mu.Unlock()
}

func (c *Catalog) AddSupplier(req domain.SupplierRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supMu.Lock()
	defer c.supMu.Unlock()
	if _, ok := c.suppliers[req.Name]; ok {
		return pkgerrors.Newf(pkgerrors.CodeDuplicate, "supplier %s already exists", req.Name)
	}
	c.suppliers[req.Name] = domain.Supplier{Name: req.Name, Distance: req.Distance}
	return nil
}

// UpdateSupplier edits a supplier; a new name is carried into every
// ingredient that references it.
func (c *Catalog) UpdateSupplier(name string, req domain.SupplierRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supMu.Lock()
	if _, ok := c.suppliers[name]; !ok {
		c.supMu.Unlock()
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "supplier %s not found", name)
	}
	if req.Name != name {
		if _, taken := c.suppliers[req.Name]; taken {
			c.supMu.Unlock()
			return pkgerrors.Newf(pkgerrors.CodeDuplicate, "supplier %s already exists", req.Name)
		}
		delete(c.suppliers, name)
	}
	c.suppliers[req.Name] = domain.Supplier{Name: req.Name, Distance: req.Distance}
	c.supMu.Unlock()

	if req.Name != name {
		c.Ingredients.RenameSupplier(name, req.Name)
	}
	return nil
}

func (c *Catalog) RemoveSupplier(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if users := c.Ingredients.UsesSupplier(name); len(users) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeConstraint, "supplier %s still supplies %s", name, strings.Join(users, ", ")).
			WithDetails(map[string]any{"ingredients": users})
	}
	c.supMu.Lock()
	defer c.supMu.Unlock()
	if _, ok := c.suppliers[name]; !ok {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "supplier %s not found", name)
	}
	delete(c.suppliers, name)
	return nil
}

func (c *Catalog) Supplier(name string) (domain.Supplier, bool) {
	c.supMu.RLock()
	defer c.supMu.RUnlock()
	s, ok := c.suppliers[name]
	return s, ok
}

// Suppliers returns every supplier sorted by name.
func (c *Catalog) Suppliers() []domain.Supplier {
	c.supMu.RLock()
	out := make([]domain.Supplier, 0, len(c.suppliers))
	for _, s := range c.suppliers {
		out = append(out, s)
	}
	c.supMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SupplierDistance resolves how far a courier travels to collect ingredient.
func (c *Catalog) SupplierDistance(ingredient string) (int, bool) {
	item, ok := c.Ingredients.Item(ingredient)
	if !ok {
		return 0, false
	}
	s, ok := c.Supplier(item.Supplier)
	if !ok {
		return 0, false
	}
	return s.Distance, true
}

func (c *Catalog) AddIngredient(req domain.IngredientRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Supplier(req.Supplier); !ok {
		return unknownReference("supplier", req.Supplier)
	}
	item := domain.Ingredient{Name: req.Name, Unit: req.Unit, Supplier: req.Supplier}
	if err := c.Ingredients.Add(item, req.RestockLevel); err != nil {
		return err
	}
	if req.Stock > 0 {
		return c.Ingredients.Increase(req.Name, req.Stock)
	}
	return nil
}

// UpdateIngredient edits name, unit, supplier and restock level. A rename is
// cascaded into every recipe. Stock is left as is.
func (c *Catalog) UpdateIngredient(name string, req domain.IngredientRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.Supplier(req.Supplier); !ok {
		return unknownReference("supplier", req.Supplier)
	}
	item := domain.Ingredient{Name: req.Name, Unit: req.Unit, Supplier: req.Supplier}
	if err := c.Ingredients.Update(name, item); err != nil {
		return err
	}
	c.Dishes.RenameIngredient(name, req.Name)
	return c.Ingredients.SetRestockLevel(req.Name, req.RestockLevel)
}

func (c *Catalog) RemoveIngredient(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dishes := c.Dishes.ReferencesIngredient(name); len(dishes) > 0 {
		return pkgerrors.Newf(pkgerrors.CodeConstraint, "ingredient %s is used by %s", name, strings.Join(dishes, ", ")).
			WithDetails(map[string]any{"dishes": dishes})
	}
	return c.Ingredients.Remove(name)
}

func (c *Catalog) AddDish(req domain.DishRequest) error {
	dish, err := c.dishFromRequest(req)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkRecipe(dish.Recipe); err != nil {
		return err
	}
	if err := c.Dishes.Add(dish, req.RestockLevel); err != nil {
		return err
	}
	if req.Stock > 0 {
		return c.Dishes.Increase(req.Name, req.Stock)
	}
	return nil
}

// UpdateDish edits description, price, recipe and restock level. Renaming a
// dish is refused while an open order asks for it.
func (c *Catalog) UpdateDish(name string, req domain.DishRequest) error {
	dish, err := c.dishFromRequest(req)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.checkRecipe(dish.Recipe); err != nil {
		return err
	}
	if dish.Name != name && c.dishInUse != nil && c.dishInUse(name) {
		return pkgerrors.Newf(pkgerrors.CodeConstraint, "dish %s is part of an open order", name)
	}
	if err := c.Dishes.Update(name, dish); err != nil {
		return err
	}
	return c.Dishes.SetRestockLevel(dish.Name, req.RestockLevel)
}

func (c *Catalog) RemoveDish(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dishInUse != nil && c.dishInUse(name) {
		return pkgerrors.Newf(pkgerrors.CodeConstraint, "dish %s is part of an open order", name)
	}
	return c.Dishes.Remove(name)
}

func (c *Catalog) dishFromRequest(req domain.DishRequest) (domain.Dish, error) {
	if err := validation.Struct(req); err != nil {
		return domain.Dish{}, err
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return domain.Dish{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
			WithDetails(map[string]string{"price": "must be a non-negative amount"})
	}
	return domain.Dish{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Recipe:      req.Recipe,
	}, nil
}

func (c *Catalog) checkRecipe(recipe map[string]int) error {
	for ingredient := range recipe {
		if !c.Ingredients.Has(ingredient) {
			return unknownReference("ingredient", ingredient)
		}
	}
	return nil
}

func unknownReference(kind, name string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown %s %s", kind, name).
		WithDetails(map[string]string{kind: "is not registered"})
}

// Snapshot is the persisted shape of the whole catalog.
type Snapshot struct {
	Suppliers   []domain.Supplier
	Ingredients []IngredientEntry
	Dishes      []DishEntry
}

// Snapshot copies suppliers and both ledgers. Each part is consistent on its
// own; the catalog lock keeps definitions from changing in between.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Suppliers:   c.Suppliers(),
		Ingredients: c.Ingredients.Snapshot(),
		Dishes:      c.Dishes.Snapshot(),
	}
}

// Restore replaces the whole catalog with snap.
func (c *Catalog) Restore(snap Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	suppliers := make(map[string]domain.Supplier, len(snap.Suppliers))
	for _, s := range snap.Suppliers {
		suppliers[s.Name] = s
	}
	if err := c.Ingredients.Restore(snap.Ingredients); err != nil {
		return err
	}
	if err := c.Dishes.Restore(snap.Dishes); err != nil {
		return err
	}
	c.supMu.Lock()
	c.suppliers = suppliers
	c.supMu.Unlock()
	return nil
}
