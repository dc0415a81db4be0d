package inventory

import (
	"github.com/shopspring/decimal"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/domain"
)

// DishState counts portions preparers have claimed but not finished yet.
type DishState struct {
	InPreparation int
}

type DishEntry = Entry[domain.Dish, DishState]

type DishLedger struct {
	*Ledger[domain.Dish, DishState]
}

func NewDishLedger(log *logger.Logger, m *metrics.Engine) *DishLedger {
	return &DishLedger{Ledger: newLedger[domain.Dish, DishState]("dishes", log, m, func(x DishState) bool { return x.InPreparation > 0 })}
}

func openDeficit(e *DishEntry) int {
	return e.RestockLevel - e.Stock - e.Extra.InPreparation
}

// CheckDeficit returns a dish whose stock plus portions in preparation is
// still below the restock level.
func (l *DishLedger) CheckDeficit() (string, bool) {
	return l.firstMatching(func(e *DishEntry) bool { return openDeficit(e) > 0 })
}

func (l *DishLedger) Deficits() []string {
	return l.allMatching(func(e *DishEntry) bool { return openDeficit(e) > 0 })
}

func (l *DishLedger) InPreparation(key string) int {
	n := 0
	l.with(key, func(e *DishEntry) { n = e.Extra.InPreparation })
	return n
}

// ReservePreparation claims one portion of key's open deficit. It returns the
// deficit seen before the claim.
func (l *DishLedger) ReservePreparation(key string) (int, bool) {
	deficit, claimed := 0, false
	l.with(key, func(e *DishEntry) {
		deficit = openDeficit(e)
		if deficit > 0 {
			e.Extra.InPreparation++
			claimed = true
		}
	})
	return deficit, claimed
}

func (l *DishLedger) CancelPreparation(key string) {
	l.with(key, func(e *DishEntry) {
		if e.Extra.InPreparation > 0 {
			e.Extra.InPreparation--
		}
	})
}

// CompletePreparation moves one claimed portion into stock.
func (l *DishLedger) CompletePreparation(key string) bool {
	return l.with(key, func(e *DishEntry) {
		e.Stock++
		if e.Extra.InPreparation > 0 {
			e.Extra.InPreparation--
		}
	})
}

// Covers reports whether stock can serve every line of items.
func (l *DishLedger) Covers(items map[string]int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coversLocked(items)
}

func (l *DishLedger) coversLocked(items map[string]int) bool {
	for key, n := range items {
		e, ok := l.entries[key]
		if !ok || e.Stock < n {
			return false
		}
	}
	return true
}

// TryTake removes items from stock only if all of them are covered.
func (l *DishLedger) TryTake(items map[string]int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.coversLocked(items) {
		return false
	}
	for key, n := range items {
		l.decreaseLocked(l.entries[key], n)
	}
	return true
}

// Return puts items taken by TryTake back into stock.
func (l *DishLedger) Return(items map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, n := range items {
		if e, ok := l.entries[key]; ok {
			e.Stock += n
		}
	}
}

func (l *DishLedger) Price(key string) (decimal.Decimal, bool) {
	price := decimal.Zero
	ok := l.with(key, func(e *DishEntry) { price = e.Item.Price })
	return price, ok
}

// Recipe returns a copy of key's recipe.
func (l *DishLedger) Recipe(key string) (map[string]int, bool) {
	dish, ok := l.Item(key)
	if !ok {
		return nil, false
	}
	return dish.Recipe, true
}

// ReferencesIngredient lists dishes whose recipe uses ingredient.
func (l *DishLedger) ReferencesIngredient(ingredient string) []string {
	return l.allMatching(func(e *DishEntry) bool {
		_, uses := e.Item.Recipe[ingredient]
		return uses
	})
}

// RenameIngredient rewrites ingredient references inside every recipe.
func (l *DishLedger) RenameIngredient(oldName, newName string) {
	if oldName == newName {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if n, ok := e.Item.Recipe[oldName]; ok {
			recipe := make(map[string]int, len(e.Item.Recipe))
			for k, v := range e.Item.Recipe {
				recipe[k] = v
			}
			delete(recipe, oldName)
			recipe[newName] += n
			e.Item.Recipe = recipe
		}
	}
}

// PrepareForClose forgets portions that will never be finished.
func (l *DishLedger) PrepareForClose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		e.Extra.InPreparation = 0
	}
}
