package inventory

import (
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/domain"
)

// IngredientState marks an ingredient a courier is already out collecting.
type IngredientState struct {
	Collecting bool
}

type IngredientEntry = Entry[domain.Ingredient, IngredientState]

type IngredientLedger struct {
	*Ledger[domain.Ingredient, IngredientState]
}

func NewIngredientLedger(log *logger.Logger, m *metrics.Engine) *IngredientLedger {
	return &IngredientLedger{Ledger: newLedger[domain.Ingredient, IngredientState]("ingredients", log, m, func(x IngredientState) bool { return x.Collecting })}
}

// CheckDeficit skips ingredients that are already being collected.
func (l *IngredientLedger) CheckDeficit() (string, bool) {
	return l.firstMatching(func(e *IngredientEntry) bool {
		return !e.Extra.Collecting && e.Stock < e.RestockLevel
	})
}

func (l *IngredientLedger) Deficits() []string {
	return l.allMatching(func(e *IngredientEntry) bool {
		return !e.Extra.Collecting && e.Stock < e.RestockLevel
	})
}

// TryCollect flips the collecting flag from false to true. It reports false
// when the ingredient is unknown or someone else already holds the flag.
func (l *IngredientLedger) TryCollect(key string) bool {
	flipped := false
	l.with(key, func(e *IngredientEntry) {
		if !e.Extra.Collecting {
			e.Extra.Collecting = true
			flipped = true
		}
	})
	return flipped
}

func (l *IngredientLedger) ClearCollecting(key string) {
	l.with(key, func(e *IngredientEntry) { e.Extra.Collecting = false })
}

func (l *IngredientLedger) IsCollecting(key string) bool {
	collecting := false
	l.with(key, func(e *IngredientEntry) { collecting = e.Extra.Collecting })
	return collecting
}

// Replenish adds one restock level worth of stock and clears the collecting
// flag in a single step. It returns the amount added.
func (l *IngredientLedger) Replenish(key string) (int, bool) {
	added := 0
	ok := l.with(key, func(e *IngredientEntry) {
		added = e.RestockLevel
		e.Stock += added
		e.Extra.Collecting = false
	})
	return added, ok
}

// TryConsume takes every amount or nothing. An unknown ingredient counts as
// insufficient.
func (l *IngredientLedger) TryConsume(amounts map[string]int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, n := range amounts {
		e, ok := l.entries[key]
		if !ok || e.Stock < n {
			return false
		}
	}
	for key, n := range amounts {
		l.decreaseLocked(l.entries[key], n)
	}
	return true
}

// Release gives back amounts taken by TryConsume. Ingredients removed in the
// meantime are skipped.
func (l *IngredientLedger) Release(amounts map[string]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, n := range amounts {
		if e, ok := l.entries[key]; ok {
			e.Stock += n
		}
	}
}

// Sufficient reports whether every amount is currently in stock.
func (l *IngredientLedger) Sufficient(amounts map[string]int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, n := range amounts {
		e, ok := l.entries[key]
		if !ok || e.Stock < n {
			return false
		}
	}
	return true
}

// UsesSupplier lists ingredients collected from supplier.
func (l *IngredientLedger) UsesSupplier(supplier string) []string {
	return l.allMatching(func(e *IngredientEntry) bool { return e.Item.Supplier == supplier })
}

// RenameSupplier rewrites the supplier reference of every ingredient.
func (l *IngredientLedger) RenameSupplier(oldName, newName string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Item.Supplier == oldName {
			e.Item.Supplier = newName
		}
	}
}

// PrepareForClose drops every collecting flag; trips in flight are abandoned.
func (l *IngredientLedger) PrepareForClose() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		e.Extra.Collecting = false
	}
}
