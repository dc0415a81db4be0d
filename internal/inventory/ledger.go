// Package inventory holds the two stock ledgers (ingredients and dishes) and
// the catalog that keeps their definitions consistent with each other.
package inventory

import (
	"sort"
	"sync"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
)

// Item is anything a ledger can track. The key is the item's name and is the
// only identity other records use to refer to it.
type Item interface {
	Key() string
}

// Entry is one tracked item. X carries per-ledger working state that is not
// persisted (the collecting flag, the in-preparation counter).
type Entry[T Item, X any] struct {
	Item         T   `json:"item"`
	Stock        int `json:"stock"`
	RestockLevel int `json:"restock_level"`
	Extra        X   `json:"-"`
}

// Ledger maps tracked items to stock and restock level. Every method is atomic
// with respect to every other method on the same ledger; two ledgers never
// share a lock.
type Ledger[T Item, X any] struct {
	name    string
	log     *logger.Logger
	metrics *metrics.Engine
	busy    func(X) bool // working state that pins the entry's name

	mu      sync.Mutex
	entries map[string]*Entry[T, X]
}

func newLedger[T Item, X any](name string, log *logger.Logger, m *metrics.Engine, busy func(X) bool) *Ledger[T, X] {
	return &Ledger[T, X]{
		name:    name,
		log:     log,
		metrics: m,
		busy:    busy,
		entries: make(map[string]*Entry[T, X]),
	}
}

func (l *Ledger[T, X]) Name() string { return l.name }

// Add starts tracking item with zero stock.
func (l *Ledger[T, X]) Add(item T, restockLevel int) error {
	if item.Key() == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	if restockLevel < 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s: restock level must not be negative", item.Key())
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[item.Key()]; ok {
		return pkgerrors.Newf(pkgerrors.CodeDuplicate, "%s already tracked in %s", item.Key(), l.name)
	}
	l.entries[item.Key()] = &Entry[T, X]{Item: cloneItem(item), RestockLevel: restockLevel}
	return nil
}

// Remove stops tracking key. Callers check references before calling.
func (l *Ledger[T, X]) Remove(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; !ok {
		return l.notFound(key)
	}
	delete(l.entries, key)
	return nil
}

func (l *Ledger[T, X]) Has(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok
}

func (l *Ledger[T, X]) Item(key string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return cloneItem(e.Item), true
}

// Update replaces the definition of key. A different item.Key() renames the
// entry, keeping stock and restock level. Workers hold claims by name, so a
// rename is refused while the entry has work in flight.
func (l *Ledger[T, X]) Update(key string, item T) error {
	if item.Key() == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return l.notFound(key)
	}
	if item.Key() != key {
		if l.busy != nil && l.busy(e.Extra) {
			return pkgerrors.Newf(pkgerrors.CodeConstraint, "%s has work in flight in %s", key, l.name)
		}
		if _, taken := l.entries[item.Key()]; taken {
			return pkgerrors.Newf(pkgerrors.CodeDuplicate, "%s already tracked in %s", item.Key(), l.name)
		}
		delete(l.entries, key)
		l.entries[item.Key()] = e
	}
	e.Item = cloneItem(item)
	return nil
}

func (l *Ledger[T, X]) Stock(key string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return 0, false
	}
	return e.Stock, true
}

func (l *Ledger[T, X]) RestockLevel(key string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return 0, false
	}
	return e.RestockLevel, true
}

func (l *Ledger[T, X]) SetRestockLevel(key string, level int) error {
	if level < 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s: restock level must not be negative", key)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return l.notFound(key)
	}
	e.RestockLevel = level
	return nil
}

// RaiseRestockLevel sets the level to at least level and reports whether it
// changed. Unknown keys are ignored.
func (l *Ledger[T, X]) RaiseRestockLevel(key string, level int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || e.RestockLevel >= level {
		return false
	}
	e.RestockLevel = level
	return true
}

func (l *Ledger[T, X]) Increase(key string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return l.notFound(key)
	}
	e.Stock += n
	return nil
}

// Decrease does not clamp at zero. Going negative means some caller skipped
// the reservation protocol, so it is reported rather than hidden.
func (l *Ledger[T, X]) Decrease(key string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return l.notFound(key)
	}
	l.decreaseLocked(e, n)
	return nil
}

func (l *Ledger[T, X]) decreaseLocked(e *Entry[T, X], n int) {
	e.Stock -= n
	if e.Stock < 0 {
		l.log.Warn("stock_negative", nil, map[string]any{"ledger": l.name, "item": e.Item.Key(), "stock": e.Stock})
		l.metrics.NegativeStock(l.name)
	}
}

// CheckDeficit returns one item whose stock is below its restock level.
func (l *Ledger[T, X]) CheckDeficit() (string, bool) {
	return l.firstMatching(func(e *Entry[T, X]) bool { return e.Stock < e.RestockLevel })
}

// Deficits returns every item below its restock level, in name order.
func (l *Ledger[T, X]) Deficits() []string {
	return l.allMatching(func(e *Entry[T, X]) bool { return e.Stock < e.RestockLevel })
}

func (l *Ledger[T, X]) Keys() []string {
	return l.allMatching(func(*Entry[T, X]) bool { return true })
}

func (l *Ledger[T, X]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot copies every entry, sorted by name. The lock is released before
// the copy is returned so readers can render it at leisure.
func (l *Ledger[T, X]) Snapshot() []Entry[T, X] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry[T, X], 0, len(l.entries))
	for _, e := range l.entries {
		cp := *e
		cp.Item = cloneItem(e.Item)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.Key() < out[j].Item.Key() })
	return out
}

// Restore replaces the ledger contents. Working state in Extra is reset.
func (l *Ledger[T, X]) Restore(entries []Entry[T, X]) error {
	fresh := make(map[string]*Entry[T, X], len(entries))
	for _, e := range entries {
		key := e.Item.Key()
		if key == "" {
			return pkgerrors.Newf(pkgerrors.CodeValidation, "%s snapshot: entry without name", l.name)
		}
		if _, dup := fresh[key]; dup {
			return pkgerrors.Newf(pkgerrors.CodeDuplicate, "%s snapshot: %s listed twice", l.name, key)
		}
		var zero X
		fresh[key] = &Entry[T, X]{Item: cloneItem(e.Item), Stock: e.Stock, RestockLevel: e.RestockLevel, Extra: zero}
	}
	l.mu.Lock()
	l.entries = fresh
	l.mu.Unlock()
	return nil
}

// with runs fn on the entry for key under the ledger lock.
func (l *Ledger[T, X]) with(key string, fn func(e *Entry[T, X])) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return false
	}
	fn(e)
	return true
}

func (l *Ledger[T, X]) firstMatching(match func(e *Entry[T, X]) bool) (string, bool) {
	keys := l.allMatching(match)
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

func (l *Ledger[T, X]) allMatching(match func(e *Entry[T, X]) bool) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matchingLocked(match)
}

func (l *Ledger[T, X]) matchingLocked(match func(e *Entry[T, X]) bool) []string {
	var keys []string
	for key, e := range l.entries {
		if match(e) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (l *Ledger[T, X]) notFound(key string) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not tracked in %s", key, l.name)
}

func cloneItem[T Item](item T) T {
	if c, ok := any(item).(interface{ Clone() T }); ok {
		return c.Clone()
	}
	return item
}
