package service

import (
	"sort"
	"sync"

	"sushi-system/internal/domain"
)

// OrderBook is the in-memory view of orders this process knows about.
// The files stay the source of truth; the book is what couriers scan.
type OrderBook struct {
	mu     sync.RWMutex
	orders map[int]domain.Order
}

func NewOrderBook() *OrderBook {
	return &OrderBook{orders: make(map[int]domain.Order)}
}

func (b *OrderBook) Put(order domain.Order) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[order.ID] = order.Clone()
}

func (b *OrderBook) Get(id int) (domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return domain.Order{}, false
	}
	return o.Clone(), true
}

func (b *OrderBook) Delete(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.orders, id)
}

// Replace swaps the whole book for orders.
func (b *OrderBook) Replace(orders []domain.Order) {
	fresh := make(map[int]domain.Order, len(orders))
	for _, o := range orders {
		fresh[o.ID] = o.Clone()
	}
	b.mu.Lock()
	b.orders = fresh
	b.mu.Unlock()
}

// All returns every order by ascending id.
func (b *OrderBook) All() []domain.Order {
	return b.filter(func(domain.Order) bool { return true })
}

// Received returns RECEIVED orders by ascending id.
func (b *OrderBook) Received() []domain.Order {
	return b.filter(func(o domain.Order) bool { return o.Status == domain.StatusReceived })
}

func (b *OrderBook) WithStatus(status domain.OrderStatus) []domain.Order {
	return b.filter(func(o domain.Order) bool { return o.Status == status })
}

// ReferencesDish reports whether an order still in flight asks for dish.
func (b *OrderBook) ReferencesDish(dish string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.orders {
		if o.Status.IsTerminal() {
			continue
		}
		if _, ok := o.Items[dish]; ok {
			return true
		}
	}
	return false
}

func (b *OrderBook) filter(keep func(domain.Order) bool) []domain.Order {
	b.mu.RLock()
	out := make([]domain.Order, 0, len(b.orders))
	for _, o := range b.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
