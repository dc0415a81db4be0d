package service

import (
	"context"
	"sync"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
)

// OrderBookInterface is the part of the order service couriers need.
type OrderBookInterface interface {
	// Received lists RECEIVED orders by ascending id.
	Received() []domain.Order
	Transition(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, error)
	// Apply persists a transition without notifying observers; Announce
	// notifies them afterwards.
	Apply(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, domain.StatusEvent, error)
	Announce(ctx context.Context, event domain.StatusEvent)
}

// Dispatcher holds the two decision locks shared by every courier: one for
// picking an ingredient to collect, one for claiming an order to deliver.
// Neither is held during a trip.
type Dispatcher struct {
	ingredients *inventory.IngredientLedger
	dishes      *inventory.DishLedger
	orders      OrderBookInterface
	log         *logger.Logger

	collectMu  sync.Mutex
	dispatchMu sync.Mutex
}

func NewDispatcher(ingredients *inventory.IngredientLedger, dishes *inventory.DishLedger, orders OrderBookInterface, log *logger.Logger) *Dispatcher {
	return &Dispatcher{ingredients: ingredients, dishes: dishes, orders: orders, log: log}
}

// ReserveCollection picks an ingredient below its restock level and flags it
// as being collected. Losing the flag to another courier is not an error.
func (d *Dispatcher) ReserveCollection() (string, bool) {
	d.collectMu.Lock()
	defer d.collectMu.Unlock()
	key, ok := d.ingredients.CheckDeficit()
	if !ok {
		return "", false
	}
	if !d.ingredients.TryCollect(key) {
		return "", false
	}
	return key, true
}

func (d *Dispatcher) ReleaseCollection(key string) {
	d.ingredients.ClearCollecting(key)
}

// ClaimDelivery takes the dishes of the first deliverable order out of stock
// and moves the order to DELIVERING. If the status write fails the dishes go
// back and the order stays RECEIVED. Observers hear about the claim after
// the dispatch lock is released.
func (d *Dispatcher) ClaimDelivery(ctx context.Context, courier string) (domain.Order, bool, error) {
	claimed, event, ok, err := d.claim(ctx, courier)
	if ok {
		d.orders.Announce(ctx, event)
	}
	return claimed, ok, err
}

func (d *Dispatcher) claim(ctx context.Context, courier string) (domain.Order, domain.StatusEvent, bool, error) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()
	for _, order := range d.orders.Received() {
		if !d.dishes.TryTake(order.Items) {
			continue
		}
		claimed, event, err := d.orders.Apply(ctx, order.ID, domain.StatusDelivering, courier)
		if err != nil {
			d.dishes.Return(order.Items)
			return domain.Order{}, domain.StatusEvent{}, false, err
		}
		return claimed, event, true, nil
	}
	return domain.Order{}, domain.StatusEvent{}, false, nil
}

// ReleaseDelivery hands an interrupted delivery back: dishes return to stock
// and the order goes back to RECEIVED for another courier.
func (d *Dispatcher) ReleaseDelivery(ctx context.Context, order domain.Order, courier string) error {
	d.dispatchMu.Lock()
	d.dishes.Return(order.Items)
	_, event, err := d.orders.Apply(ctx, order.ID, domain.StatusReceived, courier)
	d.dispatchMu.Unlock()
	if err != nil {
		d.log.Error("delivery_release_failed", err, map[string]any{"order_id": order.ID, "worker": courier})
		return err
	}
	d.orders.Announce(ctx, event)
	return nil
}
