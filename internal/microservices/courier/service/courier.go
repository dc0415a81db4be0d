package service

import (
	"context"
	"fmt"
	"time"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/staff"
)

var (
	// ErrCollectionInterrupted: stopped on the way to or from a supplier.
	// Nothing was restocked and the ingredient is free to collect again.
	ErrCollectionInterrupted = pkgerrors.New(pkgerrors.CodeWorkerCancelled, "collection interrupted")
	// ErrDeliveryInterrupted: stopped while delivering or returning.
	ErrDeliveryInterrupted = pkgerrors.New(pkgerrors.CodeWorkerCancelled, "delivery interrupted")
)

// SupplierDistancer resolves how far an ingredient's supplier is.
type SupplierDistancer interface {
	SupplierDistance(ingredient string) (int, bool)
}

type Config struct {
	Speed    int
	TimeUnit time.Duration
	IdlePoll time.Duration
	Zones    Zones
}

// Courier restocks ingredients from suppliers and delivers orders, always
// preferring a restock when one is needed.
type Courier struct {
	name       string
	dispatcher *Dispatcher
	suppliers  SupplierDistancer
	cfg        Config
	box        *staff.StatusBox
	log        *logger.Logger
	metrics    *metrics.Engine
}

func NewCourier(name string, dispatcher *Dispatcher, suppliers SupplierDistancer, cfg Config, log *logger.Logger, m *metrics.Engine) *Courier {
	if cfg.Speed <= 0 {
		cfg.Speed = 1
	}
	if cfg.TimeUnit <= 0 {
		cfg.TimeUnit = time.Minute
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = time.Second
	}
	return &Courier{
		name:       name,
		dispatcher: dispatcher,
		suppliers:  suppliers,
		cfg:        cfg,
		box:        staff.NewStatusBox(),
		log:        log.With(map[string]any{"worker": name, "kind": string(domain.WorkerCourier)}),
		metrics:    m,
	}
}

func (c *Courier) Status() (domain.WorkerStatus, string) { return c.box.Get() }

func (c *Courier) Run(ctx context.Context) error {
	c.box.Set(domain.WorkerWaiting, "")
	for {
		if ctx.Err() != nil {
			c.box.Set(domain.WorkerStopped, "")
			return nil
		}
		if ingredient, ok := c.dispatcher.ReserveCollection(); ok {
			c.metrics.Reservation(string(domain.WorkerCourier), true)
			if err := c.collect(ctx, ingredient); err != nil {
				return err
			}
			continue
		}
		order, ok, err := c.dispatcher.ClaimDelivery(ctx, c.name)
		if err != nil {
			c.log.Warn("delivery_claim_failed", err, nil)
		}
		if ok {
			c.metrics.Reservation(string(domain.WorkerCourier), true)
			if err := c.deliver(ctx, order); err != nil {
				return err
			}
			continue
		}
		if !staff.Hold(ctx, c.cfg.IdlePoll) {
			c.box.Set(domain.WorkerStopped, "")
			return nil
		}
	}
}

func (c *Courier) collect(ctx context.Context, ingredient string) error {
	defer c.dispatcher.ReleaseCollection(ingredient)

	distance, _ := c.suppliers.SupplierDistance(ingredient)
	trip := c.travelTime(distance)
	fields := map[string]any{"ingredient": ingredient, "distance": distance, "trip": trip.String()}
	c.log.Debug("collection_started", fields)

	for _, leg := range []domain.WorkerStatus{domain.WorkerCollecting, domain.WorkerReturning} {
		c.box.Set(leg, ingredient)
		if !staff.Hold(ctx, trip) {
			c.box.Set(domain.WorkerStopped, "")
			c.log.Warn("collection_interrupted", ErrCollectionInterrupted, fields)
			return ErrCollectionInterrupted
		}
	}

	added, _ := c.dispatcher.ingredients.Replenish(ingredient)
	c.metrics.Collected()
	c.box.Set(domain.WorkerWaiting, "")
	fields["added"] = added
	c.log.Info("collection_completed", fields)
	return nil
}

func (c *Courier) deliver(ctx context.Context, order domain.Order) error {
	distance := c.cfg.Zones.Distance(order.Postcode)
	trip := c.travelTime(distance)
	task := fmt.Sprintf("order-%d", order.ID)
	fields := map[string]any{"order_id": order.ID, "postcode": order.Postcode, "trip": trip.String()}
	c.log.Debug("delivery_started", fields)

	c.box.Set(domain.WorkerDelivering, task)
	if !staff.Hold(ctx, trip) {
		_ = c.dispatcher.ReleaseDelivery(context.WithoutCancel(ctx), order, c.name)
		c.box.Set(domain.WorkerStopped, "")
		c.log.Warn("delivery_interrupted", ErrDeliveryInterrupted, fields)
		return ErrDeliveryInterrupted
	}

	if _, err := c.dispatcher.orders.Transition(context.WithoutCancel(ctx), order.ID, domain.StatusDelivered, c.name); err != nil {
		c.log.Error("delivery_status_failed", err, fields)
	} else {
		c.metrics.Delivered()
		c.log.Info("delivery_completed", fields)
	}

	c.box.Set(domain.WorkerReturning, task)
	if !staff.Hold(ctx, trip) {
		c.box.Set(domain.WorkerStopped, "")
		c.log.Warn("return_interrupted", ErrDeliveryInterrupted, fields)
		return ErrDeliveryInterrupted
	}
	c.box.Set(domain.WorkerWaiting, "")
	return nil
}

// travelTime is distance/speed time units.
func (c *Courier) travelTime(distance int) time.Duration {
	return time.Duration(float64(distance) / float64(c.cfg.Speed) * float64(c.cfg.TimeUnit))
}
