package business

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/courier"
	courierservice "sushi-system/internal/microservices/courier/service"
	"sushi-system/internal/microservices/kitchen"
	kitchenservice "sushi-system/internal/microservices/kitchen/service"
	"sushi-system/internal/microservices/order"
	orderservice "sushi-system/internal/microservices/order/service"
	"sushi-system/internal/microservices/staff"
)

const shutdownTimeout = 30 * time.Second

type Options struct {
	// SeedPath is applied only when the data directory has no stock snapshot.
	SeedPath  string
	Observers []orderservice.StatusObserver
}

// App is the running restaurant: stock, orders and the staff working them.
type App struct {
	cfg       *config.Config
	log       *logger.Logger
	registry  *prometheus.Registry
	catalog   *inventory.Catalog
	snapshots inventory.SnapshotRepositoryInterface
	orders    *orderservice.Service
	staff     *staff.Registry
}

func New(cfg *config.Config, log *logger.Logger, opts Options) (*App, error) {
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	m := metrics.NewEngine(reg)

	catalog := inventory.NewCatalog(
		inventory.NewIngredientLedger(log.Named("ingredients"), m),
		inventory.NewDishLedger(log.Named("dishes"), m),
	)
	snapshots := inventory.NewSnapshotRepository(store)
	if err := restoreStock(catalog, snapshots, opts.SeedPath, log); err != nil {
		return nil, err
	}

	orders := order.New(store, catalog.Dishes, cfg.Password, log, m, opts.Observers...)
	catalog.SetDishGuard(orders.OrderService.ReferencesDish)

	factories := map[domain.WorkerKind]staff.Factory{
		domain.WorkerPreparer: kitchen.NewFactory(catalog.Ingredients, catalog.Dishes, kitchenservice.Config{
			PrepMin:  cfg.Kitchen.PrepMin,
			PrepMax:  cfg.Kitchen.PrepMax,
			IdlePoll: cfg.Kitchen.IdlePoll,
		}, log.Named("kitchen"), m),
		domain.WorkerCourier: courier.NewFactory(catalog, orders.OrderService, courierservice.Config{
			Speed:    cfg.Couriers.Speed,
			TimeUnit: cfg.Couriers.TimeUnit,
			IdlePoll: cfg.Couriers.IdlePoll,
			Zones:    courierservice.Zones(cfg.DeliveryZones),
		}, log.Named("courier"), m),
	}

	return &App{
		cfg:       cfg,
		log:       log.Named("business"),
		registry:  reg,
		catalog:   catalog,
		snapshots: snapshots,
		orders:    orders,
		staff:     staff.NewRegistry(factories, log.Named("staff")),
	}, nil
}

func restoreStock(catalog *inventory.Catalog, snapshots inventory.SnapshotRepositoryInterface, seedPath string, log *logger.Logger) error {
	snap, err := snapshots.Load()
	switch {
	case err == nil:
		if seedPath != "" {
			log.Warn("seed_ignored", nil, map[string]any{"seed": seedPath, "reason": "stock snapshot exists"})
		}
		return catalog.Restore(snap)
	case !errors.Is(err, inventory.ErrNoSnapshot):
		return err
	case seedPath == "":
		return nil
	}
	seed, err := inventory.LoadSeed(seedPath)
	if err != nil {
		return err
	}
	if err := catalog.Apply(seed); err != nil {
		return fmt.Errorf("apply seed %s: %w", seedPath, err)
	}
	log.Info("stock_seeded", map[string]any{
		"seed":        seedPath,
		"suppliers":   len(seed.Suppliers),
		"ingredients": len(seed.Ingredients),
		"dishes":      len(seed.Dishes),
	})
	return nil
}

func (a *App) Catalog() *inventory.Catalog        { return a.catalog }
func (a *App) Orders() *orderservice.OrderService { return a.orders.OrderService }
func (a *App) Users() *orderservice.UserService   { return a.orders.UserService }
func (a *App) Staff() staff.RegistryInterface     { return a.staff }
func (a *App) Metrics() prometheus.Gatherer       { return a.registry }
func (a *App) Snapshot() inventory.Snapshot       { return a.catalog.Snapshot() }

// Run starts the configured staff, the order receiver and the snapshot
// saver, and blocks until ctx is cancelled. Shutdown stops every worker,
// settles what is left and writes a final snapshot.
func (a *App) Run(ctx context.Context) error {
	if err := a.orders.OrderService.Load(ctx); err != nil {
		return err
	}
	if err := a.hire(ctx); err != nil {
		a.shutdown(ctx)
		return err
	}
	a.log.Info("business_started", map[string]any{
		"data_dir":  a.cfg.DataDir,
		"preparers": a.cfg.Kitchen.Preparers,
		"couriers":  a.cfg.Couriers.Count,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.receiveLoop(gctx) })
	g.Go(func() error { return a.saveLoop(gctx) })
	err := g.Wait()

	a.shutdown(ctx)
	return err
}

func (a *App) hire(ctx context.Context) error {
	for i := 1; i <= a.cfg.Kitchen.Preparers; i++ {
		if _, err := a.staff.Start(ctx, domain.WorkerPreparer, staff.WorkerConfig{Name: fmt.Sprintf("preparer-%d", i)}); err != nil {
			return err
		}
	}
	for i := 1; i <= a.cfg.Couriers.Count; i++ {
		if _, err := a.staff.Start(ctx, domain.WorkerCourier, staff.WorkerConfig{Name: fmt.Sprintf("courier-%d", i)}); err != nil {
			return err
		}
	}
	return nil
}

// receiveLoop promotes every waiting order on each tick.
func (a *App) receiveLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Orders.PollInterval)
	defer ticker.Stop()
	for {
		a.drainSubmitted(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *App) drainSubmitted(ctx context.Context) {
	for ctx.Err() == nil {
		_, ok, err := a.orders.OrderService.ReceiveNext(ctx)
		if err != nil {
			a.log.Warn("order_receive_failed", err, nil)
			return
		}
		if !ok {
			return
		}
	}
}

func (a *App) saveLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Snapshots.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.save()
		}
	}
}

func (a *App) save() {
	if err := a.snapshots.Save(a.catalog.Snapshot()); err != nil {
		a.log.Warn("snapshot_save_failed", err, nil)
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
			a.log.Warn("metrics_write_failed", err, map[string]any{"path": path})
		}
	}
}

func (a *App) shutdown(ctx context.Context) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := a.staff.StopAll(sctx); err != nil {
		a.log.Error("staff_stop_timeout", err, nil)
	}
	a.catalog.Ingredients.PrepareForClose()
	a.catalog.Dishes.PrepareForClose()
	if err := a.orders.OrderService.CloseOut(sctx); err != nil {
		a.log.Warn("order_close_out_failed", err, nil)
	}
	a.save()
	a.log.Info("business_stopped", nil)
}
