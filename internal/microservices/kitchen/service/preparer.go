package service

import (
	"context"
	"math/rand/v2"
	"time"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/staff"
)

// ErrPreparationInterrupted is returned when a preparer is stopped while a
// portion is cooking. The portion's ingredients have been given back.
var ErrPreparationInterrupted = pkgerrors.New(pkgerrors.CodeWorkerCancelled, "preparation interrupted")

type Config struct {
	PrepMin  time.Duration
	PrepMax  time.Duration
	IdlePoll time.Duration
}

// Preparer turns ingredient stock into dish stock, one portion at a time.
type Preparer struct {
	name     string
	reserver ReserverInterface
	dishes   *inventory.DishLedger
	cfg      Config
	box      *staff.StatusBox
	log      *logger.Logger
	metrics  *metrics.Engine
}

func NewPreparer(name string, reserver ReserverInterface, dishes *inventory.DishLedger, cfg Config, log *logger.Logger, m *metrics.Engine) *Preparer {
	if cfg.PrepMax < cfg.PrepMin {
		cfg.PrepMax = cfg.PrepMin
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = time.Second
	}
	return &Preparer{
		name:     name,
		reserver: reserver,
		dishes:   dishes,
		cfg:      cfg,
		box:      staff.NewStatusBox(),
		log:      log.With(map[string]any{"worker": name, "kind": string(domain.WorkerPreparer)}),
		metrics:  m,
	}
}

func (p *Preparer) Status() (domain.WorkerStatus, string) { return p.box.Get() }

func (p *Preparer) Run(ctx context.Context) error {
	p.box.Set(domain.WorkerWaiting, "")
	for {
		if ctx.Err() != nil {
			p.box.Set(domain.WorkerStopped, "")
			return nil
		}
		res, ok := p.reserveNext()
		if !ok {
			if !staff.Hold(ctx, p.cfg.IdlePoll) {
				p.box.Set(domain.WorkerStopped, "")
				return nil
			}
			continue
		}
		if err := p.prepare(ctx, res); err != nil {
			return err
		}
	}
}

// reserveNext walks every dish with an open deficit so one dish that lacks
// ingredients does not block the others.
func (p *Preparer) reserveNext() (Reservation, bool) {
	for _, dish := range p.dishes.Deficits() {
		if res, ok := p.reserver.Reserve(dish); ok {
			p.metrics.Reservation(string(domain.WorkerPreparer), true)
			return res, true
		}
		p.metrics.Reservation(string(domain.WorkerPreparer), false)
	}
	return Reservation{}, false
}

func (p *Preparer) prepare(ctx context.Context, res Reservation) error {
	d := p.prepDuration()
	p.box.Set(domain.WorkerPreparing, res.Dish)
	p.log.Debug("preparation_started", map[string]any{"dish": res.Dish, "duration": d.String()})

	if !staff.Hold(ctx, d) {
		p.reserver.Release(res)
		p.box.Set(domain.WorkerStopped, "")
		p.log.Warn("preparation_interrupted", ErrPreparationInterrupted, map[string]any{"dish": res.Dish})
		return ErrPreparationInterrupted
	}

	p.dishes.CompletePreparation(res.Dish)
	p.metrics.Prepared()
	p.box.Set(domain.WorkerWaiting, "")
	p.log.Info("preparation_completed", map[string]any{"dish": res.Dish})
	return nil
}

func (p *Preparer) prepDuration() time.Duration {
	spread := p.cfg.PrepMax - p.cfg.PrepMin
	if spread <= 0 {
		return p.cfg.PrepMin
	}
	return p.cfg.PrepMin + rand.N(spread+1)
}
