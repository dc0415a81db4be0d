// Package staff starts, stops and lists the preparers and couriers of a
// running business.
package staff

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/domain"
)

type Handle string

// WorkerConfig is what a caller supplies when hiring a worker. Zero values
// fall back to the business defaults for that kind.
type WorkerConfig struct {
	Name     string
	PrepMin  time.Duration
	PrepMax  time.Duration
	Speed    int
	TimeUnit time.Duration
	IdlePoll time.Duration
}

// Factory builds a worker of one kind.
type Factory func(name string, cfg WorkerConfig) (Worker, error)

type WorkerInfo struct {
	Handle    Handle              `json:"handle"`
	Kind      domain.WorkerKind   `json:"kind"`
	Name      string              `json:"name"`
	Status    domain.WorkerStatus `json:"status"`
	Task      string              `json:"task,omitempty"`
	Running   bool                `json:"running"`
	StartedAt time.Time           `json:"started_at"`
	LastError string              `json:"last_error,omitempty"`
}

type RegistryInterface interface {
	Start(ctx context.Context, kind domain.WorkerKind, cfg WorkerConfig) (Handle, error)
	Stop(h Handle) error
	Resume(h Handle) error
	Remove(ctx context.Context, h Handle) error
	List() []WorkerInfo
	StopAll(ctx context.Context) error
}

type slot struct {
	info   WorkerInfo
	worker Worker
	base   context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Registry struct {
	factories map[domain.WorkerKind]Factory
	log       *logger.Logger

	mu      sync.Mutex
	workers map[Handle]*slot
}

func NewRegistry(factories map[domain.WorkerKind]Factory, log *logger.Logger) *Registry {
	return &Registry{
		factories: factories,
		log:       log,
		workers:   make(map[Handle]*slot),
	}
}

// Start builds a worker and runs it on its own goroutine until Stop, Remove
// or cancellation of ctx.
func (r *Registry) Start(ctx context.Context, kind domain.WorkerKind, cfg WorkerConfig) (Handle, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown worker kind %q", kind)
	}
	h := Handle(uuid.NewString())
	if cfg.Name == "" {
		cfg.Name = string(kind) + "-" + string(h)[:8]
	}
	w, err := factory(cfg.Name, cfg)
	if err != nil {
		return "", err
	}
	s := &slot{
		info:   WorkerInfo{Handle: h, Kind: kind, Name: cfg.Name},
		worker: w,
		base:   ctx,
	}
	r.mu.Lock()
	r.workers[h] = s
	r.launchLocked(s)
	r.mu.Unlock()
	return h, nil
}

func (r *Registry) launchLocked(s *slot) {
	ctx, cancel := context.WithCancel(s.base)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.info.Running = true
	s.info.StartedAt = time.Now()
	s.info.LastError = ""

	fields := map[string]any{"worker": s.info.Name, "kind": string(s.info.Kind), "handle": string(s.info.Handle)}
	r.log.Info("worker_started", fields)
	go func() {
		defer close(done)
		defer cancel()
		err := s.worker.Run(ctx)

		r.mu.Lock()
		s.info.Running = false
		if err != nil {
			s.info.LastError = err.Error()
		}
		r.mu.Unlock()

		switch {
		case err == nil:
			r.log.Info("worker_stopped", fields)
		case pkgerrors.HasCode(err, pkgerrors.CodeWorkerCancelled):
			r.log.Warn("worker_interrupted", err, fields)
		default:
			r.log.Error("worker_failed", err, fields)
		}
	}()
}

// Stop asks the worker to finish. It returns without waiting.
func (r *Registry) Stop(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.workers[h]
	if !ok {
		return notFound(h)
	}
	s.cancel()
	return nil
}

// Resume restarts a stopped worker with its original configuration.
func (r *Registry) Resume(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.workers[h]
	if !ok {
		return notFound(h)
	}
	if s.info.Running {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "worker %s is still running", s.info.Name)
	}
	if s.base.Err() != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, s.base.Err(), "business is shutting down")
	}
	r.launchLocked(s)
	return nil
}

// Remove stops the worker, waits for it to release what it holds and forgets it.
func (r *Registry) Remove(ctx context.Context, h Handle) error {
	r.mu.Lock()
	s, ok := r.workers[h]
	if !ok {
		r.mu.Unlock()
		return notFound(h)
	}
	s.cancel()
	done, name, kind := s.done, s.info.Name, s.info.Kind
	r.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	delete(r.workers, h)
	r.mu.Unlock()
	r.log.Info("worker_removed", map[string]any{"worker": name, "kind": string(kind)})
	return nil
}

// List reports every worker, sorted by start time.
func (r *Registry) List() []WorkerInfo {
	r.mu.Lock()
	slots := make([]*slot, 0, len(r.workers))
	infos := make([]WorkerInfo, 0, len(r.workers))
	for _, s := range r.workers {
		slots = append(slots, s)
		infos = append(infos, s.info)
	}
	r.mu.Unlock()

	for i, s := range slots {
		infos[i].Status, infos[i].Task = s.worker.Status()
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].StartedAt.Equal(infos[j].StartedAt) {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// StopAll cancels every worker and waits for all of them to return.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	dones := make([]chan struct{}, 0, len(r.workers))
	for _, s := range r.workers {
		s.cancel()
		dones = append(dones, s.done)
	}
	r.mu.Unlock()
	for _, done := range dones {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func notFound(h Handle) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "worker %s not found", h)
}
