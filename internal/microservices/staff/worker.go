package staff

import (
	"context"
	"sync"
	"time"

	"sushi-system/internal/domain"
)

// Worker is a preparer or courier loop. Run blocks until ctx is cancelled or
// the worker fails, and may be called again after it returns.
type Worker interface {
	Run(ctx context.Context) error
	Status() (domain.WorkerStatus, string)
}

// StatusBox is the observable state of one worker: what it is doing and on
// which dish, ingredient or order.
type StatusBox struct {
	mu     sync.Mutex
	status domain.WorkerStatus
	task   string
}

func NewStatusBox() *StatusBox {
	return &StatusBox{status: domain.WorkerWaiting}
}

func (b *StatusBox) Set(status domain.WorkerStatus, task string) {
	b.mu.Lock()
	b.status, b.task = status, task
	b.mu.Unlock()
}

func (b *StatusBox) Get() (domain.WorkerStatus, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status, b.task
}

// Hold sleeps for d unless ctx is cancelled first. It reports whether the
// full duration elapsed.
func Hold(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
