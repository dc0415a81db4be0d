package service

import (
	"context"
	"time"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/tracker/models"
	"sushi-system/internal/microservices/tracker/repository"
)

const (
	defaultTimelineLimit = 50
	writeTimeout         = 3 * time.Second
)

type TrackerServiceInterface interface {
	OrderStatusChanged(ctx context.Context, ev domain.StatusEvent) error
	GetOrderTimeline(ctx context.Context, orderID int, since time.Time, limit, offset int) ([]models.StatusChange, error)
}

// TrackerService writes every order transition to the audit log.
type TrackerService struct {
	repo repository.TrackerRepoInterface
	log  *logger.Logger
}

func NewTrackerService(repo repository.TrackerRepoInterface, log *logger.Logger) *TrackerService {
	return &TrackerService{repo: repo, log: log}
}

func (s *TrackerService) OrderStatusChanged(ctx context.Context, ev domain.StatusEvent) error {
	if ev.OrderID < 1 || !ev.NewStatus.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "malformed status event for order %d", ev.OrderID)
	}
	change := models.FromEvent(ev)
	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}

	// the audit row outlives a cancelled caller, but not a stuck database
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := s.repo.AppendChange(wctx, change); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status change")
	}
	s.log.Debug("status_change_recorded", map[string]any{"order_id": ev.OrderID, "new_status": ev.NewStatus})
	return nil
}

func (s *TrackerService) GetOrderTimeline(ctx context.Context, orderID int, since time.Time, limit, offset int) ([]models.StatusChange, error) {
	if limit <= 0 {
		limit = defaultTimelineLimit
	}
	if offset < 0 {
		offset = 0
	}
	out, err := s.repo.GetOrderTimeline(ctx, orderID, since, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read order timeline")
	}
	return out, nil
}
