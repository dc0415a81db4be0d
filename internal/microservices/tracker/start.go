package tracker

import (
	"context"
	"database/sql"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/microservices/tracker/repository"
	"sushi-system/internal/microservices/tracker/service"
)

// New prepares the audit log table and returns the observer that fills it.
func New(ctx context.Context, db *sql.DB, log *logger.Logger) (*service.TrackerService, error) {
	repo := repository.NewTrackerRepo(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order_status_log")
	}
	return service.NewTrackerService(repo, log.Named("tracker")), nil
}
