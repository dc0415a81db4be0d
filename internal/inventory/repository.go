package inventory

import (
	"errors"

	"go.uber.org/multierr"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/connections/filestore"
)

const (
	suppliersFile   = "stock/suppliers.json"
	ingredientsFile = "stock/ingredients.json"
	dishesFile      = "stock/dishes.json"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("inventory: no snapshot saved")

type SnapshotRepositoryInterface interface {
	Save(snap Snapshot) error
	Load() (Snapshot, error)
}

// SnapshotRepository writes each part of the catalog as one whole document.
type SnapshotRepository struct {
	store *filestore.Store
}

func NewSnapshotRepository(store *filestore.Store) SnapshotRepositoryInterface {
	return &SnapshotRepository{store: store}
}

// Save attempts all three files even if one fails, and reports every failure.
func (r *SnapshotRepository) Save(snap Snapshot) error {
	var err error
	multierr.AppendInto(&err, r.store.WriteJSON(suppliersFile, nonNil(snap.Suppliers)))
	multierr.AppendInto(&err, r.store.WriteJSON(ingredientsFile, nonNil(snap.Ingredients)))
	multierr.AppendInto(&err, r.store.WriteJSON(dishesFile, nonNil(snap.Dishes)))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "save stock snapshot")
	}
	return nil
}

func (r *SnapshotRepository) Load() (Snapshot, error) {
	var (
		snap  Snapshot
		found int
		err   error
	)
	read := func(rel string, v any) {
		switch e := r.store.ReadJSON(rel, v); {
		case e == nil:
			found++
		case errors.Is(e, filestore.ErrNotFound):
		default:
			multierr.AppendInto(&err, e)
		}
	}
	read(suppliersFile, &snap.Suppliers)
	read(ingredientsFile, &snap.Ingredients)
	read(dishesFile, &snap.Dishes)
	if err != nil {
		return Snapshot{}, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load stock snapshot")
	}
	if found == 0 {
		return Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
