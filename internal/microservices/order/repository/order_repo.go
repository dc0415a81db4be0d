package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
)

const ordersDir = "orders"

type OrderRepositoryInterface interface {
	// Create stores order under the smallest free id and returns it with the id set.
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, id int) (domain.Order, error)
	// UpdateStatus moves the stored order from -> to. It fails with
	// STATE_CONFLICT when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) (domain.Order, error)
	// ReceiveNext promotes the lowest-id SUBMITTED order to RECEIVED.
	ReceiveNext(ctx context.Context) (domain.Order, bool, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]domain.Order, error)
	ListByUser(ctx context.Context, username string) ([]domain.Order, error)
}

// OrderRepository keeps one JSON file per order, orders/order-<id>.json.
// Ids are claimed with an exclusive create, so concurrent submitters in
// different processes never share one.
type OrderRepository struct {
	store *filestore.Store
	now   func() time.Time

	mu sync.Mutex // read-modify-write of existing records
}

func NewOrderRepository(store *filestore.Store) OrderRepositoryInterface {
	return &OrderRepository{store: store, now: time.Now}
}

func orderPath(id int) string { return fmt.Sprintf("%s/order-%d.json", ordersDir, id) }

func parseOrderFile(name string) (int, bool) {
	raw, ok := strings.CutPrefix(name, "order-")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(strings.TrimSuffix(raw, ".json"))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func (r *OrderRepository) ids() ([]int, error) {
	names, err := r.store.List(ordersDir)
	if err != nil {
		return nil, persistence(err, "list orders")
	}
	ids := make([]int, 0, len(names))
	for _, name := range names {
		if id, ok := parseOrderFile(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	ids, err := r.ids()
	if err != nil {
		return domain.Order{}, err
	}
	used := make(map[int]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}
	for id := 1; ; id++ {
		if err := ctx.Err(); err != nil {
			return domain.Order{}, err
		}
		if used[id] {
			continue
		}
		order.ID = id
		err := r.store.CreateJSON(orderPath(id), order)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, filestore.ErrExists) {
			return domain.Order{}, persistence(err, "create order")
		}
	}
}

func (r *OrderRepository) Get(_ context.Context, id int) (domain.Order, error) {
	var order domain.Order
	if err := r.store.ReadJSON(orderPath(id), &order); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return domain.Order{}, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %d not found", id)
		}
		return domain.Order{}, persistence(err, "read order")
	}
	return order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int, from, to domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, err := r.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != from {
		return order, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %d is %s, not %s", id, order.Status, from)
	}
	order.Status = to
	order.UpdatedAt = r.now().UTC()
	if err := r.store.WriteJSON(orderPath(id), order); err != nil {
		return domain.Order{}, persistence(err, "write order")
	}
	return order, nil
}

func (r *OrderRepository) ReceiveNext(ctx context.Context) (domain.Order, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.ids()
	if err != nil {
		return domain.Order{}, false, err
	}
	for _, id := range ids {
		order, err := r.Get(ctx, id)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			return domain.Order{}, false, err
		}
		if order.Status != domain.StatusSubmitted {
			continue
		}
		order.Status = domain.StatusReceived
		order.UpdatedAt = r.now().UTC()
		if err := r.store.WriteJSON(orderPath(id), order); err != nil {
			return domain.Order{}, false, persistence(err, "write order")
		}
		return order, true, nil
	}
	return domain.Order{}, false, nil
}

func (r *OrderRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.Remove(orderPath(id)); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %d not found", id)
		}
		return persistence(err, "delete order")
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.filter(ctx, func(domain.Order) bool { return true })
}

func (r *OrderRepository) ListByUser(ctx context.Context, username string) ([]domain.Order, error) {
	return r.filter(ctx, func(o domain.Order) bool { return o.Username == username })
}

func (r *OrderRepository) filter(ctx context.Context, keep func(domain.Order) bool) ([]domain.Order, error) {
	ids, err := r.ids()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		order, err := r.Get(ctx, id)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		if keep(order) {
			out = append(out, order)
		}
	}
	return out, nil
}

func persistence(err error, action string) error {
	return pkgerrors.Wrap(pkgerrors.CodePersistence, err, action)
}
