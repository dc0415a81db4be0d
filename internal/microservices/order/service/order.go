package service

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/common/metrics"
	"sushi-system/internal/common/validation"
	"sushi-system/internal/domain"
	"sushi-system/internal/microservices/order/repository"
)

// StatusObserver is told about every persisted transition. A failing
// observer is logged; the transition stands.
type StatusObserver interface {
	OrderStatusChanged(ctx context.Context, event domain.StatusEvent) error
}

// Menu prices orders and takes restock hints from them.
type Menu interface {
	Price(dish string) (decimal.Decimal, bool)
	RaiseRestockLevel(dish string, level int) bool
}

type OrderServiceInterface interface {
	Submit(ctx context.Context, req domain.PlaceOrderRequest) (domain.Order, error)
	ReceiveNext(ctx context.Context) (domain.Order, bool, error)
	Transition(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, error)
	Apply(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, domain.StatusEvent, error)
	Announce(ctx context.Context, event domain.StatusEvent)
	Cancel(ctx context.Context, id int, changedBy string) (domain.Order, error)
	Remove(ctx context.Context, id int, changedBy string) error
	History(ctx context.Context, username string) ([]domain.Order, error)
	Orders() []domain.OrderView
	Received() []domain.Order
	ReferencesDish(dish string) bool
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	CloseOut(ctx context.Context) error
}

type OrderService struct {
	orders    repository.OrderRepositoryInterface
	users     repository.UserRepositoryInterface
	menu      Menu
	book      *OrderBook
	observers []StatusObserver
	log       *logger.Logger
	metrics   *metrics.Engine
	now       func() time.Time

	mu sync.Mutex // serialises transitions made by this process
}

func NewOrderService(repo repository.Repository, menu Menu, log *logger.Logger, m *metrics.Engine, observers ...StatusObserver) *OrderService {
	return &OrderService{
		orders:    repo.OrderRepo,
		users:     repo.UserRepo,
		menu:      menu,
		book:      NewOrderBook(),
		observers: observers,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit prices the request against the menu and stores it as SUBMITTED.
// A client total that disagrees with the menu price is rejected.
func (s *OrderService) Submit(ctx context.Context, req domain.PlaceOrderRequest) (domain.Order, error) {
	if err := validation.Struct(req); err != nil {
		return domain.Order{}, err
	}
	user, err := s.users.Get(ctx, req.Username)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return domain.Order{}, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown user %q", req.Username)
		}
		return domain.Order{}, err
	}
	total, err := s.price(req.Items)
	if err != nil {
		return domain.Order{}, err
	}
	if !req.Total.IsZero() && !req.Total.Equal(total) {
		return domain.Order{}, pkgerrors.Newf(pkgerrors.CodeValidation, "total %s does not match menu price %s", req.Total, total).
			WithDetails(map[string]string{"total": total.StringFixed(2)})
	}

	now := s.now().UTC()
	order, err := s.orders.Create(ctx, domain.Order{
		Status:    domain.StatusSubmitted,
		Username:  user.Username,
		Postcode:  user.Postcode,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     maps.Clone(req.Items),
		Total:     total,
	})
	if err != nil {
		s.log.Error("order_submit_failed", err, map[string]any{"username": req.Username})
		return domain.Order{}, err
	}
	s.log.Info("order_submitted", map[string]any{
		"order_id": order.ID,
		"username": order.Username,
		"total":    order.Total.StringFixed(2),
	})
	s.metrics.Transition(string(domain.StatusSubmitted))
	s.notify(ctx, domain.StatusEvent{
		OrderID:   order.ID,
		Username:  order.Username,
		NewStatus: domain.StatusSubmitted,
		ChangedBy: order.Username,
		Timestamp: now,
	})
	return order, nil
}

func (s *OrderService) price(items map[string]int) (decimal.Decimal, error) {
	total := decimal.Zero
	unknown := map[string]string{}
	for dish, qty := range items {
		p, ok := s.menu.Price(dish)
		if !ok {
			unknown["items["+dish+"]"] = "is not on the menu"
			continue
		}
		total = total.Add(p.Mul(decimal.NewFromInt(int64(qty))))
	}
	if len(unknown) > 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "order names dishes that are not on the menu").WithDetails(unknown)
	}
	return total, nil
}

// ReceiveNext promotes the oldest SUBMITTED order, adds it to the book and
// raises dish restock levels to at least the ordered quantities.
func (s *OrderService) ReceiveNext(ctx context.Context) (domain.Order, bool, error) {
	s.mu.Lock()
	order, ok, err := s.orders.ReceiveNext(ctx)
	if err != nil || !ok {
		s.mu.Unlock()
		return domain.Order{}, false, err
	}
	s.book.Put(order)
	s.mu.Unlock()

	for dish, qty := range order.Items {
		if s.menu.RaiseRestockLevel(dish, qty) {
			s.log.Debug("restock_level_raised", map[string]any{"dish": dish, "level": qty, "order_id": order.ID})
		}
	}
	s.log.Info("order_received", map[string]any{"order_id": order.ID, "username": order.Username})
	s.metrics.Transition(string(domain.StatusReceived))
	s.notify(ctx, domain.StatusEvent{
		OrderID:   order.ID,
		Username:  order.Username,
		OldStatus: domain.StatusSubmitted,
		NewStatus: domain.StatusReceived,
		ChangedBy: "receiver",
		Timestamp: order.UpdatedAt,
	})
	return order, true, nil
}

// Transition persists id -> to and only then updates the book and tells
// observers. Leaving DELIVERED or CANCELLED is always a STATE_CONFLICT.
func (s *OrderService) Transition(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, error) {
	updated, event, err := s.Apply(ctx, id, to, changedBy)
	if err != nil {
		return domain.Order{}, err
	}
	s.notify(ctx, event)
	return updated, nil
}

// Apply is Transition without the observers. Callers that hold their own
// locks pass the returned event to Announce once they have let go.
func (s *OrderService) Apply(ctx context.Context, id int, to domain.OrderStatus, changedBy string) (domain.Order, domain.StatusEvent, error) {
	s.mu.Lock()
	updated, from, err := s.transitionLocked(ctx, id, to)
	s.mu.Unlock()
	if err != nil {
		return domain.Order{}, domain.StatusEvent{}, err
	}

	s.log.Info("order_status_changed", map[string]any{
		"order_id":   id,
		"old_status": from,
		"new_status": to,
		"changed_by": changedBy,
	})
	s.metrics.Transition(string(to))
	return updated, domain.StatusEvent{
		OrderID:   id,
		Username:  updated.Username,
		OldStatus: from,
		NewStatus: to,
		ChangedBy: changedBy,
		Timestamp: updated.UpdatedAt,
	}, nil
}

func (s *OrderService) Announce(ctx context.Context, event domain.StatusEvent) { s.notify(ctx, event) }

func (s *OrderService) transitionLocked(ctx context.Context, id int, to domain.OrderStatus) (domain.Order, domain.OrderStatus, error) {
	current, err := s.current(ctx, id)
	if err != nil {
		return domain.Order{}, "", err
	}
	if current.Status.IsTerminal() {
		return domain.Order{}, "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %d is already %s", id, current.Status)
	}
	if !current.Status.CanTransition(to) {
		return domain.Order{}, "", pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %d cannot go from %s to %s", id, current.Status, to)
	}
	updated, err := s.orders.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) && updated.ID != 0 {
			// someone else moved it on disk; take their version
			s.book.Put(updated)
		}
		return domain.Order{}, "", err
	}
	s.book.Put(updated)
	return updated, current.Status, nil
}

func (s *OrderService) current(ctx context.Context, id int) (domain.Order, error) {
	if o, ok := s.book.Get(id); ok {
		return o, nil
	}
	return s.orders.Get(ctx, id)
}

func (s *OrderService) Cancel(ctx context.Context, id int, changedBy string) (domain.Order, error) {
	return s.Transition(ctx, id, domain.StatusCancelled, changedBy)
}

// Remove deletes an order record. Orders not yet out for delivery are
// cancelled first; an order in a courier's hands cannot be removed.
func (s *OrderService) Remove(ctx context.Context, id int, changedBy string) error {
	current, err := s.current(ctx, id)
	if err != nil {
		return err
	}
	switch current.Status {
	case domain.StatusSubmitted, domain.StatusReceived:
		if _, err := s.Cancel(ctx, id, changedBy); err != nil {
			return err
		}
	case domain.StatusDelivering:
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order %d is out for delivery", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.book.Delete(id)
	s.log.Info("order_removed", map[string]any{"order_id": id, "changed_by": changedBy})
	return nil
}

func (s *OrderService) History(ctx context.Context, username string) ([]domain.Order, error) {
	return s.orders.ListByUser(ctx, username)
}

func (s *OrderService) Orders() []domain.OrderView {
	all := s.book.All()
	views := make([]domain.OrderView, 0, len(all))
	for _, o := range all {
		views = append(views, domain.OrderView{
			ID:       o.ID,
			Username: o.Username,
			Status:   o.Status,
			Items:    o.Items,
			Total:    o.Total,
		})
	}
	return views
}

func (s *OrderService) Received() []domain.Order { return s.book.Received() }

func (s *OrderService) ReferencesDish(dish string) bool { return s.book.ReferencesDish(dish) }

// Load fills the book from disk. Orders left DELIVERING by a previous run
// are marked DELIVERED.
func (s *OrderService) Load(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	return s.settleDelivering(ctx, "startup")
}

func (s *OrderService) Refresh(ctx context.Context) error {
	all, err := s.orders.List(ctx)
	if err != nil {
		return err
	}
	s.book.Replace(all)
	s.log.Debug("order_book_refreshed", map[string]any{"orders": len(all)})
	return nil
}

// CloseOut settles orders still DELIVERING when the business shuts down.
func (s *OrderService) CloseOut(ctx context.Context) error {
	return s.settleDelivering(ctx, "close-out")
}

func (s *OrderService) settleDelivering(ctx context.Context, changedBy string) error {
	var firstErr error
	for _, o := range s.book.WithStatus(domain.StatusDelivering) {
		if _, err := s.Transition(ctx, o.ID, domain.StatusDelivered, changedBy); err != nil {
			s.log.Warn("order_settle_failed", err, map[string]any{"order_id": o.ID})
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *OrderService) notify(ctx context.Context, event domain.StatusEvent) {
	for _, obs := range s.observers {
		if err := obs.OrderStatusChanged(ctx, event); err != nil {
			s.log.Warn("status_observer_failed", err, map[string]any{
				"order_id":   event.OrderID,
				"new_status": event.NewStatus,
			})
		}
	}
}
