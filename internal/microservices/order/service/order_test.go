package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/common/logger"
	"sushi-system/internal/config"
	"sushi-system/internal/connections/filestore"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
	"sushi-system/internal/microservices/order/repository"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []domain.StatusEvent
	err    error
}

func (r *recordingObserver) OrderStatusChanged(_ context.Context, event domain.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingObserver) statuses() []domain.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OrderStatus, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.NewStatus)
	}
	return out
}

func testPassword() config.PasswordConfig {
	return config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
}

type fixture struct {
	store  *filestore.Store
	repo   *repository.Repository
	dishes *inventory.DishLedger
	obs    *recordingObserver
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	repo := repository.New(store)

	dishes := inventory.NewDishLedger(logger.Nop(), nil)
	require.NoError(t, dishes.Add(domain.Dish{Name: "Maki", Price: decimal.RequireFromString("4.50"), Recipe: map[string]int{"Rice": 1}}, 0))
	require.NoError(t, dishes.Add(domain.Dish{Name: "Nigiri", Price: decimal.RequireFromString("3.25"), Recipe: map[string]int{"Rice": 1}}, 2))

	obs := &recordingObserver{}
	svc := New(*repo, dishes, testPassword(), logger.Nop(), nil, obs)
	_, err = svc.UserService.Register(context.Background(), domain.RegisterUserRequest{
		Username: "alice", Password: "secret1", Postcode: "so17",
	})
	require.NoError(t, err)
	return &fixture{store: store, repo: repo, dishes: dishes, obs: obs, svc: svc}
}

func (f *fixture) submit(t *testing.T, items map[string]int) domain.Order {
	t.Helper()
	o, err := f.svc.OrderService.Submit(context.Background(), domain.PlaceOrderRequest{Username: "alice", Items: items})
	require.NoError(t, err)
	return o
}

func TestSubmitPricesAgainstMenu(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, map[string]int{"Maki": 2, "Nigiri": 1})

	assert.Equal(t, 1, o.ID)
	assert.Equal(t, domain.StatusSubmitted, o.Status)
	assert.Equal(t, "SO17", o.Postcode)
	assert.Equal(t, "12.25", o.Total.StringFixed(2))
	assert.Equal(t, []domain.OrderStatus{domain.StatusSubmitted}, f.obs.statuses())
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.PlaceOrderRequest
	}{
		{name: "no items", req: domain.PlaceOrderRequest{Username: "alice"}},
		{name: "zero quantity", req: domain.PlaceOrderRequest{Username: "alice", Items: map[string]int{"Maki": 0}}},
		{name: "username with path", req: domain.PlaceOrderRequest{Username: "../orders/order-1", Items: map[string]int{"Maki": 1}}},
		{name: "unknown user", req: domain.PlaceOrderRequest{Username: "bob", Items: map[string]int{"Maki": 1}}},
		{name: "unknown dish", req: domain.PlaceOrderRequest{Username: "alice", Items: map[string]int{"Udon": 1}}},
		{name: "wrong total", req: domain.PlaceOrderRequest{Username: "alice", Items: map[string]int{"Maki": 1}, Total: decimal.RequireFromString("4.00")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.OrderService.Submit(ctx, tt.req)
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation), "%v", err)
		})
	}

	all, err := f.repo.OrderRepo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitAcceptsMatchingTotal(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.OrderService.Submit(context.Background(), domain.PlaceOrderRequest{
		Username: "alice",
		Items:    map[string]int{"Maki": 1},
		Total:    decimal.RequireFromString("4.5"),
	})
	require.NoError(t, err)
}

func TestReceiveNextBooksOrderAndRaisesRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, map[string]int{"Maki": 3, "Nigiri": 1})

	got, ok, err := f.svc.OrderService.ReceiveNext(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.StatusReceived, got.Status)

	received := f.svc.OrderService.Received()
	require.Len(t, received, 1)
	assert.Equal(t, got.ID, received[0].ID)

	level, _ := f.dishes.RestockLevel("Maki")
	assert.Equal(t, 3, level)
	level, _ = f.dishes.RestockLevel("Nigiri")
	assert.Equal(t, 2, level, "restock level only ever rises")

	assert.True(t, f.svc.OrderService.ReferencesDish("Maki"))
	assert.Equal(t, []domain.OrderStatus{domain.StatusSubmitted, domain.StatusReceived}, f.obs.statuses())

	_, ok, err = f.svc.OrderService.ReceiveNext(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTerminalStatusesNeverChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.svc.OrderService

	delivered := f.submit(t, map[string]int{"Maki": 1})
	cancelled := f.submit(t, map[string]int{"Maki": 1})
	_, _, err := svc.ReceiveNext(ctx)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, delivered.ID, domain.StatusDelivering, "courier-1")
	require.NoError(t, err)
	_, err = svc.Transition(ctx, delivered.ID, domain.StatusDelivered, "courier-1")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID, "alice")
	require.NoError(t, err)

	for _, id := range []int{delivered.ID, cancelled.ID} {
		for _, to := range []domain.OrderStatus{
			domain.StatusSubmitted, domain.StatusReceived, domain.StatusDelivering,
			domain.StatusDelivered, domain.StatusCancelled,
		} {
			_, err := svc.Transition(ctx, id, to, "anyone")
			assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict), "order %d -> %s: %v", id, to, err)
		}
	}

	stored, err := f.repo.OrderRepo.Get(ctx, delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, stored.Status)
	stored, err = f.repo.OrderRepo.Get(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestTransitionRejectsSkippingStates(t *testing.T) {
	f := newFixture(t)
	o := f.submit(t, map[string]int{"Maki": 1})

	_, err := f.svc.OrderService.Transition(context.Background(), o.ID, domain.StatusDelivered, "courier-1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestObserverFailureKeepsTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.submit(t, map[string]int{"Maki": 1})
	f.obs.err = errors.New("broker down")

	got, err := f.svc.OrderService.Cancel(ctx, o.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)

	stored, err := f.repo.OrderRepo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, stored.Status)
}

func TestRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.svc.OrderService

	waiting := f.submit(t, map[string]int{"Maki": 1})
	out := f.submit(t, map[string]int{"Maki": 1})
	_, _, err := svc.ReceiveNext(ctx)
	require.NoError(t, err)
	_, _, err = svc.ReceiveNext(ctx)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, out.ID, domain.StatusDelivering, "courier-1")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, waiting.ID, "alice"))
	_, err = f.repo.OrderRepo.Get(ctx, waiting.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
	assert.Contains(t, f.obs.statuses(), domain.StatusCancelled)

	err = svc.Remove(ctx, out.ID, "alice")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	assert.Equal(t, waiting.ID, f.submit(t, map[string]int{"Maki": 1}).ID, "freed id is reused")
}

func TestConflictFromAnotherProcessRefreshesBook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.submit(t, map[string]int{"Maki": 1})
	_, _, err := f.svc.OrderService.ReceiveNext(ctx)
	require.NoError(t, err)

	other := New(*f.repo, f.dishes, testPassword(), logger.Nop(), nil)
	_, err = other.OrderService.Cancel(ctx, o.ID, "alice")
	require.NoError(t, err)

	_, err = f.svc.OrderService.Transition(ctx, o.ID, domain.StatusDelivering, "courier-1")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Empty(t, f.svc.OrderService.Received())
}

func TestLoadSettlesLeftoverDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.submit(t, map[string]int{"Maki": 1})
	_, err := f.repo.OrderRepo.UpdateStatus(ctx, o.ID, domain.StatusSubmitted, domain.StatusReceived)
	require.NoError(t, err)
	_, err = f.repo.OrderRepo.UpdateStatus(ctx, o.ID, domain.StatusReceived, domain.StatusDelivering)
	require.NoError(t, err)

	fresh := New(*f.repo, f.dishes, testPassword(), logger.Nop(), nil)
	require.NoError(t, fresh.OrderService.Load(ctx))

	views := fresh.OrderService.Orders()
	require.Len(t, views, 1)
	assert.Equal(t, domain.StatusDelivered, views[0].Status)
}

func TestHistoryListsOnlyTheUsersOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UserService.Register(ctx, domain.RegisterUserRequest{Username: "bob", Password: "secret2", Postcode: "SO14"})
	require.NoError(t, err)

	f.submit(t, map[string]int{"Maki": 1})
	_, err = f.svc.OrderService.Submit(ctx, domain.PlaceOrderRequest{Username: "bob", Items: map[string]int{"Nigiri": 2}})
	require.NoError(t, err)

	history, err := f.svc.OrderService.History(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "SO14", history[0].Postcode)
}
