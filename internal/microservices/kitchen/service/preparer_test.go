package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "sushi-system/internal/common/errors"
	"sushi-system/internal/domain"
	"sushi-system/internal/inventory"
)

// makiKitchen stocks Rice=5 and tracks Maki with stock 0 and the given
// restock level; one Maki needs 3 Rice.
func makiKitchen(t *testing.T, makiRestock int) (*inventory.IngredientLedger, *inventory.DishLedger) {
	t.Helper()
	ingredients := inventory.NewIngredientLedger(nil, nil)
	dishes := inventory.NewDishLedger(nil, nil)
	require.NoError(t, ingredients.Add(domain.Ingredient{Name: "Rice", Unit: "kg", Supplier: "Farm"}, 0))
	require.NoError(t, ingredients.Increase("Rice", 5))
	require.NoError(t, dishes.Add(domain.Dish{Name: "Maki", Price: decimal.NewFromInt(4), Recipe: map[string]int{"Rice": 3}}, makiRestock))
	return ingredients, dishes
}

func stockOf(t *testing.T, l interface{ Stock(string) (int, bool) }, key string) int {
	t.Helper()
	n, ok := l.Stock(key)
	require.True(t, ok)
	return n
}

func TestMakiRiceScenario(t *testing.T) {
	ingredients, dishes := makiKitchen(t, 2)
	r := NewReserver(ingredients, dishes)

	res, ok := r.Reserve("Maki")
	require.True(t, ok)
	assert.Equal(t, 2, stockOf(t, ingredients, "Rice"))
	assert.Equal(t, 1, dishes.InPreparation("Maki"))

	require.True(t, dishes.CompletePreparation(res.Dish))
	assert.Equal(t, 1, stockOf(t, dishes, "Maki"))
	assert.Zero(t, dishes.InPreparation("Maki"))

	_, ok = r.Reserve("Maki")
	assert.False(t, ok, "2 Rice cannot cover a 3 Rice recipe")
}

func TestConcurrentReserveSingleDeficit(t *testing.T) {
	ingredients, dishes := makiKitchen(t, 1)
	require.NoError(t, ingredients.Increase("Rice", 100))
	r := NewReserver(ingredients, dishes)

	const preparers = 32
	var (
		wins  atomic.Int32
		start = make(chan struct{})
		wg    sync.WaitGroup
	)
	for i := 0; i < preparers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := r.Reserve("Maki"); ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 1, dishes.InPreparation("Maki"))
	assert.Equal(t, 102, stockOf(t, ingredients, "Rice"))
}

func TestConcurrentPreparersFillDeficitOnce(t *testing.T) {
	ingredients, dishes := makiKitchen(t, 1)
	require.NoError(t, ingredients.Increase("Rice", 100))
	r := NewReserver(ingredients, dishes)
	cfg := Config{PrepMin: 20 * time.Millisecond, PrepMax: 20 * time.Millisecond, IdlePoll: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		p := NewPreparer("p", r, dishes, cfg, nil, nil)
		wg.Add(1)
		go func() { defer wg.Done(); _ = p.Run(ctx) }()
	}

	require.Eventually(t, func() bool { n, _ := dishes.Stock("Maki"); return n == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.Equal(t, 1, stockOf(t, dishes, "Maki"))
	assert.Zero(t, dishes.InPreparation("Maki"))
	assert.Equal(t, 102, stockOf(t, ingredients, "Rice"))
}

func TestPreparerCompletesThenIdles(t *testing.T) {
	ingredients, dishes := makiKitchen(t, 2)
	p := NewPreparer("sam", NewReserver(ingredients, dishes), dishes,
		Config{PrepMin: 5 * time.Millisecond, PrepMax: 10 * time.Millisecond, IdlePoll: 2 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { n, _ := dishes.Stock("Maki"); return n == 1 }, time.Second, 2*time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	status, _ := p.Status()
	assert.Equal(t, domain.WorkerStopped, status)
	assert.Equal(t, 2, stockOf(t, ingredients, "Rice"))
	assert.Zero(t, dishes.InPreparation("Maki"))
}

func TestPreparerStoppedMidPreparationCompensates(t *testing.T) {
	ingredients, dishes := makiKitchen(t, 2)
	p := NewPreparer("sam", NewReserver(ingredients, dishes), dishes,
		Config{PrepMin: time.Hour, PrepMax: time.Hour}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool {
		status, task := p.Status()
		return status == domain.WorkerPreparing && task == "Maki"
	}, time.Second, 2*time.Millisecond)
	assert.Equal(t, 2, stockOf(t, ingredients, "Rice"))

	cancel()
	err := <-errCh
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPreparationInterrupted))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeWorkerCancelled))

	status, _ := p.Status()
	assert.Equal(t, domain.WorkerStopped, status)
	assert.Equal(t, 5, stockOf(t, ingredients, "Rice"))
	assert.Zero(t, dishes.InPreparation("Maki"))
	assert.Zero(t, stockOf(t, dishes, "Maki"))
}

func TestPrepDurationWithinRange(t *testing.T) {
	p := NewPreparer("sam", nil, nil, Config{PrepMin: 20 * time.Second, PrepMax: 60 * time.Second}, nil, nil)
	for i := 0; i < 100; i++ {
		d := p.prepDuration()
		assert.GreaterOrEqual(t, d, 20*time.Second)
		assert.LessOrEqual(t, d, 60*time.Second)
	}
}
