package cart

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quickdelivery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/quickdelivery-backend/pkg/errors"
	"github.com/angelmondragon/quickdelivery-backend/pkg/logger"
	"github.com/angelmondragon/quickdelivery-backend/pkg/redis/redistest"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cart-test", Output: io.Discard})
}

func newTestStore(t *testing.T) (*Store, *redistest.Store) {
	t.Helper()
	kv := redistest.New()
	repo, err := NewSessionRepository(kv, 24*time.Hour, testLogger())
	require.NoError(t, err)
	store, err := NewStore(repo)
	require.NoError(t, err)
	return store, kv
}

func TestStorePersistsAfterDispatch(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	_, err := store.Dispatch(ctx, "sess-1", AddItem{Item: tomatoes(2)})
	require.NoError(t, err)

	assert.True(t, kv.Has(kv.CartSessionKey("sess-1")))
	assert.Equal(t, 24*time.Hour, kv.TTL(kv.CartSessionKey("sess-1")))

	loaded, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, 2, loaded.Items[0].Quantity)
}

func TestStoreCorruptBlobYieldsEmptyState(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, kv.CartSessionKey("sess-1"), "{not json", 0))

	state, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, state.Items)
	assert.Empty(t, state.Orders)

	state, err = store.Dispatch(ctx, "sess-1", AddItem{Item: tomatoes(1)})
	require.NoError(t, err)
	assert.Len(t, state.Items, 1)
}

func TestStoreRedisFailureSurfacesDependencyError(t *testing.T) {
	store, kv := newTestStore(t)
	kv.FailGet = errors.New("connection refused")

	_, err := store.Load(context.Background(), "sess-1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestStoreRejectsBlankSession(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Dispatch(context.Background(), "  ", ClearCart{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStoreConcurrentDispatchLosesNothing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Dispatch(ctx, "sess-1", AddItem{Item: tomatoes(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.Equal(t, 25, state.Items[0].Quantity)
	assert.Empty(t, store.locks)
}

func TestStoreUpdatePlanErrorPersistsNothing(t *testing.T) {
	store, kv := newTestStore(t)
	ctx := context.Background()

	_, err := store.Update(ctx, "sess-1", func(State) ([]Intent, error) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "nope")
	})
	require.Error(t, err)
	assert.False(t, kv.Has(kv.CartSessionKey("sess-1")))
}

func TestStoresSharingRedisKeepEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	kv := redistest.New()
	newStore := func() *Store {
		repo, err := NewSessionRepository(kv, 24*time.Hour, testLogger())
		require.NoError(t, err)
		store, err := NewStore(repo)
		require.NoError(t, err)
		return store
	}
	api, worker := newStore(), newStore()

	_, err := api.Dispatch(ctx, "sess-1", PlaceOrder{Order: placedOrder("QD-1", testNow)})
	require.NoError(t, err)

	plans := 0
	state, err := api.Update(ctx, "sess-1", func(State) ([]Intent, error) {
		plans++
		if plans == 1 {
			_, err := worker.Dispatch(ctx, "sess-1", UpdateOrderStatus{
				OrderID: "QD-1",
				Status:  enums.OrderStatusPacked,
				At:      testNow.Add(5 * time.Minute),
			})
			require.NoError(t, err)
		}
		return []Intent{AddItem{Item: tomatoes(1)}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, plans)

	saved, err := worker.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Len(t, state.Items, 1)
	require.Len(t, saved.Items, 1)
	order, ok := saved.FindOrder("QD-1")
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusPacked, order.Status)
	require.Len(t, order.StatusHistory, 2)
	assert.Equal(t, enums.OrderStatusPacked, order.StatusHistory[1].Status)
}

func TestStoreGivesUpWhenAlwaysOutraced(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	other, _ := newTestStore(t)
	other.repo.(*redisSessionRepository).store = kv

	plans := 0
	_, err := store.Update(ctx, "sess-1", func(State) ([]Intent, error) {
		plans++
		_, err := other.Dispatch(ctx, "sess-1", AddItem{Item: tomatoes(1)})
		require.NoError(t, err)
		return []Intent{ClearCart{}}, nil
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, maxSaveAttempts, plans)

	state, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.Equal(t, maxSaveAttempts, state.Items[0].Quantity)
}
