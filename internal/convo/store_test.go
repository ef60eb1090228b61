package convo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	conv := &Conversation{ID: "c1", Stage: StageSlotSelection, Department: "Dermatology", Generation: 3}
	require.NoError(t, store.Save(ctx, conv))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StageSlotSelection, got.Stage)
	assert.Equal(t, 3, got.Generation)

	// Returned copy is detached from stored state.
	got.Department = "Cardiology"
	again, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Dermatology", again.Department)

	require.NoError(t, store.Delete(ctx, "c1"))
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryStoreTTLEviction(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	require.NoError(t, store.Save(ctx, &Conversation{ID: "c1"}))

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err := store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)

	store.evictExpired()
	store.mu.RLock()
	defer store.mu.RUnlock()
	assert.Empty(t, store.entries)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	conv := &Conversation{
		ID:         "c1",
		Stage:      StageConfirmation,
		Department: "Cardiology",
		PostalCode: "10001",
		Generation: 2,
	}
	require.NoError(t, store.Save(ctx, conv))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, StageConfirmation, got.Stage)
	assert.Equal(t, "10001", got.PostalCode)

	// TTL is set on the key.
	assert.Positive(t, mr.TTL("convo:c1"))

	// Expiry surfaces as not-found.
	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Conversation{ID: "c1"}))
	require.NoError(t, store.Delete(ctx, "c1"))
	_, err := store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}
