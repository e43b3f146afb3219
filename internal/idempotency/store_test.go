package idempotency

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/trading-backoffice/internal/repository/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreReserveFinalizeLookup(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, memstore.New().Idempotency(), time.Hour)
	key := ScopedKey("user-1", "abc")

	_, err := store.Lookup(ctx, key, "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := store.Reserve(ctx, key, "h1", "POST", "/v1/transactions/request")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, key, "h1", "POST", "/v1/transactions/request")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Lookup(ctx, key, "h1")
	assert.ErrorIs(t, err, ErrInProgress)

	rec, err := store.Finalize(ctx, key, "h1", 201, []byte(`{"ok":true}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, 201, rec.Status)

	rec, err = store.Lookup(ctx, key, "h1")
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, rec.Source)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Body))

	_, err = store.Lookup(ctx, key, "h2")
	assert.ErrorIs(t, err, ErrHashMismatch)
}

func TestWaitForCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, memstore.New().Idempotency(), time.Hour)
	ok, err := store.Reserve(ctx, "k", "h", "POST", "/x")
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(80 * time.Millisecond)
		_, _ = store.Finalize(context.Background(), "k", "h", 200, []byte("done"), "text/plain")
	}()

	rec, err := store.WaitForCompletion(ctx, "k", "h")
	require.NoError(t, err)
	assert.Equal(t, "done", string(rec.Body))

	waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
	defer cancel()
	_, err = store.Reserve(ctx, "stuck", "h", "POST", "/x")
	require.NoError(t, err)
	_, err = store.WaitForCompletion(waitCtx, "stuck", "h")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	store := NewStore(client, memstore.New().Idempotency(), time.Minute)
	key := ScopedKey("user-redis", time.Now().Format(time.RFC3339Nano))
	_, err = store.Reserve(ctx, key, "h", "POST", "/x")
	require.NoError(t, err)
	_, err = store.Finalize(ctx, key, "h", 200, []byte("cached"), "text/plain")
	require.NoError(t, err)

	rec, err := store.Lookup(ctx, key, "h")
	require.NoError(t, err)
	assert.Equal(t, SourceRedis, rec.Source)
}

func TestReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, memstore.New().Idempotency(), time.Hour)
	key := ScopedKey("user-1", "retry")
	hash := Fingerprint("POST", "/v1/transactions/transfer-profit", []byte(`{"amount":"5"}`))

	ok, err := store.Reserve(ctx, key, hash, "POST", "/v1/transactions/transfer-profit")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Release(ctx, key, hash))

	_, err = store.Lookup(ctx, key, hash)
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err = store.Reserve(ctx, key, hash, "POST", "/v1/transactions/transfer-profit")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.Finalize(ctx, key, hash, 200, []byte("ok"), "text/plain")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, key, hash))
	rec, err := store.Lookup(ctx, key, hash)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(rec.Body))
}

func TestFingerprintSeparatesFields(t *testing.T) {
	a := Fingerprint("POST", "/a", []byte("b"))
	assert.NotEqual(t, a, Fingerprint("POST", "/ab", nil))
	assert.NotEqual(t, a, Fingerprint("PUT", "/a", []byte("b")))
	assert.Equal(t, a, Fingerprint("POST", "/a", []byte("b")))
}
