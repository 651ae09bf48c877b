package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a running Redis at REDIS_URL.
func newTestStore(t *testing.T) *ClaimStore {
	t.Helper()
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}
	client := NewClient(addr, os.Getenv("REDIS_PASSWORD"))
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return NewClaimStore(client, "test-claims-"+uuid.NewString())
}

func TestClaimIsExclusive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ttl, err := store.TTL(ctx, "evt-1")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Release(ctx, "evt-1"))
	ok, err = store.Claim(ctx, "evt-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.Release(ctx, "evt-1"))
}

func TestClaimKeysAreNamespaced(t *testing.T) {
	store := NewClaimStore(nil, "webhooks")
	assert.Equal(t, "webhooks:evt-9", store.key("evt-9"))
}
