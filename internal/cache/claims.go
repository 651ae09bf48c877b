package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimStore hands out short lived, exclusive claims on external event ids so
// that a webhook delivered twice is processed once.
type ClaimStore struct {
	client    redis.UniversalClient
	namespace string
}

func NewClient(addr, password string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewClaimStore(client redis.UniversalClient, namespace string) *ClaimStore {
	return &ClaimStore{client: client, namespace: namespace}
}

func (s *ClaimStore) key(id string) string {
	return s.namespace + ":" + id
}

// Claim reports true when id was not claimed yet. The claim expires after ttl.
func (s *ClaimStore) Claim(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(id), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", id, err)
	}
	return ok, nil
}

// Release drops a claim so a failed delivery can be retried.
func (s *ClaimStore) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("release %s: %w", id, err)
	}
	return nil
}

func (s *ClaimStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	return s.client.TTL(ctx, s.key(id)).Result()
}
