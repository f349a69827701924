package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/element-app/backend/internal/core/domain"
)

// ResetTokenStore holds single-use password reset tokens in Redis.
// Key format: reset:<token>, value is the owning user id.
type ResetTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResetTokenStore creates a ResetTokenStore wrapping the given Redis client.
func NewResetTokenStore(client *redis.Client, ttl time.Duration) *ResetTokenStore {
	return &ResetTokenStore{client: client, ttl: ttl}
}

// Store records the token for userID. The token expires after the store's TTL.
func (s *ResetTokenStore) Store(ctx context.Context, token string, userID int64) error {
	if err := s.client.Set(ctx, s.key(token), userID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Consume atomically fetches and deletes the token, so it can be redeemed
// only once. Unknown or expired tokens yield domain.ErrInvalidResetToken.
func (s *ResetTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	userID, err := s.client.GetDel(ctx, s.key(token)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrInvalidResetToken
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}
	return userID, nil
}

func (s *ResetTokenStore) key(token string) string {
	return "reset:" + token
}
