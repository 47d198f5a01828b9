// Package redis implements short-lived stores backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/utafrali/MarketGo/pkg/errors"
)

const verificationKeyPrefix = "verify:"

// VerificationStore implements repository.VerificationStore using Redis.
// Codes expire automatically via key TTL.
type VerificationStore struct {
	client *redis.Client
}

// NewVerificationStore creates a new Redis-backed verification code store.
func NewVerificationStore(client *redis.Client) *VerificationStore {
	return &VerificationStore{client: client}
}

// SaveCode stores a verification code for the user with a TTL.
func (s *VerificationStore) SaveCode(ctx context.Context, userID, code string, ttl time.Duration) error {
	key := verificationKeyPrefix + userID

	if err := s.client.Set(ctx, key, code, ttl).Err(); err != nil {
		return fmt.Errorf("redis set verification code: %w", err)
	}

	return nil
}

// GetCode returns the stored code for the user, or ErrNotFound if absent or expired.
func (s *VerificationStore) GetCode(ctx context.Context, userID string) (string, error) {
	key := verificationKeyPrefix + userID

	code, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.NotFound("verification code", userID)
		}
		return "", fmt.Errorf("redis get verification code: %w", err)
	}

	return code, nil
}

// DeleteCode removes the stored code after successful verification.
func (s *VerificationStore) DeleteCode(ctx context.Context, userID string) error {
	key := verificationKeyPrefix + userID

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del verification code: %w", err)
	}

	return nil
}
