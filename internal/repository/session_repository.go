package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coursehub/internal/models"
)

const sessionKeyPrefix = "session:"

// SessionRepository keeps one user snapshot per user id in redis. An entry
// lives exactly as long as the refresh token that created it.
type SessionRepository struct {
	client *redis.Client
}

func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

func (r *SessionRepository) Get(ctx context.Context, userID string) (models.User, error) {
	raw, err := r.client.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.User{}, ErrSessionNotFound
		}
		return models.User{}, err
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return models.User{}, fmt.Errorf("decode session %s: %w", userID, err)
	}
	return user, nil
}

func (r *SessionRepository) Set(ctx context.Context, user models.User, ttl time.Duration) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(user.ID), raw, ttl).Err()
}

// Replace overwrites the snapshot but keeps the remaining TTL. It is a no-op
// when the user has no live session.
func (r *SessionRepository) Replace(ctx context.Context, user models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = r.client.SetArgs(ctx, sessionKey(user.ID), raw, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, sessionKey(userID)).Err()
}
