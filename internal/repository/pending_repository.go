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

const (
	pendingKeyPrefix         = "pending:"
	pendingAttemptsKeyPrefix = "pending-attempts:"
)

// PendingRepository holds registrations awaiting their activation code.
type PendingRepository struct {
	client *redis.Client
}

func NewPendingRepository(client *redis.Client) *PendingRepository {
	return &PendingRepository{client: client}
}

func (r *PendingRepository) Save(ctx context.Context, pending models.PendingRegistration, ttl time.Duration) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", err)
	}
	return r.client.Set(ctx, pendingKeyPrefix+pending.ID, raw, ttl).Err()
}

func (r *PendingRepository) Get(ctx context.Context, id string) (models.PendingRegistration, error) {
	raw, err := r.client.Get(ctx, pendingKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.PendingRegistration{}, ErrPendingNotFound
		}
		return models.PendingRegistration{}, err
	}

	var pending models.PendingRegistration
	if err := json.Unmarshal(raw, &pending); err != nil {
		return models.PendingRegistration{}, fmt.Errorf("decode pending registration: %w", err)
	}
	return pending, nil
}

// RecordFailedAttempt counts a wrong code for id and returns the running
// total. The counter expires with ttl.
func (r *PendingRepository) RecordFailedAttempt(ctx context.Context, id string, ttl time.Duration) (int64, error) {
	key := pendingAttemptsKeyPrefix + id
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *PendingRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, pendingKeyPrefix+id, pendingAttemptsKeyPrefix+id).Err()
}
