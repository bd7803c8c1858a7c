package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"coursehub/internal/models"
)

const (
	courseCachePrefix = "course:"
	courseListKey     = "courses:all"
	courseGenKey      = "courses:gen"
)

// CourseCache holds public course views. A miss is reported as
// (zero, false, nil); callers fall back to postgres.
//
// Every Invalidate bumps a generation counter. Fills carry the generation
// read before the database load and are dropped if it moved, so a slow
// reader cannot put back a view older than the last invalidation.
type CourseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCourseCache(client *redis.Client, ttl time.Duration) *CourseCache {
	return &CourseCache{client: client, ttl: ttl}
}

func (c *CourseCache) Get(ctx context.Context, id string) (models.Course, bool, error) {
	var course models.Course
	ok, err := c.get(ctx, courseCachePrefix+id, &course)
	return course, ok, err
}

// Generation returns the current invalidation generation.
func (c *CourseCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, courseGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CourseCache) Set(ctx context.Context, course models.Course, gen int64) error {
	return c.set(ctx, courseCachePrefix+course.ID, course, gen)
}

func (c *CourseCache) GetList(ctx context.Context) ([]models.Course, bool, error) {
	var courses []models.Course
	ok, err := c.get(ctx, courseListKey, &courses)
	return courses, ok, err
}

func (c *CourseCache) SetList(ctx context.Context, courses []models.Course, gen int64) error {
	return c.set(ctx, courseListKey, courses, gen)
}

// Invalidate drops the course entry and the list and bumps the generation.
func (c *CourseCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, courseCachePrefix+id, courseListKey)
		pipe.Incr(ctx, courseGenKey)
		return nil
	})
	return err
}

func (c *CourseCache) get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// set writes v only while the generation still equals gen. A stale fill is
// skipped without error.
func (c *CourseCache) set(ctx context.Context, key string, v any, gen int64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, courseGenKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, c.ttl)
			return nil
		})
		return err
	}, courseGenKey)
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}
