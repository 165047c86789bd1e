package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/redis/go-redis/v9"
)

// Cache holds derived, per-tenant read models. A miss is (nil, nil).
type Cache interface {
	GetTerms(ctx context.Context, tenantID int64, taxonomy string) ([]models.Term, error)
	SetTerms(ctx context.Context, tenantID int64, taxonomy string, terms []models.Term, ttl time.Duration) error
	DeleteTerms(ctx context.Context, tenantID int64, taxonomy string) error

	GetTaskList(ctx context.Context, tenantID int64) ([]models.Task, error)
	SetTaskList(ctx context.Context, tenantID int64, tasks []models.Task, ttl time.Duration) error
	DeleteTaskList(ctx context.Context, tenantID int64) error

	// Claim sets key only if it is absent and reports whether this call set it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release drops a claim so the next Claim for key succeeds.
	Release(ctx context.Context, key string) error
}

type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func termsKey(tenantID int64, taxonomy string) string {
	return fmt.Sprintf("tenant:%d:terms:%s", tenantID, taxonomy)
}

func taskListKey(tenantID int64) string {
	return fmt.Sprintf("tenant:%d:tasks:list", tenantID)
}

func claimKey(key string) string {
	return "claim:" + key
}

func (r *RedisCache) GetTerms(
	ctx context.Context,
	tenantID int64,
	taxonomy string,
) ([]models.Term, error) {

	val, err := r.rdb.Get(ctx, termsKey(tenantID, taxonomy)).Result()
	if err == redis.Nil {
		return nil, nil // cache miss
	}
	if err != nil {
		return nil, err
	}

	terms := []models.Term{}
	if err := json.Unmarshal([]byte(val), &terms); err != nil {
		return nil, err
	}

	return terms, nil
}

func (r *RedisCache) SetTerms(
	ctx context.Context,
	tenantID int64,
	taxonomy string,
	terms []models.Term,
	ttl time.Duration,
) error {

	if terms == nil {
		terms = []models.Term{}
	}
	data, err := json.Marshal(terms)
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, termsKey(tenantID, taxonomy), data, ttl).Err()
}

func (r *RedisCache) DeleteTerms(ctx context.Context, tenantID int64, taxonomy string) error {
	return r.rdb.Del(ctx, termsKey(tenantID, taxonomy)).Err()
}

func (r *RedisCache) GetTaskList(ctx context.Context, tenantID int64) ([]models.Task, error) {
	val, err := r.rdb.Get(ctx, taskListKey(tenantID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	if err := json.Unmarshal([]byte(val), &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *RedisCache) SetTaskList(
	ctx context.Context,
	tenantID int64,
	tasks []models.Task,
	ttl time.Duration,
) error {

	if tasks == nil {
		tasks = []models.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, taskListKey(tenantID), data, ttl).Err()
}

func (r *RedisCache) DeleteTaskList(ctx context.Context, tenantID int64) error {
	return r.rdb.Del(ctx, taskListKey(tenantID)).Err()
}

func (r *RedisCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, claimKey(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (r *RedisCache) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, claimKey(key)).Err()
}
