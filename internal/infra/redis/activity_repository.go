package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"kids-activity-service/internal/domain"
)

// ActivityLoader fetches activity definitions from a backing store (e.g., Postgres).
type ActivityLoader interface {
	LoadActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// ActivityRepository caches activity definitions in Redis and falls back to a loader on cache miss.
// Definitions are stored as JSON: SET activity:{activityID}:definition {json} EX ttl
type ActivityRepository struct {
	client *redis.Client
	loader ActivityLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewActivityRepository(client *redis.Client, loader ActivityLoader, ttl time.Duration) *ActivityRepository {
	return &ActivityRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ActivityRepository) GetActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	if a, ok := r.cached(ctx, activityID); ok {
		return a, nil
	}

	result, err, _ := r.sf.Do(activityID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if a, ok := r.cached(ctx, activityID); ok {
			return a, nil
		}

		a, err := r.loader.LoadActivity(ctx, activityID)
		if err != nil {
			return domain.Activity{}, err
		}
		if err := a.Validate(); err != nil {
			return domain.Activity{}, err
		}

		data, err := json.Marshal(a)
		if err != nil {
			return domain.Activity{}, fmt.Errorf("encode activity: %w", err)
		}
		// best-effort fill; a failed write only costs a reload
		_ = r.client.Set(ctx, r.key(activityID), data, r.ttlWithJitter()).Err()
		return a, nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return result.(domain.Activity), nil
}

// Invalidate drops a cached definition so the next read reloads it.
func (r *ActivityRepository) Invalidate(ctx context.Context, activityID string) error {
	return r.client.Del(ctx, r.key(activityID)).Err()
}

func (r *ActivityRepository) cached(ctx context.Context, activityID string) (domain.Activity, bool) {
	data, err := r.client.Get(ctx, r.key(activityID)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors degrade to the loader
		return domain.Activity{}, false
	}
	var a domain.Activity
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.Activity{}, false
	}
	return a, true
}

func (r *ActivityRepository) key(activityID string) string {
	return "activity:" + activityID + ":definition"
}

func (r *ActivityRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
