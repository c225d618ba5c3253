package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kids-activity-service/internal/domain"
)

// ActivityLoader fetches activity definitions from a backing store.
type ActivityLoader interface {
	LoadActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// ActivityRepository caches activities with TTL to avoid repeated DB hits.
type ActivityRepository struct {
	loader ActivityLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedActivity
}

type cachedActivity struct {
	activity  domain.Activity
	expiresAt time.Time
}

func NewActivityRepository(loader ActivityLoader, ttl time.Duration) *ActivityRepository {
	return &ActivityRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedActivity),
	}
}

func (r *ActivityRepository) GetActivity(ctx context.Context, activityID string) (domain.Activity, error) {
	if a, ok := r.lookup(activityID); ok {
		return a, nil
	}

	result, err, _ := r.sf.Do(activityID, func() (interface{}, error) {
		if a, ok := r.lookup(activityID); ok {
			return a, nil
		}

		a, err := r.loader.LoadActivity(ctx, activityID)
		if err != nil {
			return domain.Activity{}, err
		}
		if err := a.Validate(); err != nil {
			return domain.Activity{}, err
		}

		r.mu.Lock()
		r.cache[activityID] = cachedActivity{
			activity:  a,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return domain.Activity{}, err
	}
	return result.(domain.Activity), nil
}

func (r *ActivityRepository) lookup(activityID string) (domain.Activity, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[activityID]; ok && entry.expiresAt.After(now) {
		return entry.activity, true
	}
	return domain.Activity{}, false
}

func (r *ActivityRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticActivityLoader is a loader backed by an in-memory map (embedded content, tests).
type StaticActivityLoader struct {
	activities map[string]domain.Activity
}

func NewStaticActivityLoader(activities map[string]domain.Activity) *StaticActivityLoader {
	return &StaticActivityLoader{activities: activities}
}

func (l *StaticActivityLoader) LoadActivity(_ context.Context, activityID string) (domain.Activity, error) {
	if a, ok := l.activities[activityID]; ok {
		return a, nil
	}
	return domain.Activity{}, domain.ErrActivityNotFound
}
