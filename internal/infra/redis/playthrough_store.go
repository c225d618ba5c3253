package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"kids-activity-service/internal/app"
)

// PlaythroughStore is a Redis-aware implementation of app.PlaythroughRepository.
// Notes:
//   - Runners hold live timers, so the playthroughs themselves stay in a local map.
//   - Redis carries a liveness marker per playthrough (activity id as value),
//     which lets operators see what is being played across instances.
type PlaythroughStore struct {
	client       *redis.Client
	ttl          time.Duration
	mu           sync.RWMutex
	playthroughs map[string]*app.Playthrough
}

func NewPlaythroughStore(client *redis.Client, ttl time.Duration) *PlaythroughStore {
	return &PlaythroughStore{
		client:       client,
		ttl:          ttl,
		playthroughs: make(map[string]*app.Playthrough),
	}
}

func (s *PlaythroughStore) Put(p *app.Playthrough) {
	s.mu.Lock()
	s.playthroughs[p.ID()] = p
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(p.ID()), p.ActivityID(), s.ttl).Err()
}

func (s *PlaythroughStore) Get(id string) (*app.Playthrough, bool) {
	s.mu.RLock()
	p, ok := s.playthroughs[id]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
	}
	return p, ok
}

func (s *PlaythroughStore) Delete(id string) {
	s.mu.Lock()
	_, ok := s.playthroughs[id]
	delete(s.playthroughs, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *PlaythroughStore) key(id string) string {
	return "activity:playthrough:" + id
}
