package memory

import (
	"context"
	"sync"

	"kids-activity-service/internal/app"
	"kids-activity-service/internal/domain"
)

// PlaythroughStore is an in-memory implementation of app.PlaythroughRepository.
type PlaythroughStore struct {
	mu           sync.RWMutex
	playthroughs map[string]*app.Playthrough
}

func NewPlaythroughStore() *PlaythroughStore {
	return &PlaythroughStore{
		playthroughs: make(map[string]*app.Playthrough),
	}
}

func (s *PlaythroughStore) Put(p *app.Playthrough) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playthroughs[p.ID()] = p
}

func (s *PlaythroughStore) Get(id string) (*app.Playthrough, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playthroughs[id]
	return p, ok
}

func (s *PlaythroughStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.playthroughs, id)
}

// Len reports how many playthroughs are live.
func (s *PlaythroughStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playthroughs)
}

// ResultStore keeps completed results in memory.
type ResultStore struct {
	mu      sync.Mutex
	results []domain.ActivityResult
	notify  chan struct{}
}

func NewResultStore() *ResultStore {
	return &ResultStore{notify: make(chan struct{}, 1)}
}

func (s *ResultStore) Record(_ context.Context, result domain.ActivityResult) error {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()
	select {
	case s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Results returns a copy of everything recorded so far.
func (s *ResultStore) Results() []domain.ActivityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ActivityResult(nil), s.results...)
}

// Recorded is signalled after each Record call.
func (s *ResultStore) Recorded() <-chan struct{} {
	return s.notify
}
