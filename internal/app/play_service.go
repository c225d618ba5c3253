package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kids-activity-service/internal/activity"
	"kids-activity-service/internal/catalog"
	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/feedback"
	"kids-activity-service/internal/platform/logger"
)

// ActivityRepository loads activity definitions (from cache/backing store).
type ActivityRepository interface {
	GetActivity(ctx context.Context, activityID string) (domain.Activity, error)
}

// PlaythroughRepository abstracts where running playthroughs are kept (in-memory, Redis, etc).
type PlaythroughRepository interface {
	Put(p *Playthrough)
	Get(id string) (*Playthrough, bool)
	Delete(id string)
}

// ResultRecorder persists completed runs.
type ResultRecorder interface {
	Record(ctx context.Context, result domain.ActivityResult) error
}

// Started is returned when a playthrough begins.
type Started struct {
	PlaythroughID string              `json:"playthroughId"`
	Activity      domain.ActivityView `json:"activity"`
	View          domain.ShellView    `json:"view"`
}

// Move is the result of one player action.
type Move struct {
	Outcome activity.Outcome `json:"outcome"`
	View    domain.ShellView `json:"view"`
}

// PlayService contains the play use cases.
type PlayService struct {
	activities    ActivityRepository
	linker        *catalog.Linker
	playthroughs  PlaythroughRepository
	results       ResultRecorder
	log           *logger.Logger
	sched         activity.Scheduler
	now           func() time.Time
	newID         func() string
	recordTimeout time.Duration
}

type Option func(*PlayService)

func WithResultRecorder(r ResultRecorder) Option {
	return func(s *PlayService) { s.results = r }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *PlayService) { s.log = l }
}

// WithScheduler replaces the timer source used by every runner (tests).
func WithScheduler(sched activity.Scheduler) Option {
	return func(s *PlayService) { s.sched = sched }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PlayService) { s.now = now }
}

func NewPlayService(activities ActivityRepository, linker *catalog.Linker, playthroughs PlaythroughRepository, opts ...Option) *PlayService {
	s := &PlayService{
		activities:    activities,
		linker:        linker,
		playthroughs:  playthroughs,
		log:           logger.NewNop(),
		sched:         activity.SystemScheduler{},
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
		recordTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.linker == nil {
		s.linker = catalog.NewLinker(nil, s.log)
	}
	return s
}

// Start loads an activity and begins a playthrough at its first item.
func (s *PlayService) Start(ctx context.Context, activityID string, nav domain.NavState) (Started, error) {
	a, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		return Started{}, err
	}
	if err := a.Validate(); err != nil {
		return Started{}, err
	}

	var entry *domain.CatalogEntry
	if e, ok := s.linker.Entry(ctx, a.Category, a.ID); ok {
		entry = &e
	}
	next := s.linker.Resolve(ctx, a.Category, a.ID, nav)
	rewards := domain.ResolveRewards(entry, nav)

	p := newPlaythrough(s.newID(), a, next, rewards, s.now)
	p.onComplete = s.record
	rec := feedback.NewRecorder(p.onFeedback)
	runner, err := activity.New(activity.ConfigFor(a),
		activity.WithEmitter(rec),
		activity.WithObserver(p.onState),
		activity.WithScheduler(s.sched),
	)
	if err != nil {
		return Started{}, err
	}
	p.attach(runner)
	s.playthroughs.Put(p)

	s.log.Debug("playthrough started", "playthrough", p.id, "activity_id", a.ID, "next_path", next.Path)
	return Started{PlaythroughID: p.id, Activity: a.View(), View: p.View()}, nil
}

// Select records a choice for the current item.
func (s *PlayService) Select(_ context.Context, playthroughID string, choiceID int) (Move, error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return Move{}, err
	}
	out, err := p.runner.Select(choiceID)
	if err != nil {
		return Move{}, err
	}
	return Move{Outcome: out, View: p.View()}, nil
}

// Answer records a yes/no response for a binary item.
func (s *PlayService) Answer(_ context.Context, playthroughID string, value bool) (Move, error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return Move{}, err
	}
	out, err := p.runner.Answer(value)
	if err != nil {
		return Move{}, err
	}
	return Move{Outcome: out, View: p.View()}, nil
}

// Next advances past the current item explicitly.
func (s *PlayService) Next(_ context.Context, playthroughID string) (Move, error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return Move{}, err
	}
	out, err := p.runner.Next()
	if err != nil {
		return Move{}, err
	}
	return Move{Outcome: out, View: p.View()}, nil
}

// Retry restarts a completed playthrough.
func (s *PlayService) Retry(_ context.Context, playthroughID string) (domain.ShellView, error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return domain.ShellView{}, err
	}
	if _, err := p.runner.Retry(); err != nil {
		return domain.ShellView{}, err
	}
	return p.View(), nil
}

// View returns the current shell view of a playthrough.
func (s *PlayService) View(_ context.Context, playthroughID string) (domain.ShellView, error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return domain.ShellView{}, err
	}
	return p.View(), nil
}

// Subscribe returns a channel that receives shell view updates, including the
// ones caused by timers. The caller must invoke the returned cancel function to avoid leaks.
func (s *PlayService) Subscribe(_ context.Context, playthroughID string) (<-chan domain.ShellView, func(), error) {
	p, err := s.get(playthroughID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := p.subscribe()
	return ch, cancel, nil
}

// End tears a playthrough down: pending delays are released and subscribers closed.
func (s *PlayService) End(_ context.Context, playthroughID string) {
	p, ok := s.playthroughs.Get(playthroughID)
	if !ok {
		return
	}
	s.playthroughs.Delete(playthroughID)
	p.close()
	s.log.Debug("playthrough ended", "playthrough", playthroughID)
}

func (s *PlayService) get(id string) (*Playthrough, error) {
	p, ok := s.playthroughs.Get(id)
	if !ok || p.IsClosed() {
		return nil, domain.ErrPlaythroughNotFound
	}
	return p, nil
}

// record is called from the runner observer with the runner lock held, so the
// store write happens in its own goroutine. Failures are logged and never reach the player.
func (s *PlayService) record(result domain.ActivityResult) {
	s.log.Info("activity completed",
		"playthrough", result.PlaythroughID,
		"activity_id", result.ActivityID,
		"score", result.Score,
		"total", result.Total,
		"unlocked", result.Unlocked,
	)
	if s.results == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
		defer cancel()
		if err := s.results.Record(ctx, result); err != nil {
			s.log.Warn("record activity result", "activity_id", result.ActivityID, "error", err)
		}
	}()
}
