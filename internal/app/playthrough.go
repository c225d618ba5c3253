package app

import (
	"sync"
	"time"

	"kids-activity-service/internal/activity"
	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/feedback"
)

// Playthrough is one running activity: the runner, its feedback channel, the
// resolved next target and the subscribers watching its shell view.
type Playthrough struct {
	id         string
	activity   domain.Activity
	next       domain.NextTarget
	rewards    domain.Rewards
	now        func() time.Time
	onComplete func(domain.ActivityResult)

	runner *activity.Runner

	mu          sync.Mutex
	state       domain.ActivityState
	flash       feedback.Flash
	completed   bool
	closed      bool
	subscribers map[chan domain.ShellView]struct{}
}

func newPlaythrough(id string, a domain.Activity, next domain.NextTarget, rewards domain.Rewards, now func() time.Time) *Playthrough {
	return &Playthrough{
		id:          id,
		activity:    a,
		next:        next,
		rewards:     rewards,
		now:         now,
		subscribers: make(map[chan domain.ShellView]struct{}),
	}
}

// ID returns the playthrough identifier.
func (p *Playthrough) ID() string {
	return p.id
}

// ActivityID returns the id of the activity being played.
func (p *Playthrough) ActivityID() string {
	return p.activity.ID
}

// View returns the current shell view.
func (p *Playthrough) View() domain.ShellView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

// IsClosed reports whether the playthrough has ended.
func (p *Playthrough) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Playthrough) attach(r *activity.Runner) {
	p.runner = r
	st := r.State()
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()
}

// onState is the runner observer. It runs under the runner lock, so it only
// touches playthrough fields.
func (p *Playthrough) onState(st domain.ActivityState) {
	p.mu.Lock()
	var result *domain.ActivityResult
	if st.Completed && !p.completed {
		result = &domain.ActivityResult{
			PlaythroughID: p.id,
			ActivityID:    p.activity.ID,
			Score:         st.Score,
			Total:         st.Total,
			Unlocked:      st.Unlocked,
			CompletedAt:   p.now(),
		}
	}
	p.completed = st.Completed
	p.state = st
	p.broadcastLocked()
	hook := p.onComplete
	p.mu.Unlock()

	if result != nil && hook != nil {
		hook(*result)
	}
}

func (p *Playthrough) onFeedback(f feedback.Flash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flash = f
	p.broadcastLocked()
}

func (p *Playthrough) subscribe() (<-chan domain.ShellView, func()) {
	ch := make(chan domain.ShellView, 8)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	// the snapshot goes in first so it precedes every broadcast
	ch <- p.viewLocked()
	p.subscribers[ch] = struct{}{}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

func (p *Playthrough) close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for ch := range p.subscribers {
		delete(p.subscribers, ch)
		close(ch)
	}
	p.mu.Unlock()

	if p.runner != nil {
		p.runner.Close()
	}
}

func (p *Playthrough) broadcastLocked() {
	view := p.viewLocked()
	for ch := range p.subscribers {
		select {
		case ch <- view:
		default:
			// slow reader: replace the oldest queued view
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (p *Playthrough) viewLocked() domain.ShellView {
	st := p.state
	return domain.ShellView{
		PlaythroughID:  p.id,
		ActivityID:     p.activity.ID,
		Title:          p.activity.Title,
		Score:          st.Score,
		CurrentLevel:   st.CurrentIndex + 1,
		TotalLevels:    st.Total,
		ShowGameOver:   st.Completed,
		NextEnabled:    st.Completed && st.Unlocked && p.next.Found(),
		NextGamePath:   p.next.Path,
		NextGameID:     p.next.ID,
		FlashPoints:    p.flash.Points,
		AnswerConfetti: p.flash.Confetti,
		Celebrate:      st.Completed && st.Celebrate,
		CanRetry:       st.Completed,
		Rewards:        p.rewards,
		State:          st,
	}
}
