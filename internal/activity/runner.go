package activity

import (
	"fmt"
	"sync"
	"time"

	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/feedback"
)

// DefaultAdvanceDelay is how long an evaluated item stays on screen in timed mode.
const DefaultAdvanceDelay = 800 * time.Millisecond

// Config parameterizes one runner. Zero values select single-select scoring,
// timed advance, DefaultAdvanceDelay, no round timeout, no unlock threshold
// and the perfect-run celebration.
type Config struct {
	Items           []domain.Item
	Scoring         domain.ScoringMode
	Advance         domain.AdvanceMode
	AdvanceDelay    time.Duration
	RoundTimeout    time.Duration
	UnlockThreshold float64
	Celebration     domain.CelebrationPolicy
	CelebrateAt     float64
}

// ConfigFor derives the runner configuration from an activity definition.
func ConfigFor(a domain.Activity) Config {
	return Config{
		Items:           a.Items,
		Scoring:         a.Scoring,
		Advance:         a.Advance,
		AdvanceDelay:    a.AdvanceDelay.Std(),
		RoundTimeout:    a.RoundTimeout.Std(),
		UnlockThreshold: a.UnlockThreshold,
		Celebration:     a.Celebration,
		CelebrateAt:     a.CelebrateAt,
	}
}

func (c Config) withDefaults() Config {
	if c.Scoring == "" {
		c.Scoring = domain.ScoringSingle
	}
	if c.Advance == "" {
		c.Advance = domain.AdvanceTimed
	}
	if c.AdvanceDelay <= 0 {
		c.AdvanceDelay = DefaultAdvanceDelay
	}
	if c.Celebration == "" {
		c.Celebration = domain.CelebratePerfect
	}
	return c
}

// Outcome reports what a single call did. Accepted is false for no-ops such as
// a duplicate selection or input after completion.
type Outcome struct {
	Accepted bool                 `json:"accepted"`
	Correct  bool                 `json:"correct"`
	Awarded  int                  `json:"awarded"`
	State    domain.ActivityState `json:"state"`
}

type Option func(*Runner)

// WithEmitter routes per-item feedback to e.
func WithEmitter(e feedback.Emitter) Option {
	return func(r *Runner) { r.emitter = e }
}

// WithObserver registers fn to receive the state after every transition,
// including timer-driven ones. fn runs with the runner locked and must not
// call back into the runner.
func WithObserver(fn func(domain.ActivityState)) Option {
	return func(r *Runner) { r.observe = fn }
}

// WithScheduler replaces the system timer source.
func WithScheduler(s Scheduler) Option {
	return func(r *Runner) { r.sched = s }
}

// Runner drives one playthrough: Presenting(i) -> Evaluated(i) -> Presenting(i+1) ... -> Completed.
type Runner struct {
	cfg     Config
	emitter feedback.Emitter
	observe func(domain.ActivityState)
	sched   Scheduler

	mu          sync.Mutex
	index       int
	score       int
	phase       domain.Phase
	answered    bool
	selected    []int
	itemCorrect bool
	lastCorrect bool
	unlocked    bool
	celebrate   bool
	closed      bool

	// epoch changes whenever a pending delay is released; callbacks from an
	// older epoch are ignored.
	epoch   uint64
	pending Timer
}

// New validates cfg and returns a runner presenting the first item.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if len(cfg.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", domain.ErrInvalidActivity)
	}
	r := &Runner{
		cfg:     cfg.withDefaults(),
		emitter: feedback.Discard,
		sched:   SystemScheduler{},
		phase:   domain.PhasePresenting,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.mu.Lock()
	r.armRoundTimeoutLocked()
	r.mu.Unlock()
	return r, nil
}

// State returns a snapshot of the runner.
func (r *Runner) State() domain.ActivityState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Select records a choice for the current item.
func (r *Runner) Select(choiceID int) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Outcome{}, domain.ErrRunnerClosed
	}
	if r.phase == domain.PhaseCompleted {
		return r.ignoredLocked(), nil
	}
	item := r.cfg.Items[r.index]
	if item.IsBinary() {
		return Outcome{}, domain.ErrWrongItemKind
	}
	choice, ok := findChoice(item, choiceID)
	if !ok {
		return Outcome{}, domain.ErrChoiceNotFound
	}

	var out Outcome
	if r.cfg.Scoring == domain.ScoringMulti {
		out = r.accumulateLocked(choice)
	} else {
		if r.answered {
			return r.ignoredLocked(), nil
		}
		r.selected = []int{choice.ID}
		out = r.evaluateLocked(choice.Correct)
	}
	if out.Accepted {
		r.notifyLocked()
	}
	return out, nil
}

// Answer records a yes/no response for a binary item.
func (r *Runner) Answer(value bool) (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Outcome{}, domain.ErrRunnerClosed
	}
	if r.phase == domain.PhaseCompleted {
		return r.ignoredLocked(), nil
	}
	item := r.cfg.Items[r.index]
	if !item.IsBinary() {
		return Outcome{}, domain.ErrWrongItemKind
	}
	if r.answered {
		return r.ignoredLocked(), nil
	}
	out := r.evaluateLocked(value == item.Target)
	r.notifyLocked()
	return out, nil
}

// Next leaves the current item explicitly. In single-select mode the item must
// already be evaluated; in multi-select mode it finalizes the accumulated
// selections.
func (r *Runner) Next() (Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Outcome{}, domain.ErrRunnerClosed
	}
	if r.phase == domain.PhaseCompleted {
		return r.ignoredLocked(), nil
	}

	if r.cfg.Scoring == domain.ScoringMulti {
		if len(r.selected) == 0 {
			return Outcome{}, domain.ErrNoSelection
		}
		r.finalizeLocked()
	} else {
		if r.phase != domain.PhaseEvaluated {
			return Outcome{}, domain.ErrNotEvaluated
		}
		r.advanceLocked()
	}
	r.notifyLocked()
	return Outcome{Accepted: true, Correct: r.lastCorrect, State: r.stateLocked()}, nil
}

// Retry restarts a completed run from the first item with a zero score.
func (r *Runner) Retry() (domain.ActivityState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ActivityState{}, domain.ErrRunnerClosed
	}
	if r.phase != domain.PhaseCompleted {
		return r.stateLocked(), domain.ErrNotCompleted
	}
	r.releaseLocked()
	r.index = 0
	r.score = 0
	r.unlocked = false
	r.celebrate = false
	r.lastCorrect = false
	r.resetItemLocked()
	r.emitter.Reset()
	r.armRoundTimeoutLocked()
	r.notifyLocked()
	return r.stateLocked(), nil
}

// Close releases pending delays. Further calls return ErrRunnerClosed.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked()
	r.closed = true
}

func (r *Runner) evaluateLocked(correct bool) Outcome {
	r.releaseLocked()
	r.answered = true
	r.phase = domain.PhaseEvaluated
	r.lastCorrect = correct
	awarded := 0
	if correct {
		r.score++
		awarded = 1
	}
	r.emitter.Emit(awarded, correct)
	if r.cfg.Advance == domain.AdvanceTimed {
		r.scheduleLocked(r.cfg.AdvanceDelay, r.advanceLocked)
	}
	return Outcome{Accepted: true, Correct: correct, Awarded: awarded, State: r.stateLocked()}
}

func (r *Runner) accumulateLocked(choice domain.Choice) Outcome {
	for _, id := range r.selected {
		if id == choice.ID {
			return r.ignoredLocked()
		}
	}
	r.selected = append(r.selected, choice.ID)
	r.answered = true
	awarded := 0
	if choice.Correct && !r.itemCorrect {
		r.itemCorrect = true
		r.score++
		awarded = 1
	}
	r.lastCorrect = r.itemCorrect
	return Outcome{Accepted: true, Correct: choice.Correct, Awarded: awarded, State: r.stateLocked()}
}

// finalizeLocked closes the current item without a further selection: a
// multi-select Next or an expired round.
func (r *Runner) finalizeLocked() {
	points := 0
	if r.itemCorrect {
		points = 1
	}
	r.lastCorrect = r.itemCorrect
	r.emitter.Emit(points, r.itemCorrect)
	r.advanceLocked()
}

func (r *Runner) advanceLocked() {
	r.releaseLocked()
	if r.index+1 < len(r.cfg.Items) {
		r.index++
		r.resetItemLocked()
		r.emitter.Reset()
		r.armRoundTimeoutLocked()
		return
	}
	r.completeLocked()
}

func (r *Runner) completeLocked() {
	r.phase = domain.PhaseCompleted
	total := len(r.cfg.Items)
	r.unlocked = r.cfg.UnlockThreshold <= 0 || reaches(r.score, total, r.cfg.UnlockThreshold)
	switch {
	case r.cfg.Celebration == domain.CelebrateThreshold && r.cfg.CelebrateAt > 0:
		r.celebrate = reaches(r.score, total, r.cfg.CelebrateAt)
	default:
		r.celebrate = r.score == total
	}
}

func (r *Runner) resetItemLocked() {
	r.phase = domain.PhasePresenting
	r.answered = false
	r.selected = nil
	r.itemCorrect = false
}

func (r *Runner) armRoundTimeoutLocked() {
	if r.cfg.RoundTimeout <= 0 || r.phase != domain.PhasePresenting {
		return
	}
	r.scheduleLocked(r.cfg.RoundTimeout, r.finalizeLocked)
}

// scheduleLocked replaces any pending delay with one that runs step under the
// lock, unless the runner moved on or closed in the meantime.
func (r *Runner) scheduleLocked(d time.Duration, step func()) {
	r.releaseLocked()
	epoch := r.epoch
	r.pending = r.sched.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed || r.epoch != epoch {
			return
		}
		r.pending = nil
		step()
		r.notifyLocked()
	})
}

func (r *Runner) releaseLocked() {
	r.epoch++
	if r.pending != nil {
		r.pending.Stop()
		r.pending = nil
	}
}

func (r *Runner) ignoredLocked() Outcome {
	return Outcome{Accepted: false, State: r.stateLocked()}
}

func (r *Runner) notifyLocked() {
	if r.observe != nil {
		r.observe(r.stateLocked())
	}
}

func (r *Runner) stateLocked() domain.ActivityState {
	var selected []int
	if len(r.selected) > 0 {
		selected = append([]int(nil), r.selected...)
	}
	return domain.ActivityState{
		CurrentIndex:    r.index,
		Score:           r.score,
		Total:           len(r.cfg.Items),
		Phase:           r.phase,
		AnsweredCurrent: r.answered,
		Completed:       r.phase == domain.PhaseCompleted,
		Selected:        selected,
		LastCorrect:     r.lastCorrect,
		Unlocked:        r.unlocked,
		Celebrate:       r.celebrate,
	}
}

func findChoice(item domain.Item, id int) (domain.Choice, bool) {
	for _, c := range item.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Choice{}, false
}

// reaches reports score/total >= ratio, tolerant of float rounding.
func reaches(score, total int, ratio float64) bool {
	return float64(score) >= ratio*float64(total)-1e-9
}
