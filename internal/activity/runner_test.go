package activity

import (
	"errors"
	"testing"
	"time"

	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/feedback"
)

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler only fires when told to.
type fakeScheduler struct {
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	for _, tm := range s.timers {
		if !tm.stopped && !tm.fired {
			tm.fired = true
			tm.f()
			return
		}
	}
	t.Fatalf("no pending timer to fire")
}

func (s *fakeScheduler) pending() int {
	n := 0
	for _, tm := range s.timers {
		if !tm.stopped && !tm.fired {
			n++
		}
	}
	return n
}

// passwordItems mirrors the strong password reflex: choice 1 is "weak", choice 2 is "strong".
func passwordItems() []domain.Item {
	mk := func(id int, prompt string, weak bool) domain.Item {
		return domain.Item{
			ID:     id,
			Prompt: prompt,
			Choices: []domain.Choice{
				{ID: 1, Text: "weak", Correct: weak},
				{ID: 2, Text: "strong", Correct: !weak},
			},
		}
	}
	return []domain.Item{
		mk(1, "12345", true),
		mk(2, "Tr!cky#Tiger42", false),
		mk(3, "password", true),
		mk(4, "Blue$Kite_Rain9", false),
		mk(5, "qwerty", true),
	}
}

func newTimedRunner(t *testing.T, cfg Config, opts ...Option) (*Runner, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	r, err := New(cfg, append([]Option{WithScheduler(sched)}, opts...)...)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return r, sched
}

func TestStrongPasswordScenario(t *testing.T) {
	r, sched := newTimedRunner(t, Config{Items: passwordItems()})

	// correct, wrong, correct, wrong, correct
	picks := []int{1, 1, 1, 1, 1}
	for i, pick := range picks {
		out, err := r.Select(pick)
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if !out.Accepted {
			t.Fatalf("select %d not accepted", i)
		}
		if out.State.Phase != domain.PhaseEvaluated {
			t.Fatalf("expected evaluated phase, got %s", out.State.Phase)
		}
		sched.fire(t)
	}

	st := r.State()
	if !st.Completed || st.Phase != domain.PhaseCompleted {
		t.Fatalf("expected completed, got %+v", st)
	}
	if st.Score != 3 {
		t.Fatalf("expected score 3, got %d", st.Score)
	}
	if st.Celebrate {
		t.Fatalf("imperfect run must not celebrate")
	}
}

func TestDuplicateSelectionIsNoop(t *testing.T) {
	r, _ := newTimedRunner(t, Config{Items: passwordItems()})

	first, err := r.Select(1)
	if err != nil || !first.Accepted || first.Awarded != 1 {
		t.Fatalf("first select: %+v %v", first, err)
	}
	second, err := r.Select(2)
	if err != nil {
		t.Fatalf("second select: %v", err)
	}
	if second.Accepted {
		t.Fatalf("duplicate selection must be ignored")
	}
	if second.State.Score != 1 {
		t.Fatalf("expected score 1, got %d", second.State.Score)
	}
}

func TestFeedbackOncePerItemAndResetOnAdvance(t *testing.T) {
	rec := feedback.NewRecorder(nil)
	r, sched := newTimedRunner(t, Config{Items: passwordItems()}, WithEmitter(rec))

	_, _ = r.Select(1)
	_, _ = r.Select(1)
	if rec.Emits() != 1 {
		t.Fatalf("expected one emit, got %d", rec.Emits())
	}
	if f := rec.Current(); f.Points != 1 || !f.Confetti {
		t.Fatalf("unexpected flash %+v", f)
	}
	sched.fire(t)
	if f := rec.Current(); f != (feedback.Flash{}) {
		t.Fatalf("expected flash reset on advance, got %+v", f)
	}
	_, _ = r.Select(1) // wrong
	if f := rec.Current(); f.Points != 0 || f.Confetti {
		t.Fatalf("unexpected flash for wrong answer %+v", f)
	}
}

func TestPerfectRunCelebrates(t *testing.T) {
	r, sched := newTimedRunner(t, Config{Items: passwordItems()})
	for _, pick := range []int{1, 2, 1, 2, 1} {
		if _, err := r.Select(pick); err != nil {
			t.Fatalf("select: %v", err)
		}
		sched.fire(t)
	}
	st := r.State()
	if st.Score != st.Total || !st.Celebrate {
		t.Fatalf("expected perfect celebrated run, got %+v", st)
	}
}

func TestThresholdLocksContinueAndRetryResets(t *testing.T) {
	r, sched := newTimedRunner(t, Config{Items: passwordItems(), UnlockThreshold: 0.7})
	for _, pick := range []int{1, 1, 1, 1, 1} {
		_, _ = r.Select(pick)
		sched.fire(t)
	}
	st := r.State()
	if !st.Completed || st.Score != 3 {
		t.Fatalf("expected completed with 3, got %+v", st)
	}
	if st.Unlocked {
		t.Fatalf("3/5 must not unlock a 70%% threshold")
	}

	st, err := r.Retry()
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if st.Score != 0 || st.CurrentIndex != 0 || st.Phase != domain.PhasePresenting || st.Completed {
		t.Fatalf("expected fresh state after retry, got %+v", st)
	}

	for _, pick := range []int{1, 2, 1, 2, 2} {
		_, _ = r.Select(pick)
		sched.fire(t)
	}
	if st := r.State(); st.Score != 4 || !st.Unlocked {
		t.Fatalf("expected 4/5 unlocked, got %+v", st)
	}
}

func TestRetryRequiresCompletion(t *testing.T) {
	r, _ := newTimedRunner(t, Config{Items: passwordItems()})
	if _, err := r.Retry(); !errors.Is(err, domain.ErrNotCompleted) {
		t.Fatalf("expected ErrNotCompleted, got %v", err)
	}
}

func TestCompletedStateIsImmutable(t *testing.T) {
	items := passwordItems()[:1]
	r, sched := newTimedRunner(t, Config{Items: items})
	_, _ = r.Select(1)
	sched.fire(t)

	out, err := r.Select(2)
	if err != nil {
		t.Fatalf("select after completion: %v", err)
	}
	if out.Accepted || out.State.Score != 1 {
		t.Fatalf("completed state changed: %+v", out)
	}
}

func TestManualAdvance(t *testing.T) {
	r, sched := newTimedRunner(t, Config{Items: passwordItems()[:2], Advance: domain.AdvanceManual})

	if _, err := r.Next(); !errors.Is(err, domain.ErrNotEvaluated) {
		t.Fatalf("expected ErrNotEvaluated, got %v", err)
	}
	_, _ = r.Select(1)
	if sched.pending() != 0 {
		t.Fatalf("manual mode must not arm an advance delay")
	}
	out, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if out.State.CurrentIndex != 1 || out.State.Phase != domain.PhasePresenting {
		t.Fatalf("expected second item, got %+v", out.State)
	}
	_, _ = r.Select(2)
	out, _ = r.Next()
	if !out.State.Completed || out.State.Score != 2 {
		t.Fatalf("expected completed 2/2, got %+v", out.State)
	}
}

func TestMultiSelectAccumulates(t *testing.T) {
	items := []domain.Item{
		{ID: 1, Prompt: "Which are safe to share?", Choices: []domain.Choice{
			{ID: 1, Text: "favourite colour", Correct: true},
			{ID: 2, Text: "home address"},
			{ID: 3, Text: "favourite book", Correct: true},
		}},
		{ID: 2, Prompt: "Which are kind replies?", Choices: []domain.Choice{
			{ID: 1, Text: "thanks!", Correct: true},
			{ID: 2, Text: "go away"},
		}},
	}
	rec := feedback.NewRecorder(nil)
	r, sched := newTimedRunner(t, Config{Items: items, Scoring: domain.ScoringMulti}, WithEmitter(rec))

	if _, err := r.Next(); !errors.Is(err, domain.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	for _, id := range []int{1, 3, 3, 2} {
		if _, err := r.Select(id); err != nil {
			t.Fatalf("select %d: %v", id, err)
		}
	}
	st := r.State()
	if st.Score != 1 || st.Phase != domain.PhasePresenting || len(st.Selected) != 3 {
		t.Fatalf("expected one point with three selections, got %+v", st)
	}
	if sched.pending() != 0 || rec.Emits() != 0 {
		t.Fatalf("multi-select must not arm delays or emit before Next")
	}

	if _, err := r.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if rec.Emits() != 1 {
		t.Fatalf("expected one emit on finalize, got %d", rec.Emits())
	}
	_, _ = r.Select(2)
	out, _ := r.Next()
	if !out.State.Completed || out.State.Score != 1 {
		t.Fatalf("expected completed 1/2, got %+v", out.State)
	}
}

func TestBinaryItems(t *testing.T) {
	items := []domain.Item{
		{ID: 1, Prompt: "RECYCLE", Kind: domain.KindBinary, Target: true},
		{ID: 2, Prompt: "LITTER", Kind: domain.KindBinary, Target: false},
	}
	r, sched := newTimedRunner(t, Config{Items: items})

	if _, err := r.Select(1); !errors.Is(err, domain.ErrWrongItemKind) {
		t.Fatalf("expected ErrWrongItemKind, got %v", err)
	}
	out, err := r.Answer(true)
	if err != nil || !out.Correct {
		t.Fatalf("answer: %+v %v", out, err)
	}
	sched.fire(t)
	out, _ = r.Answer(true)
	if out.Correct {
		t.Fatalf("tapping a trash word must be wrong")
	}
	sched.fire(t)
	if st := r.State(); !st.Completed || st.Score != 1 {
		t.Fatalf("expected completed 1/2, got %+v", st)
	}
}

func TestRoundTimeoutCountsAsMiss(t *testing.T) {
	rec := feedback.NewRecorder(nil)
	r, sched := newTimedRunner(t, Config{Items: passwordItems()[:2], RoundTimeout: 5 * time.Second}, WithEmitter(rec))

	sched.fire(t) // round 1 expires
	st := r.State()
	if st.CurrentIndex != 1 || st.Score != 0 {
		t.Fatalf("expected advance to item 2 without score, got %+v", st)
	}
	if rec.Emits() != 1 {
		t.Fatalf("expected miss feedback, got %d emits", rec.Emits())
	}

	_, _ = r.Select(2)
	sched.fire(t) // advance delay, not the released round timeout
	if st := r.State(); !st.Completed || st.Score != 1 {
		t.Fatalf("expected completed 1/2, got %+v", st)
	}
}

func TestCloseReleasesPendingDelay(t *testing.T) {
	r, sched := newTimedRunner(t, Config{Items: passwordItems()})
	_, _ = r.Select(1)
	stale := sched.timers[len(sched.timers)-1]

	r.Close()
	if !stale.stopped {
		t.Fatalf("expected pending delay stopped on close")
	}
	stale.f() // a callback that raced with Stop
	if st := r.State(); st.CurrentIndex != 0 || st.Phase != domain.PhaseEvaluated {
		t.Fatalf("closed runner changed state: %+v", st)
	}
	if _, err := r.Select(1); !errors.Is(err, domain.ErrRunnerClosed) {
		t.Fatalf("expected ErrRunnerClosed, got %v", err)
	}
}

func TestObserverSeesTimerTransitions(t *testing.T) {
	var states []domain.ActivityState
	r, sched := newTimedRunner(t, Config{Items: passwordItems()[:1]},
		WithObserver(func(s domain.ActivityState) { states = append(states, s) }))

	_, _ = r.Select(1)
	sched.fire(t)
	if len(states) != 2 {
		t.Fatalf("expected 2 observed transitions, got %d", len(states))
	}
	if states[0].Phase != domain.PhaseEvaluated || states[1].Phase != domain.PhaseCompleted {
		t.Fatalf("unexpected phases %s -> %s", states[0].Phase, states[1].Phase)
	}
}

func TestDeterministicReplayAndScoreBound(t *testing.T) {
	seq := []int{2, 1, 2, 2, 1}
	play := func() domain.ActivityState {
		r, sched := newTimedRunner(t, Config{Items: passwordItems()})
		for _, pick := range seq {
			out, _ := r.Select(pick)
			_, _ = r.Select(pick)
			if out.State.Score < 0 || out.State.Score > out.State.Total {
				t.Fatalf("score out of bounds: %+v", out.State)
			}
			sched.fire(t)
		}
		return r.State()
	}
	a, b := play(), play()
	if a.Score != b.Score || a.Completed != b.Completed {
		t.Fatalf("replays differ: %+v vs %+v", a, b)
	}
}

func TestNewRejectsEmptyActivity(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Fatalf("expected ErrInvalidActivity, got %v", err)
	}
}

func TestUnknownChoice(t *testing.T) {
	r, _ := newTimedRunner(t, Config{Items: passwordItems()})
	if _, err := r.Select(42); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected ErrChoiceNotFound, got %v", err)
	}
}
