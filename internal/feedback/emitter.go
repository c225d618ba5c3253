package feedback

import "sync"

// Emitter receives transient presentation signals. Implementations must not
// block and must not call back into the caller; dropped signals are harmless.
type Emitter interface {
	Emit(points int, big bool)
	Reset()
}

// Flash is the latest signal: a point value to flash and whether to fire confetti.
type Flash struct {
	Points   int  `json:"flashPoints"`
	Confetti bool `json:"answerConfetti"`
}

// Discard ignores every signal.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(int, bool) {}
func (discard) Reset()         {}

// Recorder keeps the latest Flash and optionally notifies a hook on change.
type Recorder struct {
	mu       sync.Mutex
	current  Flash
	emits    int
	onChange func(Flash)
}

// NewRecorder returns a recorder. onChange may be nil.
func NewRecorder(onChange func(Flash)) *Recorder {
	return &Recorder{onChange: onChange}
}

func (r *Recorder) Emit(points int, big bool) {
	r.mu.Lock()
	r.current = Flash{Points: points, Confetti: big}
	r.emits++
	f, hook := r.current, r.onChange
	r.mu.Unlock()
	if hook != nil {
		hook(f)
	}
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	changed := r.current != Flash{}
	r.current = Flash{}
	hook := r.onChange
	r.mu.Unlock()
	if changed && hook != nil {
		hook(Flash{})
	}
}

// Current returns the latest flash.
func (r *Recorder) Current() Flash {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Emits counts Emit calls since construction.
func (r *Recorder) Emits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emits
}
