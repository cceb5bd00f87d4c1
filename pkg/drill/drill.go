// Package drill implements the rep/set pacing machine for a single
// practice drill: a countdown sized by the sentence's word count, five
// repetitions per set, ten sets per drill.
package drill

import "time"

const (
	// MaxSet is the highest set number; set stops advancing here.
	MaxSet = 10

	// MaxRep is the number of repetitions in one set.
	MaxRep = 5

	// TickPeriod is the cadence the owner should drive Tick at.
	TickPeriod = 100 * time.Millisecond

	minDuration = 3.0

	// epsilon keeps float accumulation from requiring an exact zero
	// crossing to fire a rep.
	epsilon = 0.05
)

// Phase is the timer's run state.
type Phase int

const (
	// Idle means the countdown is halted. Set, rep and remaining are
	// preserved.
	Idle Phase = iota

	// Ticking means Tick calls consume remaining time.
	Ticking
)

// Duration returns the per-rep countdown in seconds for a sentence of
// the given word count.
func Duration(wordCount int) float64 {
	d := 0.5 * float64(wordCount)
	if d < minDuration {
		return minDuration
	}
	return d
}

// Timer is the rep/set state for one drill. Not safe for concurrent
// use; drive it from a single goroutine.
type Timer struct {
	phase     Phase
	set       int
	rep       int
	remaining float64
	duration  float64
}

// New returns a timer at set 1, rep 1, idle.
func New() *Timer {
	return &Timer{set: 1, rep: 1}
}

// Begin starts ticking for a drill with the given word count. The
// countdown is recomputed from the word count; set and rep carry over
// from any prior pause.
func (t *Timer) Begin(wordCount int) {
	t.duration = Duration(wordCount)
	t.remaining = t.duration
	t.phase = Ticking
}

// Tick advances the countdown by dt seconds and reports whether a rep
// completed. A no-op while idle.
func (t *Timer) Tick(dt float64) bool {
	if t.phase != Ticking {
		return false
	}
	t.remaining -= dt
	if t.remaining >= epsilon {
		return false
	}
	t.remaining = t.duration
	t.rep++
	if t.rep > MaxRep {
		t.rep = 1
		if t.set < MaxSet {
			t.set++
		}
	}
	return true
}

// Pause halts ticking without losing set, rep or remaining.
func (t *Timer) Pause() {
	t.phase = Idle
}

// Resume restarts ticking with a fresh full countdown. Set and rep are
// unchanged.
func (t *Timer) Resume() {
	t.remaining = t.duration
	t.phase = Ticking
}

// Exit leaves the drill entirely, resetting set and rep for the next
// one.
func (t *Timer) Exit() {
	t.phase = Idle
	t.set = 1
	t.rep = 1
	t.remaining = 0
	t.duration = 0
}

// Set returns the current set number, 1 through MaxSet.
func (t *Timer) Set() int { return t.set }

// Rep returns the current rep number, 1 through MaxRep.
func (t *Timer) Rep() int { return t.rep }

// Remaining returns the seconds left in the current rep.
func (t *Timer) Remaining() float64 { return t.remaining }

// Phase returns the current run state.
func (t *Timer) Phase() Phase { return t.phase }
