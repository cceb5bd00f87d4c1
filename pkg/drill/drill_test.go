package drill

import "testing"

func TestDuration(t *testing.T) {
	tests := []struct {
		words int
		want  float64
	}{
		{0, 3},
		{1, 3},
		{6, 3},
		{7, 3.5},
		{10, 5},
		{20, 10},
	}
	for _, tt := range tests {
		if got := Duration(tt.words); got != tt.want {
			t.Errorf("Duration(%d) = %v; want %v", tt.words, got, tt.want)
		}
	}
}

func TestTimer_RepCompletion(t *testing.T) {
	tm := New()
	tm.Begin(6) // 3 second countdown

	fired := 0
	for i := 0; i < 30; i++ {
		if tm.Tick(0.1) {
			fired++
		}
	}
	if fired != 1 {
		t.Fatalf("reps fired = %d; want 1", fired)
	}
	if tm.Rep() != 2 || tm.Set() != 1 {
		t.Errorf("after one rep: set=%d rep=%d; want set=1 rep=2", tm.Set(), tm.Rep())
	}
	if tm.Remaining() != 3 {
		t.Errorf("Remaining = %v; want reset to 3", tm.Remaining())
	}
}

func TestTimer_SetRollover(t *testing.T) {
	tm := New()
	tm.Begin(6)

	// Drive through five reps.
	for rep := 0; rep < 5; rep++ {
		for !tm.Tick(0.1) {
		}
	}
	if tm.Set() != 2 || tm.Rep() != 1 {
		t.Errorf("after five reps: set=%d rep=%d; want set=2 rep=1", tm.Set(), tm.Rep())
	}
}

func TestTimer_MidSetTransition(t *testing.T) {
	tm := &Timer{set: 3, rep: 5, phase: Ticking, duration: 3, remaining: 0.1}
	if !tm.Tick(0.1) {
		t.Fatal("expected rep completion")
	}
	if tm.Set() != 4 || tm.Rep() != 1 {
		t.Errorf("set=%d rep=%d; want set=4 rep=1", tm.Set(), tm.Rep())
	}
}

func TestTimer_SetSaturation(t *testing.T) {
	tm := &Timer{set: 10, rep: 5, phase: Ticking, duration: 3, remaining: 0.1}
	if !tm.Tick(0.1) {
		t.Fatal("expected rep completion")
	}
	if tm.Set() != 10 || tm.Rep() != 1 {
		t.Errorf("set=%d rep=%d; want set=10 rep=1 (no overflow)", tm.Set(), tm.Rep())
	}
}

func TestTimer_PausePreservesState(t *testing.T) {
	tm := New()
	tm.Begin(10) // 5 seconds
	tm.Tick(0.1)
	tm.Tick(0.1)
	remaining := tm.Remaining()

	tm.Pause()
	if tm.Tick(0.1) {
		t.Error("Tick fired while paused")
	}
	if tm.Remaining() != remaining {
		t.Errorf("Remaining changed while paused: %v -> %v", remaining, tm.Remaining())
	}

	tm.Resume()
	if tm.Phase() != Ticking {
		t.Error("not ticking after Resume")
	}
	if tm.Remaining() != 5 {
		t.Errorf("Remaining after Resume = %v; want fresh 5", tm.Remaining())
	}
}

func TestTimer_Exit(t *testing.T) {
	tm := &Timer{set: 7, rep: 3, phase: Ticking, duration: 4, remaining: 1.2}
	tm.Exit()
	if tm.Set() != 1 || tm.Rep() != 1 || tm.Remaining() != 0 || tm.Phase() != Idle {
		t.Errorf("after Exit: set=%d rep=%d remaining=%v phase=%v",
			tm.Set(), tm.Rep(), tm.Remaining(), tm.Phase())
	}
}
