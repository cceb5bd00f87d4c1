package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/kv"
	"github.com/firstuse/dialogue/pkg/live"
	"github.com/firstuse/dialogue/pkg/progress"
)

type fakeVoice struct {
	mu         sync.Mutex
	frames     [][]int16
	closed     bool
	onTeardown func()
}

func (v *fakeVoice) SendAudio(frame []int16) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.frames = append(v.frames, frame)
	return nil
}

func (v *fakeVoice) State() live.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return live.Closed
	}
	return live.Open
}

func (v *fakeVoice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.onTeardown != nil {
		v.onTeardown()
	}
	return nil
}

type stopRecorder struct{ fn func() }

func (r stopRecorder) Stop() error {
	r.fn()
	return nil
}

type harness struct {
	store *progress.Store
	voice *fakeVoice
	opts  live.Options // captured at dial time
}

func newHarness(t *testing.T, opts Options) (*Scope, *harness) {
	t.Helper()
	h := &harness{voice: &fakeVoice{}}
	if opts.Store == nil {
		h.store = progress.NewStore(kv.NewMemory())
		h.store.Load(context.Background())
		opts.Store = h.store
	} else {
		h.store = opts.Store
	}
	if opts.Dial == nil {
		opts.Dial = func(ctx context.Context, lo live.Options) (Voice, error) {
			h.opts = lo
			return h.voice, nil
		}
	}
	return NewScope(opts), h
}

func TestScope_LoginEstablishesIdentity(t *testing.T) {
	s, h := newHarness(t, Options{})
	ctx := context.Background()

	if err := s.Login(ctx, "amy", "Engineer"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.LoggedIn() {
		t.Error("LoggedIn false after login")
	}
	profile := h.store.Profile()
	if profile == nil || profile.Username != "amy" || profile.Profession != "Engineer" {
		t.Fatalf("profile = %+v", profile)
	}
	if err := s.Login(ctx, "amy", "Engineer"); err == nil {
		t.Error("second Login accepted")
	}

	s.SendFrame(make([]int16, 2048))
	if len(h.voice.frames) != 1 {
		t.Errorf("frames forwarded = %d; want 1", len(h.voice.frames))
	}
}

func TestScope_FirstLoginTriggersGeneration(t *testing.T) {
	generated := make(chan string, 2)
	s, _ := newHarness(t, Options{
		Generate: func(ctx context.Context, profession string) { generated <- profession },
	})
	ctx := context.Background()

	if err := s.Login(ctx, "amy", "Nurse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	select {
	case p := <-generated:
		if p != "Nurse" {
			t.Errorf("generated for %q; want Nurse", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first login did not trigger generation")
	}

	// An identity that already exists does not regenerate.
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	// Logout wiped the profile, so the next login is first-time again.
	if err := s.Login(ctx, "amy", "Nurse"); err != nil {
		t.Fatalf("relogin: %v", err)
	}
	select {
	case <-generated:
	case <-time.After(2 * time.Second):
		t.Fatal("post-reset login did not trigger generation")
	}
}

func TestScope_ReloginExistingProfileSkipsGeneration(t *testing.T) {
	store := progress.NewStore(kv.NewMemory())
	store.Load(context.Background())
	ctx := context.Background()
	if err := store.SaveProfile(ctx, progress.NewProfile("amy", "Sales", time.Now())); err != nil {
		t.Fatal(err)
	}

	generated := make(chan string, 1)
	s, _ := newHarness(t, Options{
		Store:    store,
		Generate: func(ctx context.Context, profession string) { generated <- profession },
	})
	if err := s.Login(ctx, "amy", "Sales"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	select {
	case <-generated:
		t.Error("existing identity triggered generation")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScope_LogoutTeardownOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex
	record := func(step string) {
		mu.Lock()
		order = append(order, step)
		mu.Unlock()
	}

	s, h := newHarness(t, Options{
		OutputClock: stopRecorder{fn: func() { record("clock") }},
	})
	h.voice.onTeardown = func() { record("voice") }
	ctx := context.Background()

	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if len(order) != 2 || order[0] != "voice" || order[1] != "clock" {
		t.Errorf("teardown order = %v; want [voice clock]", order)
	}
	if h.store.Profile() != nil {
		t.Error("profile survived logout")
	}
	if s.LoggedIn() {
		t.Error("LoggedIn after logout")
	}

	// Frames after logout are dropped.
	s.SendFrame(make([]int16, 2048))
	if len(h.voice.frames) != 0 {
		t.Error("frame forwarded after logout")
	}

	// Logout on a logged-out scope is a no-op.
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
}

func TestScope_ClosePreservesProgress(t *testing.T) {
	db := kv.NewMemory()
	store := progress.NewStore(db)
	store.Load(context.Background())
	ctx := context.Background()

	var clockStopped bool
	s, h := newHarness(t, Options{
		Store:       store,
		OutputClock: stopRecorder{fn: func() { clockStopped = true }},
	})
	if err := s.Login(ctx, "amy", "Engineer"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := s.ExposeCurrent(ctx); err != nil {
		t.Fatalf("ExposeCurrent: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !h.voice.closed || !clockStopped {
		t.Error("Close did not tear down voice and clock")
	}
	if s.LoggedIn() {
		t.Error("LoggedIn after Close")
	}

	// A fresh cold start over the same storage sees everything the
	// closed scope accumulated.
	reloaded := progress.NewStore(db)
	reloaded.Load(ctx)
	profile := reloaded.Profile()
	if profile == nil || profile.Username != "amy" {
		t.Fatalf("profile after restart = %+v; want amy", profile)
	}
	if reloaded.ExposedCount(progress.KindAtom) != 1 {
		t.Errorf("exposed count after restart = %d; want 1", reloaded.ExposedCount(progress.KindAtom))
	}

	// Close again is a no-op; only Logout clears storage.
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if store.Profile() == nil {
		t.Error("Close cleared the stored profile")
	}
}

func TestScope_InterruptionLogged(t *testing.T) {
	s, h := newHarness(t, Options{})
	ctx := context.Background()
	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	h.opts.OnTranscript("as I was saying")
	h.opts.OnInterrupted()

	got := s.Responses()
	if len(got) != 2 || got[1] != "[Interrupted]" {
		t.Errorf("responses = %v; want cut-off marker last", got)
	}
}

func TestScope_SpeakCounterAndLog(t *testing.T) {
	s, h := newHarness(t, Options{})
	ctx := context.Background()
	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if s.SpeakStatus() != "没开口" {
		t.Errorf("initial status = %q", s.SpeakStatus())
	}
	for i := 0; i < 15; i++ {
		h.opts.OnTranscript("reply")
	}
	if got := s.SpeakCount(); got != atom.MaxSpeakCount {
		t.Errorf("SpeakCount = %d; want saturated %d", got, atom.MaxSpeakCount)
	}
	if s.SpeakStatus() != "很好了" {
		t.Errorf("saturated status = %q", s.SpeakStatus())
	}
	if got := len(s.Responses()); got != 4 {
		t.Errorf("responses retained = %d; want 4", got)
	}

	if !s.TakeCaught() {
		t.Error("caught flag not set by transcript")
	}
	if s.TakeCaught() {
		t.Error("caught flag not transient")
	}

	// Advancing resets the per-sentence state.
	before, _ := s.CurrentAtom()
	next, ok := s.NextAtom()
	if !ok {
		t.Fatal("NextAtom on populated sequence")
	}
	if next.ID == before.ID {
		t.Error("NextAtom did not advance")
	}
	if s.SpeakCount() != 0 || len(s.Responses()) != 0 {
		t.Error("per-sentence state not reset on advance")
	}
}

func TestScope_AutoAdvanceOnSaturation(t *testing.T) {
	s, h := newHarness(t, Options{Advance: AdvanceAuto})
	ctx := context.Background()
	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}
	first, _ := s.CurrentAtom()
	for i := 0; i < atom.MaxSpeakCount; i++ {
		h.opts.OnTranscript("reply")
	}
	now, _ := s.CurrentAtom()
	if now.ID == first.ID {
		t.Error("auto policy did not advance at saturation")
	}
	if s.SpeakCount() != 0 {
		t.Errorf("counter = %d after auto advance; want 0", s.SpeakCount())
	}
}

func TestScope_ExposeCurrent(t *testing.T) {
	s, h := newHarness(t, Options{})
	ctx := context.Background()
	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	first, err := s.ExposeCurrent(ctx)
	if err != nil {
		t.Fatalf("ExposeCurrent: %v", err)
	}
	if !first {
		t.Error("first exposure not reported as new")
	}
	again, err := s.ExposeCurrent(ctx)
	if err != nil {
		t.Fatalf("ExposeCurrent twice: %v", err)
	}
	if again {
		t.Error("repeat exposure reported as new")
	}
	if h.store.ExposedCount(progress.KindAtom) != 1 {
		t.Errorf("exposed count = %d; want 1", h.store.ExposedCount(progress.KindAtom))
	}
}

func TestScope_RegistrationGatesSoundCards(t *testing.T) {
	s, _ := newHarness(t, Options{})
	ctx := context.Background()
	if err := s.Login(ctx, "amy", ""); err != nil {
		t.Fatalf("Login: %v", err)
	}

	free := s.VisibleSoundCards()
	if len(free) != FreeSoundCardLimit {
		t.Fatalf("free cards = %d; want %d", len(free), FreeSoundCardLimit)
	}

	if err := s.Register(ctx, "amy@example.com", "555-0100"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	all := s.VisibleSoundCards()
	if len(all) != len(atom.SoundCards()) {
		t.Errorf("registered cards = %d; want full catalog %d", len(all), len(atom.SoundCards()))
	}
	if len(all) <= FreeSoundCardLimit {
		t.Error("registration did not unlock catalog")
	}
}
