// Package session owns the identity scope: the lifecycle from login to
// logout, the per-sentence speak state, and the milestones that gate
// optional catalog content.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/live"
	"github.com/firstuse/dialogue/pkg/progress"
)

// AdvancePolicy decides what happens when the speak counter saturates.
type AdvancePolicy int

const (
	// AdvanceManual keeps the current sentence until NextAtom is
	// called. Default.
	AdvanceManual AdvancePolicy = iota

	// AdvanceAuto moves to the next sentence as soon as the counter
	// saturates.
	AdvanceAuto
)

// FreeSoundCardLimit is how many sound cards are available before
// registration.
const FreeSoundCardLimit = 3

// responseLogSize bounds the rolling log of remote replies.
const responseLogSize = 4

// Voice is the duplex channel the scope speaks through. Satisfied by
// *live.Session.
type Voice interface {
	SendAudio(frame []int16) error
	State() live.State
	Close() error
}

// Dialer opens the voice channel for a fresh login. The scope fills in
// the transcript and interruption handlers before dialing.
type Dialer func(ctx context.Context, opts live.Options) (Voice, error)

// Generate runs a matrix generation batch for a profession. Invoked in
// the background for first-time logins.
type Generate func(ctx context.Context, profession string)

// Options wires a Scope's collaborators.
type Options struct {
	Store *progress.Store

	// Dial opens the live voice session. Optional; without it the
	// scope works offline (no transcripts, frames dropped).
	Dial Dialer

	// Playback is the output queue handed to the live session.
	Playback *live.Playback

	// OutputClock, when set, is stopped on logout after the voice
	// session closes.
	OutputClock interface{ Stop() error }

	// Generate, when set, runs for first-time logins.
	Generate Generate

	// Advance selects the saturation behavior.
	Advance AdvancePolicy
}

// Scope is the per-identity state. One Scope is live at a time; Login
// and Logout bracket its useful life.
type Scope struct {
	opts Options

	mu         sync.Mutex
	voice      Voice
	log        *live.RollingLog
	seqIndex   int
	speakCount int
	caught     bool
	loggedIn   bool
}

// NewScope creates a logged-out scope.
func NewScope(opts Options) *Scope {
	return &Scope{opts: opts, log: live.NewRollingLog(responseLogSize)}
}

// Login establishes the identity: persists the profile, opens the
// voice channel, and for a first-time login kicks off matrix
// generation in the background. Voice dial failure is logged and the
// scope continues without a live session.
func (s *Scope) Login(ctx context.Context, username, profession string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return fmt.Errorf("session: already logged in")
	}

	store := s.opts.Store
	profile := store.Profile()
	firstTime := profile == nil
	if firstTime {
		profile = progress.NewProfile(username, profession, time.Now())
	}
	if err := store.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("session: persist identity: %w", err)
	}

	if s.opts.Dial != nil {
		voice, err := s.opts.Dial(ctx, live.Options{
			Playback:      s.opts.Playback,
			OnTranscript:  s.onTranscript,
			OnInterrupted: s.onInterrupted,
		})
		if err != nil {
			slog.Warn("session: voice unavailable, continuing without", "err", err)
		} else {
			s.voice = voice
		}
	}

	s.loggedIn = true
	s.seqIndex = 0
	s.speakCount = 0
	s.caught = false
	s.log.Reset()

	if firstTime && s.opts.Generate != nil {
		go s.opts.Generate(context.WithoutCancel(ctx), profile.Profession)
	}
	return nil
}

// Close tears the scope down without touching stored progress: voice
// session first, then the output clock. Persisted state survives so
// the next cold start resumes where this one left off. Safe on a
// logged-out scope.
func (s *Scope) Close() error {
	s.mu.Lock()
	voice := s.voice
	s.voice = nil
	wasLoggedIn := s.loggedIn
	s.loggedIn = false
	s.seqIndex = 0
	s.speakCount = 0
	s.caught = false
	s.log.Reset()
	s.mu.Unlock()

	if !wasLoggedIn {
		return nil
	}
	if voice != nil {
		if err := voice.Close(); err != nil {
			slog.Warn("session: voice close failed", "err", err)
		}
	}
	if s.opts.OutputClock != nil {
		if err := s.opts.OutputClock.Stop(); err != nil {
			slog.Warn("session: output clock stop failed", "err", err)
		}
	}
	return nil
}

// Logout is a Close followed by clearing all persisted and in-memory
// progress state. Only an explicit logout or reset goes through here.
func (s *Scope) Logout(ctx context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.opts.Store.Reset(ctx)
}

// LoggedIn reports whether an identity is established.
func (s *Scope) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// SendFrame forwards one captured frame to the voice channel. Dropped
// when no channel is open.
func (s *Scope) SendFrame(frame []int16) {
	s.mu.Lock()
	voice := s.voice
	s.mu.Unlock()
	if voice == nil {
		return
	}
	if err := voice.SendAudio(frame); err != nil {
		slog.Warn("session: frame send failed", "err", err)
	}
}

func (s *Scope) onTranscript(text string) {
	s.mu.Lock()
	s.log.Add(text)
	if s.speakCount < atom.MaxSpeakCount {
		s.speakCount++
	}
	s.caught = true
	saturated := s.speakCount >= atom.MaxSpeakCount
	auto := s.opts.Advance == AdvanceAuto
	s.mu.Unlock()

	if saturated && auto {
		s.NextAtom()
	}
}

func (s *Scope) onInterrupted() {
	slog.Debug("session: remote speech interrupted")
	s.mu.Lock()
	s.log.Add(interruptedMarker)
	s.mu.Unlock()
}

// interruptedMarker is the response-log entry shown when the user cuts
// the remote voice off mid-sentence.
const interruptedMarker = "[Interrupted]"

// TakeCaught returns the transient acknowledgment flag and clears it.
func (s *Scope) TakeCaught() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.caught
	s.caught = false
	return c
}

// SpeakCount returns the saturating per-sentence counter.
func (s *Scope) SpeakCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speakCount
}

// SpeakStatus returns the feedback label for the current counter.
func (s *Scope) SpeakStatus() string {
	return atom.SpeakStatus(s.SpeakCount())
}

// Responses returns the retained remote reply lines, oldest first.
func (s *Scope) Responses() []string {
	return s.log.Last(responseLogSize)
}

// CurrentAtom returns the sentence being practiced, or false when the
// sequence is empty.
func (s *Scope) CurrentAtom() (atom.VerbalAtom, bool) {
	s.mu.Lock()
	idx := s.seqIndex
	s.mu.Unlock()
	seq := s.opts.Store.Sequence()
	if len(seq) == 0 {
		return atom.VerbalAtom{}, false
	}
	return seq[idx%len(seq)], true
}

// NextAtom advances to the next sentence cyclically, resetting the
// speak counter and the response log.
func (s *Scope) NextAtom() (atom.VerbalAtom, bool) {
	seq := s.opts.Store.Sequence()
	s.mu.Lock()
	if len(seq) > 0 {
		s.seqIndex = (s.seqIndex + 1) % len(seq)
	}
	s.speakCount = 0
	s.caught = false
	s.log.Reset()
	idx := s.seqIndex
	s.mu.Unlock()
	if len(seq) == 0 {
		return atom.VerbalAtom{}, false
	}
	return seq[idx], true
}

// ExposeCurrent marks the current sentence as vocalized. Reports
// whether this was its first exposure.
func (s *Scope) ExposeCurrent(ctx context.Context) (bool, error) {
	a, ok := s.CurrentAtom()
	if !ok {
		return false, nil
	}
	return s.opts.Store.MarkExposed(ctx, progress.KindAtom, a.ID)
}

// Register upgrades the profile to a registered account and persists
// it in place.
func (s *Scope) Register(ctx context.Context, email, phone string) error {
	profile := s.opts.Store.Profile()
	if profile == nil {
		return fmt.Errorf("session: not logged in")
	}
	profile.Email = email
	profile.Phone = phone
	profile.IsRegistered = true
	return s.opts.Store.SaveProfile(ctx, profile)
}

// VisibleSoundCards returns the sound cards the identity may practice:
// the full catalog once registered, otherwise the first
// FreeSoundCardLimit.
func (s *Scope) VisibleSoundCards() []atom.SoundCard {
	cards := atom.SoundCards()
	profile := s.opts.Store.Profile()
	if profile != nil && profile.IsRegistered {
		return cards
	}
	if len(cards) > FreeSoundCardLimit {
		cards = cards[:FreeSoundCardLimit]
	}
	return cards
}
