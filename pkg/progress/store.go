package progress

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/kv"
)

// Persisted keys. Each holds one whole JSON document, overwritten on every
// write.
const (
	KeyIdentity      = "identity"
	KeySequence      = "generated-sequence"
	KeyExposedAtoms  = "exposed-atoms"
	KeyExposedSounds = "exposed-sounds"
)

// Kind selects which exposure set an id belongs to.
type Kind int

const (
	KindAtom Kind = iota
	KindSound
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindSound:
		return "sound"
	}
	return "unknown"
}

// Store holds the in-memory progress state and mirrors every mutation to the
// underlying kv store. Single-process, single-user; writes always happen
// after the in-memory mutation they reflect.
type Store struct {
	db kv.Store

	mu            sync.Mutex
	profile       *UserProfile
	sequence      []atom.VerbalAtom
	exposedAtoms  map[string]struct{}
	exposedSounds map[string]struct{}
}

// NewStore creates a Store over the given kv backend with default in-memory
// state (no profile, base sequence, empty exposure sets).
func NewStore(db kv.Store) *Store {
	return &Store{
		db:            db,
		sequence:      atom.BaseSequence(),
		exposedAtoms:  make(map[string]struct{}),
		exposedSounds: make(map[string]struct{}),
	}
}

// Load restores profile, sequence overrides, and both exposure sets from the
// kv store. Missing or malformed entries fall back to defaults; Load never
// fails on bad stored data.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile UserProfile
	if s.loadJSON(ctx, KeyIdentity, &profile) {
		s.profile = &profile
	}

	var seq []atom.VerbalAtom
	if s.loadJSON(ctx, KeySequence, &seq) && len(seq) > 0 {
		s.sequence = atom.Resequence(seq)
	}

	var ids []string
	if s.loadJSON(ctx, KeyExposedAtoms, &ids) {
		for _, id := range ids {
			s.exposedAtoms[id] = struct{}{}
		}
	}
	ids = nil
	if s.loadJSON(ctx, KeyExposedSounds, &ids) {
		for _, id := range ids {
			s.exposedSounds[id] = struct{}{}
		}
	}
}

// loadJSON reads and decodes one key. Returns false when the key is absent
// or the stored document is malformed.
func (s *Store) loadJSON(ctx context.Context, key string, v any) bool {
	data, err := s.db.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			slog.Warn("progress: read failed, using defaults", "key", key, "err", err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("progress: malformed stored state, using defaults", "key", key, "err", err)
		return false
	}
	return true
}

// Profile returns the active profile, or nil when logged out.
func (s *Store) Profile() *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SaveProfile sets the active profile and persists it.
func (s *Store) SaveProfile(ctx context.Context, p *UserProfile) error {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return s.writeJSON(ctx, KeyIdentity, p)
}

// Sequence returns a copy of the current practice sequence.
func (s *Store) Sequence() []atom.VerbalAtom {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]atom.VerbalAtom, len(s.sequence))
	copy(out, s.sequence)
	return out
}

// SaveSequence replaces the practice sequence and persists it.
func (s *Store) SaveSequence(ctx context.Context, seq []atom.VerbalAtom) error {
	cp := make([]atom.VerbalAtom, len(seq))
	copy(cp, seq)
	s.mu.Lock()
	s.sequence = cp
	s.mu.Unlock()
	return s.writeJSON(ctx, KeySequence, cp)
}

// MarkExposed records that an id has been vocalized. Idempotent: a repeat
// mark leaves the set unchanged but still rewrites the (identical) document.
// Returns true when the id was newly added.
func (s *Store) MarkExposed(ctx context.Context, kind Kind, id string) (bool, error) {
	s.mu.Lock()
	set := s.set(kind)
	_, existed := set[id]
	set[id] = struct{}{}
	ids := sortedIDs(set)
	s.mu.Unlock()

	key := KeyExposedAtoms
	if kind == KindSound {
		key = KeyExposedSounds
	}
	return !existed, s.writeJSON(ctx, key, ids)
}

// IsExposed reports whether an id has been vocalized.
func (s *Store) IsExposed(kind Kind, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.set(kind)[id]
	return ok
}

// Exposed returns the sorted ids of the given exposure set.
func (s *Store) Exposed(kind Kind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedIDs(s.set(kind))
}

// ExposedCount returns the size of the given exposure set.
func (s *Store) ExposedCount(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set(kind))
}

// Reset clears all four persisted keys and returns the in-memory state to
// defaults: no profile, base alternation sequence, empty exposure sets.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.profile = nil
	s.sequence = atom.BaseSequence()
	s.exposedAtoms = make(map[string]struct{})
	s.exposedSounds = make(map[string]struct{})
	s.mu.Unlock()
	return s.db.DeleteAll(ctx, KeyIdentity, KeySequence, KeyExposedAtoms, KeyExposedSounds)
}

// DaysActive returns the profile's active-day count, or 0 when logged out.
func (s *Store) DaysActive(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return 0
	}
	return s.profile.DaysActive(now)
}

func (s *Store) set(kind Kind) map[string]struct{} {
	if kind == KindSound {
		return s.exposedSounds
	}
	return s.exposedAtoms
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Set(ctx, key, data)
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
