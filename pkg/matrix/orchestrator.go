package matrix

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/firstuse/dialogue/pkg/atom"
	"github.com/firstuse/dialogue/pkg/progress"
)

// ErrBusy is returned when a generation batch is already running.
var ErrBusy = errors.New("matrix: generation already in progress")

const (
	// PrioritySlots is how many of the 300 slots a batch personalizes,
	// taken in slot order from the front.
	PrioritySlots = 10

	defaultSlotTimeout = 30 * time.Second
)

// SlotResult is the outcome for one slot in a batch. Atom is nil when
// Err is set; the placeholder for that slot stays untouched.
type SlotResult struct {
	Slot atom.GenerationSlot
	Atom *atom.VerbalAtom
	Err  error
}

// Orchestrator runs generation batches: one request per priority slot,
// strictly sequential, partial failure tolerated. The merged sequence
// is re-alternated and persisted when the batch finishes.
type Orchestrator struct {
	gen   Generator
	store *progress.Store

	// SlotTimeout bounds each remote request. Defaults to 30s.
	SlotTimeout time.Duration

	busy atomic.Bool
}

// NewOrchestrator creates an orchestrator over the given generator and
// progress store.
func NewOrchestrator(gen Generator, store *progress.Store) *Orchestrator {
	return &Orchestrator{gen: gen, store: store, SlotTimeout: defaultSlotTimeout}
}

// Busy reports whether a batch is currently running.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Generate personalizes the priority slots for the given profession.
// Requests are issued one at a time in slot order; a failed slot is
// logged and skipped, never aborting the batch. Afterwards the working
// sequence has each successful slot's placeholder replaced in place,
// is re-alternated and persisted. Returns ErrBusy if a batch is
// already running.
func (o *Orchestrator) Generate(ctx context.Context, profession string) ([]SlotResult, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	slots := atom.Slots()
	if len(slots) > PrioritySlots {
		slots = slots[:PrioritySlots]
	}

	results := make([]SlotResult, 0, len(slots))
	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		a, err := o.generateSlot(ctx, Request{Profession: profession, Slot: slot})
		if err != nil {
			slog.Warn("matrix: slot generation failed", "slot", slot.ID, "err", err)
			results = append(results, SlotResult{Slot: slot, Err: err})
			continue
		}
		slog.Debug("matrix: slot generated", "slot", slot.ID, "native", a.Native)
		results = append(results, SlotResult{Slot: slot, Atom: a})
	}

	merged := Merge(o.store.Sequence(), results)
	if err := o.store.SaveSequence(ctx, merged); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) generateSlot(ctx context.Context, req Request) (*atom.VerbalAtom, error) {
	timeout := o.SlotTimeout
	if timeout <= 0 {
		timeout = defaultSlotTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.gen.GenerateAtom(ctx, req)
}

// Merge replaces each successful result's placeholder in seq, matching
// by slot id. Replacement only: atoms without a matching slot id are
// untouched and the output preserves the alternation order, rebuilt
// over the merged pools. Length never changes.
func Merge(seq []atom.VerbalAtom, results []SlotResult) []atom.VerbalAtom {
	bySlot := make(map[string]*atom.VerbalAtom, len(results))
	for _, r := range results {
		if r.Atom != nil {
			bySlot[r.Slot.ID] = r.Atom
		}
	}
	merged := make([]atom.VerbalAtom, len(seq))
	for i, a := range seq {
		if repl, ok := bySlot[a.SlotID]; ok && a.SlotID != "" {
			merged[i] = *repl
		} else {
			merged[i] = a
		}
	}
	return atom.Resequence(merged)
}
