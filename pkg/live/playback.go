package live

import (
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
)

// Clock is the output audio timeline in seconds. The zero point is
// whenever the underlying output context started.
type Clock interface {
	Now() float64
}

// Handle is one scheduled playback source.
type Handle interface {
	Stop()
}

// Sink schedules decoded PCM to start at a point on the Clock's
// timeline. done is invoked when the source finishes on its own; it is
// not called after Stop.
type Sink interface {
	PlayAt(samples []int16, startAt float64, done func()) (Handle, error)
}

// Playback queues inbound audio chunks for gapless playback. Chunks
// start back to back: each one is scheduled at the later of the queue
// cursor and the current clock time, and the cursor advances by the
// chunk's duration. FlushAll stops everything at once and rewinds the
// cursor, which is how an interruption silences the remote voice
// mid-sentence.
type Playback struct {
	clock  Clock
	sink   Sink
	format pcm.Format

	mu     sync.Mutex
	cursor float64
	nextID uint64
	active map[uint64]Handle
}

// NewPlayback creates an empty queue over the given clock and sink.
// Inbound chunks are 24 kHz mono.
func NewPlayback(clock Clock, sink Sink) *Playback {
	return &Playback{
		clock:  clock,
		sink:   sink,
		format: pcm.L16Mono24K,
		active: make(map[uint64]Handle),
	}
}

// ScheduleChunk decodes one base64 PCM chunk and queues it. A chunk
// that fails to decode or schedule is skipped with a warning; the
// queue stays usable.
func (p *Playback) ScheduleChunk(data string) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		slog.Warn("live: drop undecodable audio chunk", "err", err)
		return
	}
	samples := pcm.DecodeInt16LE(raw)
	if len(samples) == 0 {
		return
	}

	p.mu.Lock()
	start := p.cursor
	if now := p.clock.Now(); now > start {
		start = now
	}
	id := p.nextID
	p.nextID++
	// Reserve the slot before PlayAt so a sink that fires done
	// synchronously (or stops via FlushAll) can release it; PlayAt
	// itself runs outside the lock for the same reason.
	p.active[id] = nil
	p.cursor = start + p.format.Duration(int64(len(samples)*2)).Seconds()
	p.mu.Unlock()

	handle, err := p.sink.PlayAt(samples, start, func() { p.release(id) })

	p.mu.Lock()
	defer p.mu.Unlock()
	_, reserved := p.active[id]
	if err != nil {
		if reserved {
			delete(p.active, id)
			p.cursor = start
		}
		slog.Warn("live: schedule failed, chunk skipped", "err", err)
		return
	}
	if reserved {
		p.active[id] = handle
	}
}

func (p *Playback) release(id uint64) {
	p.mu.Lock()
	delete(p.active, id)
	p.mu.Unlock()
}

// FlushAll stops every scheduled and playing source and rewinds the
// cursor to zero. Safe to call with nothing queued.
func (p *Playback) FlushAll() {
	p.mu.Lock()
	handles := make([]Handle, 0, len(p.active))
	for _, h := range p.active {
		handles = append(handles, h)
	}
	clear(p.active)
	p.cursor = 0
	p.mu.Unlock()

	for _, h := range handles {
		if h != nil {
			h.Stop()
		}
	}
}

// Cursor returns the next scheduled start time in seconds.
func (p *Playback) Cursor() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// ActiveCount returns the number of sources scheduled or playing.
func (p *Playback) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
