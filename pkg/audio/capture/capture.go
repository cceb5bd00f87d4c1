// Package capture adapts a microphone-like sample source into a stream of
// fixed-size PCM frames with a running amplitude estimate.
//
// Device access itself lives behind the Source interface; the adapter owns
// framing, the visualization level, and start/stop lifecycle.
package capture

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
)

// FrameSize is the number of samples per emitted frame.
const FrameSize = 2048

// Source is a mono int16 sample source, typically a microphone input stream.
// Read fills buf and returns the number of samples read; io.EOF ends the
// capture loop.
type Source interface {
	Read(buf []int16) (int, error)
	Close() error
}

// Opener acquires a Source at the capture format. Acquisition may fail
// (permission denied, device busy); the failure is non-fatal.
type Opener func(format pcm.Format) (Source, error)

// Options configures a Capture.
type Options struct {
	// Format is the capture format. Defaults to pcm.L16Mono16K.
	Format pcm.Format

	// Gain scales RMS into the [0,1] level. Defaults to pcm.DefaultLevelGain.
	Gain float64

	// OnFrame receives each complete frame. Called from the capture
	// goroutine; must not block for long.
	OnFrame func(frame []int16)
}

// Capture turns a Source into fixed-size frames and a running level.
// Start/Stop are idempotent; a second Start while running is a warn-and-skip.
type Capture struct {
	open Opener
	opts Options

	level atomic.Uint64 // float64 bits

	mu     sync.Mutex
	src    Source
	done   chan struct{}
	closed chan struct{}
}

// New creates a stopped Capture.
func New(open Opener, opts Options) *Capture {
	if opts.Gain <= 0 {
		opts.Gain = pcm.DefaultLevelGain
	}
	return &Capture{open: open, opts: opts}
}

// Start acquires the source and begins the frame loop. Returns nil without
// reopening when already started. An acquisition failure is returned to the
// caller and logged; capture stays inactive.
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.src != nil {
		slog.Warn("capture: already started")
		return nil
	}

	src, err := c.open(c.opts.Format)
	if err != nil {
		slog.Error("capture: device acquisition failed", "err", err)
		return err
	}

	c.src = src
	c.done = make(chan struct{})
	c.closed = make(chan struct{})
	go c.loop(src, c.done, c.closed)
	return nil
}

// Running reports whether the capture loop is active.
func (c *Capture) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil
}

// Level returns the current [0,1] amplitude scalar. 0 while stopped.
func (c *Capture) Level() float64 {
	return math.Float64frombits(c.level.Load())
}

// Stop releases the source and resets the level. Safe to call repeatedly
// and on a never-started Capture.
func (c *Capture) Stop() {
	c.mu.Lock()
	src, done, closed := c.src, c.done, c.closed
	c.src, c.done, c.closed = nil, nil, nil
	c.mu.Unlock()

	if src == nil {
		return
	}
	close(done)
	if err := src.Close(); err != nil {
		slog.Warn("capture: source close failed", "err", err)
	}
	<-closed
	c.level.Store(0)
}

func (c *Capture) loop(src Source, done <-chan struct{}, closed chan<- struct{}) {
	defer close(closed)

	frame := make([]int16, FrameSize)
	filled := 0
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := src.Read(frame[filled:])
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Warn("capture: read failed", "err", err)
			}
			return
		}
		filled += n
		if filled < FrameSize {
			continue
		}
		filled = 0

		c.level.Store(math.Float64bits(pcm.Level(pcm.RMS(frame), c.opts.Gain)))
		if c.opts.OnFrame != nil {
			out := make([]int16, FrameSize)
			copy(out, frame)
			c.opts.OnFrame(out)
		}
	}
}
