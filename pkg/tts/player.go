package tts

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
	"github.com/firstuse/dialogue/pkg/audio/resampler"
)

// Output plays one clip and is closed afterwards. Play blocks until
// the clip finishes or ctx is done.
type Output interface {
	Play(ctx context.Context, samples []int16, sampleRate int) error
	Close() error
}

// OutputOpener acquires a fresh short-lived Output per clip.
type OutputOpener func() (Output, error)

const defaultSynthesisTimeout = 30 * time.Second

// Player speaks sentences one at a time. A Say while a previous clip
// is still playing is dropped, and every failure is logged rather than
// surfaced; the only observable state is the Playing flag.
type Player struct {
	synth Synthesizer
	open  OutputOpener

	// OutputRate resamples clips before playback when nonzero and
	// different from the synthesis rate.
	OutputRate int

	// SynthesisTimeout bounds the remote request. Defaults to 30s.
	SynthesisTimeout time.Duration

	playing atomic.Bool
}

// NewPlayer creates a player over the given synthesizer and output
// opener.
func NewPlayer(synth Synthesizer, open OutputOpener) *Player {
	return &Player{synth: synth, open: open, SynthesisTimeout: defaultSynthesisTimeout}
}

// Playing reports whether a clip is being synthesized or played.
func (p *Player) Playing() bool {
	return p.playing.Load()
}

// Say synthesizes and plays one sentence, blocking until done. Errors
// are logged and swallowed; a Say during another Say is a no-op.
func (p *Player) Say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if !p.playing.CompareAndSwap(false, true) {
		slog.Debug("tts: already speaking, drop", "text", text)
		return
	}
	defer p.playing.Store(false)

	timeout := p.SynthesisTimeout
	if timeout <= 0 {
		timeout = defaultSynthesisTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	clip, err := p.synth.Synthesize(sctx, text)
	cancel()
	if err != nil {
		slog.Warn("tts: synthesis failed", "err", err)
		return
	}
	if len(clip) == 0 {
		return
	}

	rate := pcm.L16Mono24K.SampleRate()
	if p.OutputRate != 0 && p.OutputRate != rate {
		conv, err := resampler.New(rate, p.OutputRate)
		if err != nil {
			slog.Warn("tts: resampler unavailable", "err", err)
			return
		}
		if clip, err = conv.Convert(clip); err != nil {
			slog.Warn("tts: resample failed", "err", err)
			return
		}
		rate = p.OutputRate
	}

	out, err := p.open()
	if err != nil {
		slog.Warn("tts: output unavailable", "err", err)
		return
	}
	defer out.Close()
	if err := out.Play(ctx, clip, rate); err != nil {
		slog.Warn("tts: playback failed", "err", err)
	}
}
