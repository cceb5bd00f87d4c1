// Package resampler converts mono 16-bit PCM between sample rates. The
// playback path uses it when the output device runs at a different rate than
// the 24 kHz audio produced by the speech services.
package resampler

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts mono int16 sample blocks from one sample rate to another.
// A nil Resampler (equal rates) passes samples through unchanged.
type Resampler struct {
	inner resampling.Resampler
}

// New creates a Resampler converting srcRate to dstRate. Returns nil when the
// rates are equal, which Convert treats as passthrough.
func New(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate {
		return nil, nil
	}
	inner, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	return &Resampler{inner: inner}, nil
}

// Convert resamples one block of mono samples. Safe on a nil receiver.
func (r *Resampler) Convert(samples []int16) ([]int16, error) {
	if r == nil || r.inner == nil {
		return samples, nil
	}
	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s) / 32768.0
	}
	output, err := r.inner.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	out := make([]int16, len(output))
	for i, v := range output {
		switch {
		case v > 1.0:
			out[i] = 32767
		case v < -1.0:
			out[i] = -32768
		default:
			out[i] = int16(v * 32767.0)
		}
	}
	return out, nil
}
