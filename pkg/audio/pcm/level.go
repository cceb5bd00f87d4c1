package pcm

import "math"

// DefaultLevelGain is the gain applied when mapping RMS amplitude to the
// [0,1] visualization scalar.
const DefaultLevelGain = 4.0

// RMS returns the root-mean-square amplitude of the samples, normalized
// to [0,1] relative to full scale. Returns 0 for an empty frame.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Level maps an RMS amplitude to a bounded visualization scalar:
// min(1, rms*gain). A gain <= 0 uses DefaultLevelGain.
func Level(rms, gain float64) float64 {
	if gain <= 0 {
		gain = DefaultLevelGain
	}
	if v := rms * gain; v < 1 {
		return v
	}
	return 1
}
