// Package tts speaks single example sentences: one synthesis request,
// one 24 kHz clip, played through a short-lived output of its own. It
// never touches the live session's output clock.
package tts

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/firstuse/dialogue/pkg/audio/pcm"
)

// Synthesizer turns one sentence into a mono 24 kHz clip.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]int16, error)
}

const (
	// DefaultModel is the speech model used unless overridden.
	DefaultModel = "gemini-2.5-flash-preview-tts"

	// DefaultVoice is the prebuilt voice used unless overridden.
	DefaultVoice = "Kore"
)

// GeminiSynthesizer implements Synthesizer against the Gemini speech
// API.
type GeminiSynthesizer struct {
	Client *genai.Client

	// Model defaults to DefaultModel.
	Model string

	// Voice defaults to DefaultVoice.
	Voice string
}

var _ Synthesizer = (*GeminiSynthesizer)(nil)

// Synthesize requests one spoken rendition of text and returns the
// decoded 24 kHz samples.
func (g *GeminiSynthesizer) Synthesize(ctx context.Context, text string) ([]int16, error) {
	model := g.Model
	if model == "" {
		model = DefaultModel
	}
	voice := g.Voice
	if voice == "" {
		voice = DefaultVoice
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := g.Client.Models.GenerateContent(ctx, model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("tts: empty response")
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && len(p.InlineData.Data) > 0 {
			return pcm.DecodeInt16LE(p.InlineData.Data), nil
		}
	}
	return nil, fmt.Errorf("tts: response has no audio part")
}
