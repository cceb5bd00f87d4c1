// Package matrix generates personalized practice sentences for the
// priority generation slots and merges them back into the practice
// sequence.
package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"

	"github.com/firstuse/dialogue/pkg/atom"
)

// Request describes one slot to personalize.
type Request struct {
	Profession string
	Slot       atom.GenerationSlot
}

// Generator produces one practice sentence for a slot. Implementations
// return an error for remote failures and for responses missing the
// required fields.
type Generator interface {
	GenerateAtom(ctx context.Context, req Request) (*atom.VerbalAtom, error)
}

// DefaultModel is the generation model used unless overridden.
const DefaultModel = "gemini-2.5-flash"

// GeminiGenerator implements Generator against the Gemini API.
type GeminiGenerator struct {
	Client *genai.Client

	// Model should not start with "models/". Defaults to DefaultModel.
	Model string
}

var _ Generator = (*GeminiGenerator)(nil)

// generated is the wire shape of a slot response. Native and Intent
// are required; the rest enrich the atom when present.
type generated struct {
	Native   string   `json:"native"`
	Intent   string   `json:"intent"`
	Role     string   `json:"role,omitempty"`
	Fuzzy    string   `json:"fuzzy,omitempty"`
	Fallback []string `json:"fallback,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"native":   {Type: genai.TypeString, Description: "the practice sentence, at most 7 words"},
		"intent":   {Type: genai.TypeString, Description: "one-line gloss of the sentence's intent"},
		"role":     {Type: genai.TypeString},
		"fuzzy":    {Type: genai.TypeString, Description: "phonetic hint for the sentence"},
		"fallback": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"keywords": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"notes":    {Type: genai.TypeString},
	},
	Required: []string{"native", "intent"},
}

func (g *GeminiGenerator) model() string {
	if g.Model != "" {
		return g.Model
	}
	return DefaultModel
}

// GenerateAtom requests one sentence for the slot and validates the
// response.
func (g *GeminiGenerator) GenerateAtom(ctx context.Context, req Request) (*atom.VerbalAtom, error) {
	prompt := buildPrompt(req)
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	}
	resp, err := g.Client.Models.GenerateContent(ctx, g.model(), genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("matrix: generate slot %s: %w", req.Slot.ID, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("matrix: slot %s: empty response", req.Slot.ID)
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return parseGenerated(req.Slot, sb.String())
}

func buildPrompt(req Request) string {
	profession := req.Profession
	if profession == "" {
		profession = "Explorer"
	}
	return fmt.Sprintf(
		"You write one short English practice sentence for a %s learning to speak up.\n"+
			"Pressure point: %s (category: %s).\n"+
			"The sentence must be natural, first person, at most 7 words.\n"+
			"Return JSON with fields native (the sentence) and intent (a one-line gloss), "+
			"plus optional fuzzy, fallback, keywords, notes.",
		profession, req.Slot.Description, req.Slot.Category)
}

// parseGenerated turns raw model text into a slot-tagged atom. Damaged
// JSON gets one repair attempt before failing.
func parseGenerated(slot atom.GenerationSlot, raw string) (*atom.VerbalAtom, error) {
	var g generated
	if err := unmarshalRepaired([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("matrix: slot %s: malformed response: %w", slot.ID, err)
	}
	if strings.TrimSpace(g.Native) == "" || strings.TrimSpace(g.Intent) == "" {
		return nil, fmt.Errorf("matrix: slot %s: response missing required fields", slot.ID)
	}
	role := g.Role
	if role == "" {
		role = slot.Category
	}
	pool := atom.PoolForSlot(slot.ID)
	return &atom.VerbalAtom{
		ID:         "atom-" + slot.ID,
		SamplePool: pool,
		Role:       role,
		Intent:     g.Intent,
		IntentEn:   slot.Description,
		Native:     strings.TrimSpace(g.Native),
		Fuzzy:      g.Fuzzy,
		Fallback:   g.Fallback,
		Keywords:   g.Keywords,
		Notes:      g.Notes,
		SlotID:     slot.ID,
	}, nil
}

func unmarshalRepaired(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
