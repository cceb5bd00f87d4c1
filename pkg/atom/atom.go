// Package atom defines the practice content model: verbal atoms (practice
// sentences), generation slots, sound cards, and the pool alternation that
// orders them into a practice sequence.
package atom

import (
	"sort"
	"strconv"
	"strings"
)

// Sample pool tags. The practice sequence strictly alternates between the
// two pools.
const (
	// PoolDaily tags everyday-life sentences (slots 1-180).
	PoolDaily = "日常生活"
	// PoolDialogue tags dialogue/action-beat sentences (slots 181-300).
	PoolDialogue = "对白·行动原子"
)

// VerbalAtom is one practice sentence with bilingual gloss and pronunciation
// aid. An atom with an empty Native sentence is a placeholder and never
// reaches the practice sequence.
type VerbalAtom struct {
	ID         string   `json:"id" yaml:"id"`
	SamplePool string   `json:"sample_pool" yaml:"sample_pool"`
	Role       string   `json:"role" yaml:"role"`
	Intent     string   `json:"intent" yaml:"intent"`
	IntentEn   string   `json:"intent_en" yaml:"intent_en"`
	Native     string   `json:"native" yaml:"native"`
	Fuzzy      string   `json:"fuzzy" yaml:"fuzzy"`
	Fallback   []string `json:"fallback" yaml:"fallback"`
	Keywords   []string `json:"keywords" yaml:"keywords"`
	Rhythm     string   `json:"rhythm" yaml:"rhythm"`
	Notes      string   `json:"notes" yaml:"notes"`

	// SlotID links the atom back to its generation slot, if any.
	SlotID string `json:"slotId,omitempty" yaml:"slot_id,omitempty"`
}

// WordCount returns the number of space-separated words in the native
// sentence. Used by the drill pacing.
func (a VerbalAtom) WordCount() int {
	return len(strings.Fields(a.Native))
}

// Span marks a half-open byte range [Start, End) inside the native sentence.
type Span struct {
	Start int
	End   int
}

// KeywordSpans returns the byte ranges of each keyword occurrence in the
// native sentence, in order, case-insensitively. Overlapping matches are
// skipped so the spans can be rendered as non-nested highlights.
func (a VerbalAtom) KeywordSpans() []Span {
	var spans []Span
	lower := strings.ToLower(a.Native)
	for _, kw := range a.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		for off := 0; ; {
			i := strings.Index(lower[off:], kw)
			if i < 0 {
				break
			}
			start := off + i
			spans = append(spans, Span{Start: start, End: start + len(kw)})
			off = start + len(kw)
		}
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	out := spans[:0]
	end := 0
	for _, sp := range spans {
		if sp.Start < end {
			continue
		}
		out = append(out, sp)
		end = sp.End
	}
	return out
}

// PoolForSlot returns the sample pool a slot id belongs to. Slots 1
// through 180 are daily, 181 through 300 are dialogue/action.
func PoolForSlot(slotID string) string {
	n, _ := strconv.Atoi(slotID)
	if n > dailySlotMax {
		return PoolDialogue
	}
	return PoolDaily
}

// GenerationSlot is one of the 300 fixed pressure-point descriptors content
// can be generated for. Immutable.
type GenerationSlot struct {
	ID          string `json:"id" yaml:"id"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

// CardStatus is the exposure status of a sound card.
type CardStatus string

const (
	CardHidden  CardStatus = "hidden"
	CardExposed CardStatus = "exposed"
	CardActive  CardStatus = "active"
)

// SoundCard is a pronunciation drill: a practice line plus phonetic guidance.
type SoundCard struct {
	ID           string     `json:"id" yaml:"id"`
	Target       string     `json:"target" yaml:"target"`
	TargetCn     string     `json:"targetCn,omitempty" yaml:"target_cn,omitempty"`
	WhyHard      string     `json:"whyHard" yaml:"why_hard"`
	PracticeLine string     `json:"practiceLine" yaml:"practice_line"`
	CommMode     string     `json:"commMode" yaml:"comm_mode"`
	AccentNote   string     `json:"accentNote" yaml:"accent_note"`
	SecretRules  string     `json:"secretRules" yaml:"secret_rules"`
	Status       CardStatus `json:"status" yaml:"status"`
}

// WordCount returns the number of words in the practice line.
func (c SoundCard) WordCount() int {
	return len(strings.Fields(c.PracticeLine))
}

// BoundaryTheme groups themed quote cards for the secret-dialogue catalog.
type BoundaryTheme struct {
	Title       string      `json:"title" yaml:"title"`
	TitleEn     string      `json:"titleEn" yaml:"title_en"`
	Description string      `json:"description" yaml:"description"`
	Quotes      []SoundCard `json:"quotes" yaml:"quotes"`
}

// SpeakStatus maps a saturating per-sentence speak count to its feedback
// label. The count saturates at MaxSpeakCount.
func SpeakStatus(count int) string {
	switch {
	case count == 0:
		return "没开口"
	case count <= 2:
		return "开始了"
	case count <= 5:
		return "开口了"
	case count <= 9:
		return "还不错"
	default:
		return "很好了"
	}
}

// MaxSpeakCount is the saturation point of the per-sentence speak counter.
const MaxSpeakCount = 10
