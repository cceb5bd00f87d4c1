// Package cli renders the terminal practice views.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for the terminal views.
type Theme struct {
	Primary lipgloss.Color // main accent color
	Accent  lipgloss.Color // secondary highlight (keywords, meters)
	Dim     lipgloss.Color // dimmed/help text color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Accent:  lipgloss.Color("#ffd866"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title    lipgloss.Style
	Sentence lipgloss.Style
	Label    lipgloss.Style
	Accent   lipgloss.Style
	Border   lipgloss.Style
	Help     lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Sentence: lipgloss.NewStyle().Bold(true),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Accent:   lipgloss.NewStyle().Foreground(t.Accent),
		Border:   lipgloss.NewStyle().Foreground(t.Primary),
		Help:     lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// PracticeView is one frame of the interactive practice screen.
type PracticeView struct {
	Sentence string
	// Spans are byte ranges of Sentence to highlight as keywords.
	Spans [][2]int
	Gloss string
	Fuzzy string

	Set, Rep  int
	Remaining float64

	SpeakStatus string
	Caught      bool
	Level       float64
	Responses   []string
	Busy        bool
}

// RenderPractice draws the practice screen at the given width.
func (s Styles) RenderPractice(v PracticeView, width int) string {
	if width < 20 {
		width = 20
	}
	inner := width - 2

	var lines []string
	border := s.Border
	row := func(content string) {
		pad := max(0, inner-1-lipgloss.Width(content))
		lines = append(lines, border.Render("│")+" "+content+
			strings.Repeat(" ", pad)+border.Render("│"))
	}

	lines = append(lines, border.Render("╭"+strings.Repeat("─", inner)+"╮"))

	status := fmt.Sprintf("组 %d/10 · 次 %d/5 · %.1fs", v.Set, v.Rep, v.Remaining)
	if v.Busy {
		status += " · 生成中…"
	}
	title := s.Title.Render("开口") + " " + s.Help.Render(status)
	row(title)
	row("")
	row(s.Highlight(v.Sentence, v.Spans))
	if v.Gloss != "" {
		row(s.Help.Render(v.Gloss))
	}
	if v.Fuzzy != "" {
		row(s.Accent.Render(v.Fuzzy))
	}
	row("")

	meter := Meter(v.Level, inner-14)
	ack := " "
	if v.Caught {
		ack = "✓"
	}
	row(s.Label.Render("说 ") + s.Accent.Render(meter) + " " + ack + " " + s.Help.Render(v.SpeakStatus))

	if len(v.Responses) > 0 {
		row("")
		for _, r := range v.Responses {
			row(s.Help.Render("· " + truncateTo(r, inner-5)))
		}
	}

	lines = append(lines, border.Render("╰"+strings.Repeat("─", inner)+"╯"))
	return strings.Join(lines, "\n")
}

// Highlight renders text with the given byte ranges in the accent style.
// Ranges must be sorted and non-overlapping; out-of-bounds ranges are
// clamped.
func (s Styles) Highlight(text string, spans [][2]int) string {
	if len(spans) == 0 {
		return s.Sentence.Render(text)
	}
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		start, end := sp[0], sp[1]
		if start < pos {
			start = pos
		}
		if end > len(text) {
			end = len(text)
		}
		if start >= end {
			continue
		}
		b.WriteString(s.Sentence.Render(text[pos:start]))
		b.WriteString(s.Accent.Bold(true).Render(text[start:end]))
		pos = end
	}
	b.WriteString(s.Sentence.Render(text[pos:]))
	return b.String()
}

// Meter renders a [0,1] amplitude as a fixed-width bar.
func Meter(level float64, width int) string {
	if width < 1 {
		width = 1
	}
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ProgressMap renders exposure as a compact cell map, one cell per
// item, exposed cells filled.
func (s Styles) ProgressMap(total int, exposed map[int]bool, perRow int) string {
	if perRow < 1 {
		perRow = 30
	}
	var b strings.Builder
	for i := 0; i < total; i++ {
		if i > 0 && i%perRow == 0 {
			b.WriteString("\n")
		}
		if exposed[i] {
			b.WriteString(s.Accent.Render("■"))
		} else {
			b.WriteString(s.Help.Render("·"))
		}
	}
	return b.String()
}

func truncateTo(str string, n int) string {
	if n < 1 || lipgloss.Width(str) <= n {
		return str
	}
	runes := []rune(str)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > n-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
