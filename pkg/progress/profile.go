// Package progress tracks the active user profile and durable exposure state:
// which atoms and sound cards have been vocalized at least once, and the
// generated practice sequence overrides.
package progress

import "time"

// Theme is the UI theme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Language is the gloss language preference.
type Language string

const (
	LangCn Language = "cn"
	LangEn Language = "en"
)

// PressureVector holds five derived personality traits, each in [0,1].
type PressureVector struct {
	JudgmentFrequency float64 `json:"judgment_frequency"`
	Urgency           float64 `json:"urgency"`
	Abstraction       float64 `json:"abstraction"`
	Reversibility     float64 `json:"reversibility"`
	EmotionExpression float64 `json:"emotion_expression"`
}

// UserProfile is the local identity. Created at first login, mutated in place
// for theme/language/registration, cleared on logout.
type UserProfile struct {
	Username     string         `json:"username"`
	Profession   string         `json:"profession"`
	Vector       PressureVector `json:"vector"`
	Theme        Theme          `json:"theme"`
	Language     Language       `json:"language"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	IsRegistered bool           `json:"isRegistered"`
	CreatedAt    int64          `json:"createdAt"` // unix milliseconds
}

// NewProfile creates a profile with the defaults applied at first login.
func NewProfile(username, profession string, now time.Time) *UserProfile {
	if profession == "" {
		profession = "Explorer"
	}
	return &UserProfile{
		Username:   username,
		Profession: profession,
		Vector:     DeriveVector(profession),
		Theme:      ThemeDark,
		Language:   LangCn,
		CreatedAt:  now.UnixMilli(),
	}
}

// DaysActive returns the 1-based number of days since the profile was
// created.
func (p *UserProfile) DaysActive(now time.Time) int {
	created := time.UnixMilli(p.CreatedAt)
	if now.Before(created) {
		return 1
	}
	return int(now.Sub(created).Hours()/24) + 1
}

// professionVectors maps known professions to their pressure vectors.
var professionVectors = map[string]PressureVector{
	"Engineer": {JudgmentFrequency: 0.8, Urgency: 0.4, Abstraction: 0.9, Reversibility: 0.3, EmotionExpression: 0.2},
	"Nurse":    {JudgmentFrequency: 0.3, Urgency: 0.9, Abstraction: 0.2, Reversibility: 0.1, EmotionExpression: 0.7},
	"Sales":    {JudgmentFrequency: 0.6, Urgency: 0.7, Abstraction: 0.5, Reversibility: 0.8, EmotionExpression: 0.9},
	"Student":  {JudgmentFrequency: 0.2, Urgency: 0.2, Abstraction: 0.6, Reversibility: 0.5, EmotionExpression: 0.4},
}

// DeriveVector returns the pressure vector for a profession, or a neutral
// mid-scale vector for unknown professions.
func DeriveVector(profession string) PressureVector {
	if v, ok := professionVectors[profession]; ok {
		return v
	}
	return PressureVector{
		JudgmentFrequency: 0.5,
		Urgency:           0.5,
		Abstraction:       0.5,
		Reversibility:     0.5,
		EmotionExpression: 0.5,
	}
}
