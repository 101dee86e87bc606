package domain

import "fmt"

// Mood is a target atmosphere. It selects the places-search query and is
// the dimension the scoring engine ranks against.
type Mood string

const (
	MoodChill Mood = "chill"
	MoodParty Mood = "party"
	MoodFocus Mood = "focus"
)

// ParseMood validates a raw mood string.
func ParseMood(s string) (Mood, error) {
	switch Mood(s) {
	case MoodChill, MoodParty, MoodFocus:
		return Mood(s), nil
	}
	return "", fmt.Errorf("unknown mood %q: %w", s, ErrBadRequest)
}

// MoodQueries maps each mood to its fixed bilingual places-search text query.
var MoodQueries = map[Mood]string{
	MoodChill: "静かな カフェ 落ち着いた雰囲気 quiet cozy cafe",
	MoodParty: "にぎやか バー ナイトライフ 音楽 lively bar nightlife",
	MoodFocus: "作業 カフェ ワークスペース 静か workspace cafe for work",
}

// MoodScore is the per-mood atmosphere rating triple, each value in [0,100].
// Absence of real data is represented by NeutralMoodScore, never by omission.
type MoodScore struct {
	Chill float64 `json:"chill"`
	Party float64 `json:"party"`
	Focus float64 `json:"focus"`
}

// For returns the value for the requested mood.
func (m MoodScore) For(mood Mood) float64 {
	switch mood {
	case MoodParty:
		return m.Party
	case MoodFocus:
		return m.Focus
	default:
		return m.Chill
	}
}

// IsZero reports whether the triple is entirely unset. Used to detect cache
// rows written before the score triple existed.
func (m MoodScore) IsZero() bool {
	return m.Chill == 0 && m.Party == 0 && m.Focus == 0
}

// NeutralMoodScore is the fixed default for missing data.
func NeutralMoodScore() MoodScore {
	return MoodScore{Chill: 50, Party: 50, Focus: 50}
}
