package model

import "strings"

// Difficulty levels accepted on add/update. Unknown values read from an old
// store are preserved but never produced.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// ValidDifficulty reports whether d is one of the accepted levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Problem represents one practice problem.
// Standard problems come from the catalog and are immutable; only
// user-added problems (IsStandard == false) may be edited or deleted.
type Problem struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"url"`
	Topics     []string `json:"topics"`
	Difficulty string   `json:"difficulty"`
	Hint       string   `json:"hint,omitempty"`
	IsStandard bool     `json:"isStandard"`
}

// TitleEquals reports whether the problem title matches, case-insensitively.
func (p Problem) TitleEquals(title string) bool {
	return strings.EqualFold(strings.TrimSpace(p.Title), strings.TrimSpace(title))
}

// ProblemPatch carries optional fields for an update. Nil means "leave as is".
type ProblemPatch struct {
	Title      *string   `json:"title,omitempty"`
	URL        *string   `json:"url,omitempty"`
	Topics     *[]string `json:"topics,omitempty"`
	Difficulty *string   `json:"difficulty,omitempty"`
	Hint       *string   `json:"hint,omitempty"`
}
