package controller

import (
	"time"

	"codetrack/internal/tracker/model"
)

// CreateProblemRequest defines the add-problem payload.
type CreateProblemRequest struct {
	Title      string   `json:"title" binding:"required"`
	URL        string   `json:"url" binding:"required"`
	Topics     []string `json:"topics"`
	Difficulty string   `json:"difficulty"`
	Hint       string   `json:"hint"`
}

// UpdateProblemRequest defines the patch payload. Absent fields are left
// unchanged.
type UpdateProblemRequest struct {
	Title      *string   `json:"title"`
	URL        *string   `json:"url"`
	Topics     *[]string `json:"topics"`
	Difficulty *string   `json:"difficulty"`
	Hint       *string   `json:"hint"`
}

// ProblemView is a problem enriched with its progress state.
type ProblemView struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Topics      []string `json:"topics"`
	Difficulty  string   `json:"difficulty"`
	Hint        string   `json:"hint,omitempty"`
	IsStandard  bool     `json:"isStandard"`
	Completed   bool     `json:"completed"`
	RetryMarked bool     `json:"retryMarked"`
	HasNote     bool     `json:"hasNote"`
}

// ProblemListResponse wraps the problem list.
type ProblemListResponse struct {
	Problems []ProblemView `json:"problems"`
	Total    int           `json:"total"`
}

// DeleteProblemResponse reports a delete outcome.
type DeleteProblemResponse struct {
	ID      int  `json:"id"`
	Removed bool `json:"removed"`
}

// StatsResponse summarizes progress.
type StatsResponse struct {
	TotalProblems     int      `json:"total_problems"`
	StandardProblems  int      `json:"standard_problems"`
	Completed         int      `json:"completed"`
	CompletedStandard int      `json:"completed_standard"`
	RetryMarked       int      `json:"retry_marked"`
	Topics            []string `json:"topics"`
}

// SetCompletionRequest defines the completion-flag payload.
type SetCompletionRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

// SetRetryRequest defines the retry-marker payload.
type SetRetryRequest struct {
	Marked *bool `json:"marked" binding:"required"`
}

// NotesResponse carries a problem's notes. Text is empty when no note exists.
type NotesResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// PutNotesRequest defines the save-notes payload. Empty text clears the note.
type PutNotesRequest struct {
	Text string `json:"text"`
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// AddActivityRequest defines a custom activity entry.
type AddActivityRequest struct {
	Type string `json:"type" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// SessionResponse reports the current session state.
type SessionResponse struct {
	Identity string `json:"identity,omitempty"`
	SignedIn bool   `json:"signed_in"`
}

// LoginRequest carries the identity token. The Authorization header is
// accepted as an alternative.
type LoginRequest struct {
	Token string `json:"token"`
}

func toProblemView(p model.Problem, completed, retryMarked, hasNote bool) ProblemView {
	topics := p.Topics
	if topics == nil {
		topics = []string{}
	}
	return ProblemView{
		ID:          p.ID,
		Title:       p.Title,
		URL:         p.URL,
		Topics:      topics,
		Difficulty:  p.Difficulty,
		Hint:        p.Hint,
		IsStandard:  p.IsStandard,
		Completed:   completed,
		RetryMarked: retryMarked,
		HasNote:     hasNote,
	}
}

func toActivityResponses(entries []model.Activity) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ActivityResponse{Type: e.Type, Text: e.Text, Timestamp: e.Timestamp})
	}
	return out
}
