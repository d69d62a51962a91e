package controller

import (
	"fmt"
	"strings"
	"time"

	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/repository"
	"codetrack/internal/tracker/service"
	"codetrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProgressController handles completion flags, retry markers, notes and the
// activity log.
type ProgressController struct {
	registry *service.Registry
	engine   *service.Reconciler
	local    *repository.LocalRepository
}

// NewProgressController creates a new ProgressController.
func NewProgressController(registry *service.Registry, engine *service.Reconciler, local *repository.LocalRepository) *ProgressController {
	return &ProgressController{registry: registry, engine: engine, local: local}
}

// SetCompletion sets or clears a problem's completion flag.
func (h *ProgressController) SetCompletion(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.registry.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.engine.SetCompleted(c.Request.Context(), id, *req.Completed); err != nil {
		response.Error(c, err)
		return
	}

	if *req.Completed {
		h.recordActivity(c, model.ActivityCompleted, fmt.Sprintf("Completed %q", problem.Title))
	}
	response.Success(c, gin.H{"id": id, "completed": *req.Completed})
}

// SetRetry sets or clears a problem's retry marker.
func (h *ProgressController) SetRetry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SetRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.registry.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.engine.SetRetryMarked(c.Request.Context(), id, *req.Marked); err != nil {
		response.Error(c, err)
		return
	}

	if *req.Marked {
		h.recordActivity(c, model.ActivityRetry, fmt.Sprintf("Marked %q for retry", problem.Title))
	}
	response.Success(c, gin.H{"id": id, "marked": *req.Marked})
}

// GetNotes returns a problem's notes. A problem without notes yields an
// empty text, not an error.
func (h *ProgressController) GetNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.registry.Get(id); err != nil {
		response.Error(c, err)
		return
	}

	text, _, err := h.local.Note(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, NotesResponse{ID: id, Text: text})
}

// PutNotes saves a problem's notes. Empty text clears them.
func (h *ProgressController) PutNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PutNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.registry.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.engine.SaveNote(c.Request.Context(), id, req.Text); err != nil {
		response.Error(c, err)
		return
	}

	if strings.TrimSpace(req.Text) != "" {
		h.recordActivity(c, model.ActivityNote, fmt.Sprintf("Updated notes for %q", problem.Title))
	}
	response.Success(c, NotesResponse{ID: id, Text: req.Text})
}

// ListActivities returns the recent-activity log, newest first.
func (h *ProgressController) ListActivities(c *gin.Context) {
	entries, err := h.local.Activities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"activities": toActivityResponses(entries)})
}

// AddActivity records a custom activity entry.
func (h *ProgressController) AddActivity(c *gin.Context) {
	var req AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	entry := model.Activity{
		Type:      strings.TrimSpace(req.Type),
		Text:      strings.TrimSpace(req.Text),
		Timestamp: time.Now().UTC(),
	}
	if err := h.engine.AddActivity(c.Request.Context(), entry); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ActivityResponse{Type: entry.Type, Text: entry.Text, Timestamp: entry.Timestamp})
}

func (h *ProgressController) recordActivity(c *gin.Context, activityType, text string) {
	entry := model.Activity{Type: activityType, Text: text, Timestamp: time.Now().UTC()}
	_ = h.engine.AddActivity(c.Request.Context(), entry)
}
