package controller

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/repository"
	"codetrack/internal/tracker/service"
	"codetrack/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// ProblemController handles problem CRUD and stats endpoints.
type ProblemController struct {
	registry *service.Registry
	engine   *service.Reconciler
	local    *repository.LocalRepository
}

// NewProblemController creates a new ProblemController.
func NewProblemController(registry *service.Registry, engine *service.Reconciler, local *repository.LocalRepository) *ProblemController {
	return &ProblemController{registry: registry, engine: engine, local: local}
}

// List returns the session problem list enriched with per-problem progress.
// Supports optional topic and difficulty query filters.
func (h *ProblemController) List(c *gin.Context) {
	problems := h.registry.List()
	views, err := h.buildViews(c, problems)
	if err != nil {
		response.Error(c, err)
		return
	}

	topic := strings.TrimSpace(c.Query("topic"))
	difficulty := strings.TrimSpace(c.Query("difficulty"))
	if topic != "" || difficulty != "" {
		filtered := make([]ProblemView, 0, len(views))
		for _, v := range views {
			if difficulty != "" && !strings.EqualFold(v.Difficulty, difficulty) {
				continue
			}
			if topic != "" && !hasTopic(v.Topics, topic) {
				continue
			}
			filtered = append(filtered, v)
		}
		views = filtered
	}

	response.Success(c, ProblemListResponse{Problems: views, Total: len(views)})
}

// Get returns one problem with its progress state.
func (h *ProblemController) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	problem, err := h.registry.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.buildView(c, problem)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Create adds a user problem.
func (h *ProblemController) Create(c *gin.Context) {
	var req CreateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.registry.Add(c.Request.Context(), service.AddInput{
		Title:      strings.TrimSpace(req.Title),
		URL:        strings.TrimSpace(req.URL),
		Topics:     req.Topics,
		Difficulty: req.Difficulty,
		Hint:       req.Hint,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordActivity(c, model.ActivityAdded, fmt.Sprintf("Added %q", problem.Title))
	response.Success(c, toProblemView(problem, false, false, false))
}

// Update patches a user problem. Standard problems are refused.
func (h *ProblemController) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	problem, err := h.registry.Update(c.Request.Context(), id, model.ProblemPatch{
		Title:      req.Title,
		URL:        req.URL,
		Topics:     req.Topics,
		Difficulty: req.Difficulty,
		Hint:       req.Hint,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.recordActivity(c, model.ActivityUpdated, fmt.Sprintf("Updated %q", problem.Title))
	view, err := h.buildView(c, problem)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Delete removes a user problem. Removing a standard problem is a no-op
// reported as removed=false.
func (h *ProblemController) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	problem, err := h.registry.Get(id)
	if err != nil {
		response.Error(c, err)
		return
	}

	removed, err := h.registry.Remove(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if removed {
		h.recordActivity(c, model.ActivityDeleted, fmt.Sprintf("Deleted %q", problem.Title))
	}
	response.Success(c, DeleteProblemResponse{ID: id, Removed: removed})
}

// Stats summarizes progress across the problem list.
func (h *ProblemController) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	completedAll, err := h.registry.CountCompleted(ctx, false)
	if err != nil {
		response.Error(c, err)
		return
	}
	completedStandard, err := h.registry.CountCompleted(ctx, true)
	if err != nil {
		response.Error(c, err)
		return
	}
	retryCount, err := h.registry.CountRetryMarked(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	list := h.registry.List()
	standardTotal := 0
	for _, p := range list {
		if p.IsStandard {
			standardTotal++
		}
	}

	response.Success(c, StatsResponse{
		TotalProblems:     len(list),
		StandardProblems:  standardTotal,
		Completed:         completedAll,
		CompletedStandard: completedStandard,
		RetryMarked:       retryCount,
		Topics:            h.registry.AllTopics(),
	})
}

func (h *ProblemController) buildViews(c *gin.Context, problems []model.Problem) ([]ProblemView, error) {
	ctx := c.Request.Context()
	ids := make([]int, 0, len(problems))
	for _, p := range problems {
		ids = append(ids, p.ID)
	}

	completions, err := h.local.CompletionMap(ctx, ids)
	if err != nil {
		return nil, err
	}
	retries, err := h.local.RetryMap(ctx, ids)
	if err != nil {
		return nil, err
	}
	notes, err := h.local.NotesMap(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]ProblemView, 0, len(problems))
	for _, p := range problems {
		key := strconv.Itoa(p.ID)
		_, hasNote := notes[key]
		views = append(views, toProblemView(p, completions[key], retries[key], hasNote))
	}
	return views, nil
}

func (h *ProblemController) buildView(c *gin.Context, problem model.Problem) (ProblemView, error) {
	ctx := c.Request.Context()
	completed, err := h.local.Completed(ctx, problem.ID)
	if err != nil {
		return ProblemView{}, err
	}
	retry, err := h.local.RetryMarked(ctx, problem.ID)
	if err != nil {
		return ProblemView{}, err
	}
	_, hasNote, err := h.local.Note(ctx, problem.ID)
	if err != nil {
		return ProblemView{}, err
	}
	return toProblemView(problem, completed, retry, hasNote), nil
}

func (h *ProblemController) recordActivity(c *gin.Context, activityType, text string) {
	entry := model.Activity{Type: activityType, Text: text, Timestamp: time.Now().UTC()}
	if err := h.engine.AddActivity(c.Request.Context(), entry); err != nil {
		// Activity logging never fails the request that caused it.
		return
	}
}

func parseID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		response.BadRequest(c, "Invalid problem id")
		return 0, false
	}
	return id, true
}

func hasTopic(topics []string, want string) bool {
	for _, t := range topics {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}
