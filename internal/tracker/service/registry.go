package service

import (
	"context"
	"sort"
	"strings"
	"sync"

	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/repository"
	pkgerrors "codetrack/pkg/errors"
	"codetrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Registry is the in-memory authoritative problem list for the current
// session, derived from the catalog loader and the reconciliation engine.
// It is an explicit session object, not a process-wide singleton; construct
// one per session and hand it to the view-layer adapters.
type Registry struct {
	mu     sync.Mutex
	local  *repository.LocalRepository
	engine *Reconciler

	catalog  []model.Problem
	problems []model.Problem
	nextID   int
}

// AddInput carries the fields for a new user-added problem.
type AddInput struct {
	Title      string
	URL        string
	Topics     []string
	Difficulty string
	Hint       string
}

// NewRegistry creates a Registry over the local repository and engine.
func NewRegistry(local *repository.LocalRepository, engine *Reconciler) *Registry {
	return &Registry{local: local, engine: engine}
}

// Initialize seeds the session with the loaded standard catalog, produces
// the problem list through the reconciliation engine, and derives the id
// counter.
func (r *Registry) Initialize(ctx context.Context, cat []model.Problem) error {
	r.engine.SetCatalog(cat)

	r.mu.Lock()
	r.catalog = cat
	r.mu.Unlock()

	return r.Reload(ctx)
}

// Catalog returns the standard catalog cached at initialization.
func (r *Registry) Catalog() []model.Problem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Problem(nil), r.catalog...)
}

// Reload refreshes the in-memory list from the reconciled local store and
// recomputes the id counter. Called after sign-in, sign-out and manual sync.
func (r *Registry) Reload(ctx context.Context) error {
	problems, err := r.engine.LoadProblems(ctx)
	if err != nil {
		return err
	}

	nextID := 1
	for _, p := range problems {
		if p.ID >= nextID {
			nextID = p.ID + 1
		}
	}
	// Prefer a previously persisted counter when it is larger, so ids
	// assigned in earlier sessions are never reused.
	if stored, ok, err := r.local.NextID(ctx); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
	} else if ok && stored > nextID {
		nextID = stored
	}

	r.mu.Lock()
	r.problems = problems
	r.nextID = nextID
	r.mu.Unlock()

	logger.Debug(ctx, "registry reloaded",
		zap.Int("problems", len(problems)), zap.Int("next_id", nextID))
	return nil
}

// List returns a copy of the session problem list.
func (r *Registry) List() []model.Problem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Problem(nil), r.problems...)
}

// Get returns the problem with the given id.
func (r *Registry) Get(id int) (model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.problems {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Problem{}, pkgerrors.New(pkgerrors.ProblemNotFound).WithDetail("id", id)
}

// Add creates a user-added problem. The title must not collide with an
// existing one, compared case-insensitively.
func (r *Registry) Add(ctx context.Context, input AddInput) (model.Problem, error) {
	if strings.TrimSpace(input.Title) == "" {
		return model.Problem{}, pkgerrors.ValidationError("title", "required")
	}
	if strings.TrimSpace(input.URL) == "" {
		return model.Problem{}, pkgerrors.ValidationError("url", "required")
	}
	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = model.DifficultyEasy
	}
	if !model.ValidDifficulty(difficulty) {
		return model.Problem{}, pkgerrors.New(pkgerrors.InvalidDifficulty).WithDetail("difficulty", input.Difficulty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.problems {
		if p.TitleEquals(input.Title) {
			return model.Problem{}, pkgerrors.New(pkgerrors.DuplicateProblem).WithDetail("title", input.Title)
		}
	}

	topics := input.Topics
	if topics == nil {
		topics = []string{}
	}
	problem := model.Problem{
		ID:         r.nextID,
		Title:      strings.TrimSpace(input.Title),
		URL:        strings.TrimSpace(input.URL),
		Topics:     topics,
		Difficulty: difficulty,
		Hint:       input.Hint,
		IsStandard: false,
	}

	updated := append(append([]model.Problem(nil), r.problems...), problem)
	if err := r.engine.Persist(ctx, updated, r.nextID+1); err != nil {
		return model.Problem{}, pkgerrors.Wrap(err, pkgerrors.ProblemCreateFailed)
	}
	r.problems = updated
	r.nextID++
	return problem, nil
}

// Update merges the patch over an existing user-added problem. The id is
// immutable and standard problems are refused.
func (r *Registry) Update(ctx context.Context, id int, patch model.ProblemPatch) (model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := -1
	for i, p := range r.problems {
		if p.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return model.Problem{}, pkgerrors.New(pkgerrors.ProblemNotFound).WithDetail("id", id)
	}
	if r.problems[index].IsStandard {
		return model.Problem{}, pkgerrors.New(pkgerrors.ProblemImmutable).WithDetail("id", id)
	}

	updated := r.problems[index]
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return model.Problem{}, pkgerrors.ValidationError("title", "required")
		}
		for i, p := range r.problems {
			if i != index && p.TitleEquals(title) {
				return model.Problem{}, pkgerrors.New(pkgerrors.DuplicateProblem).WithDetail("title", title)
			}
		}
		updated.Title = title
	}
	if patch.URL != nil {
		url := strings.TrimSpace(*patch.URL)
		if url == "" {
			return model.Problem{}, pkgerrors.ValidationError("url", "required")
		}
		updated.URL = url
	}
	if patch.Topics != nil {
		updated.Topics = *patch.Topics
	}
	if patch.Difficulty != nil {
		if !model.ValidDifficulty(*patch.Difficulty) {
			return model.Problem{}, pkgerrors.New(pkgerrors.InvalidDifficulty).WithDetail("difficulty", *patch.Difficulty)
		}
		updated.Difficulty = *patch.Difficulty
	}
	if patch.Hint != nil {
		updated.Hint = *patch.Hint
	}

	list := append([]model.Problem(nil), r.problems...)
	list[index] = updated
	if err := r.engine.Persist(ctx, list, r.nextID); err != nil {
		return model.Problem{}, pkgerrors.Wrap(err, pkgerrors.ProblemUpdateFailed)
	}
	r.problems = list
	return updated, nil
}

// Remove deletes a user-added problem. Removing a standard problem returns
// false without error and leaves the list unchanged; an unknown id is
// reported as not found.
func (r *Registry) Remove(ctx context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := -1
	for i, p := range r.problems {
		if p.ID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return false, pkgerrors.New(pkgerrors.ProblemNotFound).WithDetail("id", id)
	}
	if r.problems[index].IsStandard {
		return false, nil
	}

	list := append([]model.Problem(nil), r.problems[:index]...)
	list = append(list, r.problems[index+1:]...)
	if err := r.engine.Persist(ctx, list, r.nextID); err != nil {
		return false, pkgerrors.Wrap(err, pkgerrors.ProblemDeleteFailed)
	}
	r.problems = list
	return true, nil
}

// CountCompleted counts completed problems, optionally restricted to the
// standard catalog.
func (r *Registry) CountCompleted(ctx context.Context, standardOnly bool) (int, error) {
	count := 0
	for _, p := range r.List() {
		if standardOnly && !p.IsStandard {
			continue
		}
		done, err := r.local.Completed(ctx, p.ID)
		if err != nil {
			return 0, pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
		}
		if done {
			count++
		}
	}
	return count, nil
}

// CountRetryMarked counts problems marked for retry.
func (r *Registry) CountRetryMarked(ctx context.Context) (int, error) {
	count := 0
	for _, p := range r.List() {
		marked, err := r.local.RetryMarked(ctx, p.ID)
		if err != nil {
			return 0, pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
		}
		if marked {
			count++
		}
	}
	return count, nil
}

// AllTopics returns the deduplicated, lexicographically sorted topics of
// every problem in the session list.
func (r *Registry) AllTopics() []string {
	seen := make(map[string]struct{})
	for _, p := range r.List() {
		for _, topic := range p.Topics {
			seen[topic] = struct{}{}
		}
	}
	topics := make([]string, 0, len(seen))
	for topic := range seen {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// NextID returns the id the next added problem would receive.
func (r *Registry) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextID
}
