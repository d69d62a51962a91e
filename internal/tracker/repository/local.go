package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"codetrack/internal/common/kv"
	"codetrack/internal/tracker/model"
)

// Local key layout, one independent unit per key:
//
//	problems    JSON array of problems
//	nextId      stringified integer
//	q<id>       completion flag, boolean string
//	retry-<id>  retry marker, presence = marked
//	notes_<id>  raw note text
//	activities  JSON array, newest first, capped at 20
const (
	keyProblems    = "problems"
	keyNextID      = "nextId"
	keyActivities  = "activities"
	prefixComplete = "q"
	prefixRetry    = "retry-"
	prefixNotes    = "notes_"
)

// LocalRepository is the durable per-device state adapter over the key-value
// store. It owns the key layout and JSON encoding; it has no merge logic.
type LocalRepository struct {
	store kv.Store
}

// NewLocalRepository creates a repository over the given store.
func NewLocalRepository(store kv.Store) *LocalRepository {
	return &LocalRepository{store: store}
}

// Problems returns the stored problem list. The second result is false when
// no list has ever been saved.
func (r *LocalRepository) Problems(ctx context.Context) ([]model.Problem, bool, error) {
	raw, err := r.store.Get(ctx, keyProblems)
	if err == kv.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get problems failed: %w", err)
	}
	var problems []model.Problem
	if err := json.Unmarshal([]byte(raw), &problems); err != nil {
		return nil, false, fmt.Errorf("parse problems failed: %w", err)
	}
	return problems, true, nil
}

// SaveProblems stores the full list and, when the list is non-empty, bumps
// nextId to max(id)+1 so it stays strictly above every stored id.
func (r *LocalRepository) SaveProblems(ctx context.Context, problems []model.Problem) error {
	if problems == nil {
		problems = []model.Problem{}
	}
	raw, err := json.Marshal(problems)
	if err != nil {
		return fmt.Errorf("marshal problems failed: %w", err)
	}
	if err := r.store.Set(ctx, keyProblems, string(raw)); err != nil {
		return fmt.Errorf("save problems failed: %w", err)
	}

	if len(problems) > 0 {
		maxID := problems[0].ID
		for _, p := range problems[1:] {
			if p.ID > maxID {
				maxID = p.ID
			}
		}
		if err := r.SetNextID(ctx, maxID+1); err != nil {
			return err
		}
	}
	return nil
}

// NextID returns the persisted id counter, or false when absent.
func (r *LocalRepository) NextID(ctx context.Context) (int, bool, error) {
	raw, err := r.store.Get(ctx, keyNextID)
	if err == kv.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get nextId failed: %w", err)
	}
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, nil // treat a corrupt counter as absent, it gets recomputed
	}
	return id, true, nil
}

// SetNextID persists the id counter.
func (r *LocalRepository) SetNextID(ctx context.Context, id int) error {
	if err := r.store.Set(ctx, keyNextID, strconv.Itoa(id)); err != nil {
		return fmt.Errorf("save nextId failed: %w", err)
	}
	return nil
}

// Completed reports whether the problem is marked done.
func (r *LocalRepository) Completed(ctx context.Context, id int) (bool, error) {
	raw, err := r.store.Get(ctx, prefixComplete+strconv.Itoa(id))
	if err == kv.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get completion failed: %w", err)
	}
	return raw == "true", nil
}

// SetCompleted records the completion flag.
func (r *LocalRepository) SetCompleted(ctx context.Context, id int, done bool) error {
	if err := r.store.Set(ctx, prefixComplete+strconv.Itoa(id), strconv.FormatBool(done)); err != nil {
		return fmt.Errorf("save completion failed: %w", err)
	}
	return nil
}

// RetryMarked reports whether the problem is marked for retry.
func (r *LocalRepository) RetryMarked(ctx context.Context, id int) (bool, error) {
	raw, err := r.store.Get(ctx, prefixRetry+strconv.Itoa(id))
	if err == kv.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get retry marker failed: %w", err)
	}
	return raw == "true", nil
}

// SetRetryMarked adds or removes the retry marker; unmarking deletes the key.
func (r *LocalRepository) SetRetryMarked(ctx context.Context, id int, marked bool) error {
	key := prefixRetry + strconv.Itoa(id)
	if marked {
		if err := r.store.Set(ctx, key, "true"); err != nil {
			return fmt.Errorf("save retry marker failed: %w", err)
		}
		return nil
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove retry marker failed: %w", err)
	}
	return nil
}

// Note returns the note text for a problem; false when no note exists.
func (r *LocalRepository) Note(ctx context.Context, id int) (string, bool, error) {
	raw, err := r.store.Get(ctx, prefixNotes+strconv.Itoa(id))
	if err == kv.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get note failed: %w", err)
	}
	return raw, true, nil
}

// SaveNote stores the note text. Saving an empty note deletes the key:
// absence and empty are the same thing for sync purposes.
func (r *LocalRepository) SaveNote(ctx context.Context, id int, text string) error {
	key := prefixNotes + strconv.Itoa(id)
	if text == "" {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("remove note failed: %w", err)
		}
		return nil
	}
	if err := r.store.Set(ctx, key, text); err != nil {
		return fmt.Errorf("save note failed: %w", err)
	}
	return nil
}

// Activities returns the recent-activity log, newest first.
func (r *LocalRepository) Activities(ctx context.Context) ([]model.Activity, error) {
	raw, err := r.store.Get(ctx, keyActivities)
	if err == kv.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activities failed: %w", err)
	}
	var activities []model.Activity
	if err := json.Unmarshal([]byte(raw), &activities); err != nil {
		return nil, fmt.Errorf("parse activities failed: %w", err)
	}
	return activities, nil
}

// SaveActivities stores the full activity log, trimmed to the cap.
func (r *LocalRepository) SaveActivities(ctx context.Context, activities []model.Activity) error {
	if len(activities) > model.MaxActivities {
		activities = activities[:model.MaxActivities]
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	raw, err := json.Marshal(activities)
	if err != nil {
		return fmt.Errorf("marshal activities failed: %w", err)
	}
	if err := r.store.Set(ctx, keyActivities, string(raw)); err != nil {
		return fmt.Errorf("save activities failed: %w", err)
	}
	return nil
}

// AddActivity prepends an entry and trims the log to the cap.
func (r *LocalRepository) AddActivity(ctx context.Context, entry model.Activity) error {
	activities, err := r.Activities(ctx)
	if err != nil {
		return err
	}
	return r.SaveActivities(ctx, model.PushActivity(activities, entry))
}

// CompletionMap assembles the whole completions category for the given ids.
func (r *LocalRepository) CompletionMap(ctx context.Context, ids []int) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		done, err := r.Completed(ctx, id)
		if err != nil {
			return nil, err
		}
		out[strconv.Itoa(id)] = done
	}
	return out, nil
}

// RetryMap assembles the whole retries category for the given ids.
// Only marked ids are present, mirroring the presence-based local keys.
func (r *LocalRepository) RetryMap(ctx context.Context, ids []int) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range ids {
		marked, err := r.RetryMarked(ctx, id)
		if err != nil {
			return nil, err
		}
		if marked {
			out[strconv.Itoa(id)] = true
		}
	}
	return out, nil
}

// NotesMap assembles the whole notes category for the given ids.
// Empty or absent notes are not included.
func (r *LocalRepository) NotesMap(ctx context.Context, ids []int) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		text, ok, err := r.Note(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok && text != "" {
			out[strconv.Itoa(id)] = text
		}
	}
	return out, nil
}

// ReplaceCompletions overwrites the whole completions category from a remote
// document: existing flags are cleared first, then the map is applied.
func (r *LocalRepository) ReplaceCompletions(ctx context.Context, flags map[string]bool) error {
	if err := r.deleteByPrefix(ctx, prefixComplete); err != nil {
		return err
	}
	for idStr, done := range flags {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		if err := r.SetCompleted(ctx, id, done); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceRetries overwrites the whole retries category.
func (r *LocalRepository) ReplaceRetries(ctx context.Context, flags map[string]bool) error {
	if err := r.deleteByPrefix(ctx, prefixRetry); err != nil {
		return err
	}
	for idStr, marked := range flags {
		id, err := strconv.Atoi(idStr)
		if err != nil || !marked {
			continue
		}
		if err := r.SetRetryMarked(ctx, id, true); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceNotes overwrites the whole notes category.
func (r *LocalRepository) ReplaceNotes(ctx context.Context, notes map[string]string) error {
	if err := r.deleteByPrefix(ctx, prefixNotes); err != nil {
		return err
	}
	for idStr, text := range notes {
		id, err := strconv.Atoi(idStr)
		if err != nil || text == "" {
			continue
		}
		if err := r.SaveNote(ctx, id, text); err != nil {
			return err
		}
	}
	return nil
}

// PruneOrphans removes flags and notes whose problem id is no longer in the
// list. Called after every reload so per-problem keys never outlive their
// problem.
func (r *LocalRepository) PruneOrphans(ctx context.Context, ids []int) error {
	live := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		live[strconv.Itoa(id)] = struct{}{}
	}

	for _, prefix := range []string{prefixComplete, prefixRetry, prefixNotes} {
		keys, err := r.store.Keys(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list %s keys failed: %w", prefix, err)
		}
		for _, key := range keys {
			idStr := strings.TrimPrefix(key, prefix)
			// The "q" prefix also matches nothing else in the layout, but
			// guard against non-numeric suffixes anyway.
			if _, err := strconv.Atoi(idStr); err != nil {
				continue
			}
			if _, ok := live[idStr]; ok {
				continue
			}
			if err := r.store.Delete(ctx, key); err != nil {
				return fmt.Errorf("prune %s failed: %w", key, err)
			}
		}
	}
	return nil
}

func (r *LocalRepository) deleteByPrefix(ctx context.Context, prefix string) error {
	keys, err := r.store.Keys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list %s keys failed: %w", prefix, err)
	}
	for _, key := range keys {
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s failed: %w", key, err)
		}
	}
	return nil
}
