package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"codetrack/internal/common/docstore"
	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/repository"
	pkgerrors "codetrack/pkg/errors"
	"codetrack/pkg/utils/logger"

	"go.uber.org/zap"
)

// Reconciler keeps the six data categories consistent between the local
// store and the remote document store whenever an identity is present, and
// keeps the problem list self-consistent (superset of the standard catalog)
// whenever it is absent.
//
// It holds no durable state of its own beyond the sync identity; everything
// durable lives in the local repository or the remote store. Categories are
// reconciled independently: a failed remote write degrades that category to
// local-only and never rolls back or blocks another category.
type Reconciler struct {
	mu      sync.Mutex
	local   *repository.LocalRepository
	remote  docstore.DocumentStore
	mirror  *MirrorQueue
	catalog []model.Problem

	// identity is the sync identity. Its presence is the sole gate for
	// any remote operation; absent means local-only and silent success.
	identity string
}

// configDoc is the remote body of the config category.
type configDoc struct {
	NextID int `json:"nextId"`
}

// NewReconciler creates a Reconciler with its own mirror queue.
func NewReconciler(local *repository.LocalRepository, remote docstore.DocumentStore) *Reconciler {
	return &Reconciler{
		local:  local,
		remote: remote,
		mirror: NewMirrorQueue(remote),
	}
}

// SetCatalog caches the standard catalog for superset enforcement.
func (r *Reconciler) SetCatalog(catalog []model.Problem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = catalog
}

// Identity returns the current sync identity, or "" when signed out.
func (r *Reconciler) Identity() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.identity
}

// Close drains outstanding mirror writes.
func (r *Reconciler) Close() {
	r.mirror.Close()
}

// OnIdentityChanged adapts the auth identity-change notification to the
// reconciliation triggers. Reconciliation errors are logged, not returned:
// the notification has no caller to report to.
func (r *Reconciler) OnIdentityChanged(ctx context.Context, identity string, signedIn bool) {
	if signedIn {
		if err := r.ReconcileOnSignIn(ctx, identity); err != nil {
			logger.Error(ctx, "sign-in reconciliation failed", zap.Error(err))
		}
		return
	}
	if err := r.ReconcileOnSignOut(ctx); err != nil {
		logger.Error(ctx, "sign-out reconciliation failed", zap.Error(err))
	}
}

// ReconcileOnSignIn merges local and remote state for the new identity.
//
// When the remote already holds a non-empty problem list it is the
// authoritative base; any standard-catalog problems missing from it are
// appended and the repaired list is written to both sides. When the remote
// is empty (first sync for this identity) the entire local state is pushed
// instead.
func (r *Reconciler) ReconcileOnSignIn(ctx context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if identity == "" {
		return pkgerrors.New(pkgerrors.InvalidParams).WithMessage("identity is required")
	}
	r.identity = identity

	remoteList, exists, err := r.fetchRemoteProblems(ctx, identity)
	if err != nil {
		// Remote unreachable: stay signed in, keep local state untouched.
		logger.Warn(ctx, "remote problems unavailable on sign-in, staying local-only", zap.Error(err))
		return r.ensureSupersetLocked(ctx)
	}

	if !exists || len(remoteList) == 0 {
		logger.Info(ctx, "remote store empty, pushing local state", zap.String("identity", identity))
		if err := r.ensureSupersetLocked(ctx); err != nil {
			return err
		}
		r.pushAllLocked(ctx, identity)
		return nil
	}

	merged, missing := r.mergeMissingStandard(remoteList)
	if len(missing) > 0 {
		logger.Info(ctx, "repairing remote list with missing standard problems",
			zap.String("identity", identity), zap.Int("missing", len(missing)))
		if err := r.local.SaveProblems(ctx, merged); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
		}
		if err := r.putRemoteProblems(ctx, identity, merged); err != nil {
			logger.Warn(ctx, "write repaired list to remote failed", zap.Error(err))
		}
	} else {
		// Adopt the remote list verbatim.
		if err := r.local.SaveProblems(ctx, remoteList); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
		}
	}

	r.pullCategoriesLocked(ctx, identity)
	return r.pruneLocked(ctx)
}

// ReconcileOnSignOut clears the identity and enforces the superset
// invariant locally. No remote calls are made.
func (r *Reconciler) ReconcileOnSignOut(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.identity = ""
	return r.ensureSupersetLocked(ctx)
}

// SyncNow pushes local state to remote for all six categories, then pulls
// remote back, in that fixed order. Requires a signed-in identity.
func (r *Reconciler) SyncNow(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.identity == "" {
		return pkgerrors.New(pkgerrors.SyncRequiresSignIn)
	}
	identity := r.identity

	r.pushAllLocked(ctx, identity)

	remoteList, exists, err := r.fetchRemoteProblems(ctx, identity)
	if err != nil {
		logger.Warn(ctx, "remote problems unavailable during sync", zap.Error(err))
	} else if exists && len(remoteList) > 0 {
		merged, missing := r.mergeMissingStandard(remoteList)
		if err := r.local.SaveProblems(ctx, merged); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
		}
		if len(missing) > 0 {
			if err := r.putRemoteProblems(ctx, identity, merged); err != nil {
				logger.Warn(ctx, "write repaired list to remote failed", zap.Error(err))
			}
		}
	}

	r.pullCategoriesLocked(ctx, identity)
	return r.pruneLocked(ctx)
}

// Persist writes the full problem list and id counter locally, then mirrors
// both to the remote store when signed in. The remote write is awaited but a
// failure is logged and swallowed: the local write is never undone.
func (r *Reconciler) Persist(ctx context.Context, problems []model.Problem, nextID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.SaveProblems(ctx, problems); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	// SaveProblems resets the counter to max(id)+1; keep a larger session
	// counter so assigned ids never regress after a deletion.
	stored, ok, err := r.local.NextID(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
	}
	if nextID > 0 && (!ok || nextID > stored) {
		if err := r.local.SetNextID(ctx, nextID); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
		}
		stored = nextID
	}

	if r.identity == "" {
		return nil
	}
	if err := r.putRemoteProblems(ctx, r.identity, problems); err != nil {
		logger.Warn(ctx, "mirror problems to remote failed, keeping local-only state", zap.Error(err))
	}
	if err := r.putRemoteConfig(ctx, r.identity, stored); err != nil {
		logger.Warn(ctx, "mirror config to remote failed, keeping local-only state", zap.Error(err))
	}
	return nil
}

// SetCompleted records a completion flag locally and mirrors the whole
// completions category to the remote store when signed in.
func (r *Reconciler) SetCompleted(ctx context.Context, id int, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.SetCompleted(ctx, id, done); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	r.mirrorCategoryLocked(ctx, model.CategoryCompletions)
	return nil
}

// SetRetryMarked records a retry marker locally and mirrors the whole
// retries category to the remote store when signed in.
func (r *Reconciler) SetRetryMarked(ctx context.Context, id int, marked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.SetRetryMarked(ctx, id, marked); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	r.mirrorCategoryLocked(ctx, model.CategoryRetries)
	return nil
}

// SaveNote stores a note locally and mirrors the whole notes category to
// the remote store when signed in.
func (r *Reconciler) SaveNote(ctx context.Context, id int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.SaveNote(ctx, id, text); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	r.mirrorCategoryLocked(ctx, model.CategoryNotes)
	return nil
}

// AddActivity appends to the activity log locally and mirrors the whole
// activities category to the remote store when signed in.
func (r *Reconciler) AddActivity(ctx context.Context, entry model.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.local.AddActivity(ctx, entry); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	r.mirrorCategoryLocked(ctx, model.CategoryActivities)
	return nil
}

// LoadProblems returns the local problem list with the superset invariant
// enforced and orphaned per-problem keys pruned. An empty store seeds from
// the standard catalog.
func (r *Reconciler) LoadProblems(ctx context.Context) ([]model.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureSupersetLocked(ctx); err != nil {
		return nil, err
	}
	if err := r.pruneLocked(ctx); err != nil {
		return nil, err
	}
	problems, _, err := r.local.Problems(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
	}
	return problems, nil
}

// WaitForMirror blocks until all detached remote writes have been attempted.
func (r *Reconciler) WaitForMirror() {
	r.mirror.Wait()
}

// ----- internals (callers hold r.mu) -----

// ensureSupersetLocked appends any standard-catalog problem missing from
// the local list and persists if something changed. Standard problems are
// appended, never removed; user-added problems are never pruned.
func (r *Reconciler) ensureSupersetLocked(ctx context.Context) error {
	problems, exists, err := r.local.Problems(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
	}
	if !exists {
		if len(r.catalog) == 0 {
			return nil
		}
		seeded := append([]model.Problem(nil), r.catalog...)
		if err := r.local.SaveProblems(ctx, seeded); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
		}
		return nil
	}

	merged, missing := r.mergeMissingStandard(problems)
	if len(missing) == 0 {
		return nil
	}
	if err := r.local.SaveProblems(ctx, merged); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	return nil
}

// mergeMissingStandard appends catalog problems missing from list by id,
// preserving list order. Returns the merged list and the appended problems.
func (r *Reconciler) mergeMissingStandard(list []model.Problem) ([]model.Problem, []model.Problem) {
	present := make(map[int]struct{}, len(list))
	for _, p := range list {
		present[p.ID] = struct{}{}
	}
	var missing []model.Problem
	for _, p := range r.catalog {
		if _, ok := present[p.ID]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return list, nil
	}
	merged := make([]model.Problem, 0, len(list)+len(missing))
	merged = append(merged, list...)
	merged = append(merged, missing...)
	return merged, missing
}

func (r *Reconciler) pruneLocked(ctx context.Context) error {
	problems, _, err := r.local.Problems(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreGetError)
	}
	ids := problemIDs(problems)
	if err := r.local.PruneOrphans(ctx, ids); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.LocalStoreSetError)
	}
	return nil
}

// pushAllLocked pushes all six categories local -> remote. Each category is
// independently attempted; failures are logged and do not block the rest.
func (r *Reconciler) pushAllLocked(ctx context.Context, identity string) {
	problems, _, err := r.local.Problems(ctx)
	if err != nil {
		logger.Warn(ctx, "read local problems for push failed", zap.Error(err))
		problems = nil
	}
	ids := problemIDs(problems)

	if err := r.putRemoteProblems(ctx, identity, problems); err != nil {
		logger.Warn(ctx, "push problems failed", zap.Error(err))
	}

	if nextID, ok, err := r.local.NextID(ctx); err != nil {
		logger.Warn(ctx, "read local nextId for push failed", zap.Error(err))
	} else if ok {
		if err := r.putRemoteConfig(ctx, identity, nextID); err != nil {
			logger.Warn(ctx, "push config failed", zap.Error(err))
		}
	}

	if completions, err := r.local.CompletionMap(ctx, ids); err != nil {
		logger.Warn(ctx, "assemble completions for push failed", zap.Error(err))
	} else if err := r.putRemoteJSON(ctx, identity, model.CategoryCompletions, completions); err != nil {
		logger.Warn(ctx, "push completions failed", zap.Error(err))
	}

	if retries, err := r.local.RetryMap(ctx, ids); err != nil {
		logger.Warn(ctx, "assemble retries for push failed", zap.Error(err))
	} else if err := r.putRemoteJSON(ctx, identity, model.CategoryRetries, retries); err != nil {
		logger.Warn(ctx, "push retries failed", zap.Error(err))
	}

	if notes, err := r.local.NotesMap(ctx, ids); err != nil {
		logger.Warn(ctx, "assemble notes for push failed", zap.Error(err))
	} else if err := r.putRemoteJSON(ctx, identity, model.CategoryNotes, notes); err != nil {
		logger.Warn(ctx, "push notes failed", zap.Error(err))
	}

	if activities, err := r.local.Activities(ctx); err != nil {
		logger.Warn(ctx, "read local activities for push failed", zap.Error(err))
	} else {
		if activities == nil {
			activities = []model.Activity{}
		}
		if err := r.putRemoteJSON(ctx, identity, model.CategoryActivities, activities); err != nil {
			logger.Warn(ctx, "push activities failed", zap.Error(err))
		}
	}
}

// pullCategoriesLocked pulls config, completions, retries, notes and
// activities remote -> local, overwriting local wholesale for every
// category where a remote document exists. Each category is independent.
func (r *Reconciler) pullCategoriesLocked(ctx context.Context, identity string) {
	if body, err := r.remote.GetDocument(ctx, identity, model.CategoryConfig); err == nil {
		var doc configDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			logger.Warn(ctx, "parse remote config failed", zap.Error(err))
		} else if doc.NextID > 0 {
			if err := r.local.SetNextID(ctx, doc.NextID); err != nil {
				logger.Warn(ctx, "apply remote config failed", zap.Error(err))
			}
		}
	} else if err != docstore.ErrDocumentNotFound {
		logger.Warn(ctx, "pull config failed", zap.Error(err))
	}

	if body, err := r.remote.GetDocument(ctx, identity, model.CategoryCompletions); err == nil {
		var flags map[string]bool
		if err := json.Unmarshal(body, &flags); err != nil {
			logger.Warn(ctx, "parse remote completions failed", zap.Error(err))
		} else if err := r.local.ReplaceCompletions(ctx, flags); err != nil {
			logger.Warn(ctx, "apply remote completions failed", zap.Error(err))
		}
	} else if err != docstore.ErrDocumentNotFound {
		logger.Warn(ctx, "pull completions failed", zap.Error(err))
	}

	if body, err := r.remote.GetDocument(ctx, identity, model.CategoryRetries); err == nil {
		var flags map[string]bool
		if err := json.Unmarshal(body, &flags); err != nil {
			logger.Warn(ctx, "parse remote retries failed", zap.Error(err))
		} else if err := r.local.ReplaceRetries(ctx, flags); err != nil {
			logger.Warn(ctx, "apply remote retries failed", zap.Error(err))
		}
	} else if err != docstore.ErrDocumentNotFound {
		logger.Warn(ctx, "pull retries failed", zap.Error(err))
	}

	if body, err := r.remote.GetDocument(ctx, identity, model.CategoryNotes); err == nil {
		var notes map[string]string
		if err := json.Unmarshal(body, &notes); err != nil {
			logger.Warn(ctx, "parse remote notes failed", zap.Error(err))
		} else if err := r.local.ReplaceNotes(ctx, notes); err != nil {
			logger.Warn(ctx, "apply remote notes failed", zap.Error(err))
		}
	} else if err != docstore.ErrDocumentNotFound {
		logger.Warn(ctx, "pull notes failed", zap.Error(err))
	}

	if body, err := r.remote.GetDocument(ctx, identity, model.CategoryActivities); err == nil {
		var activities []model.Activity
		if err := json.Unmarshal(body, &activities); err != nil {
			logger.Warn(ctx, "parse remote activities failed", zap.Error(err))
		} else if err := r.local.SaveActivities(ctx, activities); err != nil {
			logger.Warn(ctx, "apply remote activities failed", zap.Error(err))
		}
	} else if err != docstore.ErrDocumentNotFound {
		logger.Warn(ctx, "pull activities failed", zap.Error(err))
	}
}

// mirrorCategoryLocked rebuilds the whole category payload from local state
// and enqueues a detached overwrite of the remote document. Remote
// documents are never partially patched.
func (r *Reconciler) mirrorCategoryLocked(ctx context.Context, category string) {
	if r.identity == "" {
		return
	}
	problems, _, err := r.local.Problems(ctx)
	if err != nil {
		logger.Warn(ctx, "read local problems for mirror failed", zap.Error(err))
		return
	}
	ids := problemIDs(problems)

	var payload interface{}
	switch category {
	case model.CategoryCompletions:
		payload, err = r.local.CompletionMap(ctx, ids)
	case model.CategoryRetries:
		payload, err = r.local.RetryMap(ctx, ids)
	case model.CategoryNotes:
		payload, err = r.local.NotesMap(ctx, ids)
	case model.CategoryActivities:
		var activities []model.Activity
		activities, err = r.local.Activities(ctx)
		if activities == nil {
			activities = []model.Activity{}
		}
		payload = activities
	default:
		return
	}
	if err != nil {
		logger.Warn(ctx, "assemble category for mirror failed",
			zap.String("category", category), zap.Error(err))
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logger.Warn(ctx, "marshal category for mirror failed",
			zap.String("category", category), zap.Error(err))
		return
	}
	r.mirror.Enqueue(r.identity, category, body)
}

func (r *Reconciler) fetchRemoteProblems(ctx context.Context, identity string) ([]model.Problem, bool, error) {
	body, err := r.remote.GetDocument(ctx, identity, model.CategoryProblems)
	if err == docstore.ErrDocumentNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(err, pkgerrors.RemoteReadFailed)
	}
	var problems []model.Problem
	if err := json.Unmarshal(body, &problems); err != nil {
		return nil, false, pkgerrors.Wrapf(err, pkgerrors.RemoteReadFailed, "parse remote problems failed: %v", err)
	}
	return problems, true, nil
}

func (r *Reconciler) putRemoteProblems(ctx context.Context, identity string, problems []model.Problem) error {
	if problems == nil {
		problems = []model.Problem{}
	}
	return r.putRemoteJSON(ctx, identity, model.CategoryProblems, problems)
}

func (r *Reconciler) putRemoteConfig(ctx context.Context, identity string, nextID int) error {
	return r.putRemoteJSON(ctx, identity, model.CategoryConfig, configDoc{NextID: nextID})
}

func (r *Reconciler) putRemoteJSON(ctx context.Context, identity, category string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", category, err)
	}
	if err := r.remote.PutDocument(ctx, identity, category, body); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.RemoteWriteFailed, "write remote %s failed: %v", category, err)
	}
	return nil
}

func problemIDs(problems []model.Problem) []int {
	ids := make([]int, 0, len(problems))
	for _, p := range problems {
		ids = append(ids, p.ID)
	}
	return ids
}
