package service

import (
	"context"
	"strings"
	"testing"

	"codetrack/internal/common/docstore"
	"codetrack/internal/common/kv"
	"codetrack/internal/tracker/model"
	"codetrack/internal/tracker/repository"
	pkgerrors "codetrack/pkg/errors"
)

func newTestRegistry(t *testing.T) (*Registry, *testDeps) {
	t.Helper()
	deps := newTestDeps()
	reg := NewRegistry(deps.local, deps.engine)
	if err := reg.Initialize(context.Background(), testCatalog()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	return reg, deps
}

func TestRegistryInitializeSeedsCatalog(t *testing.T) {
	reg, _ := newTestRegistry(t)

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 seeded problems, got %d", len(list))
	}
	for _, p := range list {
		if !p.IsStandard {
			t.Fatalf("seeded problem not marked standard: %+v", p)
		}
	}
	if reg.NextID() != 3 {
		t.Fatalf("expected next id 3, got %d", reg.NextID())
	}
}

func TestRegistryAddAssignsMonotonicIDs(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	first, err := reg.Add(ctx, AddInput{Title: "Course Schedule", URL: "https://example.com/a", Difficulty: model.DifficultyMedium})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	second, err := reg.Add(ctx, AddInput{Title: "Word Ladder", URL: "https://example.com/b", Difficulty: model.DifficultyHard})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if first.ID != 3 || second.ID != 4 {
		t.Fatalf("expected ids 3 and 4, got %d and %d", first.ID, second.ID)
	}
	if first.IsStandard || second.IsStandard {
		t.Fatalf("user-added problems must not be standard")
	}
}

func TestRegistryAddValidation(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input AddInput
		code  pkgerrors.ErrorCode
	}{
		{"missing title", AddInput{URL: "https://example.com"}, pkgerrors.ValidationFailed},
		{"missing url", AddInput{Title: "Some Problem"}, pkgerrors.ValidationFailed},
		{"bad difficulty", AddInput{Title: "Some Problem", URL: "https://example.com", Difficulty: "brutal"}, pkgerrors.InvalidDifficulty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Add(ctx, tt.input); !pkgerrors.Is(err, tt.code) {
				t.Fatalf("expected code %d, got %v", tt.code, err)
			}
		})
	}
}

func TestRegistryAddRejectsDuplicateTitle(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	// Case and surrounding whitespace do not make a title distinct.
	_, err := reg.Add(ctx, AddInput{Title: "  two sum  ", URL: "https://example.com"})
	if !pkgerrors.Is(err, pkgerrors.DuplicateProblem) {
		t.Fatalf("expected DuplicateProblem, got %v", err)
	}
	if len(reg.List()) != 2 {
		t.Fatalf("failed add must not change the list")
	}
}

func TestRegistryAddDefaultsDifficulty(t *testing.T) {
	reg, _ := newTestRegistry(t)

	p, err := reg.Add(context.Background(), AddInput{Title: "Some Problem", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if p.Difficulty != model.DifficultyEasy {
		t.Fatalf("expected default difficulty Easy, got %q", p.Difficulty)
	}
}

func TestRegistryUpdateRejectsStandard(t *testing.T) {
	reg, _ := newTestRegistry(t)

	title := "Renamed"
	_, err := reg.Update(context.Background(), 1, model.ProblemPatch{Title: &title})
	if !pkgerrors.Is(err, pkgerrors.ProblemImmutable) {
		t.Fatalf("expected ProblemImmutable, got %v", err)
	}
	got, _ := reg.Get(1)
	if got.Title != "Two Sum" {
		t.Fatalf("standard problem must be unchanged, got %q", got.Title)
	}
}

func TestRegistryUpdatePatchesFields(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.Add(ctx, AddInput{Title: "Some Problem", URL: "https://example.com", Difficulty: model.DifficultyEasy})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	hint := "think in reverse"
	diff := model.DifficultyHard
	updated, err := reg.Update(ctx, added.ID, model.ProblemPatch{Hint: &hint, Difficulty: &diff})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Hint != hint || updated.Difficulty != model.DifficultyHard {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Title != "Some Problem" {
		t.Fatalf("unpatched field must survive, got %q", updated.Title)
	}
}

func TestRegistryUpdateRejectsDuplicateTitle(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.Add(ctx, AddInput{Title: "Some Problem", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	title := "TWO SUM"
	if _, err := reg.Update(ctx, added.ID, model.ProblemPatch{Title: &title}); !pkgerrors.Is(err, pkgerrors.DuplicateProblem) {
		t.Fatalf("expected DuplicateProblem, got %v", err)
	}

	// Re-submitting a problem's own title is not a duplicate.
	same := "some problem"
	if _, err := reg.Update(ctx, added.ID, model.ProblemPatch{Title: &same}); err != nil {
		t.Fatalf("self-title update must succeed, got %v", err)
	}
}

func TestRegistryRemoveGuardsStandard(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	removed, err := reg.Remove(ctx, 1)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if removed {
		t.Fatalf("standard problem must not be removable")
	}
	if len(reg.List()) != 2 {
		t.Fatalf("list must be unchanged after guarded remove")
	}

	if _, err := reg.Remove(ctx, 99); !pkgerrors.Is(err, pkgerrors.ProblemNotFound) {
		t.Fatalf("expected ProblemNotFound, got %v", err)
	}
}

func TestRegistryRemoveKeepsIDsMonotonic(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.Add(ctx, AddInput{Title: "Some Problem", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	removed, err := reg.Remove(ctx, added.ID)
	if err != nil || !removed {
		t.Fatalf("remove failed: removed=%v err=%v", removed, err)
	}

	// The deleted problem held the highest id; a fresh add must not reuse it.
	next, err := reg.Add(ctx, AddInput{Title: "Another Problem", URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if next.ID <= added.ID {
		t.Fatalf("id %d reused after deletion of %d", next.ID, added.ID)
	}
}

func TestRegistryCounts(t *testing.T) {
	reg, deps := newTestRegistry(t)
	ctx := context.Background()

	added, err := reg.Add(ctx, AddInput{Title: "Some Problem", URL: "https://example.com"})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	_ = deps.engine.SetCompleted(ctx, 1, true)
	_ = deps.engine.SetCompleted(ctx, added.ID, true)
	_ = deps.engine.SetRetryMarked(ctx, 2, true)

	all, err := reg.CountCompleted(ctx, false)
	if err != nil || all != 2 {
		t.Fatalf("expected 2 completed, got %d err=%v", all, err)
	}
	standard, err := reg.CountCompleted(ctx, true)
	if err != nil || standard != 1 {
		t.Fatalf("expected 1 standard completed, got %d err=%v", standard, err)
	}
	retries, err := reg.CountRetryMarked(ctx)
	if err != nil || retries != 1 {
		t.Fatalf("expected 1 retry, got %d err=%v", retries, err)
	}
}

func TestRegistryAllTopics(t *testing.T) {
	reg, _ := newTestRegistry(t)

	if _, err := reg.Add(context.Background(), AddInput{
		Title: "Course Schedule", URL: "https://example.com",
		Topics: []string{"Graph", "array"},
	}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	topics := reg.AllTopics()
	joined := strings.Join(topics, ",")
	for _, want := range []string{"Array", "Stack", "Graph"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("topic %q missing from %v", want, topics)
		}
	}
	for i := 1; i < len(topics); i++ {
		if topics[i-1] > topics[i] {
			t.Fatalf("topics not sorted: %v", topics)
		}
	}
}

func TestRegistryReloadPrefersPersistedCounter(t *testing.T) {
	reg, deps := newTestRegistry(t)
	ctx := context.Background()

	if err := deps.local.SetNextID(ctx, 50); err != nil {
		t.Fatalf("set next id failed: %v", err)
	}
	if err := reg.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reg.NextID() != 50 {
		t.Fatalf("expected reload to adopt persisted counter 50, got %d", reg.NextID())
	}
}

func TestRegistryPersistMirrorsWhenSignedIn(t *testing.T) {
	reg, deps := newTestRegistry(t)
	ctx := context.Background()

	seedRemoteProblems(t, deps.remote, "user-a", testCatalog())
	if err := deps.engine.ReconcileOnSignIn(ctx, "user-a"); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}
	if err := reg.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if _, err := reg.Add(ctx, AddInput{Title: "Some Problem", URL: "https://example.com"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	remote := remoteProblems(t, deps.remote, "user-a")
	if len(remote) != 3 {
		t.Fatalf("expected add mirrored to remote, got %v", remote)
	}
	if _, err := deps.remote.GetDocument(ctx, "user-a", model.CategoryConfig); err == docstore.ErrDocumentNotFound {
		t.Fatalf("expected config mirrored alongside problems")
	}
}

// Sanity check that the registry works over the sqlite-shaped store
// contract too: a fresh kv store with no seeded keys behaves like a
// first run.
func TestRegistryFirstRunEmptyStore(t *testing.T) {
	local := repository.NewLocalRepository(kv.NewMemoryStore())
	engine := NewReconciler(local, docstore.NewMemoryStore())
	reg := NewRegistry(local, engine)

	if err := reg.Initialize(context.Background(), nil); err != nil {
		t.Fatalf("initialize with empty catalog failed: %v", err)
	}
	if len(reg.List()) != 0 {
		t.Fatalf("expected empty list, got %v", reg.List())
	}
	if reg.NextID() != 1 {
		t.Fatalf("expected next id 1 on empty store, got %d", reg.NextID())
	}
}
