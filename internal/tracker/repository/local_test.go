package repository

import (
	"context"
	"testing"
	"time"

	"codetrack/internal/common/kv"
	"codetrack/internal/tracker/model"
)

func newTestRepo() (*LocalRepository, *kv.MemoryStore) {
	store := kv.NewMemoryStore()
	return NewLocalRepository(store), store
}

func sampleProblems() []model.Problem {
	return []model.Problem{
		{ID: 1, Title: "Two Sum", Difficulty: model.DifficultyEasy, Topics: []string{"Array"}, IsStandard: true},
		{ID: 2, Title: "Valid Parentheses", Difficulty: model.DifficultyEasy, Topics: []string{"Stack"}, IsStandard: true},
		{ID: 7, Title: "My Custom Problem", Difficulty: model.DifficultyHard},
	}
}

func TestSaveProblemsBumpsNextID(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if err := repo.SaveProblems(ctx, sampleProblems()); err != nil {
		t.Fatalf("save problems failed: %v", err)
	}

	nextID, ok, err := repo.NextID(ctx)
	if err != nil || !ok {
		t.Fatalf("nextId not persisted: ok=%v err=%v", ok, err)
	}
	if nextID != 8 {
		t.Fatalf("expected nextId 8 (max id + 1), got %d", nextID)
	}

	problems, ok, err := repo.Problems(ctx)
	if err != nil || !ok {
		t.Fatalf("problems not persisted: ok=%v err=%v", ok, err)
	}
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %d", len(problems))
	}
}

func TestProblemsAbsent(t *testing.T) {
	repo, _ := newTestRepo()
	problems, ok, err := repo.Problems(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || problems != nil {
		t.Fatalf("expected absent list, got ok=%v %v", ok, problems)
	}
}

func TestCompletionRoundTrip(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	done, err := repo.Completed(ctx, 1)
	if err != nil || done {
		t.Fatalf("expected unset flag to read false, got (%v, %v)", done, err)
	}
	if err := repo.SetCompleted(ctx, 1, true); err != nil {
		t.Fatalf("set completed failed: %v", err)
	}
	done, _ = repo.Completed(ctx, 1)
	if !done {
		t.Fatalf("expected completed")
	}
	if err := repo.SetCompleted(ctx, 1, false); err != nil {
		t.Fatalf("unset completed failed: %v", err)
	}
	done, _ = repo.Completed(ctx, 1)
	if done {
		t.Fatalf("expected not completed")
	}
}

func TestRetryMarkerPresence(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	if err := repo.SetRetryMarked(ctx, 5, true); err != nil {
		t.Fatalf("mark retry failed: %v", err)
	}
	marked, _ := repo.RetryMarked(ctx, 5)
	if !marked {
		t.Fatalf("expected retry marked")
	}

	// Unmarking removes the key entirely.
	if err := repo.SetRetryMarked(ctx, 5, false); err != nil {
		t.Fatalf("unmark retry failed: %v", err)
	}
	if _, err := store.Get(ctx, "retry-5"); err != kv.ErrNotFound {
		t.Fatalf("expected retry key removed, got %v", err)
	}
}

func TestNotesEmptyMeansAbsent(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	if err := repo.SaveNote(ctx, 3, "two pointers from both ends"); err != nil {
		t.Fatalf("save note failed: %v", err)
	}
	text, ok, _ := repo.Note(ctx, 3)
	if !ok || text != "two pointers from both ends" {
		t.Fatalf("unexpected note: ok=%v %q", ok, text)
	}

	if err := repo.SaveNote(ctx, 3, ""); err != nil {
		t.Fatalf("save empty note failed: %v", err)
	}
	_, ok, _ = repo.Note(ctx, 3)
	if ok {
		t.Fatalf("expected note absent after empty save")
	}
}

func TestActivityRingBuffer(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < model.MaxActivities; i++ {
		entry := model.Activity{Type: model.ActivityCompleted, Text: "entry", Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.AddActivity(ctx, entry); err != nil {
			t.Fatalf("add activity failed: %v", err)
		}
	}

	// One more pushes out the oldest and lands at index 0.
	newest := model.Activity{Type: model.ActivityAdded, Text: "newest", Timestamp: base.Add(time.Hour)}
	if err := repo.AddActivity(ctx, newest); err != nil {
		t.Fatalf("add activity failed: %v", err)
	}

	activities, err := repo.Activities(ctx)
	if err != nil {
		t.Fatalf("get activities failed: %v", err)
	}
	if len(activities) != model.MaxActivities {
		t.Fatalf("expected log capped at %d, got %d", model.MaxActivities, len(activities))
	}
	if activities[0].Text != "newest" {
		t.Fatalf("expected newest entry first, got %+v", activities[0])
	}
	if !activities[len(activities)-1].Timestamp.After(base) {
		t.Fatalf("expected oldest entry dropped")
	}
}

func TestCategoryMaps(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()
	ids := []int{1, 2, 7}

	_ = repo.SetCompleted(ctx, 1, true)
	_ = repo.SetRetryMarked(ctx, 2, true)
	_ = repo.SaveNote(ctx, 7, "remember edge case n=0")

	completions, err := repo.CompletionMap(ctx, ids)
	if err != nil {
		t.Fatalf("completion map failed: %v", err)
	}
	if len(completions) != 3 || !completions["1"] || completions["2"] {
		t.Fatalf("unexpected completion map: %v", completions)
	}

	retries, err := repo.RetryMap(ctx, ids)
	if err != nil {
		t.Fatalf("retry map failed: %v", err)
	}
	if len(retries) != 1 || !retries["2"] {
		t.Fatalf("unexpected retry map: %v", retries)
	}

	notes, err := repo.NotesMap(ctx, ids)
	if err != nil {
		t.Fatalf("notes map failed: %v", err)
	}
	if len(notes) != 1 || notes["7"] == "" {
		t.Fatalf("unexpected notes map: %v", notes)
	}
}

func TestReplaceCategoriesClearsOldState(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	_ = repo.SetCompleted(ctx, 1, true)
	_ = repo.SetCompleted(ctx, 2, true)
	_ = repo.SetRetryMarked(ctx, 1, true)
	_ = repo.SaveNote(ctx, 1, "old note")

	if err := repo.ReplaceCompletions(ctx, map[string]bool{"3": true}); err != nil {
		t.Fatalf("replace completions failed: %v", err)
	}
	done, _ := repo.Completed(ctx, 1)
	if done {
		t.Fatalf("expected old completion cleared")
	}
	done, _ = repo.Completed(ctx, 3)
	if !done {
		t.Fatalf("expected remote completion applied")
	}

	if err := repo.ReplaceRetries(ctx, map[string]bool{}); err != nil {
		t.Fatalf("replace retries failed: %v", err)
	}
	marked, _ := repo.RetryMarked(ctx, 1)
	if marked {
		t.Fatalf("expected retries cleared")
	}

	if err := repo.ReplaceNotes(ctx, map[string]string{"2": "remote note"}); err != nil {
		t.Fatalf("replace notes failed: %v", err)
	}
	if _, ok, _ := repo.Note(ctx, 1); ok {
		t.Fatalf("expected old note cleared")
	}
	text, ok, _ := repo.Note(ctx, 2)
	if !ok || text != "remote note" {
		t.Fatalf("expected remote note applied, got ok=%v %q", ok, text)
	}
}

func TestPruneOrphans(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	_ = repo.SetCompleted(ctx, 1, true)
	_ = repo.SetCompleted(ctx, 99, true)
	_ = repo.SetRetryMarked(ctx, 99, true)
	_ = repo.SaveNote(ctx, 99, "orphan")

	if err := repo.PruneOrphans(ctx, []int{1, 2}); err != nil {
		t.Fatalf("prune failed: %v", err)
	}

	if done, _ := repo.Completed(ctx, 1); !done {
		t.Fatalf("live flag must survive pruning")
	}
	for _, key := range []string{"q99", "retry-99", "notes_99"} {
		if _, err := store.Get(ctx, key); err != kv.ErrNotFound {
			t.Fatalf("expected %s pruned, got %v", key, err)
		}
	}
}
