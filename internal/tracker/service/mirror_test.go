package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"codetrack/internal/common/docstore"
	"codetrack/internal/tracker/model"
	pkgerrors "codetrack/pkg/errors"
)

func TestMirrorQueueWritesDocument(t *testing.T) {
	remote := docstore.NewMemoryStore()
	queue := NewMirrorQueue(remote)
	defer queue.Close()

	queue.Enqueue("user-a", model.CategoryNotes, []byte(`{"1":"note"}`))
	queue.Wait()

	body, err := remote.GetDocument(context.Background(), "user-a", model.CategoryNotes)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	var notes map[string]string
	if err := json.Unmarshal(body, &notes); err != nil {
		t.Fatalf("bad document body: %v", err)
	}
	if notes["1"] != "note" {
		t.Fatalf("unexpected body: %v", notes)
	}
}

func TestMirrorQueueLastWriteWinsPerCategory(t *testing.T) {
	remote := docstore.NewMemoryStore()
	queue := NewMirrorQueue(remote)
	defer queue.Close()

	// Writes to one category land in enqueue order, so the final state of
	// the document is always the last enqueued body.
	for i := 0; i < 50; i++ {
		queue.Enqueue("user-a", model.CategoryCompletions, []byte(fmt.Sprintf(`{"seq":%d}`, i)))
	}
	queue.Wait()

	body, err := remote.GetDocument(context.Background(), "user-a", model.CategoryCompletions)
	if err != nil {
		t.Fatalf("document not written: %v", err)
	}
	var doc struct {
		Seq int `json:"seq"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatalf("bad document body: %v", err)
	}
	if doc.Seq != 49 {
		t.Fatalf("expected last write to win, got seq %d", doc.Seq)
	}
}

func TestMirrorQueueSwallowsFailures(t *testing.T) {
	remote := docstore.NewMemoryStore()
	remote.Fail = pkgerrors.New(pkgerrors.RemoteUnavailable)
	queue := NewMirrorQueue(remote)

	queue.Enqueue("user-a", model.CategoryRetries, []byte(`{}`))
	queue.Wait()

	// A later write after recovery still goes through on the same worker.
	remote.Fail = nil
	queue.Enqueue("user-a", model.CategoryRetries, []byte(`{"2":true}`))
	queue.Wait()
	queue.Close()

	body, err := remote.GetDocument(context.Background(), "user-a", model.CategoryRetries)
	if err != nil {
		t.Fatalf("recovered write missing: %v", err)
	}
	var flags map[string]bool
	_ = json.Unmarshal(body, &flags)
	if !flags["2"] {
		t.Fatalf("unexpected body: %v", flags)
	}
}

func TestMirrorQueueEnqueueAfterCloseIsNoop(t *testing.T) {
	remote := docstore.NewMemoryStore()
	queue := NewMirrorQueue(remote)
	queue.Close()

	queue.Enqueue("user-a", model.CategoryNotes, []byte(`{}`))
	queue.Wait()

	if _, err := remote.GetDocument(context.Background(), "user-a", model.CategoryNotes); err != docstore.ErrDocumentNotFound {
		t.Fatalf("write after close must be dropped, got %v", err)
	}
}
