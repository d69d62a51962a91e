package service

import (
	"context"
	"sync"
	"time"

	"codetrack/internal/common/docstore"
	"codetrack/pkg/utils/logger"

	"go.uber.org/zap"
)

const mirrorWriteTimeout = 15 * time.Second

// MirrorQueue performs detached remote document writes, serialized per
// category. One worker per category guarantees that writes to the same
// remote document land in enqueue order, so a slow early write can never
// clobber a later one. Failures are logged and swallowed: local-first
// durability means a dead remote never surfaces to the caller.
type MirrorQueue struct {
	remote docstore.DocumentStore

	mu      sync.Mutex
	workers map[string]chan mirrorTask
	closed  bool
	pending sync.WaitGroup
}

type mirrorTask struct {
	identity string
	category string
	body     []byte
}

// NewMirrorQueue creates a queue writing to the given remote store.
func NewMirrorQueue(remote docstore.DocumentStore) *MirrorQueue {
	return &MirrorQueue{
		remote:  remote,
		workers: make(map[string]chan mirrorTask),
	}
}

// Enqueue schedules a whole-document overwrite for identity/category.
// The call returns immediately; the write happens on the category worker.
func (q *MirrorQueue) Enqueue(identity, category string, body []byte) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	ch, ok := q.workers[category]
	if !ok {
		ch = make(chan mirrorTask, 16)
		q.workers[category] = ch
		go q.run(ch)
	}
	q.pending.Add(1)
	q.mu.Unlock()

	ch <- mirrorTask{identity: identity, category: category, body: body}
}

func (q *MirrorQueue) run(ch chan mirrorTask) {
	for task := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
		err := q.remote.PutDocument(ctx, task.identity, task.category, task.body)
		cancel()
		if err != nil {
			logger.Warn(context.Background(), "remote mirror write failed, keeping local-only state",
				zap.String("category", task.category),
				zap.String("identity", task.identity),
				zap.Error(err))
		}
		q.pending.Done()
	}
}

// Wait blocks until every enqueued write has been attempted.
func (q *MirrorQueue) Wait() {
	q.pending.Wait()
}

// Close drains outstanding writes and stops the workers.
func (q *MirrorQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	channels := make([]chan mirrorTask, 0, len(q.workers))
	for _, ch := range q.workers {
		channels = append(channels, ch)
	}
	q.mu.Unlock()

	q.pending.Wait()
	for _, ch := range channels {
		close(ch)
	}
}
