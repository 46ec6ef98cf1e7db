// Package syncworker runs a single background task that drains a bounded
// queue of index deltas: a buffered channel plus one goroutine running a
// select loop, with per-task status tracking instead of pub/sub fan-out.
package syncworker

import (
	"fmt"
	"sync"
	"time"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/log"
	"github.com/trailbase/core/pkg/metrics"
)

// IndexDelta describes one batch of newly-inserted operations a
// secondary index needs to absorb.
type IndexDelta struct {
	Namespace  ids.EntityFamily
	EntityID   ids.EntityId
	Generation uint64
	Operations []ids.OperationId
}

// Status is the outcome of processing one delta.
type Status int

const (
	Pending Status = iota
	Applied
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Applied:
		return "Applied"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

type task struct {
	delta  IndexDelta
	result chan error
}

// Worker drains a bounded queue of IndexDeltas on a single goroutine.
type Worker struct {
	queue  chan task
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	status map[string]Status
}

// Spawn starts the worker with a queue of the given buffer size and
// returns it ready to accept deltas.
func Spawn(bufferSize int) (*Worker, error) {
	if bufferSize <= 0 {
		return nil, coreerr.Validationf("sync worker buffer size must be positive, got %d", bufferSize)
	}
	w := &Worker{
		queue:  make(chan task, bufferSize),
		stopCh: make(chan struct{}),
		status: make(map[string]Status),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func taskKey(delta IndexDelta) string {
	return fmt.Sprintf("%s:%s:%d", delta.Namespace, delta.EntityID, delta.Generation)
}

// EnqueueDelta enqueues delta for processing and returns a future-like
// channel that receives the processing result exactly once. If the queue
// is full the call fails fast rather than blocking.
func (w *Worker) EnqueueDelta(delta IndexDelta) (<-chan error, error) {
	if len(delta.Operations) == 0 {
		return nil, coreerr.Validationf("index delta did not include operations")
	}

	key := taskKey(delta)
	w.mu.Lock()
	w.status[key] = Pending
	w.mu.Unlock()

	t := task{delta: delta, result: make(chan error, 1)}
	select {
	case w.queue <- t:
		metrics.SyncWorkerQueueDepth.WithLabelValues(delta.Namespace.String()).Set(float64(len(w.queue)))
		return t.result, nil
	default:
		w.mu.Lock()
		w.status[key] = Failed
		w.mu.Unlock()
		metrics.SyncWorkerDeltasTotal.WithLabelValues(delta.Namespace.String(), "failed").Inc()
		return nil, coreerr.Validationf("sync worker queue is full, rejecting delta for %s", key)
	}
}

// QueueDepth returns the number of deltas currently queued.
func (w *Worker) QueueDepth() int {
	return len(w.queue)
}

// StatusSnapshot returns a point-in-time copy of every task's status,
// keyed by "<namespace>:<entityId>:<generation>".
func (w *Worker) StatusSnapshot() map[string]Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]Status, len(w.status))
	for k, v := range w.status {
		out[k] = v
	}
	return out
}

// Close signals the worker to stop and blocks until its goroutine has
// exited. Deltas still in the queue at that point are not processed and
// their result channels receive nothing.
func (w *Worker) Close() error {
	close(w.stopCh)
	w.wg.Wait()
	return nil
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case t := <-w.queue:
			w.process(t)
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) process(t task) {
	key := taskKey(t.delta)
	metrics.SyncWorkerQueueDepth.WithLabelValues(t.delta.Namespace.String()).Set(float64(len(w.queue)))

	// TODO: wire an actual secondary-index rebuild here; this sleep is a
	// placeholder standing in for that cost.
	time.Sleep(5 * time.Millisecond)

	w.mu.Lock()
	w.status[key] = Applied
	w.mu.Unlock()
	metrics.SyncWorkerDeltasTotal.WithLabelValues(t.delta.Namespace.String(), "applied").Inc()

	log.WithComponent("syncworker").Debug().Str("task", key).Msg("applied index delta")
	t.result <- nil
}
