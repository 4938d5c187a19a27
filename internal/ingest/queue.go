// ABOUTME: Bounded worker pool for background document ingestion
// ABOUTME: Tracks per-task status so clients can poll upload progress

package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Task status values
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// Queue errors
var (
	ErrQueueFull   = errors.New("ingest queue is full")
	ErrQueueClosed = errors.New("ingest queue is shut down")
	ErrTaskUnknown = errors.New("unknown task")
)

// Task is the observable state of one queued ingestion.
type Task struct {
	ID        string    `json:"task_id"`
	Username  string    `json:"-"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Result    *Result   `json:"result,omitempty"`
	QueuedAt  time.Time `json:"queued_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type job struct {
	taskID   string
	username string
	filename string
	content  []byte
}

// Queue runs ingestions on a fixed pool of workers. Jobs carry no request
// context: a dropped client connection must not abort an ingestion that is
// already underway.
type Queue struct {
	ingestor *Ingestor
	jobs     chan job
	logger   *slog.Logger

	mu     sync.RWMutex
	tasks  map[string]*Task
	closed bool

	wg sync.WaitGroup
}

// NewQueue creates a queue with the given worker count and buffer depth and
// starts the workers.
func NewQueue(ingestor *Ingestor, workers, depth int, logger *slog.Logger) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if depth <= 0 {
		depth = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &Queue{
		ingestor: ingestor,
		jobs:     make(chan job, depth),
		logger:   logger.With("component", "ingest-queue"),
		tasks:    make(map[string]*Task),
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue submits a file for background ingestion and returns the task ID.
// Fails fast with ErrQueueFull instead of blocking the request handler.
func (q *Queue) Enqueue(username, filename string, content []byte) (string, error) {
	// The send must happen under the lock: Shutdown closes the channel under
	// the same lock, so a send can never race the close.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrQueueClosed
	}

	id := uuid.New().String()
	select {
	case q.jobs <- job{taskID: id, username: username, filename: filename, content: content}:
	default:
		return "", ErrQueueFull
	}

	now := time.Now().UTC()
	q.tasks[id] = &Task{
		ID:        id,
		Username:  username,
		Filename:  filename,
		Status:    StatusQueued,
		QueuedAt:  now,
		UpdatedAt: now,
	}
	return id, nil
}

// Status returns a snapshot of the task. The username must match the task
// owner; other users' tasks are reported as unknown.
func (q *Queue) Status(taskID, username string) (*Task, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	t, ok := q.tasks[taskID]
	if !ok || t.Username != username {
		return nil, ErrTaskUnknown
	}
	cp := *t
	return &cp, nil
}

// Shutdown stops accepting work and waits for in-flight jobs to finish.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.setStatus(j.taskID, StatusProcessing, "", nil)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		result, err := q.ingestor.Ingest(ctx, j.username, j.filename, j.content)
		cancel()

		if err != nil {
			q.logger.Warn("ingestion failed", "task", j.taskID, "filename", j.filename, "error", err)
			q.setStatus(j.taskID, StatusFailed, err.Error(), nil)
			continue
		}
		q.setStatus(j.taskID, StatusDone, "", result)
	}
}

func (q *Queue) setStatus(taskID, status, errMsg string, result *Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[taskID]
	if !ok {
		return
	}
	t.Status = status
	t.Error = errMsg
	t.Result = result
	t.UpdatedAt = time.Now().UTC()
}
