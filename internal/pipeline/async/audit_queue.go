// Package async fans invoice audit jobs out over a bounded worker pool. Each
// worker runs a full pipeline pass per job; workers share nothing but the
// processor and its read-only catalog.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/apaudit/invoice-auditor/internal/intake"
	"github.com/apaudit/invoice-auditor/internal/pipeline"
)

// Job is one invoice payload to audit. Path is carried for logging and the
// result sink; the payload is the raw extraction JSON.
type Job struct {
	Path    string
	Payload []byte
}

// Sink receives every finished job exactly once, success or failure. Called
// from worker goroutines; implementations must be safe for concurrent use.
type Sink func(job Job, res *pipeline.Result, err error)

type AuditQueue struct {
	proc    *pipeline.Processor
	sink    Sink
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*AuditQueue)

func WithWorkers(n int) Option {
	return func(q *AuditQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *AuditQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *AuditQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewAuditQueue(proc *pipeline.Processor, sink Sink, logger *slog.Logger, opts ...Option) *AuditQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &AuditQueue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		timeout: time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *AuditQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.audit(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("audit failed", "worker_id", workerID, "path", job.Path, "error", err)
					} else {
						q.logger.Info("audited invoice", "worker_id", workerID, "path", job.Path,
							"invoice", res.InvoiceNumber, "action", res.Resolution.RecommendedAction)
					}
					if q.sink != nil {
						q.sink(job, res, err)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *AuditQueue) audit(ctx context.Context, job Job) (*pipeline.Result, error) {
	inv, err := intake.Decode(job.Payload)
	if err != nil {
		return nil, err
	}
	return q.proc.Process(ctx, inv, nil)
}

func (q *AuditQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued invoice for audit", "path", job.Path)
	default:
		q.logger.Warn("queue full, applying backpressure", "path", job.Path)
		q.ch <- job
	}
	return nil
}

func (q *AuditQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
