// Package worker runs fire-and-forget persistence writes off the request path.
//
// Delivery is at-most-once and best effort: a job is dropped when the queue is
// full, and queued jobs are lost if the process dies before they run. Jobs for
// the same user are not ordered relative to each other.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Submitter accepts background jobs without blocking.
type Submitter interface {
	// Submit enqueues job and reports whether it was accepted.
	Submit(name string, job Job) bool
}

// ErrClosed is returned by Close when called twice.
var ErrClosed = errors.New("worker: pool closed")

// JobTimeout bounds a single job.
const JobTimeout = 30 * time.Second

var jobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "companion_background_jobs_total",
		Help: "Background jobs by name and outcome",
	},
	[]string{"job", "result"},
)

type task struct {
	name string
	job  Job
}

// Pool is a fixed set of goroutines draining a bounded queue.
type Pool struct {
	logger *slog.Logger
	tasks  chan task
	wg     conc.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// New starts size workers behind a queue of queueSize jobs.
func New(size, queueSize int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger: logger,
		tasks:  make(chan task, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < size; i++ {
		p.wg.Go(p.run)
	}
	return p
}

// Submit enqueues job without blocking. It returns false when the queue is
// full or the pool is closed; the job is then dropped.
func (p *Pool) Submit(name string, job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("background job dropped, pool closed", slog.String("job", name))
		jobsTotal.WithLabelValues(name, "dropped").Inc()
		return false
	}

	select {
	case p.tasks <- task{name: name, job: job}:
		return true
	default:
		p.logger.Warn("background job dropped, queue full", slog.String("job", name))
		jobsTotal.WithLabelValues(name, "dropped").Inc()
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish. If ctx ends
// first, running jobs are cancelled and ctx.Err() is returned.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) run() {
	for t := range p.tasks {
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	ctx, cancel := context.WithTimeout(p.ctx, JobTimeout)
	defer cancel()

	start := time.Now()
	var err error
	var pc panics.Catcher
	pc.Try(func() { err = t.job(ctx) })

	if r := pc.Recovered(); r != nil {
		p.logger.Error("background job panicked",
			slog.String("job", t.name),
			slog.Any("panic", r.Value),
			slog.String("stack", string(r.Stack)),
		)
		jobsTotal.WithLabelValues(t.name, "panic").Inc()
		return
	}
	if err != nil {
		p.logger.Error("background job failed",
			slog.String("job", t.name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		jobsTotal.WithLabelValues(t.name, "error").Inc()
		return
	}
	jobsTotal.WithLabelValues(t.name, "ok").Inc()
}

var _ Submitter = (*Pool)(nil)
