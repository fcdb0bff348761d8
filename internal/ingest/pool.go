package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrPoolClosed is returned by Submit after Stop.
var ErrPoolClosed = errors.New("ingest pool is closed")

// Job is one image to ingest.
type Job struct {
	Source string
	Kind   Kind
}

// Result is the outcome of a Job. Exactly one of Path and Err is set.
type Result struct {
	Job  Job
	Path string
	Err  error
}

type request struct {
	job   Job
	reply chan Result
}

// Pool runs ingestion on a fixed set of background workers so that
// decoding a large photo never blocks the caller's goroutine.
//
//	Submit ─► requests chan ─► worker 1..N ─► Pipeline.Ingest ─► reply chan
//
// Stop closes the queue and waits; jobs already queued are still finished.
type Pool struct {
	ingester Ingester
	workers  int
	logger   *slog.Logger

	requests  chan request
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	// mu guards closed. Submit holds the read lock while sending so Stop
	// cannot close the channel underneath it.
	mu     sync.RWMutex
	closed bool
}

// NewPool wraps ingester with cfg.Workers background workers.
func NewPool(ingester Ingester, cfg Config, logger *slog.Logger) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		ingester: ingester,
		workers:  workers,
		logger:   logger,
		requests: make(chan request, workers),
	}
}

// Start launches the workers. Calling it more than once is harmless, and
// Submit calls it for you.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Debug("starting ingest pool", slog.Int("workers", p.workers))
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop refuses new jobs, lets the workers drain the queue, and waits for them.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Debug("shutting down ingest pool")
		p.mu.Lock()
		p.closed = true
		close(p.requests)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

// Submit queues a job and returns a channel that receives its single Result.
// It blocks while the queue is full, until ctx is cancelled.
func (p *Pool) Submit(ctx context.Context, job Job) (<-chan Result, error) {
	p.Start()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	reply := make(chan Result, 1)
	select {
	case p.requests <- request{job: job, reply: reply}:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ingest submits one job and waits for it, so a Pool can stand in anywhere
// an Ingester is expected.
func (p *Pool) Ingest(src string, kind Kind) (string, error) {
	reply, err := p.Submit(context.Background(), Job{Source: src, Kind: kind})
	if err != nil {
		return "", err
	}
	res := <-reply
	return res.Path, res.Err
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for req := range p.requests {
		// Failures travel back in the Result; the caller logs them with its own context.
		path, err := p.ingester.Ingest(req.job.Source, req.job.Kind)
		req.reply <- Result{Job: req.job, Path: path, Err: err}
	}
}

// Compile-time checks.
var (
	_ Ingester = (*Pipeline)(nil)
	_ Ingester = (*Pool)(nil)
)
