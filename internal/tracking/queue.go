package tracking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pslog"
)

var (
	// ErrQueueFull is returned when the queue is at capacity.
	ErrQueueFull = errors.New("tracking queue full")
	// ErrQueueClosed is returned after Stop.
	ErrQueueClosed = errors.New("tracking queue closed")
)

// QueueConfig configures a Queue.
type QueueConfig struct {
	Endpoint       string
	Workers        int
	Depth          int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	HTTP           *http.Client
	Logger         pslog.Logger
}

// JobOutcome reports how a job ended.
type JobOutcome struct {
	Job      Job
	Result   Result
	Status   int
	Attempts int
	Err      error
}

// Queue delivers jobs with a fixed pool of workers.
type Queue struct {
	cfg      QueueConfig
	jobs     chan Job
	outcomes *rx.Subject[JobOutcome]
	log      pslog.Logger

	mu      sync.Mutex
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue validates cfg and returns an idle Queue.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("tracking endpoint is required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Depth < 1 {
		cfg.Depth = 64
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Queue{
		cfg:      cfg,
		jobs:     make(chan Job, cfg.Depth),
		outcomes: rx.NewSubject[JobOutcome](),
		log:      logger.With("tracking", cfg.Endpoint),
	}, nil
}

// Outcomes emits one JobOutcome per finished job.
func (q *Queue) Outcomes() rx.Observable[JobOutcome] {
	return q.outcomes
}

// Start launches the workers. Canceling ctx aborts in-flight retries.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.log.Debug("tracking queue started", "workers", q.cfg.Workers, "depth", q.cfg.Depth)
}

// Enqueue adds job without blocking.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		q.log.Trace("tracking queue dropped", "event", job.EventName)
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for queued jobs to finish. When ctx ends
// first, in-flight work is canceled and ctx's error returned.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	cancel := q.cancel
	started := q.started
	q.mu.Unlock()
	if !started {
		return nil
	}
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		cancel()
		q.log.Debug("tracking queue drained")
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	log := q.log.With("worker", id)
	for job := range q.jobs {
		outcome := q.deliver(ctx, job)
		switch outcome.Result {
		case ResultSuccess:
			log.Debug("tracking event delivered", "event", job.EventName, "attempts", outcome.Attempts)
		default:
			log.Warn("tracking event not delivered", "event", job.EventName, "status", outcome.Status, "attempts", outcome.Attempts, "err", outcome.Err)
		}
		q.outcomes.Next(outcome)
	}
}

func (q *Queue) backoff() retry.Backoff {
	b := retry.NewExponential(q.cfg.InitialBackoff)
	if q.cfg.MaxBackoff > 0 {
		b = retry.WithCappedDuration(q.cfg.MaxBackoff, b)
	}
	return retry.WithMaxRetries(uint64(q.cfg.MaxAttempts-1), b)
}

func (q *Queue) deliver(ctx context.Context, job Job) JobOutcome {
	outcome := JobOutcome{Job: job}
	err := retry.Do(ctx, q.backoff(), func(ctx context.Context) error {
		outcome.Attempts++
		status, err := q.post(ctx, job)
		outcome.Status = status
		if err != nil {
			outcome.Result = ResultRetry
			return retry.RetryableError(err)
		}
		outcome.Result = Classify(status)
		switch outcome.Result {
		case ResultSuccess:
			return nil
		case ResultFailure:
			return fmt.Errorf("%d failed to track event %s", status, job.EventName)
		default:
			return retry.RetryableError(fmt.Errorf("%d failed to track event %s", status, job.EventName))
		}
	})
	outcome.Err = err
	return outcome
}

func (q *Queue) post(ctx context.Context, job Job) (int, error) {
	form := url.Values{}
	form.Set("data", job.Data)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Job-Name", job.Name)
	resp, err := q.cfg.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode, nil
}
