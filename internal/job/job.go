// Package job implements a cancellable background job runner: the
// channel-based translation of the reference project's Qt
// Worker/WorkerSignals pattern (started/finished/error/result/progress
// signals emitted from a QRunnable onto a QThreadPool) into goroutines and
// typed channels.
//
// The reference implementation drops its own reference to the worker
// right after handing it to the thread pool, relying entirely on the Qt
// runtime to keep it alive for the duration of the run. The Runner here
// does the opposite on purpose: it retains every live Handle in a map
// until that job's result has been delivered, so a caller who never reads
// the result channel cannot cause the job's goroutine-side state to be
// collected or orphaned mid-flight.
package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/farcloser/autocut/internal/fault"
)

// Progress reports fractional completion (0..100) and a human-readable
// status line, mirroring the reference project's progress(value, message)
// signal.
type Progress struct {
	Percent float64
	Message string
}

// Reporter is handed to a job function so it can publish progress.
type Reporter func(percent float64, message string)

// Func is the work a job performs. It receives a Reporter and a context
// that is cancelled when the job's handle is cancelled.
type Func func(ctx context.Context, report Reporter) (any, error)

// Handle is a live job: a progress stream, a one-shot result, and a
// cooperative cancel.
type Handle struct {
	ID string

	progress chan Progress
	result   chan Result
	cancel   context.CancelFunc

	delivered atomic.Bool
}

// Result is the job's terminal outcome, sent exactly once on Handle's
// result channel.
type Result struct {
	Value any
	Err   error
}

// Progress returns the channel of progress updates. It is closed once the
// job's result has been sent.
func (h *Handle) Progress() <-chan Progress { return h.progress }

// Result returns the channel the job's single terminal Result arrives on.
func (h *Handle) Result() <-chan Result { return h.result }

// Cancel requests cooperative cancellation. The job function must observe
// ctx.Done() to actually stop; cancellation does not forcibly kill work.
func (h *Handle) Cancel() { h.cancel() }

// Delivered reports whether the job's terminal Result has already been
// placed on the result channel.
func (h *Handle) Delivered() bool { return h.delivered.Load() }

// Runner executes Funcs on a bounded worker pool and retains each job's
// Handle until its result has been delivered, closing the gap the
// reference project's bare QRunnable left open.
type Runner struct {
	sem chan struct{}

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewRunner builds a Runner with the given worker concurrency limit.
func NewRunner(maxConcurrent int) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	return &Runner{
		sem:     make(chan struct{}, maxConcurrent),
		handles: make(map[string]*Handle),
	}
}

// Submit starts fn in a new goroutine, gating actual execution on the
// runner's worker-pool semaphore, and returns its Handle immediately.
func (r *Runner) Submit(ctx context.Context, fn Func) *Handle {
	ctx, cancel := context.WithCancel(ctx)

	h := &Handle{
		ID:       uuid.NewString(),
		progress: make(chan Progress, 16),
		result:   make(chan Result, 1),
		cancel:   cancel,
	}

	r.mu.Lock()
	r.handles[h.ID] = h
	r.mu.Unlock()

	go r.run(ctx, h, fn)

	return h
}

func (r *Runner) run(ctx context.Context, h *Handle, fn Func) {
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	defer close(h.progress)
	defer r.release(h.ID)

	report := func(percent float64, message string) {
		select {
		case h.progress <- Progress{Percent: percent, Message: message}:
		case <-ctx.Done():
		}
	}

	value, err := runGuarded(ctx, fn, report)

	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w", fault.ErrCancelled)
	}

	h.delivered.Store(true)
	h.result <- Result{Value: value, Err: err}
	close(h.result)
}

// runGuarded recovers a panicking job function into an error result,
// matching the reference project's except Exception -> signals.error.emit
// finally-block shape.
func runGuarded(ctx context.Context, fn Func, report Reporter) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job panicked: %v", p)
		}
	}()

	return fn(ctx, report)
}

// release drops the runner's reference to a finished job's handle. Called
// only after the result has been sent, so Submit's caller always has a
// chance to read it even if Cancel raced with completion.
func (r *Runner) release(id string) {
	r.mu.Lock()
	delete(r.handles, id)
	r.mu.Unlock()
}

// Lookup returns a still-tracked job's Handle by id, for callers (e.g. an
// HTTP or CLI layer) that only have the id on hand.
func (r *Runner) Lookup(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.handles[id]

	return h, ok
}

// Active returns the number of jobs the runner is currently tracking.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.handles)
}
