package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the idle time before a submitted query runs.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs fn for the latest submitted input once input has been idle
// for the delay. Starting a run cancels the context of the previous one, and
// only the result of the most recent run is delivered on Results.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(ctx context.Context, input string) T

	mu      sync.Mutex
	timer   *time.Timer
	pending uint64 // bumped per Submit
	fired   uint64 // bumped per run
	cancel  context.CancelFunc
	closed  bool
	wg      sync.WaitGroup

	results chan T
}

// NewDebouncer creates a debouncer. A non-positive delay means DefaultDebounce.
func NewDebouncer[T any](delay time.Duration, fn func(ctx context.Context, input string) T) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[T]{
		delay:   delay,
		fn:      fn,
		results: make(chan T, 1),
	}
}

// Results delivers run results. Only the newest undelivered result is kept.
// The channel is closed by Close.
func (d *Debouncer[T]) Results() <-chan T {
	return d.results
}

// Submit replaces any pending input and restarts the idle timer.
func (d *Debouncer[T]) Submit(input string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.pending++
	seq := d.pending
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.run(seq, input)
	})
}

func (d *Debouncer[T]) run(seq uint64, input string) {
	d.mu.Lock()
	if d.closed || seq != d.pending {
		d.mu.Unlock()
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.fired++
	run := d.fired
	d.mu.Unlock()

	result := d.fn(ctx, input)

	d.mu.Lock()
	defer d.mu.Unlock()
	cancel()
	if d.closed || run != d.fired {
		return
	}
	d.cancel = nil
	// Replace an unread older result.
	select {
	case <-d.results:
	default:
	}
	d.results <- result
}

// Close stops the timer, cancels any running fn, waits for it to return,
// and closes Results. Submit after Close is a no-op.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil && d.timer.Stop() {
		// The callback will never run.
		d.wg.Done()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()

	d.wg.Wait()
	close(d.results)
}
