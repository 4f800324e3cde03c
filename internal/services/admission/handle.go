package admission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/globaldex/internal/model"
)

// Handle correlates a submitted intent with its eventual result.
// It is resolved exactly once by a worker and may be awaited by any number of callers.
type Handle[R any] struct {
	intentID string
	done     chan struct{}
	once     sync.Once
	result   R
	err      error
}

func newHandle[R any](intentID string) *Handle[R] {
	return &Handle[R]{
		intentID: intentID,
		done:     make(chan struct{}),
	}
}

// IntentID returns the correlation ID of the submitted intent
func (h *Handle[R]) IntentID() string {
	return h.intentID
}

// resolve stores the outcome. Later calls are ignored.
func (h *Handle[R]) resolve(result R, err error) {
	h.once.Do(func() {
		h.result = result
		h.err = err
		close(h.done)
	})
}

// Done is closed once the intent has been processed
func (h *Handle[R]) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the intent is processed, the timeout elapses or ctx is
// done. A timeout of zero or less waits on ctx alone. Giving up returns
// ErrProcessingTimeout; the intent keeps running either way.
func (h *Handle[R]) Await(ctx context.Context, timeout time.Duration) (R, error) {
	var zero R

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-h.done:
		return h.result, h.err
	case <-expired:
		return zero, fmt.Errorf("%w after %s", model.ErrProcessingTimeout, timeout)
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", model.ErrProcessingTimeout, ctx.Err())
	}
}

// Go runs fn on its own goroutine and returns a Handle for its result.
// It is used for operations that bypass the queues but are still awaited
// with a bounded wait.
func Go[R any](intentID string, fn func() (R, error)) *Handle[R] {
	h := newHandle[R](intentID)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				h.resolve(zero, fmt.Errorf("panic processing intent: %v", r))
			}
		}()
		h.resolve(fn())
	}()
	return h
}
