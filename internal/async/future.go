// Package async provides single-shot futures for operations that must
// complete even when the caller stops waiting for them.
package async

import "context"

// Future holds the eventual result of one operation started with Go.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go starts fn in its own goroutine and returns a Future for its result.
//
// fn runs with a context that keeps the parent's values but not its
// cancellation: an in-flight request is allowed to finish after the caller
// has moved on, and the caller discards the result by not awaiting it.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(f.done)
		f.value, f.err = fn(detached)
	}()
	return f
}

// Done is closed once the operation has completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the operation completes or ctx is done. Giving up
// does not cancel the operation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to be called with the result once available. fn runs
// on its own goroutine.
func (f *Future[T]) Then(fn func(T, error)) {
	go func() {
		<-f.done
		fn(f.value, f.err)
	}()
}
