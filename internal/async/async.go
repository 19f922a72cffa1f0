// Package async runs blocking calls off the interaction goroutine and
// hands their outcome back on a channel.
package async

import "context"

// Result is the outcome of a background call.
type Result[T any] struct {
	Value T
	Err   error
}

// Go runs fn in a new goroutine. The returned channel receives exactly
// one Result and is then closed. The channel is buffered so fn never
// blocks on a receiver that has gone away.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := fn(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// Await waits for the result of ch or for ctx to be done.
func Await[T any](ctx context.Context, ch <-chan Result[T]) (T, error) {
	select {
	case r := <-ch:
		return r.Value, r.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
