// Package deferred models values that are either already available or pending
// on some asynchronous work.
//
// A Value is one of two states:
//   - Resolved: the value (or failure) is known at construction time.
//   - Pending: the value becomes known after the wait function returns. The
//     first outcome is kept and every later Await observes it, except a
//     failure returned while the awaiting context was done: that Await
//     reports it and the next Await waits again.
//
// Then is the single continuation primitive. It applies a function to the
// eventual value, immediately for resolved values and lazily for pending
// ones, so callers write one code path for both states.
package deferred

import (
	"context"
	"sync"
)

// Value is a Resolved-or-Pending value of T.
type Value[T any] struct {
	val T
	err error
	f   *future[T]
}

type future[T any] struct {
	mu   sync.Mutex
	done bool
	wait func(context.Context) (T, error)
	val  T
	err  error
}

// Resolved returns an available value.
func Resolved[T any](v T) Value[T] { return Value[T]{val: v} }

// Failed returns an available failure.
func Failed[T any](err error) Value[T] { return Value[T]{err: err} }

// Pending returns a value produced by wait on first Await.
func Pending[T any](wait func(context.Context) (T, error)) Value[T] {
	return Value[T]{f: &future[T]{wait: wait}}
}

// Go starts fn in its own goroutine and returns a pending value for its outcome.
// Await returns early with ctx.Err() when the awaiting context is done.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) Value[T] {
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()
	return Pending(func(waitCtx context.Context) (T, error) {
		select {
		case o := <-ch:
			return o.val, o.err
		case <-waitCtx.Done():
			var zero T
			return zero, waitCtx.Err()
		}
	})
}

// IsPending reports whether the value still needs to be awaited.
func (v Value[T]) IsPending() bool { return v.f != nil }

// Await returns the value, blocking on pending work.
func (v Value[T]) Await(ctx context.Context) (T, error) {
	if v.f == nil {
		return v.val, v.err
	}
	f := v.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return f.val, f.err
	}
	val, err := f.wait(ctx)
	if err != nil && ctx.Err() != nil {
		return val, err
	}
	f.val, f.err, f.done = val, err, true
	return val, err
}

// AwaitAny is Await with the value boxed, satisfying Deferred.
func (v Value[T]) AwaitAny(ctx context.Context) (any, error) {
	return v.Await(ctx)
}

// Then applies fn to the eventual value of v. For resolved values fn runs
// before Then returns; for pending values it runs inside the returned value's
// Await. Failures skip fn and propagate.
func Then[T, U any](ctx context.Context, v Value[T], fn func(context.Context, T) (U, error)) Value[U] {
	if !v.IsPending() {
		if v.err != nil {
			return Failed[U](v.err)
		}
		u, err := fn(ctx, v.val)
		if err != nil {
			return Failed[U](err)
		}
		return Resolved(u)
	}
	return Pending(func(waitCtx context.Context) (U, error) {
		t, err := v.Await(waitCtx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(waitCtx, t)
	})
}

// Deferred is implemented by every Value regardless of its type parameter.
// It lets untyped code detect and await deferred values.
type Deferred interface {
	IsPending() bool
	AwaitAny(ctx context.Context) (any, error)
}

// Of lifts an arbitrary value into Value[any]. Deferred values keep their
// state; anything else is resolved.
func Of(x any) Value[any] {
	d, ok := x.(Deferred)
	if !ok {
		return Resolved(x)
	}
	if !d.IsPending() {
		v, err := d.AwaitAny(context.Background())
		if err != nil {
			return Failed[any](err)
		}
		return Resolved(v)
	}
	return Pending(d.AwaitAny)
}
