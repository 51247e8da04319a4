package mutation

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/serializer"
	"github.com/hanpama/relaygraph/internal/store"
)

// Strategy validates and persists mutation input. A *fault.ValidationError
// becomes a failed payload; a *HookError becomes a failed payload with a
// single field-less error; any other error aborts the mutation.
type Strategy interface {
	Create(ctx context.Context, data map[string]any) (store.Record, error)
	Update(ctx context.Context, existing store.Record, data map[string]any) (store.Record, error)
}

// SerializerStrategy delegates to a serializer. Updates are partial.
type SerializerStrategy struct {
	Serializer *serializer.Serializer
	Store      store.Store
}

func (s SerializerStrategy) Create(ctx context.Context, data map[string]any) (store.Record, error) {
	if s.Serializer == nil {
		return nil, fmt.Errorf("%w: mutation has neither a serializer nor a strategy", fault.ErrNotImplemented)
	}
	return s.Serializer.Save(ctx, s.Store, data, nil, false)
}

func (s SerializerStrategy) Update(ctx context.Context, existing store.Record, data map[string]any) (store.Record, error) {
	if s.Serializer == nil {
		return nil, fmt.Errorf("%w: mutation has neither a serializer nor a strategy", fault.ErrNotImplemented)
	}
	return s.Serializer.Save(ctx, s.Store, data, existing, true)
}

// CreateFunc creates a record from input.
type CreateFunc func(ctx context.Context, data map[string]any) (store.Record, error)

// UpdateFunc updates existing from input. It may modify existing in place
// and return nil, in which case existing is the result.
type UpdateFunc func(ctx context.Context, existing store.Record, data map[string]any) (store.Record, error)

// Hooks is the strategy of mutations that implement persistence themselves.
// Errors and panics raised by a hook are reported as a single field-less
// error carrying their message. A hook may still return a
// *fault.ValidationError to report field errors.
type Hooks struct {
	OnCreate CreateFunc
	OnUpdate UpdateFunc
}

// HookError wraps a failure raised inside a mutation hook.
type HookError struct {
	Hook string
	Err  error
}

func (e *HookError) Error() string { return e.Hook + ": " + e.Err.Error() }
func (e *HookError) Unwrap() error { return e.Err }

func (h Hooks) Create(ctx context.Context, data map[string]any) (store.Record, error) {
	if h.OnCreate == nil {
		return nil, fmt.Errorf("%w: the create hook must be implemented", fault.ErrNotImplemented)
	}
	return guard("create", func() (store.Record, error) { return h.OnCreate(ctx, data) })
}

func (h Hooks) Update(ctx context.Context, existing store.Record, data map[string]any) (store.Record, error) {
	if h.OnUpdate == nil {
		return nil, fmt.Errorf("%w: the update hook must be implemented", fault.ErrNotImplemented)
	}
	rec, err := guard("update", func() (store.Record, error) { return h.OnUpdate(ctx, existing, data) })
	if err == nil && rec == nil {
		rec = existing
	}
	return rec, err
}

func guard(hook string, fn func() (store.Record, error)) (rec store.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, &HookError{Hook: hook, Err: fmt.Errorf("%v", r)}
		}
	}()
	rec, err = fn()
	if err == nil {
		return rec, nil
	}
	var ve *fault.ValidationError
	if errors.As(err, &ve) {
		return nil, err
	}
	return nil, &HookError{Hook: hook, Err: err}
}
