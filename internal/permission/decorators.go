package permission

import (
	"context"
	"errors"
	"reflect"

	"github.com/hanpama/relaygraph/internal/deferred"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/store"
)

// Resolver is the field resolver signature the decorators wrap.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

const (
	msgAuthRequired  = "Authentication is required"
	msgNotAuthorized = "Not Authorized"
)

func guard(check func(*request.Request) error, next Resolver) Resolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		if err := check(request.FromContext(ctx)); err != nil {
			return nil, err
		}
		return next(ctx, source, args)
	}
}

// LoginRequired rejects anonymous requests.
func LoginRequired(next Resolver) Resolver {
	return guard(func(r *request.Request) error {
		if !r.Authenticated() {
			return Deny(msgAuthRequired)
		}
		return nil
	}, next)
}

// StaffRequired rejects anonymous and non-staff requests.
func StaffRequired(next Resolver) Resolver {
	return guard(func(r *request.Request) error {
		if !r.Authenticated() {
			return Deny(msgAuthRequired)
		}
		if !r.User.Staff && !r.User.Superuser {
			return Deny(msgNotAuthorized)
		}
		return nil
	}, next)
}

// SuperuserRequired rejects anonymous and non-superuser requests.
func SuperuserRequired(next Resolver) Resolver {
	return guard(func(r *request.Request) error {
		if !r.Authenticated() {
			return Deny(msgAuthRequired)
		}
		if !r.User.Superuser {
			return Deny(msgNotAuthorized)
		}
		return nil
	}, next)
}

// Required checks the providers before calling next and then checks object
// permission on the result: on the first element of a list or collection,
// or on the result itself when it is a single record.
func Required(providers ...Provider) func(Resolver) Resolver {
	g := Gate(providers)
	return func(next Resolver) Resolver {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			r := request.FromContext(ctx)
			if err := g.Check(ctx, r); err != nil {
				return nil, err
			}
			res, err := next(ctx, source, args)
			if err != nil {
				return nil, err
			}
			if d, ok := res.(deferred.Deferred); ok {
				v := deferred.Then(ctx, deferred.Of(d), func(ctx context.Context, v any) (any, error) {
					return v, g.checkFirst(ctx, r, v)
				})
				return v, nil
			}
			return res, g.checkFirst(ctx, r, res)
		}
	}
}

var errEmpty = errors.New("empty")

func (g Gate) checkFirst(ctx context.Context, r *request.Request, res any) error {
	obj, err := first(ctx, res)
	if errors.Is(err, errEmpty) {
		return nil
	}
	if err != nil {
		return err
	}
	return g.CheckObject(ctx, r, obj)
}

func first(ctx context.Context, res any) (any, error) {
	if res == nil {
		return nil, errEmpty
	}
	if s, ok := res.(store.Slicer); ok {
		items, err := s.Slice(ctx, 0, 1)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, errEmpty
		}
		return items[0], nil
	}
	rv := reflect.ValueOf(res)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil, errEmpty
		}
		return rv.Index(0).Interface(), nil
	case reflect.Pointer, reflect.Map:
		if rv.IsNil() {
			return nil, errEmpty
		}
	}
	return res, nil
}
