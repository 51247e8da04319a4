package runtime

import (
	"context"
	"fmt"

	"github.com/hanpama/relaygraph/internal/connection"
	"github.com/hanpama/relaygraph/internal/mutation"
	"github.com/hanpama/relaygraph/internal/permission"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/store"
)

// ConnectionSource produces the raw value a connection field pages over: a
// *connection.Page, a collection, a slice or a deferred value of one.
type ConnectionSource func(ctx context.Context, source any, args connection.Args) (any, error)

// BindConnection resolves objectType.field through f. The raw value comes
// from src, or from the parent's own field when src is nil. Immediate values
// are paginated before the resolver returns; deferred ones are paginated once
// they resolve, when the executor awaits the field.
func (r *Runtime) BindConnection(objectType, field string, f *connection.Field, src ConnectionSource) {
	r.Bind(objectType, field, func(ctx context.Context, source any, args map[string]any) (any, error) {
		ca, err := connection.ParseArgs(args)
		if err != nil {
			return nil, err
		}
		var raw any
		if src != nil {
			raw, err = src(ctx, source, ca)
		} else {
			raw, err = project(source, field)
		}
		if err != nil {
			return nil, err
		}
		return f.Resolve(ctx, source, raw, ca), nil
	})
}

// StoreSource pages over the records of model. A non-nil where narrows the
// collection to the records matching the attribute values it returns for
// the parent.
func StoreSource(st store.Store, model *store.Model, where func(source any) map[string]any) ConnectionSource {
	return func(ctx context.Context, source any, _ connection.Args) (any, error) {
		coll := st.Query(model)
		if where == nil {
			return coll, nil
		}
		return coll.Filter(ctx, where(source))
	}
}

// BindMutation resolves a root mutation field by running op of m.
func (r *Runtime) BindMutation(field string, m *mutation.Mutation, op mutation.Operation) error {
	var run func(context.Context, map[string]any) (*mutation.Result, error)
	switch op {
	case mutation.OpCreate:
		run = m.Create
	case mutation.OpUpdate:
		run = m.Update
	case mutation.OpDelete:
		run = m.Delete
	default:
		return fmt.Errorf("unknown mutation operation %q", op)
	}
	r.Bind(r.mutationType(), field, func(ctx context.Context, _ any, args map[string]any) (any, error) {
		res, err := run(ctx, args)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
	return nil
}

// BindMutations binds the create, update and delete fields built by
// m.MutationFields.
func (r *Runtime) BindMutations(m *mutation.Mutation, create, update, del string) error {
	for op, field := range map[mutation.Operation]string{mutation.OpCreate: create, mutation.OpUpdate: update, mutation.OpDelete: del} {
		if field == "" {
			continue
		}
		if err := r.BindMutation(field, m, op); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runtime) mutationType() string {
	if r.schema.MutationType != "" {
		return r.schema.MutationType
	}
	return "Mutation"
}

// Retrieve fetches a single record by its lookup argument.
type Retrieve struct {
	Model       *store.Model
	Store       store.Store
	Permissions permission.Gate
	// LookupField defaults to the primary key, LookupArg to LookupField.
	LookupField string
	LookupArg   string
}

// Resolve checks request permissions, looks the record up and checks object
// permissions on a hit. A miss resolves to null.
func (rt Retrieve) Resolve(ctx context.Context, _ any, args map[string]any) (any, error) {
	field := rt.LookupField
	if field == "" {
		field = rt.Model.PK()
	}
	arg := rt.LookupArg
	if arg == "" {
		arg = field
	}
	req := request.FromContext(ctx)
	if err := rt.Permissions.Check(ctx, req); err != nil {
		return nil, err
	}
	rec, err := rt.Store.Lookup(ctx, rt.Model, field, args[arg])
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", rt.Model.Name, err)
	}
	if rec == nil {
		return nil, nil
	}
	if err := rt.Permissions.CheckObject(ctx, req, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// BindRetrieve resolves objectType.field through rt.
func (r *Runtime) BindRetrieve(objectType, field string, rt Retrieve) {
	r.Bind(objectType, field, rt.Resolve)
}
