// Package mutation executes create, update and delete operations against a
// store.
//
// Every operation checks the mutation's permission gate before touching
// data. Update and delete then resolve their target by the lookup field and
// report a miss as a field error on "id" without consulting object
// permissions; a found target goes through the object permission check
// before persistence. A completed operation yields a Result that is either
// successful, carrying the post-processed record, or failed, carrying field
// errors. Permission denials and store failures are returned as errors.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/relaygraph/internal/enumcache"
	"github.com/hanpama/relaygraph/internal/eventbus"
	"github.com/hanpama/relaygraph/internal/events"
	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/permission"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/serializer"
	"github.com/hanpama/relaygraph/internal/store"
)

// Operation names a pipeline.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Result is the payload of a finished mutation. Exactly one of Output and
// Errors is set. Extras holds the values of extra payload fields.
type Result struct {
	OK     bool
	Errors fault.List
	Output any
	Extras map[string]any
}

type Mutation struct {
	// Name is the mutation type name; payload and input type names derive
	// from it.
	Name        string
	Description string
	Model       *store.Model
	Store       store.Store
	// Serializer validates input and defines the input fields.
	Serializer *serializer.Serializer
	// Strategy persists input. Nil uses the serializer.
	Strategy    Strategy
	Permissions permission.Gate

	// InputFieldName, when set, names the single argument carrying the input
	// object. Otherwise every argument is an input field.
	InputFieldName string
	// LookupField is the attribute update and delete resolve targets by; the
	// primary key when empty.
	LookupField string
	// LookupArg is the argument carrying the lookup value; LookupField when
	// empty.
	LookupArg string
	// OutputField names the payload field holding the record; the lower-cased
	// model name when empty.
	OutputField string
	// OutputType is the object type of the output field; the model name when
	// empty.
	OutputType        string
	OutputDescription string
	CreateInputType   string
	UpdateInputType   string

	// PostProcess reshapes a persisted record for the payload.
	PostProcess func(ctx context.Context, rec store.Record) any
	// Extras contributes extra payload values. out is nil for failures.
	Extras      func(ctx context.Context, out any) map[string]any
	ExtraFields []*ExtraField

	// Enums resolves choice fields to enum types; enumcache.Default() when nil.
	Enums  *enumcache.Cache
	Logger logrus.FieldLogger
}

func (m *Mutation) lookupField() string {
	if m.LookupField != "" {
		return m.LookupField
	}
	return m.Model.PK()
}

func (m *Mutation) lookupArg() string {
	if m.LookupArg != "" {
		return m.LookupArg
	}
	return m.lookupField()
}

func (m *Mutation) strategy() Strategy {
	if m.Strategy != nil {
		return m.Strategy
	}
	return SerializerStrategy{Serializer: m.Serializer, Store: m.Store}
}

func (m *Mutation) logger() logrus.FieldLogger {
	if m.Logger != nil {
		return m.Logger
	}
	return logrus.StandardLogger()
}

// Create validates and persists a new record.
func (m *Mutation) Create(ctx context.Context, args map[string]any) (res *Result, err error) {
	defer m.track(ctx, OpCreate)(&res, &err)

	r := request.FromContext(ctx)
	if err := m.Permissions.Check(ctx, r); err != nil {
		return nil, err
	}
	data, err := m.input(r, args)
	if err != nil {
		return nil, err
	}
	rec, err := m.strategy().Create(ctx, data)
	if err != nil {
		return m.fail(ctx, OpCreate, err)
	}
	return m.succeed(ctx, rec), nil
}

// Update applies a partial update to the record selected by the lookup
// value in the input.
func (m *Mutation) Update(ctx context.Context, args map[string]any) (res *Result, err error) {
	defer m.track(ctx, OpUpdate)(&res, &err)

	r := request.FromContext(ctx)
	if err := m.Permissions.Check(ctx, r); err != nil {
		return nil, err
	}
	data, err := m.input(r, args)
	if err != nil {
		return nil, err
	}
	value := data[m.lookupArg()]
	existing, err := m.Store.Lookup(ctx, m.Model, m.lookupField(), value)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", m.Model.Name, err)
	}
	if existing == nil {
		return m.failure(ctx, fault.NotFound(m.Model.Name, value)), nil
	}
	if err := m.Permissions.CheckObject(ctx, r, existing); err != nil {
		return nil, err
	}
	rec, err := m.strategy().Update(ctx, existing, data)
	if err != nil {
		return m.fail(ctx, OpUpdate, err)
	}
	return m.succeed(ctx, rec), nil
}

// Delete removes the record selected by the lookup argument. The payload is
// the deleted record with its lookup value restored.
func (m *Mutation) Delete(ctx context.Context, args map[string]any) (res *Result, err error) {
	defer m.track(ctx, OpDelete)(&res, &err)

	r := request.FromContext(ctx)
	if err := m.Permissions.Check(ctx, r); err != nil {
		return nil, err
	}
	value := args[m.lookupArg()]
	existing, err := m.Store.Lookup(ctx, m.Model, m.lookupField(), value)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", m.Model.Name, err)
	}
	if existing == nil {
		return m.failure(ctx, fault.NotFound(m.Model.Name, value)), nil
	}
	if err := m.Permissions.CheckObject(ctx, r, existing); err != nil {
		return nil, err
	}
	deleted := existing.Clone()
	if err := m.Store.Delete(ctx, m.Model, existing); err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.Model.Name, err)
	}
	deleted[m.lookupField()] = m.restore(value)
	return m.succeed(ctx, deleted), nil
}

// restore converts the requested lookup value to the attribute's kind so the
// payload reports it the way the store did before deletion.
func (m *Mutation) restore(value any) any {
	attr, ok := m.Model.Attribute(m.lookupField())
	if !ok {
		return value
	}
	if v, err := store.Normalize(attr.Kind, value); err == nil {
		return v
	}
	return value
}

// input assembles the input mapping from the arguments and merges the
// request's uploads over it.
func (m *Mutation) input(r *request.Request, args map[string]any) (map[string]any, error) {
	data := make(map[string]any)
	if m.InputFieldName != "" {
		switch in := args[m.InputFieldName].(type) {
		case nil:
		case map[string]any:
			for k, v := range in {
				data[k] = v
			}
		default:
			return nil, fmt.Errorf("argument %q must be an input object, got %T", m.InputFieldName, in)
		}
	} else {
		for k, v := range args {
			data[k] = v
		}
	}
	if r.Multipart() {
		for name, f := range r.Files {
			data[name] = f
		}
	}
	return data, nil
}

func (m *Mutation) succeed(ctx context.Context, rec store.Record) *Result {
	var out any = rec
	if m.PostProcess != nil {
		out = m.PostProcess(ctx, rec)
	}
	res := &Result{OK: true, Output: out}
	if m.Extras != nil {
		res.Extras = m.Extras(ctx, out)
	}
	return res
}

func (m *Mutation) failure(ctx context.Context, errs fault.List) *Result {
	res := &Result{Errors: errs}
	if m.Extras != nil {
		res.Extras = m.Extras(ctx, nil)
	}
	return res
}

// fail turns a strategy error into a failed payload when it carries field
// errors or comes from a hook. Anything else aborts the operation.
func (m *Mutation) fail(ctx context.Context, op Operation, err error) (*Result, error) {
	if errs, ok := fault.AsList(err); ok {
		return m.failure(ctx, errs), nil
	}
	var he *HookError
	if errors.As(err, &he) {
		m.logger().WithFields(logrus.Fields{
			"mutation":  m.Name,
			"operation": string(op),
		}).WithError(he.Err).Warn("mutation hook failed")
		return m.failure(ctx, fault.List{fault.Generic(he.Err.Error())}), nil
	}
	return nil, err
}

func (m *Mutation) track(ctx context.Context, op Operation) func(**Result, *error) {
	began := time.Now()
	eventbus.Publish(ctx, events.MutationStart{Mutation: m.Name, Operation: string(op)})
	return func(res **Result, err *error) {
		e := events.MutationFinish{
			Mutation:  m.Name,
			Operation: string(op),
			Err:       *err,
			Duration:  time.Since(began),
		}
		if r := *res; r != nil {
			e.OK = r.OK
			e.Errors = len(r.Errors)
		}
		eventbus.Publish(ctx, e)
	}
}
