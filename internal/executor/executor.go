package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/relaygraph/internal/deferred"
	language "github.com/hanpama/relaygraph/internal/language"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

// Executor runs operations against a schema, resolving fields through a
// Runtime one depth at a time.
type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

type executionState struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	queue     []*task
	errors    []GraphQLError
}

// task is a field left for the next batch: an async field, or a sync field
// whose resolver returned a pending value.
type task struct {
	resolve   AsyncResolveTask
	pending   deferred.Deferred
	fieldType *schema.TypeRef
	fields    []*language.Field
	at        *slot
}

// ExecuteRequest executes the selected operation of document. Root fields
// absorb null propagation, so Data is always an object.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := document.Operations.ForName(operationName)
	if operation == nil {
		return requestError("operation not found")
	}
	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return requestError(err.Error())
	}
	rootType, err := e.rootType(operation.Operation)
	if err != nil {
		return requestError(err.Error())
	}

	s := &executionState{
		ctx:       ctx,
		runtime:   e.runtime,
		schema:    e.schema,
		document:  document,
		variables: variables,
		errors:    []GraphQLError{},
	}
	data := make(map[string]any)
	s.executeSelectionSet(rootType, operation.SelectionSet, initialValue, data, nil)
	for len(s.queue) > 0 {
		s.runDepth()
	}
	return &ExecutionResult{Data: data, Errors: s.errors}
}

func (e *Executor) rootType(op language.Operation) (*schema.Type, error) {
	var t *schema.Type
	switch op {
	case language.Query:
		t = e.schema.GetQueryType()
	case language.Mutation:
		t = e.schema.GetMutationType()
	case language.Subscription:
		t = e.schema.GetSubscriptionType()
	default:
		return nil, fmt.Errorf("unsupported operation type: %s", op)
	}
	if t == nil {
		return nil, fmt.Errorf("root type not found for %s operation", op)
	}
	return t, nil
}

func requestError(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

// executeSelectionSet writes the fields selected on objectType into out. It
// reports false when a non-null field came back null, in which case the
// object itself must be nulled. Below the root, parent is the slot holding
// the object.
func (s *executionState) executeSelectionSet(objectType *schema.Type, set language.SelectionSet, source any, out map[string]any, parent *slot) bool {
	for _, g := range s.collectFields(objectType, set) {
		if g.name == "__typename" {
			out[g.key] = objectType.Name
			continue
		}
		at := &slot{parent: parent, container: out, key: g.key}
		def := objectType.Field(g.name)
		if def == nil {
			s.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", g.name, objectType.Name), at.path())
			continue
		}
		at.nonNull = schema.IsNonNull(def.Type)
		out[g.key] = nil
		v, queued := s.executeField(objectType, source, def, g.fields, at)
		if queued {
			continue
		}
		if v == nil && at.nonNull && parent != nil {
			return false
		}
		out[g.key] = v
	}
	return true
}

// executeField resolves a sync field and completes it in place, or queues it.
func (s *executionState) executeField(objectType *schema.Type, source any, def *schema.Field, fields []*language.Field, at *slot) (value any, queued bool) {
	path := at.path()
	args := coerceArgumentValues(def, fields[0].Arguments, s.variables, s, path)
	t := &task{
		resolve:   AsyncResolveTask{ObjectType: objectType.Name, Field: def.Name, Source: source, Args: args},
		fieldType: def.Type,
		fields:    fields,
		at:        at,
	}
	if def.Async {
		s.queue = append(s.queue, t)
		return nil, true
	}

	v, err := s.runtime.ResolveSync(s.ctx, objectType.Name, def.Name, source, args)
	if d, ok := v.(deferred.Deferred); ok && err == nil {
		if d.IsPending() {
			t.pending = d
			s.queue = append(s.queue, t)
			return nil, true
		}
		v, err = d.AwaitAny(s.ctx)
	}
	if err != nil {
		s.fail(at, err)
		v = nil
	}
	return s.complete(def.Type, fields, v, at), false
}

// runDepth resolves the queued fields in one runtime batch, awaits pending
// values concurrently and completes the results. Fields queued during
// completion form the next depth.
func (s *executionState) runDepth() {
	batch := make([]*task, 0, len(s.queue))
	for _, t := range s.queue {
		if t.at.live() {
			batch = append(batch, t)
		}
	}
	s.queue = nil

	results := s.resolveBatch(batch)
	for i, t := range batch {
		if !t.at.live() {
			continue
		}
		res := results[i]
		if res.Error != nil {
			s.fail(t.at, res.Error)
			res.Value = nil
		}
		v := s.complete(t.fieldType, t.fields, res.Value, t.at)
		if v == nil && t.at.nonNull {
			t.at.bubble()
			continue
		}
		t.at.set(v)
	}
}

func (s *executionState) resolveBatch(batch []*task) []AsyncResolveResult {
	results := make([]AsyncResolveResult, len(batch))

	var tasks []AsyncResolveTask
	var index []int
	for i, t := range batch {
		if t.pending == nil {
			tasks = append(tasks, t.resolve)
			index = append(index, i)
		}
	}
	if len(tasks) > 0 {
		out := s.runtime.BatchResolveAsync(s.ctx, tasks)
		for j, i := range index {
			if j >= len(out) {
				results[i] = AsyncResolveResult{Error: fmt.Errorf("runtime returned %d results for %d tasks", len(out), len(tasks))}
				continue
			}
			results[i] = out[j]
		}
	}

	var g errgroup.Group
	for i, t := range batch {
		d := t.pending
		if d == nil && results[i].Error == nil {
			d, _ = results[i].Value.(deferred.Deferred)
		}
		if d == nil {
			continue
		}
		g.Go(func() error {
			v, err := d.AwaitAny(s.ctx)
			results[i] = AsyncResolveResult{Value: v, Error: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

// fail records err at the slot. A slot reports at most one null violation,
// so a failed slot is marked.
func (s *executionState) fail(at *slot, err error) {
	s.errors = append(s.errors, NewError(err, at.path()))
	at.errored = true
}

func (s *executionState) failf(at *slot, format string, args ...any) {
	s.addError(fmt.Sprintf(format, args...), at.path())
	at.errored = true
}
