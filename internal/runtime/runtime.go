// Package runtime implements executor.Runtime over a registry of field
// resolvers.
//
// Fields without a bound resolver are projected from their parent value:
// records and maps by key, and the connection, mutation payload and error
// values produced by the bound resolvers by their GraphQL field names. Bound
// resolvers may return deferred values; the executor awaits them.
package runtime

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/relaygraph/internal/executor"
	"github.com/hanpama/relaygraph/internal/schema"
)

// Resolver resolves one field instance.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolver picks the concrete object type of an abstract type value.
type TypeResolver func(ctx context.Context, value any) (string, error)

// ScalarSerializer converts an internal value of a custom scalar to its
// JSON-safe form.
type ScalarSerializer func(value any) (any, error)

type fieldKey struct {
	objectType string
	field      string
}

// Runtime is safe for concurrent use. Bindings are expected to be made
// before serving and may be made concurrently with resolution.
type Runtime struct {
	schema *schema.Schema

	mu        sync.RWMutex
	resolvers map[fieldKey]Resolver
	types     map[string]TypeResolver
	scalars   map[string]ScalarSerializer
}

var _ executor.Runtime = (*Runtime)(nil)

func New(sch *schema.Schema) *Runtime {
	return &Runtime{
		schema:    sch,
		resolvers: make(map[fieldKey]Resolver),
		types:     make(map[string]TypeResolver),
		scalars:   make(map[string]ScalarSerializer),
	}
}

// Schema returns the schema the runtime serves.
func (r *Runtime) Schema() *schema.Schema { return r.schema }

// Bind registers fn for objectType.field, replacing any earlier binding.
func (r *Runtime) Bind(objectType, field string, fn func(ctx context.Context, source any, args map[string]any) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[fieldKey{objectType, field}] = fn
}

// BindType registers the type resolver of an interface or union.
func (r *Runtime) BindType(abstractType string, fn TypeResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[abstractType] = fn
}

// BindScalar registers the serializer of a custom scalar.
func (r *Runtime) BindScalar(name string, fn ScalarSerializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scalars[name] = fn
}

func (r *Runtime) resolver(objectType, field string) Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolvers[fieldKey{objectType, field}]
}

func (r *Runtime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if fn := r.resolver(objectType, field); fn != nil {
		return fn(ctx, source, args)
	}
	return project(source, field)
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return r.resolve(ctx, objectType, field, source, args)
}

// BatchResolveAsync groups tasks by (objectType, field) and runs the groups
// concurrently. Tasks of one group run in order. Results keep task order.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	var order []fieldKey
	groups := make(map[fieldKey][]int)
	for i, t := range tasks {
		k := fieldKey{t.ObjectType, t.Field}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var g errgroup.Group
	for _, k := range order {
		idxs := groups[k]
		g.Go(func() error {
			for _, i := range idxs {
				t := tasks[i]
				v, err := r.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
				results[i] = executor.AsyncResolveResult{Value: v, Error: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ResolveType uses the bound type resolver, then a "__typename" key on map
// values, then the only possible type of the abstract type.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	r.mu.RLock()
	fn := r.types[abstractType]
	r.mu.RUnlock()
	if fn != nil {
		return fn(ctx, value)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	if t := r.schema.Type(abstractType); t != nil && len(t.PossibleTypes) == 1 {
		return t.PossibleTypes[0], nil
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s for %T", abstractType, value)
}

func (r *Runtime) ResolveUnionConcreteValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) ResolveInterfaceConcreteValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}
