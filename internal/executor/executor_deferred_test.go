package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/relaygraph/internal/deferred"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

func itemSchema(async bool) *schema.Schema {
	return newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("items", "", schema.ListType(schema.NamedType("Item"))).SetAsync(async),
			schema.NewField("count", "", schema.NonNullType(schema.NamedType("Int"))),
		),
		newObjectType("Item", schema.NewField("name", "", schema.NamedType("String"))),
		newScalarType("String"),
		newScalarType("Int"),
	)
}

func pendingItems(started *atomic.Int32, names ...string) deferred.Value[[]any] {
	return deferred.Pending(func(context.Context) ([]any, error) {
		started.Add(1)
		out := make([]any, len(names))
		for i, n := range names {
			out[i] = map[string]any{"name": n}
		}
		return out, nil
	})
}

func nameResolver(_ context.Context, source any, _ map[string]any) (any, error) {
	return source.(map[string]any)["name"], nil
}

func TestSyncResolverReturningPendingValue(t *testing.T) {
	var started atomic.Int32
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.items": func(context.Context, any, map[string]any) (any, error) {
			return pendingItems(&started, "gear", "spring"), nil
		},
		"Query.count": NewMockValueResolver(2),
		"Item.name":   nameResolver,
	})
	doc := mustParseQuery(t, "{ items { name } count }")

	got := NewExecutor(rt, itemSchema(false)).ExecuteRequest(context.Background(), doc, "", nil, nil)
	want := &ExecutionResult{
		Data: map[string]any{
			"items": []any{map[string]any{"name": "gear"}, map[string]any{"name": "spring"}},
			"count": 2,
		},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.EqualValues(t, 1, started.Load())
	for _, c := range rt.GetCalls() {
		require.Equal(t, CallKindSync, c.Kind)
	}
}

func TestResolvedDeferredUnwrappedInPlace(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.items": NewMockValueResolver(deferred.Resolved([]any{map[string]any{"name": "gear"}})),
		"Query.count": NewMockValueResolver(deferred.Resolved(1)),
		"Item.name":   nameResolver,
	})
	doc := mustParseQuery(t, "{ items { name } count }")

	got := NewExecutor(rt, itemSchema(false)).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, got.Errors)
	require.Equal(t, map[string]any{"items": []any{map[string]any{"name": "gear"}}, "count": 1}, got.Data)
}

func TestBatchResultsMayBeDeferred(t *testing.T) {
	var started atomic.Int32
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.items": func(context.Context, any, map[string]any) (any, error) {
			return pendingItems(&started, "gear"), nil
		},
		"Query.count": NewMockValueResolver(1),
		"Item.name":   nameResolver,
	})
	doc := mustParseQuery(t, "{ a: items { name } b: items { name } count }")

	got := NewExecutor(rt, itemSchema(true)).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, got.Errors)
	require.Equal(t, []any{map[string]any{"name": "gear"}}, got.Data.(map[string]any)["a"])
	require.Equal(t, []any{map[string]any{"name": "gear"}}, got.Data.(map[string]any)["b"])
	require.EqualValues(t, 2, started.Load())

	var batches []int
	for _, c := range rt.GetCalls() {
		if c.Kind == CallKindAsync {
			batches = append(batches, c.BatchID)
		}
	}
	require.Equal(t, []int{1, 1}, batches)
}

func TestDeferredFailureIsLocated(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.items": NewMockValueResolver(deferred.Pending(func(context.Context) ([]any, error) {
			return nil, errors.New("backend down")
		})),
		"Query.count": NewMockValueResolver(deferred.Failed[int](errors.New("no count"))),
	})
	doc := mustParseQuery(t, "{ items { name } count }")

	got := NewExecutor(rt, itemSchema(false)).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Equal(t, map[string]any{"items": nil, "count": nil}, got.Data)
	require.ElementsMatch(t, []GraphQLError{
		{Message: "no count", Path: Path{"count"}},
		{Message: "backend down", Path: Path{"items"}},
	}, got.Errors)
}

func TestEnumArgumentsCoerceToInternalValues(t *testing.T) {
	kind := schema.NewType("Kind", schema.TypeKindEnum, "").
		AddEnumValue(schema.NewEnumValue("SPRING_COIL", "").SetValue("spring-coil"))
	filter := schema.NewType("Filter", schema.TypeKindInputObject, "").
		AddInputField(schema.NewInputValue("kind", "", schema.NamedType("Kind"))).
		AddInputField(schema.NewInputValue("limit", "", schema.NamedType("Int")).SetDefault(10))
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("echo", "", schema.NamedType("String")).
			AddArgument(schema.NewInputValue("kind", "", schema.NamedType("Kind"))).
			AddArgument(schema.NewInputValue("filter", "", schema.NamedType("Filter")))),
		kind, filter, newScalarType("String"), newScalarType("Int"),
	)
	var seen []map[string]any
	rt := NewMockRuntime(map[string]MockResolver{
		"Query.echo": func(_ context.Context, _ any, args map[string]any) (any, error) {
			seen = append(seen, args)
			return "ok", nil
		},
	})
	exec := NewExecutor(rt, sch)

	doc := mustParseQuery(t, `query($k: Kind) { a: echo(kind: SPRING_COIL) b: echo(kind: $k) c: echo(filter: {kind: $k}) }`)
	got := exec.ExecuteRequest(context.Background(), doc, "", map[string]any{"k": "SPRING_COIL"}, nil)
	require.Empty(t, got.Errors)
	require.Equal(t, []map[string]any{
		{"kind": "spring-coil"},
		{"kind": "spring-coil"},
		{"filter": map[string]any{"kind": "spring-coil", "limit": 10}},
	}, seen)

	doc = mustParseQuery(t, `{ echo(kind: LEVER) }`)
	got = exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Len(t, got.Errors, 1)
	require.Contains(t, got.Errors[0].Message, "does not exist in enum Kind")
}
