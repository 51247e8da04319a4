package executor

import (
	"context"
)

// Runtime resolves fields and leaf values for the Executor.
//
// Execution is breadth first. A depth starts with every sync field reachable
// through already completed values, resolved with ResolveSync. Async fields
// found on the way go to one BatchResolveAsync call; the next depth waits for
// that call and for every pending deferred value of the depth.
//
// Either resolver may return a deferred.Deferred. A resolved one is used in
// place, a pending one is awaited with the batch.
//
// Errors become located GraphQL errors. Implementations must be safe for
// concurrent use across operations and must not mutate source or args.
type Runtime interface {
	// ResolveSync resolves a field not marked async. (nil, nil) is null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves the async fields of one depth. It returns
	// one result per task, in task order, and is not called for an empty
	// depth. One failing task does not fail the others.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of an interface or union
	// value.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// ResolveUnionConcreteValue and ResolveInterfaceConcreteValue unwrap an
	// abstract value once its concrete type is known.
	ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error)
	ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error)

	// SerializeLeafValue turns an internal scalar or enum value into its
	// JSON form. Enums serialize to their value name.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one async field instance of a batch.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Source     any // nil for root fields
	Args       map[string]any
}

type AsyncResolveResult struct {
	Value any
	Error error
}
