// Package executor implements a breadth-first GraphQL executor that resolves
// each depth of asynchronous work in one batch.
//
// # Execution Model
//
// Fields are either synchronous or asynchronous, as declared by
// schema.Field.Async. At every depth the executor:
//
//	A. Expands synchronous fields immediately via Runtime.ResolveSync and
//	   completes their values, descending through objects and lists without
//	   increasing depth.
//	B. Queues asynchronous fields discovered during A.
//	C. Resolves the queue: async fields go to Runtime.BatchResolveAsync in a
//	   single call, and pending deferred values (returned by either kind of
//	   resolver) are awaited concurrently.
//	D. Completes each result at its response path, queuing the async fields
//	   found beneath it for the next depth.
//
// For a query whose asynchronous depth is d, BatchResolveAsync runs at most d
// times. A connection field backed by a collection loaded in the background
// therefore costs one round per depth however many parents select it.
//
// # Deferred Values
//
// A resolver may return any deferred.Deferred. Values that are already
// resolved are unwrapped in place. Pending values are queued like async
// fields and awaited in step C; a failure is reported as a located error on
// the field.
//
// # Value Completion
//
//   - Non-Null: unwrap and complete the inner type; a null result records a
//     violation and null propagates to the nearest nullable ancestor.
//   - List: complete every element with index paths. A null element of a
//     Non-Null inner type nullifies the list.
//   - Scalar and Enum: Runtime.SerializeLeafValue.
//   - Interface and Union: Runtime.ResolveType picks the concrete object type.
//   - Object: collect subfields and continue with step A.
//
// Errors are accumulated with their paths; execution continues for sibling
// fields. Queued tasks below a nullified path are dropped before the next
// batch.
//
// Fragment type conditions match the object type, an interface it implements
// or a union it belongs to.
package executor
