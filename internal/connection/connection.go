// Package connection turns collections into cursor-addressable pages.
//
// A Field resolves a raw value (a *Page, a collection, a slice or a deferred
// value producing one of those) into a *Page. Windowing follows the relay
// array-connection algorithm: after and first bound the window from the
// start, before and last bound it from the end. Cursors encode the absolute
// offset of a record in the collection as it was ordered at resolution time.
package connection

import (
	"context"
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/hanpama/relaygraph/internal/deferred"
	"github.com/hanpama/relaygraph/internal/eventbus"
	"github.com/hanpama/relaygraph/internal/events"
	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/store"
)

// Args are the pagination arguments of a connection field. Nil means absent.
type Args struct {
	First    *int
	Last     *int
	After    *string
	Before   *string
	Ordering *string
}

// ParseArgs reads pagination arguments from coerced field arguments.
func ParseArgs(m map[string]any) (Args, error) {
	var a Args
	var err error
	if a.First, err = intArg(m, "first"); err != nil {
		return a, err
	}
	if a.Last, err = intArg(m, "last"); err != nil {
		return a, err
	}
	a.After = stringArg(m, "after")
	a.Before = stringArg(m, "before")
	a.Ordering = stringArg(m, "ordering")
	return a, nil
}

func intArg(m map[string]any, name string) (*int, error) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, nil
	}
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int32:
		n = int(x)
	case int64:
		n = int(x)
	case float64:
		if x != float64(int(x)) {
			return nil, fmt.Errorf("argument %q must be a whole number, got %v", name, x)
		}
		n = int(x)
	default:
		return nil, fmt.Errorf("argument %q must be an integer, got %T", name, v)
	}
	return &n, nil
}

func stringArg(m map[string]any, name string) *string {
	v, ok := m[name]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprint(v)
	}
	return &s
}

type Edge struct {
	Cursor string
	Node   any
}

type PageInfo struct {
	HasNextPage     bool
	HasPreviousPage bool
	StartCursor     *string
	EndCursor       *string
}

// Page is one window of a collection. Iterable is the collection the window
// was cut from, after any reordering.
type Page struct {
	Edges      []Edge
	PageInfo   PageInfo
	TotalCount int
	Iterable   any
}

const cursorPrefix = "arrayconnection:"

// OffsetToCursor encodes a zero-based offset.
func OffsetToCursor(offset int) string {
	return base64.StdEncoding.EncodeToString([]byte(cursorPrefix + strconv.Itoa(offset)))
}

// CursorToOffset decodes a cursor produced by OffsetToCursor.
func CursorToOffset(cursor string) (int, bool) {
	raw, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return 0, false
	}
	s, ok := strings.CutPrefix(string(raw), cursorPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func offsetWithDefault(cursor *string, def int) int {
	if cursor == nil {
		return def
	}
	if n, ok := CursorToOffset(*cursor); ok {
		return n
	}
	return def
}

// Window returns the half-open range [start, end) selected by args over a
// collection of length n. The range may be empty; start never exceeds end.
func Window(n int, args Args) (start, end int, err error) {
	after := offsetWithDefault(args.After, -1)
	before := offsetWithDefault(args.Before, n)

	start = max(after, -1) + 1
	end = min(before, n)
	if args.First != nil {
		if *args.First < 0 {
			return 0, 0, fmt.Errorf("argument \"first\" must be a non-negative integer")
		}
		end = min(end, start+*args.First)
	}
	if args.Last != nil {
		if *args.Last < 0 {
			return 0, 0, fmt.Errorf("argument \"last\" must be a non-negative integer")
		}
		start = max(start, end-*args.Last)
	}
	if start > end {
		start = end
	}
	return start, end, nil
}

// ObjectsResolver supplies the collection for a connection whose own value is
// empty or absent.
type ObjectsResolver func(ctx context.Context, root any, args Args) (any, error)

// Field resolves connection values for one node type.
type Field struct {
	// Type is the node type name; error messages refer to <Type>Connection.
	Type string
	// DefaultPageSize is injected as first when neither first nor last is set.
	DefaultPageSize int
	// ResolveObjects is the fallback used when the resolved value is empty.
	ResolveObjects ObjectsResolver
}

// ConnectionType is the name of the connection type of f.
func (f *Field) ConnectionType() string { return f.Type + "Connection" }

// Resolve converts raw into a page. Pages pass through unchanged. Deferred
// values are paginated once they resolve; everything else is paginated
// before Resolve returns.
func (f *Field) Resolve(ctx context.Context, root, raw any, args Args) deferred.Value[*Page] {
	if p, ok := raw.(*Page); ok {
		return deferred.Resolved(p)
	}
	if f.ResolveObjects != nil && falsy(ctx, raw) {
		v, err := f.ResolveObjects(ctx, root, args)
		if err != nil {
			return deferred.Failed[*Page](err)
		}
		raw = v
	}
	if args.First == nil && args.Last == nil && f.DefaultPageSize > 0 {
		n := f.DefaultPageSize
		args.First = &n
	}
	return deferred.Then(ctx, deferred.Of(raw), func(ctx context.Context, v any) (*Page, error) {
		return f.paginate(ctx, v, args)
	})
}

func (f *Field) paginate(ctx context.Context, v any, args Args) (*Page, error) {
	if p, ok := v.(*Page); ok {
		return p, nil
	}
	if !iterable(v) {
		return nil, &fault.TypeMismatchError{Expected: f.ConnectionType(), Received: v}
	}
	began := time.Now()

	if args.Ordering != nil {
		if r, ok := v.(store.Reorderer); ok {
			if keys := ParseOrdering(*args.Ordering); len(keys) > 0 {
				sorted, err := r.OrderBy(ctx, keys)
				if err != nil {
					return nil, err
				}
				v = sorted
			}
		}
	}

	var items []any
	var total int
	if c, ok := v.(store.Counter); ok {
		n, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		total = n
	} else {
		all, err := materialize(ctx, v)
		if err != nil {
			return nil, err
		}
		items, total = all, len(all)
	}

	start, end, err := Window(total, args)
	if err != nil {
		return nil, err
	}

	var window []any
	switch {
	case items != nil:
		window = items[start:end]
	case start == end:
	default:
		s, ok := v.(store.Slicer)
		if !ok {
			all, err := materialize(ctx, v)
			if err != nil {
				return nil, err
			}
			// A count that disagrees with the items is clamped to the items.
			end = min(end, len(all))
			start = min(start, end)
			window = all[start:end]
			break
		}
		if window, err = s.Slice(ctx, start, end); err != nil {
			return nil, err
		}
	}

	page := build(v, window, start, end, total)
	eventbus.Publish(ctx, events.ConnectionResolved{
		Type:     f.ConnectionType(),
		Total:    total,
		Start:    start,
		End:      start + len(window),
		Duration: time.Since(began),
	})
	return page, nil
}

func build(iterable any, window []any, start, end, total int) *Page {
	edges := make([]Edge, len(window))
	for i, node := range window {
		edges[i] = Edge{Cursor: OffsetToCursor(start + i), Node: node}
	}
	p := &Page{
		Edges:      edges,
		TotalCount: total,
		Iterable:   iterable,
		PageInfo: PageInfo{
			HasNextPage:     end < total,
			HasPreviousPage: start > 0,
		},
	}
	if len(edges) > 0 {
		first, last := edges[0].Cursor, edges[len(edges)-1].Cursor
		p.PageInfo.StartCursor = &first
		p.PageInfo.EndCursor = &last
	}
	return p
}

// ParseOrdering splits a comma separated ordering into sort keys. Spaces
// and empty entries are ignored; a leading "-" sorts descending.
func ParseOrdering(ordering string) []store.OrderKey {
	var keys []store.OrderKey
	for _, tok := range strings.Split(strings.ReplaceAll(ordering, " ", ""), ",") {
		desc := strings.HasPrefix(tok, "-")
		name := strings.TrimPrefix(tok, "-")
		if name == "" {
			continue
		}
		keys = append(keys, store.OrderKey{Field: name, Desc: desc})
	}
	return keys
}

// falsy reports whether v is absent or empty. Countable collections are
// empty when they count zero items; a failing count is not empty.
func falsy(ctx context.Context, v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Map:
		if rv.IsNil() {
			return true
		}
	}
	if c, ok := v.(store.Counter); ok {
		n, err := c.Count(ctx)
		return err == nil && n == 0
	}
	return false
}

func iterable(v any) bool {
	if _, ok := v.(store.Iterable); ok {
		return true
	}
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func materialize(ctx context.Context, v any) ([]any, error) {
	if it, ok := v.(store.Iterable); ok {
		return it.Items(ctx)
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}
