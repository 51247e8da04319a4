// Package store defines the storage collaborator contract: records, model
// descriptors, the store operations the mutation pipeline sequences, and the
// collection capabilities the pagination engine consumes.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownAttribute is returned when a query names an undeclared attribute.
var ErrUnknownAttribute = errors.New("unknown attribute")

// Record is a single stored row keyed by attribute name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind is the storage type of a model attribute.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindTime   Kind = "time"
)

// Attribute is a declared model attribute.
type Attribute struct {
	Name string
	Kind Kind
}

// Model describes a record type.
type Model struct {
	Name       string
	Table      string
	PrimaryKey string
	Attributes []Attribute
}

// PK returns the primary key attribute name, "id" when unset.
func (m *Model) PK() string {
	if m.PrimaryKey == "" {
		return "id"
	}
	return m.PrimaryKey
}

// Attribute returns the declared attribute called name.
func (m *Model) Attribute(name string) (Attribute, bool) {
	for _, a := range m.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// HasAttribute reports whether name is a declared attribute.
func (m *Model) HasAttribute(name string) bool {
	_, ok := m.Attribute(name)
	return ok
}

// CheckAttributes returns ErrUnknownAttribute for the first undeclared name.
// Models without declared attributes accept any name.
func (m *Model) CheckAttributes(names ...string) error {
	if len(m.Attributes) == 0 {
		return nil
	}
	for _, n := range names {
		if !m.HasAttribute(n) {
			return fmt.Errorf("%s.%s: %w", m.Name, n, ErrUnknownAttribute)
		}
	}
	return nil
}

// Store is the backing store consumed by mutations and list fields.
// Lookup returns (nil, nil) when no record matches.
type Store interface {
	Lookup(ctx context.Context, model *Model, field string, value any) (Record, error)
	Insert(ctx context.Context, model *Model, rec Record) (Record, error)
	Update(ctx context.Context, model *Model, rec Record) (Record, error)
	Delete(ctx context.Context, model *Model, rec Record) error
	Query(model *Model) Collection
}

// Iterable materializes every item of a collection.
type Iterable interface {
	Items(ctx context.Context) ([]any, error)
}

// Counter reports the collection length without materializing it.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Slicer fetches the half-open window [start, end).
type Slicer interface {
	Slice(ctx context.Context, start, end int) ([]any, error)
}

// OrderKey is one sort key; Desc sorts descending.
type OrderKey struct {
	Field string
	Desc  bool
}

func (k OrderKey) String() string {
	if k.Desc {
		return "-" + k.Field
	}
	return k.Field
}

// Reorderer returns a stably re-sorted collection.
type Reorderer interface {
	OrderBy(ctx context.Context, keys []OrderKey) (Collection, error)
}

// Filterer returns the sub-collection whose attributes equal the given values.
type Filterer interface {
	Filter(ctx context.Context, where map[string]any) (Collection, error)
}

// Collection is the full capability set implemented by the bundled stores.
type Collection interface {
	Iterable
	Counter
	Slicer
	Reorderer
	Filterer
}

// Normalize converts v into the canonical Go value for kind. It accepts the
// shapes produced by JSON decoding, GraphQL coercion and SQL scanning.
func Normalize(kind Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case KindString:
		switch s := v.(type) {
		case string:
			return s, nil
		case []byte:
			return string(s), nil
		}
		return fmt.Sprint(v), nil
	case KindInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int32:
			return int(n), nil
		case int64:
			return int(n), nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("%v is not a whole number", n)
			}
			return int(n), nil
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(n))
			if err != nil {
				return nil, fmt.Errorf("%q is not a valid integer", n)
			}
			return i, nil
		}
	case KindFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case KindBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case int:
			return b != 0, nil
		}
	case KindTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339Nano, t)
			if err != nil {
				return nil, fmt.Errorf("%q is not an RFC 3339 timestamp", t)
			}
			return parsed.UTC(), nil
		}
	default:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as %s", v, v, kind)
}

// Compare orders two attribute values. nil sorts first; values of differing
// or unknown types compare by their formatted text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case int:
		if y, ok := b.(int); ok {
			return cmpOrdered(x, y)
		}
		if y, ok := b.(float64); ok {
			return cmpOrdered(float64(x), y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y)
		}
		if y, ok := b.(int); ok {
			return cmpOrdered(x, float64(y))
		}
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
