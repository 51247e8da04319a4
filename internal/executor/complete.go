package executor

import (
	"reflect"

	language "github.com/hanpama/relaygraph/internal/language"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

// complete shapes a resolved value to fieldType. A nil return means the slot
// is null; fields queued beneath it are dropped.
func (s *executionState) complete(fieldType *schema.TypeRef, fields []*language.Field, value any, at *slot) any {
	v := s.completeValue(fieldType, fields, value, at)
	if v == nil {
		at.dropped = true
	}
	return v
}

func (s *executionState) completeValue(fieldType *schema.TypeRef, fields []*language.Field, value any, at *slot) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(value) {
			if !at.errored {
				s.failf(at, "Cannot return null for non-nullable field %s", at.path())
			}
			return nil
		}
		return s.completeValue(schema.Unwrap(fieldType), fields, value, at)
	}
	if isNullish(value) {
		return nil
	}
	if schema.IsList(fieldType) {
		return s.completeList(schema.Unwrap(fieldType), fields, value, at)
	}

	name := schema.GetNamedType(fieldType)
	t := s.schema.Types[name]
	if t == nil {
		s.failf(at, "Unknown type: %s", name)
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := s.runtime.SerializeLeafValue(s.ctx, name, value)
		if err != nil {
			s.fail(at, err)
			return nil
		}
		if isNullish(out) {
			return nil
		}
		return out
	case schema.TypeKindObject:
		return s.completeObject(t, fields, value, at)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return s.completeAbstract(t, fields, value, at)
	}
	s.failf(at, "Cannot complete value of unexpected type: %s", t.Kind)
	return nil
}

// completeList completes every element at its index. A null element of a
// non-null item type nulls the whole list.
func (s *executionState) completeList(itemType *schema.TypeRef, fields []*language.Field, value any, at *slot) any {
	items, ok := listItems(value)
	if !ok {
		s.failf(at, "Expected list value, got %T", value)
		return nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		el := &slot{parent: at, container: out, key: i, nonNull: schema.IsNonNull(itemType)}
		v := s.complete(itemType, fields, item, el)
		if v == nil && el.nonNull {
			return nil
		}
		out[i] = v
	}
	return out
}

func (s *executionState) completeObject(objectType *schema.Type, fields []*language.Field, value any, at *slot) any {
	out := make(map[string]any)
	if !s.executeSelectionSet(objectType, subSelections(fields), value, out, at) {
		return nil
	}
	return out
}

// completeAbstract picks the concrete object type of an interface or union
// value and unwraps the value for it.
func (s *executionState) completeAbstract(abstract *schema.Type, fields []*language.Field, value any, at *slot) any {
	name, err := s.runtime.ResolveType(s.ctx, abstract.Name, value)
	if err != nil {
		s.fail(at, err)
		return nil
	}
	concrete := s.schema.Types[name]
	if concrete == nil || concrete.Kind != schema.TypeKindObject {
		s.failf(at, "Abstract type %s must resolve to an Object type at runtime. Got: %s", abstract.Name, name)
		return nil
	}
	if abstract.Kind == schema.TypeKindUnion {
		value, err = s.runtime.ResolveUnionConcreteValue(s.ctx, abstract.Name, value)
	} else {
		value, err = s.runtime.ResolveInterfaceConcreteValue(s.ctx, abstract.Name, value)
	}
	if err != nil {
		s.fail(at, err)
		return nil
	}
	return s.completeObject(concrete, fields, value, at)
}

func listItems(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isNullish reports nil and typed nil pointers, maps, slices, funcs,
// channels and interfaces.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
