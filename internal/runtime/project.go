package runtime

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hanpama/relaygraph/internal/connection"
	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/mutation"
	"github.com/hanpama/relaygraph/internal/store"
)

// project reads field from a parent value that has no bound resolver.
func project(source any, field string) (any, error) {
	switch s := source.(type) {
	case nil:
		return nil, nil
	case store.Record:
		return s[field], nil
	case map[string]any:
		return s[field], nil
	case *connection.Page:
		switch field {
		case "edges":
			if s.Edges == nil {
				return []connection.Edge{}, nil
			}
			return s.Edges, nil
		case "pageInfo":
			return s.PageInfo, nil
		case "totalCount":
			return s.TotalCount, nil
		}
	case connection.Edge:
		switch field {
		case "node":
			return s.Node, nil
		case "cursor":
			return s.Cursor, nil
		}
	case connection.PageInfo:
		switch field {
		case "hasNextPage":
			return s.HasNextPage, nil
		case "hasPreviousPage":
			return s.HasPreviousPage, nil
		case "startCursor":
			return s.StartCursor, nil
		case "endCursor":
			return s.EndCursor, nil
		}
	case fault.Error:
		switch field {
		case "field":
			return s.Field, nil
		case "messages":
			return s.Messages, nil
		}
	case *mutation.Result:
		switch field {
		case "ok":
			return s.OK, nil
		case "errors":
			return s.Errors, nil
		}
		if v, ok := s.Extras[field]; ok {
			return v, nil
		}
		return s.Output, nil
	default:
		return projectStruct(source, field)
	}
	return nil, fmt.Errorf("%T has no field %q", source, field)
}

// projectStruct reads an exported struct field whose name matches field
// with its first letter upper-cased.
func projectStruct(source any, field string) (any, error) {
	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || field == "" {
		return nil, fmt.Errorf("%T has no field %q", source, field)
	}
	name := strings.ToUpper(field[:1]) + field[1:]
	if f := rv.FieldByName(name); f.IsValid() && f.CanInterface() {
		return f.Interface(), nil
	}
	return nil, fmt.Errorf("%T has no field %q", source, field)
}
