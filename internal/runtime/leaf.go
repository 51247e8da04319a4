package runtime

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/schema"
)

// SerializeLeafValue serializes builtin scalars, DateTime, enums and bound
// custom scalars. Unbound custom scalars pass through unchanged.
func (r *Runtime) SerializeLeafValue(_ context.Context, name string, value any) (any, error) {
	value = deref(value)
	if value == nil {
		return nil, nil
	}
	r.mu.RLock()
	fn := r.scalars[name]
	r.mu.RUnlock()
	if fn != nil {
		return fn(value)
	}
	if t := r.schema.Type(name); t != nil && t.Kind == schema.TypeKindEnum {
		return serializeEnum(t, value)
	}
	switch name {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	case "ID":
		return serializeID(value)
	case schema.DateTime.Name:
		return serializeDateTime(value)
	}
	return value, nil
}

func deref(v any) any {
	if _, ok := v.(*request.File); ok {
		return v
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// serializeEnum maps an internal value to the name of the enum value
// carrying it. Values without an internal value match by name.
func serializeEnum(t *schema.Type, value any) (any, error) {
	for _, ev := range t.EnumValues {
		if ev.Value == nil {
			if s, ok := value.(string); ok && s == ev.Name {
				return ev.Name, nil
			}
			continue
		}
		if reflect.DeepEqual(ev.Value, value) || fmt.Sprint(ev.Value) == fmt.Sprint(value) {
			return ev.Name, nil
		}
	}
	if s, ok := value.(string); ok {
		for _, ev := range t.EnumValues {
			if ev.Name == s {
				return ev.Name, nil
			}
		}
	}
	return nil, fmt.Errorf("Enum %q cannot represent value: %v", t.Name, value)
}

func serializeInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		n, err := strconv.ParseInt(fmt.Sprint(x), 10, 64)
		if err != nil || n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non 32-bit signed integer value: %v", v)
		}
		return int(n), nil
	case float32:
		return serializeInt(float64(x))
	case float64:
		if x != math.Trunc(x) || x < math.MinInt32 || x > math.MaxInt32 {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
		}
		return int(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.Atoi(x)
		if err != nil {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %q", x)
		}
		return n, nil
	}
	return nil, fmt.Errorf("Int cannot represent value: %v", v)
}

func serializeFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, _ := strconv.ParseFloat(fmt.Sprint(x), 64)
		return f, nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return nil, fmt.Errorf("Float cannot represent non numeric value: %q", x)
		}
		return f, nil
	}
	return nil, fmt.Errorf("Float cannot represent value: %v", v)
}

func serializeString(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case *request.File:
		return x.Filename, nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %v", v)
}

func serializeID(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", v)
}

func serializeDateTime(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case string:
		if _, err := time.Parse(time.RFC3339Nano, x); err != nil {
			return nil, fmt.Errorf("DateTime cannot represent value: %q", x)
		}
		return x, nil
	}
	return nil, fmt.Errorf("DateTime cannot represent value: %v", v)
}
