// Package introspection answers the __schema and __type meta fields on top
// of another executor.Runtime.
package introspection

import (
	"context"
	"slices"

	executor "github.com/hanpama/relaygraph/internal/executor"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

// Runtime resolves fields of the introspection types and delegates every
// other field to the embedded runtime.
type Runtime struct {
	executor.Runtime
	schema *schema.Schema
}

// Wrap returns the introspecting runtime and the extended schema to execute
// against. Introspection describes sch itself, without the meta types.
func Wrap(base executor.Runtime, sch *schema.Schema) (*Runtime, *schema.Schema) {
	return &Runtime{Runtime: base, schema: sch}, Extend(sch)
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "__Schema":
		return r.schemaField(field), nil
	case "__Type":
		return r.typeField(source, field, args), nil
	case "__Field":
		return fieldField(source.(*schema.Field), field, args), nil
	case "__InputValue":
		return r.inputValueField(source.(*schema.InputValue), field), nil
	case "__EnumValue":
		ev := source.(*schema.EnumValue)
		return deprecatable(ev.Name, ev.Description, ev.IsDeprecated, ev.DeprecationReason, field), nil
	case "__Directive":
		return directiveField(source.(*schema.Directive), field, args), nil
	}
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.Runtime.ResolveSync(ctx, objectType, field, source, args)
}

func (r *Runtime) schemaField(field string) any {
	s := r.schema
	switch field {
	case "description":
		return optional(s.Description)
	case "types":
		names := make([]string, 0, len(s.Types))
		for name := range s.Types {
			names = append(names, name)
		}
		slices.Sort(names)
		return r.named(names)
	case "queryType":
		return s.GetQueryType()
	case "mutationType":
		return nilIfMissing(s.GetMutationType())
	case "subscriptionType":
		return nilIfMissing(s.GetSubscriptionType())
	case "directives":
		names := make([]string, 0, len(s.Directives))
		for name := range s.Directives {
			names = append(names, name)
		}
		slices.Sort(names)
		out := make([]*schema.Directive, len(names))
		for i, name := range names {
			out[i] = s.Directives[name]
		}
		return out
	}
	return nil
}

// named looks up types by name, skipping names the schema does not define.
func (r *Runtime) named(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

// typeField resolves __Type fields for named types and for the List and
// NonNull wrappers, which are carried as *schema.TypeRef.
func (r *Runtime) typeField(source any, field string, args map[string]any) any {
	if ref, ok := source.(*schema.TypeRef); ok {
		switch ref.Kind {
		case schema.TypeRefKindList, schema.TypeRefKindNonNull:
			switch field {
			case "kind":
				return string(ref.Kind)
			case "ofType":
				return ref.OfType
			}
			return nil
		}
		source = r.schema.Types[ref.Named]
	}
	t, _ := source.(*schema.Type)
	if t == nil {
		return nil
	}

	includeDeprecated, _ := args["includeDeprecated"].(bool)
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		return t.SpecifiedByURL
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return visible(t.Fields, includeDeprecated, func(f *schema.Field) bool { return f.IsDeprecated })
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.named(t.Interfaces)
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return r.named(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		return visible(t.EnumValues, includeDeprecated, func(v *schema.EnumValue) bool { return v.IsDeprecated })
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return visible(t.InputFields, includeDeprecated, func(v *schema.InputValue) bool { return v.IsDeprecated })
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	}
	return nil
}

func fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "args":
		includeDeprecated, _ := args["includeDeprecated"].(bool)
		return visible(f.Arguments, includeDeprecated, func(v *schema.InputValue) bool { return v.IsDeprecated })
	case "type":
		return f.Type
	}
	return deprecatable(f.Name, f.Description, f.IsDeprecated, f.DeprecationReason, field)
}

func (r *Runtime) inputValueField(v *schema.InputValue, field string) any {
	switch field {
	case "type":
		return v.Type
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil
		}
		lit := r.schema.RenderDefault(v)
		return &lit
	}
	return deprecatable(v.Name, v.Description, v.IsDeprecated, v.DeprecationReason, field)
}

func directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return optional(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		return d.Locations
	case "args":
		includeDeprecated, _ := args["includeDeprecated"].(bool)
		return visible(d.Arguments, includeDeprecated, func(v *schema.InputValue) bool { return v.IsDeprecated })
	}
	return nil
}

// deprecatable resolves the name, description and deprecation fields
// shared by __Field, __InputValue and __EnumValue.
func deprecatable(name, description string, deprecated bool, reason, field string) any {
	switch field {
	case "name":
		return name
	case "description":
		return optional(description)
	case "isDeprecated":
		return deprecated
	case "deprecationReason":
		if !deprecated {
			return nil
		}
		return &reason
	}
	return nil
}

// visible keeps definition order and drops the items hidden unless
// deprecated items are requested.
func visible[T any](items []T, includeDeprecated bool, hidden func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if hidden(it) && !includeDeprecated {
			continue
		}
		out = append(out, it)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nilIfMissing(t *schema.Type) any {
	if t == nil {
		return nil
	}
	return t
}
