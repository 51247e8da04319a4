package schema

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Render prints s as SDL. Types and directives appear sorted by name;
// builtin scalars and directives, meta types and @async are left out.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	w := &sdlWriter{schema: s}
	for _, name := range slices.Sorted(maps.Keys(s.Types)) {
		if t := s.Types[name]; !isBuiltinType(t) && !strings.HasPrefix(name, "__") {
			w.typeDef(t)
		}
	}
	for _, name := range slices.Sorted(maps.Keys(s.Directives)) {
		if d := s.Directives[name]; d != includeDirective && d != skipDirective {
			w.directiveDef(d)
		}
	}
	return strings.TrimRight(w.String(), "\n") + "\n"
}

func isBuiltinType(t *Type) bool {
	switch t {
	case stringType, intType, floatType, booleanType, idType:
		return true
	}
	return false
}

type sdlWriter struct {
	strings.Builder
	schema *Schema
}

func (w *sdlWriter) printf(format string, args ...any) {
	fmt.Fprintf(w, format, args...)
}

func (w *sdlWriter) description(desc, indent string) {
	if desc == "" {
		return
	}
	w.printf("%s\"\"\"\n%s\n%s\"\"\"\n", indent, strings.ReplaceAll(desc, `"""`, `\"""`), indent)
}

func (w *sdlWriter) deprecation(deprecated bool, reason string) {
	switch {
	case !deprecated:
	case reason == "":
		w.WriteString(" @deprecated")
	default:
		w.printf(" @deprecated(reason: %s)", strconv.Quote(reason))
	}
}

func (w *sdlWriter) typeDef(t *Type) {
	w.description(t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		w.printf("scalar %s", t.Name)
		if t.SpecifiedByURL != nil {
			w.printf(" @specifiedBy(url: %s)", strconv.Quote(*t.SpecifiedByURL))
		}
		w.WriteString("\n")
	case TypeKindEnum:
		w.printf("enum %s {\n", t.Name)
		for _, v := range t.EnumValues {
			w.description(v.Description, "  ")
			w.printf("  %s", v.Name)
			w.deprecation(v.IsDeprecated, v.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n")
	case TypeKindInputObject:
		w.printf("input %s", t.Name)
		if t.OneOf {
			w.WriteString(" @oneOf")
		}
		w.WriteString(" {\n")
		for _, f := range t.InputFields {
			w.description(f.Description, "  ")
			w.WriteString("  ")
			w.inputValue(f)
			w.deprecation(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type"
		if t.Kind == TypeKindInterface {
			keyword = "interface"
		}
		w.printf("%s %s", keyword, t.Name)
		if len(t.Interfaces) > 0 {
			w.printf(" implements %s", strings.Join(t.Interfaces, " & "))
		}
		w.WriteString(" {\n")
		for _, f := range t.Fields {
			w.description(f.Description, "  ")
			w.printf("  %s", f.Name)
			w.arguments(f.Arguments)
			w.printf(": %s", f.Type)
			w.deprecation(f.IsDeprecated, f.DeprecationReason)
			w.WriteString("\n")
		}
		w.WriteString("}\n")
	case TypeKindUnion:
		w.printf("union %s = %s\n", t.Name, strings.Join(t.PossibleTypes, " | "))
	}
	w.WriteString("\n")
}

func (w *sdlWriter) directiveDef(d *Directive) {
	w.description(d.Description, "")
	w.printf("directive @%s", d.Name)
	w.arguments(d.Arguments)
	if d.IsRepeatable {
		w.WriteString(" repeatable")
	}
	w.printf(" on %s\n\n", strings.Join(d.Locations, " | "))
}

func (w *sdlWriter) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	w.WriteString("(")
	for i, a := range args {
		if i > 0 {
			w.WriteString(", ")
		}
		w.inputValue(a)
	}
	w.WriteString(")")
}

func (w *sdlWriter) inputValue(in *InputValue) {
	w.printf("%s: %s", in.Name, in.Type)
	if in.DefaultValue != nil {
		w.printf(" = %s", w.schema.RenderDefault(in))
	}
}

// RenderValue prints value as a GraphQL literal. Object fields are sorted.
func RenderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		return renderList(v, RenderValue)
	case map[string]any:
		fields := make([]string, 0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			fields = append(fields, k+": "+RenderValue(v[k]))
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(value)
}

func renderList(items []any, render func(any) string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = render(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// RenderDefault prints the default value of in. Strings are printed as enum
// names when the input type is an enum.
func (s *Schema) RenderDefault(in *InputValue) string {
	if t := s.Type(GetNamedType(in.Type)); t != nil && t.Kind == TypeKindEnum {
		return renderEnumLiteral(in.DefaultValue)
	}
	return RenderValue(in.DefaultValue)
}

func renderEnumLiteral(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		return renderList(v, renderEnumLiteral)
	}
	return RenderValue(value)
}
