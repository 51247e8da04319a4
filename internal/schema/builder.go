package schema

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ErrDuplicateType is returned when two distinct definitions share a name.
var ErrDuplicateType = errors.New("duplicate type definition")

// NewSchema returns an empty schema.
func NewSchema(description string) *Schema {
	return &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers t, replacing any type with the same name.
func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

// Define registers t. Registering the same *Type twice is a no-op; a
// different type under an existing name yields ErrDuplicateType.
func (s *Schema) Define(t *Type) error {
	if prev, ok := s.Types[t.Name]; ok {
		if prev == t {
			return nil
		}
		return fmt.Errorf("%s: %w", t.Name, ErrDuplicateType)
	}
	s.Types[t.Name] = t
	return nil
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// AddBuiltins registers the specified scalars and the skip and include
// directives.
func (s *Schema) AddBuiltins() *Schema {
	for _, t := range []*Type{stringType, intType, floatType, booleanType, idType} {
		s.AddType(t)
	}
	return s.AddDirective(includeDirective).AddDirective(skipDirective)
}

// Type returns the named type or nil.
func (s *Schema) Type(name string) *Type { return s.Types[name] }

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type            { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type     { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type  { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type    { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type  { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type          { t.OneOf = oneOf; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type { t.SpecifiedByURL = &url; return t }

// Field returns the field called name or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field         { f.Async = async; return f }
func (f *Field) AddArgument(arg *InputValue) *Field { f.Arguments = append(f.Arguments, arg); return f }
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) SetValue(value any) *EnumValue { v.Value = value; return v }
func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive        { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(arg *InputValue) *Directive { d.Arguments = append(d.Arguments, arg); return d }

// asyncDirective marks SDL fields resolved through Runtime.BatchResolveAsync.
const asyncDirective = "async"

// BuildFromSDL parses SDL into a Schema. Type extensions are merged into
// their base definitions. Root operation types default to Query, Mutation
// and Subscription when the SDL has no schema definition.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	s := NewSchema("").AddBuiltins()

	defs := make(map[string]*ast.Definition, len(doc.Definitions))
	var order []string
	for _, def := range doc.Definitions {
		if _, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("%s: %w", def.Name, ErrDuplicateType)
		}
		cp := *def
		defs[def.Name] = &cp
		order = append(order, def.Name)
	}
	for _, ext := range doc.Extensions {
		base, ok := defs[ext.Name]
		if !ok {
			return nil, fmt.Errorf("cannot extend undefined type %s", ext.Name)
		}
		base.Fields = append(append(ast.FieldList{}, base.Fields...), ext.Fields...)
		base.EnumValues = append(append(ast.EnumValueList{}, base.EnumValues...), ext.EnumValues...)
		base.Interfaces = append(append([]string{}, base.Interfaces...), ext.Interfaces...)
		base.Types = append(append([]string{}, base.Types...), ext.Types...)
	}

	for _, name := range order {
		t, err := buildDefinition(defs[name])
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, dir := range doc.Directives {
		if dir.Name == asyncDirective {
			continue
		}
		d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
		for _, loc := range dir.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range dir.Arguments {
			in, err := buildArgument(arg)
			if err != nil {
				return nil, err
			}
			d.AddArgument(in)
		}
		s.AddDirective(d)
	}

	roots := map[ast.Operation]string{}
	for _, sd := range append(append(ast.SchemaDefinitionList{}, doc.Schema...), doc.SchemaExtension...) {
		if sd.Description != "" {
			s.Description = sd.Description
		}
		for _, op := range sd.OperationTypes {
			roots[op.Operation] = op.Type
		}
	}
	if len(roots) == 0 {
		for op, name := range map[ast.Operation]string{ast.Query: "Query", ast.Mutation: "Mutation", ast.Subscription: "Subscription"} {
			if _, ok := s.Types[name]; ok {
				roots[op] = name
			}
		}
	}
	s.SetQueryType(roots[ast.Query]).
		SetMutationType(roots[ast.Mutation]).
		SetSubscriptionType(roots[ast.Subscription])
	if s.QueryType == "" || s.Types[s.QueryType] == nil {
		return nil, fmt.Errorf("schema has no query type")
	}
	return s, nil
}

func buildDefinition(def *ast.Definition) (*Type, error) {
	var t *Type
	switch def.Kind {
	case ast.Object:
		t = NewType(def.Name, TypeKindObject, def.Description)
	case ast.Interface:
		t = NewType(def.Name, TypeKindInterface, def.Description)
	case ast.Union:
		t = NewType(def.Name, TypeKindUnion, def.Description)
	case ast.Enum:
		t = NewType(def.Name, TypeKindEnum, def.Description)
	case ast.InputObject:
		t = NewType(def.Name, TypeKindInputObject, def.Description)
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
	case ast.Scalar:
		t = NewType(def.Name, TypeKindScalar, def.Description)
		if sb := def.Directives.ForName("specifiedBy"); sb != nil {
			if url := sb.Arguments.ForName("url"); url != nil && url.Value != nil {
				t.SetSpecifiedByURL(url.Value.Raw)
			}
		}
	default:
		return nil, fmt.Errorf("%s: unsupported definition kind %s", def.Name, def.Kind)
	}
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, name := range def.Types {
		t.AddPossibleType(name)
	}
	for _, ev := range def.EnumValues {
		v := NewEnumValue(ev.Name, ev.Description)
		if reason, ok := deprecation(ev.Directives); ok {
			v.Deprecate(reason)
		}
		t.AddEnumValue(v)
	}
	for _, fd := range def.Fields {
		if def.Kind == ast.InputObject {
			in, err := buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue, fd.Directives)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
			}
			t.AddInputField(in)
			continue
		}
		f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type)).
			SetAsync(fd.Directives.ForName(asyncDirective) != nil)
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, arg := range fd.Arguments {
			in, err := buildArgument(arg)
			if err != nil {
				return nil, fmt.Errorf("%s.%s(%s): %w", def.Name, fd.Name, arg.Name, err)
			}
			f.AddArgument(in)
		}
		t.AddField(f)
	}
	return t, nil
}

func buildArgument(arg *ast.ArgumentDefinition) (*InputValue, error) {
	return buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue, arg.Directives)
}

func buildInputValue(name, desc string, typ *ast.Type, def *ast.Value, dirs ast.DirectiveList) (*InputValue, error) {
	in := NewInputValue(name, desc, buildTypeRef(typ))
	if def != nil {
		v, err := constValue(def)
		if err != nil {
			return nil, err
		}
		in.SetDefault(v)
	}
	if reason, ok := deprecation(dirs); ok {
		in.Deprecate(reason)
	}
	return in, nil
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if r := d.Arguments.ForName("reason"); r != nil && r.Value != nil {
		return r.Value.Raw, true
	}
	return "", true
}

func buildTypeRef(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

// constValue converts a literal default value. Integers become int so they
// match values produced by argument coercion.
func constValue(v *ast.Value) (any, error) {
	switch v.Kind {
	case ast.Variable:
		return nil, fmt.Errorf("default values cannot reference $%s", v.Raw)
	case ast.IntValue:
		n, err := strconv.Atoi(v.Raw)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ast.FloatValue:
		return strconv.ParseFloat(v.Raw, 64)
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.NullValue:
		return nil, nil
	case ast.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			cv, err := constValue(c.Value)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case ast.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			cv, err := constValue(c.Value)
			if err != nil {
				return nil, err
			}
			out[c.Name] = cv
		}
		return out, nil
	default:
		// strings, block strings and enum names
		return v.Raw, nil
	}
}
