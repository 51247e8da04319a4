package mutation

import (
	"fmt"
	"strings"

	"github.com/hanpama/relaygraph/internal/enumcache"
	"github.com/hanpama/relaygraph/internal/schema"
	"github.com/hanpama/relaygraph/internal/serializer"
	"github.com/hanpama/relaygraph/internal/store"
)

// ErrorTypeName is the object type of payload errors.
const ErrorTypeName = "ErrorType"

var errorType = schema.NewType(ErrorTypeName, schema.TypeKindObject, "").
	AddField(schema.NewField("field", "", schema.NamedType("String"))).
	AddField(schema.NewField("messages", "", schema.NonNullType(schema.ListType(schema.NonNullType(schema.NamedType("String"))))))

// ExtraField is an additional payload field. Its value is read from
// Result.Extras by name.
type ExtraField struct {
	Name        string
	Description string
	Type        *schema.TypeRef
}

var kindScalars = map[store.Kind]string{
	store.KindString: "String",
	store.KindInt:    "Int",
	store.KindFloat:  "Float",
	store.KindBool:   "Boolean",
	store.KindTime:   schema.DateTime.Name,
}

// PayloadType returns the name of the mutation's payload object type.
func (m *Mutation) PayloadType() string { return m.Name + "Response" }

// Output returns the payload field holding the record.
func (m *Mutation) Output() string {
	if m.OutputField != "" {
		return m.OutputField
	}
	return strings.ToLower(m.Model.Name)
}

func (m *Mutation) outputType() string {
	if m.OutputType != "" {
		return m.OutputType
	}
	return m.Model.Name
}

func (m *Mutation) createInputType() string {
	if m.CreateInputType != "" {
		return m.CreateInputType
	}
	return m.Name + "Create" + capitalize(m.Model.Name)
}

func (m *Mutation) updateInputType() string {
	if m.UpdateInputType != "" {
		return m.UpdateInputType
	}
	return m.Name + "Update" + capitalize(m.Model.Name)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func (m *Mutation) enums() *enumcache.Cache {
	if m.Enums != nil {
		return m.Enums
	}
	return enumcache.Default()
}

// Define adds the error and payload types to s. The output type must be
// defined by the caller.
func (m *Mutation) Define(s *schema.Schema) error {
	if err := s.Define(errorType); err != nil {
		return err
	}
	if s.Type(m.PayloadType()) != nil {
		return nil
	}
	desc := m.OutputDescription
	if desc == "" {
		desc = fmt.Sprintf("Result can `%s` or `Null` if any error message(s)", capitalize(m.Model.Name))
	}
	payload := schema.NewType(m.PayloadType(), schema.TypeKindObject, m.Description).
		AddField(schema.NewField("ok", "Boolean field that return mutation result request.", schema.NamedType("Boolean"))).
		AddField(schema.NewField("errors", "Errors list for the field", schema.ListType(schema.NamedType(ErrorTypeName)))).
		AddField(schema.NewField(m.Output(), desc, schema.NamedType(m.outputType())))
	for _, ef := range m.ExtraFields {
		payload.AddField(schema.NewField(ef.Name, ef.Description, ef.Type))
	}
	return s.Define(payload)
}

// inputFields converts the writable serializer fields into input values.
// Create marks required fields non-null.
func (m *Mutation) inputFields(s *schema.Schema, op Operation) ([]*schema.InputValue, error) {
	if m.Serializer == nil {
		return nil, nil
	}
	var out []*schema.InputValue
	for _, f := range m.Serializer.Fields {
		if f.ReadOnly {
			continue
		}
		ref, err := m.fieldType(s, f)
		if err != nil {
			return nil, err
		}
		if op == OpCreate && f.Required && f.Default == nil {
			ref = schema.NonNullType(ref)
		}
		out = append(out, schema.NewInputValue(f.Name, f.Description, ref))
	}
	return out, nil
}

func (m *Mutation) fieldType(s *schema.Schema, f *serializer.Field) (*schema.TypeRef, error) {
	if len(f.Choices) > 0 {
		enum, err := m.enums().GetOrCreate(m.Serializer, f)
		if err != nil {
			return nil, err
		}
		if err := s.Define(enum); err != nil {
			return nil, err
		}
		return schema.NamedType(enum.Name), nil
	}
	name, ok := kindScalars[f.Kind]
	if !ok {
		name = "String"
	}
	if name == schema.DateTime.Name {
		if err := s.Define(schema.DateTime); err != nil {
			return nil, err
		}
	}
	return schema.NamedType(name), nil
}

func (m *Mutation) lookupInput() *schema.InputValue {
	return schema.NewInputValue(m.lookupArg(), "Object unique identification field", schema.NonNullType(schema.NamedType("ID")))
}

// arguments bundles input values into field arguments: a single required
// input object argument when InputFieldName is set, otherwise one argument
// per input value.
func (m *Mutation) arguments(s *schema.Schema, typeName string, inputs []*schema.InputValue) ([]*schema.InputValue, error) {
	if m.InputFieldName == "" {
		return inputs, nil
	}
	if s.Type(typeName) == nil {
		in := schema.NewType(typeName, schema.TypeKindInputObject, "")
		for _, v := range inputs {
			in.AddInputField(v)
		}
		if err := s.Define(in); err != nil {
			return nil, err
		}
	}
	return []*schema.InputValue{
		schema.NewInputValue(m.InputFieldName, "", schema.NonNullType(schema.NamedType(typeName))),
	}, nil
}

func (m *Mutation) field(s *schema.Schema, name string, args []*schema.InputValue) (*schema.Field, error) {
	if err := m.Define(s); err != nil {
		return nil, err
	}
	desc := m.Description
	if desc == "" {
		desc = fmt.Sprintf("SerializerMutation for %s model", m.Model.Name)
	}
	fd := schema.NewField(name, desc, schema.NamedType(m.PayloadType()))
	for _, a := range args {
		fd.AddArgument(a)
	}
	return fd, nil
}

// CreateField defines the types a create field needs in s and returns the
// field.
func (m *Mutation) CreateField(s *schema.Schema, name string) (*schema.Field, error) {
	inputs, err := m.inputFields(s, OpCreate)
	if err != nil {
		return nil, err
	}
	args, err := m.arguments(s, m.createInputType(), inputs)
	if err != nil {
		return nil, err
	}
	return m.field(s, name, args)
}

// UpdateField returns an update field. Every input is optional except the
// lookup argument, which is added unless a serializer field already carries
// it.
func (m *Mutation) UpdateField(s *schema.Schema, name string) (*schema.Field, error) {
	inputs, err := m.inputFields(s, OpUpdate)
	if err != nil {
		return nil, err
	}
	hasLookup := false
	for _, in := range inputs {
		if in.Name == m.lookupArg() {
			hasLookup = true
		}
	}
	if !hasLookup {
		inputs = append(inputs, m.lookupInput())
	}
	args, err := m.arguments(s, m.updateInputType(), inputs)
	if err != nil {
		return nil, err
	}
	return m.field(s, name, args)
}

// DeleteField returns a delete field taking only the lookup argument.
func (m *Mutation) DeleteField(s *schema.Schema, name string) (*schema.Field, error) {
	return m.field(s, name, []*schema.InputValue{m.lookupInput()})
}

// MutationFields returns the create, delete and update fields named
// create<Model>, delete<Model> and update<Model>.
func (m *Mutation) MutationFields(s *schema.Schema) (create, del, update *schema.Field, err error) {
	if create, err = m.CreateField(s, "create"+m.Model.Name); err != nil {
		return nil, nil, nil, err
	}
	if del, err = m.DeleteField(s, "delete"+m.Model.Name); err != nil {
		return nil, nil, nil, err
	}
	if update, err = m.UpdateField(s, "update"+m.Model.Name); err != nil {
		return nil, nil, nil, err
	}
	return create, del, update, nil
}
