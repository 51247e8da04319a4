// Package serializer validates mutation input against declared fields and
// persists it through a store.
//
// A Serializer lists its fields in order. Save checks every field, collects
// the failures as field errors, runs the optional object-level Validate hook
// and, when nothing failed, inserts or updates the record. Failures are
// returned as a *fault.ValidationError.
package serializer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hanpama/relaygraph/internal/fault"
	"github.com/hanpama/relaygraph/internal/request"
	"github.com/hanpama/relaygraph/internal/store"
)

var validate = validator.New()

// Choice is one allowed value of a choice field.
type Choice struct {
	Value any
	Label string
}

type Field struct {
	Name string
	// Source is the model attribute the field reads and writes; Name when empty.
	Source   string
	Kind     store.Kind
	Required bool
	ReadOnly bool
	// Rules are validator tags checked against present, non-null values,
	// for example "min=1,max=64".
	Rules       string
	Choices     []Choice
	Default     any
	Description string
}

// Attr returns the model attribute backing f.
func (f *Field) Attr() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

type Serializer struct {
	Name   string
	Model  *store.Model
	Fields []*Field
	// Validate runs after the field checks pass, on the record about to be
	// saved.
	Validate func(ctx context.Context, rec store.Record) fault.List
}

// Field returns the field called name, or nil.
func (s *Serializer) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ModelBacked reports whether f maps onto a declared attribute of the
// serializer's model.
func (s *Serializer) ModelBacked(f *Field) bool {
	return s.Model != nil && s.Model.HasAttribute(f.Attr())
}

// Save validates data and persists it. A nil existing record creates a new
// one. With partial set, fields missing from data keep their prior values.
func (s *Serializer) Save(ctx context.Context, st store.Store, data map[string]any, existing store.Record, partial bool) (store.Record, error) {
	if s.Model == nil {
		return nil, fmt.Errorf("serializer %s has no model", s.Name)
	}
	creating := existing == nil
	rec := existing.Clone()
	if rec == nil {
		rec = store.Record{}
	}

	var errs fault.List
	for _, f := range s.Fields {
		if f.ReadOnly {
			continue
		}
		v, present := data[f.Name]
		if !present {
			switch {
			case partial:
			case creating && f.Default != nil:
				rec[f.Attr()] = f.Default
			case f.Required:
				errs.Add(f.Name, msgRequired)
			}
			continue
		}
		clean, msgs := s.clean(f, v)
		if len(msgs) > 0 {
			errs.Add(f.Name, msgs...)
			continue
		}
		rec[f.Attr()] = clean
	}
	if len(errs) == 0 && s.Validate != nil {
		errs = s.Validate(ctx, rec)
	}
	if err := fault.Validation(errs); err != nil {
		return nil, err
	}

	if creating {
		return st.Insert(ctx, s.Model, rec)
	}
	return st.Update(ctx, s.Model, rec)
}

const (
	msgRequired      = "This field is required."
	msgNull          = "This field may not be null."
	msgInvalidChoice = "%q is not a valid choice."
)

var kindMessages = map[store.Kind]string{
	store.KindString: "Not a valid string.",
	store.KindInt:    "A valid integer is required.",
	store.KindFloat:  "A valid number is required.",
	store.KindBool:   "Must be a valid boolean.",
	store.KindTime:   "Datetime has wrong format. Use RFC 3339.",
}

// ruleMessages maps validator tags to messages; %s is the tag parameter.
var ruleMessages = map[string]string{
	"required": msgRequired,
	"email":    "Enter a valid email address.",
	"url":      "Enter a valid URL.",
	"min":      "Ensure this value is at least %s.",
	"max":      "Ensure this value is at most %s.",
	"len":      "Ensure this value has length %s.",
	"gte":      "Ensure this value is greater than or equal to %s.",
	"lte":      "Ensure this value is less than or equal to %s.",
	"gt":       "Ensure this value is greater than %s.",
	"lt":       "Ensure this value is less than %s.",
	"oneof":    "Must be one of: %s.",
}

func (s *Serializer) clean(f *Field, v any) (any, []string) {
	if v == nil {
		if f.Required {
			return nil, []string{msgNull}
		}
		return nil, nil
	}
	if file, ok := v.(*request.File); ok {
		v = file.Filename
	}
	if len(f.Choices) > 0 {
		c, ok := f.choice(v)
		if !ok {
			return nil, []string{fmt.Sprintf(msgInvalidChoice, fmt.Sprint(v))}
		}
		v = c
	}
	n, err := store.Normalize(f.Kind, v)
	if err != nil {
		return nil, []string{kindMessages[f.Kind]}
	}
	if f.Rules == "" {
		return n, nil
	}
	if err := validate.Var(n, f.Rules); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, []string{err.Error()}
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, ruleMessage(e))
		}
		return nil, msgs
	}
	return n, nil
}

func ruleMessage(e validator.FieldError) string {
	msg, ok := ruleMessages[e.Tag()]
	if !ok {
		return fmt.Sprintf("Failed the %q check.", e.Tag())
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, e.Param())
	}
	return msg
}

// choice maps v onto a declared choice value. v may be the value itself or
// the enum name generated for it.
func (f *Field) choice(v any) (any, bool) {
	for _, c := range f.Choices {
		if store.Compare(c.Value, v) == 0 {
			return c.Value, true
		}
	}
	if name, ok := v.(string); ok {
		for _, c := range f.Choices {
			if EnumName(c.Value) == name {
				return c.Value, true
			}
		}
	}
	return nil, false
}
