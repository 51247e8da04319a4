package executor

import (
	"slices"

	language "github.com/hanpama/relaygraph/internal/language"
	schema "github.com/hanpama/relaygraph/internal/schema"
)

// fieldGroup is every selection of one response key on an object.
type fieldGroup struct {
	key    string
	name   string
	fields []*language.Field
}

// collector expands fragments and groups fields by response key in the
// order keys first appear.
type collector struct {
	state      *executionState
	objectType *schema.Type
	groups     []*fieldGroup
	byKey      map[string]*fieldGroup
	spread     map[string]bool
}

func (s *executionState) collectFields(objectType *schema.Type, set language.SelectionSet) []*fieldGroup {
	c := &collector{
		state:      s,
		objectType: objectType,
		byKey:      make(map[string]*fieldGroup),
		spread:     make(map[string]bool),
	}
	c.walk(set)
	return c.groups
}

func (c *collector) walk(set language.SelectionSet) {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			if c.state.included(sel.Directives) {
				c.add(sel)
			}
		case *language.InlineFragment:
			if c.state.included(sel.Directives) && c.applies(sel.TypeCondition) {
				c.walk(sel.SelectionSet)
			}
		case *language.FragmentSpread:
			if c.spread[sel.Name] || !c.state.included(sel.Directives) {
				continue
			}
			c.spread[sel.Name] = true
			frag := c.state.document.Fragments.ForName(sel.Name)
			if frag == nil || !c.applies(frag.TypeCondition) || !c.state.included(frag.Directives) {
				continue
			}
			c.walk(frag.SelectionSet)
		}
	}
}

func (c *collector) add(f *language.Field) {
	key := f.Alias
	if key == "" {
		key = f.Name
	}
	if g, ok := c.byKey[key]; ok {
		g.fields = append(g.fields, f)
		return
	}
	g := &fieldGroup{key: key, name: f.Name, fields: []*language.Field{f}}
	c.byKey[key] = g
	c.groups = append(c.groups, g)
}

// applies reports whether a fragment with the given type condition applies to
// the object type being collected.
func (c *collector) applies(condition string) bool {
	if condition == "" || condition == c.objectType.Name {
		return true
	}
	t := c.state.schema.Types[condition]
	if t == nil {
		return false
	}
	switch t.Kind {
	case schema.TypeKindInterface:
		return slices.Contains(c.objectType.Interfaces, condition)
	case schema.TypeKindUnion:
		return slices.Contains(t.PossibleTypes, c.objectType.Name)
	}
	return false
}

// included evaluates @skip and @include.
func (s *executionState) included(directives language.DirectiveList) bool {
	if skip, ok := s.condition(directives.ForName("skip")); ok && skip {
		return false
	}
	if include, ok := s.condition(directives.ForName("include")); ok && !include {
		return false
	}
	return true
}

func (s *executionState) condition(d *language.Directive) (value, ok bool) {
	if d == nil {
		return false, false
	}
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	value, ok = valueFromASTWithVars(arg.Value, s.variables).(bool)
	return value, ok
}

// subSelections merges the selection sets of a field group.
func subSelections(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var set language.SelectionSet
	for _, f := range fields {
		set = append(set, f.SelectionSet...)
	}
	return set
}
