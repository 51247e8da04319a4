package executor

// slot is the position of one field value or list element in the response.
// Slots link to the slot of the enclosing value, ending at a root field.
type slot struct {
	parent    *slot
	container any // map[string]any or []any
	key       PathElement
	nonNull   bool
	errored   bool
	dropped   bool
}

func (s *slot) path() Path {
	n := 0
	for c := s; c != nil; c = c.parent {
		n++
	}
	p := make(Path, n)
	for c := s; c != nil; c = c.parent {
		n--
		p[n] = c.key
	}
	return p
}

func (s *slot) set(v any) {
	switch c := s.container.(type) {
	case map[string]any:
		c[s.key.(string)] = v
	case []any:
		c[s.key.(int)] = v
	}
}

// live reports whether no enclosing value has been nulled since the slot
// was created.
func (s *slot) live() bool {
	for c := s; c != nil; c = c.parent {
		if c.dropped {
			return false
		}
	}
	return true
}

// bubble nulls the nearest nullable slot enclosing a non-null violation at
// s. A root field is nulled even when it is non-null.
func (s *slot) bubble() {
	at := s
	for at.nonNull && at.parent != nil {
		at = at.parent
	}
	at.set(nil)
	at.dropped = true
}
