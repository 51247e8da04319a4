// Package enumcache produces exactly one enum type per serializer choice
// field for the life of the process.
//
// Lookups try, in order: the type the global registry recorded for the
// field's cache key, the auxiliary registry's enum named "<EnumName>Enum",
// and the cache itself. Only when all three miss is a new enum synthesized
// from the field's choices. Entries are never evicted; the set of choice
// fields is fixed by the program, so growth is bounded by it.
package enumcache

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/hanpama/relaygraph/internal/registry"
	"github.com/hanpama/relaygraph/internal/schema"
	"github.com/hanpama/relaygraph/internal/serializer"
)

// ErrNoChoices is returned for fields that declare no choices.
var ErrNoChoices = errors.New("field has no choices")

type Cache struct {
	global    *registry.Registry
	auxiliary *registry.Registry

	mu      sync.RWMutex
	entries map[string]*schema.Type
	group   singleflight.Group
	created atomic.Int64
}

// New returns a cache consulting the given registries. Nil registries are
// skipped.
func New(global, auxiliary *registry.Registry) *Cache {
	return &Cache{global: global, auxiliary: auxiliary, entries: make(map[string]*schema.Type)}
}

var defaultCache = New(registry.Global(), registry.Auxiliary())

// Default is the process-wide cache.
func Default() *Cache { return defaultCache }

// Key derives the enum type name and the cache key of f from the field
// name, its source attribute, or "Choices", in that order. Fields of a
// model-backed serializer are named after the model; the cache key is the
// model attribute when f maps onto one.
func Key(s *serializer.Serializer, f *serializer.Field) (enumName, cacheKey string) {
	name := f.Name
	if name == "" {
		name = f.Source
	}
	if name == "" {
		name = "Choices"
	}
	cacheKey = s.Name + "_" + name
	if s.Model != nil {
		enumName = s.Model.Name + capitalize(name)
		if s.Model.HasAttribute(f.Attr()) {
			cacheKey = s.Model.Name + "." + f.Attr()
		}
		return enumName, cacheKey
	}
	return s.Name + name, cacheKey
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// GetOrCreate returns the enum type for f.
func (c *Cache) GetOrCreate(s *serializer.Serializer, f *serializer.Field) (*schema.Type, error) {
	if len(f.Choices) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", s.Name, f.Name, ErrNoChoices)
	}
	enumName, key := Key(s, f)

	if c.global != nil {
		if t := c.global.ConvertedField(key); t != nil {
			return t, nil
		}
	}
	if c.auxiliary != nil {
		if t := c.auxiliary.Enum(enumName + "Enum"); t != nil {
			return t, nil
		}
	}
	if t := c.lookup(key); t != nil {
		return t, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if t := c.lookup(key); t != nil {
			return t, nil
		}
		t, err := Synthesize(enumName, f.Choices)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if prev, ok := c.entries[key]; ok {
			return prev, nil
		}
		c.entries[key] = t
		c.created.Add(1)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.Type), nil
}

func (c *Cache) lookup(key string) *schema.Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[key]
}

// Created returns how many enum types the cache synthesized.
func (c *Cache) Created() int64 { return c.created.Load() }

// Synthesize builds an enum type from choices. Labels become value
// descriptions.
func Synthesize(name string, choices []serializer.Choice) (*schema.Type, error) {
	t := schema.NewType(name, schema.TypeKindEnum, "An enumeration.")
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		n := serializer.EnumName(c.Value)
		if seen[n] {
			return nil, fmt.Errorf("enum %s: choices collide on %s", name, n)
		}
		seen[n] = true
		t.AddEnumValue(schema.NewEnumValue(n, c.Label).SetValue(c.Value))
	}
	return t, nil
}
