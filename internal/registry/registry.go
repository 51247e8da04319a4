// Package registry records schema types that were produced elsewhere so
// generated types can be reused instead of defined twice.
//
// The global registry maps converted model fields ("Widget.kind") to the
// type produced when the model's object type was built. The auxiliary
// registry maps enum type names to enums declared by hand.
package registry

import (
	"sync"

	"github.com/hanpama/relaygraph/internal/schema"
)

type Registry struct {
	mu     sync.RWMutex
	fields map[string]*schema.Type
	enums  map[string]*schema.Type
}

func New() *Registry {
	return &Registry{
		fields: make(map[string]*schema.Type),
		enums:  make(map[string]*schema.Type),
	}
}

// RegisterConvertedField records the type a model field converted to.
func (r *Registry) RegisterConvertedField(key string, t *schema.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fields[key] = t
}

// ConvertedField returns the type recorded for key, or nil.
func (r *Registry) ConvertedField(key string) *schema.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[key]
}

// RegisterEnum records t under its name.
func (r *Registry) RegisterEnum(t *schema.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enums[t.Name] = t
}

// Enum returns the enum registered as name, or nil.
func (r *Registry) Enum(name string) *schema.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enums[name]
}

var (
	global    = New()
	auxiliary = New()
)

// Global is the process-wide converted field registry.
func Global() *Registry { return global }

// Auxiliary is the process-wide enum registry.
func Auxiliary() *Registry { return auxiliary }
