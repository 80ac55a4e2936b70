package intent

import (
	"fmt"

	"github.com/prismui/prism/internal/errors"
)

// Registry is the process-wide collection of capability descriptors, keyed
// by identifier. It is populated by a fixed registration sequence at startup
// and read-only for the rest of process life, so reads need no locking.
// Calling Register concurrently with iteration is undefined behavior.
type Registry struct {
	entries map[string]*Capability

	// order preserves registration order. Compile output follows it, and
	// downstream consumers may be order-sensitive (prompt caching).
	order []string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Capability),
	}
}

// Register validates and inserts a capability descriptor.
// Fails with DUPLICATE_CAPABILITY if the identifier is already present and
// INVALID_CAPABILITY for malformed descriptors. On failure the registry's
// observable contents are unchanged.
func (r *Registry) Register(c *Capability) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := r.entries[c.Identifier]; exists {
		return errors.NewDuplicateCapability(c.Identifier)
	}

	r.entries[c.Identifier] = c
	r.order = append(r.order, c.Identifier)
	return nil
}

// MustRegister registers a capability and panics on error.
// A broken capability catalog is a programming error with no sensible
// degraded mode, so startup aborts.
func (r *Registry) MustRegister(c *Capability) {
	if err := r.Register(c); err != nil {
		panic(fmt.Sprintf("failed to register capability %s: %v", c.Identifier, err))
	}
}

// Lookup returns the descriptor for an identifier. Absence is a normal,
// expected outcome the caller must handle; it is never an error here.
func (r *Registry) Lookup(identifier string) (*Capability, bool) {
	c, ok := r.entries[identifier]
	return c, ok
}

// All returns all descriptors in registration order. Each call yields a
// fresh slice, safe for the caller to range over repeatedly.
func (r *Registry) All() []*Capability {
	result := make([]*Capability, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.entries[id])
	}
	return result
}

// Names returns all registered identifiers in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered capabilities.
func (r *Registry) Count() int {
	return len(r.entries)
}
