package intent

import (
	"context"

	"github.com/prismui/prism/internal/errors"
)

// ExecuteFunc runs a capability's durable action with validated, coerced
// extraction data. Invoked when the user (or auto-promotion flow) confirms
// the activation, never during normalization.
type ExecuteFunc func(ctx context.Context, data map[string]any) (any, error)

// Capability is one addressable unit of functionality: a dispatch key, a
// description written for the model, a typed input schema, a render handle
// for the presentation layer, and an executor over the durable store.
//
// Capabilities are created at startup, registered once, and never mutated
// or removed.
type Capability struct {
	// Identifier is the globally unique, stable snake_case dispatch key.
	Identifier string

	// Description is written for the model and must unambiguously
	// distinguish this capability from all siblings in the catalog.
	Description string

	// Fields is the ordered input schema.
	Fields []Field

	// RequiredFields lists field names that must be present for the
	// capability to be considered satisfied. Every entry must name a
	// declared field.
	RequiredFields []string

	// RenderHandle is an opaque reference to the presentation unit that
	// renders this capability's data map (for the web UI, a template name).
	RenderHandle string

	// Execute performs the capability's durable action. Optional for
	// read-only capabilities rendered entirely from extracted data.
	Execute ExecuteFunc
}

// Validate checks the descriptor's structural invariants.
func (c *Capability) Validate() error {
	if c.Identifier == "" {
		return errors.NewInvalidCapability(c.Identifier, "identifier must not be empty")
	}

	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if err := f.Validate(); err != nil {
			return errors.NewInvalidCapability(c.Identifier, err.Error())
		}
		if seen[f.Name] {
			return errors.NewInvalidCapability(c.Identifier, "duplicate field name "+f.Name)
		}
		seen[f.Name] = true
	}

	for _, name := range c.RequiredFields {
		if !seen[name] {
			return errors.NewInvalidCapability(c.Identifier, "required field "+name+" is not declared")
		}
	}

	return nil
}

// FieldByName returns the declared field with the given name.
func (c *Capability) FieldByName(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsRequired reports whether the named field is in the required subset.
func (c *Capability) IsRequired(name string) bool {
	for _, r := range c.RequiredFields {
		if r == name {
			return true
		}
	}
	return false
}
