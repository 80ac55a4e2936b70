// Package intent defines the capability catalog: typed input fields,
// capability descriptors, the process-wide registry, and the compiler that
// turns the catalog into a model-consumable tool list.
package intent

import "fmt"

// FieldKind classifies the type of a capability input field.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindBool   FieldKind = "boolean"
	KindEnum   FieldKind = "enum"
)

// Field describes one named, typed input a capability can extract from
// natural language. Fields are constructed at registration time and
// immutable thereafter.
type Field struct {
	// Name is unique within the owning capability's schema.
	Name string

	// Kind is the declared type used for coercion of extracted values.
	Kind FieldKind

	// Description guides the model's extraction of this field.
	Description string

	// AllowedValues is the ordered set of legal values. Present iff
	// Kind == KindEnum.
	AllowedValues []string
}

// Validate checks the field's structural invariants.
func (f Field) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	switch f.Kind {
	case KindText, KindNumber, KindBool:
		if len(f.AllowedValues) > 0 {
			return fmt.Errorf("field %q: allowed values only permitted for enum fields", f.Name)
		}
	case KindEnum:
		if len(f.AllowedValues) == 0 {
			return fmt.Errorf("field %q: enum fields require at least one allowed value", f.Name)
		}
	default:
		return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
	}
	return nil
}

// AllowsValue reports whether v is a member of the enum's allowed set.
// Always false for non-enum fields.
func (f Field) AllowsValue(v string) bool {
	for _, allowed := range f.AllowedValues {
		if allowed == v {
			return true
		}
	}
	return false
}
