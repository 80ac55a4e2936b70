package dispatch

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
)

// invocationCertainty returns the certainty assigned to a successful
// invocation. The model's act of choosing one capability out of the compiled
// tool list is itself the signal, so it is treated as maximal. A future
// calibrated-confidence source replaces this function without touching the
// session state machine.
func invocationCertainty() float64 {
	return 1.0
}

// Normalize packages a raw model response as a canonical activation.
//
// A nil invocation (the model declined to select) yields a non-selected
// activation with certainty 0. An invocation naming an unregistered
// capability fails with UNKNOWN_CAPABILITY. Otherwise each declared field
// present in the payload is coerced to its kind; fields that fail coercion
// are dropped and recorded, extraneous payload keys are dropped silently,
// and absent fields stay absent (defaulting is a presentation concern).
//
// Normalize is total: every legal input maps to exactly one activation or
// exactly one typed error, and it never leaves the session partially
// updated (the session only ever sees a fully-formed record).
func Normalize(inv *Invocation, reg *intent.Registry) (*Activation, error) {
	if inv == nil {
		return None(), nil
	}

	capability, ok := reg.Lookup(inv.Capability)
	if !ok {
		return nil, errors.NewUnknownCapability(inv.Capability)
	}

	data := make(map[string]any, len(capability.Fields))
	var failures map[string]string

	for _, field := range capability.Fields {
		raw, present := inv.Arguments[field.Name]
		if !present || raw == nil {
			continue
		}

		value, err := coerce(field, raw)
		if err != nil {
			if failures == nil {
				failures = make(map[string]string)
			}
			failures[field.Name] = err.Error()
			continue
		}
		data[field.Name] = value
	}

	return &Activation{
		ID:               newActivationID(),
		CapabilityID:     capability.Identifier,
		Data:             data,
		Certainty:        invocationCertainty(),
		CoercionFailures: failures,
		CreatedAt:        time.Now(),
	}, nil
}

// coerce converts a raw extracted value to the field's declared kind.
func coerce(field intent.Field, raw any) (any, error) {
	switch field.Kind {
	case intent.KindText:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected text, got %T", raw)
		}
		return s, nil

	case intent.KindNumber:
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("expected number, got %v", raw)
		}
		return n, nil

	case intent.KindBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected boolean, got %v", raw)
		}
		return b, nil

	case intent.KindEnum:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("expected one of %v, got %T", field.AllowedValues, raw)
		}
		if !field.AllowsValue(s) {
			return nil, fmt.Errorf("value %q not in %v", s, field.AllowedValues)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown field kind %q", field.Kind)
	}
}
