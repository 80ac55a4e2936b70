// Package dispatch turns raw model tool invocations into canonical
// activations and drives the per-session display state machine
// (idle → summary → full) with its confidence-gated countdown.
package dispatch

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Invocation is the transport-agnostic "capability X invoked with arguments
// A" signal. A nil *Invocation means the model declined to select anything.
type Invocation struct {
	// Capability is the identifier the model invoked.
	Capability string

	// Arguments is the raw argument payload, untyped as it arrived.
	Arguments map[string]any
}

// Activation is the canonical, validated outcome of one intent-resolution
// cycle. Activations are created fresh on every successful normalization and
// superseded, never mutated, by the next one.
type Activation struct {
	// ID uniquely identifies this activation.
	ID string `json:"id"`

	// CapabilityID matches a registry key, or is empty when no capability
	// was selected.
	CapabilityID string `json:"capability_id,omitempty"`

	// Data maps declared field names to values already coerced to the
	// field's kind. Fields absent from the payload are absent here; the
	// presentation layer treats them as "not yet known".
	Data map[string]any `json:"data,omitempty"`

	// Certainty is the selection confidence in 0.0-1.0. It gates
	// auto-promotion.
	Certainty float64 `json:"certainty"`

	// CoercionFailures maps field names to the reason their extracted value
	// could not be coerced. These fields are omitted from Data.
	CoercionFailures map[string]string `json:"coercion_failures,omitempty"`

	// CreatedAt is when this activation was produced.
	CreatedAt time.Time `json:"created_at"`
}

// Selected reports whether a capability was chosen this cycle.
func (a *Activation) Selected() bool {
	return a != nil && a.CapabilityID != ""
}

// None returns an activation representing "no capability selected".
// This outcome is explicitly representable and is not an error.
func None() *Activation {
	return &Activation{
		ID:        newActivationID(),
		Data:      map[string]any{},
		Certainty: 0,
		CreatedAt: time.Now(),
	}
}

// newActivationID generates a ULID for an activation.
func newActivationID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		// ulid.New only fails on entropy exhaustion; fall back to a
		// zero-entropy timestamp ULID rather than aborting the cycle.
		return ulid.Make().String()
	}
	return id.String()
}
