package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
)

// DisplayMode is the session's current presentation state.
type DisplayMode string

const (
	// ModeIdle means no activation is live.
	ModeIdle DisplayMode = "idle"

	// ModeSummary means the activation is shown in preview form, optionally
	// with a countdown to auto-promotion.
	ModeSummary DisplayMode = "summary"

	// ModeFull means the activation's capability is fully rendered and
	// actionable.
	ModeFull DisplayMode = "full"
)

// Snapshot is the read-only view the presentation layer consumes.
type Snapshot struct {
	Mode       DisplayMode `json:"mode"`
	Activation *Activation `json:"activation,omitempty"`

	// CountdownRemaining is the number of ticks left before auto-promotion.
	// Zero means no countdown is pending (a live countdown always has at
	// least one tick remaining).
	CountdownRemaining int `json:"countdown_remaining,omitempty"`
}

// Session is the stateful dispatch controller for one user session. It owns
// the live activation, the display mode, and the countdown state machine.
//
// A session is single-threaded-cooperative: there is exactly one live
// activation and at most one countdown at a time. The mutex exists for the
// countdown timer goroutine and late transport responses, not for concurrent
// presentation-layer mutation, which is not supported.
type Session struct {
	registry     *intent.Registry
	threshold    float64
	ticks        int
	tickInterval time.Duration

	mu         sync.Mutex
	mode       DisplayMode
	activation *Activation
	remaining  int

	// gen guards the countdown: every start or cancel bumps it, and a timer
	// firing with a stale generation is ignored. Cancellation and natural
	// expiry are therefore mutually exclusive.
	gen   uint64
	timer *time.Timer

	// cancelled marks that the user cancelled the countdown for the current
	// activation; no further auto-promotion occurs until it is superseded.
	cancelled bool

	// lastIssued is the monotonically increasing request sequence number.
	// Responses are applied in issuance order: a response whose sequence is
	// not the latest issued is discarded.
	lastIssued uint64
}

// NewSession creates a session in {no activation, idle} using the config's
// promotion threshold and countdown settings.
func NewSession(reg *intent.Registry, cfg *config.Config) *Session {
	interval := time.Duration(cfg.CountdownTickMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return &Session{
		registry:     reg,
		threshold:    cfg.PromotionThreshold,
		ticks:        cfg.CountdownTicks,
		tickInterval: interval,
		mode:         ModeIdle,
	}
}

// BeginTurn issues a new request sequence number for a model round trip.
// The returned sequence must be passed to Apply with the turn's outcome.
func (s *Session) BeginTurn() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastIssued++
	return s.lastIssued
}

// Apply installs the activation produced for the given turn. A fresh turn
// always supersedes the pending activation: any live countdown is cancelled
// and the previous record discarded, never merged.
//
// Returns false when the turn has been superseded by a later BeginTurn, in
// which case the activation is dropped and the session is untouched
// (activations apply in issuance order, never completion order).
func (s *Session) Apply(seq uint64, a *Activation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.lastIssued {
		return false
	}

	s.stopCountdownLocked()
	s.cancelled = false

	if !a.Selected() {
		s.mode = ModeIdle
		s.activation = nil
		return true
	}

	s.mode = ModeSummary
	s.activation = a

	if a.Certainty >= s.threshold && s.minimallyActionable(a) {
		s.startCountdownLocked()
	}
	return true
}

// Fallback returns the session to idle after a failed dispatch cycle
// (e.g. UNKNOWN_CAPABILITY from normalization). The session stays usable.
func (s *Session) Fallback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	s.mode = ModeIdle
	s.activation = nil
	s.cancelled = false
}

// PromoteNow promotes the current activation to full immediately, cancelling
// any pending countdown. Fails when no activation is live.
func (s *Session) PromoteNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activation == nil {
		return errors.NewInvalidRequest("no activation to promote")
	}
	s.stopCountdownLocked()
	s.mode = ModeFull
	return nil
}

// CancelCountdown clears a pending countdown. The session stays in summary
// and the activation does not auto-promote again; the user can still promote
// manually.
func (s *Session) CancelCountdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	s.cancelled = true
}

// Complete executes the current activation's capability and clears the
// session to idle. The executor receives the coerced extraction data.
func (s *Session) Complete(ctx context.Context) (any, error) {
	s.mu.Lock()
	if s.activation == nil {
		s.mu.Unlock()
		return nil, errors.NewInvalidRequest("no activation to complete")
	}
	a := s.activation
	s.mu.Unlock()

	capability, ok := s.registry.Lookup(a.CapabilityID)
	if !ok {
		// Registry is immutable after startup, so this indicates a defect
		// upstream of Apply.
		s.Fallback()
		return nil, errors.NewUnknownCapability(a.CapabilityID)
	}

	var result any
	if capability.Execute != nil {
		var err error
		result, err = capability.Execute(ctx, a.Data)
		if err != nil {
			// Execution failed; the activation stays live so the user can
			// retry or dismiss.
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A new turn may have superseded the activation while the executor ran;
	// only clear the record we completed.
	if s.activation == a {
		s.stopCountdownLocked()
		s.mode = ModeIdle
		s.activation = nil
		s.cancelled = false
	}
	return result, nil
}

// Dismiss discards the current activation without executing it and returns
// the session to idle.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCountdownLocked()
	s.mode = ModeIdle
	s.activation = nil
	s.cancelled = false
}

// Snapshot returns the current read-only presentation state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Mode:               s.mode,
		Activation:         s.activation,
		CountdownRemaining: s.remaining,
	}
}

// minimallyActionable reports whether the activation satisfies enough of the
// capability's required fields for auto-promotion to make sense. A
// capability with no declared required fields is trivially actionable. The
// check is advisory: a non-actionable activation still reaches summary, it
// just never auto-promotes.
func (s *Session) minimallyActionable(a *Activation) bool {
	capability, ok := s.registry.Lookup(a.CapabilityID)
	if !ok {
		return false
	}
	if len(capability.RequiredFields) == 0 {
		return true
	}
	for _, name := range capability.RequiredFields {
		if _, present := a.Data[name]; present {
			return true
		}
	}
	return false
}

// startCountdownLocked begins a fresh countdown. Caller holds s.mu and has
// already stopped any previous countdown.
func (s *Session) startCountdownLocked() {
	s.remaining = s.ticks
	if s.remaining <= 0 {
		// Zero-length countdown promotes immediately.
		s.mode = ModeFull
		s.remaining = 0
		return
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.tickInterval, func() { s.tick(gen) })
}

// tick handles one countdown tick. Stale generations are dropped so a
// cancelled timer can never still fire.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.remaining <= 0 {
		return
	}

	s.remaining--
	if s.remaining <= 0 {
		s.timer = nil
		s.mode = ModeFull
		return
	}
	s.timer = time.AfterFunc(s.tickInterval, func() { s.tick(gen) })
}

// stopCountdownLocked cancels any pending countdown with no residual side
// effects. Caller holds s.mu.
func (s *Session) stopCountdownLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.remaining = 0
}
