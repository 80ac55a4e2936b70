package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/prismui/prism/internal/config"
	"github.com/prismui/prism/internal/intent"
)

// fastConfig uses a short tick so countdown tests finish quickly.
func fastConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CountdownTickMillis = 10
	return cfg
}

func newTestSession(t *testing.T) (*Session, *intent.Registry) {
	t.Helper()
	reg := taskRegistry(t)
	return NewSession(reg, fastConfig()), reg
}

func applyTurn(t *testing.T, s *Session, reg *intent.Registry, inv *Invocation) *Activation {
	t.Helper()
	seq := s.BeginTurn()
	a, err := Normalize(inv, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !s.Apply(seq, a) {
		t.Fatal("Apply dropped a non-superseded turn")
	}
	return a
}

// waitForMode polls until the session reaches the mode or the deadline
// passes.
func waitForMode(t *testing.T, s *Session, mode DisplayMode, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Snapshot().Mode == mode {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return s.Snapshot().Mode == mode
}

func TestSessionStartsIdle(t *testing.T) {
	s, _ := newTestSession(t)

	snap := s.Snapshot()
	if snap.Mode != ModeIdle {
		t.Errorf("Mode = %q, want idle", snap.Mode)
	}
	if snap.Activation != nil {
		t.Error("new session must have no activation")
	}
}

// Scenario A: invocation with a satisfied required field starts a countdown
// and auto-promotes to full.
func TestAutoPromotionAfterCountdown(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "buy milk", "priority": "high"},
	})

	snap := s.Snapshot()
	if snap.Mode != ModeSummary {
		t.Fatalf("Mode = %q, want summary", snap.Mode)
	}
	if snap.CountdownRemaining != 3 {
		t.Errorf("CountdownRemaining = %d, want 3", snap.CountdownRemaining)
	}

	if !waitForMode(t, s, ModeFull, time.Second) {
		t.Fatal("countdown did not auto-promote to full")
	}

	snap = s.Snapshot()
	if snap.CountdownRemaining != 0 {
		t.Errorf("CountdownRemaining = %d after promotion, want 0", snap.CountdownRemaining)
	}
	if snap.Activation.Data["title"] != "buy milk" {
		t.Errorf("Data[title] = %v", snap.Activation.Data["title"])
	}
	if _, present := snap.Activation.Data["due_date"]; present {
		t.Error("due_date must not be present")
	}
}

// Scenario B: model declined → session stays idle.
func TestNonInvocationStaysIdle(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, nil)

	snap := s.Snapshot()
	if snap.Mode != ModeIdle {
		t.Errorf("Mode = %q, want idle", snap.Mode)
	}
	if snap.Activation != nil {
		t.Error("activation must be none after a declined turn")
	}
}

// Scenario C: unknown capability → typed error, session falls back to idle.
func TestUnknownCapabilityFallsBackToIdle(t *testing.T) {
	s, reg := newTestSession(t)

	// Put the session into summary first
	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "x"},
	})

	s.BeginTurn()
	if _, err := Normalize(&Invocation{Capability: "delete_everything"}, reg); err == nil {
		t.Fatal("Normalize should fail for unregistered capability")
	}
	s.Fallback()

	snap := s.Snapshot()
	if snap.Mode != ModeIdle {
		t.Errorf("Mode = %q, want idle after fallback", snap.Mode)
	}
	if snap.Activation != nil {
		t.Error("activation must be cleared on fallback")
	}
}

// Scenario D: PromoteNow promotes immediately and stops the countdown.
func TestPromoteNow(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "x"},
	})

	if err := s.PromoteNow(); err != nil {
		t.Fatalf("PromoteNow failed: %v", err)
	}

	snap := s.Snapshot()
	if snap.Mode != ModeFull {
		t.Errorf("Mode = %q, want full", snap.Mode)
	}
	if snap.CountdownRemaining != 0 {
		t.Errorf("CountdownRemaining = %d, want 0", snap.CountdownRemaining)
	}
}

func TestPromoteNowWithoutActivation(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.PromoteNow(); err == nil {
		t.Error("PromoteNow should fail in idle")
	}
}

// P4: after CancelCountdown, waiting past the original countdown duration
// must never produce a stray promotion.
func TestCancelCountdownNoStrayPromotion(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "x"},
	})

	s.CancelCountdown()

	// Wait well past the full original countdown
	time.Sleep(100 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Mode != ModeSummary {
		t.Errorf("Mode = %q after cancel, want summary (never full)", snap.Mode)
	}
	if snap.CountdownRemaining != 0 {
		t.Errorf("CountdownRemaining = %d, want 0", snap.CountdownRemaining)
	}

	// Manual promotion still available
	if err := s.PromoteNow(); err != nil {
		t.Fatalf("PromoteNow after cancel failed: %v", err)
	}
	if s.Snapshot().Mode != ModeFull {
		t.Error("manual promotion should still work after cancel")
	}
}

// Scenario E / P5: a new turn supersedes the pending activation outright;
// old countdown cancelled, records never merged.
func TestSupersession(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "old task", "priority": "high"},
	})

	second := applyTurn(t, s, reg, &Invocation{
		Capability: "list_tasks",
		Arguments:  map[string]any{"status": "open"},
	})

	// Old activation gone, no merge
	snap := s.Snapshot()
	if snap.Activation.ID != second.ID {
		t.Error("later activation must win outright")
	}
	if snap.Activation.CapabilityID != "list_tasks" {
		t.Errorf("CapabilityID = %q, want list_tasks", snap.Activation.CapabilityID)
	}
	if _, present := snap.Activation.Data["title"]; present {
		t.Error("data must never be merged across activations")
	}

	// list_tasks has no required fields → trivially actionable → countdown
	if snap.CountdownRemaining == 0 {
		t.Error("superseding activation should start its own countdown")
	}

	// Old countdown must not promote the old record: wait past the original
	// duration and confirm the live activation is still the new one.
	time.Sleep(100 * time.Millisecond)
	snap = s.Snapshot()
	if snap.Activation != nil && snap.Activation.ID != second.ID {
		t.Error("stale countdown resurrected a superseded activation")
	}
}

// Late responses are applied in issuance order, never completion order.
func TestLateResponseDiscarded(t *testing.T) {
	s, reg := newTestSession(t)

	seqSlow := s.BeginTurn()
	seqFast := s.BeginTurn()

	fast, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "fast"},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !s.Apply(seqFast, fast) {
		t.Fatal("latest turn must apply")
	}

	slow, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "slow"},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if s.Apply(seqSlow, slow) {
		t.Fatal("superseded turn must be discarded")
	}

	snap := s.Snapshot()
	if snap.Activation.Data["title"] != "fast" {
		t.Errorf("Data[title] = %v, the earlier slower request must not clobber the later one", snap.Activation.Data["title"])
	}
}

// P6: required field present → auto-promotes; required field missing →
// summary only, regardless of certainty.
func TestRequiredFieldGatesAutoPromotion(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"priority": "high"}, // no title
	})

	snap := s.Snapshot()
	if snap.Mode != ModeSummary {
		t.Fatalf("Mode = %q, activation must still reach summary", snap.Mode)
	}
	if snap.CountdownRemaining != 0 {
		t.Errorf("CountdownRemaining = %d, want no countdown without required fields", snap.CountdownRemaining)
	}

	time.Sleep(100 * time.Millisecond)
	if s.Snapshot().Mode != ModeSummary {
		t.Error("activation without required fields must never auto-promote")
	}

	// Manual promotion remains possible
	if err := s.PromoteNow(); err != nil {
		t.Fatalf("PromoteNow failed: %v", err)
	}
}

func TestCompleteExecutesAndClears(t *testing.T) {
	reg := intent.NewRegistry()
	var executed map[string]any
	reg.MustRegister(&intent.Capability{
		Identifier:  "add_task",
		Description: "Create a new task",
		Fields: []intent.Field{
			{Name: "title", Kind: intent.KindText},
		},
		RequiredFields: []string{"title"},
		Execute: func(ctx context.Context, data map[string]any) (any, error) {
			executed = data
			return "task-created", nil
		},
	})
	s := NewSession(reg, fastConfig())

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "pay rent"},
	})
	if err := s.PromoteNow(); err != nil {
		t.Fatalf("PromoteNow failed: %v", err)
	}

	result, err := s.Complete(context.Background())
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if result != "task-created" {
		t.Errorf("result = %v", result)
	}
	if executed["title"] != "pay rent" {
		t.Errorf("executor data = %v", executed)
	}

	snap := s.Snapshot()
	if snap.Mode != ModeIdle || snap.Activation != nil {
		t.Error("Complete must clear the session to idle")
	}
}

func TestDismissClears(t *testing.T) {
	s, reg := newTestSession(t)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "x"},
	})

	s.Dismiss()

	snap := s.Snapshot()
	if snap.Mode != ModeIdle || snap.Activation != nil {
		t.Error("Dismiss must clear the session to idle")
	}
	if snap.CountdownRemaining != 0 {
		t.Error("Dismiss must cancel the countdown")
	}
}

func TestCompleteWithoutActivation(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := s.Complete(context.Background()); err == nil {
		t.Error("Complete should fail with no activation")
	}
}

func TestBelowThresholdNoCountdown(t *testing.T) {
	reg := taskRegistry(t)
	cfg := fastConfig()
	cfg.PromotionThreshold = 1.5 // unreachable
	s := NewSession(reg, cfg)

	applyTurn(t, s, reg, &Invocation{
		Capability: "add_task",
		Arguments:  map[string]any{"title": "x"},
	})

	snap := s.Snapshot()
	if snap.Mode != ModeSummary {
		t.Fatalf("Mode = %q, want summary", snap.Mode)
	}
	if snap.CountdownRemaining != 0 {
		t.Error("certainty below threshold must not start a countdown")
	}
}
