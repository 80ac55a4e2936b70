package dispatch

import (
	"testing"

	"github.com/prismui/prism/internal/errors"
	"github.com/prismui/prism/internal/intent"
)

func taskRegistry(t *testing.T) *intent.Registry {
	t.Helper()
	r := intent.NewRegistry()
	r.MustRegister(&intent.Capability{
		Identifier:  "add_task",
		Description: "Create a new task",
		Fields: []intent.Field{
			{Name: "title", Kind: intent.KindText, Description: "Task title"},
			{Name: "due_date", Kind: intent.KindText, Description: "Due date"},
			{Name: "priority", Kind: intent.KindEnum, Description: "Priority", AllowedValues: []string{"low", "medium", "high"}},
			{Name: "estimate_hours", Kind: intent.KindNumber, Description: "Estimated effort"},
			{Name: "urgent", Kind: intent.KindBool, Description: "Urgency flag"},
		},
		RequiredFields: []string{"title"},
		RenderHandle:   "facets/add_task",
	})
	r.MustRegister(&intent.Capability{
		Identifier:  "list_tasks",
		Description: "List existing tasks",
		Fields: []intent.Field{
			{Name: "status", Kind: intent.KindEnum, Description: "Status filter", AllowedValues: []string{"open", "done", "all"}},
			{Name: "limit", Kind: intent.KindNumber, Description: "Maximum results"},
		},
		RenderHandle: "facets/list_tasks",
	})
	return r
}

func TestNormalizeNoInvocation(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(nil, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if a.Selected() {
		t.Error("Selected() = true for a non-invocation")
	}
	if a.Certainty != 0 {
		t.Errorf("Certainty = %v, want 0", a.Certainty)
	}
	if len(a.Data) != 0 {
		t.Errorf("Data = %v, want empty", a.Data)
	}
}

func TestNormalizeInvocation(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments: map[string]any{
			"title":    "buy milk",
			"priority": "high",
		},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if a.CapabilityID != "add_task" {
		t.Errorf("CapabilityID = %q, want add_task", a.CapabilityID)
	}
	if a.Certainty != 1.0 {
		t.Errorf("Certainty = %v, want 1.0 (invocation implies full certainty)", a.Certainty)
	}
	if a.Data["title"] != "buy milk" {
		t.Errorf("Data[title] = %v, want buy milk", a.Data["title"])
	}
	if a.Data["priority"] != "high" {
		t.Errorf("Data[priority] = %v, want high", a.Data["priority"])
	}
	// Absent fields are absent, not defaulted
	if _, present := a.Data["due_date"]; present {
		t.Error("Data should not contain due_date")
	}
	if a.ID == "" {
		t.Error("activation ID should be set")
	}
}

func TestNormalizeUnknownCapability(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{Capability: "delete_everything"}, reg)
	if !errors.Is(err, errors.ErrUnknownCapability) {
		t.Fatalf("Normalize error = %v, want UNKNOWN_CAPABILITY", err)
	}
	// Totality: exactly one typed error, never a record alongside it
	if a != nil {
		t.Error("Normalize must not return a record together with an error")
	}
}

func TestNormalizeCoercion(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments: map[string]any{
			"title":          "refuel",
			"estimate_hours": "2.5", // numeric string → number
			"urgent":         "true",
		},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if got := a.Data["estimate_hours"]; got != 2.5 {
		t.Errorf("Data[estimate_hours] = %v (%T), want 2.5", got, got)
	}
	if got := a.Data["urgent"]; got != true {
		t.Errorf("Data[urgent] = %v, want true", got)
	}
}

func TestNormalizeCoercionFailureIsNonFatal(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments: map[string]any{
			"title":          "plan trip",
			"estimate_hours": "soonish",  // not a number → dropped
			"priority":       "critical", // not in enum → dropped
		},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if _, present := a.Data["estimate_hours"]; present {
		t.Error("uncoercible field must be dropped from Data")
	}
	if _, present := a.Data["priority"]; present {
		t.Error("out-of-enum value must be dropped from Data")
	}
	if a.Data["title"] != "plan trip" {
		t.Errorf("Data[title] = %v, good fields must survive", a.Data["title"])
	}
	if len(a.CoercionFailures) != 2 {
		t.Errorf("CoercionFailures = %v, want entries for both dropped fields", a.CoercionFailures)
	}
}

func TestNormalizeDropsExtraneousKeys(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments: map[string]any{
			"title":     "water plants",
			"assignee":  "nobody", // not declared → silently dropped
			"sentiment": 0.3,
		},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if len(a.Data) != 1 {
		t.Errorf("Data = %v, want only title", a.Data)
	}
	if len(a.CoercionFailures) != 0 {
		t.Errorf("extraneous keys are dropped silently, not recorded: %v", a.CoercionFailures)
	}
}

func TestNormalizeNilArgumentValues(t *testing.T) {
	reg := taskRegistry(t)

	a, err := Normalize(&Invocation{
		Capability: "add_task",
		Arguments: map[string]any{
			"title":    "call dentist",
			"due_date": nil,
		},
	}, reg)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if _, present := a.Data["due_date"]; present {
		t.Error("nil values should be treated as absent")
	}
}
