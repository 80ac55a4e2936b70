package intent

import "testing"

func TestFieldValidate(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		wantErr bool
	}{
		{"valid text", Field{Name: "title", Kind: KindText}, false},
		{"valid number", Field{Name: "limit", Kind: KindNumber}, false},
		{"valid bool", Field{Name: "done", Kind: KindBool}, false},
		{"valid enum", Field{Name: "priority", Kind: KindEnum, AllowedValues: []string{"low", "high"}}, false},
		{"empty name", Field{Kind: KindText}, true},
		{"enum without values", Field{Name: "priority", Kind: KindEnum}, true},
		{"text with values", Field{Name: "title", Kind: KindText, AllowedValues: []string{"x"}}, true},
		{"unknown kind", Field{Name: "x", Kind: FieldKind("blob")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFieldAllowsValue(t *testing.T) {
	f := Field{Name: "priority", Kind: KindEnum, AllowedValues: []string{"low", "medium", "high"}}

	if !f.AllowsValue("medium") {
		t.Error("AllowsValue(medium) = false, want true")
	}
	if f.AllowsValue("urgent") {
		t.Error("AllowsValue(urgent) = true, want false")
	}

	text := Field{Name: "title", Kind: KindText}
	if text.AllowsValue("anything") {
		t.Error("AllowsValue on non-enum field should be false")
	}
}
