package intent

// ToolSpec is the compiled, model-consumable description of one capability:
// its name, description, and a JSON-schema-shaped parameter block.
type ToolSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Parameters  ParameterSpec `json:"parameters"`
}

// ParameterSpec is the JSON-schema object describing a tool's arguments.
type ParameterSpec struct {
	Type       string                  `json:"type"`
	Properties map[string]PropertySpec `json:"properties"`
	Required   []string                `json:"required,omitempty"`

	// PropertyOrder preserves declared field order for consumers that
	// serialize properties deterministically.
	PropertyOrder []string `json:"-"`
}

// PropertySpec describes one parameter property.
type PropertySpec struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// jsonType maps a field kind to its JSON schema type name.
func jsonType(kind FieldKind) string {
	switch kind {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		// text and enum both serialize as strings
		return "string"
	}
}

// Compile derives the model-callable tool list from the registry's current
// contents. It is a pure function: two calls with no intervening Register
// yield identical output, order included. An empty registry compiles to an
// empty list.
func Compile(r *Registry) []ToolSpec {
	caps := r.All()
	specs := make([]ToolSpec, 0, len(caps))

	for _, c := range caps {
		props := make(map[string]PropertySpec, len(c.Fields))
		order := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			props[f.Name] = PropertySpec{
				Type:        jsonType(f.Kind),
				Description: f.Description,
				Enum:        f.AllowedValues,
			}
			order = append(order, f.Name)
		}

		var required []string
		if len(c.RequiredFields) > 0 {
			required = make([]string, len(c.RequiredFields))
			copy(required, c.RequiredFields)
		}

		specs = append(specs, ToolSpec{
			Name:        c.Identifier,
			Description: c.Description,
			Parameters: ParameterSpec{
				Type:          "object",
				Properties:    props,
				Required:      required,
				PropertyOrder: order,
			},
		})
	}

	return specs
}
