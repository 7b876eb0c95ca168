package tools

import "encoding/json"

// field is one property of a tool argument schema.
type field struct {
	name     string
	def      map[string]any
	required bool
}

func integer(name, desc string) field {
	return field{name: name, def: map[string]any{"type": "integer", "description": desc}}
}

func str(name, desc string) field {
	return field{name: name, def: map[string]any{"type": "string", "description": desc}}
}

func boolean(name, desc string) field {
	return field{name: name, def: map[string]any{"type": "boolean", "description": desc}}
}

func object(name, desc string) field {
	return field{name: name, def: map[string]any{"type": "object", "description": desc}}
}

func intArray(name, desc string) field {
	return field{name: name, def: map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": "integer"},
	}}
}

func strArray(name, desc string) field {
	return field{name: name, def: map[string]any{
		"type":        "array",
		"description": desc,
		"items":       map[string]any{"type": "string"},
	}}
}

func (f field) req() field {
	f.required = true
	return f
}

func (f field) with(key string, v any) field {
	def := make(map[string]any, len(f.def)+1)
	for k, val := range f.def {
		def[k] = val
	}
	def[key] = v
	f.def = def
	return f
}

func (f field) min(n int) field { return f.with("minimum", n) }
func (f field) max(n int) field { return f.with("maximum", n) }

func (f field) enum(vals ...int) field { return f.with("enum", vals) }

// schema builds a JSON Schema object from fields.
func schema(fields ...field) json.RawMessage {
	props := make(map[string]any, len(fields))
	required := []string{}
	for _, f := range fields {
		props[f.name] = f.def
		if f.required {
			required = append(required, f.name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	buf, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return buf
}
