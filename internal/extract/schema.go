package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks model output against each field's JSON schema and
// normalizes it to the declared keys.
type Validator struct {
	schemas map[string]*jsonschema.Schema
	keys    map[string][]string
}

// SchemaFor returns the JSON schema for a field: an object whose declared
// keys are strings. A null value is accepted and read as empty; unknown keys
// are allowed and dropped.
func SchemaFor(f Field) ([]byte, error) {
	props := make(map[string]any, len(f.Keys))
	for _, k := range f.Keys {
		props[k] = map[string]any{"type": []string{"string", "null"}}
	}
	return json.Marshal(map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	})
}

// NewValidator compiles a schema for every field.
func NewValidator(fields []Field) (*Validator, error) {
	v := &Validator{
		schemas: make(map[string]*jsonschema.Schema, len(fields)),
		keys:    make(map[string][]string, len(fields)),
	}
	for _, f := range fields {
		raw, err := SchemaFor(f)
		if err != nil {
			return nil, fmt.Errorf("build schema %s: %w", f.Name, err)
		}
		url := f.Name + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", f.Name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", f.Name, err)
		}
		v.schemas[f.Name] = schema
		v.keys[f.Name] = f.Keys
	}
	return v, nil
}

// Validate checks obj and returns the declared keys as strings, missing and
// null values as "".
func (v *Validator) Validate(field string, obj map[string]any) (map[string]string, error) {
	schema, ok := v.schemas[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}
	if err := schema.Validate(obj); err != nil {
		return nil, fmt.Errorf("output does not match schema: %w", err)
	}

	out := make(map[string]string, len(v.keys[field]))
	for _, k := range v.keys[field] {
		s, _ := obj[k].(string)
		out[k] = s
	}
	return out, nil
}
