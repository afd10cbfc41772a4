package scenario

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

var (
	schemaOnce     sync.Once
	schema         *jsonschema.Schema
	schemaResolved *jsonschema.Resolved
	schemaErr      error
)

// Schema returns the JSON schema of a scenario document.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.For[Scenario](nil)
		if schemaErr != nil {
			return
		}
		schema.Title = "Focus scenario"
		constrain(schema)
		schemaResolved, schemaErr = schema.Resolve(nil)
	})
	return schema, schemaErr
}

// constrain adds enumerations the struct types cannot express.
func constrain(s *jsonschema.Schema) {
	enum := func(s *jsonschema.Schema, names []string) {
		if s == nil {
			return
		}
		s.Enum = make([]any, len(names))
		for i, n := range names {
			s.Enum[i] = n
		}
	}
	prop := func(s *jsonschema.Schema, path ...string) *jsonschema.Schema {
		for _, p := range path {
			if s == nil {
				return nil
			}
			if p == "[]" {
				s = s.Items
				continue
			}
			s = s.Properties[p]
		}
		return s
	}
	enum(prop(s, "apps", "[]", "gain"), gainNames)
	enum(prop(s, "clients", "[]", "gain"), gainNames)
	enum(prop(s, "steps", "[]", "change", "change"), changeNames)
	enum(prop(s, "steps", "[]", "expect", "state"), stateNames)
}

// Validate checks a YAML or JSON scenario document against the schema.
func Validate(data []byte) error {
	if _, err := Schema(); err != nil {
		return fmt.Errorf("scenario: build schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// Round-trip through JSON so the instance only holds JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := schemaResolved.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
