package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// wireSchema validates raw action JSON from the upstream parser before it is
// decoded into a Descriptor.
const wireSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["artifact_id", "kind"],
	"properties": {
		"artifact_id": {"type": "string", "minLength": 1},
		"action_id": {"type": "string"},
		"kind": {"type": "string", "minLength": 1},
		"path": {"type": "string"},
		"payload": {}
	},
	"additionalProperties": true
}`

// WireAction is the JSON shape the upstream parser emits per action.
type WireAction struct {
	ArtifactID string          `json:"artifact_id"`
	ActionID   string          `json:"action_id"`
	Kind       string          `json:"kind"`
	Path       string          `json:"path"`
	Payload    json.RawMessage `json:"payload"`
}

var schemaLoader = gojsonschema.NewStringLoader(wireSchema)

// Decode validates raw action JSON against the wire schema and builds a
// Descriptor from it.
func Decode(data []byte) (Descriptor, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Descriptor{}, fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return Descriptor{}, fmt.Errorf("invalid action: %s", strings.Join(problems, "; "))
	}

	var wire WireAction
	if err := json.Unmarshal(data, &wire); err != nil {
		return Descriptor{}, fmt.Errorf("failed to decode action: %w", err)
	}

	kind := ParseKind(wire.Kind)
	if kind == KindFile && wire.Path == "" {
		return Descriptor{}, fmt.Errorf("file action %q has no path", wire.ActionID)
	}

	d, err := NewDescriptor(wire.ArtifactID, wire.ActionID, kind, wire.Path)
	if err != nil {
		return Descriptor{}, err
	}
	if kind == KindUnknown {
		d.RawKind = wire.Kind
	}
	d.Payload = wire.Payload
	return d, nil
}
