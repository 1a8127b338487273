package action

import (
	"fmt"
	"path"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Descriptor describes one unit of work submitted to the coordinator.
// Descriptors are immutable after construction.
type Descriptor struct {
	// OperationID is globally unique per submitted action.
	OperationID string
	// Kind decides the scheduling lane.
	Kind Kind
	// ResourceKey is the normalized target path; set only for KindFile.
	ResourceKey string
	// RawKind preserves the parser's original kind string when Kind is
	// KindUnknown.
	RawKind string
	// Payload carries opaque per-kind data for the downstream runner.
	Payload []byte
}

// NewDescriptor builds a descriptor for an action within an artifact.
// The operation ID is derived from the (artifactID, actionID) pair; when the
// caller supplies no actionID a nanoid is generated so the ID stays unique.
func NewDescriptor(artifactID, actionID string, kind Kind, resourcePath string) (Descriptor, error) {
	if artifactID == "" {
		return Descriptor{}, fmt.Errorf("artifact ID cannot be empty")
	}
	if actionID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return Descriptor{}, fmt.Errorf("failed to generate action ID: %w", err)
		}
		actionID = id
	}

	d := Descriptor{
		OperationID: OperationID(artifactID, actionID),
		Kind:        kind,
	}

	if kind == KindFile {
		if resourcePath == "" {
			return Descriptor{}, fmt.Errorf("file action requires a path")
		}
		d.ResourceKey = NormalizePath(resourcePath)
	}

	return d, nil
}

// OperationID derives the stable operation identity from the artifact and
// action identifiers.
func OperationID(artifactID, actionID string) string {
	return artifactID + ":" + actionID
}

// NormalizePath canonicalizes a file path so that every spelling of the same
// target maps to the same resource key: slashes normalized, ./ and ../
// segments collapsed, one leading slash.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
