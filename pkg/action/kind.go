package action

// Kind classifies a build action for scheduling purposes.
type Kind int

const (
	// KindUnknown is any kind the parser did not recognize. The zero value
	// is deliberate: an uninitialized descriptor schedules fail-safe.
	KindUnknown Kind = iota
	// KindFile writes or updates a single file in the artifact workspace.
	KindFile
	// KindShell runs a shell command in the artifact workspace.
	KindShell
	// KindStart launches a long-running process (dev server, watcher).
	KindStart
	// KindBuild runs a build step over the whole artifact.
	KindBuild
	// KindSchemaOp applies a database schema migration.
	KindSchemaOp
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindFile:     "file",
	KindShell:    "shell",
	KindStart:    "start",
	KindBuild:    "build",
	KindSchemaOp: "schema",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire string to a Kind. Unrecognized strings map to
// KindUnknown; callers that need the original value keep it in RawKind.
func ParseKind(s string) Kind {
	switch s {
	case "file":
		return KindFile
	case "shell":
		return KindShell
	case "start":
		return KindStart
	case "build":
		return KindBuild
	case "schema", "migration":
		return KindSchemaOp
	default:
		return KindUnknown
	}
}

// RequiresGlobalOrder reports whether the kind mutates process-wide or
// environment-wide state and therefore must never overlap another such
// operation.
func (k Kind) RequiresGlobalOrder() bool {
	switch k {
	case KindShell, KindStart, KindBuild, KindSchemaOp:
		return true
	case KindFile:
		return false
	default:
		// Fail safe: anything unrecognized is assumed to touch everything.
		return true
	}
}
