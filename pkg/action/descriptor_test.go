package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor(t *testing.T) {
	d, err := NewDescriptor("artifact-1", "action-1", KindFile, "src/index.html")
	require.NoError(t, err)

	assert.Equal(t, "artifact-1:action-1", d.OperationID)
	assert.Equal(t, KindFile, d.Kind)
	assert.Equal(t, "/src/index.html", d.ResourceKey)
}

func TestNewDescriptorGeneratesActionID(t *testing.T) {
	d1, err := NewDescriptor("artifact-1", "", KindShell, "")
	require.NoError(t, err)
	d2, err := NewDescriptor("artifact-1", "", KindShell, "")
	require.NoError(t, err)

	assert.NotEmpty(t, d1.OperationID)
	assert.NotEqual(t, d1.OperationID, d2.OperationID)
}

func TestNewDescriptorRequiresArtifactID(t *testing.T) {
	_, err := NewDescriptor("", "action-1", KindShell, "")
	assert.Error(t, err)
}

func TestNewDescriptorFileRequiresPath(t *testing.T) {
	_, err := NewDescriptor("artifact-1", "action-1", KindFile, "")
	assert.Error(t, err)
}

func TestNewDescriptorNonFileHasNoResourceKey(t *testing.T) {
	d, err := NewDescriptor("artifact-1", "action-1", KindBuild, "ignored.txt")
	require.NoError(t, err)
	assert.Empty(t, d.ResourceKey)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"src/app.js", "/src/app.js"},
		{"/src/app.js", "/src/app.js"},
		{"./src/app.js", "/src/app.js"},
		{"src//app.js", "/src/app.js"},
		{"src/../app.js", "/app.js"},
		{`src\app.js`, "/src/app.js"},
		{"/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.input))
		})
	}
}

func TestNormalizePathSameTargetSameKey(t *testing.T) {
	a := NormalizePath("src/pages/index.tsx")
	b := NormalizePath("./src/pages/index.tsx")
	c := NormalizePath("/src/./pages/index.tsx")

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"file", KindFile},
		{"shell", KindShell},
		{"start", KindStart},
		{"build", KindBuild},
		{"schema", KindSchemaOp},
		{"migration", KindSchemaOp},
		{"deploy", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.input))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "schema", KindSchemaOp.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestRequiresGlobalOrder(t *testing.T) {
	assert.False(t, KindFile.RequiresGlobalOrder())
	assert.True(t, KindShell.RequiresGlobalOrder())
	assert.True(t, KindStart.RequiresGlobalOrder())
	assert.True(t, KindBuild.RequiresGlobalOrder())
	assert.True(t, KindSchemaOp.RequiresGlobalOrder())
	assert.True(t, KindUnknown.RequiresGlobalOrder(), "unknown kinds must serialize fully")
}
