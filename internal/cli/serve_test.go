package cli

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prasetyo/artifex/pkg/action"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/prasetyo/artifex/pkg/pipeline"
)

func TestRegisterDefaultRunnersCoversAllKinds(t *testing.T) {
	coord := coordinator.New(coordinator.Options{})
	p, err := pipeline.New(coord, pipeline.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	registerDefaultRunners(p, zerolog.Nop())

	descs := make([]action.Descriptor, 0, 5)
	for i, kind := range []action.Kind{
		action.KindFile,
		action.KindShell,
		action.KindStart,
		action.KindBuild,
		action.KindSchemaOp,
	} {
		path := ""
		if kind == action.KindFile {
			path = "/src/a.go"
		}
		desc, err := action.NewDescriptor("artifact-cli", string(rune('a'+i)), kind, path)
		require.NoError(t, err)
		descs = append(descs, desc)
	}

	results := p.Dispatch(context.Background(), descs)
	require.Len(t, results, 5)
	for _, res := range results {
		assert.NoError(t, res.Err)
	}
}
