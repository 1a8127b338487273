package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prasetyo/artifex/pkg/action"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := New(coordinator.New(coordinator.Options{}), opts)
	require.NoError(t, err)
	return p
}

func descOf(t *testing.T, id string, kind action.Kind, path string) action.Descriptor {
	t.Helper()
	d, err := action.NewDescriptor("artifact-p", id, kind, path)
	require.NoError(t, err)
	return d
}

func TestNewRequiresCoordinator(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestDispatchRunsRegisteredRunner(t *testing.T) {
	p := newTestPipeline(t, Options{})

	var ran atomic.Int32
	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		ran.Add(1)
		return nil
	})

	results := p.Dispatch(context.Background(), []action.Descriptor{
		descOf(t, "a", action.KindFile, "/a.txt"),
		descOf(t, "b", action.KindFile, "/b.txt"),
	})

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int32(2), ran.Load())
}

func TestDispatchResultsKeepInputOrder(t *testing.T) {
	p := newTestPipeline(t, Options{})

	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		return nil
	})
	p.Register(action.KindShell, func(ctx context.Context, desc action.Descriptor) error {
		return errors.New("command failed")
	})

	descs := []action.Descriptor{
		descOf(t, "f", action.KindFile, "/x.txt"),
		descOf(t, "s", action.KindShell, ""),
		descOf(t, "g", action.KindFile, "/y.txt"),
	}

	results := p.Dispatch(context.Background(), descs)

	require.Len(t, results, 3)
	assert.Equal(t, descs[0].OperationID, results[0].Descriptor.OperationID)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestDispatchMissingRunner(t *testing.T) {
	p := newTestPipeline(t, Options{})

	results := p.Dispatch(context.Background(), []action.Descriptor{
		descOf(t, "a", action.KindBuild, ""),
	})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "no runner registered")
}

func TestUnknownKindFallbackRunner(t *testing.T) {
	p := newTestPipeline(t, Options{})

	var ran atomic.Bool
	p.Register(action.KindUnknown, func(ctx context.Context, desc action.Descriptor) error {
		ran.Store(true)
		return nil
	})

	results := p.Dispatch(context.Background(), []action.Descriptor{
		descOf(t, "u", action.KindUnknown, ""),
	})

	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.True(t, ran.Load())
}

func TestDispatchFailedActionDoesNotStopBatch(t *testing.T) {
	p := newTestPipeline(t, Options{})

	bootErr := errors.New("write failed")
	var calls atomic.Int32
	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		calls.Add(1)
		if desc.ResourceKey == "/bad.txt" {
			return bootErr
		}
		return nil
	})

	results := p.Dispatch(context.Background(), []action.Descriptor{
		descOf(t, "a", action.KindFile, "/bad.txt"),
		descOf(t, "b", action.KindFile, "/good.txt"),
	})

	assert.ErrorIs(t, results[0].Err, bootErr)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDispatchMaxInFlight(t *testing.T) {
	p := newTestPipeline(t, Options{MaxInFlight: 2})

	var running atomic.Int32
	var maxRunning atomic.Int32
	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		now := running.Add(1)
		for {
			max := maxRunning.Load()
			if now <= max || maxRunning.CompareAndSwap(max, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	descs := make([]action.Descriptor, 6)
	paths := []string{"/1", "/2", "/3", "/4", "/5", "/6"}
	for i, path := range paths {
		descs[i] = descOf(t, path, action.KindFile, path)
	}

	p.Dispatch(context.Background(), descs)

	assert.LessOrEqual(t, maxRunning.Load(), int32(2))
}

func TestDispatchSameFileSerialized(t *testing.T) {
	p := newTestPipeline(t, Options{})

	var mu sync.Mutex
	var inBody int
	var overlapped bool
	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		mu.Lock()
		inBody++
		if inBody > 1 {
			overlapped = true
		}
		mu.Unlock()

		time.Sleep(15 * time.Millisecond)

		mu.Lock()
		inBody--
		mu.Unlock()
		return nil
	})

	descs := []action.Descriptor{
		descOf(t, "w1", action.KindFile, "/same.txt"),
		descOf(t, "w2", action.KindFile, "/same.txt"),
		descOf(t, "w3", action.KindFile, "/same.txt"),
	}

	p.Dispatch(context.Background(), descs)

	assert.False(t, overlapped, "writes to one file must not overlap")
}

func TestDispatchRaw(t *testing.T) {
	p := newTestPipeline(t, Options{})

	p.Register(action.KindFile, func(ctx context.Context, desc action.Descriptor) error {
		return nil
	})

	raw := [][]byte{
		[]byte(`{"artifact_id": "artifact-p", "action_id": "r1", "kind": "file", "path": "/r.txt"}`),
		[]byte(`{"kind": "file"}`), // missing artifact_id
	}

	results := p.DispatchRaw(context.Background(), raw)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "artifact-p:r1", results[0].Descriptor.OperationID)
	assert.Error(t, results[1].Err)
}
