package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prasetyo/artifex/internal/observability"
	"github.com/prasetyo/artifex/internal/tracing"
	"github.com/prasetyo/artifex/pkg/action"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Runner executes one action kind. The pipeline invokes it only after the
// coordinator has granted the action its turn.
type Runner func(ctx context.Context, desc action.Descriptor) error

// Result is the outcome of one dispatched action.
type Result struct {
	Descriptor action.Descriptor
	Err        error
	Duration   time.Duration
}

// Options configures a Pipeline.
type Options struct {
	// MaxInFlight caps concurrently dispatched actions; 0 means unlimited.
	MaxInFlight int
	Logger      zerolog.Logger
}

// Pipeline submits actions to the coordinator with per-kind runners.
type Pipeline struct {
	coord   *coordinator.Coordinator
	options Options
	logger  zerolog.Logger

	mu      sync.RWMutex
	runners map[action.Kind]Runner
}

// New creates a Pipeline on top of a coordinator.
func New(coord *coordinator.Coordinator, opts Options) (*Pipeline, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if opts.MaxInFlight < 0 {
		return nil, fmt.Errorf("max in-flight cannot be negative")
	}

	return &Pipeline{
		coord:   coord,
		options: opts,
		logger:  opts.Logger,
		runners: make(map[action.Kind]Runner),
	}, nil
}

// Register installs the runner for a kind, replacing any previous one.
func (p *Pipeline) Register(kind action.Kind, runner Runner) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runners[kind] = runner
}

// runnerFor resolves the runner for a descriptor. Unknown kinds fall back to
// the KindUnknown runner when one is registered.
func (p *Pipeline) runnerFor(kind action.Kind) (Runner, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if runner, ok := p.runners[kind]; ok {
		return runner, nil
	}
	if runner, ok := p.runners[action.KindUnknown]; ok {
		return runner, nil
	}
	return nil, fmt.Errorf("no runner registered for kind %q", kind)
}

// Dispatch submits a batch of actions and blocks until all have completed.
// Results are returned in input order; a failed action does not stop the
// rest of the batch.
func (p *Pipeline) Dispatch(ctx context.Context, descs []action.Descriptor) []Result {
	ctx, span := tracing.StartSpan(
		ctx,
		"artifex.pipeline",
		"pipeline.dispatch",
		attribute.Int("actions", len(descs)),
	)
	defer span.End()

	start := time.Now()
	results := make([]Result, len(descs))

	var sem chan struct{}
	if p.options.MaxInFlight > 0 {
		sem = make(chan struct{}, p.options.MaxInFlight)
	}

	var wg sync.WaitGroup
	for i, desc := range descs {
		i, desc := i, desc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			results[i] = p.dispatchOne(ctx, desc)
		}()
	}
	wg.Wait()

	observability.RecordPipelineDispatch(time.Since(start))
	return results
}

// DispatchRaw decodes raw action JSON and dispatches the batch. Actions that
// fail to decode produce a Result carrying the decode error and are not
// submitted.
func (p *Pipeline) DispatchRaw(ctx context.Context, raw [][]byte) []Result {
	descs := make([]action.Descriptor, 0, len(raw))
	decodeFailures := make(map[int]error)
	positions := make([]int, 0, len(raw))

	for i, data := range raw {
		desc, err := action.Decode(data)
		if err != nil {
			decodeFailures[i] = err
			continue
		}
		descs = append(descs, desc)
		positions = append(positions, i)
	}

	dispatched := p.Dispatch(ctx, descs)

	results := make([]Result, len(raw))
	for pos, err := range decodeFailures {
		results[pos] = Result{Err: err}
	}
	for j, res := range dispatched {
		results[positions[j]] = res
	}
	return results
}

func (p *Pipeline) dispatchOne(ctx context.Context, desc action.Descriptor) Result {
	logger := tracing.LoggerFromContext(ctx, p.logger).With().
		Str("operation_id", desc.OperationID).
		Str("kind", desc.Kind.String()).
		Logger()

	runner, err := p.runnerFor(desc.Kind)
	if err != nil {
		logger.Error().Err(err).Msg("Action has no runner")
		observability.RecordPipelineAction(desc.Kind.String(), false)
		return Result{Descriptor: desc, Err: err}
	}

	start := time.Now()
	err = p.coord.Execute(ctx, desc, func(ctx context.Context) error {
		return runner(ctx, desc)
	})
	duration := time.Since(start)

	observability.RecordPipelineAction(desc.Kind.String(), err == nil)

	if err != nil {
		logger.Error().Dur("duration", duration).Err(err).Msg("Action failed")
	} else {
		logger.Debug().Dur("duration", duration).Msg("Action completed")
	}

	return Result{Descriptor: desc, Err: err, Duration: duration}
}
