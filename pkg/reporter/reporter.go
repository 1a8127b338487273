// Package reporter periodically logs coordinator throughput snapshots so
// long-running builds leave a scheduling trail even when nobody is watching
// the debug server.
package reporter

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/prasetyo/artifex/pkg/coordinator"
)

// Options configures the reporter
type Options struct {
	// Schedule is a cron expression or descriptor such as "@every 1m".
	Schedule string
	Logger   zerolog.Logger
}

// Reporter emits a scheduling summary on a cron schedule. Each tick logs
// the delta since the previous tick alongside the cumulative totals.
type Reporter struct {
	options Options
	coord   *coordinator.Coordinator
	runner  *cron.Cron

	mu       sync.Mutex
	lastSeen coordinator.Stats
	started  bool
}

// New creates a reporter. The schedule is validated up front so a bad
// config value fails at startup rather than silently never firing.
func New(coord *coordinator.Coordinator, opts Options) (*Reporter, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if opts.Schedule == "" {
		opts.Schedule = "@every 1m"
	}

	r := &Reporter{
		options: opts,
		coord:   coord,
		runner:  cron.New(),
	}

	if _, err := r.runner.AddFunc(opts.Schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid reporter schedule %q: %w", opts.Schedule, err)
	}

	return r, nil
}

// Start begins emitting reports. Safe to call once.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true
	r.lastSeen = r.coord.GetStats()
	r.runner.Start()

	r.options.Logger.Info().
		Str("schedule", r.options.Schedule).
		Msg("Scheduling reporter started")
}

// Stop halts the schedule and waits for an in-flight tick to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	r.mu.Unlock()

	ctx := r.runner.Stop()
	<-ctx.Done()

	// Final report so short-lived runs still get a summary.
	r.tick()
}

func (r *Reporter) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.coord.GetStats()
	delta := stats.TotalOperations - r.lastSeen.TotalOperations
	r.lastSeen = stats

	evt := r.options.Logger.Info()
	if delta == 0 {
		// Nothing happened since the last tick; keep quiet at info level.
		evt = r.options.Logger.Debug()
	}

	evt.
		Uint64("operations", delta).
		Uint64("totalOperations", stats.TotalOperations).
		Uint64("parallelOperations", stats.ParallelOperations).
		Uint64("serializedOperations", stats.SerializedOperations).
		Float64("parallelizationRate", stats.ParallelizationRate).
		Float64("averageWaitMs", stats.AverageWaitMs).
		Int("activeOperations", stats.ActiveOperations).
		Int("activeResourceQueues", stats.ActiveResourceQueues).
		Msg("Scheduling report")
}
