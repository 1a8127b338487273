package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prasetyo/artifex/internal/observability"
	"github.com/prasetyo/artifex/internal/tracing"
	"github.com/prasetyo/artifex/pkg/action"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Callback is the caller-supplied unit of work for one operation. The
// coordinator decides when it runs; the callback performs the actual file
// write, shell spawn, build or migration call.
type Callback func(ctx context.Context) error

// lane identifies which chain an operation was routed to.
type lane int

const (
	laneGlobal lane = iota
	laneResource
)

func (l lane) String() string {
	if l == laneResource {
		return "resource"
	}
	return "global"
}

// handle marks one operation's slot in a chain. Its done channel closes when
// the operation finishes, releasing the direct successor.
type handle struct {
	done chan struct{}
}

// EventHandler is a function that handles coordinator events
type EventHandler func(event Event)

// Event represents a coordinator lifecycle event
type Event struct {
	Type        string `json:"type"` // "admitted" or "completed"
	OperationID string `json:"operation_id"`
	Lane        string `json:"lane"`
	ResourceKey string `json:"resource_key,omitempty"`
	Parallel    bool   `json:"parallel"`
	Success     bool   `json:"success"`
	DurationMs  int64  `json:"duration_ms"`
	WaitMs      int64  `json:"wait_ms"`
}

// Options configures a Coordinator.
type Options struct {
	Logger zerolog.Logger
}

// Coordinator routes each incoming action to its lane, enforces ordering
// within that lane, runs the callback and records timing and outcome.
type Coordinator struct {
	mu         sync.Mutex
	resources  map[string]*handle // resource key -> chain tail
	globalTail *handle
	active     map[string]struct{}
	stats      *stats
	logger     zerolog.Logger

	eventHandlers map[string][]EventHandler
	eventMu       sync.RWMutex
}

// New creates a Coordinator.
func New(opts Options) *Coordinator {
	observability.EnsureRegistered()

	return &Coordinator{
		resources:     make(map[string]*handle),
		active:        make(map[string]struct{}),
		stats:         &stats{},
		logger:        opts.Logger,
		eventHandlers: make(map[string][]EventHandler),
	}
}

// Execute submits one operation and blocks until its callback has run.
// The callback's error is returned unchanged; a failure never blocks the
// next operation queued on the same lane.
func (c *Coordinator) Execute(ctx context.Context, desc action.Descriptor, callback Callback) error {
	if desc.OperationID == "" {
		return fmt.Errorf("descriptor has empty operation ID")
	}
	if callback == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"artifex.coordinator",
		"coordinator.execute",
		attribute.String("operation_id", desc.OperationID),
		attribute.String("kind", desc.Kind.String()),
	)
	defer span.End()

	ctx = tracing.WithOperationID(ctx, desc.OperationID)
	logger := tracing.LoggerFromContext(ctx, c.logger)

	opLane, key := classify(desc)
	if desc.Kind == action.KindUnknown {
		logger.Warn().
			Str("rawKind", desc.RawKind).
			Msg("Unknown action kind, serializing on the global lane")
	}

	admitted := time.Now()
	h := &handle{done: make(chan struct{})}

	c.mu.Lock()
	var pred <-chan struct{}
	switch opLane {
	case laneGlobal:
		if c.globalTail != nil {
			pred = c.globalTail.done
		}
		c.globalTail = h
	case laneResource:
		if tail, ok := c.resources[key]; ok {
			pred = tail.done
		}
		c.resources[key] = h
	}
	parallel := pred == nil
	c.active[desc.OperationID] = struct{}{}
	c.stats.recordAdmission(parallel)
	activeCount := len(c.active)
	queueCount := len(c.resources)
	c.mu.Unlock()

	// Guaranteed cleanup: release the successor and drop drained table
	// entries no matter how the callback exits, panics included.
	defer func() {
		c.mu.Lock()
		delete(c.active, desc.OperationID)
		switch opLane {
		case laneGlobal:
			if c.globalTail == h {
				c.globalTail = nil
			}
		case laneResource:
			// Compare-and-remove: a successor enqueued meanwhile has already
			// replaced the tail, in which case the entry stays.
			if c.resources[key] == h {
				delete(c.resources, key)
			}
		}
		activeCount := len(c.active)
		queueCount := len(c.resources)
		c.mu.Unlock()

		close(h.done)

		observability.SetActiveOperations(activeCount)
		observability.SetActiveResourceQueues(queueCount)
	}()

	observability.RecordAdmission(opLane.String(), parallel)
	observability.SetActiveOperations(activeCount)
	observability.SetActiveResourceQueues(queueCount)

	logger.Debug().
		Str("lane", opLane.String()).
		Str("resource", key).
		Bool("parallel", parallel).
		Msg("Operation admitted")

	c.emit(Event{
		Type:        "admitted",
		OperationID: desc.OperationID,
		Lane:        opLane.String(),
		ResourceKey: key,
		Parallel:    parallel,
	})

	if pred != nil {
		<-pred
	}
	wait := time.Since(admitted)
	c.stats.recordWait(wait)
	observability.RecordQueueWait(opLane.String(), wait)

	start := time.Now()
	err := callback(ctx)
	elapsed := time.Since(start)

	observability.RecordOperation(opLane.String(), elapsed, err == nil)

	status := "success"
	if err != nil {
		status = "failure"
	}
	observability.RecordOperationAudit(ctx, desc.OperationID, tracing.GetArtifactID(ctx), status, map[string]interface{}{
		"kind":        desc.Kind.String(),
		"lane":        opLane.String(),
		"duration_ms": elapsed.Milliseconds(),
		"wait_ms":     wait.Milliseconds(),
	})

	c.emit(Event{
		Type:        "completed",
		OperationID: desc.OperationID,
		Lane:        opLane.String(),
		ResourceKey: key,
		Parallel:    parallel,
		Success:     err == nil,
		DurationMs:  elapsed.Milliseconds(),
		WaitMs:      wait.Milliseconds(),
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().
			Str("lane", opLane.String()).
			Dur("duration", elapsed).
			Dur("wait", wait).
			Err(err).
			Msg("Operation failed")
		return err
	}

	logger.Debug().
		Str("lane", opLane.String()).
		Dur("duration", elapsed).
		Dur("wait", wait).
		Msg("Operation completed")
	return nil
}

// classify decides the lane for a descriptor. File actions with a resource
// key go to that resource's queue; everything else serializes globally,
// including file actions that somehow arrive without a key.
func classify(desc action.Descriptor) (lane, string) {
	if desc.Kind == action.KindFile && desc.ResourceKey != "" {
		return laneResource, desc.ResourceKey
	}
	return laneGlobal, ""
}

// GetStats returns a snapshot of counters plus live queue sizes.
func (c *Coordinator) GetStats() Stats {
	snap := c.stats.snapshot()

	c.mu.Lock()
	snap.ActiveOperations = len(c.active)
	snap.ActiveResourceQueues = len(c.resources)
	c.mu.Unlock()

	return snap
}

// GetDebugInfo returns the in-flight operation set and active resource keys
// along with a stats snapshot.
func (c *Coordinator) GetDebugInfo() DebugInfo {
	snap := c.stats.snapshot()

	c.mu.Lock()
	ids := make([]string, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	keys := make([]string, 0, len(c.resources))
	for key := range c.resources {
		keys = append(keys, key)
	}
	snap.ActiveOperations = len(c.active)
	snap.ActiveResourceQueues = len(c.resources)
	c.mu.Unlock()

	sort.Strings(ids)
	sort.Strings(keys)

	return DebugInfo{
		ActiveOperationIDs: ids,
		ActiveResourceKeys: keys,
		Stats:              snap,
	}
}

// ResetStats zeroes the counters. In-flight operations and queues are
// unaffected.
func (c *Coordinator) ResetStats() {
	c.stats.reset()
}

// WaitForIdle waits until no operations are in flight, or the timeout
// elapses. Returns true if the coordinator drained.
func (c *Coordinator) WaitForIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		idle := len(c.active) == 0
		c.mu.Unlock()

		if idle {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		<-ticker.C
	}
}

// On registers an event handler for a specific event type
func (c *Coordinator) On(eventType string, handler EventHandler) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.eventHandlers[eventType] = append(c.eventHandlers[eventType], handler)
}

// Off removes all handlers for the event type
func (c *Coordinator) Off(eventType string) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	delete(c.eventHandlers, eventType)
}

// emit emits an event synchronously to all registered handlers
func (c *Coordinator) emit(event Event) {
	c.eventMu.RLock()
	handlers := c.eventHandlers[event.Type]
	c.eventMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
