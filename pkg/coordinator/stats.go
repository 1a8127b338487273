package coordinator

import (
	"sync"
	"time"
)

// waitSmoothing is the EMA factor for the average wait time.
const waitSmoothing = 0.1

// Stats is a point-in-time snapshot of coordinator accounting.
type Stats struct {
	TotalOperations      uint64  `json:"total_operations"`
	ParallelOperations   uint64  `json:"parallel_operations"`
	SerializedOperations uint64  `json:"serialized_operations"`
	AverageWaitMs        float64 `json:"average_wait_ms"`
	ActiveOperations     int     `json:"active_operations"`
	ActiveResourceQueues int     `json:"active_resource_queues"`
	ParallelizationRate  float64 `json:"parallelization_rate"`
}

// DebugInfo is the full introspection view for troubleshooting.
type DebugInfo struct {
	ActiveOperationIDs []string `json:"active_operation_ids"`
	ActiveResourceKeys []string `json:"active_resource_keys"`
	Stats              Stats    `json:"stats"`
}

// stats aggregates admission counters and a rolling wait-time average.
type stats struct {
	mu         sync.Mutex
	total      uint64
	parallel   uint64
	serialized uint64
	avgWaitMs  float64
}

func (s *stats) recordAdmission(wasParallel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if wasParallel {
		s.parallel++
	} else {
		s.serialized++
	}
}

func (s *stats) recordWait(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waitMs := float64(wait.Milliseconds())
	s.avgWaitMs = s.avgWaitMs*(1-waitSmoothing) + waitMs*waitSmoothing
}

func (s *stats) snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Stats{
		TotalOperations:      s.total,
		ParallelOperations:   s.parallel,
		SerializedOperations: s.serialized,
		AverageWaitMs:        s.avgWaitMs,
	}
	if s.total > 0 {
		snap.ParallelizationRate = float64(s.parallel) / float64(s.total)
	}
	return snap
}

func (s *stats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total = 0
	s.parallel = 0
	s.serialized = 0
	s.avgWaitMs = 0
}
