package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsAdmissionCounters(t *testing.T) {
	s := &stats{}

	s.recordAdmission(true)
	s.recordAdmission(true)
	s.recordAdmission(false)

	snap := s.snapshot()
	assert.Equal(t, uint64(3), snap.TotalOperations)
	assert.Equal(t, uint64(2), snap.ParallelOperations)
	assert.Equal(t, uint64(1), snap.SerializedOperations)
	assert.InDelta(t, 2.0/3.0, snap.ParallelizationRate, 1e-9)
}

func TestStatsWaitMovingAverage(t *testing.T) {
	s := &stats{}

	// EMA with alpha 0.1 starting from zero.
	s.recordWait(100 * time.Millisecond)
	snap := s.snapshot()
	assert.InDelta(t, 10.0, snap.AverageWaitMs, 1e-9)

	s.recordWait(100 * time.Millisecond)
	snap = s.snapshot()
	assert.InDelta(t, 19.0, snap.AverageWaitMs, 1e-9)

	s.recordWait(0)
	snap = s.snapshot()
	assert.InDelta(t, 17.1, snap.AverageWaitMs, 1e-9)
}

func TestStatsZeroRateWithoutOperations(t *testing.T) {
	s := &stats{}

	snap := s.snapshot()
	assert.Equal(t, uint64(0), snap.TotalOperations)
	assert.Equal(t, float64(0), snap.ParallelizationRate)
}

func TestStatsReset(t *testing.T) {
	s := &stats{}
	s.recordAdmission(true)
	s.recordWait(50 * time.Millisecond)

	s.reset()

	snap := s.snapshot()
	assert.Equal(t, uint64(0), snap.TotalOperations)
	assert.Equal(t, float64(0), snap.AverageWaitMs)
}
