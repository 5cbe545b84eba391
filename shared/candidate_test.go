package shared

import (
	"testing"

	"github.com/peterldowns/testy/assert"
)

func TestCandidateRiskGeometry(t *testing.T) {
	// Ensure a well formed long candidate validates.
	long := &Candidate{
		Direction: Long,
		Entry:     EntryZone{Low: 99, High: 101},
		Stop:      96,
		Targets:   [3]float64{104, 108, 112},
	}
	assert.NoError(t, long.ValidateRiskGeometry())

	// Ensure a long stop at or above entry is rejected.
	long.Stop = 100
	assert.Error(t, long.ValidateRiskGeometry())
	long.Stop = 103
	assert.Error(t, long.ValidateRiskGeometry())

	// Ensure long targets must strictly increase away from entry.
	long.Stop = 96
	long.Targets = [3]float64{104, 104, 112}
	assert.Error(t, long.ValidateRiskGeometry())
	long.Targets = [3]float64{99, 108, 112}
	assert.Error(t, long.ValidateRiskGeometry())

	// Ensure a well formed short candidate validates.
	short := &Candidate{
		Direction: Short,
		Entry:     EntryZone{Low: 99, High: 101},
		Stop:      104,
		Targets:   [3]float64{96, 92, 88},
	}
	assert.NoError(t, short.ValidateRiskGeometry())

	// Ensure a short stop at or below entry is rejected.
	short.Stop = 100
	assert.Error(t, short.ValidateRiskGeometry())

	// Ensure short targets must strictly decrease away from entry.
	short.Stop = 104
	short.Targets = [3]float64{96, 96, 88}
	assert.Error(t, short.ValidateRiskGeometry())

	// Ensure an unclear direction is rejected outright.
	unclear := &Candidate{Direction: Unclear}
	assert.Error(t, unclear.ValidateRiskGeometry())
}

func TestCandidateFlags(t *testing.T) {
	candidate := &Candidate{Flags: []Flag{ChopRisk, ThinTape}}

	// Ensure flag membership checks work.
	assert.True(t, candidate.HasFlag(ChopRisk))
	assert.True(t, candidate.HasFlag(ThinTape))
	assert.False(t, candidate.HasFlag(Extended))
}
