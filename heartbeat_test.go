package canopen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/canopenctl/canopenctl/pkg/can"
)

func TestClassifyUnseen(t *testing.T) {
	assert.Equal(t, DisplayUnknownFailure, classify(false, 0, 0, true))
	assert.Equal(t, DisplayUnknownQuiet, classify(false, 0, 0, false))
}

func TestClassifyBootThresholds(t *testing.T) {
	assert.Equal(t, DisplayBootBlip, classify(true, 999*time.Millisecond, ReportedBootup, true))
	assert.Equal(t, DisplayBoot, classify(true, 1000*time.Millisecond, ReportedBootup, true))
	assert.Equal(t, DisplayBoot, classify(true, 29999*time.Millisecond, ReportedBootup, true))
	assert.Equal(t, DisplayUnknownFailure, classify(true, 30000*time.Millisecond, ReportedBootup, true))
}

func TestClassifyStateThresholds(t *testing.T) {
	assert.Equal(t, DisplayOper, classify(true, 1999*time.Millisecond, ReportedOperational, true))
	assert.Equal(t, DisplayUnknownFailure, classify(true, 2000*time.Millisecond, ReportedOperational, true))
	assert.Equal(t, DisplayUnknownQuiet, classify(true, 2000*time.Millisecond, ReportedOperational, false))
}

func TestClassifyScenarioMatrix(t *testing.T) {
	assert.Equal(t, DisplayBootBlip, classify(true, 500*time.Millisecond, 0, true))
	assert.Equal(t, DisplayBoot, classify(true, 1500*time.Millisecond, 0, true))
	assert.Equal(t, DisplayOper, classify(true, 1500*time.Millisecond, 5, true))
	assert.Equal(t, DisplayUnknownFailure, classify(true, 3000*time.Millisecond, 5, true))
	assert.Equal(t, DisplayUnknownQuiet, classify(true, 3000*time.Millisecond, 5, false))
}

func TestClassifyInvalidState(t *testing.T) {
	assert.Equal(t, DisplayInvalid, classify(true, 500*time.Millisecond, 42, true))
}

func TestTrafficCountersBump(t *testing.T) {
	var counters TrafficCounters
	counters.Bump(0x000, 2)
	counters.Bump(0x705, 1)
	counters.Bump(0x200, 8)
	counters.Bump(0x602, 8)
	counters.Bump(0x7FF, 8)

	assert.Equal(t, uint64(2), counters.NMT)
	assert.Equal(t, uint64(1), counters.PDO)
	assert.Equal(t, uint64(1), counters.SDO)
	assert.Equal(t, uint64(5), counters.Total)
}

func TestTrafficCountersClear(t *testing.T) {
	counters := TrafficCounters{NMT: 1, PDO: 2, SDO: 3, Total: 6}
	counters.Clear()
	assert.Equal(t, TrafficCounters{}, counters)
}

func TestMaybeSampleWaitsForWindow(t *testing.T) {
	start := time.Now()
	prev := RateSample{At: start}
	_, next, sampled := maybeSample(prev, start.Add(500*time.Millisecond), TrafficCounters{Total: 5})
	assert.False(t, sampled)
	assert.Equal(t, prev, next)
}

func TestMaybeSampleComputesRate(t *testing.T) {
	start := time.Now()
	prev := RateSample{At: start, Counts: TrafficCounters{Total: 0}}
	rates, next, sampled := maybeSample(prev, start.Add(2*time.Second), TrafficCounters{Total: 20})
	assert.True(t, sampled)
	assert.InDelta(t, 10.0, rates.Total, 0.001)
	assert.Equal(t, uint64(20), next.Counts.Total)
}

func TestMonitorOnFrameUpdatesRecord(t *testing.T) {
	m := NewMonitor("can0", map[NodeID]bool{5: true}, time.Now())
	rx := time.Now()
	frame := can.Frame{ID: HeartbeatServiceID + 5, Len: 1}
	frame.Data[0] = ReportedOperational
	m.OnFrame(frame, rx)

	snap := m.Snapshot()
	assert.True(t, snap.Records[5].Seen)
	assert.Equal(t, uint8(ReportedOperational), snap.Records[5].State)
	assert.Equal(t, rx, snap.Records[5].LastSeen)
	assert.Equal(t, uint64(1), snap.Counters.NMT)
}
