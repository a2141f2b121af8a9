package canopen

import (
	"time"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// RefreshInterval is the heartbeat monitor's redraw cadence.
const RefreshInterval = 500 * time.Millisecond

// Known NMT reported states, extracted from a heartbeat payload's low 7
// bits.
const (
	ReportedBootup         uint8 = 0
	ReportedStopped        uint8 = 4
	ReportedOperational    uint8 = 5
	ReportedPreOperational uint8 = 127
)

// DisplayState is the per-node classification the dashboard renders.
type DisplayState uint8

const (
	// DisplayUnseen is the zero value. classify never returns it: a record
	// with no heartbeat yet classifies as DisplayUnknownFailure or
	// DisplayUnknownQuiet.
	DisplayUnseen DisplayState = iota
	DisplayBootBlip
	DisplayBoot
	DisplayStop
	DisplayOper
	DisplayPre
	DisplayInvalid
	// DisplayUnknownFailure is an expected (present) node that has gone
	// silent past the liveness window.
	DisplayUnknownFailure
	// DisplayUnknownQuiet is a node not marked present that is simply
	// absent; de-emphasized, not counted as a failure.
	DisplayUnknownQuiet
)

func (d DisplayState) String() string {
	switch d {
	case DisplayBootBlip:
		return "BOOT (blip)"
	case DisplayBoot:
		return "BOOT"
	case DisplayStop:
		return "STOP"
	case DisplayOper:
		return "OPER"
	case DisplayPre:
		return "PRE"
	case DisplayInvalid:
		return "####"
	case DisplayUnknownFailure, DisplayUnknownQuiet:
		return "UNKN"
	default:
		return "----"
	}
}

// IsFailure reports whether this state should count toward the dashboard's
// failure tally.
func (d DisplayState) IsFailure() bool { return d == DisplayUnknownFailure }

// HeartbeatRecord is one node-id slot in the monitor's table. Seen is an
// explicit "unseen" tag, replacing a sentinel state byte: LastSeen and State
// carry meaning only once Seen is true.
type HeartbeatRecord struct {
	Seen     bool
	LastSeen time.Time
	State    uint8
	Present  bool
}

// classify implements the display-state decision table in terms only of
// (seen, elapsed, state, present), so it is deterministic and independently
// testable from the monitor's event loop.
func classify(seen bool, elapsed time.Duration, state uint8, present bool) DisplayState {
	if !seen {
		if present {
			return DisplayUnknownFailure
		}
		return DisplayUnknownQuiet
	}

	ms := elapsed.Milliseconds()
	switch {
	case ms < 1000 && state == ReportedBootup:
		return DisplayBootBlip
	case ms < 30000 && state == ReportedBootup:
		return DisplayBoot
	case ms < 2000 && state == ReportedStopped:
		return DisplayStop
	case ms < 2000 && state == ReportedOperational:
		return DisplayOper
	case ms < 2000 && state == ReportedPreOperational:
		return DisplayPre
	case ms < 2000:
		return DisplayInvalid
	case present:
		return DisplayUnknownFailure
	default:
		return DisplayUnknownQuiet
	}
}

// Classify is the exported entry point used by Snapshot.Summarize and the
// dashboard's per-node grid.
func (r HeartbeatRecord) Classify(now time.Time) DisplayState {
	return classify(r.Seen, now.Sub(r.LastSeen), r.State, r.Present)
}

// TrafficCounters holds the four monotonically increasing counts the
// dashboard's summary line and rate panel are built from.
type TrafficCounters struct {
	NMT   uint64
	PDO   uint64
	SDO   uint64
	Total uint64
}

// Bump classifies one frame's identifier/DLC and increments the matching
// counter (and Total, unconditionally: every frame read is counted, even
// one that matches no class).
func (t *TrafficCounters) Bump(id uint16, dlc uint8) {
	t.Total++
	switch Classify(id, dlc) {
	case ClassNMT:
		t.NMT++
	case ClassPDO:
		t.PDO++
	case ClassSDO:
		t.SDO++
	}
}

// Clear zeroes all four counters, used by the monitor's "c" key handler.
func (t *TrafficCounters) Clear() { *t = TrafficCounters{} }

// RateSample is a (counter values, timestamp) baseline the monitor
// resamples from whenever more than 1000ms has elapsed.
type RateSample struct {
	At     time.Time
	Counts TrafficCounters
}

// Rates holds the last-computed per-second rate for each counter.
type Rates struct {
	NMT   float64
	PDO   float64
	SDO   float64
	Total float64
}

// maybeSample recomputes rates from (prev, now) when more than 1000ms has
// elapsed since prev.At, and returns the new baseline to store. When 1000ms
// or less has elapsed, rates is the zero value and the caller should
// keep displaying its previously computed rates unchanged.
func maybeSample(prev RateSample, now time.Time, current TrafficCounters) (rates Rates, next RateSample, sampled bool) {
	elapsed := now.Sub(prev.At)
	if elapsed <= time.Second {
		return Rates{}, prev, false
	}
	ms := float64(elapsed.Milliseconds())
	rates = Rates{
		NMT:   float64(current.NMT-prev.Counts.NMT) * 1000 / ms,
		PDO:   float64(current.PDO-prev.Counts.PDO) * 1000 / ms,
		SDO:   float64(current.SDO-prev.Counts.SDO) * 1000 / ms,
		Total: float64(current.Total-prev.Counts.Total) * 1000 / ms,
	}
	return rates, RateSample{At: now, Counts: current}, true
}

// Monitor owns the per-node heartbeat table and traffic counters for one
// run of the dashboard. It has no knowledge of the terminal: OnFrame, Tick,
// Clear and Snapshot are the whole surface a rendering layer needs.
type Monitor struct {
	Interface string
	records   [MaxNodeID + 1]HeartbeatRecord
	counters  TrafficCounters
	rates     Rates
	sample    RateSample
}

// NewMonitor builds a monitor with the given presence table (indexed
// 1..127; index 0 is unused) and starts its rate sampling clock at start.
func NewMonitor(iface string, present map[NodeID]bool, start time.Time) *Monitor {
	m := &Monitor{Interface: iface, sample: RateSample{At: start}}
	for id := NodeID(1); id <= MaxNodeID; id++ {
		m.records[id].Present = present[id]
	}
	return m
}

// OnFrame applies one received frame to the counters and, if it is a
// heartbeat, to the originating node's record. rxTime is the transport's
// reported reception time, not the time this call runs.
func (m *Monitor) OnFrame(frame can.Frame, rxTime time.Time) {
	m.counters.Bump(frame.ID, frame.Len)
	nodeID, ok := IsHeartbeat(frame.ID, frame.Len)
	if !ok || nodeID == 0 || int(nodeID) >= len(m.records) {
		return
	}
	rec := &m.records[nodeID]
	rec.Seen = true
	rec.LastSeen = rxTime
	rec.State = frame.Data[0] & 0x7F
}

// Tick resamples traffic rates if the sampling window has elapsed.
func (m *Monitor) Tick(now time.Time) {
	if rates, next, ok := maybeSample(m.sample, now, m.counters); ok {
		m.rates = rates
		m.sample = next
	}
}

// Clear zeroes the heartbeat table, keeping each node's Present flag, and
// the traffic counters. It takes no lock; the dashboard calls it from the
// same goroutine that draws, so the next draw sees the cleared state whole.
func (m *Monitor) Clear() {
	for id := NodeID(1); id <= MaxNodeID; id++ {
		present := m.records[id].Present
		m.records[id] = HeartbeatRecord{Present: present}
	}
	m.counters.Clear()
}

// Snapshot is an immutable view of monitor state suitable for rendering.
type Snapshot struct {
	Records  [MaxNodeID + 1]HeartbeatRecord
	Counters TrafficCounters
	Rates    Rates
}

// Snapshot copies the monitor's current state for a renderer to draw from
// without racing further mutation.
func (m *Monitor) Snapshot() Snapshot {
	return Snapshot{Records: m.records, Counters: m.counters, Rates: m.rates}
}

// Summary counts how many nodes fall into each top-level bucket at the
// given time, for the dashboard's summary line. Operational, PreOperational
// and Stopped count every node; Failures counts only nodes marked present,
// the only ones that classify as DisplayUnknownFailure.
type Summary struct {
	Operational    int
	PreOperational int
	Stopped        int
	Failures       int
}

func (s Snapshot) Summarize(now time.Time) Summary {
	var out Summary
	for id := NodeID(1); id <= MaxNodeID; id++ {
		switch s.Records[id].Classify(now) {
		case DisplayOper:
			out.Operational++
		case DisplayPre:
			out.PreOperational++
		case DisplayStop:
			out.Stopped++
		case DisplayUnknownFailure:
			out.Failures++
		}
	}
	return out
}
