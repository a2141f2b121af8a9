// Package canopen implements the CANopen protocol layer this tool drives:
// the frame codec, the NMT issuer, the SDO client state machine and the
// heartbeat monitor. It knows nothing about argument parsing or rendering.
package canopen

import "fmt"

// MaxNodeID is the highest addressable CANopen node-id.
const MaxNodeID = 127

// BroadcastNodeID is the "all nodes" target, valid only for NMT commands.
const BroadcastNodeID = 0

// NodeID identifies a node on the bus, 1..127, or 0 for an NMT broadcast.
type NodeID uint8

// ValidateSDO reports whether id is usable as the target of an SDO
// transaction. 0 (broadcast) is rejected: SDO is a point-to-point service.
func (id NodeID) ValidateSDO() error {
	if id < 1 || id > MaxNodeID {
		return fmt.Errorf("%w: node-id %d out of range 1..%d", ErrUsage, id, MaxNodeID)
	}
	return nil
}

// ValidateNMT reports whether id is usable as the target of an NMT command.
// 0 means broadcast and is always accepted.
func (id NodeID) ValidateNMT() error {
	if id > MaxNodeID {
		return fmt.Errorf("%w: node-id %d out of range 0..%d", ErrUsage, id, MaxNodeID)
	}
	return nil
}
