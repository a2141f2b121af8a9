package canopen

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// NMTCommand is a Network Management state-change command specifier.
type NMTCommand uint8

const (
	NMTStartRemoteNode     NMTCommand = 1
	NMTStopRemoteNode      NMTCommand = 2
	NMTEnterPreOperational NMTCommand = 128
	NMTResetNode           NMTCommand = 129
	NMTResetCommunication  NMTCommand = 130
)

func (c NMTCommand) String() string {
	switch c {
	case NMTStartRemoteNode:
		return "start"
	case NMTStopRemoteNode:
		return "stop"
	case NMTEnterPreOperational:
		return "pre-operational"
	case NMTResetNode:
		return "reset-node"
	case NMTResetCommunication:
		return "reset-communication"
	default:
		return fmt.Sprintf("nmt(0x%02X)", uint8(c))
	}
}

// ParseNMTCommand maps the CLI command names to their wire specifier.
func ParseNMTCommand(name string) (NMTCommand, error) {
	switch name {
	case "start":
		return NMTStartRemoteNode, nil
	case "stop":
		return NMTStopRemoteNode, nil
	case "pre-operational", "preop":
		return NMTEnterPreOperational, nil
	case "reset-node", "reset":
		return NMTResetNode, nil
	case "reset-communication", "reset-comm":
		return NMTResetCommunication, nil
	default:
		return 0, fmt.Errorf("%w: unknown NMT command %q", ErrUsage, name)
	}
}

// EncodeNMT builds the NMT control frame: identifier 0x000, DLC 2,
// data[0]=command specifier, data[1]=target node-id (0 broadcasts).
func EncodeNMT(command NMTCommand, target NodeID) can.Frame {
	return can.Frame{
		ID:  NMTServiceID,
		Len: 2,
		Data: [8]byte{
			byte(command),
			byte(target),
		},
	}
}

// SendNMT opens no transport of its own; it writes a single NMT frame to
// the given bus and returns. No response is ever awaited, matching the
// fire-and-forget nature of the NMT service.
func SendNMT(bus can.Bus, command NMTCommand, target NodeID) error {
	frame := EncodeNMT(command, target)
	log.Debugf("nmt: sending %s to node %d (frame %s)", command, target, frame)
	if err := bus.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrTransportWrite, err)
	}
	return nil
}
