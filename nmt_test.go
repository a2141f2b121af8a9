package canopen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopenctl/canopenctl/pkg/can"
	"github.com/canopenctl/canopenctl/pkg/can/canfake"
)

func TestEncodeNMT(t *testing.T) {
	frame := EncodeNMT(NMTResetNode, 0x10)
	assert.Equal(t, NMTServiceID, frame.ID)
	assert.Equal(t, uint8(2), frame.Len)
	assert.Equal(t, byte(129), frame.Data[0])
	assert.Equal(t, byte(0x10), frame.Data[1])
}

func TestParseNMTCommand(t *testing.T) {
	cases := map[string]NMTCommand{
		"start":               NMTStartRemoteNode,
		"stop":                NMTStopRemoteNode,
		"pre-operational":     NMTEnterPreOperational,
		"reset-node":          NMTResetNode,
		"reset-communication": NMTResetCommunication,
	}
	for name, want := range cases {
		got, err := ParseNMTCommand(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseNMTCommand("bogus")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestSendNMTWritesOneFrame(t *testing.T) {
	a, b := canfake.NewPair()
	require.NoError(t, SendNMT(a, NMTStartRemoteNode, 0))

	var frame can.Frame
	status, _, err := b.Read(&frame, time.Second)
	require.NoError(t, err)
	require.Equal(t, can.Received, status)
	assert.Equal(t, NMTServiceID, frame.ID)
	assert.Equal(t, byte(1), frame.Data[0])
}

func TestNodeIDValidation(t *testing.T) {
	assert.NoError(t, NodeID(0).ValidateNMT())
	assert.NoError(t, NodeID(127).ValidateNMT())
	assert.Error(t, NodeID(128).ValidateNMT())

	assert.Error(t, NodeID(0).ValidateSDO())
	assert.NoError(t, NodeID(1).ValidateSDO())
	assert.NoError(t, NodeID(127).ValidateSDO())
	assert.Error(t, NodeID(128).ValidateSDO())
}
