package canopen

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopenctl/canopenctl/pkg/can"
	"github.com/canopenctl/canopenctl/pkg/can/canfake"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

func TestSDODownloadExpeditedSuccess(t *testing.T) {
	client, server := canfake.NewPair()
	c := NewSDOClient(client, 0x02)

	done := make(chan SDOResult, 1)
	go func() { done <- c.Download(0x6040, 0x00, []byte{0x0F, 0x00}, TypeU16) }()

	var req can.Frame
	status, _, err := server.Read(&req, time.Second)
	require.NoError(t, err)
	require.Equal(t, can.Received, status)
	assert.Equal(t, uint16(0x602), req.ID)

	reply, err := can.New(0x582, []byte{0x60, 0x40, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.NoError(t, server.Write(reply))

	result := <-done
	assert.Equal(t, SDODone, result.Kind)
}

func TestSDOUploadExpedited32Bit(t *testing.T) {
	client, server := canfake.NewPair()
	c := NewSDOClient(client, 0x05)

	done := make(chan SDOResult, 1)
	go func() { done <- c.Upload(0x1000, 0x00) }()

	var req can.Frame
	_, _, err := server.Read(&req, time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x605), req.ID)

	reply, err := can.New(0x585, []byte{0x43, 0x00, 0x10, 0x00, 0x92, 0x01, 0x02, 0x00})
	require.NoError(t, err)
	require.NoError(t, server.Write(reply))

	result := <-done
	require.Equal(t, SDODone, result.Kind)
	assert.Equal(t, []byte{0x92, 0x01, 0x02, 0x00}, result.Data)
}

func TestSDOUploadSegmented(t *testing.T) {
	client, server := canfake.NewPair()
	c := NewSDOClient(client, 0x01)

	done := make(chan SDOResult, 1)
	go func() { done <- c.Upload(0x2000, 0x01) }()

	var req can.Frame
	_, _, err := server.Read(&req, time.Second)
	require.NoError(t, err)

	// e=0 s=1: total length 10 announced, switch to segmented mode.
	initiateResp, err := can.New(0x581, []byte{0x41, 0x00, 0x20, 0x01, 0x0A, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	require.NoError(t, server.Write(initiateResp))

	_, _, err = server.Read(&req, time.Second) // first segment request, toggle=0
	require.NoError(t, err)
	seg1, err := can.New(0x581, []byte{0x00, 'H', 'e', 'l', 'l', 'o', ' ', 'W'})
	require.NoError(t, err)
	require.NoError(t, server.Write(seg1))

	_, _, err = server.Read(&req, time.Second) // second segment request, toggle=1
	require.NoError(t, err)
	seg2, err := can.New(0x581, []byte{0x19, 'o', 'r', '!', 0, 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, server.Write(seg2))

	result := <-done
	require.Equal(t, SDODone, result.Kind)
	assert.Equal(t, "Hello Wor!", string(result.Data))
}

func TestSDOAbort(t *testing.T) {
	client, server := canfake.NewPair()
	c := NewSDOClient(client, 0x02)

	done := make(chan SDOResult, 1)
	go func() { done <- c.Download(0x6040, 0x00, []byte{0x0F, 0x00}, TypeU16) }()

	var req can.Frame
	_, _, err := server.Read(&req, time.Second)
	require.NoError(t, err)

	abort, err := can.New(0x582, []byte{0x80, 0x40, 0x60, 0x00, 0x11, 0x00, 0x09, 0x06})
	require.NoError(t, err)
	require.NoError(t, server.Write(abort))

	result := <-done
	require.Equal(t, SDOAborted, result.Kind)
	assert.Equal(t, AbortSubindexMissing, result.Abort)
	assert.Equal(t, "Sub-index does not exist.", result.Abort.Explanation())
}

func TestSDOTimeout(t *testing.T) {
	client, server := canfake.NewPair()
	_ = server
	c := NewSDOClient(client, 0x02)
	c.Timeout = 50 * time.Millisecond

	result := c.Download(0x6040, 0x00, []byte{0x0F, 0x00}, TypeU16)
	assert.Equal(t, SDOTimeout, result.Kind)

	var req can.Frame
	_, _, err := server.Read(&req, time.Second) // the download-initiate request
	require.NoError(t, err)

	var abortFrame can.Frame
	status, _, err := server.Read(&abortFrame, time.Second)
	require.NoError(t, err)
	require.Equal(t, can.Received, status)
	assert.Equal(t, byte(0x80), abortFrame.Data[0])
	assert.Equal(t, [4]byte{0x00, 0x00, 0x04, 0x05}, [4]byte(abortFrame.Data[4:8]))
}
