package canopen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpeditedCommandByteRoundTrip(t *testing.T) {
	cases := []struct {
		cs            uint8
		toggle        bool
		n             uint8
		expedited     bool
		sizeIndicated bool
	}{
		{csDownloadInitiate, false, 0, true, true},
		{csDownloadInitiate, false, 2, true, true},
		{csUploadInitiateResponse, true, 1, true, false},
		{csUploadInitiateResponse, false, 3, false, false},
	}
	for _, c := range cases {
		b := expeditedCommandByte(c.cs, c.toggle, c.n, c.expedited, c.sizeIndicated)
		cs, toggle, n, e, s := decodeExpeditedCommandByte(b)
		assert.Equal(t, c.cs, cs)
		assert.Equal(t, c.toggle, toggle)
		assert.Equal(t, c.n, n)
		assert.Equal(t, c.expedited, e)
		assert.Equal(t, c.sizeIndicated, s)
	}
}

func TestSegmentCommandByteRoundTrip(t *testing.T) {
	cases := []struct {
		cs       uint8
		toggle   bool
		n        uint8
		terminal bool
	}{
		{csUploadSegment, false, 0, false},
		{csUploadSegmentResponse, true, 4, true},
		{csUploadSegmentResponse, false, 7, false},
	}
	for _, c := range cases {
		b := segmentCommandByte(c.cs, c.toggle, c.n, c.terminal)
		cs, toggle, n, terminal := decodeSegmentCommandByte(b)
		assert.Equal(t, c.cs, cs)
		assert.Equal(t, c.toggle, toggle)
		assert.Equal(t, c.n, n)
		assert.Equal(t, c.terminal, terminal)
	}
}

func TestEncodeDownloadInitiate16Bit(t *testing.T) {
	frame := EncodeDownloadInitiate(0x02, 0x6040, 0x00, []byte{0x0F, 0x00}, TypeU16)
	assert.Equal(t, uint16(0x602), frame.ID)
	assert.Equal(t, uint8(8), frame.Len)
	assert.Equal(t, [8]byte{0x2B, 0x40, 0x60, 0x00, 0x0F, 0x00, 0x00, 0x00}, frame.Data)
}

func TestEncodeUploadInitiate(t *testing.T) {
	frame := EncodeUploadInitiate(0x05, 0x1000, 0x00)
	assert.Equal(t, uint16(0x605), frame.ID)
	assert.Equal(t, [8]byte{0x40, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00}, frame.Data)
}

func TestEncodeAbortTimeout(t *testing.T) {
	frame := EncodeAbort(0x02, 0x6040, 0x00, AbortTimeout)
	assert.Equal(t, uint16(0x602), frame.ID)
	assert.Equal(t, byte(0x80), frame.Data[0])
	assert.Equal(t, [4]byte{0x00, 0x00, 0x04, 0x05}, [4]byte(frame.Data[4:8]))
}

func TestExpeditedPayloadRoundTrip(t *testing.T) {
	for k := 1; k <= 4; k++ {
		data := make([]byte, k)
		for i := range data {
			data[i] = byte(0x10 + i)
		}
		var scalar ScalarType
		switch k {
		case 1:
			scalar = TypeU8
		case 2:
			scalar = TypeU16
		case 3:
			scalar = TypeU24
		case 4:
			scalar = TypeU32
		}
		frame := EncodeDownloadInitiate(0x01, 0x2000, 0x00, data, scalar)
		resp := decodeInitiateResponse(frame)
		n := int(resp.n)
		size := 4 - n
		assert.Equal(t, k, size)
		assert.Equal(t, data, resp.data[:size])
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassNMT, Classify(0x000, 2))
	assert.Equal(t, ClassPDO, Classify(0x200, 8))
	assert.Equal(t, ClassSDO, Classify(0x602, 8))
	assert.Equal(t, ClassNMT, Classify(0x705, 1))
	assert.Equal(t, ClassNone, Classify(0x705, 8))
	assert.Equal(t, ClassNone, Classify(0x7FF, 8))
}

func TestIsHeartbeat(t *testing.T) {
	node, ok := IsHeartbeat(0x705, 1)
	assert.True(t, ok)
	assert.Equal(t, NodeID(5), node)

	_, ok = IsHeartbeat(0x705, 8)
	assert.False(t, ok)
}
