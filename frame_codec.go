package canopen

import (
	"encoding/binary"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// SDO client command specifiers (byte 0, bits 7..5, sent by this tool).
const (
	csDownloadInitiate uint8 = 1
	csUploadInitiate   uint8 = 2
	csUploadSegment    uint8 = 3
	csAbort            uint8 = 4
)

// SDO server command specifiers (byte 0, bits 7..5, received by this tool).
const (
	csUploadSegmentResponse   uint8 = 0
	csDownloadSegmentResponse uint8 = 1
	csUploadInitiateResponse  uint8 = 2
	csDownloadInitiateResponse uint8 = 3
	csServerAbort             uint8 = 4
)

// expeditedCommandByte packs an initiate-frame command byte: cs(3) t(1)
// n(2) e(1) s(1). t is always 0 for initiate frames from this client.
func expeditedCommandByte(cs uint8, toggle bool, n uint8, expedited, sizeIndicated bool) byte {
	var b byte
	b |= cs << 5
	if toggle {
		b |= 1 << 4
	}
	b |= (n & 0x3) << 2
	if expedited {
		b |= 1 << 1
	}
	if sizeIndicated {
		b |= 1
	}
	return b
}

// decodeExpeditedCommandByte is the inverse of expeditedCommandByte.
func decodeExpeditedCommandByte(b byte) (cs uint8, toggle bool, n uint8, expedited, sizeIndicated bool) {
	cs = b >> 5
	toggle = b&(1<<4) != 0
	n = (b >> 2) & 0x3
	expedited = b&(1<<1) != 0
	sizeIndicated = b&1 != 0
	return
}

// segmentCommandByte packs a segment-frame command byte: cs(3) t(1) n(3)
// c(1). terminal marks this as the final segment of the transfer.
func segmentCommandByte(cs uint8, toggle bool, n uint8, terminal bool) byte {
	var b byte
	b |= cs << 5
	if toggle {
		b |= 1 << 4
	}
	b |= (n & 0x7) << 1
	if terminal {
		b |= 1
	}
	return b
}

// decodeSegmentCommandByte is the inverse of segmentCommandByte.
func decodeSegmentCommandByte(b byte) (cs uint8, toggle bool, n uint8, terminal bool) {
	cs = b >> 5
	toggle = b&(1<<4) != 0
	n = (b >> 1) & 0x7
	terminal = b&1 != 0
	return
}

// EncodeDownloadInitiate builds a client download-initiate frame. data
// holds up to 4 payload bytes, LSB first, occupying bytes 4..(7-n).
func EncodeDownloadInitiate(node NodeID, index uint16, subindex uint8, data []byte, scalar ScalarType) can.Frame {
	expedited := true
	sizeIndicated := scalar != TypeUnspecified
	n := scalar.unusedBytes()

	frame := can.Frame{ID: SDOClientID(node), Len: 8}
	frame.Data[0] = expeditedCommandByte(csDownloadInitiate, false, n, expedited, sizeIndicated)
	binary.LittleEndian.PutUint16(frame.Data[1:3], index)
	frame.Data[3] = subindex

	width := len(data)
	if size := scalar.size(); size > 0 && size < width {
		width = size
	}
	copy(frame.Data[4:], data[:width])
	return frame
}

// EncodeUploadInitiate builds a client upload-initiate frame requesting
// (index, subindex). No payload bytes are sent.
func EncodeUploadInitiate(node NodeID, index uint16, subindex uint8) can.Frame {
	frame := can.Frame{ID: SDOClientID(node), Len: 8}
	frame.Data[0] = expeditedCommandByte(csUploadInitiate, false, 0, false, false)
	binary.LittleEndian.PutUint16(frame.Data[1:3], index)
	frame.Data[3] = subindex
	return frame
}

// EncodeUploadSegmentRequest builds a client upload-segment request frame
// with the given toggle bit.
func EncodeUploadSegmentRequest(node NodeID, toggle bool) can.Frame {
	frame := can.Frame{ID: SDOClientID(node), Len: 8}
	frame.Data[0] = segmentCommandByte(csUploadSegment, toggle, 0, false)
	return frame
}

// EncodeAbort builds a client abort frame for (index, subindex) carrying
// code at bytes 4..7, little-endian.
func EncodeAbort(node NodeID, index uint16, subindex uint8, code AbortCode) can.Frame {
	frame := can.Frame{ID: SDOClientID(node), Len: 8}
	frame.Data[0] = expeditedCommandByte(csAbort, false, 0, false, false)
	binary.LittleEndian.PutUint16(frame.Data[1:3], index)
	frame.Data[3] = subindex
	binary.LittleEndian.PutUint32(frame.Data[4:8], uint32(code))
	return frame
}

// initiateResponse is the decoded view of a server initiate-phase frame
// (download-initiate-response, upload-initiate-response, or abort).
type initiateResponse struct {
	cs            uint8
	toggle        bool
	n             uint8
	expedited     bool
	sizeIndicated bool
	index         uint16
	subindex      uint8
	data          [4]byte
	abort         AbortCode
}

// decodeInitiateResponse reads a server frame as an initiate-phase reply.
func decodeInitiateResponse(frame can.Frame) initiateResponse {
	var r initiateResponse
	r.cs, r.toggle, r.n, r.expedited, r.sizeIndicated = decodeExpeditedCommandByte(frame.Data[0])
	r.index = binary.LittleEndian.Uint16(frame.Data[1:3])
	r.subindex = frame.Data[3]
	copy(r.data[:], frame.Data[4:8])
	r.abort = AbortCode(binary.LittleEndian.Uint32(frame.Data[4:8]))
	return r
}

// segmentResponse is the decoded view of a server upload-segment-response
// frame.
type segmentResponse struct {
	cs       uint8
	toggle   bool
	n        uint8
	terminal bool
	data     [7]byte
}

func decodeSegmentResponse(frame can.Frame) segmentResponse {
	var r segmentResponse
	r.cs, r.toggle, r.n, r.terminal = decodeSegmentCommandByte(frame.Data[0])
	copy(r.data[:], frame.Data[1:8])
	return r
}

// matchesAddress reports whether a decoded initiate response targets the
// same object address as the in-flight transaction.
func (r initiateResponse) matchesAddress(index uint16, subindex uint8) bool {
	return r.index == index && r.subindex == subindex
}
