package canopen

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// DefaultSDOTimeout is the budget given to each SDO transaction's wait for
// a matching server response.
const DefaultSDOTimeout = 200 * time.Millisecond

// SDOResultKind is the tag of the closed sum an SDO transaction resolves
// to: exactly one of these, never represented by a side effect.
type SDOResultKind uint8

const (
	SDODone SDOResultKind = iota
	SDOAborted
	SDOTimeout
	SDOProtocolViolation
)

// SDOResult is the outcome of an SDO download or upload.
type SDOResult struct {
	Kind  SDOResultKind
	Data  []byte    // populated only for an upload that reached SDODone
	Abort AbortCode // populated only for SDOAborted
}

// SDOClient drives one SDO transaction at a time against a single node
// over bus. A transaction is parameterized by (node, index, subindex) from
// initiate until it terminates in success, abort, or timeout.
type SDOClient struct {
	Bus     can.Bus
	Node    NodeID
	Timeout time.Duration
}

// NewSDOClient builds a client with the default transaction timeout.
func NewSDOClient(bus can.Bus, node NodeID) *SDOClient {
	return &SDOClient{Bus: bus, Node: node, Timeout: DefaultSDOTimeout}
}

func (c *SDOClient) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultSDOTimeout
	}
	return c.Timeout
}

// awaitServerFrame reads frames from the bus until one arrives on the
// client's server identifier with DLC 8, or the transaction's timeout
// budget is exhausted. The budget is not reset by discarded frames: a
// burst of unrelated traffic eats into the same window.
func (c *SDOClient) awaitServerFrame() (can.Frame, bool) {
	deadline := time.Now().Add(c.timeout())
	serverID := SDOServerID(c.Node)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return can.Frame{}, false
		}
		var frame can.Frame
		status, _, err := c.Bus.Read(&frame, remaining)
		if err != nil {
			log.Debugf("sdo: read error while awaiting server frame: %v", err)
			return can.Frame{}, false
		}
		if status == can.TimedOut {
			return can.Frame{}, false
		}
		if frame.ID != serverID || frame.Len != 8 {
			log.Debugf("sdo: discarding non-matching frame %s", frame)
			continue
		}
		return frame, true
	}
}

// abortTimeout sends the client abort frame this tool always emits when a
// transaction's wait budget is exhausted.
func (c *SDOClient) abortTimeout(index uint16, subindex uint8) {
	frame := EncodeAbort(c.Node, index, subindex, AbortTimeout)
	if err := c.Bus.Write(frame); err != nil {
		log.Warnf("sdo: failed to send timeout abort: %v", err)
	}
}

// abortGeneral sends a general-error client abort, used when the server
// responds in the wrong phase.
func (c *SDOClient) abortGeneral(index uint16, subindex uint8) {
	frame := EncodeAbort(c.Node, index, subindex, AbortGeneral)
	if err := c.Bus.Write(frame); err != nil {
		log.Warnf("sdo: failed to send protocol-violation abort: %v", err)
	}
}

// Download performs an expedited SDO write of data to (index, subindex),
// typed by scalar. Segmented download is a non-goal: data must fit in the
// 4 expedited bytes implied by scalar.
func (c *SDOClient) Download(index uint16, subindex uint8, data []byte, scalar ScalarType) SDOResult {
	frame := EncodeDownloadInitiate(c.Node, index, subindex, data, scalar)
	log.Debugf("sdo: download initiate node=%d index=0x%04X sub=0x%02X frame=%s", c.Node, index, subindex, frame)
	if err := c.Bus.Write(frame); err != nil {
		log.Warnf("sdo: download initiate write failed: %v", err)
		return SDOResult{Kind: SDOTimeout}
	}

	reply, ok := c.awaitServerFrame()
	if !ok {
		c.abortTimeout(index, subindex)
		return SDOResult{Kind: SDOTimeout}
	}

	resp := decodeInitiateResponse(reply)
	switch {
	case resp.cs == csDownloadInitiateResponse && resp.matchesAddress(index, subindex):
		return SDOResult{Kind: SDODone}
	case resp.cs == csServerAbort && resp.matchesAddress(index, subindex):
		return SDOResult{Kind: SDOAborted, Abort: resp.abort}
	case resp.cs == csDownloadSegmentResponse:
		c.abortGeneral(index, subindex)
		return SDOResult{Kind: SDOProtocolViolation}
	default:
		// Address mismatch on an otherwise well-formed frame: treat as
		// noise from another in-flight transaction and time out rather
		// than guess at an unrelated reply.
		c.abortTimeout(index, subindex)
		return SDOResult{Kind: SDOTimeout}
	}
}

// Upload performs an SDO read of (index, subindex), following expedited
// replies directly to completion and segmented replies through the
// segment-request loop.
func (c *SDOClient) Upload(index uint16, subindex uint8) SDOResult {
	frame := EncodeUploadInitiate(c.Node, index, subindex)
	log.Debugf("sdo: upload initiate node=%d index=0x%04X sub=0x%02X frame=%s", c.Node, index, subindex, frame)
	if err := c.Bus.Write(frame); err != nil {
		log.Warnf("sdo: upload initiate write failed: %v", err)
		return SDOResult{Kind: SDOTimeout}
	}

	reply, ok := c.awaitServerFrame()
	if !ok {
		c.abortTimeout(index, subindex)
		return SDOResult{Kind: SDOTimeout}
	}

	resp := decodeInitiateResponse(reply)
	switch {
	case resp.cs == csServerAbort && resp.matchesAddress(index, subindex):
		return SDOResult{Kind: SDOAborted, Abort: resp.abort}
	case resp.cs != csUploadInitiateResponse || !resp.matchesAddress(index, subindex):
		c.abortTimeout(index, subindex)
		return SDOResult{Kind: SDOTimeout}
	}

	if resp.expedited {
		n := int(resp.n)
		if !resp.sizeIndicated {
			n = 0
		}
		size := 4 - n
		out := make([]byte, size)
		copy(out, resp.data[:size])
		return SDOResult{Kind: SDODone, Data: out}
	}

	// Segmented upload: the initiate response carried either the total
	// byte count (sizeIndicated) or nothing at all; either way the data
	// itself arrives across upload-segment-response frames.
	return c.uploadSegments(index, subindex)
}

func (c *SDOClient) uploadSegments(index uint16, subindex uint8) SDOResult {
	toggle := false
	var collected []byte

	for {
		frame := EncodeUploadSegmentRequest(c.Node, toggle)
		if err := c.Bus.Write(frame); err != nil {
			log.Warnf("sdo: upload segment request write failed: %v", err)
			return SDOResult{Kind: SDOTimeout}
		}

		reply, ok := c.awaitServerFrame()
		if !ok {
			c.abortTimeout(index, subindex)
			return SDOResult{Kind: SDOTimeout}
		}

		// An abort can arrive in place of a segment response; it reuses
		// the initiate-frame layout (index/subindex at bytes 1..3).
		if reply.Data[0] == expeditedCommandByte(csServerAbort, false, 0, false, false) {
			resp := decodeInitiateResponse(reply)
			if resp.matchesAddress(index, subindex) {
				return SDOResult{Kind: SDOAborted, Abort: resp.abort}
			}
			c.abortTimeout(index, subindex)
			return SDOResult{Kind: SDOTimeout}
		}

		seg := decodeSegmentResponse(reply)
		if seg.cs != csUploadSegmentResponse {
			c.abortGeneral(index, subindex)
			return SDOResult{Kind: SDOProtocolViolation}
		}
		if seg.toggle != toggle {
			frame := EncodeAbort(c.Node, index, subindex, AbortToggleBit)
			if err := c.Bus.Write(frame); err != nil {
				log.Warnf("sdo: failed to send toggle-bit abort: %v", err)
			}
			return SDOResult{Kind: SDOAborted, Abort: AbortToggleBit}
		}

		length := 7 - int(seg.n)
		if length < 0 || length > 7 {
			c.abortGeneral(index, subindex)
			return SDOResult{Kind: SDOProtocolViolation}
		}
		collected = append(collected, seg.data[:length]...)

		if seg.terminal {
			return SDOResult{Kind: SDODone, Data: collected}
		}
		toggle = !seg.toggle
	}
}
