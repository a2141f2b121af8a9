package canopen

import "errors"

// Sentinel error kinds the dispatch layer maps to process exit codes. Each
// reported failure wraps one of these via fmt.Errorf("%w: ...", ErrX, ...)
// so callers can classify with errors.Is without string matching.
var (
	// ErrUsage marks bad CLI arguments: unparsable numbers, out-of-range
	// node-id/index/subindex, an unknown NMT command or SDO type name.
	ErrUsage = errors.New("usage error")

	// ErrPermission marks a failed administrative capability check.
	ErrPermission = errors.New("permission denied")

	// ErrTransportOpen marks a failure opening the CAN transport: socket
	// creation, interface lookup, or bind.
	ErrTransportOpen = errors.New("transport open failed")

	// ErrTransportRead marks an I/O error reading from the transport.
	ErrTransportRead = errors.New("transport read failed")

	// ErrTransportWrite marks an I/O error writing to the transport.
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportClose marks a failure releasing the transport.
	ErrTransportClose = errors.New("transport close failed")

	// ErrProtocolTimeout marks an SDO wait that elapsed with no matching
	// server frame arriving.
	ErrProtocolTimeout = errors.New("SDO timeout")

	// ErrProtocolAborted marks a server-initiated SDO abort. The concrete
	// AbortCode is attached by the caller via SDOResult, not this value.
	ErrProtocolAborted = errors.New("SDO transfer aborted")

	// ErrProtocolViolation marks a well-formed but wrong-phase server
	// response (e.g. a download-segment-response while expecting an
	// initiate-response).
	ErrProtocolViolation = errors.New("SDO protocol violation")

	// ErrConfigParse marks a failure parsing an optional configuration
	// file. Always ignorable: callers fall back to "all nodes present".
	ErrConfigParse = errors.New("config parse failed")

	// ErrFatal marks an unrecoverable condition. No code path in this
	// module returns it: the dashboard treats a quit signal as an orderly
	// exit (nil error) and handles a terminal resize by redrawing.
	ErrFatal = errors.New("fatal")
)
