//go:build linux

// Package socketcan implements pkg/can.Bus over Linux SocketCAN using raw
// AF_CAN sockets, in the style of the gocanopen socketcanv3 backend but
// built around a blocking, timeout-bounded Read instead of an async
// publish/subscribe callback — the SDO client and heartbeat monitor both
// need to bound how long they wait for the next frame.
package socketcan

import (
	"fmt"
	"net"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/canopenctl/canopenctl/pkg/can"
)

// frameSize is the size in bytes of the Linux "struct can_frame" layout:
// 4 bytes id, 1 byte dlc, 3 bytes padding, 8 bytes data.
const frameSize = 16

// Bus is a raw SocketCAN socket bound to one interface.
type Bus struct {
	fd int
}

// Open binds a raw CAN socket to the named interface. A purely numeric name
// is rewritten via can.ResolveInterfaceName before lookup.
func Open(name string) (*Bus, error) {
	name = can.ResolveInterfaceName(name)

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: interface lookup %q: %w", name, err)
	}

	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %q: %w", name, err)
	}

	return &Bus{fd: fd}, nil
}

// Write transmits one frame.
func (b *Bus) Write(frame can.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	var raw [frameSize]byte
	*(*uint32)(unsafe.Pointer(&raw[0])) = uint32(frame.ID)
	raw[4] = frame.Len
	copy(raw[8:], frame.Data[:])

	n, err := unix.Write(b.fd, raw[:])
	if err != nil {
		return fmt.Errorf("socketcan: write: %w", err)
	}
	if n != frameSize {
		return fmt.Errorf("socketcan: short write (%d of %d bytes)", n, frameSize)
	}
	return nil
}

// Read waits up to timeout for the next frame. A timeout of zero polls
// once without blocking; a negative timeout blocks forever. SO_RCVTIMEO
// with a zero timeval means "no timeout" to the kernel, not "poll once",
// so the zero case is handled with a non-blocking poll instead.
func (b *Bus) Read(out *can.Frame, timeout time.Duration) (can.ReadStatus, time.Time, error) {
	if timeout == 0 {
		ready, err := pollReadable(b.fd)
		if err != nil {
			return can.TimedOut, time.Time{}, fmt.Errorf("socketcan: poll: %w", err)
		}
		if !ready {
			return can.TimedOut, time.Time{}, nil
		}
	} else {
		tv := durationToTimeval(timeout)
		if err := unix.SetsockoptTimeval(b.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return can.TimedOut, time.Time{}, fmt.Errorf("socketcan: set read timeout: %w", err)
		}
	}

	var raw [frameSize]byte
	n, err := unix.Read(b.fd, raw[:])
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return can.TimedOut, time.Time{}, nil
		}
		return can.TimedOut, time.Time{}, fmt.Errorf("socketcan: read: %w", err)
	}
	if n != frameSize {
		return can.TimedOut, time.Time{}, fmt.Errorf("socketcan: short read (%d of %d bytes)", n, frameSize)
	}

	out.ID = uint16(*(*uint32)(unsafe.Pointer(&raw[0])) & uint32(can.MaxStdID))
	out.Len = raw[4]
	copy(out.Data[:], raw[8:])

	rxTime, err := kernelTimestamp(b.fd)
	if err != nil {
		rxTime = time.Now()
	}
	return can.Received, rxTime, nil
}

// Close releases the socket. Idempotent.
func (b *Bus) Close() error {
	if b.fd < 0 {
		return nil
	}
	fd := b.fd
	b.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("socketcan: close: %w", err)
	}
	return nil
}

// kernelTimestamp asks the kernel when it received the most recently read
// frame on fd, via SIOCGSTAMP — the same ioctl the original C tool uses
// rather than the application's wall clock at dequeue time.
func kernelTimestamp(fd int) (time.Time, error) {
	tv, err := unix.IoctlGetTimeval(fd, unix.SIOCGSTAMP)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(tv.Sec), int64(tv.Usec)*1000), nil
}

func durationToTimeval(d time.Duration) unix.Timeval {
	if d < 0 {
		return unix.Timeval{}
	}
	return unix.NsecToTimeval(d.Nanoseconds())
}

// pollReadable reports whether fd has a frame ready to read, without
// blocking.
func pollReadable(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if err == unix.EINTR {
			return false, nil
		}
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}
