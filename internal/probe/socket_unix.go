//go:build linux || darwin || freebsd || netbsd || openbsd

package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setIPv4TTL sets the TTL for an IPv4 socket on Unix systems.
func setIPv4TTL(fd uintptr, ttl int) error {
	return unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TTL, ttl) // #nosec G115
}

// dialTTL opens a TCP connection from localPort to addr whose SYN carries the given TTL.
func dialTTL(ctx context.Context, addr *net.TCPAddr, localPort, ttl int, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{
		LocalAddr: &net.TCPAddr{Port: localPort},
		Timeout:   timeout,
		ControlContext: func(_ context.Context, _, _ string, c syscall.RawConn) error {
			var opErr error
			if err := c.Control(func(fd uintptr) {
				opErr = setIPv4TTL(fd, ttl)
			}); err != nil {
				return err
			}
			return opErr
		},
	}

	return dialer.DialContext(ctx, "tcp4", addr.String())
}

// isAddrInUse reports whether the chosen local port was taken.
func isAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}

// isRefused reports whether the target answered the SYN with a reset.
func isRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

// isHostUnreachable reports whether the kernel surfaced an ICMP error for the SYN.
func isHostUnreachable(err error) bool {
	return errors.Is(err, unix.EHOSTUNREACH) || errors.Is(err, unix.ENETUNREACH)
}

// newRawListener opens a raw ICMPv4 socket that yields full datagrams.
func newRawListener() (listener, error) {
	pc, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, ErrPermissionDenied
		}
		return nil, err
	}

	conn, ok := pc.(*net.IPConn)
	if !ok {
		_ = pc.Close()
		return nil, fmt.Errorf("unexpected connection type %T", pc)
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &rawListener{conn: conn, raw: raw}, nil
}

// rawListener reads ICMP datagrams together with their IPv4 header.
// net.IPConn strips the header on some platforms, so reads go through recvfrom.
type rawListener struct {
	conn *net.IPConn
	raw  syscall.RawConn
}

// ReadDatagram blocks until a datagram arrives or the deadline passes.
func (l *rawListener) ReadDatagram(deadline time.Time) ([]byte, error) {
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	buf := make([]byte, mtuSize)
	var (
		n       int
		recvErr error
	)
	err := l.raw.Read(func(fd uintptr) bool {
		n, _, recvErr = unix.Recvfrom(int(fd), buf, unix.MSG_DONTWAIT)
		return recvErr != unix.EAGAIN && recvErr != unix.EWOULDBLOCK
	})
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrSocketClosed
		}
		return nil, err
	}
	if recvErr != nil {
		return nil, recvErr
	}
	return buf[:n], nil
}

// Close closes the raw socket.
func (l *rawListener) Close() error {
	return l.conn.Close()
}
