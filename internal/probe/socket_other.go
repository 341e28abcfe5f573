//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package probe

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"
)

func dialTTL(_ context.Context, _ *net.TCPAddr, _, _ int, _ time.Duration) (net.Conn, error) {
	return nil, ErrUnsupported
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func isHostUnreachable(err error) bool {
	return errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH)
}

func newRawListener() (listener, error) {
	return nil, ErrUnsupported
}
