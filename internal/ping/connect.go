package ping

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Connect measures how long a TCP handshake with host:port takes.
// The connection is closed immediately after it is established.
func Connect(ctx context.Context, host string, port int, timeout time.Duration) (time.Duration, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := net.Dialer{Timeout: timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return 0, err
	}
	rtt := time.Since(start)
	_ = conn.Close()

	return rtt, nil
}

// ConnectMillis is Connect reporting milliseconds, or -1 on any failure.
func ConnectMillis(ctx context.Context, host string, port int, timeout time.Duration) int64 {
	rtt, err := Connect(ctx, host, port, timeout)
	if err != nil {
		return -1
	}
	return rtt.Milliseconds()
}
