package ping

import "errors"

// Ping-related errors.
var (
	// ErrPermissionDenied indicates neither a raw nor a datagram ICMP socket could be opened
	ErrPermissionDenied = errors.New("permission denied: ICMP socket requires elevated privileges")

	// ErrNotIPv4 indicates an IPv6 or malformed address
	ErrNotIPv4 = errors.New("address must be IPv4")

	// ErrInvalidTTL indicates the TTL value is out of range
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrInvalidPayload indicates a negative or oversized payload
	ErrInvalidPayload = errors.New("payload size must be between 0 and 65500 bytes")

	// ErrClosed indicates the pinger has been closed
	ErrClosed = errors.New("pinger closed")
)
