package probe

import "errors"

// Probe-related errors.
var (
	// ErrPermissionDenied indicates insufficient privileges for raw sockets
	ErrPermissionDenied = errors.New("permission denied: raw socket requires elevated privileges")

	// ErrUnsupported indicates the probe method is not available on this platform
	ErrUnsupported = errors.New("probe method not supported on this platform")

	// ErrListenerSetup indicates the per-hop ICMP listener could not be opened
	ErrListenerSetup = errors.New("failed to open ICMP listener")

	// ErrInvalidPacket indicates a malformed or truncated datagram
	ErrInvalidPacket = errors.New("invalid packet received")

	// ErrNotICMP indicates a well-formed datagram that does not carry ICMP
	ErrNotICMP = errors.New("datagram is not ICMP")

	// ErrSocketClosed indicates the socket has been closed
	ErrSocketClosed = errors.New("socket closed")

	// ErrInvalidTTL indicates the TTL value is out of range
	ErrInvalidTTL = errors.New("TTL must be between 1 and 255")

	// ErrNotIPv4 indicates an IPv6 or malformed destination
	ErrNotIPv4 = errors.New("destination must be an IPv4 address")
)

// IsPermissionError returns true if the error is a permission error.
func IsPermissionError(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsSetupError returns true if the error means the prober cannot run at all,
// as opposed to a single probe going unanswered.
func IsSetupError(err error) bool {
	return errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrUnsupported) ||
		errors.Is(err, ErrListenerSetup)
}

// IsMalformed returns true if the error marks a datagram that should be discarded.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrInvalidPacket) || errors.Is(err, ErrNotICMP)
}
