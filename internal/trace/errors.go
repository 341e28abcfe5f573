package trace

import "errors"

// Trace-related errors.
var (
	// ErrInvalidMaxHops indicates max hops is out of valid range (1-255)
	ErrInvalidMaxHops = errors.New("max hops must be between 1 and 255")

	// ErrInvalidTimeout indicates a zero or negative timeout
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidPort indicates the destination port is out of range
	ErrInvalidPort = errors.New("port must be between 1 and 65535")

	// ErrInvalidListenWindow indicates a negative listen window
	ErrInvalidListenWindow = errors.New("listen window must not be negative")

	// ErrInvalidPayloadSize indicates a negative or oversized echo payload
	ErrInvalidPayloadSize = errors.New("payload size must be between 0 and 65500 bytes")

	// ErrUnknownMethod indicates an unsupported probe method
	ErrUnknownMethod = errors.New("unknown probe method")

	// ErrInvalidTarget indicates a missing or non-IPv4 target address
	ErrInvalidTarget = errors.New("target must be an IPv4 address")

	// ErrTargetResolution indicates the target could not be resolved
	ErrTargetResolution = errors.New("could not resolve target hostname")

	// ErrEmptyRoute indicates a route was built without any hop
	ErrEmptyRoute = errors.New("route must contain at least one hop")
)
