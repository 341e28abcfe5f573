// Package probe provides the probing strategies used by the tracer.
package probe

import (
	"context"
	"net"
	"time"
)

// Prober defines the interface for different probe methods.
// Implementations include ICMP echo and TCP connection probes.
type Prober interface {
	// Probe sends one probe towards dest with the given TTL and reports what came back.
	// A missing response is reported as a TimedOut outcome, not as an error.
	// Errors are reserved for failures that prevent probing at all,
	// such as missing privileges for a raw socket.
	Probe(ctx context.Context, dest net.IP, ttl int, timeout time.Duration) (Outcome, error)

	// Name returns the probe method name (e.g., "icmp", "tcp").
	Name() string

	// RequiresRoot returns true if this probe method requires root/admin privileges.
	RequiresRoot() bool

	// Close releases any resources held by the prober.
	Close() error
}

// OutcomeKind classifies the result of a single probe.
type OutcomeKind int

const (
	// TimedOut means nothing answered within the probe's timeout
	TimedOut OutcomeKind = iota
	// Responded means an intermediate router reported the TTL as expired
	Responded
	// DestinationReached means the target itself answered
	DestinationReached
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case TimedOut:
		return "timed-out"
	case Responded:
		return "responded"
	case DestinationReached:
		return "destination-reached"
	default:
		return "unknown"
	}
}

// Outcome contains the result of a single probe.
type Outcome struct {
	Kind OutcomeKind

	// From is the address that answered (router for Responded, target for DestinationReached)
	From net.IP

	// RTT is the round-trip time, zero for TimedOut
	RTT time.Duration
}

// Timeout returns a TimedOut outcome.
func Timeout() Outcome {
	return Outcome{Kind: TimedOut}
}

// RouterReply returns a Responded outcome.
func RouterReply(from net.IP, rtt time.Duration) Outcome {
	return Outcome{Kind: Responded, From: from, RTT: rtt}
}

// Reached returns a DestinationReached outcome.
func Reached(from net.IP, rtt time.Duration) Outcome {
	return Outcome{Kind: DestinationReached, From: from, RTT: rtt}
}

func validTTL(ttl int) bool {
	return ttl >= 1 && ttl <= 255
}
