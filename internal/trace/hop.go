// Package trace provides traceroute functionality.
package trace

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// UnreachableRTT is the round-trip time recorded for hops and routes that
// did not produce a measurement.
const UnreachableRTT time.Duration = -1

// Hop represents a single router discovered at a given TTL.
// A Hop without an address is unreachable and always carries UnreachableRTT.
type Hop struct {
	// TTL is the hop-limit value the probe was sent with
	TTL int

	// Addr is the address of the responding router, nil when nothing answered
	Addr net.IP

	// RTT is the measured round-trip time, UnreachableRTT when Addr is nil
	RTT time.Duration
}

// NewHop creates a hop for a router that answered at the given TTL.
// A nil address yields an unreachable hop.
func NewHop(ttl int, addr net.IP, rtt time.Duration) Hop {
	if addr == nil {
		return UnreachableHop(ttl)
	}
	if rtt < 0 {
		rtt = 0
	}
	return Hop{TTL: ttl, Addr: addr, RTT: rtt}
}

// UnreachableHop creates a hop for a TTL that got no response.
func UnreachableHop(ttl int) Hop {
	return Hop{TTL: ttl, RTT: UnreachableRTT}
}

// Unreachable reports whether no router answered at this hop.
func (h Hop) Unreachable() bool {
	return h.Addr == nil
}

// RTTMillis returns the round-trip time in milliseconds, or -1 if unreachable.
func (h Hop) RTTMillis() int64 {
	if h.Unreachable() {
		return -1
	}
	return h.RTT.Milliseconds()
}

// IsDestination checks if this hop is the final destination.
func (h Hop) IsDestination(dest net.IP) bool {
	if h.Addr == nil {
		return false
	}
	return h.Addr.Equal(dest)
}

// Route is the ordered result of a TTL sweep towards a target.
type Route struct {
	// Target is the destination address being traced
	Target net.IP

	// Hops holds one entry per probed TTL, index 0 is the first TTL
	Hops []Hop

	reached  bool
	totalRTT time.Duration
}

// NewRoute builds a Route and derives its reachability from the last hop.
// The hops are copied, so later changes to the caller's slice do not leak in.
func NewRoute(target net.IP, hops []Hop) (*Route, error) {
	if len(hops) == 0 {
		return nil, ErrEmptyRoute
	}
	hops = append([]Hop(nil), hops...)

	r := &Route{
		Target:   target,
		Hops:     hops,
		totalRTT: UnreachableRTT,
	}

	last := hops[len(hops)-1]
	if last.IsDestination(target) {
		r.reached = true
		r.totalRTT = last.RTT
	}

	return r, nil
}

// IsReached reports whether the last hop is the target itself.
func (r *Route) IsReached() bool {
	return r.reached
}

// TotalRoundTripTime returns the RTT to the target, or UnreachableRTT.
func (r *Route) TotalRoundTripTime() time.Duration {
	return r.totalRTT
}

// TotalRoundTripMillis returns the RTT to the target in milliseconds, or -1.
func (r *Route) TotalRoundTripMillis() int64 {
	if !r.reached {
		return -1
	}
	return r.totalRTT.Milliseconds()
}

// LastHop returns the final hop of the route.
func (r *Route) LastHop() Hop {
	return r.Hops[len(r.Hops)-1]
}

// Len returns the number of hops.
func (r *Route) Len() int {
	return len(r.Hops)
}

// Responding returns the number of hops that answered.
func (r *Route) Responding() int {
	n := 0
	for _, h := range r.Hops {
		if !h.Unreachable() {
			n++
		}
	}
	return n
}

// Result contains a Route together with metadata about the run that produced it.
type Result struct {
	*Route

	// ID identifies this run in logs and reports
	ID uuid.UUID

	// Host is the original target (hostname or IP)
	Host string

	// Method is the probe method used (icmp, tcp)
	Method string

	// Port is the destination port for connection probes
	Port int

	// Timestamp is when the trace was started
	Timestamp time.Time

	// Hostnames maps hop addresses to reverse DNS names, if resolved
	Hostnames map[string]string
}

// Hostname returns the resolved name for a hop, or an empty string.
func (r *Result) Hostname(h Hop) string {
	if h.Addr == nil || r.Hostnames == nil {
		return ""
	}
	return r.Hostnames[h.Addr.String()]
}

// Addrs returns the distinct addresses of responding hops.
func (r *Result) Addrs() []net.IP {
	seen := make(map[string]bool)
	var out []net.IP
	for _, h := range r.Hops {
		if h.Addr == nil || seen[h.Addr.String()] {
			continue
		}
		seen[h.Addr.String()] = true
		out = append(out, h.Addr)
	}
	return out
}
