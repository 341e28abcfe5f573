package trace

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// ProbeMethod represents the type of probe to use.
type ProbeMethod int

const (
	// ProbeICMP uses ICMP Echo Request packets
	ProbeICMP ProbeMethod = iota
	// ProbeTCP uses TCP connection attempts
	ProbeTCP
)

// String returns the string representation of the probe method.
func (p ProbeMethod) String() string {
	switch p {
	case ProbeICMP:
		return "icmp"
	case ProbeTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// ParseProbeMethod converts a method name to a ProbeMethod.
func ParseProbeMethod(s string) (ProbeMethod, error) {
	switch s {
	case "", "icmp":
		return ProbeICMP, nil
	case "tcp":
		return ProbeTCP, nil
	default:
		return ProbeICMP, ErrUnknownMethod
	}
}

// Default trace parameters.
const (
	DefaultMaxHops      = 30
	DefaultTimeout      = 2 * time.Second
	DefaultPort         = 80
	DefaultListenWindow = 100 * time.Millisecond
	DefaultPayloadSize  = 32

	// MaxTTL is the largest hop limit an IPv4 header can carry
	MaxTTL = 255

	// MaxPayloadSize is the largest echo payload accepted
	MaxPayloadSize = 65500
)

// Config holds the configuration for a trace operation.
type Config struct {
	// Probe settings
	ProbeMethod ProbeMethod   // Probe method to use (default: ICMP)
	MaxHops     int           // Maximum TTL/hops (default: 30)
	Timeout     time.Duration // Per-probe timeout (default: 2s)

	// Connection probe settings
	DestPort     int           // Destination port (default: 80)
	ListenWindow time.Duration // Raw listener window per hop (default: 100ms)

	// Echo probe settings
	PayloadSize int // Echo payload size in bytes (default: 32, zero allowed)

	// Logger receives per-hop debug output (default: standard logrus logger)
	Logger *logrus.Entry

	// Metrics, if set, is updated for every hop and route
	Metrics *Metrics

	// OnStart is called by Run once the target is resolved, before any probe
	OnStart func(host string, dest net.IP)

	// Callback for real-time hop updates (streaming output)
	OnHop func(hop Hop)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ProbeMethod:  ProbeICMP,
		MaxHops:      DefaultMaxHops,
		Timeout:      DefaultTimeout,
		DestPort:     DefaultPort,
		ListenWindow: DefaultListenWindow,
		PayloadSize:  DefaultPayloadSize,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MaxHops < 1 || c.MaxHops > MaxTTL {
		return ErrInvalidMaxHops
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.ListenWindow < 0 {
		return ErrInvalidListenWindow
	}
	if c.PayloadSize < 0 || c.PayloadSize > MaxPayloadSize {
		return ErrInvalidPayloadSize
	}
	switch c.ProbeMethod {
	case ProbeICMP:
	case ProbeTCP:
		if c.DestPort < 1 || c.DestPort > 65535 {
			return ErrInvalidPort
		}
	default:
		return ErrUnknownMethod
	}
	return nil
}
