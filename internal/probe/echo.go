package probe

import (
	"context"
	"net"
	"time"

	"github.com/KilimcininKorOglu/nettool/internal/ping"
)

// EchoSender sends one echo request and reports the reply.
// *ping.Pinger satisfies it.
type EchoSender interface {
	Send(ctx context.Context, addr net.IP, opts ping.Options) (ping.Reply, error)
	Close() error
}

// EchoProber implements the Prober interface using ICMP Echo requests.
type EchoProber struct {
	sender      EchoSender
	payloadSize int
	privileged  bool
}

// EchoProberConfig holds configuration for the ICMP echo prober.
type EchoProberConfig struct {
	// PayloadSize is the echo payload in bytes, sent as given
	PayloadSize int
}

// NewEchoProber creates an echo prober backed by a new ping.Pinger.
func NewEchoProber(config EchoProberConfig, pinger *ping.Pinger) *EchoProber {
	p := NewEchoProberWithSender(config, pinger)
	p.privileged = pinger.Privileged()
	return p
}

// NewEchoProberWithSender creates an echo prober over any EchoSender.
func NewEchoProberWithSender(config EchoProberConfig, sender EchoSender) *EchoProber {
	return &EchoProber{
		sender:      sender,
		payloadSize: config.PayloadSize,
		privileged:  true,
	}
}

// Probe sends an ICMP Echo Request with the given TTL and maps the reply status.
func (p *EchoProber) Probe(ctx context.Context, dest net.IP, ttl int, timeout time.Duration) (Outcome, error) {
	if !validTTL(ttl) {
		return Outcome{}, ErrInvalidTTL
	}
	if dest.To4() == nil {
		return Outcome{}, ErrNotIPv4
	}

	reply, err := p.sender.Send(ctx, dest, ping.Options{
		Timeout:     timeout,
		TTL:         ttl,
		PayloadSize: p.payloadSize,
	})
	if err != nil {
		return Outcome{}, err
	}

	switch reply.Status {
	case ping.TimeExceeded:
		return RouterReply(reply.Addr, reply.RTT), nil
	case ping.Success:
		return Reached(reply.Addr, reply.RTT), nil
	default:
		return Timeout(), nil
	}
}

// Name returns the probe method name.
func (p *EchoProber) Name() string {
	return "icmp"
}

// RequiresRoot reports whether the underlying socket is raw.
func (p *EchoProber) RequiresRoot() bool {
	return p.privileged
}

// Close releases the underlying sender.
func (p *EchoProber) Close() error {
	return p.sender.Close()
}
