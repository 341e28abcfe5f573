// Package ping implements single ICMP echo requests and TCP connect timing.
package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Default echo parameters.
const (
	DefaultTimeout     = 2 * time.Second
	DefaultTTL         = 64
	DefaultPayloadSize = 32
)

// Status classifies the reply to one echo request.
type Status int

const (
	// Success means the addressed host sent an echo reply
	Success Status = iota
	// TimeExceeded means a router discarded the request when its TTL ran out
	TimeExceeded
	// TimedOut means no matching reply arrived in time
	TimedOut
	// Other covers any other matching ICMP answer, such as destination unreachable
	Other
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case TimeExceeded:
		return "time-exceeded"
	case TimedOut:
		return "timed-out"
	default:
		return "other"
	}
}

// Options control a single echo request.
// TTL and PayloadSize are used as given; start from DefaultOptions.
type Options struct {
	Timeout     time.Duration // Reply timeout (default: 2s when zero)
	TTL         int           // IP TTL, 1..255
	PayloadSize int           // Payload bytes, 0..65500
}

// DefaultOptions returns the options used by the ping command.
func DefaultOptions() Options {
	return Options{
		Timeout:     DefaultTimeout,
		TTL:         DefaultTTL,
		PayloadSize: DefaultPayloadSize,
	}
}

// Validate checks the TTL and payload size.
func (o Options) Validate() error {
	if o.TTL < 1 || o.TTL > 255 {
		return ErrInvalidTTL
	}
	if o.PayloadSize < 0 || o.PayloadSize > maxPayload {
		return ErrInvalidPayload
	}
	return nil
}

// Reply describes the answer to one echo request.
type Reply struct {
	Status Status

	// Addr is the address that answered, nil for TimedOut
	Addr net.IP

	// RTT is the measured round-trip time, zero for TimedOut
	RTT time.Duration
}

// packetConn is the part of an ICMP socket a Pinger uses.
type packetConn interface {
	SetTTL(ttl int) error
	SetReadDeadline(t time.Time) error
	WriteTo(b []byte, dst net.Addr) (int, error)
	ReadFrom(b []byte) (int, net.Addr, error)
	Close() error
}

// icmpConn adapts an icmp.PacketConn to packetConn.
type icmpConn struct {
	*icmp.PacketConn
}

func (c icmpConn) SetTTL(ttl int) error {
	return c.IPv4PacketConn().SetTTL(ttl)
}

// Pinger sends ICMP echo requests over one shared socket.
// Sends are serialized so each reply can be matched by sequence number.
type Pinger struct {
	mu         sync.Mutex
	conn       packetConn
	privileged bool
	id         uint16
	seq        uint16
	log        *logrus.Entry
}

// NewPinger opens a raw ICMP socket, falling back to an unprivileged
// datagram socket where the platform allows it.
func NewPinger(log *logrus.Entry) (*Pinger, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	privileged := true
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		log.WithError(err).Debug("Raw ICMP socket unavailable, trying datagram socket")
		privileged = false
		conn, err = icmp.ListenPacket("udp4", "0.0.0.0")
	}
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, ErrPermissionDenied
		}
		return nil, fmt.Errorf("failed to open ICMP socket: %w", err)
	}

	return newPinger(icmpConn{conn}, privileged, uint16(os.Getpid()&0xffff), log), nil // #nosec G115
}

func newPinger(conn packetConn, privileged bool, id uint16, log *logrus.Entry) *Pinger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pinger{
		conn:       conn,
		privileged: privileged,
		id:         id,
		log:        log.WithField("component", "pinger"),
	}
}

// Privileged reports whether the pinger uses a raw socket.
// Datagram sockets do not deliver time exceeded messages on every platform.
func (p *Pinger) Privileged() bool {
	return p.privileged
}

// Send transmits one echo request to addr and waits for the matching reply.
// A missing reply is reported as TimedOut, not as an error.
func (p *Pinger) Send(ctx context.Context, addr net.IP, opts Options) (Reply, error) {
	addr4 := addr.To4()
	if addr4 == nil {
		return Reply{}, ErrNotIPv4
	}
	if err := opts.Validate(); err != nil {
		return Reply{}, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return Reply{}, ErrClosed
	}
	if err := p.conn.SetTTL(opts.TTL); err != nil {
		return Reply{}, fmt.Errorf("failed to set TTL: %w", err)
	}

	p.seq++
	seq := p.seq
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(p.id),
			Seq:  int(seq),
			Data: payload(opts.PayloadSize),
		},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return Reply{}, err
	}

	deadline := time.Now().Add(opts.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetReadDeadline(deadline); err != nil {
		return Reply{}, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = p.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	var dst net.Addr = &net.IPAddr{IP: addr4}
	if !p.privileged {
		dst = &net.UDPAddr{IP: addr4}
	}

	start := time.Now()
	if _, err := p.conn.WriteTo(wb, dst); err != nil {
		return Reply{}, fmt.Errorf("failed to send echo request: %w", err)
	}

	buf := make([]byte, 1500)
	for {
		n, peer, err := p.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Reply{}, ctx.Err()
			}
			if isTimeout(err) {
				return Reply{Status: TimedOut}, nil
			}
			return Reply{}, err
		}

		rm, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil {
			continue
		}
		status, ok := classify(rm, p.id, seq, p.privileged)
		if !ok {
			continue
		}

		from := peerIP(peer)
		if status == Success && !from.Equal(addr4) {
			continue
		}

		rtt := time.Since(start)
		p.log.WithFields(logrus.Fields{
			"addr":   from,
			"ttl":    opts.TTL,
			"seq":    seq,
			"status": status,
			"rtt":    rtt,
		}).Debug("Echo reply received")
		return Reply{Status: status, Addr: from, RTT: rtt}, nil
	}
}

// Close releases the socket.
func (p *Pinger) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP.To4()
	case *net.UDPAddr:
		return a.IP.To4()
	default:
		return nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
