package probe

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// mtuSize bounds a single datagram read from the raw socket
	mtuSize = 1500

	basePort  = 30000
	portRange = 10000
)

// listener yields raw inbound IPv4 datagrams, header included.
type listener interface {
	ReadDatagram(deadline time.Time) ([]byte, error)
	Close() error
}

// randomPort returns a local source port for a connection probe.
func randomPort() int {
	return rand.Intn(portRange) + basePort // #nosec G404
}

// ConnectProberConfig holds configuration for the TCP connection prober.
type ConnectProberConfig struct {
	// Port is the destination port (default: 80)
	Port int

	// ListenWindow bounds how long each hop waits for an ICMP answer.
	// Zero means the probe timeout is used.
	ListenWindow time.Duration

	// Logger receives debug output (default: standard logrus logger)
	Logger *logrus.Entry
}

// ConnectProber implements the Prober interface with TCP connection attempts.
// Every probe opens its own raw ICMP listener, starts a connection with the
// requested TTL, and watches for the first of:
//   - an ICMP Time Exceeded quoting our segment (intermediate hop)
//   - the connection being accepted or refused (destination reached)
//   - the listen window expiring (timed out)
type ConnectProber struct {
	port        int
	window      time.Duration
	log         *logrus.Entry
	dial        func(ctx context.Context, addr *net.TCPAddr, localPort, ttl int, timeout time.Duration) (net.Conn, error)
	newListener func() (listener, error)
	nextPort    func() int
}

// NewConnectProber creates a new TCP connection prober.
func NewConnectProber(config ConnectProberConfig) *ConnectProber {
	if config.Port == 0 {
		config.Port = 80
	}
	if config.Logger == nil {
		config.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &ConnectProber{
		port:        config.Port,
		window:      config.ListenWindow,
		log:         config.Logger.WithField("probe", "tcp"),
		dial:        dialTTL,
		newListener: newRawListener,
		nextPort:    randomPort,
	}
}

type dialResult struct {
	conn net.Conn
	err  error
}

// Probe sends a TCP SYN with the given TTL and classifies what answers it.
func (p *ConnectProber) Probe(ctx context.Context, dest net.IP, ttl int, timeout time.Duration) (Outcome, error) {
	if !validTTL(ttl) {
		return Outcome{}, ErrInvalidTTL
	}
	dest4 := dest.To4()
	if dest4 == nil {
		return Outcome{}, ErrNotIPv4
	}

	l, err := p.newListener()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrListenerSetup, err)
	}

	window := p.window
	if window <= 0 || window > timeout {
		window = timeout
	}

	probeCtx, cancel := context.WithCancel(ctx)
	var (
		wg        sync.WaitGroup
		localPort atomic.Int32
		dialed    = make(chan dialResult, 1)
		icmpCh    = make(chan *Datagram, 1)
		start     = time.Now()
	)

	addr := &net.TCPAddr{IP: dest4, Port: p.port}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			port := p.nextPort()
			localPort.Store(int32(port)) // #nosec G115
			conn, err := p.dial(probeCtx, addr, port, ttl, timeout)
			if err != nil && isAddrInUse(err) && probeCtx.Err() == nil {
				p.log.WithField("local_port", port).Debug("Local port in use, picking another")
				continue
			}
			dialed <- dialResult{conn: conn, err: err}
			return
		}
	}()

	go func() {
		defer wg.Done()
		deadline := start.Add(window)
		for {
			data, err := l.ReadDatagram(deadline)
			if err != nil {
				return
			}
			d, err := ParseDatagram(data)
			if IsMalformed(err) {
				continue
			}
			if err != nil {
				return
			}
			if p.matches(d, dest4, uint16(localPort.Load())) { // #nosec G115
				icmpCh <- d
				return
			}
		}
	}()

	defer func() {
		cancel()
		_ = l.Close()
		wg.Wait()
		select {
		case r := <-dialed:
			if r.conn != nil {
				_ = r.conn.Close()
			}
		default:
		}
	}()

	timer := time.NewTimer(window)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()

		case d := <-icmpCh:
			rtt := time.Since(start)
			p.log.WithFields(logrus.Fields{
				"ttl":  ttl,
				"from": d.Source,
				"type": d.Type,
				"code": d.Code,
			}).Debug("ICMP message received")
			if d.Source.Equal(dest4) {
				return Reached(dest4, rtt), nil
			}
			return RouterReply(d.Source, rtt), nil

		case r := <-dialed:
			rtt := time.Since(start)
			dialed = nil
			switch {
			case r.err == nil:
				_ = r.conn.Close()
				p.log.WithField("ttl", ttl).Debug("TCP connection established")
				return Reached(dest4, rtt), nil
			case isRefused(r.err):
				p.log.WithField("ttl", ttl).Debug("TCP connection refused by target")
				return Reached(dest4, rtt), nil
			case isHostUnreachable(r.err), errors.Is(r.err, context.Canceled), isTimeout(r.err):
				// The listener decides the outcome
			default:
				p.log.WithError(r.err).WithField("ttl", ttl).Debug("TCP connection attempt failed")
			}

		case <-timer.C:
			p.log.WithField("ttl", ttl).Debug("No ICMP response within listen window")
			return Timeout(), nil
		}
	}
}

// matches reports whether d answers the segment we sent from localPort.
func (p *ConnectProber) matches(d *Datagram, dest net.IP, localPort uint16) bool {
	if !d.IsTimeExceeded() && !(d.IsUnreachable() && d.Source.Equal(dest)) {
		return false
	}
	q, ok := d.QuotedTCP()
	if !ok {
		return false
	}
	return q.Dest.Equal(dest) && int(q.DstPort) == p.port && q.SrcPort == localPort
}

// Name returns the probe method name.
func (p *ConnectProber) Name() string {
	return "tcp"
}

// RequiresRoot returns true as the ICMP listener needs a raw socket.
func (p *ConnectProber) RequiresRoot() bool {
	return true
}

// Close releases resources held by the prober.
// Listeners are per probe, so there is nothing to release.
func (p *ConnectProber) Close() error {
	return nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
