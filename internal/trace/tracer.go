package trace

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/KilimcininKorOglu/nettool/internal/logger"
	"github.com/KilimcininKorOglu/nettool/internal/ping"
	"github.com/KilimcininKorOglu/nettool/internal/probe"
)

const instrumentationName = "github.com/KilimcininKorOglu/nettool/internal/trace"

// Tracer performs network path tracing operations.
type Tracer struct {
	config   *Config
	prober   probe.Prober
	log      *logrus.Entry
	otel     oteltrace.Tracer
	lookupIP func(ctx context.Context, network, host string) ([]net.IP, error)
}

// New creates a new Tracer with the given configuration.
func New(config *Config) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	// Create the appropriate prober based on configuration
	var prober probe.Prober
	switch config.ProbeMethod {
	case ProbeICMP:
		pinger, err := ping.NewPinger(log)
		if err != nil {
			return nil, fmt.Errorf("failed to create prober: %w", err)
		}
		if !pinger.Privileged() {
			log.Warn("Raw ICMP socket unavailable, intermediate hops may not be reported")
		}
		prober = probe.NewEchoProber(probe.EchoProberConfig{
			PayloadSize: config.PayloadSize,
		}, pinger)
	case ProbeTCP:
		prober = probe.NewConnectProber(probe.ConnectProberConfig{
			Port:         config.DestPort,
			ListenWindow: config.ListenWindow,
			Logger:       log,
		})
	default:
		return nil, ErrUnknownMethod
	}

	return NewWithProber(config, prober)
}

// NewWithProber creates a Tracer that uses the given prober.
func NewWithProber(config *Config, prober probe.Prober) (*Tracer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Tracer{
		config:   config,
		prober:   prober,
		log:      log,
		otel:     otel.Tracer(instrumentationName),
		lookupIP: net.DefaultResolver.LookupIP,
	}, nil
}

// Run resolves host, traces the path to it and wraps the route with run metadata.
func (t *Tracer) Run(ctx context.Context, host string) (*Result, error) {
	id := uuid.New()
	ctx = logger.IntoContext(ctx, t.log.WithField("trace_id", id.String()))
	started := time.Now()

	dest, err := t.resolveTarget(ctx, host)
	if err != nil {
		return nil, err
	}
	if t.config.OnStart != nil {
		t.config.OnStart(host, dest)
	}

	route, err := t.Trace(ctx, dest)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Route:     route,
		ID:        id,
		Host:      host,
		Method:    t.prober.Name(),
		Timestamp: started,
	}
	if t.config.ProbeMethod == ProbeTCP {
		result.Port = t.config.DestPort
	}
	return result, nil
}

// Trace probes dest with TTL 1..MaxHops, one TTL at a time, and returns the route.
// The sweep stops early only when the target itself answers. Hops that time out
// or fail transiently are recorded as unreachable and do not stop the sweep.
// Missing privileges or an unsupported platform abort the trace.
func (t *Tracer) Trace(ctx context.Context, dest net.IP) (*Route, error) {
	dest4 := dest.To4()
	if dest4 == nil {
		return nil, ErrInvalidTarget
	}

	method := t.prober.Name()
	target := dest4.String()
	log := logger.FromContextOr(ctx, t.log).WithFields(logrus.Fields{
		"target": target,
		"method": method,
	})

	ctx, span := t.otel.Start(ctx, "trace", oteltrace.WithAttributes(
		attribute.String("trace.target", target),
		attribute.String("trace.method", method),
		attribute.Int("trace.max_hops", t.config.MaxHops),
		attribute.Stringer("trace.timeout", t.config.Timeout),
	))
	defer span.End()

	log.Info("Starting trace")
	hops := make([]Hop, 0, t.config.MaxHops)

	for ttl := 1; ttl <= t.config.MaxHops; ttl++ {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "trace cancelled")
			return nil, err
		}

		out, err := t.prober.Probe(ctx, dest4, ttl, t.config.Timeout)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			span.RecordError(ctx.Err())
			span.SetStatus(codes.Error, "trace cancelled")
			return nil, ctx.Err()
		case probe.IsSetupError(err):
			err = fmt.Errorf("probe failed at ttl %d: %w", ttl, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "probe failed")
			return nil, err
		default:
			log.WithError(err).WithField("ttl", ttl).Warn("Probe failed, recording hop as unreachable")
			out = probe.Timeout()
		}

		hop, done := hopFromOutcome(ttl, dest4, out)
		hops = append(hops, hop)
		t.recordHop(ctx, log, target, method, hop)

		if done {
			break
		}
	}

	route, err := NewRoute(dest4, hops)
	if err != nil {
		return nil, err
	}

	if t.config.Metrics != nil {
		t.config.Metrics.ObserveRoute(target, method, route)
	}
	span.SetAttributes(
		attribute.Bool("trace.reached", route.IsReached()),
		attribute.Int("trace.hops", route.Len()),
	)
	log.WithFields(logrus.Fields{
		"hops":    route.Len(),
		"reached": route.IsReached(),
		"rtt":     route.TotalRoundTripTime(),
	}).Info("Trace finished")

	return route, nil
}

// hopFromOutcome converts a probe outcome to a hop and reports whether the
// sweep should stop. A router reply from the target counts as reaching it.
func hopFromOutcome(ttl int, dest net.IP, out probe.Outcome) (Hop, bool) {
	switch out.Kind {
	case probe.DestinationReached:
		return NewHop(ttl, dest, out.RTT), true
	case probe.Responded:
		if out.From.Equal(dest) {
			return NewHop(ttl, dest, out.RTT), true
		}
		return NewHop(ttl, out.From, out.RTT), false
	default:
		return UnreachableHop(ttl), false
	}
}

func (t *Tracer) recordHop(ctx context.Context, log *logrus.Entry, target, method string, hop Hop) {
	addr := "*"
	if !hop.Unreachable() {
		addr = hop.Addr.String()
	}

	log.WithFields(logrus.Fields{
		"ttl":  hop.TTL,
		"addr": addr,
		"rtt":  hop.RTT,
	}).Debug("Hop recorded")

	oteltrace.SpanFromContext(ctx).AddEvent("hop", oteltrace.WithAttributes(
		attribute.Int("trace.hop.ttl", hop.TTL),
		attribute.String("trace.hop.addr", addr),
		attribute.Int64("trace.hop.rtt_ms", hop.RTTMillis()),
	))

	if t.config.Metrics != nil {
		t.config.Metrics.ObserveHop(target, method, hop)
	}
	if t.config.OnHop != nil {
		t.config.OnHop(hop)
	}
}

// Close releases resources held by the tracer.
func (t *Tracer) Close() error {
	if t.prober != nil {
		return t.prober.Close()
	}
	return nil
}

// Prober returns the prober used by the tracer.
func (t *Tracer) Prober() probe.Prober {
	return t.prober
}

// resolveTarget resolves a hostname or IPv4 string to an IPv4 address.
func (t *Tracer) resolveTarget(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return nil, fmt.Errorf("%w: %s is an IPv6 address", ErrInvalidTarget, host)
		}
		return ip.To4(), nil
	}

	ips, err := t.lookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTargetResolution, host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%w: no IPv4 address found for %s", ErrTargetResolution, host)
}
