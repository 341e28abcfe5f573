package enrich

import (
	"context"
	"net"
	"time"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

// Enricher attaches reverse DNS names to trace results.
type Enricher struct {
	config EnricherConfig
	rdns   *RDNSResolver
}

// EnricherConfig holds configuration for the enricher.
type EnricherConfig struct {
	EnableRDNS bool

	// RDNSTimeout bounds each lookup (default: 2s)
	RDNSTimeout time.Duration

	// DNSServer overrides the system resolver (host:port)
	DNSServer string
}

// DefaultEnricherConfig returns default enricher configuration.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{
		EnableRDNS:  true,
		RDNSTimeout: 2 * time.Second,
	}
}

// NewEnricher creates a new enricher with the given configuration.
func NewEnricher(config EnricherConfig) *Enricher {
	e := &Enricher{
		config: config,
	}

	if config.EnableRDNS {
		rc := DefaultRDNSConfig()
		if config.RDNSTimeout > 0 {
			rc.Timeout = config.RDNSTimeout
		}
		rc.Server = config.DNSServer
		e.rdns = NewRDNSResolver(rc)
	}

	return e
}

// Enrich resolves the names of all responding hops into result.Hostnames.
func (e *Enricher) Enrich(ctx context.Context, result *trace.Result) {
	if result == nil || result.Route == nil || e.rdns == nil {
		return
	}

	names := e.rdns.LookupBatch(ctx, result.Addrs())
	if result.Hostnames == nil {
		result.Hostnames = make(map[string]string, len(names))
	}
	for addr, name := range names {
		if name != "" {
			result.Hostnames[addr] = name
		}
	}
}

// Hostname resolves a single address, returning "" when disabled or unknown.
// Results are cached, so a later Enrich does not repeat the query.
func (e *Enricher) Hostname(ctx context.Context, ip net.IP) string {
	if e.rdns == nil || ip == nil {
		return ""
	}
	name, err := e.rdns.Lookup(ctx, ip)
	if err != nil {
		return ""
	}
	return name
}

// Close releases resources held by the enricher.
func (e *Enricher) Close() error {
	if e.rdns != nil {
		e.rdns.Close()
	}
	return nil
}
