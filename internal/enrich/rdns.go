// Package enrich resolves hop addresses to hostnames.
package enrich

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// lookupFunc returns the PTR names for an address.
type lookupFunc func(ctx context.Context, addr string) ([]string, error)

// RDNSResolver performs reverse DNS lookups.
type RDNSResolver struct {
	timeout time.Duration
	cache   *cache.Cache
	lookup  lookupFunc
}

// RDNSConfig holds configuration for the rDNS resolver.
type RDNSConfig struct {
	Timeout  time.Duration
	CacheTTL time.Duration

	// Server is a nameserver as host:port. Empty uses the system resolver.
	Server string
}

// DefaultRDNSConfig returns default rDNS configuration.
func DefaultRDNSConfig() RDNSConfig {
	return RDNSConfig{
		Timeout:  2 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// NewRDNSResolver creates a new reverse DNS resolver.
func NewRDNSResolver(config RDNSConfig) *RDNSResolver {
	if config.Timeout == 0 {
		config.Timeout = 2 * time.Second
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}

	lookup := lookupFunc(net.DefaultResolver.LookupAddr)
	if config.Server != "" {
		lookup = newPTRClient(config.Server, config.Timeout).lookup
	}

	return &RDNSResolver{
		timeout: config.Timeout,
		cache:   cache.New(config.CacheTTL, 2*config.CacheTTL),
		lookup:  lookup,
	}
}

// Lookup performs a reverse DNS lookup for the given IP address.
// Failures yield an empty name, not an error.
func (r *RDNSResolver) Lookup(ctx context.Context, ip net.IP) (string, error) {
	if ip == nil {
		return "", nil
	}

	ipStr := ip.String()
	if cached, ok := r.cache.Get(ipStr); ok {
		return cached.(string), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := r.lookup(lookupCtx, ipStr)
	if err != nil {
		// Negative results are cached too so a silent resolver is asked once
		r.cache.SetDefault(ipStr, "")
		return "", nil
	}

	hostname := ""
	if len(names) > 0 {
		hostname = strings.TrimSuffix(names[0], ".")
	}

	r.cache.SetDefault(ipStr, hostname)
	return hostname, nil
}

// LookupBatch performs reverse DNS lookups for multiple IPs concurrently.
func (r *RDNSResolver) LookupBatch(ctx context.Context, ips []net.IP) map[string]string {
	results := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Limit concurrency
	sem := make(chan struct{}, 10)

	for _, ip := range ips {
		if ip == nil {
			continue
		}

		wg.Add(1)
		go func(ip net.IP) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			hostname, _ := r.Lookup(ctx, ip)

			mu.Lock()
			results[ip.String()] = hostname
			mu.Unlock()
		}(ip)
	}

	wg.Wait()
	return results
}

// Close drops cached entries.
func (r *RDNSResolver) Close() {
	r.cache.Flush()
}
