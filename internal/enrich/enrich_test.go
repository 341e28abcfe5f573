package enrich

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

func newTestResolver(lookup lookupFunc) *RDNSResolver {
	r := NewRDNSResolver(DefaultRDNSConfig())
	r.lookup = lookup
	return r
}

func TestRDNSResolver_Lookup(t *testing.T) {
	var calls atomic.Int32
	r := newTestResolver(func(_ context.Context, addr string) ([]string, error) {
		calls.Add(1)
		switch addr {
		case "10.0.0.1":
			return []string{"gw.example.net.", "alias.example.net."}, nil
		default:
			return nil, errors.New("nxdomain")
		}
	})
	defer r.Close()

	ctx := context.Background()

	name, err := r.Lookup(ctx, net.ParseIP("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, "gw.example.net", name)

	// Served from cache
	name, err = r.Lookup(ctx, net.ParseIP("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, "gw.example.net", name)
	assert.Equal(t, int32(1), calls.Load())

	// Failures are empty and cached as well
	name, err = r.Lookup(ctx, net.ParseIP("10.9.9.9"))
	require.NoError(t, err)
	assert.Equal(t, "", name)
	_, _ = r.Lookup(ctx, net.ParseIP("10.9.9.9"))
	assert.Equal(t, int32(2), calls.Load())

	name, err = r.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "", name)
}

func TestRDNSResolver_LookupBatch(t *testing.T) {
	r := newTestResolver(func(_ context.Context, addr string) ([]string, error) {
		return []string{"host-" + addr + "."}, nil
	})
	defer r.Close()

	got := r.LookupBatch(context.Background(), []net.IP{
		net.ParseIP("10.0.0.1"),
		nil,
		net.ParseIP("10.0.0.2"),
	})

	assert.Equal(t, map[string]string{
		"10.0.0.1": "host-10.0.0.1",
		"10.0.0.2": "host-10.0.0.2",
	}, got)
}

func TestRDNSResolver_Timeout(t *testing.T) {
	r := newTestResolver(func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r.timeout = 20 * time.Millisecond

	start := time.Now()
	name, err := r.Lookup(context.Background(), net.ParseIP("10.0.0.3"))
	require.NoError(t, err)
	assert.Equal(t, "", name)
	assert.Less(t, time.Since(start), time.Second)
}

// startDNSServer serves PTR answers for 1.0.0.10.in-addr.arpa on a loopback port.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			q := req.Question[0]
			if q.Qtype == dns.TypePTR && q.Name == "1.0.0.10.in-addr.arpa." {
				resp.Answer = append(resp.Answer, &dns.PTR{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
					Ptr: "gw.example.net.",
				})
			} else {
				resp.Rcode = dns.RcodeNameError
			}
			_ = w.WriteMsg(resp)
		}),
	}

	go func() { _ = server.ActivateAndServe() }()
	t.Cleanup(func() { _ = server.Shutdown() })
	<-started

	return pc.LocalAddr().String()
}

func TestPTRClient(t *testing.T) {
	addr := startDNSServer(t)
	c := newPTRClient(addr, time.Second)

	names, err := c.lookup(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"gw.example.net."}, names)

	_, err = c.lookup(context.Background(), "10.0.0.2")
	assert.Error(t, err)

	_, err = c.lookup(context.Background(), "not-an-ip")
	assert.Error(t, err)
}

func TestEnricher_Enrich(t *testing.T) {
	addr := startDNSServer(t)

	e := NewEnricher(EnricherConfig{
		EnableRDNS:  true,
		RDNSTimeout: time.Second,
		DNSServer:   addr,
	})
	defer e.Close()

	dest := net.IPv4(10, 0, 0, 2).To4()
	route, err := trace.NewRoute(dest, []trace.Hop{
		trace.NewHop(1, net.IPv4(10, 0, 0, 1).To4(), time.Millisecond),
		trace.UnreachableHop(2),
		trace.NewHop(3, dest, 2*time.Millisecond),
	})
	require.NoError(t, err)

	result := &trace.Result{Route: route}
	e.Enrich(context.Background(), result)

	assert.Equal(t, map[string]string{"10.0.0.1": "gw.example.net"}, result.Hostnames)
	assert.Equal(t, "gw.example.net", result.Hostname(route.Hops[0]))
}

func TestEnricher_Hostname(t *testing.T) {
	addr := startDNSServer(t)

	e := NewEnricher(EnricherConfig{
		EnableRDNS:  true,
		RDNSTimeout: time.Second,
		DNSServer:   addr,
	})
	defer e.Close()

	assert.Equal(t, "gw.example.net", e.Hostname(context.Background(), net.IPv4(10, 0, 0, 1)))
	assert.Empty(t, e.Hostname(context.Background(), nil))

	disabled := NewEnricher(EnricherConfig{})
	assert.Empty(t, disabled.Hostname(context.Background(), net.IPv4(10, 0, 0, 1)))
}

func TestEnricher_Disabled(t *testing.T) {
	e := NewEnricher(EnricherConfig{EnableRDNS: false})
	defer e.Close()

	route, err := trace.NewRoute(net.IPv4(10, 0, 0, 2), []trace.Hop{trace.UnreachableHop(1)})
	require.NoError(t, err)

	result := &trace.Result{Route: route}
	e.Enrich(context.Background(), result)
	assert.Nil(t, result.Hostnames)

	e.Enrich(context.Background(), nil)
}

func TestDefaultEnricherConfig(t *testing.T) {
	config := DefaultEnricherConfig()
	assert.True(t, config.EnableRDNS)
	assert.Equal(t, 2*time.Second, config.RDNSTimeout)
	assert.Empty(t, config.DNSServer)
}
