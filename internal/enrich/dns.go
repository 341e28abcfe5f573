package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/miekg/dns"
)

// ptrClient queries a specific nameserver for PTR records.
type ptrClient struct {
	client *dns.Client
	server string
}

func newPTRClient(server string, timeout time.Duration) *ptrClient {
	return &ptrClient{
		client: &dns.Client{Timeout: timeout},
		server: server,
	}
}

func (c *ptrClient) lookup(ctx context.Context, addr string) ([]string, error) {
	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, err
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	resp, _, err := c.client.ExchangeContext(ctx, msg, c.server)
	if err != nil {
		return nil, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("PTR lookup for %s: %s", addr, dns.RcodeToString[resp.Rcode])
	}

	var names []string
	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}
	return names, nil
}
