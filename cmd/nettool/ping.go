package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/nettool/internal/ping"
)

// NewCmdPing creates the ping command.
func NewCmdPing(o *options) *cobra.Command {
	var (
		count    int
		interval time.Duration
		opts     ping.Options
	)

	cmd := &cobra.Command{
		Use:   "ping <host>",
		Short: "Send ICMP echo requests to a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			log := newLogger(o, cmd.ErrOrStderr())

			host := o.cfg.ResolveAlias(args[0])
			addr, err := resolveIPv4(cmd.Context(), host)
			if err != nil {
				return err
			}

			pinger, err := ping.NewPinger(log)
			if err != nil {
				return err
			}
			defer pinger.Close()

			return runPing(cmd.Context(), cmd.OutOrStdout(), pinger, host, addr, opts, count, interval)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&count, "count", "c", 4, "Number of echo requests to send")
	f.DurationVarP(&interval, "interval", "i", time.Second, "Wait between requests")
	f.DurationVarP(&opts.Timeout, "timeout", "w", ping.DefaultTimeout, "Reply timeout")
	f.IntVarP(&opts.PayloadSize, "size", "s", ping.DefaultPayloadSize, "Payload size in bytes")
	f.IntVar(&opts.TTL, "ttl", ping.DefaultTTL, "IP time to live")

	return cmd
}

// echoSender is the part of ping.Pinger used by runPing.
type echoSender interface {
	Send(ctx context.Context, addr net.IP, opts ping.Options) (ping.Reply, error)
}

func runPing(ctx context.Context, w io.Writer, pinger echoSender, host string, addr net.IP, opts ping.Options, count int, interval time.Duration) error {
	size := opts.PayloadSize
	fmt.Fprintf(w, "PING %s (%s) %d bytes of data\n", host, addr, size)

	sent, received := 0, 0
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		reply, err := pinger.Send(ctx, addr, opts)
		if err != nil {
			return err
		}
		sent++

		switch reply.Status {
		case ping.Success:
			received++
			fmt.Fprintf(w, "Reply from %s: bytes=%d time=%.3f ms\n",
				reply.Addr, size, float64(reply.RTT.Microseconds())/1000)
		case ping.TimeExceeded:
			fmt.Fprintf(w, "From %s: TTL expired in transit\n", reply.Addr)
		case ping.TimedOut:
			fmt.Fprintln(w, "Request timed out")
		default:
			fmt.Fprintf(w, "From %s: %s\n", reply.Addr, reply.Status)
		}
	}

	fmt.Fprintf(w, "\n--- %s ping statistics ---\n", host)
	fmt.Fprintf(w, "%d packets transmitted, %d received, %.0f%% packet loss\n",
		sent, received, lossPercent(sent, received))

	if received == 0 {
		return fmt.Errorf("no reply from %s", host)
	}
	return nil
}

// NewCmdTcping creates the tcping command.
func NewCmdTcping(o *options) *cobra.Command {
	var (
		count    int
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tcping <host> <port>",
		Short: "Time TCP handshakes with a host and port",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil || port < 1 || port > 65535 {
				return fmt.Errorf("invalid port: %s", args[1])
			}
			host := o.cfg.ResolveAlias(args[0])
			return runTcping(cmd.Context(), cmd.OutOrStdout(), host, port, count, interval, timeout)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&count, "count", "c", 4, "Number of connections to open")
	f.DurationVarP(&interval, "interval", "i", time.Second, "Wait between connections")
	f.DurationVarP(&timeout, "timeout", "w", ping.DefaultTimeout, "Connection timeout")

	return cmd
}

func runTcping(ctx context.Context, w io.Writer, host string, port, count int, interval, timeout time.Duration) error {
	target := net.JoinHostPort(host, strconv.Itoa(port))

	succeeded := 0
	for i := 0; i < count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}

		ms := ping.ConnectMillis(ctx, host, port, timeout)
		if ms < 0 {
			fmt.Fprintf(w, "Connection to %s failed\n", target)
			continue
		}
		succeeded++
		fmt.Fprintf(w, "Connected to %s: time=%d ms\n", target, ms)
	}

	fmt.Fprintf(w, "\n--- %s tcping statistics ---\n", target)
	fmt.Fprintf(w, "%d attempts, %d connected, %.0f%% failed\n",
		count, succeeded, lossPercent(count, succeeded))

	if succeeded == 0 {
		return fmt.Errorf("could not connect to %s", target)
	}
	return nil
}

func lossPercent(sent, received int) float64 {
	if sent == 0 {
		return 0
	}
	return float64(sent-received) / float64(sent) * 100
}

// resolveIPv4 returns host as an IPv4 address, resolving names if needed.
func resolveIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%s: %w", host, ping.ErrNotIPv4)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("no IPv4 address found for %s", host)
}
