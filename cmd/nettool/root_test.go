package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/nettool/internal/config"
	"github.com/KilimcininKorOglu/nettool/internal/output"
	"github.com/KilimcininKorOglu/nettool/internal/ping"
	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("APPDATA", dir)
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := BuildCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// parseOptions parses args the way the root command does before running.
func parseOptions(t *testing.T, args ...string) *options {
	t.Helper()
	o := &options{}
	cmd := NewCmdRoot(o)
	require.NoError(t, cmd.ParseFlags(args))
	o.cfg = config.DefaultConfig()
	applyConfigDefaults(cmd, o)
	return o
}

func TestBuildTraceConfig(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, tc *trace.Config)
		wantErr error
	}{
		{
			name: "Defaults",
			check: func(t *testing.T, tc *trace.Config) {
				assert.Equal(t, trace.ProbeICMP, tc.ProbeMethod)
				assert.Equal(t, trace.DefaultMaxHops, tc.MaxHops)
				assert.Equal(t, trace.DefaultTimeout, tc.Timeout)
				assert.Equal(t, trace.DefaultPort, tc.DestPort)
				assert.Equal(t, trace.DefaultListenWindow, tc.ListenWindow)
				assert.Equal(t, trace.DefaultPayloadSize, tc.PayloadSize)
			},
		},
		{
			name: "TCP with overrides",
			args: []string{"-T", "-m", "12", "-w", "1s", "-p", "443", "--window", "50ms"},
			check: func(t *testing.T, tc *trace.Config) {
				assert.Equal(t, trace.ProbeTCP, tc.ProbeMethod)
				assert.Equal(t, 12, tc.MaxHops)
				assert.Equal(t, time.Second, tc.Timeout)
				assert.Equal(t, 443, tc.DestPort)
				assert.Equal(t, 50*time.Millisecond, tc.ListenWindow)
			},
		},
		{
			name: "Explicit ICMP wins over TCP",
			args: []string{"-T", "-I"},
			check: func(t *testing.T, tc *trace.Config) {
				assert.Equal(t, trace.ProbeICMP, tc.ProbeMethod)
			},
		},
		{
			name: "Zero payload kept",
			args: []string{"-s", "0"},
			check: func(t *testing.T, tc *trace.Config) {
				assert.Equal(t, 0, tc.PayloadSize)
			},
		},
		{name: "Zero hops", args: []string{"-m", "0"}, wantErr: trace.ErrInvalidMaxHops},
		{name: "Too many hops", args: []string{"-m", "300"}, wantErr: trace.ErrInvalidMaxHops},
		{name: "Zero timeout", args: []string{"-w", "0s"}, wantErr: trace.ErrInvalidTimeout},
		{name: "Negative timeout", args: []string{"--timeout=-1s"}, wantErr: trace.ErrInvalidTimeout},
		{name: "Bad port", args: []string{"-T", "-p", "70000"}, wantErr: trace.ErrInvalidPort},
		{name: "Zero port", args: []string{"-T", "-p", "0"}, wantErr: trace.ErrInvalidPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := buildTraceConfig(parseOptions(t, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, tc)
		})
	}
}

func TestRootCmd_ZeroLimitsRejected(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "", "-m", "0", "127.0.0.1")
	assert.ErrorIs(t, err, trace.ErrInvalidMaxHops)

	_, err = execute(t, "", "-w", "0s", "127.0.0.1")
	assert.ErrorIs(t, err, trace.ErrInvalidTimeout)
}

func TestApplyConfigDefaults(t *testing.T) {
	o := &options{}
	cmd := NewCmdRoot(o)
	require.NoError(t, cmd.ParseFlags([]string{"-m", "5", "--no-color=false"}))

	o.cfg = config.DefaultConfig()
	o.cfg.Defaults.MaxHops = 12
	o.cfg.Defaults.ProbeMethod = "tcp"
	o.cfg.Defaults.Port = 8443
	o.cfg.Defaults.NoColor = true
	o.cfg.Defaults.RDNS = false
	o.cfg.Defaults.JSON = true
	o.cfg.Defaults.LogLevel = "debug"

	applyConfigDefaults(cmd, o)

	assert.Equal(t, 5, o.maxHops, "flag should win over config")
	assert.False(t, o.noColor, "explicit flag should win over config")
	assert.True(t, o.useTCP)
	assert.Equal(t, 8443, o.destPort)
	assert.True(t, o.noRDNS)
	assert.True(t, o.jsonOutput)
	assert.Equal(t, "debug", o.logLevel)
	assert.Equal(t, 2*time.Second, o.timeout)
	assert.Equal(t, 100*time.Millisecond, o.listenWindow)
}

func TestApplyConfigDefaults_ExplicitICMP(t *testing.T) {
	o := &options{}
	cmd := NewCmdRoot(o)
	require.NoError(t, cmd.ParseFlags([]string{"-I"}))

	o.cfg = config.DefaultConfig()
	o.cfg.Defaults.ProbeMethod = "tcp"
	applyConfigDefaults(cmd, o)

	assert.False(t, o.useTCP)
}

func TestOutputFormat(t *testing.T) {
	assert.Equal(t, output.FormatText, outputFormat(&options{}))
	assert.Equal(t, output.FormatVerbose, outputFormat(&options{verbose: true}))
	assert.Equal(t, output.FormatCSV, outputFormat(&options{csvOutput: true, verbose: true}))
	assert.Equal(t, output.FormatJSON, outputFormat(&options{jsonOutput: true, csvOutput: true}))
}

func TestPromptForTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Aliases["dns"] = "8.8.8.8"

	var out bytes.Buffer
	target, err := promptForTarget(strings.NewReader("\n  example.com  \n"), &out, cfg)
	require.NoError(t, err)
	assert.Equal(t, "example.com", target)
	assert.Contains(t, out.String(), "Target cannot be empty")
	assert.Contains(t, out.String(), "dns → 8.8.8.8")

	target, err = promptForTarget(strings.NewReader("1.1.1.1"), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.1.1.1", target)

	_, err = promptForTarget(strings.NewReader("quit\n"), &out, nil)
	assert.ErrorIs(t, err, errNoTarget)

	_, err = promptForTarget(strings.NewReader(""), &out, nil)
	assert.ErrorIs(t, err, errNoTarget)
}

type fakeSender struct {
	replies []ping.Reply
	opts    []ping.Options
}

func (f *fakeSender) Send(_ context.Context, _ net.IP, opts ping.Options) (ping.Reply, error) {
	f.opts = append(f.opts, opts)
	if len(f.replies) == 0 {
		return ping.Reply{}, errors.New("no more replies")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func TestRunPing(t *testing.T) {
	addr := net.IPv4(192, 0, 2, 1).To4()
	sender := &fakeSender{replies: []ping.Reply{
		{Status: ping.Success, Addr: addr, RTT: 1500 * time.Microsecond},
		{Status: ping.TimedOut},
		{Status: ping.TimeExceeded, Addr: net.IPv4(10, 0, 0, 1)},
		{Status: ping.Success, Addr: addr, RTT: 2 * time.Millisecond},
	}}

	var out bytes.Buffer
	opts := ping.DefaultOptions()
	opts.TTL = 9
	err := runPing(context.Background(), &out, sender, "host.test", addr, opts, 4, 0)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "PING host.test (192.0.2.1) 32 bytes of data")
	assert.Contains(t, text, "Reply from 192.0.2.1: bytes=32 time=1.500 ms")
	assert.Contains(t, text, "Request timed out")
	assert.Contains(t, text, "From 10.0.0.1: TTL expired in transit")
	assert.Contains(t, text, "4 packets transmitted, 2 received, 50% packet loss")
	require.Len(t, sender.opts, 4)
	assert.Equal(t, 9, sender.opts[0].TTL)
}

func TestRunPing_NoReplies(t *testing.T) {
	sender := &fakeSender{replies: []ping.Reply{{Status: ping.TimedOut}}}

	var out bytes.Buffer
	err := runPing(context.Background(), &out, sender, "host.test", net.IPv4(192, 0, 2, 1), ping.Options{}, 1, 0)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "100% packet loss")
}

func TestRunPing_SendError(t *testing.T) {
	var out bytes.Buffer
	err := runPing(context.Background(), &out, &fakeSender{}, "host.test", net.IPv4(192, 0, 2, 1), ping.Options{}, 2, 0)
	assert.EqualError(t, err, "no more replies")
}

func TestRunTcping(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port

	var out bytes.Buffer
	require.NoError(t, runTcping(context.Background(), &out, "127.0.0.1", port, 2, 0, time.Second))
	assert.Equal(t, 2, strings.Count(out.String(), "Connected to 127.0.0.1:"+strconv.Itoa(port)))
	assert.Contains(t, out.String(), "2 attempts, 2 connected, 0% failed")
}

func TestRunTcping_Refused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	var out bytes.Buffer
	err = runTcping(context.Background(), &out, "127.0.0.1", port, 1, 0, time.Second)
	assert.Error(t, err)
	assert.Contains(t, out.String(), "failed")
}

func TestTcpingCmd_InvalidPort(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "", "tcping", "127.0.0.1", "http")
	assert.ErrorContains(t, err, "invalid port")
}

func TestPingCmd_InvalidOptions(t *testing.T) {
	isolateConfig(t)

	_, err := execute(t, "", "ping", "--ttl", "0", "127.0.0.1")
	assert.ErrorIs(t, err, ping.ErrInvalidTTL)

	_, err = execute(t, "", "ping", "--size=-1", "127.0.0.1")
	assert.ErrorIs(t, err, ping.ErrInvalidPayload)
}

func TestPingCmd_RejectsIPv6(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "", "ping", "-c", "1", "2001:db8::1")
	assert.ErrorIs(t, err, ping.ErrNotIPv4)
}

func TestResolveIPv4(t *testing.T) {
	ip, err := resolveIPv4(context.Background(), "192.0.2.7")
	require.NoError(t, err)
	assert.Equal(t, net.IPv4(192, 0, 2, 7).To4(), ip)

	_, err = resolveIPv4(context.Background(), "::1")
	assert.ErrorIs(t, err, ping.ErrNotIPv4)
}

func TestConfigCmd(t *testing.T) {
	dir := isolateConfig(t)
	path := filepath.Join(dir, "nettool", "config.yaml")

	out, err := execute(t, "", "config", "--path")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	out, err = execute(t, "", "config", "--init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created config file: "+path)
	assert.FileExists(t, path)

	_, err = execute(t, "", "config", "--init")
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, "", "config", "--show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_hops: 30")

	out, err = execute(t, "", "config", "--example")
	require.NoError(t, err)
	assert.Contains(t, out, "NETTOOL_DEFAULTS_MAX_HOPS")
}

func TestConfigCmd_EnvironmentOverride(t *testing.T) {
	isolateConfig(t)
	t.Setenv("NETTOOL_DEFAULTS_MAX_HOPS", "17")

	out, err := execute(t, "", "config", "--show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_hops: 17")
}

func TestVersionCmd(t *testing.T) {
	isolateConfig(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "nettool dev")
}

func TestRootCmd_InvalidOptions(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "", "-m", "300", "127.0.0.1")
	assert.ErrorIs(t, err, trace.ErrInvalidMaxHops)
}

func TestRootCmd_NoTarget(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "", "--no-rdns")
	assert.ErrorIs(t, err, errNoTarget)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	isolateConfig(t)
	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "127.0.0.1")
	assert.ErrorContains(t, err, "failed to load config")
}
