package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KilimcininKorOglu/nettool/internal/config"
	"github.com/KilimcininKorOglu/nettool/internal/enrich"
	"github.com/KilimcininKorOglu/nettool/internal/logger"
	"github.com/KilimcininKorOglu/nettool/internal/output"
	"github.com/KilimcininKorOglu/nettool/internal/telemetry"
	"github.com/KilimcininKorOglu/nettool/internal/trace"
	"github.com/KilimcininKorOglu/nettool/internal/tui"
)

// rdnsTimeout bounds each reverse lookup of a hop address
const rdnsTimeout = 2 * time.Second

var errNoTarget = errors.New("no target provided")

// options holds every flag value of the root command and its subcommands.
type options struct {
	// Config file
	cfgFile string
	cfg     *config.Config

	// Probe method
	useICMP bool
	useTCP  bool

	// Trace parameters
	maxHops      int
	timeout      time.Duration
	destPort     int
	listenWindow time.Duration
	payloadSize  int

	// Output
	verbose    bool
	jsonOutput bool
	csvOutput  bool
	tuiMode    bool
	theme      string
	noColor    bool
	saveFile   string

	// Enrichment
	noRDNS    bool
	dnsServer string

	// Observability
	logLevel    string
	logJSON     bool
	metricsFile string
	otel        bool
}

// BuildCmd assembles the root command with all subcommands.
func BuildCmd() *cobra.Command {
	o := &options{}
	cmd := NewCmdRoot(o)
	cmd.AddCommand(NewCmdPing(o))
	cmd.AddCommand(NewCmdTcping(o))
	cmd.AddCommand(NewCmdConfig(o))
	cmd.AddCommand(NewCmdVersion())
	return cmd
}

// NewCmdRoot creates the trace command.
func NewCmdRoot(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nettool [flags] <target>",
		Short: "Network reachability and path discovery tool",
		Long: `nettool traces the route packets take to a destination host by sending
probes with an increasing TTL, showing each router along the path with
its round-trip time.

Probe methods:
  • ICMP echo (default): routers answer with time exceeded, the target with an echo reply
  • TCP connection: SYN segments to a port, for paths that filter echo traffic

Examples:
  nettool example.com               Trace using ICMP echo
  nettool -T -p 443 example.com     Trace with TCP connection probes to port 443
  nettool -v example.com            Verbose table output
  nettool --json example.com        JSON output
  nettool --tui example.com         Interactive TUI mode
  nettool ping -c 4 example.com     Send echo requests
  nettool tcping example.com 443    Time TCP handshakes
  nettool config --init             Create default config file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, o)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, o, args)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.cfgFile, "config", "", "Config file (default: ~/.config/nettool/config.yaml)")
	pf.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn)")
	pf.BoolVar(&o.logJSON, "log-json", false, "Write logs as JSON")

	f := cmd.Flags()
	f.BoolVarP(&o.useICMP, "icmp", "I", false, "Use ICMP echo probes (default)")
	f.BoolVarP(&o.useTCP, "tcp", "T", false, "Use TCP connection probes")

	f.IntVarP(&o.maxHops, "max-hops", "m", trace.DefaultMaxHops, "Maximum number of hops")
	f.DurationVarP(&o.timeout, "timeout", "w", trace.DefaultTimeout, "Per-hop timeout")
	f.IntVarP(&o.destPort, "port", "p", trace.DefaultPort, "Destination port for TCP probes")
	f.DurationVar(&o.listenWindow, "window", trace.DefaultListenWindow, "ICMP listen window per TCP probe")
	f.IntVarP(&o.payloadSize, "size", "s", trace.DefaultPayloadSize, "Echo payload size in bytes")

	f.BoolVarP(&o.verbose, "verbose", "v", false, "Show detailed table output")
	f.BoolVarP(&o.jsonOutput, "json", "j", false, "Output in JSON format")
	f.BoolVar(&o.csvOutput, "csv", false, "Output in CSV format")
	f.BoolVarP(&o.tuiMode, "tui", "t", false, "Interactive TUI mode")
	f.StringVar(&o.theme, "theme", "", "TUI theme: dark, light, minimal")
	f.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	f.StringVar(&o.saveFile, "save", "", "Also write the result to a file (.json, .csv or text)")

	f.BoolVar(&o.noRDNS, "no-rdns", false, "Disable reverse DNS lookups")
	f.StringVar(&o.dnsServer, "dns-server", "", "DNS server for reverse lookups (host:port)")

	f.StringVar(&o.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	f.BoolVar(&o.otel, "otel", false, "Print OpenTelemetry spans to stderr")

	return cmd
}

// loadConfig loads .env, the config file and environment overrides, then
// fills every flag the user did not set.
func loadConfig(cmd *cobra.Command, o *options) error {
	if err := config.LoadEnvFile(".env"); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, _, err := config.Load(o.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg

	applyConfigDefaults(cmd, o)
	return nil
}

// applyConfigDefaults applies config values for flags that were not set.
func applyConfigDefaults(cmd *cobra.Command, o *options) {
	if o.cfg == nil {
		return
	}
	d := o.cfg.Defaults
	changed := cmd.Flags().Changed

	if !changed("tui") && d.TUI {
		o.tuiMode = true
	}
	if !changed("theme") {
		o.theme = d.Theme
	}
	if !changed("verbose") && d.Verbose {
		o.verbose = true
	}
	if !changed("json") && d.JSON {
		o.jsonOutput = true
	}
	if !changed("csv") && d.CSV {
		o.csvOutput = true
	}
	if !changed("no-color") && d.NoColor {
		o.noColor = true
	}

	if !changed("icmp") && !changed("tcp") && strings.EqualFold(d.ProbeMethod, "tcp") {
		o.useTCP = true
	}

	if !changed("max-hops") {
		o.maxHops = d.MaxHops
	}
	if !changed("timeout") {
		o.timeout = d.Timeout
	}
	if !changed("port") {
		o.destPort = d.Port
	}
	if !changed("window") {
		o.listenWindow = d.ListenWindow
	}
	if !changed("size") {
		o.payloadSize = d.PayloadSize
	}

	if !changed("no-rdns") && !d.RDNS {
		o.noRDNS = true
	}
	if !changed("dns-server") {
		o.dnsServer = d.DNSServer
	}
	if !changed("log-level") {
		o.logLevel = d.LogLevel
	}
}

// buildTraceConfig converts flag values into a validated trace configuration.
func buildTraceConfig(o *options) (*trace.Config, error) {
	tc := trace.DefaultConfig()

	if o.useTCP && !o.useICMP {
		tc.ProbeMethod = trace.ProbeTCP
	}
	tc.MaxHops = o.maxHops
	tc.Timeout = o.timeout
	tc.DestPort = o.destPort
	tc.ListenWindow = o.listenWindow
	tc.PayloadSize = o.payloadSize

	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// outputFormat picks the output format from the flags.
func outputFormat(o *options) output.Format {
	switch {
	case o.jsonOutput:
		return output.FormatJSON
	case o.csvOutput:
		return output.FormatCSV
	case o.verbose:
		return output.FormatVerbose
	default:
		return output.FormatText
	}
}

// newLogger builds the logger for a command run.
func newLogger(o *options, out io.Writer) *logrus.Entry {
	return logrus.NewEntry(logger.New(logger.Options{
		Level:  o.logLevel,
		JSON:   o.logJSON,
		Output: out,
	}))
}

func runTrace(cmd *cobra.Command, o *options, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var target string
	if len(args) == 0 {
		var err error
		target, err = promptForTarget(cmd.InOrStdin(), cmd.OutOrStdout(), o.cfg)
		if err != nil {
			return err
		}
	} else {
		target = args[0]
	}
	target = o.cfg.ResolveAlias(target)

	logOut := cmd.ErrOrStderr()
	if o.tuiMode {
		logOut = io.Discard
	}
	log := newLogger(o, logOut)
	ctx = logger.IntoContext(ctx, log)

	if o.otel {
		shutdown, err := telemetry.InitTracing(ctx, cmd.ErrOrStderr(), version)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.WithError(err).Warn("Failed to flush spans")
			}
		}()
	}

	traceConfig, err := buildTraceConfig(o)
	if err != nil {
		return fmt.Errorf("invalid trace options: %w", err)
	}
	traceConfig.Logger = log

	var metrics *trace.Metrics
	if o.metricsFile != "" {
		metrics = trace.NewMetrics()
		traceConfig.Metrics = metrics
	}

	enricher := enrich.NewEnricher(enrich.EnricherConfig{
		EnableRDNS:  !o.noRDNS,
		RDNSTimeout: rdnsTimeout,
		DNSServer:   o.dnsServer,
	})
	defer enricher.Close()

	var result *trace.Result
	if o.tuiMode {
		result, err = runTUI(o, target, traceConfig, enricher)
	} else {
		result, err = runStreaming(ctx, cmd.OutOrStdout(), o, target, traceConfig, enricher)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if metrics != nil {
		if err := telemetry.WriteTextfile(o.metricsFile, metrics.GetCollectors()...); err != nil {
			return err
		}
		log.WithField("path", o.metricsFile).Debug("Metrics written")
	}

	if o.saveFile != "" {
		formatter := output.NewFormatter(output.FormatForPath(o.saveFile), output.Config{MaxHops: traceConfig.MaxHops})
		if err := output.WriteToFile(result, o.saveFile, formatter); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Result saved to: %s\n", o.saveFile)
	}

	return nil
}

// traceHost runs one trace and resolves hop names.
func traceHost(ctx context.Context, tc *trace.Config, host string, enricher *enrich.Enricher) (*trace.Result, error) {
	tracer, err := trace.New(tc)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	defer tracer.Close()

	result, err := tracer.Run(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("trace failed: %w", err)
	}

	enricher.Enrich(ctx, result)
	return result, nil
}

// runStreaming prints text hops as they arrive, or the whole result at the
// end for the other formats.
func runStreaming(ctx context.Context, w io.Writer, o *options, host string, tc *trace.Config, enricher *enrich.Enricher) (*trace.Result, error) {
	outCfg := output.Config{
		Colors:  !o.noColor,
		MaxHops: tc.MaxHops,
	}
	if !output.IsTerminal(w) {
		outCfg.Colors = false
	}
	format := outputFormat(o)
	writer := output.NewWriterWithFormatter(output.NewFormatter(format, outCfg), w)

	if format != output.FormatText {
		result, err := traceHost(ctx, tc, host, enricher)
		if err != nil {
			return nil, err
		}
		return result, writer.Write(result)
	}

	text := output.NewTextFormatter(outCfg)
	port := 0
	if tc.ProbeMethod == trace.ProbeTCP {
		port = tc.DestPort
	}
	tc.OnStart = func(host string, dest net.IP) {
		_ = writer.WriteString(text.Header(host, dest.String(), tc.ProbeMethod.String(), port))
	}
	tc.OnHop = func(hop trace.Hop) {
		_ = writer.WriteString(text.FormatHop(hop, enricher.Hostname(ctx, hop.Addr)))
	}

	result, err := traceHost(ctx, tc, host, enricher)
	if err != nil {
		return nil, err
	}
	return result, writer.WriteString("\n" + text.Summary(result))
}

// runTUI streams hops into the interactive view. A nil result means the
// user quit before the trace finished.
func runTUI(o *options, host string, tc *trace.Config, enricher *enrich.Enricher) (*trace.Result, error) {
	m, err := tui.Run(tui.Options{
		Target: host,
		Method: tc.ProbeMethod.String(),
		Theme:  o.theme,
		Trace: func(ctx context.Context, onHop func(trace.Hop)) (*trace.Result, error) {
			tc.OnHop = onHop
			return traceHost(ctx, tc, host, enricher)
		},
	})
	if err != nil {
		return nil, err
	}
	return m.Result(), nil
}

// promptForTarget asks for a target when none was given on the command line.
func promptForTarget(in io.Reader, out io.Writer, cfg *config.Config) (string, error) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintln(out)
	cyan.Fprintln(out, "  nettool - network path discovery")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "  Examples:")
	yellow.Fprintln(out, "    • example.com     - Trace to a hostname")
	yellow.Fprintln(out, "    • 1.1.1.1         - Trace to an IPv4 address")
	fmt.Fprintln(out)

	if cfg != nil && len(cfg.Aliases) > 0 {
		fmt.Fprintln(out, "  Aliases:")
		for alias, target := range cfg.Aliases {
			yellow.Fprintf(out, "    • %s → %s\n", alias, target)
		}
		fmt.Fprintln(out)
	}

	reader := bufio.NewReader(in)
	for {
		green.Fprint(out, "  Enter target (IP or hostname): ")

		input, err := reader.ReadString('\n')
		target := strings.TrimSpace(input)
		if err != nil && target == "" {
			if errors.Is(err, io.EOF) {
				return "", errNoTarget
			}
			return "", fmt.Errorf("failed to read input: %w", err)
		}

		if target == "" {
			red.Fprintln(out, "  ✗ Target cannot be empty. Please try again.")
			continue
		}
		if target == "q" || target == "quit" || target == "exit" {
			return "", errNoTarget
		}

		fmt.Fprintln(out)
		return target, nil
	}
}
