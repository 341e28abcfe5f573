package output

import (
	"bytes"
	"fmt"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
	"github.com/fatih/color"
)

// TextFormatter formats trace results in classic traceroute style.
type TextFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(config Config) *TextFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}

	return &TextFormatter{
		config: config,
		colors: colors,
	}
}

// Format formats the trace result as classic traceroute text output.
func (f *TextFormatter) Format(result *trace.Result) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(f.Header(result.Host, result.Target.String(), result.Method, result.Port))

	for _, hop := range result.Hops {
		f.formatHop(&buf, hop, result.Hostname(hop))
	}

	buf.WriteString("\n")
	buf.WriteString(f.Summary(result))

	return buf.Bytes(), nil
}

// Summary returns the closing line for a finished trace.
func (f *TextFormatter) Summary(result *trace.Result) string {
	if result.IsReached() {
		return fmt.Sprintf("Trace complete. %d hops, %d ms total\n",
			result.Len(), result.TotalRoundTripMillis())
	}
	return fmt.Sprintf("Trace incomplete after %d hops\n", result.Len())
}

// Header returns the first line printed before any hop.
func (f *TextFormatter) Header(host, addr, method string, port int) string {
	line := fmt.Sprintf("traceroute to %s (%s)", host, addr)
	if f.config.MaxHops > 0 {
		line += fmt.Sprintf(", %d hops max", f.config.MaxHops)
	}
	if port > 0 {
		line += fmt.Sprintf(", %s port %d", method, port)
	}
	line += "\n\n"
	if f.colors != nil {
		line = f.colors.Header.Sprint(line)
	}
	return line
}

// FormatHop formats a single hop and returns it as a string.
// This can be used for streaming output.
func (f *TextFormatter) FormatHop(hop trace.Hop, hostname string) string {
	var buf bytes.Buffer
	f.formatHop(&buf, hop, hostname)
	return buf.String()
}

func (f *TextFormatter) formatHop(buf *bytes.Buffer, hop trace.Hop, hostname string) {
	hopNum := fmt.Sprintf("%3d  ", hop.TTL)
	if f.colors != nil {
		hopNum = f.colors.Hop.Sprint(hopNum)
	}
	buf.WriteString(hopNum)

	if hop.Unreachable() {
		timeout := "*"
		if f.colors != nil {
			timeout = f.colors.Timeout.Sprint(timeout)
		}
		buf.WriteString(timeout)
		buf.WriteString("\n")
		return
	}

	ipStr := hop.Addr.String()
	if f.colors != nil {
		ipStr = f.colors.IP.Sprint(ipStr)
	}

	if hostname != "" && !f.config.NoHostname {
		if f.colors != nil {
			hostname = f.colors.Hostname.Sprint(hostname)
		}
		fmt.Fprintf(buf, "%s (%s)  ", hostname, ipStr)
	} else {
		fmt.Fprintf(buf, "%s  ", ipStr)
	}

	buf.WriteString(f.colorizeRTT(millis(hop)))
	buf.WriteString("\n")
}

// colorizeRTT returns an RTT string colored by latency threshold.
func (f *TextFormatter) colorizeRTT(rtt float64) string {
	str := fmt.Sprintf("%.3f ms", rtt)
	if f.colors == nil {
		return str
	}

	switch {
	case rtt < 50:
		return f.colors.RTTLow.Sprint(str)
	case rtt < 150:
		return f.colors.RTTMed.Sprint(str)
	default:
		return f.colors.RTTHigh.Sprint(str)
	}
}

// ContentType returns the MIME type for text output.
func (f *TextFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for text output.
func (f *TextFormatter) FileExtension() string {
	return "txt"
}

// ColorScheme defines colors for different output elements.
type ColorScheme struct {
	Hop      *color.Color
	IP       *color.Color
	Hostname *color.Color
	RTTLow   *color.Color // < 50ms
	RTTMed   *color.Color // 50-150ms
	RTTHigh  *color.Color // > 150ms
	Timeout  *color.Color
	Header   *color.Color
}

// DefaultColorScheme returns the default color scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Hop:      color.New(color.FgCyan, color.Bold),
		IP:       color.New(color.FgWhite),
		Hostname: color.New(color.FgGreen),
		RTTLow:   color.New(color.FgGreen),
		RTTMed:   color.New(color.FgYellow),
		RTTHigh:  color.New(color.FgRed),
		Timeout:  color.New(color.FgRed, color.Bold),
		Header:   color.New(color.FgWhite, color.Bold),
	}
}
