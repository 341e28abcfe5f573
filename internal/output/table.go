package output

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats trace results as a detailed table.
type TableFormatter struct {
	config Config
	colors *ColorScheme
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(config Config) *TableFormatter {
	var colors *ColorScheme
	if config.Colors {
		colors = DefaultColorScheme()
	}

	return &TableFormatter{
		config: config,
		colors: colors,
	}
}

// Format formats the trace result as a detailed table.
func (f *TableFormatter) Format(result *trace.Result) ([]byte, error) {
	var buf bytes.Buffer

	f.writeHeader(&buf, result)

	table := tablewriter.NewWriter(&buf)
	f.configureTable(table)
	table.SetHeader(f.getHeaders())

	for _, hop := range result.Hops {
		table.Append(f.formatHopRow(hop, result.Hostname(hop)))
	}

	table.Render()

	f.writeSummary(&buf, result)

	return buf.Bytes(), nil
}

func (f *TableFormatter) writeHeader(buf *bytes.Buffer, result *trace.Result) {
	header := fmt.Sprintf("Target: %s (%s)\n", result.Host, result.Target)
	method := strings.ToUpper(result.Method)
	if result.Port > 0 {
		method = fmt.Sprintf("%s/%d", method, result.Port)
	}
	header += fmt.Sprintf("Method: %s | Time: %s | ID: %s\n\n",
		method,
		result.Timestamp.Format("2006-01-02 15:04:05"),
		result.ID)

	if f.colors != nil {
		header = f.colors.Header.Sprint(header)
	}
	buf.WriteString(header)
}

func (f *TableFormatter) configureTable(table *tablewriter.Table) {
	table.SetBorder(true)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("│")
	table.SetColumnSeparator("│")
	table.SetRowSeparator("─")
	table.SetHeaderLine(true)
	table.SetTablePadding(" ")
}

func (f *TableFormatter) getHeaders() []string {
	headers := []string{"Hop", "IP Address"}
	if !f.config.NoHostname {
		headers = append(headers, "Hostname")
	}
	return append(headers, "RTT (ms)")
}

func (f *TableFormatter) formatHopRow(hop trace.Hop, hostname string) []string {
	row := []string{strconv.Itoa(hop.TTL)}

	if hop.Unreachable() {
		row = append(row, "*")
		if !f.config.NoHostname {
			row = append(row, "-")
		}
		return append(row, "-")
	}

	row = append(row, hop.Addr.String())
	if !f.config.NoHostname {
		if hostname == "" {
			hostname = "-"
		}
		row = append(row, truncateString(hostname, 40))
	}
	return append(row, f.formatRTT(millis(hop)))
}

func (f *TableFormatter) formatRTT(rtt float64) string {
	str := fmt.Sprintf("%.2f", rtt)

	if f.colors != nil {
		switch {
		case rtt < 50:
			str = f.colors.RTTLow.Sprint(str)
		case rtt < 150:
			str = f.colors.RTTMed.Sprint(str)
		default:
			str = f.colors.RTTHigh.Sprint(str)
		}
	}

	return str
}

func (f *TableFormatter) writeSummary(buf *bytes.Buffer, result *trace.Result) {
	buf.WriteString("\nSummary:\n")

	fmt.Fprintf(buf, "  Total Hops:    %d\n", result.Len())
	fmt.Fprintf(buf, "  Responding:    %d\n", result.Responding())
	fmt.Fprintf(buf, "  Total RTT:     %d ms\n", result.TotalRoundTripMillis())

	buf.WriteString("  Status:        ")
	status := "Incomplete"
	if result.IsReached() {
		status = "Complete"
	}
	if f.colors != nil {
		if result.IsReached() {
			status = f.colors.RTTLow.Sprint(status)
		} else {
			status = f.colors.RTTHigh.Sprint(status)
		}
	}
	buf.WriteString(status)
	buf.WriteString("\n")
}

// ContentType returns the MIME type for table output.
func (f *TableFormatter) ContentType() string {
	return "text/plain"
}

// FileExtension returns the file extension for table output.
func (f *TableFormatter) FileExtension() string {
	return "txt"
}
