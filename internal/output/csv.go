package output

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

// CSVFormatter formats trace results as CSV, one row per hop.
type CSVFormatter struct {
	config  Config
	columns []string
}

var defaultCSVColumns = []string{"ttl", "ip", "hostname", "rtt_ms"}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(config Config) *CSVFormatter {
	return &CSVFormatter{
		config:  config,
		columns: defaultCSVColumns,
	}
}

// SetColumns allows customizing which columns to include.
func (f *CSVFormatter) SetColumns(columns []string) {
	f.columns = columns
}

// Format formats the trace result as CSV.
func (f *CSVFormatter) Format(result *trace.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(f.columns); err != nil {
		return nil, err
	}

	for _, hop := range result.Hops {
		row := make([]string, len(f.columns))
		for i, col := range f.columns {
			row[i] = f.getValue(result, hop, col)
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (f *CSVFormatter) getValue(result *trace.Result, hop trace.Hop, column string) string {
	switch column {
	case "ttl":
		return strconv.Itoa(hop.TTL)
	case "ip":
		if hop.Unreachable() {
			return "*"
		}
		return hop.Addr.String()
	case "hostname":
		if f.config.NoHostname {
			return ""
		}
		return result.Hostname(hop)
	case "rtt_ms":
		return strconv.FormatInt(hop.RTTMillis(), 10)
	case "responded":
		return strconv.FormatBool(!hop.Unreachable())
	case "destination":
		return strconv.FormatBool(hop.IsDestination(result.Target))
	default:
		return ""
	}
}

// ContentType returns the MIME type for CSV output.
func (f *CSVFormatter) ContentType() string {
	return "text/csv"
}

// FileExtension returns the file extension for CSV output.
func (f *CSVFormatter) FileExtension() string {
	return "csv"
}
