package output

import (
	"encoding/json"
	"time"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

// JSONFormatter formats trace results as JSON.
type JSONFormatter struct {
	config Config
	pretty bool
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(config Config) *JSONFormatter {
	return &JSONFormatter{
		config: config,
		pretty: true,
	}
}

// SetPretty enables or disables pretty-printing.
func (f *JSONFormatter) SetPretty(pretty bool) {
	f.pretty = pretty
}

// Format formats the trace result as JSON.
func (f *JSONFormatter) Format(result *trace.Result) ([]byte, error) {
	output := f.toJSONOutput(result)

	if f.pretty {
		return json.MarshalIndent(output, "", "  ")
	}
	return json.Marshal(output)
}

// JSONOutput is the JSON-serializable representation of a trace result.
type JSONOutput struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	ResolvedIP  string    `json:"resolved_ip"`
	Timestamp   string    `json:"timestamp"`
	ProbeMethod string    `json:"probe_method"`
	Port        int       `json:"port,omitempty"`
	Reached     bool      `json:"reached"`
	TotalRTTMs  int64     `json:"total_rtt_ms"`
	Hops        []JSONHop `json:"hops"`
}

// JSONHop represents a single hop in JSON format.
// IP is empty and RTTMs is -1 for hops that did not answer.
type JSONHop struct {
	TTL      int    `json:"ttl"`
	IP       string `json:"ip,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	RTTMs    int64  `json:"rtt_ms"`
}

func (f *JSONFormatter) toJSONOutput(result *trace.Result) *JSONOutput {
	output := &JSONOutput{
		ID:          result.ID.String(),
		Target:      result.Host,
		ResolvedIP:  result.Target.String(),
		Timestamp:   result.Timestamp.Format(time.RFC3339),
		ProbeMethod: result.Method,
		Port:        result.Port,
		Reached:     result.IsReached(),
		TotalRTTMs:  result.TotalRoundTripMillis(),
		Hops:        make([]JSONHop, len(result.Hops)),
	}

	for i, hop := range result.Hops {
		jh := JSONHop{
			TTL:   hop.TTL,
			RTTMs: hop.RTTMillis(),
		}
		if !hop.Unreachable() {
			jh.IP = hop.Addr.String()
			if !f.config.NoHostname {
				jh.Hostname = result.Hostname(hop)
			}
		}
		output.Hops[i] = jh
	}

	return output
}

// ContentType returns the MIME type for JSON output.
func (f *JSONFormatter) ContentType() string {
	return "application/json"
}

// FileExtension returns the file extension for JSON output.
func (f *JSONFormatter) FileExtension() string {
	return "json"
}
