package tui

import "github.com/charmbracelet/lipgloss"

// RTT bands in milliseconds.
const (
	fastRTT = 50
	slowRTT = 150
)

// palette is the set of colors a theme is built from.
// An empty color leaves the terminal default in place.
type palette struct {
	accent  lipgloss.Color
	text    lipgloss.Color
	muted   lipgloss.Color
	good    lipgloss.Color
	fair    lipgloss.Color
	bad     lipgloss.Color
	name    lipgloss.Color
	ttl     lipgloss.Color
	barBack lipgloss.Color

	// plain drops bold and color emphasis outside the status line
	plain bool
}

var palettes = map[string]palette{
	"dark": {
		accent:  "205",
		text:    "255",
		muted:   "240",
		good:    "46",
		fair:    "226",
		bad:     "196",
		name:    "114",
		ttl:     "87",
		barBack: "235",
	},
	"light": {
		accent:  "162",
		text:    "0",
		muted:   "245",
		good:    "28",
		fair:    "136",
		bad:     "160",
		name:    "29",
		ttl:     "25",
		barBack: "254",
	},
	"minimal": {
		muted: "244",
		good:  "2",
		fair:  "3",
		bad:   "1",
		plain: true,
	},
}

// Styles holds the lipgloss styles for one theme.
type Styles struct {
	Title        lipgloss.Style
	Info         lipgloss.Style
	ColumnHeader lipgloss.Style
	Rule         lipgloss.Style
	Placeholder  lipgloss.Style

	// Trace status once the sweep ends
	Reached    lipgloss.Style
	NotReached lipgloss.Style
	Failed     lipgloss.Style

	TTL         lipgloss.Style
	Addr        lipgloss.Style
	Destination lipgloss.Style
	Hostname    lipgloss.Style
	NoReply     lipgloss.Style

	RTTFast     lipgloss.Style
	RTTModerate lipgloss.Style
	RTTSlow     lipgloss.Style

	Footer  lipgloss.Style
	Spinner lipgloss.Style
}

// ThemeByName returns the styles for dark, light or minimal.
// Unknown names get the dark theme.
func ThemeByName(name string) Styles {
	p, ok := palettes[name]
	if !ok {
		p = palettes["dark"]
	}
	return newStyles(p)
}

func newStyles(p palette) Styles {
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	emph := func(c lipgloss.Color) lipgloss.Style {
		return fg(c).Bold(!p.plain)
	}

	s := Styles{
		Title:        emph(p.accent).MarginBottom(1),
		Info:         fg(p.muted),
		ColumnHeader: emph(p.text),
		Rule:         fg(p.muted),
		Placeholder:  fg(p.muted).Italic(true),

		Reached:    fg(p.good).Bold(true),
		NotReached: fg(p.fair).Bold(true),
		Failed:     fg(p.bad).Bold(true),

		TTL:         fg(p.ttl),
		Addr:        fg(p.text),
		Destination: emph(p.good),
		Hostname:    fg(p.name),
		NoReply:     fg(p.muted),

		RTTFast:     fg(p.good),
		RTTModerate: fg(p.fair),
		RTTSlow:     fg(p.bad),

		Footer:  fg(p.text).Background(p.barBack).Padding(0, 1),
		Spinner: fg(p.accent),
	}
	if p.plain {
		s.Hostname = s.Hostname.Italic(true)
		s.TTL = s.TTL.Bold(true)
	}
	return s
}

// RTT picks the band style for a round-trip time in milliseconds.
func (s Styles) RTT(ms float64) lipgloss.Style {
	switch {
	case ms < 0:
		return s.NoReply
	case ms < fastRTT:
		return s.RTTFast
	case ms < slowRTT:
		return s.RTTModerate
	default:
		return s.RTTSlow
	}
}
