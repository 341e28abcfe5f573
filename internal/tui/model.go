// Package tui provides an interactive terminal UI for traceroute.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/KilimcininKorOglu/nettool/internal/trace"
)

// State represents the current state of the TUI.
type State int

const (
	StateRunning State = iota
	StateComplete
	StateError
)

// TraceFunc runs a trace, calling onHop for every hop as it is recorded.
type TraceFunc func(ctx context.Context, onHop func(trace.Hop)) (*trace.Result, error)

// Options configures the TUI model.
type Options struct {
	// Target is the host shown in the header
	Target string

	// Method is the probe method shown in the header
	Method string

	// Theme selects a style set (dark, light, minimal)
	Theme string

	// Trace performs the actual sweep
	Trace TraceFunc
}

// Model is the Bubble Tea model for the traceroute TUI.
type Model struct {
	target string
	method string
	run    TraceFunc
	width  int
	height int

	state     State
	hops      []trace.Hop
	result    *trace.Result
	err       error
	elapsed   time.Duration
	startTime time.Time

	spinner spinner.Model
	styles  Styles

	ctx     context.Context
	cancel  context.CancelFunc
	hopChan chan trace.Hop
}

// HopMsg is sent when a new hop is recorded.
type HopMsg struct {
	Hop trace.Hop
}

// CompleteMsg is sent when the trace is complete.
type CompleteMsg struct {
	Result *trace.Result
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Err error
}

// TickMsg is sent to update elapsed time.
type TickMsg time.Time

// New creates a new TUI model.
func New(opts Options) (*Model, error) {
	if opts.Trace == nil {
		return nil, fmt.Errorf("tui: no trace function")
	}

	styles := ThemeByName(opts.Theme)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		target:    opts.Target,
		method:    opts.Method,
		run:       opts.Trace,
		state:     StateRunning,
		hops:      make([]trace.Hop, 0),
		spinner:   s,
		styles:    styles,
		width:     80,
		height:    24,
		startTime: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		hopChan:   make(chan trace.Hop, trace.MaxTTL),
	}

	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runTrace(),
		m.tickCmd(),
		m.waitForHop(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		m.elapsed = time.Since(m.startTime)
		if m.state == StateRunning {
			return m, m.tickCmd()
		}

	case HopMsg:
		if m.state != StateRunning {
			return m, nil
		}
		m.hops = append(m.hops, msg.Hop)
		return m, m.waitForHop()

	case CompleteMsg:
		m.state = StateComplete
		m.result = msg.Result
		// The result is authoritative, streamed hops may still be queued
		if msg.Result != nil && msg.Result.Route != nil {
			m.hops = msg.Result.Hops
		}

	case ErrorMsg:
		m.state = StateError
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderHops())

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("nettool traceroute")

	var status string
	switch m.state {
	case StateRunning:
		status = m.spinner.View() + " Tracing..."
	case StateComplete:
		if m.result != nil && m.result.IsReached() {
			status = m.styles.Reached.Render("✓ Destination reached")
		} else {
			status = m.styles.NotReached.Render("! Destination not reached")
		}
	case StateError:
		status = m.styles.Failed.Render("✗ " + m.errString())
	}

	info := fmt.Sprintf("Target: %s | Method: %s | Elapsed: %s",
		m.target, m.method, m.elapsed.Round(100*time.Millisecond))

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.styles.Info.Render(info),
		status,
	)
}

func (m Model) errString() string {
	if m.err == nil {
		return "Error"
	}
	return m.err.Error()
}

func (m Model) renderHops() string {
	if len(m.hops) == 0 {
		return m.styles.Placeholder.Render("Waiting for responses...")
	}

	var rows []string

	header := fmt.Sprintf("%-4s %-15s %-30s %-10s", "Hop", "IP", "Hostname", "RTT")
	rows = append(rows, m.styles.ColumnHeader.Render(header))
	rows = append(rows, m.styles.Rule.Render(strings.Repeat("─", 62)))

	for _, hop := range m.hops {
		rows = append(rows, m.renderHopRow(hop))
	}

	return strings.Join(rows, "\n")
}

func (m Model) renderHopRow(hop trace.Hop) string {
	hopNum := m.styles.TTL.Render(fmt.Sprintf("%-4d", hop.TTL))

	if hop.Unreachable() {
		return fmt.Sprintf("%s %s", hopNum, m.styles.NoReply.Render("*"))
	}

	hostname := ""
	if m.result != nil {
		hostname = m.result.Hostname(hop)
	}

	rtt := float64(hop.RTT.Microseconds()) / 1000

	addr := m.styles.Addr
	if m.isDestination(hop) {
		addr = m.styles.Destination
	}

	return fmt.Sprintf("%s %s %s %s",
		hopNum,
		addr.Render(fmt.Sprintf("%-15s", hop.Addr.String())),
		m.styles.Hostname.Render(fmt.Sprintf("%-30s", truncate(hostname, 30))),
		m.styles.RTT(rtt).Render(fmt.Sprintf("%.2f ms", rtt)),
	)
}

// isDestination reports whether hop is the traced target.
// The target address is only known once the result arrives.
func (m Model) isDestination(hop trace.Hop) bool {
	return m.result != nil && hop.IsDestination(m.result.Target)
}

func (m Model) renderFooter() string {
	var parts []string

	if m.state == StateComplete && m.result != nil {
		parts = append(parts, fmt.Sprintf("Hops: %d", m.result.Len()))
		parts = append(parts, fmt.Sprintf("Responding: %d", m.result.Responding()))
		if m.result.IsReached() {
			parts = append(parts, fmt.Sprintf("Total: %d ms", m.result.TotalRoundTripMillis()))
		}
	}

	parts = append(parts, "Press 'q' to quit")

	return m.styles.Footer.Render(strings.Join(parts, " | "))
}

// runTrace runs the traceroute in the background.
func (m Model) runTrace() tea.Cmd {
	return func() tea.Msg {
		result, err := m.run(m.ctx, func(hop trace.Hop) {
			select {
			case m.hopChan <- hop:
			case <-m.ctx.Done():
			}
		})
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return CompleteMsg{Result: result}
	}
}

// waitForHop waits for a hop from the channel.
func (m Model) waitForHop() tea.Cmd {
	return func() tea.Msg {
		select {
		case hop := <-m.hopChan:
			return HopMsg{Hop: hop}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// State returns the current state.
func (m Model) State() State {
	return m.state
}

// Err returns the error that ended the trace, if any.
func (m Model) Err() error {
	return m.err
}

// Result returns the finished trace, nil while running.
func (m Model) Result() *trace.Result {
	return m.result
}

// Close stops a running trace and releases resources.
func (m *Model) Close() error {
	m.cancel()
	return nil
}

// truncate truncates a string to maxLen.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
