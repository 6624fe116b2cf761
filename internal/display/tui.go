package display

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hervehildenbrand/udpkit/internal/monitor"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("240"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	endpointStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	rttStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	timeoutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
)

// Bar glyphs, lowest first.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

const (
	recentLines = 8
	alertLines  = 3
)

// ProbeMsg is sent when a probe outcome is known.
type ProbeMsg struct {
	Probe result.Probe
}

// AlertMsg is sent when the monitor detects changes.
type AlertMsg struct {
	Changes []monitor.Change
}

// CompleteMsg is sent when the probe run ends.
type CompleteMsg struct {
	Err error
}

// TUIModel is the Bubbletea model for the live probe view.
type TUIModel struct {
	mu        sync.RWMutex
	target    endpoint.Endpoint
	local     endpoint.Endpoint
	platform  string
	stats     *ProbeStats
	recent    []string
	alerts    []monitor.Change
	renderer  *SimpleRenderer
	complete  bool
	err       error
	paused    bool
	spinner   spinner.Model
	width     int
	height    int
	startTime time.Time
}

// NewTUIModel creates a new TUI model.
func NewTUIModel(target, local endpoint.Endpoint, platform string) *TUIModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &TUIModel{
		target:    target,
		local:     local,
		platform:  platform,
		stats:     NewProbeStats(),
		renderer:  NewSimpleRenderer(),
		spinner:   s,
		startTime: time.Now(),
	}
}

// AddProbe records a probe outcome unless the view is paused.
func (m *TUIModel) AddProbe(p result.Probe) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paused {
		return
	}
	m.stats.Add(p)
	m.recent = append(m.recent, m.renderer.RenderProbe(p))
	if len(m.recent) > recentLines {
		m.recent = m.recent[len(m.recent)-recentLines:]
	}
}

// AddAlerts records monitor changes.
func (m *TUIModel) AddAlerts(changes []monitor.Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.alerts = append(m.alerts, changes...)
	if len(m.alerts) > alertLines {
		m.alerts = m.alerts[len(m.alerts)-alertLines:]
	}
}

// SetComplete marks the run as finished.
func (m *TUIModel) SetComplete(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.complete = true
	m.err = err
}

// Init implements tea.Model.
func (m *TUIModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "p":
			m.mu.Lock()
			m.paused = !m.paused
			m.mu.Unlock()
		case "r":
			m.mu.Lock()
			m.stats.Reset()
			m.recent = nil
			m.alerts = nil
			m.startTime = time.Now()
			m.mu.Unlock()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ProbeMsg:
		m.AddProbe(msg.Probe)

	case AlertMsg:
		m.AddAlerts(msg.Changes)

	case CompleteMsg:
		m.SetComplete(msg.Err)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *TUIModel) View() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder

	title := fmt.Sprintf("udpkit ping → %s", endpointStyle.Render(m.target.String()))
	b.WriteString(titleStyle.Render(title))
	b.WriteString(headerStyle.Render(fmt.Sprintf("  from %s", m.local)))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-7s %-7s %-8s %-9s %-9s %-9s %-9s %-9s",
		"Sent", "Recv", "Loss", "Last", "Avg", "Min", "Max", "Jitter")
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 76))
	b.WriteString("\n")
	b.WriteString(m.formatStatsRow())
	b.WriteString("\n\n")

	if history := m.stats.History(); len(history) > 0 {
		b.WriteString(headerStyle.Render("RTT  "))
		b.WriteString(m.renderSparkline(history))
		b.WriteString("\n\n")
	}

	for _, line := range m.recent {
		if strings.HasPrefix(line, "request timeout") {
			b.WriteString(timeoutStyle.Render(line))
		} else {
			b.WriteString(valueStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if len(m.alerts) > 0 {
		b.WriteString("\n")
		for _, c := range m.alerts {
			b.WriteString(alertStyle.Render("⚠ " + c.String()))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", 76))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	switch {
	case m.complete && m.err != nil:
		b.WriteString(timeoutStyle.Render("✗ " + m.err.Error()))
		b.WriteString(" | Press 'q' to quit")
	case m.complete:
		b.WriteString(completeStyle.Render("✓ Complete"))
		b.WriteString(" | Press 'q' to quit")
	case m.paused:
		b.WriteString(alertStyle.Render("Paused"))
		b.WriteString(" | 'p' resume, 'r' reset, 'q' quit")
	default:
		b.WriteString(m.spinner.View())
		b.WriteString(" Probing... 'p' pause, 'r' reset, 'q' quit")
	}

	return b.String()
}

// formatStatsRow formats the statistics line.
func (m *TUIModel) formatStatsRow() string {
	s := m.stats
	var b strings.Builder

	b.WriteString(valueStyle.Render(fmt.Sprintf("%-7d %-7d ", s.Sent, s.Received)))

	lossStr := fmt.Sprintf("%5.1f%%", s.LossPercent())
	if s.LossPercent() > 0 {
		b.WriteString(timeoutStyle.Render(fmt.Sprintf("%-8s ", lossStr)))
	} else {
		b.WriteString(valueStyle.Render(fmt.Sprintf("%-8s ", lossStr)))
	}

	for _, d := range []time.Duration{s.Last, s.AvgRTT(), s.Min, s.Max, s.Jitter} {
		if s.Received == 0 {
			b.WriteString(timeoutStyle.Render(fmt.Sprintf("%-9s ", "-")))
			continue
		}
		b.WriteString(rttStyle.Render(fmt.Sprintf("%-9s ", m.renderer.FormatRTT(d))))
	}

	return strings.TrimRight(b.String(), " ")
}

// renderSparkline draws one bar per sample, scaled between the lowest and
// highest sample in the window. A flat window draws mid-height bars.
func (m *TUIModel) renderSparkline(rtts []time.Duration) string {
	if len(rtts) == 0 {
		return ""
	}

	lo, hi := slices.Min(rtts), slices.Max(rtts)
	top := len(sparkChars) - 1

	bars := make([]rune, len(rtts))
	for i, rtt := range rtts {
		level := top / 2
		if hi > lo {
			level = int(math.Round(float64(rtt-lo) / float64(hi-lo) * float64(top)))
		}
		bars[i] = sparkChars[level]
	}
	return rttStyle.Render(string(bars))
}

// renderStatusBar renders the status bar.
func (m *TUIModel) renderStatusBar() string {
	parts := []string{
		fmt.Sprintf("Platform: %s", m.platform),
		fmt.Sprintf("Echoed: %s", humanize.Bytes(m.stats.Bytes)),
	}
	if !m.stats.LastFrom.IsAny() && m.stats.LastFrom != m.target {
		parts = append(parts, alertStyle.Render("Source: "+m.stats.LastFrom.String()))
	}

	elapsed := time.Since(m.startTime).Round(time.Second)
	parts = append(parts, fmt.Sprintf("Time: %v", elapsed))

	return statusStyle.Render(strings.Join(parts, " │ "))
}

// RunTUI runs the TUI until the user quits. Probe outcomes and alerts are fed
// from their channels. The producer closes probes before sending the run
// error (nil on success) on done; outcomes still buffered are shown first.
func RunTUI(target, local endpoint.Endpoint, platform string, probes <-chan result.Probe, alerts <-chan []monitor.Change, done <-chan error) error {
	model := NewTUIModel(target, local, platform)

	p := tea.NewProgram(model)

	go func() {
		for {
			select {
			case pr, ok := <-probes:
				if !ok {
					probes = nil
					continue
				}
				p.Send(ProbeMsg{Probe: pr})
			case c, ok := <-alerts:
				if !ok {
					alerts = nil
					continue
				}
				p.Send(AlertMsg{Changes: c})
			case err, ok := <-done:
				if !ok {
					return
				}
				for probes != nil {
					pr, ok := <-probes
					if !ok {
						break
					}
					p.Send(ProbeMsg{Probe: pr})
				}
				p.Send(CompleteMsg{Err: err})
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}
