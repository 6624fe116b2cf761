// Package monitor raises alerts when probe latency, loss or reply source
// change between evaluation windows.
package monitor

import (
	"fmt"
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// ChangeType represents the type of change detected.
type ChangeType string

const (
	ChangeTypeLatency   ChangeType = "latency"
	ChangeTypeLoss      ChangeType = "loss"
	ChangeTypeSource    ChangeType = "source"
	ChangeTypeRecovered ChangeType = "recovered"
)

// Change represents a detected change between windows.
type Change struct {
	Type      ChangeType
	Window    int // 1-based index of the window that triggered the change
	Message   string
	Timestamp time.Time
	OldValue  interface{}
	NewValue  interface{}
}

// String formats the change for display.
func (c Change) String() string {
	return fmt.Sprintf("[%s] Window %d: %s", c.Type, c.Window, c.Message)
}

// Config holds monitoring configuration.
type Config struct {
	Window           int           // Probes per evaluation window
	LatencyThreshold time.Duration // Alert if average RTT exceeds this
	LossThreshold    float64       // Alert if loss % exceeds this
	AlertOnSource    bool          // Alert when replies arrive from a new endpoint
}

// DefaultConfig returns the default monitoring configuration.
func DefaultConfig() *Config {
	return &Config{
		Window:        10,
		AlertOnSource: true,
	}
}

// ChangeCallback is called when changes are detected.
type ChangeCallback func([]Change)

// Monitor groups probe outcomes into windows and compares each window with
// the one before it.
type Monitor struct {
	config   *Config
	callback ChangeCallback
	current  *result.Session
	previous *result.Session
	windows  int
}

// NewMonitor creates a new monitor with the given configuration.
func NewMonitor(cfg *Config) *Monitor {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &Monitor{
		config: cfg,
	}
}

// SetCallback sets the callback for change notifications.
func (m *Monitor) SetCallback(cb ChangeCallback) {
	m.callback = cb
}

// Observe adds one probe outcome. When it completes a window the window is
// evaluated, the callback is invoked with any changes, and the changes are
// returned.
func (m *Monitor) Observe(p result.Probe) []Change {
	if m.current == nil {
		m.current = result.NewSession(endpoint.Any)
	}
	m.current.Add(p)
	if m.current.Sent() < m.config.Window {
		return nil
	}

	m.windows++
	changes := m.DetectChanges(m.previous, m.current)
	for i := range changes {
		changes[i].Window = m.windows
	}
	if len(changes) > 0 && m.callback != nil {
		m.callback(changes)
	}

	m.previous = m.current
	m.current = nil
	return changes
}

// DetectChanges compares two windows and returns detected changes. A nil
// prev is treated as an empty window, so thresholds apply from the first one.
func (m *Monitor) DetectChanges(prev, curr *result.Session) []Change {
	if curr == nil {
		return nil
	}
	if prev == nil {
		prev = result.NewSession(curr.Target)
	}

	var changes []Change

	// Latency change
	if m.config.LatencyThreshold > 0 {
		prevRTT := prev.AvgRTT()
		currRTT := curr.AvgRTT()
		if currRTT > m.config.LatencyThreshold && currRTT > prevRTT {
			changes = append(changes, Change{
				Type:      ChangeTypeLatency,
				Message:   fmt.Sprintf("Latency increased from %.1fms to %.1fms (threshold: %.1fms)", msec(prevRTT), msec(currRTT), msec(m.config.LatencyThreshold)),
				Timestamp: time.Now(),
				OldValue:  prevRTT,
				NewValue:  currRTT,
			})
		}
	}

	// Loss change
	if m.config.LossThreshold > 0 {
		prevLoss := prev.LossPercent()
		currLoss := curr.LossPercent()
		switch {
		case currLoss > m.config.LossThreshold && currLoss > prevLoss:
			changes = append(changes, Change{
				Type:      ChangeTypeLoss,
				Message:   fmt.Sprintf("Loss increased from %.1f%% to %.1f%% (threshold: %.1f%%)", prevLoss, currLoss, m.config.LossThreshold),
				Timestamp: time.Now(),
				OldValue:  prevLoss,
				NewValue:  currLoss,
			})
		case prevLoss > m.config.LossThreshold && currLoss <= m.config.LossThreshold:
			changes = append(changes, Change{
				Type:      ChangeTypeRecovered,
				Message:   fmt.Sprintf("Loss recovered from %.1f%% to %.1f%%", prevLoss, currLoss),
				Timestamp: time.Now(),
				OldValue:  prevLoss,
				NewValue:  currLoss,
			})
		}
	}

	// Source change
	if m.config.AlertOnSource {
		prevSrc, prevOK := primarySource(prev)
		currSrc, currOK := primarySource(curr)
		if prevOK && currOK && prevSrc != currSrc {
			changes = append(changes, Change{
				Type:      ChangeTypeSource,
				Message:   fmt.Sprintf("Reply source changed from %s to %s", prevSrc, currSrc),
				Timestamp: time.Now(),
				OldValue:  prevSrc.String(),
				NewValue:  currSrc.String(),
			})
		}
	}

	return changes
}

// primarySource returns the sender of the first answered probe.
func primarySource(s *result.Session) (endpoint.Endpoint, bool) {
	for _, p := range s.Probes {
		if !p.Timeout {
			return p.From, true
		}
	}
	return endpoint.Any, false
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
