package display

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hervehildenbrand/udpkit/internal/monitor"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

func newTestModel() *TUIModel {
	return NewTUIModel(target, endpoint.Localhost(40000), "linux")
}

func TestNewTUIModel_CreatesModel(t *testing.T) {
	model := newTestModel()

	if model.target != target {
		t.Errorf("expected target %v, got %v", target, model.target)
	}
	if model.stats == nil {
		t.Fatal("expected stats to be initialised")
	}
}

func TestTUIModel_AddProbe_UpdatesStats(t *testing.T) {
	model := newTestModel()

	model.AddProbe(result.Probe{Seq: 1, From: target, RTT: 5 * time.Millisecond, Bytes: 64})
	model.AddProbe(result.Probe{Seq: 2, Timeout: true})

	if model.stats.Sent != 2 || model.stats.Received != 1 {
		t.Errorf("expected 1/2, got %d/%d", model.stats.Received, model.stats.Sent)
	}
	if len(model.recent) != 2 {
		t.Errorf("expected 2 recent lines, got %d", len(model.recent))
	}
}

func TestTUIModel_RecentLinesBounded(t *testing.T) {
	model := newTestModel()

	for i := 0; i < recentLines+4; i++ {
		model.AddProbe(result.Probe{Seq: uint32(i), Timeout: true})
	}

	if len(model.recent) != recentLines {
		t.Errorf("expected %d recent lines, got %d", recentLines, len(model.recent))
	}
}

func TestTUIModel_PauseIgnoresProbes(t *testing.T) {
	model := newTestModel()

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	model.Update(ProbeMsg{Probe: result.Probe{Seq: 1, Timeout: true}})

	if model.stats.Sent != 0 {
		t.Errorf("expected paused model to ignore probes, got %d", model.stats.Sent)
	}
	if !strings.Contains(model.View(), "Paused") {
		t.Error("expected paused indicator in view")
	}
}

func TestTUIModel_ResetClearsStats(t *testing.T) {
	model := newTestModel()
	model.AddProbe(result.Probe{Seq: 1, From: target, RTT: time.Millisecond})

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	if model.stats.Sent != 0 || len(model.recent) != 0 {
		t.Error("expected reset to clear stats and recent lines")
	}
}

func TestTUIModel_View_ShowsStatsAndAlerts(t *testing.T) {
	model := newTestModel()
	model.AddProbe(result.Probe{Seq: 1, From: target, RTT: 5 * time.Millisecond, Bytes: 64})
	model.AddProbe(result.Probe{Seq: 2, From: target, RTT: 7 * time.Millisecond, Bytes: 64})
	model.Update(AlertMsg{Changes: []monitor.Change{{Type: monitor.ChangeTypeLoss, Window: 1, Message: "Loss increased"}}})

	view := model.View()

	for _, want := range []string{"127.0.0.1:27000", "Sent", "Jitter", "5.00ms", "Loss increased", "Platform: linux"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view", want)
		}
	}
}

func TestTUIModel_CompleteWithError(t *testing.T) {
	model := newTestModel()

	model.Update(CompleteMsg{Err: errors.New("poll: error")})

	if !model.complete {
		t.Fatal("expected model to be complete")
	}
	if !strings.Contains(model.View(), "poll: error") {
		t.Error("expected error in view")
	}
}

func TestTUIModel_AlertsBounded(t *testing.T) {
	model := newTestModel()

	for i := 0; i < alertLines+2; i++ {
		model.AddAlerts([]monitor.Change{{Type: monitor.ChangeTypeLatency, Window: i}})
	}

	if len(model.alerts) != alertLines {
		t.Errorf("expected %d alerts, got %d", alertLines, len(model.alerts))
	}
}

func TestTUIModel_RenderSparkline(t *testing.T) {
	model := newTestModel()

	if model.renderSparkline(nil) != "" {
		t.Error("expected empty sparkline for no samples")
	}

	line := model.renderSparkline([]time.Duration{time.Millisecond, 2 * time.Millisecond, 8 * time.Millisecond})
	if !strings.ContainsRune(line, '▁') || !strings.ContainsRune(line, '█') {
		t.Errorf("expected lowest and highest bars, got %q", line)
	}
}

func TestTUIModel_QuitKey(t *testing.T) {
	model := newTestModel()

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("expected quit command")
	}
}
