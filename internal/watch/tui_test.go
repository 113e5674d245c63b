package watch

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/model"
)

// newTestModel creates a tuiModel with two idle roles, cursor on the first.
func newTestModel() *tuiModel {
	return &tuiModel{
		interval: time.Second,
		styles:   newStyles(DarkTheme()),
		input:    textinput.New(),
		rows: []row{
			{role: "worker", target: model.PaneAddress{Session: "work", Window: "worker", Pane: 0}, lastLine: "$"},
			{role: "builder", target: model.PaneAddress{Session: "work", Window: "builder", Pane: 0}, lastLine: "done"},
		},
		width:  100,
		height: 30,
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestKeyNavigationMovesCursor(t *testing.T) {
	m := newTestModel()
	_, _ = m.handleKey(key("j"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	_, _ = m.handleKey(key("j"))
	if m.cursor != 1 {
		t.Fatalf("cursor moved past last row: %d", m.cursor)
	}
	_, _ = m.handleKey(key("k"))
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
	_, _ = m.handleKey(key("k"))
	if m.cursor != 0 {
		t.Fatalf("cursor moved before first row: %d", m.cursor)
	}
}

func TestEnterOpensInputAndEscCancels(t *testing.T) {
	m := newTestModel()
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.typing {
		t.Fatal("enter should open the command input")
	}
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if m.typing {
		t.Fatal("esc should close the command input")
	}
}

func TestEnterWithEmptyInputDoesNotDispatch(t *testing.T) {
	m := newTestModel()
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("empty command should not produce a dispatch cmd")
	}
	if m.running != 0 {
		t.Fatalf("running = %d, want 0", m.running)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel()
	_, cmd := m.handleKey(key("q"))
	if cmd == nil {
		t.Fatal("q should return the quit cmd")
	}
}

func TestRefreshClampsCursor(t *testing.T) {
	m := newTestModel()
	m.cursor = 1
	updated, _ := m.Update(refreshMsg{rows: m.rows[:1]})
	m = updated.(*tuiModel)
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0 after rows shrank", m.cursor)
	}
}

func TestTaskDoneDecrementsRunning(t *testing.T) {
	m := newTestModel()
	m.running = 1
	updated, _ := m.Update(taskDoneMsg{role: "worker"})
	m = updated.(*tuiModel)
	if m.running != 0 {
		t.Fatalf("running = %d, want 0", m.running)
	}
	if !strings.Contains(m.status, "worker") {
		t.Fatalf("status %q should mention the role", m.status)
	}
}

func TestViewShowsRolesAndHints(t *testing.T) {
	m := newTestModel()
	m.tail = []events.Event{
		{Task: "task-1", Kind: events.KindDispatched, Role: "worker", Target: "work:worker.0", TS: time.Now()},
	}
	out := m.View()
	for _, want := range []string{"worker", "builder", "dispatched", "quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"this line is too long", 10, "this li..."},
	}
	for _, c := range cases {
		if got := truncate(c.in, c.maxLen); got != c.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", c.in, c.maxLen, got, c.want)
		}
	}
}
