// Package watch provides an interactive TUI over the role topology.
//
// Each registered role is shown with its pane, its busy state, and the
// last line of its output. A command typed at the prompt is dispatched
// to the selected role as a task; the journal pane at the bottom shows
// each task's lifecycle as it unfolds.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/marker"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/observe"
	"github.com/timvw/pane-conductor/internal/orchestrator"
)

// row is one role's current state in the list.
type row struct {
	role     model.Role
	target   model.PaneAddress
	lastLine string
	busy     bool
	err      error
}

// messages
type refreshMsg struct {
	rows []row
	tail []events.Event
}

type tickMsg struct{}

type taskDoneMsg struct {
	role model.Role
	err  error
}

// TUI runs the interactive watch view.
type TUI struct {
	Orchestrator    *orchestrator.Orchestrator
	Journal         *events.Journal
	RefreshInterval time.Duration
	ThemeName       string
}

// Run blocks until the user quits or ctx is cancelled.
func (t *TUI) Run(ctx context.Context) error {
	interval := t.RefreshInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	input := textinput.New()
	input.Placeholder = "command for selected role"
	input.CharLimit = 0

	m := &tuiModel{
		ctx:      ctx,
		orc:      t.Orchestrator,
		journal:  t.Journal,
		interval: interval,
		styles:   newStyles(ThemeByName(t.ThemeName)),
		input:    input,
		width:    100,
		height:   30,
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// tuiModel implements tea.Model.
type tuiModel struct {
	ctx      context.Context
	orc      *orchestrator.Orchestrator
	journal  *events.Journal
	interval time.Duration
	styles   styles

	rows   []row
	tail   []events.Event
	cursor int

	input  textinput.Model
	typing bool

	status  string
	running int

	width  int
	height int
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(m.doRefresh(), m.scheduleTick())
}

func (m *tuiModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// doRefresh captures a small recent window for every registered role.
func (m *tuiModel) doRefresh() tea.Cmd {
	orc := m.orc
	journal := m.journal
	ctx := m.ctx
	return func() tea.Msg {
		topo := orc.Topology()
		busy := marker.Default()

		var rows []row
		for _, role := range topo.Roles() {
			r := row{role: role}
			addr, err := topo.Resolve(role)
			if err != nil {
				r.err = err
				rows = append(rows, r)
				continue
			}
			r.target = addr
			snap, err := orc.Observer().Capture(ctx, addr, observe.Recent(10), true)
			if err != nil {
				r.err = err
			} else {
				r.lastLine = snap.LastNonEmpty()
				r.busy = busy(snap)
			}
			rows = append(rows, r)
		}

		var tail []events.Event
		if journal != nil {
			all := journal.Snapshot(time.Now().UTC())
			if len(all) > 6 {
				all = all[len(all)-6:]
			}
			tail = all
		}
		return refreshMsg{rows: rows, tail: tail}
	}
}

// runTask dispatches the typed command to the selected role.
func (m *tuiModel) runTask(role model.Role, command string) tea.Cmd {
	orc := m.orc
	ctx := m.ctx
	return func() tea.Msg {
		_, err := orc.RunTask(ctx, orchestrator.TaskRequest{
			Role:     role,
			Command:  command,
			Mode:     model.ModeLiteral,
			Strategy: orchestrator.IdlePoll,
		})
		return taskDoneMsg{role: role, err: err}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.doRefresh(), m.scheduleTick())
	case refreshMsg:
		m.rows = msg.rows
		m.tail = msg.tail
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, nil
	case taskDoneMsg:
		m.running--
		if msg.err != nil {
			m.status = fmt.Sprintf("%s: %v", msg.role, msg.err)
		} else {
			m.status = fmt.Sprintf("%s: task complete", msg.role)
		}
		return m, m.doRefresh()
	}
	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch msg.Type {
		case tea.KeyEsc:
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case tea.KeyEnter:
			command := strings.TrimSpace(m.input.Value())
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			if command == "" || len(m.rows) == 0 {
				return m, nil
			}
			role := m.rows[m.cursor].role
			m.running++
			m.status = fmt.Sprintf("%s: running %q", role, command)
			return m, m.runTask(role, command)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "r":
		return m, m.doRefresh()
	case "enter", "i":
		if len(m.rows) > 0 {
			m.typing = true
			m.input.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *tuiModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("pane-conductor"))
	if m.running > 0 {
		b.WriteString(m.styles.dim.Render(fmt.Sprintf("  %d task(s) running", m.running)))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.header.Render(strings.Repeat("─", min(m.width, 100))))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(m.styles.dim.Render("no roles registered"))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		b.WriteString(m.renderRow(i, r))
		b.WriteString("\n")
	}

	if len(m.tail) > 0 {
		b.WriteString(m.styles.header.Render(strings.Repeat("─", min(m.width, 100))))
		b.WriteString("\n")
		for _, e := range m.tail {
			b.WriteString(m.renderEvent(e))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.typing {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(m.hint("enter", "dispatch") + "  " + m.hint("esc", "cancel"))
	} else {
		if m.status != "" {
			b.WriteString(m.styles.dim.Render(m.status))
			b.WriteString("\n")
		}
		b.WriteString(m.hint("↑/↓", "select") + "  " +
			m.hint("enter", "run command") + "  " +
			m.hint("r", "refresh") + "  " +
			m.hint("q", "quit"))
	}
	return b.String()
}

func (m *tuiModel) renderRow(i int, r row) string {
	state := m.styles.idle.Render("idle")
	if r.busy {
		state = m.styles.busy.Render("busy")
	}
	if r.err != nil {
		state = m.styles.err.Render("gone")
	}

	line := fmt.Sprintf("%-12s %-24s %s  %s",
		r.role, r.target.String(), state, truncate(r.lastLine, m.width-48))
	if i == m.cursor {
		return m.styles.selected.Render("> " + line)
	}
	return m.styles.text.Render("  " + line)
}

func (m *tuiModel) renderEvent(e events.Event) string {
	ts := e.TS.Local().Format("15:04:05")
	line := fmt.Sprintf("%s  %-14s %-10s %s", ts, e.Kind, e.Role, e.Target)
	switch e.Kind {
	case events.KindFailed, events.KindTimeout, events.KindPollExhausted:
		return m.styles.err.Render(line)
	case events.KindCaptured, events.KindSignaled:
		return m.styles.idle.Render(line)
	default:
		return m.styles.dim.Render(line)
	}
}

func (m *tuiModel) hint(key, desc string) string {
	return m.styles.hintKey.Render(key) + " " + m.styles.hintDesc.Render(desc)
}

// truncate cuts a string to at most maxLen characters.
func truncate(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
