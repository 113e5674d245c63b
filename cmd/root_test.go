package cmd

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/timvw/pane-conductor/internal/events"
	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
	"github.com/timvw/pane-conductor/internal/orchestrator"
	"github.com/timvw/pane-conductor/internal/topology"
)

// paneEntry is one pane of the fake server's layout.
type paneEntry struct {
	session string
	window  string
	index   int
	pane    int
}

// formatRunner renders tmux format strings against a fixed pane layout,
// the way a real server expands -F. Session mutations (new-session,
// new-window) grow the layout so bootstrap round trips work.
type formatRunner struct {
	layout []paneEntry
}

func (f *formatRunner) Run(_ context.Context, _ []byte, args ...string) (string, error) {
	flag := func(name string) string {
		for i, a := range args {
			if a == name && i+1 < len(args) {
				return args[i+1]
			}
		}
		return ""
	}

	switch args[0] {
	case "list-panes":
		session := flag("-t")
		format := flag("-F")
		var lines []string
		for _, p := range f.layout {
			if p.session != session {
				continue
			}
			line := format
			line = strings.ReplaceAll(line, "#{session_name}", p.session)
			line = strings.ReplaceAll(line, "#{window_name}", p.window)
			line = strings.ReplaceAll(line, "#{window_index}", strconv.Itoa(p.index))
			line = strings.ReplaceAll(line, "#{pane_index}", strconv.Itoa(p.pane))
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n"), nil
	case "new-session":
		f.layout = append(f.layout, paneEntry{session: flag("-s"), window: flag("-n")})
	case "new-window":
		f.layout = append(f.layout, paneEntry{
			session: flag("-t"),
			window:  flag("-n"),
			index:   len(f.layout),
		})
	}
	return "", nil
}

// workLayout mirrors what session up builds: windows named after roles,
// at arbitrary indices.
func workLayout() []paneEntry {
	return []paneEntry{
		{"work", "control", 0, 0},
		{"work", "orchestrator", 1, 0},
		{"work", "worker", 2, 0},
		{"work", "reviewer", 3, 0},
	}
}

func newTestOrchestrator(r mux.Runner) (*orchestrator.Orchestrator, *mux.Tmux) {
	m := mux.NewTmuxWithRunner(r)
	orc := orchestrator.New(m, topology.New(m), events.NewJournal(0), nil, orchestrator.DefaultOptions())
	return orc, m
}

// setMappingFlags points the package-level mapping flags at test values
// and restores them afterwards.
func setMappingFlags(t *testing.T, session string, maps []string) {
	t.Helper()
	prevSession, prevMaps := flagSession, flagMaps
	flagSession, flagMaps = session, maps
	t.Cleanup(func() { flagSession, flagMaps = prevSession, prevMaps })
}

func TestPopulateTopologyWindowNameConvention(t *testing.T) {
	setMappingFlags(t, "work", nil)
	orc, m := newTestOrchestrator(&formatRunner{layout: workLayout()})

	if err := populateTopology(context.Background(), orc, m); err != nil {
		t.Fatalf("populateTopology: %v", err)
	}

	for _, role := range []model.Role{"orchestrator", "worker", "reviewer"} {
		addr, err := orc.Topology().Resolve(role)
		if err != nil {
			t.Fatalf("resolve %s: %v", role, err)
		}
		want := model.PaneAddress{Session: "work", Window: string(role), Pane: 0}
		if addr != want {
			t.Errorf("resolve %s = %s, want %s", role, addr, want)
		}
	}
}

func TestPopulateTopologyExplicitMapWins(t *testing.T) {
	setMappingFlags(t, "work", []string{"worker=work:scratch.1"})
	orc, m := newTestOrchestrator(&formatRunner{layout: workLayout()})

	if err := populateTopology(context.Background(), orc, m); err != nil {
		t.Fatalf("populateTopology: %v", err)
	}

	addr, err := orc.Topology().Resolve("worker")
	if err != nil {
		t.Fatalf("resolve worker: %v", err)
	}
	if want := (model.PaneAddress{Session: "work", Window: "scratch", Pane: 1}); addr != want {
		t.Errorf("explicit --map lost to the window convention: got %s, want %s", addr, want)
	}

	// Unmapped roles still come from the window names.
	addr, err = orc.Topology().Resolve("reviewer")
	if err != nil {
		t.Fatalf("resolve reviewer: %v", err)
	}
	if want := (model.PaneAddress{Session: "work", Window: "reviewer", Pane: 0}); addr != want {
		t.Errorf("resolve reviewer = %s, want %s", addr, want)
	}
}

func TestPopulateTopologySkipsSecondaryPanes(t *testing.T) {
	layout := append(workLayout(), paneEntry{"work", "worker", 2, 1})
	setMappingFlags(t, "work", nil)
	orc, m := newTestOrchestrator(&formatRunner{layout: layout})

	if err := populateTopology(context.Background(), orc, m); err != nil {
		t.Fatalf("populateTopology: %v", err)
	}
	addr, err := orc.Topology().Resolve("worker")
	if err != nil {
		t.Fatalf("resolve worker: %v", err)
	}
	if addr.Pane != 0 {
		t.Errorf("worker bound to pane %d, want the window's first pane", addr.Pane)
	}
}

func TestPopulateTopologyRejectsMalformedMap(t *testing.T) {
	for _, bad := range []string{"worker", "=work:w.0", "worker=not-an-address"} {
		setMappingFlags(t, "work", []string{bad})
		orc, m := newTestOrchestrator(&formatRunner{layout: workLayout()})
		if err := populateTopology(context.Background(), orc, m); err == nil {
			t.Errorf("--map %q accepted, want error", bad)
		}
	}
}

func TestPopulateTopologyIgnoresForeignSessionWindows(t *testing.T) {
	// An explicit map binds the topology to its session; convention
	// windows from a different session are skipped, not fatal.
	setMappingFlags(t, "work", []string{"worker=other:main.0"})
	orc, m := newTestOrchestrator(&formatRunner{layout: workLayout()})

	if err := populateTopology(context.Background(), orc, m); err != nil {
		t.Fatalf("populateTopology: %v", err)
	}
	if _, err := orc.Topology().Resolve("worker"); err != nil {
		t.Fatalf("resolve worker: %v", err)
	}
	if _, err := orc.Topology().Resolve("reviewer"); err == nil {
		t.Error("reviewer registered across sessions, want unknown role")
	}
}

func TestSessionUpThenResolveRoundTrip(t *testing.T) {
	r := &formatRunner{}
	m := mux.NewTmuxWithRunner(r)
	ctx := context.Background()

	roles := []model.Role{"orchestrator", "worker"}
	booted, err := topology.Bootstrap(ctx, m, "work", roles, 0)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	// A fresh process resolving by convention must agree with what the
	// bootstrap registered.
	setMappingFlags(t, "work", nil)
	orc, _ := newTestOrchestrator(r)
	if err := populateTopology(ctx, orc, m); err != nil {
		t.Fatalf("populateTopology: %v", err)
	}
	for _, role := range roles {
		want, err := booted.Resolve(role)
		if err != nil {
			t.Fatalf("bootstrap resolve %s: %v", role, err)
		}
		got, err := orc.Topology().Resolve(role)
		if err != nil {
			t.Fatalf("convention resolve %s: %v", role, err)
		}
		if got != want {
			t.Errorf("resolve %s = %s, want %s", role, got, want)
		}
	}
}
