package topology

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/timvw/pane-conductor/internal/model"
)

type fakeMux struct {
	session    string
	sessionErr error

	mu      sync.Mutex
	created []string
	windows []string
	scroll  int
	killed  []string
}

func (f *fakeMux) Name() string { return "fake" }

func (f *fakeMux) CurrentSession(context.Context) (string, error) {
	return f.session, f.sessionErr
}

func (f *fakeMux) HasTarget(context.Context, string) bool { return true }
func (f *fakeMux) ListPanes(context.Context, string) ([]model.PaneAddress, error) {
	return nil, nil
}
func (f *fakeMux) SendLiteral(context.Context, string, string) error { return nil }
func (f *fakeMux) SendKey(context.Context, string, string) error     { return nil }
func (f *fakeMux) Paste(context.Context, string, string) error       { return nil }
func (f *fakeMux) ExitCopyMode(context.Context, string) error        { return nil }
func (f *fakeMux) EmitSignal(context.Context, string) error          { return nil }
func (f *fakeMux) EmitSignalCommand(name string) string              { return "emit " + name }
func (f *fakeMux) WaitSignal(context.Context, string) error          { return nil }
func (f *fakeMux) Capture(context.Context, string, int) ([]string, error) {
	return nil, nil
}

func (f *fakeMux) CreateSession(_ context.Context, session, window string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, session+":"+window)
	return nil
}

func (f *fakeMux) AddWindow(_ context.Context, session, window string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = append(f.windows, session+":"+window)
	return nil
}

func (f *fakeMux) SetScrollback(_ context.Context, _ string, lines int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scroll = lines
	return nil
}

func (f *fakeMux) KillSession(_ context.Context, session string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, session)
	return nil
}

func addr(window string, pane int) model.PaneAddress {
	return model.PaneAddress{Session: "work", Window: window, Pane: pane}
}

func TestRegisterAndResolve(t *testing.T) {
	m := New(&fakeMux{})

	if _, _, err := m.Register(model.RoleWorker, addr("main", 1)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := m.Resolve(model.RoleWorker)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.String() != "work:main.1" {
		t.Fatalf("Resolve = %s, want work:main.1", got)
	}
	if m.Session() != "work" {
		t.Fatalf("Session = %q, want work", m.Session())
	}
}

func TestResolveUnknownRole(t *testing.T) {
	m := New(&fakeMux{})

	_, err := m.Resolve(model.RoleReviewer)
	var ur *UnknownRoleError
	if !errors.As(err, &ur) {
		t.Fatalf("Resolve error = %v, want UnknownRoleError", err)
	}
	if ur.Role != model.RoleReviewer {
		t.Fatalf("error role = %s, want reviewer", ur.Role)
	}

	// Resolution must not have created an entry.
	if len(m.Roles()) != 0 {
		t.Fatalf("Roles after failed resolve = %v, want none", m.Roles())
	}
}

func TestRegisterReportsReassignment(t *testing.T) {
	m := New(&fakeMux{})

	if _, replaced, _ := m.Register(model.RoleWorker, addr("main", 1)); replaced {
		t.Fatal("first registration reported as reassignment")
	}

	prev, replaced, err := m.Register(model.RoleWorker, addr("main", 2))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !replaced || prev.String() != "work:main.1" {
		t.Fatalf("reassignment = (%s, %v), want (work:main.1, true)", prev, replaced)
	}

	got, _ := m.Resolve(model.RoleWorker)
	if got.Pane != 2 {
		t.Fatalf("Resolve after reassignment = %s, want pane 2", got)
	}
}

func TestRegisterRejectsSecondSession(t *testing.T) {
	m := New(&fakeMux{})
	if _, _, err := m.Register(model.RoleWorker, addr("main", 1)); err != nil {
		t.Fatalf("Register: %v", err)
	}

	other := model.PaneAddress{Session: "other", Window: "main", Pane: 0}
	_, _, err := m.Register(model.RoleReviewer, other)
	var span *SessionSpanError
	if !errors.As(err, &span) {
		t.Fatalf("cross-session register = %v, want SessionSpanError", err)
	}
	if span.Have != "work" || span.Want != "other" {
		t.Fatalf("span = %q/%q, want work/other", span.Have, span.Want)
	}
}

func TestUnregisterAllUnbindsSession(t *testing.T) {
	m := New(&fakeMux{})
	m.Register(model.RoleWorker, addr("main", 1))
	m.Register(model.RoleReviewer, addr("review", 0))

	m.UnregisterAll()

	if len(m.Roles()) != 0 || m.Session() != "" {
		t.Fatalf("after UnregisterAll: roles=%v session=%q", m.Roles(), m.Session())
	}

	// A fresh registration may bind a different session now.
	other := model.PaneAddress{Session: "other", Window: "main", Pane: 0}
	if _, _, err := m.Register(model.RoleWorker, other); err != nil {
		t.Fatalf("Register after UnregisterAll: %v", err)
	}
}

func TestRolesSorted(t *testing.T) {
	m := New(&fakeMux{})
	m.Register(model.RoleWorker, addr("w", 0))
	m.Register(model.RoleOrchestrator, addr("o", 0))
	m.Register(model.RoleReviewer, addr("r", 0))

	roles := m.Roles()
	want := []model.Role{model.RoleOrchestrator, model.RoleReviewer, model.RoleWorker}
	if len(roles) != len(want) {
		t.Fatalf("Roles = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("Roles = %v, want %v", roles, want)
		}
	}
}

func TestCurrentSessionOutsideSession(t *testing.T) {
	m := New(&fakeMux{sessionErr: fmt.Errorf("not inside tmux or zellij")})

	_, err := m.CurrentSession(context.Background())
	var na *NoAmbientSessionError
	if !errors.As(err, &na) {
		t.Fatalf("CurrentSession error = %v, want NoAmbientSessionError", err)
	}
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	m := New(&fakeMux{})
	m.Register(model.RoleWorker, addr("main", 1))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(pane int) {
			defer wg.Done()
			m.Register(model.RoleWorker, addr("main", pane))
		}(i)
		go func() {
			defer wg.Done()
			if _, err := m.Resolve(model.RoleWorker); err != nil {
				t.Errorf("Resolve: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestBootstrapCreatesRoleWindows(t *testing.T) {
	fm := &fakeMux{}
	roles := []model.Role{model.RoleOrchestrator, model.RoleWorker}

	m, err := Bootstrap(context.Background(), fm, "work", roles, 0)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if len(fm.created) != 1 || fm.created[0] != "work:control" {
		t.Fatalf("created = %v, want [work:control]", fm.created)
	}
	if fm.scroll != DefaultScrollback {
		t.Fatalf("scrollback = %d, want %d", fm.scroll, DefaultScrollback)
	}
	if len(fm.windows) != 2 || fm.windows[0] != "work:orchestrator" || fm.windows[1] != "work:worker" {
		t.Fatalf("windows = %v", fm.windows)
	}

	got, err := m.Resolve(model.RoleWorker)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.String() != "work:worker.0" {
		t.Fatalf("worker pane = %s, want work:worker.0", got)
	}
}

func TestBootstrapRequiresRoles(t *testing.T) {
	if _, err := Bootstrap(context.Background(), &fakeMux{}, "work", nil, 0); err == nil {
		t.Fatal("Bootstrap with no roles succeeded")
	}
}

func TestTeardownKillsSessionAndClears(t *testing.T) {
	fm := &fakeMux{}
	m, err := Bootstrap(context.Background(), fm, "work", []model.Role{model.RoleWorker}, 100)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	if err := Teardown(context.Background(), fm, m); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	if len(fm.killed) != 1 || fm.killed[0] != "work" {
		t.Fatalf("killed = %v, want [work]", fm.killed)
	}
	if len(m.Roles()) != 0 {
		t.Fatalf("roles after teardown = %v", m.Roles())
	}
}
