package topology

import (
	"context"
	"fmt"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
)

// DefaultScrollback is the retention provisioned for bootstrapped
// sessions. Full-history captures are bounded by this, so it is sized to
// hold the longest expected task output rather than the multiplexer's
// 2000-line default.
const DefaultScrollback = 50000

// controlWindow anchors a bootstrapped session. It is created before the
// retention option is applied, so role panes land in windows created
// afterwards and inherit the provisioned scrollback.
const controlWindow = "control"

// Bootstrap creates a detached session with one window per role and
// returns a Manager with every role registered. Each role maps to pane 0
// of a window named after it. A scrollback of 0 means DefaultScrollback.
func Bootstrap(ctx context.Context, sc mux.SessionController, session string, roles []model.Role, scrollback int) (*Manager, error) {
	if session == "" {
		return nil, fmt.Errorf("bootstrap: empty session name")
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("bootstrap %s: no roles", session)
	}
	if scrollback <= 0 {
		scrollback = DefaultScrollback
	}

	if err := sc.CreateSession(ctx, session, controlWindow); err != nil {
		return nil, err
	}
	if err := sc.SetScrollback(ctx, session, scrollback); err != nil {
		return nil, err
	}

	m := New(sc)
	for _, role := range roles {
		if err := sc.AddWindow(ctx, session, string(role)); err != nil {
			return nil, err
		}
		addr := model.PaneAddress{Session: session, Window: string(role), Pane: 0}
		if _, _, err := m.Register(role, addr); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Teardown destroys the session and clears the topology.
func Teardown(ctx context.Context, sc mux.SessionController, m *Manager) error {
	session := m.Session()
	m.UnregisterAll()
	if session == "" {
		return nil
	}
	return sc.KillSession(ctx, session)
}
