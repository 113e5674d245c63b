// Package topology owns the mapping of logical roles to pane addresses.
//
// The mapping lives in exactly one physical session. Nesting a
// multiplexer inside a pane of another makes addresses ambiguous, so a
// registration that would span a second session is rejected rather than
// recorded. Reads never block each other; writes are serialized.
package topology

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/timvw/pane-conductor/internal/model"
	"github.com/timvw/pane-conductor/internal/mux"
)

// UnknownRoleError reports a lookup for a role that was never registered.
// Resolution never creates topology entries; registration is a separate,
// explicit operation.
type UnknownRoleError struct {
	Role model.Role
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("resolve %s: role not registered", e.Role)
}

// NoAmbientSessionError reports a session lookup made outside any active
// session context.
type NoAmbientSessionError struct {
	Err error
}

func (e *NoAmbientSessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no ambient session: %v", e.Err)
	}
	return "no ambient session"
}

func (e *NoAmbientSessionError) Unwrap() error {
	return e.Err
}

// SessionSpanError reports a registration that would stretch the topology
// across a second physical session.
type SessionSpanError struct {
	Have string
	Want string
}

func (e *SessionSpanError) Error() string {
	return fmt.Sprintf("topology is bound to session %q, refusing pane in %q", e.Have, e.Want)
}

// Manager maps roles to pane addresses within a single session.
type Manager struct {
	mux mux.Multiplexer

	mu      sync.RWMutex
	session string
	roles   map[model.Role]model.PaneAddress
}

// New creates an empty Manager. The first registration binds it to that
// pane's session.
func New(m mux.Multiplexer) *Manager {
	return &Manager{
		mux:   m,
		roles: make(map[model.Role]model.PaneAddress),
	}
}

// Register maps a role to a pane, overwriting any prior mapping. The
// previous address and whether one existed are returned so the caller can
// log the reassignment. Registering a pane from a different session than
// the one the topology is bound to fails with SessionSpanError.
func (m *Manager) Register(role model.Role, addr model.PaneAddress) (model.PaneAddress, bool, error) {
	if role == "" {
		return model.PaneAddress{}, false, fmt.Errorf("register: empty role")
	}
	if err := addr.Validate(); err != nil {
		return model.PaneAddress{}, false, fmt.Errorf("register %s: %w", role, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == "" {
		m.session = addr.Session
	} else if addr.Session != m.session {
		return model.PaneAddress{}, false, &SessionSpanError{Have: m.session, Want: addr.Session}
	}

	prev, replaced := m.roles[role]
	m.roles[role] = addr
	return prev, replaced, nil
}

// Resolve returns the pane a role maps to. The address is structural, not
// a live handle: if the session was resized or panes renumbered since
// registration, the caller must re-register before dispatching.
func (m *Manager) Resolve(role model.Role) (model.PaneAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addr, ok := m.roles[role]
	if !ok {
		return model.PaneAddress{}, &UnknownRoleError{Role: role}
	}
	return addr, nil
}

// Session returns the session the topology is bound to, or "" when no
// role has been registered yet.
func (m *Manager) Session() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Roles returns the registered roles in sorted order.
func (m *Manager) Roles() []model.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()

	roles := make([]model.Role, 0, len(m.roles))
	for role := range m.roles {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// UnregisterAll clears every mapping and unbinds the session. Called at
// session teardown.
func (m *Manager) UnregisterAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles = make(map[model.Role]model.PaneAddress)
	m.session = ""
}

// CurrentSession returns the name of the session this process runs
// inside. Fails with NoAmbientSessionError outside a session.
func (m *Manager) CurrentSession(ctx context.Context) (string, error) {
	name, err := m.mux.CurrentSession(ctx)
	if err != nil {
		return "", &NoAmbientSessionError{Err: err}
	}
	if name == "" {
		return "", &NoAmbientSessionError{}
	}
	return name, nil
}
