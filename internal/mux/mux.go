// Package mux provides an abstraction over terminal multiplexers (tmux,
// zellij).
//
// This package is pure transport: it moves bytes into panes, copies bytes
// out of them, and relays named signals. It never interprets pane content
// and never decides what a pane should do: escaping policy lives in the
// injector, completion policy in the synchronizer.
package mux

import (
	"context"

	"github.com/timvw/pane-conductor/internal/model"
)

// Multiplexer abstracts the primitive operations the orchestration core
// requires from a terminal multiplexer. Implementations exist for tmux
// and (future) zellij.
type Multiplexer interface {
	// Name returns the multiplexer name (e.g., "tmux", "zellij").
	Name() string

	// CurrentSession returns the name of the ambient session, i.e. the
	// session this process is running inside. Fails when invoked outside
	// a session context.
	CurrentSession(ctx context.Context) (string, error)

	// HasTarget reports whether the target pane currently exists.
	HasTarget(ctx context.Context, target string) bool

	// ListPanes returns the addresses of all panes in a session.
	ListPanes(ctx context.Context, session string) ([]model.PaneAddress, error)

	// SendLiteral types text into a pane with every character treated as
	// data. It does not submit the input line.
	SendLiteral(ctx context.Context, target, text string) error

	// SendKey presses a single named key (e.g. "Enter", "Escape", "C-c")
	// in a pane.
	SendKey(ctx context.Context, target, key string) error

	// Paste delivers text into a pane through the multiplexer's paste
	// buffer with bracketed paste, so embedded newlines arrive as data
	// rather than as line submissions.
	Paste(ctx context.Context, target, text string) error

	// ExitCopyMode leaves copy/scroll mode in a pane if it is active.
	// Copy mode intercepts input, preventing delivery to the foreground
	// process.
	ExitCopyMode(ctx context.Context, target string) error

	// Capture returns a pane's content as lines, oldest first. scrollback
	// selects how much history precedes the visible screen: 0 captures the
	// visible screen only, n > 0 includes the last n scrollback lines, and
	// ScrollbackAll captures the entire retained history.
	Capture(ctx context.Context, target string, scrollback int) ([]string, error)

	// EmitSignal fires the named one-shot signal, waking every waiter
	// currently blocked on it.
	EmitSignal(ctx context.Context, name string) error

	// EmitSignalCommand returns the shell command a pane can run to fire
	// the named signal, for chaining after a real command.
	EmitSignalCommand(name string) string

	// WaitSignal blocks until the named signal fires or ctx is done.
	WaitSignal(ctx context.Context, name string) error
}

// SessionController extends Multiplexer with session lifecycle operations
// used by the bootstrap layer. The orchestration core itself only needs
// Multiplexer.
type SessionController interface {
	Multiplexer

	// CreateSession creates a detached session whose first window has the
	// given name.
	CreateSession(ctx context.Context, session, window string) error

	// AddWindow adds a named window to an existing session.
	AddWindow(ctx context.Context, session, window string) error

	// SetScrollback provisions the scrollback retention for a session.
	// Callers that capture full history must size this to the longest
	// expected task output.
	SetScrollback(ctx context.Context, session string, lines int) error

	// KillSession destroys a session and every pane in it.
	KillSession(ctx context.Context, session string) error
}

// ScrollbackAll requests the entire retained history in Capture.
const ScrollbackAll = -1
