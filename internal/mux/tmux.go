package mux

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/timvw/pane-conductor/internal/model"
)

// Runner executes a tmux command with optional stdin data and returns its
// stdout. It exists so tests can substitute a fake transport.
type Runner interface {
	Run(ctx context.Context, stdin []byte, args ...string) (string, error)
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct{}

// Run executes tmux with the given arguments and returns trimmed stdout.
// On failure the error includes tmux's stderr, which carries the actual
// diagnostic ("can't find pane", "no server running", ...).
func (ExecRunner) Run(ctx context.Context, stdin []byte, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "tmux", args...)
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("%w: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// sendChunkSize caps the argument length of a single send-keys -l call.
// Larger payloads are sent in chunks to stay clear of argument length
// limits and the TTY input buffer.
const sendChunkSize = 512

// Tmux implements Multiplexer and SessionController for tmux.
type Tmux struct {
	runner Runner
}

// NewTmux creates a tmux multiplexer using the default exec runner.
func NewTmux() *Tmux {
	return &Tmux{runner: ExecRunner{}}
}

// NewTmuxWithRunner creates a tmux multiplexer with a custom runner.
func NewTmuxWithRunner(r Runner) *Tmux {
	return &Tmux{runner: r}
}

// Name returns "tmux".
func (t *Tmux) Name() string {
	return "tmux"
}

// CurrentSession returns the name of the session this process runs inside.
// It requires the $TMUX environment variable: the session lookup is only
// unambiguous from within a client.
func (t *Tmux) CurrentSession(ctx context.Context) (string, error) {
	if os.Getenv("TMUX") == "" {
		return "", fmt.Errorf("not inside a tmux session ($TMUX is unset)")
	}
	out, err := t.runner.Run(ctx, nil, "display-message", "-p", "#{session_name}")
	if err != nil {
		return "", fmt.Errorf("tmux display-message: %w", err)
	}
	session := strings.TrimSpace(out)
	if session == "" {
		return "", fmt.Errorf("tmux reported an empty session name")
	}
	return session, nil
}

// HasTarget reports whether the target pane exists.
func (t *Tmux) HasTarget(ctx context.Context, target string) bool {
	_, err := t.runner.Run(ctx, nil, "display-message", "-t", target, "-p", "#{pane_id}")
	return err == nil
}

// ListPanes returns the addresses of all panes in a session. Windows are
// addressed by name, not index, so the addresses line up with the layout
// the bootstrap layer creates (one window named after each role).
func (t *Tmux) ListPanes(ctx context.Context, session string) ([]model.PaneAddress, error) {
	format := "#{session_name}:#{window_name}.#{pane_index}"
	out, err := t.runner.Run(ctx, nil, "list-panes", "-s", "-t", session, "-F", format)
	if err != nil {
		return nil, fmt.Errorf("tmux list-panes -t %s: %w", session, err)
	}

	var panes []model.PaneAddress
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		addr, err := model.ParseAddress(line)
		if err != nil {
			continue
		}
		panes = append(panes, addr)
	}
	return panes, nil
}

// SendLiteral types text into a pane using send-keys -l so every character
// is data. Payloads above sendChunkSize are sent in chunks.
func (t *Tmux) SendLiteral(ctx context.Context, target, text string) error {
	for start := 0; start < len(text); start += sendChunkSize {
		end := start + sendChunkSize
		if end > len(text) {
			end = len(text)
		}
		if _, err := t.runner.Run(ctx, nil, "send-keys", "-t", target, "-l", text[start:end]); err != nil {
			return fmt.Errorf("tmux send-keys -l -t %s: %w", target, err)
		}
	}
	return nil
}

// SendKey presses a single named key in a pane.
func (t *Tmux) SendKey(ctx context.Context, target, key string) error {
	if _, err := t.runner.Run(ctx, nil, "send-keys", "-t", target, key); err != nil {
		return fmt.Errorf("tmux send-keys -t %s %s: %w", target, key, err)
	}
	return nil
}

// Paste delivers text through a named paste buffer with bracketed paste
// (-p), so embedded newlines arrive as data instead of line submissions.
// The buffer is deleted after pasting (-d) to avoid accumulating buffers.
func (t *Tmux) Paste(ctx context.Context, target, text string) error {
	buf := "conductor-" + uuid.NewString()
	if _, err := t.runner.Run(ctx, []byte(text), "load-buffer", "-b", buf, "-"); err != nil {
		return fmt.Errorf("tmux load-buffer: %w", err)
	}
	if _, err := t.runner.Run(ctx, nil, "paste-buffer", "-p", "-d", "-b", buf, "-t", target); err != nil {
		return fmt.Errorf("tmux paste-buffer -t %s: %w", target, err)
	}
	return nil
}

// ExitCopyMode leaves copy/scroll mode in a pane if it is active.
func (t *Tmux) ExitCopyMode(ctx context.Context, target string) error {
	out, err := t.runner.Run(ctx, nil, "display-message", "-t", target, "-p", "#{pane_in_mode}")
	if err != nil {
		return fmt.Errorf("tmux display-message -t %s: %w", target, err)
	}
	if strings.TrimSpace(out) != "1" {
		return nil
	}
	if _, err := t.runner.Run(ctx, nil, "send-keys", "-t", target, "-X", "cancel"); err != nil {
		return fmt.Errorf("tmux send-keys -X cancel -t %s: %w", target, err)
	}
	return nil
}

// Capture returns a pane's content as lines, oldest first.
// Uses -p (stdout) and -J (join wrapped lines).
func (t *Tmux) Capture(ctx context.Context, target string, scrollback int) ([]string, error) {
	args := []string{"capture-pane", "-t", target, "-p", "-J"}
	switch {
	case scrollback == ScrollbackAll:
		args = append(args, "-S", "-")
	case scrollback > 0:
		args = append(args, "-S", strconv.Itoa(-scrollback))
	}
	out, err := t.runner.Run(ctx, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("tmux capture-pane -t %s: %w", target, err)
	}
	return strings.Split(out, "\n"), nil
}

// EmitSignal fires a named signal via wait-for -S, waking every waiter
// blocked on that name. Emitting with no waiter present is a no-op.
func (t *Tmux) EmitSignal(ctx context.Context, name string) error {
	if _, err := t.runner.Run(ctx, nil, "wait-for", "-S", name); err != nil {
		return fmt.Errorf("tmux wait-for -S %s: %w", name, err)
	}
	return nil
}

// EmitSignalCommand returns the shell command a pane runs to fire a named
// signal. Chained after a real command ("cmd; tmux wait-for -S name") it
// emits on the command's natural exit.
func (t *Tmux) EmitSignalCommand(name string) string {
	return "tmux wait-for -S " + name
}

// WaitSignal blocks until the named signal fires. Cancelling ctx kills the
// underlying wait-for client, which abandons the wait without touching the
// process that was going to emit the signal.
func (t *Tmux) WaitSignal(ctx context.Context, name string) error {
	if _, err := t.runner.Run(ctx, nil, "wait-for", name); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tmux wait-for %s: %w", name, err)
	}
	return nil
}

// CreateSession creates a detached session whose first window has the
// given name.
func (t *Tmux) CreateSession(ctx context.Context, session, window string) error {
	args := []string{"new-session", "-d", "-s", session}
	if window != "" {
		args = append(args, "-n", window)
	}
	if _, err := t.runner.Run(ctx, nil, args...); err != nil {
		return fmt.Errorf("tmux new-session -s %s: %w", session, err)
	}
	return nil
}

// AddWindow adds a named window to an existing session.
func (t *Tmux) AddWindow(ctx context.Context, session, window string) error {
	if _, err := t.runner.Run(ctx, nil, "new-window", "-t", session, "-n", window); err != nil {
		return fmt.Errorf("tmux new-window -t %s: %w", session, err)
	}
	return nil
}

// SetScrollback sets the history-limit for a session. Only panes created
// after the option is set pick it up, so the bootstrap layer calls this
// before creating role windows.
func (t *Tmux) SetScrollback(ctx context.Context, session string, lines int) error {
	if _, err := t.runner.Run(ctx, nil, "set-option", "-t", session, "history-limit", strconv.Itoa(lines)); err != nil {
		return fmt.Errorf("tmux set-option history-limit: %w", err)
	}
	return nil
}

// KillSession destroys a session and every pane in it.
func (t *Tmux) KillSession(ctx context.Context, session string) error {
	if _, err := t.runner.Run(ctx, nil, "kill-session", "-t", session); err != nil {
		return fmt.Errorf("tmux kill-session -t %s: %w", session, err)
	}
	return nil
}

// Verify interface implementations at compile time.
var (
	_ Multiplexer       = (*Tmux)(nil)
	_ SessionController = (*Tmux)(nil)
)
