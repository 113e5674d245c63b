package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaneAddress identifies a terminal multiplexer pane structurally
// (session + window + pane index) rather than by a transient handle.
// Addresses must be re-resolved if the session is resized or panes
// are renumbered.
type PaneAddress struct {
	// Session is the session name.
	Session string `json:"session"`
	// Window is the window name or index. tmux accepts both forms in a
	// target, so it is kept verbatim as a string.
	Window string `json:"window"`
	// Pane is the pane index within the window.
	Pane int `json:"pane"`
}

// ParseAddress parses a "session:window.pane" target into a PaneAddress.
// The session name may itself contain ':' and the window name may contain
// '.', so both separators are matched from the right.
func ParseAddress(target string) (PaneAddress, error) {
	colonIdx := strings.LastIndex(target, ":")
	if colonIdx <= 0 {
		return PaneAddress{}, fmt.Errorf("invalid target %q: missing ':'", target)
	}

	session := target[:colonIdx]
	rest := target[colonIdx+1:]

	dotIdx := strings.LastIndex(rest, ".")
	if dotIdx <= 0 {
		return PaneAddress{}, fmt.Errorf("invalid target %q: missing '.'", target)
	}

	pane, err := strconv.Atoi(rest[dotIdx+1:])
	if err != nil {
		return PaneAddress{}, fmt.Errorf("invalid pane index in %q: %w", target, err)
	}

	addr := PaneAddress{
		Session: session,
		Window:  rest[:dotIdx],
		Pane:    pane,
	}
	if err := addr.Validate(); err != nil {
		return PaneAddress{}, fmt.Errorf("invalid target %q: %w", target, err)
	}
	return addr, nil
}

// String formats the address back into the "session:window.pane" form.
func (a PaneAddress) String() string {
	return fmt.Sprintf("%s:%s.%d", a.Session, a.Window, a.Pane)
}

// Validate checks the structural invariants: non-empty session and window,
// non-negative pane index.
func (a PaneAddress) Validate() error {
	if strings.TrimSpace(a.Session) == "" {
		return fmt.Errorf("empty session name")
	}
	if strings.TrimSpace(a.Window) == "" {
		return fmt.Errorf("empty window")
	}
	if a.Pane < 0 {
		return fmt.Errorf("negative pane index %d", a.Pane)
	}
	return nil
}

// IsZero reports whether the address is the zero value (no pane assigned).
func (a PaneAddress) IsZero() bool {
	return a == PaneAddress{}
}

// Role names a logical seat in the session (who the pane is, not where).
// Each role maps to exactly one PaneAddress at any instant.
type Role string

// Well-known roles. The set is open: callers may register additional roles.
const (
	RoleOrchestrator Role = "orchestrator"
	RoleWorker       Role = "worker"
	RoleReviewer     Role = "reviewer"
)

// Mode selects how a payload's bytes are treated during injection.
type Mode int

const (
	// ModeInterpreted treats standalone reserved tokens (e.g. "Enter",
	// "C-c") embedded in the payload as control keys. Data that happens
	// to match a token must be escaped first, or the target's input
	// stream is corrupted.
	ModeInterpreted Mode = iota
	// ModeLiteral treats every byte as data. Literal submission does not
	// auto-advance input: the injector issues one explicit submit key as
	// a separate step.
	ModeLiteral
)

// String returns the mode name for logs and errors.
func (m Mode) String() string {
	switch m {
	case ModeInterpreted:
		return "interpreted"
	case ModeLiteral:
		return "literal"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// CommandPayload is the text handed to the injector plus its encoding mode.
type CommandPayload struct {
	// Text is the raw payload.
	Text string `json:"text"`
	// Mode selects interpreted or literal handling of Text.
	Mode Mode `json:"mode"`
	// SplitLines requests line-at-a-time submission: each line of Text is
	// sent and submitted separately, for multi-step scripted input. When
	// false (default), embedded line breaks are preserved as data.
	SplitLines bool `json:"split_lines,omitempty"`
}

// OutputSnapshot is an immutable capture of a pane's output. It is created
// fresh per observation call and never mutated after being returned.
type OutputSnapshot struct {
	// Target is the captured pane.
	Target PaneAddress `json:"target"`
	// Lines holds the captured output in pane order.
	Lines []string `json:"lines"`
	// CapturedAt is the capture timestamp.
	CapturedAt time.Time `json:"captured_at"`
	// Stripped indicates ANSI/control sequences were removed from Lines.
	Stripped bool `json:"stripped"`
}

// Text joins the snapshot lines with newlines.
func (s OutputSnapshot) Text() string {
	return strings.Join(s.Lines, "\n")
}

// LastNonEmpty returns the last line with non-whitespace content, or ""
// if the snapshot has none.
func (s OutputSnapshot) LastNonEmpty() string {
	for i := len(s.Lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(s.Lines[i]) != "" {
			return s.Lines[i]
		}
	}
	return ""
}

// CompletionSignal is a named one-shot event tied to the pane that will
// emit it. It is created before dispatch and consumed exactly once by a
// matching wait.
type CompletionSignal struct {
	// Name is the signal name. Unique per outstanding task so a stale
	// emission can never wake a different task's wait.
	Name string `json:"name"`
	// Target is the pane expected to emit the signal.
	Target PaneAddress `json:"target"`
}

// NewCompletionSignal creates a signal with a unique name for the target.
func NewCompletionSignal(target PaneAddress) CompletionSignal {
	return CompletionSignal{
		Name:   "task-" + uuid.NewString(),
		Target: target,
	}
}
