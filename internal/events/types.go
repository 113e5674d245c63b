package events

import (
	"fmt"
	"strings"
	"time"
)

// Event kinds, one per step of a task's lifecycle.
const (
	KindRegistered    = "registered"
	KindReassigned    = "reassigned"
	KindDispatched    = "dispatched"
	KindArmed         = "armed"
	KindSignaled      = "signaled"
	KindTimeout       = "timeout"
	KindPollExhausted = "poll_exhausted"
	KindCaptured      = "captured"
	KindFailed        = "failed"
)

// Event is one step in a task's lifecycle, recorded by the orchestrator
// or pushed in by a role pane over the journal socket.
type Event struct {
	Task   string    `json:"task"`
	Kind   string    `json:"kind"`
	Role   string    `json:"role,omitempty"`
	Target string    `json:"target"`
	TS     time.Time `json:"ts"`
	Detail string    `json:"detail,omitempty"`
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Task) == "" {
		return fmt.Errorf("task is required")
	}
	if !isValidKind(e.Kind) {
		return fmt.Errorf("invalid kind %q", e.Kind)
	}
	if !isValidTarget(e.Target) {
		return fmt.Errorf("invalid target %q", e.Target)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// IsTerminal reports whether the kind ends a task's lifecycle.
func IsTerminal(kind string) bool {
	switch kind {
	case KindCaptured, KindTimeout, KindPollExhausted, KindFailed:
		return true
	default:
		return false
	}
}

func isValidKind(kind string) bool {
	switch kind {
	case KindRegistered, KindReassigned, KindDispatched, KindArmed,
		KindSignaled, KindTimeout, KindPollExhausted, KindCaptured, KindFailed:
		return true
	default:
		return false
	}
}

// isValidTarget checks for the session:window.pane target format.
func isValidTarget(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	colon := strings.LastIndex(target, ":")
	if colon <= 0 || colon == len(target)-1 {
		return false
	}
	rest := target[colon+1:]
	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return false
	}
	return true
}
