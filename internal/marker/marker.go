// Package marker provides deterministic busy predicates for the idle
// poller.
//
// Each predicate recognizes a concrete "still running" indicator in a
// pane's captured output: a spinner glyph, an interrupt hint, a progress
// line, or the absence of a shell prompt. These are protocol patterns,
// not heuristics: TUI agents and shells render known strings, and only
// the bottom of the screen is examined so stale indicators in scrollback
// cannot hold a task busy forever.
package marker

import (
	"strings"

	"github.com/timvw/pane-conductor/internal/completion"
	"github.com/timvw/pane-conductor/internal/model"
)

// bottomLines is the number of non-empty lines from the bottom of the
// captured content to examine. Small enough that indicators from prior
// turns are excluded, large enough for status bars and multi-line
// progress displays.
const bottomLines = 8

// bottomNonEmpty returns the last n non-empty (after trimming) lines,
// skipping trailing blank lines that terminals usually have.
func bottomNonEmpty(lines []string, n int) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	start := end - n
	if start < 0 {
		start = 0
	}
	return lines[start:end]
}

func scanBottom(snap model.OutputSnapshot, match func(trimmed string) bool) bool {
	for _, line := range bottomNonEmpty(snap.Lines, bottomLines) {
		if match(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// Spinner matches the braille spinner runes TUI agents animate while a
// tool call is in flight.
func Spinner() completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		return scanBottom(snap, func(trimmed string) bool {
			for _, r := range trimmed {
				if r >= '⠋' && r <= '⠿' {
					return true
				}
			}
			return false
		})
	}
}

// InterruptHint matches the "esc to interrupt" footer agents show while
// executing.
func InterruptHint() completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		return scanBottom(snap, func(trimmed string) bool {
			lower := strings.ToLower(trimmed)
			return strings.Contains(lower, "esc to interrupt") ||
				strings.Contains(lower, "esc interrupt")
		})
	}
}

// Progress matches ellipsis-terminated progress lines ("Running…",
// "Fetching...") near the bottom of the screen.
func Progress() completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		return scanBottom(snap, func(trimmed string) bool {
			return strings.HasSuffix(trimmed, "…") || strings.HasSuffix(trimmed, "...")
		})
	}
}

// Contains matches while the given string appears in the bottom lines.
func Contains(s string) completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		return scanBottom(snap, func(trimmed string) bool {
			return strings.Contains(trimmed, s)
		})
	}
}

// MissingPrompt reports busy until the last non-empty line ends with the
// given shell prompt suffix (e.g. "$", "%", ">"). Suited to plain shell
// panes where a returned prompt means the command finished.
func MissingPrompt(prompt string) completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		last := strings.TrimSpace(snap.LastNonEmpty())
		return !strings.HasSuffix(last, prompt)
	}
}

// Any combines predicates: busy while any of them matches.
func Any(fns ...completion.BusyFunc) completion.BusyFunc {
	return func(snap model.OutputSnapshot) bool {
		for _, fn := range fns {
			if fn(snap) {
				return true
			}
		}
		return false
	}
}

// Default covers the common agent indicators: a spinner or an interrupt
// hint anywhere in the bottom lines.
func Default() completion.BusyFunc {
	return Any(Spinner(), InterruptHint())
}
