package observe

import "regexp"

// ansiRegex matches terminal control sequences:
//   - CSI sequences: ESC [ params letter (colors, cursor movement)
//   - OSC sequences: ESC ] ... terminated by BEL or ST (titles, hyperlinks)
//   - stray ESC bytes and carriage returns left over from redraws
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07\x1b]*(\x07|\x1b\\)|\x1b|\r`)

// StripControl removes terminal control sequences from a single line.
// Stripping is deterministic and touches in-line bytes only: callers apply
// it per line, so line count and ordering are never affected.
func StripControl(line string) string {
	return ansiRegex.ReplaceAllString(line, "")
}
