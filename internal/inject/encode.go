// Package inject turns command payloads into keystroke programs and plays
// them into panes.
//
// The encoding contract is explicit and two-mode: interpreted payloads may
// carry reserved key tokens ("Enter", "C-c", ...) as control signals, while
// literal payloads are pure data and are submitted by one separate explicit
// submit key. Encoding is a pure function so the escaping rules are unit
// testable without a terminal.
package inject

import (
	"fmt"
	"strings"

	"github.com/timvw/pane-conductor/internal/model"
)

// Keystroke is one step of an encoded injection program: either a run of
// literal data or a single named key press.
type Keystroke struct {
	// Text is the literal data, or the key name when Key is true.
	Text string
	// Key marks a named key press (sent without literal mode).
	Key bool
}

// SubmitKey is the control key that advances the target's input line.
const SubmitKey = "Enter"

// namedKeys are the multiplexer key names recognized as reserved tokens
// when they appear as standalone whitespace-delimited words in an
// interpreted payload.
var namedKeys = map[string]bool{
	"Enter": true, "Escape": true, "Tab": true, "BTab": true,
	"Space": true, "BSpace": true, "DC": true,
	"Up": true, "Down": true, "Left": true, "Right": true,
	"Home": true, "End": true, "PPage": true, "NPage": true,
}

// IsReservedToken reports whether a word is a reserved control token:
// a named key, a C-x (Ctrl) chord, or an M-x (Meta) chord.
func IsReservedToken(word string) bool {
	if namedKeys[word] {
		return true
	}
	if len(word) == 3 && (word[0] == 'C' || word[0] == 'M') && word[1] == '-' {
		return true
	}
	return false
}

// EscapeReserved wraps every standalone reserved token in single quotes so
// an interpreted encode treats it as data. Non-token words, including words
// already containing quotes, pass through untouched. Escaping then encoding
// yields the original bytes as data (round-trip property).
func EscapeReserved(text string) string {
	return mapWords(text, func(word string) string {
		if IsReservedToken(word) {
			return "'" + word + "'"
		}
		return word
	})
}

// ContainsReservedToken reports whether text carries an unescaped reserved
// token as a standalone word. Callers holding pure data that trips this
// check must dispatch in literal mode or escape first.
func ContainsReservedToken(text string) bool {
	found := false
	mapWords(text, func(word string) string {
		if IsReservedToken(word) {
			found = true
		}
		return word
	})
	return found
}

// Encode translates a payload into its keystroke program.
//
// Interpreted mode recognizes reserved tokens as key presses, unwraps
// quoted tokens ('Enter' -> data "Enter"), and ends with a submit key.
// Literal mode yields data-only programs: the dispatcher issues the
// explicit separate submit, because literal submission does not
// auto-advance input. SplitLines submits each line separately in both
// modes (the final literal line still relies on the dispatcher's explicit
// submit).
//
// Payloads carrying control bytes that would be reinterpreted by the
// terminal (ESC, CR, backspace, ...) cannot be encoded safely in either
// mode and are rejected.
func Encode(p model.CommandPayload) ([]Keystroke, error) {
	if err := checkControlBytes(p.Text); err != nil {
		return nil, err
	}

	switch p.Mode {
	case model.ModeLiteral:
		return encodeLiteral(p), nil
	case model.ModeInterpreted:
		return encodeInterpreted(p), nil
	default:
		return nil, fmt.Errorf("unknown payload mode %v", p.Mode)
	}
}

func encodeLiteral(p model.CommandPayload) []Keystroke {
	if !p.SplitLines {
		if p.Text == "" {
			return nil
		}
		return []Keystroke{{Text: p.Text}}
	}

	var ops []Keystroke
	lines := strings.Split(p.Text, "\n")
	for i, line := range lines {
		if line != "" {
			ops = append(ops, Keystroke{Text: line})
		}
		// Submit every line except the last: the dispatcher's explicit
		// submit closes out the final one.
		if i < len(lines)-1 {
			ops = append(ops, Keystroke{Text: SubmitKey, Key: true})
		}
	}
	return ops
}

func encodeInterpreted(p model.CommandPayload) []Keystroke {
	var ops []Keystroke
	if p.SplitLines {
		for _, line := range strings.Split(p.Text, "\n") {
			ops = append(ops, encodeInterpretedText(line)...)
			ops = appendSubmit(ops)
		}
		return ops
	}
	ops = encodeInterpretedText(p.Text)
	return appendSubmit(ops)
}

// appendSubmit adds the submit key unless the program already ends with it.
func appendSubmit(ops []Keystroke) []Keystroke {
	if n := len(ops); n > 0 && ops[n-1].Key && ops[n-1].Text == SubmitKey {
		return ops
	}
	return append(ops, Keystroke{Text: SubmitKey, Key: true})
}

// encodeInterpretedText scans text word by word. A standalone reserved
// token becomes a key press (the single delimiting space on each side is
// consumed as control framing); a quoted reserved token contributes the
// bare token as data; everything else, whitespace included, is preserved
// byte for byte.
func encodeInterpretedText(text string) []Keystroke {
	var (
		ops  []Keystroke
		data strings.Builder
	)

	flush := func() {
		if data.Len() > 0 {
			ops = append(ops, Keystroke{Text: data.String()})
			data.Reset()
		}
	}

	i := 0
	for i < len(text) {
		start := i
		for i < len(text) && !isDelim(text[i]) {
			i++
		}
		word := text[start:i]

		switch {
		case IsReservedToken(word):
			// Drop the single delimiter that framed the token.
			trimControlSpace(&data)
			flush()
			ops = append(ops, Keystroke{Text: word, Key: true})
			if i < len(text) {
				i++ // consume one trailing delimiter
			}
			continue
		case isQuotedToken(word):
			data.WriteString(word[1 : len(word)-1])
		default:
			data.WriteString(word)
		}

		for i < len(text) && isDelim(text[i]) {
			data.WriteByte(text[i])
			i++
		}
	}
	flush()
	return ops
}

// isQuotedToken reports whether word is a single-quoted reserved token,
// the escaping convention produced by EscapeReserved. Ordinary quoted data
// ('hi there') is left alone because its content is not a token.
func isQuotedToken(word string) bool {
	if len(word) < 3 || word[0] != '\'' || word[len(word)-1] != '\'' {
		return false
	}
	return IsReservedToken(word[1 : len(word)-1])
}

// trimControlSpace removes one trailing delimiter from the data builder.
func trimControlSpace(data *strings.Builder) {
	s := data.String()
	if n := len(s); n > 0 && isDelim(s[n-1]) {
		data.Reset()
		data.WriteString(s[:n-1])
	}
}

// mapWords applies fn to every whitespace-delimited word of text while
// preserving the exact inter-word whitespace (spaces and tabs). Newlines
// count as delimiters too, so tokens are recognized per line.
func mapWords(text string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(text))

	i := 0
	for i < len(text) {
		start := i
		for i < len(text) && !isDelim(text[i]) {
			i++
		}
		b.WriteString(fn(text[start:i]))
		for i < len(text) && isDelim(text[i]) {
			b.WriteByte(text[i])
			i++
		}
	}
	return b.String()
}

func isDelim(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n'
}

// checkControlBytes rejects payload bytes the terminal would reinterpret
// regardless of literal mode: ESC starts escape sequences, CR acts as a
// premature submit, BS and DEL destroy preceding input. Newlines and tabs
// are legitimate data (newlines travel via bracketed paste).
func checkControlBytes(text string) error {
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			continue
		case r < 0x20 || r == 0x7f:
			return fmt.Errorf("payload contains control byte %#02x, which the terminal would reinterpret", r)
		}
	}
	return nil
}
