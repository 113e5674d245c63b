package mux

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/timvw/pane-conductor/internal/model"
)

// fakeRunner records tmux invocations and plays back canned responses.
type fakeRunner struct {
	calls   [][]string
	stdins  [][]byte
	outputs map[string]string // keyed by first arg (subcommand)
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeRunner) Run(_ context.Context, stdin []byte, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	f.stdins = append(f.stdins, stdin)
	if err, ok := f.errs[args[0]]; ok {
		return "", err
	}
	return f.outputs[args[0]], nil
}

func (f *fakeRunner) lastCall() []string {
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func TestSendLiteralSingleChunk(t *testing.T) {
	r := newFakeRunner()
	tm := NewTmuxWithRunner(r)

	if err := tm.SendLiteral(context.Background(), "work:main.1", "echo hi"); err != nil {
		t.Fatalf("SendLiteral: %v", err)
	}
	want := []string{"send-keys", "-t", "work:main.1", "-l", "echo hi"}
	if got := strings.Join(r.lastCall(), " "); got != strings.Join(want, " ") {
		t.Errorf("args = %q, want %q", got, strings.Join(want, " "))
	}
}

func TestSendLiteralChunksLargePayload(t *testing.T) {
	r := newFakeRunner()
	tm := NewTmuxWithRunner(r)

	payload := strings.Repeat("x", sendChunkSize*2+100)
	if err := tm.SendLiteral(context.Background(), "work:main.1", payload); err != nil {
		t.Fatalf("SendLiteral: %v", err)
	}
	if len(r.calls) != 3 {
		t.Fatalf("got %d send-keys calls, want 3", len(r.calls))
	}

	// Reassembled chunks must equal the original payload byte for byte.
	var rebuilt strings.Builder
	for _, call := range r.calls {
		rebuilt.WriteString(call[len(call)-1])
	}
	if rebuilt.String() != payload {
		t.Error("chunked payload does not reassemble to the original")
	}
}

func TestPasteUsesBracketedBuffer(t *testing.T) {
	r := newFakeRunner()
	tm := NewTmuxWithRunner(r)

	text := "line one\nline two\n"
	if err := tm.Paste(context.Background(), "work:main.1", text); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(r.calls) != 2 {
		t.Fatalf("got %d calls, want load-buffer + paste-buffer", len(r.calls))
	}
	if r.calls[0][0] != "load-buffer" {
		t.Errorf("first call = %v, want load-buffer", r.calls[0])
	}
	if string(r.stdins[0]) != text {
		t.Errorf("load-buffer stdin = %q, want %q", r.stdins[0], text)
	}
	paste := strings.Join(r.calls[1], " ")
	if !strings.Contains(paste, "paste-buffer") || !strings.Contains(paste, "-p") {
		t.Errorf("paste call %q missing bracketed paste flag", paste)
	}
	if !strings.Contains(paste, "-t work:main.1") {
		t.Errorf("paste call %q missing target", paste)
	}
}

func TestCaptureWindows(t *testing.T) {
	tests := []struct {
		name       string
		scrollback int
		wantFlag   string
	}{
		{name: "visible only", scrollback: 0, wantFlag: ""},
		{name: "recent scrollback", scrollback: 50, wantFlag: "-S -50"},
		{name: "full history", scrollback: ScrollbackAll, wantFlag: "-S -"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newFakeRunner()
			r.outputs["capture-pane"] = "one\ntwo\nthree"
			tm := NewTmuxWithRunner(r)

			lines, err := tm.Capture(context.Background(), "work:main.1", tt.scrollback)
			if err != nil {
				t.Fatalf("Capture: %v", err)
			}
			if len(lines) != 3 || lines[2] != "three" {
				t.Errorf("lines = %v", lines)
			}

			args := strings.Join(r.lastCall(), " ")
			if tt.wantFlag != "" && !strings.Contains(args, tt.wantFlag) {
				t.Errorf("args %q missing %q", args, tt.wantFlag)
			}
			if tt.wantFlag == "" && strings.Contains(args, "-S") {
				t.Errorf("args %q should not request scrollback", args)
			}
		})
	}
}

func TestCaptureFailure(t *testing.T) {
	r := newFakeRunner()
	r.errs["capture-pane"] = fmt.Errorf("can't find pane: work:main.9")
	tm := NewTmuxWithRunner(r)

	if _, err := tm.Capture(context.Background(), "work:main.9", 0); err == nil {
		t.Fatal("expected error for missing pane")
	}
}

func TestListPanes(t *testing.T) {
	r := newFakeRunner()
	r.outputs["list-panes"] = "work:control.0\nwork:worker.0\nwork:worker.1\n\ngarbage"
	tm := NewTmuxWithRunner(r)

	panes, err := tm.ListPanes(context.Background(), "work")
	if err != nil {
		t.Fatalf("ListPanes: %v", err)
	}
	want := []model.PaneAddress{
		{Session: "work", Window: "control", Pane: 0},
		{Session: "work", Window: "worker", Pane: 0},
		{Session: "work", Window: "worker", Pane: 1},
	}
	if len(panes) != len(want) {
		t.Fatalf("got %d panes, want %d", len(panes), len(want))
	}
	for i := range want {
		if panes[i] != want[i] {
			t.Errorf("pane[%d] = %+v, want %+v", i, panes[i], want[i])
		}
	}
}

func TestListPanesAddressesWindowsByName(t *testing.T) {
	r := newFakeRunner()
	tm := NewTmuxWithRunner(r)

	if _, err := tm.ListPanes(context.Background(), "work"); err != nil {
		t.Fatalf("ListPanes: %v", err)
	}
	// The window name, not its index, keys the role mapping convention:
	// bootstrapped sessions name one window per role.
	args := strings.Join(r.lastCall(), " ")
	if !strings.Contains(args, "#{window_name}") {
		t.Errorf("list-panes format %q addresses windows by index, want #{window_name}", args)
	}
}

func TestSignalPrimitives(t *testing.T) {
	r := newFakeRunner()
	tm := NewTmuxWithRunner(r)
	ctx := context.Background()

	if err := tm.EmitSignal(ctx, "task-abc"); err != nil {
		t.Fatalf("EmitSignal: %v", err)
	}
	if got := strings.Join(r.lastCall(), " "); got != "wait-for -S task-abc" {
		t.Errorf("emit args = %q", got)
	}

	if err := tm.WaitSignal(ctx, "task-abc"); err != nil {
		t.Fatalf("WaitSignal: %v", err)
	}
	if got := strings.Join(r.lastCall(), " "); got != "wait-for task-abc" {
		t.Errorf("wait args = %q", got)
	}
}

func TestWaitSignalCancellation(t *testing.T) {
	r := newFakeRunner()
	r.errs["wait-for"] = fmt.Errorf("signal 15")
	tm := NewTmuxWithRunner(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tm.WaitSignal(ctx, "task-abc")
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestExitCopyMode(t *testing.T) {
	r := newFakeRunner()
	r.outputs["display-message"] = "1"
	tm := NewTmuxWithRunner(r)

	if err := tm.ExitCopyMode(context.Background(), "work:main.1"); err != nil {
		t.Fatalf("ExitCopyMode: %v", err)
	}
	if got := strings.Join(r.lastCall(), " "); !strings.Contains(got, "-X cancel") {
		t.Errorf("expected copy-mode cancel, last call %q", got)
	}

	// Not in copy mode: no cancel is sent.
	r2 := newFakeRunner()
	r2.outputs["display-message"] = "0"
	tm2 := NewTmuxWithRunner(r2)
	if err := tm2.ExitCopyMode(context.Background(), "work:main.1"); err != nil {
		t.Fatalf("ExitCopyMode: %v", err)
	}
	if len(r2.calls) != 1 {
		t.Errorf("got %d calls, want only the mode query", len(r2.calls))
	}
}
