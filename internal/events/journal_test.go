package events

import (
	"testing"
	"time"
)

func evt(task, kind string, ts time.Time) Event {
	return Event{Task: task, Kind: kind, Role: "worker", Target: "work:main.1", TS: ts}
}

func TestJournal_AppendAndSnapshot(t *testing.T) {
	now := time.Now().UTC()
	j := NewJournal(5 * time.Minute)
	j.Append(evt("t1", KindDispatched, now.Add(time.Second)))
	j.Append(evt("t1", KindRegistered, now))

	got := j.Snapshot(now.Add(time.Second))
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Kind != KindRegistered || got[1].Kind != KindDispatched {
		t.Fatalf("snapshot not in timestamp order: %s, %s", got[0].Kind, got[1].Kind)
	}
}

func TestJournal_TTLPrunes(t *testing.T) {
	now := time.Now().UTC()
	j := NewJournal(time.Minute)
	j.Append(evt("t1", KindDispatched, now.Add(-2*time.Minute)))
	j.Append(evt("t2", KindDispatched, now))

	got := j.Snapshot(now)
	if len(got) != 1 {
		t.Fatalf("expected 1 live event, got %d", len(got))
	}
	if got[0].Task != "t2" {
		t.Fatalf("expected t2 to survive, got %s", got[0].Task)
	}
}

func TestJournal_ForTask(t *testing.T) {
	now := time.Now().UTC()
	j := NewJournal(0)
	j.Append(evt("t1", KindDispatched, now))
	j.Append(evt("t2", KindDispatched, now))
	j.Append(evt("t1", KindSignaled, now.Add(time.Second)))

	got := j.ForTask(now.Add(time.Second), "t1")
	if len(got) != 2 {
		t.Fatalf("expected 2 events for t1, got %d", len(got))
	}
	if got[1].Kind != KindSignaled {
		t.Fatalf("expected signaled last, got %s", got[1].Kind)
	}
}

func TestJournal_OpenTasks(t *testing.T) {
	now := time.Now().UTC()
	j := NewJournal(0)
	j.Append(evt("t1", KindDispatched, now))
	j.Append(evt("t1", KindCaptured, now.Add(time.Second)))
	j.Append(evt("t2", KindDispatched, now))
	j.Append(evt("t3", KindDispatched, now))
	j.Append(evt("t3", KindTimeout, now.Add(time.Second)))

	open := j.Open(now.Add(time.Second))
	if len(open) != 1 || open[0] != "t2" {
		t.Fatalf("expected open tasks [t2], got %v", open)
	}
}

func TestEvent_Validate(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name string
		e    Event
		ok   bool
	}{
		{"valid", evt("t1", KindDispatched, now), true},
		{"missing task", Event{Kind: KindDispatched, Target: "s:w.0", TS: now}, false},
		{"bad kind", Event{Task: "t1", Kind: "exploded", Target: "s:w.0", TS: now}, false},
		{"bad target", Event{Task: "t1", Kind: KindDispatched, Target: "nope", TS: now}, false},
		{"zero ts", Event{Task: "t1", Kind: KindDispatched, Target: "s:w.0"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.e.Validate()
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("Validate accepted invalid event")
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, kind := range []string{KindCaptured, KindTimeout, KindPollExhausted, KindFailed} {
		if !IsTerminal(kind) {
			t.Errorf("%s should be terminal", kind)
		}
	}
	for _, kind := range []string{KindRegistered, KindDispatched, KindArmed, KindSignaled} {
		if IsTerminal(kind) {
			t.Errorf("%s should not be terminal", kind)
		}
	}
}
