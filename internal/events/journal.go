// Package events keeps an in-memory journal of task lifecycle steps.
//
// The journal is append-only with time-based expiry. It exists for
// operators: the events CLI verb and the watch TUI read it to show what
// each role pane has been asked to do and how it ended.
package events

import (
	"sort"
	"sync"
	"time"
)

type Journal struct {
	mu   sync.Mutex
	ttl  time.Duration
	data []Event
}

// NewJournal creates a journal whose entries expire after ttl. A ttl of
// zero keeps entries forever.
func NewJournal(ttl time.Duration) *Journal {
	return &Journal{ttl: ttl}
}

// Append records one lifecycle step.
func (j *Journal) Append(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.data = append(j.data, e)
}

// Snapshot returns the live entries ordered by timestamp, then by task
// for entries recorded in the same instant. Expired entries are pruned.
func (j *Journal) Snapshot(now time.Time) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.pruneLocked(now)

	result := make([]Event, len(j.data))
	copy(result, j.data)
	sort.Slice(result, func(i, k int) bool {
		if result[i].TS.Equal(result[k].TS) {
			return result[i].Task < result[k].Task
		}
		return result[i].TS.Before(result[k].TS)
	})
	return result
}

// ForTask returns the live entries of one task in timestamp order.
func (j *Journal) ForTask(now time.Time, task string) []Event {
	all := j.Snapshot(now)
	result := all[:0:0]
	for _, e := range all {
		if e.Task == task {
			result = append(result, e)
		}
	}
	return result
}

// Open returns the tasks that have entries but no terminal entry yet.
func (j *Journal) Open(now time.Time) []string {
	all := j.Snapshot(now)

	open := make(map[string]bool)
	for _, e := range all {
		if IsTerminal(e.Kind) {
			open[e.Task] = false
			continue
		}
		if _, seen := open[e.Task]; !seen {
			open[e.Task] = true
		}
	}

	var tasks []string
	for task, isOpen := range open {
		if isOpen {
			tasks = append(tasks, task)
		}
	}
	sort.Strings(tasks)
	return tasks
}

func (j *Journal) pruneLocked(now time.Time) {
	if j.ttl <= 0 {
		return
	}
	live := j.data[:0]
	for _, e := range j.data {
		if now.Sub(e.TS) <= j.ttl {
			live = append(live, e)
		}
	}
	j.data = live
}
