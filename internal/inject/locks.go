package inject

import (
	"sync"
	"time"
)

// TargetLocks serializes access to pane targets. Each target gets a
// size-one channel semaphore: send to acquire, receive to release. The
// orchestration layer holds a lock for the whole dispatch-through-wait
// span of a task; the injector holds one for the duration of a single
// keystroke program.
type TargetLocks struct {
	locks sync.Map // target string -> chan struct{}
}

// NewTargetLocks creates an empty lock table.
func NewTargetLocks() *TargetLocks {
	return &TargetLocks{}
}

func (l *TargetLocks) sem(target string) chan struct{} {
	sem := make(chan struct{}, 1)
	actual, _ := l.locks.LoadOrStore(target, sem)
	return actual.(chan struct{})
}

// Acquire takes the lock for a target, waiting up to timeout. A zero
// timeout means detect-only: contention fails immediately instead of
// queueing. Returns a release function, or a ConcurrentDispatchError when
// the lock could not be taken.
func (l *TargetLocks) Acquire(target string, timeout time.Duration) (func(), error) {
	sem := l.sem(target)

	if timeout <= 0 {
		select {
		case sem <- struct{}{}:
		default:
			return nil, &ConcurrentDispatchError{Target: target}
		}
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case sem <- struct{}{}:
		case <-timer.C:
			return nil, &ConcurrentDispatchError{Target: target}
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-sem })
	}, nil
}
