package pipeline

import (
	"sync"
	"time"
)

// Task runs fn once the delay elapses after the most recent Schedule.
// Re-scheduling pushes the deadline out; Cancel drops the pending run;
// Flush runs a pending fn immediately.
type Task struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

func NewTask(delay time.Duration, fn func()) *Task {
	return &Task{delay: delay, fn: fn}
}

func (t *Task) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		t.fn()
	})
}

func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Flush fires a pending run right away. A no-op when nothing is
// scheduled.
func (t *Task) Flush() {
	t.mu.Lock()
	pending := t.timer != nil
	if pending {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	if pending {
		t.fn()
	}
}

// Pending reports whether a run is scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
