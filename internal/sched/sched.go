// Package sched runs delayed callbacks behind cancellable handles.
package sched

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies one scheduled callback.
type Handle uint64

// Scheduler schedules fire-and-forget callbacks.
type Scheduler interface {
	// After runs fn once d has elapsed unless the handle is cancelled first.
	After(d time.Duration, fn func()) Handle
	// Cancel stops a pending callback. It reports whether one was pending.
	Cancel(h Handle) bool
	// CancelAll stops every pending callback and returns how many there were.
	CancelAll() int
	// Pending returns the number of callbacks not yet run or cancelled.
	Pending() int
}

// Timers is a Scheduler backed by time.AfterFunc.
// Callbacks run on their own goroutines; callers serialize state access.
type Timers struct {
	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

func NewTimers() *Timers {
	return &Timers{timers: make(map[Handle]*time.Timer)}
}

func (t *Timers) After(d time.Duration, fn func()) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := t.next
	t.timers[h] = time.AfterFunc(d, func() {
		t.mu.Lock()
		_, live := t.timers[h]
		delete(t.timers, h)
		t.mu.Unlock()
		if live {
			fn()
		}
	})
	return h
}

func (t *Timers) Cancel(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.timers[h]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.timers, h)
	return true
}

func (t *Timers) CancelAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.timers)
	for h, timer := range t.timers {
		timer.Stop()
		delete(t.timers, h)
	}
	return n
}

func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

type task struct {
	handle Handle
	due    time.Duration
	fn     func()
}

// Manual is a Scheduler driven by a virtual clock. Nothing runs until
// Advance is called; due callbacks run on the caller's goroutine in due
// order, ties broken by scheduling order.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	next  Handle
	tasks map[Handle]task
}

func NewManual() *Manual {
	return &Manual{tasks: make(map[Handle]task)}
}

func (m *Manual) After(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.next++
	m.tasks[m.next] = task{handle: m.next, due: m.now + d, fn: fn}
	return m.next
}

func (m *Manual) Cancel(h Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[h]
	delete(m.tasks, h)
	return ok
}

func (m *Manual) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.tasks)
	m.tasks = make(map[Handle]task)
	return n
}

func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Elapsed returns the virtual time advanced so far.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d, running every callback that becomes
// due, including ones scheduled by callbacks within the window. It returns
// the number of callbacks run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	ran := 0
	for {
		m.mu.Lock()
		t, ok := m.earliest(target)
		if !ok {
			m.now = target
			m.mu.Unlock()
			return ran
		}
		delete(m.tasks, t.handle)
		m.now = t.due
		m.mu.Unlock()
		t.fn()
		ran++
	}
}

func (m *Manual) earliest(limit time.Duration) (task, bool) {
	due := make([]task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if t.due <= limit {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return task{}, false
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].handle < due[j].handle
	})
	return due[0], true
}
