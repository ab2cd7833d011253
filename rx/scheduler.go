package rx

import (
	"context"
	"fmt"
	"sync"

	"pkt.systems/pslog"
)

// Scheduler decides where delivery work runs.
type Scheduler interface {
	Schedule(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(fn func()) { f(fn) }

// Immediate runs work on the calling goroutine.
var Immediate Scheduler = SchedulerFunc(func(fn func()) { fn() })

// Loop runs scheduled work one item at a time on a dedicated goroutine, in the
// order it was scheduled. It plays the role of a UI thread: every output of a
// screen is delivered from its Loop.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
	log     pslog.Logger
}

// NewLoop starts a Loop.
func NewLoop(logger pslog.Logger) *Loop {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		log:  logger,
	}
	go l.run()
	return l
}

// Schedule queues fn. Work scheduled after Stop is dropped.
func (l *Loop) Schedule(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Sync blocks until everything scheduled before the call has run.
// It must not be called from the loop goroutine.
func (l *Loop) Sync() {
	marker := make(chan struct{})
	l.Schedule(func() { close(marker) })
	select {
	case <-marker:
	case <-l.done:
	}
}

// Stop discards pending work and ends the loop goroutine. It does not wait.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.stopped = true
	l.queue = nil
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			return
		}
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			<-l.wake
			continue
		}
		for _, fn := range batch {
			if l.isStopped() {
				return
			}
			l.runOne(fn)
		}
	}
}

func (l *Loop) runOne(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Warn("rx loop task panicked", "panic", fmt.Sprint(r))
		}
	}()
	fn()
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}
