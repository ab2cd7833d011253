package rx

import (
	"context"
	"fmt"
)

// CallFunc is one pending remote operation.
type CallFunc[T any] func(ctx context.Context) (T, error)

// PanicError reports a panic raised inside a CallFunc.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("call panicked: %v", e.Value)
}

// Call wraps fn as a shared, materialized source.
//
// fn runs once, on its own goroutine, when the first observer subscribes. Every
// observer (including late ones, by replay) sees Running followed by exactly one
// Value or Error notification. busy receives true before Running and false after
// the terminal notification, exactly once each, whether fn succeeds, fails,
// panics or is canceled. When every observer disposes before fn returns, the
// context passed to fn is canceled; busy still receives false.
//
// All notifications and busy signals are delivered through sched; a nil sched
// delivers from the goroutine that produced them.
func Call[T any](ctx context.Context, sched Scheduler, fn CallFunc[T], busy ...Observer[bool]) Observable[Notification[T]] {
	if ctx == nil {
		ctx = context.Background()
	}
	if sched == nil {
		sched = Immediate
	}
	c := &call[T]{ctx: ctx, sched: sched, fn: fn, busy: busy}
	return ObservableFunc[Notification[T]](c.subscribe)
}

type call[T any] struct {
	ctx   context.Context
	sched Scheduler
	fn    CallFunc[T]
	busy  []Observer[bool]

	set     subscriberSet[Notification[T]]
	history []Notification[T]
	started bool
	done    bool
	cancel  context.CancelFunc
}

func (c *call[T]) subscribe(obs Observer[Notification[T]]) Disposable {
	// Replay history before registering so publish cannot overtake it. Anything
	// published during the replay is picked up by the next pass.
	var (
		sub      *subscriber[Notification[T]]
		start    bool
		runCtx   context.Context
		replayed int
	)
	for {
		c.set.mu.Lock()
		if replayed == len(c.history) {
			sub = c.set.addLocked(obs)
			start = !c.started
			if start {
				c.started = true
				runCtx, c.cancel = context.WithCancel(c.ctx)
			}
			c.set.mu.Unlock()
			break
		}
		pending := append([]Notification[T](nil), c.history[replayed:]...)
		c.set.mu.Unlock()
		for _, n := range pending {
			obs(n)
		}
		replayed += len(pending)
	}

	if start {
		c.sched.Schedule(func() {
			c.setBusy(true)
			c.publish(Running[T]())
		})
		go c.run(runCtx)
	}
	return Once(func() {
		c.set.remove(sub)
		c.set.mu.Lock()
		abandon := len(c.set.subs) == 0 && !c.done && c.cancel != nil
		cancel := c.cancel
		c.set.mu.Unlock()
		if abandon {
			cancel()
		}
	})
}

func (c *call[T]) run(ctx context.Context) {
	result, err := c.invoke(ctx)
	if err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	c.sched.Schedule(func() {
		if err != nil {
			c.publish(Failure[T](err))
		} else {
			c.publish(Value(result))
		}
		c.setBusy(false)
	})
}

func (c *call[T]) invoke(ctx context.Context) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	if c.fn == nil {
		return result, fmt.Errorf("call: nil function")
	}
	return c.fn(ctx)
}

func (c *call[T]) publish(n Notification[T]) {
	c.set.mu.Lock()
	c.history = append(c.history, n)
	terminal := !n.IsRunning()
	if terminal {
		c.done = true
	}
	subs := c.set.snapshotLocked()
	cancel := c.cancel
	c.set.mu.Unlock()
	deliverAll(subs, n)
	if terminal && cancel != nil {
		cancel()
	}
}

func (c *call[T]) setBusy(v bool) {
	for _, obs := range c.busy {
		if obs != nil {
			obs(v)
		}
	}
}
