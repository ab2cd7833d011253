package viewmodel

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pledgeflow/internal/currentuser"
	"pkt.systems/pledgeflow/internal/eventbus"
	"pkt.systems/pledgeflow/internal/logx"
	"pkt.systems/pledgeflow/rx"
	"pkt.systems/pledgeflow/schema"
	"pkt.systems/pslog"
)

// ErrDestroyed is returned when a destroyed screen is created again.
var ErrDestroyed = errors.New("view-model destroyed")

type lifecycleState int

const (
	stateNew lifecycleState = iota
	stateCreated
	stateDestroyed
)

// Lifecycle ties a screen's pipelines to its create/destroy events. It owns
// the screen loop, the disposal bag and the context remote calls run under.
type Lifecycle struct {
	screen  string
	log     pslog.Logger
	user    *currentuser.CurrentUser
	signals SignalSink
	loop    *rx.Loop
	bag     rx.Bag
	bind    func(ctx context.Context)

	mu     sync.Mutex
	state  lifecycleState
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifecycle(screen string, env Environment, bind func(ctx context.Context)) *Lifecycle {
	log := logx.WithScreen(env.logger(), screen)
	return &Lifecycle{
		screen:  screen,
		log:     log,
		user:    env.CurrentUser,
		signals: env.Signals,
		loop:    rx.NewLoop(log),
		bind:    bind,
		ctx:     context.Background(),
	}
}

// Screen returns the screen name used in logs and signals.
func (l *Lifecycle) Screen() string {
	return l.screen
}

// Create wires the pipelines. It returns once they are subscribed. A second
// Create is a no-op.
func (l *Lifecycle) Create(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l.mu.Lock()
	switch l.state {
	case stateCreated:
		l.mu.Unlock()
		return nil
	case stateDestroyed:
		l.mu.Unlock()
		return ErrDestroyed
	}
	var userID schema.UserID
	if l.user != nil {
		if user, ok := l.user.User(); ok {
			userID = user.ID
		}
	}
	ctx = logx.ContextWithScreen(pslog.ContextWithLogger(ctx, l.log), l.screen)
	ctx = logx.ContextWithUserScreenLogger(ctx, logx.WithUserScreen(ctx, userID, l.screen), userID, l.screen)
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.state = stateCreated
	runCtx := l.ctx
	l.mu.Unlock()

	l.log.Debug("screen create")
	l.loop.Schedule(func() { l.bind(runCtx) })
	l.loop.Sync()
	return nil
}

// Destroy tears every subscription down and cancels in-flight calls. No
// output is published after Destroy returns. Destroy is idempotent.
func (l *Lifecycle) Destroy() {
	l.mu.Lock()
	if l.state == stateDestroyed {
		l.mu.Unlock()
		return
	}
	created := l.state == stateCreated
	l.state = stateDestroyed
	cancel := l.cancel
	l.mu.Unlock()

	if created {
		l.loop.Schedule(l.bag.Dispose)
		l.loop.Sync()
	}
	l.bag.Dispose()
	l.loop.Stop()
	if cancel != nil {
		cancel()
	}
	l.log.Debug("screen destroy")
}

// Sync waits until every input posted so far has been processed.
func (l *Lifecycle) Sync() {
	l.loop.Sync()
}

// Scheduler returns the screen loop.
func (l *Lifecycle) Scheduler() rx.Scheduler {
	return l.loop
}

// Context is canceled by Destroy.
func (l *Lifecycle) Context() context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ctx
}

func (l *Lifecycle) alive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateCreated
}

// post runs fn on the loop. Inputs before Create or after Destroy are dropped.
func (l *Lifecycle) post(fn func()) {
	if !l.alive() {
		l.log.Trace("input dropped", "reason", "screen not live")
		return
	}
	l.loop.Schedule(fn)
}

func (l *Lifecycle) keep(d rx.Disposable) {
	l.bag.Add(d)
}

// output returns an observer that publishes to b while the screen is live
// and mirrors each value to the signal sink.
func output[T any](l *Lifecycle, name string, kind eventbus.SignalType, b *rx.Behavior[T]) rx.Observer[T] {
	return func(v T) {
		if !l.alive() {
			return
		}
		l.log.Trace("screen output", "output", name)
		b.Next(v)
		if l.signals != nil {
			l.signals.OnSignal(eventbus.Signal{Type: kind, Screen: l.screen, Name: name, Value: v})
		}
	}
}

// subscribe subscribes obs to src for the lifetime of the screen.
func subscribe[T any](l *Lifecycle, src rx.Observable[T], obs rx.Observer[T]) {
	l.keep(src.Subscribe(obs))
}
