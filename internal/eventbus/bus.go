package eventbus

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
)

// SignalType identifies how a renderer should treat a signal.
type SignalType string

const (
	// SignalOutput carries a regular view-model output.
	SignalOutput SignalType = "output"
	// SignalError carries a user-facing error message.
	SignalError SignalType = "error"
	// SignalProgress carries a busy/idle transition.
	SignalProgress SignalType = "progress"
)

// Signal is one UI-facing output emitted by a screen.
type Signal struct {
	Type   SignalType
	Screen string
	Name   string
	Value  any
	At     time.Time
}

// Bus fans signals out to per-screen subscribers.
type Bus struct {
	mu    sync.Mutex
	subs  map[string]map[chan Signal]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[string]map[chan Signal]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the screen and returns a channel + cancel.
func (b *Bus) Subscribe(screen string) (<-chan Signal, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Signal, b.depth)
	b.mu.Lock()
	screenSubs := b.subs[screen]
	if screenSubs == nil {
		screenSubs = make(map[chan Signal]struct{})
		b.subs[screen] = screenSubs
	}
	screenSubs[ch] = struct{}{}
	count := len(screenSubs)
	b.mu.Unlock()
	b.log.With("screen", screen).Debug("eventbus subscribe", "subs", count)
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if subs := b.subs[screen]; subs != nil {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, screen)
				}
			}
			close(ch)
			b.mu.Unlock()
			b.log.With("screen", screen).Debug("eventbus unsubscribe")
		})
	}
}

// OnSignal publishes a signal to the subscribers of its screen.
func (b *Bus) OnSignal(signal Signal) {
	if b == nil {
		return
	}
	if signal.At.IsZero() {
		signal.At = time.Now()
	}
	if signal.Type == "" {
		signal.Type = SignalOutput
	}
	b.mu.Lock()
	screenSubs := b.subs[signal.Screen]
	dropped := 0
	for sub := range screenSubs {
		select {
		case sub <- signal:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.With("screen", signal.Screen).Trace("eventbus dropped", "signal", signal.Name, "count", dropped)
	}
}

// Subscribers reports the number of subscribers for screen.
func (b *Bus) Subscribers(screen string) int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[screen])
}
