package rx

import (
	"sync"
	"sync/atomic"
)

// Observer receives values from an Observable.
type Observer[T any] func(T)

// Observable is a push-based source of values.
type Observable[T any] interface {
	Subscribe(fn Observer[T]) Disposable
}

// ObservableFunc adapts a subscribe function to Observable.
type ObservableFunc[T any] func(fn Observer[T]) Disposable

// Subscribe implements Observable.
func (f ObservableFunc[T]) Subscribe(fn Observer[T]) Disposable {
	if fn == nil {
		return Nop()
	}
	return f(fn)
}

type subscriber[T any] struct {
	id     uint64
	fn     Observer[T]
	active atomic.Bool
}

func (s *subscriber[T]) deliver(v T) {
	if s.active.Load() {
		s.fn(v)
	}
}

// subscriberSet is the shared bookkeeping behind Subject, Behavior and Call.
// Callers hold mu while mutating subs.
type subscriberSet[T any] struct {
	mu   sync.Mutex
	seq  uint64
	subs []*subscriber[T]
}

func (s *subscriberSet[T]) addLocked(fn Observer[T]) *subscriber[T] {
	s.seq++
	sub := &subscriber[T]{id: s.seq, fn: fn}
	sub.active.Store(true)
	s.subs = append(s.subs, sub)
	return sub
}

func (s *subscriberSet[T]) snapshotLocked() []*subscriber[T] {
	if len(s.subs) == 0 {
		return nil
	}
	return append([]*subscriber[T](nil), s.subs...)
}

func (s *subscriberSet[T]) remove(sub *subscriber[T]) {
	sub.active.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *subscriberSet[T]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func deliverAll[T any](subs []*subscriber[T], v T) {
	for _, sub := range subs {
		sub.deliver(v)
	}
}

// Subject is a fire-once source: Next reaches current subscribers only.
type Subject[T any] struct {
	set subscriberSet[T]
}

// NewSubject returns an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Next publishes v to every current subscriber in subscription order.
func (s *Subject[T]) Next(v T) {
	s.set.mu.Lock()
	subs := s.set.snapshotLocked()
	s.set.mu.Unlock()
	deliverAll(subs, v)
}

// Subscribe registers fn for future values.
func (s *Subject[T]) Subscribe(fn Observer[T]) Disposable {
	if fn == nil {
		return Nop()
	}
	s.set.mu.Lock()
	sub := s.set.addLocked(fn)
	s.set.mu.Unlock()
	return Once(func() { s.set.remove(sub) })
}

// Observers reports the number of live subscriptions.
func (s *Subject[T]) Observers() int {
	return s.set.count()
}

// Behavior is a latest-value source: new subscribers immediately receive the
// most recent value, if any.
type Behavior[T any] struct {
	set   subscriberSet[T]
	value T
	has   bool
}

// NewBehavior returns a Behavior with no value yet.
func NewBehavior[T any]() *Behavior[T] {
	return &Behavior[T]{}
}

// NewBehaviorWith returns a Behavior seeded with v.
func NewBehaviorWith[T any](v T) *Behavior[T] {
	return &Behavior[T]{value: v, has: true}
}

// Next stores v and publishes it to every current subscriber.
func (b *Behavior[T]) Next(v T) {
	b.set.mu.Lock()
	b.value = v
	b.has = true
	subs := b.set.snapshotLocked()
	b.set.mu.Unlock()
	deliverAll(subs, v)
}

// Value returns the latest value and whether one exists.
func (b *Behavior[T]) Value() (T, bool) {
	b.set.mu.Lock()
	defer b.set.mu.Unlock()
	return b.value, b.has
}

// Subscribe registers fn and replays the latest value to it.
func (b *Behavior[T]) Subscribe(fn Observer[T]) Disposable {
	if fn == nil {
		return Nop()
	}
	b.set.mu.Lock()
	sub := b.set.addLocked(fn)
	value, has := b.value, b.has
	b.set.mu.Unlock()
	if has {
		sub.deliver(value)
	}
	return Once(func() { b.set.remove(sub) })
}

// Observers reports the number of live subscriptions.
func (b *Behavior[T]) Observers() int {
	return b.set.count()
}

// Just emits the given values synchronously to each subscriber.
func Just[T any](values ...T) Observable[T] {
	return ObservableFunc[T](func(fn Observer[T]) Disposable {
		for _, v := range values {
			fn(v)
		}
		return Nop()
	})
}

// Never is a source that never emits.
func Never[T any]() Observable[T] {
	return ObservableFunc[T](func(fn Observer[T]) Disposable {
		return Nop()
	})
}
