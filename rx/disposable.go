package rx

import "sync"

// Disposable cancels a subscription.
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable.
type DisposeFunc func()

// Dispose implements Disposable.
func (f DisposeFunc) Dispose() {
	if f != nil {
		f()
	}
}

// Nop returns a Disposable that does nothing.
func Nop() Disposable {
	return DisposeFunc(nil)
}

type onceDisposable struct {
	once sync.Once
	fn   func()
}

func (d *onceDisposable) Dispose() {
	d.once.Do(func() {
		if d.fn != nil {
			d.fn()
		}
	})
}

// Once wraps fn so that it runs at most once however often Dispose is called.
func Once(fn func()) Disposable {
	return &onceDisposable{fn: fn}
}

// Composite disposes every child when disposed.
func Composite(children ...Disposable) Disposable {
	return Once(func() {
		for _, child := range children {
			if child != nil {
				child.Dispose()
			}
		}
	})
}

// Bag is a disposal bag: a scoped collection of subscriptions released together.
// Adding to a disposed bag disposes the item immediately.
type Bag struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add stores disposables for later release.
func (b *Bag) Add(items ...Disposable) {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		for _, item := range items {
			if item != nil {
				item.Dispose()
			}
		}
		return
	}
	for _, item := range items {
		if item != nil {
			b.items = append(b.items, item)
		}
	}
	b.mu.Unlock()
}

// Dispose releases every stored item in reverse order of addition. It is idempotent.
func (b *Bag) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	items := b.items
	b.items = nil
	b.mu.Unlock()
	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (b *Bag) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Len reports the number of held subscriptions.
func (b *Bag) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
