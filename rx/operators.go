package rx

import "sync"

// Map transforms every value with fn.
func Map[T, R any](src Observable[T], fn func(T) R) Observable[R] {
	return ObservableFunc[R](func(obs Observer[R]) Disposable {
		return src.Subscribe(func(v T) { obs(fn(v)) })
	})
}

// Filter forwards values for which keep returns true.
func Filter[T any](src Observable[T], keep func(T) bool) Observable[T] {
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		return src.Subscribe(func(v T) {
			if keep(v) {
				obs(v)
			}
		})
	})
}

// DistinctUntilChanged drops values equal to the previously forwarded one.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return DistinctUntilChangedFunc(src, func(a, b T) bool { return a == b })
}

// DistinctUntilChangedFunc drops values that equal reports as the previous one.
func DistinctUntilChangedFunc[T any](src Observable[T], equal func(a, b T) bool) Observable[T] {
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		var mu sync.Mutex
		var last T
		has := false
		return src.Subscribe(func(v T) {
			mu.Lock()
			if has && equal(last, v) {
				mu.Unlock()
				return
			}
			last, has = v, true
			mu.Unlock()
			obs(v)
		})
	})
}

// StartWith emits values to each subscriber before subscribing to src.
func StartWith[T any](src Observable[T], values ...T) Observable[T] {
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		for _, v := range values {
			obs(v)
		}
		return src.Subscribe(obs)
	})
}

// Merge interleaves the values of every source.
func Merge[T any](srcs ...Observable[T]) Observable[T] {
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		subs := make([]Disposable, 0, len(srcs))
		for _, src := range srcs {
			subs = append(subs, src.Subscribe(obs))
		}
		return Composite(subs...)
	})
}

// Pair holds two values emitted together.
type Pair[A, B any] struct {
	First  A
	Second B
}

// WithLatestFrom combines each src value with the latest value of other.
// Values of src arriving before other has emitted are dropped.
func WithLatestFrom[T, U, R any](src Observable[T], other Observable[U], fn func(T, U) R) Observable[R] {
	return ObservableFunc[R](func(obs Observer[R]) Disposable {
		var mu sync.Mutex
		var latest U
		has := false
		otherSub := other.Subscribe(func(u U) {
			mu.Lock()
			latest, has = u, true
			mu.Unlock()
		})
		srcSub := src.Subscribe(func(v T) {
			mu.Lock()
			u, ok := latest, has
			mu.Unlock()
			if ok {
				obs(fn(v, u))
			}
		})
		return Composite(srcSub, otherSub)
	})
}

// TakeWhen emits the latest state value every time trigger fires. Triggers that
// arrive before state has produced a value are dropped.
func TakeWhen[S, E any](state Observable[S], trigger Observable[E]) Observable[S] {
	return WithLatestFrom(trigger, state, func(_ E, s S) S { return s })
}

// TakePairWhen emits the latest state value paired with the trigger payload.
func TakePairWhen[S, E any](state Observable[S], trigger Observable[E]) Observable[Pair[S, E]] {
	return WithLatestFrom(trigger, state, func(e E, s S) Pair[S, E] { return Pair[S, E]{First: s, Second: e} })
}

// SwitchMap maps every value to an inner source and mirrors only the most
// recent one; the previous inner subscription is disposed on each new value.
func SwitchMap[T, R any](src Observable[T], fn func(T) Observable[R]) Observable[R] {
	return ObservableFunc[R](func(obs Observer[R]) Disposable {
		var mu sync.Mutex
		var inner Disposable
		var gen uint64
		stopped := false
		outer := src.Subscribe(func(v T) {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			gen++
			current := gen
			prev := inner
			inner = nil
			mu.Unlock()
			if prev != nil {
				prev.Dispose()
			}
			next := fn(v).Subscribe(func(r R) {
				mu.Lock()
				live := current == gen && !stopped
				mu.Unlock()
				if live {
					obs(r)
				}
			})
			mu.Lock()
			if current == gen && !stopped {
				inner = next
				mu.Unlock()
				return
			}
			mu.Unlock()
			next.Dispose()
		})
		return Once(func() {
			outer.Dispose()
			mu.Lock()
			stopped = true
			prev := inner
			inner = nil
			mu.Unlock()
			if prev != nil {
				prev.Dispose()
			}
		})
	})
}

// Share multicasts src: the first subscriber connects to src, later ones join
// the same upstream subscription, and the last one to leave disconnects it.
func Share[T any](src Observable[T]) Observable[T] {
	var mu sync.Mutex
	subject := NewSubject[T]()
	var upstream Disposable
	refs := 0
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		sub := subject.Subscribe(obs)
		mu.Lock()
		refs++
		connect := refs == 1
		mu.Unlock()
		if connect {
			conn := src.Subscribe(subject.Next)
			mu.Lock()
			if refs > 0 && upstream == nil {
				upstream = conn
				conn = nil
			}
			mu.Unlock()
			if conn != nil {
				conn.Dispose()
			}
		}
		return Once(func() {
			sub.Dispose()
			mu.Lock()
			refs--
			var conn Disposable
			if refs == 0 {
				conn = upstream
				upstream = nil
			}
			mu.Unlock()
			if conn != nil {
				conn.Dispose()
			}
		})
	})
}

// Void is the payload of zero-data signals such as taps.
type Void struct{}

// Ignore maps every value to Void.
func Ignore[T any](src Observable[T]) Observable[Void] {
	return Map(src, func(T) Void { return Void{} })
}

// ObserveOn delivers every value of src through sched.
func ObserveOn[T any](src Observable[T], sched Scheduler) Observable[T] {
	if sched == nil {
		return src
	}
	return ObservableFunc[T](func(obs Observer[T]) Disposable {
		return src.Subscribe(func(v T) {
			sched.Schedule(func() { obs(v) })
		})
	})
}
