package rx

import "sync"

// CombineLatest2 applies fn to the latest values of a and b whenever either
// changes. Nothing is emitted until both have produced a value.
//
// Results are delivered one at a time in the order they were computed, even
// when a and b emit from different goroutines, so the last delivery is always
// the newest combination. A result computed while the observer is running is
// queued and delivered after it returns.
func CombineLatest2[A, B, R any](a Observable[A], b Observable[B], fn func(A, B) R) Observable[R] {
	return ObservableFunc[R](func(obs Observer[R]) Disposable {
		var (
			mu       sync.Mutex
			va       A
			vb       B
			hasA     bool
			hasB     bool
			queue    []R
			draining bool
		)
		emit := func() {
			if !hasA || !hasB {
				mu.Unlock()
				return
			}
			queue = append(queue, fn(va, vb))
			if draining {
				mu.Unlock()
				return
			}
			draining = true
			for len(queue) > 0 {
				next := queue[0]
				queue = queue[1:]
				mu.Unlock()
				obs(next)
				mu.Lock()
			}
			draining = false
			mu.Unlock()
		}
		subA := a.Subscribe(func(v A) {
			mu.Lock()
			va, hasA = v, true
			emit()
		})
		subB := b.Subscribe(func(v B) {
			mu.Lock()
			vb, hasB = v, true
			emit()
		})
		return Composite(subA, subB)
	})
}

// CombineLatest3 is CombineLatest2 over three sources.
func CombineLatest3[A, B, C, R any](a Observable[A], b Observable[B], c Observable[C], fn func(A, B, C) R) Observable[R] {
	ab := CombineLatest2(a, b, func(va A, vb B) Pair[A, B] { return Pair[A, B]{First: va, Second: vb} })
	return CombineLatest2(ab, c, func(p Pair[A, B], vc C) R { return fn(p.First, p.Second, vc) })
}

// CombineLatestPair pairs the latest values of a and b.
func CombineLatestPair[A, B any](a Observable[A], b Observable[B]) Observable[Pair[A, B]] {
	return CombineLatest2(a, b, func(va A, vb B) Pair[A, B] { return Pair[A, B]{First: va, Second: vb} })
}
