package rx

import (
	"reflect"
	"sync"
	"testing"
)

func TestMapFilterDistinct(t *testing.T) {
	s := NewSubject[int]()
	out := DistinctUntilChanged(Map(Filter[int](s, func(v int) bool { return v >= 0 }), func(v int) int { return v / 10 }))
	rec, sub := Record(out)
	defer sub.Dispose()
	for _, v := range []int{1, 5, -3, 12, 19, 3, 30} {
		s.Next(v)
	}
	if got := rec.Values(); !reflect.DeepEqual(got, []int{0, 1, 0, 3}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestCombineLatestWaitsForAllSources(t *testing.T) {
	a := NewSubject[string]()
	b := NewSubject[int]()
	rec, sub := Record(CombineLatest2[string, int](a, b, func(s string, n int) string {
		return s + ":" + string(rune('0'+n))
	}))
	defer sub.Dispose()
	a.Next("x")
	a.Next("y")
	if rec.Len() != 0 {
		t.Fatalf("expected no emission before both sources emit")
	}
	b.Next(1)
	a.Next("z")
	b.Next(2)
	if got := rec.Values(); !reflect.DeepEqual(got, []string{"y:1", "z:1", "z:2"}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestCombineLatestSavePasswordEnabled(t *testing.T) {
	newPassword := NewSubject[string]()
	confirm := NewSubject[string]()
	enabled := CombineLatest2(StartWith[string](newPassword, ""), StartWith[string](confirm, ""), func(p, c string) bool {
		return len(p) >= 6 && len(c) >= 6 && p == c
	})
	rec, sub := Record(DistinctUntilChanged(enabled))
	defer sub.Dispose()

	newPassword.Next("secret1")
	confirm.Next("secret")
	confirm.Next("secret1")
	newPassword.Next("secret12")
	newPassword.Next("secret1")
	if got := rec.Values(); !reflect.DeepEqual(got, []bool{false, true, false, true}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestCombineLatest3(t *testing.T) {
	a, b, c := NewSubject[int](), NewSubject[int](), NewSubject[int]()
	rec, sub := Record(CombineLatest3[int, int, int](a, b, c, func(x, y, z int) int { return x + y + z }))
	defer sub.Dispose()
	a.Next(1)
	b.Next(2)
	c.Next(3)
	a.Next(10)
	if got := rec.Values(); !reflect.DeepEqual(got, []int{6, 15}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestTakeWhenDropsTriggersBeforeState(t *testing.T) {
	state := NewSubject[string]()
	trigger := NewSubject[Void]()
	rec, sub := Record(TakeWhen[string, Void](state, trigger))
	defer sub.Dispose()
	trigger.Next(Void{})
	state.Next("a")
	state.Next("b")
	trigger.Next(Void{})
	trigger.Next(Void{})
	state.Next("c")
	if got := rec.Values(); !reflect.DeepEqual(got, []string{"b", "b"}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestTakePairWhen(t *testing.T) {
	state := NewBehaviorWith("card")
	trigger := NewSubject[int]()
	rec, sub := Record(TakePairWhen[string, int](state, trigger))
	defer sub.Dispose()
	trigger.Next(4)
	want := []Pair[string, int]{{First: "card", Second: 4}}
	if got := rec.Values(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestSwitchMapDisposesPreviousInner(t *testing.T) {
	src := NewSubject[int]()
	inners := map[int]*Subject[string]{1: NewSubject[string](), 2: NewSubject[string]()}
	rec, sub := Record(SwitchMap[int, string](src, func(k int) Observable[string] { return inners[k] }))
	src.Next(1)
	inners[1].Next("one")
	src.Next(2)
	inners[1].Next("stale")
	inners[2].Next("two")
	if inners[1].Observers() != 0 {
		t.Fatalf("expected first inner to be disposed")
	}
	sub.Dispose()
	if inners[2].Observers() != 0 {
		t.Fatalf("expected second inner to be disposed")
	}
	if got := rec.Values(); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestShareConnectsOnce(t *testing.T) {
	subscribes := 0
	src := NewSubject[int]()
	counted := ObservableFunc[int](func(obs Observer[int]) Disposable {
		subscribes++
		return src.Subscribe(obs)
	})
	shared := Share[int](counted)
	r1, d1 := Record(shared)
	r2, d2 := Record(shared)
	src.Next(1)
	if subscribes != 1 {
		t.Fatalf("expected a single upstream subscription, got %d", subscribes)
	}
	d1.Dispose()
	src.Next(2)
	d2.Dispose()
	if src.Observers() != 0 {
		t.Fatalf("expected upstream disconnect after last observer left")
	}
	if !reflect.DeepEqual(r1.Values(), []int{1}) || !reflect.DeepEqual(r2.Values(), []int{1, 2}) {
		t.Fatalf("unexpected values: %v %v", r1.Values(), r2.Values())
	}
}

func TestMergeAndWithLatestFrom(t *testing.T) {
	a, b := NewSubject[int](), NewSubject[int]()
	rec, sub := Record(Merge[int](a, b))
	a.Next(1)
	b.Next(2)
	sub.Dispose()
	a.Next(3)
	if got := rec.Values(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected merged values: %v", got)
	}

	latest := NewSubject[string]()
	clicks := NewSubject[int]()
	rec2, sub2 := Record(WithLatestFrom[int, string](clicks, latest, func(n int, s string) string { return s }))
	defer sub2.Dispose()
	clicks.Next(1)
	latest.Next("secret")
	clicks.Next(2)
	if got := rec2.Values(); !reflect.DeepEqual(got, []string{"secret"}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestErrorMessagesDropsEmpty(t *testing.T) {
	errs := NewSubject[error]()
	rec, sub := Record(ErrorMessages(errs, nil))
	defer sub.Dispose()
	errs.Next(nil)
	errs.Next(errString(""))
	errs.Next(errString("boom"))
	if got := rec.Values(); !reflect.DeepEqual(got, []string{"boom"}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestObserveOnDeliversThroughScheduler(t *testing.T) {
	var queued []func()
	sched := SchedulerFunc(func(fn func()) { queued = append(queued, fn) })
	s := NewSubject[int]()
	rec, sub := Record(ObserveOn[int](s, sched))
	defer sub.Dispose()
	s.Next(1)
	s.Next(2)
	if rec.Len() != 0 {
		t.Fatalf("expected delivery to wait for the scheduler")
	}
	for _, fn := range queued {
		fn()
	}
	if got := rec.Values(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestCombineLatestConcurrentSourcesEndOnNewest(t *testing.T) {
	const n = 2000
	a := NewSubject[int]()
	b := NewSubject[int]()
	rec, sub := Record(CombineLatestPair[int, int](a, b))
	defer sub.Dispose()
	a.Next(0)
	b.Next(0)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			a.Next(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			b.Next(i)
		}
	}()
	wg.Wait()

	last, ok := rec.Last()
	if !ok {
		t.Fatalf("expected combinations")
	}
	if last != (Pair[int, int]{First: n, Second: n}) {
		t.Fatalf("stale combination delivered last: %+v", last)
	}
	if got := rec.Len(); got != 2*n+1 {
		t.Fatalf("expected %d combinations, got %d", 2*n+1, got)
	}
}

func TestCombineLatestNestedEmitIsQueued(t *testing.T) {
	a := NewSubject[int]()
	b := NewSubject[int]()
	var got []int
	sub := CombineLatest2[int, int](a, b, func(x, y int) int { return x*10 + y }).Subscribe(func(v int) {
		got = append(got, v)
		if v == 11 {
			b.Next(2)
			got = append(got, -1)
		}
	})
	defer sub.Dispose()
	a.Next(1)
	b.Next(1)
	if !reflect.DeepEqual(got, []int{11, -1, 12}) {
		t.Fatalf("unexpected delivery order: %v", got)
	}
}
