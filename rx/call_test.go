package rx

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type busyLog struct {
	mu     sync.Mutex
	values []bool
}

func (b *busyLog) observe(v bool) {
	b.mu.Lock()
	b.values = append(b.values, v)
	b.mu.Unlock()
}

func (b *busyLog) snapshot() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.values...)
}

func kinds[T any](ns []Notification[T]) []Kind {
	out := make([]Kind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestCallSuccessBusyExactlyOnce(t *testing.T) {
	busy := &busyLog{}
	src := Call(context.Background(), nil, func(ctx context.Context) (string, error) {
		return "ok", nil
	}, busy.observe)
	rec, sub := Record(src)
	defer sub.Dispose()
	if !rec.WaitFor(2, time.Second) {
		t.Fatalf("timed out waiting for call result")
	}
	got := rec.Values()
	if !reflect.DeepEqual(kinds(got), []Kind{KindRunning, KindValue}) {
		t.Fatalf("unexpected notifications: %v", kinds(got))
	}
	if got[1].Value != "ok" {
		t.Fatalf("unexpected value: %q", got[1].Value)
	}
	waitBusy(t, busy, []bool{true, false})
}

func TestCallFailureIsMaterialized(t *testing.T) {
	busy := &busyLog{}
	boom := errors.New("boom")
	release := make(chan struct{})
	src := Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		<-release
		return 0, boom
	}, busy.observe)
	values, errs := Split(src)
	vr, vd := Record(values)
	defer vd.Dispose()
	er, ed := Record(errs)
	defer ed.Dispose()
	close(release)
	if !er.WaitFor(1, time.Second) {
		t.Fatalf("timed out waiting for error")
	}
	if err, _ := er.Last(); !errors.Is(err, boom) {
		t.Fatalf("unexpected error: %v", err)
	}
	if vr.Len() != 0 {
		t.Fatalf("expected no values, got %v", vr.Values())
	}
	waitBusy(t, busy, []bool{true, false})
}

func TestCallRunsOnceForLateSubscribers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	src := Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})
	first, d1 := Record(src)
	defer d1.Dispose()
	second, d2 := Record(src)
	defer d2.Dispose()
	close(release)
	if !first.WaitFor(2, time.Second) || !second.WaitFor(2, time.Second) {
		t.Fatalf("timed out waiting for both observers")
	}
	late, d3 := Record(src)
	defer d3.Dispose()
	if !reflect.DeepEqual(kinds(late.Values()), []Kind{KindRunning, KindValue}) {
		t.Fatalf("expected replay for late subscriber, got %v", kinds(late.Values()))
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single invocation, got %d", calls.Load())
	}
}

func TestCallCanceledWhenAllObserversLeave(t *testing.T) {
	busy := &busyLog{}
	canceled := make(chan struct{})
	src := Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		close(canceled)
		return 0, ctx.Err()
	}, busy.observe)
	_, sub := Record(src)
	sub.Dispose()
	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatalf("expected call context to be canceled")
	}
	waitBusy(t, busy, []bool{true, false})
}

func TestCallPanicBecomesError(t *testing.T) {
	busy := &busyLog{}
	src := Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		panic("kaboom")
	}, busy.observe)
	rec, sub := Record(Errors(src))
	defer sub.Dispose()
	if !rec.WaitFor(1, time.Second) {
		t.Fatalf("timed out waiting for error")
	}
	err, _ := rec.Last()
	var panicErr *PanicError
	if !errors.As(err, &panicErr) || panicErr.Value != "kaboom" {
		t.Fatalf("unexpected error: %v", err)
	}
	waitBusy(t, busy, []bool{true, false})
}

func TestCallIsColdUntilSubscribed(t *testing.T) {
	var calls atomic.Int32
	_ = Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("expected no invocation without subscribers")
	}
}

func TestCallDeliversOnLoop(t *testing.T) {
	loop := NewLoop(nil)
	defer loop.Stop()
	busy := &busyLog{}
	src := Call(context.Background(), loop, func(ctx context.Context) (int, error) {
		return 5, nil
	}, busy.observe)
	rec, sub := Record(Values(src))
	defer sub.Dispose()
	if !rec.WaitFor(1, time.Second) {
		t.Fatalf("timed out waiting for value")
	}
	loop.Sync()
	if got := busy.snapshot(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Fatalf("unexpected busy transitions: %v", got)
	}
}

func waitBusy(t *testing.T, busy *busyLog, want []bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if reflect.DeepEqual(busy.snapshot(), want) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("unexpected busy transitions: %v", busy.snapshot())
}

func TestCallLateSubscriberKeepsOrderWhileReplaying(t *testing.T) {
	release := make(chan struct{})
	src := Call(context.Background(), nil, func(ctx context.Context) (int, error) {
		<-release
		return 7, nil
	})
	first, d1 := Record(src)
	defer d1.Dispose()
	if !first.WaitFor(1, time.Second) {
		t.Fatalf("timed out waiting for running")
	}

	// The result lands while Running is still being replayed to the late observer.
	late := NewRecorder[Notification[int]]()
	d2 := src.Subscribe(func(n Notification[int]) {
		late.Observe(n)
		if n.IsRunning() {
			close(release)
			if !first.WaitFor(2, time.Second) {
				t.Errorf("timed out waiting for result")
			}
		}
	})
	defer d2.Dispose()

	if !late.WaitFor(2, time.Second) {
		t.Fatalf("timed out waiting for replay, got %v", kinds(late.Values()))
	}
	if got := kinds(late.Values()); !reflect.DeepEqual(got, []Kind{KindRunning, KindValue}) {
		t.Fatalf("unexpected notifications: %v", got)
	}
}
