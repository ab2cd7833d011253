package eventbus

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("cards")
	defer cancel()

	bus.OnSignal(Signal{Screen: "cards", Name: "success", Value: "card deleted"})

	select {
	case got := <-ch:
		if got.Type != SignalOutput {
			t.Fatalf("expected output signal, got %v", got.Type)
		}
		if got.Name != "success" || got.Value != "card deleted" {
			t.Fatalf("unexpected payload: %+v", got)
		}
		if got.At.IsZero() {
			t.Fatalf("expected timestamp to be filled")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for signal")
	}
}

func TestPublishIsScopedToScreen(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("cards")
	defer cancel()
	bus.OnSignal(Signal{Screen: "password", Name: "error"})
	select {
	case got := <-ch:
		t.Fatalf("unexpected signal for other screen: %+v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New(nil)
	ch, cancel := bus.Subscribe("cards")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel to be closed")
	}
	if bus.Subscribers("cards") != 0 {
		t.Fatalf("expected no subscribers left")
	}
}

func TestPublishDoesNotBlockWhenFull(t *testing.T) {
	bus := New(nil)
	bus.depth = 1
	_, cancel := bus.Subscribe("cards")
	defer cancel()

	bus.OnSignal(Signal{Screen: "cards", Name: "first"})
	done := make(chan struct{})
	go func() {
		bus.OnSignal(Signal{Screen: "cards", Name: "second"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("publish blocked on full subscriber")
	}
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *Bus
	ch, cancel := bus.Subscribe("cards")
	cancel()
	bus.OnSignal(Signal{Screen: "cards"})
	if ch != nil {
		t.Fatalf("expected nil channel from nil bus")
	}
}
