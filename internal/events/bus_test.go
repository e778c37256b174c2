package events

import (
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ch, unsub := bus.Subscribe(TypeSignal)
	defer unsub()

	bus.Publish(TypeCycleComplete, nil) // filtered out
	bus.Publish(TypeSignal, "payload")

	select {
	case evt := <-ch:
		if evt.Type != TypeSignal {
			t.Fatalf("expected %s, got %s", TypeSignal, evt.Type)
		}
		if evt.Payload != "payload" {
			t.Fatalf("unexpected payload: %v", evt.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case evt := <-ch:
		t.Fatalf("unexpected extra event: %s", evt.Type)
	default:
	}
}

func TestBusSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	_, unsub := bus.Subscribe()
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*2; i++ {
			bus.Publish(TypeDashboardUpdate, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Close()

	ch, unsub := bus.Subscribe(TypeAlert)
	unsub()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{
		TypeSignal, TypeTradeOpened, TypeTradeClosed, TypeAlert, TypeError,
		TypeStateUpdated, TypePositionsMonitored, TypeDashboardUpdate,
		TypeArbitrageDetected, TypeCycleComplete, TypeCandle,
	} {
		if !typ.Valid() {
			t.Fatalf("%s should be valid", typ)
		}
	}
	if Type("made:up").Valid() {
		t.Fatal("unknown type should be invalid")
	}
}
