package interview

import (
	"sync"
	"testing"
)

func TestBrokerDeliversToSessionSubscribers(t *testing.T) {
	b := NewBroker(4)
	ch, cancel := b.Subscribe("s-1")
	defer cancel()
	other, cancelOther := b.Subscribe("s-2")
	defer cancelOther()

	b.Publish(Event{Type: EventQuestion, SessionID: "s-1", Data: "q"})

	select {
	case e := <-ch:
		if e.Type != EventQuestion || e.At.IsZero() {
			t.Fatalf("unexpected event: %+v", e)
		}
	default:
		t.Fatalf("expected event")
	}
	select {
	case e := <-other:
		t.Fatalf("unexpected event on other session: %+v", e)
	default:
	}
}

func TestBrokerDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("s-1")
	defer cancel()

	b.Publish(Event{Type: EventState, SessionID: "s-1"})
	b.Publish(Event{Type: EventState, SessionID: "s-1"})

	if len(ch) != 1 {
		t.Fatalf("expected 1 buffered event, got %d", len(ch))
	}
}

func TestBrokerUnsubscribeAndClose(t *testing.T) {
	b := NewBroker(1)
	ch, cancel := b.Subscribe("s-1")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if b.Subscribers("s-1") != 0 {
		t.Fatalf("expected no subscribers")
	}

	ch2, cancel2 := b.Subscribe("s-1")
	b.CloseSession("s-1")
	if _, ok := <-ch2; ok {
		t.Fatalf("expected channel closed by CloseSession")
	}
	cancel2()
}

func TestKeyedMutexSerializesAndForgets(t *testing.T) {
	var k keyedMutex
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("s-1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("expected 50, got %d", counter)
	}
	if k.size() != 0 {
		t.Fatalf("expected lock entries released, got %d", k.size())
	}
}
