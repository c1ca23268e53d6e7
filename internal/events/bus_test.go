package events

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventTaskCreated)

	bus.Publish(NewTypedEvent(SourceGateway, TaskCreatedPayload{Task: TaskSnapshot{ID: "task_1"}}))
	bus.Publish(NewTypedEvent(SourceGateway, TaskDeletedPayload{TaskID: "task_1"}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTaskCreated {
		t.Errorf("expected task.created, got %s", received[0].Type)
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewTypedEvent(SourceGateway, TaskDeletedPayload{TaskID: "a"}))
	bus.Publish(NewTypedEvent(SourcePlanner, BoardLoadedPayload{Tasks: 3}))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventTaskUpdated, SourceGateway, map[string]any{"i": i}))
	}

	events := rb.Get(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[2].Payload["i"] != 4 {
		t.Errorf("newest event = %v, want i=4", events[2].Payload)
	}
}

func TestSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventTaskCompleted)
	defer unsub()

	bus.Publish(NewOwnedEvent(SourceGateway, TaskCompletedPayload{TaskID: "task_1", Done: true}, "u1"))

	select {
	case e := <-ch:
		if e.Type != EventTaskCompleted || e.Owner != "u1" {
			t.Errorf("got %s for %q", e.Type, e.Owner)
		}
		p, ok := ExtractPayload[TaskCompletedPayload](e)
		if !ok || p.TaskID != "task_1" || !p.Done {
			t.Errorf("payload = %+v, %v", p, ok)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestOwnerHistory(t *testing.T) {
	bus := NewBus(16)
	defer bus.Close()

	for _, owner := range []string{"a", "b", "a", "a"} {
		if err := bus.PublishAsync(context.Background(), NewOwnedEvent(SourceGateway, TaskDeletedPayload{TaskID: owner}, owner)); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(50 * time.Millisecond)

	got := bus.OwnerHistory("a", 2)
	if len(got) != 2 {
		t.Fatalf("OwnerHistory len = %d, want 2", len(got))
	}
	for _, e := range got {
		if e.Owner != "a" {
			t.Errorf("event owner = %q", e.Owner)
		}
	}
	if got[0].ID == got[1].ID {
		t.Error("history returned the same event twice")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := NewBus(4)
	bus.Close()
	bus.Publish(NewEvent(EventTaskDeleted, SourceGateway, nil))
	if err := bus.PublishAsync(context.Background(), NewEvent(EventTaskDeleted, SourceGateway, nil)); err != ErrBusClosed {
		t.Errorf("PublishAsync after close = %v, want ErrBusClosed", err)
	}
}
