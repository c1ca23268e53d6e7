package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dohr-michael/dayplan/internal/events"
)

func nextEvent(t *testing.T, ch <-chan events.Event) events.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return events.Event{}
}

func TestObservedPublishesWrites(t *testing.T) {
	bus := events.NewBus(16)
	defer bus.Close()
	ch, unsubscribe := bus.SubscribeChan(16, events.TaskEvents...)
	defer unsubscribe()

	ctx := context.Background()
	store := Observe(NewFileStore(t.TempDir()), bus, events.SourceAssistant)

	task := Task{Title: "Dentist", Date: "2024-06-03", Priority: PriorityHigh}
	if err := store.Create(ctx, "ada", &task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	e := nextEvent(t, ch)
	if e.Type != events.EventTaskCreated || e.Owner != "ada" || e.Source != events.SourceAssistant {
		t.Errorf("create event = %+v", e)
	}
	created, ok := events.ExtractPayload[events.TaskCreatedPayload](e)
	if !ok || created.Task.ID != task.ID || created.Task.Title != "Dentist" {
		t.Errorf("created payload = %+v", created)
	}

	if err := store.Reschedule(ctx, "ada", task.ID, "2024-06-04", "10:00"); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if e := nextEvent(t, ch); e.Type != events.EventTaskRescheduled {
		t.Errorf("event = %s, want %s", e.Type, events.EventTaskRescheduled)
	}

	if err := store.SetDone(ctx, "ada", task.ID, true); err != nil {
		t.Fatalf("SetDone: %v", err)
	}
	done, _ := events.ExtractPayload[events.TaskCompletedPayload](nextEvent(t, ch))
	if done.TaskID != task.ID || !done.Done {
		t.Errorf("completed payload = %+v", done)
	}

	if err := store.Delete(ctx, "ada", task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if e := nextEvent(t, ch); e.Type != events.EventTaskDeleted {
		t.Errorf("event = %s, want %s", e.Type, events.EventTaskDeleted)
	}

	// Failed writes publish nothing.
	if err := store.Delete(ctx, "ada", task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
	select {
	case e := <-ch:
		t.Errorf("unexpected event after failed write: %s", e.Type)
	case <-time.After(50 * time.Millisecond):
	}
}
