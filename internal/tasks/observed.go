package tasks

import (
	"context"

	"github.com/dohr-michael/dayplan/internal/events"
)

// Observed wraps a Store and publishes a task event on the bus after
// every successful write.
type Observed struct {
	Store
	bus    *events.Bus
	source events.EventSource
}

// Observe returns store with its writes published on bus as source.
func Observe(store Store, bus *events.Bus, source events.EventSource) *Observed {
	return &Observed{Store: store, bus: bus, source: source}
}

// Snapshot is the event form of t.
func Snapshot(t Task) events.TaskSnapshot {
	return events.TaskSnapshot{
		ID:       t.ID,
		Title:    t.Title,
		Date:     t.Date,
		Time:     t.Time,
		Priority: string(t.Priority),
		Done:     bool(t.Done),
	}
}

func (o *Observed) publish(owner string, p events.EventPayload) {
	o.bus.Publish(events.NewOwnedEvent(o.source, p, owner))
}

func (o *Observed) Create(ctx context.Context, owner string, t *Task) error {
	if err := o.Store.Create(ctx, owner, t); err != nil {
		return err
	}
	o.publish(owner, events.TaskCreatedPayload{Task: Snapshot(*t)})
	return nil
}

func (o *Observed) Update(ctx context.Context, owner string, t Task) error {
	if err := o.Store.Update(ctx, owner, t); err != nil {
		return err
	}
	o.publish(owner, events.TaskUpdatedPayload{Task: Snapshot(t)})
	return nil
}

func (o *Observed) Reschedule(ctx context.Context, owner, id, date, clock string) error {
	if err := o.Store.Reschedule(ctx, owner, id, date, clock); err != nil {
		return err
	}
	o.publish(owner, events.TaskRescheduledPayload{TaskID: id, Date: date, Time: clock})
	return nil
}

func (o *Observed) SetDone(ctx context.Context, owner, id string, done bool) error {
	if err := o.Store.SetDone(ctx, owner, id, done); err != nil {
		return err
	}
	o.publish(owner, events.TaskCompletedPayload{TaskID: id, Done: done})
	return nil
}

func (o *Observed) Delete(ctx context.Context, owner, id string) error {
	if err := o.Store.Delete(ctx, owner, id); err != nil {
		return err
	}
	o.publish(owner, events.TaskDeletedPayload{TaskID: id})
	return nil
}
