package tasks

import "context"

// Store persists tasks per owner. Listing returns tasks ordered by
// date, then position within the date.
type Store interface {
	List(ctx context.Context, owner string) ([]Task, error)
	Get(ctx context.Context, owner, id string) (Task, error)
	// Create assigns an ID when t.ID is empty and appends the task to
	// the end of its date.
	Create(ctx context.Context, owner string, t *Task) error
	// Update replaces every field but the ID, including Done.
	Update(ctx context.Context, owner string, t Task) error
	// Reschedule moves a task to the end of date, sets its time and
	// reopens it.
	Reschedule(ctx context.Context, owner, id, date, clock string) error
	SetDone(ctx context.Context, owner, id string, done bool) error
	Delete(ctx context.Context, owner, id string) error
}
