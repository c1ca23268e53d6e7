// Package planner keeps a local task session in sync with a remote
// TaskStore: it loads and normalizes the task list, applies drag-and-drop
// reorders optimistically, debounces their persistence and refreshes
// from the store after every write.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

const (
	DefaultDebounce       = 800 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
)

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// WithBus publishes board and sync events on bus.
func WithBus(bus *events.Bus) Option { return func(c *Coordinator) { c.bus = bus } }

func WithDebounce(d time.Duration) Option { return func(c *Coordinator) { c.debounceDelay = d } }

func WithAfterFunc(f AfterFunc) Option { return func(c *Coordinator) { c.afterFunc = f } }

func WithClock(now func() time.Time) Option { return func(c *Coordinator) { c.now = now } }

func WithRequestTimeout(d time.Duration) Option { return func(c *Coordinator) { c.timeout = d } }

func WithFilter(m tasks.Mode) Option { return func(c *Coordinator) { c.state.Filter = m } }

// Coordinator owns the planner State for one identity.
type Coordinator struct {
	store    TaskStore
	identity Identity

	log           *slog.Logger
	bus           *events.Bus
	now           func() time.Time
	timeout       time.Duration
	debounceDelay time.Duration
	afterFunc     AfterFunc

	// cycle serializes load, reorder, persist and mutation sequences so a
	// refresh always lands before the next user action is applied.
	cycle sync.Mutex
	// mu guards state for readers that must not wait on network calls.
	mu    sync.RWMutex
	state State

	debounce *Debouncer
	detached *Detached
}

func New(store TaskStore, id Identity, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:         store,
		identity:      id,
		log:           slog.Default(),
		now:           time.Now,
		timeout:       DefaultRequestTimeout,
		debounceDelay: DefaultDebounce,
		state:         State{Filter: tasks.ModeAll},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.debounce = NewDebouncer(c.debounceDelay, c.afterFunc, &c.cycle)
	c.detached = NewDetached(c.log, c.timeout)
	return c
}

func (c *Coordinator) today() calendar.Date {
	return calendar.Today(c.now())
}

// Load fetches, normalizes and auto-completes the task list, then
// replaces the session state with it. On failure the previous state is
// kept.
func (c *Coordinator) Load(ctx context.Context) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()
	return c.load(ctx)
}

func (c *Coordinator) load(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.store.ListTasks(ctx, c.identity)
	if err == nil {
		var list []tasks.Task
		if list, err = DecodeTasks(resp); err == nil {
			c.apply(list)
			return nil
		}
	} else {
		err = checkAck(nil, err)
	}
	c.fail("load", err)
	return fmt.Errorf("load tasks: %w", err)
}

func (c *Coordinator) apply(list []tasks.Task) {
	for i := range list {
		list[i] = list[i].Normalized()
	}
	completed := tasks.AutoComplete(list, c.today())
	for _, t := range completed {
		id := t.ID
		c.detached.Go("auto-complete", func(ctx context.Context) error {
			return checkAck(c.store.MarkDone(ctx, c.identity, id))
		}, "task", id)
	}

	c.mu.Lock()
	c.state.Replace(list, c.now())
	c.mu.Unlock()

	c.log.Debug("tasks loaded", "count", len(list), "auto_completed", len(completed))
	c.publish(events.BoardLoadedPayload{Tasks: len(list), AutoCompleted: len(completed)})
}

// Reorder applies a drag-and-drop move to the session immediately and
// schedules its persistence. A nil destination or a drop onto the source
// slot changes nothing and schedules nothing. An out-of-range source is
// reported as ErrValidation without touching state.
func (c *Coordinator) Reorder(m tasks.Move) (bool, error) {
	if m.Destination == nil {
		return false, nil
	}

	c.cycle.Lock()
	defer c.cycle.Unlock()

	c.mu.Lock()
	res, err := tasks.Reorder(tasks.Group(c.state.Tasks), m)
	if err != nil {
		c.mu.Unlock()
		return false, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !res.Changed {
		c.mu.Unlock()
		return false, nil
	}
	c.state.Tasks = res.Tasks
	if c.state.Expanded != nil {
		c.state.Expanded[res.Moved.Date] = true
	}
	c.mu.Unlock()

	moved := res.Moved
	c.debounce.Schedule(func() { c.persist(moved) })
	c.publish(events.BoardReorderedPayload{TaskID: moved.ID, Date: moved.Date, Index: m.Destination.Index})
	return true, nil
}

// persist runs with cycle held (see Debouncer guard).
func (c *Coordinator) persist(moved tasks.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	err := checkAck(c.store.UpdateSchedule(ctx, c.identity, moved.ID, moved.Date, moved.Time))
	cancel()
	if err != nil {
		c.fail("persist reorder", err)
	} else {
		c.log.Debug("reorder persisted", "task", moved.ID, "date", moved.Date)
	}
	// The store is authoritative either way.
	_ = c.load(context.Background())
}

// PendingPersist reports whether a reorder is waiting to be written.
func (c *Coordinator) PendingPersist() bool {
	return c.debounce.Pending()
}

// Flush writes a pending reorder now instead of waiting for the quiet
// window to elapse.
func (c *Coordinator) Flush() bool {
	return c.debounce.Flush()
}

// Close flushes a pending reorder and waits for detached writes.
func (c *Coordinator) Close() {
	c.Flush()
	c.detached.Wait()
}

// Add creates a task from d.
func (c *Coordinator) Add(ctx context.Context, d tasks.Draft) error {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return c.mutate(ctx, "add task", func(ctx context.Context) (*Ack, error) {
		return c.store.CreateTask(ctx, c.identity, d)
	})
}

// Edit replaces the editable fields of a task, keeping its done state.
func (c *Coordinator) Edit(ctx context.Context, taskID string, d tasks.Draft) error {
	prior, ok := c.Find(taskID)
	if !ok {
		return fmt.Errorf("%w: unknown task %s", ErrValidation, taskID)
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	edited := prior
	d.Apply(&edited)
	return c.mutate(ctx, "edit task", func(ctx context.Context) (*Ack, error) {
		return c.store.EditTask(ctx, c.identity, edited)
	})
}

func (c *Coordinator) MarkDone(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: empty task id", ErrValidation)
	}
	return c.mutate(ctx, "mark done", func(ctx context.Context) (*Ack, error) {
		return c.store.MarkDone(ctx, c.identity, taskID)
	})
}

func (c *Coordinator) Delete(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: empty task id", ErrValidation)
	}
	return c.mutate(ctx, "delete task", func(ctx context.Context) (*Ack, error) {
		return c.store.DeleteTask(ctx, c.identity, taskID)
	})
}

// mutate issues one write and refreshes on success. A failed write
// leaves state untouched.
func (c *Coordinator) mutate(ctx context.Context, op string, call func(context.Context) (*Ack, error)) error {
	c.cycle.Lock()
	defer c.cycle.Unlock()

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	err := checkAck(call(rctx))
	cancel()
	if err != nil {
		c.fail(op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.load(ctx)
}

func (c *Coordinator) fail(op string, err error) {
	c.log.Warn("sync failed", "op", op, "class", Class(err), "error", err)
	c.publish(events.SyncFailedPayload{Operation: op, Class: Class(err), Error: err.Error()})
}

func (c *Coordinator) publish(p events.EventPayload) {
	if c.bus != nil {
		c.bus.Publish(events.NewTypedEvent(events.SourcePlanner, p))
	}
}

// SetFilter changes the visible time window.
func (c *Coordinator) SetFilter(m tasks.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = m
}

func (c *Coordinator) ToggleExpanded(date string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ToggleExpanded(date)
}

// Board returns the current view for today.
func (c *Coordinator) Board() Board {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Board(c.today())
}

// Snapshot returns a copy of the session state.
func (c *Coordinator) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Clone()
}

func (c *Coordinator) Find(taskID string) (tasks.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.state.Tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return tasks.Task{}, false
}

// PositionOf locates a task in the date grouping used by Reorder.
func (c *Coordinator) PositionOf(taskID string) (tasks.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.PositionOf(taskID)
}
