package planner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/dohr-michael/dayplan/internal/tasks"
)

type scheduleCall struct {
	ID, Date, Time string
}

// fakeStore is an in-memory TaskStore recording every call.
type fakeStore struct {
	mu        sync.Mutex
	tasks     []tasks.Task
	listRaw   json.RawMessage // overrides tasks when set
	listErr   error
	writeErr  error
	writeAck  *Ack
	lists     int
	schedules []scheduleCall
	marked    []string
	edited    []tasks.Task
	created   []tasks.Draft
	deleted   []string
}

func (f *fakeStore) ack() (*Ack, error) {
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	if f.writeAck != nil {
		return f.writeAck, nil
	}
	return &Ack{Success: true}, nil
}

func (f *fakeStore) ListTasks(_ context.Context, id Identity) (*ListResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.listRaw != nil {
		return &ListResponse{Success: true, Tasks: f.listRaw}, nil
	}
	data, _ := json.Marshal(f.tasks)
	return &ListResponse{Success: true, Tasks: data}, nil
}

func (f *fakeStore) CreateTask(_ context.Context, _ Identity, d tasks.Draft) (*Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, d)
	ack, err := f.ack()
	if err == nil && ack.Success {
		t := tasks.Task{ID: tasks.GenerateID()}
		d.Apply(&t)
		f.tasks = append(f.tasks, t)
	}
	return ack, err
}

func (f *fakeStore) EditTask(_ context.Context, _ Identity, t tasks.Task) (*Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, t)
	return f.ack()
}

func (f *fakeStore) MarkDone(_ context.Context, _ Identity, taskID string) (*Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked = append(f.marked, taskID)
	return f.ack()
}

func (f *fakeStore) UpdateSchedule(_ context.Context, _ Identity, taskID, date, clock string) (*Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schedules = append(f.schedules, scheduleCall{taskID, date, clock})
	ack, err := f.ack()
	if err == nil && ack.Success {
		for i := range f.tasks {
			if f.tasks[i].ID == taskID {
				f.tasks[i].Date, f.tasks[i].Time = date, clock
			}
		}
	}
	return ack, err
}

func (f *fakeStore) DeleteTask(_ context.Context, _ Identity, taskID string) (*Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, taskID)
	return f.ack()
}

// fakeTimers captures AfterFunc callbacks so tests decide when they fire.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	live := !t.stopped && !t.fired
	t.stopped = true
	return live
}

func (f *fakeTimers) AfterFunc(_ time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fireAll runs every timer, including stopped ones, to prove that
// superseded callbacks are inert.
func (f *fakeTimers) fireAll() {
	f.mu.Lock()
	timers := slices.Clone(f.timers)
	f.mu.Unlock()
	for _, t := range timers {
		t.fired = true
		t.fn()
	}
}

var today = time.Date(2024, 6, 5, 12, 0, 0, 0, time.Local) // Wednesday

func newTestCoordinator(store *fakeStore, timers *fakeTimers) *Coordinator {
	return New(store, Identity{Token: "tok"},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return today }),
		WithAfterFunc(timers.AfterFunc),
	)
}

func taskIDs(ts []tasks.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func TestLoad_NormalizesAndAutoCompletes(t *testing.T) {
	store := &fakeStore{tasks: []tasks.Task{
		{ID: "old", Title: "old", Date: "Mon, 03 Jun 2024 00:00:00 GMT"},
		{ID: "done", Title: "done", Date: "2024-06-01", Done: true},
		{ID: "now", Title: "now", Date: "2024-06-05", Time: "9:00"},
		{ID: "odd", Title: "odd", Date: "someday"},
	}}
	c := newTestCoordinator(store, &fakeTimers{})

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Close()

	snap := c.Snapshot()
	byID := map[string]tasks.Task{}
	for _, task := range snap.Tasks {
		byID[task.ID] = task
	}
	if got := byID["old"]; got.Date != "2024-06-03" || !got.Done {
		t.Errorf("old = %+v, want normalized and done", got)
	}
	if got := byID["now"]; got.Done || got.Time != "09:00" {
		t.Errorf("now = %+v", got)
	}
	if got := byID["odd"]; got.Date != "someday" || got.Done {
		t.Errorf("odd = %+v, want untouched", got)
	}
	if !slices.Equal(store.marked, []string{"old"}) {
		t.Errorf("marked = %v, want [old]", store.marked)
	}
	for _, d := range []string{"2024-06-03", "2024-06-01", "2024-06-05", "someday"} {
		if !snap.Expanded[d] {
			t.Errorf("date %s not expanded", d)
		}
	}
}

func TestLoad_AutoCompleteFailureKeepsLocalDone(t *testing.T) {
	store := &fakeStore{
		tasks:    []tasks.Task{{ID: "old", Title: "old", Date: "2024-06-01"}},
		writeErr: errors.New("connection refused"),
	}
	c := newTestCoordinator(store, &fakeTimers{})

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Close()

	if task, _ := c.Find("old"); !task.Done {
		t.Error("local copy should be done despite remote failure")
	}
}

func TestLoad_MalformedKeepsState(t *testing.T) {
	store := &fakeStore{tasks: []tasks.Task{{ID: "a", Title: "a", Date: "2024-06-05"}}}
	c := newTestCoordinator(store, &fakeTimers{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, raw := range []string{"null", `{"a":1}`, `"tasks"`} {
		store.listRaw = json.RawMessage(raw)
		err := c.Load(context.Background())
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Load(%s) = %v, want ErrMalformedResponse", raw, err)
		}
		if got := taskIDs(c.Snapshot().Tasks); !slices.Equal(got, []string{"a"}) {
			t.Errorf("state after Load(%s) = %v", raw, got)
		}
	}

	store.listRaw = nil
	store.listErr = errors.New("dial tcp: refused")
	if err := c.Load(context.Background()); !errors.Is(err, ErrTransport) {
		t.Errorf("Load = %v, want ErrTransport", err)
	}
}

func TestDecodeTasks_Shapes(t *testing.T) {
	if _, err := DecodeTasks(&ListResponse{Success: true}); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("absent tasks = %v", err)
	}
	if _, err := DecodeTasks(&ListResponse{Success: false, Tasks: json.RawMessage(`[]`)}); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("success=false = %v", err)
	}
	got, err := DecodeTasks(&ListResponse{Success: true, Tasks: json.RawMessage(` [{"id":"x","done":1}]`)})
	if err != nil || len(got) != 1 || !got[0].Done {
		t.Errorf("DecodeTasks = %+v, %v", got, err)
	}
}

func TestDecodeTasks_NumericIDs(t *testing.T) {
	got, err := DecodeTasks(&ListResponse{Success: true, Tasks: json.RawMessage(
		`[{"id":42,"title":"Legacy","date":"2024-06-05","done":0},{"id":"task_ab12cd34","title":"New","done":true}]`)})
	if err != nil {
		t.Fatalf("DecodeTasks: %v", err)
	}
	if len(got) != 2 || got[0].ID != "42" || got[1].ID != "task_ab12cd34" {
		t.Fatalf("ids = %+v", got)
	}
	if got[0].Title != "Legacy" || got[0].Done || !got[1].Done {
		t.Errorf("fields lost while decoding ids: %+v", got)
	}

	for _, bad := range []string{`[{"id":true}]`, `[{"id":{"n":1}}]`} {
		if _, err := DecodeTasks(&ListResponse{Success: true, Tasks: json.RawMessage(bad)}); !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("DecodeTasks(%s) = %v, want ErrMalformedResponse", bad, err)
		}
	}
}

func boardFixture() *fakeStore {
	return &fakeStore{tasks: []tasks.Task{
		{ID: "T", Title: "T", Date: "2024-06-05", Time: "09:00"},
		{ID: "a", Title: "a", Date: "2024-06-05", Time: "10:00"},
		{ID: "x", Title: "x", Date: "2024-06-07"},
		{ID: "y", Title: "y", Date: "2024-06-07"},
	}}
}

func TestReorder_CancelledDragIsNoop(t *testing.T) {
	store := boardFixture()
	timers := &fakeTimers{}
	c := newTestCoordinator(store, timers)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := c.Snapshot()

	changed, err := c.Reorder(tasks.Move{Source: tasks.Position{Date: "2024-06-05", Index: 0}})
	if err != nil || changed {
		t.Fatalf("Reorder = %v, %v", changed, err)
	}
	if len(timers.timers) != 0 || c.PendingPersist() {
		t.Error("cancelled drag scheduled a persist")
	}
	if !slices.Equal(taskIDs(c.Snapshot().Tasks), taskIDs(before.Tasks)) {
		t.Error("cancelled drag mutated state")
	}
}

func TestReorder_InvalidSource(t *testing.T) {
	c := newTestCoordinator(boardFixture(), &fakeTimers{})
	_ = c.Load(context.Background())

	_, err := c.Reorder(tasks.Move{
		Source:      tasks.Position{Date: "2024-06-09", Index: 0},
		Destination: &tasks.Position{Date: "2024-06-05", Index: 0},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestReorder_OptimisticThenPersist(t *testing.T) {
	store := boardFixture()
	timers := &fakeTimers{}
	c := newTestCoordinator(store, timers)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	loads := store.lists

	changed, err := c.Reorder(tasks.Move{
		Source:      tasks.Position{Date: "2024-06-05", Index: 0},
		Destination: &tasks.Position{Date: "2024-06-07", Index: 1},
	})
	if err != nil || !changed {
		t.Fatalf("Reorder = %v, %v", changed, err)
	}

	// Visible before any write.
	if task, _ := c.Find("T"); task.Date != "2024-06-07" {
		t.Errorf("optimistic date = %s", task.Date)
	}
	if len(store.schedules) != 0 {
		t.Fatal("persist must wait for the quiet window")
	}

	timers.fireAll()

	want := []scheduleCall{{"T", "2024-06-07", "09:00"}}
	if !slices.Equal(store.schedules, want) {
		t.Errorf("schedules = %v, want %v", store.schedules, want)
	}
	if store.lists != loads+1 {
		t.Errorf("lists = %d, want refresh after persist", store.lists)
	}
}

func TestReorder_DebounceBurst(t *testing.T) {
	store := boardFixture()
	timers := &fakeTimers{}
	c := newTestCoordinator(store, timers)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	moves := []tasks.Move{
		{Source: tasks.Position{Date: "2024-06-05", Index: 0}, Destination: &tasks.Position{Date: "2024-06-06", Index: 0}},
		{Source: tasks.Position{Date: "2024-06-06", Index: 0}, Destination: &tasks.Position{Date: "2024-06-07", Index: 0}},
		{Source: tasks.Position{Date: "2024-06-05", Index: 0}, Destination: &tasks.Position{Date: "2024-06-08", Index: 0}},
	}
	for i, m := range moves {
		if _, err := c.Reorder(m); err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
		if n := timers.live(); n != 1 {
			t.Fatalf("after move %d: %d live timers, want 1", i, n)
		}
	}

	timers.fireAll()

	if len(store.schedules) != 1 {
		t.Fatalf("schedules = %v, want exactly one", store.schedules)
	}
	if got := store.schedules[0]; got != (scheduleCall{"a", "2024-06-08", "10:00"}) {
		t.Errorf("persisted %+v, want the third move", got)
	}
}

func TestReorder_PersistFailureRefreshes(t *testing.T) {
	store := boardFixture()
	timers := &fakeTimers{}
	c := newTestCoordinator(store, timers)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	loads := store.lists

	store.writeAck = &Ack{Success: false, Message: "nope"}
	if _, err := c.Reorder(tasks.Move{
		Source:      tasks.Position{Date: "2024-06-05", Index: 0},
		Destination: &tasks.Position{Date: "2024-06-07", Index: 0},
	}); err != nil {
		t.Fatal(err)
	}
	timers.fireAll()

	if store.lists != loads+1 {
		t.Errorf("lists = %d, want a refresh after failure", store.lists)
	}
	if task, _ := c.Find("T"); task.Date != "2024-06-05" {
		t.Errorf("T date = %s, want reverted by refresh", task.Date)
	}
}

func TestClose_FlushesPendingReorder(t *testing.T) {
	store := boardFixture()
	timers := &fakeTimers{}
	c := newTestCoordinator(store, timers)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reorder(tasks.Move{
		Source:      tasks.Position{Date: "2024-06-07", Index: 1},
		Destination: &tasks.Position{Date: "2024-06-05", Index: 0},
	}); err != nil {
		t.Fatal(err)
	}

	c.Close()
	if len(store.schedules) != 1 || store.schedules[0].ID != "y" {
		t.Fatalf("schedules = %v", store.schedules)
	}

	// The superseded timer is inert once flushed.
	timers.fireAll()
	if len(store.schedules) != 1 {
		t.Errorf("schedules after fire = %v", store.schedules)
	}
}

func TestMutations(t *testing.T) {
	store := boardFixture()
	c := newTestCoordinator(store, &fakeTimers{})
	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}

	if err := c.Add(ctx, tasks.Draft{Title: "New", Date: "06/06/2024", Priority: "low"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if d := store.created[0]; d.Date != "2024-06-06" || d.Priority != tasks.PriorityLow {
		t.Errorf("created draft = %+v", d)
	}
	if len(c.Snapshot().Tasks) != 5 {
		t.Errorf("state not refreshed after add")
	}

	if err := c.Add(ctx, tasks.Draft{Title: ""}); !errors.Is(err, ErrValidation) {
		t.Errorf("Add invalid = %v, want ErrValidation", err)
	}

	store.tasks[0].Done = true
	_ = c.Load(ctx)
	if err := c.Edit(ctx, "T", tasks.Draft{Title: "Renamed", Date: "2024-06-05"}); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if e := store.edited[0]; e.Title != "Renamed" || !e.Done || e.ID != "T" {
		t.Errorf("edited = %+v, want done preserved", e)
	}

	if err := c.MarkDone(ctx, "a"); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}
	if err := c.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !slices.Equal(store.deleted, []string{"x"}) {
		t.Errorf("deleted = %v", store.deleted)
	}
}

func TestMutationFailureLeavesState(t *testing.T) {
	store := boardFixture()
	c := newTestCoordinator(store, &fakeTimers{})
	ctx := context.Background()
	if err := c.Load(ctx); err != nil {
		t.Fatal(err)
	}
	loads := store.lists
	before := taskIDs(c.Snapshot().Tasks)

	store.writeErr = errors.New("connection reset")
	if err := c.Delete(ctx, "x"); !errors.Is(err, ErrTransport) {
		t.Errorf("Delete = %v, want ErrTransport", err)
	}
	store.writeErr = nil
	store.writeAck = &Ack{Success: false}
	if err := c.MarkDone(ctx, "x"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("MarkDone = %v, want ErrMalformedResponse", err)
	}

	if store.lists != loads {
		t.Errorf("failed mutations refreshed %d times", store.lists-loads)
	}
	if !slices.Equal(taskIDs(c.Snapshot().Tasks), before) {
		t.Error("state changed after failed mutation")
	}
}

func TestBoard_FilterAndOrder(t *testing.T) {
	store := &fakeStore{tasks: []tasks.Task{
		{ID: "next", Title: "n", Date: "2024-06-10"},
		{ID: "fri", Title: "f", Date: "2024-06-07"},
		{ID: "wed", Title: "w", Date: "2024-06-05"},
	}}
	c := newTestCoordinator(store, &fakeTimers{})
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	var dates []string
	for _, b := range c.Board().Buckets {
		dates = append(dates, b.Date)
	}
	if !slices.Equal(dates, []string{"2024-06-05", "2024-06-07", "2024-06-10"}) {
		t.Errorf("all dates = %v", dates)
	}

	c.SetFilter(tasks.ModeWeek)
	if n := len(c.Board().Buckets); n != 2 {
		t.Errorf("week buckets = %d, want 2", n)
	}
	c.SetFilter(tasks.ModeDay)
	b := c.Board()
	if len(b.Buckets) != 1 || b.Buckets[0].Tasks[0].ID != "wed" || !b.Buckets[0].Expanded {
		t.Errorf("day board = %+v", b)
	}

	if c.ToggleExpanded("2024-06-05") {
		t.Error("toggle should collapse an expanded date")
	}
}

func TestDebouncer_RealTimer(t *testing.T) {
	var mu sync.Mutex
	var runs []int
	d := NewDebouncer(20*time.Millisecond, nil, nil)
	for i := range 3 {
		d.Schedule(func() {
			mu.Lock()
			runs = append(runs, i)
			mu.Unlock()
		})
	}
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(runs, []int{2}) {
		t.Errorf("runs = %v, want [2]", runs)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	timers := &fakeTimers{}
	d := NewDebouncer(time.Second, timers.AfterFunc, nil)
	ran := false
	d.Schedule(func() { ran = true })
	if !d.Cancel() {
		t.Error("Cancel reported nothing pending")
	}
	timers.fireAll()
	if ran || d.Pending() {
		t.Error("cancelled action ran")
	}
}

func TestClass(t *testing.T) {
	tests := map[error]string{
		nil:                                 "",
		ErrValidation:                       "validation",
		context.DeadlineExceeded:            "transport",
		checkAck(&Ack{Success: false}, nil): "malformed",
		checkAck(nil, io.EOF):               "transport",
	}
	for err, want := range tests {
		if got := Class(err); got != want {
			t.Errorf("Class(%v) = %q, want %q", err, got, want)
		}
	}
}
