package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// ToolSpec describes a tool and its parameters.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters"`
}

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Type        string   `json:"type"` // "string", "boolean"
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// RequiredParams returns the names of required parameters, sorted.
func (s ToolSpec) RequiredParams() []string {
	var out []string
	for name, p := range s.Parameters {
		if p.Required {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// JSONSchema renders the parameters as a JSON Schema object.
func (s ToolSpec) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	for name, p := range s.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[name] = prop
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if req := s.RequiredParams(); len(req) > 0 {
		schema["required"] = req
	}
	return schema
}

// Tool is a task operation callable by a model for one owner.
type Tool struct {
	Spec ToolSpec
	run  func(ctx context.Context, owner string, args json.RawMessage) (map[string]any, error)
}

// Run decodes the JSON arguments, performs the operation and returns
// the JSON result. User-facing failures (unknown task, invalid input)
// are reported in the result as {"ok": false, "error": ...}; only store
// failures are returned as errors.
func (t Tool) Run(ctx context.Context, owner, argsJSON string) (string, error) {
	args := json.RawMessage(argsJSON)
	if strings.TrimSpace(argsJSON) == "" {
		args = json.RawMessage("{}")
	}
	res, err := t.run(ctx, owner, args)
	if err != nil {
		if !errors.Is(err, tasks.ErrNotFound) && !errors.Is(err, tasks.ErrInvalidTask) && !errors.Is(err, errBadArgs) {
			return "", fmt.Errorf("tool %s: %w", t.Spec.Name, err)
		}
		res = map[string]any{"ok": false, "error": err.Error()}
	}
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode %s result: %w", t.Spec.Name, err)
	}
	return string(data), nil
}

var errBadArgs = errors.New("invalid arguments")

// Toolset binds the task tools to a store.
type Toolset struct {
	store tasks.Store
	now   func() time.Time
	tools []Tool
}

// NewToolset builds add_task, edit_task, update_task_datetime,
// delete_task, mark_done and list_tasks over store. A nil now uses
// time.Now.
func NewToolset(store tasks.Store, now func() time.Time) *Toolset {
	if now == nil {
		now = time.Now
	}
	ts := &Toolset{store: store, now: now}
	ts.tools = []Tool{
		{Spec: addTaskSpec, run: ts.addTask},
		{Spec: editTaskSpec, run: ts.editTask},
		{Spec: updateDatetimeSpec, run: ts.updateDatetime},
		{Spec: deleteTaskSpec, run: ts.deleteTask},
		{Spec: markDoneSpec, run: ts.markDone},
		{Spec: listTasksSpec, run: ts.listTasks},
	}
	return ts
}

// Tools returns every tool in declaration order.
func (ts *Toolset) Tools() []Tool { return ts.tools }

// Specs returns the spec of every tool.
func (ts *Toolset) Specs() []ToolSpec {
	out := make([]ToolSpec, len(ts.tools))
	for i, t := range ts.tools {
		out[i] = t.Spec
	}
	return out
}

// Lookup finds a tool by name.
func (ts *Toolset) Lookup(name string) (Tool, bool) {
	for _, t := range ts.tools {
		if t.Spec.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Call runs the named tool.
func (ts *Toolset) Call(ctx context.Context, owner, name, argsJSON string) (string, error) {
	t, ok := ts.Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return t.Run(ctx, owner, argsJSON)
}

func (ts *Toolset) today() calendar.Date { return calendar.Today(ts.now()) }

var (
	idParam = ParamSpec{Type: "string", Description: "Task id, as shown in brackets in the task list", Required: true}

	addTaskSpec = ToolSpec{
		Name:        "add_task",
		Description: "Create a task for the current user. Date must be YYYY-MM-DD; time HH:MM.",
		Parameters: map[string]ParamSpec{
			"title":       {Type: "string", Description: "Short task title", Required: true},
			"description": {Type: "string", Description: "Free-form details"},
			"category":    {Type: "string", Description: "Comma-separated categories, e.g. Work,Call"},
			"date":        {Type: "string", Description: "Day of the task (YYYY-MM-DD); defaults to today"},
			"time":        {Type: "string", Description: "Time of day (HH:MM)"},
			"priority":    {Type: "string", Description: "Task priority", Enum: []string{"Low", "Medium", "High"}, Default: "Medium"},
		},
	}
	editTaskSpec = ToolSpec{
		Name:        "edit_task",
		Description: "Edit fields of a task owned by the current user. Omitted fields are kept.",
		Parameters: map[string]ParamSpec{
			"id":          idParam,
			"title":       {Type: "string", Description: "New title"},
			"description": {Type: "string", Description: "New description"},
			"category":    {Type: "string", Description: "New comma-separated categories"},
			"date":        {Type: "string", Description: "New day (YYYY-MM-DD)"},
			"time":        {Type: "string", Description: "New time of day (HH:MM)"},
			"priority":    {Type: "string", Description: "New priority", Enum: []string{"Low", "Medium", "High"}},
		},
	}
	updateDatetimeSpec = ToolSpec{
		Name:        "update_task_datetime",
		Description: "Move a task to another date and time. The task is reopened.",
		Parameters: map[string]ParamSpec{
			"id":   idParam,
			"date": {Type: "string", Description: "New day (YYYY-MM-DD)", Required: true},
			"time": {Type: "string", Description: "New time of day (HH:MM)"},
		},
	}
	deleteTaskSpec = ToolSpec{
		Name:        "delete_task",
		Description: "Delete a task.",
		Parameters:  map[string]ParamSpec{"id": idParam},
	}
	markDoneSpec = ToolSpec{
		Name:        "mark_done",
		Description: "Mark a task done. Done tasks cannot be reopened.",
		Parameters: map[string]ParamSpec{
			"id": idParam,
		},
	}
	listTasksSpec = ToolSpec{
		Name:        "list_tasks",
		Description: "List tasks of the current user for a time window.",
		Parameters: map[string]ParamSpec{
			"when":      {Type: "string", Description: "Time window", Enum: []string{"all", "today", "week"}, Default: "all"},
			"base_date": {Type: "string", Description: "Anchor day (YYYY-MM-DD); defaults to today"},
		},
	}
)

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errBadArgs, err)
	}
	return nil
}

func taskResult(t tasks.Task) map[string]any {
	return map[string]any{"ok": true, "task": t}
}

func (ts *Toolset) addTask(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var d tasks.Draft
	if err := decodeArgs(raw, &d); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Date) == "" {
		d.Date = ts.today().String()
	}
	if d.Priority == "" {
		d.Priority = tasks.PriorityMedium
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	var t tasks.Task
	d.Apply(&t)
	if err := ts.store.Create(ctx, owner, &t); err != nil {
		return nil, err
	}
	return taskResult(t), nil
}

func (ts *Toolset) editTask(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		ID          string  `json:"id"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Category    *string `json:"category"`
		Date        *string `json:"date"`
		Time        *string `json:"time"`
		Priority    *string `json:"priority"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Title == nil && args.Description == nil && args.Category == nil &&
		args.Date == nil && args.Time == nil && args.Priority == nil {
		return nil, fmt.Errorf("%w: no fields to update", errBadArgs)
	}

	t, err := ts.store.Get(ctx, owner, args.ID)
	if err != nil {
		return nil, err
	}
	d := tasks.DraftOf(t)
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&d.Title, args.Title)
	set(&d.Description, args.Description)
	set(&d.Category, args.Category)
	set(&d.Date, args.Date)
	set(&d.Time, args.Time)
	if args.Priority != nil {
		d.Priority = tasks.Priority(*args.Priority)
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	d.Apply(&t)
	if err := ts.store.Update(ctx, owner, t); err != nil {
		return nil, err
	}
	return taskResult(t), nil
}

func (ts *Toolset) updateDatetime(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		ID   string `json:"id"`
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	date, err := calendar.ParseDate(args.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tasks.ErrInvalidTask, err)
	}
	clock := calendar.NormalizeClock(args.Time)
	if !calendar.ValidClock(clock) {
		return nil, fmt.Errorf("%w: invalid time %q", tasks.ErrInvalidTask, args.Time)
	}

	if err := ts.store.Reschedule(ctx, owner, args.ID, date.String(), clock); err != nil {
		return nil, err
	}
	t, err := ts.store.Get(ctx, owner, args.ID)
	if err != nil {
		return nil, err
	}
	return taskResult(t), nil
}

func (ts *Toolset) deleteTask(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := ts.store.Delete(ctx, owner, args.ID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (ts *Toolset) markDone(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if err := ts.store.SetDone(ctx, owner, args.ID, true); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (ts *Toolset) listTasks(ctx context.Context, owner string, raw json.RawMessage) (map[string]any, error) {
	var args struct {
		When     string `json:"when"`
		BaseDate string `json:"base_date"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	mode, err := tasks.ParseMode(args.When)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadArgs, err)
	}
	base := ts.today()
	if args.BaseDate != "" {
		if base, err = calendar.ParseDate(args.BaseDate); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadArgs, err)
		}
	}

	all, err := ts.store.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	list := tasks.Filter(all, mode, base)
	if list == nil {
		list = []tasks.Task{}
	}
	return map[string]any{"ok": true, "tasks": list}, nil
}
