package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dohr-michael/dayplan/internal/tasks"
)

// Identity is the credential attached to every store call.
type Identity struct {
	Token string
}

// ListResponse is the raw answer to a list call. Tasks is kept raw so
// its shape can be checked before decoding.
type ListResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Tasks   json.RawMessage `json:"tasks"`
}

// Ack is the answer to a write call.
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

// TaskStore is the remote task persistence the coordinator syncs with.
// Implementations classify their own failures with ErrTransport and
// ErrMalformedResponse where they can.
type TaskStore interface {
	ListTasks(ctx context.Context, id Identity) (*ListResponse, error)
	CreateTask(ctx context.Context, id Identity, d tasks.Draft) (*Ack, error)
	// EditTask sends every field of t, including its current done state.
	EditTask(ctx context.Context, id Identity, t tasks.Task) (*Ack, error)
	MarkDone(ctx context.Context, id Identity, taskID string) (*Ack, error)
	UpdateSchedule(ctx context.Context, id Identity, taskID, date, clock string) (*Ack, error)
	DeleteTask(ctx context.Context, id Identity, taskID string) (*Ack, error)
}

// DecodeTasks validates a list response and decodes its tasks.
func DecodeTasks(resp *ListResponse) ([]tasks.Task, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: success=false %s", ErrMalformedResponse, resp.Message)
	}
	raw := bytes.TrimSpace(resp.Tasks)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: tasks is not a list", ErrMalformedResponse)
	}
	var wire []wireTask
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode tasks: %v", ErrMalformedResponse, err)
	}
	out := make([]tasks.Task, len(wire))
	for i, w := range wire {
		out[i] = w.Task
		out[i].ID = string(w.ID)
	}
	return out, nil
}

type wireTask struct {
	tasks.Task
	ID taskID `json:"id"`
}

// taskID decodes string ids as well as the integer ids of older
// servers, which are kept in their decimal form.
type taskID string

func (id *taskID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = taskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid task id %s", b)
	}
	*id = taskID(n.String())
	return nil
}
