package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// TASK EVENTS
// =============================================================================

// TaskSnapshot is the task state carried by lifecycle events.
type TaskSnapshot struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Priority string `json:"priority,omitempty"`
	Done     bool   `json:"done"`
}

type TaskCreatedPayload struct {
	Task TaskSnapshot `json:"task"`
}

func (TaskCreatedPayload) EventType() EventType { return EventTaskCreated }

type TaskUpdatedPayload struct {
	Task TaskSnapshot `json:"task"`
}

func (TaskUpdatedPayload) EventType() EventType { return EventTaskUpdated }

type TaskRescheduledPayload struct {
	TaskID string `json:"task_id"`
	Date   string `json:"date"`
	Time   string `json:"time,omitempty"`
}

func (TaskRescheduledPayload) EventType() EventType { return EventTaskRescheduled }

type TaskCompletedPayload struct {
	TaskID string `json:"task_id"`
	Done   bool   `json:"done"`
}

func (TaskCompletedPayload) EventType() EventType { return EventTaskCompleted }

type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

func (TaskDeletedPayload) EventType() EventType { return EventTaskDeleted }

// =============================================================================
// PLANNER EVENTS
// =============================================================================

type BoardLoadedPayload struct {
	Tasks         int `json:"tasks"`
	AutoCompleted int `json:"auto_completed"`
}

func (BoardLoadedPayload) EventType() EventType { return EventBoardLoaded }

type BoardReorderedPayload struct {
	TaskID string `json:"task_id"`
	Date   string `json:"date"`
	Index  int    `json:"index"`
}

func (BoardReorderedPayload) EventType() EventType { return EventBoardReordered }

type SyncFailedPayload struct {
	Operation string `json:"operation"`
	Class     string `json:"class"`
	Error     string `json:"error"`
}

func (SyncFailedPayload) EventType() EventType { return EventSyncFailed }

// =============================================================================
// ASSISTANT EVENTS
// =============================================================================

type ChatMessagePayload struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []string      `json:"tool_calls,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (ChatMessagePayload) EventType() EventType { return EventChatMessage }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

// NewOwnedEvent is NewTypedEvent scoped to a user.
func NewOwnedEvent(source EventSource, payload EventPayload, owner string) Event {
	e := NewTypedEvent(source, payload)
	e.Owner = owner
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// ExtractPayload decodes the payload of e into T.
func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
