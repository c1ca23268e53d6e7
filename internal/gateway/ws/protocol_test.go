package ws

import (
	"encoding/json"
	"testing"
)

func TestMarshalUnmarshal_RequestFrame(t *testing.T) {
	params, _ := json.Marshal(map[string]int{"limit": 5})
	orig := Frame{
		Type:   FrameTypeRequest,
		ID:     "req-1",
		Method: string(MethodHistory),
		Params: params,
	}

	data, err := MarshalFrame(orig)
	if err != nil {
		t.Fatalf("MarshalFrame: %v", err)
	}
	got, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("UnmarshalFrame: %v", err)
	}

	if got.Type != FrameTypeRequest || got.ID != "req-1" || got.Method != string(MethodHistory) {
		t.Fatalf("frame = %+v", got)
	}
	var p map[string]int
	if err := json.Unmarshal(got.Params, &p); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if p["limit"] != 5 {
		t.Fatalf("expected params.limit 5, got %d", p["limit"])
	}
}

func TestNewResponseFrame(t *testing.T) {
	f, err := NewResponseFrame("req-2", false, nil, "boom")
	if err != nil {
		t.Fatal(err)
	}
	if f.OK == nil || *f.OK || f.Error != "boom" || f.Payload != nil {
		t.Errorf("frame = %+v", f)
	}
}

func TestNewEventFrame(t *testing.T) {
	f, err := NewEventFrame("task.created", map[string]string{"id": "task_1"})
	if err != nil {
		t.Fatal(err)
	}
	if f.Type != FrameTypeEvent || f.Event != "task.created" || string(f.Payload) != `{"id":"task_1"}` {
		t.Errorf("frame = %+v", f)
	}
}
