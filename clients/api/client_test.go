package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dohr-michael/dayplan/internal/auth"
	"github.com/dohr-michael/dayplan/internal/planner"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

type recorded struct {
	method, path, auth string
	body               map[string]any
}

func newServer(t *testing.T, status int, response string) (*Client, *[]recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		json.NewDecoder(r.Body).Decode(&rec.body)
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second), &calls
}

func TestListTasksRaw(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `{"success":true,"tasks":[{"id":"a","title":"x","date":"2024-06-03","done":1}]}`)

	resp, err := c.ListTasks(context.Background(), planner.Identity{Token: "tok"})
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	list, err := planner.DecodeTasks(resp)
	if err != nil {
		t.Fatalf("DecodeTasks: %v", err)
	}
	if len(list) != 1 || !list[0].Done {
		t.Errorf("tasks = %+v", list)
	}
	if (*calls)[0].auth != "Bearer tok" || (*calls)[0].path != "/api/tasks" {
		t.Errorf("request = %+v", (*calls)[0])
	}
}

func TestWriteRequests(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `{"success":true,"id":"task_1"}`)
	ctx := context.Background()
	id := planner.Identity{Token: "tok"}

	if ack, err := c.CreateTask(ctx, id, tasks.Draft{Title: "x", Date: "2024-06-03"}); err != nil || ack.ID != "task_1" {
		t.Fatalf("CreateTask = %+v, %v", ack, err)
	}
	c.EditTask(ctx, id, tasks.Task{ID: "a/b", Title: "y", Date: "2024-06-03", Done: true})
	c.MarkDone(ctx, id, "a")
	c.UpdateSchedule(ctx, id, "a", "2024-06-04", "")
	c.DeleteTask(ctx, id, "a")

	want := []struct{ method, path string }{
		{http.MethodPost, "/api/add-task"},
		{http.MethodPut, "/api/edit-task/a/b"},
		{http.MethodPut, "/api/mark-done/a"},
		{http.MethodPut, "/api/update-task/a"},
		{http.MethodDelete, "/api/delete-task/a"},
	}
	if len(*calls) != len(want) {
		t.Fatalf("calls = %d, want %d", len(*calls), len(want))
	}
	for i, w := range want {
		got := (*calls)[i]
		if got.method != w.method || got.path != w.path {
			t.Errorf("call %d = %s %s, want %s %s", i, got.method, got.path, w.method, w.path)
		}
	}
	if (*calls)[1].body["done"] != true {
		t.Errorf("edit body done = %v, want true", (*calls)[1].body["done"])
	}
	if body := (*calls)[3].body; body["date"] != "2024-06-04" || body["time"] != "" {
		t.Errorf("update body = %v", body)
	}
}

func TestStatusErrorsAreTransport(t *testing.T) {
	c, _ := newServer(t, http.StatusUnauthorized, `{"success":false,"message":"unauthorized"}`)

	_, err := c.ListTasks(context.Background(), planner.Identity{})
	if !errors.Is(err, planner.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "unauthorized" {
		t.Errorf("status error = %+v", se)
	}
}

func TestMalformedBody(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `<html>`)
	_, err := c.MarkDone(context.Background(), planner.Identity{}, "a")
	if !errors.Is(err, planner.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.ListTasks(context.Background(), planner.Identity{})
	if !errors.Is(err, planner.ErrTransport) {
		t.Errorf("err = %v, want ErrTransport", err)
	}
}

func TestLogin(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"success":true,"token":"abc","user":{"id":"u1","email":"a@b.c"}}`)
	s, err := c.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.Token != "abc" || s.User.ID != "u1" {
		t.Errorf("session = %+v", s)
	}

	c, _ = newServer(t, http.StatusOK, `{"success":true}`)
	if _, err := c.Login(context.Background(), "a@b.c", "pw"); !errors.Is(err, planner.ErrMalformedResponse) {
		t.Errorf("err = %v, want ErrMalformedResponse", err)
	}
}
