package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dohr-michael/dayplan/internal/auth"
	"github.com/dohr-michael/dayplan/internal/calendar"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// ack is the envelope of every write endpoint.
type ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id,omitempty"`
}

type listResponse struct {
	Success bool         `json:"success"`
	Tasks   []tasks.Task `json:"tasks"`
}

type loginResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token"`
	User    auth.User `json:"user"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Reply   string `json:"reply"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tasks.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrInvalidTask), errors.Is(err, auth.ErrInvalidSignup), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("gateway request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, ack{Message: msg})
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("user registered", "user", u.ID)
	writeJSON(w, http.StatusCreated, ack{Success: true, Message: "User registered", ID: u.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, u, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: token, User: u})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), auth.BearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context(), owner(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Tasks: list})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var d tasks.Draft
	if err := decode(r, &d); err != nil {
		writeError(w, err)
		return
	}
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}

	t := tasks.Task{}
	d.Apply(&t)
	if err := s.store.Create(r.Context(), owner(r), &t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ack{Success: true, Message: "Task added", ID: t.ID})
}

func (s *Server) handleEditTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		tasks.Draft
		Done *tasks.Flag `json:"done"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d := req.Draft.Normalize()
	if err := d.Validate(); err != nil {
		writeError(w, err)
		return
	}

	t, err := s.store.Get(r.Context(), owner(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	d.Apply(&t)
	if req.Done != nil {
		t.Done = *req.Done
	}
	if err := s.store.Update(r.Context(), owner(r), t); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true, Message: "Task updated"})
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		Time string `json:"time"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", tasks.ErrInvalidTask, err))
		return
	}
	clock := calendar.NormalizeClock(req.Time)
	if !calendar.ValidClock(clock) {
		writeError(w, fmt.Errorf("%w: invalid time %q", tasks.ErrInvalidTask, req.Time))
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.Reschedule(r.Context(), owner(r), id, date.String(), clock); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true, Message: "Task rescheduled"})
}

func (s *Server) handleMarkDone(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Done tasks.Flag `json:"done"`
	}{Done: true}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	if !req.Done {
		writeError(w, fmt.Errorf("%w: mark-done cannot reopen a task", tasks.ErrInvalidTask))
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.store.SetDone(r.Context(), owner(r), id, true); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true, Message: "Task updated"})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), owner(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack{Success: true})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	chat := s.chatter()
	if chat == nil {
		writeJSON(w, http.StatusServiceUnavailable, ack{Message: "assistant not configured"})
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, fmt.Errorf("%w: message is required", errBadRequest))
		return
	}

	reply, err := chat.Reply(r.Context(), owner(r), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Success: true, Reply: reply})
}
