// Package gateway serves the task API over HTTP: account signup and
// login, per-user task CRUD, the assistant chat endpoint and a websocket
// stream of task events.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/dayplan/internal/auth"
	"github.com/dohr-michael/dayplan/internal/events"
	"github.com/dohr-michael/dayplan/internal/gateway/ws"
	"github.com/dohr-michael/dayplan/internal/storage"
	"github.com/dohr-michael/dayplan/internal/tasks"
)

// Chatter answers a user's chat message.
type Chatter interface {
	Reply(ctx context.Context, owner, message string) (string, error)
}

// Server is the dayplan gateway HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	store      tasks.Store
	auth       *auth.Service
	journal    *storage.Journal

	chatMu sync.RWMutex
	chat   Chatter
}

// NewServer wires the router. Writes through store are published on bus.
// Chat and the activity journal are optional
// and set with SetChatter and SetJournal.
func NewServer(bus *events.Bus, store tasks.Store, authSvc *auth.Service, host string, port int) *Server {
	s := &Server{
		hub:   ws.NewHub(bus),
		bus:   bus,
		store: tasks.Observe(store, bus, events.SourceGateway),
		auth:  authSvc,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/signup", s.handleSignup)
	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware(s.handleUnauthorized))

		r.Post("/api/logout", s.handleLogout)
		r.Get("/api/tasks", s.handleListTasks)
		r.Post("/api/add-task", s.handleAddTask)
		r.Put("/api/edit-task/{id}", s.handleEditTask)
		r.Put("/api/update-task/{id}", s.handleUpdateSchedule)
		r.Put("/api/mark-done/{id}", s.handleMarkDone)
		r.Delete("/api/delete-task/{id}", s.handleDeleteTask)
		r.Post("/api/send-message", s.handleSendMessage)
		r.Get("/api/activity", s.handleActivity)
		r.Get("/api/events", s.handleEvents)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// SetChatter enables /api/send-message. It may be called while serving;
// a nil c disables chat.
func (s *Server) SetChatter(c Chatter) {
	s.chatMu.Lock()
	defer s.chatMu.Unlock()
	s.chat = c
}

func (s *Server) chatter() Chatter {
	s.chatMu.RLock()
	defer s.chatMu.RUnlock()
	return s.chat
}

// SetJournal serves /api/activity from a persistent journal instead of
// the in-memory bus history.
func (s *Server) SetJournal(j *storage.Journal) { s.journal = j }

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("dayplan gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Clients()})
}

func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusUnauthorized, ack{Message: "unauthorized"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, owner(r))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var history []events.Event
	if s.journal != nil {
		var err error
		if history, err = s.journal.Recent(owner(r), limit); err != nil {
			writeError(w, err)
			return
		}
	} else {
		history = s.bus.OwnerHistory(owner(r), limit)
	}

	type eventJSON struct {
		ID        string             `json:"id"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}
	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func owner(r *http.Request) string {
	u, _ := auth.UserFromContext(r.Context())
	return u.ID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
