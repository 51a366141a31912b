// Package storetest provides an in-memory fake of the remote event store for
// tests.
package storetest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"

	"eventboard/internal/model"
)

// Server is a fake event store. It assigns numeric ids like the real one.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	events     []model.Event
	users      []model.User
	categories []model.Category
	nextID     int64
	failures   map[string]int
	requests   []string
	lastBody   map[string][]byte
}

// NewServer starts a fake store seeded with the given data.
func NewServer(events []model.Event, users []model.User, categories []model.Category) *Server {
	s := &Server{
		events:     cloneEvents(events),
		users:      append([]model.User(nil), users...),
		categories: append([]model.Category(nil), categories...),
		nextID:     1,
		failures:   map[string]int{},
		lastBody:   map[string][]byte{},
	}
	for _, e := range events {
		if n, ok := e.ID.Int(); ok && n >= s.nextID {
			s.nextID = n + 1
		}
	}

	r := mux.NewRouter()
	r.HandleFunc("/events", s.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events", s.createEvent).Methods(http.MethodPost)
	r.HandleFunc("/events/{id}", s.getEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", s.updateEvent).Methods(http.MethodPut)
	r.HandleFunc("/events/{id}", s.deleteEvent).Methods(http.MethodDelete)
	r.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}", s.getUser).Methods(http.MethodGet)
	r.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)

	s.Server = httptest.NewServer(s.intercept(r))
	return s
}

// Fail makes every later request matching "METHOD /path" answer with status.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// Recover clears an injected failure.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Requests returns "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Count returns how many requests matched route.
func (s *Server) Count(route string) int {
	n := 0
	for _, r := range s.Requests() {
		if r == route {
			n++
		}
	}
	return n
}

// LastBody returns the raw JSON body of the last request to route.
func (s *Server) LastBody(route string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody[route]
}

// Events returns a copy of the stored events.
func (s *Server) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.events)
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, route)
		if len(body) > 0 {
			s.lastBody[route] = body
		}
		status, failing := s.failures[route]
		s.mu.Unlock()

		if failing {
			http.Error(w, http.StatusText(status), status)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.events))
}

func (s *Server) getEvent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.eventIndex(mux.Vars(r)["id"])
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, s.events[i])
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = model.NumericID(s.nextID)
	s.nextID++
	s.events = append(s.events, e.Clone())
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.eventIndex(mux.Vars(r)["id"])
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	e.ID = s.events[i].ID
	s.events[i] = e.Clone()
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.eventIndex(mux.Vars(r)["id"])
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) listUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.users))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	for _, u := range s.users {
		if u.ID.String() == id {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(s.categories))
}

// eventIndex must be called with s.mu held.
func (s *Server) eventIndex(id string) int {
	for i, e := range s.events {
		if e.ID.String() == id {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func cloneEvents(in []model.Event) []model.Event {
	out := make([]model.Event, 0, len(in))
	for _, e := range in {
		out = append(out, e.Clone())
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Num is shorthand for a numeric id in fixtures.
func Num(n int64) model.ID { return model.NumericID(n) }

// Str is shorthand for a string pointer in fixtures.
func Str(s string) *string { return &s }
