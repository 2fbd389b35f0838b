// Package remotetest provides an in-process fake backend for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/asteroid-belt/kisan/internal/remote"
)

// Request is one request the fake backend received.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Decode unmarshals the request body into v.
func (r Request) Decode(t testing.TB, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode request body %q: %v", r.Body, err)
	}
}

// Server is a programmable fake backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewServer starts a fake backend that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]string{"code": "PGRST205", "message": "no route " + r.Method + " " + r.URL.Path})
		return
	}
	h(w, r)
}

// On registers h for method and path, replacing any previous handler.
func (s *Server) On(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = h
}

// Reply registers a fixed JSON response.
func (s *Server) Reply(method, path string, status int, body interface{}) {
	s.On(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Fail registers a backend error response with the given code.
func (s *Server) Fail(method, path string, status int, code, message string) {
	s.Reply(method, path, status, map[string]string{"code": code, "message": message})
}

// Requests returns the recorded requests for method and path.
func (s *Server) Requests(method, path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Client returns a guest client pointed at the fake backend.
func (s *Server) Client() *remote.Client {
	return remote.New(remote.Options{URL: s.URL, AnonKey: "anon-key", RateLimit: -1})
}

// SignedInClient returns a client holding a long-lived session for userID.
func (s *Server) SignedInClient(t testing.TB, userID string) *remote.Client {
	t.Helper()
	store := &MemoryStore{Session: &remote.Session{
		AccessToken:  "token-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		User:         remote.User{ID: userID, Email: userID + "@example.com"},
	}}
	c := remote.New(remote.Options{URL: s.URL, AnonKey: "anon-key", RateLimit: -1, Store: store})
	if err := c.RestoreSession(context.Background()); err != nil {
		t.Fatalf("restore session: %v", err)
	}
	return c
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// MemoryStore is an in-memory remote.SessionStore.
type MemoryStore struct {
	mu      sync.Mutex
	Session *remote.Session
	Saves   int
}

func (m *MemoryStore) LoadSession(ctx context.Context) (*remote.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Session, nil
}

func (m *MemoryStore) SaveSession(ctx context.Context, s *remote.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Session = s
	m.Saves++
	return nil
}

func (m *MemoryStore) ClearSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Session = nil
	return nil
}
