// Package fakestore is an in-process stand-in for a cvec store, used by tests.
// It serves the config and token endpoints and dispatches every other
// authenticated request to registered handlers.
package fakestore

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// APIKey is a well-formed key accepted by the fake login.
const APIKey = "cva_abcdEFGHijklMNOPqrstUVWXyz0123456789"

// PublishableKey is served from /config.
const PublishableKey = "pk_test_publishable"

// Recorded is a request seen by the server.
type Recorded struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is a fake store. Zero configuration is needed beyond New.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	seq          int
	access       string
	refresh      string
	refreshFails bool
	configBody   any
	handlers     map[string]http.HandlerFunc
	requests     []Recorded
}

// New starts a Server; callers must Close it.
func New() *Server {
	s := &Server{
		handlers:   make(map[string]http.HandlerFunc),
		configBody: map[string]string{"supabasePublishableKey": PublishableKey},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Handle registers h for method and path.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method+" "+path] = h
}

// HandleJSON replies to method and path with v encoded as JSON.
func (s *Server) HandleJSON(method, path string, status int, v any) {
	s.Handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, status, v)
	})
}

// SetConfig replaces the /config response body.
func (s *Server) SetConfig(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configBody = v
}

// ExpireToken invalidates the current access token; the next authenticated
// request gets a 401.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = "expired"
}

// FailRefresh makes refresh_token grants fail.
func (s *Server) FailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFails = fail
}

// AccessToken returns the currently valid access token.
func (s *Server) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

// Requests returns the recorded requests for method and path.
func (s *Server) Requests(method, path string) []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Recorded
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	s.requests = append(s.requests, Recorded{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header.Clone(),
		Body:     body,
	})
	s.mu.Unlock()

	switch r.URL.Path {
	case "/config":
		s.mu.Lock()
		cfg := s.configBody
		s.mu.Unlock()
		WriteJSON(w, http.StatusOK, cfg)
		return
	case "/supabase/auth/v1/token":
		s.token(w, r, body)
		return
	}

	s.mu.Lock()
	valid := s.access != "" && r.Header.Get("Authorization") == "Bearer "+s.access
	h := s.handlers[r.Method+" "+r.URL.Path]
	s.mu.Unlock()

	if !valid {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "JWT expired"})
		return
	}
	if h == nil {
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	h(w, r)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request, body []byte) {
	if r.Method != http.MethodPost || r.Header.Get("apikey") != PublishableKey {
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid apikey"})
		return
	}
	var payload map[string]string
	if err := json.Unmarshal(body, &payload); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Query().Get("grant_type") {
	case "password":
		if payload["email"] != "cva+abcd@cvector.app" || payload["password"] != APIKey {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	case "refresh_token":
		if s.refreshFails || payload["refresh_token"] != s.refresh {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	default:
		WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	s.seq++
	s.access = fmt.Sprintf("access-%d", s.seq)
	s.refresh = fmt.Sprintf("refresh-%d", s.seq)
	WriteJSON(w, http.StatusOK, map[string]string{
		"access_token":  s.access,
		"refresh_token": s.refresh,
	})
}
