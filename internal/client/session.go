// Package client is the session client for the chat auth API. A Session keeps
// the signed-in user and per-operation busy flags, and tells subscribers
// whenever either changes.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
)

// User is the public profile returned by the server.
type User struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// State is what a UI renders from.
type State struct {
	User              *User
	IsSigningUp       bool
	IsLoggingIn       bool
	IsCheckingAuth    bool
	IsUpdatingProfile bool
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// Notifier surfaces one-line outcomes to the user.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to a slog.Logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Success(msg string) { n.logger().Info(msg) }
func (n LogNotifier) Error(msg string)   { n.logger().Error(msg) }

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// Session talks to the API and mirrors the results into State. It is safe
// for concurrent use; concurrent calls are not deduplicated.
type Session struct {
	baseURL string
	http    *http.Client
	notify  Notifier

	mu        sync.Mutex
	state     State
	listeners []func(State)
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient replaces the default client. If it has no cookie jar, one
// is added so the session cookie is kept between calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.http = c }
}

// WithNotifier sets where success and error messages go.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notify = n }
}

// New creates a Session for the server at baseURL, e.g.
// "http://localhost:5001".
func New(baseURL string, opts ...Option) (*Session, error) {
	s := &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		notify:  LogNotifier{},
		state:   State{IsCheckingAuth: true},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		s.http.Jar = jar
	}
	return s, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run after every state change. The returned func
// removes it.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[idx] = nil
	}
}

// CheckAuth asks the server who the session cookie belongs to. Failure is
// not reported to the Notifier: an anonymous visitor is the common case.
func (s *Session) CheckAuth(ctx context.Context) (*User, error) {
	s.update(func(st *State) { st.IsCheckingAuth = true })
	defer s.update(func(st *State) { st.IsCheckingAuth = false })

	var user User
	if err := s.do(ctx, http.MethodGet, "/api/auth/check", nil, &user); err != nil {
		slog.DebugContext(ctx, "check auth failed", "error", err)
		s.setUser(nil)
		return nil, err
	}
	s.setUser(&user)
	return &user, nil
}

// SignupRequest is the signup form.
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an account and signs in as it.
func (s *Session) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	s.update(func(st *State) { st.IsSigningUp = true })
	defer s.update(func(st *State) { st.IsSigningUp = false })

	var user User
	if err := s.do(ctx, http.MethodPost, "/api/auth/signup", req, &user); err != nil {
		s.setUser(nil)
		s.notify.Error(message(err))
		return nil, err
	}
	s.setUser(&user)
	s.notify.Success("Account created successfully")
	return &user, nil
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (*User, error) {
	s.update(func(st *State) { st.IsLoggingIn = true })
	defer s.update(func(st *State) { st.IsLoggingIn = false })

	body := map[string]string{"email": email, "password": password}
	var user User
	if err := s.do(ctx, http.MethodPost, "/api/auth/login", body, &user); err != nil {
		s.setUser(nil)
		s.notify.Error(message(err))
		return nil, err
	}
	s.setUser(&user)
	s.notify.Success("Logged in successfully")
	return &user, nil
}

// Logout expires the session cookie. The user stays set if the call fails.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil); err != nil {
		s.notify.Error(message(err))
		return err
	}
	s.setUser(nil)
	s.notify.Success("Logged out successfully")
	return nil
}

// UpdateProfile uploads a new profile picture given as a data URL (see
// DataURL). On failure the current user is left unchanged.
func (s *Session) UpdateProfile(ctx context.Context, profilePic string) (*User, error) {
	s.update(func(st *State) { st.IsUpdatingProfile = true })
	defer s.update(func(st *State) { st.IsUpdatingProfile = false })

	body := map[string]string{"profilePic": profilePic}
	var user User
	if err := s.do(ctx, http.MethodPut, "/api/auth/update-profile", body, &user); err != nil {
		s.notify.Error(message(err))
		return nil, err
	}
	s.setUser(&user)
	s.notify.Success("Profile updated successfully")
	return &user, nil
}

// DataURL encodes image bytes the way a browser FileReader would.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (s *Session) setUser(u *User) {
	s.update(func(st *State) { st.User = u })
}

func (s *Session) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshotLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, l := range s.listeners {
		if l != nil {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *Session) snapshotLocked() State {
	st := s.state
	if st.User != nil {
		u := *st.User
		st.User = &u
	}
	return st
}

func (s *Session) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&msg) == nil {
			apiErr.Message = msg.Message
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
