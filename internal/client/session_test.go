package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/chit-chat/internal/client"
	"github.com/msomdec/chit-chat/internal/handler"
	"github.com/msomdec/chit-chat/internal/imagehost"
	"github.com/msomdec/chit-chat/internal/repository/sqlite"
	"github.com/msomdec/chit-chat/internal/service"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))

	auth := service.NewAuthService(db.Users(), service.NewTokenIssuer("client-test-secret-0123456789abcdef", 0), 4)
	profiles := service.NewProfileService(db.Users(), imagehost.NewBlobUploader(db.FileStore(), ""), 0)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:     auth,
		Profiles: profiles,
		Cookie:   handler.SessionCookie{TTL: service.SessionTTL},
		Files:    db.FileStore(),
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T, url string) (*client.Session, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	s, err := client.New(url, client.WithNotifier(n))
	require.NoError(t, err)
	return s, n
}

func TestNew_InitialState(t *testing.T) {
	s, err := client.New("http://localhost:5001/")
	require.NoError(t, err)

	st := s.Snapshot()
	assert.Nil(t, st.User)
	assert.True(t, st.IsCheckingAuth)
	assert.False(t, st.IsSigningUp)
	assert.False(t, st.IsLoggingIn)
	assert.False(t, st.IsUpdatingProfile)
}

func TestSession_SignupCheckLogout(t *testing.T) {
	srv := newServer(t)
	s, n := newSession(t, srv.URL)
	ctx := context.Background()

	user, err := s.Signup(ctx, client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "A", user.FullName)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []string{"Account created successfully"}, n.successes)

	checked, err := s.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, checked.ID)

	st := s.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "a@x.com", st.User.Email)
	assert.False(t, st.IsCheckingAuth)
	assert.False(t, st.IsSigningUp)

	require.NoError(t, s.Logout(ctx))
	assert.Nil(t, s.Snapshot().User)

	_, err = s.CheckAuth(ctx)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Unauthorized - No Token Provided", apiErr.Message)
	assert.Nil(t, s.Snapshot().User)
	assert.Empty(t, n.errors, "check failures are not notified")
}

func TestSession_LoginFailureClearsUser(t *testing.T) {
	srv := newServer(t)
	s, n := newSession(t, srv.URL)
	ctx := context.Background()

	_, err := s.Signup(ctx, client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	_, err = s.Login(ctx, "a@x.com", "wrong-password")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Invalid Credentials", apiErr.Message)

	st := s.Snapshot()
	assert.Nil(t, st.User)
	assert.False(t, st.IsLoggingIn)
	assert.Equal(t, []string{"Invalid Credentials"}, n.errors)

	user, err := s.Login(ctx, "a@x.com", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Contains(t, n.successes, "Logged in successfully")
}

func TestSession_SignupValidationError(t *testing.T) {
	srv := newServer(t)
	s, n := newSession(t, srv.URL)

	_, err := s.Signup(context.Background(), client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abc"})
	require.Error(t, err)
	assert.Equal(t, []string{"Password must be at least 6 characters"}, n.errors)
	assert.False(t, s.Snapshot().IsSigningUp)
}

func TestSession_UpdateProfile(t *testing.T) {
	srv := newServer(t)
	s, n := newSession(t, srv.URL)
	ctx := context.Background()

	_, err := s.Signup(ctx, client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	user, err := s.UpdateProfile(ctx, client.DataURL(testPNG))
	require.NoError(t, err)
	assert.Contains(t, user.ProfilePic, "/api/images/profile-pics/")
	assert.Contains(t, n.successes, "Profile updated successfully")

	_, err = s.UpdateProfile(ctx, "")
	require.Error(t, err)
	assert.Contains(t, n.errors, "Profile pic is required")

	st := s.Snapshot()
	require.NotNil(t, st.User, "failed update keeps the user")
	assert.Equal(t, user.ProfilePic, st.User.ProfilePic)
	assert.False(t, st.IsUpdatingProfile)
}

func TestSession_SubscribeSeesBusyFlag(t *testing.T) {
	srv := newServer(t)
	s, _ := newSession(t, srv.URL)

	var (
		mu     sync.Mutex
		states []client.State
	)
	unsubscribe := s.Subscribe(func(st client.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, st)
	})

	_, err := s.Signup(context.Background(), client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, states, 3)
	assert.True(t, states[0].IsSigningUp)
	assert.NotNil(t, states[1].User)
	assert.False(t, states[2].IsSigningUp)
	mu.Unlock()

	unsubscribe()
	require.NoError(t, s.Logout(context.Background()))

	mu.Lock()
	assert.Len(t, states, 3)
	mu.Unlock()
}

func TestSession_SnapshotIsCopy(t *testing.T) {
	srv := newServer(t)
	s, _ := newSession(t, srv.URL)

	_, err := s.Signup(context.Background(), client.SignupRequest{FullName: "A", Email: "a@x.com", Password: "abcdef"})
	require.NoError(t, err)

	st := s.Snapshot()
	st.User.FullName = "mutated"
	assert.Equal(t, "A", s.Snapshot().User.FullName)
}

func TestSession_TransportError(t *testing.T) {
	s, n := newSession(t, "http://127.0.0.1:1")

	_, err := s.Login(context.Background(), "a@x.com", "abcdef")
	require.Error(t, err)
	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
	assert.Len(t, n.errors, 1)
	assert.False(t, s.Snapshot().IsLoggingIn)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", client.DataURL([]byte("\x89PNG\r\n\x1a\n")))
}
