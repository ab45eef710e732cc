package handler

import (
	"net/http"

	"github.com/msomdec/chit-chat/internal/service"
)

// AuthHandler handles authentication and profile HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	profiles     *service.ProfileService
	cookie       SessionCookie
	maxImageBody int64
}

// NewAuthHandler creates a new AuthHandler. maxImageBody caps the
// update-profile request body; non-positive means 10MB.
func NewAuthHandler(auth *service.AuthService, profiles *service.ProfileService, cookie SessionCookie, maxImageBody int64) *AuthHandler {
	if maxImageBody <= 0 {
		maxImageBody = 10 << 20
	}
	return &AuthHandler{auth: auth, profiles: profiles, cookie: cookie, maxImageBody: maxImageBody}
}

// HandleSignup creates an account and starts a session.
// POST /api/auth/signup
// Request:  {"fullName":"...","email":"...","password":"..."}
// Response: 201 {"_id":"...","fullName":"...","email":"...","profilePic":""}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) *Error {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if e := readJSON(w, r, &req, defaultMaxBodyBytes); e != nil {
		return e
	}

	sess, err := h.auth.Signup(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		return fromService(err, "signup")
	}

	h.cookie.Set(w, sess.Token)
	writeJSON(w, http.StatusCreated, toUserDTO(sess.User))
	return nil
}

// HandleLogin verifies credentials and starts a session.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: 200 user, or 400 {"message":"Invalid Credentials"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) *Error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if e := readJSON(w, r, &req, defaultMaxBodyBytes); e != nil {
		return e
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return fromService(err, "login")
	}

	h.cookie.Set(w, sess.Token)
	writeJSON(w, http.StatusOK, toUserDTO(sess.User))
	return nil
}

// HandleLogout expires the session cookie. The token itself stays valid until
// its own expiry; there is no server-side revocation.
// POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) *Error {
	h.cookie.Clear(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
	return nil
}

// HandleCheck returns the user RequireAuth attached to the request.
// GET /api/auth/check
func (h *AuthHandler) HandleCheck(w http.ResponseWriter, r *http.Request) *Error {
	user := UserFromContext(r.Context())
	if user == nil {
		return internal(nil, "check: no user in context")
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
	return nil
}

// HandleUpdateProfile uploads a new profile picture for the current user.
// PUT /api/auth/update-profile
// Request:  {"profilePic":"data:image/png;base64,..."}
// Response: 200 updated user
func (h *AuthHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) *Error {
	user := UserFromContext(r.Context())
	if user == nil {
		return internal(nil, "update profile: no user in context")
	}

	var req struct {
		ProfilePic string `json:"profilePic"`
	}
	if e := readJSON(w, r, &req, h.maxImageBody); e != nil {
		return e
	}
	if req.ProfilePic == "" {
		return validation("Profile pic is required")
	}

	updated, err := h.profiles.UpdateProfilePic(r.Context(), user.ID, req.ProfilePic)
	if err != nil {
		return fromService(err, "update profile")
	}

	writeJSON(w, http.StatusOK, toUserDTO(updated))
	return nil
}
