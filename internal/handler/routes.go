package handler

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/msomdec/chit-chat/internal/domain"
	"github.com/msomdec/chit-chat/internal/service"
)

// Deps are the collaborators RegisterRoutes wires into handlers.
type Deps struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Cookie   SessionCookie
	DB       Pinger
	// Files serves blob-stored images; nil when images live in S3.
	Files domain.FileStore
	// Limiter guards signup and login; nil disables rate limiting.
	Limiter         service.Limiter
	RateLimitWindow time.Duration
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []netip.Prefix
	MaxImageBody    int64
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	auth := NewAuthHandler(d.Auth, d.Profiles, d.Cookie, d.MaxImageBody)

	limited := func(h http.Handler) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return RateLimit(d.Limiter, d.RateLimitWindow, d.TrustedProxies)(h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)
	if d.DB != nil {
		mux.Handle("GET /readyz", HandleReadyz(d.DB))
	}

	mux.Handle("POST /api/auth/signup", limited(Func(auth.HandleSignup)))
	mux.Handle("POST /api/auth/login", limited(Func(auth.HandleLogin)))
	mux.Handle("POST /api/auth/logout", Func(auth.HandleLogout))
	mux.Handle("GET /api/auth/check", RequireAuth(d.Auth, Func(auth.HandleCheck)))
	mux.Handle("PUT /api/auth/update-profile", RequireAuth(d.Auth, Func(auth.HandleUpdateProfile)))

	if d.Files != nil {
		images := NewImageHandler(d.Files)
		mux.Handle("GET /api/images/profile-pics/{key...}", Func(images.HandleGet))
	}
}
