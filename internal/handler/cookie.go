package handler

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "jwt"

// SessionCookie writes and clears the session cookie. Secure should be false
// only in development, where the app is served over plain HTTP.
type SessionCookie struct {
	Secure bool
	TTL    time.Duration
}

// Set attaches token to the response.
func (c SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(token, int(c.TTL.Seconds())))
}

// Clear overwrites the session cookie with an empty, already-expired value.
func (c SessionCookie) Clear(w http.ResponseWriter) {
	cookie := c.cookie("", -1) // serialized as Max-Age=0
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (c SessionCookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   c.Secure,
	}
}
