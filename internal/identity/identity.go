// Package identity provides anonymous per-device identity primitives.
// Each browser gets a stable opaque id via cookie; the game keys all
// session state on it.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// CookieName is the anonymous identity cookie.
	CookieName = "gauntlet_anon_id"

	cookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const identityKey contextKey = iota

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// FromContext extracts the participant identity from the request
// context, or "" if none was established.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(identityKey).(string); ok {
		return v
	}
	return ""
}

// WithIdentity returns a context carrying the given identity. Exposed
// for tests and non-HTTP entry points.
func WithIdentity(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

// Middleware establishes the anonymous identity for every request:
// reads the cookie if present and well-formed, otherwise mints a new id
// and sets it. The identity is placed in the request context.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(CookieName); err == nil && isValidAnonID(c.Value) {
				id = c.Value
			} else {
				fresh, err := generateAnonID()
				if err != nil {
					http.Error(w, "identity unavailable", http.StatusInternalServerError)
					return
				}
				id = fresh
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
