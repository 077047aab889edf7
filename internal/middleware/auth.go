// Package middleware provides HTTP middleware for the mentionwatch server.
package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/Saul-Punybz/mentionwatch/internal/config"
)

const realm = `Basic realm="mentionwatch", charset="UTF-8"`

// BasicAuth returns middleware requiring the configured user and a password
// matching the bcrypt hash. With auth disabled it passes requests through.
func BasicAuth(cfg config.AuthConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	hash := []byte(cfg.PasswordHash)
	user := []byte(cfg.Username)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), user) == 1
			// bcrypt runs on every attempt, whether or not the user matched.
			passErr := bcrypt.CompareHashAndPassword(hash, []byte(p))
			if !userOK || passErr != nil {
				slog.Debug("basic auth: rejected", "user", u, "remote", r.RemoteAddr)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", realm)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}` + "\n"))
}
