package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const authClaimsKey contextKey = "authClaims"

// VoiceTokenHeader carries the shared secret for voice-agent calls.
const VoiceTokenHeader = "X-Voice-Token"

// BearerJWT enforces an HMAC-signed JWT on protected endpoints.
// A missing credential yields 401; a present but invalid one yields 403.
func BearerJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			if secret == "" {
				http.Error(w, "auth disabled", http.StatusForbidden)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), authClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns JWT claims if present.
func ClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(authClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

// VoiceToken enforces the shared-secret header used by the voice agent.
func VoiceToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(VoiceTokenHeader)
			if got == "" {
				http.Error(w, "missing voice token", http.StatusUnauthorized)
				return
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid voice token", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
