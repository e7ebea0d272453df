package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/farmroute/farmroute/internal/api/models"
	"github.com/farmroute/farmroute/internal/session"
)

// SessionTokenHeader is the alternative to a bearer Authorization header.
const SessionTokenHeader = "X-Session-Token"

// sessionIDKey is the context key for the session ID.
type sessionIDKey struct{}

// TokenValidator validates a session token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*session.Claims, error)
}

// Session validates the session token and stores the session ID in the request context.
// The token is taken from "Authorization: Bearer <token>" or the X-Session-Token header.
func Session(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, detail := sessionToken(r)
			if token == "" {
				writeUnauthorized(w, r, detail)
				return
			}

			claims, err := tokens.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrTokenExpired):
					writeUnauthorized(w, r, "session token has expired")
				default:
					writeUnauthorized(w, r, "invalid session token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey{}, claims.SessionID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) (token, detail string) {
	if header := r.Header.Get("Authorization"); header != "" {
		const bearerPrefix = "Bearer "
		if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
			return "", "invalid authorization header format"
		}
		token = strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return "", "missing bearer token"
		}
		return token, ""
	}
	if token = strings.TrimSpace(r.Header.Get(SessionTokenHeader)); token != "" {
		return token, ""
	}
	return "", "missing session token"
}

// writeUnauthorized writes a 401 directly; the response package imports middleware.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// GetSessionID retrieves the session ID from the context.
// Returns an empty string for requests that carried no valid token.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
