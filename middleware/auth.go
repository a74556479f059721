package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/billbatista/zensplit/session"
	"github.com/google/uuid"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Identity is the authenticated user of a request.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// SessionFinder looks up a session by its cookie token.
type SessionFinder interface {
	GetByToken(ctx context.Context, token string) (*session.Session, error)
}

// AuthMiddleware checks if user has a valid session
func AuthMiddleware(sessions SessionFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				slog.DebugContext(r.Context(), "invalid/expired session", "error", err)
				http.SetCookie(w, &http.Cookie{
					Name:   session.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
				next.ServeHTTP(w, r)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: sess.UserID, Email: sess.Email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests without an identity with a JSON 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAuthenticated(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := GetIdentity(ctx)
	return id.UserID, ok
}

func GetEmail(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	return id.Email, ok
}

// IsAuthenticated checks if user is authenticated
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetIdentity(ctx)
	return ok
}
