package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

type contextKey string

const ctxProfileKey contextKey = "profile"

// TokenValidator verifies a bearer token and returns the subject user ID.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

// ProfileLookup resolves the authenticated profile by ID.
type ProfileLookup interface {
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
}

// TokenAuth authenticates requests by validating the Bearer JWT and loading
// the matching profile into request context.
func TokenAuth(tokens TokenValidator, profiles ProfileLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}

			userID, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			profile, err := profiles.ProfileByID(r.Context(), userID)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}

// RequireAdmin rejects requests whose authenticated profile is not an admin.
// It must run after TokenAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := ProfileFromCtx(r.Context())
		if p == nil || !p.IsAdmin() {
			http.Error(w, `{"error":"admin access required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProfileFromCtx returns the authenticated profile or nil.
func ProfileFromCtx(ctx context.Context) *models.Profile {
	p, _ := ctx.Value(ctxProfileKey).(*models.Profile)
	return p
}

// WithProfile returns a context carrying the given profile.
func WithProfile(ctx context.Context, p *models.Profile) context.Context {
	return context.WithValue(ctx, ctxProfileKey, p)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
