package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubValidator struct {
	userID uuid.UUID
	err    error
}

func (s *stubValidator) ValidateToken(_ context.Context, _ string) (uuid.UUID, error) {
	return s.userID, s.err
}

type stubLookup struct {
	profile *models.Profile
	err     error
}

func (s *stubLookup) ProfileByID(_ context.Context, _ uuid.UUID) (*models.Profile, error) {
	return s.profile, s.err
}

// okHandler writes 200 and the profile email (for assertions).
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	p := ProfileFromCtx(r.Context())
	if p != nil {
		w.Write([]byte(p.Email))
	}
	w.WriteHeader(http.StatusOK)
})

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTokenAuth_ValidToken(t *testing.T) {
	profile := &models.Profile{ID: uuid.New(), Email: "test@example.com"}

	handler := TokenAuth(
		&stubValidator{userID: profile.ID},
		&stubLookup{profile: profile},
	)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != profile.Email {
		t.Fatalf("expected body %q, got %q", profile.Email, got)
	}
}

func TestTokenAuth_MissingHeader(t *testing.T) {
	handler := TokenAuth(&stubValidator{}, &stubLookup{})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTokenAuth_MalformedHeader(t *testing.T) {
	handler := TokenAuth(&stubValidator{}, &stubLookup{})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTokenAuth_InvalidToken(t *testing.T) {
	handler := TokenAuth(
		&stubValidator{err: errors.New("token is expired")},
		&stubLookup{},
	)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer expired.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTokenAuth_UnknownProfile(t *testing.T) {
	handler := TokenAuth(
		&stubValidator{userID: uuid.New()},
		&stubLookup{err: errors.New("profile not found")},
	)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer some.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	admin := &models.Profile{ID: uuid.New(), Role: models.RoleAdmin}
	user := &models.Profile{ID: uuid.New(), Role: models.RoleUser}

	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name    string
		profile *models.Profile
		want    int
	}{
		{"admin allowed", admin, http.StatusOK},
		{"regular user forbidden", user, http.StatusForbidden},
		{"no profile forbidden", nil, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/tasks", nil)
			if tc.profile != nil {
				req = req.WithContext(WithProfile(req.Context(), tc.profile))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
