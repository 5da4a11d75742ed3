package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/campusrun/backend/internal/middleware"
	"github.com/campusrun/backend/internal/models"
)

type stubNotifications struct {
	limit int
	rows  []*models.Notification
}

func (s *stubNotifications) ListByUser(_ context.Context, _ uuid.UUID, limit int) ([]*models.Notification, error) {
	s.limit = limit
	return s.rows, nil
}

func (s *stubNotifications) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (s *stubNotifications) MarkAllRead(context.Context, uuid.UUID) error         { return nil }
func (s *stubNotifications) UnreadCount(context.Context, uuid.UUID) (int, error)  { return 0, nil }

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	p := &models.Profile{ID: uuid.New(), Email: "mika@campus.edu"}
	return req.WithContext(middleware.WithProfile(req.Context(), p))
}

// Handlers are mounted behind TokenAuth, but reaching one without a
// profile in the context must still produce a 401, not a panic.
func TestHandlersRejectMissingProfile(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"task create", (&TaskHandler{}).Create},
		{"task mine", (&TaskHandler{}).Mine},
		{"task delete", (&TaskHandler{}).Delete},
		{"task request", (&TaskHandler{}).RequestHelp},
		{"task confirm", (&TaskHandler{}).Confirm},
		{"task payment", (&TaskHandler{}).Payment},
		{"task repost", (&TaskHandler{}).Repost},
		{"requests pending", (&RequestHandler{}).Pending},
		{"request approve", (&RequestHandler{}).Approve},
		{"request reject", (&RequestHandler{}).Reject},
		{"rating submit", (&RatingHandler{}).Submit},
		{"wallet", (&WalletHandler{}).Get},
		{"chat send", (&ChatHandler{}).Send},
		{"chat list", (&ChatHandler{}).List},
		{"notifications list", (&NotificationHandler{}).List},
		{"notification read", (&NotificationHandler{}).MarkRead},
		{"notifications read-all", (&NotificationHandler{}).MarkAllRead},
		{"notifications unread", (&NotificationHandler{}).UnreadCount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/anything", nil)
			rec := httptest.NewRecorder()

			tc.handler(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestNotificationList_PageSize(t *testing.T) {
	store := &stubNotifications{}
	h := &NotificationHandler{Store: store}

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/v1/notifications"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if store.limit != 20 {
		t.Errorf("page size: got %d, want 20", store.limit)
	}
}
