package router

import (
	"net/http"

	"github.com/campusrun/backend/internal/auth"
	"github.com/campusrun/backend/internal/handlers"
	"github.com/campusrun/backend/internal/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *auth.Handler
	Tasks         *handlers.TaskHandler
	Requests      *handlers.RequestHandler
	Ratings       *handlers.RatingHandler
	Wallet        *handlers.WalletHandler
	Profiles      *handlers.ProfileHandler
	Chat          *handlers.ChatHandler
	Notifications *handlers.NotificationHandler
	Admin         *handlers.AdminHandler
}

// New returns an http.Handler serving the API under /api/v1. Everything
// except registration and login sits behind token auth; /admin routes
// additionally require the admin role.
func New(h Handlers, tokens middleware.TokenValidator, profiles middleware.ProfileLookup) http.Handler {
	authed := middleware.TokenAuth(tokens, profiles)

	mux := http.NewServeMux()
	base := "/api/v1"

	mux.HandleFunc("POST "+base+"/auth/register", h.Auth.Register)
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	protected := http.NewServeMux()
	protected.HandleFunc("POST "+base+"/tasks", h.Tasks.Create)
	protected.HandleFunc("GET "+base+"/tasks", h.Tasks.Browse)
	protected.HandleFunc("GET "+base+"/tasks/mine", h.Tasks.Mine)
	protected.HandleFunc("GET "+base+"/tasks/{id}", h.Tasks.Get)
	protected.HandleFunc("DELETE "+base+"/tasks/{id}", h.Tasks.Delete)
	protected.HandleFunc("POST "+base+"/tasks/{id}/request", h.Tasks.RequestHelp)
	protected.HandleFunc("POST "+base+"/tasks/{id}/confirm", h.Tasks.Confirm)
	protected.HandleFunc("POST "+base+"/tasks/{id}/payment", h.Tasks.Payment)
	protected.HandleFunc("POST "+base+"/tasks/{id}/repost", h.Tasks.Repost)
	protected.HandleFunc("POST "+base+"/tasks/{id}/ratings", h.Ratings.Submit)
	protected.HandleFunc("GET "+base+"/tasks/{id}/messages", h.Chat.List)
	protected.HandleFunc("POST "+base+"/tasks/{id}/messages", h.Chat.Send)

	protected.HandleFunc("GET "+base+"/requests/pending", h.Requests.Pending)
	protected.HandleFunc("POST "+base+"/requests/{id}/approve", h.Requests.Approve)
	protected.HandleFunc("POST "+base+"/requests/{id}/reject", h.Requests.Reject)

	protected.HandleFunc("GET "+base+"/wallet", h.Wallet.Get)
	protected.HandleFunc("GET "+base+"/profiles/{id}", h.Profiles.Get)

	protected.HandleFunc("GET "+base+"/notifications", h.Notifications.List)
	protected.HandleFunc("GET "+base+"/notifications/unread-count", h.Notifications.UnreadCount)
	protected.HandleFunc("POST "+base+"/notifications/read-all", h.Notifications.MarkAllRead)
	protected.HandleFunc("POST "+base+"/notifications/{id}/read", h.Notifications.MarkRead)

	admin := http.NewServeMux()
	admin.HandleFunc("POST "+base+"/admin/credits", h.Admin.AdjustCredits)
	admin.HandleFunc("DELETE "+base+"/admin/tasks", h.Admin.DeleteAllTasks)
	admin.HandleFunc("GET "+base+"/admin/users", h.Admin.ListUsers)
	protected.Handle(base+"/admin/", middleware.RequireAdmin(admin))

	mux.Handle(base+"/", authed(protected))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}
