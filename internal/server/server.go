package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/familyhub/internal/auth"
	"github.com/dukerupert/familyhub/internal/backup"
	"github.com/dukerupert/familyhub/internal/handler"
	"github.com/dukerupert/familyhub/internal/middleware"
	"github.com/dukerupert/familyhub/internal/push"
	"github.com/dukerupert/familyhub/internal/state"
	ws "github.com/dukerupert/familyhub/internal/websocket"
)

// Deps are the running components the router serves. App is nil in
// configuration-error mode, when Missing names the unset variables.
type Deps struct {
	App           *state.App
	Hub           *ws.Hub
	Push          *push.Service
	Subscriptions *push.Subscriptions
	Backup        *backup.Manager
	Limiter       *middleware.RateLimiter
	Missing       []string
	Logger        *slog.Logger
}

type Server struct {
	app         *state.App
	hub         *ws.Hub
	missing     []string
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger

	sessionH  *handler.SessionHandler
	profileH  *handler.ProfileHandler
	settingsH *handler.SettingsHandler
	choreH    *handler.ChoreHandler
	rewardH   *handler.RewardHandler
	taskH     *handler.TaskHandler
	eventH    *handler.EventHandler
	listH     *handler.ListHandler
	photoH    *handler.PhotoHandler
	quickH    *handler.QuickHandler
	pushH     *handler.PushHandler
	backupH   *handler.BackupHandler
}

func New(d Deps) *Server {
	if d.Limiter == nil {
		d.Limiter = middleware.NewRateLimiter()
	}
	s := &Server{
		app:         d.App,
		hub:         d.Hub,
		missing:     d.Missing,
		rateLimiter: d.Limiter,
		logger:      d.Logger,
	}
	if d.App == nil {
		return s
	}

	logger := d.Logger
	s.sessionH = handler.NewSessionHandler(d.App, d.Limiter, logger.With("component", "session"))
	s.profileH = handler.NewProfileHandler(d.App, logger.With("component", "profile"))
	s.settingsH = handler.NewSettingsHandler(d.App, logger.With("component", "settings"))
	s.choreH = handler.NewChoreHandler(d.App, logger.With("component", "chore"))
	s.rewardH = handler.NewRewardHandler(d.App, logger.With("component", "reward"))
	s.taskH = handler.NewTaskHandler(d.App, logger.With("component", "task"))
	s.eventH = handler.NewEventHandler(d.App, logger.With("component", "event"))
	s.listH = handler.NewListHandler(d.App, logger.With("component", "list"))
	s.photoH = handler.NewPhotoHandler(d.App, logger.With("component", "photo"))
	s.quickH = handler.NewQuickHandler(d.App, d.Limiter, logger.With("component", "quick"))
	if d.Push != nil && d.Subscriptions != nil {
		s.pushH = handler.NewPushHandler(d.Subscriptions, d.Push, logger.With("component", "push_handler"))
	}
	if d.Backup != nil {
		s.backupH = handler.NewBackupHandler(d.Backup, logger.With("component", "backup_handler"))
	}
	return s
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /api/status", handler.Status(s.app, s.missing))

	if s.app != nil {
		s.registerRoutes(mux)
	}

	var h http.Handler = mux
	h = middleware.RequireConfigured(s.missing)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.Recover(s.logger)(h)
}

// authed requires a logged-in profile and, optionally, a capability.
func (s *Server) authed(h http.HandlerFunc, caps ...auth.Capability) http.Handler {
	var next http.Handler = h
	for i := len(caps) - 1; i >= 0; i-- {
		next = middleware.RequireCapability(caps[i])(next)
	}
	return middleware.RequireSession(s.app)(next)
}

// optional serves logged-out requests too. Handlers authorize from the body.
func (s *Server) optional(h http.HandlerFunc) http.Handler {
	return middleware.OptionalSession(s.app)(h)
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.RealIP, 30, time.Minute)(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("GET /ws", ws.HandleWebSocket(s.hub))

	// Lock screen: open to everyone.
	mux.HandleFunc("GET /api/session", s.sessionH.Get)
	mux.Handle("POST /api/session/login", s.rateLimited(s.sessionH.Login))
	mux.HandleFunc("GET /api/profiles", s.profileH.List)
	// The first profile is created before anyone can log in.
	mux.Handle("POST /api/profiles", s.optional(s.profileH.Create))

	mux.Handle("POST /api/session/logout", s.authed(s.sessionH.Logout))
	mux.Handle("POST /api/session/activity", s.authed(s.sessionH.Activity))
	mux.Handle("PUT /api/session/privacy", s.authed(s.sessionH.Privacy))

	mux.Handle("PUT /api/profiles/{id}", s.authed(s.profileH.Update, auth.ManageUsers))
	mux.Handle("DELETE /api/profiles/{id}", s.authed(s.profileH.Delete, auth.ManageUsers))
	mux.Handle("POST /api/profiles/{id}/pin", s.authed(s.profileH.SetPIN))
	mux.Handle("DELETE /api/profiles/{id}/pin", s.authed(s.profileH.ClearPIN))
	mux.Handle("GET /api/profiles/{id}/chore-status", s.authed(s.choreH.Status))
	mux.Handle("GET /api/profiles/{id}/redemptions", s.authed(s.rewardH.Redemptions))

	mux.Handle("GET /api/settings", s.authed(s.settingsH.Get))
	mux.Handle("PUT /api/settings", s.authed(s.settingsH.Update, auth.ManageTasks))

	mux.Handle("GET /api/chores", s.authed(s.choreH.List))
	mux.Handle("POST /api/chores", s.authed(s.choreH.Create, auth.ManageTasks))
	mux.Handle("PUT /api/chores/{id}", s.authed(s.choreH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/chores/{id}", s.authed(s.choreH.Delete, auth.ManageTasks))
	mux.Handle("POST /api/chores/{id}/complete", s.authed(s.choreH.Complete))
	mux.Handle("DELETE /api/chores/{id}/complete", s.authed(s.choreH.Undo))

	mux.Handle("GET /api/rewards", s.authed(s.rewardH.List))
	mux.Handle("POST /api/rewards", s.authed(s.rewardH.Create, auth.ManageTasks))
	mux.Handle("PUT /api/rewards/{id}", s.authed(s.rewardH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/rewards/{id}", s.authed(s.rewardH.Delete, auth.ManageTasks))
	mux.Handle("POST /api/rewards/{id}/redeem", s.authed(s.rewardH.Redeem))
	mux.Handle("GET /api/leaderboard", s.authed(s.rewardH.Leaderboard))

	mux.Handle("GET /api/tasks", s.authed(s.taskH.List))
	mux.Handle("POST /api/tasks", s.authed(s.taskH.Create, auth.ManageTasks))
	mux.Handle("PUT /api/tasks/{id}", s.authed(s.taskH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/tasks/{id}", s.authed(s.taskH.Delete, auth.ManageTasks))
	mux.Handle("POST /api/tasks/{id}/toggle", s.authed(s.taskH.Toggle))
	mux.Handle("PUT /api/tasks/{id}/status", s.authed(s.taskH.SetStatus))

	mux.Handle("GET /api/events", s.authed(s.eventH.List))
	mux.Handle("POST /api/events", s.authed(s.eventH.Create, auth.ManageTasks))
	mux.Handle("PUT /api/events/{id}", s.authed(s.eventH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/events/{id}", s.authed(s.eventH.Delete, auth.ManageTasks))

	mux.Handle("GET /api/lists", s.authed(s.listH.List))
	mux.Handle("POST /api/lists", s.authed(s.listH.Create, auth.ManageTasks))
	mux.Handle("GET /api/lists/{id}", s.authed(s.listH.Get))
	mux.Handle("PUT /api/lists/{id}", s.authed(s.listH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/lists/{id}", s.authed(s.listH.Delete, auth.ManageTasks))
	mux.Handle("POST /api/lists/{id}/items", s.authed(s.listH.AddItem))
	mux.Handle("PUT /api/lists/{id}/items/order", s.authed(s.listH.Reorder))
	mux.Handle("PUT /api/lists/{id}/items/{itemID}", s.authed(s.listH.UpdateItem))
	mux.Handle("DELETE /api/lists/{id}/items/{itemID}", s.authed(s.listH.DeleteItem))
	mux.Handle("POST /api/lists/{id}/items/{itemID}/toggle", s.authed(s.listH.ToggleItem))
	mux.Handle("POST /api/lists/{id}/clear-checked", s.authed(s.listH.ClearChecked))

	mux.Handle("GET /api/photos", s.authed(s.photoH.List))
	mux.Handle("POST /api/photos", s.authed(s.photoH.Create, auth.ManageTasks))
	mux.Handle("PUT /api/photos/{id}", s.authed(s.photoH.Update, auth.ManageTasks))
	mux.Handle("DELETE /api/photos/{id}", s.authed(s.photoH.Delete, auth.ManageTasks))
	mux.Handle("POST /api/photos/{id}/favorite", s.authed(s.photoH.Favorite))

	mux.Handle("POST /api/quick/chores/{id}/complete", s.optional(s.quickH.CompleteChore))
	mux.Handle("PUT /api/quick/tasks/{id}/status", s.optional(s.quickH.TaskStatus))

	if s.pushH != nil {
		mux.Handle("GET /api/push/vapid-key", s.authed(s.pushH.VAPIDKey))
		mux.Handle("POST /api/push/subscribe", s.authed(s.pushH.Subscribe))
		mux.Handle("GET /api/push/subscriptions", s.authed(s.pushH.List))
		mux.Handle("DELETE /api/push/subscriptions/{id}", s.authed(s.pushH.Unsubscribe))
	}

	if s.backupH != nil {
		mux.Handle("POST /api/backup", s.authed(s.backupH.Run, auth.ManageUsers))
		mux.Handle("GET /api/backup/status", s.authed(s.backupH.Status))
		mux.Handle("GET /api/backups", s.authed(s.backupH.List, auth.ManageUsers))
	}
}
