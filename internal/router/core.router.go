package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	hrest "party-service/internal/handler/http"
	wshandler "party-service/internal/handler/ws"
	"party-service/internal/middleware"
)

// SetupRoutes configures the HTTP routes for the party service
func SetupRoutes(
	r chi.Router,
	parties *hrest.PartyHandler,
	requests *hrest.JoinRequestHandler,
	notifs *hrest.NotificationHandler,
	wsHandler *wshandler.WSHandler,
	auth *middleware.Auth,
	rdb *redis.Client,
) chi.Router {
	// ---- Global Middleware ----
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
			"ngrok-skip-browser-warning",
		},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "party:global"))

	// ============================================================
	// Party Routes (all require auth)
	// ============================================================
	r.Route("/api/v1/parties", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/", parties.CreateParty)
		r.Get("/{id}", parties.GetParty)
		r.Patch("/{id}/status", parties.ToggleStatus)
		r.Post("/{id}/arrive", parties.ConfirmArrival)
		r.Patch("/{id}/settlement/{memberId}", parties.MarkSettled)
		r.Post("/{id}/end", parties.EndParty)
		r.Delete("/{id}", parties.DisbandParty)
		r.Post("/{id}/leave", parties.LeaveParty)
		r.Delete("/{id}/members/{memberId}", parties.KickMember)

		r.Get("/{id}/requests", requests.ListPending)

		r.Post("/{id}/chat", parties.PostChatMessage)
		r.Get("/{id}/chat", parties.ListChatMessages)
	})

	// ============================================================
	// Join Request Routes
	// ============================================================
	r.Route("/api/v1/requests", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/", requests.CreateRequest)
		r.Post("/{id}/accept", requests.AcceptRequest)
		r.Post("/{id}/decline", requests.DeclineRequest)
		r.Post("/{id}/cancel", requests.CancelRequest)
	})

	// ============================================================
	// Notification Routes
	// ============================================================
	r.Route("/api/v1/user/notifications", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/", notifs.ListNotifications)
		r.Get("/unread", notifs.ListUnread)
		r.Get("/unread/count", notifs.CountUnread)
		r.Patch("/{id}/read", notifs.MarkAsRead)

		r.Put("/fcm-token", notifs.RegisterFCMToken)
		r.Get("/settings", notifs.GetSettings)
		r.Put("/settings", notifs.UpdateSettings)

		// WebSocket endpoint
		r.Get("/ws", wsHandler.HandleNotifications)
	})
	return r
}
