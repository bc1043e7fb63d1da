package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// Handlers bundles every route group the daemon serves.
type Handlers struct {
	Auth      *AuthHandler
	Chat      *ChatHandler
	Safety    *SafetyHandler
	Game      *GameHandler
	Health    *HealthHandler
	Schemes   *SchemeHandler
	Community *CommunityHandler
	Market    *MarketHandler
	Status    *StatusHandler
	Stream    *StreamHandler
}

// NewRouter assembles the daemon's HTTP surface.
func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/api/status", h.Status.Status)
	r.Get("/api/events", h.Stream.Stream)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Get("/me", h.Auth.Me)
		r.Put("/me", h.Auth.UpdateMe)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Get("/conversations", h.Chat.ListConversations)
		r.Delete("/conversations", h.Chat.ClearAll)
		r.Get("/search", h.Chat.Search)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/messages", h.Chat.ListMessages)
			r.Post("/messages", h.Chat.SendMessage)
			r.Post("/join", h.Chat.JoinRoom)
			r.Post("/location", h.Chat.ShareLocation)
			r.Delete("/", h.Chat.ClearConversation)
		})
	})

	r.Route("/api/safety", func(r chi.Router) {
		r.Get("/contacts", h.Safety.ListContacts)
		r.Post("/contacts", h.Safety.AddContact)
		r.Delete("/contacts/{id}", h.Safety.RemoveContact)
		r.Post("/sos", h.Safety.TriggerSOS)
		r.Get("/history", h.Safety.History)
	})

	r.Route("/api/game", func(r chi.Router) {
		r.Get("/profile", h.Game.Profile)
		r.Post("/award", h.Game.Award)
	})

	r.Route("/api/health", func(r chi.Router) {
		r.Get("/cycle-dates", h.Health.ListCycleDates)
		r.Post("/cycle-dates", h.Health.AddCycleDate)
		r.Delete("/cycle-dates/{date}", h.Health.RemoveCycleDate)
		r.Get("/prediction", h.Health.Prediction)
		r.Post("/bots/{bot}/chat", h.Health.BotChat)
		r.Get("/bots/{bot}/history", h.Health.BotHistory)
		r.Delete("/bots/{bot}/history", h.Health.ClearBotHistory)
	})

	r.Route("/api/schemes", func(r chi.Router) {
		r.Get("/rules", h.Schemes.ListRules)
		r.Post("/check", h.Schemes.Check)
	})

	r.Route("/api/community", func(r chi.Router) {
		r.Get("/posts", h.Community.ListPosts)
		r.Post("/posts", h.Community.CreatePost)
		r.Post("/posts/{id}/like", h.Community.LikePost)
	})

	r.Route("/api/market", func(r chi.Router) {
		r.Get("/products", h.Market.ListProducts)
		r.Post("/products", h.Market.CreateProduct)
		r.Get("/products/{id}", h.Market.ViewProduct)
		r.Get("/orders", h.Market.ListOrders)
		r.Post("/orders", h.Market.RecordOrder)
		r.Get("/payments", h.Market.ListPayments)
		r.Post("/payments", h.Market.RecordPayment)
	})

	return r
}
