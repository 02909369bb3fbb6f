package routes

import (
	_ "embed"
	"net/http"

	"github.com/evo-faceit/arena-server/handlers"
	"github.com/evo-faceit/arena-server/middleware"
	"github.com/evo-faceit/arena-server/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openapiSpec []byte

type Handlers struct {
	Auth      *handlers.AuthHandler
	Match     *handlers.MatchHandler
	Chat      *handlers.ChatHandler
	User      *handlers.UserHandler
	Stats     *handlers.StatsHandler
	Telegram  *handlers.TelegramHandler
	WebSocket *handlers.WebSocketHandler
}

// SetupRoutes собирает все маршруты приложения.
func SetupRoutes(router *chi.Mux, h Handlers, jwtSecret string, allowedOrigins []string) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"pong"}`))
	})

	// Аутентификация
	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/telegram", h.Auth.TelegramAuth)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/profile", h.Auth.GetProfile)
			r.Put("/profile", h.Auth.UpdateProfile)
		})
	})

	// Вход по временной ссылке из Telegram-бота
	router.Get("/telegram-login/{token}", h.Auth.TelegramLoginRedirect)

	// Матчи и чат лобби
	router.Route("/api/matches", func(r chi.Router) {
		r.Get("/", h.Match.ListHandler)
		r.Get("/{matchID}", h.Match.GetByIDHandler)
		r.Get("/{matchID}/chat", h.Chat.ListMessagesHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/join", h.Match.JoinHandler)
			r.Post("/{matchID}/leave", h.Match.LeaveHandler)
			r.Post("/{matchID}/chat", h.Chat.PostMessageHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)
			r.Post("/", h.Match.CreateHandler)
			r.Post("/{matchID}/results", h.Match.UploadResultsHandler)
			r.Delete("/{matchID}", h.Match.DeleteHandler)
		})
	})

	// Статистика
	router.Route("/api/statistics", func(r chi.Router) {
		r.Get("/user/{userID}", h.Stats.UserStatsHandler)
		r.Get("/top", h.Stats.TopPlayersHandler)
		r.Get("/all", h.Stats.AllPlayersHandler)
	})

	// Управление пользователями (только админ)
	router.Route("/api/admin/users", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)
		r.Get("/", h.User.ListHandler)
		r.Get("/{userID}", h.User.GetByIDHandler)
		r.Put("/{userID}", h.User.UpdateHandler)
		r.Delete("/{userID}", h.User.DeleteHandler)
		r.Post("/{userID}/toggle-admin", h.User.ToggleAdminHandler)
	})

	// Управление Telegram-ботом (только админ)
	router.Route("/api/telegram", func(r chi.Router) {
		r.Use(authenticate)
		r.Use(adminOnly)
		r.Post("/test", h.Telegram.TestHandler)
		r.Get("/status", h.Telegram.StatusHandler)
		r.Post("/notify", h.Telegram.NotifyHandler)
	})

	// Websocket лобби
	router.Get("/ws/matches/{matchID}", h.WebSocket.ServeLobby)

	// Документация API
	router.Get("/api/docs/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(openapiSpec)
	})
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/api/docs/openapi.json"),
	))
}
