// Package api exposes the console over HTTP: access, users, groups,
// implants, tasking, the beacon endpoint, and the websocket event stream.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"warden/internal/middleware"
	"warden/internal/notify"
	"warden/internal/service"
	"warden/internal/service/security"
)

// Handler carries the services behind the HTTP surface.
type Handler struct {
	auth     *security.Authenticator
	tokens   *security.TokenService
	engine   *security.Engine
	users    *security.UserService
	groups   *security.GroupService
	implants *service.ImplantService
	tasks    *service.TaskService
	registry *notify.Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// HandlerConfig bundles the Handler dependencies.
type HandlerConfig struct {
	Auth     *security.Authenticator
	Tokens   *security.TokenService
	Engine   *security.Engine
	Users    *security.UserService
	Groups   *security.GroupService
	Implants *service.ImplantService
	Tasks    *service.TaskService
	Registry *notify.Registry
	Logger   *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		auth:     cfg.Auth,
		tokens:   cfg.Tokens,
		engine:   cfg.Engine,
		users:    cfg.Users,
		groups:   cfg.Groups,
		implants: cfg.Implants,
		tasks:    cfg.Tasks,
		registry: cfg.Registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: cfg.Logger.With("component", "api"),
	}
}

// RouterConfig holds the middleware settings for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	// ResolveCertificate enables transparent client certificate
	// authentication on the session routes. nil disables it.
	ResolveCertificate func(ctx context.Context, cn string) (string, error)
}

// Router assembles the HTTP routes. The beacon endpoint and login surface
// stay outside the session middleware; everything else requires an
// authenticated principal.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	sessions := middleware.Auth(middleware.AuthConfig{
		Tokens:             h.tokens,
		ResolveCertificate: cfg.ResolveCertificate,
	})

	r.Route("/api", func(r chi.Router) {
		// Implants cannot authenticate; the beacon endpoint is open and
		// never returns data about other implants.
		r.Post("/beacon", h.handleBeacon)

		r.Post("/access/register", h.handleRegister)
		r.Post("/access/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(sessions)

			r.Delete("/access/logout", h.handleLogout)
			r.Put("/access/admin", h.handleSetAdmin)

			r.Get("/users/whoami", h.handleWhoami)
			r.Get("/users/user/{name}", h.handleGetUser)
			r.Delete("/users/user/{id}", h.handleDeleteUser)
			r.Put("/users/user/{id}/password", h.handleChangePassword)
			r.Get("/users/user/{id}/groups", h.handleGetUserGroups)
			r.Put("/users/user/{id}/groups", h.handleSetUserGroups)

			r.Get("/acgs", h.handleListGroups)
			r.Post("/acgs", h.handleCreateGroup)
			r.Delete("/acgs/{id}", h.handleDeleteGroup)

			r.Get("/implants", h.handleListImplants)
			r.Delete("/implants/{implantID}", h.handleDeleteImplant)
			r.Put("/implants/{implantID}/acgs", h.handleSetImplantACGs)
			r.Get("/implants/{implantID}/tasks", h.handleListTasks)

			r.Post("/tasks", h.handleCreateTask)
			r.Delete("/tasks/{id}", h.handleDeleteTask)

			r.Get("/task-types", h.handleListTaskTypes)
			r.Post("/task-types", h.handleCreateTaskType)
			r.Delete("/task-types/{id}", h.handleDeleteTaskType)

			r.Get("/ws", h.handleWebsocket)
		})
	})

	return r
}
