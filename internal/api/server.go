package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/wellness-hub/internal/config"
	"github.com/terra-clan/wellness-hub/internal/health"
	"github.com/terra-clan/wellness-hub/internal/realtime"
	"github.com/terra-clan/wellness-hub/internal/services"
	"github.com/terra-clan/wellness-hub/internal/storage"
)

// Dependencies are the collaborators the HTTP layer dispatches to.
type Dependencies struct {
	Repo        storage.Repository
	Resources   *services.ResourceService
	Users       *services.UserService
	Diagnostics *services.DiagnosticService
	Pages       *services.PageService
	Hub         *realtime.Hub
	Health      *health.Registry

	// Admin is mounted under /admin when set.
	Admin http.Handler
}

// Server represents the HTTP API server
type Server struct {
	config      config.ServerConfig
	router      *chi.Mux
	resources   *services.ResourceService
	users       *services.UserService
	diagnostics *services.DiagnosticService
	pages       *services.PageService
	hub         *realtime.Hub
	health      *health.Registry
	admin       http.Handler
	auth        *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	s := &Server{
		config:      cfg,
		resources:   deps.Resources,
		users:       deps.Users,
		diagnostics: deps.Diagnostics,
		pages:       deps.Pages,
		hub:         deps.Hub,
		health:      deps.Health,
		admin:       deps.Admin,
		auth:        NewAuthMiddleware(deps.Repo, deps.Users),
	}
	if s.health == nil {
		s.health = health.NewRegistry()
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "apikey"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	if s.admin != nil {
		r.Mount("/admin", s.admin)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Authenticate)
		r.Use(s.auth.IdentifyUser)

		// websocket connections outlive the request timeout
		r.With(s.auth.RequirePermission("realtime:read")).Get("/realtime", s.handleRealtimeWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/auth", func(r chi.Router) {
				r.Use(s.auth.RequirePermission("auth:write"))
				r.Post("/signup", s.handleSignup)
				r.Post("/login", s.handleLogin)
				r.With(RequireUser).Post("/logout", s.handleLogout)
				r.With(RequireUser).Get("/me", s.handleMe)
			})

			r.Route("/resources", func(r chi.Router) {
				r.With(s.auth.RequirePermission("resources:read")).Get("/", s.handleListResources)
				r.With(s.auth.RequireAdminOr("resources:write")).Post("/", s.handleCreateResource)

				r.Route("/{id}", func(r chi.Router) {
					r.With(s.auth.RequirePermission("resources:read")).Get("/", s.handleGetResource)
					r.With(s.auth.RequireAdminOr("resources:write")).Put("/", s.handleUpdateResource)
					r.With(s.auth.RequireAdminOr("resources:write")).Delete("/", s.handleDeleteResource)

					r.With(s.auth.RequirePermission("favorites:write"), RequireUser).Put("/favorite", s.handleSetFavorite(true))
					r.With(s.auth.RequirePermission("favorites:write"), RequireUser).Delete("/favorite", s.handleSetFavorite(false))
				})
			})

			r.Route("/categories", func(r chi.Router) {
				r.With(s.auth.RequirePermission("categories:read")).Get("/", s.handleListCategories)
				r.With(s.auth.RequireAdminOr("categories:write")).Post("/", s.handleCreateCategory)
				r.With(s.auth.RequireAdminOr("categories:write")).Put("/{id}", s.handleUpdateCategory)
				r.With(s.auth.RequireAdminOr("categories:write")).Delete("/{id}", s.handleDeleteCategory)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(s.auth.RequireAdminOr("users:read")).Get("/", s.handleListUsers)
				r.With(s.auth.RequireAdminOr("users:read")).Get("/{id}", s.handleGetUser)
				r.With(s.auth.RequireAdminOr("users:write")).Put("/{id}/admin", s.handleSetUserAdmin)
				r.With(s.auth.RequireAdminOr("users:write")).Delete("/{id}", s.handleDeleteUser)
			})

			r.Route("/diagnostics", func(r chi.Router) {
				r.With(s.auth.RequirePermission("diagnostics:read")).Get("/catalog", s.handleDiagnosticCatalog)
				r.With(s.auth.RequirePermission("diagnostics:write")).Post("/stress", s.handleSubmitStress)
				r.With(s.auth.RequirePermission("diagnostics:write")).Post("/holmes-rahe", s.handleSubmitHolmesRahe)
				r.With(s.auth.RequirePermission("diagnostics:read"), RequireUser).Get("/history", s.handleDiagnosticHistory)
				r.With(s.auth.RequirePermission("diagnostics:read")).Get("/{id}", s.handleGetDiagnostic)
			})

			r.Route("/pages", func(r chi.Router) {
				r.With(s.auth.RequirePermission("pages:read")).Get("/", s.handleListPages)
				r.With(s.auth.RequireAdminOr("pages:write")).Post("/", s.handleCreatePage)
				r.With(s.auth.RequirePermission("pages:read")).Get("/{ref}", s.handleGetPage)
				r.With(s.auth.RequireAdminOr("pages:write")).Put("/{ref}", s.handleUpdatePage)
				r.With(s.auth.RequireAdminOr("pages:write")).Delete("/{ref}", s.handleDeletePage)
				r.With(s.auth.RequireAdminOr("pages:write")).Post("/{ref}/publish", s.handlePublishPage(true))
				r.With(s.auth.RequireAdminOr("pages:write")).Post("/{ref}/unpublish", s.handlePublishPage(false))
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
