// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer: it connects services, handlers,
// middleware and routes. main builds the long-lived dependencies (database,
// broker, token service, image store) and hands them over in Deps.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB (repositories) → services → handlers → routes
//	live.Broker              → feed.Aggregator, identity resolvers → streams
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/maeuln/community/internal/auth"
	"github.com/maeuln/community/internal/engagement"
	"github.com/maeuln/community/internal/event"
	"github.com/maeuln/community/internal/feed"
	"github.com/maeuln/community/internal/handler"
	"github.com/maeuln/community/internal/live"
	"github.com/maeuln/community/internal/middleware"
	"github.com/maeuln/community/internal/region"
	sqliteRepo "github.com/maeuln/community/internal/repository/sqlite"
	"github.com/maeuln/community/internal/service"
	"github.com/maeuln/community/internal/storage"
)

// MediaPrefix is the URL path uploaded images are served from.
const MediaPrefix = "/media/"

// Config holds server configuration.
type Config struct {
	Port          int
	SecureCookies bool
	AdminEmails   []string
}

// Deps are the long-lived dependencies the server is built from. Google is
// nil when Google sign-in is not configured.
type Deps struct {
	DB         *sqliteRepo.DB
	Broker     *live.Broker
	Tokens     *auth.TokenService
	Passwords  *auth.PasswordService
	Google     *auth.GoogleProvider
	Images     *storage.Disk
	Regions    *region.Directory
	Dispatcher event.Dispatcher
}

// Server represents the HTTP server and all its handlers.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	streams *handler.StreamHandler
}

// New builds every service and handler and registers the routes.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET  /health                     → liveness
// POST /auth/register|login|logout → email/password sessions
// GET  /auth/google/login|callback → Google sign-in
// GET  /media/*                    → uploaded images
// /api/...                         → JSON API; reads accept anonymous
//
//	callers, writes and personal data require a session
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns unique ID to each request (for tracing)
// 2. RealIP: extracts real client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Services ===
	authService := service.NewAuthService(deps.DB, deps.Tokens, deps.Passwords, s.config.AdminEmails, s.logger)
	profileService := service.NewProfileService(deps.DB, deps.Regions, s.logger)
	postService := service.NewPostService(deps.DB, deps.DB, deps.Regions, deps.Images, s.logger)
	commentService := service.NewCommentService(deps.DB, deps.DB, deps.Dispatcher, s.logger)
	reportService := service.NewReportService(deps.DB, deps.Dispatcher, s.logger)
	newsService := service.NewNewsService(deps.DB, deps.DB, deps.Regions, deps.Images, s.logger)
	eventService := service.NewEventService(deps.DB, s.logger)
	notificationService := service.NewNotificationService(deps.DB, s.logger)
	mutator := engagement.New(deps.DB, s.logger)
	aggregator := feed.New(deps.Broker, deps.DB, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, deps.Google, s.config.SecureCookies, s.logger)
	profileHandler := handler.NewProfileHandler(profileService, mutator, s.logger)
	postHandler := handler.NewPostHandler(postService, commentService, reportService, mutator, deps.DB, s.logger)
	newsHandler := handler.NewNewsHandler(newsService, mutator, deps.DB, s.logger)
	eventHandler := handler.NewEventHandler(eventService, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	uploadHandler := handler.NewUploadHandler(deps.Images, s.logger)
	s.streams = handler.NewStreamHandler(deps.Broker, aggregator, deps.DB, notificationService, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// === Static media ===
	fileServer := http.FileServer(http.Dir(deps.Images.Dir()))
	s.router.Handle(MediaPrefix+"*", http.StripPrefix(MediaPrefix, fileServer))

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/google/login", authHandler.HandleGoogleLogin)
		r.Get("/google/callback", authHandler.HandleGoogleCallback)
	})

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.OptionalAuth(deps.Tokens))

		// Public reads. Scoped listings are empty for anonymous callers.
		r.Get("/regions", profileHandler.HandleRegions)
		r.Get("/regions/{region}/cities", profileHandler.HandleCities)
		r.Get("/users/{id}", profileHandler.HandleGetUser)
		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/popular", postHandler.HandlePopular)
		r.Get("/posts/{id}", postHandler.HandleGet)
		r.Get("/posts/{id}/comments", postHandler.HandleListComments)
		r.Get("/news", newsHandler.HandleList)
		r.Get("/stream/home", s.streams.HandleHome)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.Tokens))

			r.Get("/me", profileHandler.HandleMe)
			r.Put("/me", profileHandler.HandleUpdateMe)
			r.Post("/me/region", profileHandler.HandleSetupRegion)
			r.Post("/users/{id}/follow", profileHandler.HandleFollow)

			r.Post("/posts", postHandler.HandleCreate)
			r.Get("/posts/following", postHandler.HandleFollowing)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/like", postHandler.HandleLike)
			r.Post("/posts/{id}/comments", postHandler.HandleCreateComment)
			r.Post("/posts/{id}/reports", postHandler.HandleReport)

			r.Post("/news", newsHandler.HandleCreate)
			r.Delete("/news/{id}", newsHandler.HandleDelete)
			r.Post("/news/{id}/like", newsHandler.HandleLike)

			r.Get("/events", eventHandler.HandleList)
			r.Post("/events", eventHandler.HandleCreate)
			r.Put("/events/{id}", eventHandler.HandleUpdate)
			r.Delete("/events/{id}", eventHandler.HandleDelete)

			r.Get("/notifications", notificationHandler.HandleList)
			r.Post("/notifications/{id}/read", notificationHandler.HandleMarkRead)
			r.Get("/stream/notifications", s.streams.HandleNotifications)

			r.Post("/uploads", uploadHandler.HandleUpload)
		})
	})
}

// Run serves HTTP until ctx is done, then shuts down gracefully:
//  1. Stop accepting new connections and end open event streams
//  2. Wait for in-flight requests to finish (30s timeout)
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(s.streams.Shutdown)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
