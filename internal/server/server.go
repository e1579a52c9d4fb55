// Package server wires handlers, middleware, and routes together and
// owns the HTTP server lifecycle.
//
// This is the composition root: main.go hands it a Config and a logger,
// and everything else — database, repositories, services, handlers —
// is assembled here in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/card-exchange/internal/apperror"
	"github.com/sakif/card-exchange/internal/auth"
	"github.com/sakif/card-exchange/internal/handler"
	"github.com/sakif/card-exchange/internal/middleware"
	sqliteRepo "github.com/sakif/card-exchange/internal/repository/sqlite"
	"github.com/sakif/card-exchange/internal/service"
	"github.com/sakif/card-exchange/internal/storage"
)

// Config holds server configuration, loaded from the environment in
// main.go.
type Config struct {
	Port      int
	DBPath    string
	UploadDir string

	// SessionSecret signs session cookies. Required.
	SessionSecret string

	// Google OAuth. Leave empty to run with password auth only.
	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	// AdminEmails are promoted to administrator at startup. The account
	// must already exist; there is no runtime endpoint for this.
	AdminEmails []string
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer receives only what it needs; handlers never touch the
// database, services never touch HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	s.promoteAdmins(context.Background())

	return s, nil
}

// promoteAdmins applies Config.AdminEmails. An unknown address is only
// logged — the operator may not have registered that account yet.
func (s *Server) promoteAdmins(ctx context.Context) {
	for _, email := range s.config.AdminEmails {
		err := s.db.Users().SetAdminByEmail(ctx, email, true)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			s.logger.Warn("admin email has no account yet; register it and restart",
				slog.String("email", email))
		case err != nil:
			s.logger.Error("failed to promote admin",
				slog.String("email", email),
				slog.String("error", err.Error()))
		default:
			s.logger.Info("admin promoted", slog.String("email", email))
		}
	}
}

// setupRoutes configures middleware, builds the services, and maps
// routes.
//
// ROUTE MAP:
//
//	GET  /                                  approved cards
//	GET  /login                             login affordances + Google consent URL
//	POST /login                             password login
//	GET  /logout                            revoke session
//	POST /register                          create account
//	GET  /oauth_callback                    complete Google login
//	POST /upload                            create pending card        [auth]
//	GET  /user/{id}                         profile + cards
//	GET  /search                            keyword search
//	GET  /trading_card/{id}                 card detail + comments
//	POST /trading_card/{id}/add_comment     append comment             [auth]
//	POST /admin/approve_trading_card/{id}   approve                    [admin]
//	GET  /admin/dashboard                   all cards                  [admin]
//	GET  /api/me                            current user               [auth]
//	GET  /uploads/*                         stored card images
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Auth plumbing ===
	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	sessions := auth.NewSessionStore(s.db.Sessions(), tokens)
	passwords := auth.NewPasswordService()

	var google *auth.GoogleProvider
	if s.config.GoogleClientID != "" && s.config.GoogleClientSecret != "" {
		google = auth.NewGoogleProvider(
			s.config.GoogleClientID,
			s.config.GoogleClientSecret,
			s.config.GoogleCallbackURL,
		)
	} else {
		s.logger.Warn("Google OAuth credentials not set — Google login disabled")
	}

	// === Services ===
	authService := service.NewAuthService(s.db.Users(), sessions, passwords, s.logger)
	cardService := service.NewCardService(s.db.Cards(), s.db.Comments(), s.db.Users(), s.logger)

	images, err := storage.NewImageStore(s.config.UploadDir)
	if err != nil {
		return fmt.Errorf("creating image store: %w", err)
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, google, s.logger)
	cardHandler := handler.NewCardHandler(cardService, images, s.logger)

	requireAuth := auth.RequireAuth(sessions)
	requireAdmin := auth.RequireAdmin(sessions, authService)

	// Uploaded images, served statically.
	fileServer := http.FileServer(http.Dir(images.Dir()))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	// Public routes.
	s.router.Get("/", cardHandler.HandleIndex)
	s.router.Get("/login", authHandler.HandleLoginPage)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Get("/logout", authHandler.HandleLogout)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Get("/oauth_callback", authHandler.HandleOAuthCallback)
	s.router.Get("/search", cardHandler.HandleSearch)
	s.router.Get("/trading_card/{id}", cardHandler.HandleDetail)

	s.router.With(auth.OptionalAuth(sessions)).Get("/user/{id}", cardHandler.HandleUserProfile)

	// Authenticated routes.
	s.router.With(requireAuth).Post("/upload", cardHandler.HandleUpload)
	s.router.With(requireAuth).Post("/trading_card/{id}/add_comment", cardHandler.HandleAddComment)
	s.router.With(requireAuth).Get("/api/me", authHandler.HandleMe)

	// Admin routes.
	s.router.Route("/admin", func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/approve_trading_card/{id}", cardHandler.HandleApprove)
		r.Get("/dashboard", cardHandler.HandleAdminDashboard)
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, let in-flight requests finish
// (30s budget), close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("uploads", s.config.UploadDir),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
