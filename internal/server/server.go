// Package server wires the application together: database, services,
// handlers, middleware, routes, and the HTTP server lifecycle. It is the
// composition root; nothing else in the codebase constructs cross-layer
// dependencies.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/neristhub/campushub/internal/auth"
	"github.com/neristhub/campushub/internal/chatbot"
	"github.com/neristhub/campushub/internal/config"
	"github.com/neristhub/campushub/internal/handler"
	"github.com/neristhub/campushub/internal/middleware"
	"github.com/neristhub/campushub/internal/model"
	"github.com/neristhub/campushub/internal/notify"
	sqliteRepo "github.com/neristhub/campushub/internal/repository/sqlite"
	"github.com/neristhub/campushub/internal/service"
)

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency graph:
//
//	sqlite.DB → services (auth, listing, notification) → handlers
//	Hub + Fanout feed the listing service and the SSE stream
//
// Each layer receives only the interfaces it needs; handlers never touch
// the database, services never touch HTTP.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Shared infrastructure.
	sessions := auth.NewSessionStore(s.cfg.Auth.SessionTTL)
	passwords := auth.NewPasswordService(s.cfg.Auth.BcryptCost)
	hub := notify.NewHub()
	fanout := notify.NewFanout(s.db, s.db, hub, s.logger)

	// Services.
	authService := service.NewAuthService(s.db, passwords, sessions, s.cfg.Auth.ResetTokenTTL, s.logger)
	listingService := service.NewListingService(s.db, fanout, s.logger)
	notificationService := service.NewNotificationService(s.db, s.logger)
	bot := chatbot.New(s.cfg.Chatbot, s.logger)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService, s.logger)
	listingHandler := handler.NewListingHandler(listingService, s.cfg.Upload.Dir, s.logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, s.logger)
	eventsHandler := handler.NewEventsHandler(hub, s.logger)
	chatHandler := handler.NewChatHandler(bot)
	campusHandler := handler.NewCampusHandler()

	// Middleware instances.
	requireAuth := auth.RequireAuth(sessions, s.db)
	optionalAuth := auth.OptionalAuth(sessions, s.db)
	lostLimiter := middleware.NewRateLimiter(s.cfg.RateLimit.LostPerMin)
	paperLimiter := middleware.NewRateLimiter(s.cfg.RateLimit.PaperPerMin)
	marketLimiter := middleware.NewRateLimiter(s.cfg.RateLimit.MarketPerMin)

	// Uploaded attachments are served statically.
	fileServer := http.FileServer(http.Dir(s.cfg.Upload.Dir))
	s.router.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/validate-registration", authHandler.ValidateRegistration)
			r.Post("/verify-registration", authHandler.VerifyRegistration)
			r.Post("/verify-security-code", authHandler.VerifySecurityCode)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Get("/valid-prefixes", authHandler.ValidPrefixes)

			r.With(requireAuth).Post("/logout", authHandler.Logout)
			r.With(requireAuth).Get("/profile", authHandler.Profile)
			r.With(optionalAuth).Get("/check", authHandler.Check)
		})

		// Lost & found.
		r.With(requireAuth, lostLimiter.Handler).Post("/items", listingHandler.CreateLostItem)
		r.With(requireAuth, lostLimiter.Handler).Post("/found-items", listingHandler.CreateFoundItem)
		r.With(optionalAuth).Get("/items", listingHandler.List(model.KindLostItem))
		r.With(requireAuth).Put("/items/{id}/found", listingHandler.Transition(model.KindLostItem))
		r.With(requireAuth).Delete("/items/{id}", listingHandler.Delete(model.KindLostItem))

		// Marketplace.
		r.With(requireAuth, marketLimiter.Handler).Post("/marketplace", listingHandler.CreateMarketplace)
		r.With(optionalAuth).Get("/marketplace", listingHandler.List(model.KindMarketplace))
		r.With(requireAuth).Put("/marketplace/{id}/sold", listingHandler.Transition(model.KindMarketplace))
		r.With(requireAuth).Delete("/marketplace/{id}", listingHandler.Delete(model.KindMarketplace))

		// Buy requests.
		r.With(requireAuth, marketLimiter.Handler).Post("/buy-requests", listingHandler.CreateBuyRequest)
		r.With(optionalAuth).Get("/buy-requests", listingHandler.List(model.KindBuyRequest))
		r.With(requireAuth).Put("/buy-requests/{id}/fulfilled", listingHandler.Transition(model.KindBuyRequest))
		r.With(requireAuth).Delete("/buy-requests/{id}", listingHandler.Delete(model.KindBuyRequest))

		// Rentals.
		r.With(requireAuth, marketLimiter.Handler).Post("/rentals", listingHandler.CreateRental)
		r.With(optionalAuth).Get("/rentals", listingHandler.List(model.KindRental))
		r.With(requireAuth).Put("/rentals/{id}/rented", listingHandler.Transition(model.KindRental))
		r.With(requireAuth).Delete("/rentals/{id}", listingHandler.Delete(model.KindRental))

		// Question papers.
		r.With(requireAuth, paperLimiter.Handler).Post("/question-papers/upload", listingHandler.UploadQuestionPaper)
		r.With(optionalAuth).Get("/question-papers", listingHandler.List(model.KindQuestionPaper))

		// Notifications.
		r.Route("/notifications", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", notificationHandler.List)
			r.Get("/unread-count", notificationHandler.UnreadCount)
			r.Get("/stream", eventsHandler.Stream)
			r.Put("/mark-all-read", notificationHandler.MarkAllRead)
			r.Put("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/{id}", notificationHandler.Delete)
			r.Delete("/", notificationHandler.DeleteAll)
		})

		// Campus map.
		r.With(optionalAuth).Get("/map/search", campusHandler.SearchBuilding)

		r.With(optionalAuth).Post("/chat", chatHandler.Chat)
	})
}

// Handler exposes the assembled router, for tests that drive the full
// HTTP stack with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// shutdown path. Tests use it; Start handles this itself.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, let in-flight requests finish
// (30s budget), close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Server.Port),
			slog.String("database", s.cfg.DB.Path),
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
