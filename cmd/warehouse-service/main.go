package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	authhandler "github.com/wsms/warehouse-backend/internal/auth/handler"
	"github.com/wsms/warehouse-backend/internal/auth/jwt"
	authrepo "github.com/wsms/warehouse-backend/internal/auth/repository"
	authservice "github.com/wsms/warehouse-backend/internal/auth/service"
	"github.com/wsms/warehouse-backend/internal/warehouse/events"
	"github.com/wsms/warehouse-backend/internal/warehouse/handler"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/internal/warehouse/service"
	"github.com/wsms/warehouse-backend/pkg/config"
	"github.com/wsms/warehouse-backend/pkg/database"
	"github.com/wsms/warehouse-backend/pkg/httputil"
	"github.com/wsms/warehouse-backend/pkg/logger"
	"github.com/wsms/warehouse-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("warehouse-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("warehouse-service", cfg.Server.Environment)
	log.Info().Msg("starting Warehouse Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewStockEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	batchRepo := repository.NewBatchRepository(db)
	distRepo := repository.NewDistributionRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	userRepo := authrepo.NewUserRepository(db)

	// Initialize services
	ledgerService := service.NewLedgerService(batchRepo, notifRepo, log)
	batchService := service.NewBatchService(db, batchRepo, notifRepo, publisher, log)
	distService := service.NewDistributionService(db, ledgerService, batchRepo, distRepo, publisher, log)
	notifService := service.NewNotificationService(notifRepo)
	reportService := service.NewReportService(batchRepo, distRepo)

	jwtManager := jwt.NewManager(&cfg.JWT)
	authService := authservice.NewAuthService(userRepo, jwtManager, log)
	userService := authservice.NewUserService(userRepo, log)

	// Initialize handlers
	batchHandler := handler.NewBatchHandler(batchService, log)
	distHandler := handler.NewDistributionHandler(distService, log)
	notifHandler := handler.NewNotificationHandler(notifService, log)
	reportHandler := handler.NewReportHandler(reportService, log)

	secureCookies := cfg.Server.Environment != config.EnvDevelopment
	authHandler := authhandler.NewAuthHandler(authService, secureCookies, log)
	userHandler := authhandler.NewUserHandler(userService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "warehouse-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Auth routes (no token required)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(authhandler.Authenticator(authService))
			r.Get("/me", authHandler.Me)
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authhandler.Authenticator(authService))

		// Batch routes
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", batchHandler.List)
			r.Post("/", batchHandler.Create)
			r.Get("/barcode/{barcode}", batchHandler.GetByBarcode)
			r.Get("/{id}", batchHandler.Get)
			r.Put("/{id}", batchHandler.Update)
			r.Post("/{id}/archive", batchHandler.Archive)
			r.Post("/{id}/reactivate", batchHandler.Reactivate)
		})

		// Distribution routes
		r.Route("/distributions", func(r chi.Router) {
			r.Get("/", distHandler.List)
			r.Post("/", distHandler.Create)
			r.Get("/{id}", distHandler.Get)
			r.Put("/{id}", distHandler.Update)
			r.Post("/{id}/retire", distHandler.Retire)
			r.Delete("/{id}", distHandler.Delete)
		})

		// Notification feed
		r.Get("/notifications", notifHandler.List)

		// Reports
		r.Get("/reports/summary", reportHandler.StockSummary)
		r.Get("/reports/grouped-stock", reportHandler.GroupedStock)

		// User management (admin only)
		r.Route("/users", func(r chi.Router) {
			r.Use(authhandler.RequireRole(authrepo.RoleAdmin))
			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)
			r.Get("/{id}", userHandler.Get)
			r.Put("/{id}", userHandler.Update)
			r.Put("/{id}/password", userHandler.ChangePassword)
			r.Post("/{id}/deactivate", userHandler.Deactivate)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
