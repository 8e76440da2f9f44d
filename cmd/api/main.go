package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b2bcrm/crm-api/docs"
	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/config"
	"github.com/b2bcrm/crm-api/internal/database"
	"github.com/b2bcrm/crm-api/internal/http/handler"
	"github.com/b2bcrm/crm-api/internal/http/middleware"
	"github.com/b2bcrm/crm-api/internal/http/router"
	"github.com/b2bcrm/crm-api/internal/logger"
	"github.com/b2bcrm/crm-api/internal/repository"
	"github.com/b2bcrm/crm-api/internal/service"
	"github.com/b2bcrm/crm-api/internal/storage"
	"go.uber.org/zap"
)

// @title B2B CRM API
// @version 1.0
// @description Role-based CRM core for customer, deal pipeline, contract approval, and task management

// @contact.name API Support
// @contact.email support@b2bcrm.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	if basicCfg.App.Environment == "development" || basicCfg.App.Environment == "local" {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database with retry logic
	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize storage for contract documents
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	dealRepo := repository.NewDealRepository(db)
	contractRepo := repository.NewContractRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Initialize services
	auditLogService := service.NewAuditLogService(auditLogRepo, log)
	tokenManager := auth.NewTokenManager(&cfg.Auth, cfg.App.Name)

	authService := service.NewAuthService(userRepo, tokenManager, auditLogService, cfg.Auth.BcryptCost, log)
	userService := service.NewUserService(userRepo, auditLogService, cfg.Auth.BcryptCost, log)
	customerService := service.NewCustomerService(customerRepo, userRepo, auditLogService, log)
	dealService := service.NewDealService(dealRepo, customerRepo, auditLogService, log)
	contractService := service.NewContractService(contractRepo, dealRepo, userRepo, auditLogService, fileStorage, log)
	taskService := service.NewTaskService(taskRepo, userRepo, auditLogService, log)
	ticketService := service.NewTicketService(ticketRepo, customerRepo, auditLogService, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(tokenManager, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	userHandler := handler.NewUserHandler(userService, log)
	customerHandler := handler.NewCustomerHandler(customerService, ticketService, log)
	dealHandler := handler.NewDealHandler(dealService, log)
	contractHandler := handler.NewContractHandler(contractService, log)
	taskHandler := handler.NewTaskHandler(taskService, log)
	ticketHandler := handler.NewTicketHandler(ticketService, log)
	auditHandler := handler.NewAuditHandler(auditLogService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		authHandler,
		userHandler,
		customerHandler,
		dealHandler,
		contractHandler,
		taskHandler,
		ticketHandler,
		auditHandler,
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
