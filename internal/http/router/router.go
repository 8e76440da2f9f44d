package router

import (
	"encoding/json"
	"net/http"

	"github.com/b2bcrm/crm-api/internal/auth"
	"github.com/b2bcrm/crm-api/internal/config"
	"github.com/b2bcrm/crm-api/internal/database"
	"github.com/b2bcrm/crm-api/internal/domain"
	"github.com/b2bcrm/crm-api/internal/http/handler"
	"github.com/b2bcrm/crm-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/b2bcrm/crm-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	authHandler     *handler.AuthHandler
	userHandler     *handler.UserHandler
	customerHandler *handler.CustomerHandler
	dealHandler     *handler.DealHandler
	contractHandler *handler.ContractHandler
	taskHandler     *handler.TaskHandler
	ticketHandler   *handler.TicketHandler
	auditHandler    *handler.AuditHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	customerHandler *handler.CustomerHandler,
	dealHandler *handler.DealHandler,
	contractHandler *handler.ContractHandler,
	taskHandler *handler.TaskHandler,
	ticketHandler *handler.TicketHandler,
	auditHandler *handler.AuditHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		authHandler:     authHandler,
		userHandler:     userHandler,
		customerHandler: customerHandler,
		dealHandler:     dealHandler,
		contractHandler: contractHandler,
		taskHandler:     taskHandler,
		ticketHandler:   ticketHandler,
		auditHandler:    auditHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.ClientIP())
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		w.Header().Set("Content-Type", "application/json")
		status := http.StatusOK
		overall := "healthy"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			overall = "unhealthy"
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": overall,
			"checks": checks,
		})
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Post("/auth/login", rt.authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			// Auth
			r.Post("/auth/logout", rt.authHandler.Logout)
			r.Get("/auth/me", rt.authHandler.Me)
			r.Put("/auth/password", rt.authHandler.ChangePassword)

			// Customers
			r.Route("/customers", func(r chi.Router) {
				r.Get("/", rt.customerHandler.List)
				r.Post("/", rt.customerHandler.Create)
				r.Get("/{id}", rt.customerHandler.Get)
				r.Put("/{id}", rt.customerHandler.Update)
				r.Delete("/{id}", rt.customerHandler.Delete)
				r.Get("/{id}/tickets", rt.customerHandler.ListTickets)
				r.Get("/{id}/deals", rt.dealHandler.ListForCustomer)

				// Manager scope
				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
					r.Get("/team", rt.customerHandler.ListTeam)
					r.Get("/unassigned", rt.customerHandler.ListUnassigned)
					r.Put("/{id}/reassign", rt.customerHandler.Reassign)
					r.Put("/{id}/vip", rt.customerHandler.ToggleVIP)
				})
			})

			// Deals
			r.Route("/deals", func(r chi.Router) {
				r.Get("/", rt.dealHandler.List)
				r.Post("/", rt.dealHandler.Create)
				r.Get("/{id}", rt.dealHandler.Get)
				r.Put("/{id}", rt.dealHandler.Update)
				r.Delete("/{id}", rt.dealHandler.Delete)
				r.Put("/{id}/stage", rt.dealHandler.UpdateStage)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
					r.Get("/team", rt.dealHandler.ListTeam)
					r.Get("/pipeline", rt.dealHandler.Pipeline)
				})
			})

			// Contracts
			r.Route("/contracts", func(r chi.Router) {
				r.Get("/", rt.contractHandler.List)
				r.Post("/", rt.contractHandler.Create)
				r.Get("/{id}", rt.contractHandler.Get)
				r.Put("/{id}", rt.contractHandler.Update)
				r.Delete("/{id}", rt.contractHandler.Delete)
				r.Put("/{id}/pay", rt.contractHandler.MarkPaid)
				r.Post("/{id}/document", rt.contractHandler.UploadDocument)
				r.Get("/{id}/document", rt.contractHandler.DownloadDocument)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
					r.Get("/pending", rt.contractHandler.ListPending)
					r.Get("/team", rt.contractHandler.ListTeam)
					r.Put("/{id}/approve", rt.contractHandler.Approve)
					r.Put("/{id}/reject", rt.contractHandler.Reject)
				})
			})

			// Tasks
			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", rt.taskHandler.List)
				r.Post("/", rt.taskHandler.Create)
				r.Get("/due", rt.taskHandler.ListDueSoon)
				r.Get("/{id}", rt.taskHandler.Get)
				r.Put("/{id}", rt.taskHandler.Update)
				r.Delete("/{id}", rt.taskHandler.Delete)
				r.Put("/{id}/status", rt.taskHandler.UpdateStatus)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin))
					r.Get("/team", rt.taskHandler.ListTeam)
					r.Put("/{id}/manage", rt.taskHandler.ManagerUpdate)
					r.Delete("/{id}/manage", rt.taskHandler.ManagerDelete)
				})
			})

			// Support tickets
			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", rt.ticketHandler.List)
				r.Post("/", rt.ticketHandler.Create)
				r.Put("/{id}/close", rt.ticketHandler.Close)
			})

			// Manager team roster
			r.With(rt.authMiddleware.RequireRole(domain.RoleManager, domain.RoleAdmin)).
				Get("/users/team", rt.userHandler.ListTeam)

			// Admin surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireAdmin)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", rt.userHandler.List)
					r.Post("/", rt.userHandler.Create)
					r.Get("/{id}", rt.userHandler.Get)
					r.Put("/{id}", rt.userHandler.Update)
					r.Delete("/{id}", rt.userHandler.Delete)
					r.Put("/{id}/lock", rt.userHandler.ToggleLock)
					r.Put("/{id}/restore", rt.userHandler.Restore)
					r.Put("/{id}/role", rt.userHandler.ChangeRole)
					r.Put("/{id}/password", rt.userHandler.ResetPassword)
				})

				r.Route("/audit-logs", func(r chi.Router) {
					r.Get("/", rt.auditHandler.List)
					r.Get("/users/{id}", rt.auditHandler.ListByUser)
					r.Get("/{tableName}/{recordId}", rt.auditHandler.ListByRecord)
				})
			})
		})
	})

	return r
}
