package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/element-app/backend/docs"
	"github.com/element-app/backend/internal/api/handler"
	"github.com/element-app/backend/internal/api/middleware"
	"github.com/element-app/backend/internal/core/domain"
	"github.com/element-app/backend/internal/core/service"
	"github.com/element-app/backend/internal/infrastructure/config"
	mongodb "github.com/element-app/backend/internal/infrastructure/db/mongo"
	redisdb "github.com/element-app/backend/internal/infrastructure/db/redis"
	"github.com/element-app/backend/internal/infrastructure/payment"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *mongo.Database, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("element"))

	// --- Repositories ---
	userRepo := mongodb.NewUserRepository(db)
	roleRepo := mongodb.NewRoleRepository(db)
	projectRepo := mongodb.NewProjectRepository(db)
	txnRepo := mongodb.NewTransactionRepository(db)
	resetStore := redisdb.NewResetTokenStore(rdb, cfg.ResetTokenTTL)

	// --- Services ---
	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(userRepo, roleRepo, tokenService, resetStore, log)
	roleService := service.NewRoleService(roleRepo, userRepo, log)
	projectService := service.NewProjectService(projectRepo, log)
	gateway := payment.NewGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayTimeout)
	ledger := service.NewTransactionService(txnRepo, projectRepo, gateway, cfg.PlatformFeeRate, log)
	milestoneService := service.NewMilestoneService(projectRepo, ledger, log)

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(userRepo)
	roleHandler := handler.NewRoleHandler(roleService)
	projectHandler := handler.NewProjectHandler(projectService, milestoneService)
	txnHandler := handler.NewTransactionHandler(ledger)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// --- Middleware ---
	authRequired := middleware.Auth(tokenService)
	manageRoles := middleware.RequirePermission(roleService, domain.PermManageRoles)
	manageLedger := middleware.RequirePermission(roleService, domain.PermManageLedger)
	authLimit := middleware.NewRateLimiter(cfg.AuthRateMax, cfg.AuthRateWindow).Middleware()
	resetLimit := middleware.NewRateLimiter(cfg.ResetRateMax, cfg.ResetRateWindow).Middleware()

	// --- Public routes (rate limited, no auth) ---
	e.POST("/auth/register", authHandler.Register, authLimit)
	e.POST("/auth/login", authHandler.Login, authLimit)
	e.POST("/auth/password/reset", authHandler.RequestReset, resetLimit)
	e.POST("/auth/password/reset/confirm", authHandler.ConfirmReset, resetLimit)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", authRequired)

	v1.GET("/profile", profileHandler.Get)
	v1.PUT("/profile", profileHandler.Update)
	v1.DELETE("/profile", profileHandler.Delete)

	v1.POST("/roles", roleHandler.Create, manageRoles)
	v1.GET("/roles", roleHandler.List)
	v1.PUT("/users/:id/role", roleHandler.Assign, manageRoles)

	v1.POST("/projects", projectHandler.Create)
	v1.GET("/projects", projectHandler.List)
	v1.GET("/projects/:id", projectHandler.Get)
	v1.PATCH("/projects/:id/status", projectHandler.SetStatus)
	v1.POST("/projects/:id/dependencies/:dep", projectHandler.AddDependency)
	v1.DELETE("/projects/:id/dependencies/:dep", projectHandler.RemoveDependency)

	v1.POST("/projects/:id/milestones", projectHandler.AddMilestone)
	v1.DELETE("/projects/:id/milestones/:mid", projectHandler.RemoveMilestone)
	v1.POST("/projects/:id/milestones/:mid/complete", projectHandler.CompleteMilestone)
	v1.POST("/projects/:id/milestones/:mid/release", projectHandler.ReleasePayment)

	v1.POST("/transactions", txnHandler.Create, manageLedger)
	v1.POST("/transactions/:id/process", txnHandler.Process, manageLedger)
	v1.GET("/transactions", txnHandler.List)
	v1.GET("/transactions/:id", txnHandler.Get)

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
