// Package server
//
// @title Ticketbay API
// @version 1.0
// @description Event ticketing service API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ticketbay/ticketbay/internal/auth"
	"github.com/ticketbay/ticketbay/internal/catalog"
	"github.com/ticketbay/ticketbay/internal/config"
	"github.com/ticketbay/ticketbay/internal/models"
)

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	asynqClient *asynq.Client
	tokens      *auth.TokenService
	codes       auth.CodeVerifier
	roles       auth.RoleResolver
	cookies     auth.SessionCookies
	version     string
}

var dateOfBirthPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Token service; config.Load guarantees a secret is present
	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenLifetime)
	if err != nil {
		return nil, err
	}

	// Code verifier: fixed constant code by default, random single-use codes
	// in store mode
	var codes auth.CodeVerifier
	switch cfg.Auth.OTPMode {
	case "store":
		codes = auth.NewStoreCodeVerifier(cfg.Auth.OTPLifetime)
	default:
		codes = auth.FixedCodeVerifier{Code: cfg.Auth.OTPCode}
	}

	// Register custom validators on the binding engine used by ShouldBindJSON
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, fmt.Errorf("unexpected gin binding validator engine")
	}
	if err := validate.RegisterValidation("dateofbirth", func(fl validator.FieldLevel) bool {
		// Digit groups only; "1990-13-40" passes, calendar validity is not
		// checked here
		return dateOfBirthPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := validate.RegisterValidation("countrycode", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if len(value) != 2 {
			return false
		}
		for _, char := range value {
			if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z')) {
				return false
			}
		}
		return true
	}); err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// Create server
	server := &Server{
		db:          db,
		config:      cfg,
		logger:      zlog,
		validator:   validate,
		asynqClient: asynqClient,
		tokens:      tokens,
		codes:       codes,
		cookies:     auth.SessionCookies{Secure: cfg.IsProduction()},
		version:     version,
	}

	// Role resolution prefers the stored account record and falls back to
	// the email-pattern rule for emails never seen before
	server.roles = &storedRoleResolver{db: db, fallback: auth.EmailRoleResolver{}}

	// Load the optional YAML seed catalog
	if cfg.SeedFile != "" {
		if err := catalog.SeedFromFile(db, cfg.SeedFile, zlog); err != nil {
			zlog.Warn().Err(err).Str("seed_file", cfg.SeedFile).Msg("Failed to apply seed catalog")
		}
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work
	// with all drivers). WAL mode must be set first for optimal concurrency.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware; credentials must be allowed for the session cookie
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/auth/register", s.register)
	s.router.POST("/api/auth/send-otp", s.sendOTP)
	s.router.POST("/api/auth/verify-otp", s.verifyOTP)
	s.router.POST("/api/auth/verify", s.verify)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/logout", s.logout)

	// Public catalog endpoints
	s.router.GET("/api/events", s.listEvents)
	s.router.GET("/api/events/:id", s.getEvent)
	s.router.GET("/api/categories", s.listCategories)

	// Authenticated API routes (session cookie or bearer token required)
	api := s.router.Group("/api")
	api.Use(s.sessionAuthMiddleware())
	{
		// Auth endpoints
		api.GET("/auth/me", s.getCurrentUser)

		// Ticket orders
		api.POST("/events/:id/orders", s.createOrder)
		api.GET("/orders", s.listMyOrders)

		// Organizer applications (any authenticated user may apply)
		api.POST("/applications", s.applyForOrganizer)

		// Organizer dashboard
		organizerRoutes := api.Group("/organizer")
		organizerRoutes.Use(s.requireRole(auth.RoleOrganizer))
		{
			organizerRoutes.GET("/events", s.listOwnEvents)
			organizerRoutes.POST("/events", s.createEvent)
			organizerRoutes.PATCH("/events/:id", s.updateEvent)
			organizerRoutes.DELETE("/events/:id", s.deleteEvent)
			organizerRoutes.POST("/events/:id/ticket-types", s.createTicketType)
			organizerRoutes.GET("/events/:id/sales", s.getEventSales)
		}

		// Admin dashboard
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(s.requireRole(auth.RoleAdmin))
		{
			adminRoutes.GET("/users", s.listUsers)
			adminRoutes.PATCH("/users/:id/role", s.updateUserRole)
			adminRoutes.GET("/applications", s.listApplications)
			adminRoutes.POST("/applications/:id/decision", s.decideApplication)
			adminRoutes.POST("/categories", s.createCategory)
			adminRoutes.DELETE("/categories/:id", s.deleteCategory)
			adminRoutes.GET("/reports", s.listReports)
			adminRoutes.GET("/settings", s.getSettings)
			adminRoutes.PUT("/settings", s.updateSettings)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "ticketbay-api",
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router returns the configured gin engine (used by handler tests)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":8080"

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	return nil
}
