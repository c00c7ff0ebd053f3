package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/epeers/reconcile/config"
	_ "github.com/epeers/reconcile/docs"
	"github.com/epeers/reconcile/internal/cache"
	"github.com/epeers/reconcile/internal/database"
	"github.com/epeers/reconcile/internal/handlers"
	"github.com/epeers/reconcile/internal/middleware"
	"github.com/epeers/reconcile/internal/repository"
	"github.com/epeers/reconcile/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Portfolio Reconciliation API
// @version 1.0
// @description Reconciles trade-ledger positions against custodian bank snapshots and checks concentration limits.
// @BasePath /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context for initialization
	ctx := context.Background()

	// Initialize database connection
	db, err := database.New(ctx, cfg.PGURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Explicit schema bootstrap; no data is ever wiped at startup
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Initialize caches
	snapshots := cache.NewSnapshotCache(5 * time.Minute)

	// Initialize repositories
	tradeRepo := repository.NewTradeRepository(db.Pool)
	positionRepo := repository.NewPositionRepository(db.Pool)
	accountRepo := repository.NewAccountRepository(db.Pool)

	// Initialize services
	ingestionSvc := services.NewIngestionService(tradeRepo, positionRepo, accountRepo, snapshots)
	positionSvc := services.NewPositionService(tradeRepo, positionRepo, snapshots)
	reconciliationSvc := services.NewReconciliationService(tradeRepo, positionRepo)
	complianceSvc := services.NewComplianceService(tradeRepo, positionRepo, cfg.ConcentrationThreshold)

	// Initialize handlers
	ingestHandler := handlers.NewIngestHandler(ingestionSvc)
	positionHandler := handlers.NewPositionHandler(positionSvc)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationSvc)
	complianceHandler := handlers.NewComplianceHandler(complianceSvc)

	// Setup Gin router
	router := gin.Default()

	// Apply global middleware
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Format(time.RFC3339)})
	})

	// API routes
	router.POST("/ingest", ingestHandler.Ingest)
	router.GET("/positions", positionHandler.Get)
	router.GET("/reconciliation", reconciliationHandler.Reconcile)
	router.GET("/compliance/concentration", complianceHandler.Concentration)

	// API documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	fmt.Println("Server exited")
}
