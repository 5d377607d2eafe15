package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"servicesync-server/config"
	"servicesync-server/database"
	"servicesync-server/jobs"
	"servicesync-server/media"
	"servicesync-server/middleware"
	"servicesync-server/routes"
	"servicesync-server/services"
	"servicesync-server/telemetry"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	if cfg.Server.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database: ", err)
	}

	store, err := media.New(ctx, cfg.Media)
	if err != nil {
		log.Fatal("Failed to initialize media storage: ", err)
	}

	users := services.NewUserService(db)
	tokens, err := services.NewTokenAuthority(cfg.JWT, users)
	if err != nil {
		log.Fatal("Failed to initialize token authority: ", err)
	}
	lifecycle := services.NewLifecycleService(db)

	limiter := middleware.NewRateLimiter()
	router := routes.NewRouter(routes.Dependencies{
		Config:    cfg,
		Tokens:    tokens,
		Policy:    services.DefaultPolicy(),
		Users:     users,
		Requests:  services.NewRequestService(db, lifecycle),
		Lifecycle: lifecycle,
		Catalog:   services.NewCatalogService(db),
		Feedback:  services.NewFeedbackService(db),
		Media:     store,
		Limiter:   limiter,
	})

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Server.Port,
		Handler: otelhttp.NewHandler(router, cfg.Telemetry.ServiceName),
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Start background jobs
	reconcileJob := jobs.NewReconcileJob(users, lifecycle, cfg.Jobs.ReconcileInterval)
	reconcileJob.Start()

	<-ctx.Done()
	log.Println("Shutting down server...")
	reconcileJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Printf("❌ Media storage close failed: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("❌ Database close failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("❌ Tracer shutdown failed: %v", err)
	}
	log.Println("✅ Server stopped")
}
