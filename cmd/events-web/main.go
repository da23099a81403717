package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/agenda-distribuida/events-web/internal/actions"
	"github.com/agenda-distribuida/events-web/internal/clients"
	"github.com/agenda-distribuida/events-web/internal/commands"
	"github.com/agenda-distribuida/events-web/internal/config"
	"github.com/agenda-distribuida/events-web/internal/handlers"
	"github.com/agenda-distribuida/events-web/internal/listing"
	"github.com/agenda-distribuida/events-web/internal/logger"
	"github.com/agenda-distribuida/events-web/internal/session"
	"github.com/agenda-distribuida/events-web/internal/state"
	"github.com/agenda-distribuida/events-web/web"
)

func main() {
	// Check for subcommands
	if len(os.Args) > 1 && os.Args[1] == "issue-token" {
		commands.IssueToken(os.Args[2:])
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Page state lives in Redis when configured, in process otherwise
	var store state.Store
	if cfg.Redis.URL != "" {
		redisClient, err := state.NewRedisClient(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis", zap.String("url", cfg.Redis.URL))
		store = state.NewRedisStore(redisClient, cfg.Session.TTL)
	} else {
		log.Warn("REDIS_URL not set, keeping page state in memory")
		store = state.NewMemoryStore(cfg.Session.TTL)
	}

	eventsClient := clients.NewEventsClient(cfg.API.BaseURL, cfg.API.Timeout, log)

	events := listing.NewController(eventsClient, store, clients.ScopePublic, "events", log)
	userEvents := listing.NewController(eventsClient, store, clients.ScopeOwn, "user-events", log)
	dispatcher := actions.NewDispatcher(eventsClient, events, userEvents, log)
	guard := session.NewGuard(cfg.JWT.Secret, cfg.Session.CookieName, cfg.Session.TTL, log)

	tmpl, err := web.Templates()
	if err != nil {
		log.Fatal("Failed to parse templates", zap.Error(err))
	}

	// Set Gin mode
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	loc := cfg.Location()
	r := handlers.SetupRouter(
		tmpl,
		guard,
		handlers.NewEventHandler(events, dispatcher, store, cfg.Pagination.Window, loc, log),
		handlers.NewUserEventHandler(userEvents, dispatcher, store, cfg.Pagination.Window, loc, log),
		log,
	)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Starting events web server",
			zap.String("address", srv.Addr),
			zap.String("api", cfg.API.BaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
