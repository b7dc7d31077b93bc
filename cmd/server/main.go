package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"docchat/internal/api"
	"docchat/internal/config"
	"docchat/internal/handlers"
	"docchat/internal/responder"
	"docchat/internal/services"
	"docchat/internal/store"
	"docchat/internal/store/memory"
	"docchat/internal/store/postgres"
)

func main() {
	log.Println("Starting docchat server...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the document store. DATABASE_URL selects Postgres;
	// without it everything lives in process memory.
	var st store.Store
	if cfg.DatabaseURL != "" {
		dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dbCancel()

		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
		}
		defer dbpool.Close()

		if err := dbpool.Ping(dbCtx); err != nil {
			log.Fatalf("FATAL: Unable to ping database: %v\n", err)
		}
		st = postgres.NewPostgresStore(dbpool)
		log.Println("Postgres store initialized.")
	} else {
		st = memory.NewMemoryStore()
		log.Println("WARN: DATABASE_URL not set, using in-memory store (data is lost on exit).")
	}

	// 3. Initialize Services
	authService := services.NewAuthService(st, cfg)
	log.Println("AuthService initialized.")
	chatService := services.NewChatService(st, responder.NewKeyword(), cfg.UploadDir)
	log.Println("ChatService initialized.")

	// 4. Initialize Handlers & Router
	authHandler := handlers.NewAuthHandler(authService)
	chatHandler := handlers.NewChatHandlers(chatService)

	router := api.NewRouter(api.RouterDependencies{
		AuthHandler: authHandler,
		ChatHandler: chatHandler,
		Config:      cfg,
	})
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
