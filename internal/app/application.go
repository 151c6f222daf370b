package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"askrelay/internal/api"
	"askrelay/internal/config"
	"askrelay/internal/database"
	"askrelay/internal/notify"
	"askrelay/internal/session"
	"askrelay/internal/socket"
	"askrelay/internal/sweeper"
)

// Application coordinates all system components.
// Clean dependency injection pattern with proper initialization order.
type Application struct {
	config       *config.Config
	dbManager    *database.Manager
	store        *session.Store
	registry     *notify.Registry
	socketServer *socket.Server
	sweeper      *sweeper.Sweeper
	apiServer    *api.Server
	httpServer   *http.Server
}

// NewApplication creates an application with all components initialized.
// Component initialization follows strict dependency order:
// Database → Store → Registry → Socket → Sweeper → API → HTTP
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// STEP 1: Initialize resolution log (foundation layer)
	dbManager, err := database.NewManager(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database manager: %w", err)
	}

	// STEP 2: Initialize the pending-session store
	store := session.NewStore(dbManager)

	// STEP 3: Initialize the UI notification registry
	registry := notify.NewRegistry()

	// STEP 4: Initialize the ask socket server
	socketServer := socket.NewServer(cfg.Socket.Path, store, registry)

	// STEP 5: Initialize the expiry sweeper
	sessionSweeper := sweeper.NewSweeper(store, cfg.Sweeper.Interval)

	// STEP 6: Initialize the API server and WebSocket handler
	apiServer := api.NewServer(store, dbManager, registry)
	wsHandler := notify.NewHandler(registry)

	// STEP 7: Setup HTTP server with API and UI WebSocket endpoints
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:       cfg,
		dbManager:    dbManager,
		store:        store,
		registry:     registry,
		socketServer: socketServer,
		sweeper:      sessionSweeper,
		apiServer:    apiServer,
		httpServer:   httpServer,
	}, nil
}

// Start begins application execution: socket listener and sweeper first,
// then the HTTP server for the UI
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting askrelay on %s (socket %s)", app.httpServer.Addr, app.socketServer.Path())

	// STEP 1: Start the ask socket server (accepts requester connections)
	if err := app.socketServer.Start(); err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}

	// STEP 2: Start the expiry sweeper (background timeout enforcement)
	if err := app.sweeper.Start(ctx); err != nil {
		app.socketServer.Stop()
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	// STEP 3: Start HTTP server (UI listing, submission, events)
	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Verify server is ready before returning
	select {
	case err := <-serverErrCh:
		app.sweeper.Stop()
		app.socketServer.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("askrelay started successfully")
		return nil
	case <-ctx.Done():
		app.sweeper.Stop()
		app.socketServer.Stop()
		return ctx.Err()
	}
}

// Stop gracefully shuts down the application in reverse dependency order:
// HTTP → Sweeper → Socket → Database. Pending sessions are lost by design.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down askrelay")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := app.sweeper.Stop(); err != nil {
		log.Printf("Sweeper shutdown error: %v", err)
	}

	if err := app.socketServer.Stop(); err != nil {
		log.Printf("Socket server shutdown error: %v", err)
	}

	if err := app.dbManager.Close(); err != nil {
		log.Printf("Database shutdown error: %v", err)
	}

	log.Printf("askrelay shutdown complete")
	return nil
}

// GetAddr returns the HTTP server address for external connections
func (app *Application) GetAddr() string {
	return app.httpServer.Addr
}
