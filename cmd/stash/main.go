package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmfalke/stash/internal/database"
	"github.com/dmfalke/stash/internal/logging"
	"github.com/dmfalke/stash/internal/server"
)

func main() {
	port := os.Getenv("STASH_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("STASH_DB_PATH")
	if dbPath == "" {
		dbPath = "stash.db"
	}

	logger := logging.Setup(os.Getenv("STASH_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	srv := server.New(db, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleaner := srv.Cleaner()
	cleaner.Start(ctx)
	defer cleaner.Stop()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("stash running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
