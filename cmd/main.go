package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"party-service/internal/config"
	"party-service/internal/server"
)

func main() {
	// Load config (reads .env when present)
	cfg := config.Load()

	// Root context for the consumer and housekeeping loops
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.NewServer(ctx, cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🎉 Party service HTTP server starting on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		log.Println("🛑 Party service shutting down gracefully...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Party service shutdown error: %v", err)
		}
	case err := <-errCh:
		log.Fatalf("Party service failed: %v", err)
	}
}
