package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chathub/internal/api"
	"chathub/internal/auth"
	"chathub/internal/chat"
	"chathub/internal/config"
	"chathub/internal/db"
	"chathub/internal/middleware"
	"chathub/internal/repository"
	"chathub/internal/tasks"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	messageRepo := repository.NewMessageRepo(pool)
	userRepo := repository.NewUserRepo(pool)

	verifier := auth.NewVerifier([]byte(cfg.AuthKey), userRepo)
	registry := chat.NewRegistry()
	broadcaster := chat.NewBroadcaster()
	presence := chat.NewPresenceTracker(userRepo)
	typing := chat.NewTyping(cfg.TypingWindow, broadcaster)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go typing.Run(ctx)

	tasks.NewMessageSweeper(messageRepo).Start()

	wsHandler := api.NewWSHandler(
		verifier, registry, broadcaster, messageRepo, presence, typing,
		cfg.HistoryLimit, cfg.SendQueueSize, cfg.HandshakeTimeout,
	)

	authenticate := middleware.Authenticate(verifier)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)
	mux.HandleFunc("GET /health", api.HealthHandler(pool))

	mux.Handle("GET /api/messages/{roomId}", authenticate(api.HistoryHandler(messageRepo)))
	mux.Handle("POST /api/messages/{roomId}", authenticate(api.PostMessageHandler(messageRepo)))
	mux.Handle("GET /api/messages/recent/{roomId}", authenticate(api.RecentHandler(messageRepo)))
	mux.Handle("GET /api/messages/search/{roomId}", authenticate(api.SearchHandler(messageRepo)))
	mux.Handle("GET /api/messages/stats/{roomId}", authenticate(api.StatsHandler(messageRepo)))
	mux.Handle("PUT /api/messages/{messageId}", authenticate(api.EditMessageHandler(messageRepo)))
	mux.Handle("DELETE /api/messages/{messageId}", authenticate(api.DeleteMessageHandler(messageRepo)))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[SERVER] Chat server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("[SERVER] Shutdown signal received. Cleaning up...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[SERVER] Shutdown error: %v", err)
	}

	log.Println("[SERVER] Graceful shutdown complete")
}
