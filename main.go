package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"rps-duel-server/config"
	"rps-duel-server/lobby"
	"rps-duel-server/loghandler"
	"rps-duel-server/ws"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("server/.env"); err2 != nil {
			// No .env file; fall back to whatever the environment already has.
		}
	}

	logger := slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo))

	cfg := config.Load()
	if cfg.AuthBaseURL == "" {
		logger.Info("auth not configured; createLobby/joinLobby/reconnect will trust client-claimed playerId", "tag", "main")
	} else {
		logger.Info("auth configured", "tag", "main", "baseUrl", cfg.AuthBaseURL)
	}
	logger.Info("configuration loaded", "tag", "main",
		"totalRounds", cfg.TotalRounds,
		"cardsPerPlayer", cfg.CardsPerPlayer,
		"maxSwapsPerGame", cfg.MaxSwapsPerGame,
		"reconnectWindowSec", cfg.ReconnectWindowSec,
		"wsPort", cfg.WSPort,
	)

	// Hub and LobbyRegistry reference each other (Hub implements
	// lobby.Transport; LobbyRegistry is Hub.Registry), so Hub is built first
	// with a nil registry and wired up once the registry exists.
	hub := ws.NewHub(cfg, nil, logger)
	registry := lobby.NewRegistry(cfg, hub, logger)
	hub.Registry = registry

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WSPort),
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		hub.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		logger.Info("rps duel server listening", "tag", "main", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exited with error", "tag", "main", "err", err)
		os.Exit(1)
	}
}
