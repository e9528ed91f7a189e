package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PeterKahenya/rapt/config"
	"github.com/PeterKahenya/rapt/internal/pg"
	"github.com/PeterKahenya/rapt/internal/postgres"
	"github.com/PeterKahenya/rapt/internal/security"
	"github.com/PeterKahenya/rapt/internal/service"
	httpx "github.com/PeterKahenya/rapt/internal/transport/http"
	"github.com/PeterKahenya/rapt/internal/transport/ws"
	"github.com/PeterKahenya/rapt/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting rapt chat service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- jwt ---
	pub, err := security.LoadRSAPublicKeyFromPEM(cfg.JWT.PublicKeyPath)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	verifier := security.NewJWTVerifier(pub, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.ClockSkew())

	// --- repos ---
	userRepo := postgres.NewUserRepository(pool)
	roomRepo := postgres.NewRoomRepository(pool)
	chatRepo := postgres.NewChatRepository(pool)

	// --- services ---
	authSvc := service.NewAuthService(userRepo, verifier)
	roomSvc, err := service.NewRoomService(roomRepo)
	if err != nil {
		log.Fatalf("room service: %v", err)
	}
	chatSvc := service.NewChatService(chatRepo, roomRepo)

	// --- realtime registry & server ---
	// реестр создаётся один раз и передаётся явно, никакого ambient-синглтона
	registry := ws.NewRegistry()
	wsServer := ws.NewServer(registry, authSvc, roomSvc, chatSvc)

	// --- HTTP ---
	handler := httpx.NewHandler(authSvc, roomSvc)
	router := httpx.NewRouter(handler, authSvc, wsServer)
	// WriteTimeout не ставим: он убивал бы долгоживущие ws-соединения
	httpSrv := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
