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

	"github.com/joho/godotenv"

	"github.com/quiverlab/toolgate/internal/config"
	"github.com/quiverlab/toolgate/internal/handler"
	"github.com/quiverlab/toolgate/internal/service/ai"
	"github.com/quiverlab/toolgate/internal/service/conversation"
	"github.com/quiverlab/toolgate/internal/service/document"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if !cfg.AI.Enabled() {
		log.Fatal("model credentials missing: provide ARK_API_KEY + Model, or the AK/SK pair")
	}
	backend, err := ai.NewService(ctx, cfg.AI)
	if err != nil {
		log.Fatalf("failed to initialize backend model: %v", err)
	}

	store := conversation.NewStore(cfg.Security.MaxHistory, cfg.Security.SessionTimeout)
	go store.Run(ctx)

	cache := document.NewCache(cfg.Security.CacheSize, cfg.Security.CacheTTL)

	if cfg.Security.EnableWrite {
		log.Println("file writes enabled by configuration")
	}
	if cfg.Security.EnableExec {
		log.Println("command execution enabled by configuration")
	}

	router := handler.NewRouter(cfg.Security, backend, store, cache)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("toolgate listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
