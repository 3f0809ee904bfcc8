package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/madn-server/internal/archive"
	appcfg "github.com/park285/madn-server/internal/config"
	"github.com/park285/madn-server/internal/game"
	"github.com/park285/madn-server/internal/httpapi"
	"github.com/park285/madn-server/internal/msgcat"
	"github.com/park285/madn-server/internal/obslog"
	"github.com/park285/madn-server/internal/store"
	"github.com/park285/madn-server/internal/syncproto"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("message catalog init error", zap.Error(err))
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init error", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	engine := game.New(st, game.Config{
		TeamSize:         cfg.TeamSize,
		AutoCreateOnJoin: cfg.AutoCreateOnJoin,
		MaxChatLength:    cfg.MaxChatLength,
	})

	opts := []httpapi.Option{
		httpapi.WithCatalog(cat),
		httpapi.WithRequestTimeout(cfg.RequestTimeout),
	}

	// Result archive is optional
	if cfg.DatabaseURL != "" {
		repo, err := archive.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init error", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
		}
		defer func() { _ = repo.Close() }()
		if cfg.EnsureSchema {
			if err := repo.EnsureSchema(ctx); err != nil {
				logger.Fatal("archive schema error", zap.Error(err))
			}
		}
		engine.AttachArchiver(repo)
		opts = append(opts, httpapi.WithResults(repo))
	} else {
		logger.Info("archive disabled; DATABASE_URL not set")
	}

	poller := syncproto.New(st, syncproto.Config{
		FirstPollWindow:   cfg.FirstPollWindow,
		FirstPollMessages: cfg.FirstPollMessages,
		HintActive:        cfg.PollHintActive,
		HintIdle:          cfg.PollHintIdle,
		HintFinished:      cfg.PollHintFinished,
	})
	srv := httpapi.New(engine, poller, opts...)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("madn server listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("store", cfg.StoreBackend),
		)
		errCh <- srv.ListenAndServe(cfg.ListenAddr)
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown requested", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("shutdown error", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *appcfg.AppConfig) (store.Store, error) {
	opts := store.Options{
		EventRetention: cfg.EventRetention,
		ChatRetention:  cfg.ChatRetention,
		TTL:            cfg.GameTTL,
	}
	if cfg.StoreBackend == appcfg.StoreRedis {
		rs, err := store.NewRedis(ctx, cfg.RedisURL, opts)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	return store.NewMemory(opts), nil
}
