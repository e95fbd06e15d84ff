package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"gatekeeper/internal/cache"
	"gatekeeper/internal/config"
	"gatekeeper/internal/http/handlers"
	applog "gatekeeper/internal/log"
	"gatekeeper/internal/repos"
	"gatekeeper/internal/services"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer teeLog(cfg.LogFile)()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	// Redis is optional; without it limiter counters and revocations stay in process.
	var storage fiber.Storage
	opts := services.Options{RequireApproval: cfg.RequireApproval, BcryptCost: cfg.BcryptCost}
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		storage = cache.NewStorage(rdb, "gatekeeper:limiter:")
		if cfg.RevokeOnLogout {
			opts.Denylist = cache.NewDenylist(rdb, "gatekeeper:revoked:")
		}
	} else if cfg.RevokeOnLogout {
		opts.Denylist = services.NewMemoryDenylist()
	}

	tokens := services.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	authSvc, err := services.NewAuthService(repos.NewUserRepo(db), tokens, opts)
	if err != nil {
		return err
	}

	app := handlers.NewApp(handlers.NewDeps(cfg, authSvc), storage)

	errCh := make(chan error, 1)
	go func() {
		applog.Info(nil, "server.start", map[string]any{"port": cfg.Port})
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Printf("[server] shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
