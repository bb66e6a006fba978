package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/lol-draft-rooms/internal/catalog"
	"github.com/DoyleJ11/lol-draft-rooms/internal/config"
	"github.com/DoyleJ11/lol-draft-rooms/internal/engine"
	"github.com/DoyleJ11/lol-draft-rooms/internal/httpapi"
	"github.com/DoyleJ11/lol-draft-rooms/internal/hub"
	"github.com/DoyleJ11/lol-draft-rooms/internal/logging"
	"github.com/DoyleJ11/lol-draft-rooms/internal/ws"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("load catalog", zap.String("path", cfg.CatalogPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := engine.Rules{EnforceTurnOrder: cfg.EnforceTurnOrder}
	h := hub.NewHub(ctx, cat, rules, logger.Named("hub"))

	// Build the router *with* the hub injected
	handler := httpapi.SetupRoutes(h, cat, ws.Options{
		OriginPatterns: cfg.AllowedOrigins,
		OutboxSize:     cfg.OutboxSize,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Hijacked websocket connections outlive Shutdown; tie them to ctx.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("champions", cat.Len()),
			zap.Bool("enforce_turn_order", rules.EnforceTurnOrder))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		h.Send(hub.ShutdownHub{})
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}
