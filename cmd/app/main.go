package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitex_go/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Chain Deposit Poller
	if err := bootstrap.Poller.Start(ctx); err != nil {
		slog.Error("Failed to start deposit poller", slog.Any("error", err))
	}
	defer bootstrap.Poller.Stop()

	// 4. Websocket Gateway
	mux := http.NewServeMux()
	mux.Handle("/trade", bootstrap.Server)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled() {
			slog.Info("✅ Gateway listening (TLS)", slog.String("addr", cfg.Server.ListenAddr))
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
		} else {
			slog.Info("✅ Gateway listening", slog.String("addr", cfg.Server.ListenAddr))
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("✨ Gateway fully operational. Press Ctrl+C to exit.")

	// 5. Wait for shutdown signal or server failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("❌ Server failed", slog.Any("error", err))
		stop()
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Shutdown incomplete", slog.Any("error", err))
	}
}
