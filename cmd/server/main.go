package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tuannm99/novaspatial/internal"
	"github.com/tuannm99/novaspatial/internal/api"
	"github.com/tuannm99/novaspatial/internal/engine"
)

func main() {
	configPath := flag.String("config", "", "config file (yaml); defaults plus NOVASPATIAL_* env when empty")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	cfg, err := internal.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))

	db, err := engine.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewEngine(db, cfg.Server.TokenHash, cfg.Server.Debug),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("server.shutdown", "addr", srv.Addr)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	slog.Info("server.start", "app", cfg.AppName, "addr", srv.Addr, "workdir", cfg.Storage.Workdir, "auth", cfg.Server.TokenHash != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = db.Close()
		log.Fatalf("Server failed: %v", err)
	}
	if err := db.Close(); err != nil {
		slog.Error("server.close", "err", err)
	}
}
