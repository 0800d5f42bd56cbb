package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetpulse/fleetpulse/internal/alerting"
	"github.com/fleetpulse/fleetpulse/internal/api"
	"github.com/fleetpulse/fleetpulse/internal/broadcast"
	"github.com/fleetpulse/fleetpulse/internal/config"
	"github.com/fleetpulse/fleetpulse/internal/ingest"
	"github.com/fleetpulse/fleetpulse/internal/metrics"
	"github.com/fleetpulse/fleetpulse/internal/mqttsource"
	"github.com/fleetpulse/fleetpulse/internal/scoring"
	"github.com/fleetpulse/fleetpulse/internal/storage"
	"github.com/fleetpulse/fleetpulse/internal/webhook"
	"github.com/fleetpulse/fleetpulse/internal/window"
	"github.com/fleetpulse/fleetpulse/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("fleetpulse starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"provider", cfg.Scoring.Provider,
		"window_size", cfg.Ingest.WindowSize,
		"webhook_enabled", cfg.Webhook.URL != "",
		"mqtt_enabled", cfg.MQTT.BrokerURL != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	store, err := storage.Open(cfg.Server.DBPath)
	if err != nil {
		slog.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Error("close storage", "err", cerr)
		}
	}()

	windows := window.New(cfg.Ingest.WindowSize)
	chain := scoring.NewChain(cfg.Scoring, met)
	rules := alerting.New(cfg.Alerts, met)
	bc := broadcast.New(cfg.Broadcast.BufferSize, met)
	defer bc.Close()

	// CMMS webhook dispatcher — a no-op unless a destination is configured.
	hooks := webhook.New(cfg.Webhook, met)
	go hooks.Run(ctx)

	gw := ingest.New(cfg.Ingest, windows, chain, rules, store, bc, hooks, met)
	if err := gw.WarmWindows(); err != nil {
		slog.Error("failed to warm context windows", "err", err)
		os.Exit(1)
	}

	// Optional MQTT ingest feed.
	if cfg.MQTT.BrokerURL != "" {
		src := mqttsource.New(cfg.MQTT, gw)
		go func() {
			if err := src.Run(ctx); err != nil {
				slog.Error("mqtt source stopped", "err", err)
			}
		}()
	}

	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(cfg, gw, chain, store))
	httpMux.Handle("/ws/stream", ws.New(bc))
	httpMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("fleetpulse shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
