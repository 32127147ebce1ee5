package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-checkout/internal/catalog"
	"github.com/noah-isme/pos-checkout/internal/checkout"
	"github.com/noah-isme/pos-checkout/internal/config"
	"github.com/noah-isme/pos-checkout/internal/health"
	"github.com/noah-isme/pos-checkout/internal/obs"
	"github.com/noah-isme/pos-checkout/internal/pricing"
	"github.com/noah-isme/pos-checkout/internal/terminal"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel, os.Stderr).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewCheckoutMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.AmountBuckets), registry)

	factory, err := loadRules(cfg.RulesFile)
	if err != nil {
		logger.Fatal().Err(err).Str("rules_file", cfg.RulesFile).Msg("load pricing rules")
	}
	logger.Info().Strs("codes", factory.Codes()).Msg("pricing rules loaded")

	co, err := checkout.New(checkout.Config{Rules: factory, Logger: &logger, Metrics: metrics})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise checkout")
	}

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = &http.Server{
			Addr: cfg.MetricsAddr,
			Handler: health.Router(
				health.Handler{Catalog: factory},
				promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", srv.Addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	shell := &terminal.Shell{
		Register:    co,
		Prices:      factory,
		Currency:    cfg.CurrencySymbol,
		ShowReceipt: cfg.ShowReceipt,
		Logger:      logger,
		Metrics:     metrics,
	}
	if err := shell.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("checkout shell")
	}

	shutdown(srv, cfg.ShutdownTimeout, logger)
}

func loadRules(path string) (*pricing.Factory, error) {
	defs := catalog.Default()
	if path != "" {
		loaded, err := catalog.Load(path)
		if err != nil {
			return nil, err
		}
		defs = loaded
	}
	return catalog.Build(defs)
}

func shutdown(srv *http.Server, timeout time.Duration, logger zerolog.Logger) {
	health.SetReady(false)
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown metrics server")
	}
}
