package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"liquidator/chain"
	"liquidator/config"
	"liquidator/engine"
	"liquidator/gateway"
	"liquidator/graph"
	"liquidator/observability/logging"
	telemetry "liquidator/observability/otel"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	reconcileEvery := flag.Duration("reconcile-every", 0, "Run node reconciliation on this interval (0 disables it)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Service.Name, logging.ParseLevel(cfg.Service.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName: cfg.Service.Name,
			Environment: cfg.Telemetry.Environment,
			Endpoint:    cfg.Telemetry.Endpoint,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			Traces:      cfg.Telemetry.Traces,
			Metrics:     cfg.Telemetry.Metrics,
		})
		if err != nil {
			logger.Error("failed to start telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Error("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	client := graph.NewClient(cfg.Graph.URL, cfg.GraphTimeout(), cfg.Graph.Retries)
	poller := graph.NewPoller(client, cfg.PollInterval(), logger.With("component", "graph"))
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("poller stopped", slog.Any("error", err))
		}
	}()

	if *reconcileEvery > 0 {
		if strings.TrimSpace(cfg.Node.RPCURL) == "" || strings.TrimSpace(cfg.Node.PortfoliosContract) == "" {
			logger.Error("reconciliation requires Node.RPCURL and Node.PortfoliosContract")
			os.Exit(1)
		}
		node, err := chain.Dial(ctx, cfg.Node.RPCURL, common.HexToAddress(cfg.Node.PortfoliosContract))
		if err != nil {
			logger.Error("failed to dial node", slog.Any("error", err))
			os.Exit(1)
		}
		defer node.Close()

		reconciler := chain.NewReconciler(node, cfg.Node.ReconcileRateLimit, logger.With("component", "reconcile"))
		go runReconcileLoop(ctx, poller, reconciler, cfg.Scan.Workers, *reconcileEvery, logger)
	}

	server := gateway.NewServer(poller, cfg.Scan.Workers, logger.With("component", "gateway"))
	limiter := gateway.NewRateLimiter(cfg.Gateway.RateLimitRPS, cfg.Gateway.RateLimitBurst)
	httpServer := &http.Server{
		Addr:              cfg.Gateway.ListenAddress,
		Handler:           otelhttp.NewHandler(server.Router(limiter), "gateway"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gateway shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("gateway listening", "address", cfg.Gateway.ListenAddress)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("gateway failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// runReconcileLoop periodically cross-checks the local liquidatable scan
// against the node's free collateral view.
func runReconcileLoop(
	ctx context.Context,
	poller *graph.Poller,
	reconciler *chain.Reconciler,
	workers int,
	interval time.Duration,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		store := poller.Store()
		if store == nil {
			continue
		}

		results, failures := engine.ScanLiquidatable(store.Snapshot, store.Accounts, workers)
		if len(failures) > 0 {
			logger.Warn("scan skipped accounts during reconciliation", "count", len(failures))
		}
		flagged := make([]common.Address, 0, len(results))
		for _, r := range results {
			flagged = append(flagged, r.Address)
		}
		if _, err := reconciler.Reconcile(ctx, store.Accounts, flagged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reconciliation failed", slog.Any("error", err))
		}
	}
}
