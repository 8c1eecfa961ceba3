package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/okian/debtshare/internal/adapters/chain"
	"github.com/okian/debtshare/internal/adapters/subgraph"
	app "github.com/okian/debtshare/internal/app"
	"github.com/okian/debtshare/internal/config"
	"github.com/okian/debtshare/internal/domain/debtshare"
	"github.com/okian/debtshare/internal/domain/model"
	"github.com/okian/debtshare/pkg/logger"
	"github.com/okian/debtshare/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP timeouts for the optional metrics listener and indexer requests.
const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	indexerTimeout    = 60 * time.Second
)

func main() {
	os.Exit(realMain())
}

// realMain runs the CLI and returns the process exit code once every deferred
// cleanup has run.
func realMain() int {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logging: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(ctx, cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				loggerInstance.Error(ctx, "metrics server shutdown failed", logger.Error(err))
			}
		}()
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		loggerInstance.Error(ctx, "failed to dial rpc", logger.String("rpc_url", cfg.RPCURL), logger.Error(err))
		return 1
	}
	defer client.Close()

	if err := run(ctx, cfg, client, os.Stdout); err != nil {
		loggerInstance.Error(ctx, "scoring failed", logger.Error(err))
		return 1
	}
	return 0
}

// run scores one invocation described by cfg and writes the score map as JSON to out.
func run(ctx context.Context, cfg *config.Config, caller chain.ContractCaller, out io.Writer) error {
	strategy, err := newStrategy(cfg, caller, &http.Client{Timeout: indexerTimeout})
	if err != nil {
		return err
	}

	scores, err := strategy.Score(ctx, app.Invocation{
		Addresses: cfg.FilterAddresses(),
		Snapshot:  cfg.SnapshotBlock(),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scores); err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	return nil
}

// newStrategy wires the live primary source, the configured secondary figures
// and both indexer clients.
func newStrategy(cfg *config.Config, caller chain.ContractCaller, hc *http.Client) (*app.Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	entryL2, err := cfg.LedgerEntryL2()
	if err != nil {
		return nil, err
	}

	primaryDebt := chain.NewContractSource(caller, map[model.Chain]chain.Contracts{
		model.Primary: {
			DebtCache:      common.HexToAddress(cfg.DebtCacheAddress),
			SynthetixState: common.HexToAddress(cfg.SynthetixStateAddress),
		},
	})

	return app.New(
		app.WithPrimaryDebt(primaryDebt),
		app.WithSecondaryFigures(cfg.TotalL2Debt, entryL2, cfg.L2BlockNumber),
		app.WithPrimaryHolders(subgraph.NewClient(cfg.L1SubgraphURL, model.Primary,
			subgraph.WithHTTPClient(hc), subgraph.WithPageSize(cfg.PageSize))),
		app.WithSecondaryHolders(subgraph.NewClient(cfg.L2SubgraphURL, model.Secondary,
			subgraph.WithHTTPClient(hc), subgraph.WithPageSize(cfg.PageSize))),
		app.WithCRatioAdjustment(cfg.L2CRatioAdjustment),
		app.WithCalculator(debtshare.NewCalculator(
			debtshare.WithOwnershipDecimals(int32(cfg.OwnershipDecimals)), //nolint:gosec // small configured scale
			debtshare.WithQuadratic(cfg.Quadratic),
		)),
	), nil
}

// serveMetrics exposes the custom registry on addr until shutdown.
func serveMetrics(ctx context.Context, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		logger.Get().Info(ctx, "serving metrics", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Get().Error(ctx, "metrics server failed", logger.Error(fmt.Errorf("%w: %w", metrics.ErrServe, err)))
		}
	}()
	return srv
}
