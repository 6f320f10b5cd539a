// streamd runs the stream connection manager as a daemon: it opens every
// configured stream plus the optional market-data stream, journals status
// transitions, republishes events to NATS and serves ops endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/tradestream/internal/auth"
	"github.com/rickgao/tradestream/internal/bridge"
	"github.com/rickgao/tradestream/internal/config"
	"github.com/rickgao/tradestream/internal/connection"
	"github.com/rickgao/tradestream/internal/journal"
	"github.com/rickgao/tradestream/internal/logging"
	"github.com/rickgao/tradestream/internal/marketdata"
	"github.com/rickgao/tradestream/internal/metrics"
	"github.com/rickgao/tradestream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/streamd.local.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.New(cfg.Logging, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting streamd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("streamd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("streamd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	collector := metrics.NewCollector()
	recorders := []connection.Recorder{collector}

	// Journal
	jrnl, err := journal.Open(ctx, cfg.Journal, cfg.Instance.ID, logger.With("component", "journal"))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if jrnl != nil {
		if err := jrnl.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := jrnl.Stop(stopCtx); err != nil {
				logger.Warn("journal stop failed", "error", err)
			}
		}()
		recorders = append(recorders, jrnl)
		logger.Info("journal enabled", "driver", cfg.Journal.Driver)
	}

	// NATS bridge
	if cfg.Bridge.NATSURL != "" {
		nc, err := bridge.Connect(cfg.Bridge.NATSURL, "streamd-"+cfg.Instance.ID, logger)
		if err != nil {
			return err
		}
		defer drainNATS(nc, logger)
		recorders = append(recorders, bridge.New(nc, bridge.Config{
			Prefix:          cfg.Bridge.SubjectPrefix,
			Instance:        cfg.Instance.ID,
			PublishMessages: cfg.Bridge.PublishMessages,
		}, logger))
		logger.Info("nats bridge enabled", "url", cfg.Bridge.NATSURL, "prefix", cfg.Bridge.SubjectPrefix)
	}

	manager := connection.NewManager(logger, connection.WithRecorder(recorders...))
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		if err := manager.Close(closeCtx); err != nil {
			logger.Warn("manager close timed out", "error", err)
		}
	}()

	// Generic streams
	for _, sc := range cfg.Streams {
		if err := connectStream(manager, sc); err != nil {
			return fmt.Errorf("connect stream %s: %w", sc.ID, err)
		}
		logger.Info("stream configured", "stream", sc.ID, "url", sc.URL)
	}

	// Market data
	if cfg.MarketData.Enabled {
		if err := connectMarketData(manager, cfg, logger); err != nil {
			return fmt.Errorf("connect market data: %w", err)
		}
	}

	var history journal.Reader
	if jrnl != nil {
		if r, ok := jrnl.Reader(); ok {
			history = r
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newOpsHandler(manager, history, collector, cfg.Metrics.Path, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting ops server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	logger.Info("streamd running",
		"streams", len(manager.Connections()),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	return g.Wait()
}

func connectMarketData(manager *connection.Manager, cfg *config.Config, logger *slog.Logger) error {
	md := cfg.MarketData
	feed, err := marketdata.ParseFeed(md.Feed)
	if err != nil {
		return err
	}

	key, secret := md.Key, md.Secret
	if key == "" && secret == "" {
		var envFiles []string
		if md.EnvFile != "" {
			envFiles = append(envFiles, md.EnvFile)
		}
		creds, err := auth.FromEnv(auth.EnvKeyID, auth.EnvSecret, envFiles...)
		switch {
		case err == nil:
			key, secret = creds.KeyID, creds.Secret
			logger.Info("market data credentials loaded from environment", "credentials", creds)
		case errors.Is(err, auth.ErrMissingCredentials):
			logger.Warn("market data credentials not set, connecting unauthenticated")
		default:
			return err
		}
	}

	client := marketdata.NewClient(manager, marketdata.ClientConfig{
		Key:     key,
		Secret:  secret,
		BaseURL: md.BaseURL,
		Stream:  timing(cfg.Defaults),
	}, logger.With("component", "marketdata"))

	client.OnError(md.StreamID, func(pe *marketdata.ProviderError) {
		logger.Warn("market data provider error", "stream", md.StreamID, "code", pe.Code, "msg", pe.Msg)
	})

	if err := client.Connect(md.StreamID, feed); err != nil {
		return err
	}
	return client.Subscribe(md.StreamID, topics(md.TopicsConfig))
}

func drainNATS(nc *nats.Conn, logger *slog.Logger) {
	if err := nc.Drain(); err != nil {
		logger.Warn("nats drain failed", "error", err)
		nc.Close()
	}
}
