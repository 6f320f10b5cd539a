// streamtest opens a single stream and prints what arrives to the console.
//
// Market data (credentials from APCA_API_KEY_ID / APCA_API_SECRET_KEY or a
// .env file):
//
//	go run ./cmd/streamtest --feed iex --trades AAPL --bars SPY,QQQ --indicators
//
// Any other websocket endpoint, printing raw frames:
//
//	go run ./cmd/streamtest --url wss://example/ops --protocol v1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/tradestream/internal/auth"
	"github.com/rickgao/tradestream/internal/connection"
	"github.com/rickgao/tradestream/internal/marketdata"
)

const streamID = "streamtest"

func main() {
	url := flag.String("url", "", "generic websocket URL (overrides --feed)")
	protocol := flag.String("protocol", "", "comma-separated sub-protocols for --url")
	feedName := flag.String("feed", "test", "market data feed: iex, sip, crypto or test")
	trades := flag.String("trades", "", "comma-separated trade symbols")
	quotes := flag.String("quotes", "", "comma-separated quote symbols")
	bars := flag.String("bars", "", "comma-separated bar symbols")
	envFile := flag.String("env-file", ".env", "optional .env file with credentials")
	indicators := flag.Bool("indicators", false, "print SMA, EMA, VWAP and Bollinger bands over bar closes")
	period := flag.Int("period", 20, "indicator period in bars")
	verbose := flag.Bool("verbose", false, "debug logging and raw frames")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	manager := connection.NewManager(logger)
	manager.OnStatus(streamID, func(ev connection.StatusEvent) {
		printStatus(ev)
		if ev.Terminal {
			cancel()
		}
	})

	t := connection.Topics{Trades: split(*trades), Quotes: split(*quotes), Bars: split(*bars)}

	var err error
	if *url != "" {
		err = runGeneric(manager, *url, split(*protocol), t)
	} else {
		err = runMarketData(manager, *feedName, *envFile, t, *indicators, *period, *verbose, logger)
	}
	if err != nil {
		logger.Error("failed to start stream", "error", err)
		os.Exit(1)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if snap, ok := manager.Connection(streamID); ok {
					logger.Info("stats",
						"status", snap.Status,
						"messages", snap.MessageCount,
						"latency_ms", snap.LatencyMs,
						"reconnect_attempts", snap.ReconnectAttempts,
					)
				}
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Info("shutting down...")
	manager.Close(shutdownCtx)
	logger.Info("shutdown complete")
}

func runGeneric(manager *connection.Manager, url string, protocols []string, t connection.Topics) error {
	manager.OnMessage(streamID, func(msg connection.Message) {
		fmt.Printf("[MSG] seq=%d latency=%dms raw=%v %s\n", msg.Seq, msg.LatencyMs, msg.Raw, msg.Data)
	})
	if err := manager.Connect(streamID, connection.StreamConfig{URL: url, Protocols: protocols}); err != nil {
		return err
	}
	return manager.Subscribe(streamID, t)
}

func runMarketData(manager *connection.Manager, feedName, envFile string, t connection.Topics, withIndicators bool, period int, verbose bool, logger *slog.Logger) error {
	feed, err := marketdata.ParseFeed(feedName)
	if err != nil {
		return err
	}

	creds, err := auth.FromEnv(auth.EnvKeyID, auth.EnvSecret, envFile)
	if err != nil {
		if !errors.Is(err, auth.ErrMissingCredentials) {
			return err
		}
		logger.Warn("credentials not set, connecting unauthenticated")
		creds = &auth.Credentials{}
	} else {
		logger.Info("using API credentials", "credentials", creds)
	}

	if feed == marketdata.FeedTest && t.Empty() {
		t.Trades = []string{marketdata.TestSymbol}
		t.Quotes = []string{marketdata.TestSymbol}
		t.Bars = []string{marketdata.TestSymbol}
	}

	client := marketdata.NewClient(manager, marketdata.ClientConfig{
		Key:    creds.KeyID,
		Secret: creds.Secret,
	}, logger)

	client.OnTrade(streamID, func(tr marketdata.Trade) {
		fmt.Printf("[TRADE] %s price=%s size=%s exchange=%s id=%d\n",
			tr.Symbol, tr.Price, tr.Size, tr.Exchange, tr.ID)
	})
	client.OnQuote(streamID, func(q marketdata.Quote) {
		fmt.Printf("[QUOTE] %s bid=%s x %s ask=%s x %s spread=%s\n",
			q.Symbol, q.BidPrice, q.BidSize, q.AskPrice, q.AskSize, q.Spread())
	})

	var studies *studySet
	if withIndicators {
		studies, err = newStudySet(period, decimal.NewFromInt(2))
		if err != nil {
			return err
		}
	}
	client.OnBar(streamID, func(b marketdata.Bar) {
		fmt.Printf("[BAR] %s o=%s h=%s l=%s c=%s v=%s\n",
			b.Symbol, b.Open, b.High, b.Low, b.Close, b.Volume)
		if studies != nil {
			fmt.Printf("[IND] %s %s\n", b.Symbol, studies.update(b))
		}
	})
	client.OnError(streamID, func(pe *marketdata.ProviderError) {
		fmt.Printf("[ERROR] code=%d msg=%s\n", pe.Code, pe.Msg)
	})
	if verbose {
		manager.OnMessage(streamID, func(msg connection.Message) {
			fmt.Printf("[RAW] %s\n", msg.Data)
		})
	}

	if err := client.Connect(streamID, feed); err != nil {
		return err
	}
	return client.Subscribe(streamID, t)
}

func printStatus(ev connection.StatusEvent) {
	line := fmt.Sprintf("[STATUS] %s", ev.Status)
	if ev.Authenticated {
		line += " authenticated"
	}
	if ev.Code != 0 {
		line += fmt.Sprintf(" code=%d", ev.Code)
	}
	if ev.RetryIn > 0 {
		line += fmt.Sprintf(" attempt=%d retry_in=%s", ev.Attempt, ev.RetryIn)
	}
	if ev.Err != nil {
		line += fmt.Sprintf(" error=%q", ev.Err)
	}
	if ev.Terminal {
		line += " terminal"
	}
	fmt.Println(line)
}

func split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
