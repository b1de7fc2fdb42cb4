// Command dlobd runs the DLOB as a long-lived process: it loads bootstrap
// config, starts the DLOB event loop, the ingest TCP server, and a
// Prometheus metrics endpoint, and supervises all three together.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fenrir-dlob/dlob/internal/config"
	"github.com/fenrir-dlob/dlob/internal/dlob"
	"github.com/fenrir-dlob/dlob/internal/ingest"
)

func main() {
	configPath := flag.String("config", "configs/dlobd.yaml", "path to dlobd config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	configureLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	book := dlob.New()
	for _, m := range cfg.Markets {
		marketID, err := m.MarketId()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid bootstrap market")
		}
		book.BootstrapMarket(marketID, m.TickSize)
		log.Info().Stringer("market", marketID).Uint64("tickSize", m.TickSize).Msg("bootstrapped market")
	}

	reg := prometheus.NewRegistry()
	metrics := dlob.NewMetrics(reg)
	book.SetMetrics(metrics)

	server := ingest.New(cfg.Ingest.Address, cfg.Ingest.Port, book.Notifier(), cfg.Ingest.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return book.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return runMetricsServer(gctx, cfg.Metrics.Address, cfg.Metrics.Port, reg) })
	g.Go(func() error { return runReaderWarmup(gctx, book, cfg.Markets) })

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		log.Error().Err(err).Msg("dlobd exiting with error")
		os.Exit(1)
	}
	log.Info().Msg("dlobd shut down cleanly")
}

func configureLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func runMetricsServer(ctx context.Context, addr string, port int, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: hostPort(addr, port), Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// runReaderWarmup continuously exercises GetL2Snapshot/GetL3Snapshot for
// every bootstrapped market through a bounded goroutine pool. This keeps
// the snapshot pointers warm for monitoring and exercises the lock-free
// read path continuously in production.
func runReaderWarmup(ctx context.Context, book *dlob.DLOB, markets []config.MarketConfig) error {
	pool, err := ants.NewPool(8)
	if err != nil {
		return err
	}
	defer pool.Release()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, m := range markets {
				marketID, err := m.MarketId()
				if err != nil {
					continue
				}
				_ = pool.Submit(func() {
					book.GetL2Snapshot(marketID)
					book.GetL3Snapshot(marketID)
				})
			}
		}
	}
}

func hostPort(addr string, port int) string {
	return fmt.Sprintf("%s:%d", addr, port)
}
