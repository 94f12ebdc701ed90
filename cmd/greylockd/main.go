// Command greylockd runs the Greylock search service: it loads config,
// opens the two pebble stores, and serves the HTTP API of SPEC_FULL §13.
// Grounded on the teacher's service/cmd/progressdb/main.go wiring order:
// .env, config, logger, storage, app run, signal-driven shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adhocore/gronx"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"github.com/Ozhiganov/greylock/internal/config"
	"github.com/Ozhiganov/greylock/internal/httpapi"
	"github.com/Ozhiganov/greylock/internal/indexer"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/logger"
	"github.com/Ozhiganov/greylock/internal/metadata"
	"github.com/Ozhiganov/greylock/internal/retriever"
	"github.com/Ozhiganov/greylock/internal/worker"
)

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", "greylock.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfigFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.InitWithLevel(cfg.Logging.Level)
	defer logger.Sync()

	logger.Info("config_loaded", "addr", cfg.Addr(), "docs_db_path", cfg.Server.DocsDBPath, "indexes_db_path", cfg.Server.IndexesDBPath)

	engine, err := kvengine.Open(kvengine.Options{
		DocsPath:    cfg.Server.DocsDBPath,
		IndexesPath: cfg.Server.IndexesDBPath,
		Mode:        kvengine.ReadWrite,
		CacheBytes:  cfg.Server.BlockCache.Int64(),
	})
	if err != nil {
		logger.Error("engine_open_failed", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	meta, err := metadata.Open(engine)
	if err != nil {
		logger.Error("metadata_open_failed", "error", err)
		os.Exit(1)
	}
	meta.StartTimer(cfg.Metadata.FlushInterval.Duration())
	defer meta.Stop()

	ix := indexer.New(engine, meta, indexer.Options{
		TokensShardSize:        cfg.Index.TokensShardSize,
		NgramIndexSize:         cfg.Index.NgramIndexSize,
		SkipIfDocumentIDExists: cfg.Index.DedupOnID,
	})

	pool := worker.New(ix, worker.Options{
		Count:         cfg.Worker.Count,
		QueueCapacity: cfg.Worker.QueueCapacity,
		BatchSize:     cfg.Worker.BatchSize,
		FlushInterval: cfg.Worker.FlushInterval.Duration(),
	})
	pool.Start()
	defer pool.Stop()

	ret := retriever.New(engine)

	server := httpapi.New(engine, pool, ret, httpapi.Options{
		DefaultMaxNumber: cfg.Retrieval.DefaultMaxNumber,
		MaxMaxNumber:     cfg.Retrieval.MaxMaxNumber,
	})

	fastServer := &fasthttp.Server{
		Handler: server.Handler(),
		Name:    "greylockd",
	}

	stopCompaction := startCompactionScheduler(engine, cfg.Compaction)
	defer stopCompaction()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr())
		errCh <- fastServer.ListenAndServe(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal_received")
	case err := <-errCh:
		if err != nil {
			logger.Error("listen_failed", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()
	if err := fastServer.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
}

// startCompactionScheduler launches the cron-driven background compaction
// job described in SPEC_FULL §12, in addition to the standalone CLI.
// Grounded on the teacher's service/internal/retention/retention.go
// scheduleLoop: gronx.NextTickAfter computes the next due time, the
// goroutine sleeps until then, and re-computes after each run.
func startCompactionScheduler(engine *kvengine.Engine, cfg config.CompactionConfig) func() {
	if !cfg.Enabled {
		return func() {}
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			next, err := gronx.NextTickAfter(cfg.Cron, time.Now(), false)
			if err != nil {
				logger.Error("compaction_nexttick_failed", "cron", cfg.Cron, "error", err)
				select {
				case <-time.After(30 * time.Second):
					continue
				case <-stop:
					return
				}
			}
			select {
			case <-time.After(time.Until(next)):
				logger.Info("scheduled_compaction_starting")
				start := time.Now()
				if err := engine.Compact(nil, nil); err != nil {
					logger.Error("scheduled_compaction_failed", "error", err)
					continue
				}
				logger.Info("scheduled_compaction_done", "elapsed", time.Since(start).String())
			case <-stop:
				return
			}
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}
