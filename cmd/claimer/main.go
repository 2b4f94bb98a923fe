package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/emperorhan/htlc-reward-claimer/internal/admin"
	"github.com/emperorhan/htlc-reward-claimer/internal/alert"
	"github.com/emperorhan/htlc-reward-claimer/internal/chain"
	"github.com/emperorhan/htlc-reward-claimer/internal/chain/evm"
	"github.com/emperorhan/htlc-reward-claimer/internal/config"
	"github.com/emperorhan/htlc-reward-claimer/internal/domain/model"
	"github.com/emperorhan/htlc-reward-claimer/internal/metrics"
	"github.com/emperorhan/htlc-reward-claimer/internal/nonce"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/claimer"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/ingestor"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/reconciler"
	"github.com/emperorhan/htlc-reward-claimer/internal/pipeline/scheduler"
	"github.com/emperorhan/htlc-reward-claimer/internal/queue"
	"github.com/emperorhan/htlc-reward-claimer/internal/store"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/memory"
	"github.com/emperorhan/htlc-reward-claimer/internal/store/postgres"
	redispkg "github.com/emperorhan/htlc-reward-claimer/internal/store/redis"
	"github.com/emperorhan/htlc-reward-claimer/internal/tracing"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	serviceName         = "htlc-reward-claimer"
	dbPoolStatsInterval = 15 * time.Second
	shutdownTimeout     = 5 * time.Second
)

type dbStatsProvider interface {
	Stats() sql.DBStats
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := newLogger(cfg.Log, os.Stdout)
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("claimer exited with error", "error", err)
		closeLog()
		os.Exit(1)
	}
	logger.Info("claimer shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	networkNames := make([]string, 0, len(cfg.Networks))
	for _, n := range cfg.Networks {
		networkNames = append(networkNames, n.Name.String())
	}
	logger.Info("starting "+serviceName,
		"components", strings.Join(cfg.Runtime.Components, ","),
		"networks", strings.Join(networkNames, ","),
		"queue_backend", cfg.Runtime.QueueBackend,
		"watermark_backend", cfg.Runtime.WatermarkBackend,
		"admin_enabled", cfg.Server.AdminEnabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceOpts := tracing.Options{Service: serviceName, Insecure: cfg.Tracing.Insecure, SampleRatio: cfg.Tracing.SampleRatio}
	if cfg.Tracing.Enabled {
		traceOpts.Endpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(ctx, traceOpts)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	db, err := postgres.New(postgres.Config{
		URL:                cfg.DB.URL,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetime:    cfg.DB.ConnMaxLifetime,
		StatementTimeoutMS: cfg.DB.StatementTimeoutMS,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var rdb *redispkg.Client
	if needsRedis(cfg) {
		rdb, err = redispkg.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
	}

	swaps := postgres.NewSwapRepo(db)
	txs := postgres.NewTransactionRepo(db)
	events, claims := newQueues(cfg.Runtime.QueueBackend, rdb)

	var watermarks store.WatermarkStore = postgres.NewWatermarkRepo(db)
	if cfg.Runtime.WatermarkBackend == config.WatermarkBackendRedis {
		watermarks = redispkg.NewWatermarkStore(rdb)
	}

	var nonceStore store.NonceStore = memory.NewNonceStore()
	if rdb != nil {
		nonceStore = redispkg.NewNonceStore(rdb)
	}
	nonces := nonce.New(nonceStore, nonce.Config{
		LockTTL:        cfg.Nonce.LockTTL,
		AcquireTimeout: cfg.Nonce.AcquireTimeout,
	}, logger)

	alerter := alert.New(cfg.Alert.SlackWebhookURL, cfg.Alert.WebhookURL, cfg.Alert.Cooldown, logger)
	registry := pipeline.NewRegistry()
	jobOpts := jobOptions(cfg.Queue)

	var clients map[model.Network]chain.Client
	if cfg.HasComponent(config.ComponentIngestor) || cfg.HasComponent(config.ComponentClaimer) {
		clients, err = dialNetworks(ctx, cfg, logger)
		if err != nil {
			return err
		}
	}

	var runners []func(context.Context) error

	if cfg.HasComponent(config.ComponentIngestor) {
		for _, n := range cfg.Networks {
			ing := ingestor.New(clients[n.Name], evm.NewDecoder(n.Name), watermarks, events,
				ingestor.Config{BlockRange: n.BlockRange, Job: jobOpts}, logger)
			p := pipeline.NewPeriodic(config.ComponentIngestor, n.Name.String(), n.PollingInterval, ing.Tick, logger,
				pipeline.WithHealth(registry.Track(config.ComponentIngestor, n.Name.String())),
				pipeline.WithAlerter(alerter),
			)
			runners = append(runners, p.Run)
		}
	}

	if cfg.HasComponent(config.ComponentReconciler) {
		rec := reconciler.New(swaps, claims, logger)
		w := queue.NewWorker(events, rec.Handle, workerConfig(cfg.Queue, cfg.Queue.EventWorkers), logger,
			queue.WithFinalFailureHook(jobFailedHook(alerter, config.ComponentReconciler, logger)),
		)
		runners = append(runners, w.Run)
	}

	if cfg.HasComponent(config.ComponentScheduler) {
		sched := scheduler.New(swaps, claims, scheduler.Config{
			Window:       cfg.Scheduler.Window,
			BatchSize:    cfg.Scheduler.BatchSize,
			ClaimBuffers: claimBuffers(cfg.Networks),
			Job:          jobOpts,
		}, logger)
		p := pipeline.NewPeriodic(config.ComponentScheduler, "", cfg.Scheduler.Interval, sched.Tick, logger,
			pipeline.WithHealth(registry.Track(config.ComponentScheduler, "")),
			pipeline.WithAlerter(alerter),
		)
		runners = append(runners, p.Run)
	}

	var walletsByNetwork map[model.Network]string
	if cfg.HasComponent(config.ComponentClaimer) {
		walletsByNetwork = walletAddresses(clients)
		c := claimer.New(clients, nonces, txs, alerter, claimer.Config{
			DeferInterval:     cfg.Claim.DeferInterval,
			DefaultGasLimit:   cfg.Claim.DefaultGasLimit,
			MinPriorityFeeWei: cfg.Claim.MinPriorityFeeWei,
		}, logger)
		w := queue.NewWorker(claims, c.Handle, workerConfig(cfg.Queue, cfg.Queue.ClaimWorkers), logger,
			queue.WithFinalFailureHook(c.OnFinalFailure),
		)
		runners = append(runners, w.Run)
	}

	adminServer := admin.NewServer(registry, logger,
		admin.WithSwapLookup(swaps, txs, claims),
		admin.WithNonceReset(nonces, walletsByNetwork),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runHTTPServer(gCtx, cfg.Server.HealthPort, adminServer.Handler(cfg.Server.AdminEnabled), logger)
	})

	for _, r := range runners {
		g.Go(func() error {
			return r(gCtx)
		})
	}

	startDBPoolStatsPump(gCtx, db.DB, dbPoolStatsInterval, logger)

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); !isShutdown(err) {
		return err
	}
	return nil
}

// newLogger writes JSON to out and, when a log file is configured, to a
// rotating file as well.
func newLogger(cfg config.LogConfig, out io.Writer) (*slog.Logger, func()) {
	closeFn := func() {}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(out, rotating)
		closeFn = func() { _ = rotating.Close() }
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)})
	return slog.New(handler).With("service", serviceName), closeFn
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func needsRedis(cfg *config.Config) bool {
	return cfg.Runtime.QueueBackend == config.QueueBackendRedis ||
		cfg.Runtime.WatermarkBackend == config.WatermarkBackendRedis ||
		cfg.HasComponent(config.ComponentClaimer)
}

func newQueues(backend string, rdb *redispkg.Client) (events, claims queue.Queue) {
	if backend == config.QueueBackendRedis {
		return redispkg.NewQueue(rdb, queue.EventsQueue), redispkg.NewQueue(rdb, queue.EligibleRewardQueue)
	}
	return queue.NewMemoryQueue(queue.EventsQueue), queue.NewMemoryQueue(queue.EligibleRewardQueue)
}

func jobOptions(cfg config.QueueConfig) queue.EnqueueOptions {
	return queue.EnqueueOptions{Attempts: cfg.Attempts, Backoff: cfg.Backoff}
}

func workerConfig(cfg config.QueueConfig, concurrency int) queue.WorkerConfig {
	return queue.WorkerConfig{
		Concurrency:  concurrency,
		PollInterval: cfg.PollInterval,
		Lease:        cfg.Lease,
	}
}

func claimBuffers(networks []config.Network) map[model.Network]time.Duration {
	buffers := make(map[model.Network]time.Duration, len(networks))
	for _, n := range networks {
		buffers[n.Name] = n.ClaimBuffer()
	}
	return buffers
}

func dialNetworks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (map[model.Network]chain.Client, error) {
	wallet := ""
	if cfg.HasComponent(config.ComponentClaimer) {
		wallet = cfg.Wallet.PrivateKey
	}
	clients := make(map[model.Network]chain.Client, len(cfg.Networks))
	for _, n := range cfg.Networks {
		c, err := evm.Dial(ctx, evm.Config{
			Network:             n.Name,
			ChainID:             n.ChainID,
			RPCURL:              n.RPCURL,
			Contract:            n.HTLCContract,
			PrivateKey:          wallet,
			FeeModel:            evm.FeeModel(n.FeeModel),
			RateLimitRPS:        n.RateLimitRPS,
			RateLimitBurst:      n.RateLimitBurst,
			ConfirmPollInterval: cfg.Claim.ConfirmPollInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", n.Name, err)
		}
		clients[n.Name] = c
	}
	return clients, nil
}

func walletAddresses(clients map[model.Network]chain.Client) map[model.Network]string {
	wallets := make(map[model.Network]string, len(clients))
	for network, c := range clients {
		wallets[network] = c.WalletAddress()
	}
	return wallets
}

func jobFailedHook(alerter alert.Alerter, component string, logger *slog.Logger) queue.FinalFailureHook {
	return func(ctx context.Context, job *queue.Job, cause error) {
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		err := alerter.Send(ctx, alert.Alert{
			Type:      alert.AlertTypeJobFailed,
			Component: component,
			Title:     fmt.Sprintf("%s job %s failed", component, job.ID),
			Message:   msg,
			Fields: map[string]string{
				"job_id":   job.ID,
				"job_name": job.Name,
				"attempts": fmt.Sprintf("%d", job.Attempts),
			},
		})
		if err != nil {
			logger.Warn("job failure alert not sent", "job_id", job.ID, "error", err)
		}
	}
}

func isShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func collectDBPoolStats(db dbStatsProvider) {
	stats := db.Stats()
	metrics.DBPoolOpen.Set(float64(stats.OpenConnections))
	metrics.DBPoolInUse.Set(float64(stats.InUse))
	metrics.DBPoolIdle.Set(float64(stats.Idle))
	metrics.DBPoolWaitCount.Set(float64(stats.WaitCount))
}

func startDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, logger *slog.Logger) {
	if db == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		collectDBPoolStats(db)
		for {
			select {
			case <-ctx.Done():
				logger.Debug("db pool stats pump stopped")
				return
			case <-ticker.C:
				collectDBPoolStats(db)
			}
		}
	}()
}

func runHTTPServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("http server shutdown error", "error", err)
		}
	}()

	logger.Info("http server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
