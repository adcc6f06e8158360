package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/examwatcher/config"
	"sjsage522/examwatcher/internal"
	"sjsage522/examwatcher/internal/alert"
	"sjsage522/examwatcher/internal/bot"
	"sjsage522/examwatcher/internal/crawler"
	"sjsage522/examwatcher/internal/export"
	"sjsage522/examwatcher/internal/notifier"
	"sjsage522/examwatcher/logger"
	"sjsage522/examwatcher/services/cache"
	"sjsage522/examwatcher/services/metrics"
	"sjsage522/examwatcher/services/publisher"
	"sjsage522/examwatcher/services/telegram"
	"sjsage522/examwatcher/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("recipients", len(cfg.ChatIDs)).
		Int("page_range_end", cfg.PageRangeEnd).
		Dur("schedule_interval", cfg.ScheduleInterval).
		Dur("quiet_timeout", cfg.QuietTimeout).
		Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := initializeServices(ctx, cfg)
	defer deps.Cleanup()

	var sinks []notifier.Sink
	if deps.Publisher != nil {
		sinks = append(sinks, deps.Publisher)
	}
	broadcaster := notifier.NewNotifier(deps.Telegram, cfg.MessageLimit, deps.Metrics, sinks...)
	replier := notifier.NewNotifier(deps.Telegram, cfg.MessageLimit, deps.Metrics)

	fetcher := crawler.NewPageFetcher(cfg.BaseURL, cfg.RequestTimeout, deps.Cache, cfg.BlockTime)
	run := crawler.NewCrawlRun(fetcher, crawler.NewTableExtractor(crawler.DefaultSelectors), cfg.PageRangeEnd, cfg.RequestDelay, deps.Metrics)

	opts := worker.Options{
		Crawler:         run,
		Alerter:         alert.NewEngine(time.Now(), cfg.QuietTimeout, cfg.QuietRepeat),
		Notifier:        broadcaster,
		Recipients:      cfg.ChatIDs,
		Interval:        cfg.ScheduleInterval,
		RunOnStart:      cfg.RunOnStart,
		ManualBroadcast: cfg.ManualBroadcast,
		Metrics:         deps.Metrics,
	}
	if cfg.ExportDir != "" {
		opts.Exporter = export.NewExporter(cfg.ExportDir, cfg.ExportFormat)
	}
	w := worker.NewWorker(ctx, opts)

	b := bot.NewBot(bot.Options{
		Updates:      deps.Telegram,
		Replier:      replier,
		Worker:       w,
		IsAuthorized: cfg.IsRecipient,
	})
	go func() {
		if err := b.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Bot exited with error")
		}
	}()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := deps.Metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	log.Info().Msg("Starting exam watcher")
	if err := w.Start(); err != nil {
		log.Fatal().Err(err).Msg("Worker exited with error")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// initializeServices initializes all required services.
// Optional backends that cannot be reached are logged and left out.
func initializeServices(ctx context.Context, cfg *config.Config) *internal.Dependencies {
	deps := &internal.Dependencies{
		Metrics:  metrics.NewMetrics(),
		Telegram: telegram.NewClient(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.SendRate),
	}

	deps.Cache = cache.NewMemoryCache()
	if cfg.MemcacheAddr != "" {
		mc := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := mc.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).Str("addr", cfg.MemcacheAddr).Msg("Memcache unavailable, using in-process cache")
		} else {
			deps.Cache = mc
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		rp := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream, cfg.RedisStreamMaxLength)
		if err := rp.Ping(ctx); err != nil {
			logger.ForPublisher().Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, alerts will not be mirrored")
			rp.Close()
		} else {
			deps.Publisher = rp
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return deps
}
