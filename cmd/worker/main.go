package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"resumebox/internal/config"
	"resumebox/internal/database"
	"resumebox/internal/enrichment"
	"resumebox/internal/extraction"
	"resumebox/internal/notify"
	"resumebox/internal/resume"
	"resumebox/internal/storage"
	"resumebox/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Println("database connection ready for worker")

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		log.Fatalf("init document store: %v", err)
	}
	log.Printf("document store ready, upload_root=%s", store.UploadRoot())

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	var analyzer enrichment.Analyzer
	if cfg.AI.APIKey != "" {
		geminiAnalyzer, err := enrichment.NewGeminiAnalyzer(context.Background(), cfg.AI)
		if err != nil {
			logger.Error("init resume analyzer failed, enrichment disabled", slog.Any("error", err))
		} else {
			analyzer = geminiAnalyzer
			defer geminiAnalyzer.Close()
		}
	} else {
		logger.Info("no AI api key configured, enrichment disabled")
	}

	renderer := extraction.NewRodRenderer(cfg.Extraction, logger)
	engine := extraction.NewPDFEngine(renderer, logger)
	notifier := notify.NewPublisher(redisClient)

	queue := resume.NewQueue(db)
	cache := resume.NewStateCache(db)
	results := resume.NewResults(db, analyzer, logger, cfg.AI.MinTextLen, cfg.AI.Timeout)
	processor := resume.NewProcessor(db, store, engine, results, cache, queue, notifier, logger)

	w := worker.New(queue, processor, logger, cfg.Worker.Interval, cfg.Worker.BatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker service started",
		slog.Duration("interval", cfg.Worker.Interval),
		slog.Int("batch_size", cfg.Worker.BatchSize),
	)
	if err := w.Run(ctx); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
	}
}
