package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"resumebox/internal/api"
	"resumebox/internal/config"
	"resumebox/internal/database"
	"resumebox/internal/enrichment"
	"resumebox/internal/extraction"
	"resumebox/internal/notify"
	"resumebox/internal/resume"
	"resumebox/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

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

	services := api.Services{
		Uploader:  resume.NewUploader(db, store, logger, cfg.Storage.MaxUploadBytes, cfg.Storage.MaxActiveResumes, cfg.Clamd.Addr),
		Selector:  resume.NewSelector(db, cache, logger),
		Deleter:   resume.NewDeleter(db, store, cache, logger),
		Processor: processor,
		Results:   results,
		Cache:     cache,
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, db, redisClient, logger, services, cfg.API.Origins())

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
