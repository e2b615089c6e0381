package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jortega/reviewscout/config"
	"jortega/reviewscout/internal/browser"
	"jortega/reviewscout/internal/scraper"
	"jortega/reviewscout/logger"
	"jortega/reviewscout/services/cache"
	"jortega/reviewscout/services/proxy"
	"jortega/reviewscout/services/publisher"
	"jortega/reviewscout/services/store"
	"jortega/reviewscout/services/worker"

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
		Dur("poll_interval", cfg.JobPollInterval).
		Str("strategy", cfg.ReviewsStrategy).
		Msg("Starting review analysis worker")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	services, err := initializeServices(ctx, &cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Cleanup()

	browserScraper := worker.NewBrowserScraper(
		browser.Config{
			Headless:  cfg.ScraperHeadless,
			UserAgent: cfg.ScraperUserAgent,
		},
		scraper.Config{
			MapsURL:            cfg.MapsURL,
			Timeout:            cfg.ScraperTimeout,
			SearchTimeout:      cfg.SearchTimeout,
			MinClickDelay:      cfg.MinClickDelay,
			MaxClickDelay:      cfg.MaxClickDelay,
			MinKeyDelay:        cfg.MinKeyDelay,
			MaxKeyDelay:        cfg.MaxKeyDelay,
			Strategy:           cfg.DefaultStrategy(),
			ScrollMaxRounds:    cfg.ScrollMaxRounds,
			ScrollStableRounds: cfg.ScrollStableRounds,
		},
		services.Proxies,
	)

	cooldown := cache.NewScrapeCooldown(services.Cache, cfg.ScrapeCooldown)

	// Create and start worker
	w := worker.NewWorker(
		ctx,
		services.Store,
		browserScraper,
		services.Publisher,
		cooldown,
		logger.ForWorker(),
		cfg.JobPollInterval,
		cfg.JobMaxAttempts,
		cfg.MaxReviews,
	)

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting job loop")
		workerDone <- w.Start()
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Store     store.Store
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Proxies   proxy.ProxyManager
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}

	// Initialize cache service
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	if cacheService == nil {
		return nil, fmt.Errorf("failed to create cache service")
	}
	services.Cache = cacheService

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	// Initialize publisher
	redisPublisher := publisher.NewRedisPublisher(
		ctx,
		cfg.RedisAddr,
		cfg.RedisDB,
		cfg.RedisStream,
		cfg.RedisStreamCount,
		cfg.RedisStreamMaxLength,
	)
	if redisPublisher == nil {
		return nil, fmt.Errorf("failed to create redis publisher")
	}
	services.Publisher = redisPublisher

	logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
		cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)

	// Initialize document store
	pgStore, err := store.NewPostgresStore(cfg.PostgresDSN, cfg.APIPageSizeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	services.Store = pgStore

	logger.Info("Connected to Postgres")

	// Proxies are optional; scraping falls back to a direct connection
	if cfg.ProxyEnabled {
		manager := proxy.NewManager()
		if err := manager.UpdateProxies(); err != nil {
			logger.Warn("Failed to initialize proxy pool: %v", err)
		}
		services.Proxies = manager
	}

	return services, nil
}
