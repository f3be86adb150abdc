package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bilgisen/rtfire/internal/ai"
	"github.com/bilgisen/rtfire/internal/api"
	"github.com/bilgisen/rtfire/internal/cache"
	"github.com/bilgisen/rtfire/internal/config"
	"github.com/bilgisen/rtfire/internal/feed"
	"github.com/bilgisen/rtfire/internal/heroimage"
	"github.com/bilgisen/rtfire/internal/logger"
	"github.com/bilgisen/rtfire/internal/media"
	"github.com/bilgisen/rtfire/internal/middleware"
	"github.com/bilgisen/rtfire/internal/models"
	"github.com/bilgisen/rtfire/internal/publish"
	"github.com/bilgisen/rtfire/internal/schedule"
	"github.com/bilgisen/rtfire/internal/scraper"
	"github.com/bilgisen/rtfire/internal/settings"
	"github.com/bilgisen/rtfire/internal/storage"
	"github.com/bilgisen/rtfire/internal/telegram"
)

var version = "dev"

func main() {
	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("version", version).Str("env", cfg.Env).Msg("Starting application...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs both state and the processed set when configured
	var redisClient *redis.Client
	if cfg.StoreBackend == "redis" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer func() {
			log.Info().Msg("Closing Redis client...")
			if err := redisClient.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing Redis client")
			}
		}()
	}

	var kv storage.KV
	var processed cache.Processed
	switch cfg.StoreBackend {
	case "redis":
		kv = storage.NewRedisKV(redisClient, cfg.RedisPrefix)
		processed = cache.NewRedisClient(redisClient, cfg.RedisPrefix)
	case "file":
		fkv, err := storage.NewFileKV(cfg.StorePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open state directory")
		}
		kv = fkv
		processed = cache.NewMemoryCache()
	default:
		kv = storage.NewMemoryKV()
		processed = cache.NewMemoryCache()
	}
	store := storage.NewStorage(kv)

	// Operator settings: persisted values win over env and the seed file
	seed, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load seed sources")
	}
	st := settings.New(store)
	envCreds := models.Credentials{BotToken: cfg.TelegramToken, ChatID: cfg.TelegramChatID}
	if err := st.Load(ctx, envCreds, seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to load settings")
	}

	// Publishing
	tg := telegram.NewClient(cfg.TelegramAPIURL, cfg.PublishTimeout)
	images := media.NewFetcher(cfg.PublishTimeout, cfg.ImageFetchLimit)
	pipeline := publish.NewPipeline(tg, images, cfg.PublishTimeout)

	manager := schedule.NewManager(store, pipeline, st, schedule.Options{
		Lead:    cfg.FirstSlotLead,
		Spacing: cfg.SlotSpacing,
		Match:   schedule.MatchMode(cfg.MatchMode),
	})
	if err := manager.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to load articles")
	}

	runner := schedule.NewRunner(schedule.ManagerTicker(manager), cfg.TickInterval)
	runner.Start(ctx)
	defer runner.Stop()

	// Scraping
	chrome := scraper.NewChrome(scraper.ChromeOptions{
		ExecPath:    cfg.ChromePath,
		NavTimeout:  cfg.NavTimeout,
		SettleDelay: cfg.SettleDelay,
		ImageWait:   cfg.ImageWait,
	})
	defer chrome.Close()
	pages := scraper.New(chrome, scraper.Options{
		Rules: heroimage.Rules{
			MinWidth:      cfg.HeroMinWidth,
			MinHeight:     cfg.HeroMinHeight,
			ProximityBand: cfg.HeroProximityBand,
			Denylist:      cfg.HeroDenylist,
		},
		MaxRunes: cfg.MaxContentRune,
	}).WithFetcher(images)

	deps := api.Deps{
		Manager:  manager,
		Settings: st,
		Scraper:  pages,
		Sources:  feed.NewProcessor(feed.NewFetcher(cfg.HTTPTimeout), processed, cfg.CacheTTL),
		Telegram: tg,
		Timeout:  cfg.HTTPTimeout,
		Version:  version,
	}

	// AI providers are optional; their routes degrade without them
	if cfg.GeminiAPIKey != "" {
		deps.Discoverer = ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AITimeout)
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, discovery disabled")
	}

	switch cfg.RewriteProvider {
	case "groq":
		if cfg.GroqAPIKey != "" {
			deps.Rewriter = ai.NewGroqRewriter(cfg.GroqAPIKey, cfg.GroqModel, cfg.AIMaxTokens, cfg.AITimeout)
		}
	case "gemini":
		if cfg.GeminiAPIKey != "" {
			rw, err := ai.NewGeminiRewriter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AIMaxTokens)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create Gemini rewriter")
			}
			defer rw.Close()
			deps.Rewriter = rw
		}
	}
	if deps.Rewriter == nil {
		log.Warn().Str("provider", cfg.RewriteProvider).Msg("Rewrite provider not configured, articles pass through unchanged")
	}

	if cfg.R2Enabled() {
		mirror, err := media.NewMirror(ctx, media.MirrorConfig{
			Endpoint:  cfg.R2Endpoint,
			AccountID: cfg.R2AccountID,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to configure image mirror")
		}
		deps.Mirror = mirror
	}

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})
	api.SetupRoutes(app, api.NewHandlers(deps), cfg.AdminAPIKey)

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
