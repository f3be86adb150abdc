package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// State backend: "redis", "file" or "memory"
	StoreBackend string `json:"store_backend"`
	StorePath    string `json:"store_path"`

	// Redis configuration
	RedisURL    string        `json:"redis_url"`
	RedisPrefix string        `json:"redis_prefix"`
	CacheTTL    time.Duration `json:"cache_ttl"`

	// CloudFlare R2 mirror for scraped hero images (optional)
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"r2_access_key"`
	R2SecretKey string `json:"r2_secret_key"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`

	// Discovery (Gemini REST with search grounding)
	GeminiAPIKey string `json:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model"`

	// Rewrite provider: "groq" or "gemini"
	RewriteProvider string        `json:"rewrite_provider"`
	GroqAPIKey      string        `json:"groq_api_key"`
	GroqModel       string        `json:"groq_model"`
	AITimeout       time.Duration `json:"ai_timeout"`
	AIMaxTokens     int           `json:"ai_max_tokens"`

	// Telegram destination; the operator may replace these at runtime
	TelegramToken   string        `json:"telegram_token"`
	TelegramChatID  string        `json:"telegram_chat_id"`
	TelegramAPIURL  string        `json:"telegram_api_url"`
	PublishTimeout  time.Duration `json:"publish_timeout"`
	ImageFetchLimit int64         `json:"image_fetch_limit"`

	// Scheduler
	TickInterval  time.Duration `json:"tick_interval"`
	SlotSpacing   time.Duration `json:"slot_spacing"`
	FirstSlotLead time.Duration `json:"first_slot_lead"`
	MatchMode     string        `json:"match_mode"`

	// Headless browser
	ChromePath     string        `json:"chrome_path"`
	NavTimeout     time.Duration `json:"nav_timeout"`
	SettleDelay    time.Duration `json:"settle_delay"`
	ImageWait      time.Duration `json:"image_wait"`
	MaxContentRune int           `json:"max_content_runes"`

	// Hero image heuristic
	HeroMinWidth      float64  `json:"hero_min_width"`
	HeroMinHeight     float64  `json:"hero_min_height"`
	HeroProximityBand float64  `json:"hero_proximity_band"`
	HeroDenylist      []string `json:"hero_denylist"`

	// Sources
	SourcesFile string `json:"sources_file"`

	// Logging
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
	LogPretty bool   `json:"log_pretty"`

	// Security
	AdminAPIKey string `json:"admin_api_key"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "3000"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 120*time.Second),

		StoreBackend: getEnv("STORE_BACKEND", "file"),
		StorePath:    getEnv("STORE_PATH", "./data/state"),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "rtfire:"),
		CacheTTL:    getEnvAsDuration("CACHE_TTL", 72*time.Hour),

		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "rtfire-media"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		RewriteProvider: getEnv("REWRITE_PROVIDER", "groq"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GroqModel:       getEnv("GROQ_MODEL", "deepseek-r1-distill-llama-70b"),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 90*time.Second),
		AIMaxTokens:     getEnvAsInt("AI_MAX_TOKENS", 4096),

		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		TelegramChatID:  getEnv("TELEGRAM_CHAT_ID", ""),
		TelegramAPIURL:  getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		PublishTimeout:  getEnvAsDuration("PUBLISH_TIMEOUT", 20*time.Second),
		ImageFetchLimit: getEnvAsInt64("IMAGE_FETCH_LIMIT", 10<<20),

		TickInterval:  getEnvAsDuration("SCHEDULE_TICK", 20*time.Second),
		SlotSpacing:   getEnvAsDuration("SCHEDULE_SPACING", 15*time.Minute),
		FirstSlotLead: getEnvAsDuration("SCHEDULE_LEAD", time.Minute),
		MatchMode:     getEnv("SCHEDULE_MATCH", "exact"),

		ChromePath:     getEnv("CHROME_PATH", ""),
		NavTimeout:     getEnvAsDuration("BROWSER_NAV_TIMEOUT", 45*time.Second),
		SettleDelay:    getEnvAsDuration("BROWSER_SETTLE_DELAY", 3*time.Second),
		ImageWait:      getEnvAsDuration("BROWSER_IMAGE_WAIT", 5*time.Second),
		MaxContentRune: getEnvAsInt("SCRAPE_MAX_CONTENT", 3000),

		HeroMinWidth:      getEnvAsFloat("HERO_MIN_WIDTH", 200),
		HeroMinHeight:     getEnvAsFloat("HERO_MIN_HEIGHT", 150),
		HeroProximityBand: getEnvAsFloat("HERO_PROXIMITY_BAND", 800),
		HeroDenylist:      getEnvAsList("HERO_DENYLIST", []string{"avatar", "icon", "logo", "author", "profile", "user"}),

		SourcesFile: getEnv("SOURCES_FILE", "configs/sources.yaml"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFile:   getEnv("LOG_FILE", "stdout"),
		LogPretty: getEnv("LOG_PRETTY", "true") == "true",

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "redis", "file", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be redis, file or memory, got %q", c.StoreBackend)
	}
	switch c.RewriteProvider {
	case "groq", "gemini":
	default:
		return fmt.Errorf("REWRITE_PROVIDER must be groq or gemini, got %q", c.RewriteProvider)
	}
	switch c.MatchMode {
	case "exact", "due":
	default:
		return fmt.Errorf("SCHEDULE_MATCH must be exact or due, got %q", c.MatchMode)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("SCHEDULE_TICK must be positive")
	}
	if c.SlotSpacing <= 0 {
		return fmt.Errorf("SCHEDULE_SPACING must be positive")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive")
	}
	return nil
}

// R2Enabled reports whether the image mirror is fully configured
func (c *Config) R2Enabled() bool {
	return c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2PublicURL != "" &&
		(c.R2Endpoint != "" || c.R2AccountID != "")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsInt64(name string, defaultVal int64) int64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsList(name string, defaultVal []string) []string {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
