package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the YAML config file checked when no -config flag is given.
const DefaultPath = "climbcoach.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	AI        AIConfig        `yaml:"ai"`
	Claude    ClaudeConfig    `yaml:"claude"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Coach     CoachConfig     `yaml:"coach"`
	Data      DataConfig      `yaml:"data"`
	Backend   BackendConfig   `yaml:"backend"`
	Discord   DiscordConfig   `yaml:"discord"`
	Proactive ProactiveConfig `yaml:"proactive"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	CORSOrigin     string        `yaml:"cors_origin"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AIConfig struct {
	Provider string `yaml:"provider"` // "claude", "gemini", "openai", or "" (auto-detect)
}

type ClaudeConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"` // any OpenAI-compatible endpoint
}

type CoachConfig struct {
	Variant          string `yaml:"variant"` // "full" or "simple"
	MaxIterations    int    `yaml:"max_iterations"`
	ParallelTools    bool   `yaml:"parallel_tools"`
	SearchCacheBytes int64  `yaml:"search_cache_bytes"`
}

type DataConfig struct {
	GymPath     string `yaml:"gym_path"`
	AscentsPath string `yaml:"ascents_path"`
	SheetsURL   string `yaml:"sheets_url"` // local path or Google Sheets URL
}

type BackendConfig struct {
	BaseURL string `yaml:"base_url"`
}

type DiscordConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

type ProactiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"`
	MorningHour   int           `yaml:"morning_hour"`
	AlertCooldown time.Duration `yaml:"alert_cooldown"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	// .env only fills variables that are not already set
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Secrets normally live here.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "COACH_ADDR")
	setString(&cfg.Server.CORSOrigin, "COACH_CORS_ORIGIN")
	setString(&cfg.AI.Provider, "AI_PROVIDER")
	setString(&cfg.Claude.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.Claude.Model, "CLAUDE_MODEL")
	setString(&cfg.Gemini.APIKey, "GOOGLE_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Coach.Variant, "COACH_VARIANT")
	setInt(&cfg.Coach.MaxIterations, "COACH_MAX_ITERATIONS")
	setString(&cfg.Data.GymPath, "KAGGLE_GYM_PATH")
	setString(&cfg.Data.AscentsPath, "KAGGLE_CLIMB_PATH")
	setString(&cfg.Data.SheetsURL, "GOOGLE_SHEETS_URL")
	setString(&cfg.Backend.BaseURL, "COACH_API_BASE_URL")
	setString(&cfg.Discord.BotToken, "DISCORD_BOT_TOKEN")
	setString(&cfg.Discord.ChannelID, "DISCORD_CHANNEL_ID")
	setString(&cfg.Logging.Level, "LOG_LEVEL")

	// A token in the environment is enough to turn the bot on
	if os.Getenv("DISCORD_BOT_TOKEN") != "" {
		cfg.Discord.Enabled = true
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8000",
			CORSOrigin:     "http://localhost:5173",
			RequestTimeout: 2 * time.Minute,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Coach: CoachConfig{
			Variant:          "full",
			MaxIterations:    6,
			SearchCacheBytes: 1 << 20,
		},
		Data: DataConfig{
			GymPath:     "data/gym_data.csv",
			AscentsPath: "data/climb_data.csv",
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5173",
		},
		Proactive: ProactiveConfig{
			Enabled:       true,
			CheckInterval: 15 * time.Minute,
			MorningHour:   8,
			AlertCooldown: 12 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func validate(cfg *Config) error {
	switch cfg.Coach.Variant {
	case "full", "simple":
	default:
		return fmt.Errorf("coach.variant must be \"full\" or \"simple\", got %q", cfg.Coach.Variant)
	}
	if cfg.Coach.MaxIterations < 1 {
		return fmt.Errorf("coach.max_iterations must be at least 1")
	}
	if cfg.Coach.SearchCacheBytes != 0 && cfg.Coach.SearchCacheBytes < 1024 {
		return fmt.Errorf("coach.search_cache_bytes must be 0 (disabled) or at least 1024, got %d", cfg.Coach.SearchCacheBytes)
	}
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("missing backend.base_url (COACH_API_BASE_URL)")
	}
	if cfg.Discord.Enabled && (cfg.Discord.BotToken == "" || cfg.Discord.ChannelID == "") {
		return fmt.Errorf("discord is enabled but DISCORD_BOT_TOKEN or DISCORD_CHANNEL_ID is missing")
	}
	return nil
}
