package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// ModeDevelopment selects deterministic mock collaborators, no network calls.
	ModeDevelopment = "development"
	// ModeProduction selects the real wallet/issuance/verification collaborators.
	ModeProduction = "production"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// TelegramConfig holds Telegram bot transport settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook listener settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// DatabaseConfig holds Postgres connection settings for sessions and analytics.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// BlockchainConfig describes the on-chain collaborators used in production mode.
type BlockchainConfig struct {
	RPCURL           string `yaml:"rpc_url" envconfig:"BLOCKCHAIN_RPC_URL"`
	LendingContract  string `yaml:"lending_contract" envconfig:"LENDING_CONTRACT"`
	IdentityContract string `yaml:"identity_contract" envconfig:"IDENTITY_CONTRACT"`
	LendingDeskID    int64  `yaml:"lending_desk_id" envconfig:"LENDING_DESK_ID"`
}

// PaymasterConfig configures the transaction sponsorship API.
type PaymasterConfig struct {
	URL    string `yaml:"url" envconfig:"PAYMASTER_URL"`
	APIKey string `yaml:"api_key" envconfig:"PAYMASTER_API_KEY"`
}

// CommunityConfig identifies the Telegram group users must join before onboarding.
type CommunityConfig struct {
	Username   string `yaml:"username" envconfig:"COMMUNITY_USERNAME"`
	InviteLink string `yaml:"invite_link" envconfig:"COMMUNITY_INVITE_LINK"`
}

// HealthConfig configures the ops HTTP server.
type HealthConfig struct {
	Port int `yaml:"port" envconfig:"HEALTH_PORT"`
}

// RemindersConfig controls the due-date watcher.
type RemindersConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds" envconfig:"REMINDER_POLL_INTERVAL_SECONDS"`
}

// RateLimitConfig holds settings for per-user rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates all bot configuration.
type Config struct {
	Mode       string           `yaml:"mode" envconfig:"MODE"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Paymaster  PaymasterConfig  `yaml:"paymaster"`
	Community  CommunityConfig  `yaml:"community"`
	Health     HealthConfig     `yaml:"health"`
	Reminders  RemindersConfig  `yaml:"reminders"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
// A .env file next to the process is applied first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = ModeDevelopment
	}
	switch mode {
	case ModeDevelopment:
	case ModeProduction:
		if strings.TrimSpace(cfg.Blockchain.RPCURL) == "" {
			return fmt.Errorf("blockchain.rpc_url is required in production mode")
		}
		if strings.TrimSpace(cfg.Blockchain.LendingContract) == "" {
			return fmt.Errorf("blockchain.lending_contract is required in production mode")
		}
		if strings.TrimSpace(cfg.Paymaster.URL) == "" {
			return fmt.Errorf("paymaster.url is required in production mode")
		}
	default:
		return fmt.Errorf("invalid mode %q; allowed: development, production", cfg.Mode)
	}
	cfg.Mode = mode

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Blockchain.LendingDeskID <= 0 {
		cfg.Blockchain.LendingDeskID = 1
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConnections <= 0 {
		cfg.Database.MaxConnections = 10
	}
	if cfg.Health.Port <= 0 {
		cfg.Health.Port = 3000
	}
	if cfg.Reminders.PollIntervalSeconds <= 0 {
		cfg.Reminders.PollIntervalSeconds = 60
	}
	if cfg.Community.Username == "" {
		cfg.Community.Username = "MagnifyCommunity"
	}
	if cfg.Community.InviteLink == "" {
		cfg.Community.InviteLink = "https://t.me/" + cfg.Community.Username
	}
	return nil
}

// IsDevelopment reports whether mock collaborators should be wired.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.Mode == ModeDevelopment
}
