package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token    string  `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"ADMIN_IDS"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// StoreConfig describes the tabular backing store connection.
type StoreConfig struct {
	DSN            string `yaml:"dsn" envconfig:"STORE_DSN"`
	MaxConnections int    `yaml:"max_connections" envconfig:"STORE_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"STORE_MIGRATIONS_DIR"`
}

// TablesConfig carries the table (worksheet) names. All are overridable.
type TablesConfig struct {
	Items  string `yaml:"items" envconfig:"TABLE_ITEMS"`
	Owners string `yaml:"owners" envconfig:"TABLE_OWNERS"`
	Users  string `yaml:"users" envconfig:"TABLE_USERS"`
	Grants string `yaml:"grants" envconfig:"TABLE_GRANTS"`
	Log    string `yaml:"log" envconfig:"TABLE_LOG"`
	Tasks  string `yaml:"tasks" envconfig:"TABLE_TASKS"`
}

// RulesConfig holds the business-rule constants.
// TaskReminderFrequencyMin is declared for the tasks schema default but no
// scheduler consumes it in this process.
type RulesConfig struct {
	ConfirmWindowDays        int `yaml:"confirm_window_days" envconfig:"DAYS_CONFIRM_WINDOW"`
	AutoHideDays             int `yaml:"auto_hide_days" envconfig:"DAYS_AUTO_HIDE"`
	TaskReminderFrequencyMin int `yaml:"task_reminder_frequency_min" envconfig:"TASK_REMINDER_FREQUENCY_MIN"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting ("callback", "message").
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the full bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Store     StoreConfig     `yaml:"store"`
	Tables    TablesConfig    `yaml:"tables"`
	Rules     RulesConfig     `yaml:"rules"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file (optional when path is empty)
// and environment variables, then validates it.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required configuration fields and fills defaults.
// A missing bot token or store DSN is a hard error: the process must not
// start without its secrets.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	if strings.TrimSpace(cfg.Store.DSN) == "" {
		return fmt.Errorf("store.dsn is required")
	}
	if cfg.Store.MaxConnections <= 0 {
		cfg.Store.MaxConnections = 4
	}
	if strings.TrimSpace(cfg.Store.MigrationsDir) == "" {
		cfg.Store.MigrationsDir = "migrations"
	}

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

	applyTableDefaults(&cfg.Tables)

	if cfg.Rules.ConfirmWindowDays <= 0 {
		cfg.Rules.ConfirmWindowDays = 30
	}
	if cfg.Rules.AutoHideDays <= 0 {
		cfg.Rules.AutoHideDays = 40
	}
	if cfg.Rules.AutoHideDays <= cfg.Rules.ConfirmWindowDays {
		return fmt.Errorf("rules.auto_hide_days (%d) must exceed rules.confirm_window_days (%d)",
			cfg.Rules.AutoHideDays, cfg.Rules.ConfirmWindowDays)
	}
	if cfg.Rules.TaskReminderFrequencyMin <= 0 {
		cfg.Rules.TaskReminderFrequencyMin = 60
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

func applyTableDefaults(t *TablesConfig) {
	if t.Items == "" {
		t.Items = "ITEMS_MASTER"
	}
	if t.Owners == "" {
		t.Owners = "OWNERS_MASTER"
	}
	if t.Users == "" {
		t.Users = "USERS_ROLES"
	}
	if t.Grants == "" {
		t.Grants = "USER_GRANTS"
	}
	if t.Log == "" {
		t.Log = "ACTIVITY_LOG"
	}
	if t.Tasks == "" {
		t.Tasks = "TASKS_TODOS"
	}
}

// IsAdmin reports whether the given identity is in the configured admin set.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.Telegram.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

// AdminSet returns the configured administrator identities as a set.
func (c *Config) AdminSet() map[int64]struct{} {
	set := make(map[int64]struct{}, len(c.Telegram.AdminIDs))
	for _, a := range c.Telegram.AdminIDs {
		set[a] = struct{}{}
	}
	return set
}
