package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc", AdminIDs: []int64{42}},
		Store:    StoreConfig{DSN: "postgres://localhost/brokerbot?sslmode=disable"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Store.MaxConnections != 4 || cfg.Store.MigrationsDir != "migrations" {
		t.Errorf("store defaults: %+v", cfg.Store)
	}
	if cfg.Tables.Users != "USERS_ROLES" || cfg.Tables.Owners != "OWNERS_MASTER" {
		t.Errorf("table defaults: %+v", cfg.Tables)
	}
	if cfg.Rules.ConfirmWindowDays != 30 || cfg.Rules.AutoHideDays != 40 {
		t.Errorf("rule defaults: %+v", cfg.Rules)
	}
}

func TestNormalizeRequiredSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = "  "
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("missing token: err = %v", err)
	}

	cfg = validConfig()
	cfg.Store.DSN = ""
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Errorf("missing dsn: err = %v", err)
	}
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("polling alias: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("alias normalized to %q", cfg.Telegram.RunMode)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil {
		t.Error("invalid run mode accepted")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Error("webhook mode without url/listen/port accepted")
	}
	cfg.Webhook = WebhookConfig{URL: "https://bot.example.com/hook", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Errorf("complete webhook config rejected: %v", err)
	}
}

func TestNormalizeWindowOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Rules.ConfirmWindowDays = 40
	cfg.Rules.AutoHideDays = 30
	if err := Normalize(cfg); err == nil {
		t.Error("auto_hide_days <= confirm_window_days accepted")
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != "callback" {
		t.Errorf("exclusion not normalized: %v", cfg.RateLimit.ExcludeUpdates)
	}

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Error("unknown exclusion accepted")
	}
}

func TestAdminHelpers(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsAdmin(42) || cfg.IsAdmin(7) {
		t.Error("IsAdmin mismatch")
	}
	set := cfg.AdminSet()
	if _, ok := set[42]; !ok || len(set) != 1 {
		t.Errorf("AdminSet = %v", set)
	}
}
