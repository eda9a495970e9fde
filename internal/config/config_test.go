package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		Mode:     ModeDevelopment,
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Blockchain.LendingDeskID != 1 {
		t.Fatalf("desk id = %d, want 1", cfg.Blockchain.LendingDeskID)
	}
	if cfg.Health.Port != 3000 {
		t.Fatalf("health port = %d, want 3000", cfg.Health.Port)
	}
	if cfg.Reminders.PollIntervalSeconds != 60 {
		t.Fatalf("poll interval = %d, want 60", cfg.Reminders.PollIntervalSeconds)
	}
	if cfg.Database.SSLMode != "disable" || cfg.Database.MaxConnections != 10 {
		t.Fatalf("db defaults: %+v", cfg.Database)
	}
	if cfg.Community.Username == "" || cfg.Community.InviteLink == "" {
		t.Fatalf("community defaults: %+v", cfg.Community)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeProductionRequirements(t *testing.T) {
	cfg := baseConfig()
	cfg.Mode = ModeProduction
	err := Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "rpc_url") {
		t.Fatalf("got %v, want rpc_url error", err)
	}

	cfg.Blockchain.RPCURL = "https://rpc.example"
	err = Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "lending_contract") {
		t.Fatalf("got %v, want lending_contract error", err)
	}

	cfg.Blockchain.LendingContract = "0xdeadbeef"
	err = Normalize(cfg)
	if err == nil || !strings.Contains(err.Error(), "paymaster") {
		t.Fatalf("got %v, want paymaster error", err)
	}

	cfg.Paymaster.URL = "https://paymaster.example"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRunModeAliasAndWebhook(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("alias not normalized: %q", cfg.Telegram.RunMode)
	}

	cfg = baseConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("webhook without url should fail")
	}
	cfg.Webhook = WebhookConfig{URL: "https://bot.example", Listen: "0.0.0.0", Port: 8443}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize webhook: %v", err)
	}
}

func TestNormalizeRejectsUnknownMode(t *testing.T) {
	cfg := baseConfig()
	cfg.Mode = "staging"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
