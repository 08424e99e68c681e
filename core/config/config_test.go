package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123:abc"
access:
  allowed_chats: [111]
wolt:
  location:
    lat: 32.07
    lon: 34.78
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %s, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Wolt.PageSize != DefaultPageSize {
		t.Fatalf("page_size = %d, want %d", cfg.Wolt.PageSize, DefaultPageSize)
	}
	if cfg.Watch.IntervalSeconds != DefaultWatchIntervalSeconds {
		t.Fatalf("interval = %d, want %d", cfg.Watch.IntervalSeconds, DefaultWatchIntervalSeconds)
	}
	if cfg.Wolt.Location.Lat != 32.07 || cfg.Wolt.Location.Lon != 34.78 {
		t.Fatalf("location = %+v", cfg.Wolt.Location)
	}
}

func TestNormalizeRejectsMissingToken(t *testing.T) {
	err := Normalize(&Config{
		Access: AccessConfig{AllowedChats: []int64{1}},
	})
	if err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeRejectsEmptyAllowList(t *testing.T) {
	err := Normalize(&Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	})
	if err == nil {
		t.Fatal("expected error for empty allow-list")
	}
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	err := Normalize(&Config{
		Telegram: TelegramConfig{Token: "123:abc", RunMode: "webhook"},
		Access:   AccessConfig{AllowedChats: []int64{1}},
	})
	if err == nil {
		t.Fatal("expected error for webhook mode without url")
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := &Config{
		Telegram: TelegramConfig{Token: "123:abc", RunMode: "polling"},
		Access:   AccessConfig{AllowedChats: []int64{1}},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %s, want longpoll", cfg.Telegram.RunMode)
	}
}
