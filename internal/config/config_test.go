package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("MODERATION_CHAT_ID", "-1001234567890")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := &Config{
		TelegramBotToken: "test-token",
		ModerationChatID: -1001234567890,
		DatabasePath:     "./data/bot.db",
		MediaDir:         "./media",
		LogLevel:         "info",
		DispatchGrace:    15 * time.Second,
		SendInterval:     300 * time.Millisecond,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("MODERATION_CHAT_ID", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without token")
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	if _, err := Load(); err == nil {
		t.Error("expected error without moderation chat")
	}

	t.Setenv("MODERATION_CHAT_ID", "not-a-number")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric moderation chat")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_PATH", "/tmp/x.db")
	t.Setenv("MEDIA_DIR", "/tmp/media")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("DISPATCH_GRACE_SECONDS", "30")
	t.Setenv("SEND_INTERVAL_MS", "500")
	t.Setenv("ALLOWED_USERS", "1, 2,3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "/tmp/x.db" || cfg.MediaDir != "/tmp/media" {
		t.Errorf("paths = %q %q", cfg.DatabasePath, cfg.MediaDir)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("metrics addr = %q", cfg.MetricsAddr)
	}
	if cfg.DispatchGrace != 30*time.Second {
		t.Errorf("grace = %s", cfg.DispatchGrace)
	}
	if cfg.SendInterval != 500*time.Millisecond {
		t.Errorf("send interval = %s", cfg.SendInterval)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, cfg.AllowedUsers); diff != "" {
		t.Errorf("allowed users mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	setRequired(t)

	t.Setenv("DISPATCH_GRACE_SECONDS", "zero")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric grace")
	}
	t.Setenv("DISPATCH_GRACE_SECONDS", "")

	t.Setenv("SEND_INTERVAL_MS", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative send interval")
	}
	t.Setenv("SEND_INTERVAL_MS", "")

	t.Setenv("ALLOWED_USERS", "1,abc")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid allow list entry")
	}
}

func TestIsUserAllowed(t *testing.T) {
	open := &Config{}
	if !open.IsUserAllowed(99) {
		t.Error("empty allow list must permit everyone")
	}

	restricted := &Config{AllowedUsers: []int64{1, 2}}
	if !restricted.IsUserAllowed(2) {
		t.Error("listed user rejected")
	}
	if restricted.IsUserAllowed(3) {
		t.Error("unlisted user permitted")
	}
}
