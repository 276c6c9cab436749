package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Study.Track != nil || cfg.Sync.DSN != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[study]
track = "AYT"
days = 14

[reminder]
window-days = 7

[sync]
driver = "postgres"
user-id = "u1"

[telegram]
chat-id = 42

[log]
level = "debug"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Study.Track == nil || *cfg.Study.Track != "AYT" {
		t.Fatalf("track = %v", cfg.Study.Track)
	}
	if cfg.Study.Days == nil || *cfg.Study.Days != 14 {
		t.Fatalf("days = %v", cfg.Study.Days)
	}
	if cfg.Reminder.WindowDays == nil || *cfg.Reminder.WindowDays != 7 {
		t.Fatalf("window-days = %v", cfg.Reminder.WindowDays)
	}
	if cfg.Sync.UserID == nil || *cfg.Sync.UserID != "u1" {
		t.Fatalf("user-id = %v", cfg.Sync.UserID)
	}
	if cfg.Sync.DSN != nil {
		t.Fatalf("dsn should be unset, got %q", *cfg.Sync.DSN)
	}
	if cfg.Telegram.ChatID == nil || *cfg.Telegram.ChatID != 42 {
		t.Fatalf("chat-id = %v", cfg.Telegram.ChatID)
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("level = %v", cfg.Log.Level)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[study\ntrack = ")
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	envPath := filepath.Join(dir, ".env")
	writeFile(t, configPath, "[sync]\ndsn = \"from-file\"\n")
	writeFile(t, envPath, "RITIM_SYNC_DSN=from-dotenv\nRITIM_TELEGRAM_CHAT_ID=7\n")
	t.Setenv(EnvSyncDSN, "")
	t.Setenv(EnvTelegramChatID, "")
	t.Setenv(EnvTelegramToken, "from-env")
	// godotenv only fills unset variables.
	os.Unsetenv(EnvSyncDSN)
	os.Unsetenv(EnvTelegramChatID)

	cfg, err := Load(configPath, envPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Sync.DSN == nil || *cfg.Sync.DSN != "from-dotenv" {
		t.Fatalf("dsn = %v", cfg.Sync.DSN)
	}
	if cfg.Telegram.Token == nil || *cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %v", cfg.Telegram.Token)
	}
	if cfg.Telegram.ChatID == nil || *cfg.Telegram.ChatID != 7 {
		t.Fatalf("chat-id = %v", cfg.Telegram.ChatID)
	}
}

func TestApplyEnvRejectsBadChatID(t *testing.T) {
	t.Setenv(EnvTelegramChatID, "abc")
	var cfg FileConfig
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected error for non-numeric chat id")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	if got, want := DefaultConfigPath(), filepath.Join(dir, "cfg", "ritim", "config.toml"); got != want {
		t.Fatalf("DefaultConfigPath = %q, want %q", got, want)
	}
	if got, want := DefaultEnvPath(), filepath.Join(dir, "cfg", "ritim", ".env"); got != want {
		t.Fatalf("DefaultEnvPath = %q, want %q", got, want)
	}
	if got, want := DefaultDBPath(), filepath.Join(dir, "data", "ritim", "ritim.db"); got != want {
		t.Fatalf("DefaultDBPath = %q, want %q", got, want)
	}
}
