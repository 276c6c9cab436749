package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables overriding secrets from the config file.
const (
	EnvSyncDSN        = "RITIM_SYNC_DSN"
	EnvTelegramToken  = "RITIM_TELEGRAM_TOKEN"
	EnvTelegramChatID = "RITIM_TELEGRAM_CHAT_ID"
	EnvRollbarToken   = "ROLLBAR_TOKEN"
)

// LoadEnv loads variables from a dotenv file without overriding ones
// already set. Missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv copies secrets set in the environment over cfg.
func ApplyEnv(cfg *FileConfig) error {
	if v := strings.TrimSpace(os.Getenv(EnvSyncDSN)); v != "" {
		cfg.Sync.DSN = &v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramToken)); v != "" {
		cfg.Telegram.Token = &v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegramChatID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTelegramChatID, err)
		}
		cfg.Telegram.ChatID = &id
	}
	if v := strings.TrimSpace(os.Getenv(EnvRollbarToken)); v != "" {
		cfg.Log.RollbarToken = &v
	}
	return nil
}

// Load reads the config file, the dotenv file and the environment, in
// increasing priority.
func Load(configPath, envPath string) (FileConfig, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return FileConfig{}, err
	}
	if err := LoadEnv(envPath); err != nil {
		return FileConfig{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}
