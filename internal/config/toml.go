// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Study    StudyConfig    `toml:"study"`
	Reminder ReminderConfig `toml:"reminder"`
	Sync     SyncConfig     `toml:"sync"`
	Telegram TelegramConfig `toml:"telegram"`
	Log      LogConfig      `toml:"log"`
}

// StudyConfig maps study defaults.
type StudyConfig struct {
	Track *string `toml:"track"`
	Days  *int    `toml:"days"`
}

// ReminderConfig maps the reminder daemon settings.
type ReminderConfig struct {
	WindowDays *int `toml:"window-days"`
}

// SyncConfig maps the coach backend connection.
type SyncConfig struct {
	Driver *string `toml:"driver"`
	DSN    *string `toml:"dsn"`
	UserID *string `toml:"user-id"`
	Email  *string `toml:"email"`
}

// TelegramConfig maps reminder delivery over Telegram.
type TelegramConfig struct {
	Token  *string `toml:"token"`
	ChatID *int64  `toml:"chat-id"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level        *string `toml:"level"`
	RollbarToken *string `toml:"rollbar-token"`
	Environment  *string `toml:"environment"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
