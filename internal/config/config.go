package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Storage struct {
		Backend   string `yaml:"backend"`
		Path      string `yaml:"path"`
		BackupDir string `yaml:"backup_dir"`
	} `yaml:"storage"`
	Timezone string `yaml:"timezone"`
}

// TelegramEnabled reports whether the chat surface should start.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}

// Load reads the optional YAML file named by CONFIG_PATH and then applies
// environment variables on top of it.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := getEnv("CONFIG_PATH", ""); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("✅ Configuration loaded: backend=%s, store=%s, backups=%s, telegram=%t",
		cfg.Storage.Backend, cfg.Storage.Path, cfg.Storage.BackupDir, cfg.TelegramEnabled())

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Telegram.Token = getEnv("TG_TOKEN", cfg.Telegram.Token)

	if chatIDStr := getEnv("TG_CHAT_ID", ""); chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TG_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = chatID
	}

	cfg.Storage.Backend = strings.ToLower(getEnv("STORE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.Path = getEnv("DB_PATH", cfg.Storage.Path)
	cfg.Storage.BackupDir = getEnv("BACKUP_DIR", cfg.Storage.BackupDir)
	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendJSON
	}
	dataDir := getEnv("DATA_DIR", "data")
	if cfg.Storage.Path == "" {
		name := "productivity-data.json"
		if cfg.Storage.Backend == BackendSQLite {
			name = "productivity.db"
		}
		cfg.Storage.Path = filepath.Join(dataDir, name)
	}
	if cfg.Storage.BackupDir == "" {
		cfg.Storage.BackupDir = filepath.Join(filepath.Dir(cfg.Storage.Path), "backups")
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q, expected %s or %s", c.Storage.Backend, BackendJSON, BackendSQLite)
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("TG_CHAT_ID must be set when TG_TOKEN is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
