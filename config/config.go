package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	DB       DBConfig
	Telegram TelegramConfig
	Storage  StorageConfig
	Log      LogConfig
}

type DBConfig struct {
	Host        string `env:"DB_HOST" envDefault:"localhost"`
	Port        int    `env:"DB_PORT" envDefault:"5432"`
	User        string `env:"DB_USER" envDefault:"postgres"`
	Password    string `env:"DB_PASSWORD"`
	Database    string `env:"DB_NAME" envDefault:"food_picker"`
	AutoMigrate bool   `env:"AUTO_MIGRATE"`
}

type TelegramConfig struct {
	Token   string `env:"TOKEN"`
	OwnerID int64  `env:"OWNER_ID"` // the only user the bot answers; 0 answers anyone
}

type StorageConfig struct {
	Backend    string `env:"STORAGE" envDefault:"sqlite"` // sqlite, postgres or memory
	SQLitePath string `env:"SQLITE_PATH" envDefault:"food-picker.db"`
	Key        string `env:"STORAGE_KEY" envDefault:"restaurants"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"` // console or json
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch cfg.Storage.Backend {
	case StorageSQLite, StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE %q (want sqlite, postgres or memory)", cfg.Storage.Backend)
	}
	if strings.TrimSpace(cfg.Storage.Key) == "" {
		return nil, fmt.Errorf("STORAGE_KEY must not be empty")
	}
	return &cfg, nil
}
