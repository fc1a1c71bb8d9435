package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DB_URL              string `mapstructure:"DB_URL"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	SystemWalletAddress string `mapstructure:"SYSTEM_WALLET_ADDRESS"`

	HTTPAddr  string `mapstructure:"HTTP_ADDR"`
	JWTSecret string `mapstructure:"JWT_SECRET"`

	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `mapstructure:"ADMIN_CHAT_ID"`

	MasterKeySeed string `mapstructure:"MASTER_KEY_SEED"`
	BTCNetwork    string `mapstructure:"BTC_NETWORK"`

	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	LockTTL       time.Duration `mapstructure:"LOCK_TTL"`

	S3Bucket         string `mapstructure:"S3_BUCKET"`
	S3Region         string `mapstructure:"S3_REGION"`
	S3Endpoint       string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey      string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey      string `mapstructure:"S3_SECRET_KEY"`
	S3ForcePathStyle bool   `mapstructure:"S3_FORCE_PATH_STYLE"`
}

var keys = []string{
	"DB_URL", "LOG_LEVEL", "SYSTEM_WALLET_ADDRESS", "HTTP_ADDR", "JWT_SECRET",
	"TELEGRAM_BOT_TOKEN", "ADMIN_CHAT_ID", "MASTER_KEY_SEED", "BTC_NETWORK",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOCK_TTL",
	"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_FORCE_PATH_STYLE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SYSTEM_WALLET_ADDRESS", "SYSTEM_WALLET")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("BTC_NETWORK", "testnet3")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_FORCE_PATH_STYLE", false)
}

// LoadConfig reads an .env file and lets process environment override it.
// A missing file is not an error; everything can come from the environment.
func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(filepath.Dir(absPath))
	v.SetConfigName(filepath.Base(absPath))
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)
	// Unmarshal only sees env-only keys once they are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to decode config: %w", err)
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.DB_URL == "" {
		return errors.New("DB_URL is required")
	}
	if c.SystemWalletAddress == "" {
		return errors.New("SYSTEM_WALLET_ADDRESS must not be empty")
	}
	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		return errors.New("S3_REGION is required when S3_BUCKET is set")
	}
	return nil
}
