// Package config loads settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs to start.
type Config struct {
	DBPath            string
	Addr              string
	LogPath           string
	AdminEmail        string
	LowStockThreshold int
	ImageMaxDimension int
	OverdueSpec       string
	ReminderSpec      string
	Kafka             KafkaConfig
}

// KafkaConfig enables mirroring notifications to Kafka when Brokers is set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether any brokers are configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		DBPath:       getEnv("STOREKEEPER_DB", "storekeeper.sqlite3"),
		Addr:         getEnv("STOREKEEPER_ADDR", ":8080"),
		LogPath:      getEnv("STOREKEEPER_LOG", ""),
		AdminEmail:   getEnv("STOREKEEPER_ADMIN_EMAIL", "admin@storekeeper.local"),
		OverdueSpec:  getEnv("STOREKEEPER_OVERDUE_SPEC", "@every 1m"),
		ReminderSpec: getEnv("STOREKEEPER_REMINDER_SPEC", "@every 30s"),
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "storekeeper.notifications"),
		},
	}

	var err error
	if cfg.LowStockThreshold, err = getEnvInt("STOREKEEPER_LOW_STOCK_THRESHOLD", 5); err != nil {
		return nil, err
	}
	if cfg.ImageMaxDimension, err = getEnvInt("STOREKEEPER_IMAGE_MAX_DIMENSION", 1024); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.New("database path must not be empty")
	case c.LowStockThreshold < 0:
		return errors.New("low stock threshold must not be negative")
	case c.ImageMaxDimension < 1:
		return errors.New("image max dimension must be positive")
	case c.Kafka.Enabled() && c.Kafka.Topic == "":
		return errors.New("kafka topic must be set when brokers are configured")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return n, nil
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
