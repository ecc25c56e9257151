// Package config loads application settings from the environment and .env files
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/wb-go/wbf/config"
)

// Config is the typed view of the env keys used by every binary.
type Config struct {
	AppPort  string
	GinMode  string
	LogLevel string

	PostgresDSN string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	BucketName     string
	MinioUser      string
	MinioPass      string
	MinioAddr      string
	SourcePrefix   string
	ResultPrefix   string
	LogoPrefix     string
	FontDir        string
	EncodeWorkers  int
	EncodeTimeout  time.Duration
	OrphanInterval time.Duration
}

// Getter is the part of wbf config this package reads from.
type Getter interface {
	GetString(key string) string
}

var defaults = map[string]string{
	"APP_PORT":        "8080",
	"GIN_MODE":        "release",
	"LOG_LEVEL":       "info",
	"KAFKA_TOPIC":     "renders",
	"KAFKA_GROUPID":   "render-workers",
	"BUCKET_NAME":     "default",
	"SRC_KEY_PREFIX":  "sources/",
	"RESULT_KEY":      "results/",
	"LOGO_KEY_PREFIX": "logos/",
	"ENCODE_WORKERS":  "2",
	"ENCODE_TIMEOUT":  "10s",
	"ORPHAN_INTERVAL": "1m",
}

// Load reads env variables and the optional env files into a Config.
func Load(envFiles ...string) (*Config, error) {
	appConfig := config.New()
	appConfig.EnableEnv("")
	for _, f := range envFiles {
		if err := appConfig.LoadEnvFiles(f); err != nil {
			return nil, fmt.Errorf("failed to load envs from %s: %w", f, err)
		}
	}
	return FromGetter(appConfig)
}

// FromGetter builds a Config from any key source, applying defaults to blank keys.
func FromGetter(g Getter) (*Config, error) {
	get := func(key string) string {
		if v := g.GetString(key); v != "" {
			return v
		}
		return defaults[key]
	}

	workers, err := strconv.Atoi(get("ENCODE_WORKERS"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("ENCODE_WORKERS must be a positive integer, got %q", get("ENCODE_WORKERS"))
	}
	timeout, err := time.ParseDuration(get("ENCODE_TIMEOUT"))
	if err != nil || timeout <= 0 {
		return nil, fmt.Errorf("ENCODE_TIMEOUT must be a positive duration, got %q", get("ENCODE_TIMEOUT"))
	}
	orphans, err := time.ParseDuration(get("ORPHAN_INTERVAL"))
	if err != nil || orphans <= 0 {
		return nil, fmt.Errorf("ORPHAN_INTERVAL must be a positive duration, got %q", get("ORPHAN_INTERVAL"))
	}

	return &Config{
		AppPort:        get("APP_PORT"),
		GinMode:        get("GIN_MODE"),
		LogLevel:       get("LOG_LEVEL"),
		PostgresDSN:    get("POSTGRES_DSN"),
		KafkaBroker:    get("KAFKA_BROKER"),
		KafkaTopic:     get("KAFKA_TOPIC"),
		KafkaGroupID:   get("KAFKA_GROUPID"),
		BucketName:     get("BUCKET_NAME"),
		MinioUser:      get("MINIO_USER"),
		MinioPass:      get("MINIO_PASS"),
		MinioAddr:      get("MINIO_CONTAINER_NAME"),
		SourcePrefix:   get("SRC_KEY_PREFIX"),
		ResultPrefix:   get("RESULT_KEY"),
		LogoPrefix:     get("LOGO_KEY_PREFIX"),
		FontDir:        get("FONT_DIR"),
		EncodeWorkers:  workers,
		EncodeTimeout:  timeout,
		OrphanInterval: orphans,
	}, nil
}
