package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix of every setting.
const Prefix = "CONSULT"

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL enables the Postgres corpus repository. Without it the
	// corpus comes from files, sheets and snapshots only.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"true"`

	CorpusRoot     string        `envconfig:"CORPUS_ROOT" default:"data"`
	CorpusGlobs    []string      `envconfig:"CORPUS_GLOBS" default:"**/*.json,**/*.yaml,**/*.yml"`
	SheetsPath     string        `envconfig:"SHEETS_PATH"`
	RulesetPath    string        `envconfig:"RULESET_PATH"`
	// RefreshEvery of zero reloads only on SIGHUP.
	RefreshEvery   time.Duration `envconfig:"CORPUS_REFRESH_INTERVAL" default:"0s"`
	SnapshotKey    string        `envconfig:"SNAPSHOT_KEY" default:"corpus/snapshot.json"`
	DeriveCategory bool          `envconfig:"CORPUS_DERIVE_CATEGORIES" default:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"consultbot-corpus"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey     string   `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string   `envconfig:"OPENAI_BASE_URL"`
	PlannerModels    []string `envconfig:"PLANNER_MODELS"`
	GeneratorModels  []string `envconfig:"GENERATOR_MODELS"`
	SummarizerModels []string `envconfig:"SUMMARIZER_MODELS"`

	MemoryCap       int   `envconfig:"MEMORY_CAP" default:"3"`
	SessionCapacity int   `envconfig:"SESSION_CAPACITY" default:"1024"`
	MaxBodyBytes    int64 `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	// APIKey, when set, guards /v1 routes. A comma-separated list accepts
	// any of its keys.
	APIKey string `envconfig:"API_KEY"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"1.0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.MemoryCap < 1 {
		return nil, fmt.Errorf("failed to process config: MEMORY_CAP must be at least 1, got %d", cfg.MemoryCap)
	}
	if cfg.SessionCapacity < 1 {
		return nil, fmt.Errorf("failed to process config: SESSION_CAPACITY must be at least 1, got %d", cfg.SessionCapacity)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasS3 reports whether snapshot storage is configured. Credentials may come
// from the default AWS chain, so only the bucket and one of endpoint or keys
// are required.
func (c *Config) HasS3() bool {
	return c.S3Bucket != "" && (c.S3Endpoint != "" || c.S3AccessKey != "")
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSheets() bool {
	return c.SheetsPath != ""
}
