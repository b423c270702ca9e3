package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Database configuration struct.
type DatabaseConfig struct {
	DSN string
}

// Redis configuration struct.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Bucket configuration for uploading the operational logs.
type BucketConfig struct {
	Region       string
	Endpoint     string
	AccessKey    string
	AccessSecret string
	LogBucket    string
}

// Fetcher holds every tunable of the ingestion pipeline.
type FetcherConfig struct {
	// Directory holding the local logfile mirrors.
	DataDir string

	// Path of the JSON file describing the tracked servers and logfiles.
	SourcesPath string

	// Timeouts used by the adaptive fetch policy.
	ShortFetchTimeout time.Duration
	LongFetchTimeout  time.Duration

	// Hard timeout for a single download plus processing pass.
	FetchHardTimeout time.Duration

	// Window over which every tracked file should get a scheduling opportunity.
	ScheduleWindow time.Duration

	// Maximum retries for a single remote transfer.
	MaxRetries int

	// Maximum bytes consumed per incremental read pass.
	MaxReadSpan int64

	// Batch size of the perpetual streak backfill.
	BackfillBatchSize int

	// Hard timeout for one player streak recomputation.
	RecomputeTimeout time.Duration
}

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Bucket   BucketConfig
	Fetcher  FetcherConfig
}

// Load reads the .env file if present and builds the configuration.
func Load() (*Config, error) {
	// Ignore the error, on production the variables come from the environment.
	godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			DSN: os.Getenv("DATABASE_DSN"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Bucket: BucketConfig{
			Region:       os.Getenv("BUCKET_REGION"),
			Endpoint:     os.Getenv("BUCKET_ENDPOINT"),
			AccessKey:    os.Getenv("BUCKET_ACCESS_KEY"),
			AccessSecret: os.Getenv("BUCKET_ACCESS_SECRET"),
			LogBucket:    os.Getenv("BUCKET_LOG_BUCKET"),
		},
		Fetcher: FetcherConfig{
			DataDir:           getEnv("FETCHER_DATA_DIR", "./data"),
			SourcesPath:       getEnv("FETCHER_SOURCES_PATH", "./sources.json"),
			ShortFetchTimeout: getEnvDuration("FETCHER_SHORT_TIMEOUT", 15*time.Minute),
			LongFetchTimeout:  getEnvDuration("FETCHER_LONG_TIMEOUT", 24*time.Hour),
			FetchHardTimeout:  getEnvDuration("FETCHER_HARD_TIMEOUT", 10*time.Minute),
			ScheduleWindow:    getEnvDuration("FETCHER_SCHEDULE_WINDOW", 5*time.Minute),
			MaxRetries:        getEnvInt("FETCHER_MAX_RETRIES", 3),
			MaxReadSpan:       int64(getEnvInt("FETCHER_MAX_READ_SPAN", 1<<20)),
			BackfillBatchSize: getEnvInt("FETCHER_BACKFILL_BATCH", 1000),
			RecomputeTimeout:  getEnvDuration("FETCHER_RECOMPUTE_TIMEOUT", 2*time.Minute),
		},
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN must be set")
	}

	return cfg, nil
}

// SourceLogfile is one tracked logfile of a server inside the sources file.
type SourceLogfile struct {
	GameVersion *string `json:"gameVersion"`
	RemotePath  string  `json:"remotePath"`
}

// SourceServer is one game server inside the sources file.
type SourceServer struct {
	Name     string          `json:"name"`
	BaseURL  string          `json:"baseUrl"`
	Dormant  bool            `json:"dormant"`
	Logfiles []SourceLogfile `json:"logfiles"`
}

// LoadSources reads the tracked server/logfile definitions.
func LoadSources(path string) ([]SourceServer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read the sources file %s: %w", path, err)
	}

	var sources []SourceServer
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("couldn't parse the sources file %s: %w", path, err)
	}

	return sources, nil
}

// Get a env variable with a default fallback.
func getEnv(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Get a env variable as a integer with a default fallback.
func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Get a env variable as a duration with a default fallback.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
