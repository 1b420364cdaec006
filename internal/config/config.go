package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"unfollowcleaner/internal/core/domain"
)

const (
	defaultDuneBaseURL   = "https://api.dune.com/api/v1"
	defaultNeynarBaseURL = "https://api.neynar.com/v2"

	// MaxBatchSize is the largest target list the relationship API accepts.
	MaxBatchSize = 100
	// MaxConcurrency is the most unfollow requests ever allowed in flight.
	MaxConcurrency = 5
)

// Config is the full runtime configuration of the cleaner.
type Config struct {
	Env       string
	TargetFID domain.FID
	Dune      DuneConfig
	Neynar    NeynarConfig
	Polling   PollingConfig
	Batch     BatchConfig
	OTel      OTelConfig
	HTTP      HTTPConfig
}

// DuneConfig selects the analytics query and how its rows are read.
type DuneConfig struct {
	APIKey      string
	BaseURL     string
	QueryID     string
	ParamName   string
	ResultField string
}

// NeynarConfig holds the relationship API credentials and the acting signer.
type NeynarConfig struct {
	APIKey     string
	BaseURL    string
	SignerUUID string
}

// PollingConfig bounds how long a query execution is waited on.
type PollingConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// BatchConfig controls the size and parallelism of unfollow requests.
type BatchConfig struct {
	Size           int
	MaxConcurrency int
}

// HTTPConfig applies to both API clients.
type HTTPConfig struct {
	Timeout time.Duration
}

// OTelConfig configures trace export. An empty endpoint disables it.
type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Load reads configuration from the process environment. In development a
// .env file in the working directory is loaded first if present. Malformed
// numeric or duration values are rejected rather than replaced by defaults.
func Load() (Config, error) {
	if getEnv("APP_ENV", "development") == "development" {
		_ = godotenv.Load()
	}

	var p envParser
	cfg := Config{
		Env: getEnv("APP_ENV", "development"),
		Dune: DuneConfig{
			APIKey:      getEnv("DUNE_API_KEY", ""),
			BaseURL:     strings.TrimRight(getEnv("DUNE_BASE_URL", defaultDuneBaseURL), "/"),
			QueryID:     getEnv("DUNE_QUERY_ID", ""),
			ParamName:   getEnv("QUERY_PARAM_NAME", "fid"),
			ResultField: getEnv("RESULT_FIELD", "fid"),
		},
		Neynar: NeynarConfig{
			APIKey:     getEnv("NEYNAR_API_KEY", ""),
			BaseURL:    strings.TrimRight(getEnv("NEYNAR_BASE_URL", defaultNeynarBaseURL), "/"),
			SignerUUID: getEnv("SIGNER_UUID", ""),
		},
		Polling: PollingConfig{
			Interval:    p.duration("POLL_INTERVAL", 3*time.Second),
			MaxAttempts: p.int("MAX_POLL_ATTEMPTS", 400),
		},
		Batch: BatchConfig{
			Size:           clamp(p.int("BATCH_SIZE", MaxBatchSize), 1, MaxBatchSize),
			MaxConcurrency: clamp(p.int("MAX_CONCURRENCY", MaxConcurrency), 1, MaxConcurrency),
		},
		HTTP: HTTPConfig{
			Timeout: p.duration("HTTP_TIMEOUT", 30*time.Second),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "unfollow-cleaner"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	var missing []string
	if cfg.Dune.APIKey == "" {
		missing = append(missing, "DUNE_API_KEY")
	}
	if cfg.Neynar.APIKey == "" {
		missing = append(missing, "NEYNAR_API_KEY")
	}
	if cfg.Neynar.SignerUUID == "" {
		missing = append(missing, "SIGNER_UUID")
	}
	if cfg.Dune.QueryID == "" {
		missing = append(missing, "DUNE_QUERY_ID")
	}

	rawTarget := getEnv("TARGET_FID", "")
	if rawTarget == "" {
		missing = append(missing, "TARGET_FID")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if err := p.err(); err != nil {
		return Config{}, err
	}

	target, err := ParseFID(rawTarget)
	if err != nil {
		return Config{}, fmt.Errorf("TARGET_FID: %w", err)
	}
	cfg.TargetFID = target

	if cfg.Polling.Interval <= 0 {
		return Config{}, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.Polling.MaxAttempts <= 0 {
		return Config{}, fmt.Errorf("MAX_POLL_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// ParseFID parses a decimal FID.
func ParseFID(s string) (domain.FID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fid %q: %w", s, err)
	}
	return domain.FID(v), nil
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether APP_ENV is "development".
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Enabled reports whether an exporter endpoint is configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// envParser reads typed variables and remembers every malformed one.
type envParser struct {
	invalid []string
}

func (p *envParser) int(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, fmt.Sprintf("%s=%q is not an integer", key, value))
		return fallback
	}
	return i
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		p.invalid = append(p.invalid, fmt.Sprintf("%s=%q is not a duration", key, value))
		return fallback
	}
	return d
}

func (p *envParser) err() error {
	if len(p.invalid) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, "; "))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
