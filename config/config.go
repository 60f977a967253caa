package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Quoteflow QuoteflowConfig `yaml:"quoteflow"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Source    SourceConfig    `yaml:"source"`
}

type QuoteflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type StorageConfig struct {
	// Backend selects where snapshots live: "local" or "s3".
	Backend string      `yaml:"backend"`
	Local   LocalConfig `yaml:"local"`
	S3      S3Config    `yaml:"s3"`
}

type LocalConfig struct {
	Dir string `yaml:"dir"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level"`
	Format         string        `yaml:"format"`
	Output         string        `yaml:"output"`
	MaxAge         int           `yaml:"max_age"`
	ReportInterval time.Duration `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type SourceConfig struct {
	AMFI    AMFISourceConfig    `yaml:"amfi"`
	Binance BinanceSourceConfig `yaml:"binance"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type AMFISourceConfig struct {
	Enabled    bool            `yaml:"enabled"`
	LatestURL  string          `yaml:"latest_url"`
	HistoryURL string          `yaml:"history_url"`
	Timeout    time.Duration   `yaml:"timeout"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type BinanceSourceConfig struct {
	Enabled bool          `yaml:"enabled"`
	Symbols []string      `yaml:"symbols"`
	Timeout time.Duration `yaml:"timeout"`
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, "config.yaml", map[string]string{
		environmentDevelopment: "config.development.yaml",
		environmentStaging:     "config.staging.yaml",
		environmentProduction:  "config.production.yaml",
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Storage: StorageConfig{
			Backend: "local",
			Local:   LocalConfig{Dir: "data"},
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			Output:         "stdout",
			ReportInterval: time.Minute,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.AMFI.LatestURL == "" {
		cfg.Source.AMFI.LatestURL = "https://www.amfiindia.com/spages/NAVAll.txt"
	}
	if cfg.Source.AMFI.HistoryURL == "" {
		cfg.Source.AMFI.HistoryURL = "https://portal.amfiindia.com/DownloadNAVHistoryReport_Po.aspx"
	}
	if cfg.Source.AMFI.Timeout <= 0 {
		cfg.Source.AMFI.Timeout = 30 * time.Second
	}
	if cfg.Source.AMFI.RateLimit.RequestsPerSecond <= 0 {
		cfg.Source.AMFI.RateLimit.RequestsPerSecond = 1
	}
	if cfg.Source.AMFI.RateLimit.BurstSize <= 0 {
		cfg.Source.AMFI.RateLimit.BurstSize = 1
	}
	if cfg.Source.Binance.Timeout <= 0 {
		cfg.Source.Binance.Timeout = 15 * time.Second
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUOTEFLOW_DATA_DIR"); v != "" {
		cfg.Storage.Local.Dir = strings.TrimSpace(v)
	}
	if cfg.Storage.Backend == "s3" {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	cfg.Storage.S3.Bucket = strings.TrimSpace(cfg.Storage.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.Quoteflow.Name == "" {
		return fmt.Errorf("quoteflow.name is required")
	}

	if cfg.Quoteflow.Version == "" {
		return fmt.Errorf("quoteflow.version is required")
	}

	switch cfg.Storage.Backend {
	case "local":
		if cfg.Storage.Local.Dir == "" {
			return fmt.Errorf("storage.local.dir is required when the local backend is selected")
		}
	case "s3":
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when the s3 backend is selected")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when the s3 backend is selected")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	default:
		return fmt.Errorf("storage.backend must be 'local' or 's3', got '%s'", cfg.Storage.Backend)
	}

	if cfg.Source.Binance.Enabled && len(cfg.Source.Binance.Symbols) == 0 {
		return fmt.Errorf("source.binance.symbols is required when the binance source is enabled")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
