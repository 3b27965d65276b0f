package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Polyframe PolyframeConfig `yaml:"polyframe"`
	API       APIConfig       `yaml:"api"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Tables    TablesConfig    `yaml:"tables"`
	Orders    OrdersConfig    `yaml:"orders"`
	Stream    StreamConfig    `yaml:"stream"`
	Storage   StorageConfig   `yaml:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PolyframeConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type APIConfig struct {
	GammaURL          string   `yaml:"gamma_url"`
	DataURL           string   `yaml:"data_url"`
	ClobURL           string   `yaml:"clob_url"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`
}

// Duration accepts both "10s"-style strings and integer nanoseconds in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration '%s'", raw)
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(time.Duration(ns))
	return nil
}

type FetchConfig struct {
	MaxParallel      int      `yaml:"max_parallel"`
	ReturnExceptions bool     `yaml:"return_exceptions"`
	PageLimit        int      `yaml:"page_limit"`
	MaxPages         int      `yaml:"max_pages"`
	Kinds            []string `yaml:"kinds"`
}

type TablesConfig struct {
	DropNA bool `yaml:"drop_na"`
}

type OrdersConfig struct {
	PricePolicy  string `yaml:"price_policy"`
	AmountPolicy string `yaml:"amount_policy"`
	CostPolicy   string `yaml:"cost_policy"`
	PriceTick    string `yaml:"price_tick"`
	MinSize      string `yaml:"min_size"`
	LimitsVenue  string `yaml:"limits_venue"`
	Owner        string `yaml:"owner"`
}

type StreamConfig struct {
	Enabled  bool     `yaml:"enabled"`
	URL      string   `yaml:"url"`
	AssetIDs []string `yaml:"asset_ids"`
	Buffer   int      `yaml:"buffer"`
}

type StorageConfig struct {
	S3          S3Config `yaml:"s3"`
	LocalDir    string   `yaml:"local_dir"`
	Compression string   `yaml:"compression"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type LoggingConfig struct {
	Level  string                 `yaml:"level"`
	Format string                 `yaml:"format"`
	Output string                 `yaml:"output"`
	MaxAge int                    `yaml:"max_age"`
	Fields map[string]interface{} `yaml:"fields"`
}

var validPolicies = map[string]bool{"": true, "clip": true, "warn": true, "raise": true}

var validLimitsVenues = map[string]bool{"": true, "binance": true, "kucoin": true}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Tables: TablesConfig{DropNA: true},
		Fetch: FetchConfig{
			MaxParallel: 4,
			PageLimit:   500,
		},
		Orders: OrdersConfig{
			PriceTick: "0.01",
			MinSize:   "5",
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Polyframe.Name == "" {
		return fmt.Errorf("polyframe.name is required")
	}

	if cfg.Polyframe.Version == "" {
		return fmt.Errorf("polyframe.version is required")
	}

	if cfg.Fetch.MaxParallel < 0 {
		return fmt.Errorf("fetch.max_parallel must not be negative")
	}
	if cfg.Fetch.PageLimit <= 0 {
		return fmt.Errorf("fetch.page_limit must be greater than 0")
	}
	if cfg.Fetch.MaxPages < 0 {
		return fmt.Errorf("fetch.max_pages must not be negative")
	}

	if cfg.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must not be negative")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	for name, policy := range map[string]string{
		"orders.price_policy":  cfg.Orders.PricePolicy,
		"orders.amount_policy": cfg.Orders.AmountPolicy,
		"orders.cost_policy":   cfg.Orders.CostPolicy,
	} {
		if !validPolicies[strings.ToLower(policy)] {
			return fmt.Errorf("%s '%s' is invalid (expected clip, warn or raise)", name, policy)
		}
	}

	for name, value := range map[string]string{
		"orders.price_tick": cfg.Orders.PriceTick,
		"orders.min_size":   cfg.Orders.MinSize,
	} {
		if value == "" {
			continue
		}
		if v, err := strconv.ParseFloat(value, 64); err != nil || v <= 0 {
			return fmt.Errorf("%s '%s' must be a positive number", name, value)
		}
	}

	if !validLimitsVenues[strings.ToLower(cfg.Orders.LimitsVenue)] {
		return fmt.Errorf("orders.limits_venue '%s' is invalid (expected binance or kucoin)", cfg.Orders.LimitsVenue)
	}

	if cfg.Stream.Enabled && len(cfg.Stream.AssetIDs) == 0 {
		return fmt.Errorf("stream.asset_ids is required when the stream is enabled")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
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
