// Package config loads flightpath settings from defaults, an optional YAML
// file, FLIGHTPATH_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pablasso/flightpath/internal/version"
)

const (
	EnvPrefix = "FLIGHTPATH"
	AppName   = "flightpath"
)

// Config is the resolved configuration.
type Config struct {
	API     API
	Retry   Retry
	Predict Predict
	Log     Log
	Metrics Metrics
}

type API struct {
	URL         string
	Timeout     time.Duration
	UserAgent   string
	MaxInFlight int
	CacheSize   int
	CacheTTL    time.Duration
}

type Retry struct {
	MaxReruns int
	Backoff   time.Duration
	Uniform   bool
}

type Predict struct {
	Profile  string
	MaxHours int
	MinHours int
}

type Log struct {
	Level string
	Dir   string
}

type Metrics struct {
	Addr string
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "https://api.v2.sondehub.org/tawhiri")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.user_agent", AppName+"/"+version.Version)
	v.SetDefault("api.max_in_flight", 8)
	v.SetDefault("api.cache_size", 128)
	v.SetDefault("api.cache_ttl", 10*time.Minute)

	v.SetDefault("retry.max_reruns", 3)
	v.SetDefault("retry.backoff", 500*time.Millisecond)
	v.SetDefault("retry.uniform", false)

	v.SetDefault("predict.profile", "standard_profile")
	v.SetDefault("predict.max_hours", 180)
	v.SetDefault("predict.min_hours", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", DefaultDir())

	v.SetDefault("metrics.addr", "")
}

// DefaultDir is where the config file and logs live unless overridden.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(dir, AppName)
}

// DefaultFile is the config file read when none is given explicitly.
func DefaultFile() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path into v and returns the validated configuration. An empty
// path reads DefaultFile when it exists.
func Load(v *viper.Viper, path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromViper reads every key without validating.
func FromViper(v *viper.Viper) Config {
	return Config{
		API: API{
			URL:         v.GetString("api.url"),
			Timeout:     v.GetDuration("api.timeout"),
			UserAgent:   v.GetString("api.user_agent"),
			MaxInFlight: v.GetInt("api.max_in_flight"),
			CacheSize:   v.GetInt("api.cache_size"),
			CacheTTL:    v.GetDuration("api.cache_ttl"),
		},
		Retry: Retry{
			MaxReruns: v.GetInt("retry.max_reruns"),
			Backoff:   v.GetDuration("retry.backoff"),
			Uniform:   v.GetBool("retry.uniform"),
		},
		Predict: Predict{
			Profile:  v.GetString("predict.profile"),
			MaxHours: v.GetInt("predict.max_hours"),
			MinHours: v.GetInt("predict.min_hours"),
		},
		Log: Log{
			Level: v.GetString("log.level"),
			Dir:   v.GetString("log.dir"),
		},
		Metrics: Metrics{
			Addr: v.GetString("metrics.addr"),
		},
	}
}

// Validate rejects settings the predictor cannot run with.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.url must be an http(s) URL, got %q", c.API.URL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}
	if c.API.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("api.max_in_flight must be at least 1, got %d", c.API.MaxInFlight))
	}
	if c.API.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("api.cache_size must not be negative, got %d", c.API.CacheSize))
	}
	if c.Retry.MaxReruns < 0 {
		errs = append(errs, fmt.Errorf("retry.max_reruns must not be negative, got %d", c.Retry.MaxReruns))
	}
	if c.Retry.Backoff < 0 {
		errs = append(errs, fmt.Errorf("retry.backoff must not be negative, got %s", c.Retry.Backoff))
	}
	switch c.Predict.Profile {
	case "standard_profile", "float_profile":
	default:
		errs = append(errs, fmt.Errorf("predict.profile must be standard_profile or float_profile, got %q", c.Predict.Profile))
	}
	if c.Predict.MaxHours < 1 || c.Predict.MinHours < 0 {
		errs = append(errs, fmt.Errorf("predict.max_hours and predict.min_hours must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
