package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pourline/pourline/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".pourline.yaml"

// Environment overrides applied after the file.
const (
	EnvMiddlewareURL = "POURLINE_MIDDLEWARE_URL"
	EnvServerNo      = "POURLINE_SERVER_NO"
	EnvLogLevel      = "POURLINE_LOG_LEVEL"
)

// YAMLLoader implements domain.ConfigLoader by reading .pourline.yaml.
type YAMLLoader struct {
	getenv func(string) string
}

// New creates a YAMLLoader reading overrides from the process environment.
func New() *YAMLLoader { return &YAMLLoader{getenv: os.Getenv} }

// WithEnv returns a loader reading overrides from getenv instead.
func WithEnv(getenv func(string) string) *YAMLLoader { return &YAMLLoader{getenv: getenv} }

// Load reads .pourline.yaml from dir.
// Returns DefaultConfig (plus environment overrides) if the file does not exist.
func (l *YAMLLoader) Load(dir string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return domain.Config{}, err
	default:
		var raw domain.Config
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return domain.Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
		}

		// Validate before merging: catches typos in the user's raw input.
		if err := raw.Validate(); err != nil {
			return domain.Config{}, fmt.Errorf("invalid %s: %w", FileName, err)
		}
		cfg = mergeConfig(cfg, raw)
	}

	if err := l.applyEnv(&cfg); err != nil {
		return domain.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

func (l *YAMLLoader) applyEnv(cfg *domain.Config) error {
	if l.getenv == nil {
		return nil
	}
	if v := strings.TrimSpace(l.getenv(EnvMiddlewareURL)); v != "" {
		cfg.Middleware.URL = v
	}
	if v := strings.TrimSpace(l.getenv(EnvServerNo)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvServerNo, v)
		}
		cfg.Operator.ServerNo = n
	}
	if v := strings.TrimSpace(l.getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	return nil
}

// mergeConfig overlays explicit values on top of the defaults.
// Explicit (non-zero) values always win.
func mergeConfig(base, override domain.Config) domain.Config {
	result := base

	if override.Catalog != "" {
		result.Catalog = override.Catalog
	}
	if override.Ledger != "" {
		result.Ledger = override.Ledger
	}

	m := override.Middleware
	setString(&result.Middleware.URL, m.URL)
	setString(&result.Middleware.SerialPort, m.SerialPort)
	setNonZero(&result.Middleware.Timeout, m.Timeout)
	setNonZero(&result.Middleware.ProbeTimeout, m.ProbeTimeout)
	setNonZero(&result.Middleware.Baudrate, m.Baudrate)
	if m.AutoConnect != nil {
		result.Middleware.AutoConnect = m.AutoConnect
	}

	o := override.Operator
	setString(&result.Operator.Name, o.Name)
	setString(&result.Operator.ServerLabel, o.ServerLabel)
	setNonZero(&result.Operator.ServerNo, o.ServerNo)
	if o.Barman != nil {
		result.Operator.Barman = o.Barman
	}

	setString(&result.Dispatch.DefaultPLU, override.Dispatch.DefaultPLU)
	if override.Dispatch.ProbeBeforeSend != nil {
		result.Dispatch.ProbeBeforeSend = override.Dispatch.ProbeBeforeSend
	}

	setNonZero(&result.Cancellation.MaxInFlight, override.Cancellation.MaxInFlight)
	setNonZero(&result.Cancellation.Timeout, override.Cancellation.Timeout)

	b := override.Breaker
	setNonZero(&result.Breaker.MaxRequests, b.MaxRequests)
	setNonZero(&result.Breaker.Interval, b.Interval)
	setNonZero(&result.Breaker.Timeout, b.Timeout)
	setNonZero(&result.Breaker.FailureThreshold, b.FailureThreshold)
	setNonZero(&result.Breaker.FailureRatio, b.FailureRatio)
	setNonZero(&result.Breaker.MinRequests, b.MinRequests)

	setString(&result.Log.Level, override.Log.Level)
	setString(&result.Log.Format, override.Log.Format)
	setString(&result.HTTP.Listen, override.HTTP.Listen)

	return result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNonZero[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
