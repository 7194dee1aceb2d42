package domain

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime configuration loaded from .pourline.yaml.
type Config struct {
	Catalog      string             `yaml:"catalog"      json:"catalog,omitempty"`
	Ledger       string             `yaml:"ledger"       json:"ledger,omitempty"`
	Middleware   MiddlewareConfig   `yaml:"middleware"   json:"middleware"`
	Operator     OperatorConfig     `yaml:"operator"     json:"operator"`
	Dispatch     DispatchConfig     `yaml:"dispatch"     json:"dispatch"`
	Cancellation CancellationConfig `yaml:"cancellation" json:"cancellation"`
	Breaker      BreakerConfig      `yaml:"breaker"      json:"breaker"`
	Log          LogConfig          `yaml:"log"          json:"log"`
	HTTP         HTTPConfig         `yaml:"http"         json:"http"`
}

// MiddlewareConfig locates the Hart96 middleware.
type MiddlewareConfig struct {
	URL          string        `yaml:"url"           json:"url,omitempty"           validate:"omitempty,url"`
	Timeout      time.Duration `yaml:"timeout"       json:"timeout,omitempty"       validate:"gte=0"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout,omitempty" validate:"gte=0"`
	SerialPort   string        `yaml:"serial_port"   json:"serial_port,omitempty"`
	Baudrate     int           `yaml:"baudrate"      json:"baudrate,omitempty"      validate:"gte=0"`
	AutoConnect  *bool         `yaml:"auto_connect"  json:"auto_connect,omitempty"`
}

// OperatorConfig describes who is pouring.
type OperatorConfig struct {
	Name        string `yaml:"name"         json:"name,omitempty"`
	ServerNo    int    `yaml:"server_no"    json:"server_no,omitempty"    validate:"gte=0,lte=99"`
	Barman      *bool  `yaml:"barman"       json:"barman,omitempty"`
	ServerLabel string `yaml:"server_label" json:"server_label,omitempty"`
}

// DispatchConfig tunes the send-to-dispenser action.
type DispatchConfig struct {
	DefaultPLU      string `yaml:"default_plu"       json:"default_plu,omitempty"`
	ProbeBeforeSend *bool  `yaml:"probe_before_send" json:"probe_before_send,omitempty"`
}

// CancellationConfig bounds detached credit cancellations.
type CancellationConfig struct {
	MaxInFlight int           `yaml:"max_in_flight" json:"max_in_flight,omitempty" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout"       json:"timeout,omitempty"       validate:"gte=0"`
}

// BreakerConfig tunes the circuit breaker in front of the middleware.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"      json:"max_requests,omitempty"`
	Interval         time.Duration `yaml:"interval"          json:"interval,omitempty"          validate:"gte=0"`
	Timeout          time.Duration `yaml:"timeout"           json:"timeout,omitempty"           validate:"gte=0"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold,omitempty"`
	FailureRatio     float64       `yaml:"failure_ratio"     json:"failure_ratio,omitempty"     validate:"gte=0,lte=1"`
	MinRequests      uint32        `yaml:"min_requests"      json:"min_requests,omitempty"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"  json:"level,omitempty"  validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" json:"format,omitempty" validate:"omitempty,oneof=json text"`
}

// HTTPConfig configures the HTTP API listener.
type HTTPConfig struct {
	Listen string `yaml:"listen" json:"listen,omitempty" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	autoConnect, probe, barman := true, true, true
	return Config{
		Catalog: "catalog.yaml",
		Ledger:  ".pourline/ledger.db",
		Middleware: MiddlewareConfig{
			URL:          "http://192.168.1.59:5000",
			Timeout:      10 * time.Second,
			ProbeTimeout: 5 * time.Second,
			SerialPort:   "COM1",
			Baudrate:     9600,
			AutoConnect:  &autoConnect,
		},
		Operator: OperatorConfig{
			ServerNo:    1,
			Barman:      &barman,
			ServerLabel: "Serveur",
		},
		Dispatch: DispatchConfig{
			DefaultPLU:      DefaultPLU,
			ProbeBeforeSend: &probe,
		},
		Cancellation: CancellationConfig{
			MaxInFlight: 4,
			Timeout:     15 * time.Second,
		},
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
			FailureRatio:     0.6,
			MinRequests:      10,
		},
		Log:  LogConfig{Level: "info", Format: "json"},
		HTTP: HTTPConfig{Listen: ":8089"},
	}
}

var validate = validator.New()

// Validate checks the config for invalid values and returns a descriptive error.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Dispatch.DefaultPLU != "" {
		if _, err := PLUNumber(c.Dispatch.DefaultPLU); err != nil {
			return fmt.Errorf("dispatch.default_plu: %w", err)
		}
	}

	if c.Middleware.ProbeTimeout > 0 && c.Middleware.Timeout > 0 && c.Middleware.ProbeTimeout > c.Middleware.Timeout {
		return fmt.Errorf("middleware.probe_timeout (%s) must not exceed middleware.timeout (%s)",
			c.Middleware.ProbeTimeout, c.Middleware.Timeout)
	}

	return nil
}

// AutoConnectEnabled reports whether each send is wrapped in connect/disconnect.
func (m MiddlewareConfig) AutoConnectEnabled() bool { return boolOr(m.AutoConnect, true) }

// ProbeEnabled reports whether dispatch starts with a connectivity probe.
func (d DispatchConfig) ProbeEnabled() bool { return boolOr(d.ProbeBeforeSend, true) }

// Profile returns the operator described by the config.
func (o OperatorConfig) Profile() Operator {
	return Operator{
		Name:        o.Name,
		ServerNo:    o.ServerNo,
		Barman:      boolOr(o.Barman, true),
		ServerLabel: o.ServerLabel,
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
