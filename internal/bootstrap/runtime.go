// Package bootstrap wires configuration, adapters and services into a
// runtime shared by the CLI, HTTP and MCP surfaces.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pourline/pourline/internal/adapters/outbound/catalog"
	"github.com/pourline/pourline/internal/adapters/outbound/config"
	"github.com/pourline/pourline/internal/adapters/outbound/ledger"
	"github.com/pourline/pourline/internal/adapters/outbound/middleware"
	"github.com/pourline/pourline/internal/adapters/outbound/telemetry"
	"github.com/pourline/pourline/internal/application"
	"github.com/pourline/pourline/internal/domain"
	"github.com/pourline/pourline/internal/platform/logging"
	"github.com/pourline/pourline/internal/platform/resilience"
)

// Options controls how a Runtime is built.
type Options struct {
	// Dir holds .pourline.yaml; relative catalog paths resolve against it.
	Dir     string
	Version string
	// LogOutput receives log records. Defaults to stderr.
	LogOutput io.Writer
	// Loader overrides the config loader, mainly for tests.
	Loader domain.ConfigLoader
	// Mutate adjusts the loaded config before anything is wired.
	Mutate func(*domain.Config)
}

// Runtime is the wired application.
type Runtime struct {
	Config      domain.Config
	Logger      *logging.Logger
	Catalog     *domain.Catalog
	Ledger      *ledger.Store
	Client      *middleware.Client
	Breaker     *resilience.CircuitBreaker
	Metrics     *telemetry.PromSink
	Events      domain.EventSink
	Gateway     *application.GatewayService
	Canceller   *application.CreditCanceller
	Interceptor *application.QuantityInterceptor
	Operator    domain.Operator
}

// New loads the configuration and wires every component.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	loader := opts.Loader
	if loader == nil {
		loader = config.New()
	}

	// 1. Config
	cfg, err := loader.Load(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.Mutate != nil {
		opts.Mutate(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	// 2. Logging
	logger := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "pourline",
		Version:     opts.Version,
		Output:      opts.LogOutput,
	})

	// 3. Reference data
	cat, err := loadCatalog(opts.Dir, cfg.Catalog, logger)
	if err != nil {
		return nil, err
	}

	// 4. Ledger
	store, err := openLedger(ctx, opts.Dir, cfg.Ledger)
	if err != nil {
		return nil, err
	}

	// 5. Telemetry
	metrics := telemetry.NewPromSink()
	events := telemetry.Multi{telemetry.NewLogSink(logger), metrics}

	// 6. Middleware client behind the breaker
	breaker := resilience.NewCircuitBreaker(resilience.Config{
		Name:             "hart96",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		FailureRatio:     cfg.Breaker.FailureRatio,
		MinRequests:      cfg.Breaker.MinRequests,
	}, logger)
	client := middleware.New(middleware.Options{
		BaseURL:      cfg.Middleware.URL,
		Timeout:      cfg.Middleware.Timeout,
		ProbeTimeout: cfg.Middleware.ProbeTimeout,
		SerialPort:   cfg.Middleware.SerialPort,
		Baudrate:     cfg.Middleware.Baudrate,
		Breaker:      breaker,
		Observer:     metrics,
		Logger:       logger,
	})

	// 7. Services
	operator := cfg.Operator.Profile()
	gateway := application.NewGatewayService(client, store, cat, operator, logger, application.GatewayOptions{
		DefaultPLU:  cfg.Dispatch.DefaultPLU,
		AutoConnect: cfg.Middleware.AutoConnectEnabled(),
	})
	canceller := application.NewCreditCanceller(gateway, events, logger, application.CancellerOptions{
		DefaultPLU:  cfg.Dispatch.DefaultPLU,
		MaxInFlight: cfg.Cancellation.MaxInFlight,
		Timeout:     cfg.Cancellation.Timeout,
	})

	logger.Debug("runtime ready",
		"middleware", client.BaseURL(),
		"catalog_products", len(cat.Products()),
		"operator", operator.Name,
		"server_no", operator.ServerNo,
	)

	return &Runtime{
		Config:      cfg,
		Logger:      logger,
		Catalog:     cat,
		Ledger:      store,
		Client:      client,
		Breaker:     breaker,
		Metrics:     metrics,
		Events:      events,
		Gateway:     gateway,
		Canceller:   canceller,
		Interceptor: application.NewQuantityInterceptor(canceller, logger),
		Operator:    operator,
	}, nil
}

// Dispatcher builds a dispatcher reporting to notifier.
func (r *Runtime) Dispatcher(notifier domain.Notifier) *application.CreditDispatcher {
	return application.NewCreditDispatcher(
		application.NewOperatorAuthorizer(r.Operator),
		r.Gateway,
		notifier,
		r.Events,
		r.Logger,
		application.DispatcherOptions{
			DefaultPLU:  r.Config.Dispatch.DefaultPLU,
			ServerLabel: r.Operator.ServerLabel,
			Probe:       r.Config.Dispatch.ProbeEnabled(),
		},
	)
}

// Service builds the order-editor facade reporting to notifier.
func (r *Runtime) Service(notifier domain.Notifier) *application.DispenserService {
	return application.NewDispenserService(r.Interceptor, r.Dispatcher(notifier), r.Canceller)
}

// Close waits for pending cancellations and releases the ledger.
func (r *Runtime) Close() error {
	r.Canceller.Wait()
	return r.Ledger.Close()
}

func loadCatalog(dir, path string, logger *logging.Logger) (*domain.Catalog, error) {
	if path == "" {
		return domain.NewCatalog()
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	c, err := catalog.New().Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("catalog not found, starting with an empty one", "path", path)
		return domain.NewCatalog()
	}
	return c, err
}

func openLedger(ctx context.Context, dir, path string) (*ledger.Store, error) {
	if path == "" || path == ledger.MemoryDSN {
		return ledger.Open(ctx, ledger.MemoryDSN)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return ledger.Open(ctx, path)
}
