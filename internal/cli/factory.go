package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/slotflow"
	"github.com/aretw0/slotflow/internal/config"
	"github.com/aretw0/slotflow/internal/logging"
	"github.com/aretw0/slotflow/pkg/adapters/file"
	"github.com/aretw0/slotflow/pkg/adapters/httptransport"
	"github.com/aretw0/slotflow/pkg/adapters/loam"
	"github.com/aretw0/slotflow/pkg/adapters/memory"
	"github.com/aretw0/slotflow/pkg/adapters/process"
	"github.com/aretw0/slotflow/pkg/adapters/redis"
	"github.com/aretw0/slotflow/pkg/adapters/sqlite"
	"github.com/aretw0/slotflow/pkg/domain"
	"github.com/aretw0/slotflow/pkg/flows"
	"github.com/aretw0/slotflow/pkg/httpcall"
	"github.com/aretw0/slotflow/pkg/nodes"
	"github.com/aretw0/slotflow/pkg/observability"
	"github.com/aretw0/slotflow/pkg/persistence/middleware"
	"github.com/aretw0/slotflow/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
)

// localCatalogURL is requested from the in-process catalog. The host is never dialed.
const localCatalogURL = "http://catalog.local/services"

// App is a fully wired engine plus the resources the commands need.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *slotflow.Engine
	Store    ports.StateStore
	Registry *prometheus.Registry
	// Outbox collects replies when no transport URL is configured.
	Outbox *memory.Outbox

	closers []io.Closer
}

// BuildOption adjusts how an App is assembled.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logWriter io.Writer
	doer      ports.Doer
}

// WithLogWriter redirects logs, which go to stderr by default.
func WithLogWriter(w io.Writer) BuildOption {
	return func(o *buildOptions) { o.logWriter = w }
}

// WithCatalogDoer replaces the HTTP client used for catalog calls.
func WithCatalogDoer(d ports.Doer) BuildOption {
	return func(o *buildOptions) { o.doer = d }
}

// Build wires an App from cfg.
func Build(cfg *config.Config, opts ...BuildOption) (*App, error) {
	o := buildOptions{logWriter: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{
		Config:   cfg,
		Logger:   logging.NewWithWriter(o.logWriter, logging.ParseLevel(cfg.LogLevel), logging.Format(cfg.LogFormat)),
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := app.build(cfg, o); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) build(cfg *config.Config, o buildOptions) error {
	store, client, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	a.Store = store

	wrapped, err := storeMiddleware(cfg)
	if err != nil {
		return err
	}
	hooks := observability.NewMetrics(a.Registry).Hooks().Merge(observability.LogHooks(a.Logger))

	engineOpts := []slotflow.Option{
		slotflow.WithStore(middleware.Chain(store, wrapped...)),
		slotflow.WithLogger(a.Logger),
		slotflow.WithLifecycleHooks(hooks),
		slotflow.WithLockTTL(cfg.Session.LockTTL),
	}
	if cfg.Redis.Lock {
		if client == nil {
			client = backend.NewClient(&backend.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password.Value(),
				DB:       cfg.Redis.DB,
			})
			a.closers = append(a.closers, client)
		}
		engineOpts = append(engineOpts, slotflow.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix)))
	}

	transport := a.transport(cfg, hooks)
	catalog, doer, err := catalogSource(context.Background(), cfg)
	if err != nil {
		return err
	}
	if o.doer != nil {
		doer = o.doer
	}

	var extractor ports.Extractor
	if cfg.Extraction.Command != "" {
		pe, err := process.New(process.Config{Command: cfg.Extraction.Command, Args: cfg.Extraction.Args})
		if err != nil {
			return err
		}
		extractor = pe
	}

	g, err := flows.NewBooking(flows.BookingConfig{
		Transport:          transport,
		Catalog:            catalog,
		Extractor:          extractor,
		Priority:           nodes.PriorityForMode(cfg.Mode),
		NameThreshold:      cfg.Confidence.Medium,
		ExtractionTimeout:  cfg.Extraction.Timeout,
		PrimaryConfidence:  cfg.Extraction.PrimaryConfidence,
		FallbackConfidence: cfg.Extraction.FallbackConfidence,
		Doer:               doer,
		RetryCount:         cfg.Call.RetryCount,
		CallTimeout:        cfg.Call.Timeout,
		Backoff: httpcall.Backoff{
			Initial:    cfg.Call.BackoffInitial,
			Multiplier: cfg.Call.BackoffMultiplier,
			Max:        cfg.Call.BackoffMax,
		},
		Hooks:  hooks,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("build booking flow: %w", err)
	}

	a.Engine, err = slotflow.New(g, engineOpts...)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	return nil
}

// openStore returns the configured backend and, for redis, its client so
// the distributed lock can share the connection.
func (a *App) openStore(cfg *config.Config) (ports.StateStore, *backend.Client, error) {
	switch cfg.Store.Kind {
	case config.StoreFile:
		return file.New(cfg.Store.Path), nil, nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil, nil
	case config.StoreRedis:
		var opts []redis.Option
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Redis.TTL))
		}
		s := redis.New(cfg.Redis.Addr, cfg.Redis.Password.Value(), cfg.Redis.DB, opts...)
		a.closers = append(a.closers, s)
		return s, s.Client(), nil
	default:
		return memory.NewStore(), nil, nil
	}
}

// storeMiddleware returns PII masking before encryption so the ciphertext
// never holds the raw values.
func storeMiddleware(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.PII.Enabled {
		patterns := cfg.PII.Patterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultPIIPatterns
		}
		pii, err := middleware.NewPIIMiddleware(middleware.PIIConfig{KeyPatterns: patterns})
		if err != nil {
			return nil, fmt.Errorf("pii middleware: %w", err)
		}
		mws = append(mws, pii)
	}
	if cfg.Encryption.Key.IsSet() {
		active, err := middleware.ParseKey(cfg.Encryption.Key.Value())
		if err != nil {
			return nil, fmt.Errorf("encryption.key: %w", err)
		}
		var fallbacks [][]byte
		for i, k := range cfg.Encryption.FallbackKeys {
			key, err := middleware.ParseKey(k.Value())
			if err != nil {
				return nil, fmt.Errorf("encryption.fallback_keys[%d]: %w", i, err)
			}
			fallbacks = append(fallbacks, key)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallbacks,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, enc)
	}
	return mws, nil
}

func (a *App) transport(cfg *config.Config, hooks domain.LifecycleHooks) ports.Transport {
	if cfg.Transport.URL == "" {
		a.Outbox = memory.NewOutbox()
		return a.Outbox
	}
	opts := []httptransport.Option{
		httptransport.WithRetry(cfg.Call.RetryCount, cfg.Call.Timeout),
		httptransport.WithHooks(hooks),
		httptransport.WithLogger(a.Logger),
	}
	if cfg.Transport.Token.IsSet() {
		opts = append(opts, httptransport.WithToken(cfg.Transport.Token.Value()))
	}
	return httptransport.New(cfg.Transport.URL, opts...)
}

// catalogSource picks the catalog file, then the document directory, then
// the catalog URL, then the built-in demo services.
func catalogSource(ctx context.Context, cfg *config.Config) (ports.RequestBuilder, ports.Doer, error) {
	if cfg.Catalog.File != "" {
		f, err := os.Open(cfg.Catalog.File)
		if err != nil {
			return nil, nil, fmt.Errorf("open catalog: %w", err)
		}
		defer f.Close()
		services, err := flows.LoadCatalog(f)
		if err != nil {
			return nil, nil, err
		}
		return flows.CatalogRequest(localCatalogURL), flows.StaticCatalog{Services: services}, nil
	}
	if cfg.Catalog.Dir != "" {
		c, err := loam.Open(cfg.Catalog.Dir)
		if err != nil {
			return nil, nil, err
		}
		services, err := c.Services(ctx, cfg.Catalog.Services)
		if err != nil {
			return nil, nil, err
		}
		return flows.CatalogRequest(localCatalogURL), flows.StaticCatalog{Services: services}, nil
	}
	if cfg.Catalog.URL != "" {
		return flows.CatalogRequest(cfg.Catalog.URL), nil, nil
	}
	return flows.CatalogRequest(localCatalogURL), flows.StaticCatalog{Services: flows.DefaultServices}, nil
}

// Close releases store and lock connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
