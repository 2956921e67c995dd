package di

import (
	"context"
	"fmt"
	"time"

	"RegimeAPI/internal/domain/repository"
	domsvc "RegimeAPI/internal/domain/service"
	"RegimeAPI/internal/handler/api"
	internalrepo "RegimeAPI/internal/repository"
	"RegimeAPI/internal/service/alpaca"
	"RegimeAPI/internal/service/breaker"
	"RegimeAPI/internal/service/ratelimit"
	"RegimeAPI/internal/service/yahoo"
	"RegimeAPI/internal/services/analytics"
	"RegimeAPI/internal/usecase"
	"RegimeAPI/pkg/cache"
	pkgch "RegimeAPI/pkg/clickhouse"
	"RegimeAPI/pkg/config"
	xhttp "RegimeAPI/pkg/http"
	pkgkafka "RegimeAPI/pkg/kafka"
	applogger "RegimeAPI/pkg/logger"
	"RegimeAPI/pkg/metrics"
	"RegimeAPI/pkg/pool"
	"RegimeAPI/pkg/postgres"
	"RegimeAPI/pkg/server"

	"github.com/google/wire"
)

// ServiceName identifies the API in banners and logs.
const ServiceName = "regimeapi"

// ProviderSet holds every provider shared by the server and the CLI.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideSymbolRegistry,
	ProvideBarSource,
	ProvideCache,
	ProvideKafkaProducer,
	ProvideEventPublisher,
	ProvideRegimeModel,
	ProvidePool,
	usecase.NewQuoteFetcher,
	usecase.NewRegimeUseCase,
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", ServiceName), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

func ProvideSymbolRegistry(cfg *config.Config) repository.SymbolRegistry {
	return internalrepo.NewSymbolRegistry(cfg.Symbols)
}

// ProvideBarSource opens the configured market-data backend and guards it with a circuit breaker.
func ProvideBarSource(cfg *config.Config, l *applogger.Logger) (repository.BarSource, func(), error) {
	var (
		src     repository.BarSource
		cleanup = func() {}
	)

	switch cfg.Provider.Type {
	case "yahoo":
		src = yahoo.New(yahoo.WithLogger(l))
	case "alpaca":
		a := cfg.Provider.Alpaca
		src = alpaca.New(alpaca.Config{
			APIKey:    a.APIKey,
			APISecret: a.APISecret,
			BaseURL:   a.BaseURL,
			Feed:      a.Feed,
			Timeout:   cfg.Provider.Timeout,
		}, l)
	case "clickhouse":
		store, closeFn, err := provideClickHouseStore(cfg, l)
		if err != nil {
			return nil, nil, err
		}
		src, cleanup = store, closeFn
	case "postgres":
		pc := cfg.Provider.Postgres
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pgPool, err := postgres.Connect(ctx, postgres.Config{
			Host: pc.Host, Port: pc.Port, Name: pc.Name, User: pc.User, Password: pc.Password,
			SSLMode: pc.SSLMode, MinConns: pc.MinConns, MaxConns: pc.MaxConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		store := internalrepo.NewPGBarStore(pgPool, pc.Table)
		store.SetLogger(l)
		src, cleanup = store, pgPool.Close
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider.Type)
	}

	if cfg.Breaker.Enabled {
		b := cfg.Breaker
		src = breaker.New(src, breaker.Settings{
			MaxRequests:         b.MaxRequests,
			Interval:            b.Interval,
			Timeout:             b.Timeout,
			ConsecutiveFailures: b.ConsecutiveFailures,
		}, l)
	}
	l.Info("bar source ready", applogger.String("provider", src.Name()), applogger.Bool("breaker", cfg.Breaker.Enabled))
	return src, cleanup, nil
}

func provideClickHouseStore(cfg *config.Config, l *applogger.Logger) (*internalrepo.CHBarStore, func(), error) {
	cc := cfg.Provider.ClickHouse
	client, err := pkgch.NewClient(
		pkgch.WithHost(cc.Host),
		pkgch.WithPort(cc.Port),
		pkgch.WithDatabase(cc.Database),
		pkgch.WithCredentials(cc.User, cc.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cc.UseHTTP),
		pkgch.WithTimeouts(cc.DialTimeout, cc.ReadTimeout),
		pkgch.WithMaxExecutionTime(cc.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	store := internalrepo.NewCHBarStore(client, cc.Table)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, store.SchemaStatements()); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return store, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideCache builds the layered cache: memory always, Redis when enabled.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	var rc *cache.RedisCache
	if cfg.Cache.Redis.Enabled {
		r := cfg.Cache.Redis
		var err error
		rc, err = cache.NewRedisCache(
			cache.WithRedisHost(r.Host),
			cache.WithRedisPort(r.Port),
			cache.WithRedisPassword(r.Password),
			cache.WithRedisDB(r.DB),
			cache.WithRedisPrefix(r.Prefix),
			cache.WithRedisPool(r.PoolSize, r.MinIdleConns, r.PoolTimeout),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
	}

	c := cache.NewLayeredCache(rc,
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredL1TTL(cfg.Cache.L1TTL),
		cache.WithLayeredCleanup(cfg.Cache.Cleanup),
	)
	return c, func() {
		if err := c.Close(); err != nil {
			l.Warn("cache close error", applogger.Error(err))
		}
	}, nil
}

// ProvideKafkaProducer creates a Kafka producer when events are enabled and attaches the
// log collector to it when configured. Returns nil when events are disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Events.Enabled {
		return nil, func() {}, nil
	}
	ev := cfg.Events
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(ev.Brokers),
		pkgkafka.WithCompression(ev.Compression),
		pkgkafka.WithRequiredAcks(ev.RequiredAcks),
		pkgkafka.WithMaxAttempts(ev.MaxAttempts),
		pkgkafka.WithTimeouts(ev.WriteTimeout, ev.WriteTimeout),
		pkgkafka.WithAsync(ev.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	lc := cfg.Log.Collector
	if lc.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   lc.Interval,
			CountThreshold: lc.Threshold,
			Topic:          lc.Topic,
			Publisher:      producer,
		})
	}

	return producer, func() {
		if lc.Enabled {
			l.RemoveCollector()
		}
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideEventPublisher returns nil when no producer is configured.
func ProvideEventPublisher(p *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if p == nil {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(p, cfg.Events.Topic)
}

func ProvideRegimeModel(cfg *config.Config, l *applogger.Logger) domsvc.RegimeModel {
	return analytics.NewHMMRegimeDetector(cfg, l)
}

func ProvidePool(cfg *config.Config) *pool.Pool {
	return pool.New(cfg.Regime.Workers)
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideHTTPServer builds the Echo server with every API handler registered.
func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	registry repository.SymbolRegistry,
	source repository.BarSource,
	c cache.Service,
	quotes *usecase.QuoteFetcher,
	regimes *usecase.RegimeUseCase,
	limiter *ratelimit.Limiter,
) *xhttp.Server {
	checks := map[string]api.Pinger{"cache": c}
	if p, ok := source.(api.Pinger); ok {
		checks["provider"] = p
	}

	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithRequestTimeout(cfg.Server.RequestTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithRateLimiter(limiter))
	}

	return xhttp.NewServer(l, []xhttp.Handler{
		api.NewSystemEchoHandler(ServiceName, registry, checks),
		api.NewMarketEchoHandler(l, quotes, regimes),
	}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, limiter *ratelimit.Limiter) *server.App {
	return server.New(cfg, l, srv, limiter)
}
