package di

import (
	"context"
	"fmt"
	"time"

	domrepo "AstraMind/internal/domain/repository"
	"AstraMind/internal/handler/api"
	"AstraMind/internal/handler/ws"
	internalrepo "AstraMind/internal/repository"
	icache "AstraMind/internal/service/cache"
	"AstraMind/internal/service/ratelimit"
	"AstraMind/internal/services/core"
	"AstraMind/internal/services/encoder"
	"AstraMind/internal/services/gating"
	"AstraMind/internal/services/losses"
	"AstraMind/internal/services/sentinel"
	"AstraMind/internal/services/uncertainty"
	"AstraMind/internal/usecase"
	pkgcache "AstraMind/pkg/cache"
	pkgch "AstraMind/pkg/clickhouse"
	"AstraMind/pkg/config"
	xhttp "AstraMind/pkg/http"
	pkgkafka "AstraMind/pkg/kafka"
	applogger "AstraMind/pkg/logger"
	"AstraMind/pkg/metrics"
	"AstraMind/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.New(reg)
}

// ProvideClickHouseClient connects to ClickHouse, or returns nil when disabled.
// The cleanup closes the pool.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		l.Info("clickhouse disabled")
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	l.Info("clickhouse connected",
		applogger.String("host", cfg.ClickHouse.Host),
		applogger.String("database", cfg.ClickHouse.Database),
	)
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideRedisClient connects to Redis, or returns nil when disabled.
func ProvideRedisClient(cfg *config.Config, l *applogger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		l.Info("redis disabled")
		return nil, func() {}, nil
	}
	client, err := pkgcache.NewRedisClient(context.Background(),
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle, 30*time.Second),
		pkgcache.WithRedisDialTimeout(cfg.Redis.DialTimeout),
	)
	if err != nil {
		return nil, nil, err
	}
	l.Info("redis connected", applogger.String("addr", cfg.Redis.Addr))
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideKafkaProducer creates the decision producer, or nil when disabled.
// The cleanup flushes and closes the writer.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		l.Info("kafka disabled")
		return nil, func() {}, nil
	}
	p := cfg.Kafka.Producer
	producer, err := pkgkafka.NewProducer(l, reg,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(p.BatchSize, p.BatchBytes, p.Linger),
		pkgkafka.WithTimeouts(p.WriteTimeout, p.ReadTimeout),
		pkgkafka.WithMaxAttempts(p.MaxAttempts),
		pkgkafka.WithAsync(p.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideKafkaConsumer creates the observation consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, reg *prometheus.Registry) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	cc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(l, reg,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cc.GroupID),
		pkgkafka.WithConsumerWorkers(cc.Workers),
		pkgkafka.WithConsumerBufferSize(cc.BufferSize),
		pkgkafka.WithConsumerRetry(cc.RetryMax, cc.BackoffMin, cc.BackoffMax),
		pkgkafka.WithConsumerDLQ(cc.DLQTopic),
		pkgkafka.WithConsumerFetch(cc.MinBytes, cc.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.LoggingHook{Log: l, Slow: 250 * time.Millisecond})
	return consumer, nil
}

// ProvideFeatureStore reads candles from ClickHouse when it is enabled.
func ProvideFeatureStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) domrepo.FeatureStore {
	if ch == nil {
		return internalrepo.DisabledFeatureStore{}
	}
	t := cfg.ClickHouse.CandleTables
	return internalrepo.NewCHFeatureStore(ch, internalrepo.CandleTables{Short: t.Short, Mid: t.Mid, Long: t.Long}, l)
}

// ProvideDecisionStore persists decisions to ClickHouse when it is enabled.
func ProvideDecisionStore(ch *pkgch.Client, l *applogger.Logger) (domrepo.DecisionStore, error) {
	if ch == nil {
		return internalrepo.NoopDecisionStore{}, nil
	}
	store := internalrepo.NewCHDecisionStore(ch, l)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("decision store: %w", err)
	}
	return store, nil
}

// ProvideDecisionPublisher publishes decisions to Kafka when it is enabled.
func ProvideDecisionPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) domrepo.DecisionPublisher {
	if producer == nil {
		return internalrepo.NoopDecisionPublisher{}
	}
	return internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic, l)
}

// ProvideSentinelStore keeps sentinel snapshots in Redis when it is enabled.
func ProvideSentinelStore(cfg *config.Config, rdb *redis.Client) domrepo.SentinelStore {
	if rdb == nil {
		return internalrepo.NoopSentinelStore{}
	}
	return internalrepo.NewRedisSentinelStore(rdb, cfg.Redis.Prefix, cfg.Sentinel.SnapshotTTL)
}

// ProvideBytesCache returns a Redis-backed layered cache, or a local one.
func ProvideBytesCache(cfg *config.Config, rdb *redis.Client) icache.BytesCache {
	if rdb == nil {
		return icache.NewTTLCache()
	}
	remote := icache.NewRedisCache(rdb, cfg.Redis.Prefix)
	return icache.NewLayeredCache(remote, cfg.Redis.LocalEntries, cfg.Features.CacheTTL)
}

// ProvideModel builds the predictor from the model section.
func ProvideModel(cfg *config.Config) (*core.Model, error) {
	m := cfg.Model
	return core.New(core.Config{
		Encoder: encoder.Config{
			InputSize: m.InputSize,
			Hidden:    m.Hidden,
			NumLayers: m.NumLayers,
			Heads:     m.Heads,
			Dropout:   m.Dropout,
			MaxLen:    m.MaxLen,
		},
		Horizons: m.Horizons,
		Actions:  m.Actions,
		Seed:     m.Seed,
	})
}

func ProvideEstimator(cfg *config.Config, model *core.Model) *uncertainty.Estimator {
	u := cfg.Uncertainty
	return uncertainty.New(model, uncertainty.Config{Passes: u.Passes, Parallelism: u.Parallelism, Seed: u.Seed})
}

func ProvideGate(model *core.Model) (*gating.Gate, error) {
	return gating.New(model.Actions(), len(model.Horizons()))
}

func ProvideHub(l *applogger.Logger) *ws.Hub {
	return ws.NewHub(l)
}

func ProvideSentinelRegistry(cfg *config.Config, store domrepo.SentinelStore, m domrepo.Metrics, l *applogger.Logger) (*usecase.SentinelRegistry, error) {
	s := cfg.Sentinel
	return usecase.NewSentinelRegistry(sentinel.Config{
		WindowRef: s.WindowRef,
		WindowCur: s.WindowCur,
		DThresh:   s.DThresh,
		HMax:      s.HMax,
	}, store, m, l)
}

func ProvideDecisionEngine(
	cfg *config.Config,
	model *core.Model,
	est *uncertainty.Estimator,
	gate *gating.Gate,
	fs domrepo.FeatureStore,
	ds domrepo.DecisionStore,
	pub domrepo.DecisionPublisher,
	hub *ws.Hub,
	reg *usecase.SentinelRegistry,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.DecisionEngine {
	return usecase.NewDecisionEngine(usecase.Deps{
		Model:       model,
		Estimator:   est,
		Gate:        gate,
		Features:    fs,
		Decisions:   ds,
		Publisher:   pub,
		Broadcaster: hub,
		Sentinels:   reg,
		Metrics:     m,
		Logger:      l.With(applogger.String("component", "decision_engine")),
	}, usecase.EngineConfig{
		Passes:  cfg.Uncertainty.Passes,
		Seed:    cfg.Uncertainty.Seed,
		Regime:  cfg.Gating.Regime,
		Tau:     cfg.Gating.Tau,
		Candles: cfg.Features.Candles,
		Physics: losses.PhysicsConfig{
			MaxMovePerStep:     cfg.Losses.MaxMovePerStep,
			VolumeSmoothLambda: cfg.Losses.VolumeSmoothLambda,
		},
	})
}

func ProvideObservationHandler(cfg *config.Config, reg *usecase.SentinelRegistry, m domrepo.Metrics) *usecase.ObservationHandler {
	return usecase.NewObservationHandler(cfg.Kafka.ObservationTopic, reg, m)
}

func ProvideDecisionLoop(cfg *config.Config, engine *usecase.DecisionEngine, m domrepo.Metrics, l *applogger.Logger) *usecase.DecisionLoop {
	s := cfg.Schedule
	return usecase.NewDecisionLoop(engine, s.Symbols, s.Interval, m, l, usecase.WithLoopRegime(s.Regime))
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideHandlers lists every route group served by the HTTP server.
func ProvideHandlers(
	cfg *config.Config,
	l *applogger.Logger,
	engine *usecase.DecisionEngine,
	reg *usecase.SentinelRegistry,
	cache icache.BytesCache,
	rl *ratelimit.Limiter,
	hub *ws.Hub,
	ch *pkgch.Client,
	rdb *redis.Client,
) []xhttp.Handler {
	var probes []api.Probe
	if ch != nil {
		probes = append(probes, api.Probe{Name: "clickhouse", Check: ch.Health})
	}
	if rdb != nil {
		probes = append(probes, api.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return []xhttp.Handler{
		api.NewReadinessHandler(l, probes...),
		api.NewDecisionsEchoHandler(l, engine, cache, cfg.Features.CacheTTL, rl),
		api.NewSentinelEchoHandler(l, reg),
		api.NewLossesEchoHandler(l, engine),
		hub,
	}
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, handlers []xhttp.Handler, reg *prometheus.Registry) *xhttp.Server {
	return xhttp.NewServer(l, handlers,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithRegistry(reg),
	)
}

// ProvideApp assembles the application lifecycle. Infrastructure clients are
// closed by the injector cleanup, after App.Shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	consumer *pkgkafka.Consumer,
	obs *usecase.ObservationHandler,
	loop *usecase.DecisionLoop,
	registry *usecase.SentinelRegistry,
	rl *ratelimit.Limiter,
	cache icache.BytesCache,
	ds domrepo.DecisionStore,
) *server.App {
	return server.New(cfg, l, server.Components{
		HTTP:         httpServer,
		Hub:          hub,
		Consumer:     consumer,
		Observations: obs,
		Loop:         loop,
		Sentinels:    registry,
		Limiter:      rl,
		Cache:        cache,
		Decisions:    ds,
	})
}
