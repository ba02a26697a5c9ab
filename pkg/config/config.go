package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"AstraMind/pkg/util"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	Model       ModelConfig       `yaml:"model"`
	Uncertainty UncertaintyConfig `yaml:"uncertainty"`
	Gating      GatingConfig      `yaml:"gating"`
	Sentinel    SentinelConfig    `yaml:"sentinel"`
	Losses      LossesConfig      `yaml:"losses"`
	Features    FeaturesConfig    `yaml:"features"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Redis       RedisConfig       `yaml:"redis"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	CORS            bool          `yaml:"cors" default:"true"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ModelConfig struct {
	InputSize int     `yaml:"input_size" default:"20" validate:"gt=0"`
	Hidden    int     `yaml:"hidden" default:"96" validate:"gte=2"`
	NumLayers int     `yaml:"num_layers" default:"2" validate:"gt=0"`
	Heads     int     `yaml:"heads" default:"4" validate:"gt=0"`
	Dropout   float64 `yaml:"dropout" default:"0.2" validate:"gte=0,lt=1"`
	MaxLen    int     `yaml:"max_len" default:"512" validate:"gt=0"`
	Horizons  []int   `yaml:"horizons" default:"[1,3,5]" validate:"min=1,dive,gt=0"`
	Actions   int     `yaml:"actions" default:"3" validate:"gt=0"`
	Seed      int64   `yaml:"seed" default:"42"`
}

type UncertaintyConfig struct {
	Passes      int   `yaml:"passes" default:"10" validate:"gte=1,lte=256"`
	Parallelism int   `yaml:"parallelism" default:"4" validate:"gte=1"`
	Seed        int64 `yaml:"seed" default:"1"`
}

type GatingConfig struct {
	Regime string   `yaml:"regime" default:"retail" validate:"oneof=whale institutional algo retail"`
	Tau    *float64 `yaml:"tau"`
}

type SentinelConfig struct {
	WindowRef   int           `yaml:"window_ref" default:"256" validate:"gt=0"`
	WindowCur   int           `yaml:"window_cur" default:"128" validate:"gt=0"`
	DThresh     float64       `yaml:"d_thresh" default:"0.18" validate:"gte=0"`
	HMax        float64       `yaml:"h_max" default:"0.45" validate:"gte=0"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"24h"`
}

type LossesConfig struct {
	MaxMovePerStep     float64 `yaml:"max_move_per_step" default:"0.2" validate:"gt=0"`
	VolumeSmoothLambda float64 `yaml:"volume_smooth_lambda" validate:"gte=0"`
}

type FeaturesConfig struct {
	Candles  int           `yaml:"candles" default:"64" validate:"gte=40,lte=512"`
	CacheTTL time.Duration `yaml:"cache_ttl" default:"5s"`
}

type KafkaConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Brokers          []string `yaml:"brokers"`
	DecisionsTopic   string   `yaml:"decisions_topic" default:"astramind.decisions"`
	ObservationTopic string   `yaml:"observations_topic" default:"astramind.observations"`
	RequiredAcks     int      `yaml:"required_acks" default:"-1"`
	Compression      string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	Producer         struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"astramind-sentinel"`
		Workers    int           `yaml:"workers" default:"4"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"astramind"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	CandleTables     struct {
		Short string `yaml:"short" default:"astramind.candles_1s"`
		Mid   string `yaml:"mid" default:"astramind.candles_1m"`
		Long  string `yaml:"long" default:"astramind.candles_5m"`
	} `yaml:"candle_tables"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"astramind:"`
	PoolSize int    `yaml:"pool_size" default:"10" validate:"gt=0"`
	MinIdle  int    `yaml:"min_idle" default:"2" validate:"gte=0"`
	// Size of the in-process layer in front of the Redis response cache.
	LocalEntries int           `yaml:"local_entries" default:"1024" validate:"gte=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
}

type RateLimitConfig struct {
	Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"10" validate:"gt=0"`
}

// ScheduleConfig drives periodic decisions on a watchlist. An empty
// watchlist or zero interval disables it.
type ScheduleConfig struct {
	Symbols  []string      `yaml:"symbols"`
	Interval time.Duration `yaml:"interval"`
	Regime   string        `yaml:"regime" validate:"omitempty,oneof=whale institutional algo retail"`
}

var validate = validator.New()

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing fields take their
// defaults before validation.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from the given lookup (os.Getenv in production).
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	c.Server.Port = util.ParseIntDefault(getenv("HTTP_PORT"), c.Server.Port)
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitCSV(v)
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	c.Model.Seed = util.ParseInt64Default(getenv("MODEL_SEED"), c.Model.Seed)
	c.Uncertainty.Passes = util.ParseIntDefault(getenv("MC_PASSES"), c.Uncertainty.Passes)
	if v := getenv("GATING_REGIME"); v != "" {
		c.Gating.Regime = v
	}
	if v := getenv("SCHEDULE_SYMBOLS"); v != "" {
		c.Schedule.Symbols = util.SplitCSV(v)
	}
	if v := getenv("GATING_TAU"); v != "" {
		tau := util.ParseFloatDefault(v, 0)
		c.Gating.Tau = &tau
	}
}

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Model.Hidden%c.Model.Heads != 0 {
		return fmt.Errorf("model.hidden (%d) must be divisible by model.heads (%d)", c.Model.Hidden, c.Model.Heads)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if len(c.Schedule.Symbols) > 0 && c.Schedule.Interval > 0 && !c.ClickHouse.Enabled {
		return fmt.Errorf("schedule requires clickhouse to be enabled")
	}
	if c.Features.Candles > c.Model.MaxLen {
		return fmt.Errorf("features.candles (%d) exceeds model.max_len (%d)", c.Features.Candles, c.Model.MaxLen)
	}
	return nil
}
