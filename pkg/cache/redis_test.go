package cache

import (
	"testing"
	"time"
)

func TestRedisOptions(t *testing.T) {
	cfg := defaultRedisConfig()
	for _, opt := range []RedisOption{
		WithRedisAddr("redis:6380"),
		WithRedisPassword("secret"),
		WithRedisDB(3),
		WithRedisPool(32, 4, time.Second),
		WithRedisDialTimeout(2 * time.Second),
	} {
		opt(cfg)
	}
	o := cfg.Options()
	if o.Addr != "redis:6380" || o.Password != "secret" || o.DB != 3 {
		t.Fatalf("connection options %+v", o)
	}
	if o.PoolSize != 32 || o.MinIdleConns != 4 || o.PoolTimeout != time.Second || o.DialTimeout != 2*time.Second {
		t.Fatalf("pool options %+v", o)
	}
}

func TestRedisDefaults(t *testing.T) {
	o := defaultRedisConfig().Options()
	if o.Addr != "localhost:6379" || o.PoolSize != 10 || o.DialTimeout != 5*time.Second {
		t.Fatalf("defaults %+v", o)
	}
}
