package di

import (
	"context"
	"errors"
	"io"
	"testing"

	"AstraMind/pkg/config"
	applogger "AstraMind/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	return cfg
}

func TestDisabledBackendsReturnNoopCleanup(t *testing.T) {
	cfg := testConfig(t)
	l := applogger.NewNop()

	ch, chCleanup, err := ProvideClickHouseClient(cfg, l)
	if err != nil || ch != nil || chCleanup == nil {
		t.Fatalf("clickhouse: client=%v cleanup nil=%v err=%v", ch, chCleanup == nil, err)
	}
	rdb, rdbCleanup, err := ProvideRedisClient(cfg, l)
	if err != nil || rdb != nil || rdbCleanup == nil {
		t.Fatalf("redis: client=%v cleanup nil=%v err=%v", rdb, rdbCleanup == nil, err)
	}
	p, pCleanup, err := ProvideKafkaProducer(cfg, l, prometheus.NewRegistry())
	if err != nil || p != nil || pCleanup == nil {
		t.Fatalf("producer: %v cleanup nil=%v err=%v", p, pCleanup == nil, err)
	}
	chCleanup()
	rdbCleanup()
	pCleanup()
}

func TestProducerCleanupClosesWriter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"127.0.0.1:1"}

	p, cleanup, err := ProvideKafkaProducer(cfg, applogger.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("provide producer: %v", err)
	}
	cleanup()

	err = p.Publish(context.Background(), "astramind.decisions", []byte("BTC"), []byte("{}"))
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("publish after cleanup: expected closed pipe, got %v", err)
	}
}

func TestInitializeAppFailureReturnsNoCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil

	app, cleanup, err := InitializeApp(cfg)
	if err == nil {
		t.Fatal("expected producer error without brokers")
	}
	if app != nil || cleanup != nil {
		t.Fatalf("failed init leaked app=%v cleanup nil=%v", app, cleanup == nil)
	}
}
