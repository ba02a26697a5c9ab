package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

var (
	_ domrepo.FeatureStore      = (*CHFeatureStore)(nil)
	_ domrepo.FeatureStore      = DisabledFeatureStore{}
	_ domrepo.DecisionStore     = (*CHDecisionStore)(nil)
	_ domrepo.DecisionStore     = NoopDecisionStore{}
	_ domrepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)
	_ domrepo.DecisionPublisher = NoopDecisionPublisher{}
	_ domrepo.SentinelStore     = (*RedisSentinelStore)(nil)
	_ domrepo.SentinelStore     = NoopSentinelStore{}
)

func TestCandleTablesForTimeframe(t *testing.T) {
	tables := DefaultCandleTables()
	want := map[domrepo.Timeframe]string{
		domrepo.TF1s: "astramind.candles_1s",
		domrepo.TF1m: "astramind.candles_1m",
		domrepo.TF5m: "astramind.candles_5m",
	}
	for tf, table := range want {
		got, err := tables.forTimeframe(tf)
		if err != nil || got != table {
			t.Fatalf("%s: got %q, %v", tf, got, err)
		}
	}
	if _, err := tables.forTimeframe("1h"); err == nil {
		t.Fatalf("expected error for unsupported timeframe")
	}
}

func TestReverseCandles(t *testing.T) {
	c := []models.Candle{{Close: 1}, {Close: 2}, {Close: 3}}
	reverseCandles(c)
	if c[0].Close != 3 || c[2].Close != 1 {
		t.Fatalf("unexpected order %+v", c)
	}
}

func TestDecisionRowColumnOrder(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	row := decisionRow(models.Decision{ID: "id-1", Symbol: "BTC", Action: 2, Timestamp: ts, Sentinel: models.SentinelStatus{KS: 0.3}})
	if len(row) != 17 {
		t.Fatalf("row has %d columns, want 17", len(row))
	}
	if row[3].(time.Time).Location() != time.UTC {
		t.Fatalf("timestamp must be stored in UTC")
	}
	if row[4].(uint8) != 2 || row[16].(float64) != 0.3 {
		t.Fatalf("unexpected row %v", row)
	}
	if s := row[8].([]float64); s == nil {
		t.Fatalf("nil arrays must be replaced with empty slices")
	}
}

type recordingPublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topic, r.key, r.value = topic, key, value
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func TestKafkaDecisionPublisherKeysBySymbol(t *testing.T) {
	rp := &recordingPublisher{}
	p := NewKafkaDecisionPublisher(rp, "astramind.decisions", nil)
	if err := p.PublishDecision(context.Background(), models.Decision{Symbol: "ETH"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if rp.topic != "astramind.decisions" || string(rp.key) != "ETH" {
		t.Fatalf("unexpected publish %q %q", rp.topic, rp.key)
	}
}

func TestNoopStores(t *testing.T) {
	ctx := context.Background()
	if _, err := (NoopSentinelStore{}).Load(ctx, "BTC"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := (DisabledFeatureStore{}).GetLatestNCandles(ctx, "BTC", 10, domrepo.TF1m); !errors.Is(err, ErrFeatureStoreDisabled) {
		t.Fatalf("expected ErrFeatureStoreDisabled, got %v", err)
	}
}

func TestRedisSentinelKey(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()
	s := NewRedisSentinelStore(rdb, "astramind:", time.Hour)
	if got := s.key("BTC"); got != "astramind:sentinel:BTC" {
		t.Fatalf("key = %q", got)
	}
}
