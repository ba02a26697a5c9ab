package config

import (
	"testing"
	"time"
)

func TestDefaultMatchesReferenceModel(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if c.Model.InputSize != 20 || c.Model.Hidden != 96 || c.Model.NumLayers != 2 || c.Model.Heads != 4 || c.Model.Dropout != 0.2 {
		t.Fatalf("unexpected model defaults %+v", c.Model)
	}
	if len(c.Model.Horizons) != 3 || c.Model.Horizons[2] != 5 {
		t.Fatalf("unexpected horizons %v", c.Model.Horizons)
	}
	if c.Sentinel.WindowRef != 256 || c.Sentinel.WindowCur != 128 || c.Sentinel.DThresh != 0.18 || c.Sentinel.HMax != 0.45 {
		t.Fatalf("unexpected sentinel defaults %+v", c.Sentinel)
	}
	if c.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("read timeout = %v", c.Server.ReadTimeout)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte(`
environment: staging
model:
  hidden: 32
  heads: 4
uncertainty:
  passes: 6
gating:
  regime: whale
sentinel:
  window_ref: 10
  window_cur: 5
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Environment != "staging" || c.Model.Hidden != 32 || c.Uncertainty.Passes != 6 || c.Gating.Regime != "whale" {
		t.Fatalf("explicit values lost: %+v", c)
	}
	if c.Sentinel.WindowRef != 10 || c.Sentinel.HMax != 0.45 {
		t.Fatalf("unexpected sentinel %+v", c.Sentinel)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"indivisible heads": "model:\n  hidden: 30\n  heads: 4\n",
		"unknown regime":    "gating:\n  regime: pirate\n",
		"kafka no brokers":  "kafka:\n  enabled: true\n",
		"dropout too high":  "model:\n  dropout: 1.5\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	env := map[string]string{
		"HTTP_PORT":        "9090",
		"KAFKA_BROKERS":    "a:9092, b:9092",
		"GATING_TAU":       "0.3",
		"MODEL_SEED":       "7",
		"SCHEDULE_SYMBOLS": "BTCUSDT,ETHUSDT",
	}
	c.ApplyEnv(func(k string) string { return env[k] })
	if c.Server.Port != 9090 || c.Model.Seed != 7 {
		t.Fatalf("overrides not applied: port=%d seed=%d", c.Server.Port, c.Model.Seed)
	}
	if !c.Kafka.Enabled || len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("unexpected kafka %+v", c.Kafka)
	}
	if c.Gating.Tau == nil || *c.Gating.Tau != 0.3 {
		t.Fatalf("tau override missing")
	}
	if len(c.Schedule.Symbols) != 2 || c.Schedule.Symbols[0] != "BTCUSDT" {
		t.Fatalf("schedule symbols %v", c.Schedule.Symbols)
	}
}

func TestScheduleNeedsClickHouse(t *testing.T) {
	_, err := Parse([]byte("schedule:\n  symbols: [BTCUSDT]\n  interval: 30s\n"))
	if err == nil {
		t.Fatalf("expected error for schedule without clickhouse")
	}
	c, err := Parse([]byte("clickhouse:\n  enabled: true\nschedule:\n  symbols: [BTCUSDT]\n  interval: 30s\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.Schedule.Interval.Seconds() != 30 {
		t.Fatalf("interval %v", c.Schedule.Interval)
	}
}
