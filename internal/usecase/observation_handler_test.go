package usecase

import (
	"context"
	"errors"
	"testing"

	domrepo "AstraMind/internal/domain/repository"
	pkgkafka "AstraMind/pkg/kafka"
)

func newObservationHandler(t *testing.T) (*ObservationHandler, *SentinelRegistry, *countingMetrics) {
	t.Helper()
	m := newCountingMetrics()
	reg, err := NewSentinelRegistry(smallSentinel(), newMemSentinelStore(), m, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewObservationHandler("astramind.observations", reg, m), reg, m
}

func TestObservationHandlerUpdatesRegistry(t *testing.T) {
	h, reg, m := newObservationHandler(t)
	if h.Topic() != "astramind.observations" {
		t.Fatalf("topic = %q", h.Topic())
	}
	msg := []byte(`{"symbol":" btcusdt ","value":0.01,"entropy":0.2,"t":"2026-01-01T00:00:00Z"}`)
	if err := h.Handle(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}
	st, err := reg.Status("BTCUSDT")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Size != 1 {
		t.Fatalf("size = %d", st.Size)
	}
	if m.drift != 1 {
		t.Fatalf("drift recorded %d times", m.drift)
	}
}

func TestObservationHandlerPermanentFailures(t *testing.T) {
	cases := map[string]string{
		"bad json":         `{"symbol":`,
		"no symbol":        `{"value":1}`,
		"overflow":         `{"symbol":"BTC","value":1e400}`,
		"negative entropy": `{"symbol":"BTC","value":0.01,"entropy":-0.1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h, _, _ := newObservationHandler(t)
			err := h.Handle(context.Background(), []byte(body))
			if !errors.Is(err, pkgkafka.ErrPermanent) {
				t.Fatalf("expected permanent error, got %v", err)
			}
		})
	}
}

func TestObservationHandlerNegativeEntropyLeavesBufferUntouched(t *testing.T) {
	h, reg, m := newObservationHandler(t)
	err := h.Handle(context.Background(), []byte(`{"symbol":"BTC","value":0.01,"entropy":-0.5}`))
	if !errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if _, err := reg.Status("BTC"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("sentinel created for rejected observation: %v", err)
	}
	if m.errors["observation_invalid"] != 1 {
		t.Fatalf("errors %v", m.errors)
	}
}

func TestObservationHandlerWithoutMetrics(t *testing.T) {
	reg, err := NewSentinelRegistry(smallSentinel(), newMemSentinelStore(), nil, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	h := NewObservationHandler("obs", reg, nil)
	if err := h.Handle(context.Background(), []byte(`{"symbol":"ETH","value":0.02,"entropy":0.1,"t":"2026-01-01T00:00:00Z"}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"symbol":`)); !errors.Is(err, pkgkafka.ErrPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}
