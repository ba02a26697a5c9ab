package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	pkgkafka "AstraMind/pkg/kafka"
	pkgmetrics "AstraMind/pkg/metrics"
	"AstraMind/pkg/tensor"
	"AstraMind/pkg/util"
)

// ObservationHandler consumes sentinel observations from Kafka.
type ObservationHandler struct {
	topic    string
	registry *SentinelRegistry
	metrics  domrepo.Metrics
}

func NewObservationHandler(topic string, registry *SentinelRegistry, metrics domrepo.Metrics) *ObservationHandler {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ObservationHandler{topic: topic, registry: registry, metrics: metrics}
}

func (h *ObservationHandler) Topic() string { return h.topic }

// Handle expects {symbol, value, entropy, t}. Malformed, non-finite or
// negative-entropy observations are permanent failures and are not retried.
func (h *ObservationHandler) Handle(ctx context.Context, b []byte) error {
	var obs models.Observation
	if err := json.Unmarshal(b, &obs); err != nil {
		h.metrics.RecordError("observation_unmarshal")
		return fmt.Errorf("%w: decode observation: %v", pkgkafka.ErrPermanent, err)
	}
	obs.Symbol = util.NormalizeSymbol(obs.Symbol)
	if obs.Symbol == "" {
		h.metrics.RecordError("observation_invalid")
		return fmt.Errorf("%w: observation without symbol", pkgkafka.ErrPermanent)
	}
	if obs.Entropy < 0 {
		h.metrics.RecordError("observation_invalid")
		return fmt.Errorf("%w: negative entropy %v", pkgkafka.ErrPermanent, obs.Entropy)
	}
	if !obs.Timestamp.IsZero() {
		h.metrics.RecordLatency("observation_lag", time.Since(obs.Timestamp).Seconds())
	}

	start := time.Now()
	_, err := h.registry.Update(ctx, obs.Symbol, obs.Value, obs.Entropy)
	h.metrics.RecordLatency("sentinel_update", time.Since(start).Seconds())
	if errors.Is(err, tensor.ErrNumeric) {
		return fmt.Errorf("%w: %v", pkgkafka.ErrPermanent, err)
	}
	return err
}

var _ pkgkafka.MessageHandler = (*ObservationHandler)(nil)
