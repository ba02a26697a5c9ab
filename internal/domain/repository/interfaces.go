package repository

import (
	"context"
	"errors"

	"AstraMind/internal/domain/models"
)

// ErrNotFound is returned by stores when no record exists for a key.
var ErrNotFound = errors.New("not found")

// DecisionStore persists gated decisions for later audit.
type DecisionStore interface {
	Init(ctx context.Context) error
	SaveDecision(ctx context.Context, d models.Decision) error
	RecentDecisions(ctx context.Context, symbol string, limit int) ([]models.Decision, error)
	Close() error
}

// DecisionPublisher fans decisions out to downstream consumers.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, d models.Decision) error
	Close() error
}

// SentinelStore keeps drift sentinel buffers across restarts.
type SentinelStore interface {
	Save(ctx context.Context, snap models.SentinelSnapshot) error
	Load(ctx context.Context, symbol string) (models.SentinelSnapshot, error)
	Delete(ctx context.Context, symbol string) error
}

// Broadcaster pushes decisions to live subscribers.
type Broadcaster interface {
	Broadcast(d models.Decision)
}

type Metrics interface {
	RecordDecision(regime, action string, act bool)
	RecordEntropy(entropy float64)
	RecordDrift(symbol string, ks float64, drift, safe bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
