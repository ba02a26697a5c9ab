package repository

import (
	"context"
	"errors"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
)

// ErrFeatureStoreDisabled is returned when no candle source is configured.
var ErrFeatureStoreDisabled = errors.New("feature store disabled: enable clickhouse")

// DisabledFeatureStore rejects every read.
type DisabledFeatureStore struct{}

func (DisabledFeatureStore) GetLatestNCandles(context.Context, string, int, domrepo.Timeframe) ([]models.Candle, error) {
	return nil, ErrFeatureStoreDisabled
}

// NoopDecisionStore drops decisions.
type NoopDecisionStore struct{}

func (NoopDecisionStore) Init(context.Context) error                          { return nil }
func (NoopDecisionStore) SaveDecision(context.Context, models.Decision) error { return nil }
func (NoopDecisionStore) Close() error                                       { return nil }

func (NoopDecisionStore) RecentDecisions(context.Context, string, int) ([]models.Decision, error) {
	return nil, nil
}

// NoopDecisionPublisher drops decisions.
type NoopDecisionPublisher struct{}

func (NoopDecisionPublisher) PublishDecision(context.Context, models.Decision) error { return nil }
func (NoopDecisionPublisher) Close() error                                           { return nil }

// NoopSentinelStore never persists; Load always reports ErrNotFound.
type NoopSentinelStore struct{}

func (NoopSentinelStore) Save(context.Context, models.SentinelSnapshot) error { return nil }
func (NoopSentinelStore) Delete(context.Context, string) error                { return nil }

func (NoopSentinelStore) Load(context.Context, string) (models.SentinelSnapshot, error) {
	return models.SentinelSnapshot{}, domrepo.ErrNotFound
}
