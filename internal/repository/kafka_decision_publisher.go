package repository

import (
	"context"

	"AstraMind/internal/domain/models"
	applogger "AstraMind/pkg/logger"
)

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaDecisionPublisher publishes decisions keyed by symbol so that one
// symbol's decisions stay ordered on a single partition.
type KafkaDecisionPublisher struct {
	p     Publisher
	topic string
	l     *applogger.Logger
}

func NewKafkaDecisionPublisher(p Publisher, topic string, l *applogger.Logger) *KafkaDecisionPublisher {
	if l == nil {
		l = applogger.NewNop()
	}
	return &KafkaDecisionPublisher{p: p, topic: topic, l: l}
}

func (k *KafkaDecisionPublisher) PublishDecision(ctx context.Context, d models.Decision) error {
	return k.p.Publish(ctx, k.topic, []byte(d.Symbol), d)
}

func (k *KafkaDecisionPublisher) Close() error {
	return k.p.Close()
}
