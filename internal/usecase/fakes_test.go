package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
)

type memSentinelStore struct {
	mu    sync.Mutex
	snaps map[string]models.SentinelSnapshot
	saves int
}

func newMemSentinelStore() *memSentinelStore {
	return &memSentinelStore{snaps: make(map[string]models.SentinelSnapshot)}
}

func (m *memSentinelStore) Save(_ context.Context, snap models.SentinelSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Symbol] = snap
	m.saves++
	return nil
}

func (m *memSentinelStore) Load(_ context.Context, symbol string) (models.SentinelSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[symbol]
	if !ok {
		return snap, domrepo.ErrNotFound
	}
	return snap, nil
}

func (m *memSentinelStore) Delete(_ context.Context, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, symbol)
	return nil
}

type candleStore struct {
	calls []domrepo.Timeframe
}

func (s *candleStore) GetLatestNCandles(_ context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	s.calls = append(s.calls, tf)
	phase := float64(len(s.calls))
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		open := price
		price = 100 + 3*math.Sin(float64(i)/5+phase) + 0.02*float64(i)
		out[i] = models.Candle{
			Bucket: time.Unix(int64(i)*60, 0).UTC(),
			Symbol: symbol,
			Open:   open,
			High:   math.Max(open, price) + 0.2,
			Low:    math.Min(open, price) - 0.2,
			Close:  price,
			Volume: 500 + 50*math.Cos(float64(i)/3),
		}
	}
	return out, nil
}

type recordingDecisions struct {
	mu        sync.Mutex
	saved     []models.Decision
	published []models.Decision
	broadcast []models.Decision
	failSave  error
}

func (r *recordingDecisions) Init(context.Context) error { return nil }
func (r *recordingDecisions) Close() error               { return nil }

func (r *recordingDecisions) SaveDecision(_ context.Context, d models.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.saved = append(r.saved, d)
	return nil
}

func (r *recordingDecisions) RecentDecisions(_ context.Context, symbol string, limit int) ([]models.Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Decision
	for i := len(r.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if r.saved[i].Symbol == symbol {
			out = append(out, r.saved[i])
		}
	}
	return out, nil
}

func (r *recordingDecisions) PublishDecision(_ context.Context, d models.Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, d)
	return nil
}

func (r *recordingDecisions) Broadcast(d models.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, d)
}

type countingMetrics struct {
	mu        sync.Mutex
	decisions int
	drift     int
	errors    map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{errors: make(map[string]int)}
}

func (m *countingMetrics) RecordDecision(string, string, bool) {
	m.mu.Lock()
	m.decisions++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordEntropy(float64) {}

func (m *countingMetrics) RecordDrift(string, float64, bool, bool) {
	m.mu.Lock()
	m.drift++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordLatency(string, float64) {}
