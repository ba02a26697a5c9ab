package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	"AstraMind/internal/services/sentinel"
	applogger "AstraMind/pkg/logger"
	pkgmetrics "AstraMind/pkg/metrics"
)

// DefaultSnapshotEvery is how many updates a symbol takes between snapshots.
const DefaultSnapshotEvery = 16

type trackedSentinel struct {
	s           *sentinel.MetaSentinel
	lastEntropy float64
	updates     int
}

// SentinelRegistry owns one drift sentinel per symbol. Sentinels are created
// on first use and restored from the SentinelStore when a snapshot exists.
type SentinelRegistry struct {
	cfg           sentinel.Config
	store         domrepo.SentinelStore
	metrics       domrepo.Metrics
	l             *applogger.Logger
	snapshotEvery int
	now           func() time.Time

	mu sync.Mutex
	m  map[string]*trackedSentinel
}

func NewSentinelRegistry(cfg sentinel.Config, store domrepo.SentinelStore, metrics domrepo.Metrics, l *applogger.Logger) (*SentinelRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = applogger.NewNop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &SentinelRegistry{
		cfg:           cfg,
		store:         store,
		metrics:       metrics,
		l:             l.With(applogger.String("component", "sentinel_registry")),
		snapshotEvery: DefaultSnapshotEvery,
		now:           time.Now,
		m:             make(map[string]*trackedSentinel),
	}, nil
}

// Config returns the per-symbol sentinel configuration.
func (r *SentinelRegistry) Config() sentinel.Config { return r.cfg }

// Update feeds one observation to symbol's sentinel.
func (r *SentinelRegistry) Update(ctx context.Context, symbol string, value, entropy float64) (models.SentinelStatus, error) {
	ts, err := r.get(ctx, symbol)
	if err != nil {
		return models.SentinelStatus{}, err
	}
	st, err := ts.s.Update(value, entropy)
	if err != nil {
		r.metrics.RecordError("sentinel_update")
		return models.SentinelStatus{}, err
	}
	r.metrics.RecordDrift(symbol, st.KS, st.Drift, st.Safe)

	r.mu.Lock()
	ts.lastEntropy = entropy
	ts.updates++
	due := ts.updates%r.snapshotEvery == 0
	r.mu.Unlock()

	if due {
		r.save(ctx, symbol, ts.s)
	}
	if st.Drift {
		r.l.Warn("distribution drift detected",
			applogger.String("symbol", symbol),
			applogger.Float64("ks", st.KS),
		)
	}
	return st, nil
}

// Status evaluates symbol's sentinel against its last seen entropy.
// Unknown symbols report domrepo.ErrNotFound.
func (r *SentinelRegistry) Status(symbol string) (models.SentinelStatus, error) {
	r.mu.Lock()
	ts, ok := r.m[symbol]
	var entropy float64
	if ok {
		entropy = ts.lastEntropy
	}
	r.mu.Unlock()
	if !ok {
		return models.SentinelStatus{}, domrepo.ErrNotFound
	}
	return ts.s.Status(entropy), nil
}

// Reset clears symbol's buffer and drops its stored snapshot.
func (r *SentinelRegistry) Reset(ctx context.Context, symbol string) error {
	r.mu.Lock()
	ts, ok := r.m[symbol]
	if ok {
		ts.updates = 0
		ts.lastEntropy = 0
	}
	r.mu.Unlock()
	if ok {
		ts.s.Reset()
	}
	if err := r.store.Delete(ctx, symbol); err != nil {
		r.l.Warn("delete sentinel snapshot failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	if !ok {
		return domrepo.ErrNotFound
	}
	return nil
}

// Symbols lists tracked symbols in sorted order.
func (r *SentinelRegistry) Symbols() []string {
	r.mu.Lock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	r.mu.Unlock()
	sort.Strings(out)
	return out
}

// Flush snapshots every tracked sentinel.
func (r *SentinelRegistry) Flush(ctx context.Context) {
	r.mu.Lock()
	all := make(map[string]*sentinel.MetaSentinel, len(r.m))
	for k, ts := range r.m {
		all[k] = ts.s
	}
	r.mu.Unlock()
	for symbol, s := range all {
		r.save(ctx, symbol, s)
	}
}

func (r *SentinelRegistry) get(ctx context.Context, symbol string) (*trackedSentinel, error) {
	r.mu.Lock()
	ts, ok := r.m[symbol]
	r.mu.Unlock()
	if ok {
		return ts, nil
	}

	s, err := sentinel.New(r.cfg)
	if err != nil {
		return nil, err
	}
	snap, err := r.store.Load(ctx, symbol)
	switch {
	case err == nil:
		if rerr := s.Restore(snap); rerr != nil {
			r.l.Warn("discarding corrupt sentinel snapshot", applogger.String("symbol", symbol), applogger.Error(rerr))
		} else {
			r.l.Info("sentinel restored", applogger.String("symbol", symbol), applogger.Int("size", s.Len()))
		}
	case errors.Is(err, domrepo.ErrNotFound):
	default:
		r.l.Warn("load sentinel snapshot failed", applogger.String("symbol", symbol), applogger.Error(err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[symbol]; ok {
		return existing, nil
	}
	ts = &trackedSentinel{s: s}
	r.m[symbol] = ts
	return ts, nil
}

func (r *SentinelRegistry) save(ctx context.Context, symbol string, s *sentinel.MetaSentinel) {
	snap := s.Snapshot()
	snap.Symbol = symbol
	snap.UpdatedAt = r.now().UTC()
	if err := r.store.Save(ctx, snap); err != nil {
		r.metrics.RecordError("sentinel_snapshot")
		r.l.Warn("save sentinel snapshot failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
}
