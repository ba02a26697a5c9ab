package usecase

import (
	"context"
	"sync"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	applogger "AstraMind/pkg/logger"
	pkgmetrics "AstraMind/pkg/metrics"
)

// SymbolDecider is the part of DecisionEngine the loop drives.
type SymbolDecider interface {
	DecideSymbol(ctx context.Context, symbol, regime string, n int) (models.Decision, error)
}

// DecisionLoop decides on a fixed watchlist at a steady interval. After a
// failed round it waits an extra backoff, doubling up to maxBackoff.
type DecisionLoop struct {
	decider  SymbolDecider
	metrics  domrepo.Metrics
	l        *applogger.Logger
	symbols  []string
	regime   string
	interval time.Duration

	minBackoff time.Duration
	maxBackoff time.Duration

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	done    chan struct{}
}

type LoopOption func(*DecisionLoop)

// WithLoopRegime sets the regime used for every scheduled decision.
func WithLoopRegime(regime string) LoopOption {
	return func(d *DecisionLoop) { d.regime = regime }
}

// WithLoopBackoff bounds the pause after a failed round.
func WithLoopBackoff(lo, hi time.Duration) LoopOption {
	return func(d *DecisionLoop) {
		if lo > 0 && hi >= lo {
			d.minBackoff, d.maxBackoff = lo, hi
		}
	}
}

func NewDecisionLoop(decider SymbolDecider, symbols []string, interval time.Duration, metrics domrepo.Metrics, l *applogger.Logger, opts ...LoopOption) *DecisionLoop {
	if l == nil {
		l = applogger.NewNop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	d := &DecisionLoop{
		decider:    decider,
		metrics:    metrics,
		l:          l.With(applogger.String("component", "decision_loop")),
		symbols:    append([]string(nil), symbols...),
		interval:   interval,
		minBackoff: time.Second,
		maxBackoff: time.Minute,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enabled reports whether there is anything to schedule.
func (d *DecisionLoop) Enabled() bool {
	return len(d.symbols) > 0 && d.interval > 0
}

// Start launches the loop. It is a no-op when disabled or already running.
func (d *DecisionLoop) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started || !d.Enabled() {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stopCh = make(chan struct{})
	d.done = make(chan struct{})
	d.mu.Unlock()

	d.l.Info("decision loop started",
		applogger.Strings("symbols", d.symbols),
		applogger.Duration("interval", d.interval),
	)
	go d.run(ctx, d.stopCh, d.done)
}

// Stop halts the loop and waits for the current round to finish.
func (d *DecisionLoop) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	stop, done := d.stopCh, d.done
	d.mu.Unlock()
	close(stop)
	<-done
}

func (d *DecisionLoop) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	backoff := d.minBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
		}

		var wait time.Duration
		wait, backoff = d.backoffAfter(d.Round(ctx), backoff)
		if wait == 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

// backoffAfter returns how long to pause after a round with failed symbols
// and the backoff for the next round. Only a round where every symbol failed
// pauses; any success resets the backoff.
func (d *DecisionLoop) backoffAfter(failed int, backoff time.Duration) (wait, next time.Duration) {
	if failed < len(d.symbols) {
		return 0, d.minBackoff
	}
	next = backoff * 2
	if next > d.maxBackoff {
		next = d.maxBackoff
	}
	return backoff, next
}

// Round decides once on every symbol and returns how many failed.
func (d *DecisionLoop) Round(ctx context.Context) int {
	failed := 0
	for _, symbol := range d.symbols {
		if ctx.Err() != nil {
			return failed
		}
		if _, err := d.decider.DecideSymbol(ctx, symbol, d.regime, 0); err != nil {
			failed++
			d.metrics.RecordError("loop_decide")
			d.l.Warn("scheduled decision failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
	return failed
}
