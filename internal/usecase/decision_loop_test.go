package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"AstraMind/internal/domain/models"
)

type scriptedDecider struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (s *scriptedDecider) DecideSymbol(_ context.Context, symbol, regime string, _ int) (models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[symbol]++
	if s.fail[symbol] {
		return models.Decision{}, errors.New("no candles")
	}
	return models.Decision{Symbol: symbol, Regime: regime}, nil
}

func (s *scriptedDecider) count(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

func TestDecisionLoopRoundCountsFailures(t *testing.T) {
	dec := &scriptedDecider{fail: map[string]bool{"ETH": true}}
	m := newCountingMetrics()
	loop := NewDecisionLoop(dec, []string{"BTC", "ETH", "SOL"}, time.Second, m, nil, WithLoopRegime("whale"))

	if failed := loop.Round(context.Background()); failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if dec.count("BTC") != 1 || dec.count("SOL") != 1 {
		t.Fatalf("calls %v", dec.calls)
	}
	if m.errors["loop_decide"] != 1 {
		t.Fatalf("errors %v", m.errors)
	}
}

func TestDecisionLoopRunsUntilStopped(t *testing.T) {
	dec := &scriptedDecider{}
	loop := NewDecisionLoop(dec, []string{"BTC"}, 5*time.Millisecond, nil, nil)
	loop.Start(context.Background())
	loop.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for dec.count("BTC") < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("loop ran %d rounds", dec.count("BTC"))
		}
		time.Sleep(5 * time.Millisecond)
	}
	loop.Stop()
	n := dec.count("BTC")
	time.Sleep(30 * time.Millisecond)
	if dec.count("BTC") != n {
		t.Fatalf("loop kept running after Stop")
	}
	loop.Stop()
}

func TestDecisionLoopDisabled(t *testing.T) {
	dec := &scriptedDecider{}
	loop := NewDecisionLoop(dec, nil, time.Millisecond, nil, nil)
	if loop.Enabled() {
		t.Fatalf("loop without symbols must be disabled")
	}
	loop.Start(context.Background())
	loop.Stop()
	if NewDecisionLoop(dec, []string{"BTC"}, 0, nil, nil).Enabled() {
		t.Fatalf("loop without interval must be disabled")
	}
}

func TestDecisionLoopBacksOffOnlyWhenAllFail(t *testing.T) {
	dec := &scriptedDecider{fail: map[string]bool{"ETH": true}}
	loop := NewDecisionLoop(dec, []string{"BTC", "ETH"}, time.Second, nil, nil,
		WithLoopBackoff(time.Second, 4*time.Second))

	failed := loop.Round(context.Background())
	if failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	if wait, next := loop.backoffAfter(failed, 2*time.Second); wait != 0 || next != time.Second {
		t.Fatalf("partial failure: wait=%v next=%v, want no pause and reset", wait, next)
	}

	dec.fail["BTC"] = true
	failed = loop.Round(context.Background())
	if failed != 2 {
		t.Fatalf("failed = %d, want 2", failed)
	}
	wait, next := loop.backoffAfter(failed, time.Second)
	if wait != time.Second || next != 2*time.Second {
		t.Fatalf("full failure: wait=%v next=%v", wait, next)
	}
	if wait, next = loop.backoffAfter(failed, 3*time.Second); wait != 3*time.Second || next != 4*time.Second {
		t.Fatalf("backoff not capped: wait=%v next=%v", wait, next)
	}
}
