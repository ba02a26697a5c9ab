package server

import (
	"context"
	"testing"
	"time"

	"AstraMind/internal/handler/ws"
	internalrepo "AstraMind/internal/repository"
	icache "AstraMind/internal/service/cache"
	"AstraMind/internal/service/ratelimit"
	"AstraMind/internal/services/sentinel"
	"AstraMind/internal/usecase"
	"AstraMind/pkg/config"
	applogger "AstraMind/pkg/logger"
	"AstraMind/pkg/metrics"
)

func TestStartAndShutdownWithoutBackends(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	l := applogger.NewNop()
	reg, err := usecase.NewSentinelRegistry(sentinel.DefaultConfig(), internalrepo.NoopSentinelStore{}, metrics.Nop{}, l)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	loop := usecase.NewDecisionLoop(nil, nil, 0, metrics.Nop{}, l)

	app := New(cfg, l, Components{
		Hub:       ws.NewHub(l),
		Loop:      loop,
		Sentinels: reg,
		Limiter:   ratelimit.New(1, 1),
		Cache:     icache.NewTTLCache(),
		Decisions: internalrepo.NoopDecisionStore{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), time.Second)
	defer scancel()
	if err := app.Shutdown(sctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
