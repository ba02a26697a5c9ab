package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "AstraMind/internal/domain/repository"
	"AstraMind/internal/handler/ws"
	icache "AstraMind/internal/service/cache"
	"AstraMind/internal/service/ratelimit"
	"AstraMind/internal/usecase"
	"AstraMind/pkg/config"
	xhttp "AstraMind/pkg/http"
	pkgkafka "AstraMind/pkg/kafka"
	applogger "AstraMind/pkg/logger"
)

const (
	janitorInterval = time.Minute
	limiterIdle     = 10 * time.Minute
)

// sweeper is implemented by in-process caches that expire lazily.
type sweeper interface {
	Sweep() int
}

// Components lists everything the App starts and stops. Infrastructure
// clients are owned by the injector and closed by its cleanup.
type Components struct {
	HTTP         *xhttp.Server
	Hub          *ws.Hub
	Consumer     *pkgkafka.Consumer
	Observations *usecase.ObservationHandler
	Loop         *usecase.DecisionLoop
	Sentinels    *usecase.SentinelRegistry
	Limiter      *ratelimit.Limiter
	Cache        icache.BytesCache
	Decisions    domrepo.DecisionStore
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	c           Components
	janitorDone chan struct{}
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, log: l, c: c}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start launches the background components and the HTTP server. ctx bounds
// the lifetime of the hub, the scheduler and the janitor.
func (a *App) Start(ctx context.Context) error {
	if a.c.Hub != nil {
		go a.c.Hub.Run(ctx)
	}

	if a.c.Consumer != nil && a.c.Observations != nil {
		a.c.Consumer.RegisterHandler(a.c.Observations)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.c.Observations.Topic()))
	}

	if a.c.Loop != nil {
		a.c.Loop.Start(ctx)
	}

	a.janitorDone = make(chan struct{})
	go a.janitor(ctx, a.janitorDone)

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}
	return nil
}

func (a *App) janitor(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(janitorInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if a.c.Limiter != nil {
				a.c.Limiter.Prune(limiterIdle)
			}
			if s, ok := a.c.Cache.(sweeper); ok {
				s.Sweep()
			}
		}
	}
}

// Shutdown stops producers of work first, then persists sentinel state.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	var errs []error

	if a.c.Loop != nil {
		a.c.Loop.Stop()
	}
	if a.c.HTTP != nil {
		if err := a.c.HTTP.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.c.Consumer != nil && a.c.Observations != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.c.Sentinels != nil {
		a.c.Sentinels.Flush(ctx)
	}
	if a.janitorDone != nil {
		select {
		case <-a.janitorDone:
		case <-ctx.Done():
		}
	}

	if a.c.Decisions != nil {
		if err := a.c.Decisions.Close(); err != nil {
			a.log.Warn("decision store close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
