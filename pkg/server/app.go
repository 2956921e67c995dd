package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RegimeAPI/internal/service/ratelimit"
	"RegimeAPI/pkg/config"
	xhttp "RegimeAPI/pkg/http"
	applogger "RegimeAPI/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	limiter    *ratelimit.Limiter
}

// New creates a new App instance. limiter may be nil.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, limiter *ratelimit.Limiter) *App {
	return &App{cfg: cfg, log: l, httpServer: srv, limiter: limiter}
}

// Server exposes the HTTP server for tests and tooling.
func (a *App) Server() *xhttp.Server { return a.httpServer }

// Run starts the application and blocks until ctx ends or a termination signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("regime api started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("provider", a.cfg.Provider.Type),
		applogger.Int("symbols", len(a.cfg.Symbols)),
	)

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(); n > 0 {
				a.log.Debug("rate limiter swept idle clients", applogger.Int("removed", n))
			}
		}
	}
}

// shutdown stops the HTTP server. Infrastructure clients are closed by the DI cleanup.
func (a *App) shutdown() error {
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
