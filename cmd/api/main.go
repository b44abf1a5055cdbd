package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/httpapi"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/app/cancellation"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/app/dualsync"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/app/seed"
	platformclock "github.com/Overland-East-Bay/seatshare-ledger/internal/platform/clock"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/config"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("api exited")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := platformclock.NewSystemClock()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if cfg.Storage.SeedFile != "" {
		f, err := seed.LoadFile(cfg.Storage.SeedFile)
		if err != nil {
			return err
		}
		if _, err := seed.Apply(ctx, b.uow, b.users, f, clk.Now(), log.WithField("component", "seed")); err != nil {
			return fmt.Errorf("apply seed: %w", err)
		}
	}

	syncer := dualsync.NewSyncer(b.mirror, b.pending, dualsync.UnitOfWorkSource(b.uow), clk, log.WithField("component", "dualsync"))

	opts := cancellation.DefaultOptions()
	opts.ServiceFee = cfg.Settlement.ServiceFee
	opts.StepTimeout = cfg.Settlement.StepTimeout
	opts.Retry = cfg.Settlement.Retry
	opts.Location = cfg.Notify.Location
	opts.DateLayout = cfg.Notify.DateLayout
	svc := cancellation.NewService(cancellation.Deps{
		UnitOfWork:    b.uow,
		Users:         b.users,
		Mirror:        syncer,
		Notifications: b.notifications,
		Clock:         clk,
		Log:           log.WithField("component", "cancellation"),
	}, opts)

	handler := httpapi.NewRouter(
		httpapi.NewHandler(svc, b.idem, clk, log),
		httpapi.RouterOptions{SubjectHeader: cfg.SubjectHeader, Log: log},
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Background workers stop with ctx; queued notices are drained before they return.
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, w := range b.workers {
		wg.Add(1)
		go func(w func(context.Context)) {
			defer wg.Done()
			w(workersCtx)
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.Run(workersCtx, cfg.SyncQueue.RetryInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stopWorkers()
			wg.Wait()
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	stopWorkers()
	wg.Wait()
	return nil
}
