package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	memidempotency "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/idempotency"
	memmirror "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/mirror"
	memnotifier "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/notifier"
	memnotifyqueue "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/notifyqueue"
	memstore "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/store"
	memsyncqueue "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/syncqueue"
	memuserrepo "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/memory/userrepo"
	nsqnotifyqueue "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/nsq/notifyqueue"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres/idempotency"
	pgstore "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres/store"
	pguserrepo "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/postgres/userrepo"
	redissyncqueue "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/redis/syncqueue"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/smtpnotifier"
	sqlitemirror "github.com/Overland-East-Bay/seatshare-ledger/internal/adapters/sqlite/mirror"
	"github.com/Overland-East-Bay/seatshare-ledger/internal/platform/config"
	idempotencyport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/idempotency"
	mirrorport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/mirror"
	notifyport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/notify"
	syncqueueport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/syncqueue"
	uowport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/uow"
	userrepoport "github.com/Overland-East-Bay/seatshare-ledger/internal/ports/out/userrepo"
)

type backends struct {
	uow           uowport.UnitOfWork
	users         userrepoport.Repository
	idem          idempotencyport.Store
	mirror        mirrorport.Store
	pending       syncqueueport.Queue
	notifications notifyport.Queue

	// workers run until their context ends.
	workers []func(context.Context)
	closers []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg config.Config, log *logrus.Logger) (b *backends, err error) {
	opened := &backends{}
	b = opened
	defer func() {
		if err != nil {
			opened.close()
		}
	}()

	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.Storage.MigrateOnStart {
			if err := postgres.Migrate(cfg.Storage.DatabaseURL, log); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.Storage.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("invalid postgres config: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		b.uow = pgstore.NewStore(pool, pgstore.WithLockTimeout(cfg.Settlement.LockWait))
		b.users = pguserrepo.NewRepo(pool)
		b.idem = pgidempotency.NewStore(pool)
	default:
		if cfg.Storage.SeedFile == "" {
			log.Warn("in-memory storage starts empty and is lost on restart; set SEED_FILE to load trips, accounts and users")
		} else {
			log.Warn("using in-memory storage; balances are lost on restart")
		}
		b.uow = memstore.New(memstore.WithLockWait(cfg.Settlement.LockWait))
		b.users = memuserrepo.NewRepo()
		b.idem = memidempotency.NewStore()
	}

	switch cfg.Mirror.Backend {
	case "sqlite":
		m, err := sqlitemirror.Open(cfg.Mirror.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = m.Close() })
		b.mirror = m
	default:
		b.mirror = memmirror.NewStore()
	}

	switch cfg.SyncQueue.Backend {
	case "redis":
		q, err := redissyncqueue.Dial(ctx, redissyncqueue.Options{
			Addr:     cfg.SyncQueue.RedisAddr,
			Password: cfg.SyncQueue.RedisPassword,
			DB:       cfg.SyncQueue.RedisDB,
			Key:      cfg.SyncQueue.RedisKey,
		})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = q.Close() })
		b.pending = q
	default:
		b.pending = memsyncqueue.NewQueue()
	}

	sender, err := openSender(cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	sendTimeout := cfg.Settlement.StepTimeout

	switch cfg.Notify.Queue {
	case "nsq":
		p, err := nsqnotifyqueue.NewProducer(cfg.Notify.NSQDAddr, cfg.Notify.Topic)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, p.Stop)
		b.notifications = p

		b.workers = append(b.workers, func(ctx context.Context) {
			// In-flight deliveries finish during Stop.
			h := nsqnotifyqueue.NewHandler(context.WithoutCancel(ctx), sender, log.WithField("component", "notify"), sendTimeout)
			c, err := nsqnotifyqueue.NewConsumer(cfg.Notify.Topic, cfg.Notify.Channel, cfg.Notify.NSQDAddr, cfg.Notify.Workers, h)
			if err != nil {
				log.WithError(err).Error("nsq consumer not started")
				return
			}
			<-ctx.Done()
			c.Stop()
		})
	default:
		d := memnotifyqueue.NewDispatcher(sender, log.WithField("component", "notify"), memnotifyqueue.Options{
			Workers:     cfg.Notify.Workers,
			BufferSize:  cfg.Notify.BufferSize,
			SendTimeout: sendTimeout,
		})
		b.notifications = d
		b.workers = append(b.workers, d.Run)
	}
	return b, nil
}

func openSender(cfg config.NotifyConfig, log *logrus.Logger) (notifyport.Notifier, error) {
	if cfg.Sender == "smtp" {
		return smtpnotifier.New(smtpnotifier.Config{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			FromEmail: cfg.SMTP.FromEmail,
			FromName:  cfg.SMTP.FromName,
		})
	}
	return memnotifier.NewRecorder(log.WithField("component", "notify")), nil
}
