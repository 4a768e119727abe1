package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/db"
	"github.com/Leganyst/room-scheduler/internal/grpcapi"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/notification"
	"github.com/Leganyst/room-scheduler/internal/pricing"
	"github.com/Leganyst/room-scheduler/internal/repository"
	"github.com/Leganyst/room-scheduler/internal/scheduler"
	"github.com/Leganyst/room-scheduler/internal/service"
)

// App держит все зависимости процесса. Планировщик создаётся ровно
// один раз здесь и больше нигде.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB           *gorm.DB
	Store        *repository.Store
	Reservations *service.ReservationService
	Sweeper      *scheduler.ExpirySweeper
	Monitor      *scheduler.OvertimeMonitor
	Scheduler    *scheduler.Scheduler

	closers []func() error
}

// Options подменяют части окружения, в основном для тестов и CLI.
type Options struct {
	Clock    calendar.Clock
	Notifier notification.Notifier
	Lease    scheduler.Lease
}

func New(cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	gormDB, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}
	a.DB = gormDB
	a.closers = append(a.closers, func() error {
		sqlDB, err := gormDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	clock := opts.Clock
	if clock == nil {
		clock = calendar.SystemClock{}
	}

	notifier := opts.Notifier
	if notifier == nil {
		if notifier, err = a.buildNotifier(); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	lease := opts.Lease
	if lease == nil {
		lease = a.buildLease()
	}

	a.Store = repository.NewStore(gormDB)
	dispatcher := notification.NewDispatcher(a.Store.Notifications, notifier, clock.Now, logger)
	estimator := pricing.NewTariffEstimator(pricing.NewStaticEstimator(nil))

	a.Reservations = service.NewReservationService(a.Store, estimator, dispatcher, *cfg.Booking, clock, logger)
	a.Sweeper = scheduler.NewExpirySweeper(a.Store, cfg.Booking.PendingGrace, clock, dispatcher, logger)
	a.Monitor = scheduler.NewOvertimeMonitor(a.Store, *cfg.Scheduler, cfg.Booking.Location, clock, dispatcher, logger)
	a.Scheduler = scheduler.New(cfg.Scheduler.Interval, lease, logger, a.Sweeper, a.Monitor)

	return a, nil
}

func (a *App) buildNotifier() (notification.Notifier, error) {
	b := a.Config.Broker
	channels := notification.Multi{notification.NewLogNotifier(a.Logger)}

	if b.TelegramToken != "" {
		tg, err := notification.NewTelegramNotifier(b.TelegramToken, b.TelegramChatID, a.Logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, tg)
	}

	if b.AMQPURL != "" {
		pub, err := notification.NewAMQPPublisher(b.AMQPURL, b.AMQPQueue)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		channels = append(channels, pub)
	}

	return channels, nil
}

func (a *App) buildLease() scheduler.Lease {
	b := a.Config.Broker
	if b.RedisAddr == "" {
		return scheduler.NoopLease{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     b.RedisAddr,
		Password: b.RedisPassword,
		DB:       b.RedisDB,
	})
	a.closers = append(a.closers, client.Close)
	return scheduler.NewRedisLease(client, b.LeaseKey, a.Config.Scheduler.LeaseTTL)
}

func (a *App) Migrate() error {
	if err := model.AutoMigrate(a.DB); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Serve поднимает gRPC-сервер и планировщик и ждёт отмены ctx.
func (a *App) Serve(ctx context.Context) error {
	lis, err := net.Listen("tcp", a.Config.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Config.GRPCAddr, err)
	}

	api := grpcapi.NewServer(a.Reservations, a.Config.Booking.Location, a.Logger)
	srv, hs := grpcapi.NewGRPCServer(api, a.Logger)

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Logger.Info("grpc server listening", slog.String("addr", a.Config.GRPCAddr))
		if err := srv.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	schedCtx, stopSched := context.WithCancel(ctx)
	defer stopSched()
	if a.Config.Scheduler.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Scheduler.Start(schedCtx); err != nil {
				a.Logger.Error("scheduler start failed", slog.String("error", err.Error()))
			}
		}()
	} else {
		a.Logger.Warn("scheduler disabled")
	}

	select {
	case <-ctx.Done():
		err = nil
	case err = <-serveErr:
	}

	a.Logger.Info("shutting down")
	hs.Shutdown()
	stopSched()
	srv.GracefulStop()
	wg.Wait()
	return err
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
