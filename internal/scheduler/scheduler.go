package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

var ErrAlreadyStarted = errors.New("scheduler already started")

// Job — одна фоновая проверка, выполняемая на каждом тике.
// Run должен быть идемпотентным: пропущенный или повторный тик
// приводит к тому же итоговому состоянию.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler — единственный владелец тикера в процессе. Создаётся один
// раз при старте приложения и передаётся тем, кому он нужен.
type Scheduler struct {
	jobs     []Job
	interval time.Duration
	lease    Lease
	logger   *slog.Logger

	started atomic.Bool
	running atomic.Bool
}

func New(interval time.Duration, lease Lease, logger *slog.Logger, jobs ...Job) *Scheduler {
	if lease == nil {
		lease = NoopLease{}
	}
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		lease:    lease,
		logger:   logger,
	}
}

// Start выполняет первый тик сразу, затем раз в interval, пока не
// отменён ctx. Повторный вызов возвращает ErrAlreadyStarted.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		slog.Duration("interval", s.interval),
		slog.Int("jobs", len(s.jobs)),
	)

	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.releaseLease()
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет все задачи по очереди. Если предыдущий тик ещё
// идёт или аренду держит другой экземпляр, тик пропускается и
// возвращается false.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous tick still running, skipping")
		return false
	}
	defer s.running.Store(false)

	ok, err := s.lease.TryAcquire(ctx)
	if err != nil {
		// Без координатора задачи всё равно безопасны: они идемпотентны.
		s.logger.Warn("scheduler lease unavailable, running anyway",
			slog.String("error", err.Error()),
		)
	} else if !ok {
		s.logger.Debug("scheduler lease held by another instance, skipping tick")
		return false
	}

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
	}
	return true
}

// runJob — граница ошибок одной задачи: ни ошибка, ни паника не
// останавливают тикер и не мешают следующей задаче.
func (s *Scheduler) runJob(ctx context.Context, job Job) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler job panicked",
				slog.String("job", job.Name()),
				slog.String("panic", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduler job failed",
			slog.String("job", job.Name()),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Debug("scheduler job done",
		slog.String("job", job.Name()),
		slog.Duration("took", time.Since(started)),
	)
}

func (s *Scheduler) releaseLease() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.lease.Release(ctx); err != nil {
		s.logger.Warn("failed to release scheduler lease", slog.String("error", err.Error()))
	}
}
