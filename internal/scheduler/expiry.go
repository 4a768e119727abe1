package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/notification"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

const ReasonPaymentTimeout = "payment not completed within grace window"

// ExpirySweeper отменяет pending-брони, у которых оплата начата и не
// завершена за окно ожидания. Бронь без начатой оплаты по времени
// не отменяется.
type ExpirySweeper struct {
	store      *repository.Store
	grace      time.Duration
	batch      int
	clock      calendar.Clock
	dispatcher *notification.Dispatcher
	logger     *slog.Logger
}

func NewExpirySweeper(
	store *repository.Store,
	grace time.Duration,
	clock calendar.Clock,
	dispatcher *notification.Dispatcher,
	logger *slog.Logger,
) *ExpirySweeper {
	return &ExpirySweeper{
		store:      store,
		grace:      grace,
		batch:      500,
		clock:      clock,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (j *ExpirySweeper) Name() string { return "expiry_sweeper" }

func (j *ExpirySweeper) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep выполняет один проход и возвращает отменённые брони.
// Строки берутся с FOR UPDATE SKIP LOCKED, так что два параллельных
// прохода не делят один и тот же набор; уже отменённые брони под
// условие выборки больше не попадают.
func (j *ExpirySweeper) Sweep(ctx context.Context) ([]model.Reservation, error) {
	now := j.clock.Now()
	cutoff := now.Add(-j.grace)

	var expired []model.Reservation
	err := j.store.Transaction(ctx, func(tx *repository.Store) error {
		rows, err := tx.Reservations.LockExpiredPending(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("select expired: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, 0, len(rows))
		events := make([]*model.Event, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
			events = append(events, model.NewReservationEvent(model.EventTypeReservationExpired, r.ID, r.UserID,
				model.ActorSystem, model.ReservationStatePending, model.ReservationStateCancelled, now,
				map[string]any{"reason": ReasonPaymentTimeout}))
		}

		n, err := tx.Reservations.CancelPending(ctx, ids, ReasonPaymentTimeout, now)
		if err != nil {
			return fmt.Errorf("cancel expired: %w", err)
		}
		if n != int64(len(ids)) {
			// Откат; следующий тик пересчитает набор заново.
			return fmt.Errorf("cancel expired: locked %d rows, updated %d", len(ids), n)
		}

		if err := tx.Events.Create(ctx, events...); err != nil {
			return fmt.Errorf("insert events: %w", err)
		}

		for i := range rows {
			rows[i].State = model.ReservationStateCancelled
			rows[i].CancelReason = ReasonPaymentTimeout
			rows[i].CancelledAt = &now
		}
		expired = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range expired {
		r := &expired[i]
		j.logger.InfoContext(ctx, "reservation expired",
			slog.String("reservation_id", r.ID.String()),
			slog.String("code", r.Code),
			slog.String("room_id", r.RoomID.String()),
		)
		j.notify(ctx, r, now)
	}

	return expired, nil
}

func (j *ExpirySweeper) notify(ctx context.Context, r *model.Reservation, now time.Time) {
	if j.dispatcher == nil {
		return
	}
	n := &model.Notification{
		ReservationID: r.ID,
		Kind:          model.NotificationKindExpired,
		Title:         "Бронь отменена: оплата не завершена",
		Body:          r.Code,
		CreatedAt:     now,
	}
	payload := map[string]any{"reason": ReasonPaymentTimeout}
	if r.PaymentStartedAt != nil {
		payload["payment_started_at"] = r.PaymentStartedAt.UTC().Format(time.RFC3339)
	}
	n.SetPayload(payload)
	if err := j.store.Notifications.Create(ctx, n); err != nil {
		j.logger.ErrorContext(ctx, "failed to record notification",
			slog.String("reservation_id", r.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	j.dispatcher.Deliver(ctx, n, r)
}
