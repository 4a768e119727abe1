package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

// Dispatcher доставляет уже сохранённые уведомления и отмечает доставку.
// Запись создаётся до отправки: если доставка упала, повторной отправки
// в пределах окна дедупликации не будет, ошибка только логируется.
type Dispatcher struct {
	repo     repository.NotificationRepository
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

func NewDispatcher(
	repo repository.NotificationRepository,
	notifier Notifier,
	now func() time.Time,
	logger *slog.Logger,
) *Dispatcher {
	if now == nil {
		now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }
	}
	return &Dispatcher{repo: repo, notifier: notifier, now: now, logger: logger}
}

// Deliver отправляет n и возвращает true при успешной доставке.
func (d *Dispatcher) Deliver(ctx context.Context, n *model.Notification, r *model.Reservation) bool {
	msg := NewMessage(n, r)
	if err := d.notifier.Notify(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "failed to deliver notification",
			slog.String("notification_id", n.ID.String()),
			slog.String("reservation_id", n.ReservationID.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
		return false
	}

	if err := d.repo.MarkDelivered(ctx, n.ID, d.now()); err != nil {
		d.logger.WarnContext(ctx, "failed to mark notification delivered",
			slog.String("notification_id", n.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return true
}
