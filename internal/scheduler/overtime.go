package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/notification"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

// MonitorStats — итог одного прохода OvertimeMonitor.
type MonitorStats struct {
	Checked    int
	EndingSoon int
	Overtime   int
	Failed     int
}

// OvertimeMonitor следит за идущими бронями и шлёт уведомления
// "скоро конец" (один раз за бронь) и "время вышло" (не чаще, чем
// раз в renotify). Состояние брони он никогда не меняет.
type OvertimeMonitor struct {
	store      *repository.Store
	from       time.Duration
	until      time.Duration
	renotify   time.Duration
	loc        *time.Location
	clock      calendar.Clock
	dispatcher *notification.Dispatcher
	logger     *slog.Logger
}

func NewOvertimeMonitor(
	store *repository.Store,
	cfg config.SchedulerConfig,
	loc *time.Location,
	clock calendar.Clock,
	dispatcher *notification.Dispatcher,
	logger *slog.Logger,
) *OvertimeMonitor {
	if loc == nil {
		loc = time.UTC
	}
	return &OvertimeMonitor{
		store:      store,
		from:       cfg.EndingSoonFrom,
		until:      cfg.EndingSoonUntil,
		renotify:   cfg.OvertimeRenotify,
		loc:        loc,
		clock:      clock,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (m *OvertimeMonitor) Name() string { return "overtime_monitor" }

func (m *OvertimeMonitor) Run(ctx context.Context) error {
	_, err := m.Check(ctx)
	return err
}

// Check проверяет все брони in_progress. Ошибка по одной брони
// логируется и не мешает остальным.
func (m *OvertimeMonitor) Check(ctx context.Context) (MonitorStats, error) {
	var stats MonitorStats

	rows, err := m.store.Reservations.ListByState(ctx, model.ReservationStateInProgress)
	if err != nil {
		return stats, fmt.Errorf("list in-progress reservations: %w", err)
	}

	now := m.clock.Now()
	for i := range rows {
		r := &rows[i]
		stats.Checked++
		if err := m.checkOne(ctx, r, now, &stats); err != nil {
			stats.Failed++
			m.logger.ErrorContext(ctx, "overtime check failed",
				slog.String("reservation_id", r.ID.String()),
				slog.String("code", r.Code),
				slog.String("error", err.Error()),
			)
		}
	}
	return stats, nil
}

func (m *OvertimeMonitor) checkOne(ctx context.Context, r *model.Reservation, now time.Time, stats *MonitorStats) error {
	tr, err := calendar.FromStored(r.StartDay(), r.EndDay(), r.StartTime, r.EndTime, m.loc)
	if err != nil {
		return fmt.Errorf("normalize interval: %w", err)
	}

	// Минуты после планового конца, округлённые вниз; отрицательные — до конца.
	past := now.Sub(tr.End)
	minutesPast := int(past / time.Minute)
	if past < 0 && past%time.Minute != 0 {
		minutesPast--
	}

	switch {
	case minutesPast > 0:
		sent, err := m.overtime(ctx, r, tr, now, minutesPast)
		if sent {
			stats.Overtime++
		}
		return err
	case minutesPast >= -int(m.from/time.Minute) && minutesPast < -int(m.until/time.Minute):
		sent, err := m.endingSoon(ctx, r, tr, now, -minutesPast)
		if sent {
			stats.EndingSoon++
		}
		return err
	}
	return nil
}

func (m *OvertimeMonitor) overtime(ctx context.Context, r *model.Reservation, tr calendar.TimeRange, now time.Time, minutes int) (bool, error) {
	recent, err := m.store.Notifications.ExistsSince(ctx, r.ID, model.NotificationKindOvertime, now.Add(-m.renotify))
	if err != nil {
		return false, fmt.Errorf("check recent overtime notification: %w", err)
	}
	if recent {
		return false, nil
	}

	n := &model.Notification{
		ReservationID: r.ID,
		Kind:          model.NotificationKindOvertime,
		Title:         "Время брони истекло",
		Body:          fmt.Sprintf("%s, превышение %d мин.", calendar.FormatSlotForUser(tr, m.loc, r.Code), minutes),
		CreatedAt:     now,
	}
	n.SetPayload(map[string]any{
		"scheduled_end": tr.End.UTC().Format(time.RFC3339),
		"minutes_past":  minutes,
	})
	if err := m.store.Notifications.Create(ctx, n); err != nil {
		return false, fmt.Errorf("record overtime notification: %w", err)
	}

	m.logger.InfoContext(ctx, "reservation overtime",
		slog.String("reservation_id", r.ID.String()),
		slog.String("code", r.Code),
		slog.Int("minutes_past", minutes),
	)
	m.deliver(ctx, n, r)
	return true, nil
}

func (m *OvertimeMonitor) endingSoon(ctx context.Context, r *model.Reservation, tr calendar.TimeRange, now time.Time, minutesLeft int) (bool, error) {
	exists, err := m.store.Notifications.Exists(ctx, r.ID, model.NotificationKindEndingSoon)
	if err != nil {
		return false, fmt.Errorf("check ending-soon notification: %w", err)
	}
	if exists {
		return false, nil
	}

	key := EndingSoonKey(r)
	n := &model.Notification{
		ReservationID: r.ID,
		Kind:          model.NotificationKindEndingSoon,
		DedupKey:      &key,
		Title:         "Бронь скоро закончится",
		Body:          fmt.Sprintf("%s, осталось %d мин.", calendar.FormatSlotForUser(tr, m.loc, r.Code), minutesLeft),
		CreatedAt:     now,
	}
	n.SetPayload(map[string]any{
		"scheduled_end": tr.End.UTC().Format(time.RFC3339),
		"minutes_left":  minutesLeft,
	})
	if err := m.store.Notifications.Create(ctx, n); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// другой экземпляр успел раньше
			return false, nil
		}
		return false, fmt.Errorf("record ending-soon notification: %w", err)
	}

	m.deliver(ctx, n, r)
	return true, nil
}

func (m *OvertimeMonitor) deliver(ctx context.Context, n *model.Notification, r *model.Reservation) {
	if m.dispatcher != nil {
		m.dispatcher.Deliver(ctx, n, r)
	}
}

// EndingSoonKey — ключ дедупликации уведомления "скоро конец".
func EndingSoonKey(r *model.Reservation) string {
	return "ending_soon:" + r.ID.String()
}
