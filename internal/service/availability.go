package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

// AvailabilityChecker ищет живые брони комнаты, пересекающиеся с
// интервалом. Сравнение идёт только по абсолютным моментам времени.
type AvailabilityChecker struct {
	loc    *time.Location
	grace  time.Duration
	clock  calendar.Clock
	logger *slog.Logger
}

func NewAvailabilityChecker(loc *time.Location, grace time.Duration, clock calendar.Clock, logger *slog.Logger) *AvailabilityChecker {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityChecker{loc: loc, grace: grace, clock: clock, logger: logger}
}

// IsAvailable — нет ни одной живой брони, пересекающей candidate.
func (c *AvailabilityChecker) IsAvailable(
	ctx context.Context,
	repo repository.ReservationRepository,
	roomID uuid.UUID,
	candidate calendar.TimeRange,
) (bool, error) {
	conflicts, err := c.Overlapping(ctx, repo, roomID, candidate, uuid.Nil)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// Overlapping возвращает все живые брони комнаты, пересекающие window.
// Бронь exclude (если задана) не учитывается.
func (c *AvailabilityChecker) Overlapping(
	ctx context.Context,
	repo repository.ReservationRepository,
	roomID uuid.UUID,
	window calendar.TimeRange,
	exclude uuid.UUID,
) ([]Conflict, error) {
	fromDate := calendar.UTCDate(window.Start.In(c.loc))
	toDate := calendar.UTCDate(window.End.In(c.loc))
	pendingSince := c.clock.Now().Add(-c.grace)

	candidates, err := repo.ListLive(ctx, roomID, fromDate, toDate, pendingSince)
	if err != nil {
		return nil, persistence("list reservations", err)
	}

	var conflicts []Conflict
	for i := range candidates {
		r := &candidates[i]
		if r.ID == exclude {
			continue
		}
		tr, err := calendar.FromStored(r.StartDay(), r.EndDay(), r.StartTime, r.EndTime, c.loc)
		if err != nil {
			c.logger.WarnContext(ctx, "skip reservation with broken interval",
				slog.String("reservation_id", r.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if tr.Overlaps(window) {
			conflicts = append(conflicts, newConflict(r, tr, c.loc))
		}
	}
	return conflicts, nil
}
