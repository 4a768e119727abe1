package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/model"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrRoomNotFound        = errors.New("room not found")
)

// ValidationError — ошибка во входных данных; текст показывается пользователю как есть.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Conflict — занятый интервал, мешающий брони.
type Conflict struct {
	ReservationID uuid.UUID
	Code          string
	State         model.ReservationState
	Range         calendar.TimeRange
	// Поля в том виде, в каком их показывают пользователю.
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
}

// ConflictError — комната занята. Содержит все пересечения и,
// если нашлись, свободные альтернативы того же дня.
type ConflictError struct {
	Conflicts   []Conflict
	Suggestions []calendar.TimeRange
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s %s–%s", c.StartDate, c.StartTime, c.EndTime))
	}
	return "room is not available: overlaps " + strings.Join(parts, ", ")
}

// PersistenceError — сбой хранилища, в том числе исчерпанные повторы
// при коллизии кода брони.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// newConflict описывает бронь r с уже вычисленным интервалом tr.
func newConflict(r *model.Reservation, tr calendar.TimeRange, loc *time.Location) Conflict {
	start, end := tr.Start.In(loc), tr.End.In(loc)
	clocks := strings.SplitN(calendar.ClockRange(tr, loc), "–", 2)
	return Conflict{
		ReservationID: r.ID,
		Code:          r.Code,
		State:         r.State,
		Range:         tr,
		StartDate:     start.Format(calendar.DateLayout),
		EndDate:       end.Format(calendar.DateLayout),
		StartTime:     clocks[0],
		EndTime:       clocks[1],
	}
}
