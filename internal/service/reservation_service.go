package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/notification"
	"github.com/Leganyst/room-scheduler/internal/pricing"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

// IntervalRequest — интервал в том виде, в каком его присылает клиент.
type IntervalRequest struct {
	RoomID    uuid.UUID
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD; пусто — та же дата, что StartDate
	StartTime string // HH:MM
	EndTime   string // HH:MM, допускается 24:00
}

type CreateRequest struct {
	IntervalRequest

	PartySize  int
	GuestName  string
	GuestPhone string
	// Привязка к аккаунту: UserID, иначе TelegramID, иначе поиск по телефону.
	UserID     *uuid.UUID
	TelegramID int64
}

type AvailabilityResult struct {
	Available   bool
	Range       calendar.TimeRange
	Conflicts   []Conflict
	Suggestions []calendar.TimeRange
}

type ReservationService struct {
	store      *repository.Store
	estimator  pricing.Estimator
	dispatcher *notification.Dispatcher
	checker    *AvailabilityChecker
	codes      *CodeGenerator
	cfg        config.BookingConfig
	clock      calendar.Clock
	logger     *slog.Logger
}

func NewReservationService(
	store *repository.Store,
	estimator pricing.Estimator,
	dispatcher *notification.Dispatcher,
	cfg config.BookingConfig,
	clock calendar.Clock,
	logger *slog.Logger,
) *ReservationService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &ReservationService{
		store:      store,
		estimator:  estimator,
		dispatcher: dispatcher,
		checker:    NewAvailabilityChecker(cfg.Location, cfg.PendingGrace, clock, logger),
		codes:      NewCodeGenerator(cfg.CodePrefix),
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
	}
}

// CheckAvailability отвечает, свободна ли комната. Занятость — обычный
// результат, а не ошибка; ошибки только для плохого ввода и сбоев БД.
func (s *ReservationService) CheckAvailability(ctx context.Context, req IntervalRequest) (*AvailabilityResult, error) {
	tr, err := s.parseInterval(req)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Rooms.GetByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, persistence("get room", err)
	}

	conflicts, err := s.checker.Overlapping(ctx, s.store.Reservations, req.RoomID, tr, uuid.Nil)
	if err != nil {
		return nil, err
	}

	res := &AvailabilityResult{Available: len(conflicts) == 0, Range: tr, Conflicts: conflicts}
	if !res.Available {
		res.Suggestions = s.suggest(ctx, s.store.Reservations, req.RoomID, tr)
	}
	return res, nil
}

// Create проверяет занятость и сохраняет бронь в состоянии pending.
// Проверка и вставка идут в одной транзакции под блокировкой строки
// комнаты. Коллизия кода повторяется целиком, не более cfg.CodeRetries раз.
func (s *ReservationService) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	tr, err := s.parseInterval(req.IntervalRequest)
	if err != nil {
		return nil, err
	}

	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestPhone = repository.NormalizePhone(req.GuestPhone)
	switch {
	case req.GuestName == "":
		return nil, invalid("guest_name", "is required")
	case len(req.GuestPhone) < 5:
		return nil, invalid("guest_phone", "is required")
	case req.PartySize < 1:
		return nil, invalid("party_size", "must be at least 1")
	}

	now := s.clock.Now()
	if tr.Start.Before(now) {
		return nil, invalid("start_time", "must not be in the past")
	}

	userID, err := s.resolveUser(ctx, req)
	if err != nil {
		return nil, err
	}

	attempts := s.cfg.CodeRetries + 1
	var created *model.Reservation
	for attempt := 1; ; attempt++ {
		created, err = s.createOnce(ctx, req, tr, userID, now)
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if attempt >= attempts {
			return nil, &PersistenceError{Op: "create reservation: code collision retries exhausted", Err: err}
		}
		s.logger.WarnContext(ctx, "reservation code collision, retrying",
			slog.String("room_id", req.RoomID.String()),
			slog.Int("attempt", attempt),
		)
	}

	s.logger.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", created.ID.String()),
		slog.String("code", created.Code),
		slog.String("room_id", created.RoomID.String()),
	)

	s.notifyCreated(ctx, created, tr)
	return created, nil
}

func (s *ReservationService) createOnce(
	ctx context.Context,
	req CreateRequest,
	tr calendar.TimeRange,
	userID *uuid.UUID,
	now time.Time,
) (*model.Reservation, error) {
	var out *model.Reservation

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		room, err := tx.Rooms.LockByID(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return persistence("lock room", err)
		}
		if !room.IsActive {
			return invalid("room_id", "room is not active")
		}
		if req.PartySize > room.Capacity {
			return invalid("party_size", fmt.Sprintf("exceeds room capacity %d", room.Capacity))
		}

		conflicts, err := s.checker.Overlapping(ctx, tx.Reservations, room.ID, tr, uuid.Nil)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return &ConflictError{
				Conflicts:   conflicts,
				Suggestions: s.suggest(ctx, tx.Reservations, room.ID, tr),
			}
		}

		quote, err := s.estimator.Estimate(ctx, tx.Tariffs, room.Category, tr.Duration(), req.PartySize)
		if err != nil {
			if errors.Is(err, pricing.ErrUnknownCategory) {
				return invalid("room_id", err.Error())
			}
			return persistence("estimate price", err)
		}

		startLocal := tr.Start.In(s.cfg.Location)
		endLocal := tr.End.In(s.cfg.Location)
		startDate := calendar.UTCDate(startLocal)
		endDate := datatypes.Date(calendar.UTCDate(endLocal))

		code, err := s.codes.Next(ctx, tx.Reservations, startDate)
		if err != nil {
			return persistence("generate code", err)
		}

		// Конец хранится нормализованным: фактическая дата и время окончания,
		// "24:00" превращается в 00:00 следующего дня.
		r := &model.Reservation{
			Code:          code,
			RoomID:        room.ID,
			UserID:        userID,
			GuestName:     req.GuestName,
			GuestPhone:    req.GuestPhone,
			StartDate:     datatypes.Date(startDate),
			EndDate:       &endDate,
			StartTime:     startLocal.Format("15:04"),
			EndTime:       endLocal.Format("15:04"),
			PartySize:     req.PartySize,
			EstimateCents: quote.EstimateCents,
			DepositCents:  quote.DepositCents,
			State:         model.ReservationStatePending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.Reservations.Create(ctx, r); err != nil {
			return persistence("insert reservation", err)
		}

		ev := model.NewReservationEvent(model.EventTypeReservationCreated, r.ID, userID, model.ActorUser,
			"", model.ReservationStatePending, now, map[string]any{
				"code":           code,
				"room_id":        room.ID.String(),
				"party_size":     req.PartySize,
				"estimate_cents": quote.EstimateCents,
				"deposit_cents":  quote.DepositCents,
			})
		if err := tx.Events.Create(ctx, ev); err != nil {
			return persistence("insert event", err)
		}

		out = r
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("create reservation", err)
	}
	return out, nil
}

// resolveUser возвращает аккаунт, к которому привязывается бронь.
func (s *ReservationService) resolveUser(ctx context.Context, req CreateRequest) (*uuid.UUID, error) {
	switch {
	case req.UserID != nil:
		u, err := s.store.Users.GetByID(ctx, *req.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, invalid("user_id", "user not found")
			}
			return nil, persistence("get user", err)
		}
		return &u.ID, nil

	case req.TelegramID != 0:
		u, err := ValidateTelegramUser(ctx, s.store.Users, req.TelegramID)
		switch {
		case errors.Is(err, ErrInvalidTelegramID):
			return nil, invalid("telegram_id", "must be positive")
		case errors.Is(err, ErrUserNotFound):
			return nil, invalid("telegram_id", "user not found")
		case err != nil:
			return nil, persistence("find user by telegram id", err)
		}
		return &u.ID, nil
	}

	u, err := s.store.Users.FindByPhone(ctx, req.GuestPhone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistence("find user by phone", err)
	}
	return &u.ID, nil
}

func (s *ReservationService) parseInterval(req IntervalRequest) (calendar.TimeRange, error) {
	if req.RoomID == uuid.Nil {
		return calendar.TimeRange{}, invalid("room_id", "is required")
	}

	startDate, err := calendar.ParseDate(req.StartDate)
	if err != nil {
		return calendar.TimeRange{}, invalid("start_date", "must be YYYY-MM-DD")
	}
	endDate := startDate
	if req.EndDate != "" {
		if endDate, err = calendar.ParseDate(req.EndDate); err != nil {
			return calendar.TimeRange{}, invalid("end_date", "must be YYYY-MM-DD")
		}
	}
	if endDate.Before(startDate) {
		return calendar.TimeRange{}, invalid("end_date", "must not be before start_date")
	}

	if _, err := calendar.ParseClock(req.StartTime); err != nil {
		return calendar.TimeRange{}, invalid("start_time", "must be HH:MM")
	}
	if _, err := calendar.ParseClock(req.EndTime); err != nil {
		return calendar.TimeRange{}, invalid("end_time", "must be HH:MM")
	}

	tr, err := calendar.FromStored(startDate, &endDate, req.StartTime, req.EndTime, s.cfg.Location)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidClock) {
			return calendar.TimeRange{}, invalid("start_time", "cannot be 24:00")
		}
		return calendar.TimeRange{}, invalid("end_time", "end must be after start")
	}

	if tr.Duration() < s.cfg.MinDuration {
		return calendar.TimeRange{}, invalid("end_time",
			fmt.Sprintf("duration must be at least %d minutes", int(s.cfg.MinDuration/time.Minute)))
	}

	return tr, nil
}

// suggest ищет свободные окна той же длины в день начала брони.
// Сбой здесь не должен ломать основной ответ, поэтому только логируется.
func (s *ReservationService) suggest(
	ctx context.Context,
	repo repository.ReservationRepository,
	roomID uuid.UUID,
	tr calendar.TimeRange,
) []calendar.TimeRange {
	if s.cfg.SuggestionLimit <= 0 || s.cfg.SuggestionStep <= 0 {
		return nil
	}

	step := s.cfg.SuggestionStep
	day := calendar.DateOnly(tr.Start.In(s.cfg.Location))
	start := day
	if now := s.clock.Now(); start.Before(now) {
		// сетка шага от местной полуночи
		start = day.Add((now.Sub(day) + step - 1) / step * step)
	}
	window, err := calendar.NewTimeRange(start, day.AddDate(0, 0, 1))
	if err != nil {
		return nil
	}

	busy, err := s.checker.Overlapping(ctx, repo, roomID, window, uuid.Nil)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build suggestions",
			slog.String("room_id", roomID.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	ranges := make([]calendar.TimeRange, 0, len(busy))
	for _, b := range busy {
		ranges = append(ranges, b.Range)
	}
	return calendar.SuggestFree(window, ranges, tr.Duration(), s.cfg.SuggestionStep, s.cfg.SuggestionLimit)
}

func (s *ReservationService) notifyCreated(ctx context.Context, r *model.Reservation, tr calendar.TimeRange) {
	if s.dispatcher == nil {
		return
	}

	n := &model.Notification{
		ReservationID: r.ID,
		Kind:          model.NotificationKindNewBooking,
		Title:         "Новая бронь",
		Body:          fmt.Sprintf("%s, гостей: %d", calendar.FormatSlotForUser(tr, s.cfg.Location, r.Code), r.PartySize),
		CreatedAt:     s.clock.Now(),
	}
	n.SetPayload(map[string]any{
		"room_id":        r.RoomID.String(),
		"start":          tr.Start.UTC().Format(time.RFC3339),
		"end":            tr.End.UTC().Format(time.RFC3339),
		"party_size":     r.PartySize,
		"estimate_cents": r.EstimateCents,
		"deposit_cents":  r.DepositCents,
	})
	if err := s.store.Notifications.Create(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to record notification",
			slog.String("reservation_id", r.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	s.dispatcher.Deliver(ctx, n, r)
}

// wrapTxErr пропускает доменные ошибки как есть, остальное считает сбоем хранилища.
func wrapTxErr(op string, err error) error {
	var (
		ve *ValidationError
		ce *ConflictError
		pe *PersistenceError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve), errors.As(err, &ce), errors.As(err, &pe),
		errors.Is(err, ErrRoomNotFound),
		errors.Is(err, ErrReservationNotFound),
		errors.Is(err, model.ErrIllegalTransition):
		return err
	}
	return persistence(op, err)
}
