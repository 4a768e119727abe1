package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

const (
	ReasonCancelledByRequest = "cancelled by request"
	ReasonNoShow             = "guest did not show up"
)

type transitionSpec struct {
	to    model.ReservationState
	actor string
	// fields — дополнительные колонки для UPDATE, считаются по текущей записи.
	fields  func(cur *model.Reservation) map[string]any
	details map[string]any
	// guard — проверки, которым нужна текущая запись и транзакция.
	guard func(ctx context.Context, tx *repository.Store, cur *model.Reservation) error
}

// transition выполняет условный переход состояния. Повтор уже
// совершённого терминального перехода возвращает запись без изменений.
func (s *ReservationService) transition(ctx context.Context, id uuid.UUID, spec transitionSpec) (*model.Reservation, error) {
	var (
		out     *model.Reservation
		from    model.ReservationState
		changed bool
	)

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		cur, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := model.CheckTransition(cur.State, spec.to); err != nil {
			return err
		}
		if cur.State == spec.to {
			out = cur
			return nil
		}
		if spec.guard != nil {
			if err := spec.guard(ctx, tx, cur); err != nil {
				return err
			}
		}

		var fields map[string]any
		if spec.fields != nil {
			fields = spec.fields(cur)
		}

		n, err := tx.Reservations.UpdateState(ctx, id, []model.ReservationState{cur.State}, spec.to, fields)
		if err != nil {
			return persistence("update reservation state", err)
		}
		if n == 0 {
			// Запись успели изменить между чтением и UPDATE.
			fresh, err := load(ctx, tx, id)
			if err != nil {
				return err
			}
			if fresh.State == spec.to && spec.to.IsTerminal() {
				out = fresh
				return nil
			}
			return fmt.Errorf("%w: %s -> %s", model.ErrIllegalTransition, fresh.State, spec.to)
		}

		ev := model.NewReservationEvent(model.EventTypeStateChanged, id, cur.UserID, spec.actor,
			cur.State, spec.to, s.clock.Now(), spec.details)
		if err := tx.Events.Create(ctx, ev); err != nil {
			return persistence("insert event", err)
		}

		from, changed = cur.State, true
		out, err = load(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, wrapTxErr("update reservation", err)
	}

	if changed {
		s.logger.InfoContext(ctx, "reservation state changed",
			slog.String("reservation_id", id.String()),
			slog.String("code", out.Code),
			slog.String("from", string(from)),
			slog.String("to", string(spec.to)),
		)
	}
	return out, nil
}

// StartPayment отмечает начало оплаты. С этого момента pending-бронь
// отменяется уборщиком по истечении окна ожидания. Повторный вызов
// ничего не меняет.
func (s *ReservationService) StartPayment(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var out *model.Reservation

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		cur, err := load(ctx, tx, id)
		if err != nil {
			return err
		}
		if cur.State != model.ReservationStatePending {
			return fmt.Errorf("%w: payment can start only for pending reservation, got %s",
				model.ErrIllegalTransition, cur.State)
		}
		if cur.PaymentStartedAt != nil {
			out = cur
			return nil
		}

		now := s.clock.Now()
		n, err := tx.Reservations.MarkPaymentStarted(ctx, id, now)
		if err != nil {
			return persistence("mark payment started", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: reservation changed concurrently", model.ErrIllegalTransition)
		}

		ev := model.NewReservationEvent(model.EventTypePaymentStarted, id, cur.UserID, model.ActorUser,
			cur.State, cur.State, now, nil)
		if err := tx.Events.Create(ctx, ev); err != nil {
			return persistence("insert event", err)
		}

		cur.PaymentStartedAt = &now
		out = cur
		return nil
	})
	if err != nil {
		return nil, wrapTxErr("start payment", err)
	}
	return out, nil
}

// ConfirmPayment переводит pending в confirmed и атомарно фиксирует сумму
// и время оплаты депозита. Недоплата обрабатывается по DepositPolicy.
func (s *ReservationService) ConfirmPayment(ctx context.Context, id uuid.UUID, paidCents int64) (*model.Reservation, error) {
	if paidCents < 0 {
		return nil, invalid("amount", "must not be negative")
	}
	now := s.clock.Now()

	return s.transition(ctx, id, transitionSpec{
		to:    model.ReservationStateConfirmed,
		actor: model.ActorUser,
		fields: func(cur *model.Reservation) map[string]any {
			f := map[string]any{
				"paid_cents":      paidCents,
				"deposit_paid_at": now,
			}
			if cur.PaymentStartedAt == nil {
				f["payment_started_at"] = now
			}
			return f
		},
		details: map[string]any{"paid_cents": paidCents},
		guard: func(ctx context.Context, tx *repository.Store, cur *model.Reservation) error {
			if paidCents < cur.DepositCents {
				if s.cfg.DepositPolicy != config.DepositPolicyLenient {
					return invalid("amount", fmt.Sprintf("paid %d is less than required deposit %d", paidCents, cur.DepositCents))
				}
				s.logger.WarnContext(ctx, "deposit underpaid, confirming anyway",
					slog.String("reservation_id", cur.ID.String()),
					slog.Int64("paid_cents", paidCents),
					slog.Int64("deposit_cents", cur.DepositCents),
				)
			}
			// Устаревшая pending-бронь не держит слот, его могли занять.
			return s.ensureStillFree(ctx, tx, cur)
		},
	})
}

func (s *ReservationService) CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	now := s.clock.Now()
	return s.transition(ctx, id, transitionSpec{
		to:     model.ReservationStateInProgress,
		actor:  model.ActorUser,
		fields: func(*model.Reservation) map[string]any { return map[string]any{"checked_in_at": now} },
	})
}

func (s *ReservationService) CheckOut(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	now := s.clock.Now()
	return s.transition(ctx, id, transitionSpec{
		to:     model.ReservationStateCompleted,
		actor:  model.ActorUser,
		fields: func(*model.Reservation) map[string]any { return map[string]any{"checked_out_at": now} },
	})
}

// Cancel отменяет бронь из любого нетерминального состояния.
func (s *ReservationService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = ReasonCancelledByRequest
	}
	now := s.clock.Now()
	return s.transition(ctx, id, transitionSpec{
		to:    model.ReservationStateCancelled,
		actor: model.ActorUser,
		fields: func(*model.Reservation) map[string]any {
			return map[string]any{"cancel_reason": reason, "cancelled_at": now}
		},
		details: map[string]any{"reason": reason},
	})
}

// MarkNoShow — гость не пришёл на подтверждённую бронь.
func (s *ReservationService) MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	now := s.clock.Now()
	return s.transition(ctx, id, transitionSpec{
		to:    model.ReservationStateNoShow,
		actor: model.ActorUser,
		fields: func(*model.Reservation) map[string]any {
			return map[string]any{"cancel_reason": ReasonNoShow, "cancelled_at": now}
		},
	})
}

func (s *ReservationService) Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	return load(ctx, s.store, id)
}

func (s *ReservationService) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	r, err := s.store.Reservations.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, persistence("get reservation", err)
	}
	return r, nil
}

// ListRoomReservations — брони комнаты с датой начала в [fromDate, toDate].
func (s *ReservationService) ListRoomReservations(
	ctx context.Context,
	roomID uuid.UUID,
	fromDate, toDate string,
	page, pageSize int,
) (calendar.Page[model.Reservation], error) {
	from, err := calendar.ParseDate(fromDate)
	if err != nil {
		return calendar.Page[model.Reservation]{}, invalid("from", "must be YYYY-MM-DD")
	}
	to, err := calendar.ParseDate(toDate)
	if err != nil {
		return calendar.Page[model.Reservation]{}, invalid("to", "must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return calendar.Page[model.Reservation]{}, invalid("to", "must not be before from")
	}

	page, pageSize = calendar.NormalizePage(page, pageSize)
	items, total, err := s.store.Reservations.ListByRoomAndRange(ctx, roomID, from, to, pageSize, calendar.Offset(page, pageSize))
	if err != nil {
		return calendar.Page[model.Reservation]{}, persistence("list reservations", err)
	}
	return calendar.FromTotal(items, page, pageSize, total), nil
}

func (s *ReservationService) ensureStillFree(ctx context.Context, tx *repository.Store, cur *model.Reservation) error {
	tr, err := calendar.FromStored(cur.StartDay(), cur.EndDay(), cur.StartTime, cur.EndTime, s.cfg.Location)
	if err != nil {
		return persistence("normalize interval", err)
	}
	if _, err := tx.Rooms.LockByID(ctx, cur.RoomID); err != nil {
		return persistence("lock room", err)
	}
	conflicts, err := s.checker.Overlapping(ctx, tx.Reservations, cur.RoomID, tr, cur.ID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &ConflictError{Conflicts: conflicts}
	}
	return nil
}

func load(ctx context.Context, store *repository.Store, id uuid.UUID) (*model.Reservation, error) {
	r, err := store.Reservations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, persistence("get reservation", err)
	}
	return r, nil
}
