package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	GetByCode(ctx context.Context, code string) (*model.Reservation, error)

	// ListLive возвращает брони комнаты, которые могут пересекаться с
	// датами [fromDate, toDate] и сейчас блокируют комнату: confirmed,
	// in_progress, completed и pending, созданные после pendingSince.
	ListLive(ctx context.Context, roomID uuid.UUID, fromDate, toDate, pendingSince time.Time) ([]model.Reservation, error)

	// CountByCodePrefix считает брони любого состояния с кодом на prefix.
	CountByCodePrefix(ctx context.Context, prefix string) (int64, error)

	// UpdateState — условный переход: строка меняется, только если её
	// текущее состояние входит в from. Возвращает число изменённых строк.
	UpdateState(
		ctx context.Context,
		id uuid.UUID,
		from []model.ReservationState,
		to model.ReservationState,
		fields map[string]any,
	) (int64, error)

	// MarkPaymentStarted выставляет payment_started_at один раз для pending-брони.
	MarkPaymentStarted(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)

	// LockExpiredPending выбирает pending-брони с оплатой, начатой раньше
	// cutoff, и блокирует их, пропуская уже заблокированные другим обходом.
	LockExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]model.Reservation, error)

	// CancelPending переводит перечисленные pending-брони в cancelled.
	CancelPending(ctx context.Context, ids []uuid.UUID, reason string, at time.Time) (int64, error)

	ListByState(ctx context.Context, state model.ReservationState) ([]model.Reservation, error)

	// ListByRoomAndRange — брони комнаты с датой начала в [fromDate, toDate],
	// с пагинацией.
	ListByRoomAndRange(
		ctx context.Context,
		roomID uuid.UUID,
		fromDate, toDate time.Time,
		limit, offset int,
	) ([]model.Reservation, int64, error)
}

// Реализация на GORM.
type GormReservationRepository struct {
	db *gorm.DB
}

func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

func (r *GormReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *GormReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormReservationRepository) GetByCode(ctx context.Context, code string) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.db.WithContext(ctx).First(&res, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *GormReservationRepository) ListLive(
	ctx context.Context,
	roomID uuid.UUID,
	fromDate, toDate, pendingSince time.Time,
) ([]model.Reservation, error) {
	var out []model.Reservation

	// Даты дополняются на сутки с каждой стороны: бронь, начатая накануне,
	// может перейти через полночь, а end_date у однодневной брони через
	// полночь совпадает с датой начала.
	lo := fromDate.AddDate(0, 0, -1)
	hi := toDate.AddDate(0, 0, 1)

	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Where("start_date <= ?", hi).
		Where("(end_date >= ?) OR (end_date IS NULL AND start_date >= ?)", lo, lo).
		Where("(state IN ?) OR (state = ? AND created_at > ?)",
			model.BlockingStates, model.ReservationStatePending, pendingSince).
		Order("start_date ASC, start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormReservationRepository) CountByCodePrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("code LIKE ?", prefix+"%").
		Count(&n).Error
	return n, err
}

func (r *GormReservationRepository) UpdateState(
	ctx context.Context,
	id uuid.UUID,
	from []model.ReservationState,
	to model.ReservationState,
	fields map[string]any,
) (int64, error) {
	update := map[string]any{
		"state": to,
	}
	for k, v := range fields {
		update[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND state IN ?", id, from).
		Updates(update)
	return res.RowsAffected, res.Error
}

func (r *GormReservationRepository) MarkPaymentStarted(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ? AND state = ? AND payment_started_at IS NULL", id, model.ReservationStatePending).
		Update("payment_started_at", at)
	return res.RowsAffected, res.Error
}

func (r *GormReservationRepository) LockExpiredPending(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]model.Reservation, error) {
	q := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("state = ?", model.ReservationStatePending).
		Where("payment_started_at IS NOT NULL AND payment_started_at < ?", cutoff).
		Order("payment_started_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var out []model.Reservation
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormReservationRepository) CancelPending(
	ctx context.Context,
	ids []uuid.UUID,
	reason string,
	at time.Time,
) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id IN ? AND state = ?", ids, model.ReservationStatePending).
		Updates(map[string]any{
			"state":         model.ReservationStateCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *GormReservationRepository) ListByState(ctx context.Context, state model.ReservationState) ([]model.Reservation, error) {
	var out []model.Reservation
	if err := r.db.WithContext(ctx).Where("state = ?", state).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormReservationRepository) ListByRoomAndRange(
	ctx context.Context,
	roomID uuid.UUID,
	fromDate, toDate time.Time,
	limit, offset int,
) ([]model.Reservation, int64, error) {
	var (
		reservations []model.Reservation
		total        int64
	)

	q := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("room_id = ?", roomID).
		Where("start_date >= ? AND start_date <= ?", fromDate, toDate)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}

	if err := q.Order("start_date ASC, start_time ASC").Find(&reservations).Error; err != nil {
		return nil, 0, err
	}

	return reservations, total, nil
}
