package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type NotificationRepository interface {
	// Create сохраняет запись. Для записи с занятым DedupKey
	// возвращает gorm.ErrDuplicatedKey.
	Create(ctx context.Context, n *model.Notification) error
	// ExistsSince — было ли уведомление kind по брони позже since (строго).
	ExistsSince(ctx context.Context, reservationID uuid.UUID, kind model.NotificationKind, since time.Time) (bool, error)
	// Exists — было ли уведомление kind по брони хоть когда-нибудь.
	Exists(ctx context.Context, reservationID uuid.UUID, kind model.NotificationKind) (bool, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]model.Notification, error)
}

type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *GormNotificationRepository) ExistsSince(
	ctx context.Context,
	reservationID uuid.UUID,
	kind model.NotificationKind,
	since time.Time,
) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("reservation_id = ? AND kind = ? AND created_at > ?", reservationID, kind, since).
		Count(&n).Error
	return n > 0, err
}

func (r *GormNotificationRepository) Exists(
	ctx context.Context,
	reservationID uuid.UUID,
	kind model.NotificationKind,
) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("reservation_id = ? AND kind = ?", reservationID, kind).
		Count(&n).Error
	return n > 0, err
}

func (r *GormNotificationRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Update("delivered_at", at).Error
}

func (r *GormNotificationRepository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]model.Notification, error) {
	var out []model.Notification
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
