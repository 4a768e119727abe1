package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	// LockByID читает комнату с блокировкой строки до конца транзакции.
	// Так сериализуются конкурирующие брони одной комнаты.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	List(ctx context.Context, siteID *uuid.UUID, onlyActive bool, limit, offset int) ([]model.Room, int64, error)
}

type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *GormRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	// sqlite-драйвер FOR UPDATE игнорирует: там запись и так сериализована.
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *GormRoomRepository) List(
	ctx context.Context,
	siteID *uuid.UUID,
	onlyActive bool,
	limit, offset int,
) ([]model.Room, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Room{})
	if siteID != nil {
		q = q.Where("site_id = ?", *siteID)
	}
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rooms []model.Room
	if err := q.Order("name ASC").Limit(limit).Offset(offset).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}
