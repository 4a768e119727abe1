package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type TariffRepository interface {
	GetByCategory(ctx context.Context, category model.RoomCategory) (*model.Tariff, error)
	// Upsert создаёт или обновляет тариф категории.
	Upsert(ctx context.Context, tariff *model.Tariff) error
	List(ctx context.Context, onlyActive bool) ([]model.Tariff, error)
}

type GormTariffRepository struct {
	db *gorm.DB
}

func NewGormTariffRepository(db *gorm.DB) *GormTariffRepository {
	return &GormTariffRepository{db: db}
}

func (r *GormTariffRepository) GetByCategory(ctx context.Context, category model.RoomCategory) (*model.Tariff, error) {
	var t model.Tariff
	err := r.db.WithContext(ctx).
		Where("category = ? AND is_active = ?", category, true).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *GormTariffRepository) Upsert(ctx context.Context, tariff *model.Tariff) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"hourly_cents",
				"extra_guest_hourly_cents",
				"included_guests",
				"deposit_percent",
				"is_active",
				"updated_at",
			}),
		}).
		Create(tariff).Error
}

func (r *GormTariffRepository) List(ctx context.Context, onlyActive bool) ([]model.Tariff, error) {
	q := r.db.WithContext(ctx).Model(&model.Tariff{})
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var tariffs []model.Tariff
	if err := q.Order("category ASC").Find(&tariffs).Error; err != nil {
		return nil, err
	}
	return tariffs, nil
}
