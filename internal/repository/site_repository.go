package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/model"
)

type SiteRepository interface {
	Create(ctx context.Context, site *model.Site) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Site, error)
	List(ctx context.Context) ([]model.Site, error)
}

type GormSiteRepository struct {
	db *gorm.DB
}

func NewGormSiteRepository(db *gorm.DB) *GormSiteRepository {
	return &GormSiteRepository{db: db}
}

func (r *GormSiteRepository) Create(ctx context.Context, site *model.Site) error {
	return r.db.WithContext(ctx).Create(site).Error
}

func (r *GormSiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Site, error) {
	var s model.Site
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormSiteRepository) List(ctx context.Context) ([]model.Site, error) {
	var sites []model.Site
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}
