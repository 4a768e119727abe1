package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tariffs — цены по категории комнаты. Суммы в копейках.
type Tariff struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Category RoomCategory `gorm:"type:varchar(32);not null;uniqueIndex"`

	HourlyCents int64 `gorm:"not null"`
	// Доплата за каждого гостя сверх IncludedGuests, за час.
	ExtraGuestHourlyCents int64 `gorm:"not null;default:0"`
	IncludedGuests        int   `gorm:"not null;default:0"`
	// Доля депозита в процентах от оценки.
	DepositPercent int `gorm:"not null"`

	IsActive bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (t *Tariff) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
