package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Категория комнаты влияет на тариф и правила вместимости.
type RoomCategory string

const (
	RoomCategoryStandard RoomCategory = "standard"
	RoomCategoryVIP      RoomCategory = "vip"
	RoomCategoryHall     RoomCategory = "hall"
)

func (c RoomCategory) Valid() bool {
	switch c {
	case RoomCategoryStandard, RoomCategoryVIP, RoomCategoryHall:
		return true
	}
	return false
}

// rooms
type Room struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	SiteID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string       `gorm:"type:varchar(255);not null"`
	Category RoomCategory `gorm:"type:varchar(32);not null;index"`
	Capacity int          `gorm:"not null"`

	IsActive bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Site *Site `gorm:"foreignKey:SiteID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (r *Room) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
