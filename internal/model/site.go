package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Site — площадка, которой принадлежат комнаты.
type Site struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name    string `gorm:"type:varchar(255);not null;uniqueIndex"`
	Address string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Rooms []Room `gorm:"foreignKey:SiteID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (s *Site) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
