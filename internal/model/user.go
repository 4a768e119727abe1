package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// users — учётные записи, к которым можно привязать бронь.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	TelegramID   *int64 `gorm:"uniqueIndex"`
	DisplayName  string `gorm:"type:varchar(255)"`
	ContactPhone string `gorm:"type:varchar(32);index"`

	Note string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
