package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// reservations — брони комнат. Физически не удаляются.
//
// Интервал хранится как пара дат и пара времени суток "HH:MM".
// EndDate может отсутствовать у старых записей; такие строки
// нормализуются в calendar.FromStored.
type Reservation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Code string `gorm:"type:varchar(40);not null;uniqueIndex"`

	RoomID uuid.UUID  `gorm:"type:uuid;not null;index:idx_reservations_room_start,priority:1"`
	UserID *uuid.UUID `gorm:"type:uuid;index"`

	GuestName  string `gorm:"type:varchar(255);not null"`
	GuestPhone string `gorm:"type:varchar(32);not null"`

	StartDate datatypes.Date `gorm:"not null;index:idx_reservations_room_start,priority:2"`
	EndDate   *datatypes.Date
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	PartySize int `gorm:"not null"`

	// Суммы в копейках.
	EstimateCents int64 `gorm:"not null"`
	DepositCents  int64 `gorm:"not null"`
	PaidCents     int64 `gorm:"not null;default:0"`

	State        ReservationState `gorm:"type:varchar(32);not null;index"`
	CancelReason string           `gorm:"type:text"`

	CreatedAt        time.Time  `gorm:"not null;index"`
	UpdatedAt        time.Time  `gorm:"not null"`
	PaymentStartedAt *time.Time `gorm:"index"`
	DepositPaidAt    *time.Time
	CheckedInAt      *time.Time
	CheckedOutAt     *time.Time
	CancelledAt      *time.Time

	Room *Room `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// StartDay возвращает дату начала как time.Time (полночь UTC).
func (r *Reservation) StartDay() time.Time {
	return time.Time(r.StartDate)
}

// EndDay возвращает nil для записей без даты окончания.
func (r *Reservation) EndDay() *time.Time {
	if r.EndDate == nil {
		return nil
	}
	t := time.Time(*r.EndDate)
	return &t
}
