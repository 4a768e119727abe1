package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Тип события аудита.
type EventType string

const (
	EventTypeReservationCreated EventType = "reservation_created"
	EventTypeStateChanged       EventType = "reservation_state_changed"
	EventTypePaymentStarted     EventType = "payment_started"
	EventTypeReservationExpired EventType = "reservation_expired"
)

// Кто инициировал изменение.
const (
	ActorSystem = "system"
	ActorUser   = "user"
)

// events — события аудита
type Event struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	EventType EventType `gorm:"type:varchar(64);not null;index"`

	CreatedAt time.Time `gorm:"not null;index"`

	ReservationID *uuid.UUID `gorm:"type:uuid;index"`
	UserID        *uuid.UUID `gorm:"type:uuid;index"`

	Actor     string           `gorm:"type:varchar(32);not null"`
	FromState ReservationState `gorm:"type:varchar(32)"`
	ToState   ReservationState `gorm:"type:varchar(32)"`

	Details datatypes.JSON

	// Навигационные поля
	Reservation *Reservation `gorm:"foreignKey:ReservationID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	User        *User        `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// NewReservationEvent собирает событие аудита по брони. details
// сериализуются в JSON; nil даёт пустое поле.
func NewReservationEvent(
	eventType EventType,
	reservationID uuid.UUID,
	userID *uuid.UUID,
	actor string,
	from, to ReservationState,
	at time.Time,
	details map[string]any,
) *Event {
	id := reservationID
	e := &Event{
		EventType:     eventType,
		CreatedAt:     at,
		ReservationID: &id,
		UserID:        userID,
		Actor:         actor,
		FromState:     from,
		ToState:       to,
	}
	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			e.Details = datatypes.JSON(raw)
		}
	}
	return e
}
