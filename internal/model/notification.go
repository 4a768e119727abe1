package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationKind string

const (
	NotificationKindNewBooking NotificationKind = "new_booking"
	NotificationKindEndingSoon NotificationKind = "ending_soon"
	NotificationKindOvertime   NotificationKind = "overtime"
	NotificationKindExpired    NotificationKind = "expired"
)

// notifications — журнал отправленных уведомлений; по нему же
// работает дедупликация фоновых проверок.
type Notification struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	ReservationID uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_res_kind,priority:1"`
	Kind          NotificationKind `gorm:"type:varchar(32);not null;index:idx_notifications_res_kind,priority:2"`

	// DedupKey задаётся для уведомлений "не более одного раза";
	// уникальный индекс не даст двум экземплярам планировщика отправить дубль.
	DedupKey *string `gorm:"type:varchar(128);uniqueIndex"`

	Title   string `gorm:"type:varchar(255);not null"`
	Body    string `gorm:"type:text"`
	Payload datatypes.JSON

	DeliveredAt *time.Time
	CreatedAt   time.Time `gorm:"not null;index"`

	Reservation *Reservation `gorm:"foreignKey:ReservationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// SetPayload сохраняет данные уведомления для потребителей очереди.
func (n *Notification) SetPayload(data map[string]any) {
	if len(data) == 0 {
		n.Payload = nil
		return
	}
	if raw, err := json.Marshal(data); err == nil {
		n.Payload = datatypes.JSON(raw)
	}
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
