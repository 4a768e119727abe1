package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/room-scheduler/internal/model"
)

// Message — то, что уходит во внешние каналы доставки.
type Message struct {
	ID            uuid.UUID              `json:"id"`
	Kind          model.NotificationKind `json:"kind"`
	ReservationID uuid.UUID              `json:"reservation_id"`
	Code          string                 `json:"code"`
	RoomID        uuid.UUID              `json:"room_id"`
	Title         string                 `json:"title"`
	Body          string                 `json:"body"`
	CreatedAt     time.Time              `json:"created_at"`
	Payload       map[string]any         `json:"payload,omitempty"`
}

// Notifier доставляет сообщение. Способ доставки ядру безразличен.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Multi рассылает сообщение во все каналы; ошибки собираются вместе,
// отказ одного канала не мешает остальным.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewMessage собирает сообщение из записи уведомления и брони.
func NewMessage(n *model.Notification, r *model.Reservation) Message {
	msg := Message{
		ID:            n.ID,
		Kind:          n.Kind,
		ReservationID: n.ReservationID,
		Title:         n.Title,
		Body:          n.Body,
		CreatedAt:     n.CreatedAt,
	}
	if len(n.Payload) > 0 {
		_ = json.Unmarshal(n.Payload, &msg.Payload)
	}
	if r != nil {
		msg.Code = r.Code
		msg.RoomID = r.RoomID
	}
	return msg
}
