package grpcapi

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/service"
)

// Чтение полей запроса.

func str(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func integer(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok || v.GetKind() == nil {
		return 0, nil
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, &service.ValidationError{Field: key, Reason: "must be a number"}
	}
	f := v.GetNumberValue()
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, &service.ValidationError{Field: key, Reason: "must be an integer"}
	}
	return int64(f), nil
}

func id(req *structpb.Struct, key string) (uuid.UUID, error) {
	raw := str(req, key)
	if raw == "" {
		return uuid.Nil, &service.ValidationError{Field: key, Reason: "is required"}
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &service.ValidationError{Field: key, Reason: "must be a UUID"}
	}
	return v, nil
}

func optionalID(req *structpb.Struct, key string) (*uuid.UUID, error) {
	if str(req, key) == "" {
		return nil, nil
	}
	v, err := id(req, key)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func intervalRequest(req *structpb.Struct) (service.IntervalRequest, error) {
	roomID, err := id(req, "room_id")
	if err != nil {
		return service.IntervalRequest{}, err
	}
	return service.IntervalRequest{
		RoomID:    roomID,
		StartDate: str(req, "start_date"),
		EndDate:   str(req, "end_date"),
		StartTime: str(req, "start_time"),
		EndTime:   str(req, "end_time"),
	}, nil
}

// Сборка ответов.

func timestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func rangeMap(tr calendar.TimeRange, loc *time.Location) map[string]any {
	return map[string]any{
		"start":     tr.Start.UTC().Format(time.RFC3339),
		"end":       tr.End.UTC().Format(time.RFC3339),
		"cross_day": tr.IsCrossDay(),
		"display":   calendar.FormatSlotForUser(tr, loc, ""),
	}
}

func reservationMap(r *model.Reservation, loc *time.Location) map[string]any {
	m := map[string]any{
		"id":                 r.ID.String(),
		"code":               r.Code,
		"room_id":            r.RoomID.String(),
		"state":              string(r.State),
		"guest_name":         r.GuestName,
		"guest_phone":        r.GuestPhone,
		"party_size":         r.PartySize,
		"start_date":         r.StartDay().Format(calendar.DateLayout),
		"start_time":         r.StartTime,
		"end_time":           r.EndTime,
		"estimate_cents":     r.EstimateCents,
		"deposit_cents":      r.DepositCents,
		"paid_cents":         r.PaidCents,
		"cancel_reason":      r.CancelReason,
		"created_at":         timestamp(&r.CreatedAt),
		"payment_started_at": timestamp(r.PaymentStartedAt),
		"deposit_paid_at":    timestamp(r.DepositPaidAt),
		"checked_in_at":      timestamp(r.CheckedInAt),
		"checked_out_at":     timestamp(r.CheckedOutAt),
		"cancelled_at":       timestamp(r.CancelledAt),
	}
	if end := r.EndDay(); end != nil {
		m["end_date"] = end.Format(calendar.DateLayout)
	}
	if r.UserID != nil {
		m["user_id"] = r.UserID.String()
	}
	if tr, err := calendar.FromStored(r.StartDay(), r.EndDay(), r.StartTime, r.EndTime, loc); err == nil {
		m["range"] = rangeMap(tr, loc)
	}
	return m
}

func conflictMap(c service.Conflict, loc *time.Location) map[string]any {
	return map[string]any{
		"reservation_id": c.ReservationID.String(),
		"code":           c.Code,
		"state":          string(c.State),
		"start_date":     c.StartDate,
		"end_date":       c.EndDate,
		"start_time":     c.StartTime,
		"end_time":       c.EndTime,
		"range":          rangeMap(c.Range, loc),
	}
}

func conflictList(conflicts []service.Conflict, loc *time.Location) []any {
	out := make([]any, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, conflictMap(c, loc))
	}
	return out
}

func rangeList(ranges []calendar.TimeRange, loc *time.Location) []any {
	out := make([]any, 0, len(ranges))
	for _, tr := range ranges {
		out = append(out, rangeMap(tr, loc))
	}
	return out
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return s, nil
}
