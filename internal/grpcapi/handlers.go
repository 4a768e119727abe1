package grpcapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/service"
)

// Reservations — операции ядра, доступные по gRPC.
type Reservations interface {
	CheckAvailability(ctx context.Context, req service.IntervalRequest) (*service.AvailabilityResult, error)
	Create(ctx context.Context, req service.CreateRequest) (*model.Reservation, error)
	StartPayment(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, paidCents int64) (*model.Reservation, error)
	CheckIn(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	CheckOut(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Reservation, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	GetByCode(ctx context.Context, code string) (*model.Reservation, error)
	ListRoomReservations(ctx context.Context, roomID uuid.UUID, fromDate, toDate string, page, pageSize int) (calendar.Page[model.Reservation], error)
}

type Server struct {
	svc    Reservations
	loc    *time.Location
	logger *slog.Logger
}

var _ ReservationAPI = (*Server)(nil)

func NewServer(svc Reservations, loc *time.Location, logger *slog.Logger) *Server {
	if loc == nil {
		loc = time.UTC
	}
	return &Server{svc: svc, loc: loc, logger: logger}
}

func (s *Server) fail(ctx context.Context, err error) error {
	return statusFromDomainError(ctx, s.logger, s.loc, err)
}

func (s *Server) reply(ctx context.Context, r *model.Reservation, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return toStruct(map[string]any{"reservation": reservationMap(r, s.loc)})
}

func (s *Server) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := intervalRequest(req)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	res, err := s.svc.CheckAvailability(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	return toStruct(map[string]any{
		"available":   res.Available,
		"range":       rangeMap(res.Range, s.loc),
		"conflicts":   conflictList(res.Conflicts, s.loc),
		"suggestions": rangeList(res.Suggestions, s.loc),
	})
}

func (s *Server) CreateReservation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := intervalRequest(req)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	party, err := integer(req, "party_size")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	userID, err := optionalID(req, "user_id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	telegramID, err := integer(req, "telegram_id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	r, err := s.svc.Create(ctx, service.CreateRequest{
		IntervalRequest: in,
		PartySize:       int(party),
		GuestName:       str(req, "guest_name"),
		GuestPhone:      str(req, "guest_phone"),
		UserID:          userID,
		TelegramID:      telegramID,
	})
	return s.reply(ctx, r, err)
}

func (s *Server) StartPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.StartPayment(ctx, rid)
	return s.reply(ctx, r, err)
}

func (s *Server) ConfirmPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	amount, err := integer(req, "amount_cents")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.ConfirmPayment(ctx, rid, amount)
	return s.reply(ctx, r, err)
}

func (s *Server) CheckIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.CheckIn(ctx, rid)
	return s.reply(ctx, r, err)
}

func (s *Server) CheckOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.CheckOut(ctx, rid)
	return s.reply(ctx, r, err)
}

func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.Cancel(ctx, rid, str(req, "reason"))
	return s.reply(ctx, r, err)
}

func (s *Server) MarkNoShow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.MarkNoShow(ctx, rid)
	return s.reply(ctx, r, err)
}

// GetReservation ищет бронь по id или, если id не задан, по code.
func (s *Server) GetReservation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if code := str(req, "code"); code != "" && str(req, "id") == "" {
		r, err := s.svc.GetByCode(ctx, code)
		return s.reply(ctx, r, err)
	}

	rid, err := id(req, "id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	r, err := s.svc.Get(ctx, rid)
	return s.reply(ctx, r, err)
}

func (s *Server) ListRoomReservations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	roomID, err := id(req, "room_id")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	page, err := integer(req, "page")
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	size, err := integer(req, "page_size")
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	res, err := s.svc.ListRoomReservations(ctx, roomID, str(req, "from"), str(req, "to"), int(page), int(size))
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	items := make([]any, 0, len(res.Items))
	for i := range res.Items {
		items = append(items, reservationMap(&res.Items[i], s.loc))
	}

	return toStruct(map[string]any{
		"items":     items,
		"page":      res.Page,
		"page_size": res.PageSize,
		"total":     res.Total,
		"has_next":  res.HasNext,
		"has_prev":  res.HasPrev,
	})
}
