package grpcapi

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/service"
)

// ReasonRoomNotAvailable — ErrorInfo.Reason для занятой комнаты.
const ReasonRoomNotAvailable = "ROOM_NOT_AVAILABLE"

const errorDomain = "roomsched"

// statusFromDomainError переводит ошибки сервиса в статусы gRPC.
// Сбои хранилища наружу не раскрываются, только логируются.
func statusFromDomainError(ctx context.Context, logger *slog.Logger, loc *time.Location, err error) error {
	var (
		ve *service.ValidationError
		ce *service.ConflictError
		pe *service.PersistenceError
	)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.As(err, &ve):
		st := status.New(codes.InvalidArgument, err.Error())
		return withDetails(st, &errdetails.BadRequest{
			FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: ve.Field, Description: ve.Reason}},
		})
	case errors.As(err, &ce):
		return conflictStatus(ce, loc)
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrReservationNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, model.ErrIllegalTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.As(err, &pe):
		logger.ErrorContext(ctx, "storage failure", slog.String("op", pe.Op), slog.String("error", pe.Err.Error()))
		return status.Error(codes.Internal, "internal storage error")
	default:
		logger.ErrorContext(ctx, "unexpected error", slog.String("error", err.Error()))
		return status.Error(codes.Internal, "internal error")
	}
}

// conflictStatus кладёт в детали ответа пересечения и свободные альтернативы.
func conflictStatus(ce *service.ConflictError, loc *time.Location) error {
	st := status.New(codes.AlreadyExists, ce.Error())

	pf := &errdetails.PreconditionFailure{}
	for _, c := range ce.Conflicts {
		pf.Violations = append(pf.Violations, &errdetails.PreconditionFailure_Violation{
			Type:        ReasonRoomNotAvailable,
			Subject:     c.Code,
			Description: c.StartDate + " " + c.StartTime + "–" + c.EndTime,
		})
	}

	payload, err := structpb.NewStruct(map[string]any{
		"conflicts":   conflictList(ce.Conflicts, loc),
		"suggestions": rangeList(ce.Suggestions, loc),
	})
	if err != nil {
		return withDetails(st, pf)
	}

	info := &errdetails.ErrorInfo{Reason: ReasonRoomNotAvailable, Domain: errorDomain}
	if len(ce.Conflicts) > 0 {
		info.Metadata = map[string]string{"first_conflict": ce.Conflicts[0].Code}
	}
	return withDetails(st, info, pf, payload)
}

func withDetails(st *status.Status, details ...protoadapt.MessageV1) error {
	full, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return full.Err()
}
