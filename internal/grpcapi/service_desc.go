package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "roomsched.v1.ReservationService"

// Имена методов RPC.
const (
	MethodCheckAvailability    = "CheckAvailability"
	MethodCreateReservation    = "CreateReservation"
	MethodStartPayment         = "StartPayment"
	MethodConfirmPayment       = "ConfirmPayment"
	MethodCheckIn              = "CheckIn"
	MethodCheckOut             = "CheckOut"
	MethodCancel               = "Cancel"
	MethodMarkNoShow           = "MarkNoShow"
	MethodGetReservation       = "GetReservation"
	MethodListRoomReservations = "ListRoomReservations"
)

// ReservationAPI — серверная сторона сервиса. Запросы и ответы
// передаются как google.protobuf.Struct.
type ReservationAPI interface {
	CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CreateReservation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StartPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ConfirmPayment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	MarkNoShow(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetReservation(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListRoomReservations(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(api ReservationAPI, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			api := srv.(ReservationAPI)
			if interceptor == nil {
				return call(api, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(api, ctx, req.(*structpb.Struct))
			})
		},
	}
}

// FullMethod — полное имя метода для Invoke и перехватчиков.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationAPI)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodCheckAvailability, ReservationAPI.CheckAvailability),
		method(MethodCreateReservation, ReservationAPI.CreateReservation),
		method(MethodStartPayment, ReservationAPI.StartPayment),
		method(MethodConfirmPayment, ReservationAPI.ConfirmPayment),
		method(MethodCheckIn, ReservationAPI.CheckIn),
		method(MethodCheckOut, ReservationAPI.CheckOut),
		method(MethodCancel, ReservationAPI.Cancel),
		method(MethodMarkNoShow, ReservationAPI.MarkNoShow),
		method(MethodGetReservation, ReservationAPI.GetReservation),
		method(MethodListRoomReservations, ReservationAPI.ListRoomReservations),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "roomsched/v1/reservation.proto",
}

func RegisterReservationAPI(s grpc.ServiceRegistrar, api ReservationAPI) {
	s.RegisterService(&ServiceDesc, api)
}
