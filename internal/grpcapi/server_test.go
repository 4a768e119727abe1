package grpcapi

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Leganyst/room-scheduler/internal/calendar"
	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/db"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/pricing"
	"github.com/Leganyst/room-scheduler/internal/repository"
	"github.com/Leganyst/room-scheduler/internal/service"
)

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	room   *model.Room
}

func startServer(t *testing.T, svc Reservations) *grpc.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(NewServer(svc, time.UTC, logger), logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gdb, err := db.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewStore(gdb)
	ctx := context.Background()
	site := &model.Site{Name: "Main"}
	require.NoError(t, store.Sites.Create(ctx, site))
	room := &model.Room{SiteID: site.ID, Name: "Room A", Category: model.RoomCategoryVIP, Capacity: 8, IsActive: true}
	require.NoError(t, store.Rooms.Create(ctx, room))

	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	clock := calendar.ClockFunc(func() time.Time { return now })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewReservationService(store, pricing.NewStaticEstimator(nil), nil, config.DefaultBookingConfig(), clock, logger)

	conn := startServer(t, svc)
	return &harness{client: NewClient(conn), conn: conn, room: room}
}

func (h *harness) create(t *testing.T, start, end string) map[string]any {
	t.Helper()
	resp, err := h.client.Call(context.Background(), MethodCreateReservation, map[string]any{
		"room_id":     h.room.ID.String(),
		"start_date":  "2024-06-01",
		"start_time":  start,
		"end_time":    end,
		"party_size":  4,
		"guest_name":  "Anna",
		"guest_phone": "+79991112233",
	})
	require.NoError(t, err)
	return resp["reservation"].(map[string]any)
}

func TestServer_CreateAndConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.create(t, "14:00", "16:00")
	assert.Equal(t, "RSV-20240601-001", first["code"])
	assert.Equal(t, "pending", first["state"])
	assert.Equal(t, float64(600000), first["estimate_cents"])

	_, err := h.client.Call(ctx, MethodCreateReservation, map[string]any{
		"room_id":     h.room.ID.String(),
		"start_date":  "2024-06-01",
		"start_time":  "15:00",
		"end_time":    "17:00",
		"party_size":  2,
		"guest_name":  "Boris",
		"guest_phone": "+79990000001",
	})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())

	var (
		info *errdetails.ErrorInfo
		pf   *errdetails.PreconditionFailure
	)
	for _, d := range st.Details() {
		switch v := d.(type) {
		case *errdetails.ErrorInfo:
			info = v
		case *errdetails.PreconditionFailure:
			pf = v
		}
	}
	require.NotNil(t, info)
	assert.Equal(t, ReasonRoomNotAvailable, info.GetReason())
	require.NotNil(t, pf)
	require.Len(t, pf.GetViolations(), 1)
	assert.Equal(t, "RSV-20240601-001", pf.GetViolations()[0].GetSubject())
	assert.Equal(t, "2024-06-01 14:00–16:00", pf.GetViolations()[0].GetDescription())

	avail, err := h.client.Call(ctx, MethodCheckAvailability, map[string]any{
		"room_id":    h.room.ID.String(),
		"start_date": "2024-06-01",
		"start_time": "16:00",
		"end_time":   "17:00",
	})
	require.NoError(t, err)
	assert.Equal(t, true, avail["available"])
}

func TestServer_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.client.Call(ctx, MethodCheckAvailability, map[string]any{
		"room_id":    h.room.ID.String(),
		"start_date": "2024-06-01",
		"start_time": "24:00",
		"end_time":   "01:00",
	})
	st := status.Convert(err)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	require.NotEmpty(t, st.Details())
	br, ok := st.Details()[0].(*errdetails.BadRequest)
	require.True(t, ok)
	assert.Equal(t, "start_time", br.GetFieldViolations()[0].GetField())

	_, err = h.client.Call(ctx, MethodGetReservation, map[string]any{"id": "not-a-uuid"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, MethodConfirmPayment, map[string]any{"id": uuid.NewString(), "amount_cents": 1.5})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, MethodGetReservation, map[string]any{"id": uuid.NewString()})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	r := h.create(t, "10:00", "12:00")
	id := r["id"].(string)

	resp, err := h.client.Call(ctx, MethodStartPayment, map[string]any{"id": id})
	require.NoError(t, err)
	assert.NotNil(t, resp["reservation"].(map[string]any)["payment_started_at"])

	resp, err = h.client.Call(ctx, MethodConfirmPayment, map[string]any{"id": id, "amount_cents": r["deposit_cents"]})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", resp["reservation"].(map[string]any)["state"])

	_, err = h.client.Call(ctx, MethodCheckIn, map[string]any{"id": id})
	require.NoError(t, err)

	resp, err = h.client.Call(ctx, MethodCheckOut, map[string]any{"id": id})
	require.NoError(t, err)
	assert.Equal(t, "completed", resp["reservation"].(map[string]any)["state"])

	_, err = h.client.Call(ctx, MethodCancel, map[string]any{"id": id})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	other := h.create(t, "13:00", "14:00")
	_, err = h.client.Call(ctx, MethodMarkNoShow, map[string]any{"id": other["id"]})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "no-show needs a confirmed reservation")

	resp, err = h.client.Call(ctx, MethodCancel, map[string]any{"id": other["id"], "reason": "plans changed"})
	require.NoError(t, err)
	assert.Equal(t, "plans changed", resp["reservation"].(map[string]any)["cancel_reason"])

	byCode, err := h.client.Call(ctx, MethodGetReservation, map[string]any{"code": r["code"]})
	require.NoError(t, err)
	assert.Equal(t, id, byCode["reservation"].(map[string]any)["id"])
}

func TestServer_ListRoomReservations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.create(t, "09:00", "10:00")
	h.create(t, "10:00", "11:00")
	h.create(t, "22:00", "01:00")

	resp, err := h.client.Call(ctx, MethodListRoomReservations, map[string]any{
		"room_id":   h.room.ID.String(),
		"from":      "2024-06-01",
		"to":        "2024-06-01",
		"page":      1,
		"page_size": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), resp["total"])
	assert.Equal(t, true, resp["has_next"])
	items := resp["items"].([]any)
	require.Len(t, items, 2)

	resp, err = h.client.Call(ctx, MethodListRoomReservations, map[string]any{
		"room_id":   h.room.ID.String(),
		"from":      "2024-06-01",
		"to":        "2024-06-01",
		"page":      2,
		"page_size": 2,
	})
	require.NoError(t, err)
	last := resp["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-06-02", last["end_date"])
	assert.Equal(t, true, last["range"].(map[string]any)["cross_day"])
}

func TestServer_Health(t *testing.T) {
	h := newHarness(t)

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(),
		&healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

// brokenReservations паникует на любом вызове: встроенный интерфейс nil.
type brokenReservations struct {
	Reservations
}

func TestServer_PanicBecomesInternal(t *testing.T) {
	conn := startServer(t, brokenReservations{})
	client := NewClient(conn)

	_, err := client.Call(context.Background(), MethodGetReservation, map[string]any{"id": uuid.NewString()})
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = client.Call(context.Background(), MethodGetReservation, map[string]any{"id": uuid.NewString()})
	assert.Equal(t, codes.Internal, status.Code(err), "server keeps serving after a panic")
}

func TestServiceDesc_MatchesProtoFile(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "api", ServiceDesc.Metadata.(string)))
	require.NoError(t, err)
	proto := string(raw)

	assert.Contains(t, proto, "package roomsched.v1;")
	assert.Contains(t, proto, "service ReservationService {")
	assert.Equal(t, len(ServiceDesc.Methods), strings.Count(proto, "  rpc "))
	for _, m := range ServiceDesc.Methods {
		assert.Contains(t, proto, "rpc "+m.MethodName+"(google.protobuf.Struct) returns (google.protobuf.Struct);")
	}
}
