package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/config"
	"github.com/Leganyst/room-scheduler/internal/db"
	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/notification"
	"github.com/Leganyst/room-scheduler/internal/pricing"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

type fixture struct {
	svc      *ReservationService
	store    *repository.Store
	clock    *testClock
	room     *model.Room
	notifier *recordingNotifier
}

func newFixture(t *testing.T, tweak func(*config.BookingConfig)) *fixture {
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
	room := &model.Room{SiteID: site.ID, Name: "Room A", Category: model.RoomCategoryStandard, Capacity: 6, IsActive: true}
	require.NoError(t, store.Rooms.Create(ctx, room))

	cfg := config.DefaultBookingConfig()
	if tweak != nil {
		tweak(&cfg)
	}

	clock := &testClock{now: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recordingNotifier{}
	dispatcher := notification.NewDispatcher(store.Notifications, rec, clock.Now, logger)

	svc := NewReservationService(store, pricing.NewTariffEstimator(pricing.NewStaticEstimator(nil)), dispatcher, cfg, clock, logger)
	return &fixture{svc: svc, store: store, clock: clock, room: room, notifier: rec}
}

func (f *fixture) request(date, start, end string) CreateRequest {
	return CreateRequest{
		IntervalRequest: IntervalRequest{RoomID: f.room.ID, StartDate: date, StartTime: start, EndTime: end},
		PartySize:       2,
		GuestName:       "Ivan",
		GuestPhone:      "+7 (999) 000-00-00",
	}
}

func (f *fixture) confirm(t *testing.T, r *model.Reservation) *model.Reservation {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.StartPayment(ctx, r.ID)
	require.NoError(t, err)
	out, err := f.svc.ConfirmPayment(ctx, r.ID, r.DepositCents)
	require.NoError(t, err)
	return out
}

func TestReservationService_BackToBackAfterConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)
	assert.Equal(t, "RSV-20240601-001", first.Code)
	assert.Equal(t, model.ReservationStatePending, first.State)
	assert.Equal(t, int64(300000), first.EstimateCents)
	assert.Equal(t, int64(90000), first.DepositCents)
	f.confirm(t, first)

	_, err = f.svc.Create(ctx, f.request("2024-06-01", "15:00", "17:00"))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Conflicts, 1)
	c := ce.Conflicts[0]
	assert.Equal(t, first.ID, c.ReservationID)
	assert.Equal(t, "2024-06-01", c.StartDate)
	assert.Equal(t, "14:00", c.StartTime)
	assert.Equal(t, "16:00", c.EndTime)
	require.NotEmpty(t, ce.Suggestions)
	for _, s := range ce.Suggestions {
		assert.False(t, s.Overlaps(c.Range), "suggestion %s overlaps busy range", s)
		assert.Equal(t, 2*time.Hour, s.Duration())
	}

	second, err := f.svc.Create(ctx, f.request("2024-06-01", "16:00", "17:00"))
	require.NoError(t, err)
	assert.Equal(t, "RSV-20240601-002", second.Code)
}

func TestReservationService_SuggestionsFollowLocalClock(t *testing.T) {
	loc := time.FixedZone("UTC+05:45", 5*3600+45*60)
	f := newFixture(t, func(cfg *config.BookingConfig) { cfg.Location = loc })
	ctx := context.Background()

	// 08:10 UTC = 13:55 по местному времени.
	f.clock.Advance(10 * time.Minute)

	_, err := f.svc.Create(ctx, f.request("2024-06-01", "15:00", "17:00"))
	require.NoError(t, err)

	res, err := f.svc.CheckAvailability(ctx, IntervalRequest{
		RoomID: f.room.ID, StartDate: "2024-06-01", StartTime: "15:30", EndTime: "16:30",
	})
	require.NoError(t, err)
	require.False(t, res.Available)
	require.NotEmpty(t, res.Suggestions)

	first := res.Suggestions[0].Start.In(loc)
	assert.Equal(t, "14:00", first.Format("15:04"))
	for _, s := range res.Suggestions {
		assert.Zero(t, s.Start.In(loc).Minute()%30, "suggestion %s is off the local grid", s)
	}
}

func TestReservationService_CheckAvailability(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	interval := IntervalRequest{RoomID: f.room.ID, StartDate: "2024-06-01", StartTime: "10:00", EndTime: "12:00"}

	res, err := f.svc.CheckAvailability(ctx, interval)
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Empty(t, res.Conflicts)

	_, err = f.svc.Create(ctx, f.request("2024-06-01", "11:00", "13:00"))
	require.NoError(t, err)

	res, err = f.svc.CheckAvailability(ctx, interval)
	require.NoError(t, err)
	assert.False(t, res.Available, "fresh pending blocks the room")
	assert.Len(t, res.Conflicts, 1)

	// Pending без оплаты старше окна ожидания комнату не держит.
	f.clock.Advance(6 * time.Minute)
	res, err = f.svc.CheckAvailability(ctx, interval)
	require.NoError(t, err)
	assert.True(t, res.Available)

	_, err = f.svc.CheckAvailability(ctx, IntervalRequest{RoomID: uuid.New(), StartDate: "2024-06-01", StartTime: "10:00", EndTime: "12:00"})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestReservationService_CrossMidnight(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "22:00", "02:00"))
	require.NoError(t, err)
	require.NotNil(t, r.EndDate)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), time.Time(*r.EndDate).UTC())
	assert.Equal(t, "02:00", r.EndTime)

	res, err := f.svc.CheckAvailability(ctx, IntervalRequest{RoomID: f.room.ID, StartDate: "2024-06-02", StartTime: "01:00", EndTime: "03:00"})
	require.NoError(t, err)
	assert.False(t, res.Available, "next-day interval overlaps the spill-over part")

	res, err = f.svc.CheckAvailability(ctx, IntervalRequest{RoomID: f.room.ID, StartDate: "2024-06-02", StartTime: "02:00", EndTime: "04:00"})
	require.NoError(t, err)
	assert.True(t, res.Available, "half-open: starting at the end instant is free")
}

func TestReservationService_EndOfDay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "20:00", "24:00"))
	require.NoError(t, err)
	require.NotNil(t, r.EndDate)
	assert.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), time.Time(*r.EndDate).UTC())
	assert.Equal(t, "00:00", r.EndTime)

	_, err = f.svc.Create(ctx, f.request("2024-06-01", "23:00", "24:00"))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "24:00", ce.Conflicts[0].EndTime)

	_, err = f.svc.Create(ctx, f.request("2024-06-02", "00:00", "01:00"))
	assert.NoError(t, err)
}

func TestReservationService_MultiDay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := f.request("2024-06-01", "10:00", "12:00")
	req.EndDate = "2024-06-03"
	r, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(150000*50), r.EstimateCents)

	res, err := f.svc.CheckAvailability(ctx, IntervalRequest{RoomID: f.room.ID, StartDate: "2024-06-02", StartTime: "13:00", EndTime: "15:00"})
	require.NoError(t, err)
	assert.False(t, res.Available)

	res, err = f.svc.CheckAvailability(ctx, IntervalRequest{RoomID: f.room.ID, StartDate: "2024-06-03", StartTime: "12:00", EndTime: "13:00"})
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestReservationService_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name  string
		edit  func(r *CreateRequest)
		field string
	}{
		{name: "no room", edit: func(r *CreateRequest) { r.RoomID = uuid.Nil }, field: "room_id"},
		{name: "bad date", edit: func(r *CreateRequest) { r.StartDate = "01.06.2024" }, field: "start_date"},
		{name: "end date before start", edit: func(r *CreateRequest) { r.EndDate = "2024-05-31" }, field: "end_date"},
		{name: "bad clock", edit: func(r *CreateRequest) { r.StartTime = "9am" }, field: "start_time"},
		{name: "start at 24:00", edit: func(r *CreateRequest) { r.StartTime = "24:00" }, field: "start_time"},
		{name: "equal times", edit: func(r *CreateRequest) { r.EndTime = r.StartTime }, field: "end_time"},
		{name: "too short", edit: func(r *CreateRequest) { r.EndTime = "14:30" }, field: "end_time"},
		{name: "no name", edit: func(r *CreateRequest) { r.GuestName = "  " }, field: "guest_name"},
		{name: "no phone", edit: func(r *CreateRequest) { r.GuestPhone = "12" }, field: "guest_phone"},
		{name: "empty party", edit: func(r *CreateRequest) { r.PartySize = 0 }, field: "party_size"},
		{name: "over capacity", edit: func(r *CreateRequest) { r.PartySize = 7 }, field: "party_size"},
		{name: "in the past", edit: func(r *CreateRequest) { r.StartTime, r.EndTime = "06:00", "09:00" }, field: "start_time"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.request("2024-06-01", "14:00", "16:00")
			tc.edit(&req)

			_, err := f.svc.Create(ctx, req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	req := f.request("2024-06-01", "14:00", "15:00")
	req.RoomID = uuid.New()
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	var count int64
	require.NoError(t, f.store.DB().Model(&model.Reservation{}).Count(&count).Error)
	assert.Zero(t, count, "failed requests must not persist anything")
}

func TestReservationService_InactiveRoom(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.DB().Model(f.room).Update("is_active", false).Error)

	_, err := f.svc.Create(context.Background(), f.request("2024-06-01", "14:00", "16:00"))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "room_id", ve.Field)
}

func TestReservationService_ResolvesUserByPhone(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.store.Users.UpsertByPhone(ctx, "Ivan", "79990000000")
	require.NoError(t, err)

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)
	require.NotNil(t, r.UserID)
	assert.Equal(t, u.ID, *r.UserID)
	assert.Equal(t, "79990000000", r.GuestPhone)

	req := f.request("2024-06-01", "17:00", "18:00")
	missing := uuid.New()
	req.UserID = &missing
	_, err = f.svc.Create(ctx, req)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "user_id", ve.Field)
}

func TestReservationService_ResolvesUserByTelegramID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	u, err := f.store.Users.RegisterTelegram(ctx, 777, "Ivan", "")
	require.NoError(t, err)

	req := f.request("2024-06-01", "14:00", "16:00")
	req.TelegramID = 777
	r, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, r.UserID)
	assert.Equal(t, u.ID, *r.UserID)

	for _, tgID := range []int64{-5, 778} {
		req := f.request("2024-06-01", "17:00", "18:00")
		req.TelegramID = tgID
		_, err := f.svc.Create(ctx, req)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "telegram id %d", tgID)
		assert.Equal(t, "telegram_id", ve.Field)
	}

	_, err = ValidateTelegramUser(ctx, f.store.Users, 0)
	assert.ErrorIs(t, err, ErrInvalidTelegramID)
}

func TestReservationService_CreateRecordsEventAndNotification(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)

	events, err := f.store.Events.ListByReservation(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventTypeReservationCreated, events[0].EventType)

	notes, err := f.store.Notifications.ListByReservation(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationKindNewBooking, notes[0].Kind)
	assert.NotNil(t, notes[0].DeliveredAt)
	assert.JSONEq(t, `{
		"room_id": "`+f.room.ID.String()+`",
		"start": "2024-06-01T14:00:00Z",
		"end": "2024-06-01T16:00:00Z",
		"party_size": 2,
		"estimate_cents": 300000,
		"deposit_cents": 90000
	}`, string(notes[0].Payload))

	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, r.Code, f.notifier.msgs[0].Code)
	assert.Equal(t, float64(2), f.notifier.msgs[0].Payload["party_size"])
}

func TestReservationService_CodeCollisionExhaustsRetries(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Чужая запись с кодом, который генератор выдаст следующим.
	d := datatypes.Date(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	legacy := &model.Reservation{
		Code: "RSV-20240601-002", RoomID: f.room.ID, GuestName: "Old", GuestPhone: "70000000000",
		StartDate: d, EndDate: &d, StartTime: "00:00", EndTime: "01:00", PartySize: 1,
		State: model.ReservationStateCancelled, CreatedAt: f.clock.Now(),
	}
	require.NoError(t, f.store.Reservations.Create(ctx, legacy))

	_, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	n, err := f.store.Reservations.CountByCodePrefix(ctx, "RSV-20240601-")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// onMessage вызывает fn, когда сервис пишет в лог сообщение msg.
type onMessage struct {
	slog.Handler
	msg string
	fn  func()
}

func (h onMessage) Enabled(context.Context, slog.Level) bool { return true }

func (h onMessage) Handle(_ context.Context, r slog.Record) error {
	if r.Message == h.msg {
		h.fn()
	}
	return nil
}

func TestReservationService_CodeCollisionRetrySucceeds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	d := datatypes.Date(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	seed := func(code string) {
		require.NoError(t, f.store.Reservations.Create(ctx, &model.Reservation{
			Code: code, RoomID: f.room.ID, GuestName: "Other", GuestPhone: "70000000000",
			StartDate: d, EndDate: &d, StartTime: "00:00", EndTime: "01:00", PartySize: 1,
			State: model.ReservationStateCancelled, CreatedAt: f.clock.Now(),
		}))
	}
	seed("RSV-20240601-002")

	// Между попытками параллельная бронь успевает занять 001.
	var competed bool
	logger := slog.New(onMessage{msg: "reservation code collision, retrying", fn: func() {
		if !competed {
			competed = true
			seed("RSV-20240601-001")
		}
	}})
	svc := NewReservationService(f.store, pricing.NewTariffEstimator(pricing.NewStaticEstimator(nil)), nil,
		config.DefaultBookingConfig(), f.clock, logger)

	r, err := svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)
	assert.True(t, competed)
	assert.Equal(t, "RSV-20240601-003", r.Code)
}

func TestReservationService_ConcurrentCreateSameSlot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   []*model.Reservation
		conflicts int
		other     []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))

			mu.Lock()
			defer mu.Unlock()
			var ce *ConflictError
			switch {
			case err == nil:
				created = append(created, r)
			case errors.As(err, &ce):
				conflicts++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, created, 1)
	assert.Equal(t, workers-1, conflicts)

	live, err := f.store.Reservations.ListLive(ctx, f.room.ID,
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		f.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestReservationService_PricesFromTariffTable(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.store.Tariffs.Upsert(context.Background(), &model.Tariff{
		Category: model.RoomCategoryStandard, HourlyCents: 200000, DepositPercent: 50, IsActive: true,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(400000), r.EstimateCents)
	assert.Equal(t, int64(200000), r.DepositCents)
}

func TestCodeGenerator_ThousandDistinctCodes(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	gen := NewCodeGenerator("")
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d := datatypes.Date(date)

	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := gen.Next(ctx, f.store.Reservations, date)
		require.NoError(t, err)
		_, dup := seen[code]
		require.False(t, dup, "duplicate code %s", code)
		seen[code] = struct{}{}

		require.NoError(t, f.store.Reservations.Create(ctx, &model.Reservation{
			Code: code, RoomID: f.room.ID, GuestName: "G", GuestPhone: "70000000000",
			StartDate: d, EndDate: &d, StartTime: "10:00", EndTime: "11:00", PartySize: 1,
			State: model.ReservationStateCancelled, CreatedAt: date,
		}))
	}
	assert.Contains(t, seen, "RSV-20240601-001")
	assert.Contains(t, seen, "RSV-20240601-1000")
}

func TestReservationService_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)

	r = f.confirm(t, r)
	assert.Equal(t, model.ReservationStateConfirmed, r.State)
	assert.Equal(t, r.DepositCents, r.PaidCents)
	assert.NotNil(t, r.DepositPaidAt)

	r, err = f.svc.CheckIn(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStateInProgress, r.State)

	r, err = f.svc.CheckOut(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStateCompleted, r.State)

	again, err := f.svc.CheckOut(ctx, r.ID)
	require.NoError(t, err, "repeating a terminal transition is a no-op")
	assert.Equal(t, model.ReservationStateCompleted, again.State)

	_, err = f.svc.Cancel(ctx, r.ID, "")
	assert.ErrorIs(t, err, model.ErrIllegalTransition)

	events, err := f.store.Events.ListByReservation(ctx, r.ID)
	require.NoError(t, err)
	// created, payment_started, confirmed, in_progress, completed
	assert.Len(t, events, 5)
}

func TestReservationService_CancelAndNoShow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pending, err := f.svc.Create(ctx, f.request("2024-06-01", "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.svc.MarkNoShow(ctx, pending.ID)
	assert.ErrorIs(t, err, model.ErrIllegalTransition, "no-show only from confirmed")

	cancelled, err := f.svc.Cancel(ctx, pending.ID, "changed plans")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStateCancelled, cancelled.State)
	assert.Equal(t, "changed plans", cancelled.CancelReason)

	twice, err := f.svc.Cancel(ctx, pending.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "changed plans", twice.CancelReason, "second cancel changes nothing")

	confirmed, err := f.svc.Create(ctx, f.request("2024-06-01", "12:00", "13:00"))
	require.NoError(t, err)
	f.confirm(t, confirmed)

	noShow, err := f.svc.MarkNoShow(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStateNoShow, noShow.State)
	assert.Equal(t, ReasonNoShow, noShow.CancelReason)

	_, err = f.svc.Cancel(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationService_StartPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)

	first, err := f.svc.StartPayment(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, first.PaymentStartedAt)

	f.clock.Advance(time.Minute)
	second, err := f.svc.StartPayment(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, first.PaymentStartedAt.Equal(*second.PaymentStartedAt))
}

func TestReservationService_DepositPolicy(t *testing.T) {
	t.Run("strict rejects underpayment", func(t *testing.T) {
		f := newFixture(t, nil)
		ctx := context.Background()
		r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
		require.NoError(t, err)

		_, err = f.svc.ConfirmPayment(ctx, r.ID, r.DepositCents-1)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "amount", ve.Field)

		got, err := f.svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStatePending, got.State)
	})

	t.Run("lenient confirms anyway", func(t *testing.T) {
		f := newFixture(t, func(c *config.BookingConfig) { c.DepositPolicy = config.DepositPolicyLenient })
		ctx := context.Background()
		r, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
		require.NoError(t, err)

		got, err := f.svc.ConfirmPayment(ctx, r.ID, 100)
		require.NoError(t, err)
		assert.Equal(t, model.ReservationStateConfirmed, got.State)
		assert.Equal(t, int64(100), got.PaidCents)
	})
}

func TestReservationService_ConfirmStalePendingAfterSlotTaken(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	stale, err := f.svc.Create(ctx, f.request("2024-06-01", "14:00", "16:00"))
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.svc.Create(ctx, f.request("2024-06-01", "15:00", "17:00"))
	require.NoError(t, err, "stale pending does not block")

	_, err = f.svc.ConfirmPayment(ctx, stale.ID, stale.DepositCents)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)

	got, err := f.svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationStatePending, got.State)
}

func TestReservationService_ListRoomReservations(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, slot := range [][2]string{{"09:00", "10:00"}, {"10:00", "11:00"}, {"11:00", "12:00"}} {
		_, err := f.svc.Create(ctx, f.request("2024-06-01", slot[0], slot[1]))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, f.request("2024-06-05", "09:00", "10:00"))
	require.NoError(t, err)

	page, err := f.svc.ListRoomReservations(ctx, f.room.ID, "2024-06-01", "2024-06-02", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "09:00", page.Items[0].StartTime)

	page, err = f.svc.ListRoomReservations(ctx, f.room.ID, "2024-06-01", "2024-06-02", 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "11:00", page.Items[0].StartTime)

	_, err = f.svc.ListRoomReservations(ctx, f.room.ID, "2024-06-03", "2024-06-01", 1, 10)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	byCode, err := f.svc.GetByCode(ctx, "RSV-20240605-001")
	require.NoError(t, err)
	assert.Equal(t, "09:00", byCode.StartTime)

	_, err = f.svc.GetByCode(ctx, "RSV-19990101-001")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}
