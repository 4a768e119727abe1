package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Leganyst/room-scheduler/internal/model"
	"github.com/Leganyst/room-scheduler/internal/repository"
)

var ErrUnknownCategory = errors.New("no tariff for room category")

// Quote — оценка стоимости брони. Суммы в копейках.
type Quote struct {
	EstimateCents int64
	DepositCents  int64
}

// Estimator считает стоимость по категории, длительности и числу гостей.
// tariffs передаёт вызывающий; внутри транзакции это репозиторий той же транзакции.
type Estimator interface {
	Estimate(ctx context.Context, tariffs repository.TariffRepository, category model.RoomCategory, duration time.Duration, partySize int) (Quote, error)
}

// Rate — ставка категории.
type Rate struct {
	HourlyCents           int64
	ExtraGuestHourlyCents int64
	IncludedGuests        int
	DepositPercent        int
}

// DefaultRates используются, пока тарифы не заведены в БД.
var DefaultRates = map[model.RoomCategory]Rate{
	model.RoomCategoryStandard: {HourlyCents: 150000, ExtraGuestHourlyCents: 20000, IncludedGuests: 4, DepositPercent: 30},
	model.RoomCategoryVIP:      {HourlyCents: 300000, ExtraGuestHourlyCents: 30000, IncludedGuests: 6, DepositPercent: 50},
	model.RoomCategoryHall:     {HourlyCents: 500000, ExtraGuestHourlyCents: 10000, IncludedGuests: 20, DepositPercent: 30},
}

// Quote считает стоимость по ставке. Неполный час тарифицируется
// поминутно, копейки округляются вверх.
func (r Rate) Quote(duration time.Duration, partySize int) Quote {
	minutes := int64(duration / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	extra := int64(partySize - r.IncludedGuests)
	if extra < 0 {
		extra = 0
	}

	perHour := r.HourlyCents + extra*r.ExtraGuestHourlyCents
	estimate := ceilDiv(perHour*minutes, 60)
	deposit := ceilDiv(estimate*int64(r.DepositPercent), 100)

	return Quote{EstimateCents: estimate, DepositCents: deposit}
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// StaticEstimator считает по фиксированной таблице ставок.
type StaticEstimator struct {
	rates map[model.RoomCategory]Rate
}

func NewStaticEstimator(rates map[model.RoomCategory]Rate) *StaticEstimator {
	if rates == nil {
		rates = DefaultRates
	}
	return &StaticEstimator{rates: rates}
}

func (e *StaticEstimator) Estimate(_ context.Context, _ repository.TariffRepository, category model.RoomCategory, duration time.Duration, partySize int) (Quote, error) {
	rate, ok := e.rates[category]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	return rate.Quote(duration, partySize), nil
}

// TariffEstimator берёт ставку из таблицы tariffs, а при её отсутствии
// откатывается на fallback.
type TariffEstimator struct {
	fallback Estimator
}

func NewTariffEstimator(fallback Estimator) *TariffEstimator {
	return &TariffEstimator{fallback: fallback}
}

func (e *TariffEstimator) Estimate(ctx context.Context, tariffs repository.TariffRepository, category model.RoomCategory, duration time.Duration, partySize int) (Quote, error) {
	if tariffs == nil {
		if e.fallback == nil {
			return Quote{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		return e.fallback.Estimate(ctx, nil, category, duration, partySize)
	}

	t, err := tariffs.GetByCategory(ctx, category)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) && e.fallback != nil {
			return e.fallback.Estimate(ctx, tariffs, category, duration, partySize)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Quote{}, fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		return Quote{}, fmt.Errorf("load tariff %s: %w", category, err)
	}

	rate := Rate{
		HourlyCents:           t.HourlyCents,
		ExtraGuestHourlyCents: t.ExtraGuestHourlyCents,
		IncludedGuests:        t.IncludedGuests,
		DepositPercent:        t.DepositPercent,
	}
	return rate.Quote(duration, partySize), nil
}
