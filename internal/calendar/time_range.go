package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrInvalidClock     = errors.New("invalid time of day")
	ErrInvalidDate      = errors.New("invalid date")
	ErrSlotDuration     = errors.New("slot duration must be positive")
)

// MinutesPerDay — "24:00" означает полночь следующего дня.
const MinutesPerDay = 24 * 60

const DateLayout = "2006-01-02"

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создаёт интервал и делает простую валидацию.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{Start: start, End: end}, nil
}

func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// IsCrossDay — интервал заканчивается позже полуночи, следующей за началом.
// Интервал до "24:00" того же дня кросс-дневным не считается.
func (tr TimeRange) IsCrossDay() bool {
	return tr.End.After(DateOnly(tr.Start).AddDate(0, 0, 1))
}

// Overlaps — пересечение полуоткрытых интервалов: a1 < b2 && b1 < a2.
// Касание концами пересечением не считается.
func (tr TimeRange) Overlaps(other TimeRange) bool {
	return rangesOverlap(tr, other, false)
}

func (tr TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", tr.Start.Format(time.RFC3339), tr.End.Format(time.RFC3339))
}

// ParseClock разбирает "HH:MM" в минуты от начала суток (0..1440).
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

// twoDigits: ровно две ASCII-цифры, без знака и пробелов.
func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// FormatClock — обратное к ParseClock.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate разбирает "YYYY-MM-DD" в полночь UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// DateOnly отбрасывает время, сохраняя часовой пояс.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// UTCDate — календарная дата t (в её поясе) как полночь UTC.
// В таком виде даты хранятся в БД.
func UTCDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// combine переносит календарную дату date в пояс loc и добавляет минуты.
func combine(date time.Time, minutes int, loc *time.Location) time.Time {
	year, month, day := date.Date()
	return time.Date(year, month, day, 0, minutes, 0, 0, loc)
}

// FromStored строит абсолютный интервал из хранимых полей брони.
//
// Правила:
//   - endDate < startDate — ошибка;
//   - endDate == startDate (или endDate отсутствует): end < start значит
//     переход через полночь, end == start — пустой интервал, ошибка;
//   - endDate > startDate: конец берётся как есть и должен быть позже начала.
func FromStored(startDate time.Time, endDate *time.Time, startClock, endClock string, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	if startDate.IsZero() {
		return TimeRange{}, fmt.Errorf("%w: start date is required", ErrInvalidTimeRange)
	}

	startMin, err := ParseClock(startClock)
	if err != nil {
		return TimeRange{}, err
	}
	if startMin == MinutesPerDay {
		return TimeRange{}, fmt.Errorf("%w: start cannot be 24:00", ErrInvalidClock)
	}
	endMin, err := ParseClock(endClock)
	if err != nil {
		return TimeRange{}, err
	}

	sameDay := endDate == nil || UTCDate(*endDate).Equal(UTCDate(startDate))
	if endDate != nil && UTCDate(*endDate).Before(UTCDate(startDate)) {
		return TimeRange{}, fmt.Errorf("%w: end date is before start date", ErrInvalidTimeRange)
	}

	start := combine(startDate, startMin, loc)
	var end time.Time
	switch {
	case !sameDay:
		end = combine(*endDate, endMin, loc)
	case endMin > startMin:
		end = combine(startDate, endMin, loc)
	case endMin < startMin:
		end = combine(startDate, endMin+MinutesPerDay, loc)
	default:
		return TimeRange{}, fmt.Errorf("%w: zero-length interval", ErrInvalidTimeRange)
	}

	tr, err := NewTimeRange(start, end)
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: end is not after start", err)
	}
	return tr, nil
}

// SplitWithStep разбивает интервал на слоты длиной slotDuration, начиная
// новый слот через step; при step < slotDuration слоты перекрываются.
// alignMinutes > 0 — выравнивание начала по ближайшей отметке, кратной alignMinutes.
// "Хвост" меньшей длительности, чем slotDuration, отбрасывается.
func SplitWithStep(
	tr TimeRange,
	slotDuration, step time.Duration,
	alignMinutes int,
) ([]TimeRange, error) {
	if slotDuration <= 0 || step <= 0 {
		return nil, ErrSlotDuration
	}
	if !tr.End.After(tr.Start) {
		return []TimeRange{}, nil
	}

	start := tr.Start

	// Выравнивание по шагу в минутах, если задан.
	if alignMinutes > 0 {
		min := start.Minute()
		rem := min % alignMinutes
		if rem != 0 || start.Second() != 0 || start.Nanosecond() != 0 {
			start = time.Date(
				start.Year(),
				start.Month(),
				start.Day(),
				start.Hour(),
				min-rem+alignMinutes,
				0, 0,
				start.Location(),
			)
			if !start.Before(tr.End) {
				return []TimeRange{}, nil
			}
		}
	}

	slots := []TimeRange{}
	for cur := start; !cur.Add(slotDuration).After(tr.End); cur = cur.Add(step) {
		slots = append(slots, TimeRange{Start: cur, End: cur.Add(slotDuration)})
	}

	return slots, nil
}

// HasOverlap проверяет, пересекается ли newRange с existing.
// inclusive = true — касание концами считается пересечением.
func HasOverlap(
	newRange TimeRange,
	existing []TimeRange,
	inclusive bool,
) (bool, []TimeRange) {
	var conflicts []TimeRange

	for _, tr := range existing {
		if rangesOverlap(newRange, tr, inclusive) {
			conflicts = append(conflicts, tr)
		}
	}

	return len(conflicts) > 0, conflicts
}

func rangesOverlap(a, b TimeRange, inclusive bool) bool {
	if inclusive {
		return !a.Start.After(b.End) && !b.Start.After(a.End)
	}
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// SuggestFree подбирает до limit свободных интервалов длины length внутри
// window, начиная с шагом step. Занятые интервалы берутся из busy.
func SuggestFree(window TimeRange, busy []TimeRange, length, step time.Duration, limit int) []TimeRange {
	if limit <= 0 {
		return nil
	}
	candidates, err := SplitWithStep(window, length, step, 0)
	if err != nil {
		return nil
	}

	var out []TimeRange
	for _, c := range candidates {
		if taken, _ := HasOverlap(c, busy, false); taken {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out
}
