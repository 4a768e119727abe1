package calendar

import (
	"fmt"
	"time"
)

var ruWeekdays = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

// FormatSlotForUser форматирует интервал в человекочитаемую строку.
// Если loc != nil, время переводится в указанный часовой пояс.
// Если code != "", в конце добавляется код брони в скобках.
func FormatSlotForUser(tr TimeRange, loc *time.Location, code string) string {
	start := tr.Start
	end := tr.End

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	weekday := ruWeekdays[start.Weekday()]
	dateStr := start.Format("02.01.2006")
	startTimeStr := start.Format("15:04")

	var base string
	nextMidnight := DateOnly(start).AddDate(0, 0, 1)
	switch {
	case end.Equal(nextMidnight):
		base = fmt.Sprintf("%s, %s, %s–24:00", weekday, dateStr, startTimeStr)
	case end.Before(nextMidnight):
		base = fmt.Sprintf("%s, %s, %s–%s", weekday, dateStr, startTimeStr, end.Format("15:04"))
	default:
		base = fmt.Sprintf("%s, %s %s – %s %s",
			weekday, dateStr, startTimeStr, end.Format("02.01.2006"), end.Format("15:04"))
	}

	if code != "" {
		return fmt.Sprintf("%s (%s)", base, code)
	}

	return base
}

// ClockRange — "HH:MM–HH:MM" в поясе loc, как интервал показывают в ответах API.
func ClockRange(tr TimeRange, loc *time.Location) string {
	start, end := tr.Start, tr.End
	if loc != nil {
		start, end = start.In(loc), end.In(loc)
	}
	endStr := end.Format("15:04")
	if end.Equal(DateOnly(start).AddDate(0, 0, 1)) {
		endStr = FormatClock(MinutesPerDay)
	}
	return start.Format("15:04") + "–" + endStr
}
