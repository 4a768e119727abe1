package calendar

import "time"

// Clock — источник текущего времени; в тестах подменяется.
type Clock interface {
	Now() time.Time
}

// SystemClock отдаёт время в UTC с точностью до секунды: так время
// одинаково сравнивается и в postgres, и в sqlite.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// ClockFunc позволяет использовать функцию как Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}
