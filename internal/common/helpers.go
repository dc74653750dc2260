// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с часовым поясом платформы, форматирование чисел
// и сумм FUN, русская плюрализация.
package common

import (
	"fmt"
	"time"
)

// DefaultTimezone — часовой пояс платформы по умолчанию.
const DefaultTimezone = "Asia/Ho_Chi_Minh"

// LoadLocation загружает часовой пояс. Если база зон недоступна —
// используем UTC+7 вручную.
func LoadLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("ICT", 7*60*60)
	}
	return loc
}

// PlatformDate возвращает полночь дня t в часовом поясе платформы.
// Дневные счёты привязаны именно к этой дате.
func PlatformDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Yesterday возвращает вчерашнюю дату платформы относительно now.
// Используется ежедневной задачей подсчёта.
func Yesterday(now time.Time, loc *time.Location) time.Time {
	return PlatformDate(now, loc).AddDate(0, 0, -1)
}

// DaysBetween перечисляет даты платформы от from до to включительно.
func DaysBetween(from, to time.Time, loc *time.Location) []time.Time {
	start := PlatformDate(from, loc)
	end := PlatformDate(to, loc)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ParseDate разбирает дату "2006-01-02" в часовом поясе платформы.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return t, nil
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется в отчётах о закрытии эпох.
func FormatDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
