// Package pplp — epoch.go строит границы эпох в часовом поясе платформы.
package pplp

import (
	"fmt"
	"time"
)

// MonthlyEpoch возвращает открытую эпоху календарного месяца, в который
// попадает t: [1-е число 00:00, 1-е число следующего месяца). ID — "YYYY-MM".
func MonthlyEpoch(t time.Time, loc *time.Location) Epoch {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Epoch{
		ID:       start.Format("2006-01"),
		StartsAt: start,
		EndsAt:   start.AddDate(0, 1, 0),
		Status:   EpochOpen,
	}
}

// WeeklyEpoch возвращает эпоху ISO-недели (с понедельника). ID — "YYYY-Www".
func WeeklyEpoch(t time.Time, loc *time.Location) Epoch {
	if loc == nil {
		loc = time.UTC
	}
	day := DayStart(t, loc)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	year, week := start.ISOWeek()
	return Epoch{
		ID:       fmt.Sprintf("%d-W%02d", year, week),
		StartsAt: start,
		EndsAt:   start.AddDate(0, 0, 7),
		Status:   EpochOpen,
	}
}

// EpochFor выбирает границы по типу эпохи из правил.
// Неизвестный тип считается месячным.
func EpochFor(epochType EpochType, t time.Time, loc *time.Location) Epoch {
	if epochType == EpochWeekly {
		return WeeklyEpoch(t, loc)
	}
	return MonthlyEpoch(t, loc)
}

// PreviousEpoch возвращает эпоху, которая закончилась ровно в момент начала e.
func PreviousEpoch(epochType EpochType, e Epoch, loc *time.Location) Epoch {
	return EpochFor(epochType, e.StartsAt.Add(-time.Nanosecond), loc)
}
