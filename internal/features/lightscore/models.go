// Package lightscore — models.go описывает накопленный профиль и отчёт пересчёта.
package lightscore

import (
	"time"

	"funplay.vn/light-engine/internal/pplp"
)

// Totals — сумма дневных счетов пользователя, по одному результату на день.
type Totals struct {
	TotalLight float64
	DaysScored int
	LastDay    time.Time
}

// Profile — накопленный Light Score и уровень пользователя.
type Profile struct {
	UserID      string             `json:"user_id"`
	RuleVersion string             `json:"rule_version"`
	TotalLight  float64            `json:"total_light"`
	DaysScored  int                `json:"days_scored"`
	LastDay     string             `json:"last_day"`
	Progress    pplp.LevelProgress `json:"progress"`
}

// RecalcReport — итог пересчёта диапазона дней.
type RecalcReport struct {
	UserID       string    `json:"user_id"`
	RuleVersions []string  `json:"rule_versions"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Days         int       `json:"days"`
	Batches      int       `json:"batches"`
	TotalLight   float64   `json:"total_light"`
}
