// Package actions — models.go описывает сигналы риска и репутации пользователя.
package actions

import "time"

// Signals — репутация и антифрод-сигналы пользователя.
// Приходят из внешней системы модерации, движок их только читает.
type Signals struct {
	UserID          string    `json:"user_id"`
	ReputationScore float64   `json:"reputation_score"`
	SuspiciousScore float64   `json:"suspicious_score"`
	ViolationLevel  int       `json:"violation_level"`
	CompletedSteps  []string  `json:"completed_steps"`
	TotalSteps      int       `json:"total_steps"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultSignals — сигналы пользователя, о котором модерация ещё ничего не сообщала.
func DefaultSignals(userID string) *Signals {
	return &Signals{UserID: userID, CompletedSteps: []string{}}
}
