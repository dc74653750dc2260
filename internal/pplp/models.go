// Package pplp — models.go описывает входные и выходные структуры движка.
package pplp

import "time"

// CommunityRating — агрегированная оценка контента сообществом.
// Движок только читает её.
type CommunityRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// ActionEvent — одно действие пользователя. Неизменяемо после записи.
type ActionEvent struct {
	EventID    string     `json:"event_id"`
	UserID     string     `json:"user_id"`
	Type       ActionType `json:"action_type"`
	OccurredAt time.Time  `json:"occurred_at"`
	// ContentType пустой, если действие не создаёт оцениваемый контент (лайк, голос).
	ContentType ContentType      `json:"content_type,omitempty"`
	Rating      *CommunityRating `json:"rating,omitempty"`
	// SequenceTag — шаг цепочки (онбординга), который закрывает действие.
	SequenceTag string `json:"sequence_tag,omitempty"`
}

// DailyScoreInput — всё, что нужно для подсчёта одного дня одного пользователя.
// Собирается вызывающей стороной из истории, живёт только на время расчёта.
type DailyScoreInput struct {
	UserID string
	Day    time.Time
	Events []ActionEvent

	ReputationWeight float64

	// ActiveDaysInWindow — сколько дней с активностью в скользящем окне (включая этот).
	ActiveDaysInWindow int
	// WindowSize — размер окна; 0 = взять из конфигурации.
	WindowSize int

	// CompletedSteps — шаги цепочки, пройденные до этого дня.
	CompletedSteps []string
	// TotalSteps — длина цепочки; 0 = не ограничена.
	TotalSteps int

	SuspiciousScore float64
	ViolationLevel  int
}

// Breakdown — какие множители и штрафы применены (для аудита).
type Breakdown struct {
	BaseScore             float64 `json:"base_score"`
	ContentScore          float64 `json:"content_score"`
	RawDailyScore         float64 `json:"raw_daily_score"`
	ReputationWeight      float64 `json:"reputation_weight"`
	ActiveDays            int     `json:"active_days"`
	ConsistencyMultiplier float64 `json:"consistency_multiplier"`
	CompletedSteps        int     `json:"completed_steps"`
	SequenceMultiplier    float64 `json:"sequence_multiplier"`
	IntegrityMultiplier   float64 `json:"integrity_multiplier"`
	CountedActions        int     `json:"counted_actions"`
	UnknownActions        int     `json:"unknown_actions"`
	RatedContent          int     `json:"rated_content"`
}

// DailyLightScoreResult — итог дневного конвейера. LightScore всегда >= 0.
type DailyLightScoreResult struct {
	UserID      string       `json:"user_id"`
	Day         time.Time    `json:"day"`
	RuleVersion string       `json:"rule_version"`
	LightScore  float64      `json:"light_score"`
	Breakdown   Breakdown    `json:"breakdown"`
	Reasons     []ReasonCode `json:"reasons"`
}

// UserScore — суммарный Light Score пользователя за эпоху.
type UserScore struct {
	UserID     string  `json:"user_id"`
	LightScore float64 `json:"light_score"`
}

// EpochStatus — состояние эпохи.
type EpochStatus string

const (
	EpochOpen   EpochStatus = "open"
	EpochClosed EpochStatus = "closed"
)

// Epoch — период начисления: [StartsAt, EndsAt).
type Epoch struct {
	ID          string      `json:"id"`
	StartsAt    time.Time   `json:"starts_at"`
	EndsAt      time.Time   `json:"ends_at"`
	PoolAmount  float64     `json:"pool_amount"`
	Status      EpochStatus `json:"status"`
	RuleVersion string      `json:"rule_version"`
}

// Contains сообщает, попадает ли момент t в эпоху.
func (e Epoch) Contains(t time.Time) bool {
	return !t.Before(e.StartsAt) && t.Before(e.EndsAt)
}

// MintAllocation — доля пользователя в пуле эпохи.
// Суммы хранятся в минимальных единицах (1 FUN = MintUnitsPerToken),
// Amount-поля — те же значения в токенах для отображения.
type MintAllocation struct {
	UserID     string  `json:"user_id"`
	LightScore float64 `json:"light_score"`
	Qualified  bool    `json:"qualified"`
	// RawUnits — пропорциональная доля до ограничения anti-whale.
	RawUnits   int64 `json:"raw_units"`
	FinalUnits int64 `json:"final_units"`
	// RawAmount и FinalAmount — то же в токенах.
	RawAmount   float64      `json:"raw_amount"`
	FinalAmount float64      `json:"final_amount"`
	Capped      bool         `json:"capped"`
	Reasons     []ReasonCode `json:"reasons,omitempty"`
}

// EpochSettlement — результат закрытия эпохи, который вызывающая сторона
// сохраняет атомарно.
type EpochSettlement struct {
	EpochID           string           `json:"epoch_id"`
	RuleVersion       string           `json:"rule_version"`
	PoolUnits         int64            `json:"pool_units"`
	TotalLight        float64          `json:"total_light"`
	Allocations       []MintAllocation `json:"allocations"`
	QualifiedUsers    int              `json:"qualified_users"`
	CappedUsers       int              `json:"capped_users"`
	MintedUnits       int64            `json:"minted_units"`
	UnmintedUnits     int64            `json:"unminted_units"`
	CappedExcessUnits int64            `json:"capped_excess_units"`
}
