// Package epochs — models.go описывает итог закрытия эпохи.
package epochs

import (
	"time"

	"github.com/google/uuid"

	"funplay.vn/light-engine/internal/pplp"
)

// CloseResult — закрытая эпоха и её распределение.
type CloseResult struct {
	Epoch      pplp.Epoch           `json:"epoch"`
	Settlement pplp.EpochSettlement `json:"settlement"`
	RunID      uuid.UUID            `json:"run_id"`
	ClosedAt   time.Time            `json:"closed_at"`
	Duration   time.Duration        `json:"-"`
}

// SettleFunc считает распределение для заблокированной эпохи по снимку
// дневных счетов, прочитанному в той же транзакции.
type SettleFunc func(epoch pplp.Epoch, scores []pplp.DailyLightScoreResult) (pplp.EpochSettlement, error)
