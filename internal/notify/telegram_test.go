package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/pplp"
)

type fakeSender struct {
	sent   []*telego.SendMessageParams
	failOn int64
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	if params.ChatID.ID == f.failOn {
		return nil, errors.New("chat not found")
	}
	f.sent = append(f.sent, params)
	return &telego.Message{}, nil
}

func closeResult() *epochs.CloseResult {
	return &epochs.CloseResult{
		Epoch: pplp.Epoch{
			ID:       "2025-02",
			StartsAt: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
			EndsAt:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
		Settlement: pplp.EpochSettlement{
			EpochID:           "2025-02",
			RuleVersion:       "V1.0",
			PoolUnits:         1_000_000 * pplp.MintUnitsPerToken,
			Allocations:       make([]pplp.MintAllocation, 3),
			QualifiedUsers:    2,
			CappedUsers:       2,
			MintedUnits:       60_000 * pplp.MintUnitsPerToken,
			UnmintedUnits:     940_000 * pplp.MintUnitsPerToken,
			CappedExcessUnits: 940_000 * pplp.MintUnitsPerToken,
		},
		RunID: uuid.MustParse("0b5c8c4e-2f0e-4c3a-9a53-5b1d2f7a9e10"),
	}
}

func TestFormatEpochReport(t *testing.T) {
	text := FormatEpochReport(closeResult(), time.UTC)

	assert.Contains(t, text, "<b>Эпоха 2025-02 закрыта</b>")
	assert.Contains(t, text, "Период: 01.02.2025 00:00 - 01.03.2025 00:00")
	assert.Contains(t, text, "Участники: 3 пользователя, получили минт: 2")
	assert.Contains(t, text, "Пул: 1 000 000.00 FUN")
	assert.Contains(t, text, "Начислено: 60 000.00 FUN")
	assert.Contains(t, text, "Ограничение anti-whale: 2 пользователя")
	assert.Contains(t, text, "run_id 0b5c8c4e-2f0e-4c3a-9a53-5b1d2f7a9e10")
}

func TestNotifyEpochClosed(t *testing.T) {
	sender := &fakeSender{failOn: -100}
	n := NewTelegramWithSender(sender, []int64{42, -100, 7}, time.UTC)

	err := n.NotifyEpochClosed(context.Background(), closeResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-100")

	require.Len(t, sender.sent, 2)
	assert.Equal(t, int64(42), sender.sent[0].ChatID.ID)
	assert.Equal(t, int64(7), sender.sent[1].ChatID.ID)
	assert.Equal(t, telego.ModeHTML, sender.sent[0].ParseMode)

	require.NoError(t, n.NotifyEpochClosed(context.Background(), nil))
}
