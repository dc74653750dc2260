package pplp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateUserLy(t *testing.T) {
	cfg := RulesV1()
	res, err := SimulateUserLy(cfg)
	require.NoError(t, err)

	t.Run("light score in range", func(t *testing.T) {
		assert.Greater(t, res.LightScore, 7.5)
		assert.Less(t, res.LightScore, 10.0)
		assert.Equal(t, res.Daily.LightScore, res.LightScore)
	})

	t.Run("mint amount in range", func(t *testing.T) {
		assert.Greater(t, res.MintAmount, 70.0)
		assert.Less(t, res.MintAmount, 110.0)
	})

	t.Run("anti-whale check passes", func(t *testing.T) {
		assert.True(t, res.AntiWhalePassed)
		assert.False(t, res.Allocation.Capped)
		assert.LessOrEqual(t, res.MintAmount, res.AntiWhaleLimit)
	})

	t.Run("replay is deterministic", func(t *testing.T) {
		again, err := SimulateUserLy(RulesV1())
		require.NoError(t, err)
		assert.Equal(t, res, again)
	})
}

func TestSimulateUserLyBreakdown(t *testing.T) {
	res, err := SimulateUserLy(RulesV1())
	require.NoError(t, err)

	bd := res.Daily.Breakdown
	assert.InDelta(t, 6.12, bd.BaseScore, 1e-9)
	assert.InDelta(t, 6.0629, bd.ContentScore, 1e-4)
	assert.InDelta(t, 1.19781, bd.ConsistencyMultiplier, 1e-5)
	assert.InDelta(t, 1.2, bd.SequenceMultiplier, 1e-12)
	assert.InDelta(t, 0.96, bd.IntegrityMultiplier, 1e-12)
	assert.InDelta(t, 8.3975, res.LightScore, 1e-3)
	assert.InDelta(t, 100_000, res.CommunityLight, 1e-6)
	assert.Contains(t, res.Daily.Reasons, ReasonUnratedContent)
	assert.Equal(t, 1000, len(res.Settlement.Allocations))
}

func TestSimulateWhaleEpoch(t *testing.T) {
	cfg := RulesV1()
	res, err := SimulateWhaleEpoch(cfg)
	require.NoError(t, err)

	assert.True(t, res.Allocation.Capped)
	assert.Equal(t, res.PoolAmount*cfg.Mint.AntiWhaleCap, res.MintAmount)
	assert.Equal(t, AntiWhaleCapUnits(res.PoolAmount, cfg), res.Allocation.FinalUnits)
	assert.Greater(t, res.Allocation.RawAmount, res.MintAmount)
	assert.True(t, res.AntiWhalePassed)
	assert.LessOrEqual(t, res.Settlement.MintedUnits, res.Settlement.PoolUnits)

	_, err = SimulateWhaleEpoch(nil)
	require.ErrorIs(t, err, ErrNilConfig)
}
