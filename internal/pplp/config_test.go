package pplp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesV1IsValid(t *testing.T) {
	require.NoError(t, RulesV1().Validate())
}

func TestCloneIsDeep(t *testing.T) {
	orig := RulesV1()
	clone := orig.Clone()
	require.Equal(t, orig, clone)

	clone.Actions.Weights[ActionPost] = 99
	clone.Content.TypeMultiplier[ContentVideo] = 99
	clone.Levels[1].Threshold = 1

	assert.Equal(t, 1.0, orig.Actions.Weights[ActionPost])
	assert.Equal(t, 1.2, orig.Content.TypeMultiplier[ContentVideo])
	assert.Equal(t, 50.0, orig.Levels[1].Threshold)

	var nilCfg *ScoringRulesConfig
	assert.Nil(t, nilCfg.Clone())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *ScoringRulesConfig)
		wantMsg string
	}{
		{"weights do not sum to one", func(c *ScoringRulesConfig) { c.Weights.ContentWeight = 0.5 }, "должны давать 1.0"},
		{"empty version", func(c *ScoringRulesConfig) { c.RuleVersion = "" }, "rule_version"},
		{"reputation bounds inverted", func(c *ScoringRulesConfig) { c.Reputation.WMin = 3 }, "w_min"},
		{"zero gamma", func(c *ScoringRulesConfig) { c.Content.Gamma = 0 }, "gamma"},
		{"negative action weight", func(c *ScoringRulesConfig) { c.Actions.Weights[ActionLike] = -1 }, "like"},
		{"NaN type multiplier", func(c *ScoringRulesConfig) { c.Content.TypeMultiplier[ContentPost] = math.NaN() }, "post"},
		{"zero lambda", func(c *ScoringRulesConfig) { c.Consistency.Lambda = 0 }, "lambda"},
		{"zero kappa", func(c *ScoringRulesConfig) { c.Sequence.Kappa = 0 }, "kappa"},
		{"max penalty of one", func(c *ScoringRulesConfig) { c.Penalty.MaxPenalty = 1 }, "max_penalty"},
		{"cap above one", func(c *ScoringRulesConfig) { c.Mint.AntiWhaleCap = 1.5 }, "anti_whale_cap"},
		{"unknown epoch type", func(c *ScoringRulesConfig) { c.Mint.EpochType = "daily" }, "epoch_type"},
		{"levels not ascending", func(c *ScoringRulesConfig) { c.Levels[2].Threshold = 10 }, "должен быть больше"},
		{"duplicate level", func(c *ScoringRulesConfig) { c.Levels[3].Name = LevelSprout }, "дважды"},
		{"lowest level not zero", func(c *ScoringRulesConfig) { c.Levels[0].Threshold = 1 }, "должен быть 0"},
		{"no levels", func(c *ScoringRulesConfig) { c.Levels = nil }, "levels пустой"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RulesV1()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := RulesV1()
	cfg.Content.Gamma = -1
	cfg.Sequence.Kappa = -2
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "gamma")
	assert.Contains(t, err.Error(), "kappa")

	var nilCfg *ScoringRulesConfig
	require.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}
