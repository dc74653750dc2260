package pplp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	a, err := RulesV1().Fingerprint()
	require.NoError(t, err)
	b, err := RulesV1().Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	tuned := RulesV1()
	tuned.Content.Gamma = 1.25
	c, err := tuned.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(RulesV1())
	require.NoError(t, err)

	require.NoError(t, reg.Register(RulesV1()), "same content twice is a no-op")

	tuned := RulesV1()
	tuned.Mint.AntiWhaleCap = 0.05
	require.ErrorIs(t, reg.Register(tuned), ErrVersionConflict)

	tuned.RuleVersion = "V1.1"
	require.NoError(t, reg.Register(tuned))
	assert.Equal(t, []string{"V1.0", "V1.1"}, reg.Versions())

	got, err := reg.Get("V1.1")
	require.NoError(t, err)
	assert.Equal(t, 0.05, got.Mint.AntiWhaleCap)

	got.Actions.Weights[ActionPost] = 1000
	again, err := reg.Get("V1.1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Actions.Weights[ActionPost], "registry hands out copies")

	_, err = reg.Get("V9")
	require.ErrorIs(t, err, ErrUnknownVersion)
	_, err = reg.FingerprintOf("V9")
	require.ErrorIs(t, err, ErrUnknownVersion)
}

func TestRegistryRejectsInvalid(t *testing.T) {
	bad := RulesV1()
	bad.Sequence.Kappa = 0
	_, err := NewRegistry(bad)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegistryConcurrentReaders(t *testing.T) {
	reg, err := NewRegistry(RulesV1())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfg, err := reg.Get("V1.0")
			if err == nil {
				_, _ = ScoreDay(DailyScoreInput{UserID: "u", Day: testDay, Events: testEvents(), ReputationWeight: 1}, cfg)
			}
		}()
	}
	wg.Wait()
}
