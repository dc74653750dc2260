package pplp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionBaseScore(t *testing.T) {
	cfg := RulesV1()
	tests := []struct {
		name   string
		action ActionType
		rw     float64
		want   float64
	}{
		{"post neutral reputation", ActionPost, 1.0, 1.0},
		{"comment", ActionComment, 1.2, 0.6},
		{"video upload", ActionVideoUpload, 1.0, 2.0},
		{"unknown type", ActionType("teleport"), 1.0, 0},
		{"reputation above max", ActionPost, 10, 2.0},
		{"reputation below min", ActionPost, -1, 0.5},
		{"reputation NaN", ActionPost, math.NaN(), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ActionBaseScore(tt.action, tt.rw, cfg), 1e-12)
		})
	}
}

func TestActionBaseScoreMonotoneInReputation(t *testing.T) {
	cfg := RulesV1()
	prev := -1.0
	for rw := 0.0; rw <= 3.0; rw += 0.05 {
		got := ActionBaseScore(ActionDonation, rw, cfg)
		require.GreaterOrEqual(t, got, prev, "rw=%v", rw)
		prev = got
	}
}

func TestReputationWeight(t *testing.T) {
	cfg := RulesV1()
	assert.Equal(t, 0.5, ReputationWeight(0, cfg))
	assert.Equal(t, 0.5, ReputationWeight(-100, cfg))
	assert.Equal(t, 2.0, ReputationWeight(1e9, cfg))
	assert.InDelta(t, 0.5+0.25*math.Log(11), ReputationWeight(10, cfg), 1e-12)
	assert.Equal(t, 1.0, ReputationWeight(10, nil))

	prev := 0.0
	for r := 0.0; r < 1000; r += 7 {
		got := ReputationWeight(r, cfg)
		require.GreaterOrEqual(t, got, prev)
		require.LessOrEqual(t, got, cfg.Reputation.WMax)
		prev = got
	}
}

func TestContentPillarScoreZeroRatingIsZero(t *testing.T) {
	cfg := RulesV1()
	for contentType := range cfg.Content.TypeMultiplier {
		for _, avg := range []float64{0, 2.5, 5, 100, math.NaN()} {
			got := ContentPillarScore(contentType, CommunityRating{Average: avg, Count: 0}, cfg)
			require.Equal(t, 0.0, got, "type=%s avg=%v", contentType, avg)
		}
	}
}

func TestContentPillarScore(t *testing.T) {
	cfg := RulesV1()

	assert.InDelta(t, math.Pow(4, 1.3), ContentPillarScore(ContentPost, CommunityRating{Average: 4, Count: 12}, cfg), 1e-12)
	assert.InDelta(t, 1.5*math.Pow(5, 1.3), ContentPillarScore(ContentCourse, CommunityRating{Average: 9, Count: 3}, cfg), 1e-12,
		"average above rating_max is clamped")
	assert.Equal(t, 0.0, ContentPillarScore(ContentPost, CommunityRating{Average: -3, Count: 3}, cfg))
	assert.Equal(t, 0.0, ContentPillarScore(ContentType("hologram"), CommunityRating{Average: 4, Count: 3}, cfg))
	assert.Equal(t, 0.0, ContentPillarScore(ContentPost, CommunityRating{Average: 4, Count: 3}, nil))

	prev := -1.0
	for avg := 0.0; avg <= 5.0; avg += 0.25 {
		got := ContentPillarScore(ContentVideo, CommunityRating{Average: avg, Count: 1}, cfg)
		require.Greater(t, got, prev)
		prev = got
	}
}

func TestDailyLightScore(t *testing.T) {
	cfg := RulesV1()

	assert.InDelta(t, 0.4*6.12+0.6*math.Pow(4, 1.3), DailyLightScore(6.12, math.Pow(4, 1.3), cfg), 1e-12)
	assert.Equal(t, 0.0, DailyLightScore(0, 0, cfg))
	assert.InDelta(t, 0.6*3, DailyLightScore(-10, 3, cfg), 1e-12)
	assert.Equal(t, 0.0, DailyLightScore(math.NaN(), math.NaN(), cfg))
	assert.Equal(t, 0.0, DailyLightScore(5, 5, nil))
}
