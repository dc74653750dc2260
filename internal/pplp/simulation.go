// Package pplp — simulation.go содержит эталонные сценарии, на которых
// проверяется калибровка правил: типичный активный пользователь (Ly)
// и эпоха с «китом», упирающимся в лимит anti-whale.
package pplp

import (
	"fmt"
	"time"
)

const (
	lySimUserID        = "ly"
	lySimCommunitySize = 1000
	lySimCommunity     = 100_000.0
	lySimPool          = 1_000_000.0

	whaleSimUserID  = "whale"
	minnowSimUserID = "minnow"
	whaleSimPool    = 1_000_000.0
)

// simulationDay — фиксированный день сценариев, чтобы повтор давал тот же результат.
var simulationDay = time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)

// SimulationResult — итог сценария.
type SimulationResult struct {
	Name   string                `json:"name"`
	UserID string                `json:"user_id"`
	Daily  DailyLightScoreResult `json:"daily"`
	// LightScore — счёт пользователя за эпоху.
	LightScore      float64         `json:"light_score"`
	CommunityLight  float64         `json:"community_light"`
	PoolAmount      float64         `json:"pool_amount"`
	Allocation      MintAllocation  `json:"allocation"`
	MintAmount      float64         `json:"mint_amount"`
	AntiWhaleLimit  float64         `json:"anti_whale_limit"`
	AntiWhalePassed bool            `json:"anti_whale_passed"`
	Settlement      EpochSettlement `json:"settlement"`
}

// SimulateUserLy прогоняет эталонного пользователя Ly через весь конвейер:
// один день активности, затем минт в эпохе, где общий Light Score
// сообщества (вместе с Ly) равен 100 000, а пул — 1 000 000 FUN.
func SimulateUserLy(cfg *ScoringRulesConfig) (SimulationResult, error) {
	if cfg == nil {
		return SimulationResult{}, ErrNilConfig
	}

	at := func(hour int) time.Time { return simulationDay.Add(time.Duration(hour) * time.Hour) }
	events := []ActionEvent{
		{EventID: "ly-post-1", UserID: lySimUserID, Type: ActionPost, OccurredAt: at(8),
			ContentType: ContentPost, Rating: &CommunityRating{Average: 4.0, Count: 12}},
		{EventID: "ly-video-1", UserID: lySimUserID, Type: ActionVideoUpload, OccurredAt: at(20),
			ContentType: ContentVideo},
	}
	for i := 1; i <= 3; i++ {
		events = append(events, ActionEvent{EventID: fmt.Sprintf("ly-comment-%d", i), UserID: lySimUserID, Type: ActionComment, OccurredAt: at(9 + i)})
	}
	for i := 1; i <= 6; i++ {
		events = append(events, ActionEvent{EventID: fmt.Sprintf("ly-like-%d", i), UserID: lySimUserID, Type: ActionLike, OccurredAt: at(12 + i)})
	}

	daily, err := ScoreDay(DailyScoreInput{
		UserID:             lySimUserID,
		Day:                simulationDay,
		Events:             events,
		ReputationWeight:   1.2,
		ActiveDaysInWindow: 12,
		WindowSize:         30,
		CompletedSteps:     []string{"profile_completed", "first_post"},
		TotalSteps:         5,
		SuspiciousScore:    0.05,
		ViolationLevel:     0,
	}, cfg)
	if err != nil {
		return SimulationResult{}, err
	}

	// Остальное сообщество — равные участники, делящие 100 000 − L.
	others := lySimCommunitySize - 1
	share := (lySimCommunity - daily.LightScore) / float64(others)
	results := make([]DailyLightScoreResult, 0, lySimCommunitySize)
	results = append(results, daily)
	for i := 1; i <= others; i++ {
		results = append(results, DailyLightScoreResult{
			UserID:      fmt.Sprintf("member-%04d", i),
			Day:         simulationDay,
			RuleVersion: cfg.RuleVersion,
			LightScore:  share,
		})
	}

	epoch := EpochFor(cfg.Mint.EpochType, simulationDay, time.UTC)
	epoch.PoolAmount = lySimPool
	epoch.RuleVersion = cfg.RuleVersion
	return settleSimulation("user_ly", lySimUserID, daily, epoch, results, cfg)
}

// SimulateWhaleEpoch — эпоха из двух пользователей, где «кит» держит 90%
// общего счёта. Его итоговая доля обязана быть ровно pool × anti_whale_cap.
func SimulateWhaleEpoch(cfg *ScoringRulesConfig) (SimulationResult, error) {
	if cfg == nil {
		return SimulationResult{}, ErrNilConfig
	}
	whale := DailyLightScoreResult{UserID: whaleSimUserID, Day: simulationDay, RuleVersion: cfg.RuleVersion, LightScore: 900}
	minnow := DailyLightScoreResult{UserID: minnowSimUserID, Day: simulationDay, RuleVersion: cfg.RuleVersion, LightScore: 100}

	epoch := EpochFor(cfg.Mint.EpochType, simulationDay, time.UTC)
	epoch.PoolAmount = whaleSimPool
	epoch.RuleVersion = cfg.RuleVersion
	return settleSimulation("whale_epoch", whaleSimUserID, whale, epoch, []DailyLightScoreResult{whale, minnow}, cfg)
}

func settleSimulation(name, userID string, daily DailyLightScoreResult, epoch Epoch, results []DailyLightScoreResult, cfg *ScoringRulesConfig) (SimulationResult, error) {
	settlement, err := FinalizeEpoch(epoch, results, cfg)
	if err != nil {
		return SimulationResult{}, err
	}

	res := SimulationResult{
		Name:           name,
		UserID:         userID,
		Daily:          daily,
		CommunityLight: settlement.TotalLight,
		PoolAmount:     epoch.PoolAmount,
		AntiWhaleLimit: UnitsToTokens(AntiWhaleCapUnits(epoch.PoolAmount, cfg)),
		Settlement:     settlement,
	}
	for _, a := range settlement.Allocations {
		if a.UserID == userID {
			res.Allocation = a
			res.LightScore = a.LightScore
			res.MintAmount = a.FinalAmount
			break
		}
	}
	res.AntiWhalePassed = res.Allocation.FinalUnits <= AntiWhaleCapUnits(epoch.PoolAmount, cfg)
	return res, nil
}
