// Package pplp — pipeline.go собирает дневной конвейер:
// действия → базовый и контентный счёт → дневной счёт → множители → штраф.
package pplp

import (
	"math"
	"sort"
	"time"
)

// ScoreDay считает Light Score одного пользователя за один день.
//
// Алгоритм:
//  1. Для каждого действия — базовый счёт (ActionBaseScore)
//  2. Для действий с контентом — контентный счёт (ContentPillarScore)
//  3. Дневная агрегация с весами (DailyLightScore)
//  4. Множители регулярности и цепочки
//  5. Штраф за сигналы злоупотреблений
//
// Единственная ошибка — отсутствующая конфигурация.
func ScoreDay(input DailyScoreInput, cfg *ScoringRulesConfig) (DailyLightScoreResult, error) {
	if cfg == nil {
		return DailyLightScoreResult{}, ErrNilConfig
	}

	var reasons reasonSet
	bd := Breakdown{}

	// Шаг 0: вес репутации (зажимается в [w_min, w_max])
	rw := clamp(input.ReputationWeight, cfg.Reputation.WMin, cfg.Reputation.WMax)
	if rw != input.ReputationWeight {
		reasons.add(ReasonReputationClamped)
	}
	bd.ReputationWeight = rw

	// Шаги 1-2: действия дня
	steps := make(map[string]struct{}, len(input.CompletedSteps))
	for _, tag := range input.CompletedSteps {
		if tag != "" {
			steps[tag] = struct{}{}
		}
	}
	for _, ev := range sortedEvents(input.Events) {
		if _, known := cfg.Actions.Weights[ev.Type]; !known {
			bd.UnknownActions++
			reasons.add(ReasonUnknownActionType)
			continue
		}
		bd.CountedActions++
		bd.BaseScore += ActionBaseScore(ev.Type, rw, cfg)

		if ev.SequenceTag != "" {
			steps[ev.SequenceTag] = struct{}{}
		}

		if ev.ContentType == "" {
			continue
		}
		if _, known := cfg.Content.TypeMultiplier[ev.ContentType]; !known {
			reasons.add(ReasonUnknownContentType)
			continue
		}
		if ev.Rating == nil || ev.Rating.Count <= 0 {
			reasons.add(ReasonUnratedContent)
			continue
		}
		bd.RatedContent++
		bd.ContentScore += ContentPillarScore(ev.ContentType, *ev.Rating, cfg)
	}

	// Шаг 3: дневная агрегация
	bd.RawDailyScore = DailyLightScore(bd.BaseScore, bd.ContentScore, cfg)

	// Шаг 4: множители
	window := input.WindowSize
	if window <= 0 {
		window = cfg.Consistency.WindowDays
	}
	bd.ActiveDays = clampInt(input.ActiveDaysInWindow, 0, window)
	bd.ConsistencyMultiplier = ConsistencyMultiplier(bd.ActiveDays, window, cfg)
	if bd.ConsistencyMultiplier > 1 {
		reasons.add(ReasonConsistencyBonus)
	}

	bd.CompletedSteps = len(steps)
	if input.TotalSteps > 0 && bd.CompletedSteps > input.TotalSteps {
		bd.CompletedSteps = input.TotalSteps
	}
	bd.SequenceMultiplier = SequenceMultiplier(bd.CompletedSteps, input.TotalSteps, cfg)
	if bd.SequenceMultiplier > 1 {
		reasons.add(ReasonSequenceBonus)
	}

	// Шаг 5: штраф
	bd.IntegrityMultiplier = IntegrityPenalty(input.SuspiciousScore, input.ViolationLevel, cfg)
	if input.ViolationLevel >= cfg.Penalty.HardViolationLevel {
		reasons.add(ReasonHardViolation)
	}
	if bd.IntegrityMultiplier < 1 {
		reasons.add(ReasonIntegrityPenalty)
	}

	score := bd.RawDailyScore * bd.ConsistencyMultiplier * bd.SequenceMultiplier * bd.IntegrityMultiplier
	if math.IsNaN(score) || score < 0 {
		score = 0
	}

	return DailyLightScoreResult{
		UserID:      input.UserID,
		Day:         input.Day,
		RuleVersion: cfg.RuleVersion,
		LightScore:  score,
		Breakdown:   bd,
		Reasons:     reasons.list(),
	}, nil
}

// sortedEvents возвращает копию событий в порядке (OccurredAt, EventID),
// чтобы сумма не зависела от порядка, в котором их прислали.
func sortedEvents(events []ActionEvent) []ActionEvent {
	out := append([]ActionEvent(nil), events...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// CountActiveDays считает различные дни с активностью в окне
// (asOf−window, asOf]. Дни сравниваются по календарной дате в зоне loc.
func CountActiveDays(activity []time.Time, asOf time.Time, window int, loc *time.Location) int {
	if window <= 0 || len(activity) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}
	end := DayStart(asOf, loc).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -window)

	days := make(map[string]struct{})
	for _, t := range activity {
		local := t.In(loc)
		if local.Before(start) || !local.Before(end) {
			continue
		}
		days[local.Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

// DayStart возвращает полночь календарного дня t в зоне loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// AccumulateEpoch суммирует дневные счёты по пользователям внутри эпохи.
// Перед суммированием результаты сортируются по (UserID, Day), поэтому
// порядок входа не влияет на результат. Выход отсортирован по UserID.
func AccumulateEpoch(epoch Epoch, results []DailyLightScoreResult) []UserScore {
	inEpoch := make([]DailyLightScoreResult, 0, len(results))
	for _, r := range results {
		if r.UserID != "" && epoch.Contains(r.Day) {
			inEpoch = append(inEpoch, r)
		}
	}
	sort.SliceStable(inEpoch, func(i, j int) bool {
		if inEpoch[i].UserID != inEpoch[j].UserID {
			return inEpoch[i].UserID < inEpoch[j].UserID
		}
		return inEpoch[i].Day.Before(inEpoch[j].Day)
	})

	out := make([]UserScore, 0)
	for _, r := range inEpoch {
		if len(out) == 0 || out[len(out)-1].UserID != r.UserID {
			out = append(out, UserScore{UserID: r.UserID})
		}
		if math.IsNaN(r.LightScore) || r.LightScore <= 0 {
			continue
		}
		out[len(out)-1].LightScore += r.LightScore
	}
	return out
}
