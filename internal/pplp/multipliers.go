// Package pplp — multipliers.go содержит множители дневного счёта:
// регулярность, цепочку действий и штраф за нарушения.
//
// Все функции зажимают входные значения и никогда не выходят за свои границы:
//   - ConsistencyMultiplier ∈ [1, 1+beta]
//   - SequenceMultiplier    ∈ [1, 1+eta]
//   - IntegrityPenalty      ∈ [1−max_penalty, 1]
package pplp

import "math"

// ConsistencyMultiplier награждает регулярную активность:
//
//	1 + beta × (1 − e^(−activeDays/lambda))
//
// activeDays зажимается в [0, windowSize]. windowSize <= 0 — берём окно из конфигурации.
// Без активных дней множитель ровно 1.
func ConsistencyMultiplier(activeDays, windowSize int, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 1
	}
	if windowSize <= 0 {
		windowSize = cfg.Consistency.WindowDays
	}
	days := clampInt(activeDays, 0, windowSize)
	if days == 0 {
		return 1
	}
	beta := cfg.Consistency.Beta
	m := 1 + beta*(1-math.Exp(-float64(days)/cfg.Consistency.Lambda))
	return clamp(m, 1, 1+beta)
}

// SequenceMultiplier награждает прохождение цепочки действий:
//
//	1 + eta × min(1, completedSteps/kappa)
//
// Полный бонус наступает при completedSteps >= kappa, даже если цепочка длиннее:
// важно раннее прохождение короткой осмысленной части. Если totalSteps > 0,
// completedSteps обрезается до max(totalSteps, kappa), так что цепочка короче
// kappa тоже может дать полный бонус.
func SequenceMultiplier(completedSteps, totalSteps int, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 1
	}
	steps := completedSteps
	if steps < 0 {
		steps = 0
	}
	if limit := max(totalSteps, cfg.Sequence.Kappa); totalSteps > 0 && steps > limit {
		steps = limit
	}
	if steps == 0 {
		return 1
	}
	progress := math.Min(1, float64(steps)/float64(cfg.Sequence.Kappa))
	return 1 + cfg.Sequence.Eta*progress
}

// IntegrityPenalty возвращает множитель в [1−max_penalty, 1]:
//
//	1 − min(max_penalty, theta × f(s, v))
//	f(s, v) = suspicious_weight × clamp(s, 0, 1) + violation_step × v
//
// violationLevel >= hard_violation_level — жёсткий сигнал: сразу max_penalty,
// независимо от suspiciousScore.
func IntegrityPenalty(suspiciousScore float64, violationLevel int, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 1
	}
	return 1 - penaltyFraction(suspiciousScore, violationLevel, cfg)
}

func penaltyFraction(suspiciousScore float64, violationLevel int, cfg *ScoringRulesConfig) float64 {
	p := cfg.Penalty
	if violationLevel >= p.HardViolationLevel {
		return p.MaxPenalty
	}
	if violationLevel < 0 {
		violationLevel = 0
	}
	s := clamp(suspiciousScore, 0, 1)
	f := p.SuspiciousWeight*s + p.ViolationStep*float64(violationLevel)
	return clamp(p.Theta*f, 0, p.MaxPenalty)
}
