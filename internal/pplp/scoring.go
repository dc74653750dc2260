// Package pplp — scoring.go содержит базовые формулы: вес действия,
// вес репутации, контентную составляющую и дневную агрегацию.
package pplp

import "math"

// ActionBaseScore возвращает базовый счёт одного действия:
//
//	base_action_constant × вес_типа × clamp(reputationWeight, w_min, w_max)
//
// Неизвестный тип действия даёт 0 (без ошибки), чтобы новые типы
// из приложения не ломали подсчёт. Вес репутации вне диапазона зажимается.
func ActionBaseScore(actionType ActionType, reputationWeight float64, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 0
	}
	w, ok := cfg.Actions.Weights[actionType]
	if !ok {
		return 0
	}
	rw := clamp(reputationWeight, cfg.Reputation.WMin, cfg.Reputation.WMax)
	return cfg.Actions.BaseActionConstant * w * rw
}

// ReputationWeight переводит сырой счёт репутации в вес:
//
//	clamp(w_min + alpha × ln(1 + R), w_min, w_max)
//
// Отрицательная репутация считается нулевой.
func ReputationWeight(reputationScore float64, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 1
	}
	r := reputationScore
	if math.IsNaN(r) || r < 0 {
		r = 0
	}
	w := cfg.Reputation.WMin + cfg.Reputation.Alpha*math.Log1p(r)
	return clamp(w, cfg.Reputation.WMin, cfg.Reputation.WMax)
}

// ContentPillarScore оценивает содержание действия:
//
//	множитель_типа × average^gamma
//
// Без оценок (Count == 0) бонуса нет — ровно 0, без деления и NaN.
// gamma > 1 сверхлинейно награждает стабильно высокие оценки.
func ContentPillarScore(contentType ContentType, rating CommunityRating, cfg *ScoringRulesConfig) float64 {
	if cfg == nil || rating.Count <= 0 {
		return 0
	}
	mult, ok := cfg.Content.TypeMultiplier[contentType]
	if !ok {
		return 0
	}
	avg := clamp(rating.Average, 0, cfg.Content.RatingMax)
	return mult * math.Pow(avg, cfg.Content.Gamma)
}

// DailyLightScore объединяет базовый и контентный счёт дня:
//
//	base_action_weight × base + content_weight × content
//
// Сумма весов проверяется при загрузке конфигурации, не здесь.
func DailyLightScore(baseScore, contentScore float64, cfg *ScoringRulesConfig) float64 {
	if cfg == nil {
		return 0
	}
	base := clamp(baseScore, 0, math.MaxFloat64)
	content := clamp(contentScore, 0, math.MaxFloat64)
	return cfg.Weights.BaseActionWeight*base + cfg.Weights.ContentWeight*content
}
