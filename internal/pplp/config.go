// Package pplp реализует движок Light Score и распределения FUN Money.
// config.go описывает версионированную конфигурацию правил подсчёта.
//
// Конфигурация неизменяема: любая правка коэффициентов — это новая версия
// (RuleVersion). Объект передаётся явно в каждую функцию, глобального
// синглтона нет, поэтому несколько версий правил могут жить одновременно
// (например, пересчёт старой эпохи по правилам того времени).
package pplp

import (
	"errors"
	"fmt"
	"math"
)

// ActionType — тип действия пользователя на платформе.
type ActionType string

const (
	ActionPost        ActionType = "post"
	ActionComment     ActionType = "comment"
	ActionLike        ActionType = "like"
	ActionShare       ActionType = "share"
	ActionVideoUpload ActionType = "video_upload"
	ActionDonation    ActionType = "donation"
	ActionVote        ActionType = "vote"
	ActionCourse      ActionType = "course"
	ActionBugReport   ActionType = "bug_report"
	ActionProposal    ActionType = "proposal"
	ActionCheckin     ActionType = "checkin"
)

// ContentType — тип контента, который оценивает сообщество.
type ContentType string

const (
	ContentPost      ContentType = "post"
	ContentComment   ContentType = "comment"
	ContentVideo     ContentType = "video"
	ContentCourse    ContentType = "course"
	ContentBugReport ContentType = "bug_report"
	ContentProposal  ContentType = "proposal"
)

// EpochType — длительность эпохи минта.
type EpochType string

const (
	EpochMonthly EpochType = "monthly"
	EpochWeekly  EpochType = "weekly"
)

// weightsSumTolerance — допуск при проверке суммы весов (0.4 + 0.6 в float).
const weightsSumTolerance = 1e-9

// WeightsConfig — доли базовой и контентной составляющих дневного счёта.
// В корректной конфигурации сумма равна 1.0.
type WeightsConfig struct {
	BaseActionWeight float64 `json:"base_action_weight" toml:"base_action_weight" yaml:"base_action_weight"`
	ContentWeight    float64 `json:"content_weight" toml:"content_weight" yaml:"content_weight"`
}

// ActionsConfig — веса типов действий.
type ActionsConfig struct {
	BaseActionConstant float64                `json:"base_action_constant" toml:"base_action_constant" yaml:"base_action_constant"`
	Weights            map[ActionType]float64 `json:"weights" toml:"weights" yaml:"weights"`
}

// ReputationConfig — границы веса репутации.
type ReputationConfig struct {
	Alpha float64 `json:"alpha" toml:"alpha" yaml:"alpha"`
	WMin  float64 `json:"w_min" toml:"w_min" yaml:"w_min"`
	WMax  float64 `json:"w_max" toml:"w_max" yaml:"w_max"`
}

// ContentConfig — параметры контентной составляющей.
type ContentConfig struct {
	Gamma          float64                 `json:"gamma" toml:"gamma" yaml:"gamma"`
	RatingMax      float64                 `json:"rating_max" toml:"rating_max" yaml:"rating_max"`
	TypeMultiplier map[ContentType]float64 `json:"type_multiplier" toml:"type_multiplier" yaml:"type_multiplier"`
}

// ConsistencyConfig — бонус за регулярную активность.
type ConsistencyConfig struct {
	Beta       float64 `json:"beta" toml:"beta" yaml:"beta"`
	Lambda     float64 `json:"lambda" toml:"lambda" yaml:"lambda"`
	WindowDays int     `json:"window_days" toml:"window_days" yaml:"window_days"`
}

// SequenceConfig — бонус за прохождение цепочки действий (онбординг).
type SequenceConfig struct {
	Eta   float64 `json:"eta" toml:"eta" yaml:"eta"`
	Kappa int     `json:"kappa" toml:"kappa" yaml:"kappa"`
}

// PenaltyConfig — штраф за сигналы злоупотреблений.
// Функция смешивания f(s, v) = SuspiciousWeight·s + ViolationStep·v
// тоже версионируется, поэтому её коэффициенты живут здесь.
type PenaltyConfig struct {
	Theta              float64 `json:"theta" toml:"theta" yaml:"theta"`
	MaxPenalty         float64 `json:"max_penalty" toml:"max_penalty" yaml:"max_penalty"`
	SuspiciousWeight   float64 `json:"suspicious_weight" toml:"suspicious_weight" yaml:"suspicious_weight"`
	ViolationStep      float64 `json:"violation_step" toml:"violation_step" yaml:"violation_step"`
	HardViolationLevel int     `json:"hard_violation_level" toml:"hard_violation_level" yaml:"hard_violation_level"`
}

// MintConfig — параметры распределения пула эпохи.
type MintConfig struct {
	EpochType                EpochType `json:"epoch_type" toml:"epoch_type" yaml:"epoch_type"`
	AntiWhaleCap             float64   `json:"anti_whale_cap" toml:"anti_whale_cap" yaml:"anti_whale_cap"`
	MinLightThreshold        float64   `json:"min_light_threshold" toml:"min_light_threshold" yaml:"min_light_threshold"`
	RedistributeCappedExcess bool      `json:"redistribute_capped_excess" toml:"redistribute_capped_excess" yaml:"redistribute_capped_excess"`
}

// LevelThreshold — минимальный накопленный счёт для уровня.
type LevelThreshold struct {
	Name      Level   `json:"name" toml:"name" yaml:"name"`
	Threshold float64 `json:"threshold" toml:"threshold" yaml:"threshold"`
}

// ScoringRulesConfig содержит ВСЕ настраиваемые константы движка.
type ScoringRulesConfig struct {
	RuleVersion string            `json:"rule_version" toml:"rule_version" yaml:"rule_version"`
	Weights     WeightsConfig     `json:"weights" toml:"weights" yaml:"weights"`
	Actions     ActionsConfig     `json:"actions" toml:"actions" yaml:"actions"`
	Reputation  ReputationConfig  `json:"reputation" toml:"reputation" yaml:"reputation"`
	Content     ContentConfig     `json:"content" toml:"content" yaml:"content"`
	Consistency ConsistencyConfig `json:"consistency" toml:"consistency" yaml:"consistency"`
	Sequence    SequenceConfig    `json:"sequence" toml:"sequence" yaml:"sequence"`
	Penalty     PenaltyConfig     `json:"penalty" toml:"penalty" yaml:"penalty"`
	Mint        MintConfig        `json:"mint" toml:"mint" yaml:"mint"`
	// Levels — по возрастанию порога.
	Levels []LevelThreshold `json:"levels" toml:"levels" yaml:"levels"`
}

// RuleVersionV1 — версия встроенных правил.
const RuleVersionV1 = "V1.0"

// RulesV1 возвращает первую боевую версию правил.
// Каждый вызов отдаёт новую копию — менять её на месте бессмысленно.
func RulesV1() *ScoringRulesConfig {
	return &ScoringRulesConfig{
		RuleVersion: RuleVersionV1,
		Weights: WeightsConfig{
			BaseActionWeight: 0.4,
			ContentWeight:    0.6,
		},
		Actions: ActionsConfig{
			BaseActionConstant: 1.0,
			Weights: map[ActionType]float64{
				ActionPost:        1.0,
				ActionComment:     0.5,
				ActionLike:        0.1,
				ActionShare:       0.3,
				ActionVideoUpload: 2.0,
				ActionDonation:    1.5,
				ActionVote:        0.3,
				ActionCourse:      2.5,
				ActionBugReport:   1.2,
				ActionProposal:    1.5,
				ActionCheckin:     0.2,
			},
		},
		Reputation: ReputationConfig{Alpha: 0.25, WMin: 0.5, WMax: 2.0},
		Content: ContentConfig{
			Gamma:     1.3,
			RatingMax: 5.0,
			TypeMultiplier: map[ContentType]float64{
				ContentPost:      1.0,
				ContentComment:   0.6,
				ContentVideo:     1.2,
				ContentCourse:    1.5,
				ContentBugReport: 1.1,
				ContentProposal:  1.3,
			},
		},
		Consistency: ConsistencyConfig{Beta: 0.6, Lambda: 30, WindowDays: 30},
		Sequence:    SequenceConfig{Eta: 0.5, Kappa: 5},
		Penalty: PenaltyConfig{
			Theta:              0.8,
			MaxPenalty:         0.5,
			SuspiciousWeight:   1.0,
			ViolationStep:      0.2,
			HardViolationLevel: 3,
		},
		Mint: MintConfig{
			EpochType:                EpochMonthly,
			AntiWhaleCap:             0.03,
			MinLightThreshold:        5,
			RedistributeCappedExcess: false,
		},
		Levels: []LevelThreshold{
			{Name: LevelSeed, Threshold: 0},
			{Name: LevelSprout, Threshold: 50},
			{Name: LevelBuilder, Threshold: 200},
			{Name: LevelGuardian, Threshold: 500},
			{Name: LevelArchitect, Threshold: 1200},
		},
	}
}

// Clone создаёт глубокую копию конфигурации (карты и срез уровней).
func (c *ScoringRulesConfig) Clone() *ScoringRulesConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Actions.Weights = make(map[ActionType]float64, len(c.Actions.Weights))
	for k, v := range c.Actions.Weights {
		clone.Actions.Weights[k] = v
	}
	clone.Content.TypeMultiplier = make(map[ContentType]float64, len(c.Content.TypeMultiplier))
	for k, v := range c.Content.TypeMultiplier {
		clone.Content.TypeMultiplier[k] = v
	}
	clone.Levels = append([]LevelThreshold(nil), c.Levels...)
	return &clone
}

// Validate проверяет конфигурацию. Вызывается один раз при загрузке,
// а не на каждый расчёт.
func (c *ScoringRulesConfig) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.RuleVersion != "", "rule_version не задана")
	check(validNumber(c.Weights.BaseActionWeight) && c.Weights.BaseActionWeight >= 0, "base_action_weight должен быть >= 0")
	check(validNumber(c.Weights.ContentWeight) && c.Weights.ContentWeight >= 0, "content_weight должен быть >= 0")
	check(math.Abs(c.Weights.BaseActionWeight+c.Weights.ContentWeight-1) <= weightsSumTolerance,
		"base_action_weight + content_weight должны давать 1.0, получено %v", c.Weights.BaseActionWeight+c.Weights.ContentWeight)

	check(validNumber(c.Actions.BaseActionConstant) && c.Actions.BaseActionConstant >= 0, "base_action_constant должен быть >= 0")
	for t, w := range c.Actions.Weights {
		check(validNumber(w) && w >= 0, "вес действия %q отрицательный или не число", t)
	}

	check(validNumber(c.Reputation.Alpha) && c.Reputation.Alpha >= 0, "reputation.alpha должен быть >= 0")
	check(c.Reputation.WMin > 0 && c.Reputation.WMin <= c.Reputation.WMax, "нужно 0 < w_min <= w_max")

	check(c.Content.Gamma > 0, "content.gamma должен быть > 0")
	check(c.Content.RatingMax > 0, "content.rating_max должен быть > 0")
	for t, m := range c.Content.TypeMultiplier {
		check(validNumber(m) && m >= 0, "множитель контента %q отрицательный или не число", t)
	}

	check(validNumber(c.Consistency.Beta) && c.Consistency.Beta >= 0, "consistency.beta должен быть >= 0")
	check(c.Consistency.Lambda > 0, "consistency.lambda должен быть > 0")
	check(c.Consistency.WindowDays > 0, "consistency.window_days должен быть > 0")

	check(validNumber(c.Sequence.Eta) && c.Sequence.Eta >= 0, "sequence.eta должен быть >= 0")
	check(c.Sequence.Kappa > 0, "sequence.kappa должен быть > 0")

	check(validNumber(c.Penalty.Theta) && c.Penalty.Theta >= 0, "penalty.theta должен быть >= 0")
	check(c.Penalty.MaxPenalty >= 0 && c.Penalty.MaxPenalty < 1, "penalty.max_penalty должен быть в [0, 1)")
	check(validNumber(c.Penalty.SuspiciousWeight) && c.Penalty.SuspiciousWeight >= 0, "penalty.suspicious_weight должен быть >= 0")
	check(validNumber(c.Penalty.ViolationStep) && c.Penalty.ViolationStep >= 0, "penalty.violation_step должен быть >= 0")
	check(c.Penalty.HardViolationLevel > 0, "penalty.hard_violation_level должен быть > 0")

	check(c.Mint.EpochType == EpochMonthly || c.Mint.EpochType == EpochWeekly, "неизвестный mint.epoch_type %q", c.Mint.EpochType)
	check(c.Mint.AntiWhaleCap > 0 && c.Mint.AntiWhaleCap <= 1, "mint.anti_whale_cap должен быть в (0, 1]")
	check(validNumber(c.Mint.MinLightThreshold) && c.Mint.MinLightThreshold >= 0, "mint.min_light_threshold должен быть >= 0")

	if err := validateLevels(c.Levels); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w (%s): %w", ErrInvalidConfig, c.RuleVersion, errors.Join(errs...))
	}
	return nil
}

func validateLevels(levels []LevelThreshold) error {
	if len(levels) == 0 {
		return errors.New("levels пустой")
	}
	if levels[0].Threshold != 0 {
		return fmt.Errorf("порог первого уровня %q должен быть 0", levels[0].Name)
	}
	seen := make(map[Level]struct{}, len(levels))
	for i, l := range levels {
		if l.Name == "" {
			return fmt.Errorf("уровень #%d без имени", i)
		}
		if _, dup := seen[l.Name]; dup {
			return fmt.Errorf("уровень %q указан дважды", l.Name)
		}
		seen[l.Name] = struct{}{}
		if i > 0 && l.Threshold <= levels[i-1].Threshold {
			return fmt.Errorf("порог уровня %q должен быть больше порога %q", l.Name, levels[i-1].Name)
		}
	}
	return nil
}

// validNumber — не NaN и не бесконечность.
func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clamp ограничивает v отрезком [lo, hi]. NaN превращается в lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampInt ограничивает v отрезком [lo, hi].
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
