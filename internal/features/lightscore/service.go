// Package lightscore — service.go собирает входные данные из истории,
// прогоняет дневной конвейер pplp и сохраняет результаты.
package lightscore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/features/actions"
	"funplay.vn/light-engine/internal/metrics"
	"funplay.vn/light-engine/internal/pplp"
)

// EventSource — история действий и сигналы.
type EventSource interface {
	EventsBetween(ctx context.Context, userID string, from, to time.Time) ([]pplp.ActionEvent, error)
	ActiveUsersBetween(ctx context.Context, from, to time.Time) ([]string, error)
	ActivityTimes(ctx context.Context, userID string, from, to time.Time, loc *time.Location) ([]time.Time, error)
	GetSignals(ctx context.Context, userID string) (*actions.Signals, error)
}

// ScoreStore — хранилище дневных результатов.
type ScoreStore interface {
	UpsertDaily(ctx context.Context, res pplp.DailyLightScoreResult) error
	UserTotals(ctx context.Context, userID string) (Totals, error)
	History(ctx context.Context, userID string, from, to time.Time) ([]pplp.DailyLightScoreResult, error)
}

// RulesResolver выбирает правила для дня: версию эпохи, в которую он попадает.
type RulesResolver interface {
	RulesFor(ctx context.Context, day time.Time) (*pplp.ScoringRulesConfig, error)
}

// maxRecalcDays — максимальная длина диапазона пересчёта.
const maxRecalcDays = 366

// Service считает и хранит Light Score.
type Service struct {
	events    EventSource
	store     ScoreStore
	rules     *pplp.ScoringRulesConfig
	resolver  RulesResolver
	loc       *time.Location
	batchSize int
	metrics   *metrics.LightMetrics
}

// NewService создаёт сервис. rules — активная версия правил, resolver — правила
// эпохи дня; без resolver все дни считаются по rules.
func NewService(events EventSource, store ScoreStore, rules *pplp.ScoringRulesConfig, resolver RulesResolver, loc *time.Location, batchSize int, m *metrics.LightMetrics) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Service{
		events:    events,
		store:     store,
		rules:     rules,
		resolver:  resolver,
		loc:       loc,
		batchSize: batchSize,
		metrics:   m,
	}
}

// RuleVersion возвращает активную версию правил.
func (s *Service) RuleVersion() string {
	if s.rules == nil {
		return ""
	}
	return s.rules.RuleVersion
}

// rulesFor возвращает правила эпохи, в которую попадает день.
func (s *Service) rulesFor(ctx context.Context, day time.Time) (*pplp.ScoringRulesConfig, error) {
	if s.resolver == nil {
		if s.rules == nil {
			return nil, pplp.ErrNilConfig
		}
		return s.rules, nil
	}
	rules, err := s.resolver.RulesFor(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("правила дня %s: %w", day.Format(dateLayout), err)
	}
	return rules, nil
}

// ScoreUserDay считает и сохраняет один день одного пользователя по правилам
// его эпохи. Повторный вызов перезаписывает результат тем же значением.
func (s *Service) ScoreUserDay(ctx context.Context, userID string, day time.Time) (pplp.DailyLightScoreResult, error) {
	start := pplp.DayStart(day, s.loc)
	rules, err := s.rulesFor(ctx, start)
	if err != nil {
		return pplp.DailyLightScoreResult{}, err
	}
	return s.scoreUserDay(ctx, userID, start, rules)
}

func (s *Service) scoreUserDay(ctx context.Context, userID string, start time.Time, rules *pplp.ScoringRulesConfig) (pplp.DailyLightScoreResult, error) {
	next := start.AddDate(0, 0, 1)

	events, err := s.events.EventsBetween(ctx, userID, start, next)
	if err != nil {
		return pplp.DailyLightScoreResult{}, err
	}
	signals, err := s.events.GetSignals(ctx, userID)
	if err != nil {
		return pplp.DailyLightScoreResult{}, err
	}

	window := rules.Consistency.WindowDays
	activity, err := s.events.ActivityTimes(ctx, userID, next.AddDate(0, 0, -window), next, s.loc)
	if err != nil {
		return pplp.DailyLightScoreResult{}, err
	}

	input := pplp.DailyScoreInput{
		UserID:             userID,
		Day:                start,
		Events:             events,
		ReputationWeight:   pplp.ReputationWeight(signals.ReputationScore, rules),
		ActiveDaysInWindow: pplp.CountActiveDays(activity, start, window, s.loc),
		WindowSize:         window,
		CompletedSteps:     signals.CompletedSteps,
		TotalSteps:         signals.TotalSteps,
		SuspiciousScore:    signals.SuspiciousScore,
		ViolationLevel:     signals.ViolationLevel,
	}
	res, err := pplp.ScoreDay(input, rules)
	if err != nil {
		return pplp.DailyLightScoreResult{}, err
	}
	if err := s.store.UpsertDaily(ctx, res); err != nil {
		return pplp.DailyLightScoreResult{}, err
	}

	s.metrics.ObserveDayScored(res.RuleVersion, res.Breakdown.UnknownActions)
	if res.Breakdown.UnknownActions > 0 {
		log.WithFields(log.Fields{
			"user_id": userID,
			"day":     start.Format(dateLayout),
			"unknown": res.Breakdown.UnknownActions,
		}).Warn("Неизвестные типы действий посчитаны как ноль")
	}
	return res, nil
}

// ScoreDay считает день для всех пользователей, у которых была активность.
// Ошибка одного пользователя не останавливает остальных.
func (s *Service) ScoreDay(ctx context.Context, day time.Time) (int, error) {
	start := pplp.DayStart(day, s.loc)
	rules, err := s.rulesFor(ctx, start)
	if err != nil {
		return 0, err
	}
	users, err := s.events.ActiveUsersBetween(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}

	logger := log.WithFields(log.Fields{
		"day":          start.Format(dateLayout),
		"rule_version": rules.RuleVersion,
	})
	logger.WithField("users", len(users)).Info("Подсчёт дня начат")

	var (
		scored int
		errs   []error
	)
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.scoreUserDay(ctx, userID, start, rules); err != nil {
			logger.WithError(err).WithField("user_id", userID).Error("Не удалось посчитать день")
			errs = append(errs, fmt.Errorf("%s: %w", userID, err))
			continue
		}
		scored++
	}

	logger.WithFields(log.Fields{
		"scored": scored,
		"failed": len(errs),
	}).Info("Подсчёт дня завершён")
	return scored, errors.Join(errs...)
}

// Recalculate пересчитывает дни пользователя в [from, to] партиями по batchSize дней.
// Каждый день считается по правилам своей эпохи; диапазон не длиннее maxRecalcDays.
// Результат детерминирован: повторный пересчёт перезаписывает те же значения.
func (s *Service) Recalculate(ctx context.Context, userID string, from, to time.Time) (*RecalcReport, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, common.ErrUserNotFound
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from позже to", common.ErrInvalidRange)
	}
	first, last := pplp.DayStart(from, s.loc), pplp.DayStart(to, s.loc)
	if last.After(first.AddDate(0, 0, maxRecalcDays-1)) {
		return nil, fmt.Errorf("%w: больше %d дней", common.ErrInvalidRange, maxRecalcDays)
	}

	days := common.DaysBetween(from, to, s.loc)
	report := &RecalcReport{
		UserID: userID,
		From:   first,
		To:     last,
	}
	logger := log.WithField("user_id", userID)

	for offset := 0; offset < len(days); offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(offset+s.batchSize, len(days))
		for _, day := range days[offset:end] {
			res, err := s.ScoreUserDay(ctx, userID, day)
			if err != nil {
				return report, fmt.Errorf("пересчёт %s: %w", day.Format(dateLayout), err)
			}
			report.Days++
			report.TotalLight += res.LightScore
			if !slices.Contains(report.RuleVersions, res.RuleVersion) {
				report.RuleVersions = append(report.RuleVersions, res.RuleVersion)
			}
		}
		report.Batches++
		logger.WithFields(log.Fields{
			"batch": report.Batches,
			"days":  report.Days,
		}).Debug("Партия пересчитана")
	}

	logger.WithFields(log.Fields{
		"days":          report.Days,
		"total_light":   report.TotalLight,
		"rule_versions": report.RuleVersions,
	}).Info("Пересчёт завершён")
	return report, nil
}

// Profile возвращает накопленный счёт и уровень пользователя.
// Сумма идёт по всем версиям правил: за каждый день берётся последний результат.
// Уровень считается по активным правилам.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	if s.rules == nil {
		return nil, pplp.ErrNilConfig
	}
	totals, err := s.store.UserTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	if totals.DaysScored == 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrUserNotFound, userID)
	}
	return &Profile{
		UserID:      userID,
		RuleVersion: s.RuleVersion(),
		TotalLight:  totals.TotalLight,
		DaysScored:  totals.DaysScored,
		LastDay:     totals.LastDay.Format(dateLayout),
		Progress:    pplp.ProgressForScore(totals.TotalLight, s.rules),
	}, nil
}

// History возвращает дневные результаты пользователя за [from, to].
func (s *Service) History(ctx context.Context, userID string, from, to time.Time) ([]pplp.DailyLightScoreResult, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: from позже to", common.ErrInvalidRange)
	}
	return s.store.History(ctx, userID, from, to)
}
