// Package epochs — service.go ведёт жизненный цикл эпох:
// открытие текущей, закрытие закончившихся и выдачу распределения.
package epochs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/metrics"
	"funplay.vn/light-engine/internal/pplp"
)

// Store — хранилище эпох.
type Store interface {
	Ensure(ctx context.Context, e pplp.Epoch) error
	Get(ctx context.Context, id string) (*pplp.Epoch, error)
	ListOpenEndedBefore(ctx context.Context, t time.Time) ([]pplp.Epoch, error)
	Close(ctx context.Context, id string, runID uuid.UUID, settle SettleFunc) (pplp.Epoch, pplp.EpochSettlement, error)
	Allocations(ctx context.Context, id string) ([]pplp.MintAllocation, error)
}

// RulesSource отдаёт правила по версии, записанной на эпохе.
type RulesSource interface {
	Get(version string) (*pplp.ScoringRulesConfig, error)
}

// Notifier получает итог закрытия эпохи.
type Notifier interface {
	NotifyEpochClosed(ctx context.Context, res *CloseResult) error
}

// Service управляет эпохами.
type Service struct {
	store      Store
	rules      RulesSource
	active     *pplp.ScoringRulesConfig
	poolAmount float64
	loc        *time.Location
	notifier   Notifier
	metrics    *metrics.LightMetrics
}

// NewService создаёт сервис. notifier и m могут быть nil.
func NewService(store Store, rules RulesSource, active *pplp.ScoringRulesConfig, poolAmount float64, loc *time.Location, notifier Notifier, m *metrics.LightMetrics) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:      store,
		rules:      rules,
		active:     active,
		poolAmount: poolAmount,
		loc:        loc,
		notifier:   notifier,
		metrics:    m,
	}
}

// Current возвращает эпоху, в которую попадает now, по активным правилам.
func (s *Service) Current(now time.Time) pplp.Epoch {
	epochType := pplp.EpochMonthly
	version := ""
	if s.active != nil {
		epochType = s.active.Mint.EpochType
		version = s.active.RuleVersion
	}
	e := pplp.EpochFor(epochType, now, s.loc)
	e.PoolAmount = s.poolAmount
	e.RuleVersion = version
	return e
}

// EnsureCurrent открывает текущую эпоху, если её ещё нет.
func (s *Service) EnsureCurrent(ctx context.Context, now time.Time) (pplp.Epoch, error) {
	e := s.Current(now)
	if err := s.store.Ensure(ctx, e); err != nil {
		return pplp.Epoch{}, err
	}
	return e, nil
}

// RulesFor возвращает правила, по которым считается день: версию, записанную
// на эпохе этого дня. Эпохи ещё нет в базе — активные правила.
func (s *Service) RulesFor(ctx context.Context, day time.Time) (*pplp.ScoringRulesConfig, error) {
	e, err := s.store.Get(ctx, s.Current(day).ID)
	switch {
	case errors.Is(err, common.ErrEpochNotFound):
		if s.active == nil {
			return nil, pplp.ErrNilConfig
		}
		return s.active, nil
	case err != nil:
		return nil, err
	}
	return s.rules.Get(e.RuleVersion)
}

// Get возвращает эпоху по id.
func (s *Service) Get(ctx context.Context, id string) (*pplp.Epoch, error) {
	return s.store.Get(ctx, id)
}

// Close закрывает одну эпоху. Рано закрывать нельзя (ErrEpochNotFinished),
// повторно тоже (ErrEpochClosed). Правила берутся по версии эпохи.
func (s *Service) Close(ctx context.Context, id string, now time.Time) (*CloseResult, error) {
	started := time.Now()
	runID := uuid.New()

	epoch, settlement, err := s.store.Close(ctx, id, runID, func(e pplp.Epoch, scores []pplp.DailyLightScoreResult) (pplp.EpochSettlement, error) {
		if now.Before(e.EndsAt) {
			return pplp.EpochSettlement{}, fmt.Errorf("%w: %s до %s", common.ErrEpochNotFinished, e.ID, e.EndsAt.In(s.loc).Format(time.RFC3339))
		}
		cfg, err := s.rules.Get(e.RuleVersion)
		if err != nil {
			return pplp.EpochSettlement{}, err
		}
		return pplp.FinalizeEpoch(e, scores, cfg)
	})
	if err != nil {
		return nil, err
	}

	res := &CloseResult{
		Epoch:      epoch,
		Settlement: settlement,
		RunID:      runID,
		ClosedAt:   now,
		Duration:   time.Since(started),
	}

	log.WithFields(log.Fields{
		"epoch_id":       epoch.ID,
		"rule_version":   settlement.RuleVersion,
		"run_id":         runID.String(),
		"qualified":      settlement.QualifiedUsers,
		"capped":         settlement.CappedUsers,
		"minted_units":   settlement.MintedUnits,
		"unminted_units": settlement.UnmintedUnits,
	}).Info("Эпоха закрыта")

	s.metrics.ObserveEpochClosed(epoch.ID,
		pplp.UnitsToTokens(settlement.PoolUnits),
		pplp.UnitsToTokens(settlement.MintedUnits),
		pplp.UnitsToTokens(settlement.UnmintedUnits),
		settlement.CappedUsers, res.Duration,
	)

	if s.notifier != nil {
		if err := s.notifier.NotifyEpochClosed(ctx, res); err != nil {
			log.WithError(err).WithField("epoch_id", epoch.ID).Warn("Не удалось отправить отчёт о закрытии эпохи")
		}
	}
	return res, nil
}

// CloseFinished закрывает все закончившиеся открытые эпохи и открывает текущую.
// Эпоху, которую успел закрыть другой процесс, пропускаем.
func (s *Service) CloseFinished(ctx context.Context, now time.Time) ([]*CloseResult, error) {
	open, err := s.store.ListOpenEndedBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	var (
		closed []*CloseResult
		errs   []error
	)
	for _, e := range open {
		res, err := s.Close(ctx, e.ID, now)
		switch {
		case errors.Is(err, common.ErrEpochClosed):
			log.WithField("epoch_id", e.ID).Info("Эпоха уже закрыта другим процессом")
		case err != nil:
			log.WithError(err).WithField("epoch_id", e.ID).Error("Не удалось закрыть эпоху")
			errs = append(errs, fmt.Errorf("%s: %w", e.ID, err))
		default:
			closed = append(closed, res)
		}
	}

	if _, err := s.EnsureCurrent(ctx, now); err != nil {
		errs = append(errs, err)
	}
	return closed, errors.Join(errs...)
}

// Allocations возвращает распределение закрытой эпохи.
func (s *Service) Allocations(ctx context.Context, id string) ([]pplp.MintAllocation, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != pplp.EpochClosed {
		return nil, fmt.Errorf("%w: %s", common.ErrEpochNotFinished, id)
	}
	return s.store.Allocations(ctx, id)
}
