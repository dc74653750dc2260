// Package actions — service.go принимает действия пользователей и сигналы модерации.
package actions

import (
	"context"
	"fmt"
	"math"
	"strings"

	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/metrics"
	"funplay.vn/light-engine/internal/pplp"
)

// Store — хранилище, которое нужно сервису.
type Store interface {
	InsertEvent(ctx context.Context, ev pplp.ActionEvent) (bool, error)
	GetSignals(ctx context.Context, userID string) (*Signals, error)
	UpsertSignals(ctx context.Context, s *Signals) error
}

// Service принимает действия и сигналы.
type Service struct {
	store   Store
	metrics *metrics.LightMetrics
}

// NewService создаёт сервис. m может быть nil.
func NewService(store Store, m *metrics.LightMetrics) *Service {
	return &Service{store: store, metrics: m}
}

// Record проверяет и сохраняет действие.
// Повторная доставка того же event_id возвращает common.ErrDuplicateEvent.
func (s *Service) Record(ctx context.Context, ev pplp.ActionEvent) error {
	if err := ValidateEvent(ev); err != nil {
		s.metrics.ObserveEventIngested("invalid")
		return err
	}

	inserted, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return err
	}
	if !inserted {
		s.metrics.ObserveEventIngested("duplicate")
		return fmt.Errorf("%w: %s", common.ErrDuplicateEvent, ev.EventID)
	}

	s.metrics.ObserveEventIngested("stored")
	log.WithFields(log.Fields{
		"event_id":    ev.EventID,
		"user_id":     ev.UserID,
		"action_type": ev.Type,
	}).Debug("Действие сохранено")
	return nil
}

// Signals возвращает сигналы пользователя (по умолчанию нулевые).
func (s *Service) Signals(ctx context.Context, userID string) (*Signals, error) {
	return s.store.GetSignals(ctx, userID)
}

// UpdateSignals проверяет и сохраняет сигналы модерации.
func (s *Service) UpdateSignals(ctx context.Context, sig *Signals) error {
	if err := ValidateSignals(sig); err != nil {
		return err
	}
	if err := s.store.UpsertSignals(ctx, sig); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"user_id":          sig.UserID,
		"suspicious_score": sig.SuspiciousScore,
		"violation_level":  sig.ViolationLevel,
	}).Info("Сигналы пользователя обновлены")
	return nil
}

// ValidateEvent проверяет обязательные поля события.
// Числа вне диапазона движок зажимает сам, здесь отсекаются только
// записи, которые нельзя привязать к пользователю и дню.
func ValidateEvent(ev pplp.ActionEvent) error {
	switch {
	case strings.TrimSpace(ev.EventID) == "":
		return fmt.Errorf("%w: пустой event_id", common.ErrInvalidEvent)
	case strings.TrimSpace(ev.UserID) == "":
		return fmt.Errorf("%w: пустой user_id", common.ErrInvalidEvent)
	case strings.TrimSpace(string(ev.Type)) == "":
		return fmt.Errorf("%w: пустой action_type", common.ErrInvalidEvent)
	case ev.OccurredAt.IsZero():
		return fmt.Errorf("%w: нет occurred_at", common.ErrInvalidEvent)
	}
	if ev.Rating != nil && (math.IsNaN(ev.Rating.Average) || math.IsInf(ev.Rating.Average, 0)) {
		return fmt.Errorf("%w: рейтинг не число", common.ErrInvalidEvent)
	}
	return nil
}

// ValidateSignals проверяет сигналы модерации.
func ValidateSignals(sig *Signals) error {
	if sig == nil || strings.TrimSpace(sig.UserID) == "" {
		return fmt.Errorf("%w: пустой user_id", common.ErrInvalidSignals)
	}
	for name, v := range map[string]float64{
		"reputation_score": sig.ReputationScore,
		"suspicious_score": sig.SuspiciousScore,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s не число", common.ErrInvalidSignals, name)
		}
	}
	if sig.ViolationLevel < 0 || sig.TotalSteps < 0 {
		return fmt.Errorf("%w: отрицательные violation_level/total_steps", common.ErrInvalidSignals)
	}
	return nil
}
