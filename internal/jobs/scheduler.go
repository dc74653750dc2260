// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежедневный подсчёт Light Score
// за вчерашний день и закрытие закончившихся эпох.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/features/epochs"
)

// DailyScorer считает день для всех активных пользователей.
type DailyScorer interface {
	ScoreDay(ctx context.Context, day time.Time) (int, error)
}

// EpochCloser закрывает закончившиеся эпохи.
type EpochCloser interface {
	CloseFinished(ctx context.Context, now time.Time) ([]*epochs.CloseResult, error)
}

// Schedule — cron-выражения задач. Пустое выражение отключает задачу.
type Schedule struct {
	DailyScore string
	EpochClose string
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	loc      *time.Location
	schedule Schedule
	scorer   DailyScorer
	closer   EpochCloser
	now      func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе платформы.
// Задача, которая ещё выполняется, не запускается повторно.
func NewScheduler(loc *time.Location, schedule Schedule, scorer DailyScorer, closer EpochCloser) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	return &Scheduler{
		cron:     c,
		loc:      loc,
		schedule: schedule,
		scorer:   scorer,
		closer:   closer,
		now:      time.Now,
	}
}

// Start регистрирует задачи и запускает планировщик.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule.DailyScore != "" && s.scorer != nil {
		if _, err := s.cron.AddFunc(s.schedule.DailyScore, func() {
			s.RunDailyScoring(ctx)
		}); err != nil {
			return fmt.Errorf("расписание подсчёта %q: %w", s.schedule.DailyScore, err)
		}
	}

	if s.schedule.EpochClose != "" && s.closer != nil {
		if _, err := s.cron.AddFunc(s.schedule.EpochClose, func() {
			s.RunEpochClose(ctx)
		}); err != nil {
			return fmt.Errorf("расписание закрытия эпох %q: %w", s.schedule.EpochClose, err)
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"timezone":    s.loc.String(),
		"daily_score": s.schedule.DailyScore,
		"epoch_close": s.schedule.EpochClose,
	}).Info("Планировщик задач запущен")
	return nil
}

// RunDailyScoring считает вчерашний день платформы.
func (s *Scheduler) RunDailyScoring(ctx context.Context) {
	day := common.Yesterday(s.now(), s.loc)
	log.WithField("day", day.Format("2006-01-02")).Info("[CRON] Подсчёт Light Score за день")

	scored, err := s.scorer.ScoreDay(ctx, day)
	if err != nil {
		log.WithError(err).WithField("scored", scored).Error("[CRON] Ошибка подсчёта дня")
	}
}

// RunEpochClose закрывает закончившиеся эпохи и открывает текущую.
func (s *Scheduler) RunEpochClose(ctx context.Context) {
	log.Info("[CRON] Закрытие эпох")

	closed, err := s.closer.CloseFinished(ctx, s.now())
	if err != nil {
		log.WithError(err).Error("[CRON] Ошибка закрытия эпох")
	}
	for _, res := range closed {
		log.WithFields(log.Fields{
			"epoch_id": res.Epoch.ID,
			"run_id":   res.RunID.String(),
		}).Info("[CRON] Эпоха закрыта")
	}
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
