// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, реестр правил, репозитории, сервисы,
// HTTP API, консьюмер событий и планировщик.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"funplay.vn/light-engine/internal/config"
	"funplay.vn/light-engine/internal/db/postgres"
	"funplay.vn/light-engine/internal/features/actions"
	"funplay.vn/light-engine/internal/features/admin"
	"funplay.vn/light-engine/internal/features/epochs"
	"funplay.vn/light-engine/internal/features/lightscore"
	"funplay.vn/light-engine/internal/httpapi"
	"funplay.vn/light-engine/internal/ingest"
	"funplay.vn/light-engine/internal/jobs"
	"funplay.vn/light-engine/internal/metrics"
	"funplay.vn/light-engine/internal/notify"
)

// shutdownTimeout — сколько ждём завершения HTTP-запросов при остановке.
const shutdownTimeout = 15 * time.Second

// App содержит все компоненты приложения.
type App struct {
	DB          *pgxpool.Pool
	Scheduler   *jobs.Scheduler
	Server      *http.Server
	Consumer    *ingest.ActionConsumer
	Epochs      *epochs.Service
	RateLimiter *httpapi.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc := cfg.Location()

	// === 1. Правила подсчёта ===
	registry, active, err := config.BuildRegistry(cfg.RulesFile, cfg.RulesVersion)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки правил: %w", err)
	}
	fp, _ := registry.FingerprintOf(active.RuleVersion)
	log.WithFields(log.Fields{
		"active":      active.RuleVersion,
		"fingerprint": fp,
		"versions":    registry.Versions(),
	}).Info("Правила подсчёта загружены")

	// === 2. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 3. Метрики ===
	m := metrics.Light()

	// === 4. Репозитории ===
	actionRepo := actions.NewRepository(pool)
	scoreRepo := lightscore.NewRepository(pool, loc)
	epochRepo := epochs.NewRepository(pool, loc)
	adminRepo := admin.NewRepository(pool)

	// === 5. Уведомления ===
	// Интерфейс присваиваем только при включённом флаге: nil *Telegram внутри
	// интерфейса не равен nil.
	var notifier epochs.Notifier
	if cfg.FeatureTelegramReports {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramReportChatIDs, loc)
		if err != nil {
			pool.Close()
			return nil, err
		}
		notifier = tg
		log.WithField("chats", len(cfg.TelegramReportChatIDs)).Info("Отчёты об эпохах в Telegram включены")
	}

	// === 6. Сервисы ===
	actionService := actions.NewService(actionRepo, m)
	epochService := epochs.NewService(epochRepo, registry, active, cfg.EpochPoolAmount, loc, notifier, m)
	// День считается по версии правил своей эпохи.
	scoreService := lightscore.NewService(actionRepo, scoreRepo, active, epochService, loc, cfg.RecalcBatchSize, m)
	adminService := admin.NewService(adminRepo, cfg.AdminTokenHash)

	if _, err := epochService.EnsureCurrent(ctx, time.Now()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка открытия текущей эпохи: %w", err)
	}

	// === 7. Консьюмер событий ===
	var consumer *ingest.ActionConsumer
	if cfg.FeatureKafkaIngest {
		consumer, err = ingest.NewActionConsumer(ingest.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
		}, actionService)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка создания консьюмера: %w", err)
		}
	}

	// === 8. HTTP API ===
	limiter := httpapi.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	api := httpapi.New(httpapi.Config{
		Scores:      scoreService,
		Epochs:      epochService,
		Actions:     actionService,
		Admin:       adminService,
		DB:          pool,
		Registry:    registry,
		Active:      active,
		Loc:         loc,
		RateLimiter: limiter,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}

	// === 9. Планировщик задач ===
	schedule := jobs.Schedule{EpochClose: cfg.EpochCloseCron}
	if cfg.FeatureDailyScoring {
		schedule.DailyScore = cfg.DailyScoreCron
	}
	scheduler := jobs.NewScheduler(loc, schedule, scoreService, epochService)

	return &App{
		DB:          pool,
		Scheduler:   scheduler,
		Server:      server,
		Consumer:    consumer,
		Epochs:      epochService,
		RateLimiter: limiter,
	}, nil
}

// Run запускает планировщик, консьюмер и HTTP-сервер и блокируется до
// отмены ctx или падения одного из компонентов.
func (a *App) Run(ctx context.Context) error {
	if err := a.Scheduler.Start(ctx); err != nil {
		return err
	}
	defer a.Scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if a.Consumer != nil {
		g.Go(func() error {
			if err := a.Consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("консьюмер действий: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		log.WithField("addr", a.Server.Addr).Info("HTTP API слушает")
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP-сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("HTTP-сервер остановлен с ошибкой")
		}
		return nil
	})

	return g.Wait()
}

// Close освобождает ресурсы.
func (a *App) Close() {
	a.RateLimiter.Close()
	if a.Consumer != nil {
		if err := a.Consumer.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия консьюмера")
		}
	}
	a.DB.Close()
}
