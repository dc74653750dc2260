// Package postgres управляет подключением к базе данных PostgreSQL.
// Используется пул соединений pgxpool для эффективной работы
// с несколькими горутинами одновременно.
//
// Пул автоматически управляет открытием/закрытием соединений,
// переподключается при обрыве и ограничивает максимальное число соединений.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"funplay.vn/light-engine/internal/config"
)

// pingAttempts — сколько раз проверяем базу при старте (в docker-compose
// postgres поднимается параллельно с сервисом).
const pingAttempts = 5

// NewPool создаёт новый пул соединений к PostgreSQL.
// Сессии работают в часовом поясе платформы: на нём держатся границы
// дней в запросах с ::date.
//
// Пример:
//
//	pool, err := postgres.NewPool(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "light-engine"
	poolConfig.ConnConfig.RuntimeParams["timezone"] = cfg.AppTimezone

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула: %w", err)
	}

	if err := pingWithRetry(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("база данных недоступна: %w", err)
	}

	log.WithFields(log.Fields{
		"host":      cfg.DBHost,
		"db":        cfg.DBName,
		"max_conns": cfg.DBMaxConns,
		"timezone":  cfg.AppTimezone,
	}).Info("Подключение к PostgreSQL установлено")
	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		log.WithError(err).WithField("attempt", attempt).Warn("PostgreSQL пока недоступен")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return err
}

// RunMigrations создаёт таблицу учёта и применяет все встроенные миграции по порядку.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("не удалось получить соединение: %w", err)
	}
	_, err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	conn.Release()
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	for _, m := range Migrations() {
		if err := ExecMigrationSQL(ctx, pool, m.Version, m.SQL); err != nil {
			return fmt.Errorf("миграция %d (%s): %w", m.Version, m.Name, err)
		}
		log.WithField("version", m.Version).Debugf("Миграция %s проверена", m.Name)
	}
	log.Info("Миграции применены")
	return nil
}
