// Package postgres — вспомогательные функции для работы с БД.
// queries.go содержит общие утилиты для выполнения запросов.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExecMigrationSQL выполняет один SQL-запрос миграции в транзакции.
// Если запрос упадёт — транзакция откатится автоматически.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) error {
	return WithTx(ctx, pool, func(tx pgx.Tx) error {
		// Проверяем, не была ли эта миграция уже применена
		var exists bool
		err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка проверки миграции: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version,
		); err != nil {
			return fmt.Errorf("ошибка записи версии миграции: %w", err)
		}
		return nil
	})
}

// WithTx выполняет fn в транзакции: commit при nil, rollback при ошибке.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так (после Commit — no-op)
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}
