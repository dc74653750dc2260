// Package admin — repository.go работает с таблицей admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с попытками авторизации.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt записывает попытку авторизации.
func (r *Repository) LogAttempt(ctx context.Context, clientIP string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client_ip, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, clientIP, success); err != nil {
		return fmt.Errorf("ошибка записи попытки: %w", err)
	}
	return nil
}

// RecentFailures возвращает количество неудачных попыток с IP за период.
func (r *Repository) RecentFailures(ctx context.Context, clientIP string, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client_ip = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, clientIP, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток: %w", err)
	}
	return count, nil
}
