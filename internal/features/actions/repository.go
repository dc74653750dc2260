// Package actions — repository.go работает с таблицами action_events и user_signals.
package actions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funplay.vn/light-engine/internal/pplp"
)

// Repository работает с действиями пользователей.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertEvent сохраняет действие. Возвращает false, если event_id уже был.
func (r *Repository) InsertEvent(ctx context.Context, ev pplp.ActionEvent) (bool, error) {
	query := `
		INSERT INTO action_events (event_id, user_id, action_type, content_type, rating_avg, rating_count, sequence_tag, occurred_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (event_id) DO NOTHING
	`
	var avg *float64
	var count *int
	if ev.Rating != nil {
		avg, count = &ev.Rating.Average, &ev.Rating.Count
	}
	tag, err := r.db.Exec(ctx, query,
		ev.EventID, ev.UserID, string(ev.Type), string(ev.ContentType),
		avg, count, ev.SequenceTag, ev.OccurredAt,
	)
	if err != nil {
		return false, fmt.Errorf("ошибка сохранения действия: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// EventsBetween возвращает действия пользователя за [from, to).
func (r *Repository) EventsBetween(ctx context.Context, userID string, from, to time.Time) ([]pplp.ActionEvent, error) {
	query := `
		SELECT event_id, user_id, action_type, COALESCE(content_type, ''), rating_avg, rating_count,
		       COALESCE(sequence_tag, ''), occurred_at
		FROM action_events
		WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at, event_id
	`
	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения действий: %w", err)
	}
	defer rows.Close()

	var events []pplp.ActionEvent
	for rows.Next() {
		var (
			ev          pplp.ActionEvent
			actionType  string
			contentType string
			avg         *float64
			count       *int
		)
		if err := rows.Scan(&ev.EventID, &ev.UserID, &actionType, &contentType, &avg, &count, &ev.SequenceTag, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования действия: %w", err)
		}
		ev.Type = pplp.ActionType(actionType)
		ev.ContentType = pplp.ContentType(contentType)
		if avg != nil && count != nil {
			ev.Rating = &pplp.CommunityRating{Average: *avg, Count: *count}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ActiveUsersBetween возвращает пользователей, у которых есть действия за [from, to).
func (r *Repository) ActiveUsersBetween(ctx context.Context, from, to time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT user_id FROM action_events
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения активных пользователей: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// ActivityTimes возвращает по одному моменту активности на каждый
// локальный день (в часовом поясе loc) за [from, to).
func (r *Repository) ActivityTimes(ctx context.Context, userID string, from, to time.Time, loc *time.Location) ([]time.Time, error) {
	query := `
		SELECT MIN(occurred_at) FROM action_events
		WHERE user_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY (occurred_at AT TIME ZONE $4)::date
	`
	rows, err := r.db.Query(ctx, query, userID, from, to, loc.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка получения дней активности: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// GetSignals возвращает сигналы пользователя или значения по умолчанию.
func (r *Repository) GetSignals(ctx context.Context, userID string) (*Signals, error) {
	query := `
		SELECT user_id, reputation_score, suspicious_score, violation_level, completed_steps, total_steps, updated_at
		FROM user_signals WHERE user_id = $1
	`
	var s Signals
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&s.UserID, &s.ReputationScore, &s.SuspiciousScore, &s.ViolationLevel,
		&s.CompletedSteps, &s.TotalSteps, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSignals(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сигналов: %w", err)
	}
	return &s, nil
}

// UpsertSignals записывает сигналы пользователя.
func (r *Repository) UpsertSignals(ctx context.Context, s *Signals) error {
	query := `
		INSERT INTO user_signals (user_id, reputation_score, suspicious_score, violation_level, completed_steps, total_steps, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			reputation_score = EXCLUDED.reputation_score,
			suspicious_score = EXCLUDED.suspicious_score,
			violation_level = EXCLUDED.violation_level,
			completed_steps = EXCLUDED.completed_steps,
			total_steps = EXCLUDED.total_steps,
			updated_at = NOW()
	`
	steps := s.CompletedSteps
	if steps == nil {
		steps = []string{}
	}
	_, err := r.db.Exec(ctx, query, s.UserID, s.ReputationScore, s.SuspiciousScore, s.ViolationLevel, steps, s.TotalSteps)
	if err != nil {
		return fmt.Errorf("ошибка сохранения сигналов: %w", err)
	}
	return nil
}
