// Package lightscore — repository.go работает с таблицей daily_light_scores.
package lightscore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"funplay.vn/light-engine/internal/pplp"
)

const dateLayout = "2006-01-02"

// Repository хранит дневные результаты.
// Колонка day — календарная дата платформы, loc нужен, чтобы вернуть её
// как полночь в часовом поясе платформы.
type Repository struct {
	db  *pgxpool.Pool
	loc *time.Location
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{db: db, loc: loc}
}

// UpsertDaily записывает или перезаписывает результат дня.
func (r *Repository) UpsertDaily(ctx context.Context, res pplp.DailyLightScoreResult) error {
	query := `
		INSERT INTO daily_light_scores (user_id, day, rule_version, light_score, breakdown, reasons, computed_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, day, rule_version) DO UPDATE SET
			light_score = EXCLUDED.light_score,
			breakdown = EXCLUDED.breakdown,
			reasons = EXCLUDED.reasons,
			computed_at = NOW()
	`
	breakdown, err := json.Marshal(res.Breakdown)
	if err != nil {
		return fmt.Errorf("ошибка кодирования breakdown: %w", err)
	}
	_, err = r.db.Exec(ctx, query,
		res.UserID, res.Day.In(r.loc).Format(dateLayout), res.RuleVersion,
		res.LightScore, breakdown, reasonStrings(res.Reasons),
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения дневного счёта: %w", err)
	}
	return nil
}

// UserTotals суммирует дневные счета пользователя по всем версиям правил.
// Если день посчитан несколькими версиями, берётся последний результат.
func (r *Repository) UserTotals(ctx context.Context, userID string) (Totals, error) {
	query := `
		SELECT COALESCE(SUM(light_score), 0), COUNT(*), MAX(day)
		FROM (
			SELECT DISTINCT ON (day) day, light_score
			FROM daily_light_scores
			WHERE user_id = $1
			ORDER BY day, computed_at DESC
		) latest
	`
	var (
		t    Totals
		last *time.Time
	)
	if err := r.db.QueryRow(ctx, query, userID).Scan(&t.TotalLight, &t.DaysScored, &last); err != nil {
		return Totals{}, fmt.Errorf("ошибка подсчёта суммы: %w", err)
	}
	if last != nil {
		t.LastDay = r.localDate(*last)
	}
	return t, nil
}

// History возвращает дневные результаты пользователя за [from, to] по датам,
// по одному на день: последний посчитанный.
func (r *Repository) History(ctx context.Context, userID string, from, to time.Time) ([]pplp.DailyLightScoreResult, error) {
	query := `
		SELECT DISTINCT ON (day) user_id, day, rule_version, light_score, breakdown, reasons
		FROM daily_light_scores
		WHERE user_id = $1 AND day >= $2::date AND day <= $3::date
		ORDER BY day, computed_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID,
		from.In(r.loc).Format(dateLayout), to.In(r.loc).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории: %w", err)
	}
	defer rows.Close()

	var out []pplp.DailyLightScoreResult
	for rows.Next() {
		var (
			res       pplp.DailyLightScoreResult
			day       time.Time
			breakdown []byte
			reasons   []string
		)
		if err := rows.Scan(&res.UserID, &day, &res.RuleVersion, &res.LightScore, &breakdown, &reasons); err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		if err := json.Unmarshal(breakdown, &res.Breakdown); err != nil {
			return nil, fmt.Errorf("ошибка разбора breakdown: %w", err)
		}
		res.Day = r.localDate(day)
		res.Reasons = reasonCodes(reasons)
		out = append(out, res)
	}
	return out, rows.Err()
}

// localDate переводит DATE из Postgres (полночь UTC) в полночь платформы.
func (r *Repository) localDate(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, r.loc)
}

func reasonStrings(codes []pplp.ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}

func reasonCodes(raw []string) []pplp.ReasonCode {
	out := make([]pplp.ReasonCode, len(raw))
	for i, r := range raw {
		out[i] = pplp.ReasonCode(r)
	}
	return out
}
