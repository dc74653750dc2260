// Package epochs — repository.go работает с таблицами epochs и mint_allocations.
package epochs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"funplay.vn/light-engine/internal/common"
	"funplay.vn/light-engine/internal/db/postgres"
	"funplay.vn/light-engine/internal/pplp"
)

const dateLayout = "2006-01-02"

// Repository работает с эпохами.
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

// Ensure создаёт эпоху, если её ещё нет. Существующая эпоха не меняется.
func (r *Repository) Ensure(ctx context.Context, e pplp.Epoch) error {
	query := `
		INSERT INTO epochs (id, starts_at, ends_at, pool_amount, status, rule_version)
		VALUES ($1, $2, $3, $4, 'open', $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, e.ID, e.StartsAt, e.EndsAt, e.PoolAmount, e.RuleVersion)
	if err != nil {
		return fmt.Errorf("ошибка создания эпохи: %w", err)
	}
	return nil
}

// Get возвращает эпоху по id.
func (r *Repository) Get(ctx context.Context, id string) (*pplp.Epoch, error) {
	query := `
		SELECT id, starts_at, ends_at, pool_amount, status, rule_version
		FROM epochs WHERE id = $1
	`
	e, err := scanEpoch(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrEpochNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения эпохи: %w", err)
	}
	return e, nil
}

// ListOpenEndedBefore возвращает открытые эпохи, закончившиеся к моменту t.
func (r *Repository) ListOpenEndedBefore(ctx context.Context, t time.Time) ([]pplp.Epoch, error) {
	query := `
		SELECT id, starts_at, ends_at, pool_amount, status, rule_version
		FROM epochs
		WHERE status = 'open' AND ends_at <= $1
		ORDER BY ends_at
	`
	rows, err := r.db.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения открытых эпох: %w", err)
	}
	defer rows.Close()

	var out []pplp.Epoch
	for rows.Next() {
		e, err := scanEpoch(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования эпохи: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Close закрывает эпоху в одной транзакции:
// блокирует строку эпохи, читает снимок дневных счетов, считает
// распределение через settle, записывает его и меняет статус.
// Повторное или параллельное закрытие получает common.ErrEpochClosed.
func (r *Repository) Close(ctx context.Context, id string, runID uuid.UUID, settle SettleFunc) (pplp.Epoch, pplp.EpochSettlement, error) {
	var (
		epoch      pplp.Epoch
		settlement pplp.EpochSettlement
	)
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		lockQuery := `
			SELECT id, starts_at, ends_at, pool_amount, status, rule_version
			FROM epochs WHERE id = $1
			FOR UPDATE
		`
		locked, err := scanEpoch(tx.QueryRow(ctx, lockQuery, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", common.ErrEpochNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("ошибка блокировки эпохи: %w", err)
		}
		if locked.Status == pplp.EpochClosed {
			return fmt.Errorf("%w: %s", common.ErrEpochClosed, id)
		}
		epoch = *locked

		scores, err := r.scoresForEpoch(ctx, tx, epoch)
		if err != nil {
			return err
		}
		settlement, err = settle(epoch, scores)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(settlement.Allocations))
		for _, a := range settlement.Allocations {
			rows = append(rows, []any{
				epoch.ID, a.UserID, a.LightScore, a.Qualified,
				a.RawUnits, a.FinalUnits, a.Capped, reasonStrings(a.Reasons), runID,
			})
		}
		if len(rows) > 0 {
			_, err = tx.CopyFrom(ctx,
				pgx.Identifier{"mint_allocations"},
				[]string{"epoch_id", "user_id", "light_score", "qualified", "raw_units", "final_units", "capped", "reasons", "run_id"},
				pgx.CopyFromRows(rows),
			)
			if err != nil {
				return fmt.Errorf("ошибка записи распределения: %w", err)
			}
		}

		updateQuery := `
			UPDATE epochs SET
				status = 'closed',
				run_id = $2,
				pool_units = $3,
				minted_units = $4,
				unminted_units = $5,
				capped_excess_units = $6,
				qualified_users = $7,
				capped_users = $8,
				closed_at = NOW()
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, updateQuery, epoch.ID, runID,
			settlement.PoolUnits, settlement.MintedUnits, settlement.UnmintedUnits,
			settlement.CappedExcessUnits, settlement.QualifiedUsers, settlement.CappedUsers,
		)
		if err != nil {
			return fmt.Errorf("ошибка закрытия эпохи: %w", err)
		}
		epoch.Status = pplp.EpochClosed
		return nil
	})
	if err != nil {
		return pplp.Epoch{}, pplp.EpochSettlement{}, err
	}
	return epoch, settlement, nil
}

// Allocations возвращает записанное распределение эпохи.
func (r *Repository) Allocations(ctx context.Context, id string) ([]pplp.MintAllocation, error) {
	query := `
		SELECT user_id, light_score, qualified, raw_units, final_units, capped, reasons
		FROM mint_allocations
		WHERE epoch_id = $1
		ORDER BY user_id
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения распределения: %w", err)
	}
	defer rows.Close()

	out := make([]pplp.MintAllocation, 0)
	for rows.Next() {
		var (
			a       pplp.MintAllocation
			reasons []string
		)
		if err := rows.Scan(&a.UserID, &a.LightScore, &a.Qualified, &a.RawUnits, &a.FinalUnits, &a.Capped, &reasons); err != nil {
			return nil, fmt.Errorf("ошибка сканирования распределения: %w", err)
		}
		a.RawAmount = pplp.UnitsToTokens(a.RawUnits)
		a.FinalAmount = pplp.UnitsToTokens(a.FinalUnits)
		for _, code := range reasons {
			a.Reasons = append(a.Reasons, pplp.ReasonCode(code))
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// scoresForEpoch читает дневные счета эпохи по версии правил эпохи.
// Дни берутся по календарю платформы: [starts_at, ends_at).
func (r *Repository) scoresForEpoch(ctx context.Context, tx pgx.Tx, e pplp.Epoch) ([]pplp.DailyLightScoreResult, error) {
	query := `
		SELECT user_id, day, light_score
		FROM daily_light_scores
		WHERE rule_version = $1 AND day >= $2::date AND day < $3::date
		ORDER BY user_id, day
	`
	rows, err := tx.Query(ctx, query, e.RuleVersion,
		e.StartsAt.In(r.loc).Format(dateLayout), e.EndsAt.In(r.loc).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения счетов эпохи: %w", err)
	}
	defer rows.Close()

	var out []pplp.DailyLightScoreResult
	for rows.Next() {
		var (
			res pplp.DailyLightScoreResult
			day time.Time
		)
		if err := rows.Scan(&res.UserID, &day, &res.LightScore); err != nil {
			return nil, fmt.Errorf("ошибка сканирования счёта: %w", err)
		}
		res.Day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
		res.RuleVersion = e.RuleVersion
		out = append(out, res)
	}
	return out, rows.Err()
}

func scanEpoch(row pgx.Row) (*pplp.Epoch, error) {
	var (
		e      pplp.Epoch
		status string
	)
	if err := row.Scan(&e.ID, &e.StartsAt, &e.EndsAt, &e.PoolAmount, &status, &e.RuleVersion); err != nil {
		return nil, err
	}
	e.Status = pplp.EpochStatus(status)
	return &e, nil
}

func reasonStrings(codes []pplp.ReasonCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
