package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/refuel-athletics/gelstore/internal/domain/formula"
)

var _ formula.Repository = (*FormulaRepository)(nil)

// FormulaRepository implements formula.Repository backed by PostgreSQL.
type FormulaRepository struct {
	pool *pgxpool.Pool
}

// NewFormulaRepository returns a FormulaRepository that uses the given pool.
func NewFormulaRepository(pool *pgxpool.Pool) *FormulaRepository {
	return &FormulaRepository{pool: pool}
}

// Save inserts f.
func (r *FormulaRepository) Save(ctx context.Context, f *formula.Saved) error {
	p := f.Parameters
	_, err := r.pool.Exec(ctx, `
		INSERT INTO saved_formulas (id, user_id, name, carbs_g, fructose_ratio, sodium_mg,
			potassium_mg, magnesium_mg, caffeine_mg, thickness, flavor, quiz_generated, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		f.ID, f.UserID, f.Name, p.CarbsG, p.FructoseRatio, p.SodiumMg,
		p.PotassiumMg, p.MagnesiumMg, p.CaffeineMg, p.Thickness, string(p.Flavor),
		f.QuizGenerated, f.SavedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert formula %s", f.ID)
	}
	return nil
}

// ListByUser returns the user's formulas newest first.
func (r *FormulaRepository) ListByUser(ctx context.Context, userID string) ([]formula.Saved, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, carbs_g, fructose_ratio, sodium_mg, potassium_mg,
			magnesium_mg, caffeine_mg, thickness, flavor, quiz_generated, saved_at
		FROM saved_formulas
		WHERE user_id = $1
		ORDER BY saved_at DESC, id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list formulas")
	}
	defer rows.Close()

	var out []formula.Saved
	for rows.Next() {
		var (
			f      formula.Saved
			flavor string
		)
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.Name, &f.Parameters.CarbsG, &f.Parameters.FructoseRatio,
			&f.Parameters.SodiumMg, &f.Parameters.PotassiumMg, &f.Parameters.MagnesiumMg,
			&f.Parameters.CaffeineMg, &f.Parameters.Thickness, &flavor, &f.QuizGenerated, &f.SavedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan formula")
		}
		f.Parameters.Flavor = formula.Flavor(flavor)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate formulas")
	}
	return out, nil
}

// Delete returns formula.ErrNotFound when the user has no formula id.
func (r *FormulaRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM saved_formulas WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return errors.Wrapf(err, "delete formula %s", id)
	}
	if tag.RowsAffected() == 0 {
		return formula.ErrNotFound
	}
	return nil
}

// Trim keeps the newest keep formulas of the user.
func (r *FormulaRepository) Trim(ctx context.Context, userID string, keep int) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM saved_formulas
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM saved_formulas
			WHERE user_id = $1
			ORDER BY saved_at DESC, id
			LIMIT $2
		)`, userID, keep)
	if err != nil {
		return errors.Wrap(err, "trim formulas")
	}
	return nil
}
