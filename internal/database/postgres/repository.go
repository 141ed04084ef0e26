package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mkravets/slug-registry/internal/database"
	"github.com/mkravets/slug-registry/internal/models"
)

type slugRecord struct {
	ID          int64     `db:"id"`
	AccountID   string    `db:"account_id"`
	AccountType string    `db:"account_type"`
	Value       string    `db:"value"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *slugRecord) ToSlug() *models.Slug {
	return &models.Slug{
		ID:          r.ID,
		AccountID:   r.AccountID,
		AccountType: models.AccountType(r.AccountType),
		Value:       r.Value,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type slugChangeRecord struct {
	ID        int64     `db:"id"`
	AccountID string    `db:"account_id"`
	OldValue  string    `db:"old_value"`
	NewValue  string    `db:"new_value"`
	ChangedAt time.Time `db:"changed_at"`
}

func (r *slugChangeRecord) ToSlugChange() models.SlugChange {
	return models.SlugChange{
		ID:        r.ID,
		AccountID: r.AccountID,
		OldValue:  r.OldValue,
		NewValue:  r.NewValue,
		ChangedAt: r.ChangedAt,
	}
}

// SlugRepository persists slug records and their rename history. The value
// and account_id columns carry unique constraints, so claiming a slug is a
// single conditional insert and never a separate read plus write.
type SlugRepository struct {
	db *sqlx.DB
}

func NewSlugRepository(db *sqlx.DB) *SlugRepository {
	return &SlugRepository{
		db: db,
	}
}

// Create inserts a new slug record. The insert is the atomic check-and-claim:
// a concurrent attempt for the same value fails on the unique constraint and
// surfaces as database.ErrSlugExists. An account that already holds a record
// gets database.ErrAccountHasSlug.
func (r *SlugRepository) Create(ctx context.Context, accountID string, accountType models.AccountType, value string) (*models.Slug, error) {
	const op = "database.postgres.SlugRepository.Create"

	rec := new(slugRecord)
	query := `INSERT INTO slugs(account_id, account_type, value)
		VALUES ($1, $2, $3)
		RETURNING *`

	err := r.db.GetContext(ctx, rec, query, accountID, string(accountType), value)
	if err != nil {
		if isUniqueViolationError(err) {
			if isAccountConstraintError(err) {
				return nil, fmt.Errorf("%s: %w", op, database.ErrAccountHasSlug)
			}
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to create slug record: %w", op, err)
	}

	return rec.ToSlug(), nil
}

// GetByValue returns the live slug record for the given value.
func (r *SlugRepository) GetByValue(ctx context.Context, value string) (*models.Slug, error) {
	const op = "database.postgres.SlugRepository.GetByValue"

	rec := new(slugRecord)
	query := `SELECT * FROM slugs WHERE value = $1`

	err := r.db.GetContext(ctx, rec, query, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get slug record: %w", op, err)
	}

	return rec.ToSlug(), nil
}

// GetByAccount returns the slug record owned by the given account.
func (r *SlugRepository) GetByAccount(ctx context.Context, accountID string) (*models.Slug, error) {
	const op = "database.postgres.SlugRepository.GetByAccount"

	rec := new(slugRecord)
	query := `SELECT * FROM slugs WHERE account_id = $1`

	err := r.db.GetContext(ctx, rec, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrAccountNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get slug record: %w", op, err)
	}

	return rec.ToSlug(), nil
}

// UpdateValue rewrites the slug of the given account and appends the
// old-to-new history entry in the same transaction, so the record and its
// history never diverge. The row is locked for the duration; a unique
// violation on the new value rolls everything back as database.ErrSlugExists.
func (r *SlugRepository) UpdateValue(ctx context.Context, accountID, value string) (*models.Slug, error) {
	const op = "database.postgres.SlugRepository.UpdateValue"

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer tx.Rollback() //nolint:errcheck

	cur := new(slugRecord)
	query := `SELECT * FROM slugs WHERE account_id = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, cur, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrAccountNotFound)
		}

		return nil, fmt.Errorf("%s: failed to lock slug record: %w", op, err)
	}

	if cur.Value == value {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
		}

		return cur.ToSlug(), nil
	}

	oldValue := cur.Value

	rec := new(slugRecord)
	query = `UPDATE slugs
		SET value = $1, updated_at = now()
		WHERE account_id = $2
		RETURNING *`

	if err := tx.GetContext(ctx, rec, query, value, accountID); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugExists)
		}

		return nil, fmt.Errorf("%s: failed to update slug record: %w", op, err)
	}

	query = `INSERT INTO slug_changes(account_id, old_value, new_value)
		VALUES ($1, $2, $3)`

	if _, err := tx.ExecContext(ctx, query, accountID, oldValue, value); err != nil {
		return nil, fmt.Errorf("%s: failed to append slug change: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return rec.ToSlug(), nil
}

// History returns the account's rename history, newest first.
func (r *SlugRepository) History(ctx context.Context, accountID string) ([]models.SlugChange, error) {
	const op = "database.postgres.SlugRepository.History"

	var recs []slugChangeRecord
	query := `SELECT * FROM slug_changes
		WHERE account_id = $1
		ORDER BY changed_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &recs, query, accountID); err != nil {
		return nil, fmt.Errorf("%s: failed to get slug changes: %w", op, err)
	}

	changes := make([]models.SlugChange, 0, len(recs))
	for i := range recs {
		changes = append(changes, recs[i].ToSlugChange())
	}

	return changes, nil
}

// LatestChangeByOldValue returns the most recent history entry that renamed
// away from the given value.
func (r *SlugRepository) LatestChangeByOldValue(ctx context.Context, oldValue string) (*models.SlugChange, error) {
	const op = "database.postgres.SlugRepository.LatestChangeByOldValue"

	rec := new(slugChangeRecord)
	query := `SELECT * FROM slug_changes
		WHERE old_value = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, rec, query, oldValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, database.ErrSlugNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get slug change: %w", op, err)
	}

	change := rec.ToSlugChange()

	return &change, nil
}

// FilterTaken returns the subset of the given values that are currently
// claimed. Used by the suggestion generator to filter candidate batches in
// one round trip.
func (r *SlugRepository) FilterTaken(ctx context.Context, values []string) (map[string]struct{}, error) {
	const op = "database.postgres.SlugRepository.FilterTaken"

	if len(values) == 0 {
		return map[string]struct{}{}, nil
	}

	query, args, err := sqlx.In(`SELECT value FROM slugs WHERE value IN (?)`, values)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var taken []string
	if err := r.db.SelectContext(ctx, &taken, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("%s: failed to filter taken slugs: %w", op, err)
	}

	set := make(map[string]struct{}, len(taken))
	for _, v := range taken {
		set[v] = struct{}{}
	}

	return set, nil
}
