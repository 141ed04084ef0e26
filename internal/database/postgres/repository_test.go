package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/mkravets/slug-registry/internal/database"
	"github.com/mkravets/slug-registry/internal/models"
)

var errUnknown = errors.New("unknown error")

var slugColumns = []string{"id", "account_id", "account_type", "value", "created_at", "updated_at"}

var changeColumns = []string{"id", "account_id", "old_value", "new_value", "changed_at"}

func setupSlugRepository(t testing.TB) (*SlugRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewSlugRepository(db)

	t.Cleanup(func() {
		mockDB.Close()
		db.Close()
	})

	return repo, mock
}

func TestSlugRepository_Create(t *testing.T) {
	t.Run("slug exists", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`INSERT INTO slugs`).
			WithArgs("acc1", "vendor", "acme-labs").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: "slugs_value_key"})

		rec, err := repo.Create(context.TODO(), "acc1", models.AccountTypeVendor, "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrSlugExists)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account already has a slug", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`INSERT INTO slugs`).
			WithArgs("acc1", "vendor", "acme-labs").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: "slugs_account_id_key"})

		rec, err := repo.Create(context.TODO(), "acc1", models.AccountTypeVendor, "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrAccountHasSlug)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown error", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`INSERT INTO slugs`).
			WithArgs("acc1", "vendor", "acme-labs").
			WillReturnError(errUnknown)

		rec, err := repo.Create(context.TODO(), "acc1", models.AccountTypeVendor, "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-labs", time.Time{}, time.Time{})

		mock.ExpectQuery(`INSERT INTO slugs`).
			WithArgs("acc1", "vendor", "acme-labs").
			WillReturnRows(rows)

		wantSlug := models.Slug{
			ID:          1,
			AccountID:   "acc1",
			AccountType: models.AccountTypeVendor,
			Value:       "acme-labs",
		}

		rec, err := repo.Create(context.TODO(), "acc1", models.AccountTypeVendor, "acme-labs")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, wantSlug, *rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_GetByValue(t *testing.T) {
	t.Run("slug not found", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`SELECT \* FROM slugs WHERE value`).
			WithArgs("acme-labs").
			WillReturnRows(sqlmock.NewRows(slugColumns))

		rec, err := repo.GetByValue(context.TODO(), "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrSlugNotFound)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "provider", "jane-doe", time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM slugs WHERE value`).
			WithArgs("jane-doe").
			WillReturnRows(rows)

		rec, err := repo.GetByValue(context.TODO(), "jane-doe")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, models.AccountTypeProvider, rec.AccountType)
		assert.Equal(t, "jane-doe", rec.Value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_GetByAccount(t *testing.T) {
	t.Run("account not found", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id`).
			WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows(slugColumns))

		rec, err := repo.GetByAccount(context.TODO(), "acc1")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrAccountNotFound)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "organization", "acme", time.Time{}, time.Time{})

		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id`).
			WithArgs("acc1").
			WillReturnRows(rows)

		rec, err := repo.GetByAccount(context.TODO(), "acc1")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, "acme", rec.Value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_UpdateValue(t *testing.T) {
	t.Run("account not found", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id .+ FOR UPDATE`).
			WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows(slugColumns))
		mock.ExpectRollback()

		rec, err := repo.UpdateValue(context.TODO(), "acc1", "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrAccountNotFound)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("same value is a no-op without history", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-labs", time.Time{}, time.Time{})

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id .+ FOR UPDATE`).
			WithArgs("acc1").
			WillReturnRows(rows)
		mock.ExpectCommit()

		rec, err := repo.UpdateValue(context.TODO(), "acc1", "acme-labs")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, "acme-labs", rec.Value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("new value taken rolls back", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-ai", time.Time{}, time.Time{})

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id .+ FOR UPDATE`).
			WithArgs("acc1").
			WillReturnRows(rows)
		mock.ExpectQuery(`UPDATE slugs`).
			WithArgs("acme-labs", "acc1").
			WillReturnError(&pgconn.PgError{Code: uniqueViolationErrCode, ConstraintName: "slugs_value_key"})
		mock.ExpectRollback()

		rec, err := repo.UpdateValue(context.TODO(), "acc1", "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrSlugExists)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success writes record and history atomically", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		curRows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-ai", time.Time{}, time.Time{})
		updatedRows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-labs", time.Time{}, time.Time{})

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id .+ FOR UPDATE`).
			WithArgs("acc1").
			WillReturnRows(curRows)
		mock.ExpectQuery(`UPDATE slugs`).
			WithArgs("acme-labs", "acc1").
			WillReturnRows(updatedRows)
		mock.ExpectExec(`INSERT INTO slug_changes`).
			WithArgs("acc1", "acme-ai", "acme-labs").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		rec, err := repo.UpdateValue(context.TODO(), "acc1", "acme-labs")

		assert.NoError(t, err)
		assert.NotNil(t, rec)
		assert.Equal(t, "acme-labs", rec.Value)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("history insert failure rolls back", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		curRows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-ai", time.Time{}, time.Time{})
		updatedRows := sqlmock.NewRows(slugColumns).
			AddRow(1, "acc1", "vendor", "acme-labs", time.Time{}, time.Time{})

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM slugs WHERE account_id .+ FOR UPDATE`).
			WithArgs("acc1").
			WillReturnRows(curRows)
		mock.ExpectQuery(`UPDATE slugs`).
			WithArgs("acme-labs", "acc1").
			WillReturnRows(updatedRows)
		mock.ExpectExec(`INSERT INTO slug_changes`).
			WithArgs("acc1", "acme-ai", "acme-labs").
			WillReturnError(errUnknown)
		mock.ExpectRollback()

		rec, err := repo.UpdateValue(context.TODO(), "acc1", "acme-labs")

		assert.Error(t, err)
		assert.ErrorIs(t, err, errUnknown)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_History(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`SELECT \* FROM slug_changes`).
			WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows(changeColumns))

		changes, err := repo.History(context.TODO(), "acc1")

		assert.NoError(t, err)
		assert.Empty(t, changes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(changeColumns).
			AddRow(2, "acc1", "acme-labs", "acme-hq", time.Time{}).
			AddRow(1, "acc1", "acme-ai", "acme-labs", time.Time{})

		mock.ExpectQuery(`SELECT \* FROM slug_changes`).
			WithArgs("acc1").
			WillReturnRows(rows)

		changes, err := repo.History(context.TODO(), "acc1")

		assert.NoError(t, err)
		assert.Len(t, changes, 2)
		assert.Equal(t, "acme-hq", changes[0].NewValue)
		assert.Equal(t, "acme-ai", changes[1].OldValue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_LatestChangeByOldValue(t *testing.T) {
	t.Run("no change recorded", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		mock.ExpectQuery(`SELECT \* FROM slug_changes`).
			WithArgs("acme-ai").
			WillReturnRows(sqlmock.NewRows(changeColumns))

		change, err := repo.LatestChangeByOldValue(context.TODO(), "acme-ai")

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrSlugNotFound)
		assert.Nil(t, change)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows(changeColumns).
			AddRow(1, "acc1", "acme-ai", "acme-labs", time.Time{})

		mock.ExpectQuery(`SELECT \* FROM slug_changes`).
			WithArgs("acme-ai").
			WillReturnRows(rows)

		change, err := repo.LatestChangeByOldValue(context.TODO(), "acme-ai")

		assert.NoError(t, err)
		assert.NotNil(t, change)
		assert.Equal(t, "acme-labs", change.NewValue)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSlugRepository_FilterTaken(t *testing.T) {
	t.Run("empty input skips the query", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		taken, err := repo.FilterTaken(context.TODO(), nil)

		assert.NoError(t, err)
		assert.Empty(t, taken)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		repo, mock := setupSlugRepository(t)

		rows := sqlmock.NewRows([]string{"value"}).
			AddRow("john-1").
			AddRow("john-3")

		mock.ExpectQuery(`SELECT value FROM slugs WHERE value IN`).
			WithArgs("john-1", "john-2", "john-3").
			WillReturnRows(rows)

		taken, err := repo.FilterTaken(context.TODO(), []string{"john-1", "john-2", "john-3"})

		assert.NoError(t, err)
		assert.Len(t, taken, 2)
		assert.Contains(t, taken, "john-1")
		assert.Contains(t, taken, "john-3")
		assert.NotContains(t, taken, "john-2")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
