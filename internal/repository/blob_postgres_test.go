package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestPostgresBlobStoreEnsureSchema(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresBlobStore(db)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS record_blobs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBlobStoreLoad(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresBlobStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM record_blobs WHERE tenant_id = $1 AND collection = $2")).
		WithArgs("school-a", "lessons").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}).AddRow([]byte(`{"schema_version":1,"records":[]}`)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload FROM record_blobs WHERE tenant_id = $1 AND collection = $2")).
		WithArgs("school-a", "badges").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))

	payload, err := store.Load(context.Background(), "school-a", CollectionLessons)
	require.NoError(t, err)
	assert.JSONEq(t, `{"schema_version":1,"records":[]}`, string(payload))

	missing, err := store.Load(context.Background(), "school-a", CollectionBadges)
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBlobStoreLoadAll(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresBlobStore(db)

	mock.ExpectQuery("SELECT tenant_id, payload FROM record_blobs WHERE collection = \\$1 ORDER BY tenant_id").
		WithArgs("lessons").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "payload"}).
			AddRow("school-a", []byte(`a`)).
			AddRow("school-b", []byte(`b`)))

	all, err := store.LoadAll(context.Background(), CollectionLessons)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"school-a": []byte(`a`), "school-b": []byte(`b`)}, all)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBlobStoreUpdateCommits(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresBlobStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("school-a").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT payload FROM record_blobs").
		WithArgs("school-a", "activities").
		WillReturnRows(sqlmock.NewRows([]string{"payload"}))
	mock.ExpectExec("INSERT INTO record_blobs").
		WithArgs("school-a", "activities", []byte(`{"x":1}`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Update(context.Background(), "school-a", func(tx BlobTx) error {
		current, err := tx.Get(context.Background(), CollectionActivities)
		require.NoError(t, err)
		assert.Nil(t, current)
		return tx.Put(context.Background(), CollectionActivities, []byte(`{"x":1}`))
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBlobStoreUpdateRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	store := NewPostgresBlobStore(db)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.Update(context.Background(), "school-a", func(BlobTx) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}
