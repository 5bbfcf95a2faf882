package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycelian/postybirb/internal/model"
	"github.com/mycelian/postybirb/internal/store/storetest"
)

func TestRebind(t *testing.T) {
	q := `UPDATE t SET a=?, b=? WHERE id=?`
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, `UPDATE t SET a=$1, b=$2 WHERE id=$3`, Postgres.rebind(q))
}

func TestCommitFailure_PublishesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rec := &storetest.Recorder{}
	s := New(db, SQLite, rec)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	err = s.Accounts().Create(context.Background(), &model.Account{Name: "a", Website: "test"})
	require.Error(t, err)
	assert.Empty(t, rec.Batches())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitIgnoresCallerCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rec := &storetest.Recorder{}
	s := New(db, SQLite, rec)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Accounts().Create(ctx, &model.Account{Name: "a", Website: "test"}))
	assert.Len(t, rec.Batches(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaceholdersAndNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := New(db, Postgres, nil)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE settings SET settings=$1, updated_at=$2 WHERE id=$3`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "st-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = s.Settings().Update(context.Background(), &model.Settings{ID: "st-1"})
	assert.True(t, model.IsNotFound(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, "x"))
	assert.True(t, model.IsConflict(classify(errors.New("constraint failed: UNIQUE constraint failed: settings.profile (2067)"), "x")))
	err := classify(errors.New("other"), "x")
	assert.False(t, model.IsConflict(err))
	assert.False(t, model.IsNotFound(err))
}
