package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInTransaction_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectCommit()

	successFn := func(ctx context.Context, tx *sql.Tx) error {
		return nil
	}

	err = RunInTransaction(context.Background(), db, successFn)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_FunctionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	expectedErr := errors.New("function failed")
	failFn := func(ctx context.Context, tx *sql.Tx) error {
		return expectedErr
	}

	err = RunInTransaction(context.Background(), db, failFn)
	assert.Error(t, err)
	assert.Equal(t, expectedErr, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_BeginTransactionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	expectedErr := errors.New("begin transaction failed")
	mock.ExpectBegin().WillReturnError(expectedErr)

	fn := func(ctx context.Context, tx *sql.Tx) error {
		return nil
	}

	err = RunInTransaction(context.Background(), db, fn)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.ErrorIs(t, err, expectedErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_CommitError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	expectedErr := errors.New("commit failed")
	mock.ExpectCommit().WillReturnError(expectedErr)

	successFn := func(ctx context.Context, tx *sql.Tx) error {
		return nil
	}

	err = RunInTransaction(context.Background(), db, successFn)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")
	assert.ErrorIs(t, err, expectedErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_RollbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	functionErr := errors.New("function failed")
	rollbackErr := errors.New("rollback failed")
	mock.ExpectRollback().WillReturnError(rollbackErr)

	failFn := func(ctx context.Context, tx *sql.Tx) error {
		return functionErr
	}

	err = RunInTransaction(context.Background(), db, failFn)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "error rolling back transaction")
	assert.Contains(t, err.Error(), "rollback failed")
	assert.Contains(t, err.Error(), "original error")
	assert.ErrorIs(t, err, functionErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_Panic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	panicFn := func(ctx context.Context, tx *sql.Tx) error {
		panic("test panic")
	}

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, panicFn)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_PanicWithRollbackError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	rollbackErr := errors.New("rollback failed")
	mock.ExpectRollback().WillReturnError(rollbackErr)

	panicFn := func(ctx context.Context, tx *sql.Tx) error {
		panic("test panic")
	}

	assert.Panics(t, func() {
		_ = RunInTransaction(context.Background(), db, panicFn)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTransaction_ExecutesStatementsOnTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE learner_progress").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = RunInTransaction(context.Background(), db, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "UPDATE learner_progress SET level = 2")
		return err
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsNotFoundError(ErrSubjectNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("lookup: %w", ErrCardNotFound)))
	assert.False(t, IsNotFoundError(ErrConcurrentUpdate))
	assert.False(t, IsNotFoundError(nil))

	assert.True(t, IsRetryable(ErrConcurrentUpdate))
	assert.True(t, IsRetryable(NewStoreError("progress", "save", "db down", ErrStoreUnavailable)))
	assert.False(t, IsRetryable(ErrProgressNotFound))

	se := NewStoreError("subject", "get", "query failed", ErrSubjectNotFound)
	assert.Equal(t, "get operation on subject failed: query failed: entity not found: subject", se.Error())
	var target *StoreError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", se), &target))
	assert.Equal(t, "subject", target.Entity)
}
