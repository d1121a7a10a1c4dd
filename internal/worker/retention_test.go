package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetention(t *testing.T) (*VisitRetention, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v := NewVisitRetention(db, 90*24*time.Hour, time.Hour)
	v.pause = 0
	v.now = func() time.Time { return now }
	return v, mock
}

func TestVisitRetention_DeletesInBatches(t *testing.T) {
	v, mock := newRetention(t)
	cutoff := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM visits").
		WithArgs(cutoff, retentionBatchSize).
		WillReturnResult(sqlmock.NewResult(0, retentionBatchSize))
	mock.ExpectExec("DELETE FROM visits").
		WithArgs(cutoff, retentionBatchSize).
		WillReturnResult(sqlmock.NewResult(0, 42))

	assert.Equal(t, int64(retentionBatchSize+42), v.RunOnce(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRetention_NothingToDelete(t *testing.T) {
	v, mock := newRetention(t)
	mock.ExpectExec("DELETE FROM visits").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.Zero(t, v.RunOnce(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRetention_MissingTable(t *testing.T) {
	v, mock := newRetention(t)
	mock.ExpectExec("DELETE FROM visits").WillReturnError(&pq.Error{Code: "42P01"})

	assert.Zero(t, v.RunOnce(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRetention_ErrorStopsCycle(t *testing.T) {
	v, mock := newRetention(t)
	mock.ExpectExec("DELETE FROM visits").WillReturnError(errors.New("connection reset"))

	assert.Zero(t, v.RunOnce(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRetention_StartStopsOnCancel(t *testing.T) {
	v, mock := newRetention(t)
	mock.ExpectExec("DELETE FROM visits").WillReturnResult(sqlmock.NewResult(0, 0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return mock.ExpectationsWereMet() == nil }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retention worker did not stop")
	}
}
