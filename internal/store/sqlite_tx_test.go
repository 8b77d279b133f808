package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
)

func newMockStore(t *testing.T, opts Options) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &SQLiteStore{
		db:     sqlx.NewDb(db, "sqlmock"),
		opts:   opts,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, mock
}

func TestUpsertMessage_RollsBackWhenAttachmentInsertFails(t *testing.T) {
	s, mock := newMockStore(t, Options{})
	msg := model.Message{ID: "m1", ThreadID: "t1", Subject: "s"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO emails").
		WithArgs("m1", "t1", "", "", "s", int64(0), "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO attachments")
	mock.ExpectExec("INSERT INTO attachments").
		WithArgs("m1", "a.pdf", "application/pdf", int64(3)).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.UpsertMessage(context.Background(), msg, []model.Attachment{
		{Filename: "a.pdf", MIMEType: "application/pdf", Size: 3},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.pdf")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMessage_ReplaceDeletesInsideTransaction(t *testing.T) {
	s, mock := newMockStore(t, Options{ReplaceAttachments: true})
	msg := model.Message{ID: "m1"}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO emails").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM attachments").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.UpsertMessage(context.Background(), msg, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMessage_BeginFailure(t *testing.T) {
	s, mock := newMockStore(t, Options{})

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	err := s.UpsertMessage(context.Background(), model.Message{ID: "m1"}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "beginning transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}
