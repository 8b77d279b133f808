package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
	"github.com/appneural-ajith/ai-email-assistant/tests/testutil"
)

// MessageStoreTestSuite exercises SQLiteStore against an in-memory database.
type MessageStoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *store.SQLiteStore
}

func (s *MessageStoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = testutil.NewTestStore(s.T(), store.Options{})
}

func TestMessageStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MessageStoreTestSuite))
}

func sampleMessage(id string) model.Message {
	return model.Message{
		ID:        id,
		ThreadID:  "thread-1",
		Sender:    "alice@example.com",
		Recipient: "bob@example.com",
		Subject:   "Quarterly review",
		Timestamp: 1700000000,
		Body:      "Let's have a meeting on Friday at 3pm",
	}
}

func (s *MessageStoreTestSuite) TestUpsertThenGet() {
	msg := sampleMessage("m1")
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, nil))

	got, err := s.store.GetMessage(s.ctx, "m1")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), msg, *got)
}

func (s *MessageStoreTestSuite) TestUpsertIsIdempotentOnIdentity() {
	first := sampleMessage("m1")
	second := first
	second.Subject = "Rescheduled"
	second.Body = "new body"
	second.Timestamp = 1800000000
	second.Sender = "carol@example.com"

	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, first, nil))
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, second, nil))

	all, err := s.store.ListMessages(s.ctx, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 1)
	assert.Equal(s.T(), second, all[0])
}

func (s *MessageStoreTestSuite) TestGetMissingReturnsNotFound() {
	got, err := s.store.GetMessage(s.ctx, "never-stored")

	assert.Nil(s.T(), got)
	assert.ErrorIs(s.T(), err, store.ErrNotFound)
}

func (s *MessageStoreTestSuite) TestEmptyBodyIsNotNotFound() {
	msg := sampleMessage("empty")
	msg.Body = ""
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, nil))

	got, err := s.store.GetMessage(s.ctx, "empty")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), "", got.Body)
}

func (s *MessageStoreTestSuite) TestAttachmentsAppendedOnReupsert() {
	msg := sampleMessage("m1")
	atts := []model.Attachment{
		{Filename: "a.pdf", MIMEType: "application/pdf", Size: 10},
		{Filename: "b.png", MIMEType: "image/png", Size: 20},
	}

	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, atts))
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, atts))

	stored, err := s.store.GetAttachments(s.ctx, "m1")
	require.NoError(s.T(), err)
	require.Len(s.T(), stored, 4)
	for _, a := range stored {
		assert.Equal(s.T(), "m1", a.MessageID)
		assert.NotZero(s.T(), a.ID)
	}
	assert.Equal(s.T(), "a.pdf", stored[0].Filename)
	assert.Equal(s.T(), "b.png", stored[3].Filename)
}

func (s *MessageStoreTestSuite) TestDeleteAttachments() {
	msg := sampleMessage("m1")
	atts := []model.Attachment{{Filename: "a.pdf", MIMEType: "application/pdf", Size: 10}}
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, atts))

	n, err := s.store.DeleteAttachments(s.ctx, "m1")

	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)
	stored, err := s.store.GetAttachments(s.ctx, "m1")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), stored)
}

func (s *MessageStoreTestSuite) TestNegativeAttachmentSizeClamped() {
	msg := sampleMessage("m1")
	require.NoError(s.T(), s.store.UpsertMessage(s.ctx, msg, []model.Attachment{
		{Filename: "weird.bin", MIMEType: "application/octet-stream", Size: -5},
	}))

	stored, err := s.store.GetAttachments(s.ctx, "m1")

	require.NoError(s.T(), err)
	require.Len(s.T(), stored, 1)
	assert.Equal(s.T(), int64(0), stored[0].Size)
}

func (s *MessageStoreTestSuite) TestGetThreadOrderedByTimestamp() {
	late := sampleMessage("late")
	late.Timestamp = 300
	early := sampleMessage("early")
	early.Timestamp = 100
	other := sampleMessage("other")
	other.ThreadID = "thread-2"

	for _, m := range []model.Message{late, early, other} {
		require.NoError(s.T(), s.store.UpsertMessage(s.ctx, m, nil))
	}

	thread, err := s.store.GetThread(s.ctx, "thread-1")

	require.NoError(s.T(), err)
	require.Len(s.T(), thread, 2)
	assert.Equal(s.T(), "early", thread[0].ID)
	assert.Equal(s.T(), "late", thread[1].ID)
}

func (s *MessageStoreTestSuite) TestListMessagesNewestFirstWithLimit() {
	for i, id := range []string{"a", "b", "c"} {
		m := sampleMessage(id)
		m.Timestamp = int64(i)
		require.NoError(s.T(), s.store.UpsertMessage(s.ctx, m, nil))
	}

	got, err := s.store.ListMessages(s.ctx, 2)

	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2)
	assert.Equal(s.T(), "c", got[0].ID)
	assert.Equal(s.T(), "b", got[1].ID)
}

func (s *MessageStoreTestSuite) TestEmptyIDRejected() {
	err := s.store.UpsertMessage(s.ctx, model.Message{}, nil)

	assert.Error(s.T(), err)
}

func TestReplaceAttachmentsOption(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t, store.Options{ReplaceAttachments: true})
	msg := sampleMessage("m1")
	atts := []model.Attachment{{Filename: "a.pdf", MIMEType: "application/pdf", Size: 10}}

	require.NoError(t, s.UpsertMessage(ctx, msg, atts))
	require.NoError(t, s.UpsertMessage(ctx, msg, atts))

	stored, err := s.GetAttachments(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestMigrationsAreReentrant(t *testing.T) {
	path := t.TempDir() + "/emails.db"

	first, err := store.NewSQLiteStore(path, store.Options{}, testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, first.UpsertMessage(context.Background(), sampleMessage("keep"), nil))
	require.NoError(t, first.Close())

	second, err := store.NewSQLiteStore(path, store.Options{}, testutil.DiscardLogger())
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetMessage(context.Background(), "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", got.ID)
}
