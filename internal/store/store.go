package store

import (
	"context"
	"errors"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("record not found")

// Options tunes write behavior of the store.
type Options struct {
	// ReplaceAttachments deletes the attachment rows already stored for a
	// message before inserting the new ones, in the same transaction.
	// When false, attachments are appended on every upsert.
	ReplaceAttachments bool
}

// Store defines the persistence interface for ingested messages and their
// attachments.
type Store interface {
	// UpsertMessage inserts msg or fully replaces the row with the same id,
	// then stores atts against msg.ID. Both happen in one transaction.
	UpsertMessage(ctx context.Context, msg model.Message, atts []model.Attachment) error

	// GetMessage returns ErrNotFound (wrapped) when id was never stored.
	GetMessage(ctx context.Context, id string) (*model.Message, error)

	// GetThread returns the messages sharing threadID, oldest first.
	GetThread(ctx context.Context, threadID string) ([]model.Message, error)

	// ListMessages returns up to limit messages, newest first.
	// A limit <= 0 returns all messages.
	ListMessages(ctx context.Context, limit int) ([]model.Message, error)

	GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error)
	DeleteAttachments(ctx context.Context, messageID string) (int64, error)
}
