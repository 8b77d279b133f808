package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db     *sqlx.DB
	opts   Options
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode and foreign keys, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string, opts Options, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are private to the connection that created them.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, opts: opts, logger: logger}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertMessage inserts or replaces a message and stores its attachments.
func (s *SQLiteStore) UpsertMessage(
	ctx context.Context,
	msg model.Message,
	atts []model.Attachment,
) error {
	if msg.ID == "" {
		return fmt.Errorf("upserting message: empty id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emails (
			id, thread_id, sender, recipient, subject, timestamp, body
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			thread_id = excluded.thread_id,
			sender    = excluded.sender,
			recipient = excluded.recipient,
			subject   = excluded.subject,
			timestamp = excluded.timestamp,
			body      = excluded.body`,
		msg.ID, msg.ThreadID, msg.Sender, msg.Recipient,
		msg.Subject, msg.Timestamp, msg.Body,
	)
	if err != nil {
		return fmt.Errorf("upserting message %s: %w", msg.ID, err)
	}

	if s.opts.ReplaceAttachments {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM attachments WHERE message_id = ?", msg.ID,
		); err != nil {
			return fmt.Errorf("clearing attachments for %s: %w", msg.ID, err)
		}
	}

	if len(atts) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO attachments (message_id, filename, mime_type, size)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing attachment insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range atts {
			size := a.Size
			if size < 0 {
				size = 0
			}
			if _, err := stmt.ExecContext(ctx, msg.ID, a.Filename, a.MIMEType, size); err != nil {
				return fmt.Errorf("inserting attachment %q for %s: %w", a.Filename, msg.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message %s: %w", msg.ID, err)
	}

	s.logger.Debug("stored message", "id", msg.ID, "attachments", len(atts))
	return nil
}

const messageColumns = `
	id,
	COALESCE(thread_id, '') AS thread_id,
	COALESCE(sender, '')    AS sender,
	COALESCE(recipient, '') AS recipient,
	COALESCE(subject, '')   AS subject,
	COALESCE(timestamp, 0)  AS timestamp,
	COALESCE(body, '')      AS body`

// GetMessage retrieves a single message by its ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := s.db.GetContext(ctx, &msg,
		"SELECT "+messageColumns+" FROM emails WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.Info("message not found", "id", id)
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}
	return &msg, nil
}

// GetThread retrieves all messages of a thread ordered by timestamp.
func (s *SQLiteStore) GetThread(ctx context.Context, threadID string) ([]model.Message, error) {
	var msgs []model.Message
	err := s.db.SelectContext(ctx, &msgs,
		"SELECT "+messageColumns+" FROM emails WHERE thread_id = ? ORDER BY timestamp, id",
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying thread %s: %w", threadID, err)
	}
	return msgs, nil
}

// ListMessages retrieves the most recent messages.
func (s *SQLiteStore) ListMessages(ctx context.Context, limit int) ([]model.Message, error) {
	query := "SELECT " + messageColumns + " FROM emails ORDER BY timestamp DESC, id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var msgs []model.Message
	if err := s.db.SelectContext(ctx, &msgs, query); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// GetAttachments retrieves the attachment rows of a message in insertion order.
func (s *SQLiteStore) GetAttachments(ctx context.Context, messageID string) ([]model.Attachment, error) {
	var atts []model.Attachment
	err := s.db.SelectContext(ctx, &atts, `
		SELECT id, message_id,
			COALESCE(filename, '')  AS filename,
			COALESCE(mime_type, '') AS mime_type,
			COALESCE(size, 0)       AS size
		FROM attachments WHERE message_id = ? ORDER BY id`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for %s: %w", messageID, err)
	}
	return atts, nil
}

// DeleteAttachments removes every attachment row of a message and reports
// how many were deleted.
func (s *SQLiteStore) DeleteAttachments(ctx context.Context, messageID string) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM attachments WHERE message_id = ?", messageID,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting attachments for %s: %w", messageID, err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
