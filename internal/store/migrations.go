package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS emails (
	id        TEXT PRIMARY KEY,
	thread_id TEXT,
	sender    TEXT,
	recipient TEXT,
	subject   TEXT,
	timestamp INTEGER,
	body      TEXT
);

CREATE TABLE IF NOT EXISTS attachments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id TEXT,
	filename   TEXT,
	mime_type  TEXT,
	size       INTEGER,
	FOREIGN KEY (message_id) REFERENCES emails(id)
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_emails_thread_timestamp
	ON emails(thread_id, timestamp);

CREATE INDEX IF NOT EXISTS idx_attachments_message_id
	ON attachments(message_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
