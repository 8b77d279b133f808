package mbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appneural-ajith/ai-email-assistant/internal/ingest"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
)

const testMbox = `From alice@example.com Mon Oct 12 09:00:00 2026
From: Alice <alice@example.com>
To: bob@example.com
Subject: Planning
Message-ID: <root@example.com>
Date: Mon, 12 Oct 2026 09:00:00 +0000

Can we have a meeting on Friday at 2pm?

From bob@example.com Mon Oct 12 10:00:00 2026
From: bob@example.com
To: Alice <alice@example.com>
Subject: Re: Planning
Message-ID: <reply@example.com>
In-Reply-To: <root@example.com>
References: <root@example.com>
Date: Mon, 12 Oct 2026 10:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="b1"

--b1
Content-Type: text/html; charset=utf-8

<p>Works for me.</p>
--b1
Content-Type: text/csv
Content-Disposition: attachment; filename="slots.csv"

a,b
--b1--

From carol@example.com Mon Oct 12 11:00:00 2026
From: carol@example.com
Subject: no id

just text

`

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListMessageIDs(t *testing.T) {
	s := NewFromBytes([]byte(testMbox), discard())

	ids, err := s.ListMessageIDs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.Equal(t, idFor("reply@example.com"), ids[1])
	assert.Equal(t, idFor("root@example.com"), ids[2])

	limited, err := s.ListMessageIDs(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, ids[:2], limited)
}

func TestListMessageIDs_Stable(t *testing.T) {
	a, err := NewFromBytes([]byte(testMbox), discard()).ListMessageIDs(context.Background(), 0)
	require.NoError(t, err)
	b, err := NewFromBytes([]byte(testMbox), discard()).ListMessageIDs(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFetchFull_Thread(t *testing.T) {
	s := NewFromBytes([]byte(testMbox), discard())
	rootID := idFor("root@example.com")

	root, err := s.FetchFull(context.Background(), rootID)
	require.NoError(t, err)
	reply, err := s.FetchFull(context.Background(), idFor("reply@example.com"))
	require.NoError(t, err)

	rootMsg, _, err := ingest.Normalize(*root)
	require.NoError(t, err)
	replyMsg, atts, err := ingest.Normalize(*reply)
	require.NoError(t, err)

	assert.Equal(t, rootID, rootMsg.ThreadID)
	assert.Equal(t, rootID, replyMsg.ThreadID)
	assert.Equal(t, "Planning", rootMsg.Subject)
	assert.Equal(t, int64(1791795600), rootMsg.Timestamp)
	assert.Contains(t, rootMsg.Body, "meeting on Friday at 2pm")

	assert.Contains(t, replyMsg.Body, "Works for me.")
	assert.NotContains(t, replyMsg.Body, "<p>")
	require.Len(t, atts, 1)
	assert.Equal(t, "slots.csv", atts[0].Filename)
	assert.Equal(t, "text/csv", atts[0].MIMEType)
}

func TestFetchFull_NoMessageID(t *testing.T) {
	s := NewFromBytes([]byte(testMbox), discard())
	ids, err := s.ListMessageIDs(context.Background(), 1)
	require.NoError(t, err)

	raw, err := s.FetchFull(context.Background(), ids[0])

	require.NoError(t, err)
	assert.Empty(t, raw.ThreadID)
	require.NotNil(t, raw.Payload)
	assert.Equal(t, parttree.TypePlain, raw.Payload.Part(parttree.Root).MediaType())
}

func TestFetchFull_Unknown(t *testing.T) {
	s := NewFromBytes([]byte(testMbox), discard())

	_, err := s.FetchFull(context.Background(), "nope")

	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inbox.mbox")
	require.NoError(t, os.WriteFile(path, []byte(testMbox), 0o600))

	ids, err := New(path, discard()).ListMessageIDs(context.Background(), 0)

	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestMissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "none.mbox"), discard()).ListMessageIDs(context.Background(), 0)

	assert.Error(t, err)
}
