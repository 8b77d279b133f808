package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/appneural-ajith/ai-email-assistant/internal/ingest"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSource(t *testing.T, h http.HandlerFunc) (*Source, *Sender) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return New(svc, "in:inbox", discard()), NewSender(svc, discard())
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func sampleMessage() *gmail.Message {
	return &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1700000000123,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "alice@example.com"},
				{Name: "Subject", Value: "Report"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmail.MessagePart{
						{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: b64("<p>hi</p>")}},
						{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: b64("hi")}},
					},
				},
				{
					MimeType: "application/pdf",
					Filename: "report.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "a1", Size: 2048},
				},
			},
		},
	}
}

func TestListMessageIDs(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "in:inbox", r.URL.Query().Get("q"))
		writeJSON(t, w, gmail.ListMessagesResponse{
			Messages: []*gmail.Message{{Id: "a"}, {Id: "b"}},
		})
	})

	ids, err := s.ListMessageIDs(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestFetchFull(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gmail/v1/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(t, w, sampleMessage())
	})

	raw, err := s.FetchFull(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "t1", raw.ThreadID)
	assert.Equal(t, int64(1700000000123), raw.InternalDateMs)
	subject, ok := raw.Headers.Get("Subject")
	assert.True(t, ok)
	assert.Equal(t, "Report", subject)

	require.NotNil(t, raw.Payload)
	assert.Equal(t, 5, raw.Payload.Len())
	assert.Equal(t, "hi", parttree.ExtractBody(raw.Payload))

	msg, atts, err := ingest.Normalize(*raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	require.Len(t, atts, 1)
	assert.Equal(t, "report.pdf", atts[0].Filename)
	assert.Equal(t, int64(2048), atts[0].Size)
}

func TestFetchFull_AuthError(t *testing.T) {
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	})

	_, err := s.FetchFull(context.Background(), "m1")

	assert.True(t, source.IsAuthError(err))
}

func TestFetchFull_ServerErrorsOpenBreaker(t *testing.T) {
	calls := 0
	s, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 10; i++ {
		_, err := s.FetchFull(context.Background(), "m1")
		assert.Error(t, err)
	}

	assert.Less(t, calls, 10, "breaker should short-circuit after repeated failures")
}

func TestToRawMessage_NoPayload(t *testing.T) {
	raw, err := toRawMessage(&gmail.Message{Id: "x"})

	require.NoError(t, err)
	assert.Nil(t, raw.Payload)
	_, _, err = ingest.Normalize(*raw)
	assert.ErrorIs(t, err, ingest.ErrMalformedInput)
}

func TestBuildTree_KeepsOrder(t *testing.T) {
	tree, err := buildTree(sampleMessage().Payload)
	require.NoError(t, err)

	root := tree.Children(parttree.Root)
	require.Len(t, root, 2)
	assert.Equal(t, parttree.KindContainer, tree.Part(root[0]).Kind)
	assert.Equal(t, "report.pdf", tree.Part(root[1]).Filename)

	alt := tree.Children(root[0])
	require.Len(t, alt, 2)
	assert.Equal(t, "text/html", tree.Part(alt[0]).ContentType)
	assert.Equal(t, "text/plain", tree.Part(alt[1]).ContentType)
}

func TestSend(t *testing.T) {
	var got gmail.Message
	_, sender := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/users/me/messages/send"), r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, gmail.Message{Id: "sent"})
	})

	err := sender.Send(context.Background(), []string{"bob@example.com"}, []byte("Subject: hi\r\n\r\nbody"))

	require.NoError(t, err)
	decoded, err := base64.URLEncoding.DecodeString(got.Raw)
	require.NoError(t, err)
	assert.Equal(t, "Subject: hi\r\n\r\nbody", string(decoded))
}
