// Package gmail reads and sends mail through the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
)

const user = "me"

// Source lists and fetches messages from a Gmail mailbox.
type Source struct {
	srv    *gmail.Service
	query  string
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

// NewService creates a Gmail API service from client options, typically
// option.WithHTTPClient with an authorized client.
func NewService(ctx context.Context, opts ...option.ClientOption) (*gmail.Service, error) {
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gmail service: %w", err)
	}
	return srv, nil
}

// New creates a Source. query is a Gmail search expression, empty for all
// messages.
func New(srv *gmail.Service, query string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		srv:    srv,
		query:  query,
		cb:     newBreaker("gmail-api", logger),
		logger: logger,
	}
}

// Type returns the source type identifier for Gmail.
func (s *Source) Type() source.SourceType {
	return source.SourceTypeGmail
}

// ListMessageIDs returns up to maxResults message ids, most recent first.
func (s *Source) ListMessageIDs(ctx context.Context, maxResults int) ([]string, error) {
	resp, err := call(s.cb, "listing messages", func() (*gmail.ListMessagesResponse, error) {
		c := s.srv.Users.Messages.List(user).Context(ctx)
		if maxResults > 0 {
			c = c.MaxResults(int64(maxResults))
		}
		if s.query != "" {
			c = c.Q(s.query)
		}
		return c.Do()
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// FetchFull retrieves one message in full format.
func (s *Source) FetchFull(ctx context.Context, id string) (*source.RawMessage, error) {
	msg, err := call(s.cb, "fetching message "+id, func() (*gmail.Message, error) {
		return s.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return toRawMessage(msg)
}

// toRawMessage converts an API message. A message without payload keeps a
// nil Payload so normalization rejects it.
func toRawMessage(msg *gmail.Message) (*source.RawMessage, error) {
	raw := &source.RawMessage{
		ID:             msg.Id,
		ThreadID:       msg.ThreadId,
		InternalDateMs: msg.InternalDate,
	}
	if msg.Payload == nil {
		return raw, nil
	}

	for _, h := range msg.Payload.Headers {
		raw.Headers = append(raw.Headers, model.Header{Name: h.Name, Value: h.Value})
	}

	tree, err := buildTree(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.Id, err)
	}
	raw.Payload = tree
	return raw, nil
}

// buildTree copies the API part hierarchy into a part tree without
// recursion. Children keep their document order.
func buildTree(root *gmail.MessagePart) (*parttree.Tree, error) {
	type item struct {
		part *gmail.MessagePart
		idx  int
	}

	tree := parttree.New(toPart(root))
	stack := []item{{root, parttree.Root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range it.part.Parts {
			if child == nil {
				continue
			}
			idx, err := tree.Add(it.idx, toPart(child))
			if err != nil {
				return nil, err
			}
			stack = append(stack, item{child, idx})
		}
	}
	return tree, nil
}

func toPart(p *gmail.MessagePart) parttree.Part {
	var data string
	var size int64
	if p.Body != nil {
		data = p.Body.Data
		size = p.Body.Size
	}

	var part parttree.Part
	if len(p.Parts) > 0 || strings.HasPrefix(strings.ToLower(p.MimeType), "multipart/") {
		part = parttree.Container(p.MimeType)
	} else {
		part = parttree.Leaf(p.MimeType, data)
	}
	return part.WithFile(p.Filename, size)
}

// Sender sends RFC 5322 messages with users.messages.send.
type Sender struct {
	srv *gmail.Service
	cb  *gobreaker.CircuitBreaker
}

// NewSender creates a Sender.
func NewSender(srv *gmail.Service, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{srv: srv, cb: newBreaker("gmail-send", logger)}
}

// Send delivers raw. Recipients are taken from the message headers.
func (s *Sender) Send(ctx context.Context, _ []string, raw []byte) error {
	_, err := call(s.cb, "sending message", func() (*gmail.Message, error) {
		return s.srv.Users.Messages.Send(user, &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString(raw),
		}).Context(ctx).Do()
	})
	return err
}
