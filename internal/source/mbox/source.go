// Package mbox reads messages from a local mbox file.
package mbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"os"
	"sort"
	"strings"
	"sync"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
)

// idNamespace scopes the name-based UUIDs used as message ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailassist:mbox"))

// Source serves the messages of an mbox file. Ids are name-based UUIDs
// of the Message-ID header, or of the raw bytes when it is missing, so
// re-reading the same file yields the same ids.
type Source struct {
	path   string
	open   func() (io.ReadCloser, error)
	logger *slog.Logger

	mu    sync.Mutex
	order []string
	raw   map[string][]byte
}

// New creates a Source for the mbox file at path.
func New(path string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		path:   path,
		open:   func() (io.ReadCloser, error) { return os.Open(path) },
		logger: logger,
	}
}

// NewFromBytes creates a Source over an in-memory mbox.
func NewFromBytes(data []byte, logger *slog.Logger) *Source {
	s := New("", logger)
	s.open = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return s
}

// Type returns the source type identifier for mbox files.
func (s *Source) Type() source.SourceType {
	return source.SourceTypeMbox
}

// ListMessageIDs reads the file and returns up to maxResults ids, last
// message in the file first.
func (s *Source) ListMessageIDs(ctx context.Context, maxResults int) ([]string, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if maxResults > 0 && len(ids) == maxResults {
			break
		}
		ids = append(ids, s.order[i])
	}
	return ids, nil
}

// FetchFull parses the message with the given id.
func (s *Source) FetchFull(ctx context.Context, id string) (*source.RawMessage, error) {
	s.mu.Lock()
	raw, ok := s.raw[id]
	s.mu.Unlock()

	if !ok {
		if err := s.load(ctx); err != nil {
			return nil, err
		}
		s.mu.Lock()
		raw, ok = s.raw[id]
		s.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("message %s not found in mbox", id)
		}
	}

	return parse(id, raw)
}

// load indexes every message of the file.
func (s *Source) load(ctx context.Context) error {
	f, err := s.open()
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer f.Close()

	reader := mboxlib.NewReader(f)

	var order []string
	index := make(map[string][]byte)
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return fmt.Errorf("message %d read: %w", idx, err)
		}

		id := messageID(raw)
		if _, dup := index[id]; dup {
			s.logger.Debug("duplicate message in mbox", "index", idx, "id", id)
			continue
		}
		index[id] = raw
		order = append(order, id)
	}

	s.mu.Lock()
	s.order, s.raw = order, index
	s.mu.Unlock()

	s.logger.Debug("indexed mbox", "path", s.path, "messages", len(order))
	return nil
}

// messageID derives the id of a raw message.
func messageID(raw []byte) string {
	if msg, err := mail.ReadMessage(bytes.NewReader(raw)); err == nil {
		if mid := trimID(msg.Header.Get("Message-Id")); mid != "" {
			return idFor(mid)
		}
	}
	return uuid.NewSHA1(idNamespace, raw).String()
}

func idFor(messageID string) string {
	return uuid.NewSHA1(idNamespace, []byte(messageID)).String()
}

func trimID(v string) string {
	return strings.Trim(strings.TrimSpace(v), "<>")
}

// threadID names a conversation after its first message: the first
// References entry, else In-Reply-To. Empty when the message starts a
// thread.
func threadID(env *enmime.Envelope) string {
	if refs := strings.Fields(env.GetHeader("References")); len(refs) > 0 {
		return idFor(trimID(refs[0]))
	}
	if parent := trimID(env.GetHeader("In-Reply-To")); parent != "" {
		return idFor(parent)
	}
	return ""
}

func parse(id string, raw []byte) (*source.RawMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", id, err)
	}
	for _, perr := range env.Errors {
		if perr.Severe {
			return nil, fmt.Errorf("parsing message %s: %s", id, perr.String())
		}
	}

	msg := &source.RawMessage{
		ID:       id,
		ThreadID: threadID(env),
		Headers:  headerList(env),
	}
	if date := env.GetHeader("Date"); date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			msg.InternalDateMs = t.UnixMilli()
		}
	}

	if env.Root != nil {
		tree, err := buildTree(env.Root)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", id, err)
		}
		msg.Payload = tree
	}
	return msg, nil
}

// headerList returns the header fields sorted by name. Values of one name
// keep their message order.
func headerList(env *enmime.Envelope) model.Headers {
	keys := env.GetHeaderKeys()
	sort.Strings(keys)

	var out model.Headers
	for _, k := range keys {
		for _, v := range env.GetHeaderValues(k) {
			out = append(out, model.Header{Name: k, Value: v})
		}
	}
	return out
}

// buildTree copies the enmime part hierarchy into a part tree without
// recursion.
func buildTree(root *enmime.Part) (*parttree.Tree, error) {
	type item struct {
		part *enmime.Part
		idx  int
	}

	tree := parttree.New(toPart(root))
	stack := []item{{root, parttree.Root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for child := it.part.FirstChild; child != nil; child = child.NextSibling {
			idx, err := tree.Add(it.idx, toPart(child))
			if err != nil {
				return nil, err
			}
			stack = append(stack, item{child, idx})
		}
	}
	return tree, nil
}

func toPart(p *enmime.Part) parttree.Part {
	contentType := p.ContentType
	if contentType == "" {
		contentType = parttree.TypePlain
	}

	if p.FirstChild != nil || strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
		return parttree.Container(contentType)
	}

	var data string
	if len(p.Content) > 0 {
		data = base64.URLEncoding.EncodeToString(p.Content)
	}
	return parttree.Leaf(contentType, data).WithFile(p.FileName, int64(len(p.Content)))
}
