// Package email reads messages from an IMAP mailbox and sends replies over
// SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/appneural-ajith/ai-email-assistant/internal/source"
)

// DefaultMailbox is selected when no mailbox is configured.
const DefaultMailbox = "INBOX"

// IMAPConfig holds the IMAP server settings.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// IMAPClient wraps go-imap v2 for connecting to and querying IMAP servers.
type IMAPClient struct {
	cfg IMAPConfig
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(cfg IMAPConfig) *IMAPClient {
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultMailbox
	}
	return &IMAPClient{cfg: cfg}
}

// Connect establishes a connection to the IMAP server, authenticates and
// selects the configured mailbox. The connection is closed when ctx ends.
// The returned release func must be called when done.
func (c *IMAPClient) Connect(ctx context.Context) (*imapclient.Client, func(), error) {
	addr := c.cfg.Host + ":" + c.cfg.Port

	var client *imapclient.Client
	var err error

	if c.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = client.Close() })
	release := func() {
		stop()
		_ = client.Logout().Wait()
		_ = client.Close()
	}

	if err := client.Login(c.cfg.Username, c.cfg.Password).Wait(); err != nil {
		release()
		return nil, nil, &source.AuthError{
			SourceType: source.SourceTypeIMAP,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				c.cfg.Username, err,
			),
		}
	}

	if _, err := client.Select(c.cfg.Mailbox, nil).Wait(); err != nil {
		release()
		return nil, nil, fmt.Errorf("selecting %s: %w", c.cfg.Mailbox, err)
	}

	return client, release, nil
}

// Source implements source.MessageSource over IMAP. Message ids are UIDs
// of the configured mailbox.
type Source struct {
	client *IMAPClient
	logger *slog.Logger
}

// NewSource creates an IMAP message source.
func NewSource(client *IMAPClient, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, logger: logger}
}

// Type returns the source type identifier for IMAP.
func (s *Source) Type() source.SourceType {
	return source.SourceTypeIMAP
}

// ListMessageIDs returns the UIDs of the newest maxResults messages,
// most recent first.
func (s *Source) ListMessageIDs(ctx context.Context, maxResults int) ([]string, error) {
	client, release, err := s.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	// Take the most recent.
	if maxResults > 0 && len(uids) > maxResults {
		uids = uids[len(uids)-maxResults:]
	}
	slices.Reverse(uids)

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// FetchFull fetches the complete message for a UID and parses its MIME
// structure into a part tree.
func (s *Source) FetchFull(ctx context.Context, id string) (*source.RawMessage, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	client, release, err := s.client.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:          true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uid), fetchOpts)
	defer fetchCmd.Close()

	msg := fetchCmd.Next()
	if msg == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("closing fetch: %w", err)
	}

	raw := &source.RawMessage{ID: id}
	if !buf.InternalDate.IsZero() {
		raw.InternalDateMs = buf.InternalDate.UnixMilli()
	}

	body := buf.FindBodySection(bodySection)
	if body == nil {
		s.logger.Warn("message has no body section", "uid", uid)
		return raw, nil
	}

	raw.Headers, raw.Payload, err = ParseMIME(body)
	if err != nil {
		return nil, fmt.Errorf("message UID %d: %w", uid, err)
	}
	return raw, nil
}

// parseUID converts a message id to an IMAP UID.
func parseUID(id string) (imap.UID, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid email UID %q: %w", id, err)
	}
	return imap.UID(uid), nil
}
