package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
)

// AuthError indicates that authentication has failed or expired for a
// source. Retrying does not help; the credentials must be fixed.
type AuthError struct {
	SourceType SourceType
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.SourceType, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// SourceType identifies the kind of mail transport.
type SourceType string

const (
	SourceTypeGmail SourceType = "gmail"
	SourceTypeIMAP  SourceType = "imap"
	SourceTypeMbox  SourceType = "mbox"
)

// RawMessage is a message exactly as fetched from the transport, before
// normalization.
type RawMessage struct {
	ID string

	// ThreadID is empty when the transport has no conversation id.
	ThreadID string

	Headers model.Headers

	// Payload is the content-part tree. A nil payload is malformed input.
	Payload *parttree.Tree

	// InternalDateMs is milliseconds since the Unix epoch, 0 when unknown.
	InternalDateMs int64
}

// MessageSource is the contract every upstream mail transport implements.
type MessageSource interface {
	// Type returns the source type identifier.
	Type() SourceType

	// ListMessageIDs returns up to maxResults message ids, most recent first.
	ListMessageIDs(ctx context.Context, maxResults int) ([]string, error)

	// FetchFull retrieves headers, payload tree and metadata of one message.
	FetchFull(ctx context.Context, id string) (*RawMessage, error)
}
