package ingest

import (
	"errors"
	"fmt"

	"github.com/appneural-ajith/ai-email-assistant/internal/model"
	"github.com/appneural-ajith/ai-email-assistant/internal/parttree"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
)

// ErrMalformedInput is returned when a message has no payload tree at all.
var ErrMalformedInput = errors.New("malformed message: payload missing")

// Normalize combines headers, the extracted body and attachment metadata
// into the canonical records of one message. Missing optional headers are
// replaced by defaults; only a missing payload is an error.
func Normalize(raw source.RawMessage) (model.Message, []model.Attachment, error) {
	if raw.Payload == nil {
		return model.Message{}, nil, fmt.Errorf("message %s: %w", raw.ID, ErrMalformedInput)
	}

	threadID := raw.ThreadID
	if threadID == "" {
		threadID = raw.ID
	}

	msg := model.Message{
		ID:        raw.ID,
		ThreadID:  threadID,
		Sender:    headerOr(raw.Headers, "From", model.DefaultSender),
		Recipient: headerOr(raw.Headers, "To", model.DefaultRecipient),
		Subject:   headerOr(raw.Headers, "Subject", model.DefaultSubject),
		Timestamp: floorDiv(raw.InternalDateMs, 1000),
		Body:      parttree.ExtractBody(raw.Payload),
	}

	atts := parttree.CollectAttachments(raw.Payload)
	for i := range atts {
		atts[i].MessageID = raw.ID
	}

	return msg, atts, nil
}

func headerOr(h model.Headers, name, fallback string) string {
	if v, ok := h.Get(name); ok {
		return v
	}
	return fallback
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
