// Package ingest turns messages fetched from a mail transport into stored
// records, one message at a time.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/appneural-ajith/ai-email-assistant/internal/retry"
	"github.com/appneural-ajith/ai-email-assistant/internal/source"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
)

// Failure records why a single message was not stored.
type Failure struct {
	ID  string
	Err error
}

// Report summarizes one batch run.
type Report struct {
	Listed int
	Stored []string
	Failed []Failure
}

// Ingester runs the list → fetch → normalize → upsert pipeline.
type Ingester struct {
	src    source.MessageSource
	store  store.Store
	policy retry.Policy
	logger *slog.Logger
}

// New creates an Ingester. Authentication errors from the source are never
// retried unless policy.Permanent says otherwise.
func New(src source.MessageSource, st store.Store, policy retry.Policy, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Permanent == nil {
		policy.Permanent = source.IsAuthError
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &Ingester{src: src, store: st, policy: policy, logger: logger}
}

// Run ingests up to maxResults messages sequentially. A failure of one
// message is recorded in the report and the batch continues; only a failed
// listing aborts the run. Messages stored before a crash stay stored.
func (in *Ingester) Run(ctx context.Context, maxResults int) (*Report, error) {
	var ids []string
	err := in.policy.Do(ctx, "listing messages", func(ctx context.Context) error {
		var err error
		ids, err = in.src.ListMessageIDs(ctx, maxResults)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s source: %w", in.src.Type(), err)
	}

	report := &Report{Listed: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := in.ingestOne(ctx, id); err != nil {
			in.logger.Error("message not ingested", "id", id, "error", err)
			report.Failed = append(report.Failed, Failure{ID: id, Err: err})
			continue
		}
		report.Stored = append(report.Stored, id)
	}

	in.logger.Info("ingest finished",
		"source", in.src.Type(),
		"listed", report.Listed,
		"stored", len(report.Stored),
		"failed", len(report.Failed),
	)
	return report, nil
}

func (in *Ingester) ingestOne(ctx context.Context, id string) error {
	var raw *source.RawMessage
	err := in.policy.Do(ctx, "fetching message "+id, func(ctx context.Context) error {
		var err error
		raw, err = in.src.FetchFull(ctx, id)
		return err
	})
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("message %s: %w", id, ErrMalformedInput)
	}

	msg, atts, err := Normalize(*raw)
	if err != nil {
		return err
	}

	if err := in.store.UpsertMessage(ctx, msg, atts); err != nil {
		return err
	}

	in.logger.Info("ingested message",
		"id", msg.ID,
		"thread_id", msg.ThreadID,
		"from", msg.Sender,
		"subject", msg.Subject,
		"attachments", len(atts),
	)
	return nil
}
