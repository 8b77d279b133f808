// Package ai wraps the external text model used to summarize threads and
// classify the tone of a message.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/appneural-ajith/ai-email-assistant/internal/retry"
	"github.com/appneural-ajith/ai-email-assistant/internal/store"
)

const (
	threadInputLimit = 1024
	intentInputLimit = 512

	summaryMaxLen = 130
	summaryMinLen = 30
)

// Fixed answers for empty input and classification results.
const (
	MsgNoThread         = "No emails found in thread."
	MsgNoSummaryContent = "No content available for summarization."
	MsgNoIntentContent  = "No content available for intent inference."
	MsgNotSpecified     = "Not specified."

	IntentPositive = "Likely a confirmation or positive response."
	IntentNegative = "Likely a rejection or negative response."
	IntentUnclear  = "Intent unclear."
)

// Analyzer produces thread summaries and sender intent from stored mail.
type Analyzer struct {
	store      store.Store
	summarizer Summarizer
	classifier Classifier
	policy     retry.Policy
	logger     *slog.Logger
}

// NewAnalyzer creates an Analyzer. Model calls go through policy.
func NewAnalyzer(st store.Store, s Summarizer, c Classifier, policy retry.Policy, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &Analyzer{store: st, summarizer: s, classifier: c, policy: policy, logger: logger}
}

// SummarizeThread summarizes the bodies of a thread in timestamp order.
func (a *Analyzer) SummarizeThread(ctx context.Context, threadID string) (string, error) {
	msgs, err := a.store.GetThread(ctx, threadID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return MsgNoThread, nil
	}

	bodies := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Body != "" {
			bodies = append(bodies, m.Body)
		}
	}
	if len(bodies) == 0 {
		return MsgNoSummaryContent, nil
	}

	text := truncateRunes(strings.Join(bodies, " "), threadInputLimit)

	var summary string
	err = a.policy.Do(ctx, "summarizing thread "+threadID, func(ctx context.Context) error {
		var err error
		summary, err = a.summarizer.Summarize(ctx, text, summaryMaxLen, summaryMinLen)
		return err
	})
	if err != nil {
		return "", err
	}
	return summary, nil
}

// InferIntent classifies the body of one message and describes the result.
// A missing message or an empty body yields MsgNoIntentContent.
func (a *Analyzer) InferIntent(ctx context.Context, id string) (string, error) {
	msg, err := a.store.GetMessage(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return MsgNoIntentContent, nil
	}
	if err != nil {
		return "", err
	}
	if msg.Body == "" {
		return MsgNoIntentContent, nil
	}

	text := truncateRunes(msg.Body, intentInputLimit)

	var label string
	err = a.policy.Do(ctx, "classifying message "+id, func(ctx context.Context) error {
		var err error
		label, err = a.classifier.Classify(ctx, text)
		return err
	})
	if err != nil {
		return "", err
	}

	a.logger.Debug("classified message", "id", id, "label", label)
	switch label {
	case LabelPositive:
		return IntentPositive, nil
	case LabelNegative:
		return IntentNegative, nil
	default:
		return IntentUnclear, nil
	}
}

// Report combines a thread summary and, when messageID is set, the intent
// of that message.
func (a *Analyzer) Report(ctx context.Context, threadID, messageID string) (string, error) {
	summary, err := a.SummarizeThread(ctx, threadID)
	if err != nil {
		return "", err
	}

	intent := MsgNotSpecified
	if messageID != "" {
		intent, err = a.InferIntent(ctx, messageID)
		if err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("Thread Summary (Thread ID: %s):\n%s\n\nIntent (Email ID: %s):\n%s",
		threadID, summary, messageID, intent), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
