package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	defaultTimeout   = 60 * time.Second
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"
)

// Sentiment labels returned by Classify.
const (
	LabelPositive = "POSITIVE"
	LabelNegative = "NEGATIVE"
	LabelUnknown  = "UNKNOWN"
)

// Summarizer condenses text to roughly between minLen and maxLen words.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// Classifier labels text with a sentiment.
type Classifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

// Client talks to the Claude Messages API and implements Summarizer and
// Classifier.
type Client struct {
	apiKey    string
	apiURL    string
	model     string
	maxTokens int
	client    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIURL points the client at a different endpoint.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.client = h }
}

// NewClient creates a new model-service client.
func NewClient(apiKey, modelName string, maxTokens int, timeout time.Duration, opts ...ClientOption) *Client {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		apiKey:    apiKey,
		apiURL:    defaultAPIURL,
		model:     modelName,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summarize asks the model for a plain-prose summary of text.
func (c *Client) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	system := fmt.Sprintf(
		"You summarize email text. Reply with the summary only, in plain prose, "+
			"between %d and %d words. Do not add a preamble.",
		minLen, maxLen,
	)
	out, err := c.complete(ctx, system, text)
	if err != nil {
		return "", fmt.Errorf("summarizing: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Classify returns LabelPositive, LabelNegative or LabelUnknown for text.
func (c *Client) Classify(ctx context.Context, text string) (string, error) {
	const system = "Classify the sentiment of the email text. " +
		"Reply with exactly one word: POSITIVE or NEGATIVE."
	out, err := c.complete(ctx, system, text)
	if err != nil {
		return "", fmt.Errorf("classifying: %w", err)
	}
	return parseLabel(out), nil
}

func parseLabel(out string) string {
	fields := strings.Fields(strings.ToUpper(out))
	if len(fields) == 0 {
		return LabelUnknown
	}
	switch label := strings.Trim(fields[0], ".,:;!\"'"); label {
	case LabelPositive, LabelNegative:
		return label
	default:
		return LabelUnknown
	}
}

// complete makes a single request to the Claude Messages API and returns
// the concatenated text blocks of the reply.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: user}},
		}},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
