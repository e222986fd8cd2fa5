// Package classify wraps the hosted text/vision inference service behind a
// single request/response capability. The pipeline treats every call here as
// unreliable: callers must have a deterministic fallback for any error.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/siddhi-labs/citypulse/internal/event"
)

// TaskLabel selects the inference task. The vocabulary is part of the wire
// contract with the classification service; do not rename values.
type TaskLabel string

const (
	TaskSimilarityCheck   TaskLabel = "SIMILARITY_CHECK"
	TaskContentAnalysis   TaskLabel = "CONTENT_ANALYSIS"
	TaskSentimentAnalysis TaskLabel = "SENTIMENT_ANALYSIS"
	TaskLocationInference TaskLabel = "LOCATION_INFERENCE"
	TaskSeverityAssess    TaskLabel = "SEVERITY_ASSESSMENT"
	TaskMediaAnalysis     TaskLabel = "MEDIA_ANALYSIS"
	TaskInsightGeneration TaskLabel = "INSIGHT_GENERATION"
)

const (
	DefaultEndpoint       = "http://127.0.0.1:8741"
	DefaultRequestTimeout = 30 * time.Second
)

// Result is a structured classification response. Confidence is nil when the
// service omitted it; treat that as low confidence, never as 1.0.
type Result struct {
	Fields     map[string]any
	Confidence *float64
}

// ConfidenceOrZero returns the confidence score, 0 when absent.
func (r Result) ConfidenceOrZero() float64 {
	if r.Confidence == nil {
		return 0
	}
	return *r.Confidence
}

// StringField extracts a non-empty string field from the result.
func (r Result) StringField(key string) (string, bool) {
	raw, ok := r.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// StringsField extracts a list of strings, tolerating []any payloads.
func (r Result) StringsField(key string) []string {
	raw, ok := r.Fields[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

// Gateway is the consumed inference capability.
type Gateway interface {
	Classify(ctx context.Context, text string, task TaskLabel) (Result, error)
	Summarize(ctx context.Context, events []event.RawEvent, contextText string) (string, error)
}

// HTTPGateway talks to the classification service over JSON/HTTP.
type HTTPGateway struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

type Option func(*HTTPGateway)

func WithHTTPClient(client *http.Client) Option {
	return func(g *HTTPGateway) {
		if client != nil {
			g.client = client
		}
	}
}

func NewHTTPGateway(endpoint string, timeout time.Duration, opts ...Option) *HTTPGateway {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	g := &HTTPGateway{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		timeout:  timeout,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type classifyRequest struct {
	Text string `json:"text"`
	Task string `json:"task"`
}

type classifyResponse struct {
	Fields     map[string]any `json:"fields"`
	Confidence *float64       `json:"confidence"`
	Error      *string        `json:"error,omitempty"`
}

func (g *HTTPGateway) Classify(ctx context.Context, text string, task TaskLabel) (Result, error) {
	if g == nil {
		return Result{}, fmt.Errorf("classify gateway is not initialized")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("classify text is empty")
	}

	var parsed classifyResponse
	if err := g.post(ctx, "/classify", classifyRequest{Text: text, Task: string(task)}, &parsed); err != nil {
		return Result{}, err
	}
	if parsed.Error != nil && strings.TrimSpace(*parsed.Error) != "" {
		return Result{}, fmt.Errorf("classification service error for task %s: %s", task, *parsed.Error)
	}
	if parsed.Fields == nil {
		return Result{}, fmt.Errorf("classification response for task %s missing fields", task)
	}
	return Result{Fields: parsed.Fields, Confidence: parsed.Confidence}, nil
}

type summarizeEvent struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Area        string `json:"area,omitempty"`
}

type summarizeRequest struct {
	Events  []summarizeEvent `json:"events"`
	Context string           `json:"context"`
}

type summarizeResponse struct {
	Text  string  `json:"text"`
	Error *string `json:"error,omitempty"`
}

func (g *HTTPGateway) Summarize(ctx context.Context, events []event.RawEvent, contextText string) (string, error) {
	if g == nil {
		return "", fmt.Errorf("classify gateway is not initialized")
	}
	if len(events) == 0 {
		return "", fmt.Errorf("summarize called with no events")
	}

	payload := summarizeRequest{
		Events:  make([]summarizeEvent, 0, len(events)),
		Context: contextText,
	}
	for _, e := range events {
		item := summarizeEvent{
			Title:       e.Title,
			Description: e.Description,
		}
		if e.Location != nil {
			item.Area = e.Location.Area
		}
		payload.Events = append(payload.Events, item)
	}

	var parsed summarizeResponse
	if err := g.post(ctx, "/summarize", payload, &parsed); err != nil {
		return "", err
	}
	if parsed.Error != nil && strings.TrimSpace(*parsed.Error) != "" {
		return "", fmt.Errorf("summarization service error: %s", *parsed.Error)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("summarization response missing text")
	}
	return parsed.Text, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	target, err := url.JoinPath(g.endpoint, path)
	if err != nil {
		return fmt.Errorf("build request url: %w", err)
	}

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("classification service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
