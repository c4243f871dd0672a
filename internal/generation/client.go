package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client calls the generation backend over HTTP JSON.
type Client struct {
	baseURL string
	client  *http.Client
	retry   RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithRetryPolicy overrides the topic-content retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// NewClient creates a generation client. The backend has no explicit
// timeout of its own, so the client imposes one and treats it like any
// other transport failure.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		retry:   ContentRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaceholderContent is the deterministic content written for a topic when
// every generation attempt failed, so a backfilled topic is never left
// empty.
func PlaceholderContent(topicTitle string) string {
	return fmt.Sprintf(
		"# %s\n\nWe couldn't generate this content right now. Reopen the module to try again.",
		topicTitle,
	)
}

// GenerateTopicContent generates content for a single topic, retrying
// transient failures (transport errors, 5xx, and 409 meaning a duplicate
// generation is already in flight). After the attempts are exhausted it
// returns placeholder content embedding the topic title instead of an
// error, so the caller always has something to store.
func (c *Client) GenerateTopicContent(ctx context.Context, req TopicContentRequest) (TopicContent, error) {
	var content TopicContent
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/api/generate-module-content", req, &content)
	})
	if err != nil {
		slog.Warn("topic content generation exhausted retries, using placeholder",
			"course_id", req.CourseID,
			"module_id", req.ModuleID,
			"topic", req.ModuleTitle,
			"error", err,
		)
		return TopicContent{
			Content:     PlaceholderContent(req.ModuleTitle),
			Placeholder: true,
		}, nil
	}
	if content.Content == "" && content.VideoID == "" {
		return TopicContent{
			Content:     PlaceholderContent(req.ModuleTitle),
			Placeholder: true,
		}, nil
	}
	return content, nil
}

// GenerateModuleQuiz generates a quiz over the given topics. Failures are
// surfaced to the caller without retry.
func (c *Client) GenerateModuleQuiz(ctx context.Context, req QuizRequest) (GeneratedQuiz, error) {
	body, err := c.postRaw(ctx, "/api/generate-module-quiz", req)
	if err != nil {
		return GeneratedQuiz{}, err
	}
	if err := validateResponse(quizSchema, body); err != nil {
		return GeneratedQuiz{}, fmt.Errorf("quiz response: %w", err)
	}

	var quiz GeneratedQuiz
	if err := json.Unmarshal(body, &quiz); err != nil {
		return GeneratedQuiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

// EvaluateQuiz scores a submitted quiz. Failures are surfaced without retry.
func (c *Client) EvaluateQuiz(ctx context.Context, quizID string, answers map[string]string) (Evaluation, error) {
	req := struct {
		QuizID  string            `json:"quizId"`
		Answers map[string]string `json:"answers"`
	}{quizID, answers}

	body, err := c.postRaw(ctx, "/api/evaluate-module-quiz", req)
	if err != nil {
		return Evaluation{}, err
	}
	if err := validateResponse(evaluationSchema, body); err != nil {
		return Evaluation{}, fmt.Errorf("evaluation response: %w", err)
	}

	var wire struct {
		Score            float64 `json:"score"`
		Feedback         string  `json:"feedback"`
		CompletionStatus string  `json:"completionStatus"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Evaluation{}, fmt.Errorf("unmarshal evaluation: %w", err)
	}
	return Evaluation{
		Score:            int(math.Round(wire.Score)),
		Feedback:         wire.Feedback,
		CompletionStatus: wire.CompletionStatus,
	}, nil
}

// GenerateAssessment requests diagnostic assessment questions.
func (c *Client) GenerateAssessment(ctx context.Context, req AssessmentRequest) (Assessment, error) {
	var assessment Assessment
	if err := c.post(ctx, "/api/generate-assessment", req, &assessment); err != nil {
		return Assessment{}, err
	}
	return assessment, nil
}

// EvaluateAssessment scores a diagnostic assessment submission.
func (c *Client) EvaluateAssessment(ctx context.Context, sessionID string, answers map[string]string) (AssessmentResult, error) {
	req := struct {
		SessionID string            `json:"sessionId"`
		Answers   map[string]string `json:"answers"`
	}{sessionID, answers}

	var result AssessmentResult
	if err := c.post(ctx, "/api/evaluate-assessment", req, &result); err != nil {
		return AssessmentResult{}, err
	}
	return result, nil
}

// Health probes the backend's liveness endpoint. Callers treat failure as
// a degraded-mode warning, not a hard block.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, req, out any) error {
	body, err := c.postRaw(ctx, path, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) postRaw(ctx context.Context, path string, req any) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientError{Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode >= 500:
		return nil, &TransientError{Status: resp.StatusCode}
	default:
		return nil, fmt.Errorf("generation backend error (status %d): %s", resp.StatusCode, string(body))
	}
}
