package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mockview/mockview/internal/ai"
	"github.com/mockview/mockview/internal/metrics"
	"github.com/mockview/mockview/internal/util"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-2.5-flash-lite"

	// Temperature for structured scoring calls. Lower reduces hallucinated
	// transcriptions for skipped questions.
	scoringTemperature = 0.3

	audioMIMEType = "audio/wav"
)

// Client wraps the Google GenAI client to provide prompt-based text
// generation, structured JSON generation with audio attachments, and
// temporary file management.
type Client struct {
	client     *genai.Client
	modelName  string
	maxRetries int
	counters   *metrics.Metrics
	logger     *zap.Logger
}

// New creates a Client configured for the Gemini API backend. The counters
// may be nil when call accounting is not needed.
func New(ctx context.Context, apiKey, model string, maxRetries int, counters *metrics.Metrics, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries < 1 {
		maxRetries = 1
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:     client,
		modelName:  model,
		maxRetries: maxRetries,
		counters:   counters,
		logger:     logger.With(zap.String("ai_model", model)),
	}, nil
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	return c.generate(ctx, genai.Text(prompt), nil)
}

// GenerateStructured sends the prompt plus media attachments to Gemini and
// requests a JSON-only response. Code fences are stripped defensively since
// the model occasionally wraps its output despite the response MIME type.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, attachments []ai.FileRef) (json.RawMessage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt must not be empty")
	}

	parts := []*genai.Part{{Text: prompt}}
	for _, attachment := range attachments {
		parts = append(parts, genai.NewPartFromURI(attachment.URI, attachment.MIMEType))
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](scoringTemperature),
	}

	raw, err := c.generate(ctx, contents, cfg)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(extractJSON(raw)), nil
}

// UploadFile pushes a local media file to the Gemini file store and returns
// a reference usable as a generation attachment.
func (c *Client) UploadFile(ctx context.Context, path string) (ai.FileRef, error) {
	if c == nil || c.client == nil {
		return ai.FileRef{}, errors.New("gemini client is not initialized")
	}

	file, err := c.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType: audioMIMEType,
	})
	if err != nil {
		return ai.FileRef{}, fmt.Errorf("upload file %q: %w", path, err)
	}

	c.logger.Debug("uploaded file to gemini",
		zap.String("path", path),
		zap.String("file_name", file.Name),
	)

	return ai.FileRef{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
	}, nil
}

// DeleteFile removes a previously uploaded file from the Gemini file store.
func (c *Client) DeleteFile(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return errors.New("gemini client is not initialized")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("file name is required")
	}

	if _, err := c.client.Files.Delete(ctx, name, nil); err != nil {
		return fmt.Errorf("delete file %q: %w", name, err)
	}

	return nil
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if c == nil || c.client == nil {
		return "", errors.New("gemini client is not initialized")
	}

	c.counters.ReasoningCall()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, config)
		if err == nil {
			return collectText(resp)
		}

		lastErr = err
		if !isRetryable(err) || attempt == c.maxRetries {
			break
		}

		c.logger.Debug("retrying gemini request",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if werr := util.WaitFor(ctx, time.Duration(attempt)*time.Second); werr != nil {
			return "", werr
		}
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return true
	}

	return false
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
