// Package llm is the text-generation collaborator: a Gemini-backed client
// with bounded output and upstream failures mapped to typed errors.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/skillxpress/skillxpress/internal/types"
)

const serviceName = "text generation"

// Client is the text-generation collaborator. An empty string with a nil
// error means the provider answered without usable text.
type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	Close() error
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client whose calls default to model.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

// Generate produces text for prompt. A blocked prompt or answer yields an
// empty string so the caller treats it as weak output. Other API failures are
// not retried here; they surface as UpstreamTimeoutError or
// UpstreamUnavailableError.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	model := c.client.GenerativeModel(opts.model(c.model))
	model.SetTemperature(opts.Temperature)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	return responseText(resp, err, opts.Timeout)
}

func responseText(resp *genai.GenerateContentResponse, err error, timeout time.Duration) (string, error) {
	var blocked *genai.BlockedError
	switch {
	case errors.As(err, &blocked):
		return "", nil
	case err != nil:
		return "", classifyError(err, timeout)
	}
	return extractTextFromResponse(resp), nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func classifyError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.UpstreamTimeoutError{Service: serviceName, Timeout: timeout, Cause: err}
	}
	return &types.UpstreamUnavailableError{Service: serviceName, Message: "generateContent failed", Cause: err}
}

// extractTextFromResponse joins the text parts of the first candidate.
func extractTextFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	return CleanFence(strings.Join(parts, ""))
}
