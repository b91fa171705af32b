package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Client represents a Gemini generateContent API client
type Client struct {
	config Config
	genai  *genai.Client
}

// NewClient creates a new Gemini client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		config: config,
		genai:  gc,
	}, nil
}

// Model returns the configured model id
func (c *Client) Model() string {
	return c.config.Model
}

// GenerateContent sends one request and returns the complete answer.
func (c *Client) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	contents, cfg := req.toGenai()

	resp, err := c.genai.Models.GenerateContent(ctx, c.config.Model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to make generateContent request: %w", c.translateError(ctx, err))
	}

	out := fromGenai(resp)
	if out.blocked() {
		return nil, ErrBlocked
	}
	if out.Text() == "" {
		return nil, ErrEmptyResponse
	}
	return out, nil
}

// StreamGenerateContent streams the answer as server-sent events, calling
// onChunk with each text delta in order. It returns the full text. A non-nil
// error from onChunk stops the stream and is returned as is.
func (c *Client) StreamGenerateContent(ctx context.Context, req GenerateRequest, onChunk func(string) error) (string, error) {
	contents, cfg := req.toGenai()

	var full strings.Builder
	for resp, err := range c.genai.Models.GenerateContentStream(ctx, c.config.Model, contents, cfg) {
		if err != nil {
			return full.String(), fmt.Errorf("failed to make streamGenerateContent request: %w", c.translateError(ctx, err))
		}

		chunk := fromGenai(resp)
		if chunk.blocked() {
			return full.String(), ErrBlocked
		}

		text := chunk.Text()
		if text == "" {
			continue
		}
		full.WriteString(text)
		if onChunk != nil {
			if err := onChunk(text); err != nil {
				return full.String(), err
			}
		}
	}
	if full.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return full.String(), nil
}

// translateError turns SDK failures into *APIError or the package sentinels.
func (c *Client) translateError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return newAPIError(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return newAPIError(*apiErrPtr)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrNetworkError, err)
}

func newAPIError(e genai.APIError) *APIError {
	return &APIError{
		StatusCode: e.Code,
		Status:     e.Status,
		Message:    strings.TrimSpace(e.Message),
	}
}
