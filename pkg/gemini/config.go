package gemini

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the public Generative Language API endpoint. The SDK
// appends the API version.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

// Config represents the configuration for the Gemini client
type Config struct {
	// APIKey is sent in the x-goog-api-key header
	APIKey string

	// Model is the model id, e.g. gemini-2.5-flash
	Model string

	// BaseURL is the API root without the version segment
	BaseURL string

	// Timeout bounds a whole request including a streamed body
	Timeout time.Duration

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Model == "" {
		return ErrInvalidRequest
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return nil
}
