package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.resend.com"

// Message is one outbound email addressed to every recipient at once.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendClient talks to a Resend-compatible transactional email API. The
// request timeout bounds a hung transport so a single send can never stall a
// scan indefinitely.
type ResendClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewResendClient creates a client for the hosted API.
func NewResendClient(apiKey string) *ResendClient {
	return NewResendClientWithBaseURL(apiKey, defaultBaseURL)
}

// NewResendClientWithBaseURL creates a client against a custom endpoint,
// mainly for tests and self-hosted deployments.
func NewResendClientWithBaseURL(apiKey, baseURL string) *ResendClient {
	return &ResendClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendEmail delivers one message. A non-2xx response is reported as an error
// carrying the provider's message.
func (c *ResendClient) SendEmail(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(detail, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("email provider rejected send: %s (status %d)", apiErr.Message, resp.StatusCode)
		}
		return fmt.Errorf("email provider rejected send: status %d", resp.StatusCode)
	}

	return nil
}
