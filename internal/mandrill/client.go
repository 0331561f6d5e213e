// Package mandrill is a minimal client for the Mandrill transactional API.
//
// Mandrill authenticates with a "key" field inside every JSON body rather
// than a header, and reports failures as HTTP 500 with a JSON error
// envelope. Only throttling and gateway statuses are retried; a 500 is an
// answer, not an outage.
package mandrill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ignite/mandrill-gateway/internal/pkg/httpretry"
	"github.com/ignite/mandrill-gateway/internal/pkg/logger"
)

// Client is a Mandrill API client bound to one API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Mandrill client. maxRetries of zero or less disables retries.
// Only throttling and gateway statuses are retried. Transport errors and
// timeouts come straight back, since Mandrill may already be sending a
// message whose response was lost.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: timeout,
		}, maxRetries, httpretry.WithoutNetworkRetry()),
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// doRequest POSTs a JSON body to path and returns the raw response body.
func (c *Client) doRequest(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// decodeError turns a non-2xx response into an *APIError. Bodies that are not
// Mandrill envelopes (proxies, load balancers) still produce an APIError with
// the raw body as the message.
func decodeError(status int, body []byte) error {
	apiErr := &APIError{HTTPStatus: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Status != "error" {
		apiErr.Status = "error"
		apiErr.Name = http.StatusText(status)
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// SendTemplate calls messages/send-template. The untouched response body is
// returned; on success Mandrill answers with a JSON array holding one
// result per recipient, but classifying it is the caller's job.
func (c *Client) SendTemplate(ctx context.Context, templateName string, content []TemplateContent, msg Message) (json.RawMessage, error) {
	if content == nil {
		content = []TemplateContent{}
	}

	start := time.Now()
	body, err := c.doRequest(ctx, "/messages/send-template.json", sendTemplateRequest{
		Key:             c.apiKey,
		TemplateName:    templateName,
		TemplateContent: content,
		Message:         msg,
	})
	if err != nil {
		return nil, fmt.Errorf("sending template %q: %w", templateName, err)
	}

	logger.Debug("mandrill: send-template completed",
		"template", templateName,
		"recipients", len(msg.To),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return json.RawMessage(body), nil
}

// Ping validates the API key via users/ping.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.doRequest(ctx, "/users/ping.json", keyOnlyRequest{Key: c.apiKey})
	if err != nil {
		return fmt.Errorf("pinging mandrill: %w", err)
	}

	var pong string
	if err := json.Unmarshal(body, &pong); err != nil {
		return fmt.Errorf("parsing ping response: %w", err)
	}
	if pong != "PONG!" {
		return fmt.Errorf("unexpected ping response %q", pong)
	}
	return nil
}
