package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/uroflux/intake-api/internal/config"
	"github.com/uroflux/intake-api/pkg/circuitbreaker"
)

// Gateway sends outbound messages and resolves inbound media over the Meta
// Graph API. Every call is a single synchronous request; a non-2xx response
// surfaces as *UpstreamError with no automatic retry.
type Gateway interface {
	SendText(ctx context.Context, to, body string) error
	SendTemplate(ctx context.Context, to, templateName, languageTag string, components []map[string]interface{}) error
	SendDocument(ctx context.Context, to, documentURL, filename, caption string) error
	ResolveMediaURL(ctx context.Context, mediaID string) (string, error)
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// UpstreamError carries the upstream status and body of a failed API call.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("whatsapp api returned %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	baseURL    string
	token      string
	phoneID    string
	logger     zerolog.Logger
}

func NewClient(cfg config.WhatsAppConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "whatsapp-api",
			MaxRequests: 10,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
		}),
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		token:   cfg.Token,
		phoneID: cfg.PhoneID,
		logger:  logger.With().Str("component", "whatsapp").Logger(),
	}
}

func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	return c.sendMessage(ctx, payload)
}

func (c *Client) SendTemplate(ctx context.Context, to, templateName, languageTag string, components []map[string]interface{}) error {
	template := map[string]interface{}{
		"name":     templateName,
		"language": map[string]string{"code": languageTag},
	}
	if len(components) > 0 {
		template["components"] = components
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template":          template,
	}
	return c.sendMessage(ctx, payload)
}

func (c *Client) SendDocument(ctx context.Context, to, documentURL, filename, caption string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "document",
		"document": map[string]string{
			"link":     documentURL,
			"filename": filename,
			"caption":  caption,
		},
	}
	return c.sendMessage(ctx, payload)
}

func (c *Client) sendMessage(ctx context.Context, payload map[string]interface{}) error {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	_, err := c.doJSON(ctx, http.MethodPost, url, payload)
	return err
}

func (c *Client) ResolveMediaURL(ctx context.Context, mediaID string) (string, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, mediaID)
	body, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode media response: %w", err)
	}
	if resp.URL == "" {
		return "", fmt.Errorf("media %s has no download url", mediaID)
	}
	return resp.URL, nil
}

func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	return c.doRaw(ctx, http.MethodGet, mediaURL, nil)
}

func (c *Client) doJSON(ctx context.Context, method, url string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	return c.doRaw(ctx, method, url, body)
}

func (c *Client) doRaw(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	var respBody []byte

	err := c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("upstream error")
			return &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
		}

		respBody = data
		return nil
	})
	return respBody, err
}
