// Package inference classifies patches through an external HTTP inference service.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"freshscan/internal/model"
)

type prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type classifyResponse struct {
	prediction
	Second *prediction `json:"second_prediction,omitempty"`
}

// Client is a pipeline classifier backed by a remote service that accepts a
// multipart "file" upload and answers {"label","confidence"}.
type Client struct {
	url    *url.URL
	client *http.Client
}

// NewClient creates a client for the classify endpoint at rawURL.
func NewClient(rawURL string, client *http.Client) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url: %q", rawURL)
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &Client{url: u, client: client}, nil
}

// Classify sends patch as PNG and decodes the service's label and confidence.
func (c *Client) Classify(ctx context.Context, patch image.Image) (model.Classification, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "patch.png")
	if err != nil {
		return model.Classification{}, fmt.Errorf("create form: %w", err)
	}

	if err := png.Encode(part, patch); err != nil {
		return model.Classification{}, fmt.Errorf("encode patch: %w", err)
	}

	if err = writer.Close(); err != nil {
		return model.Classification{}, fmt.Errorf("close multipart writer: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url.String(), body)
	if err != nil {
		return model.Classification{}, fmt.Errorf("create request: %w", err)
	}

	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := c.client.Do(request)
	if err != nil {
		return model.Classification{}, fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return model.Classification{}, fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}

	var resp classifyResponse
	if err = json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return model.Classification{}, fmt.Errorf("decode response body: %w", err)
	}

	if resp.Label == "" {
		return model.Classification{}, fmt.Errorf("response has no label")
	}

	cls := model.Classification{Label: resp.Label, Confidence: resp.Confidence}
	if resp.Second != nil && resp.Second.Label != "" {
		cls.RunnerUp = &model.Classification{Label: resp.Second.Label, Confidence: resp.Second.Confidence}
	}
	return cls, nil
}

// CheckHealth calls <url>/health.
func (c *Client) CheckHealth(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url.JoinPath("/health").String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	response, err := c.client.Do(request)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", response.StatusCode)
	}
	return nil
}
