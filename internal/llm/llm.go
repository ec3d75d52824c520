// Package llm is the HTTP client for the language/vision completion
// capability behind the analysis stages: image description, per-stage
// analysis, report writing and stage routing all sit on it. The wire format
// is the OpenAI-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Client talks to a chat completions endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	// Model is used for text completions.
	Model string
	// VisionModel is used for image descriptions; empty falls back to
	// Model.
	VisionModel string

	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a completion client.
func NewClient(baseURL, apiKey, model, visionModel string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		Model:       model,
		VisionModel: visionModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// Complete sends a system + user message pair and returns the model text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	return c.send(ctx, req)
}

// DescribeImage sends an image with instructions to the vision model and
// returns the description text.
func (c *Client) DescribeImage(ctx context.Context, imagePath, instructions string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image file: %w", err)
	}

	model := c.VisionModel
	if model == "" {
		model = c.Model
	}
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData)
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				{Type: "text", Text: instructions},
			}},
		},
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, payload chatRequest) (string, error) {
	url := c.BaseURL + "/v1/chat/completions"

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	c.logger.Debug("completion request", "model", payload.Model)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
