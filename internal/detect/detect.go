// Package detect is the HTTP client for the object/face detection
// capability. The service is opaque to the pipeline: images go up as
// multipart uploads, labeled boxes come back as JSON.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Box is a detection bounding box in pixel coordinates.
type Box struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// Width returns the box width in pixels.
func (b Box) Width() int { return b.XMax - b.XMin }

// Height returns the box height in pixels.
func (b Box) Height() int { return b.YMax - b.YMin }

// Detection is one detected object.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

type detectionResponse struct {
	Result []Detection `json:"result"`
}

// Client talks to the detection service.
type Client struct {
	BaseURL string
	APIKey  string
	// MinConfidence drops detections below this confidence before they
	// reach the pipeline.
	MinConfidence float64

	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a detection client.
func NewClient(baseURL, apiKey string, minConfidence float64, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		MinConfidence: minConfidence,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// DetectObjects detects objects in an image file.
// POST /api/v1/objects/detect
func (c *Client) DetectObjects(ctx context.Context, imagePath string) ([]Detection, error) {
	detections, err := c.post(ctx, "/api/v1/objects/detect", imagePath)
	if err != nil {
		return nil, err
	}

	kept := detections[:0]
	for _, d := range detections {
		if d.Confidence >= c.MinConfidence {
			kept = append(kept, d)
		}
	}
	c.logger.Debug("object detection", "path", imagePath, "detections", len(kept))
	return kept, nil
}

// CountFaces returns the number of face-like regions in an image file.
// POST /api/v1/faces/detect
func (c *Client) CountFaces(ctx context.Context, imagePath string) (int, error) {
	detections, err := c.post(ctx, "/api/v1/faces/detect", imagePath)
	if err != nil {
		return 0, err
	}
	return len(detections), nil
}

func (c *Client) post(ctx context.Context, endpoint, imagePath string) ([]Detection, error) {
	url := c.BaseURL + endpoint

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(imagePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.APIKey != "" {
		req.Header.Set("x-api-key", c.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detection API error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed detectionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return parsed.Result, nil
}

// Labels returns the distinct labels of a detection set, sorted.
func Labels(detections []Detection) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, d := range detections {
		if d.Label == "" || seen[d.Label] {
			continue
		}
		seen[d.Label] = true
		labels = append(labels, d.Label)
	}
	sort.Strings(labels)
	return labels
}
