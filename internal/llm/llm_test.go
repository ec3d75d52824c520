package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halverson/homewalk/internal/llm"
)

func completionServer(t *testing.T, reply string, capture *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		if capture != nil {
			*capture = payload
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": reply}},
			},
		})
	}))
}

func TestComplete(t *testing.T) {
	var payload map[string]any
	server := completionServer(t, "it looks safe", &payload)
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "gpt-4o-mini", "", nil)
	text, err := client.Complete(context.Background(), "you are a safety reviewer", "assess this kitchen")

	require.NoError(t, err)
	assert.Equal(t, "it looks safe", text)
	assert.Equal(t, "gpt-4o-mini", payload["model"])

	messages, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	system := messages[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "you are a safety reviewer", system["content"])
}

func TestDescribeImage_SendsDataURLToVisionModel(t *testing.T) {
	var payload map[string]any
	server := completionServer(t, "a bright kitchen", &payload)
	defer server.Close()

	imagePath := filepath.Join(t.TempDir(), "frame.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg bytes"), 0o644))

	client := llm.NewClient(server.URL, "test-key", "gpt-4o-mini", "gpt-4o", nil)
	text, err := client.DescribeImage(context.Background(), imagePath, "describe the room")

	require.NoError(t, err)
	assert.Equal(t, "a bright kitchen", text)
	assert.Equal(t, "gpt-4o", payload["model"], "image calls use the vision model")

	messages := payload["messages"].([]any)
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)

	imagePart := parts[0].(map[string]any)
	assert.Equal(t, "image_url", imagePart["type"])
	url := imagePart["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), "image rides along as a data URL")

	textPart := parts[1].(map[string]any)
	assert.Equal(t, "describe the room", textPart["text"])
}

func TestDescribeImage_MissingFile(t *testing.T) {
	client := llm.NewClient("http://localhost:1", "test-key", "gpt-4o-mini", "", nil)
	_, err := client.DescribeImage(context.Background(), "/nonexistent.jpg", "describe")
	require.Error(t, err)
}

func TestComplete_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "gpt-4o-mini", "", nil)
	_, err := client.Complete(context.Background(), "system", "user")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "gpt-4o-mini", "", nil)
	_, err := client.Complete(context.Background(), "system", "user")

	require.Error(t, err, "a response without choices is an error, not empty text")
}
