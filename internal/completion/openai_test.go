package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/localnerve/botdesk/internal/config"
	"github.com/localnerve/botdesk/internal/models"
	"github.com/localnerve/botdesk/internal/services"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.Config{
		CompletionBaseURL: server.URL + "/v1",
		CompletionAPIKey:  "test-key",
		CompletionModel:   "test-model",
		CompletionTimeout: 2 * time.Second,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(w, http.StatusOK, openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Try the e4 opening."},
			}},
		})
	})

	history := []models.Turn{
		{Sender: models.SenderUser, Text: "Hi"},
		{Sender: models.SenderBot, Text: "Hello!"},
	}
	reply, err := client.Complete(context.Background(), "You coach chess.", history, "What should I play?")
	require.NoError(t, err)
	assert.Equal(t, "Try the e4 opening.", reply)

	assert.Equal(t, "test-model", got.Model)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "What should I play?", got.Messages[3].Content)
}

func TestComplete_ProviderLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error": map[string]interface{}{"message": "Message limit reached for today", "type": "limit"},
		})
	})

	_, err := client.Complete(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, services.ErrUpstreamLimit)
}

func TestComplete_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]interface{}{"message": "boom", "type": "server_error"},
		})
	})

	_, err := client.Complete(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, services.ErrUpstream)
	assert.NotErrorIs(t, err, services.ErrUpstreamLimit)
}

func TestComplete_NoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, openai.ChatCompletionResponse{})
	})

	_, err := client.Complete(context.Background(), "", nil, "hi")
	assert.ErrorIs(t, err, services.ErrUpstream)
}

func TestBuildMessages_NoSystemPrompt(t *testing.T) {
	messages := BuildMessages("  ", nil, "hello")
	require.Len(t, messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, messages[0].Role)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(&config.Config{})
	assert.Error(t, err)
}
