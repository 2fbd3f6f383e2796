package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/domain"
)

type fakeAPI struct {
	status  int
	content string
	request map[string]any
	auth    string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &f.request)
	f.auth = r.Header.Get("Authorization")

	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "deepseek-chat",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": f.content},
		}},
	})
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	c, err := New(Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: 0,
		Profile:    Profile{Product: "Dental care", IdealClients: []string{"families", "seniors"}},
	})
	require.NoError(t, err)
	return c
}

func TestClassify(t *testing.T) {
	api := &fakeAPI{content: "```json\n{\"category\":\"good_fit\",\"interest\":\"high\",\"compatibility\":92,\"reasons\":\"budget ok\",\"pitch\":\"Let's book you in.\",\"tags\":[\"urgent\"]}\n```"}
	c := newTestClient(t, api)

	out, err := c.Classify(context.Background(), "Notes: wants implants")
	require.NoError(t, err)
	assert.Equal(t, "good_fit", out.Category)
	assert.Equal(t, domain.InterestHigh, out.Interest)
	require.NotNil(t, out.Score)
	assert.Equal(t, 92, *out.Score)
	assert.Equal(t, []string{"urgent"}, out.Tags)
	assert.Equal(t, "Let's book you in.", out.Pitch)

	assert.Equal(t, "Bearer test-key", api.auth)
	assert.Equal(t, "deepseek-chat", api.request["model"])
	assert.InDelta(t, 0.2, api.request["temperature"], 0.0001)
	msgs, ok := api.request["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Contains(t, user["content"], "Product: Dental care")
	assert.Contains(t, user["content"], "Ideal clients: families; seniors")
	assert.Contains(t, user["content"], "Notes: wants implants")
}

func TestClassify_NonJSON(t *testing.T) {
	c := newTestClient(t, &fakeAPI{content: "I think this lead is great"})
	_, err := c.Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrClassifierFailed)
}

func TestClassify_HTTPError(t *testing.T) {
	c := newTestClient(t, &fakeAPI{status: http.StatusBadRequest})
	_, err := c.Classify(context.Background(), "hello")
	assert.ErrorIs(t, err, domain.ErrClassifierFailed)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
