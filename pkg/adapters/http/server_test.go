package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
	"github.com/aretw0/leadflow/pkg/observability"
)

const testFlow = `
version: "1"
nodes:
  - id: welcome
    text: Are you looking for more customers this quarter?
    choices:
      - {title: "Yes", payload: yes, next: name}
      - {title: "No", payload: no, next: bye}
  - id: name
    text: What is your name?
    openInput: true
    action: store_answer
    next: bye
  - id: bye
    text: Thanks, talk soon.
    terminal: true
`

const testToken = "s3cret"

func newTestBot(t *testing.T, opts ...leadflow.Option) *leadflow.Bot {
	t.Helper()
	def, err := flow.Parse([]byte(testFlow))
	require.NoError(t, err)
	bot, err := leadflow.New(append([]leadflow.Option{leadflow.WithFlow(def)}, opts...)...)
	require.NoError(t, err)
	return bot
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func admin(agent string) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + testToken}
	if agent != "" {
		h[AgentHeader] = agent
	}
	return h
}

func TestPostChat(t *testing.T) {
	h := NewHandler(newTestBot(t))

	w := do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var reply leadflow.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "Are you looking for more customers this quarter?", reply.Reply)
	assert.Len(t, reply.UI.Choices, 2)
	assert.Equal(t, domain.ModeGuided, reply.ChatMode)

	w = do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-1", Message: "Yes"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "What is your name?", reply.Reply)
	assert.True(t, reply.UI.OpenInput)
}

func TestPostChat_Validation(t *testing.T) {
	h := NewHandler(newTestBot(t, leadflow.WithMaxInputSize(16)))

	w := do(t, h, "POST", "/chat", ChatRequest{SessionID: "ab"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-2", Message: strings.Repeat("x", 64)}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostChatStream(t *testing.T) {
	bot := newTestBot(t)
	h := NewHandler(bot)

	w := do(t, h, "POST", "/chat/stream", ChatRequest{SessionID: "visitor-3"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Are you looking for more customers this quarter?", w.Body.String())

	msgs, err := bot.Messages(context.Background(), "visitor-3")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)

	_, err = bot.Claim(context.Background(), "visitor-3", "agent-a")
	require.NoError(t, err)
	w = do(t, h, "POST", "/chat/stream", ChatRequest{SessionID: "visitor-3", Message: "hello?"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HumanNotice, w.Body.String())
	assert.Equal(t, "true", w.Header().Get("X-Human-Mode"))
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks("", 24))
	assert.Equal(t, []string{"abc"}, chunks("abc", 24))

	text := strings.Repeat("a", 50)
	got := chunks(text, 24)
	assert.Equal(t, []string{text[:24], text[24:48], text[48:]}, got)

	// "č" is two bytes; a chunk boundary never splits it.
	got = chunks("aaač", 4)
	assert.Equal(t, []string{"aaa", "č"}, got)
	assert.Equal(t, "aaač", strings.Join(got, ""))
}

func TestPostSurvey(t *testing.T) {
	h := NewHandler(newTestBot(t))

	w := do(t, h, "POST", "/chat/survey", SurveyRequest{
		SessionID: "visitor-4",
		Industry:  "Dental clinic",
		Budget:    leadflow.BudgetOver10k,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var reply leadflow.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, leadflow.SurveyQualifiedReply, reply.Reply)

	w = do(t, h, "POST", "/chat/survey", SurveyRequest{SessionID: "visitor-4"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMessages(t *testing.T) {
	h := NewHandler(newTestBot(t))
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-5"}, nil)
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-5", Message: "Yes"}, nil)

	w := do(t, h, "GET", "/chat/visitor-5/messages", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msgs []domain.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msgs))
	require.Len(t, msgs, 3)

	w = do(t, h, "GET", "/chat/visitor-5/messages?since="+itoa(msgs[0].Seq), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var later []domain.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &later))
	assert.Len(t, later, 2)

	w = do(t, h, "GET", "/chat/visitor-5/messages?since=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestAdminAuth(t *testing.T) {
	h := NewHandler(newTestBot(t), WithAdminToken(testToken))

	w := do(t, h, "GET", "/leads", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, "GET", "/leads", nil, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, "GET", "/leads", nil, admin(""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	// Chat routes stay public.
	w = do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-6"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAgentTakeover(t *testing.T) {
	bot := newTestBot(t)
	h := NewHandler(bot, WithAdminToken(testToken))
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-7"}, nil)

	w := do(t, h, "POST", "/agent/claim", AgentRequest{SessionID: "visitor-7"}, admin(""))
	assert.Equal(t, http.StatusBadRequest, w.Code, "agent header is required")

	w = do(t, h, "POST", "/agent/claim", AgentRequest{SessionID: "visitor-7"}, admin("agent-a"))
	require.Equal(t, http.StatusOK, w.Code)
	var claim domain.TakeoverClaim
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &claim))
	assert.Equal(t, "agent-a", claim.AgentID)

	w = do(t, h, "POST", "/agent/claim", AgentRequest{SessionID: "visitor-7"}, admin("agent-b"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-7", Message: "Yes"}, nil)
	var reply leadflow.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.True(t, reply.HumanMode)
	assert.Empty(t, reply.Reply)

	w = do(t, h, "POST", "/agent/message", AgentRequest{SessionID: "visitor-7", Text: "Hi, Bob here."}, admin("agent-a"))
	require.Equal(t, http.StatusCreated, w.Code)
	var msg domain.ChatMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, domain.RoleStaff, msg.Role)

	w = do(t, h, "POST", "/agent/release", AgentRequest{SessionID: "visitor-7"}, admin("agent-a"))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-7", Message: "Yes"}, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.False(t, reply.HumanMode)
	assert.Equal(t, "What is your name?", reply.Reply)
}

func TestLeads(t *testing.T) {
	h := NewHandler(newTestBot(t))
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-8"}, nil)
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-8", Message: "Yes"}, nil)
	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-8", Message: "Ana, price is a concern"}, nil)

	w := do(t, h, "GET", "/leads/visitor-8", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail LeadDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "visitor-8", detail.SessionID)
	assert.Equal(t, "Ana, price is a concern", detail.Notes)
	assert.Len(t, detail.Messages, 5)

	w = do(t, h, "GET", "/kpis", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"visitors":1,"interactions":1,"contacts":0,"activeLeads":0}`, w.Body.String())

	w = do(t, h, "GET", "/funnel", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"awareness":100,"interest":0,"meeting":0,"close":0}`, w.Body.String())

	w = do(t, h, "GET", "/objections", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"objections":["Price too high (1)"]}`, w.Body.String())

	w = do(t, h, "DELETE", "/leads/visitor-8", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "GET", "/leads/visitor-8", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "DELETE", "/leads/visitor-8", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthInfoMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	bot := newTestBot(t, leadflow.WithMetrics(metrics))
	h := NewHandler(bot, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	w := do(t, h, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), strings.TrimSpace(leadflow.Version))

	do(t, h, "POST", "/chat", ChatRequest{SessionID: "visitor-9"}, nil)
	w = do(t, h, "GET", "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leadflow_chat_turns_total")
}

func TestCORS(t *testing.T) {
	h := NewHandler(newTestBot(t))
	w := do(t, h, "OPTIONS", "/chat", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), AgentHeader)
}

func TestAgentStream(t *testing.T) {
	bot := newTestBot(t)
	srv := httptest.NewServer(NewHandler(bot, WithKeepAlive(time.Hour)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/agent/stream?sid=visitor-10", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return name, data
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	name, data := readEvent()
	assert.Equal(t, "ping", name)
	assert.Equal(t, "connected", data)

	_, err = bot.Chat(context.Background(), "visitor-10", "")
	require.NoError(t, err)

	name, data = readEvent()
	assert.Equal(t, "message.created", name)
	assert.Contains(t, data, `"sid":"visitor-10"`)
}

func TestAgentStream_InvalidSession(t *testing.T) {
	h := NewHandler(newTestBot(t))
	w := do(t, h, "GET", "/agent/stream?sid=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
