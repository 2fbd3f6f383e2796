package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/internal/config"
	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
)

const flowV1 = `
version: "1"
nodes:
  - id: welcome
    text: Hello from v1
    choices:
      - {title: "Go", payload: go, next: name}
  - id: name
    text: Your name?
    openInput: true
    action: store_answer
    next: bye
  - id: bye
    text: Bye!
    terminal: true
`

func writeFlow(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.FlowPath = writeFlow(t, flowV1)
	cfg.EnforceContactFirst = false
	return cfg
}

func TestLoadFlow(t *testing.T) {
	cfg := config.Default()
	def, err := LoadFlow(cfg)
	require.NoError(t, err)
	start, ok := def.Node(def.Start)
	require.True(t, ok)
	assert.Equal(t, domain.InputDualContact, start.InputType, "contact capture comes first by default")

	cfg.EnforceContactFirst = false
	def, err = LoadFlow(cfg)
	require.NoError(t, err)
	assert.Equal(t, "welcome", def.Start)

	cfg.FlowPath = filepath.Join(t.TempDir(), "missing.json")
	_, err = LoadFlow(cfg)
	assert.Error(t, err)
}

func TestBuildApp_Memory(t *testing.T) {
	ctx := context.Background()
	app, err := BuildApp(ctx, testConfig(t), logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	reply, err := app.Bot.Chat(ctx, "visitor-1", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello from v1", reply.Reply)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "leadflow_chat_turns_total")
}

func TestBuildApp_Backends(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite3", DSN: filepath.Join(dir, "leads.db")}
	cfg.Transcript.Path = filepath.Join(dir, "transcript.jsonl")
	cfg.Transcript.Redact = []string{`[0-9]{6,}`}
	cfg.Sessions.EncryptionKey = hex.EncodeToString(bytes.Repeat([]byte{7}, 32))

	app, err := BuildApp(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Bot.Chat(ctx, "visitor-2", "")
	require.NoError(t, err)
	_, err = app.Bot.Chat(ctx, "visitor-2", "Go")
	require.NoError(t, err)
	_, err = app.Bot.Chat(ctx, "visitor-2", "Ana 0401234567")
	require.NoError(t, err)

	lead, err := app.Bot.Leads().Get(ctx, "visitor-2")
	require.NoError(t, err)
	assert.Equal(t, "Ana 0401234567", lead.Notes)

	msgs, err := app.Bot.Messages(ctx, "visitor-2")
	require.NoError(t, err)
	var texts []string
	for _, m := range msgs {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, "Ana ***")

	var sessionKeys int
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, cfg.Redis.Prefix) {
			sessionKeys++
		}
		assert.NotContains(t, k, "0401234567")
	}
	assert.Positive(t, sessionKeys)

	_, err = app.Bot.Claim(ctx, "visitor-2", "agent-a")
	require.NoError(t, err)
	_, active, err := app.Bot.IsClaimed(ctx, "visitor-2")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestBuildApp_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t)
	cfg.Sessions.EncryptionKey = "short"
	_, err := BuildApp(ctx, cfg, logging.NewNop())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Transcript.Redact = []string{"("}
	_, err = BuildApp(ctx, cfg, logging.NewNop())
	assert.ErrorContains(t, err, "invalid redact pattern")

	cfg = testConfig(t)
	cfg.FlowPath = writeFlow(t, `
version: "1"
nodes:
  - id: welcome
    text: Hi
    next: nowhere
`)
	_, err = BuildApp(ctx, cfg, logging.NewNop())
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
}

func TestWatchFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	app, err := BuildApp(ctx, cfg, logging.NewNop())
	require.NoError(t, err)
	defer app.Close()

	done := make(chan struct{})
	go func() {
		WatchFlow(ctx, app.Bot, cfg, 10*time.Millisecond, logging.NewNop())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)

	// A broken edit keeps the running flow.
	require.NoError(t, os.WriteFile(cfg.FlowPath, []byte("nodes: ["), 0o600))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "Hello from v1", app.Bot.Flow().Nodes["welcome"].Prompts[0])

	require.NoError(t, os.WriteFile(cfg.FlowPath, []byte(strings.Replace(flowV1, "Hello from v1", "Hello from v2", 1)), 0o600))
	assert.Eventually(t, func() bool {
		return app.Bot.Flow().Nodes["welcome"].Prompts[0] == "Hello from v2"
	}, 2*time.Second, 10*time.Millisecond)

	// Editors that save through a temp file and rename are picked up too.
	tmp := filepath.Join(filepath.Dir(cfg.FlowPath), ".flow.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte(strings.Replace(flowV1, "Hello from v1", "Hello from v3", 1)), 0o600))
	require.NoError(t, os.Rename(tmp, cfg.FlowPath))
	assert.Eventually(t, func() bool {
		return app.Bot.Flow().Nodes["welcome"].Prompts[0] == "Hello from v3"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunChat_Headless(t *testing.T) {
	var out bytes.Buffer
	err := RunChat(testConfig(t), ChatOptions{
		SessionID: "cli-test",
		Headless:  true,
		In:        strings.NewReader("1\nAna\n"),
		Out:       &out,
	}, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "Hello from v1\n  [1] Go\nYour name?\nBye!\n", out.String())
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, handleExecutionError(nil))
	assert.NoError(t, handleExecutionError(context.Canceled))
	assert.NoError(t, handleExecutionError(ErrInterrupted))
	assert.Error(t, handleExecutionError(flow.Summarize([]flow.Issue{{Severity: flow.SeverityError, Message: "x"}})))
}
