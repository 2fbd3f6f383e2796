package file_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/adapters/file"
	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_EscapesSessionIDs(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	sid := "../../etc/passwd"
	require.NoError(t, store.Save(ctx, sid, domain.NewSessionState(sid, "welcome")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{sid}, ids)
}

func TestFileTranscript_Contract(t *testing.T) {
	tr, err := file.OpenTranscript(filepath.Join(t.TempDir(), "chat.jsonl"))
	require.NoError(t, err)
	defer tr.Close()

	ports.RunTranscriptContract(t, tr)
}

func TestFileTranscript_Replay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chat.jsonl")
	ctx := context.Background()

	tr, err := file.OpenTranscript(path)
	require.NoError(t, err)
	first, err := tr.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleUser, Text: "hello"})
	require.NoError(t, err)
	_, err = tr.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleAssistant, Text: "hi"})
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n{\"sid\":\"s1\",\"role\":\"user\",\"text\":\"no ts\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := file.OpenTranscript(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.ID, msgs[0].ID)
	assert.Equal(t, "hi", msgs[1].Text)

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.MalformedRows)
	assert.Equal(t, 2, stats.Messages)
}

func TestFileTranscript_ReplaySkipsOversizedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.jsonl")
	ctx := context.Background()

	tr, err := file.OpenTranscript(path)
	require.NoError(t, err)
	_, err = tr.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleUser, Text: "before"})
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	huge := `{"sid":"s1","role":"user","text":"` + strings.Repeat("a", file.MaxLineSize) + `","ts":"2025-03-01T09:00:00Z"}` + "\n"
	_, err = f.WriteString(huge)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tr, err = file.OpenTranscript(path)
	require.NoError(t, err)
	_, err = tr.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleAssistant, Text: "after"})
	require.NoError(t, err)
	require.NoError(t, tr.Close())

	reopened, err := file.OpenTranscript(path)
	require.NoError(t, err)
	defer reopened.Close()

	msgs, err := reopened.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "before", msgs[0].Text)
	assert.Equal(t, "after", msgs[1].Text)

	stats, err := reopened.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MalformedRows)
	assert.Equal(t, 2, stats.Messages)
}
