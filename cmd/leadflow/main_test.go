package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "leadflow version "+strings.TrimSpace(leadflow.Version)+"\n", out)
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Flow is valid!")

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("nodes:\n  - id: welcome\n    text: Hi\n    next: nowhere\n"), 0o600))
	out, err = run(t, "validate", broken, "--no-contact-first")
	require.Error(t, err)
	assert.Contains(t, out, `missing node "nowhere"`)
}

func TestGraph(t *testing.T) {
	out, err := run(t, "graph", "--current", "score")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `score[["score <br/> compute_fit"]]`)
	assert.Contains(t, out, "class score current;")
}
