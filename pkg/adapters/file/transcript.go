package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/leadflow/internal/logging"
	"github.com/aretw0/leadflow/pkg/adapters/memory"
	"github.com/aretw0/leadflow/pkg/domain"
)

// MaxLineSize bounds one replayed line. Longer lines count as malformed.
const MaxLineSize = 1 << 20

// Transcript implements ports.TranscriptStore as an append-only JSON Lines
// file with an in-memory index rebuilt on open.
type Transcript struct {
	mu        sync.Mutex
	file      *os.File
	index     *memory.Transcript
	malformed int
	logger    *slog.Logger
}

// TranscriptOption configures a Transcript.
type TranscriptOption func(*Transcript)

// WithLogger configures a logger for replay diagnostics.
func WithLogger(logger *slog.Logger) TranscriptOption {
	return func(t *Transcript) {
		t.logger = logger
	}
}

// OpenTranscript replays path (if present) and opens it for appending.
// Malformed lines are skipped and counted.
func OpenTranscript(path string, opts ...TranscriptOption) (*Transcript, error) {
	t := &Transcript{
		index:  memory.NewTranscript(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to ensure transcript directory: %w", err)
		}
	}
	if err := t.replay(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	t.file = f
	return t, nil
}

func (t *Transcript) replay(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		t.logger.Info("Transcript file not found, starting empty", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	defer f.Close()

	loaded := 0
	r := bufio.NewReaderSize(f, 64*1024)
	for {
		line, tooLong, err := readLine(r, MaxLineSize)
		switch {
		case tooLong:
			t.malformed++
		case len(line) > 0:
			if t.load(line) {
				loaded++
			} else {
				t.malformed++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read transcript: %w", err)
		}
	}
	t.logger.Info("Transcript loaded", "path", path, "loaded", loaded, "malformed", t.malformed)
	return nil
}

func (t *Transcript) load(line []byte) bool {
	var msg domain.ChatMessage
	if err := json.Unmarshal(line, &msg); err != nil || msg.Timestamp.IsZero() {
		return false
	}
	_, err := t.index.Append(context.Background(), msg)
	return err == nil
}

// readLine returns the next line without its terminator. A line longer than
// limit is consumed and reported as tooLong instead of returned.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(bytes.TrimRight(chunk, "\r\n")) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimRight(line, "\r\n"), tooLong, err
	}
}

func (t *Transcript) Append(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	msg, err := memory.Prepare(msg)
	if err != nil {
		return msg, err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return msg, fmt.Errorf("failed to marshal message: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.file.Write(append(data, '\n')); err != nil {
		return msg, fmt.Errorf("failed to append transcript: %w", err)
	}
	return t.index.Append(ctx, msg)
}

func (t *Transcript) List(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	return t.index.List(ctx, sessionID)
}

func (t *Transcript) Sessions(ctx context.Context) ([]string, error) {
	return t.index.Sessions(ctx)
}

func (t *Transcript) Stats(ctx context.Context) (domain.TranscriptStats, error) {
	stats, err := t.index.Stats(ctx)
	t.mu.Lock()
	stats.MalformedRows = t.malformed
	t.mu.Unlock()
	return stats, err
}

// Close closes the underlying file.
func (t *Transcript) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}
