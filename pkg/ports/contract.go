package ports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState(sessionID, "welcome")
		state.Arm("welcome")
		state.SetSignal(domain.Signal{Key: "fit", Value: "good"})

		require.NoError(t, store.Save(ctx, sessionID, state))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "welcome", loaded.CurrentNode)
		require.NotNil(t, loaded.Awaiting)
		assert.Equal(t, "welcome", loaded.Awaiting.NodeID)
		assert.Equal(t, "good", loaded.Signals["fit"])
		assert.Equal(t, domain.StatusActive, loaded.Status)
	})

	t.Run("Loaded state is a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Signals["fit"] = "low"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "good", again.Signals["fit"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSessionState(id1, "welcome")))
		require.NoError(t, store.Save(ctx, id2, domain.NewSessionState(id2, "welcome")))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID))
		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})
}

// RunLeadRepositoryContract verifies a LeadRepository implementation.
func RunLeadRepositoryContract(t *testing.T, repo LeadRepository) {
	ctx := context.Background()

	t.Run("Get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "nobody")
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})

	t.Run("Upsert creates and updates", func(t *testing.T) {
		email := "ana@example.com"
		lead, err := repo.Upsert(ctx, "lead-1", domain.LeadUpdate{Email: &email})
		require.NoError(t, err)
		assert.Equal(t, "lead-1", lead.SessionID)
		assert.True(t, lead.HasEmail)
		assert.Equal(t, domain.StageNew, lead.Stage)

		score := 80
		interest := domain.InterestHigh
		tags := []string{"urgent", "cash"}
		_, err = repo.Upsert(ctx, "lead-1", domain.LeadUpdate{Score: &score, Interest: &interest, Tags: &tags})
		require.NoError(t, err)

		got, err := repo.Get(ctx, "lead-1")
		require.NoError(t, err)
		assert.Equal(t, 80, got.Score)
		assert.Equal(t, domain.InterestHigh, got.Interest)
		assert.Equal(t, "ana@example.com", got.Email)
		assert.Equal(t, []string{"urgent", "cash"}, got.Tags)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("AppendNote", func(t *testing.T) {
		require.NoError(t, repo.AppendNote(ctx, "lead-2", "first"))
		require.NoError(t, repo.AppendNote(ctx, "lead-2", "second"))

		got, err := repo.Get(ctx, "lead-2")
		require.NoError(t, err)
		assert.Equal(t, "first | second", got.Notes)
	})

	t.Run("Concurrent AppendNote keeps every note", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = repo.AppendNote(ctx, "lead-3", "n")
			}()
		}
		wg.Wait()

		got, err := repo.Get(ctx, "lead-3")
		require.NoError(t, err)
		assert.Len(t, got.NoteEntries(), 10)
	})

	t.Run("List ordering", func(t *testing.T) {
		low := 10
		_, err := repo.Upsert(ctx, "lead-low", domain.LeadUpdate{Score: &low})
		require.NoError(t, err)

		leads, err := repo.List(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, leads)
		assert.Equal(t, "lead-1", leads[0].SessionID)
		for i := 1; i < len(leads); i++ {
			assert.GreaterOrEqual(t, leads[i-1].Score, leads[i].Score)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "lead-low"))
		_, err := repo.Get(ctx, "lead-low")
		assert.ErrorIs(t, err, domain.ErrLeadNotFound)
	})
}

// RunTranscriptContract verifies a TranscriptStore implementation.
func RunTranscriptContract(t *testing.T, store TranscriptStore) {
	ctx := context.Background()

	t.Run("Rejects invalid messages", func(t *testing.T) {
		_, err := store.Append(ctx, domain.ChatMessage{SessionID: "", Role: domain.RoleUser, Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
		_, err = store.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleUser, Text: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
		_, err = store.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: "robot", Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrInvalidMessage)
	})

	t.Run("Append assigns identity and order", func(t *testing.T) {
		ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		first, err := store.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleUser, Text: "hello", Timestamp: ts})
		require.NoError(t, err)
		second, err := store.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleAssistant, Text: "hi there", Timestamp: ts})
		require.NoError(t, err)
		earlier, err := store.Append(ctx, domain.ChatMessage{SessionID: "s1", Role: domain.RoleStaff, Text: "note", Timestamp: ts.Add(-time.Minute)})
		require.NoError(t, err)
		_, err = store.Append(ctx, domain.ChatMessage{SessionID: "s2", Role: domain.RoleUser, Text: "other"})
		require.NoError(t, err)

		assert.NotEmpty(t, first.ID)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Less(t, first.Seq, second.Seq)

		msgs, err := store.List(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, earlier.ID, msgs[0].ID)
		assert.Equal(t, first.ID, msgs[1].ID)
		assert.Equal(t, second.ID, msgs[2].ID)
	})

	t.Run("Sessions and stats", func(t *testing.T) {
		sessions, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)

		stats, err := store.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Sessions)
		assert.Equal(t, 4, stats.Messages)
	})

	t.Run("Unknown session is empty", func(t *testing.T) {
		msgs, err := store.List(ctx, "ghost")
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

// RunTakeoverContract verifies a TakeoverGate implementation.
func RunTakeoverContract(t *testing.T, gate TakeoverGate) {
	ctx := context.Background()

	t.Run("Claim and Active", func(t *testing.T) {
		_, active, err := gate.Active(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, active)

		claim, err := gate.Claim(ctx, "t1", "agent-a", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "agent-a", claim.AgentID)
		assert.True(t, claim.ExpiresAt.After(claim.ClaimedAt))

		got, active, err := gate.Active(ctx, "t1")
		require.NoError(t, err)
		assert.True(t, active)
		assert.Equal(t, "agent-a", got.AgentID)
	})

	t.Run("Other agent is rejected", func(t *testing.T) {
		_, err := gate.Claim(ctx, "t1", "agent-b", time.Minute)
		assert.True(t, errors.Is(err, domain.ErrSessionClaimed))

		err = gate.Release(ctx, "t1", "agent-b")
		assert.ErrorIs(t, err, domain.ErrSessionClaimed)
	})

	t.Run("Same agent refreshes", func(t *testing.T) {
		_, err := gate.Claim(ctx, "t1", "agent-a", 2*time.Minute)
		assert.NoError(t, err)
	})

	t.Run("Release", func(t *testing.T) {
		require.NoError(t, gate.Release(ctx, "t1", "agent-a"))
		_, active, err := gate.Active(ctx, "t1")
		require.NoError(t, err)
		assert.False(t, active)

		assert.NoError(t, gate.Release(ctx, "t1", ""), "releasing twice is a no-op")
	})
}
