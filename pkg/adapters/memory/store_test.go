package memory_test

import (
	"testing"
	"time"

	"github.com/aretw0/leadflow/pkg/adapters/memory"
	"github.com/aretw0/leadflow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryLeads_Contract(t *testing.T) {
	ports.RunLeadRepositoryContract(t, memory.NewLeads())
}

func TestMemoryTranscript_Contract(t *testing.T) {
	ports.RunTranscriptContract(t, memory.NewTranscript())
}

func TestMemoryTakeover_Contract(t *testing.T) {
	ports.RunTakeoverContract(t, memory.NewTakeover(15*time.Minute))
}
