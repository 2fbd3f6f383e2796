package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/leadflow/internal/presentation/graph"
	"github.com/aretw0/leadflow/pkg/domain"
)

func definition(nodes ...domain.FlowNode) *domain.Definition {
	def := &domain.Definition{Nodes: map[string]domain.FlowNode{}}
	for _, n := range nodes {
		def.Nodes[n.ID] = n
		def.Order = append(def.Order, n.ID)
	}
	if len(nodes) > 0 {
		def.Start = nodes[0].ID
	}
	return def
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		def      *domain.Definition
		overlay  *graph.GraphOverlay
		contains []string
	}{
		{
			name: "Shapes",
			def: definition(
				domain.FlowNode{ID: "welcome", Kind: domain.KindChoice},
				domain.FlowNode{ID: "menu", Kind: domain.KindChoice},
				domain.FlowNode{ID: "name", Kind: domain.KindOpenInput, Action: domain.ActionStoreAnswer},
				domain.FlowNode{ID: "score", Kind: domain.KindAction, Action: domain.ActionComputeFit},
				domain.FlowNode{ID: "bye", Kind: domain.KindPlain},
			),
			contains: []string{
				`welcome(("welcome"))`,
				`menu{"menu"}`,
				`name[/"name <br/> store_answer"/]`,
				`score[["score <br/> compute_fit"]]`,
				`bye["bye"]`,
			},
		},
		{
			name: "Edges",
			def: definition(
				domain.FlowNode{ID: "welcome", Kind: domain.KindChoice, Choices: []domain.Choice{
					{Title: `Say "yes"`, Payload: "yes", Next: "name"},
					{Title: "Stay", Payload: "stay"},
				}},
				domain.FlowNode{ID: "name", Kind: domain.KindOpenInput, Next: "intro"},
				domain.FlowNode{ID: "intro", Kind: domain.KindPlain, Next: "end-node"},
			),
			contains: []string{
				`welcome -- "Say 'yes'" --> name`,
				"name --> intro",
				"intro -.-> end_node",
			},
		},
		{
			name:    "Overlay",
			def:     definition(domain.FlowNode{ID: "a.b"}, domain.FlowNode{ID: "c"}),
			overlay: &graph.GraphOverlay{VisitedNodes: []string{"a.b", "a.b"}, CurrentNode: "c"},
			contains: []string{
				"class a_b visited;",
				"class c current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.def, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			if strings.Count(got, "class a_b visited;") > 1 {
				t.Errorf("visited nodes must be deduplicated")
			}
			if strings.Contains(got, "welcome -- \"Stay\"") {
				t.Errorf("choices without next must not draw an edge")
			}
		})
	}
}
