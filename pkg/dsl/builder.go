package dsl

import (
	"fmt"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
)

// Builder manages the graph construction.
type Builder struct {
	version string
	start   string
	order   []string
	nodes   map[string]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Version labels the built definition.
func (b *Builder) Version(v string) *Builder {
	b.version = v
	return b
}

// Start overrides the start node. The first added node is used otherwise.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{node: domain.FlowNode{ID: id}}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build compiles the graph and rejects it when validation finds errors.
// Unknown actions are not checked here; the bot reports them on load.
func (b *Builder) Build() (*domain.Definition, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("%w: no nodes", domain.ErrInvalidFlow)
	}
	def := &domain.Definition{
		Version: b.version,
		Start:   b.start,
		Nodes:   make(map[string]domain.FlowNode, len(b.nodes)),
		Order:   append([]string(nil), b.order...),
	}
	if def.Start == "" {
		def.Start = b.order[0]
	}
	for _, id := range b.order {
		def.Nodes[id] = b.nodes[id].Build()
	}
	if err := flow.Summarize(flow.Validate(def, nil)); err != nil {
		return nil, err
	}
	return def, nil
}
