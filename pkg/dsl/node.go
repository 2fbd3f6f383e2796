package dsl

import "github.com/aretw0/leadflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
// The node kind follows from what is configured: choices win over open input,
// which wins over an action.
type NodeBuilder struct {
	node      domain.FlowNode
	openInput bool
	signalKey string
}

// Text appends prompt variants. One is picked at random when rendered.
func (n *NodeBuilder) Text(prompts ...string) *NodeBuilder {
	n.node.Prompts = append(n.node.Prompts, prompts...)
	return n
}

// Choice adds a button. An empty payload reuses the title.
func (n *NodeBuilder) Choice(title, payload, next string) *NodeBuilder {
	if payload == "" {
		payload = title
	}
	n.node.Choices = append(n.node.Choices, domain.Choice{Title: title, Payload: payload, Next: next})
	return n
}

// Signal records key=value when the last added choice is picked.
func (n *NodeBuilder) Signal(key, value string) *NodeBuilder {
	if len(n.node.Choices) > 0 {
		n.node.Choices[len(n.node.Choices)-1].Signal = &domain.Signal{Key: key, Value: value}
	}
	return n
}

// SignalAll records key=<payload> for every choice without an explicit signal.
func (n *NodeBuilder) SignalAll(key string) *NodeBuilder {
	n.signalKey = key
	return n
}

// Ask turns the node into an open input question with the given client hint.
func (n *NodeBuilder) Ask(inputType string) *NodeBuilder {
	if inputType == "" {
		inputType = domain.InputSingle
	}
	n.openInput = true
	n.node.InputType = inputType
	return n
}

// Do names the action handler; on open input nodes it names the capture behaviour.
func (n *NodeBuilder) Do(action string) *NodeBuilder {
	n.node.Action = action
	return n
}

// Go sets the default successor.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Next = target
	return n
}

// Terminal marks the node as a terminal node (end of the flow).
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.Next = ""
	return n
}

// Build returns the underlying domain.FlowNode.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.FlowNode {
	node := n.node
	node.Prompts = append([]string(nil), n.node.Prompts...)
	node.Choices = append([]domain.Choice(nil), n.node.Choices...)

	switch {
	case len(node.Choices) > 0:
		node.Kind = domain.KindChoice
		node.Action = ""
		node.InputType = ""
		if n.signalKey != "" {
			for i, c := range node.Choices {
				if c.Signal == nil {
					node.Choices[i].Signal = &domain.Signal{Key: n.signalKey, Value: c.Payload}
				}
			}
		}
	case n.openInput:
		node.Kind = domain.KindOpenInput
	case node.Action != "":
		node.Kind = domain.KindAction
	default:
		node.Kind = domain.KindPlain
	}
	return node
}
