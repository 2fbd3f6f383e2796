package flow

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Marshal encodes def as a JSON flow document that Parse reads back into an
// equivalent definition. Nodes keep their declaration order.
func Marshal(def *domain.Definition) ([]byte, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: empty definition", domain.ErrInvalidFlow)
	}
	doc := document{Version: def.Version, Start: def.Start}
	for _, id := range def.Order {
		node, ok := def.Nodes[id]
		if !ok {
			continue
		}
		doc.Nodes = append(doc.Nodes, toDoc(node))
	}
	return json.MarshalIndent(doc, "", "  ")
}

func toDoc(node domain.FlowNode) nodeDoc {
	nd := nodeDoc{ID: node.ID, Next: node.Next}
	if len(node.Prompts) == 1 {
		nd.Text = node.Prompts[0]
	} else {
		nd.Texts = append([]string(nil), node.Prompts...)
	}

	switch node.Kind {
	case domain.KindChoice:
		for _, c := range node.Choices {
			cd := choiceDoc{Title: c.Title, Payload: c.Payload, Next: c.Next}
			if c.Signal != nil {
				cd.Signal = map[string]string{"key": c.Signal.Key, "value": c.Signal.Value}
			}
			nd.Choices = append(nd.Choices, cd)
		}
	case domain.KindOpenInput:
		nd.OpenInput = true
		nd.InputType = node.InputType
		nd.Action = node.Action
	case domain.KindAction:
		nd.Action = node.Action
	}
	if nd.Next == "" && node.Kind != domain.KindChoice {
		nd.Terminal = true
	}
	return nd
}
