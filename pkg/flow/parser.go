package flow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/leadflow/pkg/domain"
)

// DefaultStart is the node a flow starts on when the document does not say otherwise.
const DefaultStart = "welcome"

// LoadFile reads and compiles a flow file.
func LoadFile(path string) (*domain.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse compiles a JSON or YAML flow document.
func Parse(data []byte) (*domain.Definition, error) {
	raw := make(map[string]any)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFlow, err)
		}
	} else if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFlow, err)
	}

	var doc document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFlow, err)
	}
	return compile(doc)
}

func compile(doc document) (*domain.Definition, error) {
	if len(doc.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", domain.ErrInvalidFlow)
	}

	def := &domain.Definition{
		Version: doc.Version,
		Nodes:   make(map[string]domain.FlowNode, len(doc.Nodes)),
		Order:   make([]string, 0, len(doc.Nodes)),
	}

	for i, nd := range doc.Nodes {
		id := strings.TrimSpace(nd.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: node #%d has no id", domain.ErrInvalidFlow, i)
		}
		if _, dup := def.Nodes[id]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", domain.ErrInvalidFlow, id)
		}
		node, err := compileNode(id, nd)
		if err != nil {
			return nil, err
		}
		def.Nodes[id] = node
		def.Order = append(def.Order, id)
	}

	def.Start = strings.TrimSpace(doc.Start)
	if def.Start == "" {
		if _, ok := def.Nodes[DefaultStart]; ok {
			def.Start = DefaultStart
		} else {
			def.Start = def.Order[0]
		}
	}
	return def, nil
}

// compileNode decides the node kind. Precedence is choice > open input > action > plain.
func compileNode(id string, nd nodeDoc) (domain.FlowNode, error) {
	node := domain.FlowNode{
		ID:      id,
		Prompts: prompts(nd),
		Next:    strings.TrimSpace(nd.Next),
		Action:  strings.TrimSpace(nd.Action),
	}
	if nd.Terminal {
		node.Next = ""
	}

	switch {
	case len(nd.Choices) > 0:
		node.Kind = domain.KindChoice
		node.Action = ""
		for j, cd := range nd.Choices {
			c, err := compileChoice(nd.Signal, cd)
			if err != nil {
				return node, fmt.Errorf("%w: node %q choice #%d: %v", domain.ErrInvalidFlow, id, j, err)
			}
			node.Choices = append(node.Choices, c)
		}
	case nd.OpenInput:
		node.Kind = domain.KindOpenInput
		node.InputType = strings.TrimSpace(nd.InputType)
		if node.InputType == "" {
			node.InputType = domain.InputSingle
		}
	case node.Action != "":
		node.Kind = domain.KindAction
	default:
		node.Kind = domain.KindPlain
	}
	return node, nil
}

func prompts(nd nodeDoc) []string {
	var out []string
	for _, t := range nd.Texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 && strings.TrimSpace(nd.Text) != "" {
		out = append(out, nd.Text)
	}
	return out
}

func compileChoice(nodeSignal string, cd choiceDoc) (domain.Choice, error) {
	c := domain.Choice{
		Title:   strings.TrimSpace(cd.Title),
		Payload: strings.TrimSpace(cd.Payload),
		Next:    strings.TrimSpace(cd.Next),
	}
	if c.Payload == "" {
		c.Payload = c.Title
	}
	if c.Title == "" {
		c.Title = c.Payload
	}
	if c.Title == "" {
		return c, fmt.Errorf("choice needs a title or payload")
	}

	sig, err := parseSignal(cd.Signal, c.Payload)
	if err != nil {
		return c, err
	}
	if sig == nil && strings.TrimSpace(nodeSignal) != "" {
		sig = &domain.Signal{Key: strings.TrimSpace(nodeSignal), Value: c.Payload}
	}
	c.Signal = sig
	return c, nil
}

func parseSignal(v any, payload string) (*domain.Signal, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		if key, value, ok := strings.Cut(s, "="); ok {
			return &domain.Signal{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}, nil
		}
		return &domain.Signal{Key: s, Value: payload}, nil
	case map[string]any:
		var sig domain.Signal
		if err := mapstructure.WeakDecode(s, &sig); err != nil {
			return nil, err
		}
		if sig.Key == "" {
			return nil, fmt.Errorf("signal without key")
		}
		if sig.Value == "" {
			sig.Value = payload
		}
		return &sig, nil
	default:
		return nil, fmt.Errorf("unsupported signal %T", v)
	}
}
