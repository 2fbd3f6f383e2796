package flow

import (
	"fmt"
	"strings"

	"github.com/aretw0/leadflow/pkg/domain"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	NodeID   string
	Message  string
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("%s: node %q: %s", i.Severity, i.NodeID, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summarize joins issues into a single error, or returns nil when none is an error.
func Summarize(issues []Issue) error {
	if !HasErrors(issues) {
		return nil
	}
	lines := make([]string, 0, len(issues))
	for _, i := range issues {
		lines = append(lines, i.String())
	}
	return fmt.Errorf("%w: found %d issues:\n- %s", domain.ErrInvalidFlow, len(issues), strings.Join(lines, "\n- "))
}

// Validate checks references and reachability. knownAction reports whether an
// action name has a registered handler; nil accepts every name.
func Validate(def *domain.Definition, knownAction func(string) bool) []Issue {
	var issues []Issue
	if def == nil {
		return []Issue{{Severity: SeverityError, Message: "empty definition"}}
	}
	if _, ok := def.Node(def.Start); !ok {
		issues = append(issues, Issue{Severity: SeverityError, Message: fmt.Sprintf("start node %q not found", def.Start)})
	}

	for _, id := range def.Order {
		node := def.Nodes[id]
		for _, target := range node.Successors() {
			if _, ok := def.Node(target); !ok {
				issues = append(issues, Issue{Severity: SeverityError, NodeID: id, Message: fmt.Sprintf("missing node %q", target)})
			}
		}

		switch node.Kind {
		case domain.KindAction:
			if node.Action == domain.ActionStoreAnswer {
				issues = append(issues, Issue{Severity: SeverityWarning, NodeID: id, Message: "store_answer only applies to open input nodes"})
			} else if knownAction != nil && !knownAction(node.Action) {
				issues = append(issues, Issue{Severity: SeverityWarning, NodeID: id, Message: fmt.Sprintf("unknown action %q, node will only render", node.Action)})
			}
		case domain.KindOpenInput:
			if node.Action != "" && node.Action != domain.ActionStoreAnswer {
				issues = append(issues, Issue{Severity: SeverityWarning, NodeID: id, Message: fmt.Sprintf("action %q ignored on open input node", node.Action)})
			}
		}
	}

	reached := reachable(def)
	for _, id := range def.Order {
		if !reached[id] {
			issues = append(issues, Issue{Severity: SeverityWarning, NodeID: id, Message: "unreachable from start"})
		}
	}
	return issues
}

func reachable(def *domain.Definition) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{def.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		node, ok := def.Node(id)
		if !ok {
			continue
		}
		visited[id] = true
		for _, target := range node.Successors() {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}
	return visited
}
