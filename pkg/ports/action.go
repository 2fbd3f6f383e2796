package ports

import (
	"context"

	"github.com/aretw0/leadflow/pkg/domain"
)

// ActionHandler executes the side effect of an action node.
// Implementations must not touch session state; the engine owns it.
type ActionHandler interface {
	Handle(ctx context.Context, in domain.ActionInput) domain.ActionResult
}

// ActionHandlerFunc adapts a function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, in domain.ActionInput) domain.ActionResult

func (f ActionHandlerFunc) Handle(ctx context.Context, in domain.ActionInput) domain.ActionResult {
	return f(ctx, in)
}
