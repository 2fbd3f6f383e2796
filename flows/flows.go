// Package flows ships the stock conversation script.
package flows

import (
	_ "embed"

	"github.com/aretw0/leadflow/pkg/domain"
	"github.com/aretw0/leadflow/pkg/flow"
)

//go:embed default.json
var defaultFlow []byte

// Default returns the raw stock flow document.
func Default() []byte {
	return append([]byte(nil), defaultFlow...)
}

// LoadDefault compiles the stock flow.
func LoadDefault() (*domain.Definition, error) {
	return flow.Parse(defaultFlow)
}
