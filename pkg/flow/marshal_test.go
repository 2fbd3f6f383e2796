package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/leadflow/pkg/domain"
)

func TestMarshal_RoundTrip(t *testing.T) {
	def, err := Parse([]byte(jsonFlow))
	require.NoError(t, err)

	for name, in := range map[string]*domain.Definition{
		"as parsed":     def,
		"contact first": EnforceContactFirst(def, ""),
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Marshal(in)
			require.NoError(t, err)

			back, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, in, back)
		})
	}
}

func TestMarshal_Empty(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidFlow)
}
