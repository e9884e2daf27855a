package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/docmind/internal/pkg/errors"
)

func TestParseJSON(t *testing.T) {
	t.Run("fenced array", func(t *testing.T) {
		got, err := ParseJSON[[]float64]("```json\n[0.1, 0.9]\n```")
		require.NoError(t, err)
		require.Equal(t, []float64{0.1, 0.9}, got)
	})
	t.Run("prose around object", func(t *testing.T) {
		type verdict struct {
			Extends    bool    `json:"extends"`
			Confidence float64 `json:"confidence"`
		}
		got, err := ParseJSON[verdict]("Sure! Here you go: {\"extends\": true, \"confidence\": 0.8} hope that helps")
		require.NoError(t, err)
		require.True(t, got.Extends)
		require.InDelta(t, 0.8, got.Confidence, 1e-9)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := ParseJSON[[]float64]("I cannot help with that")
		require.ErrorIs(t, err, appErr.ErrMalformedResponse)
	})
	t.Run("wrong shape", func(t *testing.T) {
		_, err := ParseJSON[[]float64](`["a", "b"]`)
		require.ErrorIs(t, err, appErr.ErrMalformedResponse)
	})
}
