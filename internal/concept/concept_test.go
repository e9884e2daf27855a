package concept

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	text := "Machine Learning is a field of study. The API uses REST. " +
		"Normalization and optimization matter. A tokenizer refers to a text splitter. " +
		"Machine Learning again."
	got := Extract(text)
	require.Equal(t, 3, got["machine learning"])
	require.Equal(t, 1, got["api"])
	require.Equal(t, 1, got["rest"])
	require.Equal(t, 1, got["normalization"])
	require.Equal(t, 1, got["optimization"])
	require.Contains(t, got, "tokenizer")
}

func TestTopAndOverlap(t *testing.T) {
	freq := map[string]int{"b": 2, "a": 2, "c": 5}
	require.Equal(t, []string{"c", "a"}, Top(freq, 2))
	require.Equal(t, []string{"c", "a", "b"}, Top(freq, 10))

	a := map[string]struct{}{"x": {}, "y": {}}
	b := map[string]struct{}{"y": {}, "z": {}}
	require.Equal(t, 0.5, Overlap(a, b))
	require.Equal(t, 0.0, Overlap(nil, b))
}
