package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBytesRoundTrip(t *testing.T) {
	original := []float32{0.25, -1.5, 3.75, 0}

	data, err := float32SliceToBytes(original)
	require.NoError(t, err)

	decoded, err := bytesToFloat32Slice(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCosineSimilarity(t *testing.T) {
	identical, err := cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, identical, 1e-6)

	orthogonal, err := cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, orthogonal, 1e-6)

	opposite, err := cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, opposite, 1e-6)

	_, err = cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.Error(t, err)

	_, err = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.Error(t, err)
}
