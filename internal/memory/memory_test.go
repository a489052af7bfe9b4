package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixedassets/depflow/internal/model"
)

func openTestMemory(t *testing.T) *SemanticMemory {
	t.Helper()
	m, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestStoreAndNearest(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Store(ctx, "dell laptop computer", []float32{1, 0, 0}, "Computers & Peripherals", model.SourceExternal))
	require.NoError(t, m.Store(ctx, "ergonomic office chair", []float32{0, 1, 0}, "Office Furniture & Fixtures", model.SourceExternal))

	match, found, err := m.Nearest(ctx, []float32{0.95, 0.05, 0})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Computers & Peripherals", match.ClassName)
	assert.Greater(t, match.Similarity, 0.9)

	match, found, err = m.Nearest(ctx, []float32{0, 0.99, 0.01})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Office Furniture & Fixtures", match.ClassName)
}

func TestNearestOnEmptyStore(t *testing.T) {
	m := openTestMemory(t)

	_, found, err := m.Nearest(context.Background(), []float32{1, 0})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNearestWithEmptyQuery(t *testing.T) {
	m := openTestMemory(t)

	_, found, err := m.Nearest(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreUpsertsOnDuplicateDescription(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	require.NoError(t, m.Store(ctx, "forklift", []float32{1, 0}, "Machinery & Equipment", model.SourceExternal))
	require.NoError(t, m.Store(ctx, "forklift", []float32{1, 0}, "Agricultural Equipment", model.SourceOverride))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	match, found, err := m.Nearest(ctx, []float32{1, 0})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Agricultural Equipment", match.ClassName)
}

func TestStoreRejectsIncompleteEntries(t *testing.T) {
	m := openTestMemory(t)
	ctx := context.Background()

	assert.Error(t, m.Store(ctx, "", []float32{1}, "Automobiles", model.SourceExternal))
	assert.Error(t, m.Store(ctx, "sedan", nil, "Automobiles", model.SourceExternal))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 0.0001)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 0.0001)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 0.0001)

	// Degenerate inputs score zero rather than erroring.
	assert.Zero(t, CosineSimilarity([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
