package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnDestroyGenerationReuse(t *testing.T) {
	s := NewEntityStore()
	a := s.Spawn()
	require.Equal(t, uint32(1), a.Generation)

	require.NoError(t, s.Destroy(a))
	b := s.Spawn()
	assert.Equal(t, a.Index, b.Index, "freed slot reused")
	assert.Greater(t, b.Generation, a.Generation, "generation strictly increasing")
	assert.Equal(t, uint32(3), b.Generation)
}

func TestStaleEntityDetection(t *testing.T) {
	s := NewEntityStore()
	a := s.Spawn()
	require.NoError(t, s.Destroy(a))
	_ = s.Spawn() // reuses a.Index at a new generation

	err := s.Validate(a)
	require.Error(t, err)
	assert.False(t, s.Exists(a))
}

func TestEntityNotFoundForUnallocatedIndex(t *testing.T) {
	s := NewEntityStore()
	err := s.Validate(EntityID{Index: 42, Generation: 1})
	require.Error(t, err)
}

func TestCloneIsolatesMutation(t *testing.T) {
	s := NewEntityStore()
	a := s.Spawn()

	clone := s.Clone()
	b := clone.Spawn()

	assert.True(t, s.Exists(a))
	assert.False(t, s.Exists(b), "spawn on clone must not leak into original")
	assert.True(t, clone.Exists(a))
	assert.True(t, clone.Exists(b))
}

func TestIterReturnsOnlyLiveEntities(t *testing.T) {
	s := NewEntityStore()
	a := s.Spawn()
	b := s.Spawn()
	require.NoError(t, s.Destroy(a))

	live := s.Iter()
	require.Len(t, live, 1)
	assert.Equal(t, b, live[0])
}
