package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/value"
)

func containsSchema() *RelationshipSchema {
	return &RelationshipSchema{
		Name:           "contains",
		Cardinality:    ManyToMany,
		OnTargetDelete: DeleteCascade,
		OnViolation:    ViolationError,
	}
}

func TestLinkIsIdempotent(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(containsSchema()))

	s := EntityID{Index: 0, Generation: 1}
	tg := EntityID{Index: 1, Generation: 1}

	require.NoError(t, r.Link(s, "contains", tg, value.Nil))
	require.NoError(t, r.Link(s, "contains", tg, value.Nil))

	assert.True(t, r.Has(s, "contains", tg))
	assert.ElementsMatch(t, []EntityID{tg}, r.Targets(s, "contains"))
	assert.ElementsMatch(t, []EntityID{s}, r.Sources(tg, "contains"))
}

func TestUnlinkIsIdempotent(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(containsSchema()))

	s := EntityID{Index: 0, Generation: 1}
	tg := EntityID{Index: 1, Generation: 1}
	require.NoError(t, r.Link(s, "contains", tg, value.Nil))

	require.NoError(t, r.Unlink(s, "contains", tg))
	assert.False(t, r.Has(s, "contains", tg))

	require.NoError(t, r.Unlink(s, "contains", tg))
	assert.False(t, r.Has(s, "contains", tg))
}

func TestCardinalityOneToOneReplace(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(&RelationshipSchema{
		Name:        "married-to",
		Cardinality: OneToOne,
		OnViolation: ViolationReplace,
	}))

	a := EntityID{Index: 0, Generation: 1}
	b := EntityID{Index: 1, Generation: 1}
	c := EntityID{Index: 2, Generation: 1}

	require.NoError(t, r.Link(a, "married-to", b, value.Nil))
	require.NoError(t, r.Link(a, "married-to", c, value.Nil))

	assert.False(t, r.Has(a, "married-to", b), "prior edge replaced")
	assert.True(t, r.Has(a, "married-to", c))
}

func TestCardinalityViolationError(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(&RelationshipSchema{
		Name:        "married-to",
		Cardinality: OneToOne,
		OnViolation: ViolationError,
	}))

	a := EntityID{Index: 0, Generation: 1}
	b := EntityID{Index: 1, Generation: 1}
	c := EntityID{Index: 2, Generation: 1}

	require.NoError(t, r.Link(a, "married-to", b, value.Nil))
	err := r.Link(a, "married-to", c, value.Nil)
	require.Error(t, err)
	assert.True(t, r.Has(a, "married-to", b), "original edge must survive a rejected link")
}

func TestOnEntityDestroyedCascade(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(containsSchema()))

	parent := EntityID{Index: 0, Generation: 1}
	child := EntityID{Index: 1, Generation: 1}
	require.NoError(t, r.Link(parent, "contains", child, value.Nil))

	victims := r.OnEntityDestroyed(child)
	assert.ElementsMatch(t, []EntityID{parent}, victims, "cascade policy destroys the container too")
	assert.False(t, r.Has(parent, "contains", child))
}

func TestOnEntityDestroyedRemoveDoesNotCascade(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(&RelationshipSchema{
		Name:           "likes",
		Cardinality:    ManyToMany,
		OnTargetDelete: DeleteRemove,
	}))

	a := EntityID{Index: 0, Generation: 1}
	b := EntityID{Index: 1, Generation: 1}
	require.NoError(t, r.Link(a, "likes", b, value.Nil))

	victims := r.OnEntityDestroyed(b)
	assert.Empty(t, victims)
	assert.False(t, r.Has(a, "likes", b))
}

func TestOnEntityDestroyedDropsForwardEdgesToo(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(containsSchema()))

	parent := EntityID{Index: 0, Generation: 1}
	child := EntityID{Index: 1, Generation: 1}
	require.NoError(t, r.Link(parent, "contains", child, value.Nil))

	victims := r.OnEntityDestroyed(parent)
	assert.Empty(t, victims)
	assert.False(t, r.Has(parent, "contains", child))
	assert.Empty(t, r.Sources(child, "contains"))
}

func TestCloneIsolatesRelationshipWrites(t *testing.T) {
	r := NewRelationshipStore()
	require.NoError(t, r.Register(containsSchema()))

	a := EntityID{Index: 0, Generation: 1}
	b := EntityID{Index: 1, Generation: 1}

	clone := r.Clone()
	require.NoError(t, clone.Link(a, "contains", b, value.Nil))

	assert.False(t, r.Has(a, "contains", b))
	assert.True(t, clone.Has(a, "contains", b))
}
