package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/value"
)

func TestSpawnDerivesNewWorldLeavesOldUntouched(t *testing.T) {
	w0 := NewWorld(1)
	w1, e := w0.Spawn()

	assert.False(t, w0.Exists(e), "spawning must not mutate the originating World")
	assert.True(t, w1.Exists(e))
	assert.Equal(t, w0.ID(), w1.ID(), "instance id is stable across derived snapshots")
}

func TestAdvanceTickLinksHistory(t *testing.T) {
	w0 := NewWorld(1)
	w1 := w0.AdvanceTick()
	w2 := w1.AdvanceTick()

	assert.Equal(t, uint64(0), w0.Snapshot().Tick)
	assert.Equal(t, uint64(1), w1.Snapshot().Tick)
	assert.Equal(t, uint64(2), w2.Snapshot().Tick)
	assert.Same(t, w1.Snapshot(), w2.Snapshot().Previous)
	assert.Same(t, w0.Snapshot(), w1.Snapshot().Previous)
}

func TestSetComponentRoundtrip(t *testing.T) {
	w := NewWorld(1)
	require.NoError(t, w.RegisterComponent(&ComponentSchema{
		Name: "position",
		Fields: []FieldSchema{
			{Name: "x", Type: FieldInt, Required: true},
			{Name: "y", Type: FieldInt, Required: true},
		},
	}))

	w, e := w.Spawn()
	m := value.EmptyMap().
		Insert(w.Interner().Kw("x"), value.Int(3)).
		Insert(w.Interner().Kw("y"), value.Int(4))

	w, err := w.SetComponent(e, "position", value.MapVal(m))
	require.NoError(t, err)

	x, err := w.GetField(e, "position", "x")
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), x)
}

func TestDestroyCascadesAndReportsEachVictimOnce(t *testing.T) {
	w := NewWorld(1)
	require.NoError(t, w.RegisterRelationship(&RelationshipSchema{
		Name:           "owns",
		Cardinality:    ManyToOne,
		OnTargetDelete: DeleteCascade,
	}))

	w, owner := w.Spawn()
	w, item := w.Spawn()
	w, err := w.Link(owner, "owns", item, value.Nil)
	require.NoError(t, err)

	// destroying the target (item) cascades to its source (owner), per
	// the Cascade on-target-delete policy.
	w, destroyed, err := w.Destroy(item)
	require.NoError(t, err)
	assert.ElementsMatch(t, []EntityID{item, owner}, destroyed)
	assert.False(t, w.Exists(item))
	assert.False(t, w.Exists(owner))
}

func TestDestroyUnknownEntityErrors(t *testing.T) {
	w := NewWorld(1)
	_, _, err := w.Destroy(EntityID{Index: 99, Generation: 1})
	require.Error(t, err)
}

func TestLinkUnlinkThroughWorld(t *testing.T) {
	w := NewWorld(1)
	require.NoError(t, w.RegisterRelationship(&RelationshipSchema{
		Name:        "friend",
		Cardinality: ManyToMany,
	}))

	w, a := w.Spawn()
	w, b := w.Spawn()
	w, err := w.Link(a, "friend", b, value.Nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []EntityID{b}, w.Targets(a, "friend"))
	assert.ElementsMatch(t, []EntityID{a}, w.Sources(b, "friend"))

	w, err = w.Unlink(a, "friend", b)
	require.NoError(t, err)
	assert.Empty(t, w.Targets(a, "friend"))
}
