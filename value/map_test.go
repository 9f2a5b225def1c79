package value

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapInsertGetImmutable(t *testing.T) {
	m1 := EmptyMap()
	m2 := m1.Insert(Str("a"), Int(1))

	assert.Equal(t, 0, m1.Len())
	assert.Equal(t, 1, m2.Len())

	_, ok := m1.Get(Str("a"))
	assert.False(t, ok)

	v, ok := m2.Get(Str("a"))
	require.True(t, ok)
	assert.Equal(t, Int(1), v)
}

func TestMapManyKeysNoCollisionLoss(t *testing.T) {
	m := EmptyMap()
	const n = 500
	for i := 0; i < n; i++ {
		m = m.Insert(Int(int64(i)), Str(fmt.Sprintf("v%d", i)))
	}
	require.Equal(t, n, m.Len())
	for i := 0; i < n; i++ {
		v, ok := m.Get(Int(int64(i)))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", i), v.AsString())
	}
}

func TestMapRemove(t *testing.T) {
	m := EmptyMap().Insert(Int(1), Str("a")).Insert(Int(2), Str("b"))
	m2, removed := m.Remove(Int(1))
	require.True(t, removed)
	assert.Equal(t, 1, m2.Len())
	assert.Equal(t, 2, m.Len(), "original map untouched")

	_, removed = m2.Remove(Int(1))
	assert.False(t, removed)
}

func TestMapOverwrite(t *testing.T) {
	m := EmptyMap().Insert(Int(1), Str("a")).Insert(Int(1), Str("b"))
	assert.Equal(t, 1, m.Len())
	v, _ := m.Get(Int(1))
	assert.Equal(t, Str("b"), v)
}

func TestSetUnionIntersectionDifference(t *testing.T) {
	a := SetOf(Int(1), Int(2), Int(3))
	b := SetOf(Int(2), Int(3), Int(4))

	u := a.Union(b)
	assert.Equal(t, 4, u.Len())

	i := a.Intersection(b)
	assert.Equal(t, 2, i.Len())
	assert.True(t, i.Has(Int(2)))
	assert.True(t, i.Has(Int(3)))

	d := a.Difference(b)
	assert.Equal(t, 1, d.Len())
	assert.True(t, d.Has(Int(1)))
}

func TestMapHashOrderIndependent(t *testing.T) {
	keys := []Value{Str("x"), Str("y"), Str("z")}
	m1 := EmptyMap()
	m2 := EmptyMap()
	for _, k := range keys {
		m1 = m1.Insert(k, Int(1))
	}
	for i := len(keys) - 1; i >= 0; i-- {
		m2 = m2.Insert(keys[i], Int(1))
	}
	require.True(t, m1.Equal(m2))
	assert.Equal(t, m1.Hash(), m2.Hash())
}
