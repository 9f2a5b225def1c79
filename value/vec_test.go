package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVecPushGetStructuralSharing(t *testing.T) {
	v1 := EmptyVec()
	for i := 0; i < 100; i++ {
		v1 = v1.Push(Int(int64(i)))
	}
	require.Equal(t, 100, v1.Len())

	v2 := v1.Push(Int(999))
	assert.Equal(t, 100, v1.Len(), "original unaffected by push on copy")
	assert.Equal(t, 101, v2.Len())

	got, ok := v1.Get(50)
	require.True(t, ok)
	assert.Equal(t, Int(50), got)

	_, ok = v1.Get(1000)
	assert.False(t, ok)
}

func TestVecSetImmutable(t *testing.T) {
	v1 := VecOf(Int(1), Int(2), Int(3))
	v2, ok := v1.Set(1, Int(99))
	require.True(t, ok)

	got1, _ := v1.Get(1)
	got2, _ := v2.Get(1)
	assert.Equal(t, Int(2), got1)
	assert.Equal(t, Int(99), got2)
}

func TestVecPopOrder(t *testing.T) {
	v := VecOf(Int(1), Int(2), Int(3))
	v2, last, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, Int(3), last)
	assert.Equal(t, 2, v2.Len())
	assert.Equal(t, 3, v.Len())
}

func TestVecInsertionOrderPreserved(t *testing.T) {
	v := VecOf(Int(3), Int(1), Int(2))
	var out []int64
	v.ForEach(func(val Value) bool {
		out = append(out, val.AsInt())
		return true
	})
	assert.Equal(t, []int64{3, 1, 2}, out)
}

func TestVecLargeStructuralSharingAcrossBoundary(t *testing.T) {
	v := EmptyVec()
	for i := 0; i < 2000; i++ {
		v = v.Push(Int(int64(i)))
	}
	for i := 0; i < 2000; i++ {
		got, ok := v.Get(i)
		require.True(t, ok)
		require.Equal(t, int64(i), got.AsInt())
	}
}
