package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualityReflexive(t *testing.T) {
	vals := []Value{
		Nil, Bool(true), Bool(false), Int(42), Int(-7),
		Float(3.14), Float(math.NaN()), Str("hello"),
		Entity(EntityRef{Index: 1, Generation: 1}),
	}
	for _, v := range vals {
		assert.True(t, v.Equal(v), "%v should equal itself", v)
	}
}

func TestNaNEqualsItself(t *testing.T) {
	nan := Float(math.NaN())
	assert.True(t, nan.Equal(nan))
}

func TestCrossTagNeverEqual(t *testing.T) {
	assert.False(t, Int(0).Equal(Bool(false)))
	assert.False(t, Str("").Equal(Nil))
	assert.False(t, Int(1).Equal(Float(1)))
}

func TestHashConsistentWithEquality(t *testing.T) {
	a := Str("same")
	b := Str("same")
	require.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())

	m1 := EmptyMap().Insert(Int(1), Str("a")).Insert(Int(2), Str("b"))
	m2 := EmptyMap().Insert(Int(2), Str("b")).Insert(Int(1), Str("a"))
	require.True(t, m1.Equal(m2))
	assert.Equal(t, m1.Hash(), m2.Hash())
}

func TestTruthiness(t *testing.T) {
	falsy := []Value{Nil, Bool(false)}
	for _, v := range falsy {
		assert.False(t, v.Truthy())
	}
	truthy := []Value{Bool(true), Int(0), Str(""), VecVal(EmptyVec()), SetVal(EmptySet())}
	for _, v := range truthy {
		assert.True(t, v.Truthy(), "%v should be truthy", v)
	}
}

func TestOrderingWithinKinds(t *testing.T) {
	r, ok := Int(1).Compare(Int(2))
	require.True(t, ok)
	assert.Equal(t, -1, r)

	r, ok = Int(2).Compare(Float(1.5))
	require.True(t, ok)
	assert.Equal(t, 1, r)

	_, ok = Str("a").Compare(Int(1))
	assert.False(t, ok)
}

func TestArithmeticPromotion(t *testing.T) {
	v, err := Add(Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(5), v)

	v, err = Add(Int(2), Float(3.5))
	require.NoError(t, err)
	assert.Equal(t, Float(5.5), v)

	_, err = Div(Int(1), Int(0))
	assert.Error(t, err)

	_, err = Div(Int(1), Float(0.0))
	assert.Error(t, err)

	v, err = Add(Str("foo"), Str("bar"))
	require.NoError(t, err)
	assert.Equal(t, Str("foobar"), v)
}
