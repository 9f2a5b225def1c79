package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/parser"
)

func parseOne(t *testing.T, src string) ast.Node {
	t.Helper()
	forms, err := parser.ParseAll(src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	return forms[0]
}

func TestExpandSimpleMacro(t *testing.T) {
	reg := NewRegistry()
	body := parseOne(t, "`(+ ~a ~b)")
	require.NoError(t, reg.Register(&Def{Name: "add2", Params: []string{"a", "b"}, Body: body}))

	call := parseOne(t, "(add2 1 2)")
	expanded, err := Expand(call, reg, 100)
	require.NoError(t, err)

	want := parseOne(t, "(+ 1 2)")
	assert.True(t, ast.Equal(want, expanded))
}

func TestExpandIsRecursiveUntilFixedPoint(t *testing.T) {
	reg := NewRegistry()
	inc := parseOne(t, "`(+ ~x 1)")
	require.NoError(t, reg.Register(&Def{Name: "inc", Params: []string{"x"}, Body: inc}))
	twice := parseOne(t, "`(inc (inc ~x))")
	require.NoError(t, reg.Register(&Def{Name: "twice-inc", Params: []string{"x"}, Body: twice}))

	call := parseOne(t, "(twice-inc 5)")
	expanded, err := Expand(call, reg, 100)
	require.NoError(t, err)

	want := parseOne(t, "(+ (+ 5 1) 1)")
	assert.True(t, ast.Equal(want, expanded))
}

func TestExpandUnquoteSplice(t *testing.T) {
	reg := NewRegistry()
	body := parseOne(t, "`(do ~@forms)")
	require.NoError(t, reg.Register(&Def{Name: "wrap", Params: []string{"forms"}, Body: body}))

	forms := parseOne(t, "(1 2 3)") // a List stands in for the bound sequence
	call := ast.List([]ast.Node{ast.Symbol("wrap", ast.Span{}), forms}, ast.Span{})

	expanded, err := Expand(call, reg, 100)
	require.NoError(t, err)
	want := parseOne(t, "(do 1 2 3)")
	assert.True(t, ast.Equal(want, expanded))
}

func TestExpandLeavesNonMacroListsStructurallyExpanded(t *testing.T) {
	reg := NewRegistry()
	body := parseOne(t, "`(+ ~x 1)")
	require.NoError(t, reg.Register(&Def{Name: "inc", Params: []string{"x"}, Body: body}))

	call := parseOne(t, "(if true (inc 1) 2)")
	expanded, err := Expand(call, reg, 100)
	require.NoError(t, err)

	want := parseOne(t, "(if true (+ 1 1) 2)")
	assert.True(t, ast.Equal(want, expanded))
}

func TestExpandArityMismatchErrors(t *testing.T) {
	reg := NewRegistry()
	body := parseOne(t, "`(+ ~a ~b)")
	require.NoError(t, reg.Register(&Def{Name: "add2", Params: []string{"a", "b"}, Body: body}))

	call := parseOne(t, "(add2 1)")
	_, err := Expand(call, reg, 100)
	require.Error(t, err)
}

func TestExpandBoundedStepsPreventsRunaway(t *testing.T) {
	reg := NewRegistry()
	loop := parseOne(t, "`(loopy ~x)")
	require.NoError(t, reg.Register(&Def{Name: "loopy", Params: []string{"x"}, Body: loop}))

	call := parseOne(t, "(loopy 1)")
	_, err := Expand(call, reg, 10)
	require.Error(t, err)
}

func TestReservedNameCannotBeRegistered(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(&Def{Name: "if", Params: nil, Body: parseOne(t, "1")})
	require.Error(t, err)
}
