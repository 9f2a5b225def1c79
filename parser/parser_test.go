package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/langerr"
)

func TestParseAtoms(t *testing.T) {
	forms, err := ParseAll(`nil true false 42 -7 3.14 "hi" foo :kw`)
	require.NoError(t, err)
	require.Len(t, forms, 9)
	assert.Equal(t, ast.KindNil, forms[0].Kind)
	assert.Equal(t, ast.KindBool, forms[1].Kind)
	assert.Equal(t, true, forms[1].Bool)
	assert.Equal(t, int64(42), forms[3].Int)
	assert.Equal(t, int64(-7), forms[4].Int)
	assert.InDelta(t, 3.14, forms[5].Float, 1e-9)
	assert.Equal(t, "hi", forms[6].String)
	assert.Equal(t, "foo", forms[7].String)
	assert.Equal(t, "kw", forms[8].String)
}

func TestParseListVectorSetMap(t *testing.T) {
	forms, err := ParseAll(`(1 2) [1 2] #{1 2} {:a 1}`)
	require.NoError(t, err)
	require.Len(t, forms, 4)
	assert.Equal(t, ast.KindList, forms[0].Kind)
	assert.Equal(t, ast.KindVector, forms[1].Kind)
	assert.Equal(t, ast.KindSet, forms[2].Kind)
	assert.Equal(t, ast.KindMap, forms[3].Kind)
	assert.Len(t, forms[3].Items, 2)
}

func TestParseOddMapIsError(t *testing.T) {
	_, err := ParseAll(`{:a 1 :b}`)
	require.Error(t, err)
}

func TestParseUnterminatedListIsError(t *testing.T) {
	_, err := ParseAll(`(1 2`)
	require.Error(t, err)
}

func TestParseUnexpectedClosingDelimiterIsError(t *testing.T) {
	_, err := ParseAll(`)`)
	require.Error(t, err)
}

func TestParseQuoteBacktickUnquote(t *testing.T) {
	forms, err := ParseAll("'x `(a ~b ~@c)")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, ast.KindQuote, forms[0].Kind)
	assert.Equal(t, ast.KindSymbol, forms[0].Inner.Kind)

	sq := forms[1]
	require.Equal(t, ast.KindSyntaxQuote, sq.Kind)
	list := *sq.Inner
	require.Equal(t, ast.KindList, list.Kind)
	require.Len(t, list.Items, 3)
	assert.Equal(t, ast.KindUnquote, list.Items[1].Kind)
	assert.Equal(t, ast.KindUnquoteSplice, list.Items[2].Kind)
}

func TestParseIgnoreDirectiveDiscardsNextForm(t *testing.T) {
	forms, err := ParseAll(`#_ (skip me) kept`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, "kept", forms[0].String)
}

func TestParseTaggedLiteral(t *testing.T) {
	forms, err := ParseAll(`#inst "2024-01-01"`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, ast.KindTagged, forms[0].Kind)
	assert.Equal(t, "inst", forms[0].String)
}

func TestParseCommentsAreSkippedSilently(t *testing.T) {
	forms, err := ParseAll("; a comment\n42 ; trailing\n43")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, int64(42), forms[0].Int)
	assert.Equal(t, int64(43), forms[1].Int)
}

func TestParseNeverPanicsOnRandomInput(t *testing.T) {
	inputs := []string{"", "(", ")", "[", "]", "{", "}", "#{", "#", `"`, "'", "`", "~", "~@"}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			ParseAll(in)
		}, "input %q must not panic", in)
	}
}

func TestParseErrorCarriesLineColumn(t *testing.T) {
	_, err := ParseAll("(ok)\n(bad")
	require.Error(t, err)
	var le *langerr.Error
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 2, le.Context.Line)
	assert.Equal(t, 1, le.Context.Column)
}

func TestSpansCoverWholeForm(t *testing.T) {
	forms, err := ParseAll(`(+ 1 2)`)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, 0, forms[0].Span.Start)
	assert.Equal(t, len(`(+ 1 2)`), forms[0].Span.End)
}
