package printer

import (
	"testing"

	"github.com/gloudx/longtable/ast"
)

var zero ast.Span

func TestPrintScalars(t *testing.T) {
	cases := []struct {
		n    ast.Node
		want string
	}{
		{ast.Nil(zero), "nil"},
		{ast.Bool(true, zero), "true"},
		{ast.Bool(false, zero), "false"},
		{ast.Int(42, zero), "42"},
		{ast.Int(-17, zero), "-17"},
		{ast.Float(3.14, zero), "3.14"},
		{ast.Float(2, zero), "2.0"},
		{ast.Str("hello\n", zero), "\"hello\\n\""},
		{ast.Symbol("foo", zero), "foo"},
		{ast.Symbol("ns/baz", zero), "ns/baz"},
		{ast.Keyword("keyword", zero), ":keyword"},
	}
	for _, c := range cases {
		if got := Print(c.n); got != c.want {
			t.Errorf("Print(%v) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestPrintCollections(t *testing.T) {
	list := ast.List([]ast.Node{ast.Symbol("+", zero), ast.Int(1, zero), ast.Int(2, zero)}, zero)
	if got, want := Print(list), "(+ 1 2)"; got != want {
		t.Errorf("Print(list) = %q, want %q", got, want)
	}

	vec := ast.Vector([]ast.Node{ast.Symbol("a", zero), ast.Symbol("b", zero)}, zero)
	if got, want := Print(vec), "[a b]"; got != want {
		t.Errorf("Print(vec) = %q, want %q", got, want)
	}

	set := ast.Set([]ast.Node{ast.Int(1, zero)}, zero)
	if got, want := Print(set), "#{1}"; got != want {
		t.Errorf("Print(set) = %q, want %q", got, want)
	}

	m := ast.Map([]ast.Node{ast.Keyword("k", zero), ast.Int(1, zero)}, zero)
	if got, want := Print(m), "{:k 1}"; got != want {
		t.Errorf("Print(map) = %q, want %q", got, want)
	}
}

func TestPrintReaderMacros(t *testing.T) {
	x := ast.Symbol("x", zero)
	cases := []struct {
		n    ast.Node
		want string
	}{
		{ast.Quote(x, zero), "'x"},
		{ast.SyntaxQuote(x, zero), "`x"},
		{ast.Unquote(x, zero), "~x"},
		{ast.UnquoteSplice(x, zero), "~@x"},
		{ast.Tagged("tag", x, zero), "#tag x"},
	}
	for _, c := range cases {
		if got := Print(c.n); got != c.want {
			t.Errorf("Print(%v) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestPrintStringEscaping(t *testing.T) {
	raw := "tab\tquote\"back\\slash" + string(rune(1))
	s := ast.Str(raw, zero)
	want := "\"tab\\tquote\\\"back\\\\slash\\u0001\""
	if got := Print(s); got != want {
		t.Errorf("Print(s) = %q, want %q", got, want)
	}
}
