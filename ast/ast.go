// Package ast defines the syntax tree the parser produces: every node
// carries the byte span of the source text it was parsed from, so
// downstream errors (macro expansion, compilation) can report precise
// positions.
package ast

// Span is a half-open byte range [Start, End) into the original
// source, plus the 1-based line/column of Start.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
}

// NodeKind identifies which Node variant is populated.
type NodeKind int

const (
	KindNil NodeKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindKeyword
	KindList
	KindVector
	KindSet
	KindMap
	KindQuote
	KindSyntaxQuote
	KindUnquote
	KindUnquoteSplice
	KindTagged
)

// Node is a single AST node. Exactly the fields relevant to Kind are
// populated; this mirrors the token-kind-tagged-union shape of the
// lexer's Token rather than an interface-per-variant hierarchy, since
// nodes are small, immutable, and compared/walked far more often than
// they are type-switched on anything but Kind.
type Node struct {
	Kind NodeKind
	Span Span

	Bool   bool
	Int    int64
	Float  float64
	String string // also used for Symbol/Keyword names and Tagged's tag name

	Items []Node // List, Vector, Set elements; Map key-value pairs flattened (even length)
	Inner *Node  // Quote, SyntaxQuote, Unquote, UnquoteSplice, Tagged's wrapped form
}

func Nil(span Span) Node                 { return Node{Kind: KindNil, Span: span} }
func Bool(v bool, span Span) Node        { return Node{Kind: KindBool, Bool: v, Span: span} }
func Int(v int64, span Span) Node        { return Node{Kind: KindInt, Int: v, Span: span} }
func Float(v float64, span Span) Node    { return Node{Kind: KindFloat, Float: v, Span: span} }
func Str(v string, span Span) Node       { return Node{Kind: KindString, String: v, Span: span} }
func Symbol(name string, span Span) Node { return Node{Kind: KindSymbol, String: name, Span: span} }
func Keyword(name string, span Span) Node {
	return Node{Kind: KindKeyword, String: name, Span: span}
}

func List(items []Node, span Span) Node   { return Node{Kind: KindList, Items: items, Span: span} }
func Vector(items []Node, span Span) Node { return Node{Kind: KindVector, Items: items, Span: span} }
func Set(items []Node, span Span) Node    { return Node{Kind: KindSet, Items: items, Span: span} }

// Map takes a flattened, even-length key-value sequence.
func Map(items []Node, span Span) Node { return Node{Kind: KindMap, Items: items, Span: span} }

func Quote(inner Node, span Span) Node {
	return Node{Kind: KindQuote, Inner: &inner, Span: span}
}
func SyntaxQuote(inner Node, span Span) Node {
	return Node{Kind: KindSyntaxQuote, Inner: &inner, Span: span}
}
func Unquote(inner Node, span Span) Node {
	return Node{Kind: KindUnquote, Inner: &inner, Span: span}
}
func UnquoteSplice(inner Node, span Span) Node {
	return Node{Kind: KindUnquoteSplice, Inner: &inner, Span: span}
}
func Tagged(tag string, inner Node, span Span) Node {
	return Node{Kind: KindTagged, String: tag, Inner: &inner, Span: span}
}

// IsSymbolNamed reports whether n is a Symbol node with exactly name.
func (n Node) IsSymbolNamed(name string) bool {
	return n.Kind == KindSymbol && n.String == name
}

// HeadSymbol returns the name of n's first element when n is a
// non-empty List whose head is a Symbol, and true; otherwise "", false.
func (n Node) HeadSymbol() (string, bool) {
	if n.Kind != KindList || len(n.Items) == 0 {
		return "", false
	}
	head := n.Items[0]
	if head.Kind != KindSymbol {
		return "", false
	}
	return head.String, true
}

// Equal performs a structural comparison ignoring Span, matching the
// round-trip law `parse(print(ast)) structurally equals ast`.
func Equal(a, b Node) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindString, KindSymbol, KindKeyword:
		return a.String == b.String
	case KindList, KindVector, KindSet, KindMap:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindQuote, KindSyntaxQuote, KindUnquote, KindUnquoteSplice:
		return Equal(*a.Inner, *b.Inner)
	case KindTagged:
		return a.String == b.String && Equal(*a.Inner, *b.Inner)
	default:
		return false
	}
}
