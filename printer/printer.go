// Package printer renders an AST back to canonical source text:
// `parse(Print(ast))` is structurally equal to ast (modulo spans and
// map-entry order), per spec.md §4.9.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gloudx/longtable/ast"
)

// Print renders n as canonical, single-line source text.
func Print(n ast.Node) string {
	var b strings.Builder
	write(&b, n)
	return b.String()
}

func write(b *strings.Builder, n ast.Node) {
	switch n.Kind {
	case ast.KindNil:
		b.WriteString("nil")
	case ast.KindBool:
		if n.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case ast.KindInt:
		b.WriteString(strconv.FormatInt(n.Int, 10))
	case ast.KindFloat:
		b.WriteString(formatFloat(n.Float))
	case ast.KindString:
		b.WriteString(quoteString(n.String))
	case ast.KindSymbol:
		b.WriteString(n.String)
	case ast.KindKeyword:
		b.WriteByte(':')
		b.WriteString(n.String)
	case ast.KindList:
		writeSeq(b, '(', ')', n.Items)
	case ast.KindVector:
		writeSeq(b, '[', ']', n.Items)
	case ast.KindSet:
		b.WriteString("#{")
		writeItems(b, n.Items)
		b.WriteByte('}')
	case ast.KindMap:
		b.WriteByte('{')
		for i := 0; i+1 < len(n.Items); i += 2 {
			if i > 0 {
				b.WriteByte(' ')
			}
			write(b, n.Items[i])
			b.WriteByte(' ')
			write(b, n.Items[i+1])
		}
		b.WriteByte('}')
	case ast.KindQuote:
		b.WriteByte('\'')
		write(b, *n.Inner)
	case ast.KindSyntaxQuote:
		b.WriteByte('`')
		write(b, *n.Inner)
	case ast.KindUnquote:
		b.WriteByte('~')
		write(b, *n.Inner)
	case ast.KindUnquoteSplice:
		b.WriteString("~@")
		write(b, *n.Inner)
	case ast.KindTagged:
		b.WriteByte('#')
		b.WriteString(n.String)
		b.WriteByte(' ')
		write(b, *n.Inner)
	default:
		b.WriteString("nil")
	}
}

func writeSeq(b *strings.Builder, open, close byte, items []ast.Node) {
	b.WriteByte(open)
	writeItems(b, items)
	b.WriteByte(close)
}

func writeItems(b *strings.Builder, items []ast.Node) {
	for i, item := range items {
		if i > 0 {
			b.WriteByte(' ')
		}
		write(b, item)
	}
}

// formatFloat prints f with a decimal point always present, appending
// .0 when the shortest round-trippable representation would otherwise
// look like an integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// quoteString escapes ", \, \n, \r, \t and renders any other
// non-graphic control character as \uXXXX.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
