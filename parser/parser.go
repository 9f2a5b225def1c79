// Package parser implements a recursive-descent reader with one-token
// lookahead over the lexer's token stream, producing an ast.Node tree.
// It never panics: every malformed input produces a *langerr.Error
// carrying line/column/context instead.
package parser

import (
	"strconv"
	"strings"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/lexer"
)

// Parser holds a lookahead token and the full source (for error
// context lines).
type Parser struct {
	lx      *lexer.Lexer
	source  string
	current lexer.Token
}

// New constructs a Parser positioned at the first non-trivia token.
func New(source string) *Parser {
	p := &Parser{lx: lexer.New(source), source: source}
	p.advance()
	return p
}

// advance fetches the next token from the lexer, silently skipping
// Comment tokens (trivia per spec).
func (p *Parser) advance() {
	for {
		t := p.lx.Next()
		if t.Kind == lexer.KindComment {
			continue
		}
		p.current = t
		return
	}
}

func (p *Parser) errorAt(t lexer.Token, message string) error {
	return langerr.ParseError(message, t.Line, t.Column, p.sourceLine(t.Line))
}

func (p *Parser) sourceLine(line int) string {
	lines := strings.Split(p.source, "\n")
	if line-1 >= 0 && line-1 < len(lines) {
		return lines[line-1]
	}
	return ""
}

func span(start lexer.Token, endPos int) ast.Span {
	return ast.Span{Start: start.Start, End: endPos, Line: start.Line, Column: start.Column}
}

// ParseAll reads every top-level form until EOF.
func ParseAll(source string) ([]ast.Node, error) {
	p := New(source)
	var forms []ast.Node
	for p.current.Kind != lexer.KindEOF {
		n, err := p.ParseForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, n)
	}
	return forms, nil
}

// ParseForm parses exactly one top-level form, handling `#_` discard
// directives by parsing and dropping the next form, then parsing and
// returning the form that follows.
func (p *Parser) ParseForm() (ast.Node, error) {
	if p.current.Kind == lexer.KindIgnore {
		p.advance()
		if _, err := p.ParseForm(); err != nil {
			return ast.Node{}, err
		}
		return p.ParseForm()
	}

	start := p.current

	switch start.Kind {
	case lexer.KindEOF:
		return ast.Node{}, p.errorAt(start, "unexpected EOF, expected a form")
	case lexer.KindError:
		return ast.Node{}, p.errorAt(start, "lex error: "+start.Text)
	case lexer.KindNil:
		p.advance()
		return ast.Nil(span(start, start.End)), nil
	case lexer.KindTrue:
		p.advance()
		return ast.Bool(true, span(start, start.End)), nil
	case lexer.KindFalse:
		p.advance()
		return ast.Bool(false, span(start, start.End)), nil
	case lexer.KindInt:
		p.advance()
		v, err := strconv.ParseInt(start.Text, 10, 64)
		if err != nil {
			return ast.Node{}, p.errorAt(start, "malformed int: "+start.Text)
		}
		return ast.Int(v, span(start, start.End)), nil
	case lexer.KindFloat:
		p.advance()
		v, err := strconv.ParseFloat(start.Text, 64)
		if err != nil {
			return ast.Node{}, p.errorAt(start, "malformed float: "+start.Text)
		}
		return ast.Float(v, span(start, start.End)), nil
	case lexer.KindString:
		p.advance()
		return ast.Str(start.Text, span(start, start.End)), nil
	case lexer.KindSymbol:
		p.advance()
		return ast.Symbol(start.Text, span(start, start.End)), nil
	case lexer.KindKeyword:
		p.advance()
		return ast.Keyword(start.Text, span(start, start.End)), nil
	case lexer.KindTag:
		p.advance()
		inner, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.Tagged(start.Text, inner, span(start, inner.Span.End)), nil
	case lexer.KindQuote:
		p.advance()
		inner, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.Quote(inner, span(start, inner.Span.End)), nil
	case lexer.KindBacktick:
		p.advance()
		inner, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.SyntaxQuote(inner, span(start, inner.Span.End)), nil
	case lexer.KindUnquote:
		p.advance()
		inner, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.Unquote(inner, span(start, inner.Span.End)), nil
	case lexer.KindUnquoteSplice:
		p.advance()
		inner, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		return ast.UnquoteSplice(inner, span(start, inner.Span.End)), nil
	case lexer.KindLParen:
		return p.parseSeq(lexer.KindRParen, ast.List, start)
	case lexer.KindLBracket:
		return p.parseSeq(lexer.KindRBracket, ast.Vector, start)
	case lexer.KindHashBrace:
		return p.parseSeq(lexer.KindRBrace, ast.Set, start)
	case lexer.KindLBrace:
		return p.parseMap(start)
	case lexer.KindRParen, lexer.KindRBracket, lexer.KindRBrace:
		return ast.Node{}, p.errorAt(start, "unexpected closing delimiter")
	default:
		return ast.Node{}, p.errorAt(start, "unexpected token")
	}
}

func (p *Parser) parseSeq(closer lexer.Kind, build func([]ast.Node, ast.Span) ast.Node, open lexer.Token) (ast.Node, error) {
	p.advance() // consume opener
	var items []ast.Node
	for {
		if p.current.Kind == lexer.KindEOF {
			return ast.Node{}, p.errorAt(open, "unterminated form, expected closing delimiter")
		}
		if p.current.Kind == closer {
			end := p.current.End
			p.advance()
			return build(items, span(open, end)), nil
		}
		item, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		items = append(items, item)
	}
}

func (p *Parser) parseMap(open lexer.Token) (ast.Node, error) {
	p.advance() // consume '{'
	var items []ast.Node
	for {
		if p.current.Kind == lexer.KindEOF {
			return ast.Node{}, p.errorAt(open, "unterminated map, expected closing delimiter")
		}
		if p.current.Kind == lexer.KindRBrace {
			end := p.current.End
			p.advance()
			if len(items)%2 != 0 {
				return ast.Node{}, p.errorAt(open, "map literal must have an even number of forms")
			}
			return ast.Map(items, span(open, end)), nil
		}
		item, err := p.ParseForm()
		if err != nil {
			return ast.Node{}, err
		}
		items = append(items, item)
	}
}
