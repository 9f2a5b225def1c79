// Package lexer turns UTF-8 source text into a stream of tokens with
// byte offsets and 1-based line/column positions. It never panics: an
// EOF check precedes every character read, and malformed input yields
// an Error token rather than aborting the scan.
package lexer

import "fmt"

// Kind enumerates every token variety the lexer can produce.
type Kind int

const (
	KindLParen Kind = iota
	KindRParen
	KindLBracket
	KindRBracket
	KindLBrace
	KindRBrace
	KindHashBrace // #{
	KindNil
	KindTrue
	KindFalse
	KindInt
	KindFloat
	KindString
	KindSymbol
	KindKeyword
	KindQuote        // '
	KindBacktick     // `
	KindUnquote      // ~
	KindUnquoteSplice // ~@
	KindTag          // #name
	KindComment      // ;... \n
	KindIgnore       // #_
	KindEOF
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLParen:
		return "LParen"
	case KindRParen:
		return "RParen"
	case KindLBracket:
		return "LBracket"
	case KindRBracket:
		return "RBracket"
	case KindLBrace:
		return "LBrace"
	case KindRBrace:
		return "RBrace"
	case KindHashBrace:
		return "HashBrace"
	case KindNil:
		return "Nil"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindString:
		return "String"
	case KindSymbol:
		return "Symbol"
	case KindKeyword:
		return "Keyword"
	case KindQuote:
		return "Quote"
	case KindBacktick:
		return "Backtick"
	case KindUnquote:
		return "Unquote"
	case KindUnquoteSplice:
		return "UnquoteSplice"
	case KindTag:
		return "Tag"
	case KindComment:
		return "Comment"
	case KindIgnore:
		return "Ignore"
	case KindEOF:
		return "EOF"
	case KindError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit. Text holds the literal source text for
// the token's span, except that Keyword and Tag text omit the leading
// ':' or '#', String text is the decoded contents, and Error text is
// the error message.
type Token struct {
	Kind   Kind
	Text   string
	Start  int // byte offset of the first rune
	End    int // byte offset just past the last rune
	Line   int // 1-based
	Column int // 1-based
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d:%d", t.Kind, t.Text, t.Line, t.Column)
}
