package compiler

import (
	"fmt"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/decl"
	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/macro"
	"github.com/gloudx/longtable/value"
)

// captureSource records how a frame's parent should push the value a
// capture closes over onto the stack when building OpMakeClosure: a
// LoadLocal if the parent holds it directly, or a LoadCapture if the
// parent itself only has it as one of its own captures (multi-level
// nesting).
type captureSource struct {
	isLocal bool
	index   int
}

// frame is one function-compilation scope: the implicit top-level
// Main body is a frame with no parent; every `fn` nests a child frame
// whose locals are its parameters and whose captures are resolved
// on demand against the parent chain, per spec.md §4.7's closure
// capture description.
type frame struct {
	parent *frame

	locals      map[string]int
	localsCount int

	captures     []string
	captureIndex map[string]int
	captureSrc   []captureSource

	code []Instr
}

func newFrame(parent *frame) *frame {
	return &frame{
		parent:       parent,
		locals:       make(map[string]int),
		captureIndex: make(map[string]int),
	}
}

func (f *frame) emit(op Op, a, b int32) int {
	f.code = append(f.code, Instr{Op: op, A: a, B: b})
	return len(f.code) - 1
}

func (f *frame) patchJump(at int, target int) {
	f.code[at].A = int32(target - at - 1)
}

func (f *frame) allocLocal(name string) int {
	idx := f.localsCount
	f.localsCount++
	f.locals[name] = idx
	return idx
}

// ensure makes name available inside f, recursively promoting it to a
// capture through every intermediate frame between f and the frame
// that actually owns it as a local. It returns how f itself holds the
// value: isLocal true means f.locals[name], false means
// f.captureIndex[name].
func ensure(f *frame, name string) (isLocal bool, idx int, ok bool) {
	if idx, ok := f.locals[name]; ok {
		return true, idx, true
	}
	if idx, ok := f.captureIndex[name]; ok {
		return false, idx, true
	}
	if f.parent == nil {
		return false, 0, false
	}
	pIsLocal, pIdx, ok := ensure(f.parent, name)
	if !ok {
		return false, 0, false
	}
	ci := len(f.captures)
	f.captures = append(f.captures, name)
	f.captureIndex[name] = ci
	f.captureSrc = append(f.captureSrc, captureSource{isLocal: pIsLocal, index: pIdx})
	return false, ci, true
}

// Compiler lowers one macro-expanded AST form into bytecode against a
// persistent Session. A Compiler value is cheap and single-use: call
// Compile once per top-level form.
type Compiler struct {
	session *Session

	constants  []value.Value
	constIndex map[string]int

	functions []FunctionEntry

	main *frame
	cur  *frame
}

// NewCompiler creates a one-shot compiler bound to session.
func NewCompiler(session *Session) *Compiler {
	root := newFrame(nil)
	return &Compiler{
		session:    session,
		constIndex: make(map[string]int),
		main:       root,
		cur:        root,
	}
}

// Compile macro-expands and compiles form, returning a Program whose
// Main is the compiled body and whose Constants/Functions are the
// full pool accumulated while compiling it.
func Compile(session *Session, form ast.Node) (*Program, error) {
	expanded, err := macro.Expand(form, session.Macros, session.MaxMacroExpansions)
	if err != nil {
		return nil, err
	}
	c := NewCompiler(session)
	if err := c.compileTopLevel(expanded); err != nil {
		return nil, err
	}
	return &Program{
		Constants:       c.constants,
		Functions:       c.functions,
		Main:            c.main.code,
		MainLocalsCount: c.main.localsCount,
	}, nil
}

func (c *Compiler) compileTopLevel(n ast.Node) error {
	if d, ok, err := tryDecl(n); err != nil {
		return err
	} else if ok {
		return c.compileDecl(d)
	}
	return c.compileExpr(n)
}

func tryDecl(n ast.Node) (*decl.Decl, bool, error) {
	return decl.Analyze(n)
}

func (c *Compiler) constKey(v value.Value) (string, bool) {
	switch v.Kind() {
	case value.KindNil:
		return "nil", true
	case value.KindBool:
		return fmt.Sprintf("b:%v", v.AsBool()), true
	case value.KindInt:
		return fmt.Sprintf("i:%d", v.AsInt()), true
	case value.KindFloat:
		return fmt.Sprintf("f:%x", v.AsFloat()), true
	case value.KindString:
		return "s:" + v.AsString(), true
	case value.KindKeyword:
		return fmt.Sprintf("k:%d", v.SymbolID()), true
	case value.KindSymbol:
		return fmt.Sprintf("y:%d", v.SymbolID()), true
	default:
		return "", false
	}
}

// addConst pools v, deduplicating scalars; collections and functions
// are never shared since two textually identical collection literals
// may be mutated independently by downstream persistent operations.
func (c *Compiler) addConst(v value.Value) int {
	if key, dedup := c.constKey(v); dedup {
		if idx, ok := c.constIndex[key]; ok {
			return idx
		}
		idx := len(c.constants)
		c.constants = append(c.constants, v)
		c.constIndex[key] = idx
		return idx
	}
	idx := len(c.constants)
	c.constants = append(c.constants, v)
	return idx
}

func compileErr(n ast.Node, msg string) error {
	return langerr.ParseError(msg, n.Span.Line, n.Span.Column, "")
}

// compileExpr compiles n so that exactly one value is pushed on the
// stack when execution reaches the next instruction.
func (c *Compiler) compileExpr(n ast.Node) error {
	switch n.Kind {
	case ast.KindNil:
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
		return nil
	case ast.KindBool:
		c.cur.emit(OpConst, int32(c.addConst(value.Bool(n.Bool))), 0)
		return nil
	case ast.KindInt:
		c.cur.emit(OpConst, int32(c.addConst(value.Int(n.Int))), 0)
		return nil
	case ast.KindFloat:
		c.cur.emit(OpConst, int32(c.addConst(value.Float(n.Float))), 0)
		return nil
	case ast.KindString:
		c.cur.emit(OpConst, int32(c.addConst(value.Str(n.String))), 0)
		return nil
	case ast.KindKeyword:
		c.cur.emit(OpConst, int32(c.addConst(c.session.Interner.Kw(n.String))), 0)
		return nil
	case ast.KindSymbol:
		return c.compileSymbolRef(n)
	case ast.KindQuote:
		v := astToValue(*n.Inner, c.session.Interner)
		c.cur.emit(OpConst, int32(c.addConst(v)), 0)
		return nil
	case ast.KindVector:
		return c.compileVectorLiteral(n)
	case ast.KindSet:
		return c.compileSetLiteral(n)
	case ast.KindMap:
		return c.compileMapLiteral(n)
	case ast.KindList:
		return c.compileList(n)
	default:
		return compileErr(n, fmt.Sprintf("cannot compile %v as an expression", n.Kind))
	}
}

func (c *Compiler) compileVectorLiteral(n ast.Node) error {
	c.cur.emit(OpVecNew, 0, 0)
	for _, item := range n.Items {
		if err := c.compileExpr(item); err != nil {
			return err
		}
		c.cur.emit(OpVecPush, 0, 0)
	}
	return nil
}

func (c *Compiler) compileSetLiteral(n ast.Node) error {
	c.cur.emit(OpSetNew, 0, 0)
	for _, item := range n.Items {
		if err := c.compileExpr(item); err != nil {
			return err
		}
		c.cur.emit(OpSetInsert, 0, 0)
	}
	return nil
}

func (c *Compiler) compileMapLiteral(n ast.Node) error {
	c.cur.emit(OpMapNew, 0, 0)
	for i := 0; i+1 < len(n.Items); i += 2 {
		if err := c.compileExpr(n.Items[i]); err != nil {
			return err
		}
		if err := c.compileExpr(n.Items[i+1]); err != nil {
			return err
		}
		c.cur.emit(OpMapInsert, 0, 0)
	}
	return nil
}

// compileSymbolRef resolves a bare symbol through the priority chain:
// local slot, capture (promoting through outer frames as needed),
// namespace alias, refer, and finally a global slot, allocated on
// first sight when the name has none yet.
func (c *Compiler) compileSymbolRef(n ast.Node) error {
	name := n.String
	if isLocal, idx, ok := ensure(c.cur, name); ok {
		if isLocal {
			c.cur.emit(OpLoadLocal, int32(idx), 0)
		} else {
			c.cur.emit(OpLoadCapture, int32(idx), 0)
		}
		return nil
	}
	if qualified, ok := splitQualified(name); ok {
		if full, ok := c.session.resolveQualified(qualified.alias, qualified.name); ok {
			name = full
		}
	}
	if full, ok := c.session.resolveRefer(name); ok {
		name = full
	}
	// A name with no local/capture/alias/refer binding is compiled as
	// a global load regardless of whether it has been `def`ed yet:
	// this allows forward and mutually recursive top-level references
	// within one REPL session. The VM reports UndefinedSymbol at run
	// time if the slot lies past every global slot stored so far; a
	// lower slot that was never stored reads as nil.
	idx := c.session.globalSlot(name)
	c.cur.emit(OpLoadGlobal, int32(idx), 0)
	return nil
}

type qualifiedName struct{ alias, name string }

func splitQualified(name string) (qualifiedName, bool) {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' && i > 0 && i < len(name)-1 {
			return qualifiedName{alias: name[:i], name: name[i+1:]}, true
		}
	}
	return qualifiedName{}, false
}

// astToValue converts a quoted AST form into plain data, per spec.md
// §4.7's quote semantics: lists become Vecs (quoted code is data, not
// a linked list), symbols and keywords become interned Symbol/Keyword
// values, and every other literal converts directly.
func astToValue(n ast.Node, interner *value.Interner) value.Value {
	switch n.Kind {
	case ast.KindNil:
		return value.Nil
	case ast.KindBool:
		return value.Bool(n.Bool)
	case ast.KindInt:
		return value.Int(n.Int)
	case ast.KindFloat:
		return value.Float(n.Float)
	case ast.KindString:
		return value.Str(n.String)
	case ast.KindSymbol:
		return interner.Sym(n.String)
	case ast.KindKeyword:
		return interner.Kw(n.String)
	case ast.KindList, ast.KindVector:
		items := make([]value.Value, len(n.Items))
		for i, it := range n.Items {
			items[i] = astToValue(it, interner)
		}
		return value.VecVal(value.VecOf(items...))
	case ast.KindSet:
		items := make([]value.Value, len(n.Items))
		for i, it := range n.Items {
			items[i] = astToValue(it, interner)
		}
		return value.SetVal(value.SetOf(items...))
	case ast.KindMap:
		m := value.EmptyMap()
		for i := 0; i+1 < len(n.Items); i += 2 {
			k := astToValue(n.Items[i], interner)
			v := astToValue(n.Items[i+1], interner)
			m = m.Insert(k, v)
		}
		return value.MapVal(m)
	case ast.KindQuote, ast.KindSyntaxQuote, ast.KindUnquote, ast.KindUnquoteSplice, ast.KindTagged:
		if n.Inner != nil {
			return astToValue(*n.Inner, interner)
		}
		return value.Nil
	default:
		return value.Nil
	}
}
