package compiler

import (
	"fmt"

	"github.com/gloudx/longtable/ast"
	"github.com/gloudx/longtable/decl"
	"github.com/gloudx/longtable/value"
)

var specialForms = map[string]bool{
	"if": true, "let": true, "do": true, "fn": true, "def": true, "fn:": true,
	"quote": true, "and*": true, "or*": true, "cond*": true,
	"thread-first": true, "thread-last": true, "doto*": true,
}

var arithOps = map[string]Op{"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod}
var compareOps = map[string]Op{"==": OpEq, "!=": OpNe, "<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe}

var hofOps = map[string]Op{
	"map": OpHOFMap, "filter": OpHOFFilter, "reduce": OpHOFReduce,
	"every?": OpHOFEvery, "some": OpHOFSome, "take-while": OpHOFTakeWhile,
	"drop-while": OpHOFDropWhile, "remove": OpHOFRemove, "group-by": OpHOFGroupBy,
	"zip-with": OpHOFZipWith, "repeatedly": OpHOFRepeatedly,
}

var worldOps = map[string]bool{
	"get-component": true, "get-field": true, "with-component": true,
	"find-relationships": true, "targets": true, "sources": true,
	"entity-ref": true, "spawn": true, "destroy": true,
	"set-component": true, "set-field": true, "link": true, "unlink": true,
}

func (c *Compiler) compileList(n ast.Node) error {
	if len(n.Items) == 0 {
		c.cur.emit(OpConst, int32(c.addConst(value.VecVal(value.EmptyVec()))), 0)
		return nil
	}
	if name, ok := n.HeadSymbol(); ok {
		if specialForms[name] {
			return c.compileSpecialForm(name, n)
		}
		if op, ok := arithOps[name]; ok {
			return c.compileChain(n.Items[1:], op, n)
		}
		if op, ok := compareOps[name]; ok {
			return c.compileChain(n.Items[1:], op, n)
		}
		if name == "not" {
			return c.compileUnary(n, OpNot)
		}
		if name == "print" {
			return c.compilePrint(n)
		}
		if op, ok := hofOps[name]; ok {
			return c.compileHOF(n, op)
		}
		if worldOps[name] {
			return c.compileWorldOp(name, n)
		}
		if decl.Markers[name] {
			return compileErr(n, "declaration form used in expression position: "+name)
		}
	}
	return c.compileCall(n)
}

func (c *Compiler) compileUnary(n ast.Node, op Op) error {
	if len(n.Items) != 2 {
		return compileErr(n, "expected exactly one argument")
	}
	if err := c.compileExpr(n.Items[1]); err != nil {
		return err
	}
	if op == OpNot {
		c.cur.emit(OpNot, 0, 0)
	} else {
		c.cur.emit(OpNeg, 0, 0)
	}
	return nil
}

func (c *Compiler) compileChain(args []ast.Node, op Op, n ast.Node) error {
	if op == OpSub && len(args) == 1 {
		return c.compileUnary(n, OpNeg)
	}
	if len(args) < 2 {
		return compileErr(n, "operator requires at least two arguments")
	}
	if err := c.compileExpr(args[0]); err != nil {
		return err
	}
	for _, arg := range args[1:] {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
		c.cur.emit(op, 0, 0)
	}
	return nil
}

func (c *Compiler) compilePrint(n ast.Node) error {
	if len(n.Items) != 2 {
		return compileErr(n, "print expects exactly one argument")
	}
	if err := c.compileExpr(n.Items[1]); err != nil {
		return err
	}
	c.cur.emit(OpPrint, 0, 0)
	c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
	return nil
}

// compileHOF compiles a higher-order-function call. Every HOF takes
// the callable first and the collection(s) after; `reduce` is the one
// exception with a variable shape (with or without a seed), so it
// resolves to one of two dedicated opcodes depending on arg count.
func (c *Compiler) compileHOF(n ast.Node, op Op) error {
	args := n.Items[1:]
	if op == OpHOFReduce && len(args) == 2 {
		op = OpHOFReduceNoInit
	}
	for _, arg := range args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.cur.emit(op, int32(len(args)), 0)
	return nil
}

func (c *Compiler) compileCall(n ast.Node) error {
	if err := c.compileExpr(n.Items[0]); err != nil {
		return err
	}
	for _, arg := range n.Items[1:] {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	c.cur.emit(OpCall, int32(len(n.Items)-1), 0)
	return nil
}

func (c *Compiler) compileSpecialForm(name string, n ast.Node) error {
	switch name {
	case "if":
		return c.compileIf(n)
	case "let":
		return c.compileLet(n)
	case "do":
		return c.compileDo(n.Items[1:])
	case "fn":
		return c.compileFn(n, "")
	case "def":
		return c.compileDef(n)
	case "fn:":
		return c.compileFnColon(n)
	case "quote":
		if len(n.Items) != 2 {
			return compileErr(n, "quote expects exactly one form")
		}
		v := astToValue(n.Items[1], c.session.Interner)
		c.cur.emit(OpConst, int32(c.addConst(v)), 0)
		return nil
	case "and*":
		return c.compileAndStar(n.Items[1:])
	case "or*":
		return c.compileOrStar(n.Items[1:])
	case "cond*":
		return c.compileCondStar(n)
	case "thread-first":
		return c.compileExpr(threadFirst(n.Items[1], n.Items[2:]))
	case "thread-last":
		return c.compileExpr(threadLast(n.Items[1], n.Items[2:]))
	case "doto*":
		return c.compileDoto(n)
	default:
		return compileErr(n, "unimplemented special form: "+name)
	}
}

func (c *Compiler) compileIf(n ast.Node) error {
	if len(n.Items) < 3 || len(n.Items) > 4 {
		return compileErr(n, "if expects (if cond then [else])")
	}
	if err := c.compileExpr(n.Items[1]); err != nil {
		return err
	}
	jf := c.cur.emit(OpJumpIfNot, 0, 0)
	if err := c.compileExpr(n.Items[2]); err != nil {
		return err
	}
	jend := c.cur.emit(OpJump, 0, 0)
	c.cur.patchJump(jf, len(c.cur.code))
	if len(n.Items) == 4 {
		if err := c.compileExpr(n.Items[3]); err != nil {
			return err
		}
	} else {
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
	}
	c.cur.patchJump(jend, len(c.cur.code))
	return nil
}

func (c *Compiler) compileDo(body []ast.Node) error {
	if len(body) == 0 {
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
		return nil
	}
	for i, form := range body {
		if err := c.compileExpr(form); err != nil {
			return err
		}
		if i != len(body)-1 {
			c.cur.emit(OpPop, 0, 0)
		}
	}
	return nil
}

type pendingPatch struct {
	closureSlot int
	letSlot     int
	captureIdx  int
}

func (c *Compiler) compileLet(n ast.Node) error {
	if len(n.Items) < 2 {
		return compileErr(n, "let expects a binding vector")
	}
	bindingsNode := n.Items[1]
	if bindingsNode.Kind != ast.KindVector || len(bindingsNode.Items)%2 != 0 {
		return compileErr(n, "let bindings must be a vector of name/value pairs")
	}
	count := len(bindingsNode.Items) / 2
	names := make([]string, count)
	slots := make([]int, count)
	for i := 0; i < count; i++ {
		nameNode := bindingsNode.Items[i*2]
		if nameNode.Kind != ast.KindSymbol {
			return compileErr(nameNode, "let binding name must be a symbol")
		}
		names[i] = nameNode.String
		slots[i] = c.cur.allocLocal(nameNode.String)
	}

	var patches []pendingPatch
	for i := 0; i < count; i++ {
		valueNode := bindingsNode.Items[i*2+1]
		fnIdx, captures, isFn, err := c.compileValueForLet(valueNode)
		if err != nil {
			return err
		}
		c.cur.emit(OpStoreLocal, int32(slots[i]), 0)
		if isFn {
			for ci, capName := range captures {
				for li, letName := range names {
					if capName == letName {
						patches = append(patches, pendingPatch{closureSlot: slots[i], letSlot: slots[li], captureIdx: ci})
					}
				}
			}
			_ = fnIdx
		}
	}
	for _, p := range patches {
		c.cur.emit(OpLoadLocal, int32(p.closureSlot), 0)
		c.cur.emit(OpLoadLocal, int32(p.letSlot), 0)
		c.cur.emit(OpPatchCapture, int32(p.captureIdx), 0)
		c.cur.emit(OpPop, 0, 0)
	}
	return c.compileDo(n.Items[2:])
}

// compileValueForLet compiles a let binding's value expression,
// reporting whether it was literally a `fn` form so the caller can
// schedule a PatchCapture pass against this let's own bindings.
func (c *Compiler) compileValueForLet(n ast.Node) (fnIndex int, captures []string, isFn bool, err error) {
	if head, ok := n.HeadSymbol(); ok && head == "fn" {
		idx, caps, cerr := c.compileFnValue(n)
		if cerr != nil {
			return 0, nil, false, cerr
		}
		return idx, caps, true, nil
	}
	return 0, nil, false, c.compileExpr(n)
}

// compileFnValue compiles a `fn` form, leaving the resulting closure
// (or pooled constant) on the stack, and returns the function table
// index plus its ordered capture names.
func (c *Compiler) compileFnValue(n ast.Node) (int, []string, error) {
	if len(n.Items) < 2 || n.Items[1].Kind != ast.KindVector {
		return 0, nil, compileErr(n, "fn expects a parameter vector")
	}
	params := n.Items[1]
	paramNames := make([]string, len(params.Items))
	for i, p := range params.Items {
		if p.Kind != ast.KindSymbol {
			return 0, nil, compileErr(p, "fn parameter must be a symbol")
		}
		paramNames[i] = p.String
	}

	child := newFrame(c.cur)
	for _, pn := range paramNames {
		child.allocLocal(pn)
	}
	saved := c.cur
	c.cur = child
	if err := c.compileDo(n.Items[2:]); err != nil {
		c.cur = saved
		return 0, nil, err
	}
	c.cur.emit(OpReturn, 0, 0)
	c.cur = saved

	fnIndex := len(c.functions)
	c.functions = append(c.functions, FunctionEntry{
		Arity:       len(paramNames),
		ParamNames:  paramNames,
		Code:        child.code,
		LocalsCount: child.localsCount,
		Captures:    child.captures,
	})

	if len(child.captures) == 0 {
		v := value.ClosureFn(fnIndex, nil)
		c.cur.emit(OpConst, int32(c.addConst(v)), 0)
		return fnIndex, nil, nil
	}
	for i, capName := range child.captures {
		src := child.captureSrc[i]
		if src.isLocal {
			c.cur.emit(OpLoadLocal, int32(src.index), 0)
		} else {
			c.cur.emit(OpLoadCapture, int32(src.index), 0)
		}
		_ = capName
	}
	c.cur.emit(OpMakeClosure, int32(fnIndex), int32(len(child.captures)))
	return fnIndex, child.captures, nil
}

func (c *Compiler) compileFn(n ast.Node, globalName string) error {
	_, _, err := c.compileFnValue(n)
	return err
}

func (c *Compiler) compileDef(n ast.Node) error {
	if len(n.Items) != 3 || n.Items[1].Kind != ast.KindSymbol {
		return compileErr(n, "def expects (def name value)")
	}
	name := n.Items[1].String
	if _, _, _, err := c.compileValueForLetAt(n.Items[2]); err != nil {
		return err
	}
	slot := c.cur.allocLocal(name)
	c.cur.emit(OpDup, 0, 0)
	c.cur.emit(OpStoreLocal, int32(slot), 0)
	return nil
}

// compileValueForLetAt is compileValueForLet reused outside a let
// binding (def/fn:), where there is no sibling-binding set to patch
// against.
func (c *Compiler) compileValueForLetAt(n ast.Node) (int, []string, bool, error) {
	return c.compileValueForLet(n)
}

func (c *Compiler) compileFnColon(n ast.Node) error {
	if len(n.Items) < 3 {
		return compileErr(n, "fn: expects (fn: name value) or (fn: name [params] body…) or (fn: name \"doc\" [params] body…)")
	}
	if n.Items[1].Kind != ast.KindSymbol {
		return compileErr(n, "fn: name must be a symbol")
	}
	name := n.Items[1].String

	rest := n.Items[2:]
	var doc string
	if rest[0].Kind == ast.KindString && len(rest) > 1 {
		doc = rest[0].String
		rest = rest[1:]
	}

	var value ast.Node
	if len(rest) == 1 {
		value = rest[0]
	} else if rest[0].Kind == ast.KindVector {
		value = ast.List(append([]ast.Node{ast.Symbol("fn", n.Span)}, rest...), n.Span)
	} else {
		return compileErr(n, "fn: malformed body")
	}

	if _, _, _, err := c.compileValueForLetAt(value); err != nil {
		return err
	}
	idx := c.session.globalSlot(name)
	for i := range c.session.GlobalSlots {
		if c.session.GlobalSlots[i].Index == idx {
			c.session.GlobalSlots[i].Doc = doc
		}
	}
	c.cur.emit(OpDup, 0, 0)
	c.cur.emit(OpStoreGlobal, int32(idx), 0)
	return nil
}

func (c *Compiler) compileAndStar(args []ast.Node) error {
	if len(args) == 0 {
		c.cur.emit(OpConst, int32(c.addConst(value.Bool(true))), 0)
		return nil
	}
	var ends []int
	for i, arg := range args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
		if i != len(args)-1 {
			c.cur.emit(OpDup, 0, 0)
			jf := c.cur.emit(OpJumpIfNot, 0, 0)
			c.cur.emit(OpPop, 0, 0)
			ends = append(ends, jf)
		}
	}
	for _, at := range ends {
		c.cur.patchJump(at, len(c.cur.code))
	}
	return nil
}

func (c *Compiler) compileOrStar(args []ast.Node) error {
	if len(args) == 0 {
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
		return nil
	}
	var ends []int
	for i, arg := range args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
		if i != len(args)-1 {
			c.cur.emit(OpDup, 0, 0)
			jt := c.cur.emit(OpJumpIf, 0, 0)
			c.cur.emit(OpPop, 0, 0)
			ends = append(ends, jt)
		}
	}
	for _, at := range ends {
		c.cur.patchJump(at, len(c.cur.code))
	}
	return nil
}

func (c *Compiler) compileCondStar(n ast.Node) error {
	clauses := n.Items[1:]
	if len(clauses)%2 != 0 {
		return compileErr(n, "cond* requires an even number of test/expr forms")
	}
	if len(clauses) == 0 {
		c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
		return nil
	}
	var ends []int
	for i := 0; i < len(clauses); i += 2 {
		if err := c.compileExpr(clauses[i]); err != nil {
			return err
		}
		jf := c.cur.emit(OpJumpIfNot, 0, 0)
		if err := c.compileExpr(clauses[i+1]); err != nil {
			return err
		}
		ends = append(ends, c.cur.emit(OpJump, 0, 0))
		c.cur.patchJump(jf, len(c.cur.code))
	}
	c.cur.emit(OpConst, int32(c.addConst(value.Nil)), 0)
	for _, at := range ends {
		c.cur.patchJump(at, len(c.cur.code))
	}
	return nil
}

// threadFirst/threadLast are AST-level rewrites evaluated before
// compilation, not opcodes of their own.
func threadFirst(subject ast.Node, forms []ast.Node) ast.Node {
	cur := subject
	for _, f := range forms {
		cur = insertArg(f, cur, true)
	}
	return cur
}

func threadLast(subject ast.Node, forms []ast.Node) ast.Node {
	cur := subject
	for _, f := range forms {
		cur = insertArg(f, cur, false)
	}
	return cur
}

func insertArg(form ast.Node, subject ast.Node, first bool) ast.Node {
	if form.Kind == ast.KindSymbol {
		return ast.List([]ast.Node{form, subject}, form.Span)
	}
	if form.Kind != ast.KindList || len(form.Items) == 0 {
		return form
	}
	items := make([]ast.Node, 0, len(form.Items)+1)
	items = append(items, form.Items[0])
	if first {
		items = append(items, subject)
		items = append(items, form.Items[1:]...)
	} else {
		items = append(items, form.Items[1:]...)
		items = append(items, subject)
	}
	return ast.List(items, form.Span)
}

func (c *Compiler) compileDoto(n ast.Node) error {
	if len(n.Items) < 2 {
		return compileErr(n, "doto* expects a subject and forms")
	}
	if err := c.compileExpr(n.Items[1]); err != nil {
		return err
	}
	tempName := fmt.Sprintf("%%doto%d", tempCounter())
	tempSlot := c.cur.allocLocal(tempName)
	c.cur.emit(OpStoreLocal, int32(tempSlot), 0)
	for _, form := range n.Items[2:] {
		rewritten := insertArg(form, ast.Symbol(tempName, form.Span), true)
		if err := c.compileExpr(rewritten); err != nil {
			return err
		}
		c.cur.emit(OpPop, 0, 0)
	}
	c.cur.emit(OpLoadLocal, int32(tempSlot), 0)
	return nil
}

var dotoCounter int

func tempCounter() int {
	dotoCounter++
	return dotoCounter
}

func (c *Compiler) compileWorldOp(name string, n ast.Node) error {
	args := n.Items[1:]
	for _, a := range args {
		if err := c.compileExpr(a); err != nil {
			return err
		}
	}
	argc := int32(len(args))
	switch name {
	case "get-component":
		c.cur.emit(OpGetComponent, argc, 0)
	case "get-field":
		c.cur.emit(OpGetField, argc, 0)
	case "with-component":
		c.cur.emit(OpWithComponent, argc, 0)
	case "find-relationships":
		c.cur.emit(OpFindRelationships, argc, 0)
	case "targets":
		c.cur.emit(OpTargets, argc, 0)
	case "sources":
		c.cur.emit(OpSources, argc, 0)
	case "entity-ref":
		c.cur.emit(OpEntityRef, argc, 0)
	case "spawn":
		c.cur.emit(OpSpawn, argc, 0)
	case "destroy":
		c.cur.emit(OpDestroy, argc, 0)
	case "set-component":
		c.cur.emit(OpSetComponent, argc, 0)
	case "set-field":
		c.cur.emit(OpSetField, argc, 0)
	case "link":
		c.cur.emit(OpLink, argc, 0)
	case "unlink":
		c.cur.emit(OpUnlink, argc, 0)
	}
	return nil
}
