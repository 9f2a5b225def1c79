// Package vm executes a compiled Program against a persistent World:
// a stack-based interpreter with an explicit call-frame stack,
// grounded on the teacher's Tx/BeginTx transaction-scoped execution
// shape (every mutating op returns a new handle rather than mutating
// shared state in place) repurposed from SQL transactions to World
// snapshots.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/gloudx/longtable/compiler"
	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/value"
	"github.com/gloudx/longtable/world"
)

// execFrame is one activation of either the top-level Main body or a
// compiled function: its own bytecode, instruction pointer, local
// slots, and (read-only) captured values.
type execFrame struct {
	code     []compiler.Instr
	ip       int
	locals   []value.Value
	captures []value.Value
}

// VM holds the state that persists across repeated Run calls in a
// REPL session: the live World handle, the global slot table, the
// configured kill-switch limits, and the inspection registries fed by
// the declaration opcodes the rule/query engine is out of scope for
// (spec.md's Non-goals exclude rule scheduling, the constraint
// checker, and the query planner — only registration belongs here).
// A VM is not safe for concurrent use by more than one goroutine at a
// time, the same restriction the teacher's *sql.Tx carries.
type VM struct {
	World   *world.World
	Globals []value.Value
	Limits  Limits
	Stdout  io.Writer

	Rules      []*value.Map
	Actions    []*value.Map
	Scopes     []*value.Map
	Vocabulary []*value.Map

	activations int
	effects     int
}

// New constructs a VM bound to w, with default limits and os.Stdout
// as the `print` sink.
func New(w *world.World) *VM {
	return &VM{World: w, Limits: DefaultLimits(), Stdout: os.Stdout}
}

func (vm *VM) ensureGlobal(idx int) {
	if idx < len(vm.Globals) {
		return
	}
	grown := make([]value.Value, idx+1)
	copy(grown, vm.Globals)
	vm.Globals = grown
}

// Run executes prog's Main body to completion and returns its final
// value — the value left on the stack when the top-level frame runs
// off the end of its instruction stream. A non-nil error means the
// World handle held by vm is unchanged beyond whatever earlier ops in
// the same Run already committed: world-write opcodes take effect by
// replacing vm.World immediately, so a later op's failure does not
// roll back ops that already succeeded in this Run — the caller
// recovers by reverting to a previously retained World snapshot.
func (vm *VM) Run(prog *compiler.Program) (value.Value, error) {
	stack := make([]value.Value, 0, 64)
	frames := []*execFrame{{code: prog.Main, locals: make([]value.Value, prog.MainLocalsCount)}}
	return vm.exec(&frames, &stack, prog)
}

// exec drives *framesP's top frame to completion: Run starts it with
// one frame and nothing to return to; callValue (used by the HOF
// opcodes to invoke a callback) starts it the same way with its own
// private frame/stack pair nested inside the same VM. Returns the
// value left on the stack when the base frame runs off the end of its
// code, or the value it returns when it executes Return.
func (vm *VM) exec(framesP *[]*execFrame, stackP *[]value.Value, prog *compiler.Program) (value.Value, error) {
	baseDepth := len(*framesP) - 1
	for {
		if len(*framesP) == baseDepth {
			stack := *stackP
			return stack[len(stack)-1], nil
		}
		frames := *framesP
		f := frames[len(frames)-1]
		if f.ip >= len(f.code) {
			if len(frames)-1 == baseDepth {
				stack := *stackP
				if len(stack) == 0 {
					return value.Nil, nil
				}
				return stack[len(stack)-1], nil
			}
			return value.Nil, langerr.Internal("function frame fell off the end of its code without a return")
		}
		instr := f.code[f.ip]
		f.ip++
		if err := vm.step(instr, f, framesP, stackP, prog); err != nil {
			return value.Nil, err
		}
	}
}

// step executes one instruction against the current top frame f. Jump
// opcodes mutate f.ip directly; Call/Return push/pop *framesP.
func (vm *VM) step(instr compiler.Instr, f *execFrame, framesP *[]*execFrame, stackP *[]value.Value, prog *compiler.Program) error {
	stack := *stackP
	push := func(v value.Value) { stack = append(stack, v) }
	pop := func() value.Value {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	defer func() { *stackP = stack }()

	switch instr.Op {
	case compiler.OpNop:
		// no-op
	case compiler.OpConst:
		push(prog.Constants[instr.A])
	case compiler.OpPop:
		pop()
	case compiler.OpDup:
		push(stack[len(stack)-1])

	case compiler.OpAdd, compiler.OpSub, compiler.OpMul, compiler.OpDiv, compiler.OpMod:
		b := pop()
		a := pop()
		var res value.Value
		var err error
		switch instr.Op {
		case compiler.OpAdd:
			res, err = value.Add(a, b)
		case compiler.OpSub:
			res, err = value.Sub(a, b)
		case compiler.OpMul:
			res, err = value.Mul(a, b)
		case compiler.OpDiv:
			res, err = value.Div(a, b)
		case compiler.OpMod:
			res, err = value.Mod(a, b)
		}
		if err != nil {
			return err
		}
		push(res)
	case compiler.OpNeg:
		a := pop()
		res, err := value.Neg(a)
		if err != nil {
			return err
		}
		push(res)

	case compiler.OpEq, compiler.OpNe, compiler.OpLt, compiler.OpLe, compiler.OpGt, compiler.OpGe:
		b := pop()
		a := pop()
		res, err := compareOp(instr.Op, a, b)
		if err != nil {
			return err
		}
		push(value.Bool(res))

	case compiler.OpNot:
		a := pop()
		push(value.Bool(!a.Truthy()))
	case compiler.OpAnd:
		b := pop()
		a := pop()
		push(value.Bool(a.Truthy() && b.Truthy()))
	case compiler.OpOr:
		b := pop()
		a := pop()
		push(value.Bool(a.Truthy() || b.Truthy()))

	case compiler.OpJump:
		f.ip += int(instr.A)
	case compiler.OpJumpIf:
		if pop().Truthy() {
			f.ip += int(instr.A)
		}
	case compiler.OpJumpIfNot:
		if !pop().Truthy() {
			f.ip += int(instr.A)
		}

	case compiler.OpCall:
		*stackP = stack
		if err := vm.execCall(framesP, stackP, int(instr.A), prog); err != nil {
			return err
		}
		stack = *stackP
	case compiler.OpReturn:
		ret := pop()
		*framesP = (*framesP)[:len(*framesP)-1]
		push(ret)

	case compiler.OpLoadLocal:
		push(f.locals[instr.A])
	case compiler.OpStoreLocal:
		f.locals[instr.A] = pop()
	case compiler.OpLoadGlobal:
		if int(instr.A) >= len(vm.Globals) {
			return langerr.UndefinedSymbol(fmt.Sprintf("global slot %d", instr.A))
		}
		push(vm.Globals[instr.A])
	case compiler.OpStoreGlobal:
		vm.ensureGlobal(int(instr.A))
		vm.Globals[instr.A] = pop()
	case compiler.OpLoadBinding:
		push(f.locals[instr.A])
	case compiler.OpLoadCapture:
		push(f.captures[instr.A])
	case compiler.OpMakeClosure:
		n := int(instr.B)
		captures := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			captures[i] = pop()
		}
		push(value.ClosureFn(int(instr.A), captures))
	case compiler.OpPatchCapture:
		fresh := pop()
		closure := pop()
		closure.AsFn().Captures[instr.A] = fresh
		push(value.Nil)

	case compiler.OpGetComponent, compiler.OpGetField, compiler.OpWithComponent,
		compiler.OpFindRelationships, compiler.OpTargets, compiler.OpSources, compiler.OpEntityRef,
		compiler.OpSpawn, compiler.OpDestroy, compiler.OpSetComponent, compiler.OpSetField,
		compiler.OpLink, compiler.OpUnlink:
		*stackP = stack
		err := vm.execWorldOp(instr, stackP)
		stack = *stackP
		if err != nil {
			return err
		}

	case compiler.OpVecNew:
		push(value.VecVal(value.EmptyVec()))
	case compiler.OpVecPush:
		item := pop()
		vec := pop()
		push(value.VecVal(vec.AsVec().Push(item)))
	case compiler.OpVecGet:
		idx := pop()
		vec := pop()
		got, ok := vec.AsVec().Get(int(idx.AsInt()))
		if !ok {
			return langerr.IndexOutOfBounds(int(idx.AsInt()), vec.AsVec().Len())
		}
		push(got)
	case compiler.OpVecLen:
		vec := pop()
		push(value.Int(int64(vec.AsVec().Len())))

	case compiler.OpMapNew:
		push(value.MapVal(value.EmptyMap()))
	case compiler.OpMapInsert:
		v := pop()
		k := pop()
		m := pop()
		push(value.MapVal(m.AsMap().Insert(k, v)))
	case compiler.OpMapGet:
		k := pop()
		m := pop()
		got, ok := m.AsMap().Get(k)
		if !ok {
			push(value.Nil)
		} else {
			push(got)
		}
	case compiler.OpMapContains:
		k := pop()
		m := pop()
		push(value.Bool(m.AsMap().Has(k)))

	case compiler.OpSetNew:
		push(value.SetVal(value.EmptySet()))
	case compiler.OpSetInsert:
		v := pop()
		s := pop()
		push(value.SetVal(s.AsSet().Insert(v)))
	case compiler.OpSetContains:
		v := pop()
		s := pop()
		push(value.Bool(s.AsSet().Has(v)))

	case compiler.OpHOFMap, compiler.OpHOFFilter, compiler.OpHOFReduce, compiler.OpHOFReduceNoInit,
		compiler.OpHOFEvery, compiler.OpHOFSome, compiler.OpHOFTakeWhile, compiler.OpHOFDropWhile,
		compiler.OpHOFRemove, compiler.OpHOFGroupBy, compiler.OpHOFZipWith, compiler.OpHOFRepeatedly:
		*stackP = stack
		err := vm.execHOF(instr, stackP, prog)
		stack = *stackP
		if err != nil {
			return err
		}

	case compiler.OpPrint:
		v := pop()
		fmt.Fprintln(vm.Stdout, printValue(v))

	case compiler.OpRegisterComponent, compiler.OpRegisterRelationship, compiler.OpRegisterVerb,
		compiler.OpRegisterDirection, compiler.OpRegisterPreposition, compiler.OpRegisterPronoun,
		compiler.OpRegisterAdverb, compiler.OpRegisterType, compiler.OpRegisterScope,
		compiler.OpRegisterCommand, compiler.OpRegisterAction, compiler.OpRegisterRule:
		*stackP = stack
		err := vm.execRegister(instr, stackP)
		stack = *stackP
		if err != nil {
			return err
		}

	default:
		return langerr.Internal(fmt.Sprintf("unimplemented opcode %v", instr.Op))
	}
	return nil
}

func compareOp(op compiler.Op, a, b value.Value) (bool, error) {
	if op == compiler.OpEq {
		return a.Equal(b), nil
	}
	if op == compiler.OpNe {
		return !a.Equal(b), nil
	}
	cmp, ok := a.Compare(b)
	if !ok {
		return false, langerr.TypeMismatch("comparable", a.Kind().String()+"/"+b.Kind().String())
	}
	switch op {
	case compiler.OpLt:
		return cmp < 0, nil
	case compiler.OpLe:
		return cmp <= 0, nil
	case compiler.OpGt:
		return cmp > 0, nil
	case compiler.OpGe:
		return cmp >= 0, nil
	}
	return false, langerr.Internal("unreachable comparison opcode")
}

// execCall pops the callee and its argc arguments off *stackP and
// either invokes a native directly or pushes a new execFrame onto
// *framesP for a compiled closure, leaving the frame stack to resume
// execution there.
func (vm *VM) execCall(framesP *[]*execFrame, stackP *[]value.Value, argc int, prog *compiler.Program) error {
	stack := *stackP
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}
	callee := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	*stackP = stack

	if callee.Kind() != value.KindFn {
		return langerr.TypeMismatch("fn", callee.Kind().String())
	}
	fn := callee.AsFn()

	if fn.Native != nil {
		res, err := fn.Native(args)
		if err != nil {
			return err
		}
		*stackP = append(*stackP, res)
		return nil
	}

	entry := prog.Functions[fn.FnIndex]
	if len(args) != entry.Arity {
		return langerr.ArityMismatch(entry.Arity, len(args))
	}
	if err := vm.enterActivation(); err != nil {
		return err
	}
	locals := make([]value.Value, entry.LocalsCount)
	copy(locals, args)
	*framesP = append(*framesP, &execFrame{code: entry.Code, locals: locals, captures: fn.Captures})
	return nil
}

// enterActivation counts one closure call against vm.Limits.MaxActivations,
// the only general-purpose guard against unbounded self-recursion (rule
// refire depth and query result counts are separate, narrower limits).
func (vm *VM) enterActivation() error {
	vm.activations++
	if vm.Limits.MaxActivations > 0 && vm.activations > vm.Limits.MaxActivations {
		return langerr.LimitExceeded(langerr.LimitMaxActivations, "fn")
	}
	return nil
}
