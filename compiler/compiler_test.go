package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gloudx/longtable/parser"
	"github.com/gloudx/longtable/value"
)

func compileSrc(t *testing.T, src string) *Program {
	t.Helper()
	forms, err := parser.ParseAll(src)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	session := NewSession(value.NewInterner())
	prog, err := Compile(session, forms[0])
	require.NoError(t, err)
	return prog
}

// assertJumpsInBounds checks the universal invariant that no emitted
// jump's absolute target (ip-after-jump + offset) falls outside its
// own code slice.
func assertJumpsInBounds(t *testing.T, code []Instr) {
	t.Helper()
	for i, instr := range code {
		switch instr.Op {
		case OpJump, OpJumpIf, OpJumpIfNot:
			target := i + 1 + int(instr.A)
			assert.GreaterOrEqual(t, target, 0, "jump at %d targets before code start", i)
			assert.LessOrEqual(t, target, len(code), "jump at %d targets past code end", i)
		}
	}
}

func TestScenarioArithmeticChain(t *testing.T) {
	prog := compileSrc(t, `(+ (* 2 3) (- 10 5))`)
	assertJumpsInBounds(t, prog.Main)

	var sawMul, sawSub, sawAdd bool
	for _, instr := range prog.Main {
		switch instr.Op {
		case OpMul:
			sawMul = true
		case OpSub:
			sawSub = true
		case OpAdd:
			sawAdd = true
		}
	}
	assert.True(t, sawMul, "expected a Mul instruction")
	assert.True(t, sawSub, "expected a Sub instruction")
	assert.True(t, sawAdd, "expected an Add instruction")
}

func TestScenarioConditional(t *testing.T) {
	prog := compileSrc(t, `(if (< 1 2) "yes" "no")`)
	assertJumpsInBounds(t, prog.Main)

	var sawLt, sawJumpIfNot, sawJump bool
	for _, instr := range prog.Main {
		switch instr.Op {
		case OpLt:
			sawLt = true
		case OpJumpIfNot:
			sawJumpIfNot = true
		case OpJump:
			sawJump = true
		}
	}
	assert.True(t, sawLt)
	assert.True(t, sawJumpIfNot)
	assert.True(t, sawJump)
}

func TestScenarioClosureCapture(t *testing.T) {
	prog := compileSrc(t, `((let [y 10] (fn [x] (+ x y))) 5)`)
	assertJumpsInBounds(t, prog.Main)
	require.Len(t, prog.Functions, 1)
	assert.Equal(t, 1, prog.Functions[0].Arity)
	assert.Equal(t, []string{"y"}, prog.Functions[0].Captures)

	var sawMakeClosure, sawCall bool
	for _, instr := range prog.Main {
		switch instr.Op {
		case OpMakeClosure:
			sawMakeClosure = true
		case OpCall:
			sawCall = true
		}
	}
	assert.True(t, sawMakeClosure)
	assert.True(t, sawCall)
}

func TestScenarioRecursiveLetClosure(t *testing.T) {
	prog := compileSrc(t, `(let [f (fn [n] (if (< n 2) n (+ (f (- n 1)) (f (- n 2)))))] (f 6))`)
	assertJumpsInBounds(t, prog.Main)
	require.Len(t, prog.Functions, 1)
	assertJumpsInBounds(t, prog.Functions[0].Code)

	var sawPatchCapture bool
	for _, instr := range prog.Main {
		if instr.Op == OpPatchCapture {
			sawPatchCapture = true
		}
	}
	assert.True(t, sawPatchCapture, "recursive let-bound closure must patch its own capture")
}

func TestScenarioSpawnAndRead(t *testing.T) {
	forms, err := parser.ParseAll(`(component: health :current :int :default 100)
(let [e (spawn {:health {:current 50}})] (get-field e :health :current))`)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	session := NewSession(value.NewInterner())
	_, err = Compile(session, forms[0])
	require.NoError(t, err)

	prog, err := Compile(session, forms[1])
	require.NoError(t, err)
	assertJumpsInBounds(t, prog.Main)

	var sawSpawn, sawGetField bool
	for _, instr := range prog.Main {
		switch instr.Op {
		case OpSpawn:
			sawSpawn = true
		case OpGetField:
			sawGetField = true
		}
	}
	assert.True(t, sawSpawn)
	assert.True(t, sawGetField)
}

func TestScenarioCascadeDestroyCompiles(t *testing.T) {
	forms, err := parser.ParseAll(`(relationship: parent :on-target-delete :cascade)
(destroy e)`)
	require.NoError(t, err)
	require.Len(t, forms, 2)

	session := NewSession(value.NewInterner())
	_, err = Compile(session, forms[0])
	require.NoError(t, err)

	prog, err := Compile(session, forms[1])
	require.NoError(t, err)
	var sawDestroy bool
	for _, instr := range prog.Main {
		if instr.Op == OpDestroy {
			sawDestroy = true
		}
	}
	assert.True(t, sawDestroy)
}

func TestConstantDedupScalars(t *testing.T) {
	prog := compileSrc(t, `(+ 1 1 1)`)
	count := 0
	for _, c := range prog.Constants {
		if c.Kind() == value.KindInt && c.AsInt() == 1 {
			count++
		}
	}
	assert.Equal(t, 1, count, "repeated integer literal 1 must be pooled once")
}

func TestConstantsNotDedupedAcrossKinds(t *testing.T) {
	prog := compileSrc(t, `(+ 1 1.0)`)
	var sawInt, sawFloat bool
	for _, c := range prog.Constants {
		if c.Kind() == value.KindInt && c.AsInt() == 1 {
			sawInt = true
		}
		if c.Kind() == value.KindFloat && c.AsFloat() == 1.0 {
			sawFloat = true
		}
	}
	assert.True(t, sawInt)
	assert.True(t, sawFloat)
}

func TestUndefinedGlobalCompilesAsLoadGlobal(t *testing.T) {
	// A name with no local/capture/alias/refer binding compiles as a
	// forward global load, deferring UndefinedSymbol to run time so
	// mutually recursive top-level defs can reference each other.
	prog := compileSrc(t, `not-yet-defined`)
	require.Len(t, prog.Main, 1)
	assert.Equal(t, OpLoadGlobal, prog.Main[0].Op)
}
