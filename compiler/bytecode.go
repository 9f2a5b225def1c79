// Package compiler lowers macro-expanded AST into stack-based
// bytecode: constant pool, function table, jump-patched instruction
// streams.
package compiler

import "github.com/gloudx/longtable/value"

// Op identifies a single VM instruction. Operands are encoded inline
// in the Instr that carries the Op, not as separate stream bytes —
// this is an in-memory bytecode representation (a slice of Instr),
// not a serialized byte format; spec.md's "Program binary format" is
// the logical shape this mirrors, not a literal byte layout.
type Op int

const (
	OpNop Op = iota
	OpConst
	OpPop
	OpDup

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	OpNot
	OpAnd
	OpOr

	OpJump
	OpJumpIf
	OpJumpIfNot
	OpCall
	OpCallNative
	OpReturn

	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpLoadBinding
	OpLoadCapture
	OpMakeClosure
	OpPatchCapture

	OpGetComponent
	OpGetField
	OpWithComponent
	OpFindRelationships
	OpTargets
	OpSources
	OpEntityRef

	OpSpawn
	OpDestroy
	OpSetComponent
	OpSetField
	OpLink
	OpUnlink

	OpVecNew
	OpVecPush
	OpVecGet
	OpVecLen
	OpMapNew
	OpMapInsert
	OpMapGet
	OpMapContains
	OpSetNew
	OpSetInsert
	OpSetContains

	OpHOFMap
	OpHOFFilter
	OpHOFReduce
	OpHOFReduceNoInit
	OpHOFEvery
	OpHOFSome
	OpHOFTakeWhile
	OpHOFDropWhile
	OpHOFRemove
	OpHOFGroupBy
	OpHOFZipWith
	OpHOFRepeatedly

	OpPrint

	OpRegisterComponent
	OpRegisterRelationship
	OpRegisterVerb
	OpRegisterDirection
	OpRegisterPreposition
	OpRegisterPronoun
	OpRegisterAdverb
	OpRegisterType
	OpRegisterScope
	OpRegisterCommand
	OpRegisterAction
	OpRegisterRule
)

// Instr is one bytecode instruction: an opcode plus up to two
// operands, whose meaning depends on Op (e.g. A is a constant-pool
// index for OpConst, a slot index for OpLoadLocal, a relative jump
// offset for OpJump, an argument count for OpCall).
type Instr struct {
	Op Op
	A  int32
	B  int32
}

// FunctionEntry is one compiled function: arity, parameter names (for
// diagnostics), its own bytecode body, local-slot count, and the
// ordered names of the outer-scope variables it captures.
type FunctionEntry struct {
	Arity       int
	ParamNames  []string
	Code        []Instr
	LocalsCount int
	Captures    []string
	Name        string // empty for anonymous fn
}

// Program is the compiled artifact: a deduplicated constant pool, a
// function table, and the main bytecode stream.
type Program struct {
	Constants       []value.Value
	Functions       []FunctionEntry
	Main            []Instr
	MainLocalsCount int
}
