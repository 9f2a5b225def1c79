package vm

import (
	"fmt"

	"github.com/gloudx/longtable/compiler"
	"github.com/gloudx/longtable/langerr"
	"github.com/gloudx/longtable/value"
	"github.com/gloudx/longtable/world"
)

func popArgs(stackP *[]value.Value, argc int32) []value.Value {
	s := *stackP
	n := int(argc)
	args := make([]value.Value, n)
	copy(args, s[len(s)-n:])
	*stackP = s[:len(s)-n]
	return args
}

func toEntityID(v value.Value) world.EntityID {
	ref := v.AsEntity()
	return world.EntityID{Index: ref.Index, Generation: ref.Generation}
}

func toEntityValue(id world.EntityID) value.Value {
	return value.Entity(value.EntityRef{Index: id.Index, Generation: id.Generation})
}

func entityVec(ids []world.EntityID) value.Value {
	items := make([]value.Value, len(ids))
	for i, id := range ids {
		items[i] = toEntityValue(id)
	}
	return value.VecVal(value.VecOf(items...))
}

// execWorldOp implements every World-read/World-write opcode. Read ops
// consult vm.World in place; write ops replace vm.World with the new
// snapshot the corresponding World method returns — per spec.md §4.8,
// every void write op pushes Nil so it still yields a value in
// expression position, and Spawn pushes the new entity ref.
func (vm *VM) execWorldOp(instr compiler.Instr, stackP *[]value.Value) error {
	args := popArgs(stackP, instr.A)

	switch instr.Op {
	case compiler.OpGetComponent:
		entity := toEntityID(args[0])
		if err := vm.World.Validate(entity); err != nil {
			return err
		}
		v, ok := vm.World.GetComponent(entity, args[1].SymbolName())
		if !ok {
			*stackP = append(*stackP, value.Nil)
		} else {
			*stackP = append(*stackP, v)
		}
		return nil

	case compiler.OpGetField:
		entity := toEntityID(args[0])
		if err := vm.World.Validate(entity); err != nil {
			return err
		}
		v, err := vm.World.GetField(entity, args[1].SymbolName(), args[2].SymbolName())
		if err != nil {
			return err
		}
		*stackP = append(*stackP, v)
		return nil

	case compiler.OpWithComponent:
		ids := vm.World.WithComponent(args[0].SymbolName())
		*stackP = append(*stackP, entityVec(ids))
		return nil

	case compiler.OpFindRelationships:
		entity := toEntityID(args[0])
		if err := vm.World.Validate(entity); err != nil {
			return err
		}
		names := vm.World.FindRelationships(entity)
		interner := vm.World.Interner()
		items := make([]value.Value, len(names))
		for i, n := range names {
			items[i] = interner.Kw(n)
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(items...)))
		return nil

	case compiler.OpTargets:
		entity := toEntityID(args[0])
		if err := vm.World.Validate(entity); err != nil {
			return err
		}
		ids := vm.World.Targets(entity, args[1].SymbolName())
		*stackP = append(*stackP, entityVec(ids))
		return nil

	case compiler.OpSources:
		entity := toEntityID(args[0])
		if err := vm.World.Validate(entity); err != nil {
			return err
		}
		ids := vm.World.Sources(entity, args[1].SymbolName())
		*stackP = append(*stackP, entityVec(ids))
		return nil

	case compiler.OpEntityRef:
		var gen uint32
		if len(args) > 1 {
			gen = uint32(args[1].AsInt())
		}
		ref := value.EntityRef{Index: uint64(args[0].AsInt()), Generation: gen}
		*stackP = append(*stackP, value.Entity(ref))
		return nil

	case compiler.OpSpawn:
		next, id := vm.World.Spawn()
		vm.World = next
		if len(args) == 1 {
			if args[0].Kind() != value.KindMap {
				return langerr.TypeMismatch("map", args[0].Kind().String())
			}
			var outErr error
			args[0].AsMap().ForEach(func(k, v value.Value) bool {
				next, err := vm.World.SetComponent(id, k.SymbolName(), v)
				if err != nil {
					outErr = err
					return false
				}
				vm.World = next
				return true
			})
			if outErr != nil {
				return outErr
			}
		}
		*stackP = append(*stackP, toEntityValue(id))
		return nil

	case compiler.OpDestroy:
		entity := toEntityID(args[0])
		next, _, err := vm.World.Destroy(entity)
		if err != nil {
			return err
		}
		vm.World = next
		*stackP = append(*stackP, value.Nil)
		return nil

	case compiler.OpSetComponent:
		entity := toEntityID(args[0])
		next, err := vm.World.SetComponent(entity, args[1].SymbolName(), args[2])
		if err != nil {
			return err
		}
		vm.World = next
		*stackP = append(*stackP, value.Nil)
		return nil

	case compiler.OpSetField:
		entity := toEntityID(args[0])
		next, err := vm.World.SetField(entity, args[1].SymbolName(), args[2].SymbolName(), args[3])
		if err != nil {
			return err
		}
		vm.World = next
		*stackP = append(*stackP, value.Nil)
		return nil

	case compiler.OpLink:
		source := toEntityID(args[0])
		target := toEntityID(args[2])
		var attrs value.Value = value.Nil
		if len(args) > 3 {
			attrs = args[3]
		}
		next, err := vm.World.Link(source, args[1].SymbolName(), target, attrs)
		if err != nil {
			return err
		}
		vm.World = next
		*stackP = append(*stackP, value.Nil)
		return nil

	case compiler.OpUnlink:
		source := toEntityID(args[0])
		target := toEntityID(args[2])
		next, err := vm.World.Unlink(source, args[1].SymbolName(), target)
		if err != nil {
			return err
		}
		vm.World = next
		*stackP = append(*stackP, value.Nil)
		return nil
	}
	return langerr.Internal(fmt.Sprintf("unimplemented world opcode %v", instr.Op))
}

// execRegister decodes the Value map the compiler pooled for a
// declaration and applies it: RegisterComponent/RegisterRelationship
// install a schema on vm.World (mirroring world.go's one-time
// registration pattern); every other Register* opcode stashes the raw
// declaration into vm's inspection registries, since rule/query
// execution semantics are out of the core VM's scope (spec.md's
// Non-goals exclude the rule engine, constraint checker, and query
// planner — only the declaration's *registration* belongs here).
func (vm *VM) execRegister(instr compiler.Instr, stackP *[]value.Value) error {
	v := (*stackP)[len(*stackP)-1]
	*stackP = (*stackP)[:len(*stackP)-1]
	m := v.AsMap()
	interner := vm.World.Interner()

	switch instr.Op {
	case compiler.OpRegisterComponent:
		schema := componentSchemaFromValue(interner, m)
		if err := vm.World.RegisterComponent(schema); err != nil {
			return err
		}
	case compiler.OpRegisterRelationship:
		schema := relationshipSchemaFromValue(interner, m)
		if err := vm.World.RegisterRelationship(schema); err != nil {
			return err
		}
	case compiler.OpRegisterRule:
		vm.Rules = append(vm.Rules, m)
	case compiler.OpRegisterAction:
		vm.Actions = append(vm.Actions, m)
	case compiler.OpRegisterScope:
		vm.Scopes = append(vm.Scopes, m)
	case compiler.OpRegisterVerb:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterDirection:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterPreposition:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterPronoun:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterAdverb:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterType:
		vm.Vocabulary = append(vm.Vocabulary, m)
	case compiler.OpRegisterCommand:
		vm.Vocabulary = append(vm.Vocabulary, m)
	default:
		return langerr.Internal(fmt.Sprintf("unimplemented register opcode %v", instr.Op))
	}
	*stackP = append(*stackP, value.Nil)
	return nil
}

// execHOF folds a callable over a collection by repeated Call+Return,
// per spec.md §4.8's "fold a function over a collection" description.
// Every HOF's arguments were pushed left-to-right by compileHOF: the
// callable first, the collection(s) after (reduce's optional seed
// comes second, before the collection).
func (vm *VM) execHOF(instr compiler.Instr, stackP *[]value.Value, prog *compiler.Program) error {
	args := popArgs(stackP, instr.A)
	fn := args[0]
	if fn.Kind() != value.KindFn {
		return langerr.TypeMismatch("fn", fn.Kind().String())
	}

	call := func(callArgs ...value.Value) (value.Value, error) {
		return vm.callValue(fn, callArgs, prog)
	}

	switch instr.Op {
	case compiler.OpHOFMap:
		items := args[1].AsVec().Slice()
		out := make([]value.Value, len(items))
		for i, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			out[i] = r
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil

	case compiler.OpHOFFilter:
		items := args[1].AsVec().Slice()
		var out []value.Value
		for _, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			if r.Truthy() {
				out = append(out, it)
			}
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil

	case compiler.OpHOFReduce:
		acc := args[1]
		items := args[2].AsVec().Slice()
		for _, it := range items {
			r, err := call(acc, it)
			if err != nil {
				return err
			}
			acc = r
		}
		*stackP = append(*stackP, acc)
		return nil

	case compiler.OpHOFReduceNoInit:
		items := args[1].AsVec().Slice()
		if len(items) == 0 {
			*stackP = append(*stackP, value.Nil)
			return nil
		}
		acc := items[0]
		for _, it := range items[1:] {
			r, err := call(acc, it)
			if err != nil {
				return err
			}
			acc = r
		}
		*stackP = append(*stackP, acc)
		return nil

	case compiler.OpHOFEvery:
		items := args[1].AsVec().Slice()
		for _, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			if !r.Truthy() {
				*stackP = append(*stackP, value.Bool(false))
				return nil
			}
		}
		*stackP = append(*stackP, value.Bool(true))
		return nil

	case compiler.OpHOFSome:
		items := args[1].AsVec().Slice()
		for _, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			if r.Truthy() {
				*stackP = append(*stackP, value.Bool(true))
				return nil
			}
		}
		*stackP = append(*stackP, value.Bool(false))
		return nil

	case compiler.OpHOFTakeWhile:
		items := args[1].AsVec().Slice()
		var out []value.Value
		for _, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			if !r.Truthy() {
				break
			}
			out = append(out, it)
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil

	case compiler.OpHOFDropWhile:
		items := args[1].AsVec().Slice()
		i := 0
		for ; i < len(items); i++ {
			r, err := call(items[i])
			if err != nil {
				return err
			}
			if !r.Truthy() {
				break
			}
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(items[i:]...)))
		return nil

	case compiler.OpHOFRemove:
		items := args[1].AsVec().Slice()
		var out []value.Value
		for _, it := range items {
			r, err := call(it)
			if err != nil {
				return err
			}
			if !r.Truthy() {
				out = append(out, it)
			}
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil

	case compiler.OpHOFGroupBy:
		items := args[1].AsVec().Slice()
		groups := value.EmptyMap()
		for _, it := range items {
			key, err := call(it)
			if err != nil {
				return err
			}
			existing, ok := groups.Get(key)
			var bucket *value.Vec
			if ok {
				bucket = existing.AsVec()
			} else {
				bucket = value.EmptyVec()
			}
			groups = groups.Insert(key, value.VecVal(bucket.Push(it)))
		}
		*stackP = append(*stackP, value.MapVal(groups))
		return nil

	case compiler.OpHOFZipWith:
		a := args[1].AsVec().Slice()
		b := args[2].AsVec().Slice()
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			r, err := call(a[i], b[i])
			if err != nil {
				return err
			}
			out[i] = r
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil

	case compiler.OpHOFRepeatedly:
		n := int(args[1].AsInt())
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			r, err := call()
			if err != nil {
				return err
			}
			out[i] = r
		}
		*stackP = append(*stackP, value.VecVal(value.VecOf(out...)))
		return nil
	}
	return langerr.Internal(fmt.Sprintf("unimplemented HOF opcode %v", instr.Op))
}

// callValue invokes a Fn value with callArgs and returns its single
// result, running it on its own nested frame/stack pair through the
// same exec loop Run uses — used by the HOF opcodes, which call back
// into user code without going through the top-level Run's frame
// stack.
func (vm *VM) callValue(fn value.Value, callArgs []value.Value, prog *compiler.Program) (value.Value, error) {
	f := fn.AsFn()
	if f.Native != nil {
		return f.Native(callArgs)
	}
	entry := prog.Functions[f.FnIndex]
	if len(callArgs) != entry.Arity {
		return value.Nil, langerr.ArityMismatch(entry.Arity, len(callArgs))
	}
	if err := vm.enterActivation(); err != nil {
		return value.Nil, err
	}
	locals := make([]value.Value, entry.LocalsCount)
	copy(locals, callArgs)

	frames := []*execFrame{{code: entry.Code, locals: locals, captures: f.Captures}}
	stack := make([]value.Value, 0, 16)
	return vm.exec(&frames, &stack, prog)
}
