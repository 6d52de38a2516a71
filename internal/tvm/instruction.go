package tvm

// InstrOp is the closed catalogue of block-local instructions (§4.5). Every
// block's instruction list ends in exactly one of the terminator ops
// (Return, CondBranch, Branch, Unreachable).
type InstrOp int

const (
	InstrReturn InstrOp = iota
	InstrCondBranch
	InstrBranch
	InstrUnreachable
	InstrEvaluate
	InstrCall
	InstrStore
	InstrLoad
	InstrAlloca
	InstrStackSave
	InstrStackRestore
	InstrMemcpy
	InstrMemzero
	InstrSolidify
)

var instrNames = map[InstrOp]string{
	InstrReturn:       "return",
	InstrCondBranch:   "cond_br",
	InstrBranch:       "br",
	InstrUnreachable:  "unreachable",
	InstrEvaluate:     "evaluate",
	InstrCall:         "call",
	InstrStore:        "store",
	InstrLoad:         "load",
	InstrAlloca:       "alloca",
	InstrStackSave:    "stack_save",
	InstrStackRestore: "stack_restore",
	InstrMemcpy:       "memcpy",
	InstrMemzero:      "memzero",
	InstrSolidify:     "solidify",
}

func (op InstrOp) String() string {
	if n, ok := instrNames[op]; ok {
		return n
	}
	return "instr(?)"
}

func (op InstrOp) isTerminator() bool {
	switch op {
	case InstrReturn, InstrCondBranch, InstrBranch, InstrUnreachable:
		return true
	default:
		return false
	}
}

// Instruction is a distinct term: one non-phi, non-terminal-or-terminal
// operation inside a block's ordered instruction list. Args holds operands
// in a per-Op fixed layout:
//
//	Return:        [value]
//	CondBranch:    [cond, trueBlock, falseBlock]
//	Branch:        [targetBlock]
//	Unreachable:   []
//	Evaluate:      [value]             (side-effect-only use of value)
//	Call:          [callee, arg...]
//	Store:         [pointer, value]
//	Load:          [pointer]
//	Alloca:        [elementType]       (the instruction's own type is a pointer to it)
//	StackSave:     []
//	StackRestore:  [state]
//	Memcpy:        [dest, src, count, alignment]
//	Memzero:       [dest, count, alignment]
//	Solidify:      [value]
type Instruction struct {
	base
	Op    InstrOp
	Block *Block
	Index int
	Args  []Value
}

// NewAlloca appends an alloca instruction: it reserves stack storage for
// one value of elementType and yields a pointer to it.
func (b *Block) NewAlloca(elementType Value) (*Instruction, error) {
	if !elementType.IsType() {
		return nil, badType("alloca element type must be a type, got category %s", elementType.Category())
	}
	ptrType, err := b.ctx.PointerType(elementType)
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrAlloca, ptrType, elementType)
}

// NewLoad appends a load instruction reading *ptr.
func (b *Block) NewLoad(ptr Value) (*Instruction, error) {
	h, ok := ptr.Type().(*Hashable)
	if !ok || h.Op != OpPointerType {
		return nil, badType("load requires a pointer operand, got type %v", ptr.Type())
	}
	return b.AppendInstruction(InstrLoad, h.Operands[0], ptr)
}

// NewStore appends a store instruction writing value into *ptr. It returns
// the empty-typed instruction (stores have no result).
func (b *Block) NewStore(ptr, value Value) (*Instruction, error) {
	h, ok := ptr.Type().(*Hashable)
	if !ok || h.Op != OpPointerType {
		return nil, badType("store requires a pointer operand, got type %v", ptr.Type())
	}
	if h.Operands[0] != value.Type() {
		return nil, badType("store value type does not match pointee type")
	}
	et, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrStore, et, ptr, value)
}

// NewCall appends a call instruction. callee's type must be (or decay to) a
// function type; the result type is the function's declared result type.
func (b *Block) NewCall(callee Value, args ...Value) (*Instruction, error) {
	ft, ok := functionTypeOf(callee)
	if !ok {
		return nil, badType("call requires a function-typed callee")
	}
	want := len(ft.Operands) - 1
	if len(args) != want {
		return nil, badType("call to %v expects %d arguments, got %d", callee, want, len(args))
	}
	for i, a := range args {
		if a.Type() != ft.Operands[i+1] {
			return nil, badType("call argument %d type mismatch", i)
		}
	}
	operands := append([]Value{callee}, args...)
	return b.AppendInstruction(InstrCall, ft.Operands[0], operands...)
}

func functionTypeOf(v Value) (*Hashable, bool) {
	t := v.Type()
	if h, ok := t.(*Hashable); ok {
		if h.Op == OpFunctionType {
			return h, true
		}
		if h.Op == OpPointerType {
			if inner, ok := h.Operands[0].(*Hashable); ok && inner.Op == OpFunctionType {
				return inner, true
			}
		}
	}
	return nil, false
}

// NewReturn appends a return terminator.
func (b *Block) NewReturn(value Value) (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrReturn, nt, value)
}

// NewBranch appends an unconditional-branch terminator to target.
func (b *Block) NewBranch(target *Block) (*Instruction, error) {
	if target.Fn != b.Fn {
		return nil, sourceMismatch("branch from %q targets block %q in a different function", b.Name, target.Name)
	}
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrBranch, nt, target)
}

// NewCondBranch appends a conditional-branch terminator.
func (b *Block) NewCondBranch(cond Value, onTrue, onFalse *Block) (*Instruction, error) {
	if onTrue.Fn != b.Fn || onFalse.Fn != b.Fn {
		return nil, sourceMismatch("cond_br from %q targets a block in a different function", b.Name)
	}
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrCondBranch, nt, cond, onTrue, onFalse)
}

// NewUnreachable appends an unreachable terminator.
func (b *Block) NewUnreachable() (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrUnreachable, nt)
}

// NewMemcpy appends a memcpy instruction copying count bytes (with the
// given alignment) from src to dest.
func (b *Block) NewMemcpy(dest, src, count, alignment Value) (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrMemcpy, nt, dest, src, count, alignment)
}

// NewMemzero appends a memzero instruction zeroing count bytes (with the
// given alignment) at dest.
func (b *Block) NewMemzero(dest, count, alignment Value) (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrMemzero, nt, dest, count, alignment)
}

// NewStackSave appends an instruction capturing the current stack pointer
// state, for a later NewStackRestore to unwind allocas back to.
func (b *Block) NewStackSave(stateType Value) (*Instruction, error) {
	return b.AppendInstruction(InstrStackSave, stateType)
}

// NewStackRestore appends an instruction unwinding the stack back to state.
func (b *Block) NewStackRestore(state Value) (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrStackRestore, nt, state)
}

// NewEvaluate appends an instruction that evaluates v purely for its
// side effects (phantom-erasure and call-like ops with unused results use
// this to stay reachable in the block's instruction list).
func (b *Block) NewEvaluate(v Value) (*Instruction, error) {
	nt, err := b.ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return b.AppendInstruction(InstrEvaluate, nt, v)
}

// NewSolidify appends an instruction that forces an otherwise-phantom value
// to materialize at runtime, e.g. to observe a type's size.
func (b *Block) NewSolidify(v Value, resultType Value) (*Instruction, error) {
	return b.AppendInstruction(InstrSolidify, resultType, v)
}
