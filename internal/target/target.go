// Package target defines the seam between the aggregate-lowering pass and
// a machine back end: the lowered-type and lowered-value representations
// every rewritten term is expressed in, and the Callback interface that is
// the only place ABI decisions live. The pass side (internal/lower) feeds
// a Callback through the ModuleRunner/Runner views of its own rewriters;
// the Callback side answers layout queries and emits the function
// signatures, calls, and returns its ABI requires.
package target

import "tvm/internal/tvm"

// Mode classifies a lowered type: representable as one back-end scalar, an
// ordered list of lowered component types, or an opaque byte blob with
// only a size and alignment.
type Mode int

const (
	// ModeRegister: a single scalar the back end understands (integer,
	// float, or pointer).
	ModeRegister Mode = iota
	// ModeSplit: a finite, ordered list of lowered types handled
	// component-wise.
	ModeSplit
	// ModeBlob: an opaque byte sequence of known size and alignment.
	ModeBlob
)

func (m Mode) String() string {
	switch m {
	case ModeRegister:
		return "register"
	case ModeSplit:
		return "split"
	case ModeBlob:
		return "blob"
	default:
		return "mode(?)"
	}
}

// Type is a lowered type: the pass-side description of how one source tvm
// type is represented after lowering.
type Type struct {
	Mode  Mode
	Size  uint64
	Align uint64
	// Register is the tvm scalar type backing a ModeRegister lowered
	// type, when one exists. An un-split aggregate kept in register mode
	// has no single backing scalar and leaves it nil.
	Register tvm.Value
	// Fields holds the component lowered types of a ModeSplit type, in
	// declaration order.
	Fields []Type
	// Offsets holds each member's byte offset for struct-shaped types,
	// as the Callback's StructLayout computed them. Array-shaped split
	// types leave it empty; FieldOffsets rederives offsets from Fields.
	Offsets []uint64
}

// ValueMode classifies a lowered value: how a rewritten source value's
// runtime data is held between instructions.
type ValueMode int

const (
	// ValueRegister: one scalar tvm term.
	ValueRegister ValueMode = iota
	// ValueSplit: a vector of lowered values, one per Type field.
	ValueSplit
	// ValueZero: all-zero, with no materialized term yet.
	ValueZero
	// ValueUndefined: never written, any bit pattern is acceptable.
	ValueUndefined
	// ValueStack: a pointer to memory holding the value's bytes.
	ValueStack
	// ValueEmpty: no runtime data at all (empty types, phantom
	// parameters).
	ValueEmpty
)

func (m ValueMode) String() string {
	switch m {
	case ValueRegister:
		return "register"
	case ValueSplit:
		return "split"
	case ValueZero:
		return "zero"
	case ValueUndefined:
		return "undefined"
	case ValueStack:
		return "stack"
	case ValueEmpty:
		return "empty"
	default:
		return "value-mode(?)"
	}
}

// Value is a lowered value: a lowered type plus the per-mode payload (a
// scalar term, a field vector, or a memory pointer).
type Value struct {
	LType  Type
	Mode   ValueMode
	Scalar tvm.Value
	Fields []Value
}

// ModuleRunner is the pass-side view a Callback gets for module-level
// work (declaring lowered functions, lowering types without a live
// instruction cursor).
type ModuleRunner interface {
	// Context returns the term store lowered terms are interned into.
	Context() *tvm.Context
	// LowerType returns the lowered representation of a source tvm type.
	LowerType(typ tvm.Value) (Type, error)
}

// Runner extends ModuleRunner with the function-level rewriter state a
// Callback writes through while emitting instructions: the destination
// function, the block the insertion cursor currently sits in, and the
// source-value-to-lowered-value binding map.
type Runner interface {
	ModuleRunner
	// Lowered returns the destination function being built.
	Lowered() *tvm.Function
	// Block returns the block new instructions are appended to.
	Block() *tvm.Block
	// SetBlock moves the insertion cursor to b.
	SetBlock(b *tvm.Block)
	// Bind records the lowered value produced for a source value, so
	// later operand resolution finds it in the current block's state.
	Bind(source tvm.Value, v Value)
}

// Callback is the narrow interface through which all ABI knowledge
// reaches the lowering pass: layout queries answering what a primitive
// or composite type costs in bytes, and codegen operations emitting the
// target-shaped function signatures, parameter bindings, calls, returns,
// and bit-level value conversions.
type Callback interface {
	// ByteLayout returns the size and alignment of the byte type.
	ByteLayout() (size, align uint64)
	// IntegerLayout returns the size and alignment of an integer of the
	// given bit width.
	IntegerLayout(width uint) (size, align uint64)
	// FloatLayout returns the size and alignment of a float of the given
	// bit width.
	FloatLayout(width uint) (size, align uint64)
	// PointerLayout returns the size and alignment of a pointer.
	PointerLayout() (size, align uint64)
	// ArrayLayout returns the size and alignment of length consecutive
	// elements.
	ArrayLayout(element Type, length uint64) (size, align uint64)
	// StructLayout returns the size, alignment, and per-member byte
	// offsets of a struct over the given member types.
	StructLayout(members []Type) (size, align uint64, offsets []uint64)
	// TypeFromAlignment returns a primitive tvm type whose natural
	// alignment is (at least) align, usable to force the alignment of
	// byte-granular stack storage.
	TypeFromAlignment(ctx *tvm.Context, align uint64) (tvm.Value, error)

	// LowerFunction creates the lowered declaration of source with the
	// target-chosen signature.
	LowerFunction(r ModuleRunner, source *tvm.Function) (*tvm.Function, error)
	// LowerFunctionEntry installs parameter bindings for source's
	// parameters into the runner's entry-block state.
	LowerFunctionEntry(r Runner, source, dest *tvm.Function) error
	// LowerFunctionCall emits the lowered call for a source call
	// instruction, marshalling args per the ABI, and returns the lowered
	// result value.
	LowerFunctionCall(r Runner, call *tvm.Instruction, callee tvm.Value, args []Value) (Value, error)
	// LowerReturn emits the lowered return of value, including any sret
	// store.
	LowerReturn(r Runner, value Value) (*tvm.Instruction, error)
	// ConvertValue reinterprets value's bytes under a different lowered
	// type, the store-then-reload bitcast union member access needs.
	ConvertValue(r Runner, value Value, to Type) (Value, error)
}
