// Package lower implements the aggregate-lowering pass: given a concrete
// target.Callback, it rewrites array/struct/union-typed values and the
// metatype operations (sizeof, alignof) that depend on them into the
// register/split/blob representations target.Type describes, and
// resolves every pointer_offset and struct_el_offset to concrete
// byte-granular arithmetic.
package lower

import (
	"tvm/internal/target"
	"tvm/internal/tvm"

	"github.com/google/uuid"
)

// Config selects which aggregate-lowering transforms run, mirroring the
// independent knobs a back end turns on only for the aggregate shapes it
// cannot represent natively.
type Config struct {
	// SplitArrays explodes array_value/array_el into one lowered value per
	// element instead of keeping a single register-mode aggregate.
	SplitArrays bool
	// SplitStructs explodes struct_value/struct_el the same way.
	SplitStructs bool
	// RemoveUnions forces every union type to blob mode: back ends with no
	// native overlapping-storage concept memcpy/bitcast through bytes
	// instead.
	RemoveUnions bool
	// RemoveSizeof resolves every sizeof/alignof to a concrete integer
	// constant at lowering time rather than leaving it as a metatype op
	// for the back end to resolve later.
	RemoveSizeof bool
	// PointerArithmeticToBytes rewrites pointer_offset's implicit
	// "multiply by pointee size" into explicit byte-granular arithmetic
	// over a byte pointer.
	PointerArithmeticToBytes bool
	// FlattenGlobals computes, for every module-level global, a flat
	// layout of its lowered type (leaf after leaf with explicit padding,
	// via a GlobalBuildStatus) and records it in LoweredModule.Flattened.
	// The lowered global's own type and initializer keep their nested
	// shape; they are not rewritten from that layout.
	FlattenGlobals bool
}

// Lowerer holds everything one lowering run needs: the type store to
// intern new terms into, the chosen config, the target callback, and a
// memo table so each tvm type is only analyzed once.
type Lowerer struct {
	ctx    *tvm.Context
	cfg    Config
	cb     target.Callback
	memo   map[tvm.Value]target.Type
	intptr tvm.Value
	byteT  tvm.Value
	fnMap  map[*tvm.Function]*tvm.Function
	runID  uuid.UUID
}

// Context returns the term store this Lowerer builds lowered terms into,
// satisfying target.ModuleRunner/target.Runner for Callback implementations.
func (l *Lowerer) Context() *tvm.Context { return l.ctx }

// RunID identifies this lowering run, for correlating diagnostics between
// the source module and the lowered module it produces.
func (l *Lowerer) RunID() uuid.UUID { return l.runID }

// New creates a Lowerer over ctx using cb to resolve target-dependent
// facts, under cfg.
func New(ctx *tvm.Context, cb target.Callback, cfg Config) (*Lowerer, error) {
	intptr, err := ctx.IntegerType(tvm.PointerWidth, false)
	if err != nil {
		return nil, err
	}
	byteT, err := ctx.ByteType()
	if err != nil {
		return nil, err
	}
	return &Lowerer{
		ctx:    ctx,
		cfg:    cfg,
		cb:     cb,
		runID:  uuid.New(),
		memo:   make(map[tvm.Value]target.Type),
		intptr: intptr,
		byteT:  byteT,
		fnMap:  make(map[*tvm.Function]*tvm.Function),
	}, nil
}

// LowerType computes the target.Type representation of typ, memoized per
// Lowerer so repeated references to the same tvm type (the common case —
// types are hash-consed) are only analyzed once.
func (l *Lowerer) LowerType(typ tvm.Value) (target.Type, error) {
	if lt, ok := l.memo[typ]; ok {
		return lt, nil
	}
	lt, err := l.lowerTypeUncached(typ)
	if err != nil {
		return target.Type{}, err
	}
	l.memo[typ] = lt
	return lt, nil
}

func (l *Lowerer) lowerTypeUncached(typ tvm.Value) (target.Type, error) {
	h, ok := typ.(*tvm.Hashable)
	if !ok {
		return target.Type{}, tvm.Newf(tvm.UnsupportedType, "cannot lower a non-hashable type term")
	}
	switch h.Op {
	case tvm.OpEmptyType:
		return target.Type{Mode: target.ModeRegister, Size: 0, Align: 1, Register: typ}, nil
	case tvm.OpByteType:
		size, align := l.cb.ByteLayout()
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	case tvm.OpBooleanType:
		size, align := l.cb.IntegerLayout(8)
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	}
	return l.lowerTypeSwitch(typ, h)
}

func (l *Lowerer) lowerTypeSwitch(typ tvm.Value, h *tvm.Hashable) (target.Type, error) {
	switch h.Op {
	case tvm.OpIntegerType:
		width, _, _ := tvm.IntegerTypeInfo(typ)
		size, align := l.cb.IntegerLayout(width)
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	case tvm.OpFloatType:
		width, _ := tvm.FloatTypeInfo(typ)
		size, align := l.cb.FloatLayout(width)
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	case tvm.OpPointerType:
		size, align := l.cb.PointerLayout()
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	case tvm.OpArrayType:
		return l.lowerArrayType(typ, h)
	case tvm.OpStructType:
		return l.lowerStructType(h)
	case tvm.OpUnionType:
		return l.lowerUnionType(h)
	default:
		return target.Type{}, tvm.Newf(tvm.UnsupportedType, "lowering does not support type operator %v", h.Op)
	}
}

func (l *Lowerer) lowerArrayType(typ tvm.Value, h *tvm.Hashable) (target.Type, error) {
	elem, err := l.LowerType(h.Operands[0])
	if err != nil {
		return target.Type{}, err
	}
	length, ok := arrayConstLength(h.Operands[1])
	if !ok {
		return target.Type{}, tvm.Newf(tvm.UnsupportedType, "array length is not a compile-time constant")
	}
	size, align := l.cb.ArrayLayout(elem, length)
	if !l.cfg.SplitArrays {
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Register: typ}, nil
	}
	fields := make([]target.Type, length)
	for i := range fields {
		fields[i] = elem
	}
	return target.Type{Mode: target.ModeSplit, Size: size, Align: align, Fields: fields}, nil
}

func (l *Lowerer) lowerStructType(h *tvm.Hashable) (target.Type, error) {
	members := make([]target.Type, len(h.Operands))
	for i, m := range h.Operands {
		lt, err := l.LowerType(m)
		if err != nil {
			return target.Type{}, err
		}
		members[i] = lt
	}
	size, align, offsets := l.cb.StructLayout(members)
	if !l.cfg.SplitStructs {
		return target.Type{Mode: target.ModeRegister, Size: size, Align: align, Offsets: offsets}, nil
	}
	return target.Type{Mode: target.ModeSplit, Size: size, Align: align, Fields: members, Offsets: offsets}, nil
}

func (l *Lowerer) lowerUnionType(h *tvm.Hashable) (target.Type, error) {
	var size, align uint64 = 0, 1
	for _, m := range h.Operands {
		lt, err := l.LowerType(m)
		if err != nil {
			return target.Type{}, err
		}
		if lt.Size > size {
			size = lt.Size
		}
		if lt.Align > align {
			align = lt.Align
		}
	}
	if l.cfg.RemoveUnions {
		return target.Type{Mode: target.ModeBlob, Size: size, Align: align}, nil
	}
	return target.Type{Mode: target.ModeRegister, Size: size, Align: align}, nil
}

func arrayConstLength(v tvm.Value) (uint64, bool) {
	iv, ok := tvm.IntegerValueOf(v)
	if !ok {
		return 0, false
	}
	return iv.UnsignedValue()
}
