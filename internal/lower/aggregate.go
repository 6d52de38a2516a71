package lower

import (
	"tvm/internal/target"
	"tvm/internal/tvm"
)

// resolve looks a source operand up against state (the live per-block
// map for an instruction currently being rewritten, or a predecessor's
// saved map for a phi edge wired after the fact). Three shapes reach
// here:
//
//   - an instruction result, a phi, or a function parameter: already
//     bound in state by the time anything references it.
//   - a true module-level constant (source is nil all the way down):
//     lowered once via Lowerer.LowerValue, which rewrites
//     sizeof/alignof/struct_el_offset/pointer_offset, folds element
//     selection out of constant aggregates, and otherwise only rebuilds
//     terms from their lowered operands.
//   - a functional expression that is not itself bound but transitively
//     depends on something that is (a struct_el/array_el/arithmetic/
//     comparison/pointer op applied to a parameter or instruction
//     result): recursed into field-by-field or operand-by-operand, the
//     same way LowerValue recurses for the all-constant case, except the
//     leaves bottom out in state instead of in unchanged pass-through.
func (fr *functionRewriter) resolve(state map[tvm.Value]target.Value, v tvm.Value) (target.Value, error) {
	if lv, ok := state[v]; ok {
		return lv, nil
	}
	if v.Global() {
		return fr.resolveGlobal(v)
	}
	h, ok := v.(*tvm.Hashable)
	if !ok {
		return target.Value{}, tvm.Newf(tvm.Internal, "no lowered binding recorded for local term %v", v)
	}
	return fr.resolveLocalExpr(state, h)
}

// resolveGlobal lowers a true module-level constant.
func (fr *functionRewriter) resolveGlobal(v tvm.Value) (target.Value, error) {
	lt, err := fr.l.LowerType(v.Type())
	if err != nil {
		return target.Value{}, err
	}
	rewritten, err := fr.l.LowerValue(v)
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: rewritten}, nil
}

// resolveLocalExpr rewrites a functional expression that transitively
// references a parameter, instruction result, or phi against state.
func (fr *functionRewriter) resolveLocalExpr(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	switch h.Op {
	case tvm.OpStructElement:
		return fr.localStructElement(state, h)
	case tvm.OpArrayElement:
		return fr.localArrayElement(state, h)
	case tvm.OpStructElementPtr:
		return fr.localStructElementPtr(state, h)
	case tvm.OpArrayElementPtr:
		return fr.localArrayElementPtr(state, h)
	case tvm.OpUnionElement:
		return fr.localUnionElement(state, h)
	case tvm.OpUnionElementPtr:
		return fr.localUnionElementPtr(state, h)
	case tvm.OpStructValue, tvm.OpArrayValue:
		return fr.localAggregateValue(state, h)
	case tvm.OpUnionValue:
		return fr.localUnionValue(state, h)
	case tvm.OpSizeOf, tvm.OpAlignOf:
		return fr.localSizeAlign(state, h)
	case tvm.OpStructElementOffset:
		return fr.localStructOffset(state, h)
	case tvm.OpPointerOffset:
		return fr.localPointerOffset(state, h)
	default:
		return fr.localScalarOp(state, h)
	}
}

// localStructElement reads a compile-time-constant member out of an
// already-resolved struct operand: directly from Fields when the struct
// is split, otherwise by spilling to memory and reading the member's
// byte offset back out.
func (fr *functionRewriter) localStructElement(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	base, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	index, _ := tvm.ConstantElementIndex(h)
	if base.Mode == target.ValueSplit {
		if index < 0 || index >= len(base.Fields) {
			return target.Value{}, tvm.Newf(tvm.Internal, "struct_el index %d out of range", index)
		}
		return base.Fields[index], nil
	}
	elemLT, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	ptr, err := fr.materializePointer(base)
	if err != nil {
		return target.Value{}, err
	}
	offsets := target.FieldOffsets(base.LType)
	if index < 0 || index >= len(offsets) {
		return target.Value{}, tvm.Newf(tvm.Internal, "struct_el index %d out of range", index)
	}
	fieldPtr, err := fr.bytePointerAt(ptr, offsets[index])
	if err != nil {
		return target.Value{}, err
	}
	return target.LoadTree(fr, fieldPtr, elemLT)
}

// localArrayElement reads a runtime-indexed array element: always
// through memory, since a runtime index cannot pick a split-mode Fields
// entry at compile time.
func (fr *functionRewriter) localArrayElement(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	base, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	idx, err := fr.resolve(state, h.Operands[1])
	if err != nil {
		return target.Value{}, err
	}
	elemLT, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	ptr, err := fr.materializePointer(base)
	if err != nil {
		return target.Value{}, err
	}
	advanced, err := fr.scaledOffset(ptr, idx.Scalar, elemLT.Size)
	if err != nil {
		return target.Value{}, err
	}
	return target.LoadTree(fr, advanced, elemLT)
}

// pointeeType returns the pointee type of a pointer-typed value ptr.
func pointeeType(ptr tvm.Value) (tvm.Value, error) {
	h, ok := ptr.Type().(*tvm.Hashable)
	if !ok || h.Op != tvm.OpPointerType {
		return nil, tvm.Newf(tvm.BadType, "expected a pointer-typed operand")
	}
	return h.Operands[0], nil
}

// localStructElementPtr computes a field pointer without loading through
// it: the result stays a byte pointer regardless of the member's own
// type, since every eventual consumer (a further *ElementPtr, a Load, a
// Store) re-casts to the precise scalar type it needs at the point of
// use.
func (fr *functionRewriter) localStructElementPtr(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	basePtr, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	pointee, err := pointeeType(h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	structLT, err := fr.l.LowerType(pointee)
	if err != nil {
		return target.Value{}, err
	}
	index, _ := tvm.ConstantElementIndex(h)
	offsets := target.FieldOffsets(structLT)
	if index < 0 || index >= len(offsets) {
		return target.Value{}, tvm.Newf(tvm.Internal, "struct_el_ptr index %d out of range", index)
	}
	fieldPtr, err := fr.bytePointerAt(basePtr.Scalar, offsets[index])
	if err != nil {
		return target.Value{}, err
	}
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: fieldPtr}, nil
}

// localArrayElementPtr is localStructElementPtr's runtime-indexed
// counterpart.
func (fr *functionRewriter) localArrayElementPtr(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	basePtr, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	pointee, err := pointeeType(h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	arrH, ok := pointee.(*tvm.Hashable)
	if !ok || arrH.Op != tvm.OpArrayType {
		return target.Value{}, tvm.Newf(tvm.BadType, "array_el_ptr requires an array pointee")
	}
	elemLT, err := fr.l.LowerType(arrH.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	idx, err := fr.resolve(state, h.Operands[1])
	if err != nil {
		return target.Value{}, err
	}
	advanced, err := fr.scaledOffset(basePtr.Scalar, idx.Scalar, elemLT.Size)
	if err != nil {
		return target.Value{}, err
	}
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: advanced}, nil
}

// localUnionElement and localUnionValue both reduce to the Callback's
// ConvertValue: reading a member out of a union value reinterprets the
// whole union as that member's type, and building a union value
// reinterprets the member as the union's own (widest) type. Neither
// needs to know the union's Mode (register or blob) — ConvertValue
// handles both via the same spill-and-reload primitive.
func (fr *functionRewriter) localUnionElement(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	base, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	memberLT, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return fr.cb.ConvertValue(fr, base, memberLT)
}

func (fr *functionRewriter) localUnionValue(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	inner, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return fr.cb.ConvertValue(fr, inner, lt)
}

// localUnionElementPtr reinterprets the union pointer directly: every
// member lives at offset 0, so no arithmetic is needed, only a pointer
// value tagged with the member's lowered type.
func (fr *functionRewriter) localUnionElementPtr(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	basePtr, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: basePtr.Scalar}, nil
}

// localAggregateValue rebuilds an array_value/struct_value constructor
// applied to at least one local operand: only possible when the lowered
// type is split, since a register-mode aggregate has no single scalar a
// multi-operand constructor could produce directly (its Callback chose
// not to split it, and union-style single-operand reinterpretation
// doesn't apply to an N-ary constructor).
func (fr *functionRewriter) localAggregateValue(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	if lt.Mode != target.ModeSplit {
		return target.Value{}, tvm.Newf(tvm.UnsupportedType, "%v over a local operand requires a split-mode lowered type", h.Op)
	}
	fields := make([]target.Value, len(h.Operands))
	for i, o := range h.Operands {
		fv, err := fr.resolve(state, o)
		if err != nil {
			return target.Value{}, err
		}
		fields[i] = fv
	}
	return target.Value{LType: lt, Mode: target.ValueSplit, Fields: fields}, nil
}

// localSizeAlign mirrors LowerValue's OpSizeOf/OpAlignOf case for a local
// expression tree: when RemoveSizeof is off, the op has no runtime
// operands to resolve (its lone operand is a type, not a value) so it is
// passed through unchanged.
func (fr *functionRewriter) localSizeAlign(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	if !fr.l.cfg.RemoveSizeof {
		return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: h}, nil
	}
	typLT, err := fr.l.LowerType(h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	n := typLT.Size
	if h.Op == tvm.OpAlignOf {
		n = typLT.Align
	}
	v, err := fr.l.intptrConst(n)
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: v}, nil
}

func (fr *functionRewriter) localStructOffset(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	if !fr.l.cfg.RemoveSizeof {
		return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: h}, nil
	}
	structLT, err := fr.l.LowerType(h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	index, _ := tvm.StructElementOffsetIndex(h)
	offsets := target.FieldOffsets(structLT)
	if index < 0 || index >= len(offsets) {
		return target.Value{}, tvm.Newf(tvm.Internal, "struct_el_offset index %d out of range", index)
	}
	v, err := fr.l.intptrConst(offsets[index])
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: v}, nil
}

// localPointerOffset mirrors LowerValue's OpPointerOffset case, but its
// two value operands may themselves be local.
func (fr *functionRewriter) localPointerOffset(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	ptr, err := fr.resolve(state, h.Operands[0])
	if err != nil {
		return target.Value{}, err
	}
	offset, err := fr.resolve(state, h.Operands[1])
	if err != nil {
		return target.Value{}, err
	}
	if !fr.l.cfg.PointerArithmeticToBytes {
		rebuilt, err := fr.l.ctx.RebuildHashable(h, []tvm.Value{ptr.Scalar, offset.Scalar})
		if err != nil {
			return target.Value{}, err
		}
		return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: rebuilt}, nil
	}
	rewritten, err := fr.l.pointerOffsetToBytes(ptr.Scalar, offset.Scalar)
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: rewritten}, nil
}

// localScalarOp is the fallback for every purely-scalar functional op
// (arithmetic, comparison, pointer_cast, function_specialize): resolve
// every value operand against state and reintern the same op over the
// resulting lowered scalars. h.typ is reused unchanged, since none of
// these ops' result types are themselves aggregates that lowering
// restructures.
func (fr *functionRewriter) localScalarOp(state map[tvm.Value]target.Value, h *tvm.Hashable) (target.Value, error) {
	newOperands := make([]tvm.Value, len(h.Operands))
	for i, o := range h.Operands {
		lv, err := fr.resolve(state, o)
		if err != nil {
			return target.Value{}, err
		}
		if lv.Mode != target.ValueRegister {
			return target.Value{}, tvm.Newf(tvm.UnsupportedType, "%v requires a scalar operand", h.Op)
		}
		newOperands[i] = lv.Scalar
	}
	rebuilt, err := fr.l.ctx.RebuildHashable(h, newOperands)
	if err != nil {
		return target.Value{}, err
	}
	lt, err := fr.l.LowerType(h.Type())
	if err != nil {
		return target.Value{}, err
	}
	return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: rebuilt}, nil
}

// materializePointer returns a pointer to memory holding base, spilling
// it to a fresh ByteAlloca first if it isn't already a stack-mode value.
func (fr *functionRewriter) materializePointer(base target.Value) (tvm.Value, error) {
	if base.Mode == target.ValueStack {
		return base.Scalar, nil
	}
	alignType, err := fr.cb.TypeFromAlignment(fr.l.ctx, base.LType.Align)
	if err != nil {
		return nil, err
	}
	ptr, err := target.ByteAlloca(fr, alignType, base.LType.Size)
	if err != nil {
		return nil, err
	}
	if err := target.StoreTree(fr, ptr, base.LType, base); err != nil {
		return nil, err
	}
	return ptr, nil
}

// bytePointerAt advances ptr by a constant byte offset.
func (fr *functionRewriter) bytePointerAt(ptr tvm.Value, offset uint64) (tvm.Value, error) {
	bytePtr, err := fr.l.ctx.PointerCast(ptr, fr.l.byteT)
	if err != nil {
		return nil, err
	}
	offV, err := fr.l.intptrConst(offset)
	if err != nil {
		return nil, err
	}
	return fr.l.ctx.PointerOffset(bytePtr, offV)
}

// scaledOffset advances ptr by index*elemSize bytes, for a runtime array
// index.
func (fr *functionRewriter) scaledOffset(ptr, index tvm.Value, elemSize uint64) (tvm.Value, error) {
	sizeConst, err := fr.l.intptrConst(elemSize)
	if err != nil {
		return nil, err
	}
	scaled, err := fr.l.ctx.IntMul(index, sizeConst)
	if err != nil {
		return nil, err
	}
	bytePtr, err := fr.l.ctx.PointerCast(ptr, fr.l.byteT)
	if err != nil {
		return nil, err
	}
	return fr.l.ctx.PointerOffset(bytePtr, scaled)
}
