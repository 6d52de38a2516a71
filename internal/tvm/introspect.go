package tvm

import "tvm/internal/bigint"

// This file exposes read-only accessors onto each Hashable op's inline
// Data payload, so packages outside tvm (the disassembler, the
// aggregate-lowering pass) can recover structured facts — an integer
// type's width, a constant's value — without the payload structs
// themselves needing to be exported.

// IntegerTypeInfo reports the width and signedness of an integer type
// term, or ok=false if t is not one.
func IntegerTypeInfo(t Value) (width uint, signed bool, ok bool) {
	h, isHashable := t.(*Hashable)
	if !isHashable || h.Op != OpIntegerType {
		return 0, false, false
	}
	d := h.Data.(integerTypeData)
	return d.Width, d.Signed, true
}

// FloatTypeInfo reports the width of a float type term, or ok=false if t
// is not one.
func FloatTypeInfo(t Value) (width uint, ok bool) {
	h, isHashable := t.(*Hashable)
	if !isHashable || h.Op != OpFloatType {
		return 0, false
	}
	return h.Data.(floatTypeData).Width, true
}

// IntegerValueOf returns the big-integer payload of an integer constant
// term, or ok=false if v is not one.
func IntegerValueOf(v Value) (bigint.Int, bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable || h.Op != OpIntegerValue {
		return bigint.Int{}, false
	}
	return h.Data.(integerValueData).Value, true
}

// FloatValueBits returns the raw IEEE bit pattern of a float constant
// term, or ok=false if v is not one.
func FloatValueBits(v Value) (uint64, bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable || h.Op != OpFloatValue {
		return 0, false
	}
	return h.Data.(floatValueData).Bits, true
}

// BooleanValueOf returns the payload of a boolean constant term, or
// ok=false if v is not one.
func BooleanValueOf(v Value) (value bool, ok bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable || h.Op != OpBooleanValue {
		return false, false
	}
	return h.Data.(boolValueData).Value, true
}

// StructElementOffsetIndex returns the member index an
// OpStructElementOffset term computes the offset of, or ok=false
// otherwise.
func StructElementOffsetIndex(v Value) (index int, ok bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable || h.Op != OpStructElementOffset {
		return 0, false
	}
	return h.Data.(structOffsetData).Index, true
}

// ConstantElementIndex returns the baked-in constant member index of an
// OpStructElement/OpStructElementPtr term, or ok=false for any other term
// (array element ops take their index as a runtime operand).
func ConstantElementIndex(v Value) (index int, ok bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable {
		return 0, false
	}
	d, isIdx := h.Data.(elementIndexData)
	if !isIdx {
		return 0, false
	}
	return d.Index, true
}

// UnionMemberOf returns the member type a union access or union-value
// term addresses, or ok=false if v carries no such selector.
func UnionMemberOf(v Value) (member Value, ok bool) {
	h, isHashable := v.(*Hashable)
	if !isHashable {
		return nil, false
	}
	switch h.Op {
	case OpUnionElement, OpUnionElementPtr, OpUnionValue:
		return h.Data.(memberTypeData).Member, true
	default:
		return nil, false
	}
}

// RebuildHashable reinterns h's operator and inline data over a new
// operand list, recomputing source/abstract/parameterized from those new
// operands. It is how a pass outside this package (the aggregate-lowering
// pass, principally) rewrites one node of a term tree and gets back a
// properly hash-consed replacement rather than a hand-built one that
// might collide with an existing term.
func (ctx *Context) RebuildHashable(h *Hashable, newOperands []Value) (Value, error) {
	return ctx.intern(h.Op, newOperands, h.Data, h.category, h.typ, h.phantom)
}

// FunctionTypeInfo reports the calling convention, phantom-parameter
// count and sret flag of a function type term, or ok=false if t is not
// one.
func FunctionTypeInfo(t Value) (cc CallingConvention, nPhantom int, sret bool, ok bool) {
	h, isHashable := t.(*Hashable)
	if !isHashable || h.Op != OpFunctionType {
		return 0, 0, false, false
	}
	d := h.Data.(functionTypeData)
	return d.CC, d.NPhantom, d.Sret, true
}
