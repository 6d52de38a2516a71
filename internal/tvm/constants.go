package tvm

import "tvm/internal/bigint"

// This file implements the constructor operations of §4.2: pure, hashable
// values built directly from already-canonical operands, following the
// same one-function-per-opcode shape as types.go.

// EmptyValue returns the unique value of the empty type.
func (ctx *Context) EmptyValue() (Value, error) {
	et, err := ctx.EmptyType()
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpEmptyValue, nil, nil, CategoryValue, et, false)
}

// BooleanValue returns the boolean constant v.
func (ctx *Context) BooleanValue(v bool) (Value, error) {
	bt, err := ctx.BooleanType()
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpBooleanValue, nil, boolValueData{Value: v}, CategoryValue, bt, false)
}

// IntegerValue returns the constant value of the given integer type (or of
// the byte type, which takes an 8-bit v), reduced modulo its width the way
// bigint.Int already represents it.
func (ctx *Context) IntegerValue(typ Value, v bigint.Int) (Value, error) {
	h, ok := typ.(*Hashable)
	if !ok || (h.Op != OpIntegerType && h.Op != OpByteType) {
		return nil, badType("integer value requires an integer or byte type")
	}
	width := uint(8)
	if h.Op == OpIntegerType {
		width = h.Data.(integerTypeData).Width
	}
	if v.Bits() != width {
		return nil, badWidth("integer value width %d does not match type width %d", v.Bits(), width)
	}
	return ctx.intern(OpIntegerValue, nil, integerValueData{Value: v}, CategoryValue, typ, false)
}

// FloatValue returns the constant value of the given float type, from its
// raw IEEE bit pattern (32-bit patterns are expected zero-extended into
// bits).
func (ctx *Context) FloatValue(typ Value, bits uint64) (Value, error) {
	h, ok := typ.(*Hashable)
	if !ok || h.Op != OpFloatType {
		return nil, badType("float value requires a float type")
	}
	return ctx.intern(OpFloatValue, nil, floatValueData{Bits: bits}, CategoryValue, typ, false)
}

// UndefValue returns the undefined value of typ: a legal value of any type
// whose bit pattern is unspecified, used to seed allocas and padding.
func (ctx *Context) UndefValue(typ Value) (Value, error) {
	if !typ.IsType() {
		return nil, badType("undef value requires a type, got category %s", typ.Category())
	}
	return ctx.intern(OpUndefValue, nil, nil, CategoryValue, typ, false)
}

// ArrayValue returns the constant array value of the given element type
// built from elements, whose types must all equal elementType.
func (ctx *Context) ArrayValue(elementType Value, elements ...Value) (Value, error) {
	for i, e := range elements {
		if e.Type() != elementType {
			return nil, badType("array element %d does not match element type", i)
		}
	}
	length, err := ctx.IntegerValue(mustIntPtrType(ctx), bigint.New(PointerWidth, uint64(len(elements))))
	if err != nil {
		return nil, err
	}
	arrType, err := ctx.ArrayType(elementType, length)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpArrayValue, elements, nil, CategoryValue, arrType, false)
}

// StructValue returns the constant struct value built from members, whose
// types become the struct type's member types in order.
func (ctx *Context) StructValue(members ...Value) (Value, error) {
	memberTypes := make([]Value, len(members))
	for i, m := range members {
		memberTypes[i] = m.Type()
	}
	structType, err := ctx.StructType(memberTypes...)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpStructValue, members, nil, CategoryValue, structType, false)
}

// UnionValue returns the constant union value of unionType occupying
// member slot member, holding value (whose type must equal that member's
// type).
func (ctx *Context) UnionValue(unionType Value, member Value, value Value) (Value, error) {
	h, ok := unionType.(*Hashable)
	if !ok || h.Op != OpUnionType {
		return nil, badType("union value requires a union type")
	}
	found := false
	for _, m := range h.Operands {
		if m == member {
			found = true
			break
		}
	}
	if !found {
		return nil, badType("union value member type is not a member of the union type")
	}
	if member != value.Type() {
		return nil, badType("union value does not match the selected member's type")
	}
	return ctx.intern(OpUnionValue, []Value{value}, memberTypeData{Member: member}, CategoryValue, unionType, false)
}

func mustIntPtrType(ctx *Context) Value {
	t, err := ctx.IntegerType(PointerWidth, false)
	if err != nil {
		panic(err)
	}
	return t
}
