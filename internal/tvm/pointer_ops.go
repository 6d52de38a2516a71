package tvm

// This file implements the pointer operations of §4.7: reinterpreting a
// pointer's pointee type, and element-granular pointer arithmetic.

// PointerCast reinterprets ptr as a pointer to targetType, without
// changing its runtime bit pattern. A cast of a cast reinterprets the
// same underlying pointer, so the chain is folded before interning:
// pointer_cast(pointer_cast(p, T), U) is the same term as
// pointer_cast(p, U).
func (ctx *Context) PointerCast(ptr Value, targetType Value) (Value, error) {
	h, ok := ptr.Type().(*Hashable)
	if !ok || h.Op != OpPointerType {
		return nil, badType("pointer_cast requires a pointer operand")
	}
	if !targetType.IsType() {
		return nil, badType("pointer_cast target must be a type, got category %s", targetType.Category())
	}
	if inner, ok := ptr.(*Hashable); ok && inner.Op == OpPointerCast {
		ptr = inner.Operands[0]
	}
	resType, err := ctx.PointerType(targetType)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpPointerCast, []Value{ptr}, pointerCastData{Target: targetType}, CategoryValue, resType, false)
}

// PointerOffset advances ptr by offset elements of its pointee type (an
// integer value, implicitly scaled by the pointee's size), preserving its
// pointee type.
func (ctx *Context) PointerOffset(ptr Value, offset Value) (Value, error) {
	h, ok := ptr.Type().(*Hashable)
	if !ok || h.Op != OpPointerType {
		return nil, badType("pointer_offset requires a pointer operand")
	}
	oh, ok := offset.Type().(*Hashable)
	if !ok || oh.Op != OpIntegerType {
		return nil, badType("pointer_offset requires an integer offset")
	}
	return ctx.intern(OpPointerOffset, []Value{ptr, offset}, nil, CategoryValue, ptr.Type(), false)
}
