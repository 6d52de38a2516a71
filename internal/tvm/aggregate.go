package tvm

// This file implements the aggregate-access operations of §4.3: indexing
// into arrays, structs and unions, both by value and by pointer, plus the
// struct-element-offset metatype op the aggregate-lowering pass consumes
// to compute byte layouts.

func arrayElementType(v Value) (Value, error) {
	h, ok := v.(*Hashable)
	if !ok || h.Op != OpArrayType {
		return nil, badType("expected an array type")
	}
	return h.Operands[0], nil
}

// ArrayElement returns the element at the given runtime index of array, by
// value.
func (ctx *Context) ArrayElement(array, index Value) (Value, error) {
	elemType, err := arrayElementType(array.Type())
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpArrayElement, []Value{array, index}, nil, CategoryValue, elemType, false)
}

// ArrayElementPtr returns a pointer to the element at the given runtime
// index of *arrayPtr.
func (ctx *Context) ArrayElementPtr(arrayPtr, index Value) (Value, error) {
	ph, ok := arrayPtr.Type().(*Hashable)
	if !ok || ph.Op != OpPointerType {
		return nil, badType("array_el_ptr requires a pointer operand")
	}
	elemType, err := arrayElementType(ph.Operands[0])
	if err != nil {
		return nil, err
	}
	resType, err := ctx.PointerType(elemType)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpArrayElementPtr, []Value{arrayPtr, index}, nil, CategoryValue, resType, false)
}

func structMemberType(v Value, index int) (Value, error) {
	h, ok := v.(*Hashable)
	if !ok || h.Op != OpStructType {
		return nil, badType("expected a struct type")
	}
	if index < 0 || index >= len(h.Operands) {
		return nil, internalErr("struct member index %d out of range (%d members)", index, len(h.Operands))
	}
	return h.Operands[index], nil
}

// StructElement returns member index of structValue, by value.
func (ctx *Context) StructElement(structValue Value, index int) (Value, error) {
	memberType, err := structMemberType(structValue.Type(), index)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpStructElement, []Value{structValue}, elementIndexData{Index: index}, CategoryValue, memberType, false)
}

// StructElementPtr returns a pointer to member index of *structPtr.
func (ctx *Context) StructElementPtr(structPtr Value, index int) (Value, error) {
	ph, ok := structPtr.Type().(*Hashable)
	if !ok || ph.Op != OpPointerType {
		return nil, badType("struct_el_ptr requires a pointer operand")
	}
	memberType, err := structMemberType(ph.Operands[0], index)
	if err != nil {
		return nil, err
	}
	resType, err := ctx.PointerType(memberType)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpStructElementPtr, []Value{structPtr}, elementIndexData{Index: index}, CategoryValue, resType, false)
}

// StructElementOffset returns the byte offset of member index within
// structType, as an intptr constant-shaped op (its actual numeric value is
// resolved by the aggregate-lowering pass's target callback, §4.9.8).
func (ctx *Context) StructElementOffset(structType Value, index int) (Value, error) {
	if _, err := structMemberType(structType, index); err != nil {
		return nil, err
	}
	intptr, err := ctx.IntegerType(PointerWidth, false)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpStructElementOffset, []Value{structType}, structOffsetData{Index: index}, CategoryValue, intptr, false)
}

func unionMemberOK(v Value, member Value) (*Hashable, error) {
	h, ok := v.(*Hashable)
	if !ok || h.Op != OpUnionType {
		return nil, badType("expected a union type")
	}
	for _, m := range h.Operands {
		if m == member {
			return h, nil
		}
	}
	return nil, internalErr("type is not a member of the union")
}

// UnionElement returns member of unionValue, by value (reinterpreting the
// union's shared storage as member's type).
func (ctx *Context) UnionElement(unionValue Value, member Value) (Value, error) {
	if _, err := unionMemberOK(unionValue.Type(), member); err != nil {
		return nil, err
	}
	return ctx.intern(OpUnionElement, []Value{unionValue}, memberTypeData{Member: member}, CategoryValue, member, false)
}

// UnionElementPtr returns a pointer to member of *unionPtr.
func (ctx *Context) UnionElementPtr(unionPtr Value, member Value) (Value, error) {
	ph, ok := unionPtr.Type().(*Hashable)
	if !ok || ph.Op != OpPointerType {
		return nil, badType("union_el_ptr requires a pointer operand")
	}
	if _, err := unionMemberOK(ph.Operands[0], member); err != nil {
		return nil, err
	}
	resType, err := ctx.PointerType(member)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpUnionElementPtr, []Value{unionPtr}, memberTypeData{Member: member}, CategoryValue, resType, false)
}
