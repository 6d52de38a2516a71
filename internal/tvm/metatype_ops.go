package tvm

// This file implements the metatype operations of §4.4: queries that map a
// type term to an intptr-typed runtime value (resolved concretely by the
// aggregate-lowering pass's target callback), and the type_v constructor
// running the other way, from a size/alignment pair to a metatype value.

// SizeOf returns the (target-dependent) byte size of typ as an intptr
// value.
func (ctx *Context) SizeOf(typ Value) (Value, error) {
	if !typ.IsType() {
		return nil, badType("sizeof requires a type operand, got category %s", typ.Category())
	}
	intptr, err := ctx.IntegerType(PointerWidth, false)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpSizeOf, []Value{typ}, nil, CategoryValue, intptr, false)
}

// AlignOf returns the (target-dependent) byte alignment of typ as an
// intptr value.
func (ctx *Context) AlignOf(typ Value) (Value, error) {
	if !typ.IsType() {
		return nil, badType("alignof requires a type operand, got category %s", typ.Category())
	}
	intptr, err := ctx.IntegerType(PointerWidth, false)
	if err != nil {
		return nil, err
	}
	return ctx.intern(OpAlignOf, []Value{typ}, nil, CategoryValue, intptr, false)
}

// TypeV constructs a metatype value out of an explicit size and alignment
// pair, both intptr values: the erased representation a type is reduced
// to once only its layout matters at runtime.
func (ctx *Context) TypeV(size, alignment Value) (Value, error) {
	for i, v := range []Value{size, alignment} {
		width, _, ok := IntegerTypeInfo(v.Type())
		if !ok || width != PointerWidth {
			return nil, badType("parameter %d to type_v must be an intptr value", i+1)
		}
	}
	return ctx.intern(OpTypeV, []Value{size, alignment}, nil, CategoryType, ctx.metatype, false)
}
