package tvm

// This file implements the type-former operations of §4.1: each wraps
// Context.intern with the typing rule for that op (operand/category
// checks), matching the donor's pattern of small, single-purpose
// constructor functions per opcode rather than one generic "make type"
// entry point.

// EmptyType returns the unique zero-size type (used as the result type of
// instructions with no meaningful value, and as a legal array/struct
// member).
func (ctx *Context) EmptyType() (Value, error) {
	return ctx.intern(OpEmptyType, nil, nil, CategoryType, ctx.metatype, false)
}

// BlockType returns the unique type of basic-block values (their use as
// branch targets, never as ordinary data).
func (ctx *Context) BlockType() (Value, error) {
	return ctx.blockType(), nil
}

// ByteType returns the unique single-byte type the aggregate-lowering pass
// targets when it splits aggregates into scalar/byte operations.
func (ctx *Context) ByteType() (Value, error) {
	return ctx.intern(OpByteType, nil, nil, CategoryType, ctx.metatype, false)
}

// BooleanType returns the unique boolean type.
func (ctx *Context) BooleanType() (Value, error) {
	return ctx.intern(OpBooleanType, nil, nil, CategoryType, ctx.metatype, false)
}

var validIntegerWidths = map[uint]bool{8: true, 16: true, 32: true, 64: true, 128: true}

// IntegerType returns the integer type of the given fixed width and
// signedness. width must be one of the closed set of supported widths, or
// equal to PointerWidth (the "intptr"/"uintptr" case).
func (ctx *Context) IntegerType(width uint, signed bool) (Value, error) {
	if !validIntegerWidths[width] && width != PointerWidth {
		return nil, badWidth("unsupported integer width %d", width)
	}
	return ctx.intern(OpIntegerType, nil, integerTypeData{Width: width, Signed: signed}, CategoryType, ctx.metatype, false)
}

var validFloatWidths = map[uint]bool{32: true, 64: true}

// FloatType returns the IEEE binary floating-point type of the given
// width (32 or 64 bits).
func (ctx *Context) FloatType(width uint) (Value, error) {
	if !validFloatWidths[width] {
		return nil, badWidth("unsupported float width %d", width)
	}
	return ctx.intern(OpFloatType, nil, floatTypeData{Width: width}, CategoryType, ctx.metatype, false)
}

// PointerType returns the type of pointers to pointee. Pointer types carry
// no target-specific width in the core model; the aggregate-lowering
// target callback resolves that (§4.9.8).
func (ctx *Context) PointerType(pointee Value) (Value, error) {
	if !pointee.IsType() {
		return nil, badType("pointer pointee must be a type, got category %s", pointee.Category())
	}
	return ctx.intern(OpPointerType, []Value{pointee}, nil, CategoryType, ctx.metatype, false)
}

// ArrayType returns the type of fixed-length arrays of element, with
// length a compile-time constant intptr value (an OpIntegerValue term).
func (ctx *Context) ArrayType(element, length Value) (Value, error) {
	if !element.IsType() {
		return nil, badType("array element must be a type, got category %s", element.Category())
	}
	lh, ok := length.Type().(*Hashable)
	if !ok || lh.Op != OpIntegerType {
		return nil, badType("array length must be an integer value")
	}
	return ctx.intern(OpArrayType, []Value{element, length}, nil, CategoryType, ctx.metatype, false)
}

// StructType returns the type of a struct with the given ordered member
// types.
func (ctx *Context) StructType(members ...Value) (Value, error) {
	for i, m := range members {
		if !m.IsType() {
			return nil, badType("struct member %d must be a type, got category %s", i, m.Category())
		}
	}
	return ctx.intern(OpStructType, members, nil, CategoryType, ctx.metatype, false)
}

// UnionType returns the type of a union over the given member types, each
// sharing the same storage (§4.1).
func (ctx *Context) UnionType(members ...Value) (Value, error) {
	if len(members) == 0 {
		return nil, badType("union type requires at least one member")
	}
	for i, m := range members {
		if !m.IsType() {
			return nil, badType("union member %d must be a type, got category %s", i, m.Category())
		}
	}
	return ctx.intern(OpUnionType, members, nil, CategoryType, ctx.metatype, false)
}

// FunctionType returns the type of a function taking paramTypes (the first
// nPhantom of which are compile-time-only / erased before runtime) and
// returning resultType, under calling convention cc. sret marks that the
// result is returned via a hidden trailing pointer argument once lowered.
func (ctx *Context) FunctionType(resultType Value, paramTypes []Value, nPhantom int, cc CallingConvention, sret bool) (Value, error) {
	if !resultType.IsType() {
		return nil, badType("function result must be a type, got category %s", resultType.Category())
	}
	if nPhantom < 0 || nPhantom > len(paramTypes) {
		return nil, badType("function phantom-parameter count %d out of range for %d parameters", nPhantom, len(paramTypes))
	}
	for i, p := range paramTypes {
		if !p.IsType() {
			return nil, badType("function parameter %d must be a type, got category %s", i, p.Category())
		}
	}
	operands := make([]Value, 0, len(paramTypes)+1)
	operands = append(operands, resultType)
	operands = append(operands, paramTypes...)
	return ctx.intern(OpFunctionType, operands, functionTypeData{CC: cc, NPhantom: nPhantom, Sret: sret}, CategoryType, ctx.metatype, false)
}
