package tvm

// This file implements the arithmetic and comparison operations of §4.8:
// two-operand integer/float arithmetic (result type equals the shared
// operand type) and comparisons (result is always boolean).

func sameIntegerType(a, b Value) (*Hashable, error) {
	ah, ok := a.Type().(*Hashable)
	if !ok || ah.Op != OpIntegerType {
		return nil, badType("expected an integer operand")
	}
	if a.Type() != b.Type() {
		return nil, badType("integer operands must share one type")
	}
	return ah, nil
}

func sameFloatType(a, b Value) (*Hashable, error) {
	ah, ok := a.Type().(*Hashable)
	if !ok || ah.Op != OpFloatType {
		return nil, badType("expected a float operand")
	}
	if a.Type() != b.Type() {
		return nil, badType("float operands must share one type")
	}
	return ah, nil
}

func (ctx *Context) intArith(op Op, a, b Value) (Value, error) {
	_, err := sameIntegerType(a, b)
	if err != nil {
		return nil, err
	}
	if op == OpIntDivSigned || op == OpIntDivUnsigned {
		if bh, ok := b.(*Hashable); ok && bh.Op == OpIntegerValue {
			ivd := bh.Data.(integerValueData)
			if ivd.Value.Zero() {
				return nil, Newf(DivideByZero, "constant divisor is zero")
			}
		}
	}
	return ctx.intern(op, []Value{a, b}, nil, CategoryValue, a.Type(), false)
}

// IntAdd returns a + b, wrapping modulo the shared integer type's width.
func (ctx *Context) IntAdd(a, b Value) (Value, error) { return ctx.intArith(OpIntAdd, a, b) }

// IntSub returns a - b, wrapping modulo the shared integer type's width.
func (ctx *Context) IntSub(a, b Value) (Value, error) { return ctx.intArith(OpIntSub, a, b) }

// IntMul returns a * b, wrapping modulo the shared integer type's width.
func (ctx *Context) IntMul(a, b Value) (Value, error) { return ctx.intArith(OpIntMul, a, b) }

// IntDivSigned returns the two's-complement signed quotient a / b.
func (ctx *Context) IntDivSigned(a, b Value) (Value, error) { return ctx.intArith(OpIntDivSigned, a, b) }

// IntDivUnsigned returns the unsigned quotient a / b.
func (ctx *Context) IntDivUnsigned(a, b Value) (Value, error) {
	return ctx.intArith(OpIntDivUnsigned, a, b)
}

func (ctx *Context) floatArith(op Op, a, b Value) (Value, error) {
	_, err := sameFloatType(a, b)
	if err != nil {
		return nil, err
	}
	return ctx.intern(op, []Value{a, b}, nil, CategoryValue, a.Type(), false)
}

// FloatAdd returns a + b.
func (ctx *Context) FloatAdd(a, b Value) (Value, error) { return ctx.floatArith(OpFloatAdd, a, b) }

// FloatSub returns a - b.
func (ctx *Context) FloatSub(a, b Value) (Value, error) { return ctx.floatArith(OpFloatSub, a, b) }

// FloatMul returns a * b.
func (ctx *Context) FloatMul(a, b Value) (Value, error) { return ctx.floatArith(OpFloatMul, a, b) }

// FloatDiv returns a / b.
func (ctx *Context) FloatDiv(a, b Value) (Value, error) { return ctx.floatArith(OpFloatDiv, a, b) }

func (ctx *Context) compare(op Op, a, b Value) (Value, error) {
	if a.Type() != b.Type() {
		return nil, badType("comparison operands must share one type")
	}
	bt, err := ctx.BooleanType()
	if err != nil {
		return nil, err
	}
	return ctx.intern(op, []Value{a, b}, nil, CategoryValue, bt, false)
}

// CompareEQ returns a == b as a boolean value.
func (ctx *Context) CompareEQ(a, b Value) (Value, error) { return ctx.compare(OpCompareEQ, a, b) }

// CompareNE returns a != b as a boolean value.
func (ctx *Context) CompareNE(a, b Value) (Value, error) { return ctx.compare(OpCompareNE, a, b) }

// CompareLT returns a < b as a boolean value.
func (ctx *Context) CompareLT(a, b Value) (Value, error) { return ctx.compare(OpCompareLT, a, b) }

// CompareLE returns a <= b as a boolean value.
func (ctx *Context) CompareLE(a, b Value) (Value, error) { return ctx.compare(OpCompareLE, a, b) }

// CompareGT returns a > b as a boolean value.
func (ctx *Context) CompareGT(a, b Value) (Value, error) { return ctx.compare(OpCompareGT, a, b) }

// CompareGE returns a >= b as a boolean value.
func (ctx *Context) CompareGE(a, b Value) (Value, error) { return ctx.compare(OpCompareGE, a, b) }
