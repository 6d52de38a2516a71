package tvm

import (
	"testing"

	"tvm/internal/bigint"
)

func TestInterningIsIdempotent(t *testing.T) {
	ctx := NewContext()
	a, err := ctx.IntegerType(32, true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ctx.IntegerType(32, true)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected structurally identical integer types to be the same term")
	}
	c, err := ctx.IntegerType(32, false)
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Fatalf("signed and unsigned 32-bit integer types must not be interned together")
	}
}

func TestTypeOfTypeInvariant(t *testing.T) {
	ctx := NewContext()
	it, err := ctx.IntegerType(64, true)
	if err != nil {
		t.Fatal(err)
	}
	if !typeOfType(ctx, it) {
		t.Fatalf("integer type must eventually type to the metatype")
	}
	st, err := ctx.StructType(it, it)
	if err != nil {
		t.Fatal(err)
	}
	if !typeOfType(ctx, st) {
		t.Fatalf("struct type must eventually type to the metatype")
	}
}

func TestBadWidthRejected(t *testing.T) {
	ctx := NewContext()
	_, err := ctx.IntegerType(7, true)
	if err == nil {
		t.Fatalf("expected an error for an unsupported integer width")
	}
	var terr *Error
	if !asError(err, &terr) || terr.Kind != BadWidth {
		t.Fatalf("expected a BadWidth error, got %v", err)
	}
}

func TestPointerTypeRequiresType(t *testing.T) {
	ctx := NewContext()
	it, err := ctx.IntegerType(32, true)
	if err != nil {
		t.Fatal(err)
	}
	v, err := ctx.IntegerValue(it, intVal(t, it, 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.PointerType(v); err == nil {
		t.Fatalf("expected pointer_type to reject a value operand")
	}
}

func TestPointerCastChainFolds(t *testing.T) {
	ctx := NewContext()
	i32, _ := ctx.IntegerType(32, true)
	i64, _ := ctx.IntegerType(64, true)
	byteT, _ := ctx.ByteType()
	gv, err := ctx.NewGlobalVariable(i32, false, "g", LinkageLocal)
	if err != nil {
		t.Fatal(err)
	}

	toByte, err := ctx.PointerCast(gv, byteT)
	if err != nil {
		t.Fatal(err)
	}
	chained, err := ctx.PointerCast(toByte, i64)
	if err != nil {
		t.Fatal(err)
	}
	direct, err := ctx.PointerCast(gv, i64)
	if err != nil {
		t.Fatal(err)
	}
	if chained != direct {
		t.Fatalf("expected casting a cast to intern the same term as casting the original pointer")
	}
	if toByte == direct {
		t.Fatalf("casts of one pointer to different targets must stay distinct terms")
	}
	ph, ok := chained.Type().(*Hashable)
	if !ok || ph.Op != OpPointerType || ph.Operands[0] != i64 {
		t.Fatalf("expected the folded cast to keep the outermost target type, got %v", chained.Type())
	}
}

func TestArithmeticRequiresMatchingTypes(t *testing.T) {
	ctx := NewContext()
	i32, _ := ctx.IntegerType(32, true)
	i64, _ := ctx.IntegerType(64, true)
	a, _ := ctx.IntegerValue(i32, intVal(t, i32, 1))
	b, _ := ctx.IntegerValue(i64, intVal(t, i64, 2))
	if _, err := ctx.IntAdd(a, b); err == nil {
		t.Fatalf("expected add across mismatched integer types to fail")
	}
}

func TestDivideByZeroConstantFolding(t *testing.T) {
	ctx := NewContext()
	i32, _ := ctx.IntegerType(32, true)
	a, _ := ctx.IntegerValue(i32, intVal(t, i32, 10))
	zero, _ := ctx.IntegerValue(i32, intVal(t, i32, 0))
	_, err := ctx.IntDivSigned(a, zero)
	if err == nil {
		t.Fatalf("expected divide by a constant zero to fail")
	}
	var terr *Error
	if !asError(err, &terr) || terr.Kind != DivideByZero {
		t.Fatalf("expected a DivideByZero error, got %v", err)
	}
}

func TestFunctionParameterSourceDominatesItsBody(t *testing.T) {
	ctx := NewContext()
	i32, _ := ctx.IntegerType(32, true)
	ft, err := ctx.FunctionType(i32, []Value{i32}, 0, CCTvm, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := ctx.NewFunction(ft, "add_one")
	if err != nil {
		t.Fatal(err)
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		t.Fatal(err)
	}
	one, _ := ctx.IntegerValue(i32, intVal(t, i32, 1))
	sum, err := ctx.IntAdd(fn.Params[0], one)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.NewReturn(sum); err != nil {
		t.Fatal(err)
	}
	if !sourceDominated(fn, sum) {
		t.Fatalf("function parameter's owning function must dominate an expression built from it")
	}
}

func TestSourceMismatchAcrossFunctions(t *testing.T) {
	ctx := NewContext()
	i32, _ := ctx.IntegerType(32, true)
	ft, _ := ctx.FunctionType(i32, []Value{i32}, 0, CCTvm, false)
	fnA, _ := ctx.NewFunction(ft, "a")
	fnB, _ := ctx.NewFunction(ft, "b")
	if _, err := ctx.IntAdd(fnA.Params[0], fnB.Params[0]); err == nil {
		t.Fatalf("expected combining operands from two different functions to fail")
	}
}

func TestRecursiveTypeAbstractUntilResolved(t *testing.T) {
	ctx := NewContext()
	list, err := ctx.NewRecursiveType("list", 1)
	if err != nil {
		t.Fatal(err)
	}
	i32, _ := ctx.IntegerType(32, true)
	applied, err := ctx.Apply(list, i32)
	if err != nil {
		t.Fatal(err)
	}
	if !applied.Abstract() {
		t.Fatalf("apply of an unresolved recursive type must be abstract")
	}
	if _, err := ctx.Unpack(applied); err == nil {
		t.Fatalf("expected unpack of an unresolved recursive type to fail")
	}

	empty, _ := ctx.EmptyType()
	cell, err := ctx.StructType(list.Params[0], empty)
	if err != nil {
		t.Fatal(err)
	}
	if err := list.Resolve(cell); err != nil {
		t.Fatal(err)
	}
	if applied.Abstract() {
		t.Fatalf("apply must stop being abstract once its target resolves")
	}
	unpacked, err := ctx.Unpack(applied)
	if err != nil {
		t.Fatal(err)
	}
	uh, ok := unpacked.(*Hashable)
	if !ok || uh.Op != OpStructType {
		t.Fatalf("expected unpack to yield a struct type, got %#v", unpacked)
	}
	if uh.Operands[0] != i32 {
		t.Fatalf("expected the placeholder to have been substituted with i32")
	}
}

func TestMatchBindsParameters(t *testing.T) {
	ctx := NewContext()
	rt, _ := ctx.NewRecursiveType("box", 1)
	ptrParam, err := ctx.PointerType(rt.Params[0])
	if err != nil {
		t.Fatal(err)
	}
	i32, _ := ctx.IntegerType(32, true)
	candidate, _ := ctx.PointerType(i32)

	bindings, err := ctx.Match(ptrParam, candidate, UprefExact, 1)
	if err != nil {
		t.Fatal(err)
	}
	if bindings[0] != i32 {
		t.Fatalf("expected match to bind parameter 0 to i32")
	}
}

func intVal(t *testing.T, typ Value, v uint64) bigint.Int {
	t.Helper()
	h, ok := typ.(*Hashable)
	if !ok || h.Op != OpIntegerType {
		t.Fatalf("intVal requires an integer type")
	}
	data := h.Data.(integerTypeData)
	return bigint.New(data.Width, v)
}

// asError is a small helper since errors.As needs an addressable *target
// and the tests want to stay terse.
func asError(err error, target **Error) bool {
	if e, ok := err.(*Error); ok {
		*target = e
		return true
	}
	return false
}
