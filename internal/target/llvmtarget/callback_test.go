package llvmtarget_test

import (
	"strings"
	"testing"

	"tvm/internal/lower"
	"tvm/internal/target/llvmtarget"
	"tvm/internal/tvm"
)

// The codegen methods need a live target.Runner, which only a
// lower.Lowerer supplies, so these tests drive small modules through the
// pass rather than faking a runner by hand.

func lowerStructModule(t *testing.T, fieldWidth uint, nFields int, name string) (*llvmtarget.Callback, *tvm.Module) {
	t.Helper()
	ctx := tvm.NewContext()
	fieldT, err := ctx.IntegerType(fieldWidth, true)
	if err != nil {
		t.Fatal(err)
	}
	fields := make([]tvm.Value, nFields)
	for i := range fields {
		fields[i] = fieldT
	}
	structT, err := ctx.StructType(fields...)
	if err != nil {
		t.Fatal(err)
	}
	ft, err := ctx.FunctionType(structT, []tvm.Value{structT}, 0, tvm.CCTvm, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := ctx.NewFunction(ft, name)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.NewReturn(fn.Params[0]); err != nil {
		t.Fatal(err)
	}

	m := tvm.NewModule(ctx, name+"_module")
	if err := m.AddGlobal(name, fn, tvm.LinkageExport); err != nil {
		t.Fatal(err)
	}

	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{
		SplitArrays:  true,
		SplitStructs: true,
		RemoveSizeof: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := l.LowerModule(m)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	return cb, lowered.Module
}

// A {i16, i16} struct is four bytes: it packs into a single i32 register
// in both the parameter list and the return slot, with no hidden sret
// pointer.
func TestSmallStructPacksIntoRegister(t *testing.T) {
	cb, m := lowerStructModule(t, 16, 2, "pair_id")
	fn, ok := m.Lookup("pair_id").(*tvm.Function)
	if !ok {
		t.Fatalf("expected the lowered module to carry pair_id as a function")
	}
	if fn.Sret {
		t.Fatalf("a one-eightbyte struct must not return through sret")
	}
	if len(fn.Params) != 1 {
		t.Fatalf("expected one lowered parameter, got %d", len(fn.Params))
	}
	width, _, ok := tvm.IntegerTypeInfo(fn.Params[0].Type())
	if !ok || width != 32 {
		t.Fatalf("expected the struct to pack into an i32 register, got %v", fn.Params[0].Type())
	}
	text := cb.LLVMModule().String()
	if !strings.Contains(text, "pair_id") || !strings.Contains(text, "i32") {
		t.Fatalf("expected the mirrored LLVM declaration to show an i32 signature, got:\n%s", text)
	}
}

// A {i64, i64, i64} struct is 24 bytes: it travels behind a
// caller-spilled pointer and returns through a trailing hidden sret
// pointer, with an empty declared result.
func TestLargeStructForcesSret(t *testing.T) {
	cb, m := lowerStructModule(t, 64, 3, "triple_id")
	fn, ok := m.Lookup("triple_id").(*tvm.Function)
	if !ok {
		t.Fatalf("expected the lowered module to carry triple_id as a function")
	}
	if !fn.Sret {
		t.Fatalf("a 24-byte struct result must return through sret")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected an argument pointer plus the sret pointer, got %d parameters", len(fn.Params))
	}
	rh, ok := fn.ResultType().(*tvm.Hashable)
	if !ok || rh.Op != tvm.OpEmptyType {
		t.Fatalf("expected an sret function's declared result to be empty, got %v", fn.ResultType())
	}
	text := cb.LLVMModule().String()
	if !strings.Contains(text, "triple_id") || !strings.Contains(text, "void") {
		t.Fatalf("expected the mirrored LLVM declaration to be void over pointers, got:\n%s", text)
	}
}

func TestPrimitiveLayouts(t *testing.T) {
	cb := llvmtarget.New()
	if size, align := cb.ByteLayout(); size != 1 || align != 1 {
		t.Fatalf("byte layout: got size=%d align=%d", size, align)
	}
	if size, align := cb.PointerLayout(); size != 8 || align != 8 {
		t.Fatalf("pointer layout: got size=%d align=%d", size, align)
	}
	if size, align := cb.IntegerLayout(32); size != 4 || align != 4 {
		t.Fatalf("i32 layout: got size=%d align=%d", size, align)
	}
	if size, align := cb.IntegerLayout(128); size != 16 || align != 16 {
		t.Fatalf("i128 layout: got size=%d align=%d", size, align)
	}
	if size, align := cb.FloatLayout(64); size != 8 || align != 8 {
		t.Fatalf("f64 layout: got size=%d align=%d", size, align)
	}
}
