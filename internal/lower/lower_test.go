package lower_test

import (
	"strings"
	"testing"

	"tvm/internal/bigint"
	"tvm/internal/disasm"
	"tvm/internal/lower"
	"tvm/internal/target/llvmtarget"
	"tvm/internal/tvm"

	"github.com/kr/pretty"
)

func buildByteArrayModule(t *testing.T) (*tvm.Context, *tvm.Module) {
	t.Helper()
	ctx := tvm.NewContext()
	byteT, err := ctx.ByteType()
	if err != nil {
		t.Fatal(err)
	}
	idxT, err := ctx.IntegerType(tvm.PointerWidth, false)
	if err != nil {
		t.Fatal(err)
	}
	length, err := ctx.IntegerValue(idxT, bigint.New(tvm.PointerWidth, 4))
	if err != nil {
		t.Fatal(err)
	}
	arrT, err := ctx.ArrayType(byteT, length)
	if err != nil {
		t.Fatal(err)
	}
	gv, err := ctx.NewGlobalVariable(arrT, true, "table", tvm.LinkageLocal)
	if err != nil {
		t.Fatal(err)
	}
	elems := make([]tvm.Value, 4)
	for i := range elems {
		v, err := ctx.IntegerValue(byteT, bigint.New(8, uint64(i*2)))
		if err != nil {
			t.Fatal(err)
		}
		elems[i] = v
	}
	init, err := ctx.ArrayValue(byteT, elems...)
	if err != nil {
		t.Fatal(err)
	}
	if err := gv.SetValue(init); err != nil {
		t.Fatal(err)
	}

	ptrT, err := ctx.PointerType(byteT)
	if err != nil {
		t.Fatal(err)
	}
	ft, err := ctx.FunctionType(byteT, []tvm.Value{ptrT}, 0, tvm.CCTvm, false)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := ctx.NewFunction(ft, "first_byte")
	if err != nil {
		t.Fatal(err)
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := entry.NewLoad(fn.Params[0])
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.NewReturn(loaded); err != nil {
		t.Fatal(err)
	}

	m := tvm.NewModule(ctx, "byte_array_module")
	if err := m.AddGlobal("table", gv, tvm.LinkageLocal); err != nil {
		t.Fatal(err)
	}
	if err := m.AddGlobal("first_byte", fn, tvm.LinkageExport); err != nil {
		t.Fatal(err)
	}
	return ctx, m
}

// LowerModule must report a target.Type for every global it was asked to
// lower, and the lowered module must carry over both globals under their
// original names.
func TestLowerModuleCoversEveryGlobal(t *testing.T) {
	ctx, m := buildByteArrayModule(t)
	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{
		SplitArrays:              true,
		SplitStructs:             true,
		RemoveSizeof:             true,
		PointerArithmeticToBytes: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := l.LowerModule(m)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	if _, ok := lowered.Globals["table"]; !ok {
		t.Fatalf("expected a lowered type for global %q, got %# v", "table", pretty.Formatter(lowered.Globals))
	}
	for _, name := range []string{"table", "first_byte"} {
		if lowered.Module.Lookup(name) == nil {
			t.Fatalf("expected lowered module to carry over global %q", name)
		}
	}
	if lowered.Module.LinkageOf("table") != tvm.LinkageLocal {
		t.Fatalf("expected table's linkage to survive lowering unchanged")
	}
}

// With SplitArrays set, the four-element byte array lowers to split mode
// (one one-byte field per element), so its lowered size is exactly four
// bytes with no padding.
func TestLowerModuleByteArrayLayout(t *testing.T) {
	ctx, m := buildByteArrayModule(t)
	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{SplitArrays: true, RemoveSizeof: true})
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := l.LowerModule(m)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	lt := lowered.Globals["table"]
	if lt.Size != 4 {
		t.Fatalf("expected a 4-byte array global, got size %d (%# v)", lt.Size, pretty.Formatter(lt))
	}
}

// The lowered first_byte function's body should still disassemble to a
// load-then-return, since a byte pointer load needs no aggregate
// decomposition at all.
func TestLowerModuleDisassemblesCleanly(t *testing.T) {
	ctx, m := buildByteArrayModule(t)
	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{SplitArrays: true, RemoveSizeof: true})
	if err != nil {
		t.Fatal(err)
	}
	lowered, err := l.LowerModule(m)
	if err != nil {
		t.Fatalf("LowerModule: %v", err)
	}
	text := disasm.NewPrinter().Module(lowered.Module)
	if !strings.Contains(text, "first_byte") {
		t.Fatalf("expected disassembly to name first_byte, got:\n%s", text)
	}
	if !strings.Contains(text, "load") {
		t.Fatalf("expected disassembly to retain the load instruction, got:\n%s", text)
	}
}

// LowerFunctionBody must fail for a function that has not been declared:
// DeclareFunction populates the Lowerer's function map keyed by the source
// function, and LowerFunction (which declares first) then succeeds.
func TestLowerFunctionBodyRequiresDeclaration(t *testing.T) {
	ctx := tvm.NewContext()
	i32, err := ctx.IntegerType(32, true)
	if err != nil {
		t.Fatal(err)
	}
	ft, err := ctx.FunctionType(i32, []tvm.Value{i32}, 0, tvm.CCTvm, false)
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
	one, err := ctx.IntegerValue(i32, bigint.New(32, 1))
	if err != nil {
		t.Fatal(err)
	}
	sum, err := ctx.IntAdd(fn.Params[0], one)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := entry.NewReturn(sum); err != nil {
		t.Fatal(err)
	}

	cb := llvmtarget.New()
	l, err := lower.New(ctx, cb, lower.Config{RemoveSizeof: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.LowerFunctionBody(fn); err == nil {
		t.Fatalf("expected lowering an undeclared function's body to fail")
	}
	if _, err := l.LowerFunction(fn); err != nil {
		t.Fatalf("LowerFunction (declare+body): %v", err)
	}
}
