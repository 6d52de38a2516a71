package disasm_test

import (
	"strings"
	"testing"

	"tvm/internal/bigint"
	"tvm/internal/disasm"
	"tvm/internal/tvm"
)

func buildAddOne(t *testing.T) (*tvm.Context, *tvm.Module) {
	t.Helper()
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
	one, err := ctx.IntegerValue(i32, bigIntOne(t, i32))
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

	m := tvm.NewModule(ctx, "demo")
	if err := m.AddGlobal("add_one", fn, tvm.LinkageExport); err != nil {
		t.Fatal(err)
	}
	return ctx, m
}

func TestDisassembleIsDeterministic(t *testing.T) {
	_, m := buildAddOne(t)
	first := disasm.NewPrinter().Module(m)
	second := disasm.NewPrinter().Module(m)
	if first != second {
		t.Fatalf("expected two independent printer runs over the same module to agree:\n%s\n---\n%s", first, second)
	}
	if !strings.Contains(first, "function export add_one") {
		t.Fatalf("expected output to name the function, got:\n%s", first)
	}
	if !strings.Contains(first, "return") {
		t.Fatalf("expected output to contain the return terminator, got:\n%s", first)
	}
}

func bigIntOne(t *testing.T, typ tvm.Value) bigint.Int {
	t.Helper()
	h, ok := typ.(*tvm.Hashable)
	if !ok || h.Op != tvm.OpIntegerType {
		t.Fatalf("bigIntOne requires an integer type")
	}
	return bigint.New(32, 1)
}
