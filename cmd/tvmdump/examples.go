package main

import (
	"tvm/internal/bigint"
	"tvm/internal/tvm"
)

// exampleModule builds one named demo module in a fresh context, standing
// in for the textual assembler spec.md explicitly keeps out of scope
// (§1/§6.1): the only way to get a module into this program is to build
// one in-process.
type exampleModule struct {
	name  string
	descr string
	build func() (*tvm.Context, *tvm.Module, error)
}

var examples = []exampleModule{
	{"add-one", "a function returning its integer argument plus one", buildAddOne},
	{"point-sum", "a function summing the fields of a two-integer struct argument", buildPointSum},
	{"byte-array", "a global byte array initializer and a function loading a byte through a pointer", buildByteArray},
}

func lookupExample(name string) *exampleModule {
	for i := range examples {
		if examples[i].name == name {
			return &examples[i]
		}
	}
	return nil
}

func buildAddOne() (*tvm.Context, *tvm.Module, error) {
	ctx := tvm.NewContext()
	i32, err := ctx.IntegerType(32, true)
	if err != nil {
		return nil, nil, err
	}
	ft, err := ctx.FunctionType(i32, []tvm.Value{i32}, 0, tvm.CCTvm, false)
	if err != nil {
		return nil, nil, err
	}
	fn, err := ctx.NewFunction(ft, "add_one")
	if err != nil {
		return nil, nil, err
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		return nil, nil, err
	}
	one, err := ctx.IntegerValue(i32, bigint.New(32, 1))
	if err != nil {
		return nil, nil, err
	}
	sum, err := ctx.IntAdd(fn.Params[0], one)
	if err != nil {
		return nil, nil, err
	}
	if _, err := entry.NewReturn(sum); err != nil {
		return nil, nil, err
	}

	m := tvm.NewModule(ctx, "add_one_module")
	if err := m.AddGlobal("add_one", fn, tvm.LinkageExport); err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

// buildPointSum exercises §4.9's aggregate-lowering pass: point_sum takes
// a {i32, i32} struct by value and returns the sum of its two fields, the
// plain case split-mode struct lowering is built for.
func buildPointSum() (*tvm.Context, *tvm.Module, error) {
	ctx := tvm.NewContext()
	i32, err := ctx.IntegerType(32, true)
	if err != nil {
		return nil, nil, err
	}
	pointT, err := ctx.StructType(i32, i32)
	if err != nil {
		return nil, nil, err
	}
	ft, err := ctx.FunctionType(i32, []tvm.Value{pointT}, 0, tvm.CCTvm, false)
	if err != nil {
		return nil, nil, err
	}
	fn, err := ctx.NewFunction(ft, "point_sum")
	if err != nil {
		return nil, nil, err
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		return nil, nil, err
	}
	x, err := ctx.StructElement(fn.Params[0], 0)
	if err != nil {
		return nil, nil, err
	}
	y, err := ctx.StructElement(fn.Params[0], 1)
	if err != nil {
		return nil, nil, err
	}
	sum, err := ctx.IntAdd(x, y)
	if err != nil {
		return nil, nil, err
	}
	if _, err := entry.NewReturn(sum); err != nil {
		return nil, nil, err
	}

	m := tvm.NewModule(ctx, "point_sum_module")
	if err := m.AddGlobal("point_sum", fn, tvm.LinkageExport); err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

// buildByteArray exercises §4.9.6's global-initializer lowering: a
// module-level constant byte array plus a function loading the byte its
// pointer parameter points at.
func buildByteArray() (*tvm.Context, *tvm.Module, error) {
	ctx := tvm.NewContext()
	byteT, err := ctx.ByteType()
	if err != nil {
		return nil, nil, err
	}
	length, err := ctx.IntegerValue(mustIntType(ctx, tvm.PointerWidth), bigint.New(tvm.PointerWidth, 4))
	if err != nil {
		return nil, nil, err
	}
	arrT, err := ctx.ArrayType(byteT, length)
	if err != nil {
		return nil, nil, err
	}
	gv, err := ctx.NewGlobalVariable(arrT, true, "table", tvm.LinkageLocal)
	if err != nil {
		return nil, nil, err
	}
	elems := make([]tvm.Value, 4)
	for i := range elems {
		v, err := ctx.IntegerValue(byteT, bigint.New(8, uint64(i*2)))
		if err != nil {
			return nil, nil, err
		}
		elems[i] = v
	}
	init, err := ctx.ArrayValue(byteT, elems...)
	if err != nil {
		return nil, nil, err
	}
	if err := gv.SetValue(init); err != nil {
		return nil, nil, err
	}

	ptrT, err := ctx.PointerType(byteT)
	if err != nil {
		return nil, nil, err
	}
	ft, err := ctx.FunctionType(byteT, []tvm.Value{ptrT}, 0, tvm.CCTvm, false)
	if err != nil {
		return nil, nil, err
	}
	fn, err := ctx.NewFunction(ft, "first_byte")
	if err != nil {
		return nil, nil, err
	}
	entry, err := fn.AppendBlock(nil, "entry")
	if err != nil {
		return nil, nil, err
	}
	loaded, err := entry.NewLoad(fn.Params[0])
	if err != nil {
		return nil, nil, err
	}
	if _, err := entry.NewReturn(loaded); err != nil {
		return nil, nil, err
	}

	m := tvm.NewModule(ctx, "byte_array_module")
	if err := m.AddGlobal("table", gv, tvm.LinkageLocal); err != nil {
		return nil, nil, err
	}
	if err := m.AddGlobal("first_byte", fn, tvm.LinkageExport); err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

func mustIntType(ctx *tvm.Context, width uint) tvm.Value {
	t, err := ctx.IntegerType(width, false)
	if err != nil {
		panic(err)
	}
	return t
}
