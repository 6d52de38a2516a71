// Package llvmtarget is the reference target.Callback: a
// System-V-x86-64-style ABI in which scalars and one-eightbyte aggregates
// travel in registers, larger aggregates travel behind caller-spilled
// pointers and hidden sret parameters, and every lowered function's
// signature is mirrored into a github.com/llir/llvm ir.Module for
// inspection. It requires a Lowerer configured with SplitArrays and
// SplitStructs: an un-split aggregate kept in register mode has no
// backing scalar this ABI's register classification can place.
package llvmtarget

import (
	"tvm/internal/target"
	"tvm/internal/tvm"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
)

// Callback implements target.Callback. The zero value is not usable; New
// allocates the mirrored LLVM module.
type Callback struct {
	mod *ir.Module
}

// New returns a fresh Callback with an empty mirrored LLVM module.
func New() *Callback {
	return &Callback{mod: ir.NewModule()}
}

// LLVMModule returns the ir.Module every LowerFunction call mirrors its
// lowered declaration into.
func (cb *Callback) LLVMModule() *ir.Module { return cb.mod }

// Layout queries. Sizes and alignments are the LP64 System V values:
// every primitive is naturally aligned, pointers are eight bytes.

func (cb *Callback) ByteLayout() (uint64, uint64)    { return 1, 1 }
func (cb *Callback) PointerLayout() (uint64, uint64) { return 8, 8 }

func (cb *Callback) IntegerLayout(width uint) (uint64, uint64) {
	bytes := uint64(width) / 8
	if bytes == 0 {
		bytes = 1
	}
	return bytes, bytes
}

func (cb *Callback) FloatLayout(width uint) (uint64, uint64) {
	bytes := uint64(width) / 8
	return bytes, bytes
}

func (cb *Callback) ArrayLayout(element target.Type, length uint64) (uint64, uint64) {
	align := element.Align
	if align == 0 {
		align = 1
	}
	return target.AlignUp(element.Size, align) * length, align
}

func (cb *Callback) StructLayout(members []target.Type) (uint64, uint64, []uint64) {
	gen := target.NewElementOffsetGenerator()
	offsets := make([]uint64, len(members))
	for i, m := range members {
		offsets[i] = gen.Append(m.Size, m.Align, true)
	}
	return target.AlignUp(gen.Size(), gen.MaxAlign()), gen.MaxAlign(), offsets
}

// TypeFromAlignment returns the naturally-aligned unsigned integer type
// matching align, falling back to the byte type below two.
func (cb *Callback) TypeFromAlignment(ctx *tvm.Context, align uint64) (tvm.Value, error) {
	switch {
	case align >= 16:
		return ctx.IntegerType(128, false)
	case align >= 8:
		return ctx.IntegerType(64, false)
	case align >= 4:
		return ctx.IntegerType(32, false)
	case align >= 2:
		return ctx.IntegerType(16, false)
	default:
		return ctx.ByteType()
	}
}

// LowerFunction builds source's lowered declaration: phantom parameters
// are erased, each remaining parameter becomes its own scalar, a packed
// integer register, or a byte pointer per its class, and a memory-class
// result becomes a trailing hidden sret pointer parameter with an empty
// declared result.
func (cb *Callback) LowerFunction(r target.ModuleRunner, source *tvm.Function) (*tvm.Function, error) {
	ctx := r.Context()
	resultLT, err := r.LowerType(source.ResultType())
	if err != nil {
		return nil, err
	}

	var params []tvm.Value
	for _, p := range source.Params[source.NPhantom:] {
		lt, err := r.LowerType(p.Type())
		if err != nil {
			return nil, err
		}
		pt, err := cb.passedType(ctx, lt)
		if err != nil {
			return nil, err
		}
		params = append(params, pt)
	}

	var resultType tvm.Value
	sret := false
	switch classify(resultLT) {
	case classDirect:
		if resultLT.Register == nil {
			return nil, tvm.Newf(tvm.UnsupportedType, "register-mode result of %q has no backing scalar type; lower with SplitArrays/SplitStructs", source.Name)
		}
		resultType = resultLT.Register
	case classPacked:
		rt, err := registerTypeFor(ctx, resultLT.Size)
		if err != nil {
			return nil, err
		}
		resultType = rt
	default:
		sret = true
		et, err := ctx.EmptyType()
		if err != nil {
			return nil, err
		}
		resultType = et
		bp, err := bytePointerType(ctx)
		if err != nil {
			return nil, err
		}
		params = append(params, bp)
	}

	ft, err := ctx.FunctionType(resultType, params, 0, source.CC, sret)
	if err != nil {
		return nil, err
	}
	dest, err := ctx.NewFunction(ft, source.Name)
	if err != nil {
		return nil, err
	}
	cb.mirrorDeclaration(dest, resultType)
	return dest, nil
}

// passedType returns the tvm type one parameter of the given lowered type
// occupies in the lowered signature.
func (cb *Callback) passedType(ctx *tvm.Context, lt target.Type) (tvm.Value, error) {
	switch classify(lt) {
	case classDirect:
		if lt.Register == nil {
			return nil, tvm.Newf(tvm.UnsupportedType, "register-mode parameter has no backing scalar type; lower with SplitArrays/SplitStructs")
		}
		return lt.Register, nil
	case classPacked:
		return registerTypeFor(ctx, lt.Size)
	default:
		return bytePointerType(ctx)
	}
}

// LowerFunctionEntry binds each source parameter to the lowered value its
// ABI class delivers it as: phantoms to an empty value, direct scalars to
// the lowered parameter itself, packed aggregates unpacked out of their
// integer register, and memory-class aggregates loaded out of their
// caller-spilled pointer.
func (cb *Callback) LowerFunctionEntry(r target.Runner, source, dest *tvm.Function) error {
	ctx := r.Context()
	for _, p := range source.Params[:source.NPhantom] {
		lt, err := r.LowerType(p.Type())
		if err != nil {
			return err
		}
		r.Bind(p, target.Value{LType: lt, Mode: target.ValueEmpty})
	}
	for i, p := range source.Params[source.NPhantom:] {
		lt, err := r.LowerType(p.Type())
		if err != nil {
			return err
		}
		dp := dest.Params[i]
		switch classify(lt) {
		case classDirect:
			r.Bind(p, target.Value{LType: lt, Mode: target.ValueRegister, Scalar: dp})
		case classPacked:
			packedLT, err := registerLT(ctx, lt.Size)
			if err != nil {
				return err
			}
			v, err := cb.ConvertValue(r, target.Value{LType: packedLT, Mode: target.ValueRegister, Scalar: dp}, lt)
			if err != nil {
				return err
			}
			r.Bind(p, v)
		default:
			v, err := target.LoadTree(r, dp, lt)
			if err != nil {
				return err
			}
			r.Bind(p, v)
		}
	}
	return nil
}

// LowerFunctionCall marshals args per their classes (dropping the
// phantom prefix the lowered callee no longer declares), allocates and
// appends the sret slot for a memory-class result, emits the call, and
// unmarshals the result.
func (cb *Callback) LowerFunctionCall(r target.Runner, call *tvm.Instruction, callee tvm.Value, args []target.Value) (target.Value, error) {
	ctx := r.Context()
	resultLT, err := r.LowerType(call.Type())
	if err != nil {
		return target.Value{}, err
	}

	nPhantom := sourcePhantomCount(call.Args[0])
	if nPhantom > len(args) {
		nPhantom = len(args)
	}

	lowered := make([]tvm.Value, 0, len(args)+1)
	for _, a := range args[nPhantom:] {
		switch classify(a.LType) {
		case classDirect:
			s, err := cb.scalarOf(r, a)
			if err != nil {
				return target.Value{}, err
			}
			lowered = append(lowered, s)
		case classPacked:
			packedLT, err := registerLT(ctx, a.LType.Size)
			if err != nil {
				return target.Value{}, err
			}
			rv, err := cb.ConvertValue(r, a, packedLT)
			if err != nil {
				return target.Value{}, err
			}
			lowered = append(lowered, rv.Scalar)
		default:
			ptr, err := cb.spill(r, a)
			if err != nil {
				return target.Value{}, err
			}
			lowered = append(lowered, ptr)
		}
	}

	var sretPtr tvm.Value
	if classify(resultLT) == classMemory {
		alignType, err := cb.TypeFromAlignment(ctx, resultLT.Align)
		if err != nil {
			return target.Value{}, err
		}
		sretPtr, err = target.ByteAlloca(r, alignType, resultLT.Size)
		if err != nil {
			return target.Value{}, err
		}
		lowered = append(lowered, sretPtr)
	}

	instr, err := r.Block().NewCall(callee, lowered...)
	if err != nil {
		return target.Value{}, err
	}

	switch classify(resultLT) {
	case classDirect:
		return target.Value{LType: resultLT, Mode: target.ValueRegister, Scalar: instr}, nil
	case classPacked:
		packedLT, err := registerLT(ctx, resultLT.Size)
		if err != nil {
			return target.Value{}, err
		}
		return cb.ConvertValue(r, target.Value{LType: packedLT, Mode: target.ValueRegister, Scalar: instr}, resultLT)
	default:
		return target.LoadTree(r, sretPtr, resultLT)
	}
}

// LowerReturn emits the lowered return: a store through the trailing sret
// parameter plus an empty return for sret functions, otherwise the value
// itself (packed into its integer register when split).
func (cb *Callback) LowerReturn(r target.Runner, v target.Value) (*tvm.Instruction, error) {
	ctx := r.Context()
	dest := r.Lowered()
	if dest.Sret {
		sretPtr := dest.Params[len(dest.Params)-1]
		if err := target.StoreTree(r, sretPtr, v.LType, v); err != nil {
			return nil, err
		}
		ev, err := ctx.EmptyValue()
		if err != nil {
			return nil, err
		}
		return r.Block().NewReturn(ev)
	}
	switch classify(v.LType) {
	case classDirect:
		s, err := cb.scalarOf(r, v)
		if err != nil {
			return nil, err
		}
		return r.Block().NewReturn(s)
	case classPacked:
		packedLT, err := registerLT(ctx, v.LType.Size)
		if err != nil {
			return nil, err
		}
		rv, err := cb.ConvertValue(r, v, packedLT)
		if err != nil {
			return nil, err
		}
		return r.Block().NewReturn(rv.Scalar)
	default:
		return nil, tvm.Newf(tvm.Internal, "memory-class return value in function %q lowered without sret", dest.Name)
	}
}

// ConvertValue reinterprets v's bytes under to. This IR has no
// bitcast/shift/truncate instruction to merge or split registers
// directly, so the one conversion primitive is a spill-and-reload: write
// v into fresh stack storage under its own lowered type, read it back
// under the destination's. Union member access and register
// (un)packing both reduce to it.
func (cb *Callback) ConvertValue(r target.Runner, v target.Value, to target.Type) (target.Value, error) {
	ctx := r.Context()
	align := v.LType.Align
	if to.Align > align {
		align = to.Align
	}
	size := v.LType.Size
	if to.Size > size {
		size = to.Size
	}
	alignType, err := cb.TypeFromAlignment(ctx, align)
	if err != nil {
		return target.Value{}, err
	}
	ptr, err := target.ByteAlloca(r, alignType, size)
	if err != nil {
		return target.Value{}, err
	}
	if err := target.StoreTree(r, ptr, v.LType, v); err != nil {
		return target.Value{}, err
	}
	return target.LoadTree(r, ptr, to)
}

// scalarOf returns the single tvm term carrying a direct-class value.
func (cb *Callback) scalarOf(r target.Runner, v target.Value) (tvm.Value, error) {
	ctx := r.Context()
	switch v.Mode {
	case target.ValueRegister:
		return v.Scalar, nil
	case target.ValueEmpty:
		return ctx.EmptyValue()
	case target.ValueUndefined:
		if v.LType.Register == nil {
			return nil, tvm.Newf(tvm.Internal, "undefined value's lowered type has no backing scalar type")
		}
		return ctx.UndefValue(v.LType.Register)
	case target.ValueStack:
		loaded, err := target.LoadTree(r, v.Scalar, v.LType)
		if err != nil {
			return nil, err
		}
		if loaded.Mode != target.ValueRegister {
			return nil, tvm.Newf(tvm.UnsupportedType, "%s-mode value cannot travel in a register", v.LType.Mode)
		}
		return loaded.Scalar, nil
	default:
		return nil, tvm.Newf(tvm.UnsupportedType, "%s-mode value cannot travel in a register", v.Mode)
	}
}

// spill writes a memory-class argument into a fresh stack slot and
// returns the byte pointer the callee receives, preserving by-value call
// semantics even when the argument is already stack-resident.
func (cb *Callback) spill(r target.Runner, v target.Value) (tvm.Value, error) {
	alignType, err := cb.TypeFromAlignment(r.Context(), v.LType.Align)
	if err != nil {
		return nil, err
	}
	ptr, err := target.ByteAlloca(r, alignType, v.LType.Size)
	if err != nil {
		return nil, err
	}
	if err := target.StoreTree(r, ptr, v.LType, v); err != nil {
		return nil, err
	}
	return ptr, nil
}

// sourcePhantomCount reads the phantom-parameter count off the source
// callee's function type (unwrapping one pointer level for indirect
// calls); the lowered callee declares none.
func sourcePhantomCount(callee tvm.Value) int {
	t := callee.Type()
	if h, ok := t.(*tvm.Hashable); ok && h.Op == tvm.OpPointerType {
		t = h.Operands[0]
	}
	_, nPhantom, _, ok := tvm.FunctionTypeInfo(t)
	if !ok {
		return 0
	}
	return nPhantom
}

func bytePointerType(ctx *tvm.Context) (tvm.Value, error) {
	byteT, err := ctx.ByteType()
	if err != nil {
		return nil, err
	}
	return ctx.PointerType(byteT)
}

// mirrorDeclaration records dest's lowered signature in the LLVM module,
// declaration-only: the lowered bodies stay tvm terms, this mirror exists
// so a back end (or a test) can see the ABI-level shape the classification
// produced.
func (cb *Callback) mirrorDeclaration(dest *tvm.Function, resultType tvm.Value) {
	irParams := make([]*ir.Param, len(dest.Params))
	for i, p := range dest.Params {
		irParams[i] = ir.NewParam(p.Name, llvmType(p.Type()))
	}
	cb.mod.NewFunc(dest.Name, llvmType(resultType), irParams...)
}

// llvmType maps a lowered tvm scalar type onto its llir counterpart.
// Pointers are mirrored as i8* uniformly: the mirror records signature
// shape, not pointee structure.
func llvmType(t tvm.Value) types.Type {
	if width, _, ok := tvm.IntegerTypeInfo(t); ok {
		return types.NewInt(uint64(width))
	}
	if width, ok := tvm.FloatTypeInfo(t); ok {
		if width == 32 {
			return types.Float
		}
		return types.Double
	}
	h, ok := t.(*tvm.Hashable)
	if !ok {
		return types.NewPointer(types.I8)
	}
	switch h.Op {
	case tvm.OpByteType:
		return types.I8
	case tvm.OpBooleanType:
		return types.I1
	case tvm.OpEmptyType:
		return types.Void
	default:
		return types.NewPointer(types.I8)
	}
}
