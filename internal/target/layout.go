package target

import (
	"tvm/internal/bigint"
	"tvm/internal/tvm"
)

// This file holds the tree-shaped memory helpers shared between the
// function-level rewriter and Callback implementations: loading and
// storing a lowered value along its lowered type tree, and byte-granular
// stack allocation. Both sides go through the Runner interface, so
// neither needs the other's private state.

// AlignUp rounds n up to the next multiple of align (a no-op for align 0
// or 1).
func AlignUp(n, align uint64) uint64 {
	if align == 0 {
		return n
	}
	return (n + align - 1) / align * align
}

// ElementOffsetGenerator produces the byte offset of each successive
// element of a composite, advancing past the previous element's size and
// aligning forward to each next element's alignment. It also tracks
// whether every element so far has a statically known layout: one
// runtime-laid-out element makes every later offset dynamic too.
type ElementOffsetGenerator struct {
	cursor   uint64
	maxAlign uint64
	global   bool
}

// NewElementOffsetGenerator returns a generator positioned at offset
// zero, with no elements appended.
func NewElementOffsetGenerator() ElementOffsetGenerator {
	return ElementOffsetGenerator{maxAlign: 1, global: true}
}

// Append advances past one element of the given size and alignment and
// returns its aligned byte offset. static reports whether the element's
// layout is known at lowering time; appending one non-static element
// clears Global for the rest of the walk.
func (g *ElementOffsetGenerator) Append(size, align uint64, static bool) uint64 {
	if align == 0 {
		align = 1
	}
	g.cursor = AlignUp(g.cursor, align)
	offset := g.cursor
	g.cursor += size
	if align > g.maxAlign {
		g.maxAlign = align
	}
	if !static {
		g.global = false
	}
	return offset
}

// Size returns the byte size spanned by every element appended so far,
// without any trailing padding.
func (g *ElementOffsetGenerator) Size() uint64 { return g.cursor }

// MaxAlign returns the strictest alignment any appended element required.
func (g *ElementOffsetGenerator) MaxAlign() uint64 { return g.maxAlign }

// Global reports whether every element appended so far has a statically
// known layout.
func (g *ElementOffsetGenerator) Global() bool { return g.global }

// FieldOffsets returns the byte offset of each field of lt: the offsets
// the Callback's StructLayout computed when present, otherwise rederived
// from the fields' own sizes and alignments (the array case, where every
// element shares one layout).
func FieldOffsets(lt Type) []uint64 {
	if len(lt.Offsets) > 0 {
		return lt.Offsets
	}
	gen := NewElementOffsetGenerator()
	offsets := make([]uint64, len(lt.Fields))
	for i, f := range lt.Fields {
		offsets[i] = gen.Append(f.Size, f.Align, true)
	}
	return offsets
}

// LoadTree reads a value of lowered type lt out of the memory ptr points
// at, decomposing along the lowered type tree: register leaves become one
// typed load each, split types recurse per field at that field's offset,
// and blob types stay in memory as a stack-mode value referencing their
// bytes.
func LoadTree(r Runner, ptr tvm.Value, lt Type) (Value, error) {
	ctx := r.Context()
	switch lt.Mode {
	case ModeRegister:
		if lt.Register == nil {
			return Value{}, tvm.Newf(tvm.Internal, "register-mode lowered type has no backing scalar type")
		}
		typed, err := ctx.PointerCast(ptr, lt.Register)
		if err != nil {
			return Value{}, err
		}
		loaded, err := r.Block().NewLoad(typed)
		if err != nil {
			return Value{}, err
		}
		return Value{LType: lt, Mode: ValueRegister, Scalar: loaded}, nil
	case ModeSplit:
		offsets := FieldOffsets(lt)
		fields := make([]Value, len(lt.Fields))
		for i, f := range lt.Fields {
			fieldPtr, err := advanceBytes(ctx, ptr, offsets[i])
			if err != nil {
				return Value{}, err
			}
			fv, err := LoadTree(r, fieldPtr, f)
			if err != nil {
				return Value{}, err
			}
			fields[i] = fv
		}
		return Value{LType: lt, Mode: ValueSplit, Fields: fields}, nil
	default:
		bp, err := bytePointer(ctx, ptr)
		if err != nil {
			return Value{}, err
		}
		return Value{LType: lt, Mode: ValueStack, Scalar: bp}, nil
	}
}

// StoreTree writes v (of lowered type lt) into the memory ptr points at,
// the inverse walk of LoadTree: register values become one typed store,
// split values recurse per field, stack values memcpy their bytes across,
// zero values memzero the range, and undefined/empty values write
// nothing.
func StoreTree(r Runner, ptr tvm.Value, lt Type, v Value) error {
	ctx := r.Context()
	switch v.Mode {
	case ValueEmpty, ValueUndefined:
		return nil
	case ValueZero:
		dst, err := bytePointer(ctx, ptr)
		if err != nil {
			return err
		}
		count, err := intptrConst(ctx, lt.Size)
		if err != nil {
			return err
		}
		align, err := intptrConst(ctx, lt.Align)
		if err != nil {
			return err
		}
		_, err = r.Block().NewMemzero(dst, count, align)
		return err
	case ValueStack:
		dst, err := bytePointer(ctx, ptr)
		if err != nil {
			return err
		}
		src, err := bytePointer(ctx, v.Scalar)
		if err != nil {
			return err
		}
		if dst == src {
			return nil
		}
		count, err := intptrConst(ctx, lt.Size)
		if err != nil {
			return err
		}
		align, err := intptrConst(ctx, lt.Align)
		if err != nil {
			return err
		}
		_, err = r.Block().NewMemcpy(dst, src, count, align)
		return err
	case ValueRegister:
		typed, err := ctx.PointerCast(ptr, v.Scalar.Type())
		if err != nil {
			return err
		}
		_, err = r.Block().NewStore(typed, v.Scalar)
		return err
	case ValueSplit:
		if len(lt.Fields) != len(v.Fields) {
			return tvm.Newf(tvm.Internal, "split value arity %d does not match its lowered type's %d fields", len(v.Fields), len(lt.Fields))
		}
		offsets := FieldOffsets(lt)
		for i := range v.Fields {
			fieldPtr, err := advanceBytes(ctx, ptr, offsets[i])
			if err != nil {
				return err
			}
			if err := StoreTree(r, fieldPtr, lt.Fields[i], v.Fields[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return tvm.Newf(tvm.Internal, "unknown lowered value mode %v", v.Mode)
	}
}

// ByteAlloca reserves size bytes of stack storage aligned at least as
// strictly as alignType's natural alignment, and returns a byte pointer
// to its base. The storage is a struct whose first member forces the
// alignment and whose byte-array member supplies the size; writes begin
// at the (aligned) base and may overlap the first member, which carries
// no value of its own.
func ByteAlloca(r Runner, alignType tvm.Value, size uint64) (tvm.Value, error) {
	ctx := r.Context()
	byteT, err := ctx.ByteType()
	if err != nil {
		return nil, err
	}
	length, err := intptrConst(ctx, size)
	if err != nil {
		return nil, err
	}
	arr, err := ctx.ArrayType(byteT, length)
	if err != nil {
		return nil, err
	}
	storage, err := ctx.StructType(alignType, arr)
	if err != nil {
		return nil, err
	}
	a, err := r.Block().NewAlloca(storage)
	if err != nil {
		return nil, err
	}
	return ctx.PointerCast(a, byteT)
}

func bytePointer(ctx *tvm.Context, ptr tvm.Value) (tvm.Value, error) {
	if h, ok := ptr.Type().(*tvm.Hashable); ok && h.Op == tvm.OpPointerType {
		if inner, ok := h.Operands[0].(*tvm.Hashable); ok && inner.Op == tvm.OpByteType {
			return ptr, nil
		}
	}
	byteT, err := ctx.ByteType()
	if err != nil {
		return nil, err
	}
	return ctx.PointerCast(ptr, byteT)
}

// advanceBytes returns a byte pointer offset bytes past ptr.
func advanceBytes(ctx *tvm.Context, ptr tvm.Value, offset uint64) (tvm.Value, error) {
	bp, err := bytePointer(ctx, ptr)
	if err != nil {
		return nil, err
	}
	if offset == 0 {
		return bp, nil
	}
	off, err := intptrConst(ctx, offset)
	if err != nil {
		return nil, err
	}
	return ctx.PointerOffset(bp, off)
}

func intptrConst(ctx *tvm.Context, n uint64) (tvm.Value, error) {
	t, err := ctx.IntegerType(tvm.PointerWidth, false)
	if err != nil {
		return nil, err
	}
	return ctx.IntegerValue(t, bigint.New(tvm.PointerWidth, n))
}
