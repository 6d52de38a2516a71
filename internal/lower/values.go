package lower

import (
	"tvm/internal/bigint"
	"tvm/internal/tvm"
)

// LowerValue rewrites v bottom-up, replacing sizeof/alignof/
// struct_el_offset/pointer_offset terms with concrete target-dependent
// arithmetic wherever Config enables that and the operand type is fully
// static (not abstract, not parameterized — those must wait for a later
// specialization to resolve first). It also folds struct_el of a constant
// struct_value and union_el of a union_value with the same member to the
// selected operand. Everything else is rebuilt from its lowered operands;
// this is a structural rewrite, not a general constant-folder.
func (l *Lowerer) LowerValue(v tvm.Value) (tvm.Value, error) {
	h, ok := v.(*tvm.Hashable)
	if !ok {
		return v, nil
	}

	newOperands := make([]tvm.Value, len(h.Operands))
	changed := false
	for i, o := range h.Operands {
		lo, err := l.LowerValue(o)
		if err != nil {
			return nil, err
		}
		if lo != o {
			changed = true
		}
		newOperands[i] = lo
	}

	switch h.Op {
	case tvm.OpSizeOf:
		if l.cfg.RemoveSizeof && !newOperands[0].Abstract() && !newOperands[0].Parameterized() {
			lt, err := l.LowerType(newOperands[0])
			if err != nil {
				return nil, err
			}
			return l.intptrConst(lt.Size)
		}
	case tvm.OpAlignOf:
		if l.cfg.RemoveSizeof && !newOperands[0].Abstract() && !newOperands[0].Parameterized() {
			lt, err := l.LowerType(newOperands[0])
			if err != nil {
				return nil, err
			}
			return l.intptrConst(lt.Align)
		}
	case tvm.OpStructElementOffset:
		if l.cfg.RemoveSizeof {
			if index, ok := tvm.StructElementOffsetIndex(h); ok {
				lt, err := l.LowerType(newOperands[0])
				if err != nil {
					return nil, err
				}
				if index < len(lt.Offsets) {
					return l.intptrConst(lt.Offsets[index])
				}
			}
		}
	case tvm.OpPointerOffset:
		if l.cfg.PointerArithmeticToBytes {
			return l.pointerOffsetToBytes(newOperands[0], newOperands[1])
		}
	case tvm.OpStructElement, tvm.OpArrayElement:
		if index, ok := tvm.ConstantElementIndex(h); ok {
			if agg, ok := newOperands[0].(*tvm.Hashable); ok {
				switch agg.Op {
				case tvm.OpStructValue, tvm.OpArrayValue:
					if index >= 0 && index < len(agg.Operands) {
						return agg.Operands[index], nil
					}
				}
			}
		}
	case tvm.OpUnionElement:
		if member, ok := tvm.UnionMemberOf(h); ok {
			if agg, ok := newOperands[0].(*tvm.Hashable); ok && agg.Op == tvm.OpUnionValue {
				if um, ok := tvm.UnionMemberOf(agg); ok && um == member {
					return agg.Operands[0], nil
				}
			}
		}
	}

	if !changed {
		return v, nil
	}
	return l.ctx.RebuildHashable(h, newOperands)
}

func (l *Lowerer) intptrConst(n uint64) (tvm.Value, error) {
	return l.ctx.IntegerValue(l.intptr, bigint.New(tvm.PointerWidth, n))
}

// pointerOffsetToBytes rewrites ptr_offset's implicit "scale by pointee
// size" into byte-pointer arithmetic: cast to a byte pointer, multiply the
// offset by the pointee's size, advance, then cast back.
func (l *Lowerer) pointerOffsetToBytes(ptr, offset tvm.Value) (tvm.Value, error) {
	ph, ok := ptr.Type().(*tvm.Hashable)
	if !ok || ph.Op != tvm.OpPointerType {
		return nil, tvm.Newf(tvm.BadType, "pointer_offset lowering requires a pointer operand")
	}
	pointee := ph.Operands[0]
	lt, err := l.LowerType(pointee)
	if err != nil {
		return nil, err
	}
	stride, err := l.intptrConst(lt.Size)
	if err != nil {
		return nil, err
	}
	scaled, err := l.ctx.IntMul(offset, stride)
	if err != nil {
		return nil, err
	}
	bytePtr, err := l.ctx.PointerCast(ptr, l.byteT)
	if err != nil {
		return nil, err
	}
	advanced, err := l.ctx.PointerOffset(bytePtr, scaled)
	if err != nil {
		return nil, err
	}
	return l.ctx.PointerCast(advanced, pointee)
}
