package lower

import (
	"tvm/internal/target"
	"tvm/internal/tvm"
)

// rewriteInstruction implements §4.9.5: each source instruction op is
// rewritten against the lowered type/value trees of its operands, with
// Call/Return delegated to the target.Callback and Load/Store/Alloca
// decomposed along the lowered type tree.
func (fr *functionRewriter) rewriteInstruction(instr *tvm.Instruction) error {
	switch instr.Op {
	case tvm.InstrReturn:
		return fr.rewriteReturn(instr)
	case tvm.InstrCondBranch:
		return fr.rewriteCondBranch(instr)
	case tvm.InstrBranch:
		dest := instr.Args[0].(*tvm.Block)
		_, err := fr.cur.NewBranch(fr.blocks[dest])
		return err
	case tvm.InstrUnreachable:
		_, err := fr.cur.NewUnreachable()
		return err
	case tvm.InstrEvaluate:
		v, err := fr.operand(instr.Args[0])
		if err != nil {
			return err
		}
		return fr.evaluateAll(v)
	case tvm.InstrCall:
		return fr.rewriteCall(instr)
	case tvm.InstrLoad:
		return fr.rewriteLoad(instr)
	case tvm.InstrStore:
		return fr.rewriteStore(instr)
	case tvm.InstrAlloca:
		return fr.rewriteAlloca(instr)
	case tvm.InstrStackSave:
		lt, err := fr.l.LowerType(instr.Type())
		if err != nil {
			return err
		}
		i, err := fr.cur.NewStackSave(lt.Register)
		if err != nil {
			return err
		}
		fr.registerOf(instr, lt, i)
		return nil
	case tvm.InstrStackRestore:
		state, err := fr.operand(instr.Args[0])
		if err != nil {
			return err
		}
		_, err = fr.cur.NewStackRestore(state.Scalar)
		return err
	case tvm.InstrMemcpy:
		return fr.rewriteMemcpy(instr)
	case tvm.InstrMemzero:
		return fr.rewriteMemzero(instr)
	case tvm.InstrSolidify:
		v, err := fr.operand(instr.Args[0])
		if err != nil {
			return err
		}
		lt, err := fr.l.LowerType(instr.Type())
		if err != nil {
			return err
		}
		i, err := fr.cur.NewSolidify(v.Scalar, lt.Register)
		if err != nil {
			return err
		}
		fr.registerOf(instr, lt, i)
		return nil
	default:
		return tvm.Newf(tvm.Internal, "lowering: unhandled instruction op %v", instr.Op)
	}
}

func (fr *functionRewriter) rewriteReturn(instr *tvm.Instruction) error {
	v, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	_, err = fr.cb.LowerReturn(fr, v)
	return err
}

func (fr *functionRewriter) rewriteCondBranch(instr *tvm.Instruction) error {
	cond, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	onTrue := fr.blocks[instr.Args[1].(*tvm.Block)]
	onFalse := fr.blocks[instr.Args[2].(*tvm.Block)]
	_, err = fr.cur.NewCondBranch(cond.Scalar, onTrue, onFalse)
	return err
}

// evaluateAll emits an evaluate instruction for every scalar leaf of v, so
// a side-effecting expression under a source evaluate instruction keeps
// every one of its lowered components reachable from the instruction
// list (§4.9.5 "preserved verbatim after operand rewriting").
func (fr *functionRewriter) evaluateAll(v target.Value) error {
	switch v.Mode {
	case target.ValueSplit:
		for _, f := range v.Fields {
			if err := fr.evaluateAll(f); err != nil {
				return err
			}
		}
		return nil
	case target.ValueRegister:
		if v.Scalar == nil {
			return nil
		}
		_, err := fr.cur.NewEvaluate(v.Scalar)
		return err
	default:
		return nil
	}
}

func (fr *functionRewriter) rewriteCall(instr *tvm.Instruction) error {
	callee := instr.Args[0]
	var calleeValue tvm.Value
	if fn, ok := callee.(*tvm.Function); ok {
		dest, ok := fr.l.fnMap[fn]
		if !ok {
			return tvm.Newf(tvm.Internal, "call to function %q not declared before its callers were lowered", fn.Name)
		}
		calleeValue = dest
	} else {
		lv, err := fr.operand(callee)
		if err != nil {
			return err
		}
		calleeValue = lv.Scalar
	}

	args := make([]target.Value, len(instr.Args)-1)
	for i, a := range instr.Args[1:] {
		lv, err := fr.operand(a)
		if err != nil {
			return err
		}
		args[i] = lv
	}

	result, err := fr.cb.LowerFunctionCall(fr, instr, calleeValue, args)
	if err != nil {
		return err
	}
	fr.bind(instr, result)
	return nil
}

func (fr *functionRewriter) rewriteLoad(instr *tvm.Instruction) error {
	ptr, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	lt, err := fr.l.LowerType(instr.Type())
	if err != nil {
		return err
	}
	v, err := fr.loadValue(ptr.Scalar, lt)
	if err != nil {
		return err
	}
	fr.bind(instr, v)
	return nil
}

func (fr *functionRewriter) rewriteStore(instr *tvm.Instruction) error {
	ptr, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	value, err := fr.operand(instr.Args[1])
	if err != nil {
		return err
	}
	return fr.storeValue(ptr.Scalar, value.LType, value)
}

// loadValue reads a value of lowered type lt out of ptr, decomposing along
// the lowered type tree for split-mode types (§4.9.5); the tree walk
// itself is target.LoadTree, shared with any Callback that needs to
// materialize an aggregate it received by pointer.
func (fr *functionRewriter) loadValue(ptr tvm.Value, lt target.Type) (target.Value, error) {
	return target.LoadTree(fr, ptr, lt)
}

// storeValue writes value (of lowered type lt) into *ptr; see loadValue.
func (fr *functionRewriter) storeValue(ptr tvm.Value, lt target.Type, value target.Value) error {
	return target.StoreTree(fr, ptr, lt, value)
}

func (fr *functionRewriter) rewriteAlloca(instr *tvm.Instruction) error {
	elemType := instr.Args[0]
	lt, err := fr.l.LowerType(elemType)
	if err != nil {
		return err
	}
	if lt.Mode != target.ModeSplit && lt.Mode != target.ModeBlob {
		i, err := fr.cur.NewAlloca(elemType)
		if err != nil {
			return err
		}
		fr.registerOf(instr, target.Type{Mode: target.ModeRegister, Register: i.Type()}, i)
		return nil
	}
	alignType, err := fr.cb.TypeFromAlignment(fr.l.ctx, lt.Align)
	if err != nil {
		return err
	}
	ptr, err := target.ByteAlloca(fr, alignType, lt.Size)
	if err != nil {
		return err
	}
	fr.registerOf(instr, target.Type{Mode: target.ModeRegister, Register: ptr.Type()}, ptr)
	return nil
}

func (fr *functionRewriter) rewriteMemcpy(instr *tvm.Instruction) error {
	dest, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	src, err := fr.operand(instr.Args[1])
	if err != nil {
		return err
	}
	count, err := fr.operand(instr.Args[2])
	if err != nil {
		return err
	}
	align, err := fr.operand(instr.Args[3])
	if err != nil {
		return err
	}
	_, err = fr.cur.NewMemcpy(dest.Scalar, src.Scalar, count.Scalar, align.Scalar)
	return err
}

func (fr *functionRewriter) rewriteMemzero(instr *tvm.Instruction) error {
	dest, err := fr.operand(instr.Args[0])
	if err != nil {
		return err
	}
	count, err := fr.operand(instr.Args[1])
	if err != nil {
		return err
	}
	align, err := fr.operand(instr.Args[2])
	if err != nil {
		return err
	}
	_, err = fr.cur.NewMemzero(dest.Scalar, count.Scalar, align.Scalar)
	return err
}
