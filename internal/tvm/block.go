package tvm

// Block is a distinct term: one basic block of a function, with an
// immediate-dominator link (nil only for the entry block), an ordered phi
// list, and an ordered instruction list ending in exactly one terminator
// (§4.5 SSA dominance invariant).
type Block struct {
	base
	Fn    *Function
	Name  string
	Idom  *Block
	Phis  []*Phi
	Instr []*Instruction
}

// Dominates reports whether b is b2 or a (transitive) immediate dominator
// of b2, within the same function.
func (b *Block) Dominates(b2 *Block) bool {
	for cur := b2; cur != nil; cur = cur.Idom {
		if cur == b {
			return true
		}
	}
	return false
}

// AppendPhi creates a new phi node at the head of this block, of the given
// type. Incoming edges are added afterward with Phi.AddIncoming, once the
// predecessor blocks and their values are known.
func (b *Block) AppendPhi(typ Value) (*Phi, error) {
	if !typ.IsType() {
		return nil, badType("phi type must be a type, got category %s", typ.Category())
	}
	p := &Phi{
		Block: b,
		Index: len(b.Phis),
		base: base{
			ctx:      b.ctx,
			typ:      typ,
			category: CategoryValue,
			source:   b,
		},
	}
	b.Phis = append(b.Phis, p)
	b.ctx.addDistinct(p)
	return p, nil
}

// terminated reports whether this block's instruction list already ends in
// a terminator.
func (b *Block) terminated() bool {
	if len(b.Instr) == 0 {
		return false
	}
	return b.Instr[len(b.Instr)-1].Op.isTerminator()
}

// AppendInstruction appends instr to this block's instruction list. It
// rejects appending after a terminator, enforcing "exactly one terminator,
// at the end" (§4.5 edge case).
func (b *Block) AppendInstruction(op InstrOp, typ Value, operands ...Value) (*Instruction, error) {
	if b.terminated() {
		return nil, internalErr("block %q already has a terminator", b.Name)
	}
	for _, o := range operands {
		bl, ok := o.(*Block)
		if ok && bl.Fn != b.Fn {
			return nil, sourceMismatch("instruction in %q references block %q from a different function", b.Name, bl.Name)
		}
	}
	instr := &Instruction{
		Op:    op,
		Block: b,
		Index: len(b.Instr),
		Args:  operands,
		base: base{
			ctx:      b.ctx,
			typ:      typ,
			category: CategoryValue,
			source:   b,
		},
	}
	b.Instr = append(b.Instr, instr)
	b.ctx.addDistinct(instr)
	return instr, nil
}
