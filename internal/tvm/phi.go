package tvm

// Phi is a distinct term: a phi node at the head of a block, selecting
// among values contributed by each predecessor edge (§4.5).
type Phi struct {
	base
	Block    *Block
	Index    int
	Incoming []PhiEdge
}

// PhiEdge names one predecessor block and the value it contributes.
type PhiEdge struct {
	Pred  *Block
	Value Value
}

// AddIncoming records that control reaching this phi's block from pred
// carries value v. pred must end in a branch to this phi's block, which
// this call does not itself verify (the terminator may not exist yet when
// a phi is wired up); callers building well-formed IR ensure it eventually
// does.
func (p *Phi) AddIncoming(pred *Block, v Value) error {
	if pred.Fn != p.Block.Fn {
		return sourceMismatch("phi in %q cannot take an incoming edge from block %q in a different function", p.Block.Name, pred.Name)
	}
	for _, e := range p.Incoming {
		if e.Pred == pred {
			return internalErr("phi in %q already has an incoming edge from %q", p.Block.Name, pred.Name)
		}
	}
	p.Incoming = append(p.Incoming, PhiEdge{Pred: pred, Value: v})
	return nil
}
