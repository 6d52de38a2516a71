package lower

import (
	"tvm/internal/target"
	"tvm/internal/tvm"

	"golang.org/x/exp/maps"
)

// functionRewriter implements §4.9.3's function-level rewriter: a
// per-function map from source value to lowered value, a per-block
// snapshot of those maps taken on entry to and left on exit from each
// block (§4.9.4, §5 "scoped acquisition"), and an insertion cursor the
// target.Callback writes through via the target.Runner interface.
type functionRewriter struct {
	l      *Lowerer
	cb     target.Callback
	source *tvm.Function
	dest   *tvm.Function

	blocks map[*tvm.Block]*tvm.Block         // source block -> lowered block
	saved  map[*tvm.Block]map[tvm.Value]target.Value // source block -> state on exit
	values map[tvm.Value]target.Value                 // current block's live state

	splitPhis map[*tvm.Phi]target.Value // source phi -> tree of lowered leaf phis

	cur *tvm.Block // insertion cursor, satisfies target.Runner.Block
}

// DeclareFunction creates source's lowered declaration via cb.LowerFunction
// and records it in the Lowerer's function map, so any other function's
// calls to source resolve to the right lowered callee regardless of
// declaration order (§4.9.3's module-level rewriter handles module-wide
// concerns like this one; per-function body rewriting happens afterward in
// LowerFunctionBody).
func (l *Lowerer) DeclareFunction(source *tvm.Function) (*tvm.Function, error) {
	dest, err := l.cb.LowerFunction(l, source)
	if err != nil {
		return nil, err
	}
	l.fnMap[source] = dest
	return dest, nil
}

// LowerFunction declares and lowers source's body in one call, for
// single-function use (tests, small standalone lowering runs). Multi-
// function modules should call DeclareFunction for every function first
// (so calls between them resolve) and then LowerFunctionBody for each.
func (l *Lowerer) LowerFunction(source *tvm.Function) (*tvm.Function, error) {
	if _, err := l.DeclareFunction(source); err != nil {
		return nil, err
	}
	return l.LowerFunctionBody(source)
}

// LowerFunctionBody rewrites source's blocks into its already-declared
// lowered function (via DeclareFunction): a prolog block installs
// parameter mappings and falls through to the rewritten entry block, and
// every other block is replayed preserving the original dominator
// structure (§4.9.3, §5 Ordering guarantees).
func (l *Lowerer) LowerFunctionBody(source *tvm.Function) (*tvm.Function, error) {
	dest, ok := l.fnMap[source]
	if !ok {
		return nil, tvm.Newf(tvm.Internal, "function %q lowered before being declared", source.Name)
	}

	fr := &functionRewriter{
		l:         l,
		cb:        l.cb,
		source:    source,
		dest:      dest,
		blocks:    make(map[*tvm.Block]*tvm.Block),
		saved:     make(map[*tvm.Block]map[tvm.Value]target.Value),
		splitPhis: make(map[*tvm.Phi]target.Value),
	}

	prolog, err := dest.AppendBlock(nil, source.Name+".prolog")
	if err != nil {
		return nil, err
	}
	fr.cur = prolog
	fr.values = make(map[tvm.Value]target.Value)

	if err := l.cb.LowerFunctionEntry(fr, source, dest); err != nil {
		return nil, err
	}

	// Every source block gets a lowered counterpart before any instruction
	// is replayed, so forward branches/phi edges can resolve immediately.
	// source.Blocks is already idom-before-child ordered (a block's idom
	// must exist to be appended), so each block's lowered idom is always
	// already in fr.blocks by the time we reach it.
	for _, b := range source.Blocks {
		idom := prolog
		if b.Idom != nil {
			idom = fr.blocks[b.Idom]
		}
		lb, err := dest.AppendBlock(idom, b.Name)
		if err != nil {
			return nil, err
		}
		fr.blocks[b] = lb
	}

	if _, err := prolog.NewBranch(fr.blocks[source.Entry()]); err != nil {
		return nil, err
	}
	fr.saved[nil] = fr.values // prolog's exit state, keyed by the nil "pre-entry" source block

	for _, b := range source.Blocks {
		if err := fr.rewriteBlock(b); err != nil {
			return nil, err
		}
	}
	if err := fr.wirePhiEdges(); err != nil {
		return nil, err
	}
	return dest, nil
}

// target.Runner implementation.

func (fr *functionRewriter) Context() *tvm.Context                      { return fr.l.ctx }
func (fr *functionRewriter) LowerType(v tvm.Value) (target.Type, error) { return fr.l.LowerType(v) }
func (fr *functionRewriter) Lowered() *tvm.Function                     { return fr.dest }
func (fr *functionRewriter) Block() *tvm.Block                          { return fr.cur }
func (fr *functionRewriter) SetBlock(b *tvm.Block)                      { fr.cur = b }
func (fr *functionRewriter) Bind(source tvm.Value, v target.Value)      { fr.bind(source, v) }

// bind records the lowered value produced for a source value (an
// instruction result, a phi, or a function parameter) in the current
// block's live state.
func (fr *functionRewriter) bind(source tvm.Value, v target.Value) {
	fr.values[source] = v
}

// registerOf is a convenience for binding a plain register-mode result.
func (fr *functionRewriter) registerOf(source tvm.Value, lt target.Type, scalar tvm.Value) target.Value {
	v := target.Value{LType: lt, Mode: target.ValueRegister, Scalar: scalar}
	fr.bind(source, v)
	return v
}

// operand resolves a source operand against the current block's live
// state; see resolve.
func (fr *functionRewriter) operand(v tvm.Value) (target.Value, error) {
	return fr.resolve(fr.values, v)
}

// enterBlock restores fr.values to the state saved when leaving b's
// immediate dominator, the per-block snapshot discipline of §4.9.4/§5.
func (fr *functionRewriter) enterBlock(b *tvm.Block) {
	fr.values = maps.Clone(fr.saved[b.Idom])
}

func (fr *functionRewriter) rewriteBlock(b *tvm.Block) error {
	fr.enterBlock(b)
	fr.cur = fr.blocks[b]

	for _, p := range b.Phis {
		if err := fr.declarePhi(p); err != nil {
			return err
		}
	}
	for _, instr := range b.Instr {
		if err := fr.rewriteInstruction(instr); err != nil {
			return err
		}
	}

	fr.saved[b] = fr.values
	return nil
}

// declarePhi creates the lowered phi(s) for a source phi ahead of
// instruction rewriting, so any instruction referencing it within the
// same block sees a bound value. A register/blob-mode phi becomes one
// lowered phi; a split-mode phi becomes one lowered phi per leaf,
// reassembled into a target.Value tree (§4.9.4 "split phis").
func (fr *functionRewriter) declarePhi(p *tvm.Phi) error {
	lt, err := fr.l.LowerType(p.Type())
	if err != nil {
		return err
	}
	lv, err := fr.buildPhiTree(lt)
	if err != nil {
		return err
	}
	fr.splitPhis[p] = lv
	fr.bind(p, lv)
	return nil
}

func (fr *functionRewriter) buildPhiTree(lt target.Type) (target.Value, error) {
	if lt.Mode != target.ModeSplit {
		ph, err := fr.cur.AppendPhi(registerTvmType(lt))
		if err != nil {
			return target.Value{}, err
		}
		return target.Value{LType: lt, Mode: target.ValueRegister, Scalar: ph}, nil
	}
	fields := make([]target.Value, len(lt.Fields))
	for i, ft := range lt.Fields {
		fv, err := fr.buildPhiTree(ft)
		if err != nil {
			return target.Value{}, err
		}
		fields[i] = fv
	}
	return target.Value{LType: lt, Mode: target.ValueSplit, Fields: fields}, nil
}

// registerTvmType returns the tvm type a register-mode lowered type's phi
// should be declared with: lt.Register when set (scalar types), or the
// byte type for a register-mode blob (e.g. a union forced to a single
// byte-sized scalar by a target with no aggregate register class).
func registerTvmType(lt target.Type) tvm.Value {
	if lt.Register != nil {
		return lt.Register
	}
	return nil
}

func (fr *functionRewriter) wirePhiEdges() error {
	for _, b := range fr.source.Blocks {
		for _, p := range b.Phis {
			lv := fr.splitPhis[p]
			for _, edge := range p.Incoming {
				predState := fr.saved[edge.Pred]
				val, ok := predState[edge.Value]
				if !ok {
					rewritten, err := fr.operandInState(predState, edge.Value)
					if err != nil {
						return err
					}
					val = rewritten
				}
				if err := wireLeafEdges(fr.blocks[edge.Pred], lv, val); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// operandInState resolves a phi incoming value against a specific
// predecessor's saved state rather than the (no longer current) live
// state, since phi edges are wired after every block has been rewritten.
func (fr *functionRewriter) operandInState(state map[tvm.Value]target.Value, v tvm.Value) (target.Value, error) {
	return fr.resolve(state, v)
}

func wireLeafEdges(pred *tvm.Block, phiTree, valueTree target.Value) error {
	if phiTree.Mode != target.ValueSplit {
		ph, ok := phiTree.Scalar.(*tvm.Phi)
		if !ok {
			return tvm.Newf(tvm.Internal, "split-phi leaf is not a phi term")
		}
		return ph.AddIncoming(pred, valueTree.Scalar)
	}
	for i, f := range phiTree.Fields {
		if err := wireLeafEdges(pred, f, valueTree.Fields[i]); err != nil {
			return err
		}
	}
	return nil
}
