// Package disasm renders a tvm module as deterministic, human-readable
// text. It follows a two-phase scheme: first walk every block, phi and
// instruction of each function and assign each one a stable name; then
// walk again, this time emitting one line per named term using the
// names assigned in the first pass. Splitting naming from emission this
// way means forward references (a block branching to a block not yet
// printed, a function called before its definition) always print the same
// name they're later defined under.
package disasm

import (
	"fmt"
	"strings"

	"tvm/internal/tvm"

	"golang.org/x/exp/slices"
)

// namer assigns and remembers stable display names for the terms a
// printer names: blocks are numbered "<function>.bb<n>" from one counter,
// instructions and phis share a second "%<n>" counter, and function
// parameters keep their own names. Block debug names are not used, and
// hashable values are never named (they print structurally).
type namer struct {
	names      map[tvm.Value]string
	nextTemp   int
	nextBlock  int
}

func newNamer() *namer {
	return &namer{names: make(map[tvm.Value]string)}
}

func (n *namer) nameOf(v tvm.Value) string {
	if v == nil {
		return "<global>"
	}
	if name, ok := n.names[v]; ok {
		return name
	}
	var name string
	switch t := v.(type) {
	case *tvm.Block:
		name = fmt.Sprintf("%s.bb%d", t.Fn.Name, n.nextBlock)
		n.nextBlock++
	case *tvm.FunctionParameter:
		name = t.Name
	default:
		name = fmt.Sprintf("%%%d", n.nextTemp)
		n.nextTemp++
	}
	n.names[v] = name
	return name
}

// schedule walks every block, phi and instruction of fn in order, assigning
// names before any text is emitted (phase one).
func (n *namer) schedule(fn *tvm.Function) {
	for _, b := range fn.Blocks {
		n.nameOf(b)
		for _, p := range b.Phis {
			n.nameOf(p)
		}
		for _, instr := range b.Instr {
			n.nameOf(instr)
		}
	}
}

// Printer renders tvm terms to deterministic text.
type Printer struct {
	n *namer
}

// NewPrinter creates a Printer with a fresh naming scope. Name assignment
// is scoped per Printer, not per Context; since names are assigned in a
// fixed walk order, two fresh Printers over the same module produce the
// same numbering.
func NewPrinter() *Printer {
	return &Printer{n: newNamer()}
}

// Module renders every global of m, in its sorted name order, to one
// string.
func (p *Printer) Module(m *tvm.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q\n", m.Name)
	for _, name := range m.SortedNames() {
		g := m.Lookup(name)
		p.global(&sb, name, g, m.LinkageOf(name))
	}
	return sb.String()
}

func (p *Printer) global(sb *strings.Builder, name string, g tvm.Value, linkage tvm.Linkage) {
	switch t := g.(type) {
	case *tvm.Function:
		p.function(sb, name, t, linkage)
	case *tvm.GlobalVariable:
		fmt.Fprintf(sb, "global %s %s : %s", linkage, name, p.typeString(t.ValueType()))
		if v := t.Value(); v != nil {
			fmt.Fprintf(sb, " = %s", p.valueString(v))
		}
		sb.WriteByte('\n')
	default:
		fmt.Fprintf(sb, "global %s %s (unknown kind)\n", linkage, name)
	}
}

func (p *Printer) function(sb *strings.Builder, name string, fn *tvm.Function, linkage tvm.Linkage) {
	p.n.schedule(fn)

	params := make([]string, len(fn.Params))
	for i, fp := range fn.Params {
		phantomMark := ""
		if fp.Phantom() {
			phantomMark = "phantom "
		}
		params[i] = fmt.Sprintf("%s%s: %s", phantomMark, fp.Name, p.typeString(fp.Type()))
	}
	fmt.Fprintf(sb, "function %s %s(%s) -> %s {\n", linkage, name, strings.Join(params, ", "), p.typeString(fn.ResultType()))
	for _, b := range fn.Blocks {
		p.block(sb, b)
	}
	fmt.Fprintf(sb, "}\n")
}

func (p *Printer) block(sb *strings.Builder, b *tvm.Block) {
	fmt.Fprintf(sb, "  %s:\n", p.n.nameOf(b))
	for _, phi := range b.Phis {
		edges := make([]string, len(phi.Incoming))
		for i, e := range phi.Incoming {
			edges[i] = fmt.Sprintf("%s: %s", p.n.nameOf(e.Pred), p.valueString(e.Value))
		}
		fmt.Fprintf(sb, "    %s = phi %s [%s]\n", p.n.nameOf(phi), p.typeString(phi.Type()), strings.Join(edges, ", "))
	}
	for _, instr := range b.Instr {
		p.instruction(sb, instr)
	}
}

// voidInstrOps never produce a usable result, so the printer omits a
// "%n = " assignment prefix for them.
var voidInstrOps = map[tvm.InstrOp]bool{
	tvm.InstrReturn:       true,
	tvm.InstrCondBranch:   true,
	tvm.InstrBranch:       true,
	tvm.InstrUnreachable:  true,
	tvm.InstrEvaluate:     true,
	tvm.InstrStore:        true,
	tvm.InstrStackRestore: true,
	tvm.InstrMemcpy:       true,
	tvm.InstrMemzero:      true,
}

func (p *Printer) instruction(sb *strings.Builder, instr *tvm.Instruction) {
	args := make([]string, len(instr.Args))
	for i, a := range instr.Args {
		args[i] = p.valueString(a)
	}
	lhs := ""
	if !voidInstrOps[instr.Op] {
		lhs = p.n.nameOf(instr) + " = "
	}
	fmt.Fprintf(sb, "    %s%s %s\n", lhs, instr.Op, strings.Join(args, ", "))
}

// valueString renders any term, by name if it is a distinct term the
// namer already knows, or structurally if it is a Hashable term.
func (p *Printer) valueString(v tvm.Value) string {
	if v == nil {
		return "<global>"
	}
	switch t := v.(type) {
	case *tvm.Block, *tvm.Phi, *tvm.Instruction, *tvm.FunctionParameter:
		return p.n.nameOf(t)
	case *tvm.Function:
		return t.Name
	case *tvm.GlobalVariable:
		return t.Name
	case *tvm.Hashable:
		return p.hashableString(t)
	default:
		return fmt.Sprintf("<%T>", v)
	}
}

func (p *Printer) hashableString(h *tvm.Hashable) string {
	if len(h.Operands) == 0 && h.Data == nil {
		return h.Op.String()
	}
	operands := make([]string, len(h.Operands))
	for i, o := range h.Operands {
		operands[i] = p.valueString(o)
	}
	if h.Data != nil {
		return fmt.Sprintf("%s<%v>(%s)", h.Op, h.Data, strings.Join(operands, ", "))
	}
	return fmt.Sprintf("%s(%s)", h.Op, strings.Join(operands, ", "))
}

func (p *Printer) typeString(t tvm.Value) string {
	return p.valueString(t)
}

// SortedGlobalNames is a small helper exposed for tests and tools that
// want module iteration order without constructing a Printer.
func SortedGlobalNames(m *tvm.Module) []string {
	names := m.Names()
	slices.Sort(names)
	return names
}
