package tvm

import (
	"github.com/google/uuid"
)

// CallingConvention enumerates the calling conventions a function type may
// declare.
type CallingConvention int

const (
	CCTvm CallingConvention = iota
	CCC
	CCX86Stdcall
	CCX86Thiscall
	CCX86Fastcall
)

func (cc CallingConvention) String() string {
	switch cc {
	case CCTvm:
		return "cc_tvm"
	case CCC:
		return "cc_c"
	case CCX86Stdcall:
		return "cc_x86_stdcall"
	case CCX86Thiscall:
		return "cc_x86_thiscall"
	case CCX86Fastcall:
		return "cc_x86_fastcall"
	default:
		return "cc(?)"
	}
}

// PointerWidth is the abstract target pointer width, in bits, that this
// Context's integer-pointer-width type resolves to. The aggregate-lowering
// pass's target callback is the only place real ABI widths are decided;
// the core just needs one fixed value to make "intptr" concrete.
const PointerWidth = 64

// Context owns every term's lifetime for one compilation unit: it interns
// hashable terms (§4.2) and tracks distinct terms in a flat list for
// deterministic teardown (§3 Ownership/Lifecycle). A Context is
// single-writer: the data model makes no concurrency claim beyond
// confinement to one goroutine at a time (§5).
type Context struct {
	id uuid.UUID

	hashBuckets map[uint64][]*Hashable
	allTerms    []Value // distinct terms only, in creation order

	names map[string]*string // lookup_name canonicalization

	metatype *Hashable
}

// NewContext creates an empty term store.
func NewContext() *Context {
	ctx := &Context{
		id:          uuid.New(),
		hashBuckets: make(map[uint64][]*Hashable),
		names:       make(map[string]*string),
	}
	ctx.metatype = ctx.bootstrapMetatype()
	return ctx
}

// ID returns this context's run-correlation identifier, a UUID fixed when
// the context is created.
func (ctx *Context) ID() uuid.UUID { return ctx.id }

func (ctx *Context) bootstrapMetatype() *Hashable {
	h := &Hashable{
		Op: OpMetatype,
		base: base{
			ctx:      ctx,
			category: CategoryMetatype,
		},
	}
	h.typ = nil
	h.hash = computeHash(OpMetatype, nil, nil)
	ctx.hashBuckets[h.hash] = []*Hashable{h}
	return h
}

// Metatype returns the unique metatype value of this context.
func (ctx *Context) Metatype() Value { return ctx.metatype }

// LookupName interns an operation name string to a canonical pointer
// identity, the way the disassembler and debug-name machinery need stable
// identity for repeated names.
func (ctx *Context) LookupName(name string) *string {
	if p, ok := ctx.names[name]; ok {
		return p
	}
	p := new(string)
	*p = name
	ctx.names[name] = p
	return p
}

// intern is the single entry point every functional/hashable constructor
// funnels through. It computes the source as the join of the operands'
// sources (failing with source-mismatch if none exists), checks the
// hash-consing table, and either returns the existing term or builds and
// registers a new one.
func (ctx *Context) intern(op Op, operands []Value, data interface{}, category Category, typ Value, phantom bool) (*Hashable, error) {
	h := computeHash(op, operands, data)
	for _, cand := range ctx.hashBuckets[h] {
		if cand.Op == op && operandsEqual(cand.Operands, operands) && dataEqual(cand.Data, data) {
			return cand, nil
		}
	}

	src, err := joinSources(operands)
	if err != nil {
		return nil, err
	}

	abstract := false
	paramed := false
	for _, o := range operands {
		if o != nil && o.Abstract() {
			abstract = true
		}
		if o != nil && o.Parameterized() {
			paramed = true
		}
	}
	if typ != nil {
		if typ.Abstract() {
			abstract = true
		}
		if typ.Parameterized() {
			paramed = true
		}
	}

	term := &Hashable{
		Op:       op,
		Operands: operands,
		Data:     data,
		hash:     h,
		base: base{
			ctx:      ctx,
			typ:      typ,
			category: category,
			source:   src,
			phantom:  phantom,
			paramed:  paramed,
			abstract: abstract,
		},
	}
	ctx.hashBuckets[h] = append(ctx.hashBuckets[h], term)
	return term, nil
}

// addDistinct registers a newly created distinct term in the context's flat
// teardown list (§3 Ownership).
func (ctx *Context) addDistinct(v Value) {
	ctx.allTerms = append(ctx.allTerms, v)
}

// AllTerms returns every distinct term this context has ever created, in
// creation order — the order teardown proceeds in reverse of.
func (ctx *Context) AllTerms() []Value {
	out := make([]Value, len(ctx.allTerms))
	copy(out, ctx.allTerms)
	return out
}
