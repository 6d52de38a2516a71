package tvm

// This file implements the dependent, self-referential recursive-type
// lifecycle of §4.9: a RecursiveType is declared abstract (opaque), its
// parameter placeholders can appear inside other type expressions
// (including, via Apply, inside its own eventual body), and only once
// Resolve binds a concrete body does instantiating it with Unpack become
// legal. Until resolved, every term that reaches the recursive type is
// "abstract" (§3); Resolve rescans every interned term to a fixpoint to
// bring every already-built term's Abstract()/Category() up to date (no
// worklist of affected terms is kept), since a Hashable
// term's fields are otherwise fixed for its lifetime once interned.

// ParameterPlaceholder is a distinct term standing for one of a
// RecursiveType's formal parameters, usable inside that type's eventual
// body before the body itself is known.
type ParameterPlaceholder struct {
	base
	Owner *RecursiveType
	Index int
}

// RecursiveType is a distinct, nominal (never structurally shared) type:
// two RecursiveTypes are never equal even with identical bodies, matching
// how opaque/self-referential type declarations behave.
type RecursiveType struct {
	base
	Name     string
	Params   []*ParameterPlaceholder
	Body     Value
	resolved bool
}

// NewRecursiveType declares an unresolved recursive type with nParams
// formal parameters. It is abstract until Resolve is called.
func (ctx *Context) NewRecursiveType(name string, nParams int) (*RecursiveType, error) {
	if nParams < 0 {
		return nil, internalErr("recursive type %q cannot have a negative parameter count", name)
	}
	rt := &RecursiveType{
		Name: name,
		base: base{
			ctx:      ctx,
			typ:      ctx.metatype,
			category: CategoryRecursive,
			abstract: true,
		},
	}
	for i := 0; i < nParams; i++ {
		p := &ParameterPlaceholder{
			Owner: rt,
			Index: i,
			base: base{
				ctx:      ctx,
				typ:      ctx.metatype,
				category: CategoryType,
				source:   rt,
			},
		}
		ctx.addDistinct(p)
		rt.Params = append(rt.Params, p)
	}
	ctx.addDistinct(rt)
	return rt, nil
}

// Resolved reports whether Resolve has been called on rt.
func (rt *RecursiveType) Resolved() bool { return rt.resolved }

// Resolve binds rt's body, the first point at which Unpack becomes legal.
// It may be called exactly once. body may itself contain Apply terms over
// rt (the self-reference that makes this "recursive"), and over other
// still-unresolved recursive types, in which case rt remains abstract.
func (rt *RecursiveType) Resolve(body Value) error {
	if rt.resolved {
		return internalErr("recursive type %q is already resolved", rt.Name)
	}
	if !body.IsType() {
		return badType("recursive type body must be a type, got category %s", body.Category())
	}
	rt.Body = body
	rt.resolved = true
	rt.abstract = body.Abstract()
	rt.category = CategoryType
	rt.ctx.recomputeDerived()
	return nil
}

// Apply instantiates target (a recursive type) with args, producing a
// Hashable term that stays abstract until target resolves. Applying the
// same target to structurally-equal args always yields the same term.
func (ctx *Context) Apply(target Value, args ...Value) (Value, error) {
	rt, ok := target.(*RecursiveType)
	if !ok {
		return nil, badType("apply requires a recursive type operand")
	}
	if len(args) != len(rt.Params) {
		return nil, badType("apply to %q expects %d arguments, got %d", rt.Name, len(rt.Params), len(args))
	}
	for i, a := range args {
		if !a.IsType() {
			return nil, badType("apply argument %d must be a type, got category %s", i, a.Category())
		}
	}
	operands := make([]Value, 0, len(args)+1)
	operands = append(operands, target)
	operands = append(operands, args...)
	return ctx.intern(OpApply, operands, nil, target.Category(), ctx.metatype, false)
}

// Unpack substitutes an Apply term's arguments into its target recursive
// type's resolved body, the only way to see past an opaque recursive type
// to its concrete representation. It fails with UnresolvedRecursive if the
// target has not been resolved yet.
func (ctx *Context) Unpack(applyTerm Value) (Value, error) {
	h, ok := applyTerm.(*Hashable)
	if !ok || h.Op != OpApply {
		return nil, badType("unpack requires an apply term")
	}
	rt, ok := h.Operands[0].(*RecursiveType)
	if !ok {
		return nil, badType("unpack requires an apply of a recursive type")
	}
	if !rt.resolved {
		return nil, Newf(UnresolvedRecursive, "recursive type %q is not yet resolved", rt.Name)
	}
	return ctx.substitute(rt.Body, rt.Params, h.Operands[1:])
}

// substitute rebuilds v with every occurrence of from[i] replaced by
// to[i], reinterning any Hashable ancestor whose operands actually
// changed. Distinct terms other than the placeholders themselves pass
// through unchanged: a recursive type's body can reference module-level
// globals and functions, which substitution never touches.
func (ctx *Context) substitute(v Value, from []*ParameterPlaceholder, to []Value) (Value, error) {
	if v == nil {
		return nil, nil
	}
	for i, p := range from {
		if v == Value(p) {
			return to[i], nil
		}
	}
	h, ok := v.(*Hashable)
	if !ok {
		return v, nil
	}

	changed := false
	newOperands := make([]Value, len(h.Operands))
	for i, o := range h.Operands {
		no, err := ctx.substitute(o, from, to)
		if err != nil {
			return nil, err
		}
		if no != o {
			changed = true
		}
		newOperands[i] = no
	}

	newTyp := h.typ
	if h.typ != nil {
		nt, err := ctx.substitute(h.typ, from, to)
		if err != nil {
			return nil, err
		}
		if nt != h.typ {
			changed = true
			newTyp = nt
		}
	}

	if !changed {
		return h, nil
	}
	return ctx.intern(h.Op, newOperands, h.Data, h.category, newTyp, h.phantom)
}

// recomputeDerived brings every interned Hashable term's abstract flag and
// (for apply terms) category field up to date after a RecursiveType
// resolves. It iterates to a fixpoint since resolving one recursive type
// can make an Apply of it concrete, which can in turn make a term that
// embeds that Apply concrete, and so on.
func (ctx *Context) recomputeDerived() {
	changed := true
	for changed {
		changed = false
		for _, bucket := range ctx.hashBuckets {
			for _, h := range bucket {
				abstract := false
				for _, o := range h.Operands {
					if o != nil && o.Abstract() {
						abstract = true
						break
					}
				}
				if !abstract && h.typ != nil && h.typ.Abstract() {
					abstract = true
				}
				if abstract != h.abstract {
					h.abstract = abstract
					changed = true
				}
				if h.Op == OpApply {
					cat := h.Operands[0].Category()
					if cat != h.category {
						h.category = cat
						changed = true
					}
				}
			}
		}
	}
}
