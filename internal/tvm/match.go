package tvm

// UprefMode controls how Match treats a parameter already bound to a
// different-but-related candidate the second time it's encountered:
// UprefExact demands the two candidates be the identical term; UprefSubtype
// additionally accepts a pointer parameter rebinding to a pointer whose
// pointee is the previously-bound pointee wrapped one level deeper (the
// only subtyping relationship §4.9's function-type unification needs).
type UprefMode int

const (
	UprefExact UprefMode = iota
	UprefSubtype
)

func (m UprefMode) String() string {
	if m == UprefSubtype {
		return "subtype"
	}
	return "exact"
}

// Match unifies pattern (a type expression built over nParams
// ParameterPlaceholders) against candidate, returning the bindings it
// implies, indexed by placeholder index. It is the structural-equality
// engine that function-type specialization and recursive-type application
// checking both build on.
func (ctx *Context) Match(pattern, candidate Value, mode UprefMode, nParams int) ([]Value, error) {
	bindings := make([]Value, nParams)
	if err := matchWalk(pattern, candidate, mode, bindings); err != nil {
		return nil, err
	}
	for i, b := range bindings {
		if b == nil {
			return nil, badType("match: parameter %d never bound", i)
		}
	}
	return bindings, nil
}

func matchWalk(pattern, candidate Value, mode UprefMode, bindings []Value) error {
	if pp, ok := pattern.(*ParameterPlaceholder); ok {
		if bindings[pp.Index] == nil {
			bindings[pp.Index] = candidate
			return nil
		}
		if bindings[pp.Index] == candidate {
			return nil
		}
		if mode == UprefSubtype && pointeeUprefs(bindings[pp.Index], candidate) {
			return nil
		}
		return sourceMismatch("match: parameter %d rebound to an incompatible candidate", pp.Index)
	}

	if pattern == candidate {
		return nil
	}

	ph, pok := pattern.(*Hashable)
	ch, cok := candidate.(*Hashable)
	if !pok || !cok {
		return badType("match: structural mismatch between %T and %T", pattern, candidate)
	}
	if ph.Op != ch.Op {
		return badType("match: operator mismatch (%v vs %v)", ph.Op, ch.Op)
	}
	if !dataEqual(ph.Data, ch.Data) {
		return badType("match: inline data mismatch on %v", ph.Op)
	}
	if len(ph.Operands) != len(ch.Operands) {
		return badType("match: operand count mismatch on %v", ph.Op)
	}
	for i := range ph.Operands {
		if err := matchWalk(ph.Operands[i], ch.Operands[i], mode, bindings); err != nil {
			return err
		}
	}
	return nil
}

// pointeeUprefs reports whether candidate is a pointer type one level
// deeper than prior — prior's pointee structurally equals candidate's
// pointee's pointee — the one upref relationship UprefSubtype accepts.
func pointeeUprefs(prior, candidate Value) bool {
	ph, ok := prior.(*Hashable)
	if !ok || ph.Op != OpPointerType {
		return false
	}
	ch, ok := candidate.(*Hashable)
	if !ok || ch.Op != OpPointerType {
		return false
	}
	inner, ok := ch.Operands[0].(*Hashable)
	if !ok || inner.Op != OpPointerType {
		return false
	}
	return inner.Operands[0] == ph.Operands[0]
}
