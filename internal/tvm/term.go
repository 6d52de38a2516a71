package tvm

// Category classifies a value by what kind of thing it denotes: the
// metatype itself, a type, an ordinary value, or an abstract recursive
// type awaiting resolution.
type Category int

const (
	CategoryMetatype Category = iota
	CategoryType
	CategoryValue
	CategoryRecursive
)

func (c Category) String() string {
	switch c {
	case CategoryMetatype:
		return "metatype"
	case CategoryType:
		return "type"
	case CategoryValue:
		return "value"
	case CategoryRecursive:
		return "recursive"
	default:
		return "category(?)"
	}
}

// Value is the common interface of every term in the DAG, hashable or
// distinct. A nil Value used as a Source means "fully global": the term
// has no enclosing construct and is available everywhere.
type Value interface {
	// Type returns the type of this value, or nil if this value is the
	// unique metatype.
	Type() Value
	// Category reports whether this value is the metatype, a type, an
	// ordinary value, or part of an unresolved recursive type.
	Category() Category
	// Source returns the nearest enclosing construct that determines
	// where this value first becomes available, or nil if the value is
	// fully global.
	Source() Value
	// Phantom reports whether this value is erased before runtime.
	Phantom() bool
	// Parameterized reports whether this value contains unresolved
	// function-type parameter references.
	Parameterized() bool
	// Abstract reports whether this value transitively references an
	// unresolved recursive type.
	Abstract() bool
	// IsType reports whether this value can itself be the type of
	// another value (true for the metatype and for type category).
	IsType() bool
	// Global reports whether this value's source is nil.
	Global() bool
}

// base is embedded in every concrete term implementation and supplies the
// common bookkeeping fields of §3: type, category, source and flags.
type base struct {
	ctx      *Context
	typ      Value
	category Category
	source   Value
	phantom  bool
	paramed  bool
	abstract bool
}

func (b *base) Type() Value         { return b.typ }
func (b *base) Category() Category   { return b.category }
func (b *base) Source() Value       { return b.source }
func (b *base) Phantom() bool       { return b.phantom }
func (b *base) Parameterized() bool { return b.paramed }
func (b *base) Abstract() bool      { return b.abstract }
func (b *base) Global() bool        { return b.source == nil }
func (b *base) IsType() bool {
	return b.category == CategoryMetatype || b.category == CategoryType
}

// typeOfType returns true when every term reachable by chasing Type()
// eventually reaches the metatype: the typing invariant of §3 ("the type of
// a type is metatype"). It is used by tests, not by the core itself (which
// maintains the invariant by construction).
func typeOfType(ctx *Context, v Value) bool {
	if v == nil {
		return true
	}
	t := v.Type()
	if t == nil {
		return v == ctx.metatype
	}
	for {
		next := t.Type()
		if next == nil {
			return t == ctx.metatype
		}
		t = next
	}
}
