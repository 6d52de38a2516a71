package tvm

import "sort"

// Linkage is the visibility/merge behavior of a module-level global.
type Linkage int

const (
	LinkageLocal Linkage = iota
	LinkagePrivate
	LinkageOneDefinition
	LinkageExport
	LinkageImport
)

func (l Linkage) String() string {
	switch l {
	case LinkageLocal:
		return "local"
	case LinkagePrivate:
		return "private"
	case LinkageOneDefinition:
		return "one_definition"
	case LinkageExport:
		return "export"
	case LinkageImport:
		return "import"
	default:
		return "linkage(?)"
	}
}

// CtorEntry pairs a constructor/destructor global function with its
// priority: lower priorities run first among constructors, last among
// destructors, matching the donor's init-order conventions.
type CtorEntry struct {
	Fn       *Function
	Priority uint32
}

// GlobalVariable is a distinct, mutable-once (by initializer assignment)
// module-level value.
type GlobalVariable struct {
	base
	Name     string
	Constant bool
	value    Value
}

// NewGlobalVariable creates a global variable of the given type, registered
// in the context's teardown list; Module.AddGlobal places it in a module. The initializer is
// assigned later via SetValue.
func (ctx *Context) NewGlobalVariable(typ Value, constant bool, name string, linkage Linkage) (*GlobalVariable, error) {
	if !typ.IsType() {
		return nil, badType("global variable type must be a type, got category %s", typ.Category())
	}
	ptrType, err := ctx.PointerType(typ)
	if err != nil {
		return nil, err
	}
	gv := &GlobalVariable{
		Name:     name,
		Constant: constant,
		base: base{
			ctx:      ctx,
			typ:      ptrType,
			category: CategoryValue,
			source:   nil,
		},
	}
	ctx.addDistinct(gv)
	return gv, nil
}

// ValueType returns the pointee type of this global (the type named at
// construction, before the implicit pointer wrapping GlobalVariable.Type()
// exposes).
func (gv *GlobalVariable) ValueType() Value {
	return gv.typ.(*Hashable).Operands[0]
}

// SetValue assigns this global's initializer exactly once; a second call
// is rejected.
func (gv *GlobalVariable) SetValue(v Value) error {
	if gv.value != nil {
		return internalErr("global variable %q initializer already assigned", gv.Name)
	}
	gv.value = v
	return nil
}

// Value returns this global's initializer, or nil if unassigned.
func (gv *GlobalVariable) Value() Value { return gv.value }

// Module is a named collection of globals and functions with linkage, plus
// ordered constructor/destructor lists (§4.6).
type Module struct {
	ctx         *Context
	Name        string
	globals     map[string]Value
	linkage     map[string]Linkage
	order       []string
	Ctors       []CtorEntry
	Dtors       []CtorEntry
}

// NewModule creates an empty module named name.
func NewModule(ctx *Context, name string) *Module {
	return &Module{
		ctx:     ctx,
		Name:    name,
		globals: make(map[string]Value),
		linkage: make(map[string]Linkage),
	}
}

// Context returns the term store this module's globals live in.
func (m *Module) Context() *Context { return m.ctx }

// AddGlobal registers a global variable or function under its name. It
// fails if the name is already bound.
func (m *Module) AddGlobal(name string, g Value, linkage Linkage) error {
	if _, ok := m.globals[name]; ok {
		return internalErr("module %q already has a global named %q", m.Name, name)
	}
	m.globals[name] = g
	m.linkage[name] = linkage
	m.order = append(m.order, name)
	return nil
}

// Lookup returns the global bound to name, or nil.
func (m *Module) Lookup(name string) Value { return m.globals[name] }

// LinkageOf returns the linkage of the global bound to name.
func (m *Module) LinkageOf(name string) Linkage { return m.linkage[name] }

// Names returns every bound global name in insertion order.
func (m *Module) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SortedNames returns every bound global name sorted lexically, useful for
// deterministic output when insertion order isn't the point.
func (m *Module) SortedNames() []string {
	out := m.Names()
	sort.Strings(out)
	return out
}
