package lower

import (
	"tvm/internal/target"
	"tvm/internal/tvm"
)

// LoweredModule is the result of lowering every global and function in a
// module: each global variable's target.Type (and, when
// Config.FlattenGlobals is set, the GlobalBuildStatus describing how its
// initializer flattens into one byte-blob aggregate), plus the output
// *tvm.Module containing every lowered function and global declaration
// (§6.2: "the output module contains the same set of globals... but with
// lowered types and bodies").
type LoweredModule struct {
	Globals   map[string]target.Type
	Flattened map[string]*GlobalBuildStatus
	Module    *tvm.Module
}

// flattenInto walks lt's split fields in order, appending each leaf
// scalar field to status via globalAppend. Register- and blob-mode types
// are leaves; split-mode types (arrays/structs under SplitArrays/
// SplitStructs) recurse into their fields. Every leaf this pass produces
// has a statically known layout (LowerType fails otherwise), so the
// builder's Global flag stays set across the walk.
func (l *Lowerer) flattenInto(status *GlobalBuildStatus, lt target.Type) {
	if lt.Mode != target.ModeSplit {
		globalAppend(status, lt.Size, lt.Align, true)
		return
	}
	for _, f := range lt.Fields {
		l.flattenInto(status, f)
	}
}

// Flatten computes the flattened byte layout of lt as a single
// top-level aggregate: one GlobalBuildStatus whose Fields list every
// scalar leaf and padding run in emission order, trailing-padded to lt's
// own alignment.
func (l *Lowerer) Flatten(lt target.Type) *GlobalBuildStatus {
	status := NewGlobalBuildStatus()
	l.flattenInto(status, lt)
	globalPadToSize(status, target.AlignUp(status.Gen.Size(), status.Gen.MaxAlign()))
	return status
}

// LowerModule computes the target.Type of every global variable in m
// (flattening it when Config.FlattenGlobals is set), and lowers every
// function's body, producing a second module in the same context holding
// the same named globals under the same linkage (§6.2) but with every
// aggregate type/value/instruction rewritten per §4.9. Functions are
// declared in one pass before any body is lowered, so a call to a
// function declared later in the module still resolves (§4.9.3).
func (l *Lowerer) LowerModule(m *tvm.Module) (*LoweredModule, error) {
	out := &LoweredModule{
		Globals:   make(map[string]target.Type),
		Flattened: make(map[string]*GlobalBuildStatus),
		Module:    tvm.NewModule(l.ctx, m.Name),
	}

	var fns []*tvm.Function
	for _, name := range m.Names() {
		switch g := m.Lookup(name).(type) {
		case *tvm.GlobalVariable:
			lt, err := l.LowerType(g.ValueType())
			if err != nil {
				return nil, err
			}
			out.Globals[name] = lt
			if l.cfg.FlattenGlobals {
				out.Flattened[name] = l.Flatten(lt)
			}
			lowered, err := l.lowerGlobalVariable(g, lt)
			if err != nil {
				return nil, err
			}
			if err := out.Module.AddGlobal(name, lowered, m.LinkageOf(name)); err != nil {
				return nil, err
			}
		case *tvm.Function:
			dest, err := l.DeclareFunction(g)
			if err != nil {
				return nil, err
			}
			if err := out.Module.AddGlobal(name, dest, m.LinkageOf(name)); err != nil {
				return nil, err
			}
			fns = append(fns, g)
		}
	}

	for _, fn := range fns {
		if _, err := l.LowerFunctionBody(fn); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// lowerGlobalVariable declares the lowered counterpart of a module-level
// global variable and, when it already carries an initializer, lowers
// that initializer expression too (§4.9.6).
func (l *Lowerer) lowerGlobalVariable(gv *tvm.GlobalVariable, lt target.Type) (*tvm.GlobalVariable, error) {
	valueType := lt.Register
	if valueType == nil {
		// Split- or blob-mode globals still need a concrete tvm type to
		// back the new global variable; a byte array of the lowered size
		// is always available and is what FlattenGlobals-style back ends
		// expect regardless.
		length, err := l.intptrConst(lt.Size)
		if err != nil {
			return nil, err
		}
		arr, err := l.ctx.ArrayType(l.byteT, length)
		if err != nil {
			return nil, err
		}
		valueType = arr
	}
	dest, err := l.ctx.NewGlobalVariable(valueType, gv.Constant, gv.Name, tvm.LinkageLocal)
	if err != nil {
		return nil, err
	}
	if gv.Value() == nil {
		return dest, nil
	}
	rewritten, err := l.LowerValue(gv.Value())
	if err != nil {
		return nil, err
	}
	if err := dest.SetValue(rewritten); err != nil {
		return nil, err
	}
	return dest, nil
}
