package tvm

import "strconv"

// FunctionParameter is a distinct term naming one parameter slot of a
// Function. Its source is the owning Function itself: a parameter is
// available throughout the whole function body, before any block.
type FunctionParameter struct {
	base
	Fn      *Function
	Index   int
	Name    string
}

func (fp *FunctionParameter) String() string { return fp.Name }

// Function is a distinct, module-level value: a typed, named container for
// an ordered list of basic blocks plus the parameter terms its body
// references (§4.5/§4.6).
type Function struct {
	base
	Name       string
	CC         CallingConvention
	Sret       bool
	Params     []*FunctionParameter
	NPhantom   int
	Blocks     []*Block
	entryIndex int
}

// NewFunction declares a function of the given function type (an
// OpFunctionType Hashable) and returns it with its parameter terms already
// materialized. The function has no blocks yet; AppendBlock adds them.
func (ctx *Context) NewFunction(funcType Value, name string) (*Function, error) {
	h, ok := funcType.(*Hashable)
	if !ok || h.Op != OpFunctionType {
		return nil, badType("NewFunction requires a function type, got %T", funcType)
	}
	data := h.Data.(functionTypeData)

	fn := &Function{
		Name:       name,
		CC:         data.CC,
		Sret:       data.Sret,
		NPhantom:   data.NPhantom,
		entryIndex: -1,
		base: base{
			ctx:      ctx,
			typ:      funcType,
			category: CategoryValue,
			source:   nil,
		},
	}
	// Operands[0] is the result type; the rest are parameter types.
	for i, pt := range h.Operands[1:] {
		fn.Params = append(fn.Params, &FunctionParameter{
			Fn:    fn,
			Index: i,
			Name:  ctx.paramName(name, i),
			base: base{
				ctx:      ctx,
				typ:      pt,
				category: CategoryValue,
				source:   fn,
				phantom:  i < data.NPhantom,
			},
		})
	}
	ctx.addDistinct(fn)
	for _, p := range fn.Params {
		ctx.addDistinct(p)
	}
	return fn, nil
}

func (ctx *Context) paramName(fnName string, i int) string {
	return fnName + ".param" + strconv.Itoa(i)
}

// ResultType returns the function's declared return type.
func (fn *Function) ResultType() Value {
	return fn.typ.(*Hashable).Operands[0]
}

// AppendBlock creates a new block owned by this function, with idom as its
// immediate dominator (nil only for the function's entry block, and only
// once).
func (fn *Function) AppendBlock(idom *Block, name string) (*Block, error) {
	if idom == nil && fn.entryIndex >= 0 {
		return nil, internalErr("function %q already has an entry block", fn.Name)
	}
	if idom != nil && idom.Fn != fn {
		return nil, internalErr("block idom %q belongs to a different function than %q", idom.Name, fn.Name)
	}
	b := &Block{
		Fn:   fn,
		Name: name,
		Idom: idom,
	}
	b.ctx = fn.ctx
	b.typ = fn.ctx.blockType()
	b.category = CategoryValue
	b.source = fn
	if idom == nil {
		fn.entryIndex = len(fn.Blocks)
	}
	fn.Blocks = append(fn.Blocks, b)
	fn.ctx.addDistinct(b)
	return b, nil
}

// Entry returns the function's entry block, or nil if none has been
// appended yet.
func (fn *Function) Entry() *Block {
	if fn.entryIndex < 0 {
		return nil
	}
	return fn.Blocks[fn.entryIndex]
}

func (ctx *Context) blockType() Value {
	h, err := ctx.intern(OpBlockType, nil, nil, CategoryType, ctx.metatype, false)
	if err != nil {
		// OpBlockType has no operands, so joinSources(nil) cannot fail;
		// a failure here indicates a bug in intern itself.
		panic(err)
	}
	return h
}
