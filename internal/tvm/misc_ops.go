package tvm

// FunctionSpecialize partially applies the phantom (compile-time-only)
// leading parameters of a function value, returning a new function-typed
// value whose type has those parameters removed (§4.10). args must cover
// exactly the callee's phantom parameter prefix.
func (ctx *Context) FunctionSpecialize(callee Value, args ...Value) (Value, error) {
	h, ok := functionTypeOf(callee)
	if !ok {
		return nil, badType("function_specialize requires a function-typed callee")
	}
	data := h.Data.(functionTypeData)
	if len(args) != data.NPhantom {
		return nil, badType("function_specialize expects %d phantom arguments, got %d", data.NPhantom, len(args))
	}
	for i, a := range args {
		if a.Type() != h.Operands[i+1] {
			return nil, badType("function_specialize argument %d type mismatch", i)
		}
	}
	remaining := append([]Value{h.Operands[0]}, h.Operands[data.NPhantom+1:]...)
	newType, err := ctx.intern(OpFunctionType, remaining, functionTypeData{CC: data.CC, NPhantom: 0, Sret: data.Sret}, CategoryType, ctx.metatype, false)
	if err != nil {
		return nil, err
	}

	operands := append([]Value{callee}, args...)
	return ctx.intern(OpFunctionSpecialize, operands, nil, CategoryValue, newType, false)
}
