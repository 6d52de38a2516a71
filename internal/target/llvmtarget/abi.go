package llvmtarget

import (
	"tvm/internal/target"
	"tvm/internal/tvm"
)

// argClass is the System-V-style classification of one lowered type for
// parameter passing and returning.
type argClass int

const (
	// classDirect: a register-mode scalar, passed and returned as its own
	// tvm type.
	classDirect argClass = iota
	// classPacked: an aggregate fitting one eightbyte, packed into a
	// same-size integer register.
	classPacked
	// classMemory: anything larger, passed behind a caller-spilled
	// pointer and returned through a hidden sret pointer.
	classMemory
)

// classify is a pure function of the lowered type, so every call site
// (declaration, entry, call, return) rederives the same class without any
// shared ABI bookkeeping.
func classify(lt target.Type) argClass {
	if lt.Mode == target.ModeRegister {
		return classDirect
	}
	if lt.Size <= 8 {
		return classPacked
	}
	return classMemory
}

// registerBitWidth returns the bit width of the smallest integer register
// that holds size bytes.
func registerBitWidth(size uint64) uint {
	switch {
	case size <= 1:
		return 8
	case size <= 2:
		return 16
	case size <= 4:
		return 32
	default:
		return 64
	}
}

// registerTypeFor returns the integer tvm type a classPacked value of the
// given byte size travels in.
func registerTypeFor(ctx *tvm.Context, size uint64) (tvm.Value, error) {
	return ctx.IntegerType(registerBitWidth(size), false)
}

// registerLT returns the lowered type of the packed register itself, for
// ConvertValue round trips between an aggregate and its register image.
func registerLT(ctx *tvm.Context, size uint64) (target.Type, error) {
	rt, err := registerTypeFor(ctx, size)
	if err != nil {
		return target.Type{}, err
	}
	bytes := uint64(registerBitWidth(size)) / 8
	return target.Type{Mode: target.ModeRegister, Size: bytes, Align: bytes, Register: rt}, nil
}
