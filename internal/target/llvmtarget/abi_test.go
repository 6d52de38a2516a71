package llvmtarget

import (
	"testing"

	"tvm/internal/target"
)

func TestClassifyEightbyteCutoff(t *testing.T) {
	reg := target.Type{Mode: target.ModeRegister, Size: 4, Align: 4}
	if classify(reg) != classDirect {
		t.Fatalf("expected a register-mode scalar to classify direct")
	}
	small := target.Type{Mode: target.ModeSplit, Size: 8, Align: 4}
	if classify(small) != classPacked {
		t.Fatalf("expected an 8-byte split aggregate to pack into one register")
	}
	big := target.Type{Mode: target.ModeSplit, Size: 9, Align: 4}
	if classify(big) != classMemory {
		t.Fatalf("expected a 9-byte split aggregate to go to memory")
	}
	blob := target.Type{Mode: target.ModeBlob, Size: 16, Align: 8}
	if classify(blob) != classMemory {
		t.Fatalf("expected a 16-byte blob to go to memory")
	}
}

func TestRegisterBitWidthThresholds(t *testing.T) {
	if w := registerBitWidth(1); w != 8 {
		t.Fatalf("1 byte: expected an i8 register, got i%d", w)
	}
	if w := registerBitWidth(2); w != 16 {
		t.Fatalf("2 bytes: expected an i16 register, got i%d", w)
	}
	if w := registerBitWidth(3); w != 32 {
		t.Fatalf("3 bytes: expected an i32 register, got i%d", w)
	}
	if w := registerBitWidth(4); w != 32 {
		t.Fatalf("4 bytes: expected an i32 register, got i%d", w)
	}
	if w := registerBitWidth(5); w != 64 {
		t.Fatalf("5 bytes: expected an i64 register, got i%d", w)
	}
	if w := registerBitWidth(8); w != 64 {
		t.Fatalf("8 bytes: expected an i64 register, got i%d", w)
	}
}
