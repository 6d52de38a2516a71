package bigint

import "testing"

func TestAddWraps(t *testing.T) {
	a := signedMax(32)
	one := New(32, 1)
	var sum Int
	if err := sum.Add(a, one); err != nil {
		t.Fatalf("add: %v", err)
	}
	min := signedMin(32)
	if !Equal(sum, min) {
		t.Fatalf("expected wraparound to min, got bits=%d", sum.bits)
	}
}

func TestDivideByZero(t *testing.T) {
	a := New(32, 10)
	zero := New(32, 0)
	var q Int
	if err := q.DivideUnsigned(a, zero); err != ErrDivideByZero {
		t.Fatalf("expected divide-by-zero, got %v", err)
	}
}

func TestBadWidth(t *testing.T) {
	a := New(32, 1)
	b := New(64, 1)
	var sum Int
	if err := sum.Add(a, b); err != ErrBadWidth {
		t.Fatalf("expected bad-width, got %v", err)
	}
}

func TestSignExtendPreservesValue(t *testing.T) {
	a := NewSigned(8, -1)
	a.Resize(32, true)
	v, ok := a.UnsignedValue()
	if !ok {
		t.Fatal("expected value to fit in 64 bits")
	}
	if v != 0xFFFFFFFF {
		t.Fatalf("expected all-ones 32 bit pattern, got %x", v)
	}
}

func TestZeroExtendPreservesRepresentation(t *testing.T) {
	a := New(8, 0xFF)
	a.Resize(32, false)
	v, ok := a.UnsignedValue()
	if !ok || v != 0xFF {
		t.Fatalf("expected zero-extended 0xFF, got %x ok=%v", v, ok)
	}
}

func TestParseAndNegate(t *testing.T) {
	var a Int
	a.Resize(32, false)
	if err := a.Parse("19", false, 10); err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, _ := a.UnsignedValue()
	if v != 19 {
		t.Fatalf("expected 19, got %d", v)
	}
}

func TestAddIntegerExample(t *testing.T) {
	a := New(32, 19)
	b := New(32, 8)
	var sum Int
	if err := sum.Add(a, b); err != nil {
		t.Fatal(err)
	}
	v, _ := sum.UnsignedValue()
	if v != 27 {
		t.Fatalf("expected 27, got %d", v)
	}
}

func TestLog2(t *testing.T) {
	a := New(32, 17)
	lg, err := a.Log2Unsigned()
	if err != nil || lg != 4 {
		t.Fatalf("expected log2(17)=4, got %d err=%v", lg, err)
	}
}

func TestCmpSigned(t *testing.T) {
	neg := NewSigned(8, -1)
	pos := NewSigned(8, 1)
	c, err := CmpSigned(neg, pos)
	if err != nil || c >= 0 {
		t.Fatalf("expected negative < positive, got %d err=%v", c, err)
	}
}

func TestShiftRoundTrip(t *testing.T) {
	a := New(32, 0xF0)
	var shifted, back Int
	shifted.Shl(a, 4)
	back.Lshr(shifted, 4)
	if !Equal(a, back) {
		t.Fatalf("shift round trip failed")
	}
}
