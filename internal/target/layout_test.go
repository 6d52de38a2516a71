package target

import "testing"

func TestElementOffsetGeneratorAlignsForward(t *testing.T) {
	gen := NewElementOffsetGenerator()
	if off := gen.Append(1, 1, true); off != 0 {
		t.Fatalf("first element: expected offset 0, got %d", off)
	}
	if off := gen.Append(4, 4, true); off != 4 {
		t.Fatalf("expected the 4-aligned element to skip 3 padding bytes, got offset %d", off)
	}
	if off := gen.Append(2, 2, true); off != 8 {
		t.Fatalf("expected the 2-aligned element at offset 8, got %d", off)
	}
	if gen.Size() != 10 {
		t.Fatalf("expected 10 bytes spanned, got %d", gen.Size())
	}
	if gen.MaxAlign() != 4 {
		t.Fatalf("expected the widest alignment seen to be 4, got %d", gen.MaxAlign())
	}
}

func TestElementOffsetGeneratorTracksStaticLayout(t *testing.T) {
	gen := NewElementOffsetGenerator()
	gen.Append(8, 8, true)
	if !gen.Global() {
		t.Fatalf("static elements must keep the generator global")
	}
	gen.Append(8, 8, false)
	if gen.Global() {
		t.Fatalf("one runtime-laid-out element must clear the static-layout flag")
	}
	gen.Append(4, 4, true)
	if gen.Global() {
		t.Fatalf("the static-layout flag must stay cleared for the rest of the walk")
	}
}

func TestFieldOffsetsPrefersCallbackOffsets(t *testing.T) {
	withOffsets := Type{Mode: ModeSplit, Offsets: []uint64{0, 16}}
	got := FieldOffsets(withOffsets)
	if len(got) != 2 || got[1] != 16 {
		t.Fatalf("expected the callback-computed offsets to win, got %v", got)
	}
	rederived := Type{Mode: ModeSplit, Fields: []Type{
		{Mode: ModeRegister, Size: 1, Align: 1},
		{Mode: ModeRegister, Size: 8, Align: 8},
	}}
	got = FieldOffsets(rederived)
	if len(got) != 2 || got[0] != 0 || got[1] != 8 {
		t.Fatalf("expected rederived offsets [0 8], got %v", got)
	}
}
