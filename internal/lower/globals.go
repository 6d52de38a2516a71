package lower

import "tvm/internal/target"

// This file implements the layout half of flatten_globals: computing a
// global's lowered type as one flat sequence of leaves with explicit
// padding. LowerModule records that layout in LoweredModule.Flattened;
// the lowered global's own initializer keeps its nested array/struct/union
// shape and is not rewritten from it. GlobalBuildStatus
// tracks the running cursor and max-alignment-seen state while
// global_append folds one more field in and global_pad_to_size inserts
// the trailing padding a struct's own alignment requires.

// GlobalBuildStatus accumulates the flattened layout of one global
// initializer the way an ELF/Mach-O data-section builder tracks its write
// position: a target.ElementOffsetGenerator carrying the running byte
// cursor, the largest alignment any appended field required, and whether
// every field so far has a static layout, plus the emitted field list.
type GlobalBuildStatus struct {
	Gen    target.ElementOffsetGenerator
	Fields []FlattenedField
}

// FlattenedField is one piece of a flattened global initializer: a byte
// range at a known offset, holding either a nested scalar (Size/Align
// from its target.Type) or count padding bytes.
type FlattenedField struct {
	Offset  uint64
	Size    uint64
	Align   uint64
	Padding bool
}

// NewGlobalBuildStatus returns an empty builder.
func NewGlobalBuildStatus() *GlobalBuildStatus {
	return &GlobalBuildStatus{Gen: target.NewElementOffsetGenerator()}
}

// globalAppend advances status past one more field of the given size and
// alignment, inserting explicit padding first if the field's alignment
// demands it. static reports whether the field's layout is known at
// lowering time (every field this pass emits is; the flag propagates into
// the generator's Global tracking). It returns the field's resolved byte
// offset.
func globalAppend(status *GlobalBuildStatus, size, align uint64, static bool) uint64 {
	before := status.Gen.Size()
	offset := status.Gen.Append(size, align, static)
	if offset != before {
		status.Fields = append(status.Fields, FlattenedField{
			Offset:  before,
			Size:    offset - before,
			Align:   1,
			Padding: true,
		})
	}
	status.Fields = append(status.Fields, FlattenedField{Offset: offset, Size: size, Align: align})
	return offset
}

// globalPadToSize appends trailing padding, if any, so the builder's
// cursor reaches targetSize — the struct-alignment tail padding every
// aggregate needs once every member has been appended.
func globalPadToSize(status *GlobalBuildStatus, targetSize uint64) {
	cursor := status.Gen.Size()
	if targetSize <= cursor {
		return
	}
	status.Fields = append(status.Fields, FlattenedField{
		Offset:  cursor,
		Size:    targetSize - cursor,
		Align:   1,
		Padding: true,
	})
	status.Gen.Append(targetSize-cursor, 1, true)
}
