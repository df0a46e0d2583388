package ir

import "github.com/mna/cirstage/lang/target"

// FieldLayout is the computed byte offset (and, for bitfields, the bit
// offset within that byte and bit width) of one Comp field.
type FieldLayout struct {
	Offset    int
	BitOffset int // 0 for non-bitfields
	BitWidth  int // 0 for non-bitfields
}

// CompLayoutResult is the GCC-flavor layout of a struct or union (spec.md
// §4.1, component C): overall size and alignment, plus each field's
// position.
type CompLayoutResult struct {
	Size   int
	Align  int
	Fields []FieldLayout
}

// CompLayout computes the byte layout of c under m, using the
// struct-packing algorithm of the System V ABI / GCC: fields are placed in
// declaration order, each aligned to its own alignment (or packed tighter
// within the current bitfield storage unit), and the whole composite is
// padded up to its alignment. Unions overlay every field at offset 0 and
// take the max size/align across members. It is a Bug to ask for this
// under the MSVC machine preset (spec.md §4.1, §6): the front end must
// reject MSVC targets before reaching codegen.
func CompLayout(c *Comp, types *TypeArena, m *target.Machine, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef]) CompLayoutResult {
	if m.Compiler != target.GCC {
		panic("ir: composite layout is undefined outside GCC mode")
	}
	if !c.IsDefined {
		panic("ir: sizeof/alignof of incomplete composite type")
	}
	if c.Kind == Union {
		return layoutUnion(c, types, m, comps, typedefs)
	}
	return layoutStruct(c, types, m, comps, typedefs)
}

func layoutUnion(c *Comp, types *TypeArena, m *target.Machine, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef]) CompLayoutResult {
	size, align := 0, 1
	fields := make([]FieldLayout, len(c.Fields))
	for i, f := range c.Fields {
		fsz := types.Sizeof(f.Type, m, comps, typedefs)
		fal := types.Alignof(f.Type, m, comps, typedefs)
		if f.BitWidth != nil {
			fsz = (*f.BitWidth + 7) / 8
		}
		if fsz > size {
			size = fsz
		}
		if fal > align {
			align = fal
		}
		fields[i] = FieldLayout{}
	}
	return CompLayoutResult{Size: target.AlignUp(size, align), Align: align, Fields: fields}
}

func layoutStruct(c *Comp, types *TypeArena, m *target.Machine, comps *Arena[CompID, Comp], typedefs *Arena[TypedefID, Typedef]) CompLayoutResult {
	offset := 0
	align := 1
	fields := make([]FieldLayout, len(c.Fields))

	bitUnitBase := -1 // byte offset where the current bitfield run started
	bitUnitSize := 0  // storage-unit size (bytes) of the current run
	bitPos := 0        // next free bit within the run

	flushBits := func() {
		if bitUnitBase < 0 {
			return
		}
		offset = bitUnitBase + bitUnitSize
		bitUnitBase = -1
		bitUnitSize = 0
		bitPos = 0
	}

	for i, f := range c.Fields {
		fal := types.Alignof(f.Type, m, comps, typedefs)
		if fal > align {
			align = fal
		}

		if f.BitWidth != nil {
			width := *f.BitWidth
			unitSize := types.Sizeof(f.Type, m, comps, typedefs)
			if width == 0 {
				// A zero-width bitfield forces the next field to start in a new
				// storage unit; it occupies no storage itself.
				flushBits()
				fields[i] = FieldLayout{Offset: offset}
				continue
			}
			if bitUnitBase < 0 || bitPos+width > unitSize*8 {
				flushBits()
				bitUnitBase = target.AlignUp(offset, fal)
				bitUnitSize = unitSize
				bitPos = 0
			}
			fields[i] = FieldLayout{
				Offset:    bitUnitBase,
				BitOffset: bitPos,
				BitWidth:  width,
			}
			bitPos += width
			continue
		}

		flushBits()
		fsz := types.Sizeof(f.Type, m, comps, typedefs)
		off := target.AlignUp(offset, fal)
		fields[i] = FieldLayout{Offset: off}
		offset = off + fsz
	}
	flushBits()

	size := target.AlignUp(offset, align)
	if size == 0 {
		size = align // GCC gives an empty struct size 1, aligned to 1
		if align == 0 {
			size = 1
		}
	}
	return CompLayoutResult{Size: size, Align: align, Fields: fields}
}
