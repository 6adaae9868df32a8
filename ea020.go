package mac68k

// 68020 extends the brief index extension word with a scale factor and,
// when bit 8 is set, a full-format extension word supporting suppressed
// base/index registers, a base displacement, memory indirection, and an
// outer displacement. This is the "full" addressing mode PRM chapter 2
// describes for the 68020/68030/68040 family; the 68000/68010 only ever
// produce the brief form this core's calcIndex already handles.

// calcIndexExt computes an indexed address from a 68020-style extension
// word, dispatching to the brief or full format as bit 8 selects. base
// is the contents of the base register (An, or PC for PC-relative modes)
// before any base displacement is applied; pc is the address the
// extension word itself was fetched from, needed because PC-relative
// full-format modes compute their base using the extension word's own
// address, not the already-advanced fetch PC.
func (c *CPU) calcIndexExt(base uint32, ext uint16, pcRelative bool) uint32 {
	if ext&0x0100 == 0 {
		return c.calcIndex(base, ext)
	}
	return c.calcIndexFull(base, ext, pcRelative)
}

// indexValue reads and scales the index register selected by a brief or
// full extension word, or returns (0, true) if the index is suppressed
// (full format only).
func (c *CPU) indexValue(ext uint16) (int32, bool) {
	if ext&0x0040 != 0 { // IS: index suppress
		return 0, true
	}
	xn := (ext >> 12) & 7
	var idx int32
	if ext&0x8000 != 0 {
		idx = int32(c.reg.A[xn])
	} else {
		idx = int32(c.reg.D[xn])
	}
	if ext&0x0800 == 0 {
		idx = int32(int16(idx)) // W/L: sign-extend word index
	}
	scale := (ext >> 9) & 3
	idx <<= scale
	return idx, false
}

// calcIndexFull decodes a 68020 full-format extension word:
//
//	bit 15    : D/A (index register type)
//	bits 14-12: index register number
//	bit 11    : W/L (0 = sign-extend word index, 1 = long index)
//	bits 10-9 : scale factor (1, 2, 4, 8)
//	bit 8     : 1 = full format
//	bit 7     : BS  (base register suppress)
//	bit 6     : IS  (index register suppress)
//	bits 5-4  : base displacement size (00 reserved/null, 01 null, 10 word, 11 long)
//	bits 2-0  : I/IS (memory indirection and outer displacement selector)
//
// Only the common non-reserved I/IS encodings are implemented: 0 (no
// memory indirection), 2/3 (preindexed, word/long outer displacement),
// 6/7 (postindexed, word/long outer displacement). 1/5 (null outer
// displacement) are handled as a zero displacement.
func (c *CPU) calcIndexFull(base uint32, ext uint16, pcRelative bool) uint32 {
	bs := ext&0x0080 != 0

	effBase := base
	if bs {
		effBase = 0
	}

	baseDispSize := (ext >> 4) & 3
	var baseDisp int32
	switch baseDispSize {
	case 2:
		baseDisp = int32(int16(c.fetchPC()))
	case 3:
		baseDisp = int32(c.fetchPCLong())
	}

	idx, suppressed := c.indexValue(ext)

	iis := ext & 7
	if iis == 0 {
		// No memory indirection: base + baseDisp + index
		addr := uint32(int32(effBase) + baseDisp)
		if !suppressed {
			addr = uint32(int32(addr) + idx)
		}
		return addr
	}

	// Memory indirection: the PRM distinguishes pre-indexed (index added
	// before the indirection) from post-indexed (index added after).
	preindexed := iis <= 3

	intermediate := uint32(int32(effBase) + baseDisp)
	if preindexed && !suppressed {
		intermediate = uint32(int32(intermediate) + idx)
	}

	indirect := c.readBus(Long, intermediate)

	if !preindexed && !suppressed {
		indirect = uint32(int32(indirect) + idx)
	}

	var outerDisp int32
	switch iis & 3 {
	case 2:
		outerDisp = int32(int16(c.fetchPC()))
	case 3:
		outerDisp = int32(c.fetchPCLong())
	}

	return uint32(int32(indirect) + outerDisp)
}
