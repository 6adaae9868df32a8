package mac68k

// Size represents the operand width of a memory access or ALU operation.
type Size int

const (
	Byte Size = 1
	Word Size = 2
	Long Size = 4
)

// Mask returns a bitmask covering the valid bits for this size.
func (s Size) Mask() uint32 {
	switch s {
	case Byte:
		return 0xFF
	case Word:
		return 0xFFFF
	case Long:
		return 0xFFFFFFFF
	default:
		return 0
	}
}

// MSB returns the most-significant bit position for this size.
func (s Size) MSB() uint32 {
	switch s {
	case Byte:
		return 0x80
	case Word:
		return 0x8000
	case Long:
		return 0x80000000
	default:
		return 0
	}
}

// Bits returns the number of bits for this size.
func (s Size) Bits() uint32 {
	return uint32(s) * 8
}

// ZeroExtend masks v down to this size and zero-fills the rest of the
// 32-bit word, the operation a Dn read performs for any size narrower
// than Long (e.g. an ADD.B operand pulled out of a data register).
func (s Size) ZeroExtend(v uint32) uint32 {
	return v & s.Mask()
}

// Truncate narrows v to this size, discarding the high bits rather than
// promoting them into a register — the operation NOT/CLR-style results
// use when a bitwise op is computed at full width and must be cut back
// down to the operand's declared size before flags are set.
func (s Size) Truncate(v uint32) uint32 {
	return v & s.Mask()
}

// SignExtend sign-extends the low s.Bits() bits of v to a full 32-bit
// value. Long is a no-op (the value is already full width) so callers
// can apply it unconditionally across an ADDA/SUBA/CMPA-style operand
// without an explicit size check.
func (s Size) SignExtend(v uint32) uint32 {
	switch s {
	case Byte:
		return uint32(int32(int8(v)))
	case Word:
		return uint32(int32(int16(v)))
	default:
		return v
	}
}

// ReplaceLow returns dst with its low s.Bits() bits replaced by the
// corresponding low bits of v, leaving dst's upper bits untouched — the
// write a Byte/Word-sized ALU result performs into a 32-bit Dn so the
// unaffected upper bytes of the register survive.
func (s Size) ReplaceLow(dst, v uint32) uint32 {
	mask := s.Mask()
	return (dst &^ mask) | (v & mask)
}

// WrappingAdd adds a and b and wraps the result to this size.
func (s Size) WrappingAdd(a, b uint32) uint32 {
	return (a + b) & s.Mask()
}

// WrappingSub subtracts b from a and wraps the result to this size.
func (s Size) WrappingSub(a, b uint32) uint32 {
	return (a - b) & s.Mask()
}

// WrappingNeg negates v and wraps the result to this size.
func (s Size) WrappingNeg(v uint32) uint32 {
	return (0 - v) & s.Mask()
}

// String returns a human-readable name for this size.
func (s Size) String() string {
	switch s {
	case Byte:
		return "byte"
	case Word:
		return "word"
	case Long:
		return "long"
	default:
		return "unknown"
	}
}
