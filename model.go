package mac68k

// Model identifies the CPU generation being emulated. The Macintosh
// compact series (128K through Classic) uses M68000; the Macintosh II
// uses M68020. M68010 is supported as an intermediate step (adds VBR,
// the format/vector-offset exception frame, and RTD) but no shipping
// Macintosh model used it standalone in this core's scope.
type Model int

const (
	M68000 Model = iota
	M68010
	M68020
)

// String returns a human-readable model name.
func (m Model) String() string {
	switch m {
	case M68000:
		return "68000"
	case M68010:
		return "68010"
	case M68020:
		return "68020"
	default:
		return "unknown"
	}
}

// HasVBR reports whether the model has a vector base register and the
// longer exception stack frame with a format/vector-offset word.
func (m Model) HasVBR() bool { return m >= M68010 }

// HasScaledIndex reports whether the model supports 68020 addressing
// mode extensions: index scale factors and full-format extension words.
func (m Model) HasScaledIndex() bool { return m >= M68020 }

// DefaultAddressMask returns the platform's native address bus width
// mask: 24-bit for the 68000-family compact Macs, 32-bit for the
// 68020-based Macintosh II.
func (m Model) DefaultAddressMask() uint32 {
	if m >= M68020 {
		return 0xFFFFFFFF
	}
	return 0x00FFFFFF
}

// Config parameterizes a CPU instance beyond its instruction generation:
// the effective address mask (a boot-time or platform choice, not
// necessarily the model's architectural maximum) and the presence of
// optional coprocessor dispatch tables.
type Config struct {
	Model      Model
	AddrMask   uint32 // 0 selects Model.DefaultAddressMask()
	FPU        FPUDispatcher  // nil disables F-line FPU dispatch
	PMMU       PMMUDispatcher // nil disables F-line PMMU dispatch
}

// FPUDispatcher is implemented by an optional 68881/68882 coprocessor
// model plugged into the CPU's F-line dispatch for FPU opcodes.
type FPUDispatcher interface {
	// Dispatch executes the FPU instruction encoded by the already-fetched
	// opcode word ir and its first extension word ext. It returns false if
	// the encoding is not a recognized FPU opcode (caller raises line-F).
	Dispatch(c *CPU, ir, ext uint16) bool
}

// PMMUDispatcher is implemented by an optional 68851/68030-subset MMU
// model plugged into the CPU's F-line dispatch for PMMU opcodes, and
// consulted on every bus access when translation is enabled.
type PMMUDispatcher interface {
	Dispatch(c *CPU, ir, ext uint16) bool
	// Translate converts a virtual address to a physical one. ok is false
	// on translation failure, in which case the CPU raises a bus error
	// with a group-0 frame carrying the supplied access kind.
	Translate(vaddr uint32, write bool) (paddr uint32, ok bool)
}
