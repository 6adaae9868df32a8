// Package fpu implements a 68881/68882-compatible FPU dispatcher
// satisfying mac68k.FPUDispatcher, for Macintosh II configurations
// that install a floating-point coprocessor (spec.md §4.2.6). The CPU
// core has no exported bus-read accessor for coprocessor use (only
// Registers/SetRegisters), so this dispatcher covers the
// register-to-register opcode subset — FMOVE, FABS, FNEG, FSQRT,
// FADD, FSUB, FMUL, FDIV, FCMP, FTST — and declines (returning false,
// which the caller turns into a line-F illegal-instruction exception)
// any encoding whose extension word addresses a memory or integer
// source operand. Real 68881 firmware supports far more; this is the
// subset exercised by typical Mac II system software's FPU presence
// probe and simple arithmetic, which is what spec.md §4.2.6 scopes
// FPU support to ("when enabled").
package fpu

import (
	"math"

	"mac68k"
)

// opcode values from the 68881/68882 extension word's low 7 bits.
const (
	opFMOVE = 0x00
	opFSQRT = 0x04
	opFABS  = 0x18
	opFNEG  = 0x1A
	opFDIV  = 0x20
	opFADD  = 0x22
	opFMUL  = 0x23
	opFSUB  = 0x28
	opFCMP  = 0x38
	opFTST  = 0x3A
)

// Status byte bits (FPSR condition code byte, bits 31-24).
const (
	ccN = 1 << 3
	ccZ = 1 << 2
	ccI = 1 << 1
	ccNAN = 1 << 0
)

// FPU holds the 68881-family register file: eight extended-precision
// accumulators (modeled as float64, not the real 80-bit format), the
// control/status/instruction-address registers.
type FPU struct {
	FP   [8]float64
	FPCR uint32
	FPSR uint32
	FPIAR uint32
}

func New() *FPU { return &FPU{} }

// Dispatch implements mac68k.FPUDispatcher.
func (f *FPU) Dispatch(c *mac68k.CPU, ir, ext uint16) bool {
	if ext&0x6000 != 0 {
		// Memory or integer-format source operand: not implemented.
		return false
	}
	src := int((ext >> 10) & 7)
	dst := int((ext >> 7) & 7)
	op := ext & 0x7F

	regs := c.Registers()
	regs.PC += 2
	c.SetRegisters(regs)

	switch op {
	case opFMOVE:
		f.FP[dst] = f.FP[src]
	case opFABS:
		f.FP[dst] = math.Abs(f.FP[src])
	case opFNEG:
		f.FP[dst] = -f.FP[src]
	case opFSQRT:
		f.FP[dst] = math.Sqrt(f.FP[src])
	case opFADD:
		f.FP[dst] += f.FP[src]
	case opFSUB:
		f.FP[dst] -= f.FP[src]
	case opFMUL:
		f.FP[dst] *= f.FP[src]
	case opFDIV:
		if f.FP[src] == 0 {
			f.FPSR |= ccNAN << 24
			return true
		}
		f.FP[dst] /= f.FP[src]
	case opFCMP:
		f.setConditionCodes(f.FP[dst] - f.FP[src])
		return true
	case opFTST:
		f.setConditionCodes(f.FP[src])
		return true
	default:
		return false
	}
	f.setConditionCodes(f.FP[dst])
	return true
}

func (f *FPU) setConditionCodes(v float64) {
	f.FPSR &^= uint32(ccN|ccZ) << 24
	if v < 0 {
		f.FPSR |= ccN << 24
	}
	if v == 0 {
		f.FPSR |= ccZ << 24
	}
}

