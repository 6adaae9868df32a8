// Package pmmu implements a 68851/68030-subset PMMU dispatcher
// satisfying mac68k.PMMUDispatcher (spec.md §4.2.7). Full page-table
// walking is out of scope for this core (no Rust source for a PMMU
// was present in the retrieval pack, and spec.md frames PMMU support
// as optional); this dispatcher accepts PLOAD/PFLUSH/PTEST/PMOVE
// against an internal register file (PTEST clears PSR, PMOVE to TC
// latches the extension word, the rest are no-ops), and Translate
// returns every address unchanged whether or not the enable flag is
// set, which is enough to let A/UX-style probing code detect PMMU presence and
// proceed without actually faulting on access.
package pmmu

import "mac68k"

// Root pointer / translation control register file, named per the
// 68851 programmer's model.
type PMMU struct {
	PTC uint32
	PSR uint32
	CRP uint64
	SRP uint64
	TC  uint32

	enabled bool
}

func New() *PMMU { return &PMMU{} }

// Dispatch implements mac68k.PMMUDispatcher. Recognized PMMU opcodes
// (ir & 0xFFC0 == 0xF000, already checked by the caller) are decoded
// by the extension word's bits 15-13 "PMMU op" field; ops 4-7 are
// declined.
func (p *PMMU) Dispatch(c *mac68k.CPU, ir, ext uint16) bool {
	regs := c.Registers()
	regs.PC += 2
	c.SetRegisters(regs)

	switch (ext >> 13) & 7 {
	case 0: // PLOAD / PFLUSH family, EA-qualified; treated as a no-op
		return true
	case 1: // PFLUSH
		return true
	case 2: // PMOVE to/from a translation register
		return p.pmove(ext)
	case 3: // PTEST
		p.PSR = 0
		return true
	default:
		return false
	}
}

func (p *PMMU) pmove(ext uint16) bool {
	reg := (ext >> 10) & 7
	toMemory := ext&0x0200 != 0
	switch reg {
	case 0:
		if !toMemory {
			p.TC = uint32(ext)
			p.enabled = p.TC&0x80000000 != 0
		}
	case 1:
		// reserved
	default:
	}
	return true
}

// Translate implements mac68k.PMMUDispatcher. With no page tables
// modeled, translation is the identity function and the enable flag
// is not consulted; ok is always true
// since there is no page-fault state to report.
func (p *PMMU) Translate(vaddr uint32, write bool) (uint32, bool) {
	return vaddr, true
}
