package machine

import (
	"mac68k"
	"mac68k/fpu"
	"mac68k/pmmu"
	"mac68k/scc"
	"mac68k/scsi"
	"mac68k/via"

	"github.com/rs/zerolog"
)

// MacII NuBus-era memory map: no overlay mode, 32-bit address bus, a
// flat RAM region, and a stubbed NuBus slot space (slots themselves
// are out of scope; an access reads/writes as open bus, matching an
// empty slot). VIA/SCC keep the same register layout as Compact,
// remapped to the Mac II's different base addresses; no IWM is mapped.
const (
	maciiRAMEnd  = 0x3FFFFFFF
	maciiROMBase = 0x40800000
	maciiROMEnd  = 0x408FFFFF

	maciiVIABase = 0x50F00000
	maciiVIAEnd  = 0x50FFFFFF
	maciiSCCBase = 0x50F04000
	maciiSCCEnd  = 0x50F05FFF
	maciiSCSIBase = 0x50F10000
	maciiSCSIEnd  = 0x50F11FFF
)

// MacII is a 68020-based Macintosh II: no overlay mode, 32-bit
// addressing, optional FPU/PMMU coprocessors.
type MacII struct {
	log zerolog.Logger

	Bus *mac68k.SystemBus
	CPU *mac68k.CPU

	RAM *mac68k.RAMRegion
	ROM *mac68k.ROMRegion

	Via  *via.Via
	Scc  *scc.Scc
	Scsi *scsi.Controller

	FPU  *fpu.FPU
	PMMU *pmmu.PMMU
}

type MacIIOptions struct {
	ROM      []byte
	RAMBytes int
	HasFPU   bool
	HasPMMU  bool
}

func NewMacII(log zerolog.Logger, opts MacIIOptions) *MacII {
	m := &MacII{log: log}

	m.Bus = mac68k.NewSystemBus()
	m.RAM = mac68k.NewRAMRegion(opts.RAMBytes)
	m.ROM = mac68k.NewROMRegion(opts.ROM)
	m.Via = via.New(log)
	m.Scc = scc.New(log)
	m.Scsi = scsi.New(log)

	m.Bus.MapRAM(0, uint32(opts.RAMBytes-1), m.RAM)
	m.Bus.Map(maciiROMBase, maciiROMEnd, m.ROM)
	m.Bus.Map(maciiSCCBase, maciiSCCEnd, sccShifted(m.Scc))
	m.Bus.Map(maciiSCSIBase, maciiSCSIEnd, mac68k.FuncRegion{
		ReadFunc:  m.Scsi.Read,
		WriteFunc: m.Scsi.Write,
		ResetFunc: m.Scsi.Reset,
	})
	m.Bus.Map(maciiVIABase, maciiVIAEnd, mac68k.FuncRegion{
		ReadFunc:  m.Via.Read,
		WriteFunc: m.Via.Write,
		ResetFunc: m.Via.Reset,
	})
	// No overlay mode on the Mac II: the reset vector comes straight
	// from the declROM at maciiROMBase, so ROM must also answer at
	// address 0 at power-on. Rather than modeling the 68020's actual
	// declaration-ROM boot sequence, the ROM region is mirrored at
	// address 0 directly; real firmware performs its own jump away
	// from there once initialized.
	m.Bus.Map(0, maciiROMEnd-maciiROMBase, m.ROM)

	cfg := mac68k.Config{Model: mac68k.M68020}
	if opts.HasFPU {
		m.FPU = fpu.New()
		cfg.FPU = m.FPU
	}
	if opts.HasPMMU {
		m.PMMU = pmmu.New()
		cfg.PMMU = m.PMMU
	}
	m.CPU = mac68k.New(m.Bus, cfg)
	return m
}

// TickPeripherals advances the VIA; the SCC and SCSI controller are
// driven by bus accesses and get no tick. The Mac II has no IWM wiring
// modeled here
// (NuBus floppy controllers are a later-model concern out of scope).
func (m *MacII) TickPeripherals(cpuCycles int) {
	m.Via.Tick(cpuCycles / 10)
}
