// Package machine assembles a SystemBus, CPU, and the full peripheral
// set into a runnable Mac model: Compact for the 68000-family 128K
// through SE/30-era boards, MacII for the 68020-based NuBus machines.
// The memory map and wait-state policy are grounded directly on the
// original Rust emulator's core/src/mac/compact/bus.rs address-decode
// match arms (spec.md §4.4).
package machine

import (
	"mac68k"
	"mac68k/adb"
	"mac68k/audio"
	"mac68k/iwm"
	"mac68k/rtc"
	"mac68k/scc"
	"mac68k/scsi"
	"mac68k/via"
	"mac68k/video"

	"github.com/rs/zerolog"
)

// Overlay-bit assignment on the 128K/512K/Plus VIA port A, per Inside
// Macintosh's VIA register map (models without the SE+ "any access"
// quirk toggle overlay through this bit instead).
const viaPortAOverlayBit = 0x10

// viaPortASelBit is VIA port A bit 5, the IWM's SEL (head-select) line
// on every compact Mac model (spec.md §4.3, §6.5).
const viaPortASelBit = 0x20

// cpuClockHz is the compact Mac's CPU clock rate, used to derive the
// RTC's one-second tick from the number of CPU cycles TickPeripherals
// has consumed (spec.md §4.6's "~1Hz CA1 tick" note).
const cpuClockHz = 7_833_600

// Compact memory map constants, addresses already masked to 24 bits.
const (
	ramSize      = 0x400000
	ramAliasBase = 0x600000
	ramAliasEnd  = 0x6FFFFF

	romBase        = 0x400000
	romEnd         = 0x43FFFF
	romSCSIHoleEnd = 0x57FFFF // open bus on SCSI-equipped Plus/SE models

	scsiBase = 0x580000
	scsiEnd  = 0x5FFFFF

	sccABase      = 0x9F0000
	sccAEnd       = 0x9FFFFF
	sccBBase      = 0xBF0000
	sccBEnd       = 0xBFFFFF
	phaseAdjustLo = 0x9FFFF7
	phaseAdjustHi = 0x9FFFF9

	iwmBase = 0xDFE1FF
	iwmEnd  = 0xDFFFFF

	viaBase = 0xEF0000
	viaEnd  = 0xEFFFFF
)

// Compact is a 68000-family Mac: one CPU, byte-granular bus, and the
// VIA/SCC/IWM/(SCSI)/(ADB)/RTC/video/audio peripheral set.
type Compact struct {
	log zerolog.Logger

	Bus *mac68k.SystemBus
	CPU *mac68k.CPU

	RAM *mac68k.RAMRegion
	ROM *mac68k.ROMRegion

	Via   *via.Via
	Scc   *scc.Scc
	Iwm   *iwm.Iwm
	Scsi  *scsi.Controller // nil on 128K/512K (no SCSI)
	Rtc   *rtc.Rtc
	Adb   *adb.Transceiver // nil on pre-SE models
	Video *video.Generator
	Audio *audio.Tap

	hasSCSI       bool
	overlayByBit  bool // true: 128K/512K/Plus VIA-bit overlay disable; false: SE+ any-access quirk
	secondsTicker uint64
}

// CompactOptions selects the sub-model variant.
type CompactOptions struct {
	Model         mac68k.Model // must be M68000 or M68010
	ROM           []byte
	RAMBytes      int
	HasSCSI       bool
	HasADB        bool // SE and later
	ByBitOverlay  bool // 128K/512K/Plus: true. SE/SE30/Classic: false.
	DoubleSided   bool // 800K+ drives
	DrivesPresent int
}

// NewCompact builds a fully wired Compact machine, ready for CPU.Reset
// to load the initial SSP/PC from ROM via the overlay mapping.
func NewCompact(log zerolog.Logger, opts CompactOptions) *Compact {
	m := &Compact{
		log:          log,
		hasSCSI:      opts.HasSCSI,
		overlayByBit: opts.ByBitOverlay,
	}

	m.Bus = mac68k.NewSystemBus()
	m.RAM = mac68k.NewRAMRegion(opts.RAMBytes)
	m.ROM = mac68k.NewROMRegion(opts.ROM)
	m.Via = via.New(log)
	m.Scc = scc.New(log)
	m.Iwm = iwm.New(log, opts.DrivesPresent, opts.DoubleSided)
	m.Rtc = rtc.New()
	if opts.HasSCSI {
		m.Scsi = scsi.New(log)
	}
	if opts.HasADB {
		m.Adb = adb.New()
	}

	m.wireOverlay()
	m.wireRAMAndROM()
	m.wireSCC()
	m.wireIWM()
	m.wireVIA()
	m.wireRTC()
	if m.Adb != nil {
		m.wireADB()
	}
	if m.Scsi != nil {
		m.wireSCSI()
	}

	m.CPU = mac68k.New(m.Bus, mac68k.Config{Model: opts.Model})
	m.wireVideoAudio()
	return m
}

// Conventional main/alternate screen and sound buffer offsets near
// the end of a 128K-512K RAM configuration (spec.md §4.6's "fixed
// offsets near end-of-RAM"); larger-RAM configurations use the same
// offsets from the end of their own RAM size.
const (
	screenBufferSize = 0x5580
	soundBufferSize  = audio.SampleBufferBytes
)

func (m *Compact) wireVideoAudio() {
	ramLen := uint32(len(m.RAM.Bytes))
	screenMain := ramLen - screenBufferSize
	screenAlt := screenMain - screenBufferSize
	soundMain := screenAlt - soundBufferSize
	soundAlt := soundMain - soundBufferSize

	m.Audio = audio.NewTap(m.RAM.Bytes, soundMain, soundAlt, nil, m.Iwm.PushPWM)
	m.Video = video.NewGenerator(m.RAM.Bytes, screenMain, screenAlt, m.Audio.Sample, nil)
}

func (m *Compact) wireOverlay() {
	m.Via.PortAOut = func(value byte) {
		if m.overlayByBit {
			m.Bus.SetOverlay(value&viaPortAOverlayBit == 0)
		}
		m.Iwm.SetSel(value&viaPortASelBit != 0)
	}
	m.Bus.SetOverlay(true)
}

func (m *Compact) wireRAMAndROM() {
	m.Bus.MapRAM(0, ramSize-1, m.RAM)
	m.Bus.Map(ramAliasBase, ramAliasEnd, m.RAM)

	m.Bus.Map(romBase, romEnd, m.ROM)
	if m.hasSCSI {
		// The Plus/SE ROM decode leaves a hole above the 256K ROM
		// image when SCSI is present, which ROM startup code probes
		// to self-identify as SCSI-equipped (spec.md §6.5) — it reads
		// as open bus rather than a mirrored ROM image.
		m.Bus.Map(romEnd+1, romSCSIHoleEnd, mac68k.FuncRegion{
			ReadFunc:  func(uint32) (byte, bool) { return 0, false },
			WriteFunc: func(uint32, byte) bool { return false },
		})
	}

	// In overlay mode the boot ROM is aliased at the bottom of the
	// address space (so the reset vector comes from ROM) and RAM
	// moves up to 0x600000-0x7FFFFF; both mappings reuse the same
	// backing Region as their normal-mode counterparts.
	var overlayROM mac68k.Region = m.ROM
	if !m.overlayByBit {
		overlayROM = mac68k.OverlayDisableRegion{Bus: m.Bus, Inner: m.ROM}
	}
	m.Bus.MapOverlay(0, 0xFFFFF, overlayROM)
	m.Bus.MapOverlay(ramAliasBase, 0x7FFFFF, m.RAM)
}

// sccShifted adapts the SCC's 0-3 port index to the Mac's
// address-lines-shifted-right-by-one wiring (spec.md §6.5): UDS isn't
// connected, so the CPU's address bit 1 (not bit 0) selects the port.
func sccShifted(s *scc.Scc) mac68k.Region {
	return mac68k.FuncRegion{
		ReadFunc:  func(offset uint32) (byte, bool) { v, w := s.Read(offset >> 1); return v, w },
		WriteFunc: func(offset uint32, value byte) bool { return s.Write(offset>>1, value) },
		ResetFunc: s.Reset,
	}
}

func (m *Compact) wireSCC() {
	phaseIgnored := mac68k.FuncRegion{
		ReadFunc:  func(uint32) (byte, bool) { return 0, false },
		WriteFunc: func(uint32, byte) bool { return false },
	}
	// The phase-adjust addresses sit inside the channel-A SCC range
	// and must be matched before the broader SCC mapping below.
	m.Bus.Map(phaseAdjustLo, phaseAdjustLo, phaseIgnored)
	m.Bus.Map(phaseAdjustHi, phaseAdjustHi, phaseIgnored)

	sccRegion := sccShifted(m.Scc)
	m.Bus.Map(sccABase, sccAEnd, sccRegion)
	m.Bus.Map(sccBBase, sccBEnd, sccRegion)
}

func (m *Compact) wireIWM() {
	m.Bus.Map(iwmBase, iwmEnd, mac68k.FuncRegion{
		ReadFunc:  m.Iwm.Read,
		WriteFunc: m.Iwm.Write,
		ResetFunc: m.Iwm.Reset,
	})
}

// wireVIA wraps the VIA in an E-clock synchronization region: an
// access asserts WaitState until the CPU's cycle counter aligns on a
// multiple of 10, the 6522's E-clock period (spec.md §4.4, §4.6).
func (m *Compact) wireVIA() {
	region := mac68k.FuncRegion{
		ReadFunc: func(offset uint32) (byte, bool) {
			if m.Bus.Cycle()%10 != 0 {
				return 0, true
			}
			v, _ := m.Via.Read(offset)
			return v, false
		},
		WriteFunc: func(offset uint32, value byte) bool {
			if m.Bus.Cycle()%10 != 0 {
				return true
			}
			m.Via.Write(offset, value)
			return false
		},
		ResetFunc: m.Via.Reset,
	}
	m.Bus.Map(viaBase, viaEnd, region)
}

// wireRTC connects the clock chip's byte-at-a-time command/data
// protocol to VIA port B: a write while the RTC is awaiting a data byte
// (Rtc.AwaitingData) supplies that byte, any other write latches a
// command, and a port B read
// returns whatever the RTC last had queued (spec.md §4.6, §9.1 — a
// simplification of the real bit-serial VIA CB1/CB2 wiring).
func (m *Compact) wireRTC() {
	m.Via.PortBIn = func() byte { return m.Rtc.Read() }
	m.Via.PortBOut = func(value byte) {
		if m.Rtc.AwaitingData() {
			m.Rtc.Write(value)
			return
		}
		m.Rtc.Command(value)
	}
}

// wireADB connects the ADB transceiver to the VIA's shift register,
// the real hardware's byte-transfer point for keyboard/mouse traffic
// on SE-and-later models.
func (m *Compact) wireADB() {
	m.Via.SROut = func(value byte) {
		if m.Adb.Phase() == adb.PhaseListen {
			m.Adb.ShiftListenData(value)
			return
		}
		m.Adb.ShiftCommand(value)
	}
	m.Via.SRIn = func() byte {
		b, _ := m.Adb.ShiftTalkData()
		return b
	}
}

func (m *Compact) wireSCSI() {
	m.Bus.Map(scsiBase, scsiEnd, mac68k.FuncRegion{
		ReadFunc:  m.Scsi.Read,
		WriteFunc: m.Scsi.Write,
		ResetFunc: m.Scsi.Reset,
	})
}

// TickPeripherals advances every peripheral ticked at a sub-CPU rate
// by the number of CPU cycles the scheduler just consumed (spec.md
// §4.6): the VIA at CPU/10, video at 2x CPU (internally), IWM at 1x.
func (m *Compact) TickPeripherals(cpuCycles int) {
	m.Via.Tick(cpuCycles / 10)
	var base uint64
	if total := m.CPU.Cycles(); total > uint64(cpuCycles) {
		base = total - uint64(cpuCycles)
	}
	for i := 0; i < cpuCycles; i++ {
		m.Iwm.Tick(base + uint64(i))
	}
	if m.Video != nil {
		m.Video.Tick(cpuCycles)
	}

	m.secondsTicker += uint64(cpuCycles)
	if m.secondsTicker >= cpuClockHz {
		m.secondsTicker -= cpuClockHz
		m.Rtc.Tick()
		m.Via.SetCA1()
	}
}
