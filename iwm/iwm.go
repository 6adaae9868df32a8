// Package iwm implements the Integrated Woz Machine / SWIM floppy
// controller: the CA0/CA1/CA2/SEL/LSTRB control lines that address a
// per-drive sense or command register, the Q6/Q7 lines that select
// among the data/status/handshake/mode registers, and the bit-stream
// head-tracking model each drive advances at its own rotational speed
// (spec.md §4.3). The teacher CPU core has no floppy controller at
// all; this package is built from spec.md's description and the
// original Rust emulator's core/src/mac/iwm.rs, in the teacher's Go
// idiom rather than a port.
package iwm

import "github.com/rs/zerolog"

// Iwm is the controller shared by up to three drives (two external
// 3.5" slots plus an SE's internal drive). The Mac only ever has one
// IWM chip, addressed as a 0xDFE1FF-0xDFFFFF aperture where only odd
// byte addresses decode (spec.md §6.5); Read/Write here take an
// offset already relative to that base, still on the full even/odd
// address range the machine package maps in.
type Iwm struct {
	log zerolog.Logger

	drives [3]*Drive

	ca0, ca1, ca2 bool
	sel           bool
	lstrb         bool
	extdrive      bool
	intdrive      bool // SE-only internal drive select, never toggled by this model
	q6, q7        bool
	enable        bool

	cycles uint64

	dataReg     byte
	writeBuffer *byte
	writeShift  byte
	writePos    int

	mode   byte
	status byte
}

// New creates a controller with the given drives present. doubleSided
// controls whether drives are wired for 800K (double-sided) media.
func New(log zerolog.Logger, drivesPresent int, doubleSided bool) *Iwm {
	iw := &Iwm{log: log.With().Str("chip", "iwm").Logger()}
	for i := range iw.drives {
		iw.drives[i] = newDrive(i, i < drivesPresent, doubleSided)
	}
	return iw
}

func (iw *Iwm) Reset() {
	iw.ca0, iw.ca1, iw.ca2, iw.sel, iw.lstrb = false, false, false, false, false
	iw.extdrive, iw.q6, iw.q7, iw.enable = false, false, false, false
	iw.dataReg, iw.mode, iw.status = 0, 0, 0
	iw.writeBuffer = nil
	for _, d := range iw.drives {
		d.Reset()
	}
}

// Drive returns the external-facing handle for drive 0, 1 or 2 (nil for
// any other index), for the
// scheduler's InsertFloppy/EjectFloppy commands and FloppyEjected
// event.
func (iw *Iwm) Drive(index int) *Drive {
	if index < 0 || index >= len(iw.drives) {
		return nil
	}
	return iw.drives[index]
}

func (iw *Iwm) selectedIndex() int {
	switch {
	case iw.extdrive:
		return 1
	case iw.intdrive:
		return 2
	default:
		return 0
	}
}

func (iw *Iwm) selectedDrive() *Drive { return iw.drives[iw.selectedIndex()] }

// SetSel drives the IWM's SEL line directly, the head-select signal the
// VIA's port A carries rather than one of the sixteen access-decoded
// control lines (spec.md §4.3, §6.5).
func (iw *Iwm) SetSel(v bool) { iw.sel = v }

func (iw *Iwm) selectedRegister() byte {
	var v byte
	if iw.ca2 {
		v |= 0b1000
	}
	if iw.ca1 {
		v |= 0b0100
	}
	if iw.ca0 {
		v |= 0b0010
	}
	if iw.sel {
		v |= 0b0001
	}
	return v
}

// access decodes a control-line toggle: the IWM dedicates sixteen
// 512-byte-spaced addresses to flipping one of CA0/CA1/CA2/LSTRB/
// ENABLE/EXTDRIVE/Q6/Q7 on or off per access, rather than carrying the
// line state in the data written.
func (iw *Iwm) access(offset uint32) {
	switch offset / 512 {
	case 0:
		iw.ca0 = false
	case 1:
		iw.ca0 = true
	case 2:
		iw.ca1 = false
	case 3:
		iw.ca1 = true
	case 4:
		iw.ca2 = false
	case 5:
		iw.ca2 = true
	case 6:
		iw.lstrb = false
	case 7:
		iw.lstrb = true
		iw.selectedDrive().writeCommand(DriveWriteReg(iw.selectedRegister()), iw.cycles)
	case 8:
		iw.enable = false
	case 9:
		iw.enable = true
	case 10:
		iw.extdrive = false
	case 11:
		iw.extdrive = true
	case 12:
		iw.q6 = false
	case 13:
		iw.q6 = true
	case 14:
		iw.q7 = false
	case 15:
		iw.q7 = true
	}
}

// Read implements the Region contract. Only odd addresses decode; an
// even address is the CPU reading the disconnected upper data-bus
// half, so even offsets return 0 (no wait) without touching the
// controller's state.
func (iw *Iwm) Read(offset uint32) (byte, bool) {
	if offset&1 == 0 {
		return 0, false
	}
	iw.access(offset - 1)
	return iw.readSelected(), false
}

func (iw *Iwm) readSelected() byte {
	switch {
	case !iw.q6 && !iw.q7:
		if !iw.enable {
			return 0xFF
		}
		v := iw.dataReg
		iw.dataReg = 0
		return v
	case iw.q6 && !iw.q7:
		sense := iw.selectedDrive().readSense(DriveReg(iw.selectedRegister()))
		status := iw.mode & 0x1F
		if iw.enable {
			status |= 0x20
		}
		if sense {
			status |= 0x80
		}
		return status
	case !iw.q6 && iw.q7:
		var handshake byte
		if !(iw.writePos == 0 && iw.writeBuffer == nil) {
			handshake |= 0x40
		}
		if iw.writeBuffer == nil {
			handshake |= 0x80
		}
		return handshake
	default:
		return 0
	}
}

// Write implements the Region contract. UDS/LDS are not wired to the
// IWM, so the low address bit is ignored on writes (unlike reads):
// the original forces it set before decoding.
func (iw *Iwm) Write(offset uint32, value byte) bool {
	iw.access(offset | 1)
	switch {
	case iw.q6 && iw.q7 && !iw.enable:
		iw.mode = value & 0x1F
	case iw.q6 && iw.q7 && iw.enable:
		if iw.writeBuffer == nil {
			v := value
			iw.writeBuffer = &v
		}
	}
	return false
}

// Tick advances the controller and every drive by one CPU cycle,
// shifting bits under the head into (or out of) the data register per
// spec.md §4.3's bit-stream model: one physical bit every
// ticksPerBit ticks, MSB-first into an 8-bit shift register, latched
// to the data register once its MSB reads 1 (true for every valid
// GCR-encoded byte). Flux-transition tracks instead run tickFlux,
// spec.md §4.3's interval-countdown algorithm.
func (iw *Iwm) Tick(cycles uint64) {
	iw.cycles = cycles
	for _, d := range iw.drives {
		d.tick(cycles, iw.lstrb)
	}
	d := iw.selectedDrive()
	if !d.running() || !d.floppyInserted {
		return
	}
	head := iw.activeHead(d)

	if d.isFluxTrack(head) {
		iw.tickFlux(d, head)
		return
	}

	if cycles%d.ticksPerBit() != 0 {
		return
	}
	if iw.writeBuffer != nil {
		bit := iw.writeShift&0x80 != 0
		if iw.writePos == 0 {
			iw.writeShift = *iw.writeBuffer
			iw.writeBuffer = nil
		}
		d.writeBit(head, bit)
		iw.writeShift <<= 1
		iw.writePos = (iw.writePos + 1) % 8
		return
	}
	bit := d.nextBit(head)
	iw.writeShift = iw.writeShift<<1 | boolToByte(bit)
	if iw.writeShift&0x80 != 0 {
		iw.dataReg = iw.writeShift
		iw.writeShift = 0
	}
}

func (iw *Iwm) activeHead(d *Drive) int {
	if d.doubleSided && d.floppy != nil && d.floppy.SideCount() == 2 && iw.sel {
		return 1
	}
	return 0
}

// tickFlux runs one CPU tick of the flux-transition model (spec.md
// §4.3 "Flux tick"): the current interval's countdown is decremented;
// when it expires, the transition is matched against the bit-cell
// acceptance window (derived from the mode's fast/slow and 7/8 MHz
// bits, with a small per-tick jitter standing in for spindle
// instability) and, if it lands inside a window, the elapsed zero
// cells plus the terminating one-bit are shifted into the read
// register before the next interval is loaded.
func (iw *Iwm) tickFlux(d *Drive, head int) {
	if d.fluxTicks == 0 {
		d.loadTransition(head)
		return
	}

	d.fluxTicksLeft--

	// Once more than 20 ticks of the current interval have elapsed, the
	// bit the head presents between transitions goes low again (mirrors a
	// real flux head: the pulse that marked the transition has already
	// decayed).
	if d.fluxTicksLeft < d.fluxTicks-20 {
		d.headBitFlux[head] = false
	}

	if d.fluxTicksLeft > 0 {
		return
	}

	jitter := -2 + int64(iw.cycles%4)
	cellTicks := fluxCellTicks(iw.mode&0x08 != 0, iw.mode&0x10 != 0)
	if zeros, ok := classifyInterval(d.fluxTicks+jitter, cellTicks); ok {
		for i := 0; i < zeros; i++ {
			iw.shiftBit(false)
		}
		iw.shiftBit(true)
		d.headBitFlux[head] = true
	}

	if iw.writePos == 0 && iw.writeBuffer != nil {
		// Writing a flux-transition track is unsupported; the armed
		// buffer is simply dropped rather than corrupting the interval list.
		iw.writeBuffer = nil
	}

	d.loadTransition(head)
}

// shiftBit feeds one bit into the IWM's read shift register, latching
// the data register once its MSB reads 1 — the same GCR framing rule
// the bit-stream path in Tick uses.
func (iw *Iwm) shiftBit(bit bool) {
	iw.writeShift = iw.writeShift<<1 | boolToByte(bit)
	if iw.writeShift&0x80 != 0 {
		iw.dataReg = iw.writeShift
		iw.writeShift = 0
	}
}

// fluxCellTicks derives the nominal single-bit-cell duration in CPU
// ticks from the IWM mode register's fast/slow and 7/8 MHz bits
// (spec.md §4.3).
func fluxCellTicks(fast, eightMHz bool) int64 {
	ticks := int64(16)
	if fast {
		ticks /= 2
	}
	if eightMHz {
		ticks = ticks * 7 / 8
	}
	return ticks
}

// classifyInterval matches a flux interval (in CPU ticks, jittered)
// against the acceptance window for 1, 2, or 3 bit cells — GCR's
// self-sync encoding never carries more than two consecutive zero
// bits, so a transition lands one, two, or three cells after the
// previous one. Intervals outside that window are out of spec and the
// transition is dropped rather than corrupting the shift register.
func classifyInterval(ticks, cellTicks int64) (zeros int, ok bool) {
	if cellTicks <= 0 {
		return 0, false
	}
	cells := (ticks + cellTicks/2) / cellTicks
	if cells < 1 || cells > 3 {
		return 0, false
	}
	return int(cells - 1), true
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// PushPWM feeds one audio-rate PWM sample to every single-sided drive
// for spindle-speed servoing, called from the scheduler's HBlank-edge
// sampling (spec.md §4.6).
func (iw *Iwm) PushPWM(sample byte) {
	for _, d := range iw.drives {
		d.pushPWM(sample)
	}
}
