// Package via implements the 6522 Versatile Interface Adapter used by
// every compact Mac to multiplex sound volume, floppy control lines,
// the RTC serial link, ADB, and the overlay-mode boot switch onto a
// handful of 8-bit ports (spec.md §4.6, §9.1).
//
// Mac hardware maps the VIA's sixteen registers 512 bytes apart and
// only looks at data bus bits D8-D15 (the upper byte), so Read/Write
// here take an address already relative to the VIA's own base and
// decode the register number from bits 9-12.
package via

import "github.com/rs/zerolog"

// Register numbers, matching the 6522 datasheet order.
const (
	RegORB = iota
	RegORA
	RegDDRB
	RegDDRA
	RegT1CL
	RegT1CH
	RegT1LL
	RegT1LH
	RegT2CL
	RegT2CH
	RegSR
	RegACR
	RegPCR
	RegIFR
	RegIER
	RegORANoHandshake
)

// Interrupt flag/enable bits (IFR/IER), in the order the datasheet
// numbers them; only a subset is wired on the Mac (CA1 = one-second
// RTC tick, CB1 = keyboard/ADB clock, CB2 = ADB data, T1/T2, SR).
const (
	FlagCA2 = 1 << 0
	FlagCA1 = 1 << 1
	FlagSR  = 1 << 2
	FlagCB2 = 1 << 3
	FlagCB1 = 1 << 4
	FlagT2  = 1 << 5
	FlagT1  = 1 << 6
	FlagIRQ = 1 << 7
)

// PortAWriter and PortBWriter let the machine package observe output
// changes without the via package importing machine or mac68k
// (avoiding an import cycle): port A bit 4 drives the sound buffer
// select and overlay-disable on 128K/512K/Plus models, port B carries
// the RTC clock/data/enable lines and the SCSI IRQ/sound volume bits.
type PortAWriter func(value byte)
type PortBWriter func(value byte)

// Via is a single 6522 instance. The Mac uses exactly one; its ports
// are wired to different peripherals depending on model, so the
// machine package supplies callback hooks rather than Via knowing
// about RTC/ADB/sound directly.
type Via struct {
	log zerolog.Logger

	ora, orb, ddra, ddrb byte
	t1Counter, t1Latch   uint16
	t2Counter, t2Latch   uint16
	sr                   byte
	acr, pcr             byte
	ifr, ier             byte

	t1Running, t2Running bool

	// PortAIn/PortBIn are consulted on an input-pin read (bits whose
	// DDR bit is 0); PortAOut/PortBOut are called after a write with
	// the byte actually latched into ORA/ORB.
	PortAIn  func() byte
	PortBIn  func() byte
	PortAOut PortAWriter
	PortBOut PortBWriter

	// SRIn/SROut let a shift-register-mode consumer (ADB, on the Mac)
	// observe and supply whole-byte transfers without the via package
	// needing to know what's attached to SR.
	SRIn  func() byte
	SROut func(value byte)
}

// New creates a VIA with all registers at their post-reset values.
func New(log zerolog.Logger) *Via {
	v := &Via{log: log.With().Str("chip", "via").Logger()}
	v.Reset()
	return v
}

func (v *Via) Reset() {
	v.ora, v.orb, v.ddra, v.ddrb = 0, 0, 0, 0
	v.t1Counter, v.t1Latch = 0xFFFF, 0xFFFF
	v.t2Counter, v.t2Latch = 0xFFFF, 0xFFFF
	v.sr = 0
	v.acr, v.pcr = 0, 0
	v.ifr, v.ier = 0, 0
	v.t1Running, v.t2Running = false, false
}

func regOf(offset uint32) int { return int((offset >> 9) & 0xF) }

// Read implements the Region contract (Read(offset uint32) (byte,
// bool)) the SystemBus expects, so machine.Compact can Map a Via
// directly without an adapter.
func (v *Via) Read(offset uint32) (byte, bool) {
	switch regOf(offset) {
	case RegORB:
		return v.readPortB(), false
	case RegORA, RegORANoHandshake:
		return v.readPortA(), false
	case RegDDRB:
		return v.ddrb, false
	case RegDDRA:
		return v.ddra, false
	case RegT1CL:
		v.ifr &^= FlagT1
		v.updateIRQ()
		return byte(v.t1Counter), false
	case RegT1CH:
		return byte(v.t1Counter >> 8), false
	case RegT1LL:
		return byte(v.t1Latch), false
	case RegT1LH:
		return byte(v.t1Latch >> 8), false
	case RegT2CL:
		v.ifr &^= FlagT2
		v.updateIRQ()
		return byte(v.t2Counter), false
	case RegT2CH:
		return byte(v.t2Counter >> 8), false
	case RegSR:
		v.ifr &^= FlagSR
		v.updateIRQ()
		if v.SRIn != nil {
			return v.SRIn(), false
		}
		return v.sr, false
	case RegACR:
		return v.acr, false
	case RegPCR:
		return v.pcr, false
	case RegIFR:
		flags := v.ifr
		if v.ifr&v.ier != 0 {
			flags |= FlagIRQ
		}
		return flags, false
	case RegIER:
		return v.ier | 0x80, false
	}
	return 0, false
}

func (v *Via) Write(offset uint32, value byte) bool {
	switch regOf(offset) {
	case RegORB:
		v.orb = value
		if v.PortBOut != nil {
			v.PortBOut(value)
		}
	case RegORA, RegORANoHandshake:
		v.ora = value
		if v.PortAOut != nil {
			v.PortAOut(value)
		}
	case RegDDRB:
		v.ddrb = value
	case RegDDRA:
		v.ddra = value
	case RegT1CL:
		v.t1Latch = v.t1Latch&0xFF00 | uint16(value)
	case RegT1CH:
		v.t1Latch = v.t1Latch&0x00FF | uint16(value)<<8
		v.t1Counter = v.t1Latch
		v.t1Running = true
		v.ifr &^= FlagT1
		v.updateIRQ()
	case RegT1LL:
		v.t1Latch = v.t1Latch&0xFF00 | uint16(value)
	case RegT1LH:
		v.t1Latch = v.t1Latch&0x00FF | uint16(value)<<8
		v.ifr &^= FlagT1
		v.updateIRQ()
	case RegT2CL:
		v.t2Latch = v.t2Latch&0xFF00 | uint16(value)
	case RegT2CH:
		v.t2Counter = uint16(value)<<8 | v.t2Latch&0xFF
		v.t2Running = true
		v.ifr &^= FlagT2
		v.updateIRQ()
	case RegSR:
		v.sr = value
		if v.SROut != nil {
			v.SROut(value)
		}
	case RegACR:
		v.acr = value
	case RegPCR:
		v.pcr = value
	case RegIFR:
		v.ifr &^= value &^ FlagIRQ
		v.updateIRQ()
	case RegIER:
		if value&0x80 != 0 {
			v.ier |= value &^ 0x80
		} else {
			v.ier &^= value
		}
		v.updateIRQ()
	}
	return false
}

func (v *Via) readPortA() byte {
	in := byte(0xFF)
	if v.PortAIn != nil {
		in = v.PortAIn()
	}
	return v.ora&v.ddra | in&^v.ddra
}

func (v *Via) readPortB() byte {
	in := byte(0xFF)
	if v.PortBIn != nil {
		in = v.PortBIn()
	}
	return v.orb&v.ddrb | in&^v.ddrb
}

// IRQ reports whether the VIA is currently asserting its interrupt
// line, for the scheduler's level-1 autovector wiring.
func (v *Via) IRQ() bool { return v.ifr&v.ier != 0 }

func (v *Via) updateIRQ() {
	if v.IRQ() {
		v.log.Trace().Msg("irq asserted")
	}
}

// SetCA1 models a rising/falling edge on the CA1 input, the one-
// second RTC tick the ROM polls for during boot.
func (v *Via) SetCA1() {
	v.ifr |= FlagCA1
	v.updateIRQ()
}

// SetCB1 models an edge on CB1, the ADB/keyboard shift clock.
func (v *Via) SetCB1() {
	v.ifr |= FlagCB1
	v.updateIRQ()
}

// Tick advances the VIA's two timers by the given number of E-clock
// ticks (CPU cycles / 10, spec.md §4.6), posting T1/T2 interrupts on
// underflow. With ACR bit 6 set (free-run) T1 reloads from its latch on
// underflow; otherwise it stops after one underflow. T2 counts only
// with ACR bit 5 clear and always stops after one underflow.
func (v *Via) Tick(eclocks int) {
	for i := 0; i < eclocks; i++ {
		if v.t1Running {
			if v.t1Counter == 0 {
				v.ifr |= FlagT1
				v.updateIRQ()
				if v.acr&0x40 != 0 {
					v.t1Counter = v.t1Latch
				} else {
					v.t1Running = false
				}
			} else {
				v.t1Counter--
			}
		}
		if v.t2Running && v.acr&0x20 == 0 {
			if v.t2Counter == 0 {
				v.ifr |= FlagT2
				v.updateIRQ()
				v.t2Running = false
			} else {
				v.t2Counter--
			}
		}
	}
}
