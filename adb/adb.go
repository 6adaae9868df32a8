// Package adb implements the bus-facing half of the Apple Desktop Bus
// transceiver found on the SE and later: the talk/listen/reset phase
// state machine and device address decoding that real hardware drives
// bit-serially over the VIA's CB1 (clock) and CB2 (data) lines. Rather
// than modeling that bit timing, the VIA's 8-bit shift register (SR)
// is repurposed as the whole-byte transfer point. Device simulations
// (actual keyboard and mouse models) live outside this package per
// spec.md's Non-goals; Transceiver only implements the bus protocol
// half described in spec.md §2, with a Device interface external
// input sources satisfy.
package adb

// Phase mirrors the ADB bus's three states.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseReset
	PhaseTalk
	PhaseListen
)

// Device is the boundary a keyboard/mouse implementation plugs into:
// Poll is called when the transceiver issues a Talk command to the
// device's address, and should return the register bytes to shift
// back (or nil if the device has nothing to report).
type Device interface {
	Poll(register int) []byte
	Listen(register int, data []byte)
}

// Transceiver is the bus-facing ADB state machine. Devices register
// themselves at one of 16 addresses; address 3 is conventionally the
// keyboard and address 2 / the default address 3 is self-reassigned
// by real devices during enumeration, but this model just uses
// whatever address Attach is called with.
type Transceiver struct {
	devices [16]Device

	phase       Phase
	command     byte
	haveCommand bool
	replyBuf    []byte
	replyPos    int
}

func New() *Transceiver {
	return &Transceiver{}
}

// Phase reports the transceiver's current bus phase, so a VIA shift-
// register wiring can tell a fresh command byte apart from a Listen
// transaction's follow-up data byte.
func (t *Transceiver) Phase() Phase { return t.phase }

func (t *Transceiver) Reset() {
	t.phase = PhaseIdle
	t.haveCommand = false
	t.replyBuf = nil
}

// Attach wires a device implementation at the given ADB address
// (0-15).
func (t *Transceiver) Attach(address int, d Device) {
	if address >= 0 && address < len(t.devices) {
		t.devices[address] = d
	}
}

// ShiftCommand feeds one command byte in from the VIA's SR, shifted
// MSB-first: bits 4-7 select the target device address, bits 2-3
// select Talk/Listen/Flush/Reserved, bits 0-1 select the register.
func (t *Transceiver) ShiftCommand(b byte) {
	address := int(b>>4) & 0xF
	kind := (b >> 2) & 3
	register := int(b) & 3

	switch kind {
	case 0: // Reset
		t.phase = PhaseReset
		for _, d := range t.devices {
			if d != nil {
				d.Listen(0, nil)
			}
		}
		t.phase = PhaseIdle
	case 3: // Talk
		dev := t.devices[address]
		if dev == nil {
			t.phase = PhaseIdle
			return
		}
		t.replyBuf = dev.Poll(register)
		t.replyPos = 0
		t.phase = PhaseTalk
	case 2: // Listen
		t.command = byte(address<<4) | byte(register)
		t.haveCommand = true
		t.phase = PhaseListen
	default:
		t.phase = PhaseIdle
	}
}

// ShiftListenData feeds one data byte shifted in during a Listen
// transaction to the addressed device.
func (t *Transceiver) ShiftListenData(b byte) {
	if t.phase != PhaseListen || !t.haveCommand {
		return
	}
	address := int(t.command>>4) & 0xF
	register := int(t.command) & 3
	dev := t.devices[address]
	if dev != nil {
		dev.Listen(register, []byte{b})
	}
}

// ShiftTalkData returns the next reply byte for a Talk transaction,
// or (0, false) once the device's reply is exhausted.
func (t *Transceiver) ShiftTalkData() (byte, bool) {
	if t.phase != PhaseTalk || t.replyPos >= len(t.replyBuf) {
		return 0, false
	}
	b := t.replyBuf[t.replyPos]
	t.replyPos++
	return b, true
}
