// Package scc implements the bus-facing half of the Z8530 Serial
// Communications Controller: two channels (A, B), each with a
// register-pointer indirection scheme and a one-byte RX/TX buffer,
// enough for the ROM's serial driver probes and the scheduler's
// SccReceiveData/SccTransmitData events (spec.md §4.4, §6.2).
//
// The Mac wires the SCC's address lines so the CPU sees it shifted
// right by one (spec.md §6.5: "UDS not wired"); machine.Compact
// performs that shift before calling in here, so offset in this
// package is already a plain 0-3 port index: 0 = channel B control,
// 1 = channel A control, 2 = channel B data, 3 = channel A data
// (the real chip's port order, lowest address is channel B).
package scc

import "github.com/rs/zerolog"

const numRegisters = 16

type channel struct {
	wr       [numRegisters]byte
	rr       [numRegisters]byte
	pointer  int
	rxBuf    byte
	rxFull   bool
	txBuf    byte
	txPend   bool
	onTx     func(b byte)
}

func (c *channel) writeControl(value byte) {
	if c.pointer == 0 {
		// WR0 bits 0-2 select the register pointer for the *next*
		// access to either port; bits 3-5 are command bits (reset,
		// CRC) not modeled here.
		reg := int(value & 7)
		if value&0x38 == 0 {
			c.pointer = reg
			return
		}
		c.pointer = reg
		return
	}
	c.wr[c.pointer] = value
	c.pointer = 0
}

func (c *channel) readControl() byte {
	reg := c.pointer
	c.pointer = 0
	switch reg {
	case 0:
		status := byte(0x04) // Tx buffer empty, always ready to accept
		if c.rxFull {
			status |= 0x01
		}
		return status
	default:
		return c.rr[reg]
	}
}

func (c *channel) writeData(value byte) {
	c.txBuf = value
	c.txPend = true
	if c.onTx != nil {
		c.onTx(value)
	}
}

func (c *channel) readData() byte {
	if !c.rxFull {
		return 0
	}
	c.rxFull = false
	return c.rxBuf
}

// Receive queues a byte from the outside world (the shell's serial
// bridge, if any) for the CPU to read back as channel data.
func (c *channel) receive(b byte) {
	c.rxBuf = b
	c.rxFull = true
}

// Scc is the two-channel controller. The handlers installed with
// SetTransmitHandlers are called whenever the CPU writes a data byte, for the scheduler's
// SccTransmitData event; ReceiveA/B feed SccReceiveData commands back
// in.
type Scc struct {
	log zerolog.Logger
	a, b channel
}

func New(log zerolog.Logger) *Scc {
	s := &Scc{log: log.With().Str("chip", "scc").Logger()}
	return s
}

// SetTransmitHandlers wires the scheduler's SccTransmitData event
// emission; called once at construction time by the machine package.
func (s *Scc) SetTransmitHandlers(onA, onB func(b byte)) {
	s.a.onTx = onA
	s.b.onTx = onB
}

// ReceiveA/ReceiveB implement the SccReceiveData command's channel
// selector.
func (s *Scc) ReceiveA(b byte) { s.a.receive(b) }
func (s *Scc) ReceiveB(b byte) { s.b.receive(b) }

func (s *Scc) Reset() {
	s.a = channel{onTx: s.a.onTx}
	s.b = channel{onTx: s.b.onTx}
}

func (s *Scc) Read(offset uint32) (byte, bool) {
	switch offset & 3 {
	case 0:
		return s.b.readControl(), false
	case 1:
		return s.a.readControl(), false
	case 2:
		return s.b.readData(), false
	default:
		return s.a.readData(), false
	}
}

func (s *Scc) Write(offset uint32, value byte) bool {
	switch offset & 3 {
	case 0:
		s.b.writeControl(value)
	case 1:
		s.a.writeControl(value)
	case 2:
		s.b.writeData(value)
	default:
		s.a.writeData(value)
	}
	return false
}
