// Package scsi implements the bus-facing half of a 5380-style NCR SCSI
// controller: its eight-register file and the REQ/ACK handshake that
// drives the phase state machine, with a Target interface external
// device-type implementations (disk image, CD-ROM, Ethernet) plug
// into. Those device types are explicitly out of scope (spec.md's
// Non-goals); this package only implements "their bus interface"
// (spec.md §4.6's phrasing, §6's SCSI controller bus interface).
package scsi

import "github.com/rs/zerolog"

// Phase mirrors the SCSI bus phase lines the 5380's status register
// exposes.
type Phase int

const (
	PhaseBusFree Phase = iota
	PhaseArbitration
	PhaseSelection
	PhaseCommand
	PhaseData
	PhaseStatus
	PhaseMessageIn
	PhaseMessageOut
)

// Target is the boundary a device implementation (a disk image, an
// optical drive, a SCSI/Ethernet bridge) satisfies to sit behind this
// controller at a given SCSI ID.
type Target interface {
	// Command receives a fully-assembled CDB and returns status plus
	// any data phase bytes to return (for an IN-direction command).
	Command(cdb []byte) (status byte, data []byte, err error)
}

// Register offsets within the 5380's eight-register window, each
// mirrored at two addresses (a read and a write variant share the
// offset but differ in meaning on some chips; here each is a single
// byte-wide value, sufficient for the ROM's startup probe and driver
// register-poking this core targets).
const (
	RegCurrentData = iota
	RegInitiatorCommand
	RegMode
	RegTargetCommand
	RegCurrentBusStatus
	RegBusAndStatus
	RegInputData
	RegResetParityInterrupt
	numRegisters
)

// Bus-status bits (RegCurrentBusStatus), a practical subset: REQ, I/O,
// C/D, MSG, BSY, SEL.
const (
	StatusREQ = 1 << 5
	StatusIO  = 1 << 1
	StatusCD  = 1 << 2
	StatusMSG = 1 << 3
	StatusBSY = 1 << 6
	StatusSEL = 1 << 0
)

// Controller is the bus-attached 5380 register file plus the phase
// state machine driving it.
type Controller struct {
	log zerolog.Logger

	regs [numRegisters]byte

	targets     [8]Target
	selectedID  int
	phase       Phase
	cdb         []byte
	cdbWant     int
	replyData   []byte
	replyStatus byte
}

func New(log zerolog.Logger) *Controller {
	return &Controller{log: log.With().Str("chip", "scsi").Logger()}
}

func (c *Controller) Reset() {
	c.regs = [numRegisters]byte{}
	c.phase = PhaseBusFree
	c.cdb = nil
	c.replyData = nil
}

// AttachTarget wires a device implementation at the given SCSI ID
// (0-7), replacing any target previously attached there.
func (c *Controller) AttachTarget(id int, t Target) {
	if id >= 0 && id < len(c.targets) {
		c.targets[id] = t
	}
}

func (c *Controller) Read(offset uint32) (byte, bool) {
	reg := int(offset) % numRegisters
	switch reg {
	case RegCurrentBusStatus:
		status := c.regs[RegCurrentBusStatus]
		if c.phase != PhaseBusFree {
			status |= StatusBSY
		}
		if len(c.replyData) > 0 || c.phase == PhaseStatus || c.phase == PhaseCommand {
			status |= StatusREQ
		}
		switch c.phase {
		case PhaseData, PhaseStatus, PhaseMessageIn:
			status |= StatusIO
		}
		if c.phase != PhaseCommand && c.phase != PhaseData {
			status |= StatusCD
		}
		if c.phase == PhaseMessageIn {
			status |= StatusMSG
		}
		return status, false
	case RegCurrentData, RegInputData:
		return c.popReplyByte(), false
	default:
		return c.regs[reg], false
	}
}

func (c *Controller) Write(offset uint32, value byte) bool {
	reg := int(offset) % numRegisters
	switch reg {
	case RegInitiatorCommand:
		c.regs[reg] = value
		if value&StatusSEL != 0 {
			c.beginSelection(value)
		}
	case RegCurrentData:
		c.regs[reg] = value
		c.pushCommandByte(value)
	default:
		c.regs[reg] = value
	}
	return false
}

func (c *Controller) beginSelection(icr byte) {
	// The initiator asserts one data-bus bit per target ID; the lowest
	// set bit, counting from ID 0, whose ID has an attached target is
	// the selected target.
	mask := c.regs[RegCurrentData]
	for id := 0; id < 8; id++ {
		if mask&(1<<id) != 0 && c.targets[id] != nil {
			c.selectedID = id
			c.phase = PhaseCommand
			c.cdb = nil
			c.cdbWant = 6 // grown once the opcode's group code is known
			return
		}
	}
	c.phase = PhaseBusFree
}

func (c *Controller) pushCommandByte(value byte) {
	if c.phase != PhaseCommand {
		return
	}
	c.cdb = append(c.cdb, value)
	if len(c.cdb) == 1 {
		c.cdbWant = cdbLength(value)
	}
	if len(c.cdb) >= c.cdbWant {
		c.runCommand()
	}
}

func cdbLength(opcode byte) int {
	switch opcode >> 5 {
	case 0:
		return 6
	case 1, 2:
		return 10
	default:
		return 12
	}
}

func (c *Controller) runCommand() {
	target := c.targets[c.selectedID]
	if target == nil {
		c.phase = PhaseBusFree
		return
	}
	status, data, err := target.Command(c.cdb)
	if err != nil {
		c.log.Warn().Err(err).Int("target", c.selectedID).Msg("scsi command failed")
		status = 0x02 // CHECK CONDITION
	}
	c.replyStatus = status
	c.replyData = data
	if len(data) > 0 {
		c.phase = PhaseData
	} else {
		c.phase = PhaseStatus
	}
}

func (c *Controller) popReplyByte() byte {
	if c.phase == PhaseStatus {
		c.phase = PhaseMessageIn
		return c.replyStatus
	}
	if c.phase == PhaseMessageIn {
		c.phase = PhaseBusFree
		return 0 // COMMAND COMPLETE message
	}
	if len(c.replyData) == 0 {
		c.phase = PhaseStatus
		return 0
	}
	b := c.replyData[0]
	c.replyData = c.replyData[1:]
	if len(c.replyData) == 0 {
		c.phase = PhaseStatus
	}
	return b
}
