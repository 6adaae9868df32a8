package scheduler

import "mac68k"

// Event is the sum type of every message the core publishes out to
// the shell (spec.md §6.2).
type Event interface{ isEvent() }

// Status is published periodically (every ~500ms wall-clock) and on
// every breakpoint hit, carrying the full inspectable machine state.
type Status struct {
	Registers          mac68k.Registers
	Cycles             uint64
	Running            bool
	Speed              SpeedMode
	FloppyDriveStates  []FloppyState
	SCSIAttached       []bool
	DirtyPages         []uint
	PeripheralDebugTree map[string]any
}

type FloppyState struct {
	Present  bool
	Inserted bool
	Track    int
	Motor    bool
}

type NextCode struct {
	Address      uint32
	Instructions []DisassembledInstruction
}

type DisassembledInstruction struct {
	Address uint32
	Opcode  uint16
	Text    string
}

type FloppyEjected struct{ Drive int }

type UserMessage struct {
	Error   bool
	Message string
}

type Memory struct {
	Address uint32
	Bytes   []byte
}

type InstructionHistory struct {
	Entries []mac68k.HistoryEntry
}

type PeripheralDebug struct {
	Tree map[string]any
}

type RecordedInput struct {
	Commands []RecordedCommand
}

type SccTransmitData struct {
	Channel byte
	Data    []byte
}

func (Status) isEvent()                  {}
func (NextCode) isEvent()                {}
func (FloppyEjected) isEvent()           {}
func (UserMessage) isEvent()             {}
func (Memory) isEvent()                  {}
func (InstructionHistory) isEvent()      {}
func (PeripheralDebug) isEvent()         {}
func (RecordedInput) isEvent()           {}
func (SccTransmitData) isEvent()         {}
