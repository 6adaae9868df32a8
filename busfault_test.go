package mac68k

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGroupZeroFaultStatusWord table-drives the access kind/direction
// combinations that feed the group-0 frame's status word (PRM bit
// 4=R/W, bit 3=I/N), exercised via an actual odd-address word access
// rather than calling groupZeroFault directly.
func TestGroupZeroFaultStatusWord(t *testing.T) {
	cases := []struct {
		name       string
		opcode     uint16 // placed at PC, operating on A0
		wantVector uint32
		wantStatus uint16 // supervisor FC 6, plus bit 4 for a read
	}{
		{"word read from odd address", 0x3010, vecAddressError, 0x16}, // MOVE.W (A0),D0
		{"word write to odd address", 0x3080, vecAddressError, 0x06},  // MOVE.W D0,(A0)
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &testBus{}
			pc := uint32(0x1000)
			writeWord(bus, pc, tc.opcode)
			setVector(bus, int(tc.wantVector), 0x5000)

			var a [8]uint32
			a[0] = 0x2001 // odd address
			cpu := New(bus, Config{Model: M68000})
			cpu.SetState([8]uint32{}, a, pc, 0x2700, 0, 0x10000)
			cpu.Step()

			assert.False(t, cpu.Halted(), "expected the address-error vector to be serviced")
			assert.Equal(t, uint32(0x5000), cpu.Registers().PC)

			// Frame from SP: SR, PC (long), IR, fault address (long), status.
			sp := cpu.Registers().A[7]
			status := uint16(bus.mem[sp+12])<<8 | uint16(bus.mem[sp+13])
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}
