package pmmu

import (
	"testing"

	"mac68k"
)

type flatBus struct {
	mem [1 << 20]byte
}

func (b *flatBus) Read(addr uint32) (byte, bool)  { return b.mem[addr%uint32(len(b.mem))], false }
func (b *flatBus) Write(addr uint32, v byte) bool { b.mem[addr%uint32(len(b.mem))] = v; return false }
func (b *flatBus) Reset()                         {}

func newTestCPU() *mac68k.CPU {
	return mac68k.New(&flatBus{}, mac68k.Config{Model: mac68k.M68020})
}

func TestPmmuTranslateIdentityWhenDisabled(t *testing.T) {
	p := New()
	paddr, ok := p.Translate(0x12345, false)
	if !ok || paddr != 0x12345 {
		t.Errorf("Translate(0x12345) = (%#x, %v), want (0x12345, true)", paddr, ok)
	}
}

func TestPmmuPmoveEnablesTranslation(t *testing.T) {
	p := New()
	c := newTestCPU()

	// PMOVE to TC (reg field 0, toMemory clear), enable bit set in the
	// extension word's low 16 bits along with the opcode group (010).
	ext := uint16(2<<13) | uint16(0x8000) // reg=0, enable bit set
	if !p.Dispatch(c, 0xF000, ext) {
		t.Fatal("PMOVE should be recognized")
	}
	if !p.enabled {
		t.Error("expected PMOVE with the enable bit set to enable translation")
	}
}

func TestPmmuPtestClearsStatus(t *testing.T) {
	p := New()
	c := newTestCPU()
	p.PSR = 0xFF

	ext := uint16(3 << 13)
	if !p.Dispatch(c, 0xF000, ext) {
		t.Fatal("PTEST should be recognized")
	}
	if p.PSR != 0 {
		t.Errorf("PSR after PTEST = %#x, want 0", p.PSR)
	}
}

func TestPmmuPflushIsNoop(t *testing.T) {
	p := New()
	c := newTestCPU()

	if !p.Dispatch(c, 0xF000, uint16(1<<13)) {
		t.Error("PFLUSH should be recognized as a no-op")
	}
	if !p.Dispatch(c, 0xF000, uint16(0<<13)) {
		t.Error("PLOAD/PFLUSH family op should be recognized as a no-op")
	}
}

func TestPmmuDispatchAdvancesPC(t *testing.T) {
	p := New()
	c := newTestCPU()
	regs := c.Registers()
	regs.PC = 0x2000
	c.SetRegisters(regs)

	p.Dispatch(c, 0xF000, uint16(3<<13))

	if got := c.Registers().PC; got != 0x2002 {
		t.Errorf("PC after dispatch = %#x, want 0x2002", got)
	}
}
