package mac68k

// prefetchQueue models the MC68000's 2-word read-ahead pipeline (PRM
// §2.2). Illegal-instruction and self-modifying-code test suites depend
// on which words are already queued when an exception fires, so the
// queue's contents are independently inspectable rather than folded
// into a single "fetch opcode" step.
type prefetchQueue struct {
	words [2]uint16
	addr  uint32 // PC that words[0] was fetched for
	valid bool
}

// PrefetchRefill reloads both prefetch slots from the bus starting at
// the current PC. Called automatically on any discontinuity (branch
// taken, exception, RTE) the next time an opcode word is needed, and
// exposed for the scheduler to call explicitly (e.g. after CpuSetPC).
func (c *CPU) PrefetchRefill() {
	pc := c.reg.PC
	c.pf.words[0] = uint16(c.readBus(Word, pc))
	c.pf.words[1] = uint16(c.readBus(Word, pc+2))
	c.pf.addr = pc
	c.pf.valid = true
}

// PrefetchWords returns the two queued instruction words, for the
// debugger's NextCode event and for tests.
func (c *CPU) PrefetchWords() [2]uint16 {
	return c.pf.words
}

// fetchOpcode pops the next opcode word from the prefetch queue,
// transparently refilling it first if PC has moved non-sequentially
// since the last pop.
func (c *CPU) fetchOpcode() uint16 {
	if !c.pf.valid || c.pf.addr != c.reg.PC {
		c.PrefetchRefill()
	}
	word := c.pf.words[0]
	c.reg.PC += 2
	c.pf.words[0] = c.pf.words[1]
	c.pf.words[1] = uint16(c.readBus(Word, c.reg.PC+2))
	c.pf.addr = c.reg.PC
	return word
}
