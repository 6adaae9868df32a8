package mac68k

// Integer instruction extensions not present in the 68000 instruction
// set: 32-bit and mixed 32x32->64 multiply/divide, the compare-and-swap
// primitives, MOVEC, RTD, and TRAPcc. MOVEC and RTD exist from the 68010
// on and gate themselves on c.model.HasVBR(); the rest are 68020-only and
// gate themselves on c.model < M68020. Table entries are installed
// unconditionally at package init.

func init() {
	registerOps020()
}

// registerOps020 installs the opcode table entries for every instruction
// in this file. Called unconditionally at package init like every other
// ops_*.go table; on a model that lacks the instruction, the check at the
// top of each handler raises an illegal-instruction exception before any
// extension word is fetched.
func registerOps020() {
	registerMULxL()
	registerDIVxL()
	registerCAS()
	registerCAS2()
	registerMOVEC()
	registerRTD()
	registerTRAPcc()
}

// --- MULU.L / MULS.L ---
//
// First word: 0100 1100 00 mode reg (0x4C00 | ea).
// Extension word: bits15-12 Dh, bit11 signed, bit10 size (1 = 64-bit
// product in Dh:Dl), bits2-0 Dl. Grounded on the MulxExtWord accessors
// (dh/dl/signed/size) exercised by original_source's disassembler; the
// exact bit offsets follow the 68020 PRM's extension-word layout, which
// the filtered original_source does not itself spell out (the bitfield
// struct definition was not present in the retrieval pack).

func registerMULxL() {
	for mode := uint16(0); mode < 8; mode++ {
		if mode == 1 {
			continue
		}
		for reg := uint16(0); reg < 8; reg++ {
			if mode == 7 && reg > 4 {
				continue
			}
			opcodeTable[0x4C00|mode<<3|reg] = opMULxL
		}
	}
}

func opMULxL(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	mode := uint8((c.ir >> 3) & 7)
	reg := uint8(c.ir & 7)
	src := c.resolveEA(mode, reg, Long)
	ext := c.fetchPC()

	dl := ext & 7
	dh := (ext >> 12) & 7
	signed := ext&0x0800 != 0
	wide := ext&0x0400 != 0

	s := src.read(c, Long)
	d := c.reg.D[dl]

	var resultLo, resultHi uint32
	var overflow bool
	if signed {
		product := int64(int32(s)) * int64(int32(d))
		resultLo = uint32(product)
		resultHi = uint32(product >> 32)
		if !wide {
			overflow = product != int64(int32(resultLo))
		}
	} else {
		product := uint64(s) * uint64(d)
		resultLo = uint32(product)
		resultHi = uint32(product >> 32)
		if !wide {
			overflow = resultHi != 0
		}
	}

	c.reg.D[dl] = resultLo
	if wide {
		c.reg.D[dh] = resultHi
	}

	c.reg.SR &^= flagN | flagZ | flagV | flagC
	var flagResult uint32
	if wide {
		flagResult = resultLo | resultHi
	} else {
		flagResult = resultLo
	}
	if flagResult == 0 {
		c.reg.SR |= flagZ
	}
	var negMSB uint32 = 0x80000000
	if wide {
		if resultHi&negMSB != 0 {
			c.reg.SR |= flagN
		}
	} else if resultLo&negMSB != 0 {
		c.reg.SR |= flagN
	}
	if overflow {
		c.reg.SR |= flagV
	}

	c.cycles += 70 + eaFetchCycles(mode, reg, Long)
}

// --- DIVU.L / DIVS.L ---
//
// First word: 0100 1100 01 mode reg (0x4C40 | ea).
// Extension word: bits15-12 Dr (remainder; also the high dividend long
// when size selects the 64/32 form), bit11 signed, bit10 size, bits2-0 Dq
// (quotient). When Dr and Dq name the same register only the quotient is
// stored.
// Grounded the same way as MULU.L/MULS.L above (DivlExtWord accessors
// dr/dq/signed/size in original_source's disassembler).

func registerDIVxL() {
	for mode := uint16(0); mode < 8; mode++ {
		if mode == 1 {
			continue
		}
		for reg := uint16(0); reg < 8; reg++ {
			if mode == 7 && reg > 4 {
				continue
			}
			opcodeTable[0x4C40|mode<<3|reg] = opDIVxL
		}
	}
}

func opDIVxL(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	mode := uint8((c.ir >> 3) & 7)
	reg := uint8(c.ir & 7)
	src := c.resolveEA(mode, reg, Long)
	ext := c.fetchPC()

	dq := ext & 7
	dr := (ext >> 12) & 7
	signed := ext&0x0800 != 0
	wide64 := ext&0x0400 != 0 && dr != dq

	divisor := src.read(c, Long)
	if divisor == 0 {
		c.exception(vecDivideByZero)
		return
	}

	var quotient, remainder uint32
	var overflow bool
	if signed {
		var dividend int64
		if wide64 {
			dividend = int64(c.reg.D[dr])<<32 | int64(c.reg.D[dq])
		} else {
			dividend = int64(int32(c.reg.D[dq]))
		}
		q := dividend / int64(int32(divisor))
		r := dividend % int64(int32(divisor))
		if q > 0x7FFFFFFF || q < -0x80000000 {
			overflow = true
		} else {
			quotient = uint32(q)
			remainder = uint32(r)
		}
	} else {
		var dividend uint64
		if wide64 {
			dividend = uint64(c.reg.D[dr])<<32 | uint64(c.reg.D[dq])
		} else {
			dividend = uint64(c.reg.D[dq])
		}
		q := dividend / uint64(divisor)
		r := dividend % uint64(divisor)
		if q > 0xFFFFFFFF {
			overflow = true
		} else {
			quotient = uint32(q)
			remainder = uint32(r)
		}
	}

	c.reg.SR &^= flagN | flagZ | flagV | flagC
	if overflow {
		c.reg.SR |= flagV
	} else {
		c.reg.D[dq] = quotient
		if dr != dq {
			c.reg.D[dr] = remainder
		}
		if quotient == 0 {
			c.reg.SR |= flagZ
		}
		if quotient&0x80000000 != 0 {
			c.reg.SR |= flagN
		}
	}

	c.cycles += 90 + eaFetchCycles(mode, reg, Long)
}

// --- CAS / CAS2 ---
//
// CAS Dc,Du,<ea>: compares <ea> against Dc; on equality <ea> is replaced
// with Du, otherwise Dc is loaded from <ea>. The comparison and update
// are a single indivisible bus cycle on real hardware (the rmw guarantee
// the spec's bus arbitration model does not need to enforce for a
// single-core emulator, since nothing else can observe the intermediate
// state between the read and the write).
//
// First word: 0000 1ss 011 mode reg, ss: 01=byte, 10=word, 11=long.
// Extension word: bits8-6 Du, bits2-0 Dc.

func registerCAS() {
	for _, ss := range []uint16{1, 2, 3} {
		for mode := uint16(0); mode < 8; mode++ {
			if mode == 0 || mode == 1 {
				continue
			}
			for reg := uint16(0); reg < 8; reg++ {
				if mode == 7 && reg > 1 {
					continue
				}
				opcode := 0x0800 | ss<<9 | 0x00C0 | mode<<3 | reg
				opcodeTable[opcode] = opCAS
			}
		}
	}
}

func opCAS(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	sz := sizeEncoding(((c.ir >> 9) & 3) - 1)
	mode := uint8((c.ir >> 3) & 7)
	reg := uint8(c.ir & 7)
	ext := c.fetchPC()
	dc := ext & 7
	du := (ext >> 6) & 7

	dst := c.resolveEA(mode, reg, sz)
	mem := dst.read(c, sz)
	cmp := c.reg.D[dc] & sz.Mask()

	c.setFlagsCmp(cmp, mem, mem-cmp, sz)
	if mem == cmp {
		dst.write(c, sz, c.reg.D[du])
	} else {
		mask := sz.Mask()
		c.reg.D[dc] = (c.reg.D[dc] & ^mask) | (mem & mask)
	}

	c.cycles += 12 + eaFetchCycles(mode, reg, sz)
}

// CAS2 Dc1:Dc2,Du1:Du2,(Rn1):(Rn2): the dual-location form used for list
// and queue manipulation. Both extension words each encode a full
// register-indirect operand (An or Dn used as a pointer) plus the
// compare/update register pair.
//
// First word: 0000 1ss 011 111 100, ss: 10=word, 11=long (byte not valid).
// Extension words: bit15 Rn-is-An flag, bits11-9 Rn reg, bits8-6 Du,
// bits2-0 Dc.

func registerCAS2() {
	opcodeTable[0x0CFC] = opCAS2 // CAS2.W
	opcodeTable[0x0EFC] = opCAS2 // CAS2.L
}

func opCAS2(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	sz := Word
	if c.ir&0x0200 != 0 {
		sz = Long
	}

	ext1 := c.fetchPC()
	ext2 := c.fetchPC()

	ptr1 := c.casPointer(ext1)
	ptr2 := c.casPointer(ext2)

	dc1 := ext1 & 7
	du1 := (ext1 >> 6) & 7
	dc2 := ext2 & 7
	du2 := (ext2 >> 6) & 7

	mem1 := c.readBus(sz, ptr1)
	mem2 := c.readBus(sz, ptr2)
	cmp1 := c.reg.D[dc1] & sz.Mask()
	cmp2 := c.reg.D[dc2] & sz.Mask()

	if mem1 == cmp1 && mem2 == cmp2 {
		c.writeBus(sz, ptr1, c.reg.D[du1])
		c.writeBus(sz, ptr2, c.reg.D[du2])
		c.reg.SR &^= flagN | flagZ | flagV | flagC
		c.reg.SR |= flagZ
	} else {
		mask := sz.Mask()
		c.reg.D[dc1] = (c.reg.D[dc1] & ^mask) | (mem1 & mask)
		c.reg.D[dc2] = (c.reg.D[dc2] & ^mask) | (mem2 & mask)
		c.reg.SR &^= flagZ
	}

	c.cycles += 24
}

// casPointer reads the An/Dn pointer register selected by a CAS2
// extension word (bit 15 selects address vs data register, bits 11-9
// the register number).
func (c *CPU) casPointer(ext uint16) uint32 {
	n := (ext >> 9) & 7
	if ext&0x8000 != 0 {
		return c.reg.A[n]
	}
	return c.reg.D[n]
}

// --- MOVEC ---
//
// Moves between a general register and one of the 68010+ control
// registers (SFC, DFC, USP, VBR; plus CACR/CAAR/MSP/ISP on 68020+).
// Supervisor-only, like every control-register access.
//
// First word: 0100 1110 0111 101d (d: 0 = control->Rn, 1 = Rn->control).
// Extension word: bit15 A/D register type, bits14-12 register number,
// bits11-0 control register select code.

const (
	movecSFC  = 0x000
	movecDFC  = 0x001
	movecUSP  = 0x800
	movecVBR  = 0x801
	movecCACR = 0x002
	movecCAAR = 0x802
	movecMSP  = 0x803
	movecISP  = 0x804
)

func registerMOVEC() {
	opcodeTable[0x4E7A] = opMOVECfrom
	opcodeTable[0x4E7B] = opMOVECto
}

func opMOVECfrom(c *CPU) {
	if !c.model.HasVBR() {
		c.exception(vecIllegalInstruction)
		return
	}
	if !c.supervisor() {
		c.exception(vecPrivilegeViolation)
		return
	}
	ext := c.fetchPC()
	val, ok := c.readControlReg(ext & 0xFFF)
	if !ok {
		c.exception(vecIllegalInstruction)
		return
	}
	c.setGeneralReg(ext, val)
	c.cycles += 12
}

func opMOVECto(c *CPU) {
	if !c.model.HasVBR() {
		c.exception(vecIllegalInstruction)
		return
	}
	if !c.supervisor() {
		c.exception(vecPrivilegeViolation)
		return
	}
	ext := c.fetchPC()
	val := c.generalReg(ext)
	if !c.writeControlReg(ext&0xFFF, val) {
		c.exception(vecIllegalInstruction)
		return
	}
	c.cycles += 10
}

func (c *CPU) generalReg(ext uint16) uint32 {
	n := (ext >> 12) & 7
	if ext&0x8000 != 0 {
		return c.reg.A[n]
	}
	return c.reg.D[n]
}

func (c *CPU) setGeneralReg(ext uint16, val uint32) {
	n := (ext >> 12) & 7
	if ext&0x8000 != 0 {
		c.reg.A[n] = val
	} else {
		c.reg.D[n] = val
	}
}

func (c *CPU) readControlReg(sel uint16) (uint32, bool) {
	switch sel {
	case movecSFC:
		return uint32(c.reg.SFC), true
	case movecDFC:
		return uint32(c.reg.DFC), true
	case movecUSP:
		return c.reg.USP, true
	case movecVBR:
		return c.reg.VBR, true
	case movecCACR:
		if c.model < M68020 {
			return 0, false
		}
		return c.reg.CACR, true
	case movecCAAR:
		if c.model < M68020 {
			return 0, false
		}
		return c.reg.CAAR, true
	case movecMSP:
		if c.model < M68020 {
			return 0, false
		}
		return c.reg.MSP, true
	case movecISP:
		if c.model < M68020 {
			return 0, false
		}
		return c.reg.ISP, true
	}
	return 0, false
}

func (c *CPU) writeControlReg(sel uint16, val uint32) bool {
	switch sel {
	case movecSFC:
		c.reg.SFC = uint8(val & 7)
	case movecDFC:
		c.reg.DFC = uint8(val & 7)
	case movecUSP:
		c.reg.USP = val
	case movecVBR:
		c.reg.VBR = val
	case movecCACR:
		if c.model < M68020 {
			return false
		}
		c.reg.CACR = val
	case movecCAAR:
		if c.model < M68020 {
			return false
		}
		c.reg.CAAR = val
	case movecMSP:
		if c.model < M68020 {
			return false
		}
		c.reg.MSP = val
	case movecISP:
		if c.model < M68020 {
			return false
		}
		c.reg.ISP = val
	default:
		return false
	}
	return true
}

// --- RTD ---
//
// Return and deallocate parameters: like RTS, but adds an immediate
// word displacement to SP after popping PC, collapsing the callee's
// "add #n,sp" epilogue into the return instruction. 68010+ only.

func registerRTD() {
	opcodeTable[0x4E74] = opRTD
}

func opRTD(c *CPU) {
	if !c.model.HasVBR() {
		c.exception(vecIllegalInstruction)
		return
	}
	newPC := c.popLong()
	disp := int16(c.fetchPC())
	c.reg.PC = newPC
	c.reg.A[7] = uint32(int32(c.reg.A[7]) + int32(disp))
	c.cycles += 16
}

// --- TRAPcc ---
//
// Traps to the same vector as TRAPV if the condition is true. TRAPcc.W/.L
// carry an immediate operand that is fetched and discarded — it has no
// effect on whether the trap fires; software uses it to pass the trap
// handler a reason code on the stack.
//
// First word: 0101 CCCC 1111 1OOO, OOO: 010 = word operand, 011 = long
// operand, 100 = no operand. These three reuse the EA space Scc leaves
// unpopulated for mode 7 regs 2-4 (PC-relative/immediate, invalid as a
// byte-settable destination).

func registerTRAPcc() {
	for cc := uint16(0); cc < 16; cc++ {
		opcodeTable[0x50FA|cc<<8] = opTRAPccWord
		opcodeTable[0x50FB|cc<<8] = opTRAPccLong
		opcodeTable[0x50FC|cc<<8] = opTRAPccNone
	}
}

func opTRAPccNone(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	cc := (c.ir >> 8) & 0xF
	c.cycles += 4
	if c.testCondition(cc) {
		c.exception(vecTRAPV)
	}
}

func opTRAPccWord(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	cc := (c.ir >> 8) & 0xF
	c.fetchPC()
	c.cycles += 4
	if c.testCondition(cc) {
		c.exception(vecTRAPV)
	}
}

func opTRAPccLong(c *CPU) {
	if c.model < M68020 {
		c.exception(vecIllegalInstruction)
		return
	}
	cc := (c.ir >> 8) & 0xF
	c.fetchPCLong()
	c.cycles += 6
	if c.testCondition(cc) {
		c.exception(vecTRAPV)
	}
}
