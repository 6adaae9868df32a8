package iwm

// TicksPerSecond is the nominal Mac main clock rate the scheduler
// ticks the IWM at (spec.md §4.6: CPU ≈ 7.833 MHz, rounded to 8 MHz
// for timing-constant derivation, matching the original's
// TICKS_PER_SECOND).
const TicksPerSecond = 8_000_000

// DiskTracks is the number of physical tracks a head can step across.
const DiskTracks = 80

// tachoPulsesPerRev is the spindle tachometer's pulse count per disk
// revolution (spec.md §4.3, §9 glossary).
const tachoPulsesPerRev = 60

// Drive register select codes, addressed via the {CA2,CA1,CA0,SEL}
// pseudo-register formed by Iwm.selectedRegister. Sense reads go
// through DriveReg; command writes go through DriveWriteReg.
type DriveReg byte

const (
	RegDirTrack  DriveReg = 0b0000
	RegDiskIn    DriveReg = 0b0001
	RegStepping  DriveReg = 0b0010
	RegWriteProt DriveReg = 0b0011
	RegMotorOn   DriveReg = 0b0100
	RegTrackZero DriveReg = 0b0101
	RegSwitched  DriveReg = 0b0110
	RegTacho     DriveReg = 0b0111
	RegReadData0 DriveReg = 0b1000
	RegReadData1 DriveReg = 0b1001
	RegSides     DriveReg = 0b1100
	RegReady     DriveReg = 0b1101
	RegInstalled DriveReg = 0b1110
	RegPresent   DriveReg = 0b1111
)

type DriveWriteReg byte

const (
	WriteRegTrackUp   DriveWriteReg = 0b0000
	WriteRegTrackStep DriveWriteReg = 0b0010
	WriteRegMotorOn   DriveWriteReg = 0b0100
	WriteRegTrackDown DriveWriteReg = 0b1000
	WriteRegMotorOff  DriveWriteReg = 0b1100
	WriteRegEject     DriveWriteReg = 0b1110
)

type stepDirection int

const (
	stepUp stepDirection = iota
	stepDown
)

// Drive is one of the IWM's up to three physical drive slots (two
// external 3.5" slots plus, on the SE, one internal).
type Drive struct {
	idx          int
	present      bool
	doubleSided  bool
	cycles       uint64

	floppy         *Image
	floppyInserted bool
	writeProtected bool

	track         int
	trackPosition int
	stepDir       stepDirection
	stepping      uint64 // ticks remaining until head settles

	// Flux-track state (spec.md §4.3 "Flux tick"): fluxTicks is the
	// length of the interval currently under the head, fluxTicksLeft
	// counts down to the next transition, and headBitFlux latches the
	// synthesized head-data bit between transitions (unlike a
	// bit-stream track, a flux track has no bit to re-read per tick).
	fluxTicks     int64
	fluxTicksLeft int64
	headBitFlux   [2]bool

	motor bool

	ejecting    bool
	ejectDeadline uint64

	pwmAvgSum   int64
	pwmAvgCount int64
	pwmDuty     int64
}

func newDrive(idx int, present, doubleSided bool) *Drive {
	return &Drive{
		idx:         idx,
		present:     present,
		doubleSided: doubleSided,
		track:       4,
		stepDir:     stepUp,
	}
}

func (d *Drive) Reset() {
	d.track = 4
	d.trackPosition = 0
	d.stepDir = stepUp
	d.stepping = 0
	d.motor = false
	d.ejecting = false
	d.fluxTicks = 0
	d.fluxTicksLeft = 0
	d.headBitFlux = [2]bool{}
}

func (d *Drive) running() bool { return d.floppyInserted && d.motor }

func (d *Drive) DoubleSided() bool { return d.doubleSided }

// Present reports whether this drive slot is physically populated.
func (d *Drive) Present() bool { return d.present }

// Inserted reports whether a floppy image is currently mounted.
func (d *Drive) Inserted() bool { return d.floppyInserted }

// Motor reports whether the spindle motor is currently energized.
func (d *Drive) Motor() bool { return d.motor }

// Track returns the head's current physical track number (0-79).
func (d *Drive) Track() int { return d.track }

// InsertImage mounts a floppy image, replacing whatever was present.
// The image is writable unless SetWriteProtected is called afterward.
func (d *Drive) InsertImage(img *Image) {
	d.floppy = img
	d.floppyInserted = true
	d.doubleSided = img.DoubleSided
	d.writeProtected = false
}

// SetWriteProtected drives the write-protect sense line, matching the
// tab-covers-the-hole switch on a real 3.5" floppy (InsertFloppyWriteProtected).
func (d *Drive) SetWriteProtected(v bool) { d.writeProtected = v }

// ForceEject unmounts the current image immediately, bypassing the
// motorized WriteRegEject sequencing — the host-initiated EjectFloppy
// command, not the ROM-driven eject a running guest requests.
func (d *Drive) ForceEject() { d.eject() }

func (d *Drive) eject() {
	d.floppyInserted = false
	d.ejecting = false
	d.floppy = nil
}

// readSense answers a DriveReg sense query with the polarity the real
// 74LS08/10-based drive logic uses: most sense lines read 0 for the
// "active"/true condition.
func (d *Drive) readSense(reg DriveReg) bool {
	switch reg {
	case RegDiskIn:
		return !d.floppyInserted
	case RegDirTrack:
		return d.stepDir == stepDown
	case RegSides:
		return d.doubleSided
	case RegMotorOn:
		return !(d.motor && d.floppyInserted)
	case RegPresent, RegInstalled:
		return !d.present
	case RegReady:
		return false
	case RegTrackZero:
		return d.track != 0
	case RegStepping:
		return d.stepping == 0
	case RegTacho:
		return d.tacho()
	case RegReadData0:
		return d.currentHeadBit(0)
	case RegReadData1:
		return d.currentHeadBit(1)
	case RegWriteProt:
		return !d.writeProtected
	case RegSwitched:
		return false
	default:
		return true
	}
}

// writeCommand applies a DriveWriteReg command; unrecognized values
// are silently ignored, matching the real drive mechanism's don't-care
// lines.
func (d *Drive) writeCommand(reg DriveWriteReg, cycles uint64) {
	switch reg {
	case WriteRegMotorOn:
		d.motor = true
	case WriteRegMotorOff:
		d.motor = false
	case WriteRegEject:
		if d.floppyInserted {
			d.ejecting = true
			d.ejectDeadline = cycles + TicksPerSecond/2
		}
	case WriteRegTrackUp:
		d.stepDir = stepUp
	case WriteRegTrackDown:
		d.stepDir = stepDown
	case WriteRegTrackStep:
		d.stepHead()
	}
}

func (d *Drive) stepHead() {
	switch d.stepDir {
	case stepUp:
		if d.track+1 < DiskTracks {
			d.track++
		}
	case stepDown:
		if d.track > 0 {
			d.track--
		}
	}
	d.trackPosition = 0
	d.stepping = TicksPerSecond / 1000 * 30
}

// rpm derives the spindle speed for the current track: single-sided
// drives interpolate the PWM duty cycle spec.md §4.3 describes
// (9% at track 0 → 342rpm, 91% at track 79 → 702rpm); double-sided
// drives use Apple's fixed five-band automatic speed control table.
func (d *Drive) rpm() int64 {
	if !d.doubleSided {
		const dutyT0, speedT0 = 9, (380 + 305) / 2
		const dutyT79, speedT79 = 91, (625 + 780) / 2
		if d.pwmDuty == 0 {
			return 0
		}
		return (d.pwmDuty-dutyT0)*(speedT79*100-speedT0*100)/(dutyT79-dutyT0)/100 + speedT0
	}
	switch {
	case d.track <= 15:
		return 402
	case d.track <= 31:
		return 438
	case d.track <= 47:
		return 482
	case d.track <= 63:
		return 536
	default:
		return 603
	}
}

// ticksPerBit is how many CPU ticks one physical bit spends under the
// head at the drive's current rotational speed and track length.
func (d *Drive) ticksPerBit() uint64 {
	rpm := d.rpm()
	if rpm == 0 || !d.floppyInserted {
		return ^uint64(0)
	}
	length := d.floppy.TrackLength(0, d.track)
	return uint64(TicksPerSecond*60/rpm)/uint64(length) + 1
}

func (d *Drive) tacho() bool {
	if !d.motor || d.rpm() == 0 {
		return false
	}
	pulsesPerMin := d.rpm() * tachoPulsesPerRev
	edgesPerMin := pulsesPerMin * 2
	ticksPerMin := int64(TicksPerSecond * 60)
	ticksPerEdge := ticksPerMin / edgesPerMin
	return (int64(d.cycles)/ticksPerEdge)%2 != 0
}

func (d *Drive) headBit(head int) bool {
	if d.floppy == nil {
		return false
	}
	return d.floppy.TrackBit(head, d.track, d.trackPosition)
}

// currentHeadBit returns the bit currently presented to the IWM's read
// head, whichever track representation is mounted.
func (d *Drive) currentHeadBit(head int) bool {
	if d.isFluxTrack(head) {
		return d.headBitFlux[head]
	}
	return d.headBit(head)
}

// isFluxTrack reports whether the head is currently positioned over a
// flux-transition track rather than a decoded bit-stream track.
func (d *Drive) isFluxTrack(head int) bool {
	return d.floppy != nil && d.floppy.TrackKind(head, d.track) == TrackFlux
}

// loadTransition advances trackPosition to the next flux interval and
// loads its tick length, wrapping at the end of the track.
func (d *Drive) loadTransition(head int) {
	count := d.floppy.TrackLength(head, d.track)
	if count == 0 {
		d.fluxTicks, d.fluxTicksLeft = 0, 0
		return
	}
	d.trackPosition = (d.trackPosition + 1) % count
	ticks := int64(d.floppy.TrackTransition(head, d.track, d.trackPosition))
	d.fluxTicks = ticks
	d.fluxTicksLeft = ticks
}

func (d *Drive) nextBit(head int) bool {
	d.trackPosition++
	length := d.floppy.TrackLength(head, d.track)
	if d.trackPosition >= length {
		d.trackPosition = 0
	}
	return d.headBit(head)
}

func (d *Drive) writeBit(head int, bit bool) {
	if d.floppy == nil {
		return
	}
	d.floppy.SetTrackBit(head, d.track, d.trackPosition, bit)
}

// pushPWM accumulates one audio-rate PWM sample for the duty cycle that
// single-sided drives use to servo spindle speed; double-sided drives
// ignore PWM entirely. Every 100 samples the block's average is turned
// into a new duty cycle and the accumulator restarts: this is a block
// average over 100 samples, not a rolling average.
func (d *Drive) pushPWM(sample byte) {
	if d.doubleSided {
		return
	}
	valueToLen := [64]int64{
		0, 1, 59, 2, 60, 40, 54, 3, 61, 32, 49, 41, 55, 19, 35, 4, 62, 52, 30, 33, 50, 12, 14,
		42, 56, 16, 27, 20, 36, 23, 44, 5, 63, 58, 39, 53, 31, 48, 18, 34, 51, 29, 11, 13, 15,
		26, 22, 43, 57, 38, 47, 17, 28, 10, 25, 21, 37, 46, 9, 24, 45, 8, 7, 6,
	}
	d.pwmAvgSum += valueToLen[int(sample)%len(valueToLen)]
	d.pwmAvgCount++
	if d.pwmAvgCount >= 100 {
		idx := d.pwmAvgSum/(d.pwmAvgCount/10) - 11
		if idx < 0 {
			idx = 0
		}
		if idx > 399 {
			idx = 399
		}
		d.pwmDuty = idx * 100 / 419
		d.pwmAvgSum = 0
		d.pwmAvgCount = 0
	}
}

// tick advances per-drive timers by one CPU cycle: the 500ms eject
// strobe timeout and the 30ms head-settling countdown.
func (d *Drive) tick(cycles uint64, lstrb bool) {
	d.cycles = cycles
	if d.ejecting && lstrb {
		if d.ejectDeadline < cycles {
			d.eject()
		}
	} else if !lstrb {
		d.ejecting = false
	}
	if d.running() && d.stepping > 0 {
		d.stepping--
	}
}
